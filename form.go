package formic

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/formic-dev/formic/cell"
	"github.com/formic-dev/formic/fieldpath"
	"github.com/formic-dev/formic/internal/engine"
)

// Config is the form-level configuration surface.
type Config struct {
	// Defaults is the initial value tree; it becomes the first baseline.
	Defaults map[string]any
	// Rules maps field paths to their validator lists.
	Rules map[string][]Validator
	// Fields carries full per-field registrations (trigger, debounce,
	// dependencies) for paths that need more than a validator list.
	Fields map[string]FieldOptions
	// Schema runs as the first pass of every whole-form validation.
	Schema Schema
	// Trigger overrides trigger derivation for every field without an
	// explicit per-field trigger.
	Trigger Trigger
	// Dependencies declares config-level edges: dependent path -> the
	// source path(s) it must re-validate after.
	Dependencies map[string][]string
	// ValidateOnMount runs a whole-form validation inside New.
	ValidateOnMount bool
	// ResetOnSubmit resets the form after a successful submission.
	ResetOnSubmit bool
	// FocusOnError invokes the first errored field's Focus hook after a
	// failed submission.
	FocusOnError bool
	// OnSubmit is the default handler used by Submit.
	OnSubmit SubmitHandler
}

// Option tunes construction.
type Option func(*Form)

// WithHub supplies an externally owned cell hub. Cells created on it are not
// destroyed by Dispose.
func WithHub(h *cell.Hub) Option {
	return func(f *Form) { f.hub = h }
}

// WithLogger attaches a diagnostics logger.
func WithLogger(l Logger) Option {
	return func(f *Form) {
		if l == nil {
			l = noopLogger{}
		}
		f.logger = l
	}
}

// Form is the single source of truth for all observable form state: one
// reactive cell per observed path, error-source maps, touched/dirty sets, a
// baseline snapshot and the field registries. Validation is delegated to the
// internal engine.
type Form struct {
	mu     sync.Mutex
	hub    *cell.Hub
	cfg    Config
	logger Logger
	eng    *engine.Engine

	baseline any // immutable deep copy; dirty comparator and shape fallback

	cells      map[string]*cell.Cell // path -> value cell, lazily materialized
	errCells   map[string]*cell.Cell // path -> flat []string
	validating map[string]*cell.Cell // path -> bool

	errs    map[string]*buckets
	touched map[string]struct{}
	dirty   map[string]struct{}

	validCell  *cell.Cell // bool: no error bucket anywhere is non-empty
	dirtyCell  *cell.Cell // bool: dirty set non-empty
	submitCell *cell.Cell // SubmitState

	subscribers map[int]func(path string, value any)
	nextSub     int
	watchUnsubs map[int]func()
	nextWatch   int

	options map[string]FieldOptions
	refs    map[string]any

	submitGen    uint64
	submitCancel context.CancelFunc
	submitCount  int

	disposed bool
}

// New builds a form from cfg. Config rules, dependencies and triggers are
// registered with the engine before ValidateOnMount runs.
func New(cfg Config, opts ...Option) *Form {
	f := &Form{
		cfg:         cfg,
		logger:      noopLogger{},
		cells:       map[string]*cell.Cell{},
		errCells:    map[string]*cell.Cell{},
		validating:  map[string]*cell.Cell{},
		errs:        map[string]*buckets{},
		touched:     map[string]struct{}{},
		dirty:       map[string]struct{}{},
		subscribers: map[int]func(string, any){},
		watchUnsubs: map[int]func(){},
		options:     map[string]FieldOptions{},
		refs:        map[string]any{},
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.hub == nil {
		f.hub = cell.NewHub()
	}
	if cfg.Defaults != nil {
		f.baseline = fieldpath.Clone(any(cfg.Defaults))
	} else {
		f.baseline = map[string]any{}
	}
	f.validCell = f.hub.Cell(true)
	f.dirtyCell = f.hub.Cell(false)
	f.submitCell = f.hub.Cell(SubmitState{Status: SubmitIdle})

	f.eng = engine.New(hostFor(f), engineTrigger(cfg.Trigger))

	for path, vs := range cfg.Rules {
		f.eng.Register(normPath(path), rulesOf(f, vs), engine.TriggerDerived, nil, 0)
	}
	for path, opts := range cfg.Fields {
		f.Register(path, opts)
	}
	for dependent, sources := range cfg.Dependencies {
		for _, src := range sources {
			f.eng.AddDependency(normPath(src), normPath(dependent))
		}
	}
	if cfg.ValidateOnMount {
		f.ValidateAll(context.Background())
	}
	return f
}

// normPath canonicalizes bracket forms ("a[0].b") into dotted form.
func normPath(p string) string {
	if p == "" {
		return ""
	}
	return fieldpath.String(fieldpath.Parse(p))
}

func engineTrigger(t Trigger) engine.Trigger {
	switch t {
	case TriggerChange:
		return engine.TriggerChange
	case TriggerBlur:
		return engine.TriggerBlur
	case TriggerSubmit:
		return engine.TriggerSubmit
	default:
		return engine.TriggerDerived
	}
}

// rulesOf converts public validators into engine rules bound to this form's
// cross-field context.
func rulesOf(f *Form, vs []Validator) []engine.Rule {
	out := make([]engine.Rule, len(vs))
	for i, v := range vs {
		v := v
		out[i] = engine.Rule{
			Name: v.Name,
			Run: func(ctx context.Context, value any) (string, error) {
				return v.Check(ctx, value, fieldsView{f})
			},
			Async:      v.Meta.Async,
			Required:   v.Meta.Required,
			CrossField: v.Meta.CrossField,
			DependsOn:  normPath(v.Meta.DependsOn),
			Debounce:   v.Meta.Debounce,
		}
	}
	return out
}

// fieldsView is the read-only cross-field context handed to validators.
type fieldsView struct{ f *Form }

func (v fieldsView) Value(path string) any  { return v.f.Value(path) }
func (v fieldsView) Values() map[string]any { return v.f.Values() }

// ---- value access ----

// Value returns the current value at path. The path's cell materializes on
// first read so later ancestor/descendant reconciliation reaches it.
func (f *Form) Value(path string) any {
	path = normPath(path)
	f.mu.Lock()
	c := f.ensureValueCellLocked(path)
	f.mu.Unlock()
	return c.Get()
}

// ensureValueCellLocked materializes the value cell for path, seeding it
// from the nearest materialized ancestor, falling back to baseline shape.
func (f *Form) ensureValueCellLocked(path string) *cell.Cell {
	if c, ok := f.cells[path]; ok {
		return c
	}
	c := f.hub.Cell(f.liveValueLocked(path))
	f.cells[path] = c
	return c
}

// liveValueLocked computes the value at path from the furthest-evolved live
// state: nearest materialized ancestor cell wins over baseline.
func (f *Form) liveValueLocked(path string) any {
	segs := fieldpath.Parse(path)
	for i := len(segs); i >= 0; i-- {
		prefix := fieldpath.String(segs[:i])
		if i == len(segs) {
			if c, ok := f.cells[prefix]; ok {
				return c.Get()
			}
			continue
		}
		if c, ok := f.cells[prefix]; ok {
			rest := fieldpath.String(segs[i:])
			v, _ := fieldpath.Get(c.Get(), rest)
			return v
		}
	}
	v, _ := fieldpath.Get(f.baseline, path)
	return v
}

// SetValue writes value at path. It is a no-op when the new value is
// identical to the current one (strict identity; NaN counts as identical to
// NaN, +0 is distinct from -0). An actual change updates the leaf cell,
// pushes shape onto materialized descendants, reconstructs ancestors,
// recomputes dirtiness, invokes the engine change hook and notifies watchers
// and subscribers inside one batched transaction.
func (f *Form) SetValue(path string, value any) {
	path = normPath(path)
	if f.isDisposed() {
		return
	}
	cur := f.Value(path)
	if fieldpath.Identical(cur, value) {
		return
	}
	f.hub.Batch(func() {
		f.applySet(path, value, true)
	})
}

// applySet is the shared write pipeline. notifyEngine is false for resets,
// which must not trigger validation.
func (f *Form) applySet(path string, value any, notifyEngine bool) {
	f.mu.Lock()
	leaf := f.ensureValueCellLocked(path)
	leaf.Set(value)

	// push the new shape onto already-materialized descendant cells so
	// pre-existing deep subscriptions observe consistent values
	for d, dc := range f.cells {
		if !fieldpath.IsDescendant(path, d) {
			continue
		}
		rel := relPath(path, d)
		dv, _ := fieldpath.Get(value, rel)
		dc.Set(dv)
	}

	// upward walk: reconstruct every materialized ancestor
	segs := fieldpath.Parse(path)
	for i := len(segs) - 1; i >= 0; i-- {
		anc := fieldpath.String(segs[:i])
		ac, ok := f.cells[anc]
		if !ok {
			continue
		}
		rel := fieldpath.String(segs[i:])
		ac.Set(fieldpath.Set(ac.Get(), rel, value))
	}

	base, _ := fieldpath.Get(f.baseline, path)
	if fieldpath.DeepEqual(value, base) {
		delete(f.dirty, path)
	} else {
		f.dirty[path] = struct{}{}
	}
	f.dirtyCell.Set(len(f.dirty) > 0)

	subs := make([]func(string, any), 0, len(f.subscribers))
	for _, fn := range f.subscribers {
		subs = append(subs, fn)
	}
	f.mu.Unlock()

	if notifyEngine {
		f.eng.OnFieldChange(path)
	}
	for _, fn := range subs {
		f.safeNotify(func() { fn(path, value) })
	}
}

func relPath(ancestor, path string) string {
	if ancestor == "" {
		return path
	}
	return path[len(ancestor)+1:]
}

func (f *Form) safeNotify(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			f.logger.Logf("formic: observer panic recovered: %v", r)
		}
	}()
	fn()
}

// Watch observes the value at path. The returned function unsubscribes.
func (f *Form) Watch(path string, fn func(value any)) func() {
	path = normPath(path)
	f.mu.Lock()
	c := f.ensureValueCellLocked(path)
	f.mu.Unlock()
	unsub := c.Subscribe(func(v any) {
		f.safeNotify(func() { fn(v) })
	})
	return f.trackUnsub(unsub)
}

// trackUnsub registers unsub for disposal and wraps it so an explicit
// unsubscribe also drops the registry entry.
func (f *Form) trackUnsub(unsub func()) func() {
	f.mu.Lock()
	id := f.nextWatch
	f.nextWatch++
	f.watchUnsubs[id] = unsub
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		delete(f.watchUnsubs, id)
		f.mu.Unlock()
		unsub()
	}
}

// Subscribe observes every value change on the form. The returned function
// unsubscribes.
func (f *Form) Subscribe(fn func(path string, value any)) func() {
	f.mu.Lock()
	id := f.nextSub
	f.nextSub++
	f.subscribers[id] = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		delete(f.subscribers, id)
		f.mu.Unlock()
	}
}

// ---- touched / dirty ----

// SetTouched marks (or unmarks) user interaction on path.
func (f *Form) SetTouched(path string, touched bool) {
	path = normPath(path)
	f.mu.Lock()
	if touched {
		f.touched[path] = struct{}{}
	} else {
		delete(f.touched, path)
	}
	f.mu.Unlock()
}

// Touched reports whether path has been interacted with.
func (f *Form) Touched(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.touched[normPath(path)]
	return ok
}

// Dirty is pure set membership: whether path's value diverged from baseline.
func (f *Form) Dirty(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.dirty[normPath(path)]
	return ok
}

// IsDirty reports whether any path diverged from baseline.
func (f *Form) IsDirty() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.dirty) > 0
}

// BaselineAt returns the baseline value at path.
func (f *Form) BaselineAt(path string) any {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, _ := fieldpath.Get(f.baseline, normPath(path))
	return v
}

// ---- validation pass-throughs ----

// ValidateField runs path's validators now, returning the committed
// messages. A superseded run returns an empty slice.
func (f *Form) ValidateField(ctx context.Context, path string) []string {
	return f.eng.ValidateField(ctx, normPath(path))
}

// ValidateFields runs the listed paths' validators concurrently.
func (f *Form) ValidateFields(ctx context.Context, paths []string) map[string][]string {
	norm := make([]string, len(paths))
	for i, p := range paths {
		norm[i] = normPath(p)
	}
	return f.eng.ValidateFields(ctx, norm)
}

// ValidateAll runs schema validation plus every registered field's
// validators. It returns nil when the form is valid, Issues otherwise. An
// aborted run (superseded by a newer ValidateAll) returns nil.
func (f *Form) ValidateAll(ctx context.Context) error {
	res := f.eng.ValidateAll(ctx)
	if res.OK {
		return nil
	}
	return issuesFromMap(res.Errors)
}

func issuesFromMap(errs map[string][]engine.Entry) Issues {
	paths := make([]string, 0, len(errs))
	for p := range errs {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	var iss Issues
	for _, p := range paths {
		for _, e := range errs[p] {
			iss = append(iss, Issue{Path: p, Source: sourceOf(e.Kind), Message: e.Msg})
		}
	}
	return iss
}

func sourceOf(k engine.Kind) ErrorSource {
	switch k {
	case engine.KindAsync:
		return SourceAsync
	case engine.KindSchema:
		return SourceSchema
	default:
		return SourceSync
	}
}

// Validating reports whether a validation run is in flight for path.
func (f *Form) Validating(path string) bool {
	f.mu.Lock()
	c, ok := f.validating[normPath(path)]
	f.mu.Unlock()
	if !ok {
		return false
	}
	on, _ := c.Get().(bool)
	return on
}

// Blur forwards a blur event to the engine: pending debounce is cancelled
// and validation runs immediately unless the field's trigger is submit.
func (f *Form) Blur(path string) {
	f.eng.OnFieldBlur(normPath(path))
}

// DefaultAsyncDebounce is the debounce applied to change-triggered runs for
// fields with async validators and no explicit hint.
func DefaultAsyncDebounce() time.Duration { return engine.DefaultAsyncDebounce }

func (f *Form) isDisposed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disposed
}
