// Package engine implements the validation engine behind formic.Form:
// per-path rule registries, trigger derivation, debounce timers, generation
// counters with cooperative cancellation, the cross-field dependency graph,
// and whole-form runs. It is deliberately self-contained; the store is
// reached only through the Host interface.
package engine

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Trigger selects when a field's rules run.
type Trigger int

const (
	// TriggerDerived means no explicit policy; the engine derives one from
	// the rule set (any async rule -> change, otherwise blur).
	TriggerDerived Trigger = iota
	TriggerChange
	TriggerBlur
	TriggerSubmit
)

// DefaultAsyncDebounce is applied to change-triggered runs when a field has
// at least one async rule but no explicit debounce hint.
const DefaultAsyncDebounce = 300 * time.Millisecond

// Rule is one validator bound to a field: the capability record the public
// Validator converts into. Run returns "" on pass; a non-nil error counts as
// a failing message.
type Rule struct {
	Name       string
	Run        func(ctx context.Context, value any) (string, error)
	Async      bool
	Required   bool
	CrossField bool
	DependsOn  string
	Debounce   time.Duration
}

// Host is the store surface the engine needs. Every mutation the engine
// performs goes through here so the store can keep its cells coherent.
type Host interface {
	Value(path string) any
	Touched(path string) bool
	SetValidating(path string, on bool)
	// CommitFieldErrors replaces the path's sync and async buckets.
	CommitFieldErrors(path string, syncMsgs, asyncMsgs []string)
	// CommitSchemaErrors replaces schema buckets wholesale: paths absent
	// from errs are cleared.
	CommitSchemaErrors(errs map[string][]string)
	// ClearValidationErrors clears the sync, async and schema buckets on
	// every tracked path. Server and manual buckets survive.
	ClearValidationErrors()
	// RunSchema runs the configured schema against the current values and
	// returns issues grouped by dotted path. ok is false when no schema is
	// configured.
	RunSchema(ctx context.Context) (errs map[string][]string, ok bool)
	Batch(fn func())
	Logf(format string, args ...any)
}

type record struct {
	rules    []Rule
	trigger  Trigger
	debounce time.Duration
	timer    *time.Timer
	gen      uint64
	cancel   context.CancelFunc
}

// Engine owns all validation state for one form.
type Engine struct {
	mu             sync.Mutex
	host           Host
	defaultTrigger Trigger
	fields         map[string]*record
	deps           map[string]map[string]struct{} // source -> dependents
	cfgDeps        map[string]map[string]struct{} // config-level subset; survives re-registration
	revalidating   map[string]struct{}
	allGen         uint64
	allCancel      context.CancelFunc
	disposed       bool
}

// New builds an engine bound to host. defaultTrigger overrides derivation
// for every field without an explicit trigger; pass TriggerDerived to keep
// derivation.
func New(host Host, defaultTrigger Trigger) *Engine {
	return &Engine{
		host:           host,
		defaultTrigger: defaultTrigger,
		fields:         map[string]*record{},
		deps:           map[string]map[string]struct{}{},
		cfgDeps:        map[string]map[string]struct{}{},
		revalidating:   map[string]struct{}{},
	}
}

// Register installs (or replaces) the rule set for path. explicitTrigger of
// TriggerDerived keeps derivation; dependsOn adds config-level edges on top
// of rule-declared ones; a debounce of zero falls back to rule hints.
func (e *Engine) Register(path string, rules []Rule, explicitTrigger Trigger, dependsOn []string, debounce time.Duration) {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}
	if old := e.fields[path]; old != nil {
		if old.cancel != nil {
			old.cancel()
		}
		if old.timer != nil {
			old.timer.Stop()
		}
	}
	e.removeRuleEdgesLocked(path)

	rec := &record{
		rules:    append([]Rule(nil), rules...),
		trigger:  explicitTrigger,
		debounce: resolveDebounce(rules, debounce),
	}
	e.fields[path] = rec

	for _, r := range rules {
		if r.DependsOn != "" {
			e.addEdgeLocked(r.DependsOn, path)
		}
	}
	for _, src := range dependsOn {
		e.addEdgeLocked(src, path)
	}
	e.mu.Unlock()
}

// AddDependency records a config-level edge source -> dependent without
// touching rule records. Config edges survive re-registration of the
// dependent; only Unregister removes them.
func (e *Engine) AddDependency(source, dependent string) {
	e.mu.Lock()
	e.addEdgeLocked(source, dependent)
	set := e.cfgDeps[source]
	if set == nil {
		set = map[string]struct{}{}
		e.cfgDeps[source] = set
	}
	set[dependent] = struct{}{}
	e.mu.Unlock()
}

// Unregister cancels any in-flight run for path, removes its rule record and
// prunes every dependency edge touching it.
func (e *Engine) Unregister(path string) {
	e.mu.Lock()
	if rec := e.fields[path]; rec != nil {
		if rec.cancel != nil {
			rec.cancel()
		}
		if rec.timer != nil {
			rec.timer.Stop()
		}
		delete(e.fields, path)
	}
	delete(e.deps, path)
	delete(e.cfgDeps, path)
	e.removeDependentLocked(path)
	e.mu.Unlock()
	e.host.SetValidating(path, false)
}

// Registered reports whether path has a rule record.
func (e *Engine) Registered(path string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.fields[path]
	return ok
}

// Paths returns every registered path.
func (e *Engine) Paths() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.fields))
	for p := range e.fields {
		out = append(out, p)
	}
	return out
}

func (e *Engine) addEdgeLocked(source, dependent string) {
	set := e.deps[source]
	if set == nil {
		set = map[string]struct{}{}
		e.deps[source] = set
	}
	set[dependent] = struct{}{}
}

// removeRuleEdgesLocked drops path from every source's dependent set except
// where a config-level edge also covers it.
func (e *Engine) removeRuleEdgesLocked(path string) {
	for src, set := range e.deps {
		if cfg := e.cfgDeps[src]; cfg != nil {
			if _, keep := cfg[path]; keep {
				continue
			}
		}
		delete(set, path)
		if len(set) == 0 {
			delete(e.deps, src)
		}
	}
}

// removeDependentLocked drops path from every source's dependent set,
// config-level edges included.
func (e *Engine) removeDependentLocked(path string) {
	for src, set := range e.deps {
		delete(set, path)
		if len(set) == 0 {
			delete(e.deps, src)
		}
	}
	for src, set := range e.cfgDeps {
		delete(set, path)
		if len(set) == 0 {
			delete(e.cfgDeps, src)
		}
	}
}

func resolveDebounce(rules []Rule, explicit time.Duration) time.Duration {
	if explicit > 0 {
		return explicit
	}
	var hint time.Duration
	async := false
	for _, r := range rules {
		if r.Debounce > hint {
			hint = r.Debounce
		}
		if r.Async {
			async = true
		}
	}
	if hint > 0 {
		return hint
	}
	if async {
		return DefaultAsyncDebounce
	}
	return 0
}

func (e *Engine) newTimer(d time.Duration, fn func()) *time.Timer {
	return time.AfterFunc(d, fn)
}

func (e *Engine) effectiveTrigger(rec *record) Trigger {
	if rec.trigger != TriggerDerived {
		return rec.trigger
	}
	if e.defaultTrigger != TriggerDerived {
		return e.defaultTrigger
	}
	for _, r := range rec.rules {
		if r.Async {
			return TriggerChange
		}
	}
	return TriggerBlur
}

// Dispose stops every debounce timer, aborts all in-flight runs and clears
// validating flags. The engine refuses further work afterwards.
func (e *Engine) Dispose() {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}
	e.disposed = true
	paths := make([]string, 0, len(e.fields))
	for p, rec := range e.fields {
		if rec.cancel != nil {
			rec.cancel()
		}
		if rec.timer != nil {
			rec.timer.Stop()
		}
		paths = append(paths, p)
	}
	if e.allCancel != nil {
		e.allCancel()
		e.allCancel = nil
	}
	e.mu.Unlock()
	for _, p := range paths {
		e.host.SetValidating(p, false)
	}
}

// Supersede cancels any in-flight run for the listed paths and bumps their
// generations so late results are discarded, then clears their validating
// flags. With no paths it supersedes every field plus the current whole-form
// run. Resets use this so a slow validator started before the reset cannot
// commit onto the cleared form.
func (e *Engine) Supersede(paths ...string) {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}
	var affected []string
	if len(paths) == 0 {
		for p, rec := range e.fields {
			supersedeLocked(rec)
			affected = append(affected, p)
		}
		if e.allCancel != nil {
			e.allCancel()
			e.allCancel = nil
		}
		e.allGen++
	} else {
		for _, p := range paths {
			if rec := e.fields[p]; rec != nil {
				supersedeLocked(rec)
				affected = append(affected, p)
			}
		}
	}
	e.mu.Unlock()
	for _, p := range affected {
		e.host.SetValidating(p, false)
	}
}

func supersedeLocked(rec *record) {
	if rec.cancel != nil {
		rec.cancel()
		rec.cancel = nil
	}
	if rec.timer != nil {
		rec.timer.Stop()
		rec.timer = nil
	}
	rec.gen++
}

// AbortAll cancels the current whole-form run, if any.
func (e *Engine) AbortAll() {
	e.mu.Lock()
	if e.allCancel != nil {
		e.allCancel()
		e.allCancel = nil
	}
	e.mu.Unlock()
}

// ValidateFields runs every listed path's rules concurrently and returns the
// combined error map (only paths that produced messages appear).
func (e *Engine) ValidateFields(ctx context.Context, paths []string) map[string][]string {
	var mu sync.Mutex
	out := map[string][]string{}
	g := new(errgroup.Group)
	for _, p := range paths {
		p := p
		g.Go(func() error {
			msgs := e.ValidateField(ctx, p)
			if len(msgs) > 0 {
				mu.Lock()
				out[p] = msgs
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}
