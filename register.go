package formic

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// InputKind selects how HandleInput interprets a raw input event value.
type InputKind int

const (
	// InputText coerces the raw value to its string form.
	InputText InputKind = iota
	// InputCheckbox coerces the raw value to a bool.
	InputCheckbox
	// InputNumber coerces the raw value to float64 where possible.
	InputNumber
	// InputDirect stores the raw value unchanged.
	InputDirect
)

// FieldOptions configures a dynamic field registration.
type FieldOptions struct {
	Rules     []Validator
	Trigger   Trigger
	DependsOn []string
	Debounce  time.Duration
	Kind      InputKind
	// Parse converts a raw input-event value before Transform runs. When
	// nil, Kind-based coercion applies.
	Parse func(raw any) any
	// Transform post-processes the parsed value before it is stored.
	Transform func(v any) any
	// Focus is invoked by a failed submission when FocusOnError is set and
	// this field carries the first error.
	Focus func()
}

// FieldHandle is the registration handle returned by Register.
type FieldHandle struct {
	ID   uuid.UUID
	Path string
	form *Form
}

// Register installs a field: its validators join the engine registry, its
// input adapters and ref storage join the store registries. Re-registering a
// path replaces the previous registration.
func (f *Form) Register(path string, opts FieldOptions) *FieldHandle {
	path = normPath(path)
	f.mu.Lock()
	if f.disposed {
		f.mu.Unlock()
		return &FieldHandle{ID: uuid.New(), Path: path, form: f}
	}
	f.options[path] = opts
	f.mu.Unlock()

	f.eng.Register(path, rulesOf(f, opts.Rules), engineTrigger(opts.Trigger), normPaths(opts.DependsOn), opts.Debounce)
	// materialize the value cell so snapshots and watchers are cheap
	f.Value(path)
	return &FieldHandle{ID: uuid.New(), Path: path, form: f}
}

func normPaths(paths []string) []string {
	if len(paths) == 0 {
		return nil
	}
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = normPath(p)
	}
	return out
}

// Unregister removes a field registration: its validator record, its
// dependency edges and any in-flight run go away. Value cells stay.
func (f *Form) Unregister(path string) {
	path = normPath(path)
	f.eng.Unregister(path)
	f.mu.Lock()
	delete(f.options, path)
	delete(f.refs, path)
	f.mu.Unlock()
}

// RegisteredPaths lists every path with a validator registration.
func (f *Form) RegisteredPaths() []string {
	return f.eng.Paths()
}

// SetRef stores an opaque UI reference (DOM node equivalent) for path.
func (f *Form) SetRef(path string, ref any) {
	f.mu.Lock()
	f.refs[normPath(path)] = ref
	f.mu.Unlock()
}

// Ref returns the stored reference for path.
func (f *Form) Ref(path string) any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refs[normPath(path)]
}

// HandleInput feeds a raw input-event value through the field's parse and
// transform hooks and stores the result. The field is marked touched.
func (f *Form) HandleInput(path string, raw any) {
	path = normPath(path)
	f.mu.Lock()
	opts := f.options[path]
	f.mu.Unlock()

	v := raw
	if opts.Parse != nil {
		v = opts.Parse(raw)
	} else {
		v = coerceInput(opts.Kind, raw)
	}
	if opts.Transform != nil {
		v = opts.Transform(v)
	}
	f.SetTouched(path, true)
	f.SetValue(path, v)
}

func coerceInput(kind InputKind, raw any) any {
	switch kind {
	case InputCheckbox:
		switch b := raw.(type) {
		case bool:
			return b
		case string:
			return b == "true" || b == "on" || b == "checked"
		default:
			return raw != nil
		}
	case InputNumber:
		switch n := raw.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		case string:
			if n == "" {
				return nil
			}
			if parsed, ok := parseFloat(n); ok {
				return parsed
			}
			return n
		default:
			return raw
		}
	case InputDirect:
		return raw
	default: // InputText
		if s, ok := raw.(string); ok {
			return s
		}
		return stringifyLeaf(raw)
	}
}

// Snapshot is a read-only view of one field's state.
type Snapshot struct {
	Value      any
	Errors     []string
	Touched    bool
	Dirty      bool
	Validating bool
}

// SetValue writes through to the store.
func (h *FieldHandle) SetValue(v any) { h.form.SetValue(h.Path, v) }

// SetError replaces the field's manual bucket.
func (h *FieldHandle) SetError(msgs ...string) { h.form.SetErrors(h.Path, msgs) }

// SetTouched marks interaction.
func (h *FieldHandle) SetTouched(touched bool) { h.form.SetTouched(h.Path, touched) }

// Reset restores the field to its baseline value and clears its state.
func (h *FieldHandle) Reset() { h.form.ResetField(h.Path) }

// Snapshot returns the field's current state.
func (h *FieldHandle) Snapshot() Snapshot {
	return Snapshot{
		Value:      h.form.Value(h.Path),
		Errors:     h.form.Errors(h.Path),
		Touched:    h.form.Touched(h.Path),
		Dirty:      h.form.Dirty(h.Path),
		Validating: h.form.Validating(h.Path),
	}
}

func parseFloat(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	return v, err == nil
}
