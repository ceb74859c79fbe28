package formic

import (
	"context"
	"time"
)

// Fields is the cross-field context handed to validators: read access to the
// rest of the form. Cancellation of the surrounding run arrives through the
// validator's context argument.
type Fields interface {
	Value(path string) any
	Values() map[string]any
}

// CheckFunc is the validator function contract: "" means pass, any other
// string is the failing message. A non-nil error is treated as a failing
// message by the engine (err.Error() when msg is empty).
type CheckFunc func(ctx context.Context, value any, fields Fields) (string, error)

// Meta is the tagged capability record carried alongside each validator
// function. The engine derives triggers and debounce from it.
type Meta struct {
	Async      bool
	Required   bool
	CrossField bool
	DependsOn  string // path this validator reads, establishing a dependency edge
	Debounce   time.Duration
}

// Validator pairs a check function with its capability record.
type Validator struct {
	Name  string
	Check CheckFunc
	Meta  Meta
}

// WithDebounce returns a copy of v carrying a debounce hint.
func (v Validator) WithDebounce(d time.Duration) Validator {
	v.Meta.Debounce = d
	return v
}

// Compose chains validators left to right, short-circuiting on the first
// failing message. The composite's capability record is the union of the
// children's flags with the maximum debounce hint, so trigger derivation
// behaves as it would for the loose set.
func Compose(vs ...Validator) Validator {
	meta := Meta{}
	name := "compose"
	for _, v := range vs {
		if v.Meta.Async {
			meta.Async = true
		}
		if v.Meta.Required {
			meta.Required = true
		}
		if v.Meta.CrossField {
			meta.CrossField = true
		}
		if meta.DependsOn == "" {
			meta.DependsOn = v.Meta.DependsOn
		}
		if v.Meta.Debounce > meta.Debounce {
			meta.Debounce = v.Meta.Debounce
		}
	}
	list := append([]Validator(nil), vs...)
	return Validator{
		Name: name,
		Meta: meta,
		Check: func(ctx context.Context, value any, fields Fields) (string, error) {
			for _, v := range list {
				msg, err := v.Check(ctx, value, fields)
				if err != nil && msg == "" {
					msg = err.Error()
				}
				if msg != "" {
					return msg, nil
				}
				if ctx.Err() != nil {
					return "", ctx.Err()
				}
			}
			return "", nil
		},
	}
}

// Trigger selects when a field's validators run. The zero value defers to
// derivation: any async validator -> change, otherwise blur.
type Trigger int

const (
	TriggerDefault Trigger = iota
	TriggerChange
	TriggerBlur
	TriggerSubmit
)

func (t Trigger) String() string {
	switch t {
	case TriggerChange:
		return "change"
	case TriggerBlur:
		return "blur"
	case TriggerSubmit:
		return "submit"
	default:
		return "default"
	}
}
