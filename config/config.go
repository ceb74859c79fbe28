// Package config loads declarative form definitions from YAML: default
// values, per-form and per-field triggers, dependency declarations and rule
// specs resolved through the rules package.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	formic "github.com/formic-dev/formic"
	"github.com/formic-dev/formic/rules"
)

// File is the YAML document shape.
type File struct {
	Defaults        map[string]any         `yaml:"defaults"`
	Trigger         string                 `yaml:"trigger"`
	Fields          map[string]FieldSpec   `yaml:"fields"`
	Dependencies    map[string]StringOrSli `yaml:"dependencies"`
	ValidateOnMount bool                   `yaml:"validate_on_mount"`
	ResetOnSubmit   bool                   `yaml:"reset_on_submit"`
	FocusOnError    bool                   `yaml:"focus_on_error"`
}

// FieldSpec is one field's declarative registration.
type FieldSpec struct {
	Trigger   string      `yaml:"trigger"`
	Debounce  Duration    `yaml:"debounce"`
	DependsOn StringOrSli `yaml:"depends_on"`
	Rules     []RuleSpec  `yaml:"rules"`
}

// RuleSpec names a built-in rule and its parameters.
type RuleSpec struct {
	Kind     string   `yaml:"kind"`
	N        int      `yaml:"n"`       // min_len / max_len
	Bound    float64  `yaml:"bound"`   // min / max
	Pattern  string   `yaml:"pattern"` // pattern
	Allowed  []any    `yaml:"allowed"` // one_of
	Field    string   `yaml:"field"`   // matches
	Expr     string   `yaml:"expr"`    // expr
	Message  string   `yaml:"message"`
	Debounce Duration `yaml:"debounce"`
}

// Duration accepts "150ms" style scalars; a bare number counts as
// milliseconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var n int64
	if err := node.Decode(&n); err == nil {
		*d = Duration(time.Duration(n) * time.Millisecond)
		return nil
	}
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("config: bad duration: %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: bad duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// StringOrSli accepts a YAML scalar or sequence of strings.
type StringOrSli []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *StringOrSli) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var v string
		if err := node.Decode(&v); err != nil {
			return err
		}
		*s = []string{v}
		return nil
	case yaml.SequenceNode:
		var v []string
		if err := node.Decode(&v); err != nil {
			return err
		}
		*s = v
		return nil
	default:
		return fmt.Errorf("config: expected string or list, got yaml kind %d", node.Kind)
	}
}

// Load reads and parses a YAML form definition file.
func Load(path string) (formic.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return formic.Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse builds a formic.Config from YAML bytes.
func Parse(raw []byte) (formic.Config, error) {
	var file File
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return formic.Config{}, fmt.Errorf("config: parse yaml: %w", err)
	}
	return Build(file)
}

// Build converts a decoded File into a formic.Config.
func Build(file File) (formic.Config, error) {
	cfg := formic.Config{
		Defaults:        file.Defaults,
		ValidateOnMount: file.ValidateOnMount,
		ResetOnSubmit:   file.ResetOnSubmit,
		FocusOnError:    file.FocusOnError,
	}
	var err error
	if cfg.Trigger, err = parseTrigger(file.Trigger); err != nil {
		return formic.Config{}, err
	}
	if len(file.Fields) > 0 {
		cfg.Fields = make(map[string]formic.FieldOptions, len(file.Fields))
		for path, spec := range file.Fields {
			opts, err := buildField(path, spec)
			if err != nil {
				return formic.Config{}, err
			}
			cfg.Fields[path] = opts
		}
	}
	if len(file.Dependencies) > 0 {
		cfg.Dependencies = make(map[string][]string, len(file.Dependencies))
		for dependent, sources := range file.Dependencies {
			cfg.Dependencies[dependent] = []string(sources)
		}
	}
	return cfg, nil
}

func buildField(path string, spec FieldSpec) (formic.FieldOptions, error) {
	opts := formic.FieldOptions{
		Debounce:  time.Duration(spec.Debounce),
		DependsOn: []string(spec.DependsOn),
	}
	var err error
	if opts.Trigger, err = parseTrigger(spec.Trigger); err != nil {
		return formic.FieldOptions{}, fmt.Errorf("field %s: %w", path, err)
	}
	for _, rs := range spec.Rules {
		v, err := buildRule(rs)
		if err != nil {
			return formic.FieldOptions{}, fmt.Errorf("field %s: %w", path, err)
		}
		opts.Rules = append(opts.Rules, v)
	}
	return opts, nil
}

func buildRule(rs RuleSpec) (formic.Validator, error) {
	var v formic.Validator
	switch rs.Kind {
	case "required":
		v = rules.Required(rs.Message)
	case "min_len":
		v = rules.MinLen(rs.N, rs.Message)
	case "max_len":
		v = rules.MaxLen(rs.N, rs.Message)
	case "min":
		v = rules.Min(rs.Bound, rs.Message)
	case "max":
		v = rules.Max(rs.Bound, rs.Message)
	case "pattern":
		if rs.Pattern == "" {
			return formic.Validator{}, fmt.Errorf("config: pattern rule needs pattern")
		}
		v = rules.Pattern(rs.Pattern, rs.Message)
	case "one_of":
		v = rules.OneOf(rs.Allowed, rs.Message)
	case "matches":
		if rs.Field == "" {
			return formic.Validator{}, fmt.Errorf("config: matches rule needs field")
		}
		v = rules.Matches(rs.Field, rs.Message)
	case "expr":
		if rs.Expr == "" {
			return formic.Validator{}, fmt.Errorf("config: expr rule needs expr")
		}
		v = rules.Expr(rs.Expr, rs.Message)
	default:
		return formic.Validator{}, fmt.Errorf("config: unknown rule kind %q", rs.Kind)
	}
	if rs.Debounce > 0 {
		v = v.WithDebounce(time.Duration(rs.Debounce))
	}
	return v, nil
}

func parseTrigger(s string) (formic.Trigger, error) {
	switch s {
	case "", "default":
		return formic.TriggerDefault, nil
	case "change":
		return formic.TriggerChange, nil
	case "blur":
		return formic.TriggerBlur, nil
	case "submit":
		return formic.TriggerSubmit, nil
	default:
		return formic.TriggerDefault, fmt.Errorf("config: unknown trigger %q", s)
	}
}
