// Package rules provides the built-in validator factories. Each factory
// returns a formic.Validator carrying the capability record the engine uses
// for trigger derivation; default messages come from the i18n catalog and
// can be overridden with the trailing msg argument.
package rules

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"

	formic "github.com/formic-dev/formic"
	"github.com/formic-dev/formic/fieldpath"
	"github.com/formic-dev/formic/i18n"
)

func pick(override []string, code string, data map[string]string) string {
	if len(override) > 0 && override[0] != "" {
		return override[0]
	}
	return i18n.T(code, data)
}

// Required fails on nil, empty string, empty container and false-like
// absent values.
func Required(msg ...string) formic.Validator {
	m := pick(msg, "required", nil)
	return formic.Validator{
		Name: "required",
		Meta: formic.Meta{Required: true},
		Check: func(_ context.Context, value any, _ formic.Fields) (string, error) {
			if isEmpty(value) {
				return m, nil
			}
			return "", nil
		},
	}
}

func isEmpty(v any) bool {
	switch n := v.(type) {
	case nil:
		return true
	case string:
		return n == ""
	case []any:
		return len(n) == 0
	case map[string]any:
		return len(n) == 0
	default:
		return false
	}
}

// MinLen fails when the string value is shorter than n runes.
func MinLen(n int, msg ...string) formic.Validator {
	m := pick(msg, "too_short", map[string]string{"min": strconv.Itoa(n)})
	return formic.Validator{
		Name: "min_len",
		Check: func(_ context.Context, value any, _ formic.Fields) (string, error) {
			if s, ok := value.(string); ok && s != "" && len([]rune(s)) < n {
				return m, nil
			}
			return "", nil
		},
	}
}

// MaxLen fails when the string value is longer than n runes.
func MaxLen(n int, msg ...string) formic.Validator {
	m := pick(msg, "too_long", map[string]string{"max": strconv.Itoa(n)})
	return formic.Validator{
		Name: "max_len",
		Check: func(_ context.Context, value any, _ formic.Fields) (string, error) {
			if s, ok := value.(string); ok && len([]rune(s)) > n {
				return m, nil
			}
			return "", nil
		},
	}
}

// Min fails when the numeric value is below bound. Non-numeric values pass.
func Min(bound float64, msg ...string) formic.Validator {
	m := pick(msg, "too_small", map[string]string{"min": formatBound(bound)})
	return formic.Validator{
		Name: "min",
		Check: func(_ context.Context, value any, _ formic.Fields) (string, error) {
			if n, ok := numeric(value); ok && n < bound {
				return m, nil
			}
			return "", nil
		},
	}
}

// Max fails when the numeric value is above bound. Non-numeric values pass.
func Max(bound float64, msg ...string) formic.Validator {
	m := pick(msg, "too_big", map[string]string{"max": formatBound(bound)})
	return formic.Validator{
		Name: "max",
		Check: func(_ context.Context, value any, _ formic.Fields) (string, error) {
			if n, ok := numeric(value); ok && n > bound {
				return m, nil
			}
			return "", nil
		},
	}
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil && n != ""
	default:
		return 0, false
	}
}

func formatBound(b float64) string {
	return strconv.FormatFloat(b, 'f', -1, 64)
}

// Pattern fails when the string value does not match re. Empty strings pass
// (combine with Required for presence).
func Pattern(re string, msg ...string) formic.Validator {
	m := pick(msg, "pattern", nil)
	compiled := regexp.MustCompile(re)
	return formic.Validator{
		Name: "pattern",
		Check: func(_ context.Context, value any, _ formic.Fields) (string, error) {
			if s, ok := value.(string); ok && s != "" && !compiled.MatchString(s) {
				return m, nil
			}
			return "", nil
		},
	}
}

// OneOf fails when the value is not among allowed.
func OneOf(allowed []any, msg ...string) formic.Validator {
	m := pick(msg, "invalid_enum", nil)
	return formic.Validator{
		Name: "one_of",
		Check: func(_ context.Context, value any, _ formic.Fields) (string, error) {
			for _, a := range allowed {
				if fieldpath.DeepEqual(a, value) {
					return "", nil
				}
			}
			return m, nil
		},
	}
}

// Matches is the cross-field equality rule: the value must equal the value
// at path. It declares path as a dependency so the engine re-validates this
// field when path changes.
func Matches(path string, msg ...string) formic.Validator {
	m := pick(msg, "must_match", map[string]string{"field": path})
	return formic.Validator{
		Name: "matches",
		Meta: formic.Meta{CrossField: true, DependsOn: path},
		Check: func(_ context.Context, value any, fields formic.Fields) (string, error) {
			if !fieldpath.DeepEqual(value, fields.Value(path)) {
				return m, nil
			}
			return "", nil
		},
	}
}

// Expr compiles an expr-lang expression evaluated against
// {"value": <field value>, "values": <whole form>}. A result of true passes;
// false fails with msg; a non-boolean result or evaluation error fails with
// the error text.
func Expr(expression string, msg ...string) formic.Validator {
	m := pick(msg, "rule_failed", nil)
	// the env declaration shadows expr-lang's values() builtin so
	// "values.min" resolves to the form tree, not the builtin
	program, compileErr := exprlang.Compile(expression,
		exprlang.Env(map[string]any{"value": nil, "values": map[string]any{}}),
		exprlang.DisableBuiltin("values"),
		exprlang.AllowUndefinedVariables(),
	)
	return formic.Validator{
		Name: "expr",
		Meta: formic.Meta{CrossField: true},
		Check: func(_ context.Context, value any, fields formic.Fields) (string, error) {
			if compileErr != nil {
				return "", fmt.Errorf("expr %q: %w", expression, compileErr)
			}
			return runProgram(program, expression, value, fields, m)
		},
	}
}

func runProgram(program *exprvm.Program, expression string, value any, fields formic.Fields, msg string) (string, error) {
	env := map[string]any{
		"value":  value,
		"values": fields.Values(),
	}
	out, err := exprlang.Run(program, env)
	if err != nil {
		return "", fmt.Errorf("expr %q: %w", expression, err)
	}
	ok, isBool := out.(bool)
	if !isBool {
		return "", fmt.Errorf("expr %q: non-boolean result %v", expression, out)
	}
	if !ok {
		return msg, nil
	}
	return "", nil
}

// Async wraps fn as an asynchronous validator (derived trigger becomes
// change, default debounce applies). fn should honor ctx cancellation.
func Async(name string, fn formic.CheckFunc) formic.Validator {
	return formic.Validator{
		Name:  name,
		Meta:  formic.Meta{Async: true},
		Check: fn,
	}
}

// AsyncWithDebounce wraps fn as an asynchronous validator with an explicit
// debounce hint.
func AsyncWithDebounce(name string, d time.Duration, fn formic.CheckFunc) formic.Validator {
	v := Async(name, fn)
	v.Meta.Debounce = d
	return v
}
