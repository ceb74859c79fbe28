package formic

import "context"

// Schema is the uniform capability a schema-level validator exposes: Parse
// returns the (possibly transformed) values on success, or an error. When
// the error is (or wraps) Issues, each issue is attributed to its dotted
// path; any other error becomes a form-level issue under the empty path.
//
// Third-party schema libraries plug in through a thin adapter that maps
// their issue lists into Issues.
type Schema interface {
	Parse(ctx context.Context, values any) (any, error)
}

// SchemaFunc adapts a function to Schema.
type SchemaFunc func(ctx context.Context, values any) (any, error)

// Parse implements Schema.
func (f SchemaFunc) Parse(ctx context.Context, values any) (any, error) {
	return f(ctx, values)
}

// groupSchemaError buckets a schema failure by path. A nil error yields nil.
func groupSchemaError(err error) map[string][]string {
	if err == nil {
		return nil
	}
	if iss, ok := AsIssues(err); ok {
		out := map[string][]string{}
		for _, it := range iss {
			out[it.Path] = append(out[it.Path], it.Message)
		}
		return out
	}
	return map[string][]string{"": {err.Error()}}
}
