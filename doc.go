package formic

// Package formic provides:
//
// - A path-addressed reactive form store (values, errors, touched/dirty state
//   over arbitrarily nested trees) built on the cell primitive
// - A validation engine with derived triggers (change/blur/submit), debounce,
//   cross-field dependency propagation and supersession-safe async runs
// - A stable error model via Issues (dotted path, source, message)
// - Submission with generation-guarded commit and FormData projection
//
// Design policy:
// - Keep only public APIs in the root package; put detailed implementations
//   under internal/.
// - Place the path algebra under fieldpath/, the reactive primitive under
//   cell/, built-in validators under rules/, and the CLI under cmd/formic.
// - Prefer black-box testing against public APIs.
//
// Typical usage:
//
//	form := formic.New(formic.Config{
//	    Defaults: map[string]any{"name": "", "email": ""},
//	    Rules: map[string][]formic.Validator{
//	        "name":  {rules.Required()},
//	        "email": {rules.Required(), rules.Pattern("@", "invalid email")},
//	    },
//	})
//	form.SetValue("name", "Ada")
//	form.Blur("name")
//	err := form.Submit(ctx)
