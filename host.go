package formic

import (
	"context"

	"github.com/formic-dev/formic/internal/engine"
)

// engineHost adapts the form store to the engine's Host interface. Every
// engine-side mutation lands here so cells, flat lists and the validity flag
// stay coherent.
type engineHost struct{ f *Form }

func hostFor(f *Form) engine.Host { return engineHost{f} }

func (h engineHost) Value(path string) any { return h.f.Value(path) }

func (h engineHost) Touched(path string) bool { return h.f.Touched(path) }

func (h engineHost) SetValidating(path string, on bool) {
	f := h.f
	f.mu.Lock()
	c, ok := f.validating[path]
	if !ok {
		c = f.hub.Cell(false)
		f.validating[path] = c
	}
	f.mu.Unlock()
	c.Set(on)
}

func (h engineHost) CommitFieldErrors(path string, syncMsgs, asyncMsgs []string) {
	f := h.f
	f.hub.Batch(func() {
		f.mu.Lock()
		f.setBucketLocked(path, SourceSync, syncMsgs)
		f.setBucketLocked(path, SourceAsync, asyncMsgs)
		f.mu.Unlock()
	})
}

func (h engineHost) CommitSchemaErrors(errs map[string][]string) {
	f := h.f
	f.hub.Batch(func() {
		f.mu.Lock()
		// wholesale replacement: clear schema buckets absent from errs
		for p, b := range f.errs {
			if _, ok := errs[p]; ok {
				continue
			}
			if _, has := b.bySource[SourceSchema]; has {
				f.setBucketLocked(p, SourceSchema, nil)
			}
		}
		for p, msgs := range errs {
			f.setBucketLocked(p, SourceSchema, msgs)
		}
		f.mu.Unlock()
	})
}

func (h engineHost) ClearValidationErrors() {
	f := h.f
	f.hub.Batch(func() {
		f.mu.Lock()
		paths := make([]string, 0, len(f.errs))
		for p := range f.errs {
			paths = append(paths, p)
		}
		for _, p := range paths {
			f.setBucketLocked(p, SourceSync, nil)
			f.setBucketLocked(p, SourceAsync, nil)
			f.setBucketLocked(p, SourceSchema, nil)
		}
		f.mu.Unlock()
	})
}

func (h engineHost) RunSchema(ctx context.Context) (map[string][]string, bool) {
	f := h.f
	f.mu.Lock()
	schema := f.cfg.Schema
	f.mu.Unlock()
	if schema == nil {
		return nil, false
	}
	_, err := schema.Parse(ctx, f.Values())
	return groupSchemaError(err), true
}

func (h engineHost) Batch(fn func()) { h.f.hub.Batch(fn) }

func (h engineHost) Logf(format string, args ...any) { h.f.logger.Logf(format, args...) }
