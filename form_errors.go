package formic

import (
	"sort"

	"github.com/formic-dev/formic/cell"
)

// buckets is one path's error-source map. The flat list is always the
// concatenation of the five sources in fixed order; every bucket update
// rebuilds the flat list and the form-level validity flag in one step.
type buckets struct {
	bySource map[ErrorSource][]string
	flat     []string
}

func (b *buckets) rebuild() {
	b.flat = b.flat[:0]
	for _, src := range sourceOrder {
		b.flat = append(b.flat, b.bySource[src]...)
	}
}

func (b *buckets) empty() bool { return len(b.flat) == 0 }

// setBucketLocked replaces one source bucket for path and keeps the flat
// list, the path's error cell and the validity cell coherent. Caller holds
// f.mu and is inside a hub batch.
func (f *Form) setBucketLocked(path string, src ErrorSource, msgs []string) {
	b := f.errs[path]
	if b == nil {
		if len(msgs) == 0 {
			return
		}
		b = &buckets{bySource: map[ErrorSource][]string{}}
		f.errs[path] = b
	}
	if len(msgs) == 0 {
		delete(b.bySource, src)
	} else {
		b.bySource[src] = append([]string(nil), msgs...)
	}
	b.rebuild()
	f.ensureErrCellLocked(path).Set(append([]string(nil), b.flat...))
	if b.empty() {
		delete(f.errs, path)
	}
	f.recomputeValidLocked()
}

func (f *Form) ensureErrCellLocked(path string) *cell.Cell {
	c, ok := f.errCells[path]
	if !ok {
		c = f.hub.Cell([]string(nil))
		f.errCells[path] = c
	}
	return c
}

func (f *Form) recomputeValidLocked() {
	f.validCell.Set(len(f.errs) == 0)
}

// Errors returns the flat error list for path: sync, async, schema, server,
// manual buckets concatenated in that order.
func (f *Form) Errors(path string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := f.errs[normPath(path)]
	if b == nil {
		return []string{}
	}
	return append([]string(nil), b.flat...)
}

// AllErrors returns every path's flat error list.
func (f *Form) AllErrors() map[string][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string][]string, len(f.errs))
	for p, b := range f.errs {
		out[p] = append([]string(nil), b.flat...)
	}
	return out
}

// IsValid reports whether no path carries errors in any bucket.
func (f *Form) IsValid() bool {
	on, _ := f.validCell.Get().(bool)
	return on
}

// SetErrors replaces the manual bucket for path.
func (f *Form) SetErrors(path string, msgs []string) {
	f.SetErrorsWithSource(path, msgs, SourceManual)
}

// SetErrorsWithSource replaces exactly one bucket for path.
func (f *Form) SetErrorsWithSource(path string, msgs []string, src ErrorSource) {
	path = normPath(path)
	f.hub.Batch(func() {
		f.mu.Lock()
		f.setBucketLocked(path, src, msgs)
		f.mu.Unlock()
	})
}

// ClearErrorsBySource clears exactly one bucket for path.
func (f *Form) ClearErrorsBySource(path string, src ErrorSource) {
	f.SetErrorsWithSource(path, nil, src)
}

// ClearErrors clears every bucket on the given paths, or on every tracked
// path when none are given.
func (f *Form) ClearErrors(paths ...string) {
	f.hub.Batch(func() {
		f.mu.Lock()
		targets := paths
		if len(targets) == 0 {
			targets = make([]string, 0, len(f.errs))
			for p := range f.errs {
				targets = append(targets, p)
			}
			sort.Strings(targets)
		}
		for _, p := range targets {
			p = normPath(p)
			if b := f.errs[p]; b != nil {
				for src := range b.bySource {
					delete(b.bySource, src)
				}
				b.rebuild()
				f.ensureErrCellLocked(p).Set([]string(nil))
				delete(f.errs, p)
			}
		}
		f.recomputeValidLocked()
		f.mu.Unlock()
	})
}

// WatchErrors observes the flat error list at path.
func (f *Form) WatchErrors(path string, fn func(msgs []string)) func() {
	path = normPath(path)
	f.mu.Lock()
	c := f.ensureErrCellLocked(path)
	f.mu.Unlock()
	unsub := c.Subscribe(func(v any) {
		msgs, _ := v.([]string)
		f.safeNotify(func() { fn(msgs) })
	})
	return f.trackUnsub(unsub)
}
