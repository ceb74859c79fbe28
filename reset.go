package formic

import (
	"github.com/formic-dev/formic/fieldpath"
)

// Reset restores the form to its current baseline: values, errors, touched,
// dirty and submit state all return to their initial shape in one batch.
func (f *Form) Reset() {
	f.mu.Lock()
	base := fieldpath.Clone(f.baseline)
	f.mu.Unlock()
	f.resetTo(base)
}

// ResetTo replaces the baseline with values and resets all state to it.
// Cells for paths absent from the new shape are pruned; cells covered by the
// new shape update to their new values.
func (f *Form) ResetTo(values map[string]any) {
	f.resetTo(fieldpath.Clone(any(values)))
}

func (f *Form) resetTo(newBaseline any) {
	// discard in-flight validation first so a slow run cannot commit onto
	// the cleared form
	f.eng.Supersede()
	f.hub.Batch(func() {
		f.mu.Lock()
		f.baseline = newBaseline

		// prune cells for paths the new shape does not contain; update the
		// survivors so existing watchers observe the new values
		for p, c := range f.cells {
			v, found := fieldpath.Get(f.baseline, p)
			if !found && p != "" {
				delete(f.cells, p)
				continue
			}
			if p == "" {
				c.Set(fieldpath.Clone(f.baseline))
				continue
			}
			c.Set(fieldpath.Clone(v))
		}

		// drop every error bucket
		for p, b := range f.errs {
			for src := range b.bySource {
				delete(b.bySource, src)
			}
			b.rebuild()
			f.ensureErrCellLocked(p).Set([]string(nil))
			delete(f.errs, p)
		}
		f.recomputeValidLocked()

		clear(f.touched)
		clear(f.dirty)
		f.dirtyCell.Set(false)
		f.submitCell.Set(SubmitState{Status: SubmitIdle})
		f.mu.Unlock()
	})
}

// ResetField restores one path to its baseline value and clears its errors,
// touched and dirty flags. Calling it twice in a row is idempotent.
func (f *Form) ResetField(path string) {
	path = normPath(path)
	f.eng.Supersede(path)
	f.hub.Batch(func() {
		f.mu.Lock()
		base, _ := fieldpath.Get(f.baseline, path)
		f.mu.Unlock()

		f.applySet(path, fieldpath.Clone(base), false)

		f.mu.Lock()
		if b := f.errs[path]; b != nil {
			for src := range b.bySource {
				delete(b.bySource, src)
			}
			b.rebuild()
			f.ensureErrCellLocked(path).Set([]string(nil))
			delete(f.errs, path)
			f.recomputeValidLocked()
		}
		delete(f.touched, path)
		delete(f.dirty, path)
		f.dirtyCell.Set(len(f.dirty) > 0)
		f.mu.Unlock()
	})
}

// SetBaseline replaces the dirty comparator without touching live values;
// the whole dirty set is recomputed against the new baseline.
func (f *Form) SetBaseline(values map[string]any) {
	f.hub.Batch(func() {
		f.mu.Lock()
		f.baseline = fieldpath.Clone(any(values))
		// recompute dirtiness for every path we have ever tracked
		paths := map[string]struct{}{}
		for p := range f.dirty {
			paths[p] = struct{}{}
		}
		for p := range f.cells {
			paths[p] = struct{}{}
		}
		clear(f.dirty)
		for p := range paths {
			if p == "" {
				continue
			}
			if c, ok := f.cells[p]; ok {
				base, _ := fieldpath.Get(f.baseline, p)
				if !fieldpath.DeepEqual(c.Get(), base) {
					f.dirty[p] = struct{}{}
				}
			}
		}
		f.dirtyCell.Set(len(f.dirty) > 0)
		f.mu.Unlock()
	})
}

// Dispose cancels the engine and any in-flight submission and clears the
// subscriber, watcher, ref and option registries. Cells are externally owned
// and stay readable after disposal.
func (f *Form) Dispose() {
	f.mu.Lock()
	if f.disposed {
		f.mu.Unlock()
		return
	}
	f.disposed = true
	if f.submitCancel != nil {
		f.submitCancel()
		f.submitCancel = nil
	}
	f.submitGen++
	unsubs := make([]func(), 0, len(f.watchUnsubs))
	for _, u := range f.watchUnsubs {
		unsubs = append(unsubs, u)
	}
	clear(f.watchUnsubs)
	clear(f.subscribers)
	clear(f.options)
	clear(f.refs)
	f.mu.Unlock()

	f.eng.Dispose()
	for _, unsub := range unsubs {
		unsub()
	}
}
