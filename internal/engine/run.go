package engine

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// OnFieldChange is the store's change hook. When the effective trigger is
// change, the field validates (debounced when a hint applies); regardless of
// the field's own trigger, touched dependents of the path are re-validated.
func (e *Engine) OnFieldChange(path string) {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}
	rec := e.fields[path]
	var runNow bool
	if rec != nil && e.effectiveTrigger(rec) == TriggerChange {
		if rec.debounce > 0 {
			if rec.timer != nil {
				rec.timer.Stop()
			}
			d := rec.debounce
			rec.timer = e.newTimer(d, func() {
				e.ValidateField(context.Background(), path)
			})
		} else {
			runNow = true
		}
	}
	e.mu.Unlock()

	if runNow {
		e.ValidateField(context.Background(), path)
	}

	e.propagateFrom(path)
}

// OnFieldBlur is the store's blur hook: a no-op when the effective trigger
// is submit, otherwise it cancels any pending debounce and validates
// immediately so blur always gives prompt feedback.
func (e *Engine) OnFieldBlur(path string) {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}
	rec := e.fields[path]
	if rec == nil || e.effectiveTrigger(rec) == TriggerSubmit {
		e.mu.Unlock()
		return
	}
	if rec.timer != nil {
		rec.timer.Stop()
		rec.timer = nil
	}
	e.mu.Unlock()
	e.ValidateField(context.Background(), path)
}

// propagateFrom re-validates touched dependents of source, cascading through
// the graph. The revalidating set refuses re-entry so mutual dependencies
// (A<->B) terminate.
func (e *Engine) propagateFrom(source string) {
	e.mu.Lock()
	if _, busy := e.revalidating[source]; busy {
		e.mu.Unlock()
		return
	}
	e.revalidating[source] = struct{}{}
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		delete(e.revalidating, source)
		e.mu.Unlock()
	}()

	e.mu.Lock()
	dependents := make([]string, 0, len(e.deps[source]))
	for dep := range e.deps[source] {
		dependents = append(dependents, dep)
	}
	e.mu.Unlock()

	for _, dep := range dependents {
		if !e.host.Touched(dep) {
			continue
		}
		e.mu.Lock()
		_, busy := e.revalidating[dep]
		e.mu.Unlock()
		if busy {
			continue
		}
		e.ValidateField(context.Background(), dep)
		e.propagateFrom(dep)
	}
}

// ValidateField cancels the path's previous in-flight run, bumps its
// generation and runs every rule in declaration order, accumulating all
// failing messages. The result commits to the store only when the run was
// neither cancelled nor superseded; otherwise it is discarded and an empty
// slice returned, signaling that a newer run owns the outcome.
func (e *Engine) ValidateField(ctx context.Context, path string) []string {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return nil
	}
	rec := e.fields[path]
	if rec == nil {
		e.mu.Unlock()
		return nil
	}
	if rec.cancel != nil {
		rec.cancel()
	}
	if rec.timer != nil {
		rec.timer.Stop()
		rec.timer = nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	rec.cancel = cancel
	rec.gen++
	gen := rec.gen
	rules := rec.rules
	e.mu.Unlock()

	e.host.SetValidating(path, true)
	value := e.host.Value(path)

	var syncMsgs, asyncMsgs []string
	for _, r := range rules {
		if runCtx.Err() != nil {
			break
		}
		msg, err := r.Run(runCtx, value)
		if err != nil && msg == "" {
			msg = err.Error()
		}
		if msg == "" {
			continue
		}
		if r.Async {
			asyncMsgs = append(asyncMsgs, msg)
		} else {
			syncMsgs = append(syncMsgs, msg)
		}
	}

	e.mu.Lock()
	cur := e.fields[path]
	stale := runCtx.Err() != nil || cur == nil || cur.gen != gen || e.disposed
	if !stale {
		cur.cancel = nil
	}
	e.mu.Unlock()
	cancel()

	if stale {
		e.host.Logf("validation for %q discarded (superseded)", path)
		return nil
	}

	e.host.Batch(func() {
		e.host.CommitFieldErrors(path, syncMsgs, asyncMsgs)
		e.host.SetValidating(path, false)
	})
	return append(append([]string(nil), syncMsgs...), asyncMsgs...)
}

// Kind classifies a committed message's origin within a whole-form run.
type Kind int

const (
	KindSync Kind = iota
	KindAsync
	KindSchema
)

// Entry is one committed message with its origin class.
type Entry struct {
	Msg  string
	Kind Kind
}

// Result is the outcome of a whole-form run. An aborted run reports OK with
// no errors (vacuous success) so callers do not mistake cancellation for a
// real failure.
type Result struct {
	OK     bool
	Errors map[string][]Entry
}

// ValidateAll runs the schema pass and every registered path's rules under a
// single shared controller. Starting a new run aborts the previous one; only
// the run whose controller is still current at completion commits. Before
// committing, all existing sync/async/schema errors are cleared so stale
// messages cannot survive a full pass.
func (e *Engine) ValidateAll(ctx context.Context) Result {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return Result{OK: true}
	}
	if e.allCancel != nil {
		e.allCancel()
	}
	runCtx, cancel := context.WithCancel(ctx)
	e.allCancel = cancel
	e.allGen++
	gen := e.allGen

	paths := make([]string, 0, len(e.fields))
	type fieldRun struct {
		path  string
		rules []Rule
	}
	runs := make([]fieldRun, 0, len(e.fields))
	for p, rec := range e.fields {
		// supersede any in-flight single-field run for this path
		if rec.cancel != nil {
			rec.cancel()
			rec.cancel = nil
		}
		if rec.timer != nil {
			rec.timer.Stop()
			rec.timer = nil
		}
		rec.gen++
		paths = append(paths, p)
		runs = append(runs, fieldRun{path: p, rules: rec.rules})
	}
	e.mu.Unlock()

	for _, p := range paths {
		e.host.SetValidating(p, true)
	}

	schemaErrs, _ := e.host.RunSchema(runCtx)

	type fieldResult struct {
		syncMsgs, asyncMsgs []string
	}
	var resMu sync.Mutex
	results := make(map[string]fieldResult, len(runs))
	g := new(errgroup.Group)
	for _, fr := range runs {
		fr := fr
		g.Go(func() error {
			value := e.host.Value(fr.path)
			var syncMsgs, asyncMsgs []string
			for _, r := range fr.rules {
				if runCtx.Err() != nil {
					return nil
				}
				msg, err := r.Run(runCtx, value)
				if err != nil && msg == "" {
					msg = err.Error()
				}
				if msg == "" {
					continue
				}
				if r.Async {
					asyncMsgs = append(asyncMsgs, msg)
				} else {
					syncMsgs = append(syncMsgs, msg)
				}
			}
			resMu.Lock()
			results[fr.path] = fieldResult{syncMsgs: syncMsgs, asyncMsgs: asyncMsgs}
			resMu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	e.mu.Lock()
	stale := runCtx.Err() != nil || gen != e.allGen || e.disposed
	if !stale && e.allCancel != nil {
		e.allCancel = nil
	}
	e.mu.Unlock()
	cancel()

	if stale {
		e.host.Logf("whole-form validation discarded (superseded)")
		return Result{OK: true}
	}

	combined := map[string][]Entry{}
	e.host.Batch(func() {
		e.host.ClearValidationErrors()
		e.host.CommitSchemaErrors(schemaErrs)
		for _, p := range paths {
			fr := results[p]
			e.host.CommitFieldErrors(p, fr.syncMsgs, fr.asyncMsgs)
			for _, m := range fr.syncMsgs {
				combined[p] = append(combined[p], Entry{Msg: m, Kind: KindSync})
			}
			for _, m := range fr.asyncMsgs {
				combined[p] = append(combined[p], Entry{Msg: m, Kind: KindAsync})
			}
			e.host.SetValidating(p, false)
		}
		// schema entries trail field entries, matching the flat-list order
		for p, msgs := range schemaErrs {
			for _, m := range msgs {
				combined[p] = append(combined[p], Entry{Msg: m, Kind: KindSchema})
			}
		}
	})
	return Result{OK: len(combined) == 0, Errors: combined}
}
