package formic

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// SubmitStatus is the submission lifecycle state.
type SubmitStatus int

const (
	SubmitIdle SubmitStatus = iota
	Submitting
	SubmitSucceeded
	SubmitFailed
)

// SubmitState is the observable submission snapshot held by the submit cell.
type SubmitState struct {
	Status      SubmitStatus
	SubmitCount int
	LastRun     uuid.UUID
	Err         error
}

// SubmitHandler receives the validated values, their FormData projection and
// a context cancelled when a newer submission supersedes this one.
type SubmitHandler func(ctx context.Context, values map[string]any, fd *FormData) error

// SubmitState returns the current submission snapshot.
func (f *Form) SubmitState() SubmitState {
	st, _ := f.submitCell.Get().(SubmitState)
	return st
}

// WatchSubmit observes submission state changes.
func (f *Form) WatchSubmit(fn func(SubmitState)) func() {
	unsub := f.submitCell.Subscribe(func(v any) {
		st, _ := v.(SubmitState)
		f.safeNotify(func() { fn(st) })
	})
	return f.trackUnsub(unsub)
}

// Submit runs the configured handler. See SubmitWith.
func (f *Form) Submit(ctx context.Context) error {
	f.mu.Lock()
	handler := f.cfg.OnSubmit
	f.mu.Unlock()
	if handler == nil {
		return ErrNoSubmitHandler
	}
	return f.SubmitWith(ctx, handler)
}

// SubmitWith cancels any in-flight submission, bumps the submission
// generation, marks every registered field touched, and runs full
// validation. On failure the per-path errors stay written and the handler is
// never invoked. The handler's outcome commits only while this submission's
// generation is still the latest; a superseded run returns ErrSuperseded
// without touching state.
func (f *Form) SubmitWith(ctx context.Context, handler SubmitHandler) (err error) {
	f.mu.Lock()
	if f.disposed {
		f.mu.Unlock()
		return ErrSuperseded
	}
	if f.submitCancel != nil {
		f.submitCancel()
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	f.submitCancel = cancel
	f.submitGen++
	gen := f.submitGen
	runID := uuid.New()
	count := f.submitCount
	focusOnError := f.cfg.FocusOnError
	resetOnSubmit := f.cfg.ResetOnSubmit
	f.mu.Unlock()

	f.submitCell.Set(SubmitState{Status: Submitting, SubmitCount: count, LastRun: runID})

	// every registered field counts as interacted with from here on
	f.hub.Batch(func() {
		for _, p := range f.eng.Paths() {
			f.SetTouched(p, true)
		}
	})

	verr := f.ValidateAll(runCtx)
	if !f.isCurrentSubmission(gen) {
		return ErrSuperseded
	}
	if verr != nil {
		f.submitCell.Set(SubmitState{Status: SubmitFailed, SubmitCount: count, LastRun: runID, Err: verr})
		if focusOnError {
			f.focusFirstError()
		}
		return verr
	}

	values := f.Values()
	fd := f.ToFormData()
	herr := runHandler(runCtx, handler, values, fd)
	if !f.isCurrentSubmission(gen) {
		return ErrSuperseded
	}

	f.mu.Lock()
	f.submitCount++
	count = f.submitCount
	f.submitCancel = nil
	f.mu.Unlock()

	if herr != nil {
		f.SetErrorsWithSource("", []string{herr.Error()}, SourceServer)
		f.submitCell.Set(SubmitState{Status: SubmitFailed, SubmitCount: count, LastRun: runID, Err: herr})
		return herr
	}
	f.submitCell.Set(SubmitState{Status: SubmitSucceeded, SubmitCount: count, LastRun: runID})
	if resetOnSubmit {
		f.Reset()
	}
	return nil
}

// runHandler converts a handler panic into an error so one bad handler
// cannot crash the store.
func runHandler(ctx context.Context, handler SubmitHandler, values map[string]any, fd *FormData) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("formic: submit handler panic: %v", r)
		}
	}()
	return handler(ctx, values, fd)
}

func (f *Form) isCurrentSubmission(gen uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return gen == f.submitGen && !f.disposed
}

// CancelSubmit aborts the in-flight submission, if any.
func (f *Form) CancelSubmit() {
	f.mu.Lock()
	if f.submitCancel != nil {
		f.submitCancel()
		f.submitCancel = nil
	}
	f.submitGen++ // anything still running is now superseded
	f.mu.Unlock()
}

func (f *Form) focusFirstError() {
	f.mu.Lock()
	errored := make([]string, 0, len(f.errs))
	for p := range f.errs {
		if _, registered := f.options[p]; registered {
			errored = append(errored, p)
		}
	}
	sort.Strings(errored)
	var focus func()
	if len(errored) > 0 {
		focus = f.options[errored[0]].Focus
	}
	f.mu.Unlock()
	if focus != nil {
		f.safeNotify(focus)
	}
}
