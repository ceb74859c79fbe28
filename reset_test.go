package formic_test

import (
	"context"
	"sync/atomic"
	"testing"

	formic "github.com/formic-dev/formic"
	"github.com/formic-dev/formic/rules"
)

func TestReset_RestoresBaselineStateInOneBatch(t *testing.T) {
	f := formic.New(formic.Config{
		Defaults: map[string]any{"name": "ada", "age": 30.0},
	})
	f.SetValue("name", "grace")
	f.SetTouched("name", true)
	f.SetErrors("name", []string{"manual"})

	var n int32
	f.Watch("name", func(any) { atomic.AddInt32(&n, 1) })

	f.Reset()
	if v := f.Value("name"); v != "ada" {
		t.Fatalf("expected baseline value back, got %v", v)
	}
	if f.Touched("name") || f.IsDirty() {
		t.Fatalf("expected touched and dirty cleared")
	}
	if errs := f.Errors("name"); len(errs) != 0 {
		t.Fatalf("expected errors cleared, got %v", errs)
	}
	if got := atomic.LoadInt32(&n); got != 1 {
		t.Fatalf("expected one coalesced notification, got %d", got)
	}
	if st := f.SubmitState(); st.Status != formic.SubmitIdle {
		t.Fatalf("expected idle submit state, got %+v", st)
	}
}

func TestResetTo_ReplacesBaselineAndPrunesCells(t *testing.T) {
	f := formic.New(formic.Config{
		Defaults: map[string]any{"name": "ada", "nickname": "al"},
	})
	f.SetValue("nickname", "lovelace") // materialize a cell the new shape drops

	f.ResetTo(map[string]any{"name": "grace"})
	if v := f.Value("name"); v != "grace" {
		t.Fatalf("expected new baseline value, got %v", v)
	}
	if v := f.Value("nickname"); v != nil {
		t.Fatalf("expected pruned path to read nil, got %v", v)
	}
	if f.IsDirty() {
		t.Fatalf("expected clean form against the new baseline")
	}
	f.SetValue("name", "ada")
	if !f.Dirty("name") {
		t.Fatalf("dirtiness should compare against the new baseline")
	}
}

func TestResetField_IsIdempotent(t *testing.T) {
	f := formic.New(formic.Config{
		Defaults: map[string]any{"name": "ada", "age": 30.0},
	})
	f.SetValue("name", "grace")
	f.SetValue("age", 31.0)
	f.SetErrors("name", []string{"manual"})

	f.ResetField("name")
	f.ResetField("name") // second call must change nothing

	if v := f.Value("name"); v != "ada" {
		t.Fatalf("expected baseline value, got %v", v)
	}
	if f.Dirty("name") || len(f.Errors("name")) != 0 {
		t.Fatalf("expected name state cleared")
	}
	// other fields keep their state
	if v := f.Value("age"); v != 31.0 || !f.Dirty("age") {
		t.Fatalf("reset of one field must not touch others, got %v", v)
	}
}

func TestSetBaseline_RecomputesDirtyWithoutTouchingValues(t *testing.T) {
	f := formic.New(formic.Config{
		Defaults: map[string]any{"name": "ada"},
	})
	f.SetValue("name", "grace")
	if !f.Dirty("name") {
		t.Fatalf("expected dirty before rebaseline")
	}

	f.SetBaseline(map[string]any{"name": "grace"})
	if v := f.Value("name"); v != "grace" {
		t.Fatalf("rebaseline must not change live values, got %v", v)
	}
	if f.Dirty("name") || f.IsDirty() {
		t.Fatalf("expected clean against the new baseline")
	}
}

// TestReset_DiscardsInFlightValidation starts a slow async run, resets the
// form while it is blocked, and expects the late result discarded: a reset
// form stays clean.
func TestReset_DiscardsInFlightValidation(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	check := func(ctx context.Context, _ any, _ formic.Fields) (string, error) {
		started <- struct{}{}
		select {
		case <-release:
		case <-ctx.Done():
		}
		return "taken", nil
	}
	f := formic.New(formic.Config{
		Defaults: map[string]any{"email": ""},
		Fields: map[string]formic.FieldOptions{
			"email": {
				Rules:   []formic.Validator{rules.Async("taken", check)},
				Trigger: formic.TriggerSubmit,
			},
		},
	})

	done := make(chan []string, 1)
	go func() { done <- f.ValidateField(context.Background(), "email") }()
	<-started

	f.Reset()
	close(release)

	if msgs := <-done; len(msgs) != 0 {
		t.Fatalf("run superseded by reset should return empty, got %v", msgs)
	}
	if errs := f.Errors("email"); len(errs) != 0 {
		t.Fatalf("reset form must stay clean, got %v", errs)
	}
	if f.Validating("email") {
		t.Fatalf("validating flag should clear on reset")
	}
}

func TestResetField_DiscardsInFlightValidation(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	check := func(ctx context.Context, _ any, _ formic.Fields) (string, error) {
		started <- struct{}{}
		select {
		case <-release:
		case <-ctx.Done():
		}
		return "taken", nil
	}
	f := formic.New(formic.Config{
		Defaults: map[string]any{"email": ""},
		Fields: map[string]formic.FieldOptions{
			"email": {
				Rules:   []formic.Validator{rules.Async("taken", check)},
				Trigger: formic.TriggerSubmit,
			},
		},
	})

	done := make(chan []string, 1)
	go func() { done <- f.ValidateField(context.Background(), "email") }()
	<-started

	f.ResetField("email")
	close(release)

	if msgs := <-done; len(msgs) != 0 {
		t.Fatalf("run superseded by field reset should return empty, got %v", msgs)
	}
	if errs := f.Errors("email"); len(errs) != 0 {
		t.Fatalf("reset field must stay clean, got %v", errs)
	}
}

func TestDispose_StopsMutationsKeepsReads(t *testing.T) {
	f := formic.New(formic.Config{
		Defaults: map[string]any{"name": "ada"},
		Rules: map[string][]formic.Validator{
			"name": {rules.Required()},
		},
	})
	f.SetValue("name", "grace")
	f.Dispose()

	f.SetValue("name", "ignored")
	if v := f.Value("name"); v != "grace" {
		t.Fatalf("writes after dispose must be ignored, got %v", v)
	}
	if msgs := f.ValidateField(context.Background(), "name"); msgs != nil {
		t.Fatalf("validation after dispose must be refused, got %v", msgs)
	}
	f.Dispose() // repeated dispose is a no-op
}
