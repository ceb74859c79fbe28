package formic_test

import (
	"math"
	"sync/atomic"
	"testing"

	formic "github.com/formic-dev/formic"
)

func newProfileForm() *formic.Form {
	return formic.New(formic.Config{
		Defaults: map[string]any{
			"user": map[string]any{
				"name": "ada",
				"tags": []any{"x", "y"},
			},
			"age": 30.0,
		},
	})
}

func TestValue_ReadsBaseline(t *testing.T) {
	f := newProfileForm()
	if v := f.Value("user.name"); v != "ada" {
		t.Fatalf("expected ada, got %v", v)
	}
	if v := f.Value("user.tags.1"); v != "y" {
		t.Fatalf("expected y, got %v", v)
	}
	if v := f.Value("user.missing"); v != nil {
		t.Fatalf("expected nil for unknown path, got %v", v)
	}
}

func TestSetValue_WatchFiresOncePerChange(t *testing.T) {
	f := newProfileForm()
	var n int32
	unsub := f.Watch("user.name", func(any) { atomic.AddInt32(&n, 1) })
	defer unsub()

	f.SetValue("user.name", "grace")
	f.SetValue("user.name", "lin")
	if got := atomic.LoadInt32(&n); got != 2 {
		t.Fatalf("expected 2 notifications, got %d", got)
	}
}

func TestSetValue_IdenticalValueIsNoOp(t *testing.T) {
	f := newProfileForm()
	var n int32
	f.Watch("user.name", func(any) { atomic.AddInt32(&n, 1) })

	f.SetValue("user.name", "ada") // identical to current
	if got := atomic.LoadInt32(&n); got != 0 {
		t.Fatalf("expected no notification for identical write, got %d", got)
	}
}

func TestSetValue_NaNRewriteIsNoOp(t *testing.T) {
	f := formic.New(formic.Config{
		Defaults: map[string]any{"score": 1.0},
	})
	var n int32
	f.Watch("score", func(any) { atomic.AddInt32(&n, 1) })

	f.SetValue("score", math.NaN())
	f.SetValue("score", math.NaN()) // NaN -> NaN is not a change
	if got := atomic.LoadInt32(&n); got != 1 {
		t.Fatalf("expected exactly one notification, got %d", got)
	}
}

func TestSetValue_SignedZeroIsAChange(t *testing.T) {
	f := formic.New(formic.Config{
		Defaults: map[string]any{"score": 0.0},
	})
	var n int32
	f.Watch("score", func(any) { atomic.AddInt32(&n, 1) })

	f.SetValue("score", math.Copysign(0, -1))
	if got := atomic.LoadInt32(&n); got != 1 {
		t.Fatalf("expected -0 write over +0 to notify, got %d notifications", got)
	}
}

func TestSetValue_AncestorWatcherSeesReconstructedTree(t *testing.T) {
	f := newProfileForm()
	var last any
	f.Watch("user", func(v any) { last = v })

	f.SetValue("user.name", "grace")
	m, ok := last.(map[string]any)
	if !ok {
		t.Fatalf("expected reconstructed object at user, got %T", last)
	}
	if m["name"] != "grace" {
		t.Fatalf("ancestor value missing the write: %v", m)
	}
}

func TestSetValue_DescendantWatcherSeesContainerWrite(t *testing.T) {
	f := newProfileForm()
	var last any
	f.Watch("user.name", func(v any) { last = v })

	f.SetValue("user", map[string]any{"name": "lin", "tags": []any{}})
	if last != "lin" {
		t.Fatalf("descendant cell not reconciled, got %v", last)
	}
}

func TestSubscribe_ReceivesEveryChange(t *testing.T) {
	f := newProfileForm()
	var paths []string
	unsub := f.Subscribe(func(path string, _ any) { paths = append(paths, path) })

	f.SetValue("user.name", "grace")
	f.SetValue("age", 31.0)
	unsub()
	f.SetValue("age", 32.0)

	if len(paths) != 2 || paths[0] != "user.name" || paths[1] != "age" {
		t.Fatalf("expected [user.name age], got %v", paths)
	}
}

func TestDirty_TracksDivergenceFromBaseline(t *testing.T) {
	f := newProfileForm()
	if f.IsDirty() {
		t.Fatalf("fresh form should not be dirty")
	}
	f.SetValue("user.name", "grace")
	if !f.Dirty("user.name") || !f.IsDirty() {
		t.Fatalf("expected user.name dirty after change")
	}
	f.SetValue("user.name", "ada") // back to baseline
	if f.Dirty("user.name") || f.IsDirty() {
		t.Fatalf("expected clean after writing baseline value back")
	}
}

func TestTouched_IndependentOfValue(t *testing.T) {
	f := newProfileForm()
	if f.Touched("user.name") {
		t.Fatalf("fresh field should not be touched")
	}
	f.SetTouched("user.name", true)
	if !f.Touched("user.name") {
		t.Fatalf("expected touched after SetTouched")
	}
	f.SetTouched("user.name", false)
	if f.Touched("user.name") {
		t.Fatalf("expected untouched after unmark")
	}
}

func TestWatch_ObserverPanicIsContained(t *testing.T) {
	var logged int32
	f := formic.New(formic.Config{
		Defaults: map[string]any{"a": ""},
	}, formic.WithLogger(formic.LoggerFunc(func(string, ...any) {
		atomic.AddInt32(&logged, 1)
	})))

	f.Watch("a", func(any) { panic("observer boom") })
	var after int32
	f.Watch("a", func(any) { atomic.AddInt32(&after, 1) })

	f.SetValue("a", "x") // must not panic
	if atomic.LoadInt32(&logged) == 0 {
		t.Fatalf("expected the panic to be logged")
	}
	if atomic.LoadInt32(&after) != 1 {
		t.Fatalf("expected later observers to still run, got %d", after)
	}
}

func TestNormalizedPaths_BracketFormAliasesDotted(t *testing.T) {
	f := formic.New(formic.Config{
		Defaults: map[string]any{"items": []any{map[string]any{"price": 1.0}}},
	})
	f.SetValue("items[0].price", 2.5)
	if v := f.Value("items.0.price"); v != 2.5 {
		t.Fatalf("bracket and dotted forms should address the same cell, got %v", v)
	}
}

func TestLens_ChainedAccess(t *testing.T) {
	f := newProfileForm()
	tag := f.Lens().Field("user").Field("tags").Index(0)
	if tag.Path() != "user.tags.0" {
		t.Fatalf("unexpected lens path %q", tag.Path())
	}
	if v := tag.Get(); v != "x" {
		t.Fatalf("expected x, got %v", v)
	}
	tag.Set("z")
	if v := f.Value("user.tags.0"); v != "z" {
		t.Fatalf("lens write did not reach the store, got %v", v)
	}
}
