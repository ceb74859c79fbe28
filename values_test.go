package formic_test

import (
	"testing"

	"github.com/goccy/go-json"

	formic "github.com/formic-dev/formic"
	"github.com/formic-dev/formic/fieldpath"
)

func TestValues_OverlaysLiveCellsOnBaselineShape(t *testing.T) {
	f := formic.New(formic.Config{
		Defaults: map[string]any{
			"user": map[string]any{
				"name": "ada",
				"tags": []any{"x", "y"},
			},
			"age": 30.0,
		},
	})
	f.SetValue("user.name", "grace")
	f.SetValue("user.tags.1", "z")

	got := f.Values()
	if v, _ := fieldpath.Get(any(got), "user.name"); v != "grace" {
		t.Fatalf("live leaf lost: %v", got)
	}
	if v, _ := fieldpath.Get(any(got), "user.tags.1"); v != "z" {
		t.Fatalf("array leaf lost: %v", got)
	}
	if v, _ := fieldpath.Get(any(got), "user.tags.0"); v != "x" {
		t.Fatalf("untouched sibling lost: %v", got)
	}
	if v, _ := fieldpath.Get(any(got), "age"); v != 30.0 {
		t.Fatalf("baseline scalar lost: %v", got)
	}
}

func TestValues_LiveShapeWinsOnArrayResize(t *testing.T) {
	f := formic.New(formic.Config{
		Defaults: map[string]any{"tags": []any{"x", "y"}},
	})
	f.SetValue("tags", []any{"only"})

	got := f.Values()
	v, _ := fieldpath.Get(any(got), "tags")
	arr, ok := v.([]any)
	if !ok || len(arr) != 1 || arr[0] != "only" {
		t.Fatalf("expected shrunk array to win, got %#v", v)
	}
}

func TestValues_GrowthBeyondBaseline(t *testing.T) {
	f := formic.New(formic.Config{
		Defaults: map[string]any{"tags": []any{"x"}},
	})
	f.SetValue("tags.2", "grown")

	got := f.Values()
	v, _ := fieldpath.Get(any(got), "tags")
	arr, ok := v.([]any)
	if !ok || len(arr) != 3 || arr[2] != "grown" {
		t.Fatalf("expected grown array, got %#v", v)
	}
}

func TestValues_ResultIsDetached(t *testing.T) {
	f := formic.New(formic.Config{
		Defaults: map[string]any{"user": map[string]any{"name": "ada"}},
	})
	got := f.Values()
	got["user"].(map[string]any)["name"] = "mutated"
	if v := f.Value("user.name"); v != "ada" {
		t.Fatalf("Values result should not alias store state, got %v", v)
	}
}

func TestToJSON(t *testing.T) {
	f := formic.New(formic.Config{
		Defaults: map[string]any{"name": "", "tags": []any{"x"}},
	})
	f.SetValue("name", "ada")
	raw, err := f.ToJSON()
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("round trip failed: %v", err)
	}
	if decoded["name"] != "ada" {
		t.Fatalf("unexpected json %s", raw)
	}
}

func TestToFormData_FlattensLeaves(t *testing.T) {
	f := formic.New(formic.Config{
		Defaults: map[string]any{
			"user":   map[string]any{"name": "ada", "admin": true},
			"scores": []any{1.5, 2.0},
			"avatar": []byte{0x1, 0x2},
		},
	})
	fd := f.ToFormData()

	if v, ok := fd.Get("user.name"); !ok || v != "ada" {
		t.Fatalf("missing user.name: %v", fd.Pairs())
	}
	if v, _ := fd.Get("user.admin"); v != "true" {
		t.Fatalf("bool should stringify, got %v", v)
	}
	if v, _ := fd.Get("scores.0"); v != "1.5" {
		t.Fatalf("number should stringify, got %v", v)
	}
	raw, ok := fd.Get("avatar")
	if !ok {
		t.Fatalf("missing avatar: %v", fd.Pairs())
	}
	if b, isBytes := raw.([]byte); !isBytes || len(b) != 2 {
		t.Fatalf("binary leaf should stay raw, got %T", raw)
	}
	// containers never appear directly
	if _, ok := fd.Get("user"); ok {
		t.Fatalf("containers must not be appended: %v", fd.Pairs())
	}
}
