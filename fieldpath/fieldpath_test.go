package fieldpath_test

import (
	"math"
	"testing"

	"github.com/formic-dev/formic/fieldpath"
)

func TestParse_DottedAndBracketed(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want string
	}{
		{"user.address.0.city", "user.address.0.city"},
		{"items[2].price", "items.2.price"},
		{"a['x.y'].b", "a.x.y.b"}, // quoted dots split on render; round-trips via segments
		{"", ""},
	} {
		segs := fieldpath.Parse(tc.in)
		if got := fieldpath.String(segs); got != tc.want {
			t.Errorf("Parse(%q) rendered %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParse_IndexSegments(t *testing.T) {
	segs := fieldpath.Parse("items.2.price")
	if len(segs) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segs))
	}
	if !segs[1].IsIdx || segs[1].Index != 2 {
		t.Errorf("segment 1 should be index 2, got %+v", segs[1])
	}
	if segs[0].IsIdx || segs[0].Key != "items" {
		t.Errorf("segment 0 should be key items, got %+v", segs[0])
	}
}

func TestGet_MissingIntermediate(t *testing.T) {
	tree := map[string]any{"user": map[string]any{"name": "ada"}}
	if v, ok := fieldpath.Get(tree, "user.address.city"); ok || v != nil {
		t.Errorf("expected miss, got %v ok=%v", v, ok)
	}
	if v, ok := fieldpath.Get(tree, "user.name"); !ok || v != "ada" {
		t.Errorf("expected ada, got %v ok=%v", v, ok)
	}
}

func TestGet_EmptyPathIsRoot(t *testing.T) {
	tree := map[string]any{"a": 1}
	v, ok := fieldpath.Get(tree, "")
	if !ok {
		t.Fatalf("root get failed")
	}
	if !fieldpath.DeepEqual(v, tree) {
		t.Errorf("root get returned %v", v)
	}
}

func TestSet_DoesNotMutate(t *testing.T) {
	tree := map[string]any{"user": map[string]any{"name": "ada"}}
	out := fieldpath.Set(tree, "user.name", "grace")
	if v, _ := fieldpath.Get(tree, "user.name"); v != "ada" {
		t.Errorf("original mutated: %v", v)
	}
	if v, _ := fieldpath.Get(out, "user.name"); v != "grace" {
		t.Errorf("new tree missing write: %v", v)
	}
}

func TestSet_CreatesIntermediates(t *testing.T) {
	out := fieldpath.Set(nil, "items.2.price", 9.5)
	arr, ok := fieldpath.Get(out, "items")
	if !ok {
		t.Fatalf("items missing")
	}
	slice, ok := arr.([]any)
	if !ok || len(slice) != 3 {
		t.Fatalf("expected 3-slot array, got %#v", arr)
	}
	if v, _ := fieldpath.Get(out, "items.2.price"); v != 9.5 {
		t.Errorf("price = %v", v)
	}
}

func TestFlatten_EmitsContainersAndLeaves(t *testing.T) {
	tree := map[string]any{
		"user": map[string]any{
			"tags": []any{"x"},
		},
	}
	flat := fieldpath.Flatten(any(tree))
	for _, want := range []string{"user", "user.tags", "user.tags.0"} {
		if _, ok := flat[want]; !ok {
			t.Errorf("flatten missing %q", want)
		}
	}
}

func TestReconstructFlatten_RoundTrip(t *testing.T) {
	tree := map[string]any{
		"name": "ada",
		"user": map[string]any{
			"address": []any{
				map[string]any{"city": "london", "zip": "n1"},
				map[string]any{"city": "york"},
			},
			"age": 36.0,
		},
		"flags": []any{true, false},
	}
	got := fieldpath.Reconstruct(fieldpath.Flatten(any(tree)))
	if !fieldpath.DeepEqual(got, any(tree)) {
		t.Errorf("round trip mismatch:\n got %#v\nwant %#v", got, tree)
	}
}

func TestIdentical_NaNAndSignedZero(t *testing.T) {
	if !fieldpath.Identical(math.NaN(), math.NaN()) {
		t.Errorf("NaN should be identical to NaN")
	}
	if fieldpath.Identical(0.0, math.Copysign(0, -1)) {
		t.Errorf("+0 should be distinct from -0")
	}
	if !fieldpath.Identical(1.5, 1.5) {
		t.Errorf("equal floats should be identical")
	}
	if fieldpath.Identical("a", "b") {
		t.Errorf("different strings should not be identical")
	}
	m := map[string]any{"a": 1}
	if !fieldpath.Identical(m, m) {
		t.Errorf("same map should be identical")
	}
	if fieldpath.Identical(m, map[string]any{"a": 1}) {
		t.Errorf("distinct maps should not be identical even when equal")
	}
}

func TestDeepEqual_NumericKindsAndNaN(t *testing.T) {
	if !fieldpath.DeepEqual(1, 1.0) {
		t.Errorf("int 1 should deep-equal float64 1")
	}
	if !fieldpath.DeepEqual(math.NaN(), math.NaN()) {
		t.Errorf("NaN deep-equals NaN for dirty tracking")
	}
	if fieldpath.DeepEqual(map[string]any{"a": 1}, map[string]any{"a": 2}) {
		t.Errorf("different values should not be equal")
	}
	if !fieldpath.DeepEqual(
		map[string]any{"a": []any{1, 2}},
		map[string]any{"a": []any{1.0, 2.0}},
	) {
		t.Errorf("nested numeric kinds should compare by value")
	}
}

func TestClone_Independence(t *testing.T) {
	tree := map[string]any{"user": map[string]any{"tags": []any{"x"}}}
	cp := fieldpath.Clone(any(tree))
	tree["user"].(map[string]any)["tags"].([]any)[0] = "changed"
	if v, _ := fieldpath.Get(cp, "user.tags.0"); v != "x" {
		t.Errorf("clone shares storage with original: %v", v)
	}
}

func TestDelete_TruncatesTailSlot(t *testing.T) {
	tree := map[string]any{"tags": []any{"a", "b"}}
	out := fieldpath.Delete(any(tree), "tags.1")
	got, _ := fieldpath.Get(out, "tags")
	if arr := got.([]any); len(arr) != 1 || arr[0] != "a" {
		t.Errorf("expected [a], got %#v", got)
	}
}
