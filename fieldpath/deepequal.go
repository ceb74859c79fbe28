package fieldpath

import (
	"bytes"
	"math"
	"reflect"

	"github.com/goccy/go-json"
)

// Identical is the change gate used by the store: strict identity, except
// that two NaNs count as identical (a NaN rewrite is not a change) and +0 is
// distinct from -0. Containers are identical only when they are the same
// underlying object.
func Identical(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	af, aok := floatOf(a)
	bf, bok := floatOf(b)
	if aok && bok && reflect.TypeOf(a) == reflect.TypeOf(b) {
		if math.IsNaN(af) && math.IsNaN(bf) {
			return true
		}
		if af == 0 && bf == 0 {
			return math.Signbit(af) == math.Signbit(bf)
		}
		return af == bf
	}
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Type() != rb.Type() {
		return false
	}
	switch ra.Kind() {
	case reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Pointer, reflect.UnsafePointer:
		if ra.Kind() == reflect.Slice && (ra.Len() == 0 || rb.Len() == 0) {
			return ra.Len() == 0 && rb.Len() == 0
		}
		return ra.Pointer() == rb.Pointer()
	default:
		if !ra.Comparable() {
			return false
		}
		return a == b
	}
}

// DeepEqual is the dirty comparator: structural equality over maps, slices
// and scalars. NaN equals NaN here (a field holding NaN is not forever
// dirty), numeric leaves compare by value across int/float/json.Number
// kinds, and nil equals a missing entry only at the caller's discretion.
func DeepEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if am, ok := a.(map[string]any); ok {
		bm, ok := b.(map[string]any)
		if !ok || len(am) != len(bm) {
			return false
		}
		for k, av := range am {
			bv, ok := bm[k]
			if !ok || !DeepEqual(av, bv) {
				return false
			}
		}
		return true
	}
	if as, ok := a.([]any); ok {
		bs, ok := b.([]any)
		if !ok || len(as) != len(bs) {
			return false
		}
		for i := range as {
			if !DeepEqual(as[i], bs[i]) {
				return false
			}
		}
		return true
	}
	af, aok := floatOf(a)
	bf, bok := floatOf(b)
	if aok || bok {
		if !aok || !bok {
			return false
		}
		if math.IsNaN(af) && math.IsNaN(bf) {
			return true
		}
		return af == bf
	}
	ra := reflect.ValueOf(a)
	if ra.Comparable() && reflect.ValueOf(b).Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

func floatOf(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// Clone deep-copies a value tree. Maps and slices are copied structurally;
// scalars pass through; opaque leaves fall back to a JSON round-trip and are
// kept as-is when they do not marshal.
func Clone(v any) any {
	switch node := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(node))
		for k, child := range node {
			out[k] = Clone(child)
		}
		return out
	case []any:
		out := make([]any, len(node))
		for i, child := range node {
			out[i] = Clone(child)
		}
		return out
	case nil, string, bool, int, int64, float64, json.Number:
		return node
	case []byte:
		out := make([]byte, len(node))
		copy(out, node)
		return out
	default:
		if raw, err := json.Marshal(node); err == nil {
			var decoded any
			dec := json.NewDecoder(bytes.NewReader(raw))
			dec.UseNumber()
			if dec.Decode(&decoded) == nil {
				return decoded
			}
		}
		return node
	}
}
