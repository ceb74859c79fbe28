// Package fieldpath implements the path algebra used by the form store:
// parsing dotted/bracketed path strings into segments, immutable reads and
// writes over nested any-trees, and flatten/reconstruct round-trips.
//
// Paths address locations in trees built from map[string]any, []any and
// scalar leaves. Numeric segments address array indices, everything else
// addresses object members. The empty path denotes the root value.
package fieldpath

import (
	"sort"
	"strconv"
	"strings"
)

// Segment is one step of a parsed path: either an object member name or an
// array index.
type Segment struct {
	Key   string
	Index int
	IsIdx bool
}

// Parse splits a path string into segments. Both "a.0.b" and "a[0].b" forms
// are accepted; bracket segments may be quoted ("a['x.y']") to embed dots.
func Parse(path string) []Segment {
	if path == "" {
		return nil
	}
	var segs []Segment
	var cur strings.Builder
	flush := func() {
		if cur.Len() == 0 {
			return
		}
		segs = append(segs, makeSegment(cur.String()))
		cur.Reset()
	}
	for i := 0; i < len(path); i++ {
		switch c := path[i]; c {
		case '.':
			flush()
		case '[':
			flush()
			j := strings.IndexByte(path[i:], ']')
			if j < 0 {
				// unterminated bracket: treat the rest as a literal key
				cur.WriteString(path[i:])
				i = len(path)
				break
			}
			inner := path[i+1 : i+j]
			inner = strings.Trim(inner, `"'`)
			segs = append(segs, makeSegment(inner))
			i += j
		default:
			cur.WriteByte(c)
		}
	}
	flush()
	return segs
}

func makeSegment(raw string) Segment {
	if n, err := strconv.Atoi(raw); err == nil && n >= 0 && isDigits(raw) {
		return Segment{Index: n, IsIdx: true}
	}
	return Segment{Key: raw}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// String renders segments back into canonical dotted form.
func String(segs []Segment) string {
	parts := make([]string, len(segs))
	for i, s := range segs {
		if s.IsIdx {
			parts[i] = strconv.Itoa(s.Index)
		} else {
			parts[i] = s.Key
		}
	}
	return strings.Join(parts, ".")
}

// Join appends a child segment to a parent path.
func Join(parent, child string) string {
	if parent == "" {
		return child
	}
	if child == "" {
		return parent
	}
	return parent + "." + child
}

// ParentOf returns the parent path of p and the final segment, with ok=false
// when p is the root.
func ParentOf(p string) (parent string, last Segment, ok bool) {
	segs := Parse(p)
	if len(segs) == 0 {
		return "", Segment{}, false
	}
	return String(segs[:len(segs)-1]), segs[len(segs)-1], true
}

// IsDescendant reports whether path is strictly below ancestor.
func IsDescendant(ancestor, path string) bool {
	if ancestor == "" {
		return path != ""
	}
	return strings.HasPrefix(path, ancestor+".") || strings.HasPrefix(path, ancestor+"[")
}

// Get reads the value at path. A missing intermediate at any segment yields
// (nil, false) rather than an error.
func Get(tree any, path string) (any, bool) {
	cur := tree
	for _, seg := range Parse(path) {
		switch node := cur.(type) {
		case map[string]any:
			if seg.IsIdx {
				v, ok := node[strconv.Itoa(seg.Index)]
				if !ok {
					return nil, false
				}
				cur = v
				continue
			}
			v, ok := node[seg.Key]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			if !seg.IsIdx || seg.Index >= len(node) {
				return nil, false
			}
			cur = node[seg.Index]
		default:
			return nil, false
		}
	}
	return cur, true
}

// Set writes value at path without mutating tree, returning the new tree.
// Missing intermediates are created: objects for member segments, arrays for
// index segments. Setting the empty path replaces the root.
func Set(tree any, path string, value any) any {
	segs := Parse(path)
	if len(segs) == 0 {
		return value
	}
	return setSegs(tree, segs, value)
}

func setSegs(node any, segs []Segment, value any) any {
	seg := segs[0]
	if seg.IsIdx {
		var src []any
		if arr, ok := node.([]any); ok {
			src = arr
		}
		n := len(src)
		if seg.Index+1 > n {
			n = seg.Index + 1
		}
		out := make([]any, n)
		copy(out, src)
		if len(segs) == 1 {
			out[seg.Index] = value
		} else {
			out[seg.Index] = setSegs(out[seg.Index], segs[1:], value)
		}
		return out
	}
	out := make(map[string]any)
	if m, ok := node.(map[string]any); ok {
		for k, v := range m {
			out[k] = v
		}
	}
	if len(segs) == 1 {
		out[seg.Key] = value
	} else {
		out[seg.Key] = setSegs(out[seg.Key], segs[1:], value)
	}
	return out
}

// Delete removes the value at path, returning the new tree. Deleting from an
// array slot truncates when the slot is the final element, otherwise leaves a
// nil hole so sibling indices stay stable.
func Delete(tree any, path string) any {
	segs := Parse(path)
	if len(segs) == 0 {
		return nil
	}
	return deleteSegs(tree, segs)
}

func deleteSegs(node any, segs []Segment) any {
	seg := segs[0]
	switch n := node.(type) {
	case map[string]any:
		if seg.IsIdx {
			return node
		}
		out := make(map[string]any, len(n))
		for k, v := range n {
			out[k] = v
		}
		if len(segs) == 1 {
			delete(out, seg.Key)
		} else if child, ok := out[seg.Key]; ok {
			out[seg.Key] = deleteSegs(child, segs[1:])
		}
		return out
	case []any:
		if !seg.IsIdx || seg.Index >= len(n) {
			return node
		}
		out := make([]any, len(n))
		copy(out, n)
		if len(segs) == 1 {
			if seg.Index == len(out)-1 {
				return out[:seg.Index]
			}
			out[seg.Index] = nil
			return out
		}
		out[seg.Index] = deleteSegs(out[seg.Index], segs[1:])
		return out
	default:
		return node
	}
}

// Flatten walks tree and emits every path. Containers contribute their own
// entry as well as one entry per descendant, so both "user" and "user.name"
// appear for {"user":{"name":...}}. Keys are returned in sorted order for
// deterministic iteration.
func Flatten(tree any) map[string]any {
	out := map[string]any{}
	flattenInto(out, "", tree)
	return out
}

func flattenInto(out map[string]any, prefix string, v any) {
	if prefix != "" {
		out[prefix] = v
	}
	switch node := v.(type) {
	case map[string]any:
		for k, child := range node {
			flattenInto(out, Join(prefix, k), child)
		}
	case []any:
		for i, child := range node {
			flattenInto(out, Join(prefix, strconv.Itoa(i)), child)
		}
	}
}

// Leaves returns the flattened entries that are not containers, in sorted
// path order.
func Leaves(tree any) []string {
	flat := Flatten(tree)
	keys := make([]string, 0, len(flat))
	for k, v := range flat {
		if IsContainer(v) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Reconstruct rebuilds a tree from a flat path→value map. Container entries
// are applied first so leaf entries written later win; shape comes from the
// segment kinds (index segments make arrays).
func Reconstruct(flat map[string]any) any {
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	// shorter paths first so containers do not clobber their leaves
	sort.Slice(keys, func(i, j int) bool {
		li, lj := len(Parse(keys[i])), len(Parse(keys[j]))
		if li != lj {
			return li < lj
		}
		return keys[i] < keys[j]
	})
	var tree any
	for _, k := range keys {
		v := flat[k]
		if IsContainer(v) {
			// materialize an empty container of the right kind; its
			// contents arrive via deeper entries
			if _, ok := v.(map[string]any); ok {
				if cur, found := Get(tree, k); !found || !isMap(cur) {
					tree = Set(tree, k, map[string]any{})
				}
			} else {
				if cur, found := Get(tree, k); !found || !isSlice(cur) {
					tree = Set(tree, k, []any{})
				}
			}
			continue
		}
		tree = Set(tree, k, v)
	}
	return tree
}

// IsContainer reports whether v is an object or array node.
func IsContainer(v any) bool { return isMap(v) || isSlice(v) }

func isMap(v any) bool   { _, ok := v.(map[string]any); return ok }
func isSlice(v any) bool { _, ok := v.([]any); return ok }
