package formic

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/formic-dev/formic/fieldpath"
)

// Values reconstructs the full value tree: shape comes from the baseline,
// content from live cells. Only cells whose baseline entry is a scalar leaf
// (or missing, for live shape growth) are overlaid; container nodes are
// never spliced in wholesale.
func (f *Form) Values() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	tree := f.valuesLocked()
	if m, ok := tree.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func (f *Form) valuesLocked() any {
	tree := fieldpath.Clone(f.baseline)
	paths := make([]string, 0, len(f.cells))
	for p := range f.cells {
		paths = append(paths, p)
	}
	// shallow before deep so deeper cells override their ancestors' splices
	sort.Slice(paths, func(i, j int) bool {
		di, dj := len(fieldpath.Parse(paths[i])), len(fieldpath.Parse(paths[j]))
		if di != dj {
			return di < dj
		}
		return paths[i] < paths[j]
	})
	for _, p := range paths {
		live := f.cells[p].Get()
		base, found := fieldpath.Get(f.baseline, p)
		switch {
		case !found || !fieldpath.IsContainer(base):
			// scalar (or missing) baseline slot: splice content directly
			tree = fieldpath.Set(tree, p, fieldpath.Clone(live))
		case shapeDiverged(base, live):
			// live shape wins over baseline (array growth/shrink,
			// container replaced by scalar)
			tree = fieldpath.Set(tree, p, fieldpath.Clone(live))
		default:
			// container baseline: never overlay wholesale, splice the
			// live leaves so structural shape stays baseline-owned
			for lp, lv := range fieldpath.Flatten(live) {
				if fieldpath.IsContainer(lv) {
					continue
				}
				tree = fieldpath.Set(tree, fieldpath.Join(p, lp), fieldpath.Clone(lv))
			}
		}
	}
	return tree
}

// shapeDiverged reports whether live no longer matches base's node kind, or
// an array changed length.
func shapeDiverged(base, live any) bool {
	if !fieldpath.IsContainer(live) {
		return true
	}
	ba, baok := base.([]any)
	la, laok := live.([]any)
	if baok != laok {
		return true
	}
	if baok && len(ba) != len(la) {
		return true
	}
	return false
}

// ToJSON serializes the reconstructed value tree.
func (f *Form) ToJSON() ([]byte, error) {
	return json.Marshal(f.Values())
}

// FormPair is one multipart-style key/value entry.
type FormPair struct {
	Key   string
	Value any
}

// FormData is a flat multipart-style projection of the value tree: binary
// and reader leaves are carried as-is, every other scalar leaf stringified.
// Containers are not appended directly, only their leaves.
type FormData struct {
	pairs []FormPair
}

// Append adds one entry.
func (fd *FormData) Append(key string, value any) {
	fd.pairs = append(fd.pairs, FormPair{Key: key, Value: value})
}

// Get returns the first value for key.
func (fd *FormData) Get(key string) (any, bool) {
	for _, p := range fd.pairs {
		if p.Key == key {
			return p.Value, true
		}
	}
	return nil, false
}

// Pairs returns the entries in append order.
func (fd *FormData) Pairs() []FormPair {
	return append([]FormPair(nil), fd.pairs...)
}

// Len returns the entry count.
func (fd *FormData) Len() int { return len(fd.pairs) }

// ToFormData flattens the reconstructed tree into FormData.
func (f *Form) ToFormData() *FormData {
	tree := f.Values()
	fd := &FormData{}
	flat := fieldpath.Flatten(any(tree))
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := flat[k]
		if fieldpath.IsContainer(v) {
			continue
		}
		switch leaf := v.(type) {
		case []byte:
			fd.Append(k, leaf)
		case io.Reader:
			fd.Append(k, leaf)
		default:
			fd.Append(k, stringifyLeaf(leaf))
		}
	}
	return fd
}

func stringifyLeaf(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case bool:
		return strconv.FormatBool(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case json.Number:
		return s.String()
	default:
		return fmt.Sprint(v)
	}
}

// Lens is a transparent read/write view over the store keyed by chained
// property access. Every operation delegates to the form.
type Lens struct {
	f    *Form
	path string
}

// Lens returns the root lens.
func (f *Form) Lens() Lens { return Lens{f: f} }

// Field descends into an object member.
func (l Lens) Field(name string) Lens {
	return Lens{f: l.f, path: fieldpath.Join(l.path, name)}
}

// Index descends into an array slot.
func (l Lens) Index(i int) Lens {
	return Lens{f: l.f, path: fieldpath.Join(l.path, strconv.Itoa(i))}
}

// Path returns the dotted path this lens addresses.
func (l Lens) Path() string { return l.path }

// Get reads the addressed value.
func (l Lens) Get() any { return l.f.Value(l.path) }

// Set writes the addressed value through the store.
func (l Lens) Set(v any) { l.f.SetValue(l.path, v) }

// Errors returns the addressed path's flat error list.
func (l Lens) Errors() []string { return l.f.Errors(l.path) }
