// Package normalize converts records received from the clinic API into the
// shape the rest of the service works with: camelCase keys, decoded URI
// components and leniently parsed JSON and dates.
package normalize

import (
	"reflect"
	"slices"
	"strings"

	"github.com/clinicadmin/clinicadmin/pkg/ordered"
)

// Key converts a single snake_case or kebab-case key to camelCase. Every
// '-' or '_' followed by a lower-case ASCII letter is replaced by the
// upper-case letter. Other characters pass through unchanged.
func Key(k string) string {
	if !strings.ContainsAny(k, "-_") {
		return k
	}
	var b strings.Builder
	b.Grow(len(k))
	for i := 0; i < len(k); i++ {
		c := k[i]
		if (c == '-' || c == '_') && i+1 < len(k) && 'a' <= k[i+1] && k[i+1] <= 'z' {
			b.WriteByte(k[i+1] - 'a' + 'A')
			i++
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// CamelCaseKeys returns a copy of v with every object key rewritten by Key.
// It walks *ordered.Object, map[string]any and []any values; anything else
// is returned as is. Cyclic input produces output with the same cycle.
//
// When two source keys collapse onto the same camelCase key the later one
// wins, in the position of the first. For *ordered.Object "later" is
// document order; for map[string]any it is byte-wise key order, so of
// "aB" and "a_b" the value of "a_b" is kept.
func CamelCaseKeys(v any) any {
	w := walker{
		objects: make(map[*ordered.Object]*ordered.Object),
		maps:    make(map[uintptr]map[string]any),
		slices:  make(map[sliceID][]any),
	}
	return w.walk(v)
}

type sliceID struct {
	ptr uintptr
	len int
}

type walker struct {
	objects map[*ordered.Object]*ordered.Object
	maps    map[uintptr]map[string]any
	slices  map[sliceID][]any
}

func (w *walker) walk(v any) any {
	switch t := v.(type) {
	case *ordered.Object:
		if t == nil {
			return t
		}
		if seen, ok := w.objects[t]; ok {
			return seen
		}
		out := ordered.New()
		w.objects[t] = out
		for _, k := range t.Keys() {
			val, _ := t.Get(k)
			out.Set(Key(k), w.walk(val))
		}
		return out

	case map[string]any:
		if t == nil {
			return t
		}
		id := reflect.ValueOf(t).Pointer()
		if seen, ok := w.maps[id]; ok {
			return seen
		}
		out := make(map[string]any, len(t))
		w.maps[id] = out
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			out[Key(k)] = w.walk(t[k])
		}
		return out

	case []any:
		if len(t) == 0 {
			return t
		}
		id := sliceID{ptr: reflect.ValueOf(t).Pointer(), len: len(t)}
		if seen, ok := w.slices[id]; ok {
			return seen
		}
		out := make([]any, len(t))
		w.slices[id] = out
		for i, val := range t {
			out[i] = w.walk(val)
		}
		return out
	}
	return v
}
