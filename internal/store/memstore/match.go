package memstore

import (
	"reflect"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/hanpama/mongograph/internal/projection"
	"github.com/hanpama/mongograph/internal/store"
)

func matches(doc store.Document, filter store.Filter) bool {
	for path, want := range filter {
		got, _ := store.Lookup(doc, path)
		if in, ok := want.(store.In); ok {
			if !matchesAny(got, in) {
				return false
			}
			continue
		}
		if !matchesValue(got, want) {
			return false
		}
	}
	return true
}

func matchesAny(got any, in store.In) bool {
	for _, w := range in {
		if matchesValue(got, w) {
			return true
		}
	}
	return false
}

// matchesValue follows MongoDB equality: an array matches when any element
// equals the wanted scalar.
func matchesValue(got, want any) bool {
	if equal(got, want) {
		return true
	}
	if list, ok := got.([]any); ok {
		if _, wantList := want.([]any); !wantList {
			for _, el := range list {
				if equal(el, want) {
					return true
				}
			}
		}
	}
	return false
}

func equal(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	return reflect.DeepEqual(store.Normalize(a), store.Normalize(b))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// compare orders values by type class (null, numbers, strings, others) and
// then by value.
func compare(a, b any) int {
	ca, cb := class(a), class(b)
	if ca != cb {
		return ca - cb
	}
	switch ca {
	case 1:
		fa, _ := toFloat(a)
		fb, _ := toFloat(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case 2:
		return strings.Compare(a.(string), b.(string))
	case 3:
		return compareOther(a, b)
	}
	return 0
}

func class(v any) int {
	if v == nil {
		return 0
	}
	if _, ok := toFloat(v); ok {
		return 1
	}
	if _, ok := v.(string); ok {
		return 2
	}
	return 3
}

func compareOther(a, b any) int {
	switch x := a.(type) {
	case bson.ObjectID:
		if y, ok := b.(bson.ObjectID); ok {
			return strings.Compare(x.Hex(), y.Hex())
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	case bool:
		if y, ok := b.(bool); ok && x != y {
			if !x {
				return -1
			}
			return 1
		}
		return 0
	}
	return 0
}

// project copies the parts of doc selected by proj.
func project(doc store.Document, proj projection.Projection) store.Document {
	if proj.All {
		return deepCopy(doc).(map[string]any)
	}
	out := make(map[string]any)
	paths := proj.Paths
	if len(paths) == 0 {
		paths = []string{projection.IDPath}
	}
	for _, p := range paths {
		projectInto(out, doc, strings.Split(p, "."))
	}
	if id, ok := doc[projection.IDPath]; ok {
		out[projection.IDPath] = id
	}
	return out
}

func projectInto(dst, src map[string]any, segs []string) {
	key := segs[0]
	v, ok := src[key]
	if !ok {
		return
	}
	if len(segs) == 1 {
		dst[key] = deepCopy(v)
		return
	}
	switch v := v.(type) {
	case map[string]any:
		child, _ := dst[key].(map[string]any)
		if child == nil {
			child = make(map[string]any)
			dst[key] = child
		}
		projectInto(child, v, segs[1:])
	case []any:
		list, _ := dst[key].([]any)
		if list == nil {
			list = make([]any, 0, len(v))
			for _, el := range v {
				if _, ok := el.(map[string]any); ok {
					list = append(list, make(map[string]any))
				}
			}
			dst[key] = list
		}
		i := 0
		for _, el := range v {
			if m, ok := el.(map[string]any); ok {
				projectInto(list[i].(map[string]any), m, segs[1:])
				i++
			}
		}
	}
}

func deepCopy(v any) any {
	switch v := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = deepCopy(e)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = deepCopy(e)
		}
		return out
	}
	return v
}
