package store

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Normalize converts decoded BSON into plain Go values: documents become
// map[string]any, arrays []any and DateTime time.Time. ObjectID and
// Decimal128 are kept as they are.
func Normalize(v any) any {
	switch v := v.(type) {
	case bson.D:
		out := make(map[string]any, len(v))
		for _, e := range v {
			out[e.Key] = Normalize(e.Value)
		}
		return out
	case bson.M:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = Normalize(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = Normalize(e)
		}
		return out
	case bson.A:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = Normalize(e)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = Normalize(e)
		}
		return out
	case bson.DateTime:
		return v.Time().UTC()
	case bson.Null, bson.Undefined:
		return nil
	}
	return v
}

// NormalizeDocument is Normalize for a whole document.
func NormalizeDocument(d bson.D) Document {
	return Normalize(d).(map[string]any)
}

// JSONValue converts a normalised value into a JSON-compatible one:
// ObjectID becomes its hex string, time.Time an RFC 3339 string and
// Decimal128 its decimal string.
func JSONValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = JSONValue(e)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = JSONValue(e)
		}
		return out
	case bson.D, bson.M, bson.A, bson.DateTime:
		return JSONValue(Normalize(v))
	case bson.ObjectID:
		return v.Hex()
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	case bson.Decimal128:
		return v.String()
	case []string:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = e
		}
		return out
	}
	return v
}

// Lookup reads a dotted path from a document.
func Lookup(doc map[string]any, path string) (any, bool) {
	var cur any = doc
	for _, seg := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
