package compose

import (
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/hanpama/mongograph/internal/store"
)

// JSONScalar carries arbitrary JSON-compatible values. BSON specific values
// inside them are converted with store.JSONValue.
var JSONScalar = &ScalarComposer{
	ScalarName:     "JSON",
	Description:    "The `JSON` scalar type represents JSON values as specified by ECMA-404.",
	SpecifiedByURL: "http://www.ecma-international.org/publications/files/ECMA-ST/ECMA-404.pdf",
	Serialize: func(value any) (any, error) {
		return store.JSONValue(value), nil
	},
}

// MongoIDScalar is a 24 character hex ObjectID.
var MongoIDScalar = &ScalarComposer{
	ScalarName:  "MongoID",
	Description: "The `ID` scalar type represents a unique MongoDB identifier in collection. MongoDB by default use 12-byte ObjectId value.",
	Serialize: func(value any) (any, error) {
		switch v := value.(type) {
		case bson.ObjectID:
			return v.Hex(), nil
		case string:
			return v, nil
		}
		return nil, fmt.Errorf("MongoID cannot represent value %v (%T)", value, value)
	},
	ParseValue: func(value any) (any, error) {
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("MongoID cannot represent value %v (%T)", value, value)
		}
		return store.ParseID(s)
	},
}

// DateScalar is an RFC 3339 timestamp.
var DateScalar = &ScalarComposer{
	ScalarName: "Date",
	Serialize: func(value any) (any, error) {
		switch v := value.(type) {
		case time.Time:
			return v.UTC().Format(time.RFC3339Nano), nil
		case bson.DateTime:
			return v.Time().UTC().Format(time.RFC3339Nano), nil
		case string:
			return v, nil
		}
		return nil, fmt.Errorf("Date cannot represent value %v (%T)", value, value)
	},
	ParseValue: func(value any) (any, error) {
		switch v := value.(type) {
		case string:
			t, err := time.Parse(time.RFC3339Nano, v)
			if err != nil {
				return nil, fmt.Errorf("Date cannot represent value %q: %w", v, err)
			}
			return t.UTC(), nil
		case int:
			return time.UnixMilli(int64(v)).UTC(), nil
		case float64:
			return time.UnixMilli(int64(v)).UTC(), nil
		}
		return nil, fmt.Errorf("Date cannot represent value %v (%T)", value, value)
	},
}

// DecimalScalar is an exact decimal rendered as a string.
var DecimalScalar = &ScalarComposer{
	ScalarName:  "Decimal",
	Description: "The `Decimal` scalar type uses the IEEE 754 decimal128 decimal-based floating-point numbering format.",
	Serialize: func(value any) (any, error) {
		switch v := value.(type) {
		case bson.Decimal128:
			return v.String(), nil
		case string:
			return v, nil
		case int:
			return strconv.Itoa(v), nil
		case int32:
			return strconv.FormatInt(int64(v), 10), nil
		case int64:
			return strconv.FormatInt(v, 10), nil
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), nil
		}
		return nil, fmt.Errorf("Decimal cannot represent value %v (%T)", value, value)
	},
	ParseValue: func(value any) (any, error) {
		var s string
		switch v := value.(type) {
		case string:
			s = v
		case int:
			s = strconv.Itoa(v)
		case float64:
			s = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			return nil, fmt.Errorf("Decimal cannot represent value %v (%T)", value, value)
		}
		d, err := bson.ParseDecimal128(s)
		if err != nil {
			return nil, fmt.Errorf("Decimal cannot represent value %q: %w", s, err)
		}
		return d, nil
	},
}

// serializeBuiltin serializes the specified scalars.
func serializeBuiltin(name string, value any) (any, bool, error) {
	switch name {
	case "String":
		switch v := value.(type) {
		case string:
			return v, true, nil
		case bool:
			return strconv.FormatBool(v), true, nil
		case int:
			return strconv.Itoa(v), true, nil
		case int32:
			return strconv.FormatInt(int64(v), 10), true, nil
		case int64:
			return strconv.FormatInt(v, 10), true, nil
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), true, nil
		case bson.ObjectID:
			return v.Hex(), true, nil
		case fmt.Stringer:
			return v.String(), true, nil
		}
		return nil, true, fmt.Errorf("String cannot represent value %v (%T)", value, value)
	case "ID":
		switch v := value.(type) {
		case string:
			return v, true, nil
		case bson.ObjectID:
			return v.Hex(), true, nil
		case int:
			return strconv.Itoa(v), true, nil
		case int32:
			return strconv.FormatInt(int64(v), 10), true, nil
		case int64:
			return strconv.FormatInt(v, 10), true, nil
		}
		return nil, true, fmt.Errorf("ID cannot represent value %v (%T)", value, value)
	case "Int":
		switch v := value.(type) {
		case int:
			return v, true, nil
		case int32:
			return int(v), true, nil
		case int64:
			return int(v), true, nil
		case float64:
			if v == float64(int(v)) {
				return int(v), true, nil
			}
		case bool:
			if v {
				return 1, true, nil
			}
			return 0, true, nil
		}
		return nil, true, fmt.Errorf("Int cannot represent non-integer value %v", value)
	case "Float":
		switch v := value.(type) {
		case float64:
			return v, true, nil
		case float32:
			return float64(v), true, nil
		case int:
			return float64(v), true, nil
		case int32:
			return float64(v), true, nil
		case int64:
			return float64(v), true, nil
		case bson.Decimal128:
			f, err := strconv.ParseFloat(v.String(), 64)
			if err != nil {
				return nil, true, fmt.Errorf("Float cannot represent value %v", v)
			}
			return f, true, nil
		}
		return nil, true, fmt.Errorf("Float cannot represent non numeric value %v", value)
	case "Boolean":
		if v, ok := value.(bool); ok {
			return v, true, nil
		}
		return nil, true, fmt.Errorf("Boolean cannot represent a non boolean value %v", value)
	}
	return nil, false, nil
}
