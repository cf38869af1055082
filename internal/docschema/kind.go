package docschema

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind is the storage type of a document field.
type Kind string

const (
	String   Kind = "String"
	Number   Kind = "Number"
	Boolean  Kind = "Boolean"
	Date     Kind = "Date"
	ObjectID Kind = "ObjectID"
	Decimal  Kind = "Decimal"
	// Mixed holds arbitrary JSON-compatible data with no declared shape.
	Mixed Kind = "Mixed"
	// Map holds string-keyed values with no declared key set.
	Map Kind = "Map"
	// Nested is an inline object path declared on the parent.
	Nested Kind = "Nested"
	// Embedded is a single sub-document with its own field set.
	Embedded Kind = "Embedded"
	Array    Kind = "Array"
)

var kinds = []Kind{String, Number, Boolean, Date, ObjectID, Decimal, Mixed, Map, Nested, Embedded, Array}

// ParseKind resolves a kind name case-insensitively. "ObjectId", "Object"
// and "List" are accepted as synonyms.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "objectid":
		return ObjectID, nil
	case "object":
		return Nested, nil
	case "list":
		return Array, nil
	}
	for _, k := range kinds {
		if strings.EqualFold(string(k), s) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown field kind %q", s)
}

// IsScalar reports whether values of the kind are leaves.
func (k Kind) IsScalar() bool {
	switch k {
	case String, Number, Boolean, Date, ObjectID, Decimal:
		return true
	}
	return false
}

// IsObject reports whether the kind has declared sub-fields.
func (k Kind) IsObject() bool { return k == Nested || k == Embedded }

// IsDynamic reports whether the kind carries opaque data.
func (k Kind) IsDynamic() bool { return k == Mixed || k == Map }

func (k *Kind) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*k = parsed
	return nil
}
