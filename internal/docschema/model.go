package docschema

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidModel is wrapped by every Validate failure.
var ErrInvalidModel = errors.New("invalid model")

// IDField is the storage key of the primary key every model carries.
const IDField = "_id"

// Model describes the documents of one collection.
type Model struct {
	Name        string   `yaml:"name"`
	Collection  string   `yaml:"collection,omitempty"`
	Description string   `yaml:"description,omitempty"`
	Timestamps  bool     `yaml:"timestamps,omitempty"`
	Fields      []*Field `yaml:"fields"`
}

// Field is one declared path of a model. Name is the storage key; Alias,
// when set, is the name exposed to clients instead.
type Field struct {
	Name        string   `yaml:"name"`
	Alias       string   `yaml:"alias,omitempty"`
	Kind        Kind     `yaml:"kind"`
	Of          *Field   `yaml:"of,omitempty"`
	Fields      []*Field `yaml:"fields,omitempty"`
	Enum        []string `yaml:"enum,omitempty"`
	Required    bool     `yaml:"required,omitempty"`
	Description string   `yaml:"description,omitempty"`
	Default     any      `yaml:"default,omitempty"`
}

// PublicName returns the client-facing name of the field.
func (f *Field) PublicName() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

// Element returns the innermost element of an array field, or f itself.
func (f *Field) Element() *Field {
	for f.Kind == Array && f.Of != nil {
		f = f.Of
	}
	return f
}

// SubFields returns the declared children of an object field or of an array
// of objects.
func (f *Field) SubFields() []*Field {
	if el := f.Element(); el.Kind.IsObject() {
		return el.Fields
	}
	return nil
}

// CollectionName returns Collection, defaulting to the lower-cased model
// name with an "s" suffix.
func (m *Model) CollectionName() string {
	if m.Collection != "" {
		return m.Collection
	}
	name := strings.ToLower(m.Name)
	if strings.HasSuffix(name, "s") {
		return name
	}
	return name + "s"
}

// AllFields returns the declared fields with the implicit _id first and the
// timestamp fields last.
func (m *Model) AllFields() []*Field {
	out := make([]*Field, 0, len(m.Fields)+3)
	out = append(out, &Field{Name: IDField, Kind: ObjectID, Required: true})
	out = append(out, m.Fields...)
	if m.Timestamps {
		out = append(out,
			&Field{Name: "createdAt", Kind: Date},
			&Field{Name: "updatedAt", Kind: Date},
		)
	}
	return out
}

// Field looks up a dotted path. Each segment matches a storage key or an alias.
func (m *Model) Field(path string) *Field {
	fields := m.AllFields()
	var found *Field
	for _, seg := range strings.Split(path, ".") {
		found = nil
		for _, f := range fields {
			if f.Name == seg || f.Alias == seg {
				found = f
				break
			}
		}
		if found == nil {
			return nil
		}
		fields = found.SubFields()
	}
	return found
}

// StorageKey maps a dotted public path to its dotted storage path. Unknown
// segments are kept as they are.
func (m *Model) StorageKey(publicPath string) string {
	fields := m.AllFields()
	segs := strings.Split(publicPath, ".")
	for i, seg := range segs {
		var match *Field
		for _, f := range fields {
			if f.PublicName() == seg {
				match = f
				break
			}
		}
		if match == nil {
			break
		}
		segs[i] = match.Name
		fields = match.SubFields()
	}
	return strings.Join(segs, ".")
}

// Validate checks the model for structural mistakes.
func (m *Model) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("%w: model name is required", ErrInvalidModel)
	}
	var errs []error
	validateFields(m.Name, m.AllFields(), &errs)
	if len(errs) > 0 {
		return fmt.Errorf("%w %s: %w", ErrInvalidModel, m.Name, errors.Join(errs...))
	}
	return nil
}

func validateFields(prefix string, fields []*Field, errs *[]error) {
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		path := prefix + "." + f.Name
		if f.Name == "" {
			*errs = append(*errs, fmt.Errorf("%s: field without a name", prefix))
			continue
		}
		for _, name := range []string{f.Name, f.Alias} {
			if name == "" {
				continue
			}
			if seen[name] {
				*errs = append(*errs, fmt.Errorf("%s: duplicate field name %q", prefix, name))
			}
			seen[name] = true
		}
		validateField(path, f, errs)
	}
}

func validateField(path string, f *Field, errs *[]error) {
	switch {
	case f.Kind == "":
		*errs = append(*errs, fmt.Errorf("%s: kind is required", path))
	case f.Kind == Array && f.Of == nil:
		*errs = append(*errs, fmt.Errorf("%s: array without element definition", path))
	case f.Kind.IsObject() && len(f.Fields) == 0:
		*errs = append(*errs, fmt.Errorf("%s: %s field declares no fields", path, f.Kind))
	case len(f.Enum) > 0 && f.Kind != String:
		*errs = append(*errs, fmt.Errorf("%s: enum is only supported on String fields", path))
	}
	if f.Kind == Array && f.Of != nil {
		validateField(path+"[]", f.Of, errs)
	}
	if f.Kind.IsObject() {
		validateFields(path, f.Fields, errs)
	}
}
