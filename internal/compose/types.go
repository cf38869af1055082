package compose

import (
	"context"
	"fmt"
	"reflect"
	"slices"
)

// Composer is any named type registered in a SchemaComposer.
type Composer interface {
	Name() string
}

// SyncResolveFn computes a field value from its parent source without I/O.
type SyncResolveFn func(ctx context.Context, source any, args map[string]any) (any, error)

// FieldConfig describes one output field of an object type.
type FieldConfig struct {
	Name string
	// Type is an SDL type reference such as "String!" or "[UserLanguages]".
	Type        string
	Description string
	Args        []*Arg
	// Resolve computes the value synchronously from the parent source.
	Resolve SyncResolveFn
	// Resolver resolves the field asynchronously; all calls of one depth
	// are batched together.
	Resolver *Resolver
	// Projection lists storage paths, relative to the parent document, that
	// Resolve or Resolver reads. A "*" entry loads the whole document.
	Projection []string
	// StorageKey is the key read from the parent document. Empty means Name.
	StorageKey string
	// Nested marks an inline object stored under StorageKey: selections
	// below it project to dotted paths and an absent value resolves to an
	// empty object.
	Nested            bool
	Deprecated        bool
	DeprecationReason string
}

func (f *FieldConfig) storageKey() string {
	if f.StorageKey != "" {
		return f.StorageKey
	}
	return f.Name
}

func (f *FieldConfig) computed() bool { return f.Resolve != nil || f.Resolver != nil }

func (f *FieldConfig) clone() *FieldConfig {
	c := *f
	c.Args = slices.Clone(f.Args)
	c.Projection = slices.Clone(f.Projection)
	return &c
}

// Arg is a field or resolver argument.
type Arg struct {
	Name        string
	Type        string
	Description string
	// Default is used when the argument is omitted. Enum defaults name the
	// enum value.
	Default any
}

// ObjectComposer builds an object type with ordered fields and the named
// resolvers that return it.
type ObjectComposer struct {
	name        string
	description string
	fields      []*FieldConfig
	resolvers   []*Resolver
}

// NewObject returns an empty object composer.
func NewObject(name string) *ObjectComposer { return &ObjectComposer{name: name} }

func (tc *ObjectComposer) Name() string        { return tc.name }
func (tc *ObjectComposer) Description() string { return tc.description }

func (tc *ObjectComposer) SetDescription(description string) *ObjectComposer {
	tc.description = description
	return tc
}

// AddFields appends fields, replacing in place any field with the same name.
func (tc *ObjectComposer) AddFields(fields ...*FieldConfig) *ObjectComposer {
	for _, f := range fields {
		if i := tc.indexOf(f.Name); i >= 0 {
			tc.fields[i] = f
			continue
		}
		tc.fields = append(tc.fields, f)
	}
	return tc
}

// Field returns the named field or nil.
func (tc *ObjectComposer) Field(name string) *FieldConfig {
	if i := tc.indexOf(name); i >= 0 {
		return tc.fields[i]
	}
	return nil
}

func (tc *ObjectComposer) HasField(name string) bool { return tc.indexOf(name) >= 0 }

func (tc *ObjectComposer) FieldNames() []string {
	names := make([]string, len(tc.fields))
	for i, f := range tc.fields {
		names[i] = f.Name
	}
	return names
}

// Fields returns the fields in declaration order.
func (tc *ObjectComposer) Fields() []*FieldConfig { return slices.Clone(tc.fields) }

func (tc *ObjectComposer) RemoveField(names ...string) *ObjectComposer {
	tc.fields = slices.DeleteFunc(tc.fields, func(f *FieldConfig) bool {
		return slices.Contains(names, f.Name)
	})
	return tc
}

// ExtendField applies fn to a copy of the named field and stores the result.
func (tc *ObjectComposer) ExtendField(name string, fn func(*FieldConfig)) error {
	i := tc.indexOf(name)
	if i < 0 {
		return fmt.Errorf("type %s has no field %q", tc.name, name)
	}
	f := tc.fields[i].clone()
	fn(f)
	f.Name = name
	tc.fields[i] = f
	return nil
}

func (tc *ObjectComposer) indexOf(name string) int {
	return slices.IndexFunc(tc.fields, func(f *FieldConfig) bool { return f.Name == name })
}

// AddResolver registers r, replacing a resolver of the same name.
func (tc *ObjectComposer) AddResolver(r *Resolver) *ObjectComposer {
	if i := slices.IndexFunc(tc.resolvers, func(o *Resolver) bool { return o.Name == r.Name }); i >= 0 {
		tc.resolvers[i] = r
		return tc
	}
	tc.resolvers = append(tc.resolvers, r)
	return tc
}

// GetResolver returns the named resolver.
func (tc *ObjectComposer) GetResolver(name string) (*Resolver, error) {
	for _, r := range tc.resolvers {
		if r.Name == name {
			return r, nil
		}
	}
	return nil, fmt.Errorf("type %s has no resolver %q", tc.name, name)
}

func (tc *ObjectComposer) HasResolver(name string) bool {
	_, err := tc.GetResolver(name)
	return err == nil
}

func (tc *ObjectComposer) ResolverNames() []string {
	names := make([]string, len(tc.resolvers))
	for i, r := range tc.resolvers {
		names[i] = r.Name
	}
	return names
}

func (tc *ObjectComposer) RemoveResolver(name string) *ObjectComposer {
	tc.resolvers = slices.DeleteFunc(tc.resolvers, func(r *Resolver) bool { return r.Name == name })
	return tc
}

// InputFieldConfig is one field of an input object.
type InputFieldConfig struct {
	Name        string
	Type        string
	Description string
	Default     any
}

// InputComposer builds an input object type.
type InputComposer struct {
	name        string
	description string
	fields      []*InputFieldConfig
}

func NewInput(name string) *InputComposer { return &InputComposer{name: name} }

func (ic *InputComposer) Name() string        { return ic.name }
func (ic *InputComposer) Description() string { return ic.description }

func (ic *InputComposer) SetDescription(description string) *InputComposer {
	ic.description = description
	return ic
}

// AddFields appends fields, replacing in place any field with the same name.
func (ic *InputComposer) AddFields(fields ...*InputFieldConfig) *InputComposer {
	for _, f := range fields {
		if i := ic.indexOf(f.Name); i >= 0 {
			ic.fields[i] = f
			continue
		}
		ic.fields = append(ic.fields, f)
	}
	return ic
}

func (ic *InputComposer) Field(name string) *InputFieldConfig {
	if i := ic.indexOf(name); i >= 0 {
		return ic.fields[i]
	}
	return nil
}

func (ic *InputComposer) FieldNames() []string {
	names := make([]string, len(ic.fields))
	for i, f := range ic.fields {
		names[i] = f.Name
	}
	return names
}

func (ic *InputComposer) RemoveField(names ...string) *InputComposer {
	ic.fields = slices.DeleteFunc(ic.fields, func(f *InputFieldConfig) bool {
		return slices.Contains(names, f.Name)
	})
	return ic
}

func (ic *InputComposer) indexOf(name string) int {
	return slices.IndexFunc(ic.fields, func(f *InputFieldConfig) bool { return f.Name == name })
}

// EnumValueConfig is one value of an enum. Value is the internal value
// resolvers receive and return; nil means the name itself.
type EnumValueConfig struct {
	Name              string
	Value             any
	Description       string
	Deprecated        bool
	DeprecationReason string
}

func (v *EnumValueConfig) internal() any {
	if v.Value == nil {
		return v.Name
	}
	return v.Value
}

// EnumComposer builds an enum type.
type EnumComposer struct {
	name        string
	description string
	values      []*EnumValueConfig
}

func NewEnum(name string) *EnumComposer { return &EnumComposer{name: name} }

func (ec *EnumComposer) Name() string        { return ec.name }
func (ec *EnumComposer) Description() string { return ec.description }

func (ec *EnumComposer) SetDescription(description string) *EnumComposer {
	ec.description = description
	return ec
}

// AddValues appends values, replacing in place any value with the same name.
func (ec *EnumComposer) AddValues(values ...*EnumValueConfig) *EnumComposer {
	for _, v := range values {
		if i := slices.IndexFunc(ec.values, func(o *EnumValueConfig) bool { return o.Name == v.Name }); i >= 0 {
			ec.values[i] = v
			continue
		}
		ec.values = append(ec.values, v)
	}
	return ec
}

func (ec *EnumComposer) Value(name string) *EnumValueConfig {
	for _, v := range ec.values {
		if v.Name == name {
			return v
		}
	}
	return nil
}

func (ec *EnumComposer) ValueNames() []string {
	names := make([]string, len(ec.values))
	for i, v := range ec.values {
		names[i] = v.Name
	}
	return names
}

// parse maps an enum name onto its internal value.
func (ec *EnumComposer) parse(name string) (any, error) {
	if v := ec.Value(name); v != nil {
		return v.internal(), nil
	}
	return nil, fmt.Errorf("value %q is not a member of enum %s", name, ec.name)
}

// serialize maps an internal value onto its enum name.
func (ec *EnumComposer) serialize(value any) (any, error) {
	for _, v := range ec.values {
		if reflect.DeepEqual(v.internal(), value) {
			return v.Name, nil
		}
	}
	return nil, fmt.Errorf("enum %s cannot represent value %v", ec.name, value)
}

// ScalarComposer declares a custom scalar. Serialize converts resolved
// values into JSON-compatible output and ParseValue converts argument
// values into what resolvers receive; nil functions pass values through.
type ScalarComposer struct {
	ScalarName     string
	Description    string
	SpecifiedByURL string
	Serialize      func(value any) (any, error)
	ParseValue     func(value any) (any, error)
}

func (s *ScalarComposer) Name() string { return s.ScalarName }
