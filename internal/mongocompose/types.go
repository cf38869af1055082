package mongocompose

import (
	"regexp"

	"github.com/iancoleman/strcase"

	"github.com/hanpama/mongograph/internal/compose"
	"github.com/hanpama/mongograph/internal/docschema"
	"github.com/hanpama/mongograph/internal/store"
)

// generator derives the composed types of one model.
type generator struct {
	sc       *compose.SchemaComposer
	model    *docschema.Model
	typeName string
	// fields are the exposed top-level fields, _id first.
	fields []*docschema.Field
	opts   options
}

var nameRE = regexp.MustCompile(`^[_A-Za-z][_0-9A-Za-z]*$`)

// objectName names the object type of a Nested or Embedded field, e.g.
// UserSubDoc for User.subDoc.
func objectName(owner string, f *docschema.Field) string {
	return owner + strcase.ToCamel(f.PublicName())
}

// elementOf returns the element of an array field carrying the array's
// names, so element types are named after the field.
func elementOf(f *docschema.Field) *docschema.Field {
	el := *f.Of
	el.Name, el.Alias = f.Name, f.Alias
	return &el
}

// namedElement is elementOf applied through every array level.
func namedElement(f *docschema.Field) *docschema.Field {
	for f.Kind == docschema.Array && f.Of != nil {
		f = elementOf(f)
	}
	return f
}

func (g *generator) outputType() *compose.ObjectComposer {
	tc := g.sc.Object(g.typeName)
	desc := g.opts.description
	if desc == "" {
		desc = g.model.Description
	}
	tc.SetDescription(desc)
	for _, f := range g.fields {
		tc.AddFields(g.outputField(g.typeName, f))
	}
	return tc
}

func (g *generator) outputField(owner string, f *docschema.Field) *compose.FieldConfig {
	fc := &compose.FieldConfig{
		Name:        f.PublicName(),
		Description: f.Description,
		Type:        g.outputRef(owner, f),
		Nested:      f.Element().Kind.IsObject(),
	}
	if f.Alias != "" {
		fc.StorageKey = f.Name
	}
	if f.Required {
		fc.Type += "!"
	}
	return fc
}

func (g *generator) outputRef(owner string, f *docschema.Field) string {
	switch f.Kind {
	case docschema.Array:
		el := elementOf(f)
		ref := g.outputRef(owner, el)
		if el.Required {
			ref += "!"
		}
		return "[" + ref + "]"
	case docschema.Nested, docschema.Embedded:
		name := objectName(owner, f)
		tc := g.sc.Object(name)
		for _, sub := range f.Fields {
			tc.AddFields(g.outputField(name, sub))
		}
		return name
	}
	return g.leafRef(owner, f)
}

func (g *generator) leafRef(owner string, f *docschema.Field) string {
	switch f.Kind {
	case docschema.String:
		if len(f.Enum) > 0 {
			return g.enumType(owner, f)
		}
		return "String"
	case docschema.Number:
		return "Float"
	case docschema.Boolean:
		return "Boolean"
	case docschema.Date:
		return "Date"
	case docschema.ObjectID:
		return "MongoID"
	case docschema.Decimal:
		return "Decimal"
	}
	return "JSON"
}

// enumType registers EnumUserGender for User.gender. Values that are not
// valid GraphQL names are renamed; resolvers still see the stored string.
func (g *generator) enumType(owner string, f *docschema.Field) string {
	name := "Enum" + objectName(owner, f)
	ec := g.sc.Enum(name)
	for _, v := range f.Enum {
		ec.AddValues(&compose.EnumValueConfig{Name: enumValueName(v), Value: v})
	}
	return name
}

func enumValueName(v string) string {
	if nameRE.MatchString(v) {
		return v
	}
	name := strcase.ToScreamingSnake(v)
	if !nameRE.MatchString(name) {
		name = "_" + name
	}
	return name
}

// inputRef is outputRef for input positions; object fields map onto
// <ObjectName>Input types whose fields are all optional.
func (g *generator) inputRef(owner string, f *docschema.Field) string {
	switch f.Kind {
	case docschema.Array:
		el := elementOf(f)
		ref := g.inputRef(owner, el)
		if el.Required {
			ref += "!"
		}
		return "[" + ref + "]"
	case docschema.Nested, docschema.Embedded:
		name := objectName(owner, f)
		ic := g.sc.Input(name + "Input")
		for _, sub := range f.Fields {
			ic.AddFields(&compose.InputFieldConfig{
				Name:        sub.PublicName(),
				Type:        g.inputRef(name, sub),
				Description: sub.Description,
			})
		}
		return ic.Name()
	}
	return g.leafRef(owner, f)
}

// recordInput registers the record input of createOne (required fields
// kept) or updateById (every field optional).
func (g *generator) recordInput(name string, keepRequired bool) string {
	ic := g.sc.Input(name)
	for _, f := range g.fields {
		if f.Name == docschema.IDField || isTimestamp(g.model, f) {
			continue
		}
		typ := g.inputRef(g.typeName, f)
		if keepRequired && f.Required && f.Default == nil {
			typ += "!"
		}
		ic.AddFields(&compose.InputFieldConfig{Name: f.PublicName(), Type: typ, Description: f.Description})
	}
	return name
}

// filterInput registers the equality filter of a read resolver, e.g.
// FilterFindManyUserInput. Only top-level leaf fields are filterable;
// array fields match when any element equals the value.
func (g *generator) filterInput(resolver string) string {
	name := "Filter" + strcase.ToCamel(resolver) + g.typeName + "Input"
	ic := g.sc.Input(name)
	for _, f := range g.fields {
		el := f.Element()
		if !el.Kind.IsScalar() {
			continue
		}
		ic.AddFields(&compose.InputFieldConfig{
			Name:        f.PublicName(),
			Type:        g.leafRef(g.typeName, namedElement(f)),
			Description: f.Description,
		})
	}
	ic.AddFields(&compose.InputFieldConfig{Name: "_ids", Type: "[MongoID!]"})
	return name
}

// sortEnum registers the sort enum of a read resolver with ASC and DESC
// values for _id and every top-level scalar field.
func (g *generator) sortEnum(resolver string) string {
	name := "Sort" + strcase.ToCamel(resolver) + g.typeName + "Input"
	ec := g.sc.Enum(name)
	for _, f := range g.fields {
		if !f.Kind.IsScalar() {
			continue
		}
		base := strcase.ToScreamingSnake(f.PublicName())
		if f.Name == docschema.IDField {
			base = "_ID"
		}
		ec.AddValues(
			&compose.EnumValueConfig{Name: base + "_ASC", Value: store.SortField{Path: f.Name}},
			&compose.EnumValueConfig{Name: base + "_DESC", Value: store.SortField{Path: f.Name, Desc: true}},
		)
	}
	return name
}

func (g *generator) payloadType(resolver string) string {
	name := strcase.ToCamel(resolver) + g.typeName + "Payload"
	g.sc.Object(name).AddFields(
		&compose.FieldConfig{Name: "recordId", Type: "MongoID", Description: "Document ID"},
		&compose.FieldConfig{Name: "record", Type: g.typeName},
	)
	return name
}

func isTimestamp(m *docschema.Model, f *docschema.Field) bool {
	return m.Timestamps && (f.Name == "createdAt" || f.Name == "updatedAt")
}
