package schema

import (
	"fmt"
	"strings"

	"github.com/hanpama/mongograph/internal/language"
)

// BuildFromSDL parses SDL and returns the corresponding Schema.
//
// Fields of the root operation types are marked async; every other field is
// resolved synchronously from its parent value. Type extensions are merged
// into their base definitions.
func BuildFromSDL(sdl string) (*Schema, error) {
	doc, err := language.ParseSchema("schema.graphql", sdl)
	if err != nil {
		return nil, err
	}

	s := NewSchema("")
	s.SetQueryType("Query")
	if doc.Definitions.ForName("Mutation") != nil {
		s.SetMutationType("Mutation")
	}
	if doc.Definitions.ForName("Subscription") != nil {
		s.SetSubscriptionType("Subscription")
	}
	for _, sd := range append(doc.Schema, doc.SchemaExtension...) {
		for _, op := range sd.OperationTypes {
			switch op.Operation {
			case language.Query:
				s.SetQueryType(op.Type)
			case language.Mutation:
				s.SetMutationType(op.Type)
			case language.Subscription:
				s.SetSubscriptionType(op.Type)
			}
		}
	}
	roots := map[string]bool{s.QueryType: true, s.MutationType: true, s.SubscriptionType: true}

	for _, def := range doc.Definitions {
		t, err := buildDefinition(def, roots[def.Name])
		if err != nil {
			return nil, err
		}
		s.AddType(t)
	}
	for _, ext := range doc.Extensions {
		base := s.Types[ext.Name]
		if base == nil {
			return nil, fmt.Errorf("cannot extend undefined type %q", ext.Name)
		}
		extra, err := buildDefinition(ext, roots[ext.Name])
		if err != nil {
			return nil, err
		}
		base.Fields = append(base.Fields, extra.Fields...)
		base.Interfaces = append(base.Interfaces, extra.Interfaces...)
		base.PossibleTypes = append(base.PossibleTypes, extra.PossibleTypes...)
		base.EnumValues = append(base.EnumValues, extra.EnumValues...)
		base.InputFields = append(base.InputFields, extra.InputFields...)
	}
	for _, dir := range doc.Directives {
		d := NewDirective(dir.Name, dir.Description).SetRepeatable(dir.IsRepeatable)
		for _, loc := range dir.Locations {
			d.Locations = append(d.Locations, string(loc))
		}
		for _, arg := range dir.Arguments {
			d.AddArgument(buildArgument(arg))
		}
		s.AddDirective(d)
	}
	if s.GetQueryType() == nil {
		return nil, fmt.Errorf("schema has no query type %q", s.QueryType)
	}
	return s, nil
}

func buildDefinition(def *language.Definition, root bool) (*Type, error) {
	switch def.Kind {
	case language.Object, language.Interface:
		kind := TypeKindObject
		if def.Kind == language.Interface {
			kind = TypeKindInterface
		}
		t := NewType(def.Name, kind, def.Description)
		for _, name := range def.Interfaces {
			t.AddInterface(name)
		}
		for _, fd := range def.Fields {
			f := NewField(fd.Name, fd.Description, TypeRefFromAST(fd.Type)).SetAsync(root)
			if reason, ok := deprecation(fd.Directives); ok {
				f.Deprecate(reason)
			}
			for _, arg := range fd.Arguments {
				f.AddArgument(buildArgument(arg))
			}
			t.AddField(f)
		}
		return t, nil
	case language.Union:
		t := NewType(def.Name, TypeKindUnion, def.Description)
		for _, name := range def.Types {
			t.AddPossibleType(name)
		}
		return t, nil
	case language.Enum:
		t := NewType(def.Name, TypeKindEnum, def.Description)
		for _, ev := range def.EnumValues {
			v := NewEnumValue(ev.Name, ev.Description)
			if reason, ok := deprecation(ev.Directives); ok {
				v.Deprecate(reason)
			}
			t.AddEnumValue(v)
		}
		return t, nil
	case language.InputObject:
		t := NewType(def.Name, TypeKindInputObject, def.Description).
			SetOneOf(def.Directives.ForName("oneOf") != nil)
		for _, fd := range def.Fields {
			in := NewInputValue(fd.Name, fd.Description, TypeRefFromAST(fd.Type)).
				SetDefault(defaultValue(fd.DefaultValue))
			if reason, ok := deprecation(fd.Directives); ok {
				in.Deprecate(reason)
			}
			t.AddInputField(in)
		}
		return t, nil
	case language.Scalar:
		return NewType(def.Name, TypeKindScalar, def.Description), nil
	}
	return nil, fmt.Errorf("unsupported definition kind %s for %q", def.Kind, def.Name)
}

func buildArgument(arg *language.ArgumentDefinition) *InputValue {
	in := NewInputValue(arg.Name, arg.Description, TypeRefFromAST(arg.Type)).
		SetDefault(defaultValue(arg.DefaultValue))
	if reason, ok := deprecation(arg.Directives); ok {
		in.Deprecate(reason)
	}
	return in
}

func deprecation(dirs language.DirectiveList) (string, bool) {
	d := dirs.ForName("deprecated")
	if d == nil {
		return "", false
	}
	if arg := d.Arguments.ForName("reason"); arg != nil && arg.Value != nil {
		return arg.Value.Raw, true
	}
	return "", true
}

func defaultValue(v *language.Value) any {
	if v == nil {
		return nil
	}
	if v.Kind == language.EnumValue {
		return EnumLiteral(v.Raw)
	}
	out, err := v.Value(nil)
	if err != nil {
		return nil
	}
	return out
}

// TypeRefFromAST converts a parsed type reference.
func TypeRefFromAST(t *language.Type) *TypeRef {
	if t == nil {
		return nil
	}
	var inner *TypeRef
	if t.Elem != nil {
		inner = ListType(TypeRefFromAST(t.Elem))
	} else {
		inner = NamedType(t.NamedType)
	}
	if t.NonNull {
		return NonNullType(inner)
	}
	return inner
}

// ParseTypeRef parses a type reference written in SDL notation, e.g. "[User!]!".
func ParseTypeRef(s string) (*TypeRef, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty type reference")
	}
	doc, err := language.ParseSchema("typeref", "type T { f: "+s+" }")
	if err != nil {
		return nil, fmt.Errorf("invalid type reference %q: %w", s, err)
	}
	def := doc.Definitions.ForName("T")
	if def == nil || len(def.Fields) != 1 {
		return nil, fmt.Errorf("invalid type reference %q", s)
	}
	return TypeRefFromAST(def.Fields[0].Type), nil
}

// MustParseTypeRef is like ParseTypeRef but panics on malformed input.
func MustParseTypeRef(s string) *TypeRef {
	t, err := ParseTypeRef(s)
	if err != nil {
		panic(err)
	}
	return t
}
