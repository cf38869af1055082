package compose

import (
	"errors"
	"fmt"

	"github.com/hanpama/mongograph/internal/projection"
	"github.com/hanpama/mongograph/internal/schema"
)

// registry is the immutable snapshot of the composers a schema was built
// from. The runtime reads it concurrently.
type registry struct {
	fields  map[string]*fieldEntry
	enums   map[string]*EnumComposer
	scalars map[string]*ScalarComposer
	hints   projection.HintMap
}

type fieldEntry struct {
	typeName string
	config   *FieldConfig
	def      *schema.Field
	// emptyWhenAbsent is set on Nested fields of a single object type.
	emptyWhenAbsent bool
}

func (r *registry) field(typeName, fieldName string) *fieldEntry {
	return r.fields[typeName+"."+fieldName]
}

type typeRequest struct {
	name string
	from string
}

type builder struct {
	sc    *SchemaComposer
	sch   *schema.Schema
	reg   *registry
	queue []typeRequest
	errs  []error
}

// build converts the composers reachable from Query and Mutation into a
// schema. Registered types nothing references are left out.
func (sc *SchemaComposer) build() (*schema.Schema, *registry, error) {
	if len(sc.query.fields) == 0 {
		return nil, nil, errors.New("type Query must define at least one field")
	}
	b := &builder{
		sc:  sc,
		sch: schema.NewSchema(""),
		reg: &registry{
			fields:  make(map[string]*fieldEntry),
			enums:   make(map[string]*EnumComposer),
			scalars: make(map[string]*ScalarComposer),
			hints:   make(projection.HintMap),
		},
	}
	b.sch.SetQueryType(sc.query.Name())
	b.object(sc.query, true)
	if len(sc.mutation.fields) > 0 {
		b.sch.SetMutationType(sc.mutation.Name())
		b.object(sc.mutation, true)
	}

	for len(b.queue) > 0 {
		req := b.queue[0]
		b.queue = b.queue[1:]
		if _, done := b.sch.Types[req.name]; done {
			continue
		}
		c, ok := b.sc.types[req.name]
		if !ok {
			b.errs = append(b.errs, fmt.Errorf("unknown type %q referenced by %s", req.name, req.from))
			continue
		}
		switch c := c.(type) {
		case *ObjectComposer:
			b.object(c, false)
		case *InputComposer:
			b.input(c)
		case *EnumComposer:
			b.enum(c)
		case *ScalarComposer:
			b.scalar(c)
		default:
			b.errs = append(b.errs, fmt.Errorf("type %s: unsupported composer %T", req.name, c))
		}
	}
	if len(b.errs) == 0 {
		b.checkKinds()
	}
	if err := errors.Join(b.errs...); err != nil {
		return nil, nil, err
	}
	return b.sch, b.reg, nil
}

func (b *builder) ref(typ, from string) *schema.TypeRef {
	ref, err := schema.ParseTypeRef(typ)
	if err != nil {
		b.errs = append(b.errs, fmt.Errorf("%s: %w", from, err))
		return nil
	}
	name := schema.GetNamedType(ref)
	if _, ok := b.sch.Types[name]; !ok {
		b.queue = append(b.queue, typeRequest{name: name, from: from})
	}
	return ref
}

func (b *builder) object(oc *ObjectComposer, root bool) {
	t := schema.NewType(oc.Name(), schema.TypeKindObject, oc.Description())
	b.sch.AddType(t)
	if len(oc.fields) == 0 {
		b.errs = append(b.errs, fmt.Errorf("type %s must define at least one field", oc.Name()))
		return
	}
	for _, fc := range oc.fields {
		fc = fc.clone()
		from := oc.Name() + "." + fc.Name
		typ, args := fc.Type, fc.Args
		if fc.Resolver != nil {
			if typ == "" {
				typ = fc.Resolver.Type
			}
			if args == nil {
				args = fc.Resolver.Args
			}
		}
		if typ == "" {
			b.errs = append(b.errs, fmt.Errorf("%s: type is required", from))
			continue
		}
		ref := b.ref(typ, from)
		if ref == nil {
			continue
		}
		f := schema.NewField(fc.Name, fc.Description, ref).SetAsync(root || fc.Resolver != nil)
		if fc.Deprecated {
			f.Deprecate(fc.DeprecationReason)
		}
		for _, a := range args {
			argRef := b.ref(a.Type, from+"("+a.Name+")")
			if argRef == nil {
				continue
			}
			f.AddArgument(schema.NewInputValue(a.Name, a.Description, argRef).
				SetDefault(b.defaultLiteral(argRef, a.Default)))
		}
		t.AddField(f)

		b.reg.fields[from] = &fieldEntry{
			typeName:        oc.Name(),
			config:          fc,
			def:             f,
			emptyWhenAbsent: fc.Nested && !schema.IsList(nonNullInner(ref)),
		}
		if !root {
			b.reg.hints[from] = projection.FieldHint{
				StorageKey: fc.StorageKey,
				Nested:     fc.Nested,
				Computed:   fc.computed(),
				Requires:   fc.Projection,
			}
		}
	}
}

func (b *builder) input(ic *InputComposer) {
	t := schema.NewType(ic.Name(), schema.TypeKindInputObject, ic.Description())
	b.sch.AddType(t)
	if len(ic.fields) == 0 {
		b.errs = append(b.errs, fmt.Errorf("input %s must define at least one field", ic.Name()))
		return
	}
	for _, f := range ic.fields {
		ref := b.ref(f.Type, ic.Name()+"."+f.Name)
		if ref == nil {
			continue
		}
		t.AddInputField(schema.NewInputValue(f.Name, f.Description, ref).
			SetDefault(b.defaultLiteral(ref, f.Default)))
	}
}

func (b *builder) enum(ec *EnumComposer) {
	t := schema.NewType(ec.Name(), schema.TypeKindEnum, ec.Description())
	b.sch.AddType(t)
	if len(ec.values) == 0 {
		b.errs = append(b.errs, fmt.Errorf("enum %s must define at least one value", ec.Name()))
	}
	for _, v := range ec.values {
		ev := schema.NewEnumValue(v.Name, v.Description)
		if v.Deprecated {
			ev.Deprecate(v.DeprecationReason)
		}
		t.AddEnumValue(ev)
	}
	b.reg.enums[ec.Name()] = ec
}

func (b *builder) scalar(s *ScalarComposer) {
	t := schema.NewType(s.Name(), schema.TypeKindScalar, s.Description)
	if s.SpecifiedByURL != "" {
		t.SetSpecifiedByURL(s.SpecifiedByURL)
	}
	b.sch.AddType(t)
	b.reg.scalars[s.Name()] = s
}

// defaultLiteral marks enum defaults so they render unquoted.
func (b *builder) defaultLiteral(ref *schema.TypeRef, v any) any {
	name, ok := v.(string)
	if !ok {
		return v
	}
	if _, isEnum := b.sc.types[schema.GetNamedType(ref)].(*EnumComposer); isEnum {
		return schema.EnumLiteral(name)
	}
	return v
}

// checkKinds verifies that output positions reference output types and
// input positions reference input types.
func (b *builder) checkKinds() {
	for _, t := range b.sch.Types {
		switch t.Kind {
		case schema.TypeKindObject:
			for _, f := range t.Fields {
				if k := b.kindOf(f.Type); k == schema.TypeKindInputObject {
					b.errs = append(b.errs, fmt.Errorf("%s.%s: input type %s cannot be used as an output type", t.Name, f.Name, f.Type))
				}
				for _, a := range f.Arguments {
					if !isInputKind(b.kindOf(a.Type)) {
						b.errs = append(b.errs, fmt.Errorf("%s.%s(%s): %s is not an input type", t.Name, f.Name, a.Name, a.Type))
					}
				}
			}
		case schema.TypeKindInputObject:
			for _, f := range t.InputFields {
				if !isInputKind(b.kindOf(f.Type)) {
					b.errs = append(b.errs, fmt.Errorf("%s.%s: %s is not an input type", t.Name, f.Name, f.Type))
				}
			}
		}
	}
}

func (b *builder) kindOf(ref *schema.TypeRef) schema.TypeKind {
	if t := b.sch.Types[schema.GetNamedType(ref)]; t != nil {
		return t.Kind
	}
	return ""
}

func isInputKind(k schema.TypeKind) bool {
	return k == schema.TypeKindScalar || k == schema.TypeKindEnum || k == schema.TypeKindInputObject
}

func nonNullInner(ref *schema.TypeRef) *schema.TypeRef {
	if schema.IsNonNull(ref) {
		return schema.Unwrap(ref)
	}
	return ref
}
