// Package mongocompose generates GraphQL types and CRUD resolvers from a
// document model and registers them in a compose.SchemaComposer.
package mongocompose

import (
	"fmt"
	"slices"

	"github.com/iancoleman/strcase"

	"github.com/hanpama/mongograph/internal/compose"
	"github.com/hanpama/mongograph/internal/docschema"
	"github.com/hanpama/mongograph/internal/store"
)

// ComposeWithMongo registers the object type of model, its nested, enum and
// input types, and the resolvers reading from and writing to coll. The
// returned composer holds the resolvers; mount them with Mount.
func ComposeWithMongo(model *docschema.Model, coll store.Collection, opts ...Option) (*compose.ObjectComposer, error) {
	if err := model.Validate(); err != nil {
		return nil, err
	}
	o := options{
		sc:           compose.Default(),
		resolvers:    AllResolvers,
		defaultLimit: DefaultLimit,
		maxLimit:     MaxLimit,
	}
	for _, opt := range opts {
		opt(&o)
	}
	typeName := model.Name
	if o.name != "" {
		typeName = o.name
	}
	if o.sc.Has(typeName) {
		return nil, fmt.Errorf("compose %s: type %s is already registered", model.Name, typeName)
	}

	g := &generator{
		sc:       o.sc,
		model:    model,
		typeName: typeName,
		fields:   selectFields(model, o),
		opts:     o,
	}
	tc := g.outputType()
	for _, name := range o.resolvers {
		r, err := g.resolver(name, coll)
		if err != nil {
			return nil, fmt.Errorf("compose %s: %w", model.Name, err)
		}
		tc.AddResolver(r)
	}
	return tc, nil
}

// selectFields applies WithOnlyFields and WithRemoveFields. _id is always
// kept.
func selectFields(model *docschema.Model, o options) []*docschema.Field {
	var out []*docschema.Field
	for _, f := range model.AllFields() {
		name := f.PublicName()
		if f.Name != docschema.IDField {
			if len(o.onlyFields) > 0 && !slices.Contains(o.onlyFields, name) && !slices.Contains(o.onlyFields, f.Name) {
				continue
			}
			if slices.Contains(o.removeFields, name) || slices.Contains(o.removeFields, f.Name) {
				continue
			}
		}
		out = append(out, f)
	}
	return out
}

// Mount adds the resolvers of tc to the roots of sc as fields named
// prefix + resolver name, e.g. userFindById. Without names every resolver
// is mounted.
func Mount(sc *compose.SchemaComposer, tc *compose.ObjectComposer, prefix string, names ...string) error {
	if len(names) == 0 {
		names = tc.ResolverNames()
	}
	for _, name := range names {
		r, err := tc.GetResolver(name)
		if err != nil {
			return err
		}
		root := sc.Query()
		if r.Kind == compose.KindMutation {
			root = sc.Mutation()
		}
		fieldName := strcase.ToLowerCamel(prefix) + strcase.ToCamel(name)
		if prefix == "" {
			fieldName = name
		}
		root.AddFields(r.Field(fieldName))
	}
	return nil
}
