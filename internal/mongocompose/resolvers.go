package mongocompose

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iancoleman/strcase"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/hanpama/mongograph/internal/compose"
	"github.com/hanpama/mongograph/internal/docschema"
	"github.com/hanpama/mongograph/internal/executor"
	"github.com/hanpama/mongograph/internal/projection"
	"github.com/hanpama/mongograph/internal/store"
)

func (g *generator) resolver(name string, coll store.Collection) (*compose.Resolver, error) {
	switch name {
	case FindByID:
		return g.findByID(coll), nil
	case FindByIDs:
		return g.findByIDs(coll), nil
	case FindOne:
		return g.findOne(coll), nil
	case FindMany:
		return g.findMany(coll), nil
	case Count:
		return g.count(coll), nil
	case CreateOne:
		return g.createOne(coll), nil
	case UpdateByID:
		return g.updateByID(coll), nil
	case RemoveByID:
		return g.removeByID(coll), nil
	}
	return nil, fmt.Errorf("unknown resolver %q", name)
}

// findByID batches every call of one depth into a single FindByIDs with the
// merged projection of the calls.
func (g *generator) findByID(coll store.Collection) *compose.Resolver {
	return &compose.Resolver{
		Name: FindByID,
		Type: g.typeName,
		Kind: compose.KindQuery,
		Args: []*compose.Arg{{Name: "_id", Type: "MongoID!"}},
		BatchResolve: func(ctx context.Context, ps []compose.ResolveParams) []executor.AsyncResolveResult {
			results := make([]executor.AsyncResolveResult, len(ps))
			ids := make([]bson.ObjectID, 0, len(ps))
			seen := make(map[bson.ObjectID]bool, len(ps))
			var proj projection.Projection
			for i, p := range ps {
				id, ok := p.Args["_id"].(bson.ObjectID)
				if !ok {
					results[i].Error = fmt.Errorf("%w of type %T", store.ErrInvalidID, p.Args["_id"])
					continue
				}
				proj = proj.Merge(p.Projection(g.typeName))
				if !seen[id] {
					seen[id] = true
					ids = append(ids, id)
				}
			}
			if len(ids) == 0 {
				return results
			}
			docs, err := coll.FindByIDs(ctx, ids, proj)
			if err != nil {
				for i := range results {
					if results[i].Error == nil {
						results[i].Error = err
					}
				}
				return results
			}
			byID := indexByID(docs)
			for i, p := range ps {
				if results[i].Error != nil {
					continue
				}
				if d, ok := byID[p.Args["_id"].(bson.ObjectID)]; ok {
					results[i].Value = d
				}
			}
			return results
		},
	}
}

func (g *generator) findByIDs(coll store.Collection) *compose.Resolver {
	return &compose.Resolver{
		Name: FindByIDs,
		Type: "[" + g.typeName + "!]!",
		Kind: compose.KindQuery,
		Args: []*compose.Arg{
			{Name: "_ids", Type: "[MongoID!]!"},
			{Name: "limit", Type: "Int", Default: g.opts.defaultLimit},
		},
		Resolve: func(ctx context.Context, p compose.ResolveParams) (any, error) {
			raw, _ := p.Args["_ids"].([]any)
			ids, err := store.ParseIDs(raw)
			if err != nil {
				return nil, err
			}
			if limit := g.limit(p.Args); len(ids) > limit {
				ids = ids[:limit]
			}
			docs, err := coll.FindByIDs(ctx, ids, p.Projection(g.typeName))
			if err != nil {
				return nil, err
			}
			byID := indexByID(docs)
			out := make([]any, 0, len(ids))
			for _, id := range ids {
				if d, ok := byID[id]; ok {
					out = append(out, d)
				}
			}
			return out, nil
		},
	}
}

func (g *generator) findOne(coll store.Collection) *compose.Resolver {
	return &compose.Resolver{
		Name: FindOne,
		Type: g.typeName,
		Kind: compose.KindQuery,
		Args: []*compose.Arg{
			{Name: "filter", Type: g.filterInput(FindOne)},
			{Name: "skip", Type: "Int"},
			{Name: "sort", Type: g.sortEnum(FindOne)},
		},
		Resolve: func(ctx context.Context, p compose.ResolveParams) (any, error) {
			q, err := g.query(p.Args)
			if err != nil {
				return nil, err
			}
			d, err := coll.FindOne(ctx, q, p.Projection(g.typeName))
			if errors.Is(err, store.ErrNotFound) {
				return nil, nil
			}
			if err != nil {
				return nil, err
			}
			return d, nil
		},
	}
}

func (g *generator) findMany(coll store.Collection) *compose.Resolver {
	return &compose.Resolver{
		Name: FindMany,
		Type: "[" + g.typeName + "!]!",
		Kind: compose.KindQuery,
		Args: []*compose.Arg{
			{Name: "filter", Type: g.filterInput(FindMany)},
			{Name: "skip", Type: "Int"},
			{Name: "limit", Type: "Int", Default: g.opts.defaultLimit},
			{Name: "sort", Type: g.sortEnum(FindMany)},
		},
		Resolve: func(ctx context.Context, p compose.ResolveParams) (any, error) {
			q, err := g.query(p.Args)
			if err != nil {
				return nil, err
			}
			q.Limit = int64(g.limit(p.Args))
			docs, err := coll.Find(ctx, q, p.Projection(g.typeName))
			if err != nil {
				return nil, err
			}
			out := make([]any, len(docs))
			for i, d := range docs {
				out[i] = d
			}
			return out, nil
		},
	}
}

func (g *generator) count(coll store.Collection) *compose.Resolver {
	return &compose.Resolver{
		Name: Count,
		Type: "Int",
		Kind: compose.KindQuery,
		Args: []*compose.Arg{{Name: "filter", Type: g.filterInput(Count)}},
		Resolve: func(ctx context.Context, p compose.ResolveParams) (any, error) {
			filter, err := g.filter(p.Args["filter"])
			if err != nil {
				return nil, err
			}
			n, err := coll.Count(ctx, filter)
			if err != nil {
				return nil, err
			}
			return int(n), nil
		},
	}
}

func (g *generator) createOne(coll store.Collection) *compose.Resolver {
	return &compose.Resolver{
		Name: CreateOne,
		Type: g.payloadType(CreateOne),
		Kind: compose.KindMutation,
		Args: []*compose.Arg{{Name: "record", Type: g.recordInput(strcase.ToCamel(CreateOne)+g.typeName+"Input", true) + "!"}},
		Resolve: func(ctx context.Context, p compose.ResolveParams) (any, error) {
			record, _ := p.Args["record"].(map[string]any)
			doc := g.withDefaults(g.toStorage(g.fields, record))
			if g.model.Timestamps {
				now := time.Now().UTC()
				doc["createdAt"] = now
				doc["updatedAt"] = now
			}
			id, err := coll.InsertOne(ctx, doc)
			if err != nil {
				return nil, err
			}
			return g.payload(ctx, coll, id, p)
		},
	}
}

func (g *generator) updateByID(coll store.Collection) *compose.Resolver {
	return &compose.Resolver{
		Name: UpdateByID,
		Type: g.payloadType(UpdateByID),
		Kind: compose.KindMutation,
		Args: []*compose.Arg{
			{Name: "_id", Type: "MongoID!"},
			{Name: "record", Type: g.recordInput(strcase.ToCamel(UpdateByID)+g.typeName+"Input", false) + "!"},
		},
		Resolve: func(ctx context.Context, p compose.ResolveParams) (any, error) {
			id, err := store.IDOf(p.Args["_id"])
			if err != nil {
				return nil, err
			}
			record, _ := p.Args["record"].(map[string]any)
			set := store.Document{}
			flatten(set, "", g.fields, g.toStorage(g.fields, record))
			if g.model.Timestamps {
				set["updatedAt"] = time.Now().UTC()
			}
			d, err := coll.UpdateByID(ctx, id, set, p.SubProjection("record", g.typeName))
			if errors.Is(err, store.ErrNotFound) {
				return nil, fmt.Errorf("%s %s: %w", g.typeName, id.Hex(), err)
			}
			if err != nil {
				return nil, err
			}
			return map[string]any{"recordId": id, "record": d}, nil
		},
	}
}

func (g *generator) removeByID(coll store.Collection) *compose.Resolver {
	return &compose.Resolver{
		Name: RemoveByID,
		Type: g.payloadType(RemoveByID),
		Kind: compose.KindMutation,
		Args: []*compose.Arg{{Name: "_id", Type: "MongoID!"}},
		Resolve: func(ctx context.Context, p compose.ResolveParams) (any, error) {
			id, err := store.IDOf(p.Args["_id"])
			if err != nil {
				return nil, err
			}
			d, err := coll.DeleteByID(ctx, id)
			if errors.Is(err, store.ErrNotFound) {
				return nil, fmt.Errorf("%s %s: %w", g.typeName, id.Hex(), err)
			}
			if err != nil {
				return nil, err
			}
			return map[string]any{"recordId": id, "record": d}, nil
		},
	}
}

// payload reads the record back with the projection of its selection.
func (g *generator) payload(ctx context.Context, coll store.Collection, id bson.ObjectID, p compose.ResolveParams) (any, error) {
	d, err := coll.FindByID(ctx, id, p.SubProjection("record", g.typeName))
	if err != nil {
		return nil, err
	}
	return map[string]any{"recordId": id, "record": d}, nil
}

func (g *generator) limit(args map[string]any) int {
	limit := g.opts.defaultLimit
	if v, ok := args["limit"].(int); ok && v > 0 {
		limit = v
	}
	if g.opts.maxLimit > 0 && limit > g.opts.maxLimit {
		limit = g.opts.maxLimit
	}
	return limit
}

func (g *generator) query(args map[string]any) (store.Query, error) {
	filter, err := g.filter(args["filter"])
	if err != nil {
		return store.Query{}, err
	}
	q := store.Query{Filter: filter}
	if v, ok := args["skip"].(int); ok && v > 0 {
		q.Skip = int64(v)
	}
	if s, ok := args["sort"].(store.SortField); ok {
		q.Sort = []store.SortField{s}
	}
	return q, nil
}

// filter converts a filter input into a storage filter. _ids becomes an In
// match on _id unless _id itself is given.
func (g *generator) filter(v any) (store.Filter, error) {
	in, _ := v.(map[string]any)
	filter := store.Filter{}
	for name, value := range in {
		if value == nil {
			continue
		}
		if name == "_ids" {
			continue
		}
		filter[g.model.StorageKey(name)] = value
	}
	if raw, ok := in["_ids"].([]any); ok {
		if _, set := filter[docschema.IDField]; !set {
			ids, err := store.ParseIDs(raw)
			if err != nil {
				return nil, err
			}
			members := make(store.In, len(ids))
			for i, id := range ids {
				members[i] = id
			}
			filter[docschema.IDField] = members
		}
	}
	return filter, nil
}

// toStorage renames the keys of a record input from public names to
// storage keys, recursing into object fields and arrays of objects.
func (g *generator) toStorage(fields []*docschema.Field, record map[string]any) map[string]any {
	out := make(map[string]any, len(record))
	for name, v := range record {
		f := fieldByPublicName(fields, name)
		if f == nil {
			out[name] = v
			continue
		}
		out[f.Name] = g.valueToStorage(f, v)
	}
	return out
}

func (g *generator) valueToStorage(f *docschema.Field, v any) any {
	switch f.Kind {
	case docschema.Array:
		items, ok := v.([]any)
		if !ok {
			return v
		}
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = g.valueToStorage(f.Of, item)
		}
		return out
	case docschema.Nested, docschema.Embedded:
		if m, ok := v.(map[string]any); ok {
			return g.toStorage(f.Fields, m)
		}
	}
	return v
}

// withDefaults fills declared defaults of absent top-level fields.
func (g *generator) withDefaults(doc map[string]any) map[string]any {
	for _, f := range g.fields {
		if f.Default == nil {
			continue
		}
		if _, ok := doc[f.Name]; !ok {
			doc[f.Name] = f.Default
		}
	}
	return doc
}

// flatten writes the dotted paths of doc into set so updating a Nested
// field keeps its unspecified leaves. Embedded and array values replace
// the stored value as a whole.
func flatten(set store.Document, prefix string, fields []*docschema.Field, doc map[string]any) {
	for key, v := range doc {
		path := prefix + key
		f := fieldByName(fields, key)
		if m, ok := v.(map[string]any); ok && f != nil && f.Kind == docschema.Nested {
			flatten(set, path+".", f.Fields, m)
			continue
		}
		set[path] = v
	}
}

func fieldByPublicName(fields []*docschema.Field, name string) *docschema.Field {
	for _, f := range fields {
		if f.PublicName() == name {
			return f
		}
	}
	return nil
}

func fieldByName(fields []*docschema.Field, name string) *docschema.Field {
	for _, f := range fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func indexByID(docs []store.Document) map[bson.ObjectID]store.Document {
	out := make(map[bson.ObjectID]store.Document, len(docs))
	for _, d := range docs {
		if id, ok := d[docschema.IDField].(bson.ObjectID); ok {
			out[id] = d
		}
	}
	return out
}
