package compose

import (
	"context"

	"github.com/hanpama/mongograph/internal/executor"
	"github.com/hanpama/mongograph/internal/language"
	"github.com/hanpama/mongograph/internal/projection"
)

// ResolverKind tells which root type a resolver belongs on.
type ResolverKind string

const (
	KindQuery    ResolverKind = "query"
	KindMutation ResolverKind = "mutation"
)

// ResolveParams is one invocation of a resolver.
type ResolveParams struct {
	// Source is the parent value; nil on root fields.
	Source any
	// Args are the coerced arguments with enum names replaced by their
	// internal values.
	Args map[string]any
	Info *executor.ResolveInfo

	hints projection.Hints
}

// Projection returns the storage projection needed to complete documents
// of type typeName against the selection of the resolved field.
func (p ResolveParams) Projection(typeName string) projection.Projection {
	if p.Info == nil {
		return projection.Full
	}
	return projection.FromSelection(p.Info.Schema, p.Info, typeName, p.hints)
}

// SubProjection is Projection for the selection of the named child field,
// e.g. the record of a mutation payload.
func (p ResolveParams) SubProjection(field, typeName string) projection.Projection {
	if p.Info == nil {
		return projection.Full
	}
	var sel language.SelectionSet
	for _, f := range projection.SubSelection(p.Info.Fields, field) {
		sel = append(sel, f.SelectionSet...)
	}
	return projection.FromSelectionSet(p.Info.Schema, sel, p.Info.Fragments, p.Info.Variables, typeName, p.hints)
}

// ResolveFn resolves a single invocation.
type ResolveFn func(ctx context.Context, p ResolveParams) (any, error)

// BatchResolveFn resolves every invocation of one depth in a single call.
// It must return exactly one result per param, in order.
type BatchResolveFn func(ctx context.Context, ps []ResolveParams) []executor.AsyncResolveResult

// Resolver is a named, reusable data fetcher that can be mounted as a
// field, typically on Query or Mutation.
type Resolver struct {
	Name        string
	Type        string
	Description string
	Args        []*Arg
	Kind        ResolverKind
	Resolve     ResolveFn
	// BatchResolve takes precedence over Resolve when set.
	BatchResolve BatchResolveFn
}

// Field returns a field config that mounts r under name.
func (r *Resolver) Field(name string) *FieldConfig {
	return &FieldConfig{
		Name:        name,
		Type:        r.Type,
		Description: r.Description,
		Args:        r.Args,
		Resolver:    r,
	}
}

// Arg returns the named argument or nil.
func (r *Resolver) Arg(name string) *Arg {
	for _, a := range r.Args {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// Wrap returns a copy of r named name whose Resolve passes through fn.
// BatchResolve is dropped from the copy.
func (r *Resolver) Wrap(name string, fn func(next ResolveFn) ResolveFn) *Resolver {
	next := r.Resolve
	if next == nil && r.BatchResolve != nil {
		batch := r.BatchResolve
		next = func(ctx context.Context, p ResolveParams) (any, error) {
			res := batch(ctx, []ResolveParams{p})
			return res[0].Value, res[0].Error
		}
	}
	c := *r
	c.Name = name
	c.Resolve = fn(next)
	c.BatchResolve = nil
	return &c
}
