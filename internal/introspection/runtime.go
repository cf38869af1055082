// Package introspection serves __schema and __type on top of another
// executor.Runtime.
package introspection

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hanpama/mongograph/internal/executor"
	"github.com/hanpama/mongograph/internal/schema"
)

// IntrospectionWrapper pairs the wrapping runtime with the extended schema
// it must be executed against.
type IntrospectionWrapper struct {
	Runtime executor.Runtime
	Schema  *schema.Schema
}

// Wrap returns a Runtime that serves __schema and __type on top of base.
// sch is not modified; the returned Schema is an extended copy.
func Wrap(base executor.Runtime, sch *schema.Schema) *IntrospectionWrapper {
	ext := extend(sch)
	return &IntrospectionWrapper{
		Runtime: &runtime{base: base, queryType: ext.QueryType, described: sch},
		Schema:  ext,
	}
}

type runtime struct {
	base      executor.Runtime
	queryType string
	// described is the schema reported by introspection, without the
	// meta types.
	described *schema.Schema
}

// typeView is the value behind a __Type: either a named definition or a
// LIST / NON_NULL wrapper.
type typeView struct {
	def     *schema.Type
	wrapper *schema.TypeRef
}

func (r *runtime) ResolveSync(ctx context.Context, objectType, field string, source any, args map[string]any) (any, error) {
	switch objectType {
	case "__Schema":
		s, err := sourceAs[*schema.Schema](objectType, source)
		if err != nil {
			return nil, err
		}
		return r.schemaField(s, field), nil
	case "__Type":
		t, err := sourceAs[typeView](objectType, source)
		if err != nil {
			return nil, err
		}
		return r.typeField(t, field, args), nil
	case "__Field":
		f, err := sourceAs[*schema.Field](objectType, source)
		if err != nil {
			return nil, err
		}
		return r.fieldField(f, field, args), nil
	case "__InputValue":
		iv, err := sourceAs[*schema.InputValue](objectType, source)
		if err != nil {
			return nil, err
		}
		return r.inputValueField(iv, field), nil
	case "__EnumValue":
		ev, err := sourceAs[*schema.EnumValue](objectType, source)
		if err != nil {
			return nil, err
		}
		switch field {
		case "name":
			return ev.Name, nil
		case "description":
			return optional(ev.Description), nil
		case "isDeprecated":
			return ev.IsDeprecated, nil
		case "deprecationReason":
			return reason(ev.IsDeprecated, ev.DeprecationReason), nil
		}
		return nil, nil
	case "__Directive":
		d, err := sourceAs[*schema.Directive](objectType, source)
		if err != nil {
			return nil, err
		}
		return r.directiveField(d, field, args), nil
	case r.queryType:
		switch field {
		case "__schema":
			return r.described, nil
		case "__type":
			name, _ := args["name"].(string)
			return r.named(name), nil
		}
	}
	return r.base.ResolveSync(ctx, objectType, field, source, args)
}

func (r *runtime) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	return r.base.BatchResolveAsync(ctx, tasks)
}

func (r *runtime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	return r.base.ResolveType(ctx, abstractType, value)
}

func (r *runtime) SerializeLeafValue(ctx context.Context, typ string, value any) (any, error) {
	if !strings.HasPrefix(typ, "__") {
		return r.base.SerializeLeafValue(ctx, typ, value)
	}
	switch v := value.(type) {
	case schema.TypeKind:
		return string(v), nil
	case schema.TypeRefKind:
		return string(v), nil
	}
	return value, nil
}

func (r *runtime) schemaField(s *schema.Schema, field string) any {
	switch field {
	case "description":
		return optional(s.Description)
	case "types":
		names := make([]string, 0, len(s.Types))
		for name := range s.Types {
			names = append(names, name)
		}
		sort.Strings(names)
		return r.views(names)
	case "queryType":
		return r.named(s.QueryType)
	case "mutationType":
		return r.named(s.MutationType)
	case "subscriptionType":
		return r.named(s.SubscriptionType)
	case "directives":
		out := make([]*schema.Directive, 0, len(s.Directives))
		for _, d := range s.Directives {
			out = append(out, d)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return out
	}
	return nil
}

func (r *runtime) typeField(t typeView, field string, args map[string]any) any {
	if t.wrapper != nil {
		switch field {
		case "kind":
			return t.wrapper.Kind
		case "ofType":
			return r.ref(t.wrapper.OfType)
		}
		return nil
	}
	def := t.def
	switch field {
	case "kind":
		return def.Kind
	case "name":
		return def.Name
	case "description":
		return optional(def.Description)
	case "specifiedByURL":
		if def.SpecifiedByURL == nil {
			return nil
		}
		return *def.SpecifiedByURL
	case "fields":
		if def.Kind != schema.TypeKindObject && def.Kind != schema.TypeKindInterface {
			return nil
		}
		return visible(def.Fields, args, func(f *schema.Field) bool { return f.IsDeprecated })
	case "interfaces":
		if def.Kind != schema.TypeKindObject && def.Kind != schema.TypeKindInterface {
			return nil
		}
		return r.views(def.Interfaces)
	case "possibleTypes":
		if def.Kind != schema.TypeKindInterface && def.Kind != schema.TypeKindUnion {
			return nil
		}
		return r.views(def.PossibleTypes)
	case "enumValues":
		if def.Kind != schema.TypeKindEnum {
			return nil
		}
		return visible(def.EnumValues, args, func(v *schema.EnumValue) bool { return v.IsDeprecated })
	case "inputFields":
		if def.Kind != schema.TypeKindInputObject {
			return nil
		}
		return visible(def.InputFields, args, func(v *schema.InputValue) bool { return v.IsDeprecated })
	case "isOneOf":
		return def.OneOf
	}
	return nil
}

func (r *runtime) fieldField(f *schema.Field, field string, args map[string]any) any {
	switch field {
	case "name":
		return f.Name
	case "description":
		return optional(f.Description)
	case "args":
		return visible(f.Arguments, args, func(v *schema.InputValue) bool { return v.IsDeprecated })
	case "type":
		return r.ref(f.Type)
	case "isDeprecated":
		return f.IsDeprecated
	case "deprecationReason":
		return reason(f.IsDeprecated, f.DeprecationReason)
	}
	return nil
}

func (r *runtime) inputValueField(iv *schema.InputValue, field string) any {
	switch field {
	case "name":
		return iv.Name
	case "description":
		return optional(iv.Description)
	case "type":
		return r.ref(iv.Type)
	case "defaultValue":
		if iv.DefaultValue == nil {
			return nil
		}
		return schema.RenderValue(iv.DefaultValue)
	case "isDeprecated":
		return iv.IsDeprecated
	case "deprecationReason":
		return reason(iv.IsDeprecated, iv.DeprecationReason)
	}
	return nil
}

func (r *runtime) directiveField(d *schema.Directive, field string, args map[string]any) any {
	switch field {
	case "name":
		return d.Name
	case "description":
		return optional(d.Description)
	case "isRepeatable":
		return d.IsRepeatable
	case "locations":
		locs := make([]any, len(d.Locations))
		for i, l := range d.Locations {
			locs[i] = string(l)
		}
		return locs
	case "args":
		return visible(d.Arguments, args, func(v *schema.InputValue) bool { return v.IsDeprecated })
	}
	return nil
}

// named returns the __Type value of a type of the described schema, or nil.
func (r *runtime) named(name string) any {
	def := r.described.Types[name]
	if name == "" || def == nil {
		return nil
	}
	return typeView{def: def}
}

func (r *runtime) ref(tr *schema.TypeRef) any {
	switch {
	case tr == nil:
		return nil
	case tr.Kind == schema.TypeRefKindNamed:
		return r.named(tr.Named)
	}
	return typeView{wrapper: tr}
}

// views resolves names, skipping those the schema does not define.
func (r *runtime) views(names []string) []any {
	out := make([]any, 0, len(names))
	for _, name := range names {
		if v := r.named(name); v != nil {
			out = append(out, v)
		}
	}
	return out
}

// visible keeps items in declaration order, dropping deprecated ones unless
// includeDeprecated is set.
func visible[T any](items []T, args map[string]any, deprecated func(T) bool) []T {
	all, _ := args["includeDeprecated"].(bool)
	out := make([]T, 0, len(items))
	for _, it := range items {
		if all || !deprecated(it) {
			out = append(out, it)
		}
	}
	return out
}

func sourceAs[T any](objectType string, source any) (T, error) {
	v, ok := source.(T)
	if !ok {
		return v, fmt.Errorf("introspection: unexpected %T as %s", source, objectType)
	}
	return v, nil
}

func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func reason(deprecated bool, why string) any {
	if !deprecated {
		return nil
	}
	return why
}
