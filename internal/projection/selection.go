package projection

import (
	"github.com/hanpama/mongograph/internal/executor"
	"github.com/hanpama/mongograph/internal/language"
	"github.com/hanpama/mongograph/internal/schema"
)

// FieldHint tells the walker how a GraphQL field maps onto storage.
type FieldHint struct {
	// StorageKey is the key in the stored document; empty means the field name.
	StorageKey string
	// Nested fields descend: their sub-selection maps to StorageKey.<child>.
	Nested bool
	// Computed fields have no storage key of their own.
	Computed bool
	// Requires lists storage paths, relative to the parent, the field reads.
	// A "*" entry loads the whole document.
	Requires []string
}

// Hints looks up the hint of a field. A missing hint maps the field to the
// storage key of the same name.
type Hints interface {
	FieldHint(typeName, fieldName string) (FieldHint, bool)
}

// HintMap is a Hints keyed by "Type.field".
type HintMap map[string]FieldHint

func (m HintMap) FieldHint(typeName, fieldName string) (FieldHint, bool) {
	h, ok := m[typeName+"."+fieldName]
	return h, ok
}

// FromSelection computes the projection for the sub-selection of the field
// described by info, whose values are documents of type typeName.
func FromSelection(sch *schema.Schema, info *executor.ResolveInfo, typeName string, hints Hints) Projection {
	if info == nil {
		return Full
	}
	var sel language.SelectionSet
	for _, f := range info.Fields {
		sel = append(sel, f.SelectionSet...)
	}
	return FromSelectionSet(sch, sel, info.Fragments, info.Variables, typeName, hints)
}

// FromSelectionSet is FromSelection over an explicit selection set.
func FromSelectionSet(sch *schema.Schema, sel language.SelectionSet, fragments language.FragmentDefinitionList, variables map[string]any, typeName string, hints Hints) Projection {
	w := &walker{
		schema:    sch,
		fragments: fragments,
		variables: variables,
		hints:     hints,
	}
	w.walk(typeName, "", sel, make(map[string]bool))
	if w.all {
		return Full
	}
	return Of(w.paths...)
}

// SubSelection returns the field nodes selected under the given field name
// across fields, e.g. the "record" field of a mutation payload.
func SubSelection(fields []*language.Field, name string) []*language.Field {
	var out []*language.Field
	for _, f := range fields {
		for _, s := range f.SelectionSet {
			if sf, ok := s.(*language.Field); ok && sf.Name == name {
				out = append(out, sf)
			}
		}
	}
	return out
}

type walker struct {
	schema    *schema.Schema
	fragments language.FragmentDefinitionList
	variables map[string]any
	hints     Hints
	paths     []string
	all       bool
}

func (w *walker) add(path string) { w.paths = append(w.paths, path) }

func (w *walker) walk(typeName, prefix string, sel language.SelectionSet, visited map[string]bool) {
	typ := w.schema.Types[typeName]
	if typ == nil {
		w.all = true
		return
	}
	for _, s := range sel {
		if w.all {
			return
		}
		switch s := s.(type) {
		case *language.Field:
			if !executor.ShouldInclude(s.Directives, w.variables) {
				continue
			}
			w.field(typ, prefix, s, visited)
		case *language.InlineFragment:
			if !executor.ShouldInclude(s.Directives, w.variables) || !executor.DoesFragmentTypeApply(w.schema, typ, s.TypeCondition) {
				continue
			}
			w.walk(typeName, prefix, s.SelectionSet, visited)
		case *language.FragmentSpread:
			if !executor.ShouldInclude(s.Directives, w.variables) || visited[s.Name] {
				continue
			}
			frag := w.fragments.ForName(s.Name)
			if frag == nil || !executor.DoesFragmentTypeApply(w.schema, typ, frag.TypeCondition) {
				continue
			}
			visited[s.Name] = true
			w.walk(typeName, prefix, frag.SelectionSet, visited)
			delete(visited, s.Name)
		}
	}
}

func (w *walker) field(typ *schema.Type, prefix string, f *language.Field, visited map[string]bool) {
	if f.Name == "__typename" {
		return
	}
	def := typ.FieldByName(f.Name)
	if def == nil {
		return
	}
	hint, ok := FieldHint{}, false
	if w.hints != nil {
		hint, ok = w.hints.FieldHint(typ.Name, f.Name)
	}
	for _, req := range hint.Requires {
		if req == "*" {
			w.all = true
			return
		}
		w.add(prefix + req)
	}
	if hint.Computed {
		return
	}
	key := f.Name
	if ok && hint.StorageKey != "" {
		key = hint.StorageKey
	}
	child := w.schema.Types[schema.GetNamedType(def.Type)]
	if !hint.Nested || child == nil || child.Kind != schema.TypeKindObject {
		w.add(prefix + key)
		return
	}
	before := len(w.paths)
	w.walk(child.Name, prefix+key+".", f.SelectionSet, visited)
	if len(w.paths) == before {
		w.add(prefix + key)
	}
}
