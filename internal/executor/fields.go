package executor

import (
	"slices"

	"github.com/hanpama/mongograph/internal/language"
	"github.com/hanpama/mongograph/internal/schema"
)

// collectedFieldMap groups field nodes by response name, preserving query order.
type collectedFieldMap struct {
	fields []collectedField
	index  map[string]int
}

type collectedField struct {
	ResponseName string
	Fields       []*language.Field
}

func (cfm *collectedFieldMap) add(responseName string, field *language.Field) {
	if idx, ok := cfm.index[responseName]; ok {
		cfm.fields[idx].Fields = append(cfm.fields[idx].Fields, field)
		return
	}
	cfm.index[responseName] = len(cfm.fields)
	cfm.fields = append(cfm.fields, collectedField{ResponseName: responseName, Fields: []*language.Field{field}})
}

func (cfm *collectedFieldMap) orderedFields() []collectedField { return cfm.fields }

func collectFields(state *executionState, objectType *schema.Type, selectionSet language.SelectionSet) *collectedFieldMap {
	grouped := &collectedFieldMap{index: make(map[string]int)}
	visited := make(map[string]bool)
	collectFieldsInto(state, objectType, selectionSet, grouped, visited)
	return grouped
}

func collectFieldsInto(state *executionState, objectType *schema.Type, selectionSet language.SelectionSet, grouped *collectedFieldMap, visited map[string]bool) {
	for _, selection := range selectionSet {
		switch sel := selection.(type) {
		case *language.Field:
			if !ShouldInclude(sel.Directives, state.variables) {
				continue
			}
			responseName := sel.Alias
			if responseName == "" {
				responseName = sel.Name
			}
			grouped.add(responseName, sel)

		case *language.InlineFragment:
			if !ShouldInclude(sel.Directives, state.variables) {
				continue
			}
			if !DoesFragmentTypeApply(state.schema, objectType, sel.TypeCondition) {
				continue
			}
			collectFieldsInto(state, objectType, sel.SelectionSet, grouped, visited)

		case *language.FragmentSpread:
			if !ShouldInclude(sel.Directives, state.variables) || visited[sel.Name] {
				continue
			}
			visited[sel.Name] = true
			fragment := state.document.Fragments.ForName(sel.Name)
			if fragment == nil || !DoesFragmentTypeApply(state.schema, objectType, fragment.TypeCondition) {
				continue
			}
			collectFieldsInto(state, objectType, fragment.SelectionSet, grouped, visited)
		}
	}
}

// ShouldInclude evaluates @skip and @include against the coerced variables.
func ShouldInclude(directives language.DirectiveList, variables map[string]any) bool {
	if skip := directives.ForName("skip"); skip != nil {
		if v, ok := directiveBool(skip, variables); ok && v {
			return false
		}
	}
	if include := directives.ForName("include"); include != nil {
		if v, ok := directiveBool(include, variables); ok && !v {
			return false
		}
	}
	return true
}

func directiveBool(d *language.Directive, variables map[string]any) (bool, bool) {
	arg := d.Arguments.ForName("if")
	if arg == nil {
		return false, false
	}
	v, ok := valueFromAST(arg.Value, variables).(bool)
	return v, ok
}

// DoesFragmentTypeApply reports whether a fragment with the given type
// condition applies to objectType. Interface and union conditions match
// their implementations and members.
func DoesFragmentTypeApply(sch *schema.Schema, objectType *schema.Type, condition string) bool {
	if condition == "" || condition == objectType.Name {
		return true
	}
	conditionType := sch.Types[condition]
	if conditionType == nil {
		return false
	}
	return isPossibleType(sch, conditionType, objectType)
}

func isPossibleType(sch *schema.Schema, abstractType, objectType *schema.Type) bool {
	switch abstractType.Kind {
	case schema.TypeKindObject:
		return abstractType.Name == objectType.Name
	case schema.TypeKindUnion:
		return slices.Contains(abstractType.PossibleTypes, objectType.Name)
	case schema.TypeKindInterface:
		if slices.Contains(objectType.Interfaces, abstractType.Name) {
			return true
		}
		return slices.Contains(abstractType.PossibleTypes, objectType.Name)
	}
	return false
}
