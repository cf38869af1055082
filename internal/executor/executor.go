package executor

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/hanpama/mongograph/internal/language"
	"github.com/hanpama/mongograph/internal/schema"
)

type Path []PathElement

type PathElement any

// String renders the path as "a.b[0].c".
func (p Path) String() string {
	var b strings.Builder
	for i, elem := range p {
		switch v := elem.(type) {
		case string:
			if i > 0 {
				b.WriteByte('.')
			}
			b.WriteString(v)
		case int:
			b.WriteString("[" + strconv.Itoa(v) + "]")
		}
	}
	return b.String()
}

type executionState struct {
	ctx       context.Context
	runtime   Runtime
	schema    *schema.Schema
	document  *language.QueryDocument
	variables map[string]any
	errors    []GraphQLError

	pending []asyncTask

	// nullable records response paths whose declared type admits null.
	nullable map[string]bool
	// tombstones are paths already replaced by null during propagation.
	tombstones map[string]struct{}
	// dataNull is set when null propagation reaches the root.
	dataNull bool
}

type asyncTask struct {
	task   AsyncResolveTask
	path   Path
	typ    *schema.TypeRef
	fields []*language.Field
}

// asyncPending marks a response slot that is filled by a later batch.
type asyncPending struct{}

type Executor struct {
	runtime   Runtime
	schema    *schema.Schema
	validator *language.Validator
}

type Option func(*Executor)

// WithValidator rejects documents that violate v before any field runs.
func WithValidator(v *language.Validator) Option {
	return func(e *Executor) { e.validator = v }
}

func NewExecutor(runtime Runtime, schema *schema.Schema, opts ...Option) *Executor {
	e := &Executor{runtime: runtime, schema: schema}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Schema returns the schema the executor was built with.
func (e *Executor) Schema() *schema.Schema { return e.schema }

func (e *Executor) ExecuteRequest(
	ctx context.Context,
	document *language.QueryDocument,
	operationName string,
	variableValues map[string]any,
	initialValue any,
) *ExecutionResult {
	if e.validator != nil {
		if errs := e.validator.Validate(document); len(errs) > 0 {
			return &ExecutionResult{Errors: documentErrors(errs)}
		}
	}

	operation, err := getOperation(document, operationName)
	if err != nil {
		return &ExecutionResult{Errors: []GraphQLError{{Message: err.Error()}}}
	}

	variables, err := coerceVariableValues(e.schema, operation, variableValues)
	if err != nil {
		return &ExecutionResult{Errors: []GraphQLError{{Message: err.Error()}}}
	}

	var rootType *schema.Type
	switch operation.Operation {
	case language.Query:
		rootType = e.schema.GetQueryType()
	case language.Mutation:
		rootType = e.schema.GetMutationType()
	case language.Subscription:
		rootType = e.schema.GetSubscriptionType()
	default:
		return &ExecutionResult{Errors: []GraphQLError{{Message: fmt.Sprintf("unsupported operation type: %s", operation.Operation)}}}
	}
	if rootType == nil {
		return &ExecutionResult{Errors: []GraphQLError{{Message: fmt.Sprintf("schema does not support %s operations", operation.Operation)}}}
	}

	state := &executionState{
		ctx:        ctx,
		runtime:    e.runtime,
		schema:     e.schema,
		document:   document,
		variables:  variables,
		nullable:   make(map[string]bool),
		tombstones: make(map[string]struct{}),
	}

	data := executeSelectionSet(state, rootType, operation.SelectionSet, initialValue, Path{})
	if data == nil {
		return &ExecutionResult{Data: nil, Errors: state.errors}
	}

	// Every iteration resolves exactly one async depth.
	for len(state.pending) > 0 && !state.dataNull {
		tasks, results := flushAsyncTasks(state)
		for i, res := range results {
			completeAsyncField(state, tasks[i], res, data)
			if state.dataNull {
				break
			}
		}
	}

	if state.dataNull {
		return &ExecutionResult{Data: nil, Errors: state.errors}
	}
	return &ExecutionResult{Data: data, Errors: state.errors}
}

// executeSelectionSet executes the sync part of a selection set and queues
// async fields. A nil result means a Non-Null child nulled the whole object.
func executeSelectionSet(state *executionState, objectType *schema.Type, selectionSet language.SelectionSet, objectValue any, path Path) map[string]any {
	result := make(map[string]any)

	for _, cf := range collectFields(state, objectType, selectionSet).orderedFields() {
		fieldPath := appendPath(path, cf.ResponseName)
		name := cf.Fields[0].Name

		if name == "__typename" {
			result[cf.ResponseName] = objectType.Name
			continue
		}

		fieldDef := objectType.FieldByName(name)
		if fieldDef == nil {
			state.addError(fmt.Sprintf("Cannot query field %q on type %q", name, objectType.Name), fieldPath)
			continue
		}
		if !schema.IsNonNull(fieldDef.Type) {
			state.nullable[fieldPath.String()] = true
		}

		value := executeField(state, objectType, fieldDef, objectValue, cf.Fields, fieldPath)
		if _, ok := value.(asyncPending); ok {
			result[cf.ResponseName] = value
			continue
		}
		if isNullish(value) {
			if schema.IsNonNull(fieldDef.Type) {
				state.tombstone(path)
				return nil
			}
			value = nil
		}
		result[cf.ResponseName] = value
	}

	return result
}

func executeField(state *executionState, objectType *schema.Type, fieldDef *schema.Field, objectValue any, fields []*language.Field, path Path) any {
	args, ok := coerceArgumentValues(state, fieldDef, fields[0].Arguments, path)
	if !ok {
		return nil
	}

	if !fieldDef.Async {
		value, err := state.runtime.ResolveSync(state.ctx, objectType.Name, fieldDef.Name, objectValue, args)
		if err != nil {
			state.addError(err.Error(), path)
			return nil
		}
		return completeValue(state, fieldDef.Type, fields, value, path)
	}

	state.pending = append(state.pending, asyncTask{
		task: AsyncResolveTask{
			ObjectType: objectType.Name,
			Field:      fieldDef.Name,
			Source:     objectValue,
			Args:       args,
			Info: &ResolveInfo{
				ParentType: objectType.Name,
				FieldName:  fieldDef.Name,
				ReturnType: fieldDef.Type,
				Fields:     fields,
				Fragments:  state.document.Fragments,
				Variables:  state.variables,
				Path:       path,
				Schema:     state.schema,
			},
		},
		path:   path,
		typ:    fieldDef.Type,
		fields: fields,
	})
	return asyncPending{}
}

// flushAsyncTasks drops tasks under tombstoned paths and resolves the rest in one batch.
func flushAsyncTasks(state *executionState) ([]asyncTask, []AsyncResolveResult) {
	live := make([]asyncTask, 0, len(state.pending))
	for _, at := range state.pending {
		if !state.isTombstoned(at.path) {
			live = append(live, at)
		}
	}
	state.pending = nil
	if len(live) == 0 {
		return nil, nil
	}

	tasks := make([]AsyncResolveTask, len(live))
	for i, at := range live {
		tasks[i] = at.task
	}
	results := state.runtime.BatchResolveAsync(state.ctx, tasks)
	if len(results) != len(tasks) {
		fixed := make([]AsyncResolveResult, len(tasks))
		for i := range fixed {
			if i < len(results) {
				fixed[i] = results[i]
			} else {
				fixed[i] = AsyncResolveResult{Error: fmt.Errorf("runtime returned %d results for %d tasks", len(results), len(tasks))}
			}
		}
		results = fixed
	}
	return live, results
}

func completeAsyncField(state *executionState, at asyncTask, res AsyncResolveResult, data map[string]any) {
	if state.isTombstoned(at.path) {
		return
	}

	if res.Error != nil {
		state.addError(res.Error.Error(), at.path)
		if schema.IsNonNull(at.typ) {
			state.propagateNull(at.path, data)
			return
		}
		setValueAtPath(data, at.path, nil)
		return
	}

	completed := completeValue(state, at.typ, at.fields, res.Value, at.path)
	if isNullish(completed) {
		if schema.IsNonNull(at.typ) {
			state.propagateNull(at.path, data)
			return
		}
		completed = nil
	}
	setValueAtPath(data, at.path, completed)
}

// propagateNull nulls the nearest nullable ancestor of path (exclusive) and
// tombstones it. Reaching the root nulls the whole response.
func (s *executionState) propagateNull(path Path, data map[string]any) {
	for i := len(path) - 1; i > 0; i-- {
		ancestor := path[:i]
		if s.nullable[ancestor.String()] {
			setValueAtPath(data, ancestor, nil)
			s.tombstone(ancestor)
			return
		}
	}
	s.dataNull = true
}

func completeValue(state *executionState, fieldType *schema.TypeRef, fields []*language.Field, result any, path Path) any {
	if schema.IsNonNull(fieldType) {
		if isNullish(result) {
			if !state.hasErrorAt(path) {
				state.addError(fmt.Sprintf("Cannot return null for non-nullable field %s", path), path)
			}
			return nil
		}
		return completeValue(state, schema.Unwrap(fieldType), fields, result, path)
	}

	if isNullish(result) {
		return nil
	}

	if schema.IsList(fieldType) {
		return completeListValue(state, fieldType, fields, result, path)
	}

	namedType := schema.GetNamedType(fieldType)
	typ := state.schema.Types[namedType]
	if typ == nil {
		state.addError(fmt.Sprintf("Unknown type: %s", namedType), path)
		return nil
	}

	switch typ.Kind {
	case schema.TypeKindScalar, schema.TypeKindEnum:
		serialized, err := state.runtime.SerializeLeafValue(state.ctx, namedType, result)
		if err != nil {
			state.addError(err.Error(), path)
			return nil
		}
		return serialized
	case schema.TypeKindObject:
		return completeObjectValue(state, typ, fields, result, path)
	case schema.TypeKindInterface, schema.TypeKindUnion:
		return completeAbstractValue(state, typ, fields, result, path)
	}
	state.addError(fmt.Sprintf("Cannot complete value of unexpected type: %s", typ.Kind), path)
	return nil
}

func completeListValue(state *executionState, listType *schema.TypeRef, fields []*language.Field, result any, path Path) any {
	items, ok := result.([]any)
	if !ok {
		rv := reflect.ValueOf(result)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			state.addError(fmt.Sprintf("Expected list value, got %T", result), path)
			return nil
		}
		items = make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
	}

	inner := schema.Unwrap(listType)
	completed := make([]any, len(items))
	for i, item := range items {
		itemPath := appendPath(path, i)
		if !schema.IsNonNull(inner) {
			state.nullable[itemPath.String()] = true
		}
		v := completeValue(state, inner, fields, item, itemPath)
		if isNullish(v) {
			if schema.IsNonNull(inner) {
				state.tombstone(path)
				return nil
			}
			v = nil
		}
		completed[i] = v
	}
	return completed
}

func completeObjectValue(state *executionState, objectType *schema.Type, fields []*language.Field, result any, path Path) any {
	return executeSelectionSet(state, objectType, mergeSelectionSets(fields), result, path)
}

func completeAbstractValue(state *executionState, abstractType *schema.Type, fields []*language.Field, result any, path Path) any {
	typeName, err := state.runtime.ResolveType(state.ctx, abstractType.Name, result)
	if err != nil {
		state.addError(err.Error(), path)
		return nil
	}
	objectType := state.schema.Types[typeName]
	if objectType == nil || objectType.Kind != schema.TypeKindObject || !isPossibleType(state.schema, abstractType, objectType) {
		state.addError(fmt.Sprintf("Abstract type %s must resolve to an Object type at runtime. Got: %s", abstractType.Name, typeName), path)
		return nil
	}
	return completeObjectValue(state, objectType, fields, result, path)
}

func appendPath(path Path, elem PathElement) Path {
	out := make(Path, len(path)+1)
	copy(out, path)
	out[len(path)] = elem
	return out
}

// tombstone drops any queued work below p.
func (s *executionState) tombstone(p Path) {
	if len(p) > 0 {
		s.tombstones[p.String()] = struct{}{}
	}
}

func (s *executionState) isTombstoned(p Path) bool {
	if len(s.tombstones) == 0 {
		return false
	}
	for i := 1; i <= len(p); i++ {
		if _, ok := s.tombstones[p[:i].String()]; ok {
			return true
		}
	}
	return false
}

func getOperation(document *language.QueryDocument, operationName string) (*language.OperationDefinition, error) {
	if operationName == "" {
		switch len(document.Operations) {
		case 0:
			return nil, fmt.Errorf("document contains no operations")
		case 1:
			return document.Operations[0], nil
		default:
			return nil, fmt.Errorf("operation name is required when the document contains multiple operations")
		}
	}
	if op := document.Operations.ForName(operationName); op != nil {
		return op, nil
	}
	return nil, fmt.Errorf("unknown operation named %q", operationName)
}

func (s *executionState) addError(message string, path Path) {
	s.errors = append(s.errors, GraphQLError{Message: message, Path: path})
}

func (s *executionState) hasErrorAt(path Path) bool {
	key := path.String()
	for _, err := range s.errors {
		if err.Path.String() == key {
			return true
		}
	}
	return false
}

// setValueAtPath writes value into the response tree. Missing intermediate
// objects are created; list slots must already exist.
func setValueAtPath(root map[string]any, path Path, value any) {
	if len(path) == 0 {
		return
	}
	var current any = root
	for _, elem := range path[:len(path)-1] {
		switch e := elem.(type) {
		case string:
			m, ok := current.(map[string]any)
			if !ok {
				return
			}
			next, exists := m[e]
			if !exists || next == nil {
				next = make(map[string]any)
				m[e] = next
			}
			current = next
		case int:
			list, ok := current.([]any)
			if !ok || e >= len(list) {
				return
			}
			if list[e] == nil {
				list[e] = make(map[string]any)
			}
			current = list[e]
		}
	}
	switch e := path[len(path)-1].(type) {
	case string:
		if m, ok := current.(map[string]any); ok {
			m[e] = value
		}
	case int:
		if list, ok := current.([]any); ok && e < len(list) {
			list[e] = value
		}
	}
}

func mergeSelectionSets(fields []*language.Field) language.SelectionSet {
	var merged language.SelectionSet
	for _, f := range fields {
		merged = append(merged, f.SelectionSet...)
	}
	return merged
}

// isNullish reports nil interfaces and typed nils.
func isNullish(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
