package executor

import (
	"context"

	"github.com/hanpama/mongograph/internal/language"
	"github.com/hanpama/mongograph/internal/schema"
)

// Runtime is the host integration surface used by the Executor.
//
// The Executor runs breadth-first. At each depth it drains synchronous fields
// through ResolveSync, then calls BatchResolveAsync once with every async task
// collected at that depth. The next depth starts only after the batch returns
// and its results are completed.
//
// Errors returned from any method become located GraphQL errors. When the
// field is Non-Null the null propagates to the nearest nullable ancestor.
// Implementations must be safe for concurrent use across operations and must
// not mutate source or args.
type Runtime interface {
	// ResolveSync resolves a field declared with Async == false. Return
	// (nil, nil) to produce null.
	ResolveSync(ctx context.Context, objectType string, field string, source any, args map[string]any) (any, error)

	// BatchResolveAsync resolves one depth of async tasks. It must return
	// exactly one result per task, in task order; failures are per element.
	BatchResolveAsync(ctx context.Context, tasks []AsyncResolveTask) []AsyncResolveResult

	// ResolveType returns the concrete object type name of a value of an
	// interface or union type.
	ResolveType(ctx context.Context, abstractType string, value any) (string, error)

	// SerializeLeafValue converts a scalar or enum value into a JSON-safe Go value.
	SerializeLeafValue(ctx context.Context, scalarOrEnumTypeName string, value any) (any, error)
}

type AsyncResolveTask struct {
	// ObjectType is the parent GraphQL object type name for the field.
	ObjectType string
	// Field is the GraphQL field name to resolve.
	Field string
	// Source is the parent object value (nil for root fields).
	Source any
	// Args are the field arguments, coerced to Go values per the schema.
	Args map[string]any
	// Info describes the selection the result will be completed against.
	Info *ResolveInfo
}

// ResolveInfo exposes the parts of the operation a resolver may inspect,
// such as the sub-selection used to build a fetch projection.
type ResolveInfo struct {
	ParentType string
	FieldName  string
	ReturnType *schema.TypeRef
	// Fields are all field nodes merged under this response key.
	Fields    []*language.Field
	Fragments language.FragmentDefinitionList
	Variables map[string]any
	Path      Path
	Schema    *schema.Schema
}

type AsyncResolveResult struct {
	// Value is the resolved raw value prior to completion, or nil on error.
	Value any
	// Error is specific to this element; other elements are unaffected.
	Error error
}
