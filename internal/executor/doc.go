// Package executor implements a breadth-first GraphQL executor that batches
// asynchronous field resolution once per depth.
//
// # Execution model
//
// A field is synchronous or asynchronous according to schema.Field.Async.
// Synchronous fields are resolved through Runtime.ResolveSync and completed
// immediately, so descending through them never adds depth. Asynchronous
// fields are queued as AsyncResolveTask values and resolved together by a
// single Runtime.BatchResolveAsync call per depth. For an operation whose
// async depth is d, BatchResolveAsync is invoked exactly d times.
//
// Each task carries a ResolveInfo with the field nodes, fragments and coerced
// variables of the operation. Runtimes use it to look ahead into the
// sub-selection, for example to fetch only the requested document keys.
//
// # Completion and errors
//
// Values are completed per the GraphQL rules for Non-Null, lists, leaves,
// objects and abstract types. Errors are collected as located errors and
// execution continues. A null in a Non-Null position replaces the nearest
// nullable ancestor with null; queued tasks below that ancestor are dropped
// before the next batch. When no nullable ancestor exists the response data
// is null.
//
// Fragment type conditions naming an interface or union apply to every object
// type that implements or belongs to it.
package executor
