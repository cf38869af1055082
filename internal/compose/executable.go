package compose

import (
	"context"
	"fmt"

	"github.com/hanpama/mongograph/internal/executor"
	"github.com/hanpama/mongograph/internal/introspection"
	"github.com/hanpama/mongograph/internal/language"
	"github.com/hanpama/mongograph/internal/projection"
	"github.com/hanpama/mongograph/internal/schema"
)

// Executable is a built schema ready to run operations. It is safe for
// concurrent use.
type Executable struct {
	// Schema is the composed schema without introspection types.
	Schema *schema.Schema
	// Hints map composed fields onto storage keys for projections.
	Hints projection.HintMap

	exec *executor.Executor
}

// BuildSchema snapshots the composers reachable from the roots into an
// Executable. Later changes to the composers do not affect it.
func (sc *SchemaComposer) BuildSchema() (*Executable, error) {
	sch, reg, err := sc.build()
	if err != nil {
		return nil, err
	}
	v, err := language.NewValidator(schema.Render(sch))
	if err != nil {
		return nil, fmt.Errorf("load schema for validation: %w", err)
	}
	rt := &runtime{reg: reg, sch: sch}
	wrapped := introspection.Wrap(rt, sch)
	return &Executable{
		Schema: sch,
		Hints:  reg.hints,
		exec:   executor.NewExecutor(wrapped.Runtime, wrapped.Schema, executor.WithValidator(v)),
	}, nil
}

// Executor returns the introspection-enabled executor, e.g. for serving
// over HTTP.
func (e *Executable) Executor() *executor.Executor { return e.exec }

// SDL renders the composed schema.
func (e *Executable) SDL() string { return schema.Render(e.Schema) }

// Execute parses, validates and runs one operation. Syntax and validation
// errors are reported in the result with data null.
func (e *Executable) Execute(ctx context.Context, query, operationName string, variables map[string]any) *executor.ExecutionResult {
	doc, err := language.ParseQuery(query)
	if err != nil {
		return &executor.ExecutionResult{Errors: []executor.GraphQLError{{Message: err.Error()}}}
	}
	return e.exec.ExecuteRequest(ctx, doc, operationName, variables, nil)
}
