package language

import (
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/validator"
)

// Validator checks executable documents against a schema given as SDL.
type Validator struct {
	schema *ast.Schema
}

// NewValidator loads sdl on top of the builtin scalars, directives and
// introspection types.
func NewValidator(sdl string) (*Validator, error) {
	s, err := gqlparser.LoadSchema(&ast.Source{Name: "schema.graphql", Input: sdl})
	if err != nil {
		return nil, err
	}
	return &Validator{schema: s}, nil
}

// Validate returns every rule violation in doc, or nil.
func (v *Validator) Validate(doc *QueryDocument) []*Error {
	return validator.Validate(v.schema, doc)
}
