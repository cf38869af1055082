package executor

import "github.com/hanpama/mongograph/internal/language"

// Location is a 1-based position in the request document.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// GraphQLError is an execution error located at a response path, or a
// validation error located in the document.
type GraphQLError struct {
	Message    string         `json:"message"`
	Locations  []Location     `json:"locations,omitempty"`
	Path       Path           `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func (e GraphQLError) Error() string {
	return e.Message
}

// ExecutionResult is the response of a single operation.
type ExecutionResult struct {
	Data   any            `json:"data"`
	Errors []GraphQLError `json:"errors,omitempty"`
}

func documentErrors(errs []*language.Error) []GraphQLError {
	out := make([]GraphQLError, len(errs))
	for i, err := range errs {
		out[i] = GraphQLError{Message: err.Message, Extensions: err.Extensions}
		for _, loc := range err.Locations {
			out[i].Locations = append(out[i].Locations, Location{Line: loc.Line, Column: loc.Column})
		}
	}
	return out
}
