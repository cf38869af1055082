package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/hanpama/mongograph/internal/eventbus"
	"github.com/hanpama/mongograph/internal/events"
	"github.com/hanpama/mongograph/internal/executor"
	"github.com/hanpama/mongograph/internal/language"
)

type location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

type responseError struct {
	Message    string         `json:"message"`
	Locations  []location     `json:"locations,omitempty"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// response is the JSON body of one operation. data is always present, and
// null when the operation did not run.
type response struct {
	Data   any             `json:"data"`
	Errors []responseError `json:"errors,omitempty"`
}

func failure(msg string) *response {
	return &response{Errors: []responseError{{Message: msg}}}
}

func (h *Handler) execute(ctx context.Context, req Request) *response {
	doc, err := language.ParseQuery(req.Query)
	if err != nil {
		return syntaxFailure(err)
	}

	opType := ""
	if op := doc.Operations.ForName(req.OperationName); op != nil {
		opType = string(op.Operation)
	} else if len(doc.Operations) == 1 {
		opType = string(doc.Operations[0].Operation)
	}

	start := time.Now()
	eventbus.Publish(ctx, events.GraphQLStart{Query: req.Query, OperationName: req.OperationName, OperationType: opType})
	result := h.exec.ExecuteRequest(ctx, doc, req.OperationName, req.Variables, nil)
	errs := make([]error, len(result.Errors))
	for i := range result.Errors {
		errs[i] = result.Errors[i]
	}
	eventbus.Publish(ctx, events.GraphQLFinish{
		Query:         req.Query,
		OperationName: req.OperationName,
		OperationType: opType,
		Errors:        errs,
		Duration:      time.Since(start),
	})
	return fromResult(result)
}

func syntaxFailure(err error) *response {
	var ge *language.Error
	if !errors.As(err, &ge) {
		return failure(err.Error())
	}
	re := responseError{Message: ge.Message}
	for _, loc := range ge.Locations {
		re.Locations = append(re.Locations, location{Line: loc.Line, Column: loc.Column})
	}
	return &response{Errors: []responseError{re}}
}

func fromResult(res *executor.ExecutionResult) *response {
	out := &response{Data: res.Data}
	for _, e := range res.Errors {
		re := responseError{Message: e.Message, Extensions: e.Extensions}
		for _, loc := range e.Locations {
			re.Locations = append(re.Locations, location{Line: loc.Line, Column: loc.Column})
		}
		for _, elem := range e.Path {
			switch v := elem.(type) {
			case string, int:
				re.Path = append(re.Path, v)
			default:
				b, _ := json.Marshal(v)
				re.Path = append(re.Path, string(b))
			}
		}
		out.Errors = append(out.Errors, re)
	}
	return out
}

func (h *Handler) write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if h.opt.Pretty {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}
