package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
)

// Request is a single GraphQL operation as sent over HTTP.
type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
	Extensions    map[string]any `json:"extensions,omitempty"`
}

type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(msg string) *requestError {
	return &requestError{status: http.StatusBadRequest, msg: msg}
}

// decodeRequest reads the operations of r. batch reports whether the body
// was a JSON array.
func decodeRequest(w http.ResponseWriter, r *http.Request, maxBody int64) ([]Request, bool, *requestError) {
	if r.Method == http.MethodGet {
		req, qerr := fromQueryString(r.URL.Query())
		if qerr != nil {
			return nil, false, qerr
		}
		return []Request{req}, false, nil
	}

	body := r.Body
	if maxBody > 0 {
		body = http.MaxBytesReader(w, r.Body, maxBody)
	}
	defer body.Close()
	data, rerr := io.ReadAll(body)
	if rerr != nil {
		if mbe := new(http.MaxBytesError); errors.As(rerr, &mbe) {
			return nil, false, &requestError{status: http.StatusRequestEntityTooLarge, msg: "body too large"}
		}
		return nil, false, badRequest("failed to read body")
	}

	mt := "application/json"
	if ct := r.Header.Get("Content-Type"); ct != "" {
		parsed, _, perr := mime.ParseMediaType(ct)
		if perr != nil {
			return nil, false, &requestError{status: http.StatusUnsupportedMediaType, msg: "unsupported Content-Type"}
		}
		mt = parsed
	}
	switch mt {
	case "application/graphql":
		if len(data) == 0 {
			return nil, false, badRequest("missing 'query'")
		}
		return []Request{{Query: string(data), Variables: map[string]any{}}}, false, nil
	case "application/json":
	default:
		return nil, false, &requestError{status: http.StatusUnsupportedMediaType, msg: "unsupported Content-Type"}
	}

	if len(data) > 0 && data[0] == '[' {
		var reqs []Request
		if err := json.Unmarshal(data, &reqs); err != nil {
			return nil, false, badRequest("invalid JSON")
		}
		if len(reqs) == 0 {
			return nil, false, badRequest("empty batch")
		}
		for i := range reqs {
			if reqs[i].Query == "" {
				return nil, false, badRequest("missing 'query'")
			}
		}
		return reqs, true, nil
	}
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, false, badRequest("invalid JSON")
	}
	if req.Query == "" {
		return nil, false, badRequest("missing 'query'")
	}
	if req.Variables == nil {
		req.Variables = map[string]any{}
	}
	return []Request{req}, false, nil
}

func fromQueryString(q url.Values) (Request, *requestError) {
	req := Request{Query: q.Get("query"), OperationName: q.Get("operationName"), Variables: map[string]any{}}
	if req.Query == "" {
		return req, badRequest("missing 'query'")
	}
	if v := q.Get("variables"); v != "" {
		if err := json.Unmarshal([]byte(v), &req.Variables); err != nil {
			return req, badRequest("invalid 'variables' JSON")
		}
	}
	return req, nil
}
