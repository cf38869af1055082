// Package server serves a GraphQL executor over HTTP.
package server

import (
	"context"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hanpama/mongograph/internal/eventbus"
	"github.com/hanpama/mongograph/internal/events"
	"github.com/hanpama/mongograph/internal/executor"
	"github.com/hanpama/mongograph/internal/reqid"
)

// RequestIDHeader carries the request id on responses.
const RequestIDHeader = "X-Request-Id"

// Handler is an http.Handler serving a GraphQL endpoint.
type Handler struct {
	exec *executor.Executor
	opt  Options
}

type Options struct {
	// Timeout bounds requests whose context has no deadline. 0 disables it.
	Timeout time.Duration

	// Pretty indents JSON responses.
	Pretty bool

	// MaxBodyBytes limits the request body. 0 means unlimited.
	MaxBodyBytes int64

	// CORSOrigins lists allowed origins; "*" allows any. Empty disables CORS.
	CORSOrigins []string

	// ForwardHeaders lists HTTP headers exposed to resolvers through
	// ForwardedHeaders. Names are case-insensitive.
	ForwardHeaders []string

	// GraphiQL serves the in-browser IDE to GET requests accepting HTML.
	GraphiQL bool

	// MaxBatch limits the operations of a batched request. 0 means unlimited.
	MaxBatch int
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                 { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option    { return func(o *Options) { o.MaxBodyBytes = n } }
func WithCORS(origins ...string) Option  { return func(o *Options) { o.CORSOrigins = origins } }
func WithGraphiQL(enable bool) Option    { return func(o *Options) { o.GraphiQL = enable } }
func WithMaxBatch(n int) Option          { return func(o *Options) { o.MaxBatch = n } }

func WithForwardHeaders(headers ...string) Option {
	return func(o *Options) { o.ForwardHeaders = headers }
}

// New creates a handler running operations on exec.
func New(exec *executor.Executor, opts ...Option) *Handler {
	op := Options{Timeout: 10 * time.Second, GraphiQL: true}
	for _, f := range opts {
		f(&op)
	}
	return &Handler{exec: exec, opt: op}
}

type headersKey struct{}

// ForwardedHeaders returns the request headers selected with
// WithForwardHeaders, keyed by canonical name. It is nil when none are
// configured.
func ForwardedHeaders(ctx context.Context) http.Header {
	h, _ := ctx.Value(headersKey{}).(http.Header)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}
	ctx, rid := reqid.NewContext(ctx)
	w.Header().Set(RequestIDHeader, strconv.FormatInt(rid, 10))

	finish := events.HTTPFinish{Request: r, Status: http.StatusOK}
	start := time.Now()
	eventbus.Publish(ctx, events.HTTPStart{Request: r})
	defer func() {
		finish.Duration = time.Since(start)
		eventbus.Publish(ctx, finish)
	}()

	h.cors(w, r)
	switch r.Method {
	case http.MethodOptions:
		finish.Status = http.StatusNoContent
		w.WriteHeader(finish.Status)
		return
	case http.MethodGet:
		if h.opt.GraphiQL && r.URL.Query().Get("query") == "" && acceptsHTML(r.Header.Get("Accept")) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write(graphiqlPage)
			return
		}
	case http.MethodPost:
	default:
		w.Header().Set("Allow", "GET, POST, OPTIONS")
		finish.Status = http.StatusMethodNotAllowed
		h.write(w, finish.Status, failure("method not allowed"))
		return
	}

	reqs, batch, err := decodeRequest(w, r, h.opt.MaxBodyBytes)
	if err == nil && batch && h.opt.MaxBatch > 0 && len(reqs) > h.opt.MaxBatch {
		err = &requestError{status: http.StatusBadRequest, msg: "batch too large"}
	}
	if err != nil {
		finish.Status = err.status
		h.write(w, err.status, failure(err.msg))
		return
	}
	finish.Operations = len(reqs)

	ctx = h.forward(ctx, r)
	results := make([]*response, len(reqs))
	// Each operation reports its own errors in its response.
	g := errgroup.Group{}
	for i, req := range reqs {
		g.Go(func() error {
			results[i] = h.execute(ctx, req)
			return nil
		})
	}
	_ = g.Wait()

	if batch {
		h.write(w, finish.Status, results)
		return
	}
	h.write(w, finish.Status, results[0])
}

func (h *Handler) forward(ctx context.Context, r *http.Request) context.Context {
	if len(h.opt.ForwardHeaders) == 0 {
		return ctx
	}
	fwd := http.Header{}
	for _, name := range h.opt.ForwardHeaders {
		if v := r.Header.Values(name); len(v) > 0 {
			fwd[http.CanonicalHeaderKey(name)] = slices.Clone(v)
		}
	}
	return context.WithValue(ctx, headersKey{}, fwd)
}

func (h *Handler) cors(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.opt.CORSOrigins) == 0 {
		return
	}
	switch {
	case slices.Contains(h.opt.CORSOrigins, "*"):
		w.Header().Set("Access-Control-Allow-Origin", "*")
	case slices.Contains(h.opt.CORSOrigins, origin):
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Add("Vary", "Origin")
	default:
		return
	}
	w.Header().Set("Access-Control-Expose-Headers", RequestIDHeader)
	if r.Method == http.MethodOptions {
		if hdr := r.Header.Get("Access-Control-Request-Headers"); hdr != "" {
			w.Header().Set("Access-Control-Allow-Headers", hdr)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	}
}

func acceptsHTML(accept string) bool {
	for _, part := range strings.Split(accept, ",") {
		mt, _, _ := strings.Cut(strings.TrimSpace(part), ";")
		if mt == "text/html" || mt == "*/*" {
			return true
		}
	}
	return false
}
