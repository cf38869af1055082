package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/mongograph/internal/eventbus"
	"github.com/hanpama/mongograph/internal/events"
)

func TestSubscribeCountsEvents(t *testing.T) {
	eventbus.Use(eventbus.New())
	t.Cleanup(func() { eventbus.Use(nil) })

	m := New()
	unsubscribe := m.Subscribe()
	defer unsubscribe()

	ctx := context.Background()
	req := httptest.NewRequest(http.MethodPost, "/graphql", nil)
	eventbus.Publish(ctx, events.HTTPFinish{Request: req, Status: 200, Duration: time.Millisecond})
	eventbus.Publish(ctx, events.HTTPFinish{Request: req, Status: 200})
	eventbus.Publish(ctx, events.GraphQLFinish{OperationType: "query", Errors: []error{errors.New("x")}})
	eventbus.Publish(ctx, events.ResolverFinish{TypeName: "Query", FieldName: "user", BatchSize: 3})
	eventbus.Publish(ctx, events.MongoCommandFinish{Command: "find", Collection: "users"})
	eventbus.Publish(ctx, events.MongoCommandFinish{Command: "find", Collection: "users", Err: errors.New("x")})

	require.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("POST", "200")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("query", "error")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.mongoCommands.WithLabelValues("find", "users", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.mongoCommands.WithLabelValues("find", "users", "error")))
	require.Equal(t, 1, testutil.CollectAndCount(m.resolverBatchSize))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.operations.WithLabelValues("mutation", "ok").Inc()

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `mongograph_graphql_operations_total{result="ok",type="mutation"} 1`)
}
