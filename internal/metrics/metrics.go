// Package metrics exports Prometheus metrics fed by the event bus.
package metrics

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hanpama/mongograph/internal/eventbus"
	"github.com/hanpama/mongograph/internal/events"
)

const namespace = "mongograph"

// Metrics owns a registry with the request, operation, resolver and
// MongoDB command metrics.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	resolverDuration  *prometheus.HistogramVec
	resolverBatchSize *prometheus.HistogramVec
	mongoCommands     *prometheus.CounterVec
	mongoDuration     *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graphql_operations_total",
			Help:      "GraphQL operations by type and result.",
		}, []string{"type", "result"}),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "graphql_operation_duration_seconds",
			Help:      "GraphQL operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"type"}),
		resolverDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolver_duration_seconds",
			Help:      "Latency of one resolver batch.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"field", "result"}),
		resolverBatchSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolver_batch_size",
			Help:      "Number of calls resolved together.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}, []string{"field"}),
		mongoCommands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mongodb_commands_total",
			Help:      "MongoDB commands by command, collection and result.",
		}, []string{"command", "collection", "result"}),
		mongoDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "mongodb_command_duration_seconds",
			Help:      "MongoDB command latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"command"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests, m.httpDuration,
		m.operations, m.operationDuration,
		m.resolverDuration, m.resolverBatchSize,
		m.mongoCommands, m.mongoDuration,
	)
	return m
}

// Registry exposes the registry, e.g. to add collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func result(failed bool) string {
	if failed {
		return "error"
	}
	return "ok"
}

// Subscribe feeds the metrics from the global event bus.
func (m *Metrics) Subscribe() (unsubscribe func()) {
	unsubs := []func(){
		eventbus.Subscribe(func(_ context.Context, e events.HTTPFinish) {
			m.httpRequests.WithLabelValues(e.Request.Method, strconv.Itoa(e.Status)).Inc()
			m.httpDuration.WithLabelValues(e.Request.Method).Observe(e.Duration.Seconds())
		}),
		eventbus.Subscribe(func(_ context.Context, e events.GraphQLFinish) {
			m.operations.WithLabelValues(e.OperationType, result(len(e.Errors) > 0)).Inc()
			m.operationDuration.WithLabelValues(e.OperationType).Observe(e.Duration.Seconds())
		}),
		eventbus.Subscribe(func(_ context.Context, e events.ResolverFinish) {
			field := e.TypeName + "." + e.FieldName
			m.resolverDuration.WithLabelValues(field, result(e.Err != nil)).Observe(e.Duration.Seconds())
			m.resolverBatchSize.WithLabelValues(field).Observe(float64(e.BatchSize))
		}),
		eventbus.Subscribe(func(_ context.Context, e events.MongoCommandFinish) {
			m.mongoCommands.WithLabelValues(e.Command, e.Collection, result(e.Err != nil)).Inc()
			m.mongoDuration.WithLabelValues(e.Command).Observe(e.Duration.Seconds())
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
