// Package logging configures the logrus logger and logs event bus events.
package logging

import (
	"context"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/hanpama/mongograph/internal/eventbus"
	"github.com/hanpama/mongograph/internal/events"
	"github.com/hanpama/mongograph/internal/reqid"
)

// New returns a JSON logger writing to stderr at the named level. Unknown
// levels fall back to info.
func New(level string) *logrus.Logger {
	return NewWithOutput(os.Stderr, level)
}

func NewWithOutput(w io.Writer, level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetFormatter(&logrus.JSONFormatter{})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}

func entry(ctx context.Context, logger logrus.FieldLogger) logrus.FieldLogger {
	if rid, ok := reqid.FromContext(ctx); ok {
		return logger.WithField("request_id", rid)
	}
	return logger
}

// Subscribe logs finished HTTP requests, GraphQL operations, resolver
// batches and MongoDB commands. Failures log at warn level, the rest at
// info or debug.
func Subscribe(logger logrus.FieldLogger) (unsubscribe func()) {
	unsubs := []func(){
		eventbus.Subscribe(func(ctx context.Context, e events.HTTPFinish) {
			entry(ctx, logger).WithFields(logrus.Fields{
				"method":      e.Request.Method,
				"path":        e.Request.URL.Path,
				"status":      e.Status,
				"operations":  e.Operations,
				"duration_ms": e.Duration.Milliseconds(),
			}).Info("http request")
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.GraphQLFinish) {
			l := entry(ctx, logger).WithFields(logrus.Fields{
				"operation":   e.OperationName,
				"type":        e.OperationType,
				"errors":      len(e.Errors),
				"duration_ms": e.Duration.Milliseconds(),
			})
			if len(e.Errors) > 0 {
				l.WithError(e.Errors[0]).Warn("graphql operation failed")
				return
			}
			l.Debug("graphql operation")
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.ResolverFinish) {
			l := entry(ctx, logger).WithFields(logrus.Fields{
				"field":       e.TypeName + "." + e.FieldName,
				"resolver":    e.Resolver,
				"batch":       e.BatchSize,
				"duration_ms": e.Duration.Milliseconds(),
			})
			if e.Err != nil {
				l.WithError(e.Err).Warn("resolver failed")
				return
			}
			l.Debug("resolver")
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.MongoCommandFinish) {
			l := entry(ctx, logger).WithFields(logrus.Fields{
				"command":     e.Command,
				"database":    e.Database,
				"collection":  e.Collection,
				"duration_ms": e.Duration.Milliseconds(),
			})
			if e.Err != nil {
				l.WithError(e.Err).Warn("mongodb command failed")
				return
			}
			l.Debug("mongodb command")
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
