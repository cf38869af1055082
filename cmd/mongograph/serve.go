package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/hanpama/mongograph/internal/config"
	"github.com/hanpama/mongograph/internal/docschema"
	"github.com/hanpama/mongograph/internal/eventbus"
	"github.com/hanpama/mongograph/internal/logging"
	"github.com/hanpama/mongograph/internal/metrics"
	"github.com/hanpama/mongograph/internal/otel"
	"github.com/hanpama/mongograph/internal/server"
	"github.com/hanpama/mongograph/internal/store/mongostore"
)

func newServeCommand(rootOpts *rootOptions) *cobra.Command {
	var cfg config.Config
	cmd := &cobra.Command{
		Use:   "serve [model files...]",
		Short: "Serve the composed GraphQL schema backed by MongoDB",
		Long: `Serve GraphQL on /graphql, Prometheus metrics on /metrics and a
readiness probe on /healthz. A gRPC health service listens on --health-addr.
Flags default to the MONGOGRAPH_* environment variables.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg = withEnv(cmd.Flags(), cfg, config.FromEnv())
			if len(args) > 0 {
				cfg.Models = args
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, rootOpts.logger)
		},
	}
	d := config.Default()
	f := cmd.Flags()
	f.StringVar(&cfg.Addr, "addr", d.Addr, "HTTP listen address")
	f.StringVar(&cfg.HealthAddr, "health-addr", d.HealthAddr, "gRPC health listen address; empty disables it")
	f.StringVar(&cfg.MongoURI, "mongo-uri", d.MongoURI, "MongoDB connection string")
	f.StringVar(&cfg.Database, "database", d.Database, "MongoDB database")
	f.DurationVar(&cfg.MongoTimeout, "mongo-timeout", d.MongoTimeout, "MongoDB operation timeout")
	f.DurationVar(&cfg.Timeout, "timeout", d.Timeout, "per-request timeout")
	f.BoolVar(&cfg.Pretty, "pretty", d.Pretty, "pretty-print JSON responses")
	f.BoolVar(&cfg.GraphiQL, "graphiql", d.GraphiQL, "serve GraphiQL to browsers")
	f.StringSliceVar(&cfg.CORSOrigins, "cors-origin", d.CORSOrigins, "allowed CORS origin; repeatable")
	f.StringSliceVar(&cfg.ForwardHeaders, "forward-header", d.ForwardHeaders, "HTTP header exposed to resolvers; repeatable")
	f.Int64Var(&cfg.MaxBodyBytes, "max-body-bytes", d.MaxBodyBytes, "request body limit")
	f.IntVar(&cfg.DefaultLimit, "default-limit", d.DefaultLimit, "default page size of list resolvers")
	f.IntVar(&cfg.MaxLimit, "max-limit", d.MaxLimit, "maximum page size of list resolvers")
	f.StringVar(&cfg.OTLPEndpoint, "otel-endpoint", d.OTLPEndpoint, "OTLP gRPC collector endpoint")
	f.StringVar(&cfg.ServiceName, "otel-service", d.ServiceName, "OpenTelemetry service name")
	return cmd
}

// withEnv returns flags with every flag the user did not set taken from
// env, which already holds the defaults.
func withEnv(flags *pflag.FlagSet, cfg, env config.Config) config.Config {
	set := func(name string, apply func()) {
		if !flags.Changed(name) {
			apply()
		}
	}
	set("addr", func() { cfg.Addr = env.Addr })
	set("health-addr", func() { cfg.HealthAddr = env.HealthAddr })
	set("mongo-uri", func() { cfg.MongoURI = env.MongoURI })
	set("database", func() { cfg.Database = env.Database })
	set("mongo-timeout", func() { cfg.MongoTimeout = env.MongoTimeout })
	set("timeout", func() { cfg.Timeout = env.Timeout })
	set("pretty", func() { cfg.Pretty = env.Pretty })
	set("graphiql", func() { cfg.GraphiQL = env.GraphiQL })
	set("cors-origin", func() { cfg.CORSOrigins = env.CORSOrigins })
	set("forward-header", func() { cfg.ForwardHeaders = env.ForwardHeaders })
	set("max-body-bytes", func() { cfg.MaxBodyBytes = env.MaxBodyBytes })
	set("default-limit", func() { cfg.DefaultLimit = env.DefaultLimit })
	set("max-limit", func() { cfg.MaxLimit = env.MaxLimit })
	set("otel-endpoint", func() { cfg.OTLPEndpoint = env.OTLPEndpoint })
	set("otel-service", func() { cfg.ServiceName = env.ServiceName })
	cfg.Models = env.Models
	cfg.LogLevel = env.LogLevel
	return cfg
}

func serve(ctx context.Context, cfg config.Config, logger *logrus.Logger) error {
	if len(cfg.Models) == 0 {
		return errors.New("no model files given")
	}
	models, err := docschema.LoadFiles(cfg.Models...)
	if err != nil {
		return err
	}

	eventbus.Use(eventbus.New())
	defer logging.Subscribe(logger)()
	m := metrics.New()
	defer m.Subscribe()()
	shutdownTracing, err := otel.Setup(cfg.OTLPEndpoint, cfg.ServiceName)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	connectCtx, cancel := context.WithTimeout(ctx, cfg.MongoTimeout)
	client, err := mongostore.Connect(connectCtx, mongostore.Config{
		URI:      cfg.MongoURI,
		Database: cfg.Database,
		Timeout:  cfg.MongoTimeout,
	})
	cancel()
	if err != nil {
		return err
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	exe, err := buildSchema(models, client, cfg.DefaultLimit, cfg.MaxLimit)
	if err != nil {
		return fmt.Errorf("build schema: %w", err)
	}

	sopts := []server.Option{
		server.WithTimeout(cfg.Timeout),
		server.WithMaxBodyBytes(cfg.MaxBodyBytes),
		server.WithGraphiQL(cfg.GraphiQL),
	}
	if cfg.Pretty {
		sopts = append(sopts, server.WithPretty())
	}
	if len(cfg.CORSOrigins) > 0 {
		sopts = append(sopts, server.WithCORS(cfg.CORSOrigins...))
	}
	if len(cfg.ForwardHeaders) > 0 {
		sopts = append(sopts, server.WithForwardHeaders(cfg.ForwardHeaders...))
	}

	mux := http.NewServeMux()
	mux.Handle("/graphql", server.New(exe.Executor(), sopts...))
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", healthz(client, cfg.MongoTimeout))
	httpServer := &http.Server{Addr: cfg.Addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	hs := health.NewServer()
	var grpcServer *grpc.Server
	if cfg.HealthAddr != "" {
		lis, err := net.Listen("tcp", cfg.HealthAddr)
		if err != nil {
			return fmt.Errorf("health listener: %w", err)
		}
		grpcServer = grpc.NewServer()
		healthpb.RegisterHealthServer(grpcServer, hs)
		hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		go func() {
			if err := grpcServer.Serve(lis); err != nil {
				logger.WithError(err).Error("grpc health server stopped")
			}
		}()
	}

	errc := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{"addr": cfg.Addr, "models": len(models)}).Info("graphql server listening")
		errc <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if grpcServer != nil {
			grpcServer.Stop()
		}
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	hs.Shutdown()
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type pinger interface {
	Ping(ctx context.Context) error
}

// healthz reports 503 while the database does not answer a ping.
func healthz(db pinger, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			http.Error(w, "mongodb: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok\n"))
	}
}
