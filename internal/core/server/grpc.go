// Package server provides gRPC server lifecycle management for the
// promotion API, plus the Prometheus scrape endpoint.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/solatis/promokeeper/internal/core/api"
	"github.com/solatis/promokeeper/internal/core/auth"
	"github.com/solatis/promokeeper/internal/core/config"
	"github.com/solatis/promokeeper/internal/core/metrics"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

const shutdownTimeout = 30 * time.Second

// GRPCServer manages the gRPC server and the optional metrics listener.
type GRPCServer struct {
	server  *grpc.Server
	health  *health.Server
	config  *config.APIConfig
	log     zerolog.Logger
	metrics *metrics.Metrics

	mu          sync.Mutex
	listener    net.Listener
	metricsHTTP *http.Server
}

// Option configures a GRPCServer.
type Option func(*serverOptions)

type serverOptions struct {
	log     zerolog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// WithLogger sets the request logger.
func WithLogger(log zerolog.Logger) Option {
	return func(o *serverOptions) { o.log = log }
}

// WithMetrics records RPC metrics and serves them on api.metrics_port.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *serverOptions) { o.metrics = m }
}

// WithTracer opens a span per RPC.
func WithTracer(t trace.Tracer) Option {
	return func(o *serverOptions) { o.tracer = t }
}

// NewGRPCServer creates the server and registers the promotion API and
// the health service.
//
// Interceptor order: tracing, metrics and logging wrap everything so
// rejected calls are observed too; authentication runs next; the request
// timeout bounds only the handler.
func NewGRPCServer(cfg *config.APIConfig, service api.PromotionAPIServer, authenticator *auth.Authenticator, opts ...Option) (*GRPCServer, error) {
	if cfg == nil {
		return nil, errors.New("cfg cannot be nil")
	}
	if service == nil {
		return nil, errors.New("service cannot be nil")
	}
	if authenticator == nil {
		return nil, errors.New("authenticator cannot be nil")
	}

	o := serverOptions{
		log:    zerolog.Nop(),
		tracer: noop.NewTracerProvider().Tracer(""),
	}
	for _, opt := range opts {
		opt(&o)
	}

	server := grpc.NewServer(
		grpc.MaxConcurrentStreams(uint32(cfg.MaxConnections)),
		grpc.ChainUnaryInterceptor(
			TracingInterceptor(o.tracer),
			MetricsInterceptor(o.metrics),
			LoggingInterceptor(o.log),
			authenticator.UnaryInterceptor(),
			TimeoutInterceptor(cfg.RequestTimeout),
		),
	)
	api.RegisterPromotionAPIServer(server, service)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(api.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	return &GRPCServer{
		server:  server,
		health:  healthServer,
		config:  cfg,
		log:     o.log,
		metrics: o.metrics,
	}, nil
}

// Start binds the configured address and serves until Shutdown.
func (s *GRPCServer) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "failed to bind %s", addr)
	}
	if err := s.startMetrics(); err != nil {
		listener.Close()
		return err
	}
	return s.Serve(listener)
}

// Serve serves on an existing listener. Tests use it with bufconn.
func (s *GRPCServer) Serve(listener net.Listener) error {
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.log.Info().Str("addr", listener.Addr().String()).Msg("promotion API listening")
	if err := s.server.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// startMetrics serves /metrics when metrics are enabled and a port is set.
func (s *GRPCServer) startMetrics() error {
	if s.metrics == nil || s.config.MetricsPort == 0 {
		return nil
	}
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.MetricsPort)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, "failed to bind metrics %s", addr)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", s.metrics.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	s.mu.Lock()
	s.metricsHTTP = srv
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("metrics server stopped")
		}
	}()
	s.log.Info().Str("addr", addr).Msg("metrics listening")
	return nil
}

// Shutdown marks the server NOT_SERVING and stops gracefully, forcing a
// stop after 30 seconds or when ctx ends.
func (s *GRPCServer) Shutdown(ctx context.Context) error {
	s.health.Shutdown()

	s.mu.Lock()
	metricsHTTP := s.metricsHTTP
	s.mu.Unlock()
	if metricsHTTP != nil {
		if err := metricsHTTP.Shutdown(ctx); err != nil {
			s.log.Warn().Err(err).Msg("metrics server shutdown")
		}
	}

	stopped := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		s.server.Stop()
		return errors.Wrap(ctx.Err(), "shutdown cancelled by context")
	case <-time.After(shutdownTimeout):
		s.server.Stop()
		return errors.New("graceful shutdown timeout, forced stop")
	}
}
