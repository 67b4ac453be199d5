// Package server wires the store, dispatcher and transports into one
// process listening on a single port. gRPC and HTTP/1 share the port.
package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"sync/atomic"

	"github.com/cockroachdb/cmux"
	"github.com/cockroachdb/errors"
	"github.com/gorilla/mux"
	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/heysubinoy/remotekv/internal/api"
	"github.com/heysubinoy/remotekv/internal/dispatch"
	"github.com/heysubinoy/remotekv/internal/store"
	"github.com/heysubinoy/remotekv/pkg/config"
	"github.com/heysubinoy/remotekv/pkg/kv"
	"github.com/heysubinoy/remotekv/pkg/kvrpc"
)

// ErrBind is returned when the listen address cannot be bound.
var ErrBind = errors.New("unable to bind the server to the given port")

// Server owns the store for the lifetime of the process.
type Server struct {
	cfg    *config.Config
	logger hclog.Logger

	store   kv.Store
	backend io.Closer
	reg     *prometheus.Registry

	ln     net.Listener
	grpc   *grpc.Server
	health *health.Server
	http   *http.Server

	closing atomic.Bool
}

// New builds the server described by cfg and binds its listener.
// Access lines go to accessLog.
func New(ctx context.Context, cfg *config.Config, logger hclog.Logger, accessLog io.Writer) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	s := &Server{cfg: cfg, logger: logger, reg: prometheus.NewRegistry()}

	base, err := s.openBackend(ctx)
	if err != nil {
		return nil, err
	}
	s.reg.MustRegister(collectors.NewGoCollector())
	s.store, err = store.NewInstrumentedStore(base, s.reg)
	if err != nil {
		s.closeBackend()
		return nil, err
	}

	d := dispatch.New(s.store,
		dispatch.WithAccessLog(accessLog),
		dispatch.WithLogger(logger.Named("dispatch")),
	)

	s.grpc = grpc.NewServer(grpc.ChainUnaryInterceptor(api.RecoveryInterceptor(logger.Named("grpc"))))
	kvrpc.RegisterKVServer(s.grpc, cfg.ServiceName, api.NewGRPCServer(d))

	s.health = health.NewServer()
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(kvrpc.ServiceName(cfg.ServiceName), healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s.grpc, s.health)

	router := mux.NewRouter()
	api.NewServer(d).RegisterRoutes(router)
	api.RegisterMetrics(router, s.reg)
	s.http = &http.Server{Handler: router}

	s.ln, err = net.Listen("tcp", cfg.ListenAddr())
	if err != nil {
		s.closeBackend()
		return nil, errors.Mark(errors.Wrapf(err, "listening on %s", cfg.ListenAddr()), ErrBind)
	}
	return s, nil
}

func (s *Server) openBackend(ctx context.Context) (kv.Store, error) {
	switch s.cfg.Backend {
	case config.BackendRaft:
		rs, err := store.OpenRaftStore(ctx, store.RaftOptions{
			NodeID:       s.cfg.NodeID,
			ApplyTimeout: s.cfg.ApplyTimeout,
			Logger:       s.logger.Named("raft"),
		})
		if err != nil {
			return nil, err
		}
		s.backend = rs
		return rs, nil
	default:
		return store.NewMemStore(), nil
	}
}

func (s *Server) closeBackend() {
	if s.backend == nil {
		return
	}
	if err := s.backend.Close(); err != nil {
		s.logger.Warn("closing store backend", "error", err)
	}
}

// Addr returns the bound listen address.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Registry exposes the server's metrics registry.
func (s *Server) Registry() *prometheus.Registry {
	return s.reg
}

// Run serves until ctx is cancelled or a listener fails, then shuts down.
func (s *Server) Run(ctx context.Context) error {
	m := cmux.New(s.ln)
	httpL := m.Match(cmux.HTTP1())
	grpcL := m.Match(cmux.Any())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.served(m.Serve()) })
	g.Go(func() error { return s.served(s.grpc.Serve(grpcL)) })
	g.Go(func() error { return s.served(s.http.Serve(httpL)) })
	g.Go(func() error {
		<-gctx.Done()
		s.shutdown()
		return nil
	})

	s.logger.Info("server started",
		"addr", s.Addr().String(),
		"service", kvrpc.ServiceName(s.cfg.ServiceName),
		"backend", s.cfg.Backend,
	)
	return g.Wait()
}

// served filters the errors serve loops return once shutdown has begun.
func (s *Server) served(err error) error {
	if err == nil || s.closing.Load() || errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) shutdown() {
	if !s.closing.CompareAndSwap(false, true) {
		return
	}
	s.logger.Info("shutting down")
	s.health.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		s.logger.Warn("http shutdown", "error", err)
	}

	stopped := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-ctx.Done():
		s.grpc.Stop()
	}

	_ = s.ln.Close()
	s.closeBackend()
}
