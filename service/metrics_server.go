package service

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsServer serves the Prometheus registry on its own address.
type MetricsServer struct {
	log  log.Logger
	addr string

	listener net.Listener
	server   *http.Server
}

func NewMetricsServer(logger log.Logger, addr string) *MetricsServer {
	return &MetricsServer{log: logger, addr: addr}
}

func (s *MetricsServer) Start() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.Wrap(err, "failed to listen on metrics address")
	}
	s.listener = listener

	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := s.server.Serve(s.listener); err != nil && err != http.ErrServerClosed {
			s.log.Error("Metrics server terminated", "error", err)
		}
	}()
	s.log.Info("Metrics server started", "addr", s.listener.Addr().String())
	return nil
}

func (s *MetricsServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
