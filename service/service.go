package service

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/log"

	"github.com/parabank-qa/acceptor/runner"
)

// Config holds the settings for the HTTP surface of the application.
type Config struct {
	Log         log.Logger
	ListenAddr  string
	MetricsAddr string
	Coordinator *runner.Coordinator
}

// Service owns the HTTP servers: the run API with its healthz endpoint on
// the listen address, and the Prometheus metrics server when configured.
type Service struct {
	cfg Config

	runServer     *RunServer
	metricsServer *MetricsServer
}

func New(cfg Config) (*Service, error) {
	if cfg.ListenAddr == "" && cfg.MetricsAddr == "" {
		return nil, fmt.Errorf("at least one listen address is required")
	}

	s := &Service{cfg: cfg}
	if cfg.ListenAddr != "" {
		if cfg.Coordinator == nil {
			return nil, fmt.Errorf("coordinator is required for the run server")
		}
		s.runServer = NewRunServer(cfg.Log, cfg.ListenAddr, cfg.Coordinator)
	}
	if cfg.MetricsAddr != "" {
		s.metricsServer = NewMetricsServer(cfg.Log, cfg.MetricsAddr)
	}
	return s, nil
}

// Start brings up the servers. Each server runs in its own goroutine; a
// listen failure is reported through the returned error channel.
func (s *Service) Start(ctx context.Context) error {
	if s.runServer != nil {
		if err := s.runServer.Start(); err != nil {
			return fmt.Errorf("failed to start run server: %w", err)
		}
	}
	if s.metricsServer != nil {
		if err := s.metricsServer.Start(); err != nil {
			if s.runServer != nil {
				_ = s.runServer.Shutdown(ctx)
			}
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	}
	s.cfg.Log.Info("Service started", "addr", s.cfg.ListenAddr, "metricsAddr", s.cfg.MetricsAddr)
	return nil
}

// Shutdown stops the servers gracefully.
func (s *Service) Shutdown(ctx context.Context) error {
	var firstErr error
	if s.runServer != nil {
		if err := s.runServer.Shutdown(ctx); err != nil {
			firstErr = err
		}
	}
	if s.metricsServer != nil {
		if err := s.metricsServer.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
