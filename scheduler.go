package acceptor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/parabank-qa/acceptor/metrics"
)

// SuiteRunFunc executes one suite run. The context carries the lifetime of
// the scheduling loop, so an in-flight run is cancelled together with the
// application.
type SuiteRunFunc func(ctx context.Context) error

// RunScheduler drives suite runs: exactly one in run-once mode, otherwise
// one immediately and then one per interval.
type RunScheduler interface {
	Start(ctx context.Context) error
	Stop() error
	RegisterCallback(run SuiteRunFunc)
	WaitForShutdown(ctx context.Context) error
	Stopped() bool
}

// DefaultRunScheduler implements RunScheduler. A suite against a slow bank
// deployment can outlast the interval; runs are never stacked, the tick is
// skipped and the skip is counted instead.
type DefaultRunScheduler struct {
	interval time.Duration
	runOnce  bool
	logger   log.Logger
	run      SuiteRunFunc

	running  atomic.Bool
	inFlight atomic.Bool
	skipped  atomic.Int64
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewDefaultRunScheduler creates a new DefaultRunScheduler.
func NewDefaultRunScheduler(interval time.Duration, runOnce bool, logger log.Logger) *DefaultRunScheduler {
	return &DefaultRunScheduler{
		interval: interval,
		runOnce:  runOnce,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// RegisterCallback registers the suite run to schedule.
func (s *DefaultRunScheduler) RegisterCallback(run SuiteRunFunc) {
	s.run = run
}

// Start starts the scheduler. In run-once mode the suite runs synchronously
// exactly once and its error is returned. In continuous mode the first run
// is dispatched immediately, further runs on every interval tick, and
// per-run errors are logged rather than returned.
func (s *DefaultRunScheduler) Start(ctx context.Context) error {
	if s.run == nil {
		return errors.New("a suite run must be registered before starting the scheduler")
	}

	s.done = make(chan struct{})
	s.running.Store(true)

	if s.runOnce {
		s.logger.Info("Executing a single suite run")
		defer s.running.Store(false)
		return s.run(ctx)
	}

	s.logger.Info("Scheduling suite runs", "interval", s.interval)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.dispatch(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if !s.running.Load() {
					return
				}
				s.dispatch(ctx)

			case <-s.done:
				s.logger.Debug("Scheduler stopped, exiting run loop")
				return

			case <-ctx.Done():
				s.logger.Debug("Context canceled, exiting run loop")
				s.running.Store(false)
				return
			}
		}
	}()

	return nil
}

// dispatch starts one suite run unless the previous one is still in flight.
func (s *DefaultRunScheduler) dispatch(ctx context.Context) {
	if !s.inFlight.CompareAndSwap(false, true) {
		skipped := s.skipped.Add(1)
		s.logger.Warn("Previous suite run still in flight, skipping this interval",
			"interval", s.interval, "skippedTotal", skipped)
		metrics.RecordError("scheduled_run_skipped")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.inFlight.Store(false)
		if err := s.run(ctx); err != nil {
			s.logger.Error("Scheduled suite run failed", "error", err)
		}
	}()
}

// SkippedRuns reports how many interval ticks were skipped because the
// previous suite run had not finished.
func (s *DefaultRunScheduler) SkippedRuns() int64 {
	return s.skipped.Load()
}

// Stop stops the scheduler. An in-flight run is not interrupted; use
// WaitForShutdown to wait for it.
func (s *DefaultRunScheduler) Stop() error {
	if !s.running.Load() {
		s.logger.Debug("Scheduler already stopped, nothing to do")
		return nil
	}

	s.running.Store(false)
	close(s.done)

	return nil
}

// Stopped returns true if the scheduler is stopped.
func (s *DefaultRunScheduler) Stopped() bool {
	return !s.running.Load()
}

// WaitForShutdown blocks until the run loop and any in-flight suite run
// have terminated.
func (s *DefaultRunScheduler) WaitForShutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Debug("Scheduler shut down cleanly")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Timed out waiting for suite runs to terminate", "error", ctx.Err())
		return ctx.Err()
	}
}
