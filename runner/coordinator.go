package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"

	"github.com/parabank-qa/acceptor/metrics"
	"github.com/parabank-qa/acceptor/types"
)

// Executor performs one attempt of one test case. Implementations never
// panic or return errors past this boundary: every internal failure is
// converted into a failure ExecutionResult.
type Executor interface {
	Kind() types.ExecutorKind
	Execute(ctx context.Context, tc types.TestCase) *types.ExecutionResult
}

// Store is the read-only test-case lookup collaborator.
type Store interface {
	Get(id string) (types.TestCase, error)
}

// Config holds configuration for creating a coordinator.
type Config struct {
	Store     Store
	Executors map[types.ExecutorKind]Executor
	Log       log.Logger

	// MaxRetries is the run-wide retry bound; a test case may override it.
	MaxRetries int

	// APIRetryDelay and UIRetryDelay are the fixed inter-attempt waits.
	APIRetryDelay time.Duration
	UIRetryDelay  time.Duration
}

// Coordinator accepts batches of test-case references, executes each through
// the retry wrapper, bounds concurrent in-flight executions, and aggregates
// per-test results into run records. Runs live in memory until the process
// exits; retention is an external concern.
type Coordinator struct {
	cfg Config
	log log.Logger

	mu   sync.RWMutex
	runs map[string]*Run
}

// NewCoordinator creates a run coordinator.
func NewCoordinator(cfg Config) (*Coordinator, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("test-case store is required")
	}
	if len(cfg.Executors) == 0 {
		return nil, fmt.Errorf("at least one executor is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	return &Coordinator{
		cfg:  cfg,
		log:  cfg.Log.New("component", "coordinator"),
		runs: make(map[string]*Run),
	}, nil
}

// SubmitRun accepts a batch of test-case IDs and starts executing it in the
// background. The returned runID can be polled with GetRunStatus at any
// point; a submitted run always reaches a terminal state.
func (c *Coordinator) SubmitRun(testCaseIDs []string, parallel bool, poolSize int) (string, error) {
	if len(testCaseIDs) == 0 {
		return "", errors.New("at least one test case is required")
	}

	runID := uuid.New().String()
	run := newRun(runID, testCaseIDs)

	c.mu.Lock()
	c.runs[runID] = run
	c.mu.Unlock()

	c.log.Info("Run accepted",
		"run_id", runID,
		"totalTests", len(testCaseIDs),
		"parallel", parallel,
		"poolSize", poolSize)

	go c.executeRun(run, parallel, poolSize)
	return runID, nil
}

// GetRunStatus returns a point-in-time snapshot of a run.
func (c *Coordinator) GetRunStatus(runID string) (RunSnapshot, error) {
	run, err := c.run(runID)
	if err != nil {
		return RunSnapshot{}, err
	}
	return run.Snapshot(), nil
}

// WaitForRun blocks until the run reaches a terminal state or the context
// expires. Note that in-flight test cases cannot be aborted: a cancelled wait
// only stops the caller from watching, not the run from finishing.
func (c *Coordinator) WaitForRun(ctx context.Context, runID string) error {
	run, err := c.run(runID)
	if err != nil {
		return err
	}
	select {
	case <-run.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunBatch submits a run and blocks until it is terminal, returning the final
// snapshot. This is the synchronous entry point used by run-once mode.
func (c *Coordinator) RunBatch(ctx context.Context, testCaseIDs []string, parallel bool, poolSize int) (RunSnapshot, error) {
	runID, err := c.SubmitRun(testCaseIDs, parallel, poolSize)
	if err != nil {
		return RunSnapshot{}, err
	}
	if err := c.WaitForRun(ctx, runID); err != nil {
		return RunSnapshot{}, err
	}
	return c.GetRunStatus(runID)
}

func (c *Coordinator) run(runID string) (*Run, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	run, ok := c.runs[runID]
	if !ok {
		return nil, fmt.Errorf("unknown run %q", runID)
	}
	return run, nil
}

// executeRun drives one run to a terminal state. Per-test failures are data
// in the result list; only a fault in the scheduling machinery itself marks
// the run Failed.
func (c *Coordinator) executeRun(run *Run, parallel bool, poolSize int) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("Run dispatch fault", "run_id", run.ID(), "error", r)
			run.markFailed(fmt.Sprintf("dispatch fault: %v", r))
			metrics.RecordError("run_dispatch_fault")
			c.recordRun(run)
		}
	}()

	items := make([]workItem, len(run.caseIDs))
	for i, id := range run.caseIDs {
		items[i] = workItem{index: i, id: id}
	}

	start := time.Now()
	run.markRunning()

	if parallel {
		workers := poolSize
		if workers < 1 {
			workers = 1 // clamp to a sane minimum
		}
		c.log.Debug("Dispatching run", "run_id", run.ID(), "mode", "parallel", "workers", workers)
		c.executeParallel(run, items, workers)
	} else {
		c.log.Debug("Dispatching run", "run_id", run.ID(), "mode", "serial")
		for _, item := range items {
			run.setResult(item.index, c.executeCase(item.id))
		}
	}

	run.markCompleted()
	c.recordRun(run)

	snap := run.Snapshot()
	c.log.Info("Run completed",
		"run_id", run.ID(),
		"duration", time.Since(start),
		"totalTests", snap.TotalTests,
		"passed", snap.Passed,
		"failed", snap.Failed)
}

// executeCase resolves one test-case reference and runs it through the retry
// wrapper. Anything thrown at any layer below is converted into a failure
// result here, so the dispatch machinery never sees a raw panic from an
// individual test execution.
func (c *Coordinator) executeCase(id string) (res *types.ExecutionResult) {
	defer func() {
		if r := recover(); r != nil {
			res = types.NewFailure(
				fmt.Sprintf("test case %s aborted", id),
				fmt.Sprintf("internal error executing test case %s: %v", id, r))
		}
	}()

	tc, err := c.cfg.Store.Get(id)
	if err != nil {
		c.log.Warn("Test case lookup failed", "testCase", id, "error", err)
		return types.NewFailure(
			fmt.Sprintf("test case %s could not be loaded", id),
			err.Error())
	}

	exec, ok := c.cfg.Executors[tc.Kind]
	if !ok {
		return types.NewFailure(
			fmt.Sprintf("test case %s has no executor", id),
			fmt.Sprintf("no executor registered for kind %q", tc.Kind))
	}

	maxRetries := c.cfg.MaxRetries
	if tc.MaxRetries != nil {
		maxRetries = *tc.MaxRetries
	}
	delay := c.cfg.APIRetryDelay
	if tc.Kind == types.ExecutorKindUI {
		delay = c.cfg.UIRetryDelay
	}

	policy := RetryPolicy{
		MaxRetries: maxRetries,
		Delay:      delay,
		Log:        c.log.New("testCase", id),
		OnRetry: func(attempt int) {
			metrics.RecordRetry(string(tc.Kind), tc.Functionality)
		},
	}

	res = policy.WithRetry(func(attempt int) *types.ExecutionResult {
		return exec.Execute(context.Background(), tc)
	})

	metrics.RecordExecution(string(tc.Kind), tc.Functionality, res.Success)
	return res
}

// recordRun counts the run in metrics exactly once. The happy path and the
// dispatch-fault recovery in executeRun can both reach it for the same run,
// e.g. when a panic escapes after the run was already completed and counted.
func (c *Coordinator) recordRun(run *Run) {
	if !run.recorded.CompareAndSwap(false, true) {
		return
	}
	snap := run.Snapshot()
	var dur time.Duration
	if !snap.EndedAt.IsZero() && !snap.StartedAt.IsZero() {
		dur = snap.EndedAt.Sub(snap.StartedAt)
	}
	metrics.RecordRun(snap.RunID, string(snap.Status), snap.TotalTests, snap.Passed, snap.Failed, dur)
}
