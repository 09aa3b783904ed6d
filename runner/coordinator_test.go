package runner

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parabank-qa/acceptor/apiexec"
	"github.com/parabank-qa/acceptor/types"
)

// fakeStore serves test cases from a map.
type fakeStore struct {
	mu    sync.Mutex
	cases map[string]types.TestCase
	panic bool
}

func (s *fakeStore) Get(id string) (types.TestCase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.panic {
		panic("store corrupted")
	}
	tc, ok := s.cases[id]
	if !ok {
		return types.TestCase{}, fmt.Errorf("unknown test case %q", id)
	}
	return tc, nil
}

// fakeExecutor runs a per-test-case behavior function.
type fakeExecutor struct {
	kind    types.ExecutorKind
	mu      sync.Mutex
	calls   []string
	behave  func(tc types.TestCase) *types.ExecutionResult
	started chan string // when set, receives the test-case id at dispatch
	release chan struct{}
}

func (e *fakeExecutor) Kind() types.ExecutorKind {
	return e.kind
}

func (e *fakeExecutor) Execute(_ context.Context, tc types.TestCase) *types.ExecutionResult {
	e.mu.Lock()
	e.calls = append(e.calls, tc.ID)
	e.mu.Unlock()

	if e.started != nil {
		e.started <- tc.ID
	}
	if e.release != nil {
		<-e.release
	}
	if e.behave != nil {
		return e.behave(tc)
	}
	return types.NewSuccess(tc.ID + " done")
}

func (e *fakeExecutor) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

func testCoordinator(t *testing.T, store Store, exec *fakeExecutor) *Coordinator {
	t.Helper()
	c, err := NewCoordinator(Config{
		Store:     store,
		Executors: map[types.ExecutorKind]Executor{exec.kind: exec},
		Log:       log.NewLogger(log.DiscardHandler()),
	})
	require.NoError(t, err)
	return c
}

func storeWith(ids ...string) *fakeStore {
	cases := make(map[string]types.TestCase, len(ids))
	for _, id := range ids {
		cases[id] = types.TestCase{ID: id, Kind: types.ExecutorKindAPI, Functionality: "login"}
	}
	return &fakeStore{cases: cases}
}

func TestNewCoordinator_Validation(t *testing.T) {
	exec := &fakeExecutor{kind: types.ExecutorKindAPI}

	_, err := NewCoordinator(Config{Executors: map[types.ExecutorKind]Executor{types.ExecutorKindAPI: exec}})
	require.Error(t, err)

	_, err = NewCoordinator(Config{Store: storeWith()})
	require.Error(t, err)
}

func TestSubmitRun_EmptyBatchRejected(t *testing.T) {
	c := testCoordinator(t, storeWith("a"), &fakeExecutor{kind: types.ExecutorKindAPI})
	_, err := c.SubmitRun(nil, false, 1)
	require.Error(t, err)
}

func TestGetRunStatus_UnknownRun(t *testing.T) {
	c := testCoordinator(t, storeWith("a"), &fakeExecutor{kind: types.ExecutorKindAPI})
	_, err := c.GetRunStatus("no-such-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown run")
}

func TestRunBatch_SerialCompletesInOrder(t *testing.T) {
	exec := &fakeExecutor{kind: types.ExecutorKindAPI}
	c := testCoordinator(t, storeWith("a", "b", "c"), exec)

	snap, err := c.RunBatch(context.Background(), []string{"a", "b", "c"}, false, 1)
	require.NoError(t, err)

	assert.Equal(t, types.RunStatusCompleted, snap.Status)
	assert.Equal(t, 3, snap.TotalTests)
	assert.Equal(t, 3, snap.Passed)
	require.Len(t, snap.Results, 3)
	assert.Equal(t, "a", snap.Results[0].TestCaseID)
	assert.Equal(t, "b", snap.Results[1].TestCaseID)
	assert.Equal(t, "c", snap.Results[2].TestCaseID)
}

func TestRunBatch_ParallelPreservesSubmissionOrder(t *testing.T) {
	ids := make([]string, 20)
	for i := range ids {
		ids[i] = fmt.Sprintf("case-%02d", i)
	}
	exec := &fakeExecutor{
		kind: types.ExecutorKindAPI,
		behave: func(tc types.TestCase) *types.ExecutionResult {
			// Jitter completion order.
			time.Sleep(time.Duration(len(tc.ID)%3) * time.Millisecond)
			return types.NewSuccess(tc.ID + " done")
		},
	}
	c := testCoordinator(t, storeWith(ids...), exec)

	snap, err := c.RunBatch(context.Background(), ids, true, 4)
	require.NoError(t, err)

	assert.Equal(t, types.RunStatusCompleted, snap.Status)
	require.Len(t, snap.Results, len(ids))
	for i, id := range ids {
		assert.Equal(t, id, snap.Results[i].TestCaseID)
	}
	assert.Equal(t, len(ids), exec.callCount())
}

func TestRunBatch_SerialAndParallelProduceSameResults(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e"}
	behave := func(tc types.TestCase) *types.ExecutionResult {
		if tc.ID == "c" {
			return types.NewFailure(tc.ID+" rejected", "synthetic failure")
		}
		return types.NewSuccess(tc.ID + " done")
	}

	serialExec := &fakeExecutor{kind: types.ExecutorKindAPI, behave: behave}
	serial, err := testCoordinator(t, storeWith(ids...), serialExec).
		RunBatch(context.Background(), ids, false, 1)
	require.NoError(t, err)

	parallelExec := &fakeExecutor{kind: types.ExecutorKindAPI, behave: behave}
	parallel, err := testCoordinator(t, storeWith(ids...), parallelExec).
		RunBatch(context.Background(), ids, true, 3)
	require.NoError(t, err)

	require.Len(t, parallel.Results, len(serial.Results))
	for i := range serial.Results {
		assert.Equal(t, serial.Results[i].TestCaseID, parallel.Results[i].TestCaseID)
		assert.Equal(t, serial.Results[i].Result.Success, parallel.Results[i].Result.Success)
		assert.Equal(t, serial.Results[i].Result.Details, parallel.Results[i].Result.Details)
	}
	assert.Equal(t, serial.Passed, parallel.Passed)
	assert.Equal(t, serial.Failed, parallel.Failed)
}

func TestRunBatch_PerTestFailuresDoNotFailTheRun(t *testing.T) {
	exec := &fakeExecutor{
		kind: types.ExecutorKindAPI,
		behave: func(tc types.TestCase) *types.ExecutionResult {
			return types.NewFailure(tc.ID+" rejected", "bad credentials")
		},
	}
	c := testCoordinator(t, storeWith("a", "b"), exec)

	snap, err := c.RunBatch(context.Background(), []string{"a", "b"}, false, 1)
	require.NoError(t, err)

	assert.Equal(t, types.RunStatusCompleted, snap.Status)
	assert.Equal(t, 2, snap.Failed)
	assert.Empty(t, snap.Error)
}

func TestRunBatch_UnknownTestCaseIsAFailureResult(t *testing.T) {
	exec := &fakeExecutor{kind: types.ExecutorKindAPI}
	c := testCoordinator(t, storeWith("a"), exec)

	snap, err := c.RunBatch(context.Background(), []string{"a", "ghost"}, false, 1)
	require.NoError(t, err)

	assert.Equal(t, types.RunStatusCompleted, snap.Status)
	require.Len(t, snap.Results, 2)
	assert.True(t, snap.Results[0].Result.Success)
	assert.False(t, snap.Results[1].Result.Success)
	assert.Contains(t, snap.Results[1].Result.ErrorMessage, "unknown test case")
}

func TestRunBatch_MissingExecutorIsAFailureResult(t *testing.T) {
	store := &fakeStore{cases: map[string]types.TestCase{
		"ui-case": {ID: "ui-case", Kind: types.ExecutorKindUI, Functionality: "logout"},
	}}
	exec := &fakeExecutor{kind: types.ExecutorKindAPI}
	c := testCoordinator(t, store, exec)

	snap, err := c.RunBatch(context.Background(), []string{"ui-case"}, false, 1)
	require.NoError(t, err)

	assert.Equal(t, types.RunStatusCompleted, snap.Status)
	require.Len(t, snap.Results, 1)
	assert.Contains(t, snap.Results[0].Result.ErrorMessage, "no executor registered")
	assert.Zero(t, exec.callCount())
}

func TestRunBatch_ExecutorPanicIsContained(t *testing.T) {
	exec := &fakeExecutor{
		kind: types.ExecutorKindAPI,
		behave: func(tc types.TestCase) *types.ExecutionResult {
			if tc.ID == "b" {
				panic("browser crashed")
			}
			return types.NewSuccess(tc.ID + " done")
		},
	}
	c := testCoordinator(t, storeWith("a", "b", "c"), exec)

	snap, err := c.RunBatch(context.Background(), []string{"a", "b", "c"}, true, 2)
	require.NoError(t, err)

	assert.Equal(t, types.RunStatusCompleted, snap.Status)
	assert.Equal(t, 2, snap.Passed)
	assert.Equal(t, 1, snap.Failed)
	assert.Contains(t, snap.Results[1].Result.ErrorMessage, "browser crashed")
}

func TestRunBatch_StorePanicFailsCaseNotRun(t *testing.T) {
	store := storeWith("a")
	store.panic = true
	exec := &fakeExecutor{kind: types.ExecutorKindAPI}
	c := testCoordinator(t, store, exec)

	snap, err := c.RunBatch(context.Background(), []string{"a"}, true, 2)
	require.NoError(t, err)

	// The lookup panic is contained at the test-case boundary; the run
	// itself still completes.
	assert.Equal(t, types.RunStatusCompleted, snap.Status)
	require.Len(t, snap.Results, 1)
	assert.Contains(t, snap.Results[0].Result.ErrorMessage, "store corrupted")
}

func TestGetRunStatus_MidRunShowsRunningWithPartialResults(t *testing.T) {
	exec := &fakeExecutor{
		kind:    types.ExecutorKindAPI,
		started: make(chan string, 3),
		release: make(chan struct{}),
	}
	c := testCoordinator(t, storeWith("a", "b", "c"), exec)

	runID, err := c.SubmitRun([]string{"a", "b", "c"}, false, 1)
	require.NoError(t, err)

	// Wait for the first case to be in flight, then poll.
	<-exec.started
	snap, err := c.GetRunStatus(runID)
	require.NoError(t, err)
	assert.Equal(t, types.RunStatusRunning, snap.Status)
	assert.Equal(t, 3, snap.TotalTests)
	assert.Empty(t, snap.Results, "in-flight case must be absent, not present-but-wrong")

	close(exec.release)
	require.NoError(t, c.WaitForRun(context.Background(), runID))

	snap, err = c.GetRunStatus(runID)
	require.NoError(t, err)
	assert.Equal(t, types.RunStatusCompleted, snap.Status)
	assert.Len(t, snap.Results, 3)
}

func TestWaitForRun_ContextExpiry(t *testing.T) {
	exec := &fakeExecutor{
		kind:    types.ExecutorKindAPI,
		started: make(chan string, 1),
		release: make(chan struct{}),
	}
	c := testCoordinator(t, storeWith("a"), exec)

	runID, err := c.SubmitRun([]string{"a"}, false, 1)
	require.NoError(t, err)
	<-exec.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = c.WaitForRun(ctx, runID)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// The run is unaffected by the abandoned wait.
	close(exec.release)
	require.NoError(t, c.WaitForRun(context.Background(), runID))
}

func TestExecuteCase_PerCaseRetryOverride(t *testing.T) {
	attempts := 0
	override := 3
	store := &fakeStore{cases: map[string]types.TestCase{
		"flaky": {
			ID: "flaky", Kind: types.ExecutorKindAPI, Functionality: "login",
			MaxRetries: &override,
		},
	}}
	exec := &fakeExecutor{
		kind: types.ExecutorKindAPI,
		behave: func(tc types.TestCase) *types.ExecutionResult {
			attempts++
			return types.NewFailure("still flaky", fmt.Sprintf("attempt %d", attempts))
		},
	}

	c, err := NewCoordinator(Config{
		Store:      store,
		Executors:  map[types.ExecutorKind]Executor{exec.kind: exec},
		Log:        log.NewLogger(log.DiscardHandler()),
		MaxRetries: 0, // overridden per case
	})
	require.NoError(t, err)

	snap, err := c.RunBatch(context.Background(), []string{"flaky"}, false, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, attempts)
	assert.Equal(t, "attempt 4", snap.Results[0].Result.ErrorMessage)
}

func TestRunBatch_MixedBatchScenario(t *testing.T) {
	store := &fakeStore{cases: map[string]types.TestCase{
		"api-login-good": {
			ID: "api-login-good", Kind: types.ExecutorKindAPI, Functionality: "login",
			Data: map[string]string{"username": "testuser1", "password": "pw"},
		},
		"api-login-bad": {
			ID: "api-login-bad", Kind: types.ExecutorKindAPI, Functionality: "login",
			Data: map[string]string{"username": "baduser", "password": "pw"},
		},
		"api-unknown-op": {
			ID: "api-unknown-op", Kind: types.ExecutorKindAPI, Functionality: "mint-gold-bars",
		},
	}}
	// The real API executor in simulated mode: deterministic, no target
	// service needed.
	exec := apiexec.NewExecutor(apiexec.Config{}, log.NewLogger(log.DiscardHandler()))
	c, err := NewCoordinator(Config{
		Store:     store,
		Executors: map[types.ExecutorKind]Executor{types.ExecutorKindAPI: exec},
		Log:       log.NewLogger(log.DiscardHandler()),
	})
	require.NoError(t, err)

	ids := []string{"api-login-good", "api-login-bad", "api-unknown-op"}
	snap, err := c.RunBatch(context.Background(), ids, true, 2)
	require.NoError(t, err)

	require.Equal(t, []string{ids[0], ids[1], ids[2]}, []string{
		snap.Results[0].TestCaseID,
		snap.Results[1].TestCaseID,
		snap.Results[2].TestCaseID,
	})

	assert.Equal(t, types.RunStatusCompleted, snap.Status)
	require.Len(t, snap.Results, 3)

	assert.True(t, snap.Results[0].Result.Success)
	assert.Equal(t, 200, snap.Results[0].Result.StatusCode)

	assert.False(t, snap.Results[1].Result.Success)
	assert.Equal(t, 400, snap.Results[1].Result.StatusCode)

	assert.False(t, snap.Results[2].Result.Success)
	assert.Contains(t, snap.Results[2].Result.ErrorMessage, "unknown")
}

// runsTotalCount reads the runs_total counter for a status from the default
// Prometheus registry.
func runsTotalCount(t *testing.T, status string) float64 {
	t.Helper()
	mfs, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != "bank_acceptor_runs_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "status" && lp.GetValue() == status {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestRecordRun_CountsRunExactlyOnce(t *testing.T) {
	exec := &fakeExecutor{kind: types.ExecutorKindAPI}
	c := testCoordinator(t, storeWith("a"), exec)

	run := newRun("run-counted-once", []string{"a"})
	run.markRunning()
	run.markFailed("dispatch fault: store unavailable")

	// The happy path and the dispatch-fault recovery can both reach
	// recordRun for the same run; the run must be counted once.
	before := runsTotalCount(t, string(types.RunStatusFailed))
	c.recordRun(run)
	c.recordRun(run)
	assert.Equal(t, before+1, runsTotalCount(t, string(types.RunStatusFailed)))
}
