package runner

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/parabank-qa/acceptor/types"
)

// Run is one batch execution of a set of test cases. It is created Pending,
// mutated only by the coordinator, and holds its results indexed by dispatch
// order so concurrent completions are assembled back into submission order.
type Run struct {
	mu sync.RWMutex

	id        string
	status    types.RunStatus
	caseIDs   []string
	results   []*types.ExecutionResult // indexed by dispatch order; nil until finished
	failure   string                   // populated only for run-level faults
	startedAt time.Time
	endedAt   time.Time

	done     chan struct{} // closed when the run reaches a terminal state
	recorded atomic.Bool   // set once the run has been counted in metrics
}

func newRun(id string, caseIDs []string) *Run {
	ids := make([]string, len(caseIDs))
	copy(ids, caseIDs)
	return &Run{
		id:      id,
		status:  types.RunStatusPending,
		caseIDs: ids,
		results: make([]*types.ExecutionResult, len(ids)),
		done:    make(chan struct{}),
	}
}

// ID returns the run's identifier.
func (r *Run) ID() string {
	return r.id
}

// Status returns the run's current lifecycle state.
func (r *Run) Status() types.RunStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// Done returns a channel closed when the run reaches a terminal state.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

func (r *Run) markRunning() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != types.RunStatusPending {
		return
	}
	r.status = types.RunStatusRunning
	r.startedAt = time.Now()
}

func (r *Run) markCompleted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status.Terminal() {
		return
	}
	r.status = types.RunStatusCompleted
	r.endedAt = time.Now()
	close(r.done)
}

func (r *Run) markFailed(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status.Terminal() {
		return
	}
	r.status = types.RunStatusFailed
	r.failure = reason
	r.endedAt = time.Now()
	close(r.done)
}

// setResult records a finished test case at its dispatch index. Insertion is
// serialized under the run's lock; this is the only state shared between
// workers.
func (r *Run) setResult(index int, res *types.ExecutionResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if index < 0 || index >= len(r.results) {
		return
	}
	r.results[index] = res
}

// RunSnapshot is the externally visible state of a run at one point in time.
type RunSnapshot struct {
	RunID      string
	Status     types.RunStatus
	TotalTests int
	Passed     int
	Failed     int
	Error      string
	StartedAt  time.Time
	EndedAt    time.Time

	// Results holds the finished test cases in dispatch order. While the
	// run is in flight, not-yet-finished cases are simply absent.
	Results []types.TestCaseResult
}

// Snapshot returns a point-in-time copy of the run state. It is safe to call
// while the run is executing; results are never present-but-wrong.
func (r *Run) Snapshot() RunSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := RunSnapshot{
		RunID:      r.id,
		Status:     r.status,
		TotalTests: len(r.caseIDs),
		Error:      r.failure,
		StartedAt:  r.startedAt,
		EndedAt:    r.endedAt,
	}
	for i, res := range r.results {
		if res == nil {
			continue
		}
		snap.Results = append(snap.Results, types.TestCaseResult{
			TestCaseID: r.caseIDs[i],
			Result:     res,
		})
		if res.Success {
			snap.Passed++
		} else {
			snap.Failed++
		}
	}
	return snap
}
