package types

// RunStatus represents the lifecycle state of a run.
//
// Pending is the instant a run is accepted and assigned an ID, before any
// test case has started. Running begins at dispatch of the first test case.
// Completed means every test case produced an ExecutionResult; per-test
// failures do not fail the run. Failed is reserved for faults in the
// scheduling machinery itself.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Terminal reports whether the status is an end state.
func (s RunStatus) Terminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}
