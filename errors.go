package acceptor

import (
	"errors"
	"fmt"
)

// RuntimeError is an operational failure of the harness itself: bad
// configuration, an unreadable suite file, a faulted dispatch. Maps to exit
// code 2.
type RuntimeError struct {
	Err error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error: %v", e.Err)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// NewRuntimeError creates a new RuntimeError
func NewRuntimeError(err error) *RuntimeError {
	return &RuntimeError{Err: err}
}

// IsRuntimeError checks if the error is or wraps a RuntimeError
func IsRuntimeError(err error) bool {
	var runtimeErr *RuntimeError
	return err != nil && errors.As(err, &runtimeErr)
}

// RunFaultError reports a run that never produced per-test results: the
// dispatch itself faulted and the whole run was marked failed. It carries
// the run ID so operators can correlate with the /runs surface and logs.
// Treated as a runtime error for exit-code purposes.
type RunFaultError struct {
	RunID string
	Err   error
}

func (e *RunFaultError) Error() string {
	return fmt.Sprintf("run %s faulted: %v", e.RunID, e.Err)
}

func (e *RunFaultError) Unwrap() error {
	return e.Err
}

// NewRunFaultError creates a new RunFaultError
func NewRunFaultError(runID string, err error) *RunFaultError {
	return &RunFaultError{RunID: runID, Err: err}
}

// IsRunFaultError checks if the error is or wraps a RunFaultError
func IsRunFaultError(err error) bool {
	var faultErr *RunFaultError
	return err != nil && errors.As(err, &faultErr)
}

// TestFailureError reports a run that completed but had failing test cases.
// Per-test failures are data rather than faults, so this maps to exit code
// 1, not 2.
type TestFailureError struct {
	RunID  string
	Failed int
	Total  int
}

func (e *TestFailureError) Error() string {
	return fmt.Sprintf("run %s: %d of %d test cases failed", e.RunID, e.Failed, e.Total)
}

// NewTestFailureError creates a new TestFailureError
func NewTestFailureError(runID string, failed, total int) *TestFailureError {
	return &TestFailureError{RunID: runID, Failed: failed, Total: total}
}

// IsTestFailureError checks if the error is or wraps a TestFailureError
func IsTestFailureError(err error) bool {
	var testErr *TestFailureError
	return err != nil && errors.As(err, &testErr)
}
