package types

import "time"

// ExecutionResult is the uniform outcome record produced by any test
// execution. It is built once by an executor and never mutated afterwards;
// the StatusCode/ResponseBody fields are only meaningful for API executions
// and ScreenshotPath only for UI executions.
type ExecutionResult struct {
	Success      bool
	Details      string
	ErrorMessage string
	ExecutedAt   time.Time

	// API executor fields.
	StatusCode   int
	ResponseBody string

	// UI executor fields.
	ScreenshotPath string
}

// NewSuccess returns a successful result with a human-readable summary.
func NewSuccess(details string) *ExecutionResult {
	return &ExecutionResult{
		Success:    true,
		Details:    details,
		ExecutedAt: time.Now(),
	}
}

// NewFailure returns a failed result. ErrorMessage is always populated so a
// failure can never be silent: if errMsg is empty the details are used, and
// as a last resort a generic message is substituted.
func NewFailure(details, errMsg string) *ExecutionResult {
	if errMsg == "" {
		errMsg = details
	}
	if errMsg == "" {
		errMsg = "execution failed with no diagnostic detail"
	}
	return &ExecutionResult{
		Details:      details,
		ErrorMessage: errMsg,
		ExecutedAt:   time.Now(),
	}
}
