package types

import (
	"fmt"
	"time"
)

// TestCase is one executable test-case definition. It is owned by the caller
// (suite file or run request) and read-only to the orchestration core.
type TestCase struct {
	ID            string            `yaml:"id"`
	Kind          ExecutorKind      `yaml:"kind"`
	Functionality string            `yaml:"functionality"`
	Data          map[string]string `yaml:"data,omitempty"`

	// Timeout is a soft per-case hint consumed by the executor layer
	// (HTTP client deadline, browser operation deadline). The coordinator
	// does not enforce it.
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// MaxRetries overrides the run-wide retry bound when set.
	MaxRetries *int `yaml:"maxRetries,omitempty"`
}

// Validate checks the structural fields of a test case. The functionality
// name is deliberately not checked here: an unknown operation must surface as
// a failure ExecutionResult at execution time, not as a load error.
func (tc TestCase) Validate() error {
	if tc.ID == "" {
		return fmt.Errorf("test case is missing an id")
	}
	if !tc.Kind.IsValid() {
		return fmt.Errorf("test case %s has unknown kind %q", tc.ID, tc.Kind)
	}
	if tc.Functionality == "" {
		return fmt.Errorf("test case %s is missing a functionality", tc.ID)
	}
	if tc.MaxRetries != nil && *tc.MaxRetries < 0 {
		return fmt.Errorf("test case %s has negative maxRetries", tc.ID)
	}
	return nil
}

// TestCaseResult pairs a test-case ID with its execution outcome in a run's
// result list.
type TestCaseResult struct {
	TestCaseID string
	Result     *ExecutionResult
}

// MergeData combines default key/value data with caller-supplied overrides.
// The merge is evaluated once per execution and returns a fresh map; neither
// input is modified and no shared state is involved.
func MergeData(defaults, overrides map[string]string) map[string]string {
	merged := make(map[string]string, len(defaults)+len(overrides))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}
