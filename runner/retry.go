package runner

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/parabank-qa/acceptor/types"
)

// AttemptFunc performs one execution attempt. The attempt number is zero-based.
type AttemptFunc func(attempt int) *types.ExecutionResult

// RetryPolicy bounds repeated execution of a single test case. Retrying is
// purely attempt-count bounded: there is no backoff and no classification of
// retryable vs non-retryable failures, so a deterministic failure is retried
// identically until the bound is exhausted.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt, so
	// MaxRetries+1 attempts run in total.
	MaxRetries int

	// Delay is the fixed wait between attempts. UI executions use a longer
	// delay than API ones since their failures are more often slow page
	// transitions.
	Delay time.Duration

	// OnRetry, when set, is invoked before each retry attempt (not before
	// the first attempt).
	OnRetry func(attempt int)

	Log log.Logger
}

// WithRetry runs fn until it succeeds or the retry bound is exhausted. The
// result of the LAST attempt is returned on exhaustion: later attempts carry
// more relevant diagnostic context than the first failure. A panicking
// attempt is converted to a failure result and retried like any other
// failure.
func (p RetryPolicy) WithRetry(fn AttemptFunc) *types.ExecutionResult {
	total := p.MaxRetries + 1
	if total < 1 {
		total = 1
	}

	var last *types.ExecutionResult
	for attempt := 0; attempt < total; attempt++ {
		if attempt > 0 {
			if p.OnRetry != nil {
				p.OnRetry(attempt)
			}
			if p.Delay > 0 {
				time.Sleep(p.Delay)
			}
		}

		last = p.runAttempt(fn, attempt)
		if last.Success {
			return last
		}
		if p.Log != nil {
			p.Log.Debug("Attempt failed",
				"attempt", attempt+1,
				"totalAttempts", total,
				"error", last.ErrorMessage)
		}
	}

	if last == nil {
		// Should not occur; total is always at least 1.
		return types.NewFailure("no attempts executed", "retry wrapper ran zero attempts")
	}
	return last
}

// runAttempt invokes fn and converts panics and nil results into failure
// results so nothing escapes the retry boundary.
func (p RetryPolicy) runAttempt(fn AttemptFunc, attempt int) (res *types.ExecutionResult) {
	defer func() {
		if r := recover(); r != nil {
			res = types.NewFailure(
				fmt.Sprintf("attempt %d aborted by internal error", attempt+1),
				fmt.Sprintf("internal error on attempt %d: %v", attempt+1, r))
		}
	}()

	res = fn(attempt)
	if res == nil {
		res = types.NewFailure(
			fmt.Sprintf("attempt %d produced no result", attempt+1),
			fmt.Sprintf("executor returned no result on attempt %d", attempt+1))
	}
	return res
}
