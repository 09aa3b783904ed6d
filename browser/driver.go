// Package browser defines the automation-driver boundary used by UI test
// executions, plus a chromedp-backed implementation. The orchestration core
// only depends on the interfaces here, so the driver can be swapped without
// touching executor or authenticator logic.
package browser

import "context"

// Session is one isolated browser session. Sessions are never shared across
// concurrent test cases: each UI execution creates and tears down its own.
type Session interface {
	// Navigate loads the given URL and waits for the page to settle.
	Navigate(ctx context.Context, url string) error

	// Fill sets the value of the form field matching the CSS selector.
	Fill(ctx context.Context, selector, value string) error

	// Click clicks the element matching the CSS selector.
	Click(ctx context.Context, selector string) error

	// PageContent returns the rendered text of the current page.
	PageContent(ctx context.Context) (string, error)

	// CurrentURL returns the current page URL.
	CurrentURL(ctx context.Context) (string, error)

	// Screenshot captures the current viewport to the given file path,
	// creating the parent directory if absent.
	Screenshot(ctx context.Context, path string) error

	// Close tears the session down. Always safe to call once.
	Close() error
}

// Driver creates browser sessions.
type Driver interface {
	NewSession(ctx context.Context) (Session, error)
}
