// Package uiexec implements the UI executor capability: one attempt of one
// browser-driven test case, with an authenticated-session state machine in
// front of the operations that need one. Each execution runs in its own
// isolated browser session.
package uiexec

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"

	"github.com/parabank-qa/acceptor/browser"
	"github.com/parabank-qa/acceptor/types"
)

const defaultOperationTimeout = 60 * time.Second

// Config configures a UI executor. Passed by value into the constructor; no
// shared mutable state.
type Config struct {
	// BaseURL is the root of the target web application, e.g.
	// "https://host/parabank".
	BaseURL string

	// Username and Password are the default credentials for the session
	// authenticator; test-case data may override them.
	Username string
	Password string

	// ScreenshotDir, when set, receives screenshot artifacts. Failures are
	// always captured; successes only when CaptureAlways is set.
	ScreenshotDir string
	CaptureAlways bool

	// SettleDelay is the wait before re-reading page content after a
	// submit or navigation.
	SettleDelay time.Duration

	// DefaultTimeout bounds an execution when the test case carries no
	// timeout of its own.
	DefaultTimeout time.Duration

	// ProfileDefaults seed registration and profile forms.
	ProfileDefaults map[string]string
}

type uiHandler struct {
	needsAuth bool
	run       func(ctx context.Context, s browser.Session, data map[string]string) *types.ExecutionResult
}

// Executor is the UI executor capability.
type Executor struct {
	cfg      Config
	driver   browser.Driver
	log      log.Logger
	handlers map[types.Functionality]uiHandler
}

// NewExecutor creates a UI executor on top of a browser driver.
func NewExecutor(cfg Config, driver browser.Driver, logger log.Logger) *Executor {
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = defaultSettleDelay
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = defaultOperationTimeout
	}
	if logger == nil {
		logger = log.New()
	}

	e := &Executor{
		cfg:    cfg,
		driver: driver,
		log:    logger.New("component", "ui-executor"),
	}
	e.handlers = map[types.Functionality]uiHandler{
		types.FuncRegister:         {needsAuth: false, run: e.register},
		types.FuncLogin:            {needsAuth: false, run: e.login},
		types.FuncOpenAccount:      {needsAuth: true, run: e.openAccount},
		types.FuncAccountOverview:  {needsAuth: true, run: e.accountOverview},
		types.FuncTransferFunds:    {needsAuth: true, run: e.transferFunds},
		types.FuncPayBills:         {needsAuth: true, run: e.payBills},
		types.FuncFindTransactions: {needsAuth: true, run: e.findTransactions},
		types.FuncUpdateProfile:    {needsAuth: true, run: e.updateProfile},
		types.FuncRequestLoan:      {needsAuth: true, run: e.requestLoan},
		types.FuncLogout:           {needsAuth: true, run: e.logout},
	}
	return e
}

// Kind implements runner.Executor.
func (e *Executor) Kind() types.ExecutorKind {
	return types.ExecutorKindUI
}

// Execute performs one attempt of the test case in a fresh browser session.
// The functionality name is resolved against the closed UI set before any
// browser work happens; an unknown name never starts a session.
func (e *Executor) Execute(ctx context.Context, tc types.TestCase) (res *types.ExecutionResult) {
	defer func() {
		if r := recover(); r != nil {
			res = types.NewFailure(
				fmt.Sprintf("UI operation %q aborted", tc.Functionality),
				fmt.Sprintf("internal error in UI executor: %v", r))
		}
	}()

	fn, err := types.ParseFunctionality(types.ExecutorKindUI, tc.Functionality)
	if err != nil {
		return types.NewFailure(
			fmt.Sprintf("unsupported UI operation %q", tc.Functionality),
			err.Error())
	}

	timeout := tc.Timeout
	if timeout <= 0 {
		timeout = e.cfg.DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	session, err := e.driver.NewSession(ctx)
	if err != nil {
		return types.NewFailure(
			fmt.Sprintf("%s could not start a browser session", fn),
			err.Error())
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			e.log.Warn("Browser session close failed", "operation", fn, "error", cerr)
		}
	}()

	handler := e.handlers[fn]
	if handler.needsAuth {
		auth := NewAuthenticator(AuthConfig{
			BaseURL:         e.cfg.BaseURL,
			Username:        e.cfg.Username,
			Password:        e.cfg.Password,
			SettleDelay:     e.cfg.SettleDelay,
			ProfileDefaults: e.cfg.ProfileDefaults,
		}, e.log)
		if aerr := auth.Ensure(ctx, session, tc.Data); aerr != nil {
			res = types.NewFailure(
				fmt.Sprintf("%s aborted: no authenticated session", fn),
				aerr.Error())
			e.capture(ctx, session, fn, res)
			return res
		}
	}

	res = handler.run(ctx, session, tc.Data)
	e.capture(ctx, session, fn, res)
	return res
}

// capture persists a screenshot artifact next to the result. Failures are
// always captured when a directory is configured; successes only on request.
// A capture error is logged, never escalated: the execution outcome stands.
func (e *Executor) capture(ctx context.Context, s browser.Session, fn types.Functionality, res *types.ExecutionResult) {
	if e.cfg.ScreenshotDir == "" {
		return
	}
	if res.Success && !e.cfg.CaptureAlways {
		return
	}

	name := fmt.Sprintf("%s-%s-%s.png",
		fn,
		time.Now().Format("20060102-150405"),
		uuid.NewString()[:8])
	path := filepath.Join(e.cfg.ScreenshotDir, name)

	if err := s.Screenshot(ctx, path); err != nil {
		e.log.Warn("Screenshot capture failed", "operation", fn, "path", path, "error", err)
		return
	}
	res.ScreenshotPath = path
}

// classifyOutcome settles, reads the page, and turns the classifier verdict
// into an ExecutionResult for the operation.
func (e *Executor) classifyOutcome(ctx context.Context, s browser.Session, fn types.Functionality, c PageClassifier) *types.ExecutionResult {
	time.Sleep(e.cfg.SettleDelay)

	content, err := s.PageContent(ctx)
	if err != nil {
		return types.NewFailure(
			fmt.Sprintf("%s could not read resulting page", fn),
			err.Error())
	}
	pageURL, err := s.CurrentURL(ctx)
	if err != nil {
		e.log.Warn("Could not read current URL", "operation", fn, "error", err)
	}

	switch c.Classify(content, pageURL) {
	case VerdictSuccess:
		return types.NewSuccess(fmt.Sprintf("%s confirmed by page state", fn))
	case VerdictFailure:
		return types.NewFailure(
			fmt.Sprintf("%s rejected by the application", fn),
			fmt.Sprintf("page reported an error after %s", fn))
	default:
		return types.NewFailure(
			fmt.Sprintf("%s outcome could not be confirmed", fn),
			fmt.Sprintf("page state inconclusive after %s", fn))
	}
}
