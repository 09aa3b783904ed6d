package acceptor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/parabank-qa/acceptor/apiexec"
	"github.com/parabank-qa/acceptor/browser"
	"github.com/parabank-qa/acceptor/registry"
	"github.com/parabank-qa/acceptor/runner"
	"github.com/parabank-qa/acceptor/types"
	"github.com/parabank-qa/acceptor/uiexec"
)

// App is the bank-acceptor application: a suite registry, an executor per
// kind, and the run coordinator, driven either once, periodically, or on
// demand through the REST surface.
type App struct {
	cfg         *Config
	version     string
	registry    *registry.Registry
	coordinator *runner.Coordinator
	scheduler   RunScheduler

	running atomic.Bool

	lastSnapshot atomic.Pointer[runner.RunSnapshot]
}

// New wires the application together from configuration.
func New(cfg *Config, version string) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	cfg.Log.Debug("Creating bank-acceptor",
		"suite", cfg.SuiteFile,
		"parallel", cfg.Parallel,
		"poolSize", cfg.PoolSize,
		"runInterval", cfg.RunInterval,
		"serve", cfg.Serve)

	reg, err := registry.NewRegistry(registry.Config{
		Log:       cfg.Log,
		SuiteFile: cfg.SuiteFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create registry: %w", err)
	}

	apiExec := apiexec.NewExecutor(apiexec.Config{
		BaseURL:        cfg.APIBaseURL,
		Timeout:        cfg.APITimeout,
		DefaultHeaders: cfg.APIDefaultHeaders,
		Simulate:       cfg.Simulate,
	}, cfg.Log)

	driver := browser.NewChromedpDriver(browser.DriverConfig{
		Headless:         cfg.UIHeadless,
		OperationTimeout: cfg.UITimeout,
	}, cfg.Log)

	uiExec := uiexec.NewExecutor(uiexec.Config{
		BaseURL:         cfg.UIBaseURL,
		Username:        cfg.AuthUsername,
		Password:        cfg.AuthPassword,
		ScreenshotDir:   cfg.ScreenshotDir,
		SettleDelay:     cfg.UISettleDelay,
		DefaultTimeout:  cfg.UITimeout,
		ProfileDefaults: cfg.ProfileDefaults,
	}, driver, cfg.Log)

	coordinator, err := runner.NewCoordinator(runner.Config{
		Store: reg,
		Executors: map[types.ExecutorKind]runner.Executor{
			types.ExecutorKindAPI: apiExec,
			types.ExecutorKindUI:  uiExec,
		},
		Log:           cfg.Log,
		MaxRetries:    cfg.MaxRetries,
		APIRetryDelay: cfg.APIRetryDelay,
		UIRetryDelay:  cfg.UIRetryDelay,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create coordinator: %w", err)
	}

	cfg.Log.Info("bank-acceptor created", "testCases", reg.Len(), "version", version)
	return &App{
		cfg:         cfg,
		version:     version,
		registry:    reg,
		coordinator: coordinator,
		scheduler:   NewDefaultRunScheduler(cfg.RunInterval, cfg.RunOnce, cfg.Log),
	}, nil
}

// Coordinator exposes the run coordinator to the REST surface.
func (a *App) Coordinator() *runner.Coordinator {
	return a.coordinator
}

// LastSnapshot returns the snapshot of the most recent scheduled suite run,
// or nil if none has finished yet.
func (a *App) LastSnapshot() *runner.RunSnapshot {
	return a.lastSnapshot.Load()
}

// Run drives the application until it is finished or the context is
// cancelled. In run-once mode without --serve it returns after one suite run,
// with a TestFailureError when any test case failed.
func (a *App) Run(ctx context.Context) error {
	a.running.Store(true)
	defer a.running.Store(false)

	if a.cfg.Serve && a.cfg.RunOnce {
		a.cfg.Log.Info("Serving run requests; no scheduled runs")
		<-ctx.Done()
		return nil
	}

	a.scheduler.RegisterCallback(a.runSuite)

	if err := a.scheduler.Start(ctx); err != nil {
		if a.cfg.RunOnce {
			return err
		}
		return NewRuntimeError(err)
	}
	if a.cfg.RunOnce {
		// Scheduler already ran the suite synchronously.
		return a.runOnceResult()
	}

	<-ctx.Done()
	_ = a.scheduler.Stop()

	waitCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return a.scheduler.WaitForShutdown(waitCtx)
}

// Stopped reports whether the application has finished running.
func (a *App) Stopped() bool {
	return !a.running.Load()
}

// runSuite executes the configured batch once and prints the results table.
func (a *App) runSuite(ctx context.Context) error {
	ids := a.cfg.RunIDs
	if len(ids) == 0 {
		ids = a.registry.IDs()
	}

	a.cfg.Log.Info("Running suite", "testCases", len(ids), "parallel", a.cfg.Parallel, "poolSize", a.cfg.PoolSize)
	snap, err := a.coordinator.RunBatch(ctx, ids, a.cfg.Parallel, a.cfg.PoolSize)
	if err != nil {
		return NewRuntimeError(err)
	}
	a.lastSnapshot.Store(&snap)

	a.printResultsTable(snap)
	fmt.Println(summarize(snap))

	if snap.Status == types.RunStatusFailed {
		return NewRuntimeError(NewRunFaultError(snap.RunID, errors.New(snap.Error)))
	}
	a.cfg.Log.Info("Suite run completed", "run_id", snap.RunID, "status", snap.Status,
		"passed", snap.Passed, "failed", snap.Failed)
	return nil
}

// runOnceResult converts the last snapshot into the process exit outcome.
func (a *App) runOnceResult() error {
	snap := a.lastSnapshot.Load()
	if snap == nil {
		return NewRuntimeError(errors.New("no run was executed"))
	}
	if snap.Failed > 0 {
		return NewTestFailureError(snap.RunID, snap.Failed, snap.TotalTests)
	}
	return nil
}

func summarize(snap runner.RunSnapshot) string {
	return fmt.Sprintf("run %s %s: %d/%d passed", snap.RunID, snap.Status, snap.Passed, snap.TotalTests)
}

// printResultsTable prints the per-test results to the console.
func (a *App) printResultsTable(snap runner.RunSnapshot) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	duration := snap.EndedAt.Sub(snap.StartedAt)
	t.SetTitle(fmt.Sprintf("Acceptance Results %s (%.1fs)", snap.RunID, duration.Seconds()))

	t.AppendHeader(table.Row{
		"#", "Test Case", "Status", "Code", "Error", "Screenshot",
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "#", Align: text.AlignRight},
		{Name: "Test Case", WidthMax: 40, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Code", Align: text.AlignRight},
		{Name: "Error", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Screenshot", WidthMax: 40, WidthMaxEnforcer: text.WrapSoft},
	})

	for i, item := range snap.Results {
		res := item.Result
		code := ""
		if res.StatusCode != 0 {
			code = fmt.Sprintf("%d", res.StatusCode)
		}
		t.AppendRow(table.Row{
			i + 1,
			item.TestCaseID,
			resultString(res.Success),
			code,
			firstLine(res.ErrorMessage),
			res.ScreenshotPath,
		})
	}

	if snap.Failed == 0 && snap.Status == types.RunStatusCompleted {
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	} else {
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	}

	t.AppendFooter(table.Row{
		"", "TOTAL", fmt.Sprintf("%d/%d passed", snap.Passed, snap.TotalTests), "", "", "",
	})
	t.Render()
}

func resultString(success bool) string {
	if success {
		return "✓ pass"
	}
	return "✗ fail"
}

// firstLine trims a diagnostic message down to something table-sized.
func firstLine(s string) string {
	if idx := strings.Index(s, "\n"); idx != -1 {
		s = s[:idx]
	}
	if len(s) > 120 {
		s = s[:110] + "..."
	}
	return s
}
