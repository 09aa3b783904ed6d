package browser

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"
)

const (
	// screenshotQuality is the JPEG-style quality hint passed to the CDP
	// capture; 90 keeps failure screenshots readable without huge files.
	screenshotQuality = 90

	defaultOperationTimeout = 30 * time.Second
)

// DriverConfig configures the chromedp driver. The config is passed by value
// into the constructor; there is no process-wide driver state.
type DriverConfig struct {
	Headless bool

	// OperationTimeout bounds each individual browser operation when the
	// caller's context carries no deadline of its own.
	OperationTimeout time.Duration

	UserAgent string
}

// ChromedpDriver creates sessions backed by a headless (or headed) Chrome
// instance via the DevTools protocol.
type ChromedpDriver struct {
	cfg DriverConfig
	log log.Logger
}

// NewChromedpDriver creates a chromedp-backed driver.
func NewChromedpDriver(cfg DriverConfig, logger log.Logger) *ChromedpDriver {
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = defaultOperationTimeout
	}
	if logger == nil {
		logger = log.New()
	}
	return &ChromedpDriver{
		cfg: cfg,
		log: logger.New("component", "chromedp-driver"),
	}
}

// NewSession starts a fresh browser instance. The session owns the browser
// process; Close tears both down.
func (d *ChromedpDriver) NewSession(ctx context.Context) (Session, error) {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts, chromedp.Flag("headless", d.cfg.Headless))
	if d.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(d.cfg.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), opts...)
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)

	cancel := func() {
		taskCancel()
		allocCancel()
	}

	// Run with no actions to force the browser to actually start, so a
	// missing Chrome binary fails here rather than mid-test.
	if err := chromedp.Run(taskCtx); err != nil {
		cancel()
		return nil, errors.Wrap(err, "starting browser")
	}

	d.log.Debug("Browser session started", "headless", d.cfg.Headless)
	return &chromedpSession{
		ctx:     taskCtx,
		cancel:  cancel,
		timeout: d.cfg.OperationTimeout,
		log:     d.log,
	}, nil
}

type chromedpSession struct {
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
	log     log.Logger
}

// run executes the actions against the session context, honoring the
// caller's deadline when present and the driver's operation timeout
// otherwise.
func (s *chromedpSession) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx := s.ctx
	var cancel context.CancelFunc
	if deadline, ok := ctx.Deadline(); ok {
		runCtx, cancel = context.WithDeadline(runCtx, deadline)
	} else {
		runCtx, cancel = context.WithTimeout(runCtx, s.timeout)
	}
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

func (s *chromedpSession) Navigate(ctx context.Context, url string) error {
	if err := s.run(ctx, chromedp.Navigate(url)); err != nil {
		return errors.Wrapf(err, "navigating to %s", url)
	}
	return nil
}

func (s *chromedpSession) Fill(ctx context.Context, selector, value string) error {
	err := s.run(ctx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.SetValue(selector, value, chromedp.ByQuery),
	)
	if err != nil {
		return errors.Wrapf(err, "filling %s", selector)
	}
	return nil
}

func (s *chromedpSession) Click(ctx context.Context, selector string) error {
	err := s.run(ctx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	)
	if err != nil {
		return errors.Wrapf(err, "clicking %s", selector)
	}
	return nil
}

func (s *chromedpSession) PageContent(ctx context.Context) (string, error) {
	var content string
	if err := s.run(ctx, chromedp.Text("body", &content, chromedp.ByQuery)); err != nil {
		return "", errors.Wrap(err, "reading page content")
	}
	return content, nil
}

func (s *chromedpSession) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := s.run(ctx, chromedp.Location(&url)); err != nil {
		return "", errors.Wrap(err, "reading current URL")
	}
	return url, nil
}

func (s *chromedpSession) Screenshot(ctx context.Context, path string) error {
	var buf []byte
	if err := s.run(ctx, chromedp.FullScreenshot(&buf, screenshotQuality)); err != nil {
		return errors.Wrap(err, "capturing screenshot")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "creating screenshot directory for %s", path)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return errors.Wrapf(err, "writing screenshot %s", path)
	}
	return nil
}

func (s *chromedpSession) Close() error {
	s.cancel()
	return nil
}
