// Package acceptor wires the target configuration, executors, registry and
// run coordinator into the bank-acceptor application.
package acceptor

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/parabank-qa/acceptor/flags"
)

// TOMLDuration parses Go duration strings in TOML values.
type TOMLDuration time.Duration

func (t *TOMLDuration) UnmarshalText(b []byte) error {
	d, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*t = TOMLDuration(d)
	return nil
}

// FileConfig is the on-disk service configuration.
type FileConfig struct {
	API struct {
		BaseURL        string            `toml:"base_url"`
		Timeout        TOMLDuration      `toml:"timeout"`
		DefaultHeaders map[string]string `toml:"default_headers"`
	} `toml:"api"`

	UI struct {
		BaseURL     string       `toml:"base_url"`
		Headless    *bool        `toml:"headless"`
		SettleDelay TOMLDuration `toml:"settle_delay"`
		Timeout     TOMLDuration `toml:"timeout"`
	} `toml:"ui"`

	Auth struct {
		Username        string            `toml:"username"`
		Password        string            `toml:"password"`
		ProfileDefaults map[string]string `toml:"profile_defaults"`
	} `toml:"auth"`

	Retry struct {
		MaxRetries *int         `toml:"max_retries"`
		APIDelay   TOMLDuration `toml:"api_delay"`
		UIDelay    TOMLDuration `toml:"ui_delay"`
	} `toml:"retry"`
}

// LoadFileConfig reads and parses a TOML config file.
func LoadFileConfig(path string) (*FileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	cfg := new(FileConfig)
	if err := toml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Config holds the resolved application configuration.
type Config struct {
	SuiteFile string
	RunIDs    []string // empty = whole suite
	Parallel  bool
	PoolSize  int

	RunInterval time.Duration
	RunOnce     bool
	Serve       bool
	ListenAddr  string
	MetricsAddr string

	ScreenshotDir string
	Simulate      bool

	APIBaseURL        string
	APITimeout        time.Duration
	APIDefaultHeaders map[string]string

	UIBaseURL     string
	UIHeadless    bool
	UISettleDelay time.Duration
	UITimeout     time.Duration

	AuthUsername    string
	AuthPassword    string
	ProfileDefaults map[string]string

	MaxRetries    int
	APIRetryDelay time.Duration
	UIRetryDelay  time.Duration

	Log log.Logger
}

const (
	defaultMaxRetries    = 2
	defaultAPIRetryDelay = 1 * time.Second
	defaultUIRetryDelay  = 3 * time.Second
)

// NewConfig creates a Config from the CLI context and an optional config
// file. Flags describe the run request; the file describes the target.
func NewConfig(ctx *cli.Context, logger log.Logger) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}

	cfg := &Config{
		SuiteFile:     ctx.String(flags.Suite.Name),
		RunIDs:        ctx.StringSlice(flags.Run.Name),
		Parallel:      ctx.Bool(flags.Parallel.Name),
		PoolSize:      ctx.Int(flags.PoolSize.Name),
		RunInterval:   ctx.Duration(flags.RunInterval.Name),
		Serve:         ctx.Bool(flags.Serve.Name),
		ListenAddr:    ctx.String(flags.ListenAddr.Name),
		MetricsAddr:   ctx.String(flags.MetricsAddr.Name),
		ScreenshotDir: ctx.String(flags.ScreenshotDir.Name),
		Simulate:      ctx.Bool(flags.Simulate.Name),
		UIHeadless:    true,
		MaxRetries:    defaultMaxRetries,
		APIRetryDelay: defaultAPIRetryDelay,
		UIRetryDelay:  defaultUIRetryDelay,
		Log:           logger,
	}
	cfg.RunOnce = cfg.RunInterval == 0

	if path := ctx.String(flags.ConfigFile.Name); path != "" {
		fileCfg, err := LoadFileConfig(path)
		if err != nil {
			return nil, err
		}
		cfg.applyFile(fileCfg)
	}

	if cfg.PoolSize < 1 {
		cfg.PoolSize = 1
	}
	return cfg, nil
}

func (c *Config) applyFile(f *FileConfig) {
	c.APIBaseURL = f.API.BaseURL
	c.APITimeout = time.Duration(f.API.Timeout)
	c.APIDefaultHeaders = f.API.DefaultHeaders

	c.UIBaseURL = f.UI.BaseURL
	if f.UI.Headless != nil {
		c.UIHeadless = *f.UI.Headless
	}
	c.UISettleDelay = time.Duration(f.UI.SettleDelay)
	c.UITimeout = time.Duration(f.UI.Timeout)

	c.AuthUsername = f.Auth.Username
	c.AuthPassword = f.Auth.Password
	c.ProfileDefaults = f.Auth.ProfileDefaults

	if f.Retry.MaxRetries != nil && *f.Retry.MaxRetries >= 0 {
		c.MaxRetries = *f.Retry.MaxRetries
	}
	if d := time.Duration(f.Retry.APIDelay); d > 0 {
		c.APIRetryDelay = d
	}
	if d := time.Duration(f.Retry.UIDelay); d > 0 {
		c.UIRetryDelay = d
	}
}
