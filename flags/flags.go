package flags

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

const EnvVarPrefix = "BANK_ACCEPTOR"

func prefixEnvVars(name string) []string {
	return []string{EnvVarPrefix + "_" + name}
}

var (
	Suite = &cli.StringFlag{
		Name:     "suite",
		Value:    "",
		Required: true,
		EnvVars:  prefixEnvVars("SUITE"),
		Usage:    "Path to the suite file holding test-case definitions (eg. 'suite.yaml')",
	}
	ConfigFile = &cli.StringFlag{
		Name:    "config",
		Value:   "",
		EnvVars: prefixEnvVars("CONFIG"),
		Usage:   "Path to the service configuration file (TOML)",
	}
	Run = &cli.StringSliceFlag{
		Name:    "run",
		EnvVars: prefixEnvVars("RUN"),
		Usage:   "Test-case ids to run; omit to run the whole suite",
	}
	Parallel = &cli.BoolFlag{
		Name:    "parallel",
		Value:   false,
		EnvVars: prefixEnvVars("PARALLEL"),
		Usage:   "Run test cases concurrently on a bounded worker pool",
	}
	PoolSize = &cli.IntFlag{
		Name:    "pool-size",
		Value:   4,
		EnvVars: prefixEnvVars("POOL_SIZE"),
		Usage:   "Number of parallel workers when --parallel is set (clamped to a minimum of 1)",
	}
	RunInterval = &cli.DurationFlag{
		Name:    "run-interval",
		Value:   0,
		EnvVars: prefixEnvVars("RUN_INTERVAL"),
		Usage:   "Interval between runs (e.g. '1h', '30m'). Set to 0 or omit for run-once mode.",
	}
	Serve = &cli.BoolFlag{
		Name:    "serve",
		Value:   false,
		EnvVars: prefixEnvVars("SERVE"),
		Usage:   "Expose the run-triggering REST API instead of exiting after one run",
	}
	ListenAddr = &cli.StringFlag{
		Name:    "listen-addr",
		Value:   "0.0.0.0:7500",
		EnvVars: prefixEnvVars("LISTEN_ADDR"),
		Usage:   "Address for the run-triggering REST API when --serve is set",
	}
	MetricsAddr = &cli.StringFlag{
		Name:    "metrics-addr",
		Value:   "",
		EnvVars: prefixEnvVars("METRICS_ADDR"),
		Usage:   "Address for the Prometheus metrics server (e.g. '0.0.0.0:7300'); empty disables it",
	}
	ScreenshotDir = &cli.StringFlag{
		Name:    "screenshot-dir",
		Value:   "screenshots",
		EnvVars: prefixEnvVars("SCREENSHOT_DIR"),
		Usage:   "Directory receiving UI screenshot artifacts",
	}
	Simulate = &cli.BoolFlag{
		Name:    "simulate",
		Value:   false,
		EnvVars: prefixEnvVars("SIMULATE"),
		Usage:   "Force the API executor into deterministic simulated mode",
	}
	LogLevel = &cli.StringFlag{
		Name:    "log-level",
		Value:   "info",
		EnvVars: prefixEnvVars("LOG_LEVEL"),
		Usage:   "Log level (debug, info, warn, error)",
	}
)

var requiredFlags = []cli.Flag{
	Suite,
}

var optionalFlags = []cli.Flag{
	ConfigFile,
	Run,
	Parallel,
	PoolSize,
	RunInterval,
	Serve,
	ListenAddr,
	MetricsAddr,
	ScreenshotDir,
	Simulate,
	LogLevel,
}

var Flags []cli.Flag

func init() {
	Flags = append(requiredFlags, optionalFlags...)
}

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return nil
}
