package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	acceptor "github.com/parabank-qa/acceptor"
	"github.com/parabank-qa/acceptor/exitcodes"
	"github.com/parabank-qa/acceptor/flags"
	"github.com/parabank-qa/acceptor/service"
)

var (
	Version   = "v0.1.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "bank-acceptor"
	app.Usage = "Banking Application Acceptance Tester Service"
	app.Description = "bank-acceptor runs API and browser acceptance tests against a banking application"
	app.Flags = flags.Flags
	app.Action = run
	app.ExitErrHandler = func(c *cli.Context, err error) {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			cli.HandleExitCoder(exitErr)
		} else if err != nil {
			if acceptor.IsRuntimeError(err) || acceptor.IsRunFaultError(err) {
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.RuntimeErr))
			} else if acceptor.IsTestFailureError(err) {
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.TestFailure))
			} else {
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.TestFailure))
			}
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Crit("Application failed", "message", err)
	}
}

func run(ctx *cli.Context) error {
	logger := newLogger(ctx.String(flags.LogLevel.Name))
	log.SetDefault(logger)

	cfg, err := acceptor.NewConfig(ctx, logger)
	if err != nil {
		return acceptor.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}

	app, err := acceptor.New(cfg, Version)
	if err != nil {
		return acceptor.NewRuntimeError(fmt.Errorf("failed to create bank-acceptor: %w", err))
	}

	if cfg.Serve || cfg.MetricsAddr != "" {
		listenAddr := ""
		if cfg.Serve {
			listenAddr = cfg.ListenAddr
		}
		svc, err := service.New(service.Config{
			Log:         logger,
			ListenAddr:  listenAddr,
			MetricsAddr: cfg.MetricsAddr,
			Coordinator: app.Coordinator(),
		})
		if err != nil {
			return acceptor.NewRuntimeError(fmt.Errorf("failed to create service: %w", err))
		}
		if err := svc.Start(ctx.Context); err != nil {
			return acceptor.NewRuntimeError(err)
		}
		defer func() {
			if err := svc.Shutdown(context.Background()); err != nil {
				logger.Error("Service shutdown failed", "error", err)
			}
		}()
	}

	return app.Run(ctx.Context)
}

func newLogger(level string) log.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	return log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, lvl, true))
}
