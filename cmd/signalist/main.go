package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"

	"Signalist/internal/app"
	"Signalist/internal/config"
	"Signalist/internal/logging"
)

type options struct {
	Config   string `short:"c" long:"config" description:"Path to YAML configuration file"`
	EnvFile  string `long:"env-file" description:"Path to .env file" default:".env"`
	Once     bool   `long:"once" description:"Run one digest and exit"`
	NoServer bool   `long:"no-server" description:"Do not start the HTTP server"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return
		}
		os.Exit(2)
	}

	if err := godotenv.Load(opts.EnvFile); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", opts.EnvFile, err)
		os.Exit(1)
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Error("failed to close", "error", err)
		}
	}()

	if opts.Once {
		report, err := application.RunOnce(ctx)
		if err != nil {
			logger.Error("digest run failed", "stage", report.Stage, "error", err)
			stop()
			_ = application.Close()
			os.Exit(1)
		}
		logger.Info("digest run finished",
			"success", report.Success,
			"message", report.Message,
			"sent", report.Sent,
			"failed", report.Failed)
		return
	}

	if err := application.Run(ctx, !opts.NoServer); err != nil {
		logger.Error("application stopped", "error", err)
		stop()
		_ = application.Close()
		os.Exit(1)
	}
	logger.Info("application exited")
}
