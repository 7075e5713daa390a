package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/dataproc/internal/core"
	"github.com/JonMunkholm/dataproc/internal/logging"
	"github.com/JonMunkholm/dataproc/internal/transform"
	"github.com/JonMunkholm/dataproc/internal/web"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the local UI host (default)",
		Action: runServe,
	}
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd, logging.Setup)
	if err != nil {
		return err
	}

	delegate, err := transform.New(cfg.Transform)
	if err != nil {
		return fmt.Errorf("init text processor: %w", err)
	}
	name, args := delegate.Command()

	slog.Info("configuration loaded",
		"addr", cfg.Server.Addr(),
		"env", cfg.Security.Env,
		"max_file_size", cfg.Upload.MaxFileSize,
		"processor", name,
		"processor_args", args,
		"allowed_origins", cfg.AllowedOrigins(),
	)

	svc := core.NewService(cfg, delegate, core.WithLogger(slog.Default()))
	server := web.NewServer(cfg, svc)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}

		if status := svc.Status(); status.Transforms.Active > 0 || status.Decodes.Active > 0 {
			slog.Info("waiting for running work to finish",
				"transforms", status.Transforms.Active,
				"decodes", status.Decodes.Active,
			)
		}
		if err := svc.Drain(shutdownCtx); err != nil {
			slog.Warn("work did not finish in time", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("server stopped")
	return nil
}
