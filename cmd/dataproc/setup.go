package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/JonMunkholm/dataproc/internal/config"
	"github.com/JonMunkholm/dataproc/internal/logging"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

// loggerSetup installs the global logger for the configured level and format.
type loggerSetup func(level, format string) *slog.Logger

// stderrLogger keeps stdout free for command output.
func stderrLogger(level, format string) *slog.Logger {
	return logging.SetupWriter(os.Stderr, level, format)
}

// loadConfig applies the .env file named by the root --env-file flag, then
// loads configuration from the environment and installs the logger.
func loadConfig(cmd *cli.Command, setup loggerSetup) (*config.Config, error) {
	envFile := cmd.Root().String("env-file")
	envErr := godotenv.Overload(envFile)
	if envErr != nil && !errors.Is(envErr, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, envErr)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	setup(cfg.Logging.Level, cfg.Logging.Format)
	if envErr != nil {
		slog.Debug("no env file found, using environment variables", "path", envFile)
	} else {
		slog.Debug("loaded env file", "path", envFile)
	}
	return cfg, nil
}
