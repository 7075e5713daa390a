package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/JonMunkholm/dataproc/internal/core"
	"github.com/urfave/cli/v3"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		if core.IsUserFacing(err) {
			slog.Error(core.FormatUserError(err), "error", err)
		} else {
			slog.Error("application error", "error", err)
		}
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:   "dataproc",
		Usage:  "Ingest text or spreadsheets into a previewable batch and export it",
		Action: runServe,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env-file",
				Aliases: []string{"e"},
				Usage:   "Path to a .env file loaded before configuration",
				Value:   ".env",
				Sources: cli.EnvVars("DATAPROC_ENV_FILE"),
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			processCommand(),
			transformCommand(),
		},
	}
}
