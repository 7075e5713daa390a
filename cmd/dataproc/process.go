package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/dataproc/internal/core"
	"github.com/JonMunkholm/dataproc/internal/transform"
	"github.com/urfave/cli/v3"
)

func processCommand() *cli.Command {
	return &cli.Command{
		Name:  "process",
		Usage: "Ingest text or a file and write the export artifact",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "text",
				Usage: "Text to tokenize (use - to read stdin)",
			},
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "Spreadsheet or CSV file to decode",
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Directory the artifact is written to",
				Value:   ".",
			},
		},
		Action: runProcess,
	}
}

func runProcess(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd, stderrLogger)
	if err != nil {
		return err
	}

	text, file := cmd.String("text"), cmd.String("file")
	if (text == "") == (file == "") {
		return errors.New("exactly one of --text or --file is required")
	}

	svc := core.NewService(cfg, nil)

	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read %s: %w", file, err)
		}
		if _, err := svc.ProcessFileBatch(ctx, filepath.Base(file), data); err != nil {
			return err
		}
	} else {
		if text == "-" {
			text, err = readStdin()
			if err != nil {
				return err
			}
		}
		if _, err := svc.ProcessTextBatch(ctx, text); err != nil {
			return err
		}
	}

	art, err := svc.ExportCurrent(ctx)
	if err != nil {
		return err
	}

	outDir := cmd.String("out")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(outDir, art.Name)
	if err := os.WriteFile(path, art.Data, 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}

	b, _ := svc.Current()
	slog.Info("artifact written", "path", path, "records", b.Len(), "bytes", len(art.Data))
	fmt.Fprintln(cmd.Root().Writer, path)
	return nil
}

func transformCommand() *cli.Command {
	return &cli.Command{
		Name:      "transform",
		Usage:     "Run the external text processor once",
		ArgsUsage: "[text...]",
		Action:    runTransform,
	}
}

// runTransform passes its arguments, or stdin when there are none, through
// the configured text processor.
func runTransform(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd, stderrLogger)
	if err != nil {
		return err
	}

	text := strings.Join(cmd.Args().Slice(), " ")
	if text == "" {
		if text, err = readStdin(); err != nil {
			return err
		}
	}

	delegate, err := transform.New(cfg.Transform)
	if err != nil {
		return fmt.Errorf("init text processor: %w", err)
	}

	out, err := core.NewService(cfg, delegate).ProcessText(ctx, text)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.Root().Writer, out)
	return nil
}

func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}
