// Package transform runs the external text processor. Text goes to the
// program's stdin followed by a newline; on a zero exit its trimmed stdout
// is the result, otherwise its stderr becomes the error.
package transform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/JonMunkholm/dataproc/internal/config"
	"github.com/JonMunkholm/dataproc/internal/core"
	"github.com/JonMunkholm/dataproc/internal/logging"
)

// genericFailure is reported when the program exits non-zero without
// writing to stderr.
const genericFailure = "text processor failed"

// waitDelay bounds how long a killed process's children may hold the
// output pipes open.
const waitDelay = 2 * time.Second

// Delegate spawns one process per Process call. It holds no state
// between runs and is safe for concurrent use.
type Delegate struct {
	command string
	args    []string
	timeout time.Duration
}

// New builds a Delegate from cfg. A relative script path is resolved
// against the directory of the running executable.
func New(cfg config.TransformConfig) (*Delegate, error) {
	script, err := resolveScript(cfg.Script)
	if err != nil {
		return nil, err
	}

	d := &Delegate{timeout: cfg.Timeout}
	if cfg.Command != "" {
		d.command = cfg.Command
		d.args = []string{script}
	} else {
		d.command = script
	}
	return d, nil
}

// Command returns the program and arguments a run will execute.
func (d *Delegate) Command() (string, []string) {
	return d.command, append([]string(nil), d.args...)
}

// Process runs the program once with text on stdin. Cancelling ctx after
// the call has started does not kill the process; only the configured
// timeout does.
func (d *Delegate) Process(ctx context.Context, text string) (string, error) {
	log := logging.WithFields(ctx, "command", d.command)

	runCtx := context.WithoutCancel(ctx)
	if d.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, d.timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, d.command, d.args...)
	cmd.Stdin = strings.NewReader(text + "\n")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	start := time.Now()
	err := cmd.Run()
	if err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = genericFailure
		}
		if runCtx.Err() != nil {
			err = fmt.Errorf("%w: %w", err, runCtx.Err())
		}
		log.Warn("text processor exited with error",
			"exit_code", exitCode,
			"stderr", msg,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return "", &core.SubprocessError{ExitCode: exitCode, Stderr: msg, Err: err}
	}

	log.Debug("text processor finished", "duration_ms", time.Since(start).Milliseconds())
	return strings.TrimSpace(stdout.String()), nil
}

// resolveScript makes a relative script path absolute against the
// executable's directory. Bare names with no separator are left for
// exec.LookPath when no such file sits next to the binary.
func resolveScript(script string) (string, error) {
	if script == "" {
		return "", errors.New("transform: script path is empty")
	}
	if filepath.IsAbs(script) {
		return script, nil
	}

	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("transform: locate executable: %w", err)
	}
	candidate := filepath.Join(filepath.Dir(exe), script)
	if _, err := os.Stat(candidate); err == nil {
		return candidate, nil
	}
	if !strings.ContainsRune(script, filepath.Separator) {
		slog.Debug("script not beside executable, using PATH", "script", script)
		return script, nil
	}
	return candidate, nil
}
