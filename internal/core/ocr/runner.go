package ocr

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Runner executes one external OCR tool. Tests substitute a fake.
type Runner interface {
	Run(ctx context.Context, name string, logger *slog.Logger, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner runs pdftoppm and tesseract as child processes.
type ExecRunner struct {
	// Env is appended to the parent environment, e.g. OMP_THREAD_LIMIT=1.
	Env []string
	// Timeout caps a single invocation; zero leaves it to ctx.
	Timeout time.Duration
}

func (r ExecRunner) Run(ctx context.Context, name string, logger *slog.Logger, args ...string) ([]byte, []byte, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	if len(r.Env) > 0 {
		cmd.Env = append(cmd.Environ(), r.Env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout, cmd.Stderr = &stdout, &stderr

	logger.Debug("ocr.exec", "tool", name, "args", strings.Join(args, " "))
	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		if ctx.Err() != nil {
			err = fmt.Errorf("%w (%v)", ctx.Err(), err)
		}
		logger.Error("ocr.exec.failed", "tool", name, "elapsed_ms", elapsed, "error", err,
			"stderr", tail(stderr.String(), 8<<10))
		return stdout.Bytes(), stderr.Bytes(), err
	}
	logger.Debug("ocr.exec.ok", "tool", name, "elapsed_ms", elapsed, "stdout_bytes", stdout.Len())
	return stdout.Bytes(), stderr.Bytes(), nil
}

// toolError folds the last line of a tool's stderr into err, which is usually
// just "exit status 1".
func toolError(what string, stderr []byte, err error) error {
	msg := strings.TrimSpace(string(stderr))
	if i := strings.LastIndexByte(msg, '\n'); i >= 0 {
		msg = msg[i+1:]
	}
	if msg == "" {
		return fmt.Errorf("%s: %w", what, err)
	}
	return fmt.Errorf("%s: %w: %s", what, err, tail(msg, 512))
}

// tail keeps the last max bytes of s, where tools print the actual error.
func tail(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return "...(truncated)" + s[len(s)-max:]
}
