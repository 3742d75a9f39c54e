package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// maxStderrTail bounds how much raw stderr a CheckResult keeps around.
const maxStderrTail = 8 << 10

type execResult struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
}

// runTool executes the tool and captures both streams. A non-zero exit is
// not an error here: broken fixtures are supposed to fail compilation. The
// returned error covers start failures, missing binaries, and context
// cancellation.
func runTool(ctx context.Context, printCommands bool, dir, name string, args ...string) (execResult, error) {
	var res execResult

	if printCommands {
		fmt.Fprintf(os.Stderr, "%s %s\n", name, strings.Join(args, " "))
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res.Duration = time.Since(start)
	res.Stdout = stdout.Bytes()
	res.Stderr = stderr.Bytes()

	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(ctx.Err(), context.Canceled):
			return res, ctx.Err()
		case errors.As(err, &exitErr):
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		case errors.Is(err, exec.ErrNotFound):
			return res, fmt.Errorf("%w: %s", ErrToolNotFound, name)
		default:
			return res, fmt.Errorf("run %s: %w", name, err)
		}
	}
	return res, nil
}

// lookTool resolves the tool binary, turning a miss into ErrToolNotFound
// with an actionable install hint.
func lookTool(name, installHint string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		if installHint != "" {
			return "", fmt.Errorf("%w: %s; install with: %s", ErrToolNotFound, name, installHint)
		}
		return "", fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return path, nil
}

// probeVersion runs the tool's version query and returns the first line.
func probeVersion(ctx context.Context, name string, args ...string) (string, error) {
	res, err := runTool(ctx, false, "", name, args...)
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return "", fmt.Errorf("%s %s exited with %d", name, strings.Join(args, " "), res.ExitCode)
	}
	out := res.Stdout
	if len(out) == 0 {
		out = res.Stderr
	}
	line := string(out)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("%s reported no version", name)
	}
	return line, nil
}

func stderrTail(raw []byte) []byte {
	if len(raw) <= maxStderrTail {
		return raw
	}
	return raw[len(raw)-maxStderrTail:]
}

// withTimeout derives the per-run context from the request timeout.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
