package clip

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// DefaultCommandTimeout bounds every clipboard subprocess.
const DefaultCommandTimeout = 5 * time.Second

// MaxOutputSize caps the amount of clipboard data read from a subprocess.
const MaxOutputSize = 64 * 1024 * 1024

// runner executes clipboard helper programs with a per-call timeout.
type runner struct {
	timeout time.Duration
}

func newRunner(timeout time.Duration) runner {
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	return runner{timeout: timeout}
}

// output runs name and returns its stdout.
func (r runner) output(ctx context.Context, name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%s timed out after %v", name, r.timeout)
	}
	if err != nil {
		return nil, commandError(name, err, stderr.Bytes())
	}
	if stdout.Len() > MaxOutputSize {
		return nil, fmt.Errorf("%s output exceeds maximum size of %d bytes", name, MaxOutputSize)
	}
	return stdout.Bytes(), nil
}

// input runs name with data on stdin. Stdout and stderr go to the null
// device rather than a pipe: xclip forks a child that keeps serving the
// selection, and a pipe held open by that child would block Wait forever.
func (r runner) input(ctx context.Context, data []byte, name string, args ...string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	if data != nil {
		cmd.Stdin = bytes.NewReader(data)
	}

	err := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s timed out after %v", name, r.timeout)
	}
	if err != nil {
		return commandError(name, err, nil)
	}
	return nil
}

// run executes name with no stdin and discards its output.
func (r runner) run(ctx context.Context, name string, args ...string) error {
	return r.input(ctx, nil, name, args...)
}

func commandError(name string, err error, stderr []byte) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if msg := bytes.TrimSpace(stderr); len(msg) > 0 {
			return fmt.Errorf("%s exited with code %d: %s", name, exitErr.ExitCode(), msg)
		}
		return fmt.Errorf("%s exited with code %d: %w", name, exitErr.ExitCode(), err)
	}
	return fmt.Errorf("%s failed: %w", name, err)
}
