package transcribe

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
)

// commandResult is an internal process execution response.
type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	// Signaled is set when the process was terminated by a signal.
	Signaled bool
}

// commandRunner abstracts process execution for testability.
// onStderr, when set, receives each stderr line as it is produced.
type commandRunner interface {
	Run(ctx context.Context, onStderr func(line string), name string, args ...string) (commandResult, error)
}

// execRunner executes commands via os/exec.
type execRunner struct{}

// Run executes one command and captures stdout/stderr and exit code.
func (r *execRunner) Run(ctx context.Context, onStderr func(line string), name string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout bytes.Buffer
	stderr := &lineWriter{onLine: onStderr}
	cmd.Stdout = &stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	stderr.flush()
	result := commandResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.buf.String(),
		ExitCode: 0,
	}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			result.Signaled = !exitErr.Exited()
		}
		return result, err
	}

	return result, nil
}

// lineWriter buffers everything written and splits it into lines on \n or \r.
type lineWriter struct {
	buf     bytes.Buffer
	partial strings.Builder
	onLine  func(line string)
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	if w.onLine == nil {
		return len(p), nil
	}
	for _, b := range p {
		if b == '\n' || b == '\r' {
			w.flush()
			continue
		}
		w.partial.WriteByte(b)
	}
	return len(p), nil
}

func (w *lineWriter) flush() {
	if w.onLine == nil || w.partial.Len() == 0 {
		return
	}
	line := w.partial.String()
	w.partial.Reset()
	w.onLine(line)
}
