package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// diagnosticLines is how much stderr an ExecError keeps.
const diagnosticLines = 20

// Runner executes a tool and returns its stdout. A non-nil error for a process that ran
// and failed is an *ExecError.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func (f RunnerFunc) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return f(ctx, name, args...)
}

// ExecError carries the diagnostic text of a failed tool invocation.
type ExecError struct {
	Tool   string
	Args   []string
	Stderr []string // last lines of stderr, oldest first
	Err    error
}

func (e *ExecError) Error() string {
	if d := e.Diagnostic(); d != "" {
		return fmt.Sprintf("%s: %v: %s", e.Tool, e.Err, d)
	}
	return fmt.Sprintf("%s: %v", e.Tool, e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }

// Diagnostic returns the captured stderr, preferring lines the tool flagged as errors.
func (e *ExecError) Diagnostic() string {
	var flagged []string
	for _, line := range e.Stderr {
		if strings.HasPrefix(line, "ERROR:") {
			flagged = append(flagged, line)
		}
	}
	if len(flagged) > 0 {
		return strings.Join(flagged, "\n")
	}
	return strings.Join(e.Stderr, "\n")
}

// ExecRunner runs tools as child processes bound to ctx. Timeout, when positive, caps
// each invocation.
type ExecRunner struct {
	Timeout time.Duration
	Logger  zerolog.Logger
}

func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout bytes.Buffer
	ring := NewLineRing(diagnosticLines)
	cmd.Stdout = &stdout
	cmd.Stderr = ring

	start := time.Now()
	r.Logger.Debug().Str("tool", name).Strs("args", args).Msg("engine invocation started")
	err := cmd.Run()
	elapsed := time.Since(start)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w (%v)", ctxErr, err)
		}
		r.Logger.Warn().Str("tool", name).Dur("elapsed", elapsed).Err(err).Msg("engine invocation failed")
		return stdout.Bytes(), &ExecError{
			Tool:   name,
			Args:   args,
			Stderr: ring.LastN(diagnosticLines),
			Err:    err,
		}
	}
	r.Logger.Debug().Str("tool", name).Dur("elapsed", elapsed).Msg("engine invocation finished")
	return stdout.Bytes(), nil
}
