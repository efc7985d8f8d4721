package commit

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"
)

// Runner executes one commit script with the effective configuration as
// its input. Implementations must return a *ScriptError on failure.
type Runner interface {
	Run(ctx context.Context, script string, payload []byte) (stdout string, err error)
}

// ExecRunner runs scripts as subprocesses. The payload is written to the
// script's stdin, stdout is captured for the operator, stderr is captured
// for error reporting.
type ExecRunner struct {
	// Timeout bounds each script invocation. Zero means no per-script
	// limit beyond the caller's context.
	Timeout time.Duration
}

func (r ExecRunner) Run(ctx context.Context, script string, payload []byte) (string, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, script)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.String(), nil
	}

	serr := &ScriptError{
		Script: script,
		Stderr: stderr.String(),
		Err:    err,
	}
	if ctx.Err() == context.DeadlineExceeded {
		serr.Timeout = true
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		serr.ExitCode = exitErr.ExitCode()
	} else {
		serr.ExitCode = -1
	}
	return stdout.String(), serr
}

// ScriptError reports a commit script failure. The commit is aborted and
// the configuration store is untouched.
type ScriptError struct {
	Script   string
	ExitCode int
	Stderr   string
	Timeout  bool
	Err      error
}

func (e *ScriptError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("commit script %s timed out", e.Script)
	}
	if e.ExitCode >= 0 {
		return fmt.Sprintf("commit script %s failed with exit status %d", e.Script, e.ExitCode)
	}
	return fmt.Sprintf("commit script %s failed: %v", e.Script, e.Err)
}

func (e *ScriptError) Unwrap() error { return e.Err }
