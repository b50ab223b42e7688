// Package shell runs learner command lines through a POSIX shell with a
// wall-clock bound. Nothing is sandboxed: commands run with the caller's
// permissions in the configured working directory.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"cmdtutor/internal/logging"
)

// waitDelay bounds how long Wait keeps reading output after the process
// group is killed, for grandchildren that still hold the pipes.
const waitDelay = 500 * time.Millisecond

// Runner executes a command line and reports what happened.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// execCommandContext is a seam for tests.
var execCommandContext = exec.CommandContext

// ShellRunner runs commands as <shell> -c <line> on the host.
type ShellRunner struct {
	mu     sync.RWMutex
	config Config

	auditCallback func(AuditEvent)
}

// NewRunner creates a runner. Zero config fields take the defaults.
func NewRunner(config Config) *ShellRunner {
	def := DefaultConfig()
	if config.Shell == "" {
		config.Shell = def.Shell
	}
	if config.DefaultTimeout <= 0 {
		config.DefaultTimeout = def.DefaultTimeout
	}
	if config.MaxOutputBytes <= 0 {
		config.MaxOutputBytes = def.MaxOutputBytes
	}
	if config.WorkingDirectory == "" {
		config.WorkingDirectory = def.WorkingDirectory
	}
	logging.ShellDebug("Creating ShellRunner: shell=%s timeout=%s maxOutput=%d",
		config.Shell, config.DefaultTimeout, config.MaxOutputBytes)
	return &ShellRunner{config: config}
}

// Config returns the effective runner configuration.
func (r *ShellRunner) Config() Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.config
}

// SetAuditCallback sets the callback for audit events.
func (r *ShellRunner) SetAuditCallback(callback func(AuditEvent)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.auditCallback = callback
}

func (r *ShellRunner) emitAudit(event AuditEvent) {
	r.mu.RLock()
	callback := r.auditCallback
	r.mu.RUnlock()

	if callback != nil {
		callback(event)
	}
}

// Run executes cmd. The returned error is non-nil only for an empty line;
// every runtime failure is described by the Result.
func (r *ShellRunner) Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Line == "" {
		return nil, errors.New("command line is required")
	}

	timer := logging.StartTimer(logging.CategoryShell, "shell command")
	defer timer.Stop()

	cfg := r.Config()
	cmd = cfg.Merge(cmd)

	logging.ShellDebug("Executing: %q (dir=%s, timeout=%s)", cmd.Line, cmd.WorkingDirectory, cmd.Timeout)

	result := &Result{
		ExitCode: -1,
		Command:  &cmd,
	}

	r.emitAudit(AuditEvent{Type: AuditEventStart, Timestamp: time.Now(), Command: cmd})

	execCtx, cancel := context.WithTimeout(ctx, cmd.Timeout)
	defer cancel()

	execCmd := execCommandContext(execCtx, cfg.Shell, "-c", cmd.Line)
	execCmd.Dir = cmd.WorkingDirectory
	execCmd.Env = append(os.Environ(), cmd.Environment...)
	setupProcessGroup(execCmd)
	execCmd.Cancel = func() error { return killProcessGroup(execCmd) }
	execCmd.WaitDelay = waitDelay

	var stdoutBuf, stderrBuf bytes.Buffer
	stdoutLimited := &limitedWriter{w: &stdoutBuf, max: cfg.MaxOutputBytes}
	stderrLimited := &limitedWriter{w: &stderrBuf, max: cfg.MaxOutputBytes}
	execCmd.Stdout = stdoutLimited
	execCmd.Stderr = stderrLimited

	result.StartedAt = time.Now()
	err := execCmd.Run()
	result.FinishedAt = time.Now()
	result.Duration = result.FinishedAt.Sub(result.StartedAt)

	result.Stdout = stdoutBuf.String()
	result.Stderr = stderrBuf.String()
	result.Combined = result.Stdout
	if result.Stderr != "" {
		if result.Combined != "" {
			result.Combined += "\n"
		}
		result.Combined += result.Stderr
	}

	if stdoutLimited.truncated || stderrLimited.truncated {
		result.Truncated = true
		result.TruncatedBytes = stdoutLimited.discarded + stderrLimited.discarded
		logging.ShellWarn("Command output truncated: %d bytes discarded", result.TruncatedBytes)
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		result.Success = true
		result.ExitCode = 0
	case errors.Is(execCtx.Err(), context.DeadlineExceeded):
		result.Success = true
		result.Killed = true
		result.KillReason = fmt.Sprintf("timeout after %s", cmd.Timeout)
		logging.ShellWarn("Command killed (timeout): %q after %s", cmd.Line, cmd.Timeout)
		r.emitAudit(AuditEvent{Type: AuditEventKilled, Timestamp: time.Now(), Command: cmd, Result: result})
		return result, nil
	case errors.Is(execCtx.Err(), context.Canceled):
		result.Success = true
		result.Killed = true
		result.KillReason = "context canceled"
		logging.ShellDebug("Command canceled: %q", cmd.Line)
		r.emitAudit(AuditEvent{Type: AuditEventKilled, Timestamp: time.Now(), Command: cmd, Result: result})
		return result, nil
	case errors.As(err, &exitErr):
		result.Success = true
		result.ExitCode = exitErr.ExitCode()
		logging.ShellDebug("Command exited non-zero: %q -> %d", cmd.Line, result.ExitCode)
	default:
		result.Success = false
		result.Error = err.Error()
		logging.ShellError("Command failed to start: %q - %v", cmd.Line, err)
		r.emitAudit(AuditEvent{Type: AuditEventError, Timestamp: time.Now(), Command: cmd, Result: result})
		return result, nil
	}

	r.emitAudit(AuditEvent{Type: AuditEventComplete, Timestamp: time.Now(), Command: cmd, Result: result})

	logging.Shell("Command completed: %q -> exit=%d, duration=%s, stdout=%d bytes",
		cmd.Line, result.ExitCode, result.Duration, len(result.Stdout))

	return result, nil
}

// AuditToLog forwards runner events to an audit logger.
func AuditToLog(a *logging.AuditLogger) func(AuditEvent) {
	return func(ev AuditEvent) {
		switch ev.Type {
		case AuditEventComplete:
			a.CommandRun(ev.Command.Line, ev.Result.ExitCode, ev.Result.Duration, "")
		case AuditEventKilled:
			a.CommandKilled(ev.Command.Line, ev.Result.KillReason)
		case AuditEventError:
			a.CommandRun(ev.Command.Line, ev.Result.ExitCode, ev.Result.Duration, ev.Result.Error)
		}
	}
}

// limitedWriter is an io.Writer that limits total bytes written.
type limitedWriter struct {
	w         io.Writer
	max       int64
	written   int64
	truncated bool
	discarded int64
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)

	if lw.written >= lw.max {
		lw.truncated = true
		lw.discarded += int64(n)
		return n, nil
	}

	remaining := lw.max - lw.written
	if int64(n) > remaining {
		lw.truncated = true
		lw.discarded += int64(n) - remaining
		written, err := lw.w.Write(p[:remaining])
		lw.written += int64(written)
		return n, err // full length, so the copier never sees a short write
	}

	written, err := lw.w.Write(p)
	lw.written += int64(written)
	return written, err
}
