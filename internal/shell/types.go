package shell

import (
	"time"
)

// Command is one learner command line to run through the shell.
type Command struct {
	// Line is passed verbatim as <shell> -c <Line>.
	Line string `json:"line"`

	// WorkingDirectory is where the command runs. Empty uses the runner default.
	WorkingDirectory string `json:"working_directory,omitempty"`

	// Timeout overrides the runner default when positive.
	Timeout time.Duration `json:"timeout,omitempty"`

	// Environment is appended to the inherited environment ("KEY=value").
	Environment []string `json:"environment,omitempty"`

	// SessionID correlates audit events with a learner session.
	SessionID string `json:"session_id,omitempty"`
}

// Result contains the outcome of running a Command.
type Result struct {
	// Success is true when the shell ran, even if the command exited non-zero
	// or was killed at the timeout. False means the shell could not start.
	Success bool `json:"success"`

	// ExitCode is the process exit code, -1 if it never exited normally.
	ExitCode int `json:"exit_code"`

	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	Combined string `json:"combined"`

	// Error describes an infrastructure failure (Success == false).
	Error string `json:"error,omitempty"`

	// Killed is true when the process group was torn down before exiting.
	Killed     bool   `json:"killed,omitempty"`
	KillReason string `json:"kill_reason,omitempty"`

	// Truncated is true when output exceeded the capture cap.
	Truncated      bool  `json:"truncated,omitempty"`
	TruncatedBytes int64 `json:"truncated_bytes,omitempty"`

	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration"`

	Command *Command `json:"-"`
}

// TimedOut reports whether the command was killed at its deadline.
func (r *Result) TimedOut() bool {
	return r != nil && r.Killed && r.KillReason != "" && r.KillReason != "context canceled"
}

// Config configures a Runner.
type Config struct {
	// Shell binary invoked with -c.
	Shell string

	// DefaultTimeout applies when a Command carries none.
	DefaultTimeout time.Duration

	// MaxOutputBytes caps stdout and stderr capture, each.
	MaxOutputBytes int64

	// WorkingDirectory applies when a Command carries none.
	WorkingDirectory string
}

// DefaultConfig returns the runner defaults: sh, 10s, 1 MiB.
func DefaultConfig() Config {
	return Config{
		Shell:            "sh",
		DefaultTimeout:   10 * time.Second,
		MaxOutputBytes:   1 << 20,
		WorkingDirectory: ".",
	}
}

// Merge fills unset command fields from the config.
func (c Config) Merge(cmd Command) Command {
	if cmd.WorkingDirectory == "" {
		cmd.WorkingDirectory = c.WorkingDirectory
	}
	if cmd.Timeout <= 0 {
		cmd.Timeout = c.DefaultTimeout
	}
	return cmd
}

// AuditEventType identifies a runner lifecycle event.
type AuditEventType string

const (
	AuditEventStart    AuditEventType = "start"
	AuditEventComplete AuditEventType = "complete"
	AuditEventKilled   AuditEventType = "killed"
	AuditEventError    AuditEventType = "error"
)

// AuditEvent is delivered to the runner's audit callback.
type AuditEvent struct {
	Type      AuditEventType
	Timestamp time.Time
	Command   Command
	Result    *Result
}
