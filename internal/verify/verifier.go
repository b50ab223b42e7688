// Package verify decides whether a learner's command satisfies an exercise:
// it filters the input, runs it, compares it to the expected command and
// applies the exercise's predicate.
package verify

import (
	"context"
	"errors"
	"time"

	"cmdtutor/internal/logging"
	"cmdtutor/internal/shell"
	"cmdtutor/internal/tutorerr"
)

// Outcome classifies a verification attempt.
type Outcome int

const (
	Passed Outcome = iota
	InputRejected
	Timeout
	StructuralMismatch
	PredicateFailed
	ExecutionError
)

func (o Outcome) String() string {
	switch o {
	case Passed:
		return "passed"
	case InputRejected:
		return "input_rejected"
	case Timeout:
		return "timeout"
	case StructuralMismatch:
		return "structural_mismatch"
	case PredicateFailed:
		return "predicate_failed"
	case ExecutionError:
		return "execution_error"
	default:
		return "unknown"
	}
}

// Result is the verdict for one attempt. Execution is nil when the input
// was rejected before anything ran.
type Result struct {
	Outcome   Outcome
	Pass      bool
	Message   string
	Execution *shell.Result
}

// Err returns the verdict as an error of the matching kind, nil on a pass.
func (r Result) Err() error {
	switch r.Outcome {
	case Passed:
		return nil
	case InputRejected:
		return tutorerr.New("verify", "Verify", tutorerr.ErrInputValidation, r.Message)
	case Timeout:
		return tutorerr.New("verify", "Verify", tutorerr.ErrTimeout, r.Message)
	default:
		return tutorerr.New("verify", "Verify", tutorerr.ErrVerification, r.Message)
	}
}

// Options configures a Verifier.
type Options struct {
	// WorkDir is where commands run and where file checks look.
	WorkDir string
	// Timeout bounds each command; zero uses the runner default.
	Timeout time.Duration
	// SessionID tags subprocess audit events.
	SessionID string
}

// Verifier evaluates attempts against exercises. Attempts are independent;
// a Verifier keeps no state between them.
type Verifier struct {
	runner shell.Runner
	opts   Options
}

// New creates a verifier that executes through runner.
func New(runner shell.Runner, opts Options) *Verifier {
	return &Verifier{runner: runner, opts: opts}
}

// Verify runs the full pipeline for one attempt. It never returns an error;
// every failure is an Outcome.
func (v *Verifier) Verify(ctx context.Context, input string, ex Exercise) Result {
	if err := Sanitize(input); err != nil {
		var te *tutorerr.Error
		msg := err.Error()
		if errors.As(err, &te) {
			msg = te.Message
		}
		logging.VerifyDebug("Rejected input %q: %s", input, msg)
		return Result{Outcome: InputRejected, Message: msg}
	}

	res, err := v.runner.Run(ctx, shell.Command{
		Line:             input,
		WorkingDirectory: v.opts.WorkDir,
		Timeout:          v.opts.Timeout,
		SessionID:        v.opts.SessionID,
	})
	if err != nil {
		return Result{Outcome: ExecutionError, Message: "Error executing command: " + err.Error()}
	}
	if !res.Success {
		return Result{Outcome: ExecutionError, Message: "Error executing command: " + res.Error, Execution: res}
	}
	if res.TimedOut() {
		return Result{Outcome: Timeout, Message: "Command timed out!", Execution: res}
	}
	if res.Killed {
		return Result{Outcome: ExecutionError, Message: "Command was interrupted.", Execution: res}
	}

	if !CommandsMatch(input, ex.Command) {
		logging.VerifyDebug("Mismatch: %q vs expected %q", Normalize(input), Normalize(ex.Command))
		return Result{Outcome: StructuralMismatch, Message: "That's not the command this exercise asks for.", Execution: res}
	}

	spec := ex.Spec()
	if ok, why := Evaluate(spec, input, res, v.opts.WorkDir); !ok {
		logging.VerifyDebug("Predicate %s failed: %s", spec.Kind(), why)
		return Result{Outcome: PredicateFailed, Message: why, Execution: res}
	}

	logging.Verify("Passed %s for %q", spec.Kind(), input)
	return Result{Outcome: Passed, Pass: true, Message: "Correct! Well done.", Execution: res}
}
