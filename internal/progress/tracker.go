// Package progress counts verified exercises in a learner session and
// issues checkpoint and completion codes.
package progress

import (
	"fmt"
	"strings"
	"time"

	"cmdtutor/internal/codes"
	"cmdtutor/internal/logging"
	"cmdtutor/internal/tutorerr"
)

// State is the tracker's position in a session.
type State int

const (
	AwaitingIdentity State = iota
	InLesson
	AtCheckpoint
	Completed
)

func (s State) String() string {
	switch s {
	case AwaitingIdentity:
		return "AWAITING_IDENTITY"
	case InLesson:
		return "IN_LESSON"
	case AtCheckpoint:
		return "AT_CHECKPOINT"
	case Completed:
		return "COMPLETED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

func isAllowedTransition(from, to State) bool {
	switch from {
	case AwaitingIdentity:
		return to == InLesson
	case InLesson:
		return to == InLesson || to == AtCheckpoint || to == Completed
	case AtCheckpoint:
		return to == InLesson || to == Completed
	case Completed:
		return to == InLesson // only through Reset
	default:
		return false
	}
}

// GroupResolver resolves a student's group once per session.
type GroupResolver interface {
	Assign(studentID string) int
}

// Checkpoint is one issued code.
type Checkpoint struct {
	ExerciseCount int
	Code          string
	Kind          codes.Kind
	Group         int
	AssignmentKey string
	CreatedAt     time.Time
}

// Record is a read-only view of the tracker.
type Record struct {
	State           State
	StudentID       string
	AssignmentKey   string
	Group           int
	ExerciseCounter int
	Skipped         int
	Codes           []Checkpoint
}

// Tracker owns the progress of one session. It is not safe for concurrent
// use; a session drives it from a single goroutine.
type Tracker struct {
	interval int
	resolver GroupResolver
	now      func() time.Time

	state     State
	studentID string
	key       string
	group     int
	counter   int
	skipped   int
	codes     []Checkpoint
	audit     *logging.AuditLogger
}

// NewTracker creates a tracker issuing a checkpoint every interval
// verified exercises.
func NewTracker(resolver GroupResolver, interval int) (*Tracker, error) {
	if resolver == nil {
		return nil, tutorerr.New("progress", "NewTracker", tutorerr.ErrInvalidConfig, "group resolver is required")
	}
	if interval < 1 {
		return nil, tutorerr.New("progress", "NewTracker", tutorerr.ErrInvalidConfig,
			fmt.Sprintf("checkpoint interval must be at least 1, got %d", interval))
	}
	return &Tracker{
		interval: interval,
		resolver: resolver,
		now:      time.Now,
		state:    AwaitingIdentity,
		audit:    logging.Audit(),
	}, nil
}

// SetAudit routes code emission events to a session-scoped audit logger.
func (t *Tracker) SetAudit(a *logging.AuditLogger) {
	if a != nil {
		t.audit = a
	}
}

// rejected logs and returns the error for op attempted in the current state.
// The state and counter are left untouched.
func (t *Tracker) rejected(op, verb string) error {
	logging.ProgressWarn("%s rejected in state %s", op, t.state)
	return tutorerr.New("progress", op, tutorerr.ErrStateTransition,
		fmt.Sprintf("cannot %s from %s", verb, t.state))
}

func (t *Tracker) transition(op string, to State) error {
	if !isAllowedTransition(t.state, to) {
		return t.rejected(op, strings.ToLower(op))
	}
	if t.state != to {
		logging.Progress("%s: %s -> %s", op, t.state, to)
	}
	t.state = to
	return nil
}

// Begin captures the learner identity and the first assignment key and
// resolves the group.
func (t *Tracker) Begin(studentID, assignmentKey string) error {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return tutorerr.New("progress", "Begin", tutorerr.ErrInputValidation, "student ID is required")
	}
	if t.state != AwaitingIdentity {
		return t.rejected("Begin", "begin")
	}
	if err := t.transition("Begin", InLesson); err != nil {
		return err
	}
	t.studentID = studentID
	t.key = assignmentKey
	t.group = t.resolver.Assign(studentID)
	logging.Progress("Session begun for %s in group %d (key=%q)", studentID, t.group, assignmentKey)
	return nil
}

// RecordSuccess counts one verified exercise. When the counter reaches a
// multiple of the interval a CHECKPOINT is returned and the tracker waits
// for Acknowledge.
func (t *Tracker) RecordSuccess() (*Checkpoint, error) {
	if t.state != InLesson {
		return nil, t.rejected("RecordSuccess", "record success")
	}
	t.counter++

	if t.counter%t.interval != 0 {
		return nil, nil
	}
	if err := t.transition("RecordSuccess", AtCheckpoint); err != nil {
		return nil, err
	}
	cp := t.emit(codes.Checkpoint)
	return &cp, nil
}

// Acknowledge returns to the lesson after a checkpoint has been shown.
func (t *Tracker) Acknowledge() error {
	if t.state != AtCheckpoint {
		return t.rejected("Acknowledge", "acknowledge")
	}
	return t.transition("Acknowledge", InLesson)
}

// Skip records a skipped exercise. The counter is not touched.
func (t *Tracker) Skip() error {
	if t.state != InLesson {
		return t.rejected("Skip", "skip")
	}
	t.skipped++
	return nil
}

// Complete issues the single FINAL code of the run.
func (t *Tracker) Complete() (Checkpoint, error) {
	if t.state != InLesson && t.state != AtCheckpoint {
		return Checkpoint{}, t.rejected("Complete", "complete")
	}
	if err := t.transition("Complete", Completed); err != nil {
		return Checkpoint{}, err
	}
	return t.emit(codes.Final), nil
}

// Reset starts a new run (a lesson or the full tutorial) for the same
// learner: counter and codes restart under the new assignment key.
func (t *Tracker) Reset(assignmentKey string) error {
	if t.state == AwaitingIdentity || t.state == AtCheckpoint {
		return t.rejected("Reset", "reset")
	}
	if err := t.transition("Reset", InLesson); err != nil {
		return err
	}
	t.key = assignmentKey
	t.counter = 0
	t.skipped = 0
	t.codes = nil
	return nil
}

func (t *Tracker) emit(kind codes.Kind) Checkpoint {
	cp := Checkpoint{
		ExerciseCount: t.counter,
		Code:          codes.Derive(t.key, t.group, t.counter, kind),
		Kind:          kind,
		Group:         t.group,
		AssignmentKey: t.key,
		CreatedAt:     t.now(),
	}
	t.codes = append(t.codes, cp)
	logging.Progress("Issued %s code at %d exercises", kind, t.counter)
	t.audit.CodeEmitted(string(kind), t.counter, cp.Code)
	return cp
}

// State returns the current state.
func (t *Tracker) State() State { return t.state }

// Counter returns the number of verified exercises in the current run.
func (t *Tracker) Counter() int { return t.counter }

// Group returns the resolved group, 0 before Begin.
func (t *Tracker) Group() int { return t.group }

// Record returns a copy of the tracker's progress.
func (t *Tracker) Record() Record {
	return Record{
		State:           t.state,
		StudentID:       t.studentID,
		AssignmentKey:   t.key,
		Group:           t.group,
		ExerciseCounter: t.counter,
		Skipped:         t.skipped,
		Codes:           append([]Checkpoint(nil), t.codes...),
	}
}
