package progress

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"cmdtutor/internal/codes"
	"cmdtutor/internal/logging"
	"cmdtutor/internal/tutorerr"
)

type fixedGroup int

func (g fixedGroup) Assign(string) int { return int(g) }

func newTracker(t *testing.T) *Tracker {
	t.Helper()
	tr, err := NewTracker(fixedGroup(3), 5)
	require.NoError(t, err)
	tr.now = func() time.Time { return time.Date(2024, 9, 1, 10, 0, 0, 0, time.UTC) }
	require.NoError(t, tr.Begin("alice@uni.edu", "Fall2024"))
	return tr
}

// succeed records n successes, acknowledging checkpoints along the way, and
// returns the counts at which checkpoints were issued.
func succeed(t *testing.T, tr *Tracker, n int) []int {
	t.Helper()
	var at []int
	for i := 0; i < n; i++ {
		cp, err := tr.RecordSuccess()
		require.NoError(t, err)
		if cp != nil {
			at = append(at, cp.ExerciseCount)
			require.NoError(t, tr.Acknowledge())
		}
	}
	return at
}

func TestNewTracker_Validates(t *testing.T) {
	_, err := NewTracker(nil, 5)
	assert.True(t, errors.Is(err, tutorerr.ErrInvalidConfig))
	_, err = NewTracker(fixedGroup(1), 0)
	assert.True(t, errors.Is(err, tutorerr.ErrInvalidConfig))
}

func TestBegin(t *testing.T) {
	tr, err := NewTracker(fixedGroup(4), 5)
	require.NoError(t, err)
	assert.Equal(t, AwaitingIdentity, tr.State())

	err = tr.Begin("   ", "k")
	assert.True(t, errors.Is(err, tutorerr.ErrInputValidation))
	assert.Equal(t, AwaitingIdentity, tr.State())

	require.NoError(t, tr.Begin(" bob ", "k"))
	assert.Equal(t, InLesson, tr.State())
	assert.Equal(t, 4, tr.Group())
	assert.Equal(t, "bob", tr.Record().StudentID)

	err = tr.Begin("bob", "k")
	assert.True(t, errors.Is(err, tutorerr.ErrStateTransition))
}

func TestCheckpointCadence(t *testing.T) {
	tr := newTracker(t)

	at := succeed(t, tr, 4)
	assert.Empty(t, at, "no code at 1..4")

	cp, err := tr.RecordSuccess()
	require.NoError(t, err)
	require.NotNil(t, cp, "code at 5")
	assert.Equal(t, 5, cp.ExerciseCount)
	assert.Equal(t, codes.Checkpoint, cp.Kind)
	assert.Equal(t, codes.Derive("Fall2024", 3, 5, codes.Checkpoint), cp.Code)
	assert.Equal(t, AtCheckpoint, tr.State())
	require.NoError(t, tr.Acknowledge())

	at = succeed(t, tr, 11)
	assert.Equal(t, []int{10, 15}, at, "codes at 10 and 15, none at 6..9 or 11..14 or 16")
	assert.Equal(t, 16, tr.Counter())
}

func TestRecordSuccess_RequiresAcknowledge(t *testing.T) {
	tr := newTracker(t)
	succeed(t, tr, 4)
	cp, err := tr.RecordSuccess()
	require.NoError(t, err)
	require.NotNil(t, cp)

	_, err = tr.RecordSuccess()
	assert.True(t, errors.Is(err, tutorerr.ErrStateTransition))
	assert.Equal(t, 5, tr.Counter(), "rejected transition leaves the counter untouched")

	err = tr.Skip()
	assert.True(t, errors.Is(err, tutorerr.ErrStateTransition))
}

func TestRejectedTransitionIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logging.Use(zap.New(core), logging.Options{DebugMode: true})
	t.Cleanup(func() { logging.Use(nil, logging.Options{}) })

	tr := newTracker(t)
	require.Error(t, tr.Acknowledge())

	warns := logs.FilterLoggerName("progress").FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(t, warns, 1)
	assert.Equal(t, "Acknowledge rejected in state IN_LESSON", warns[0].Message)
}

func TestSkipNeverIncrements(t *testing.T) {
	tr := newTracker(t)
	succeed(t, tr, 2)

	for i := 0; i < 10; i++ {
		require.NoError(t, tr.Skip())
	}
	assert.Equal(t, 2, tr.Counter())
	assert.Equal(t, 10, tr.Record().Skipped)
	assert.Empty(t, tr.Record().Codes)
}

func TestCompleteEmitsExactlyOneFinal(t *testing.T) {
	tr := newTracker(t)
	succeed(t, tr, 5)

	final, err := tr.Complete()
	require.NoError(t, err)
	assert.Equal(t, codes.Final, final.Kind)
	assert.Equal(t, 5, final.ExerciseCount)
	assert.Equal(t, Completed, tr.State())

	cp := tr.Record().Codes[0]
	assert.Equal(t, codes.Checkpoint, cp.Kind)
	assert.NotEqual(t, cp.Code, final.Code, "same numeric triple, different kind")

	_, err = tr.Complete()
	assert.True(t, errors.Is(err, tutorerr.ErrStateTransition))
	_, err = tr.RecordSuccess()
	assert.True(t, errors.Is(err, tutorerr.ErrStateTransition))

	finals := 0
	for _, c := range tr.Record().Codes {
		if c.Kind == codes.Final {
			finals++
		}
	}
	assert.Equal(t, 1, finals)
}

func TestCompleteFromCheckpoint(t *testing.T) {
	tr := newTracker(t)
	for i := 0; i < 5; i++ {
		_, err := tr.RecordSuccess()
		require.NoError(t, err)
	}
	require.Equal(t, AtCheckpoint, tr.State())

	final, err := tr.Complete()
	require.NoError(t, err)
	assert.Equal(t, 5, final.ExerciseCount)
}

func TestCompleteNotMultipleOfInterval(t *testing.T) {
	tr := newTracker(t)
	succeed(t, tr, 7)

	final, err := tr.Complete()
	require.NoError(t, err)
	assert.Equal(t, 7, final.ExerciseCount)
	assert.Equal(t, codes.Derive("Fall2024", 3, 7, codes.Final), final.Code)
}

func TestReset(t *testing.T) {
	tr := newTracker(t)
	succeed(t, tr, 6)
	_, err := tr.Complete()
	require.NoError(t, err)

	require.NoError(t, tr.Reset("Lesson2"))
	rec := tr.Record()
	assert.Equal(t, InLesson, rec.State)
	assert.Equal(t, 0, rec.ExerciseCounter)
	assert.Empty(t, rec.Codes)
	assert.Equal(t, "Lesson2", rec.AssignmentKey)
	assert.Equal(t, 3, rec.Group, "group survives a reset")

	succeed(t, tr, 4)
	cp, err := tr.RecordSuccess()
	require.NoError(t, err)
	assert.Equal(t, codes.Derive("Lesson2", 3, 5, codes.Checkpoint), cp.Code)

	err = tr.Reset("x")
	assert.True(t, errors.Is(err, tutorerr.ErrStateTransition), "cannot reset while a checkpoint is pending")
}

func TestResetBeforeBegin(t *testing.T) {
	tr, err := NewTracker(fixedGroup(1), 5)
	require.NoError(t, err)
	assert.True(t, errors.Is(tr.Reset("k"), tutorerr.ErrStateTransition))
	assert.True(t, errors.Is(tr.Skip(), tutorerr.ErrStateTransition))
	assert.True(t, errors.Is(tr.Acknowledge(), tutorerr.ErrStateTransition))
}

func TestRecordIsACopy(t *testing.T) {
	tr := newTracker(t)
	succeed(t, tr, 5)

	rec := tr.Record()
	rec.Codes[0].Code = "XXXXX"

	want := []Checkpoint{{
		ExerciseCount: 5,
		Code:          codes.Derive("Fall2024", 3, 5, codes.Checkpoint),
		Kind:          codes.Checkpoint,
		Group:         3,
		AssignmentKey: "Fall2024",
		CreatedAt:     time.Date(2024, 9, 1, 10, 0, 0, 0, time.UTC),
	}}
	if diff := cmp.Diff(want, tr.Record().Codes); diff != "" {
		t.Errorf("codes mismatch (-want +got):\n%s", diff)
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "IN_LESSON", InLesson.String())
	assert.Equal(t, "State(9)", State(9).String())
}
