package verify

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cmdtutor/internal/shell"
	"cmdtutor/internal/tutorerr"
)

// countingRunner records how often it was asked to run something.
type countingRunner struct {
	calls  int
	result *shell.Result
}

func (r *countingRunner) Run(ctx context.Context, cmd shell.Command) (*shell.Result, error) {
	r.calls++
	return r.result, nil
}

func realVerifier(t *testing.T, dir string) *Verifier {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX sh")
	}
	return New(shell.NewRunner(shell.Config{WorkingDirectory: dir}), Options{WorkDir: dir, Timeout: 5 * time.Second})
}

func TestVerify_ListHiddenFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden"), []byte("secret"), 0644))

	v := realVerifier(t, dir)
	res := v.Verify(context.Background(), "ls -la", Exercise{
		Instruction: "List all files including hidden ones",
		Command:     "ls -la",
		Check:       SpecField{Spec: CommandSucceeded{}},
	})

	assert.True(t, res.Pass)
	assert.Equal(t, Passed, res.Outcome)
	require.NotNil(t, res.Execution)
	assert.Contains(t, res.Execution.Stdout, ".hidden")
	assert.NoError(t, res.Err())
}

func TestVerify_CatMissingFile(t *testing.T) {
	v := realVerifier(t, t.TempDir())
	res := v.Verify(context.Background(), "cat missing.txt", Exercise{
		Command: "cat missing.txt",
		Check:   SpecField{Spec: OutputNonEmpty{Path: "missing.txt"}},
	})

	assert.False(t, res.Pass)
	assert.Equal(t, PredicateFailed, res.Outcome)
	assert.NotEqual(t, 0, res.Execution.ExitCode)
	assert.Empty(t, res.Execution.Stdout)
	assert.True(t, errors.Is(res.Err(), tutorerr.ErrVerification))
}

func TestVerify_UnclosedQuoteNeverRuns(t *testing.T) {
	runner := &countingRunner{}
	v := New(runner, Options{})

	res := v.Verify(context.Background(), "grep 'foo", Exercise{Command: "grep 'foo'"})

	assert.False(t, res.Pass)
	assert.Equal(t, InputRejected, res.Outcome)
	assert.Contains(t, res.Message, "unclosed quotes")
	assert.Nil(t, res.Execution)
	assert.Zero(t, runner.calls, "no subprocess for rejected input")
	assert.True(t, errors.Is(res.Err(), tutorerr.ErrInputValidation))
}

func TestVerify_StructuralMismatchAfterExecution(t *testing.T) {
	runner := &countingRunner{result: &shell.Result{Success: true, ExitCode: 0, Stdout: "a\n"}}
	v := New(runner, Options{})

	res := v.Verify(context.Background(), "ls -al", Exercise{Command: "ls -la"})

	assert.Equal(t, StructuralMismatch, res.Outcome)
	assert.Equal(t, 1, runner.calls)
	assert.NotNil(t, res.Execution, "output is still shown to the learner")
}

func TestVerify_NormalizedMatchPasses(t *testing.T) {
	runner := &countingRunner{result: &shell.Result{Success: true, ExitCode: 0, Stdout: "/home/student\n"}}
	v := New(runner, Options{})

	res := v.Verify(context.Background(), "  PWD ", Exercise{Command: "pwd", Check: SpecField{Spec: PrintsDirectory{}}})
	assert.Equal(t, Passed, res.Outcome)
}

func TestVerify_Timeout(t *testing.T) {
	dir := t.TempDir()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX sh")
	}
	v := New(shell.NewRunner(shell.Config{}), Options{WorkDir: dir, Timeout: 200 * time.Millisecond})

	start := time.Now()
	res := v.Verify(context.Background(), "sleep 5", Exercise{Command: "sleep 5"})

	assert.Equal(t, Timeout, res.Outcome)
	assert.Equal(t, "Command timed out!", res.Message)
	assert.Less(t, time.Since(start), 3*time.Second)
	assert.True(t, errors.Is(res.Err(), tutorerr.ErrTimeout))
}

func TestVerify_ShellCannotStart(t *testing.T) {
	runner := &countingRunner{result: &shell.Result{Success: false, ExitCode: -1, Error: "exec: \"sh\": not found"}}
	v := New(runner, Options{})

	res := v.Verify(context.Background(), "ls", Exercise{Command: "ls"})
	assert.Equal(t, ExecutionError, res.Outcome)
	assert.Contains(t, res.Message, "not found")
}

func TestVerify_FileOperationInWorkDir(t *testing.T) {
	dir := t.TempDir()
	v := realVerifier(t, dir)

	ex := Exercise{Command: "mkdir practice", Check: SpecField{Spec: DirExists{Path: "practice"}}}
	res := v.Verify(context.Background(), "mkdir practice", ex)
	require.Equal(t, Passed, res.Outcome, res.Message)

	info, err := os.Stat(filepath.Join(dir, "practice"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "input_rejected", InputRejected.String())
	assert.Equal(t, "unknown", Outcome(42).String())
}
