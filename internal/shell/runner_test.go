package shell

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// MOCK HELPER
// =============================================================================

// TestHelperProcess isn't a real test. It's used as a helper process
// for mocking exec.CommandContext.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	args := os.Args
	for i, arg := range args {
		if arg == "--" {
			fmt.Fprint(os.Stdout, strings.Join(args[i+1:], " "))
			break
		}
	}
	os.Exit(0)
}

func fakeExecCommandContext(ctx context.Context, command string, args ...string) *exec.Cmd {
	cs := []string{"-test.run=TestHelperProcess", "--", command}
	cs = append(cs, args...)
	return exec.CommandContext(ctx, os.Args[0], cs...)
}

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX sh")
	}
}

// =============================================================================
// RUNNER TESTS
// =============================================================================

func TestShellRunner_InvokesShellDashC(t *testing.T) {
	oldExec := execCommandContext
	execCommandContext = fakeExecCommandContext
	defer func() { execCommandContext = oldExec }()

	r := NewRunner(Config{Shell: "bash"})
	res, err := r.Run(context.Background(), Command{
		Line:        "ls -la",
		Environment: []string{"GO_WANT_HELPER_PROCESS=1"},
	})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "bash -c ls -la", res.Stdout)
}

func TestShellRunner_Echo(t *testing.T) {
	skipOnWindows(t)

	r := NewRunner(DefaultConfig())
	res, err := r.Run(context.Background(), Command{Line: "echo hello"})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "hello\n", res.Stdout)
	assert.False(t, res.Killed)
}

func TestShellRunner_NonZeroExit(t *testing.T) {
	skipOnWindows(t)

	dir := t.TempDir()
	r := NewRunner(Config{WorkingDirectory: dir})
	res, err := r.Run(context.Background(), Command{Line: "cat missing.txt"})
	require.NoError(t, err)

	assert.True(t, res.Success, "the shell ran, the command failed")
	assert.NotEqual(t, 0, res.ExitCode)
	assert.Empty(t, res.Stdout)
	assert.Contains(t, res.Stderr, "missing.txt")
}

func TestShellRunner_WorkingDirectory(t *testing.T) {
	skipOnWindows(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "marker.txt"), []byte("x"), 0644))

	r := NewRunner(DefaultConfig())
	res, err := r.Run(context.Background(), Command{Line: "ls", WorkingDirectory: dir})
	require.NoError(t, err)
	assert.Contains(t, res.Stdout, "marker.txt")
}

func TestShellRunner_Timeout(t *testing.T) {
	skipOnWindows(t)

	r := NewRunner(DefaultConfig())

	start := time.Now()
	res, err := r.Run(context.Background(), Command{
		Line:    "sleep 10 | cat",
		Timeout: 300 * time.Millisecond,
	})
	elapsed := time.Since(start)
	require.NoError(t, err)

	assert.True(t, res.Killed)
	assert.True(t, res.TimedOut())
	assert.Contains(t, res.KillReason, "timeout")
	assert.Less(t, elapsed, 3*time.Second, "process group should be torn down promptly")
}

func TestShellRunner_ContextCanceled(t *testing.T) {
	skipOnWindows(t)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	res, err := NewRunner(DefaultConfig()).Run(ctx, Command{Line: "sleep 10"})
	require.NoError(t, err)
	assert.True(t, res.Killed)
	assert.False(t, res.TimedOut())
}

func TestShellRunner_OutputTruncated(t *testing.T) {
	skipOnWindows(t)

	r := NewRunner(Config{MaxOutputBytes: 8})
	res, err := r.Run(context.Background(), Command{Line: "printf 0123456789abcdef"})
	require.NoError(t, err)

	assert.Equal(t, "01234567", res.Stdout)
	assert.True(t, res.Truncated)
	assert.Equal(t, int64(8), res.TruncatedBytes)
}

func TestShellRunner_MissingShell(t *testing.T) {
	r := NewRunner(Config{Shell: "/nonexistent/shell"})
	res, err := r.Run(context.Background(), Command{Line: "true"})
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
}

func TestShellRunner_EmptyLine(t *testing.T) {
	_, err := NewRunner(DefaultConfig()).Run(context.Background(), Command{})
	assert.Error(t, err)
}

func TestShellRunner_AuditEvents(t *testing.T) {
	skipOnWindows(t)

	var mu sync.Mutex
	var events []AuditEventType

	r := NewRunner(DefaultConfig())
	r.SetAuditCallback(func(ev AuditEvent) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, ev.Type)
	})

	_, err := r.Run(context.Background(), Command{Line: "true"})
	require.NoError(t, err)
	_, err = r.Run(context.Background(), Command{Line: "sleep 5", Timeout: 100 * time.Millisecond})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []AuditEventType{
		AuditEventStart, AuditEventComplete,
		AuditEventStart, AuditEventKilled,
	}, events)
}

func TestConfig_Merge(t *testing.T) {
	cfg := Config{DefaultTimeout: 7 * time.Second, WorkingDirectory: "/srv"}

	merged := cfg.Merge(Command{Line: "ls"})
	assert.Equal(t, 7*time.Second, merged.Timeout)
	assert.Equal(t, "/srv", merged.WorkingDirectory)

	kept := cfg.Merge(Command{Line: "ls", Timeout: time.Second, WorkingDirectory: "/tmp"})
	assert.Equal(t, time.Second, kept.Timeout)
	assert.Equal(t, "/tmp", kept.WorkingDirectory)
}

func TestLimitedWriter(t *testing.T) {
	var sb strings.Builder
	lw := &limitedWriter{w: &sb, max: 5}

	n, err := lw.Write([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = lw.Write([]byte("defg"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	assert.Equal(t, "abcde", sb.String())
	assert.True(t, lw.truncated)
	assert.Equal(t, int64(2), lw.discarded)
}
