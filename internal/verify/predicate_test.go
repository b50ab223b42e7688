package verify

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cmdtutor/internal/shell"
)

func TestEvaluate(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "present.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.txt"), []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "practice"), 0755))

	okOut := func(out string) *shell.Result { return &shell.Result{Success: true, ExitCode: 0, Stdout: out} }
	failed := &shell.Result{Success: true, ExitCode: 1}

	tests := []struct {
		name  string
		spec  Spec
		input string
		res   *shell.Result
		want  bool
	}{
		{"success exit 0", CommandSucceeded{}, "true", okOut(""), true},
		{"success exit 1", CommandSucceeded{}, "false", failed, false},
		{"ls empty dir", ListingSucceeded{}, "ls", okOut(""), true},
		{"pwd absolute", PrintsDirectory{}, "pwd", okOut("/home/student\n"), true},
		{"pwd relative", PrintsDirectory{}, "pwd", okOut("home\n"), false},
		{"pwd empty", PrintsDirectory{}, "pwd", okOut("  \n"), false},
		{"ls shows", ListingShows{Name: "test.txt"}, "ls", okOut("a.txt\ntest.txt\n"), true},
		{"ls missing", ListingShows{Name: "test.txt"}, "ls", okOut("a.txt\n"), false},
		{"cat output", OutputNonEmpty{Path: "a"}, "cat a", okOut("hello\n"), true},
		{"cat nothing", OutputNonEmpty{Path: "a"}, "cat a", okOut("\n"), false},
		{"cat failed", OutputNonEmpty{Path: "a"}, "cat a", failed, false},
		{"grep exact", GrepMatch{Term: "Linux", File: "f"}, "grep Linux f", okOut("Linux rocks\n"), true},
		{"grep case differs", GrepMatch{Term: "Linux", File: "f"}, "grep linux f", okOut("linux rocks\n"), false},
		{"grep -i", GrepMatch{Term: "Linux", File: "f"}, "grep -i linux f", okOut("LINUX rocks\n"), true},
		{"grep no match", GrepMatch{Term: "Linux", File: "f"}, "grep Linux f", failed, false},
		{"file exists", FileExists{Path: "present.txt"}, "touch present.txt", okOut(""), true},
		{"file exists ignores exit", FileExists{Path: "present.txt"}, "x", failed, true},
		{"file missing", FileExists{Path: "absent.txt"}, "x", okOut(""), false},
		{"file absent", FileAbsent{Path: "absent.txt"}, "rm absent.txt", okOut(""), true},
		{"file still there", FileAbsent{Path: "present.txt"}, "rm present.txt", okOut(""), false},
		{"files absent", FilesAbsent{Paths: []string{"a", "b"}}, "rm a b", okOut(""), true},
		{"one file remains", FilesAbsent{Paths: []string{"a", "present.txt"}}, "rm a", okOut(""), false},
		{"moved", FileMoved{From: "old.txt", To: "new.txt"}, "mv old.txt new.txt", okOut(""), true},
		{"not moved", FileMoved{From: "present.txt", To: "new.txt"}, "cp", okOut(""), false},
		{"target missing", FileMoved{From: "old.txt", To: "gone.txt"}, "mv", okOut(""), false},
		{"dir exists", DirExists{Path: "practice"}, "mkdir practice", okOut(""), true},
		{"file is not dir", DirExists{Path: "present.txt"}, "mkdir", okOut(""), false},
		{"absolute path", FileExists{Path: filepath.Join(dir, "present.txt")}, "x", okOut(""), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, why := Evaluate(tt.spec, tt.input, tt.res, dir)
			assert.Equal(t, tt.want, got, why)
			if !got {
				assert.NotEmpty(t, why)
			}
		})
	}
}
