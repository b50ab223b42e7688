package verify

import (
	"os"
	"path/filepath"
	"strings"

	"cmdtutor/internal/shell"
)

// Evaluate applies spec to a finished command. input is the learner's raw
// text and workDir resolves relative paths. The string explains a failure.
func Evaluate(spec Spec, input string, res *shell.Result, workDir string) (bool, string) {
	ok := res != nil && res.ExitCode == 0
	stdout := ""
	if res != nil {
		stdout = res.Stdout
	}

	switch s := spec.(type) {
	case CommandSucceeded, ListingSucceeded:
		if !ok {
			return false, "the command did not exit successfully"
		}
		return true, ""

	case PrintsDirectory:
		out := strings.TrimSpace(stdout)
		if !ok || out == "" || !filepath.IsAbs(out) {
			return false, "expected the command to print a directory path"
		}
		return true, ""

	case ListingShows:
		if !ok || !strings.Contains(stdout, s.Name) {
			return false, "expected the listing to show " + s.Name
		}
		return true, ""

	case OutputNonEmpty:
		if !ok || strings.TrimSpace(stdout) == "" {
			return false, "expected output from " + s.Path
		}
		return true, ""

	case GrepMatch:
		if !ok {
			return false, "no lines matched " + s.Term
		}
		found := strings.Contains(stdout, s.Term)
		if strings.Contains(strings.ToLower(input), "-i") {
			found = strings.Contains(strings.ToLower(stdout), strings.ToLower(s.Term))
		}
		if !found {
			return false, "expected matches for " + s.Term
		}
		return true, ""

	case FileExists:
		if !exists(workDir, s.Path) {
			return false, s.Path + " does not exist"
		}
		return true, ""

	case FileAbsent:
		if exists(workDir, s.Path) {
			return false, s.Path + " still exists"
		}
		return true, ""

	case FilesAbsent:
		for _, p := range s.Paths {
			if exists(workDir, p) {
				return false, p + " still exists"
			}
		}
		return true, ""

	case FileMoved:
		if exists(workDir, s.From) {
			return false, s.From + " still exists"
		}
		if !exists(workDir, s.To) {
			return false, s.To + " does not exist"
		}
		return true, ""

	case DirExists:
		info, err := os.Stat(resolve(workDir, s.Path))
		if err != nil || !info.IsDir() {
			return false, s.Path + " is not a directory"
		}
		return true, ""

	default:
		// Unreachable for specs built by this package.
		return false, "unsupported verification"
	}
}

func resolve(workDir, p string) string {
	if filepath.IsAbs(p) || workDir == "" {
		return p
	}
	return filepath.Join(workDir, p)
}

func exists(workDir, p string) bool {
	_, err := os.Stat(resolve(workDir, p))
	return err == nil
}
