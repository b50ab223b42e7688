package lesson

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cmdtutor/internal/logging"
)

// DocumentsDir is the practice directory the exercises read from.
const DocumentsDir = "Documents"

// practiceFiles are written under DocumentsDir. small.txt must stay the
// smallest file; the exercises compare sizes.
var practiceFiles = map[string]string{
	"small.txt": "Hello!\n",

	"README.txt": `Welcome to the Linux Command Tutorial practice area.

This directory contains sample documents you will explore with Linux
commands such as cat, grep, head, tail and wc.

Linux is a family of open-source operating systems built around the
Linux kernel. Learning the Linux command line lets you work quickly
with files, text and processes.

Tip: use "ls -l" to see file sizes and "cat" to read a file.
`,

	"students.txt": `Alice Johnson - Computer Science
Bob Smith - Mathematics
Carol Davis - Computer Engineering
David Wilson - Physics
Emma Brown - Information Systems
Frank Miller - Computer Science
Grace Lee - Biology
Henry Taylor - Cybersecurity
`,

	"project.txt": `Project: File Organizer
========================

Goal: write a small shell script that sorts files into folders
by extension.

Requirements:
1. Read every file in a source directory.
2. Create one folder per file extension.
3. Move each file into the matching folder.
4. Print a summary of what was moved.

Milestones:
- Week 1: explore the directory with ls and find.
- Week 2: write the script with mkdir and mv.
- Week 3: test it on sample data and fix edge cases.

Deliverables: the script, a README and a short demo.
`,

	"commands.txt": `Linux quick reference
pwd    print working directory
ls     list directory contents
cd     change directory
cat    show file contents
grep   search text for a pattern
head   show the first lines of a file
tail   show the last lines of a file
wc     count lines, words and characters
chmod  change file permissions
mkdir  create a directory
`,
}

// hiddenFile gives "ls -a" something to reveal.
const hiddenFile = ".tutorial_hidden"

// SeedWorkspace creates dir/Documents and writes the practice files that do
// not exist yet, so instructor edits survive. It returns the files written,
// relative to dir.
func SeedWorkspace(dir string) ([]string, error) {
	docs := filepath.Join(dir, DocumentsDir)
	if err := os.MkdirAll(docs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", docs, err)
	}

	names := make([]string, 0, len(practiceFiles))
	for name := range practiceFiles {
		names = append(names, name)
	}
	sort.Strings(names)

	var written []string
	for _, name := range names {
		rel := filepath.Join(DocumentsDir, name)
		ok, err := writeIfMissing(filepath.Join(dir, rel), practiceFiles[name])
		if err != nil {
			return written, err
		}
		if ok {
			written = append(written, rel)
		}
	}

	ok, err := writeIfMissing(filepath.Join(dir, hiddenFile), "You found the hidden file!\n")
	if err != nil {
		return written, err
	}
	if ok {
		written = append(written, hiddenFile)
	}

	if len(written) > 0 {
		logging.Lesson("Seeded %d practice files in %s", len(written), dir)
	}
	return written, nil
}

func writeIfMissing(path, content string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return true, nil
}

// ResetWorkspace removes the files and directories earlier runs created,
// so exercises such as "mkdir testdir" succeed again. Missing paths are
// ignored. Paths outside dir are refused.
func ResetWorkspace(dir string, artifacts []string) error {
	root, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	for _, rel := range artifacts {
		target := filepath.Join(root, rel)
		r, err := filepath.Rel(root, target)
		if err != nil || filepath.IsAbs(rel) || r == "." || strings.HasPrefix(r, "..") {
			logging.LessonWarn("refusing to remove %q outside workspace", rel)
			continue
		}
		if err := os.RemoveAll(target); err != nil {
			return fmt.Errorf("failed to remove %s: %w", rel, err)
		}
	}
	logging.Lesson("Reset %d practice artifacts in %s", len(artifacts), dir)
	return nil
}
