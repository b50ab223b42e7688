package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"cmdtutor/internal/answerkey"
	"cmdtutor/internal/codes"
	"cmdtutor/internal/cohort"
	"cmdtutor/internal/lesson"
	"cmdtutor/internal/tutorerr"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// setup resets the package-level flags and returns a command whose output
// is captured.
func setup(t *testing.T) (*cobra.Command, *bytes.Buffer) {
	t.Helper()
	reset := func() {
		logger = zap.NewNop()
		workspace = ""
		configPath = ""
		cfg = nil
		verbose = false
		codeKey, codeStudent, codeGroup, codeCount, codeFinal, codeMax = "", "", 0, 0, false, 20
		groupCount = 0
		keysKey, keysMax, keysOut = "", 20, ""
		rosterOut, sampleOut = "student_groups.csv", "sample_students.txt"
		workspaceReset, watchRoster, noSeed = false, false, false
	}
	reset()
	t.Cleanup(reset)
	workspace = t.TempDir()

	out := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(out)
	return cmd, out
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestRunCodeSingle(t *testing.T) {
	cmd, out := setup(t)
	codeKey, codeGroup, codeCount = "Fall2024", 3, 10

	require.NoError(t, runCode(cmd, nil))
	assert.Equal(t, codes.Derive("Fall2024", 3, 10, codes.Checkpoint)+"\n", out.String())

	out.Reset()
	codeFinal = true
	require.NoError(t, runCode(cmd, nil))
	assert.Equal(t, codes.Derive("Fall2024", 3, 10, codes.Final)+"\n", out.String())
}

func TestRunCodeScheduleForStudent(t *testing.T) {
	cmd, out := setup(t)
	student := "jane.smith@university.edu"
	codeKey, codeStudent, codeMax = "Fall2024", student, 12
	group := cohort.Group(student, 4)

	require.NoError(t, runCode(cmd, nil))
	got := out.String()
	assert.Contains(t, got, "is assigned to: "+cohort.GroupLabel(group))
	assert.Contains(t, got, "After 5 exercises: "+codes.Derive("Fall2024", group, 5, codes.Checkpoint)+" (CHECKPOINT)")
	assert.Contains(t, got, "After 10 exercises: "+codes.Derive("Fall2024", group, 10, codes.Checkpoint))
	assert.Contains(t, got, "After 12 exercises: "+codes.Derive("Fall2024", group, 12, codes.Final)+" (FINAL COMPLETION)")
}

func TestRunCodeScheduleEndsOnCheckpoint(t *testing.T) {
	cmd, out := setup(t)
	codeKey, codeGroup, codeMax = "Fall2024", 2, 10

	require.NoError(t, runCode(cmd, nil))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Equal(t, []string{
		"Using assignment key: 'Fall2024'",
		"  After 5 exercises: " + codes.Derive("Fall2024", 2, 5, codes.Checkpoint) + " (CHECKPOINT)",
		"  After 10 exercises: " + codes.Derive("Fall2024", 2, 10, codes.Checkpoint) + " (CHECKPOINT)",
		"  After 10 exercises: " + codes.Derive("Fall2024", 2, 10, codes.Final) + " (FINAL COMPLETION)",
	}, lines)
}

func TestRunCodeDefaultKey(t *testing.T) {
	cmd, out := setup(t)
	codeGroup, codeCount = 1, 5

	require.NoError(t, runCode(cmd, nil))
	assert.Equal(t, codes.Derive(codes.DefaultKey, 1, 5, codes.Checkpoint)+"\n", out.String())
}

func TestRunCodeErrors(t *testing.T) {
	cmd, _ := setup(t)
	codeGroup = 9
	err := runCode(cmd, nil)
	assert.True(t, errors.Is(err, tutorerr.ErrInputValidation))

	codeGroup, codeFinal = 2, true
	err = runCode(cmd, nil)
	assert.True(t, errors.Is(err, tutorerr.ErrInputValidation))
}

func TestRunGroup(t *testing.T) {
	cmd, out := setup(t)
	groupCount = 6

	require.NoError(t, runGroup(cmd, []string{"a@x.edu", "b@x.edu"}))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	g := cohort.Group("a@x.edu", 6)
	assert.Equal(t, "a@x.edu\t"+cohort.GroupLabel(g)+"\t"+strconv.Itoa(g), lines[0])

	groupCount = 30
	assert.Error(t, runGroup(cmd, []string{"a@x.edu"}))
}

func TestRunKeys(t *testing.T) {
	cmd, out := setup(t)
	roster := writeFile(t, filepath.Join(workspace, "students.txt"), strings.Join(sampleStudents, "\n"))
	keysKey, keysMax = "Midterm", 10

	require.NoError(t, runKeys(cmd, []string{roster}))
	assert.Contains(t, out.String(), "Generated 10 individual answer key files")
	assert.FileExists(t, filepath.Join(workspace, answerkey.GroupKeyFile("Midterm")))
	assert.FileExists(t, filepath.Join(workspace, answerkey.MasterKeyFile("Midterm")))
	assert.FileExists(t, filepath.Join(workspace, answerkey.IndividualDir("Midterm"), "jane_smith_at_university_edu_answer_key.csv"))
}

func TestRunKeysMissingRoster(t *testing.T) {
	cmd, _ := setup(t)
	err := runKeys(cmd, []string{filepath.Join(workspace, "missing.txt")})
	assert.True(t, errors.Is(err, tutorerr.ErrRosterLoad))
}

func TestRunRosterThenKeysFromCSV(t *testing.T) {
	cmd, out := setup(t)
	students := writeFile(t, filepath.Join(workspace, "students.txt"), strings.Join(sampleStudents, "\n"))
	rosterOut = filepath.Join(workspace, "groups.csv")

	require.NoError(t, runRoster(cmd, []string{students}))
	assert.Contains(t, out.String(), "Read 10 students")
	assert.Contains(t, out.String(), "Total: 10 students")

	r, err := answerkey.LoadRosterCSV(rosterOut, 4)
	require.NoError(t, err)
	assert.Equal(t, 10, r.Len())
	for _, s := range sampleStudents {
		g, ok := r.Lookup(s)
		require.True(t, ok, s)
		assert.Equal(t, cohort.Group(s, 4), g, s)
	}

	keysKey = "K"
	require.NoError(t, runKeys(cmd, []string{rosterOut}))
	assert.FileExists(t, filepath.Join(workspace, answerkey.GroupKeyFile("K")))
}

func TestRunSampleRoster(t *testing.T) {
	cmd, out := setup(t)
	sampleOut = filepath.Join(workspace, "sample.txt")

	require.NoError(t, runSampleRoster(cmd, nil))
	assert.Contains(t, out.String(), "Sample student file created")

	students, err := cohort.ReadStudentList(sampleOut)
	require.NoError(t, err)
	assert.Equal(t, sampleStudents, students)
}

func TestRunWorkspace(t *testing.T) {
	cmd, out := setup(t)

	require.NoError(t, runWorkspace(cmd, nil))
	assert.Contains(t, out.String(), "Created")
	assert.FileExists(t, filepath.Join(workspace, lesson.DocumentsDir, "README.txt"))

	out.Reset()
	require.NoError(t, runWorkspace(cmd, nil))
	assert.Contains(t, out.String(), "already present")

	leftover := writeFile(t, filepath.Join(workspace, "test.txt"), "")
	workspaceReset = true
	require.NoError(t, runWorkspace(cmd, nil))
	assert.NoFileExists(t, leftover)
}

func TestRunLessons(t *testing.T) {
	cmd, out := setup(t)

	require.NoError(t, runLessons(cmd, nil))
	assert.Contains(t, out.String(), "1. Basic Navigation (10 exercises)")
	assert.Contains(t, out.String(), "Total: 50 exercises")
}

func TestConfigInitAndShow(t *testing.T) {
	cmd, out := setup(t)

	require.NoError(t, runConfigInit(cmd, nil))
	assert.FileExists(t, filepath.Join(workspace, ".tutor", "config.yaml"))

	out.Reset()
	require.NoError(t, runConfigInit(cmd, nil))
	assert.Contains(t, out.String(), "already exists")

	out.Reset()
	require.NoError(t, runConfigShow(cmd, nil))
	assert.Contains(t, out.String(), "checkpoint_interval: 5")
	assert.Contains(t, out.String(), "group_count: 4")
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	setup(t)
	writeFile(t, filepath.Join(workspace, ".tutor", "config.yaml"), "tutor:\n  group_count: 40\n  checkpoint_interval: 5\n")

	_, err := loadConfig()
	assert.True(t, errors.Is(err, tutorerr.ErrInvalidConfig))
}

func TestCustomLessonsPath(t *testing.T) {
	cmd, out := setup(t)
	writeFile(t, filepath.Join(workspace, "lessons.yaml"), `
lessons:
  - title: "Only"
    description: "One exercise"
    commands: ["pwd"]
    exercises:
      - {instruction: "Show where you are", command: "pwd", verification: check_pwd}
`)
	writeFile(t, filepath.Join(workspace, ".tutor", "config.yaml"), "tutor:\n  lessons_path: lessons.yaml\n")

	require.NoError(t, runLessons(cmd, nil))
	assert.Contains(t, out.String(), "1. Only (1 exercises)")
	assert.Contains(t, out.String(), "Total: 1 exercises")
}

func TestRunTutorScripted(t *testing.T) {
	cmd, out := setup(t)
	noSeed = true
	cmd.SetIn(strings.NewReader("jane.smith@university.edu\n\nadmin_help\nquit\n"))

	require.NoError(t, runTutor(cmd, nil))
	got := out.String()
	assert.Contains(t, got, "Session started for: jane.smith@university.edu")
	assert.Contains(t, got, "ADMINISTRATIVE COMMANDS")
	assert.Contains(t, got, "Goodbye!")
	assert.NoDirExists(t, filepath.Join(workspace, lesson.DocumentsDir))
}
