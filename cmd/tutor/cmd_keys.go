package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cmdtutor/internal/answerkey"
	"cmdtutor/internal/cohort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	keysKey string
	keysMax int
	keysOut string

	rosterOut string
	sampleOut string
)

// sampleStudents seeds sample-roster.
var sampleStudents = []string{
	"john.doe@university.edu",
	"jane.smith@university.edu",
	"alice.johnson@university.edu",
	"bob.wilson@university.edu",
	"carol.brown@university.edu",
	"david.jones@university.edu",
	"emma.davis@university.edu",
	"frank.miller@university.edu",
	"grace.garcia@university.edu",
	"henry.rodriguez@university.edu",
}

// keysCmd generates answer keys for a roster
var keysCmd = &cobra.Command{
	Use:   "keys [roster-file]",
	Short: "Generate answer keys for every student in a roster",
	Long: `Writes the group answer key, the master key and one key per student.

The roster is either a plain list (one student ID per line) or a grouping
CSV written by "tutor roster", whose group columns are kept as they are.

Example:
  tutor keys students.txt --key Fall2024 --max 30 --out keys/`,
	Args: cobra.ExactArgs(1),
	RunE: runKeys,
}

// rosterCmd writes the grouping CSV for a student list
var rosterCmd = &cobra.Command{
	Use:   "roster [student-file]",
	Short: "Assign students to groups and write the grouping CSV",
	Args:  cobra.ExactArgs(1),
	RunE:  runRoster,
}

// sampleRosterCmd writes a sample student list
var sampleRosterCmd = &cobra.Command{
	Use:   "sample-roster",
	Short: "Write a sample student list for trying out rosters and keys",
	RunE:  runSampleRoster,
}

// readRoster loads a plain student list or a grouping CSV.
func readRoster(path string, groups int) (*cohort.Roster, error) {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return answerkey.LoadRosterCSV(path, groups)
	}
	students, err := cohort.ReadStudentList(path)
	if err != nil {
		return nil, err
	}
	return cohort.NewRoster(groups, students), nil
}

func runKeys(cmd *cobra.Command, args []string) error {
	c, err := loadConfig()
	if err != nil {
		return err
	}
	groups := groupsFlag(c)
	if err := cohort.ValidateGroupCount(groups); err != nil {
		return err
	}
	roster, err := readRoster(args[0], groups)
	if err != nil {
		return err
	}

	dir := keysOut
	if dir == "" {
		dir = resolveWorkspace()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	o := answerkey.Options{
		AssignmentKey: c.AssignmentKey(keysKey),
		Max:           keysMax,
		Interval:      c.Tutor.CheckpointInterval,
		GroupCount:    groups,
	}
	logger.Info("Generating answer keys",
		zap.String("roster", args[0]),
		zap.Int("students", roster.Len()),
		zap.String("key", o.AssignmentKey))

	rep, err := answerkey.Generate(commandContext(cmd), dir, o, roster)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "📁  Group answer key generated: %s\n", rep.GroupKey)
	fmt.Fprintf(out, "📁  Master answer key generated: %s\n", rep.MasterKey)
	fmt.Fprintf(out, "✅  Generated %d individual answer key files in '%s' directory\n", len(rep.IndividualFiles), rep.IndividualDir)
	fmt.Fprintf(out, "🔑 Assignment key used: '%s'\n", o.AssignmentKey)
	return nil
}

func runRoster(cmd *cobra.Command, args []string) error {
	c, err := loadConfig()
	if err != nil {
		return err
	}
	groups := groupsFlag(c)
	if err := cohort.ValidateGroupCount(groups); err != nil {
		return err
	}
	students, err := cohort.ReadStudentList(args[0])
	if err != nil {
		return err
	}
	roster := cohort.NewRoster(groups, students)

	var buf bytes.Buffer
	if err := answerkey.WriteRosterCSV(&buf, roster); err != nil {
		return err
	}
	if err := os.WriteFile(rosterOut, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", rosterOut, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✅  Read %d students from %s\n", roster.Len(), args[0])
	fmt.Fprintf(out, "📁  Student groups CSV generated: %s\n", rosterOut)
	printDistribution(out, roster)
	return nil
}

func printDistribution(w io.Writer, r *cohort.Roster) {
	fmt.Fprintf(w, "\n📊  GROUP DISTRIBUTION:\n%s\n", strings.Repeat("-", 40))
	for g := 1; g <= r.GroupCount; g++ {
		fmt.Fprintf(w, "%s: %d students\n", cohort.GroupLabel(g), len(r.Students(g)))
	}
	fmt.Fprintf(w, "Total: %d students\n", r.Len())
}

func runSampleRoster(cmd *cobra.Command, args []string) error {
	data := strings.Join(sampleStudents, "\n") + "\n"
	if err := os.WriteFile(sampleOut, []byte(data), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", sampleOut, err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "📁 Sample student file created: %s\n", sampleOut)
	fmt.Fprintf(out, "You can use this file to test the group assignment functionality.\n")
	return nil
}
