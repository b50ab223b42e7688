package main

import (
	"fmt"

	"cmdtutor/internal/answerkey"
	"cmdtutor/internal/codes"
	"cmdtutor/internal/cohort"
	"cmdtutor/internal/tutorerr"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	codeKey     string
	codeStudent string
	codeGroup   int
	codeCount   int
	codeFinal   bool
	codeMax     int

	groupCount int
)

// codeCmd derives progress codes offline
var codeCmd = &cobra.Command{
	Use:   "code",
	Short: "Derive the progress code a learner would see",
	Long: `Derives codes without a session, from the assignment key, the group
and the exercise count. The group comes from --group or is resolved
from --student.

Examples:
  tutor code --key Fall2024 --student jane@university.edu
  tutor code --key Fall2024 --group 3 --count 10
  tutor code --key Fall2024 --group 3 --count 12 --final`,
	RunE: runCode,
}

// groupCmd shows group assignments
var groupCmd = &cobra.Command{
	Use:   "group [student-id...]",
	Short: "Show the group each student is assigned to",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runGroup,
}

func runCode(cmd *cobra.Command, args []string) error {
	c, err := loadConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	key := c.AssignmentKey(codeKey)

	group := codeGroup
	switch {
	case codeStudent != "":
		group = cohort.Group(codeStudent, c.Tutor.GroupCount)
		fmt.Fprintf(out, "Student '%s' is assigned to: %s (Group %d)\n", codeStudent, cohort.GroupLabel(group), group)
	case group < 1 || group > c.Tutor.GroupCount:
		return tutorerr.New("cli", "Code", tutorerr.ErrInputValidation,
			fmt.Sprintf("--group must be between 1 and %d, or use --student", c.Tutor.GroupCount))
	}
	logger.Debug("Deriving codes", zap.String("key", key), zap.Int("group", group))

	if codeCount > 0 {
		kind := codes.Checkpoint
		if codeFinal {
			kind = codes.Final
		}
		fmt.Fprintf(out, "%s\n", codes.Derive(key, group, codeCount, kind))
		return nil
	}
	if codeFinal {
		return tutorerr.New("cli", "Code", tutorerr.ErrInputValidation, "--final needs --count")
	}

	o := answerkey.Options{AssignmentKey: key, Max: codeMax, Interval: c.Tutor.CheckpointInterval, GroupCount: c.Tutor.GroupCount}
	if err := o.Validate(); err != nil {
		return err
	}
	fmt.Fprintf(out, "Using assignment key: '%s'\n", o.AssignmentKey)
	for _, e := range answerkey.Schedule(o.AssignmentKey, group, o.Interval, o.Max) {
		fmt.Fprintf(out, "  After %d exercises: %s (%s)\n", e.Count, e.Code, e.Kind.Label())
	}
	return nil
}

func runGroup(cmd *cobra.Command, args []string) error {
	c, err := loadConfig()
	if err != nil {
		return err
	}
	n := groupsFlag(c)
	if err := cohort.ValidateGroupCount(n); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, id := range args {
		g := cohort.Group(id, n)
		fmt.Fprintf(out, "%s\t%s\t%d\n", id, cohort.GroupLabel(g), g)
	}
	return nil
}
