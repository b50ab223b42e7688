// Package answerkey writes the instructor-side CSV files: the per-group
// answer key, one key per student, a master key, and the roster grouping.
// Every code comes from codes.Derive, so the files agree with what a
// learner sees in a live session.
package answerkey

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"cmdtutor/internal/codes"
	"cmdtutor/internal/cohort"
	"cmdtutor/internal/tutorerr"
)

// DefaultMax is the number of exercises assumed when none is given.
const DefaultMax = 20

// Options describes one assignment.
type Options struct {
	AssignmentKey string
	Max           int // exercises in the run; the last code is FINAL
	Interval      int // exercises between checkpoint codes
	GroupCount    int
}

// Validate checks the options and fills defaults.
func (o *Options) Validate() error {
	if o.AssignmentKey == "" {
		o.AssignmentKey = codes.DefaultKey
	}
	if o.Max == 0 {
		o.Max = DefaultMax
	}
	if o.Max < 1 {
		return tutorerr.New("answerkey", "Validate", tutorerr.ErrInvalidConfig,
			fmt.Sprintf("max exercises must be positive, got %d", o.Max))
	}
	if o.Interval < 1 {
		return tutorerr.New("answerkey", "Validate", tutorerr.ErrInvalidConfig,
			fmt.Sprintf("checkpoint interval must be positive, got %d", o.Interval))
	}
	return cohort.ValidateGroupCount(o.GroupCount)
}

// Entry is one code in a group's schedule.
type Entry struct {
	Count int
	Code  string
	Kind  codes.Kind
}

// Schedule returns every code a learner in group can be shown during a run
// of max exercises, in the order they are shown: a CHECKPOINT at each
// multiple of interval, then the FINAL at max. When max is a multiple of
// interval both a CHECKPOINT and the FINAL are issued at max.
func Schedule(assignmentKey string, group, interval, max int) []Entry {
	if max < 1 {
		return nil
	}
	counts := codes.Checkpoints(interval, max)
	out := make([]Entry, 0, len(counts)+1)
	for _, c := range counts {
		out = append(out, entry(assignmentKey, group, c, codes.Checkpoint))
	}
	return append(out, entry(assignmentKey, group, max, codes.Final))
}

func entry(assignmentKey string, group, count int, kind codes.Kind) Entry {
	return Entry{
		Count: count,
		Code:  codes.Derive(assignmentKey, group, count, kind),
		Kind:  kind,
	}
}

// Column is the CSV header naming e, e.g. Checkpoint_10 or Final_10.
func (e Entry) Column() string {
	if e.Kind == codes.Final {
		return "Final_" + strconv.Itoa(e.Count)
	}
	return "Checkpoint_" + strconv.Itoa(e.Count)
}

func scheduleHeader(o Options, first ...string) []string {
	header := append([]string(nil), first...)
	// Column names do not depend on the group.
	for _, e := range Schedule(o.AssignmentKey, 1, o.Interval, o.Max) {
		header = append(header, e.Column())
	}
	return header
}

func scheduleCodes(o Options, group int) []string {
	var out []string
	for _, e := range Schedule(o.AssignmentKey, group, o.Interval, o.Max) {
		out = append(out, e.Code)
	}
	return out
}

// WriteGroupKey writes the per-group answer key. groups lists the group
// numbers to include; nil means all of 1..GroupCount.
func WriteGroupKey(w io.Writer, o Options, groups []int) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if groups == nil {
		for g := 1; g <= o.GroupCount; g++ {
			groups = append(groups, g)
		}
	}

	cw := csv.NewWriter(w)
	rows := [][]string{
		{"Answer Key"},
		{"Assignment Key", o.AssignmentKey},
		{"Max Exercises", strconv.Itoa(o.Max)},
		{"Number of Groups", strconv.Itoa(o.GroupCount)},
		{},
		scheduleHeader(o, "Group"),
	}
	for _, g := range groups {
		rows = append(rows, append([]string{cohort.GroupLabel(g)}, scheduleCodes(o, g)...))
	}
	return writeAll(cw, rows)
}

// WriteIndividualKey writes one student's answer key.
func WriteIndividualKey(w io.Writer, o Options, studentID string, group int) error {
	if err := o.Validate(); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	rows := [][]string{
		{"Student Answer Key"},
		{"Student ID", studentID},
		{"Assigned Group", cohort.GroupLabel(group)},
		{"Group Number", strconv.Itoa(group)},
		{"Assignment Key", o.AssignmentKey},
		{},
		{"Exercise Count", "Progress Code", "Code Type"},
	}
	for _, e := range Schedule(o.AssignmentKey, group, o.Interval, o.Max) {
		rows = append(rows, []string{strconv.Itoa(e.Count), e.Code, e.Kind.Label()})
	}
	return writeAll(cw, rows)
}

// WriteMasterKey writes one row per student with all of their codes.
func WriteMasterKey(w io.Writer, o Options, members []cohort.Member) error {
	if err := o.Validate(); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	rows := [][]string{
		{"Master Answer Key"},
		{"Assignment Key", o.AssignmentKey},
		{"Max Exercises", strconv.Itoa(o.Max)},
		{},
		scheduleHeader(o, "Student ID", "Group"),
	}
	byGroup := make(map[int][]string)
	for _, m := range members {
		groupCodes, ok := byGroup[m.Group]
		if !ok {
			groupCodes = scheduleCodes(o, m.Group)
			byGroup[m.Group] = groupCodes
		}
		rows = append(rows, append([]string{m.StudentID, cohort.GroupLabel(m.Group)}, groupCodes...))
	}
	return writeAll(cw, rows)
}

func writeAll(cw *csv.Writer, rows [][]string) error {
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}

var fileNameReplacer = strings.NewReplacer(
	"@", "_at_",
	".", "_",
	"/", "_",
	`\`, "_",
)

// SafeFileName turns a student ID into a file name stem:
// "jane.doe@uni.edu" becomes "jane_doe_at_uni_edu".
func SafeFileName(studentID string) string {
	return fileNameReplacer.Replace(studentID)
}

var keyReplacer = strings.NewReplacer("/", "_", `\`, "_")

// GroupKeyFile is the group answer key file name for assignmentKey.
func GroupKeyFile(assignmentKey string) string {
	return "answer_key_" + keyReplacer.Replace(assignmentKey) + ".csv"
}

// IndividualDir is the directory holding per-student keys.
func IndividualDir(assignmentKey string) string {
	return "individual_keys_" + keyReplacer.Replace(assignmentKey)
}

// MasterKeyFile is the master answer key file name for assignmentKey.
func MasterKeyFile(assignmentKey string) string {
	return "master_answer_key_" + keyReplacer.Replace(assignmentKey) + ".csv"
}
