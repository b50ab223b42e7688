package answerkey

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"cmdtutor/internal/cohort"
	"cmdtutor/internal/tutorerr"
)

// WriteRosterCSV writes the grouping with one column per group, each
// followed by an empty spacer column. Every group from 1 to GroupCount
// gets a column, empty or not.
func WriteRosterCSV(w io.Writer, r *cohort.Roster) error {
	if r == nil {
		return tutorerr.New("answerkey", "WriteRosterCSV", tutorerr.ErrRosterLoad, "no roster loaded")
	}

	columns := make([][]string, r.GroupCount)
	header := make([]string, 0, 2*r.GroupCount)
	depth := 0
	for g := 1; g <= r.GroupCount; g++ {
		columns[g-1] = r.Students(g)
		depth = max(depth, len(columns[g-1]))
		header = append(header, cohort.GroupLabel(g), "")
	}

	rows := [][]string{header}
	for i := 0; i < depth; i++ {
		row := make([]string, 0, len(header))
		for _, col := range columns {
			cell := ""
			if i < len(col) {
				cell = col[i]
			}
			row = append(row, cell, "")
		}
		rows = append(rows, row)
	}
	return writeAll(csv.NewWriter(w), rows)
}

// ReadRosterCSV reads a grouping written by WriteRosterCSV, keeping each
// student in the group of its column. Columns whose header is not a group
// label are ignored.
func ReadRosterCSV(r io.Reader, groupCount int) (*cohort.Roster, error) {
	if err := cohort.ValidateGroupCount(groupCount); err != nil {
		return nil, err
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, tutorerr.New("answerkey", "ReadRosterCSV", tutorerr.ErrRosterLoad, "roster CSV is empty")
	}
	if err != nil {
		return nil, tutorerr.Wrap("answerkey", "ReadRosterCSV", tutorerr.ErrRosterLoad, "cannot read header", err)
	}

	groupAt := make(map[int]int)
	for i, name := range header {
		g, ok := cohort.ParseGroupLabel(name)
		if !ok {
			continue
		}
		if g > groupCount {
			return nil, tutorerr.New("answerkey", "ReadRosterCSV", tutorerr.ErrRosterLoad,
				fmt.Sprintf("column %q exceeds %d groups", name, groupCount))
		}
		groupAt[i] = g
	}
	if len(groupAt) == 0 {
		return nil, tutorerr.New("answerkey", "ReadRosterCSV", tutorerr.ErrRosterLoad, "no group columns in header")
	}

	var members []cohort.Member
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, tutorerr.Wrap("answerkey", "ReadRosterCSV", tutorerr.ErrRosterLoad, "cannot read row", err)
		}
		for i, cell := range row {
			g, ok := groupAt[i]
			if !ok {
				continue
			}
			if id := strings.TrimSpace(cell); id != "" {
				members = append(members, cohort.Member{StudentID: id, Group: g})
			}
		}
	}
	return cohort.NewRosterFromMembers(groupCount, members), nil
}

// LoadRosterCSV opens path and reads it with ReadRosterCSV.
func LoadRosterCSV(path string, groupCount int) (*cohort.Roster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, tutorerr.Wrap("answerkey", "LoadRosterCSV", tutorerr.ErrRosterLoad,
			fmt.Sprintf("cannot open %s", path), err)
	}
	defer f.Close()
	return ReadRosterCSV(f, groupCount)
}
