package answerkey

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"cmdtutor/internal/cohort"
	"cmdtutor/internal/logging"
	"cmdtutor/internal/tutorerr"

	"golang.org/x/sync/errgroup"
)

// maxParallelWrites bounds concurrent individual key writes.
const maxParallelWrites = 8

// Report lists what Generate wrote. Paths are absolute.
type Report struct {
	GroupKey        string
	MasterKey       string
	IndividualDir   string
	IndividualFiles []string // in roster order
	Groups          []int    // groups that appear in the group key
}

// Generate writes the group key, the master key and one key per student
// into dir for the students of roster. Only groups that have students are
// listed in the group key.
func Generate(ctx context.Context, dir string, o Options, roster *cohort.Roster) (*Report, error) {
	timer := logging.StartTimer(logging.CategoryAnswerKey, "Generate")
	defer timer.Stop()

	if err := o.Validate(); err != nil {
		return nil, err
	}
	if roster.Len() == 0 {
		return nil, tutorerr.New("answerkey", "Generate", tutorerr.ErrRosterLoad,
			"no students loaded")
	}
	if roster.GroupCount != o.GroupCount {
		return nil, tutorerr.New("answerkey", "Generate", tutorerr.ErrInvalidConfig,
			fmt.Sprintf("roster has %d groups, options have %d", roster.GroupCount, o.GroupCount))
	}

	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory: %w", err)
	}
	rep := &Report{
		GroupKey:      filepath.Join(dir, GroupKeyFile(o.AssignmentKey)),
		MasterKey:     filepath.Join(dir, MasterKeyFile(o.AssignmentKey)),
		IndividualDir: filepath.Join(dir, IndividualDir(o.AssignmentKey)),
		Groups:        roster.Groups(),
	}

	var buf bytes.Buffer
	if err := WriteGroupKey(&buf, o, rep.Groups); err != nil {
		return nil, err
	}
	if err := writeFile(rep.GroupKey, buf.Bytes()); err != nil {
		return nil, err
	}
	logging.AnswerKey("Group answer key written: %s", rep.GroupKey)

	buf.Reset()
	if err := WriteMasterKey(&buf, o, roster.Members); err != nil {
		return nil, err
	}
	if err := writeFile(rep.MasterKey, buf.Bytes()); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(rep.IndividualDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", rep.IndividualDir, err)
	}
	rep.IndividualFiles = individualPaths(rep.IndividualDir, roster.Members)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(maxParallelWrites)
	for i, m := range roster.Members {
		path := rep.IndividualFiles[i]
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			var b bytes.Buffer
			if err := WriteIndividualKey(&b, o, m.StudentID, m.Group); err != nil {
				return err
			}
			if err := writeFile(path, b.Bytes()); err != nil {
				return err
			}
			logging.AnswerKeyDebug("Wrote %s (group %d)", path, m.Group)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	logging.AnswerKey("Generated %d individual keys in %s (key=%s, max=%d)",
		len(rep.IndividualFiles), rep.IndividualDir, o.AssignmentKey, o.Max)
	return rep, nil
}

// individualPaths maps each member to its key file. IDs that sanitize to
// the same stem get a numeric suffix instead of overwriting each other.
func individualPaths(dir string, members []cohort.Member) []string {
	used := make(map[string]int, len(members))
	out := make([]string, len(members))
	for i, m := range members {
		stem := SafeFileName(m.StudentID)
		used[stem]++
		if n := used[stem]; n > 1 {
			logging.Get(logging.CategoryAnswerKey).Warn("Duplicate key file name for %q, using suffix %d", m.StudentID, n)
			stem += "_" + strconv.Itoa(n)
		}
		out[i] = filepath.Join(dir, stem+"_answer_key.csv")
	}
	return out
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
