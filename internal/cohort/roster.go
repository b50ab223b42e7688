package cohort

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"cmdtutor/internal/tutorerr"
)

// Member is one student and the group they belong to.
type Member struct {
	StudentID string
	Group     int
}

// Roster is an immutable grouping of students. Build a new one instead of
// mutating an existing snapshot.
type Roster struct {
	GroupCount int
	Members    []Member // input order
	byGroup    map[int][]string
}

// NewRoster groups students by hash. Blank IDs are dropped.
func NewRoster(groupCount int, students []string) *Roster {
	members := make([]Member, 0, len(students))
	for _, s := range students {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		members = append(members, Member{StudentID: s, Group: Group(s, groupCount)})
	}
	return NewRosterFromMembers(groupCount, members)
}

// NewRosterFromMembers keeps the given group of each member as-is.
func NewRosterFromMembers(groupCount int, members []Member) *Roster {
	r := &Roster{
		GroupCount: groupCount,
		Members:    append([]Member(nil), members...),
		byGroup:    make(map[int][]string, groupCount),
	}
	for _, m := range r.Members {
		r.byGroup[m.Group] = append(r.byGroup[m.Group], m.StudentID)
	}
	return r
}

// Len returns the number of students.
func (r *Roster) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Members)
}

// Students returns the students in group g, in input order.
func (r *Roster) Students(g int) []string {
	return append([]string(nil), r.byGroup[g]...)
}

// Groups returns the non-empty group numbers in ascending order.
func (r *Roster) Groups() []int {
	var out []int
	for g := 1; g <= r.GroupCount; g++ {
		if len(r.byGroup[g]) > 0 {
			out = append(out, g)
		}
	}
	return out
}

// Lookup returns the group recorded for studentID.
func (r *Roster) Lookup(studentID string) (int, bool) {
	for _, m := range r.Members {
		if m.StudentID == studentID {
			return m.Group, true
		}
	}
	return 0, false
}

// ReadStudentList reads one student ID per non-blank line.
func ReadStudentList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, tutorerr.Wrap("cohort", "LoadRoster", tutorerr.ErrRosterLoad,
			fmt.Sprintf("cannot open %s", path), err)
	}
	defer f.Close()

	var students []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			students = append(students, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, tutorerr.Wrap("cohort", "LoadRoster", tutorerr.ErrRosterLoad,
			fmt.Sprintf("cannot read %s", path), err)
	}
	if len(students) == 0 {
		return nil, tutorerr.New("cohort", "LoadRoster", tutorerr.ErrRosterLoad,
			fmt.Sprintf("%s contains no students", path))
	}
	return students, nil
}
