// Package cohort assigns students to groups with a fixed, seed-free hash
// and keeps the current roster snapshot.
package cohort

import (
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"sync/atomic"

	"cmdtutor/internal/logging"
	"cmdtutor/internal/tutorerr"
)

// HashFNV1a64 identifies the group hash. Changing the algorithm must change
// this value, since every issued answer key depends on it.
const HashFNV1a64 = "fnv1a64/v1"

const (
	MinGroups = 2
	MaxGroups = 26
)

// Group returns the group in [1, groupCount] for studentID.
// The result depends only on the bytes of studentID and groupCount.
func Group(studentID string, groupCount int) int {
	h := fnv.New64a()
	h.Write([]byte(studentID))
	return int(h.Sum64()%uint64(groupCount)) + 1
}

// GroupLabel returns "Group A" for 1 through "Group Z" for 26.
func GroupLabel(group int) string {
	if group < 1 || group > MaxGroups {
		return fmt.Sprintf("Group %d", group)
	}
	return "Group " + string(rune('A'+group-1))
}

// ParseGroupLabel is the inverse of GroupLabel.
func ParseGroupLabel(label string) (int, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(label), "Group ")
	if !ok || len(rest) != 1 {
		return 0, false
	}
	c := rest[0]
	if c < 'A' || c > 'Z' {
		return 0, false
	}
	return int(c-'A') + 1, true
}

// ValidateGroupCount checks n against [MinGroups, MaxGroups].
func ValidateGroupCount(n int) error {
	if n < MinGroups || n > MaxGroups {
		return tutorerr.New("cohort", "ValidateGroupCount", tutorerr.ErrInvalidConfig,
			fmt.Sprintf("number of groups must be between %d and %d, got %d", MinGroups, MaxGroups, n))
	}
	return nil
}

// Assigner maps students to groups and owns the roster snapshot.
// Readers never observe a partially rebuilt roster.
type Assigner struct {
	mu         sync.Mutex // serializes writers
	groupCount atomic.Int64
	roster     atomic.Pointer[Roster]
}

// NewAssigner creates an assigner with an empty roster.
func NewAssigner(groupCount int) (*Assigner, error) {
	if err := ValidateGroupCount(groupCount); err != nil {
		return nil, err
	}
	a := &Assigner{}
	a.groupCount.Store(int64(groupCount))
	a.roster.Store(NewRoster(groupCount, nil))
	return a, nil
}

// GroupCount returns the current modulus.
func (a *Assigner) GroupCount() int {
	return int(a.groupCount.Load())
}

// HashVersion returns the identifier of the hash in use.
func (a *Assigner) HashVersion() string {
	return HashFNV1a64
}

// Assign returns the group in [1, GroupCount()] for studentID.
func (a *Assigner) Assign(studentID string) int {
	n := a.GroupCount()
	g := Group(studentID, n)
	logging.CohortDebug("Assigned %q to group %d of %d", studentID, g, n)
	return g
}

// Roster returns the current snapshot. It is never nil.
func (a *Assigner) Roster() *Roster {
	return a.roster.Load()
}

// Rebuild changes the group count. Any loaded roster is discarded, matching
// the rule that a changed group structure invalidates previous groupings.
func (a *Assigner) Rebuild(groupCount int) error {
	if err := ValidateGroupCount(groupCount); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	prev := a.roster.Load()
	a.groupCount.Store(int64(groupCount))
	a.roster.Store(NewRoster(groupCount, nil))

	if prev.Len() > 0 {
		logging.CohortWarn("Cleared %d loaded students after group count change to %d", prev.Len(), groupCount)
	}
	logging.Cohort("Rebuilt assigner with %d groups", groupCount)
	return nil
}

// LoadRoster reads one student per non-blank line from path and publishes
// a fresh snapshot. On error the previous snapshot is kept.
func (a *Assigner) LoadRoster(path string) (*Roster, error) {
	students, err := ReadStudentList(path)
	if err != nil {
		logging.CohortWarn("Roster load failed for %s: %v", path, err)
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	r := NewRoster(a.GroupCount(), students)
	a.roster.Store(r)
	logging.Cohort("Loaded %d students from %s into %d groups", r.Len(), path, r.GroupCount)
	return r, nil
}

// Replace publishes an externally built roster, e.g. one read back from a
// groups CSV. Its group count must match the assigner's.
func (a *Assigner) Replace(r *Roster) error {
	if r == nil {
		return tutorerr.New("cohort", "Replace", tutorerr.ErrRosterLoad, "nil roster")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if r.GroupCount != a.GroupCount() {
		return tutorerr.New("cohort", "Replace", tutorerr.ErrRosterLoad,
			fmt.Sprintf("roster has %d groups, assigner has %d", r.GroupCount, a.GroupCount()))
	}
	a.roster.Store(r)
	return nil
}
