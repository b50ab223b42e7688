// Package admin implements the instructor commands accepted at the learner
// prompt: loading a roster, showing it, changing the group count and
// generating answer keys. Failures are reported to the instructor and never
// end the session.
package admin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"cmdtutor/internal/answerkey"
	"cmdtutor/internal/cohort"
	"cmdtutor/internal/logging"
	"cmdtutor/internal/tutorerr"
)

// Prefix marks an explicit admin command, e.g. "admin:show_students".
const Prefix = "admin:"

// RosterCSVName is the grouping file written after load_students.
const RosterCSVName = "student_groups.csv"

const rule = "========================================"

var commandNames = map[string]bool{
	"load_students": true,
	"show_students": true,
	"generate_keys": true,
	"set_groups":    true,
	"admin_help":    true,
}

// Parse splits input into command fields when it is an admin command:
// either prefixed with Prefix or starting with a known command name.
func Parse(input string) ([]string, bool) {
	s := strings.TrimSpace(input)
	if rest, ok := strings.CutPrefix(s, Prefix); ok {
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			return []string{"admin_help"}, true
		}
		return fields, true
	}
	fields := strings.Fields(s)
	if len(fields) == 0 || !commandNames[fields[0]] {
		return nil, false
	}
	return fields, true
}

// Options configures a Console.
type Options struct {
	// OutputDir receives answer keys and the grouping CSV.
	OutputDir string
	// Interval is the checkpoint interval used for answer keys.
	Interval int
	// DefaultMax is the exercise count when generate_keys omits it.
	DefaultMax int
}

// Console executes admin commands against a shared assigner.
// Commands and background reloads are serialized by mu; every write to out
// holds outMu, which callers sharing out take through OutputLock.
type Console struct {
	mu       sync.Mutex
	outMu    sync.Mutex
	assigner *cohort.Assigner
	out      io.Writer
	opts     Options
	audit    *logging.AuditLogger
}

// NewConsole creates a console writing to out.
func NewConsole(assigner *cohort.Assigner, out io.Writer, opts Options) *Console {
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	if opts.Interval < 1 {
		opts.Interval = 5
	}
	if opts.DefaultMax < 1 {
		opts.DefaultMax = answerkey.DefaultMax
	}
	return &Console{
		assigner: assigner,
		out:      out,
		opts:     opts,
		audit:    logging.Audit(),
	}
}

// SetAudit routes admin events to a session-scoped audit logger.
func (c *Console) SetAudit(a *logging.AuditLogger) {
	if a == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.audit = a
}

// OutputLock returns the lock held around each console write. Anything else
// writing to the console's writer must hold it for each write, since the
// roster watcher reports reloads from its own goroutine.
func (c *Console) OutputLock() sync.Locker { return &c.outMu }

// Assigner returns the assigner the console manages.
func (c *Console) Assigner() *cohort.Assigner { return c.assigner }

// Handle runs input if it is an admin command and reports whether it was.
func (c *Console) Handle(ctx context.Context, input string) bool {
	fields, ok := Parse(input)
	if !ok {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	name := fields[0]
	var err error
	switch name {
	case "load_students":
		err = c.loadStudents(fields[1:])
	case "show_students":
		c.showStudents()
	case "generate_keys":
		err = c.generateKeys(ctx, fields[1:])
	case "set_groups":
		err = c.setGroups(fields[1:])
	case "admin_help":
		c.help()
	default:
		err = fmt.Errorf("unknown admin command %q", name)
		c.printf("❌  Unknown admin command '%s'. Type admin_help for the list.\n", name)
	}

	errMsg := ""
	if err != nil {
		errMsg = err.Error()
		logging.AdminWarn("%s failed: %v", name, err)
	} else {
		logging.Admin("%s completed", name)
	}
	c.audit.AdminCommand(name, err == nil, errMsg)
	return true
}

func (c *Console) printf(format string, args ...interface{}) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

var errUsage = errors.New("usage")

func (c *Console) loadStudents(args []string) error {
	if len(args) < 1 {
		c.printf("Usage: load_students <filename>\n")
		return errUsage
	}
	path := args[0]

	r, err := c.load(path)
	if err != nil {
		c.reportLoadError(path, err)
		return err
	}
	c.printf("✅  Read %d students from %s\n", r.Len(), path)

	if !isCSV(path) {
		out := filepath.Join(c.opts.OutputDir, RosterCSVName)
		var buf bytes.Buffer
		if err := answerkey.WriteRosterCSV(&buf, r); err != nil {
			return err
		}
		if err := os.WriteFile(out, buf.Bytes(), 0644); err != nil {
			c.printf("❌  Error writing %s: %v\n", out, err)
			return err
		}
		c.printf("📁  Student groups CSV generated: %s\n", out)
	}
	c.printf("🔧 Used %d groups\n", r.GroupCount)
	c.distribution(r)
	c.printf("\n✅  Students loaded into memory for answer key generation\n")
	return nil
}

// load reads a plain student list, or a grouping CSV whose columns are kept.
func (c *Console) load(path string) (*cohort.Roster, error) {
	if !isCSV(path) {
		return c.assigner.LoadRoster(path)
	}
	r, err := answerkey.LoadRosterCSV(path, c.assigner.GroupCount())
	if err != nil {
		return nil, err
	}
	if r.Len() == 0 {
		return nil, tutorerr.New("admin", "LoadRoster", tutorerr.ErrRosterLoad,
			fmt.Sprintf("%s contains no students", path))
	}
	if err := c.assigner.Replace(r); err != nil {
		return nil, err
	}
	return r, nil
}

func isCSV(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".csv")
}

func (c *Console) reportLoadError(path string, err error) {
	var te *tutorerr.Error
	switch {
	case errors.Is(err, os.ErrNotExist):
		c.printf("❌  Error: File '%s' not found!\n", path)
	case errors.As(err, &te):
		c.printf("❌  Error reading file: %s\n", te.Message)
	default:
		c.printf("❌  Error reading file: %v\n", err)
	}
}

func (c *Console) distribution(r *cohort.Roster) {
	c.printf("\n📊  GROUP DISTRIBUTION:\n")
	c.printf("%s\n", strings.Repeat("-", 40))
	for g := 1; g <= r.GroupCount; g++ {
		c.printf("%s: %d students\n", cohort.GroupLabel(g), len(r.Students(g)))
	}
	c.printf("Total: %d students\n", r.Len())
}

func (c *Console) showStudents() {
	r := c.assigner.Roster()
	if r.Len() == 0 {
		c.printf("❌  No students currently loaded.\n")
		return
	}

	c.printf("\n👥 LOADED STUDENTS:\n%s\n", rule)
	for g := 1; g <= r.GroupCount; g++ {
		students := r.Students(g)
		c.printf("\n%s (%d students):\n", cohort.GroupLabel(g), len(students))
		for _, s := range students {
			c.printf("  • %s\n", s)
		}
	}
	c.printf("\nTotal: %d students loaded\n%s\n", r.Len(), rule)
}

func (c *Console) generateKeys(ctx context.Context, args []string) error {
	if len(args) < 1 {
		c.printf("Usage: generate_keys <assignment_key> [max_exercises]\n")
		return errUsage
	}
	r := c.assigner.Roster()
	if r.Len() == 0 {
		c.printf("❌  No students loaded! Use 'load_students' command first.\n")
		return tutorerr.New("admin", "GenerateKeys", tutorerr.ErrRosterLoad, "no students loaded")
	}

	key := args[0]
	maxEx := c.opts.DefaultMax
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 1 {
			c.printf("❌  Please enter a valid number of exercises\n")
			return tutorerr.New("admin", "GenerateKeys", tutorerr.ErrInputValidation,
				fmt.Sprintf("invalid max exercises %q", args[1]))
		}
		maxEx = n
	}

	rep, err := answerkey.Generate(ctx, c.opts.OutputDir, answerkey.Options{
		AssignmentKey: key,
		Max:           maxEx,
		Interval:      c.opts.Interval,
		GroupCount:    r.GroupCount,
	}, r)
	if err != nil {
		c.printf("❌  Error generating answer keys: %v\n", err)
		return err
	}

	c.printf("📁  Group answer key generated: %s\n", rep.GroupKey)
	c.printf("📁  Master answer key generated: %s\n", rep.MasterKey)
	c.printf("✅  Generated %d individual answer key files in '%s' directory\n", len(rep.IndividualFiles), rep.IndividualDir)
	c.printf("🔑 Assignment key used: '%s'\n", key)
	return nil
}

func (c *Console) setGroups(args []string) error {
	if len(args) < 1 {
		c.printf("Usage: set_groups <number>\n")
		return errUsage
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		c.printf("❌  Please enter a valid number\n")
		return tutorerr.New("admin", "SetGroups", tutorerr.ErrInputValidation,
			fmt.Sprintf("invalid group count %q", args[0]))
	}

	hadStudents := c.assigner.Roster().Len() > 0
	if err := c.assigner.Rebuild(n); err != nil {
		c.printf("❌  Number of groups must be between %d and %d\n", cohort.MinGroups, cohort.MaxGroups)
		return err
	}
	c.printf("✅  Set to %d groups\n", n)
	if hadStudents {
		c.printf("⚠️  Cleared previously loaded students due to group structure change\n")
	}
	return nil
}

func (c *Console) help() {
	c.printf("\n🔧 ADMINISTRATIVE COMMANDS:\n%s\n", rule)
	c.printf("load_students <file>     - Load students from file and generate groups\n")
	c.printf("show_students           - Display currently loaded students\n")
	c.printf("generate_keys <key> [n] - Generate answer keys for loaded students\n")
	c.printf("set_groups <number>     - Set number of groups (%d-%d)\n", cohort.MinGroups, cohort.MaxGroups)
	c.printf("admin_help              - Show this help\n")
	c.printf("Prefix any command with '%s' if it clashes with a shell command.\n", Prefix)
	c.printf("%s\n", rule)
}

// Reload re-reads the roster at path, reporting the outcome. It is what
// the watcher calls when the file changes.
func (c *Console) Reload(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, err := c.load(path)
	if err != nil {
		c.audit.RosterReload(path, 0, err.Error())
		c.printf("\n⚠️  Roster %s changed but could not be reloaded; keeping the previous roster.\n", path)
		return err
	}
	c.audit.RosterReload(path, r.Len(), "")
	c.printf("\n🔄 Roster reloaded from %s: %d students\n", path, r.Len())
	return nil
}
