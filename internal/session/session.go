// Package session runs one learner through the tutor over a line-based
// prompt: identification, the lesson menu, exercises and code display.
//
// A session owns its tracker and verifier. Nothing is shared with other
// sessions except the assigner and the admin console, which are safe for
// concurrent use.
package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"cmdtutor/internal/admin"
	"cmdtutor/internal/codes"
	"cmdtutor/internal/cohort"
	"cmdtutor/internal/config"
	"cmdtutor/internal/lesson"
	"cmdtutor/internal/logging"
	"cmdtutor/internal/progress"
	"cmdtutor/internal/shell"
	"cmdtutor/internal/tutorerr"
	"cmdtutor/internal/verify"

	"github.com/google/uuid"
)

const (
	wideRule   = "============================================================"
	rule       = "========================================"
	shortRule  = "=============================="
	allLessons = "Complete Tutorial"
)

// errQuit ends the session at the learner's request.
var errQuit = errors.New("learner quit")

// Options configures a Session.
type Options struct {
	Catalog  *lesson.Catalog
	Assigner *cohort.Assigner
	Runner   shell.Runner

	// Console handles admin commands typed at any prompt. Nil disables them.
	Console *admin.Console

	// WorkDir is where learner commands run.
	WorkDir string
	// Timeout bounds each learner command; zero uses the runner default.
	Timeout time.Duration
	// Interval is the checkpoint interval.
	Interval int
	// PrepareWorkspace seeds the practice files and removes files left by
	// earlier runs before every run.
	PrepareWorkspace bool

	UI config.UIConfig
}

// Session is one learner's pass through the tutor.
type Session struct {
	id      string
	in      *bufio.Scanner
	out     io.Writer
	outLock sync.Locker // shared with the admin console; nil without one
	opts    Options

	styles   Styles
	markdown *Markdown
	verifier *verify.Verifier
	tracker  *progress.Tracker
	audit    *logging.AuditLogger

	studentName string
	started     time.Time

	// current run
	runTitle    string
	runTotal    int
	lessonIndex int
}

// New creates a session reading learner input from in and writing to out.
func New(in io.Reader, out io.Writer, opts Options) (*Session, error) {
	if opts.Catalog == nil || opts.Catalog.Len() == 0 {
		return nil, tutorerr.New("session", "New", tutorerr.ErrInvalidConfig, "a lesson catalog is required")
	}
	if opts.Assigner == nil {
		return nil, tutorerr.New("session", "New", tutorerr.ErrInvalidConfig, "a group assigner is required")
	}
	if opts.Runner == nil {
		return nil, tutorerr.New("session", "New", tutorerr.ErrInvalidConfig, "a shell runner is required")
	}
	if opts.WorkDir == "" {
		opts.WorkDir = "."
	}

	tracker, err := progress.NewTracker(opts.Assigner, opts.Interval)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 4096), 64*1024)

	s := &Session{
		id:       id,
		in:       scanner,
		out:      out,
		opts:     opts,
		styles:   NewStyles(out, ThemeFor(opts.UI)),
		markdown: NewMarkdown(out, opts.UI),
		verifier: verify.New(opts.Runner, verify.Options{
			WorkDir:   opts.WorkDir,
			Timeout:   opts.Timeout,
			SessionID: id,
		}),
		tracker: tracker,
		audit:   logging.Audit(),
	}
	if opts.Console != nil {
		s.outLock = opts.Console.OutputLock()
	}
	return s, nil
}

// ID returns the session identifier used to correlate log entries.
func (s *Session) ID() string { return s.id }

// Record returns the learner's progress in the current run.
func (s *Session) Record() progress.Record { return s.tracker.Record() }

// Run drives the session until the learner quits or input ends. Closed
// input is a normal end, not an error.
func (s *Session) Run(ctx context.Context) error {
	s.started = time.Now()
	logging.Session("Session %s started", s.id)

	err := s.run(ctx)

	reason := "quit"
	switch {
	case err == nil, errors.Is(err, errQuit):
		err = nil
	case errors.Is(err, io.EOF):
		reason = "input closed"
		err = nil
	default:
		reason = "error"
	}
	s.audit.SessionEnd(s.tracker.Counter(), reason)
	logging.Session("Session %s ended (%s) after %s", s.id, reason, formatDuration(time.Since(s.started)))
	return err
}

func (s *Session) run(ctx context.Context) error {
	if err := s.identify(); err != nil {
		return err
	}
	s.welcome()

	for {
		choice, err := s.menu(ctx)
		if err != nil {
			return err
		}
		switch choice {
		case "quit":
			s.goodbye()
			return nil
		case "all":
			if err := s.runAll(ctx); err != nil {
				return err
			}
			s.goodbye()
			return nil
		}

		n, _ := strconv.Atoi(choice)
		if err := s.runSingle(ctx, n-1); err != nil {
			return err
		}
		s.printf("\n🔄  Would you like to do another lesson?\n")
		again, err := s.readLine("Enter 'y' for yes, or anything else to quit: ")
		if err != nil {
			return err
		}
		if strings.ToLower(again) != "y" {
			s.goodbye()
			return nil
		}
	}
}

// identify asks for the student ID until one is given and resolves the group.
func (s *Session) identify() error {
	s.printf("%s\n%s\n", s.styles.Title.Render("🆔   STUDENT IDENTIFICATION"), rule)
	s.printf("Please enter your student information:\n")

	var studentID string
	for {
		line, err := s.readLine("Student ID (or email): ")
		if err != nil {
			return err
		}
		if line != "" {
			studentID = line
			break
		}
		s.printf("%s\n", s.styles.Error.Render("Please enter a valid student ID."))
	}

	name, err := s.readLine("\nYour name (optional): ")
	if err != nil {
		return err
	}
	s.studentName = name

	if err := s.tracker.Begin(studentID, ""); err != nil {
		return err
	}
	s.audit = logging.AuditWithSession(s.id, studentID)
	s.tracker.SetAudit(s.audit)
	if r, ok := s.opts.Runner.(interface{ SetAuditCallback(func(shell.AuditEvent)) }); ok {
		r.SetAuditCallback(shell.AuditToLog(s.audit))
	}
	if s.opts.Console != nil {
		s.opts.Console.SetAudit(s.audit)
	}

	group := s.tracker.Group()
	s.audit.SessionStart(group)
	logging.Session("Student %s assigned to group %d", studentID, group)

	s.printf("\n%s\n", s.styles.Success.Render("✅  Session started for: "+studentID))
	if name != "" {
		s.printf("   Name: %s\n", name)
	}
	s.printf("   Assigned to Group: %d (%s)\n", group, cohort.GroupLabel(group))
	s.printf("   Start time: %s\n\n", s.started.Format(time.DateTime))
	s.printf("ℹ️   Note: You'll be asked for assignment keys for each lesson/tutorial.\n")
	return nil
}

func (s *Session) welcome() {
	s.printf("%s\n", wideRule)
	s.printf("%s\n", s.styles.Title.Render("🐧  WELCOME TO LINUX COMMAND TUTORIAL  🐧"))
	s.printf("%s\n\n", wideRule)
	s.printf("This interactive tutorial teaches essential Linux commands through\n")
	s.printf("hands-on exercises. You can choose to:\n\n")
	s.printf("🎯  Complete all lessons in sequence, OR\n")
	s.printf("🎯  Work on individual lessons as assigned\n\n")
	s.printf("💡  Each lesson or complete tutorial requires its own assignment key\n")
	s.printf("💡  You'll receive progress codes to submit in your LMS\n")
	s.printf("💡  Progress codes are generated every %d exercises\n\n", s.opts.Interval)
}

// menu shows the lesson list and returns "all", "quit" or a valid lesson
// number.
func (s *Session) menu(ctx context.Context) (string, error) {
	cat := s.opts.Catalog
	s.printf("\n%s\n%s\n%s\n", wideRule, s.styles.Title.Render("🎯  LINUX TUTORIAL - MAIN MENU"), wideRule)
	s.printf("Choose what you'd like to do:\n\n")
	s.printf("%s\n", s.styles.Subtitle.Render("📚  Available Lessons:"))
	for i, l := range cat.Lessons() {
		s.printf("  %d. %s (%d exercises)\n", i+1, l.Title, len(l.Exercises))
		s.printf("     %s\n", s.styles.Muted.Render(l.Description))
	}
	s.printf("\n%s\n", s.styles.Subtitle.Render("🎯  Options:"))
	s.printf("  all  - Complete all lessons in sequence\n")
	s.printf("  1-%d  - Choose a specific lesson number\n", cat.Len())
	s.printf("  quit - Exit the tutorial\n\n")

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		line, err := s.readLine("Enter your choice: ")
		if err != nil {
			return "", err
		}
		choice := strings.ToLower(line)
		switch {
		case choice == "quit" || choice == "all":
			return choice, nil
		case s.handleAdmin(ctx, line):
			continue
		}
		if n, err := strconv.Atoi(choice); err == nil {
			if n >= 1 && n <= cat.Len() {
				return choice, nil
			}
			s.printf("%s\n", s.styles.Error.Render("❌  Invalid lesson number. Please try again."))
			continue
		}
		s.printf("%s\n", s.styles.Error.Render(fmt.Sprintf("❌  Please enter 'all', a lesson number (1-%d), or 'quit'", cat.Len())))
	}
}

// runAll takes the learner through every lesson under one assignment key.
func (s *Session) runAll(ctx context.Context) error {
	s.printf("\n%s\n", s.styles.Title.Render("🚀  Starting complete tutorial..."))
	if err := s.startRun(allLessons, s.opts.Catalog.TotalExercises()); err != nil {
		return err
	}

	for i, l := range s.opts.Catalog.Lessons() {
		s.lessonIndex = i
		if err := s.runLesson(ctx, l); err != nil {
			if errors.Is(err, errQuit) {
				s.stoppedEarly()
				s.goodbye()
			}
			return err
		}
	}
	return s.complete()
}

// runSingle runs one lesson under its own assignment key. Quitting inside
// the lesson returns to the caller without a completion code.
func (s *Session) runSingle(ctx context.Context, idx int) error {
	l, ok := s.opts.Catalog.Lesson(idx)
	if !ok {
		return tutorerr.New("session", "RunLesson", tutorerr.ErrInputValidation,
			fmt.Sprintf("no lesson %d", idx+1))
	}
	s.printf("\n%s\n", s.styles.Title.Render("🎯  Starting lesson: "+l.Title))
	if err := s.startRun(l.Title, len(l.Exercises)); err != nil {
		return err
	}
	s.lessonIndex = idx

	if err := s.runLesson(ctx, l); err != nil {
		if errors.Is(err, errQuit) {
			s.stoppedEarly()
			return nil
		}
		return err
	}
	return s.complete()
}

// startRun asks for the run's assignment key and restarts the counter.
func (s *Session) startRun(title string, total int) error {
	key, err := s.assignmentKey(title)
	if err != nil {
		return err
	}
	if err := s.tracker.Reset(key); err != nil {
		return err
	}
	s.runTitle = title
	s.runTotal = total
	logging.Session("Run %q started with key %q (%d exercises)", title, key, total)

	if s.opts.PrepareWorkspace {
		s.prepareWorkspace()
	}
	return nil
}

func (s *Session) assignmentKey(title string) (string, error) {
	s.printf("\n%s\n%s\n", s.styles.Subtitle.Render("🔑  ASSIGNMENT KEY FOR: "+title), wideRule[:50])
	for {
		key, err := s.readLine("Enter the assignment key provided by your instructor: ")
		if err != nil {
			return "", err
		}
		if key != "" {
			return key, nil
		}
		s.printf("%s\n", s.styles.Error.Render("❌  Please enter a valid assignment key."))
	}
}

func (s *Session) prepareWorkspace() {
	dir := s.opts.WorkDir
	if err := lesson.ResetWorkspace(dir, s.opts.Catalog.Artifacts()); err != nil {
		logging.SessionWarn("Could not clear practice files in %s: %v", dir, err)
	}
	written, err := lesson.SeedWorkspace(dir)
	if err != nil {
		logging.SessionWarn("Could not seed practice files in %s: %v", dir, err)
		s.printf("%s\n", s.styles.Warning.Render("⚠️  Some practice files could not be created: "+err.Error()))
		return
	}
	if len(written) > 0 {
		logging.Session("Seeded %d practice files in %s", len(written), dir)
	}
}

func (s *Session) runLesson(ctx context.Context, l lesson.Lesson) error {
	s.printf("\n%s\n%s\n", s.styles.Title.Render("📚  LESSON: "+l.Title), wideRule[:50])
	s.printf("Description: %s\n", l.Description)
	s.printf("Commands you'll learn: %s\n\n", strings.Join(l.Commands, ", "))
	s.printf("%s\n", s.markdown.Render(s.opts.Catalog.Reference(l)))

	for i, ex := range l.Exercises {
		s.printf("\n%s\n", s.styles.Bold.Render(fmt.Sprintf("🔧 Exercise %d of %d:", i+1, len(l.Exercises))))
		if err := s.runExercise(ctx, ex); err != nil {
			return err
		}
	}

	s.printf("\n%s\n%s\n", s.styles.Success.Render(fmt.Sprintf("✅  Lesson '%s' completed!", l.Title)), wideRule[:50])
	return nil
}

// runExercise loops on one exercise until it is passed, skipped or the
// learner quits. Failed attempts can be retried without limit.
func (s *Session) runExercise(ctx context.Context, ex verify.Exercise) error {
	s.printf("Task: %s\n", ex.Instruction)
	s.printf("Command to try: %s\n\n", s.styles.Code.Render(ex.Command))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := s.readLine(s.styles.Prompt.Render("$") + " ")
		if err != nil {
			return err
		}

		switch strings.ToLower(line) {
		case "quit", "exit":
			return errQuit
		case "help", "hint":
			s.printf("%s\n", s.styles.Info.Render(fmt.Sprintf("Hint: Try typing '%s'", ex.Command)))
			continue
		case "skip":
			if err := s.tracker.Skip(); err != nil {
				return err
			}
			s.audit.Skip(ex.Instruction)
			s.printf("⏭️   Skipping exercise...\n")
			return nil
		case "progress":
			s.showProgress()
			continue
		}
		if s.handleAdmin(ctx, line) {
			continue
		}

		start := time.Now()
		res := s.verifier.Verify(ctx, line, ex)
		s.audit.Attempt(ex.Instruction, line, res.Outcome.String(), res.Pass, time.Since(start))
		logging.SessionDebug("Attempt %q on %q: %s", line, ex.Command, res.Outcome)
		s.showOutput(res.Execution)

		if !res.Pass {
			s.feedback(res)
			continue
		}
		return s.passed()
	}
}

func (s *Session) handleAdmin(ctx context.Context, line string) bool {
	return s.opts.Console != nil && s.opts.Console.Handle(ctx, line)
}

func (s *Session) showOutput(res *shell.Result) {
	if res == nil {
		return
	}
	if out := strings.TrimSpace(res.Stdout); out != "" {
		s.printf("%s\n", out)
	}
	if errOut := strings.TrimSpace(res.Stderr); errOut != "" {
		s.printf("%s\n", s.styles.Warning.Render("Error: "+errOut))
	}
	if res.Truncated {
		s.printf("%s\n", s.styles.Muted.Render(fmt.Sprintf("(output truncated, %d bytes dropped)", res.TruncatedBytes)))
	}
}

func (s *Session) feedback(res verify.Result) {
	switch res.Outcome {
	case verify.InputRejected:
		s.printf("%s\n", s.styles.Warning.Render("⚠️  "+res.Message))
		s.printf("💡 Tip: Make sure your command is complete and doesn't end with operators like |, >, or unclosed quotes.\n")
	case verify.Timeout, verify.ExecutionError:
		s.printf("%s\n", s.styles.Error.Render(res.Message))
	default:
		s.printf("%s\n", s.styles.Error.Render("❌  That's not quite right. Try again or type 'hint' for help."))
		s.printf("💡  Type 'progress' to see your current progress.\n")
		if s.opts.Console != nil {
			s.printf("💡  Type 'admin_help' for administrative commands.\n")
		}
	}
}

// passed counts a verified exercise and shows a checkpoint when one is due.
func (s *Session) passed() error {
	s.printf("\n----------------------------\n%s\n", s.styles.Success.Render("✅  Correct! Well done."))

	cp, err := s.tracker.RecordSuccess()
	if err != nil {
		return err
	}
	if cp != nil {
		if err := s.checkpoint(*cp); err != nil {
			return err
		}
	}

	s.printf("\n")
	if _, err := s.readLine("Press Enter to continue to the next exercise..."); err != nil {
		return err
	}
	s.printf("\n")
	return nil
}

func (s *Session) checkpoint(cp progress.Checkpoint) error {
	banner := strings.Repeat("🎯", 20)
	s.printf("\n%s\n%s\n%s\n", banner, s.styles.Title.Render("📊  PROGRESS CHECKPOINT REACHED!"), banner)
	s.printf("Exercises completed: %d\n", cp.ExerciseCount)
	s.printf("Current lesson: %d/%d\n", s.lessonIndex+1, s.opts.Catalog.Len())
	s.printf("Assignment: %s\n\n", cp.AssignmentKey)
	s.printf("📝  ENTER THIS CODE IN YOUR LMS:\n")
	s.printCode(cp.Code)
	s.printf("%s\n", s.styles.Warning.Render("⚠️  Important: Copy this code and enter it into"))
	s.printf("%s\n\n", s.styles.Warning.Render("   the correct assignment in your LMS to record your progress."))

	if _, err := s.readLine("Press Enter after you've recorded the code to continue..."); err != nil {
		return err
	}
	s.printf("%s\n\n", banner)
	return s.tracker.Acknowledge()
}

func (s *Session) printCode(code string) {
	s.printf("%s\n         %s\n%s\n", rule, s.styles.Code.Render(code), rule)
}

// complete issues the FINAL code of the run and lists every code.
func (s *Session) complete() error {
	final, err := s.tracker.Complete()
	if err != nil {
		return err
	}
	rec := s.tracker.Record()

	s.printf("\n%s\n%s\n%s\n", wideRule, s.styles.Title.Render("🎉  CONGRATULATIONS! 🎉"), wideRule)
	if s.runTitle == allLessons {
		s.printf("You have completed the Linux Command Tutorial!\n\n")
	} else {
		s.printf("You have completed the lesson: %s\n\n", s.runTitle)
	}

	s.printf("%s\n", s.styles.Subtitle.Render("📊  FINAL PROGRESS SUMMARY:"))
	s.printf("  • Student ID: %s\n", rec.StudentID)
	if s.studentName != "" {
		s.printf("  • Name: %s\n", s.studentName)
	}
	s.printf("  • Assignment: %s\n", rec.AssignmentKey)
	s.printf("  • Group: %d\n", rec.Group)
	s.printf("  • Total exercises completed: %d\n", rec.ExerciseCounter)
	if rec.Skipped > 0 {
		s.printf("  • Exercises skipped: %d\n", rec.Skipped)
	}
	if s.runTitle == allLessons {
		s.printf("  • All %d lessons finished\n", s.opts.Catalog.Len())
	}
	s.printf("  • Session time: %s\n\n", formatDuration(time.Since(s.started)))

	s.printf("%s\n", s.styles.Subtitle.Render("🏆  FINAL COMPLETION CODE:"))
	s.printCode(final.Code)
	s.printf("%s\n\n", s.styles.Warning.Render("⚠️   Enter this FINAL code in your LMS to mark completion!"))

	s.printf("📝  All your progress codes:\n")
	s.listCodes(rec.Codes)
	s.printf("\n%s\n", wideRule)

	logging.Session("Run %q completed: %d exercises, final code issued", s.runTitle, rec.ExerciseCounter)
	return nil
}

func (s *Session) listCodes(cps []progress.Checkpoint) {
	for i, cp := range cps {
		label := "CHECKPOINT"
		if cp.Kind == codes.Final {
			label = "FINAL"
		}
		s.printf("  %d. %s - %s (%d exercises)\n", i+1, cp.Code, label, cp.ExerciseCount)
	}
}

// stoppedEarly reports a run abandoned before its last exercise. No FINAL
// code is issued for it.
func (s *Session) stoppedEarly() {
	rec := s.tracker.Record()
	logging.Session("Run %q stopped at %d/%d exercises", s.runTitle, rec.ExerciseCounter, s.runTotal)

	s.printf("\n%s\n", s.styles.Warning.Render("⏹️  Stopped before the end of: "+s.runTitle))
	s.printf("Exercises completed: %d/%d\n", rec.ExerciseCounter, s.runTotal)
	s.printf("No completion code is issued for an unfinished run.\n")
	if len(rec.Codes) > 0 {
		s.printf("\n🎯 Your progress codes:\n")
		s.listCodes(rec.Codes)
	}
}

func (s *Session) showProgress() {
	rec := s.tracker.Record()
	key := rec.AssignmentKey
	if key == "" {
		key = "Not set"
	}

	s.printf("\n%s\n%s\n", s.styles.Subtitle.Render("📈  YOUR PROGRESS"), shortRule)
	s.printf("Student ID: %s\n", rec.StudentID)
	s.printf("Assignment: %s\n", key)
	s.printf("Group: %d\n", rec.Group)
	s.printf("Exercises completed: %d/%d\n", rec.ExerciseCounter, s.runTotal)
	if rec.Skipped > 0 {
		s.printf("Exercises skipped: %d\n", rec.Skipped)
	}
	s.printf("Current lesson: %d/%d\n", s.lessonIndex+1, s.opts.Catalog.Len())
	s.printf("Progress codes generated: %d\n", len(rec.Codes))
	if len(rec.Codes) > 0 {
		s.printf("\n🎯 Your progress codes:\n")
		for _, cp := range rec.Codes {
			s.printf("  • %s (after %d exercises)\n", cp.Code, cp.ExerciseCount)
		}
	}
	s.printf("%s\n\n", shortRule)
}

func (s *Session) goodbye() {
	s.printf("\n%s\n", s.styles.Title.Render("👋  Thank you for using the Linux Tutorial! Goodbye!"))
}

// readLine prints prompt and returns the next trimmed line. It returns
// io.EOF when input is exhausted.
func (s *Session) readLine(prompt string) (string, error) {
	s.printf("%s", prompt)
	if !s.in.Scan() {
		s.printf("\n")
		if err := s.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(s.in.Text()), nil
}

func (s *Session) printf(format string, args ...interface{}) {
	if s.outLock != nil {
		s.outLock.Lock()
		defer s.outLock.Unlock()
	}
	fmt.Fprintf(s.out, format, args...)
}

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
