package logging

import (
	"time"

	"go.uber.org/zap"
)

// =============================================================================
// AUDIT EVENT TYPES
// =============================================================================

// AuditEventType names one entry in the tutor audit trail.
type AuditEventType string

const (
	AuditSessionStart AuditEventType = "session_start"
	AuditSessionEnd   AuditEventType = "session_end"

	AuditAttempt  AuditEventType = "attempt"
	AuditSkip     AuditEventType = "skip"
	AuditCodeEmit AuditEventType = "code_emit"

	AuditCommandRun    AuditEventType = "command_run"
	AuditCommandKilled AuditEventType = "command_killed"

	AuditAdminCommand AuditEventType = "admin_command"
	AuditRosterReload AuditEventType = "roster_reload"
)

// AuditEvent is a structured audit entry. Zero-valued fields are omitted.
type AuditEvent struct {
	EventType  AuditEventType
	SessionID  string
	StudentID  string
	Target     string // exercise, command line, roster path
	Action     string
	Success    bool
	DurationMs int64
	Error      string
	Fields     map[string]interface{}
}

// AuditLogger writes audit events through the shared zap core under the
// "audit" name. It is a no-op when debug mode is off.
type AuditLogger struct {
	sessionID string
	studentID string
}

// Audit returns an unscoped audit logger.
func Audit() *AuditLogger {
	return &AuditLogger{}
}

// AuditWithSession returns an audit logger scoped to one learner session.
func AuditWithSession(sessionID, studentID string) *AuditLogger {
	return &AuditLogger{sessionID: sessionID, studentID: studentID}
}

// Log writes one audit event.
func (a *AuditLogger) Log(event AuditEvent) {
	mu.RLock()
	l := base
	enabled := opts.DebugMode
	mu.RUnlock()
	if l == nil || !enabled {
		return
	}

	if event.SessionID == "" {
		event.SessionID = a.sessionID
	}
	if event.StudentID == "" {
		event.StudentID = a.studentID
	}
	l.Named("audit").Info(string(event.EventType), auditFields(event)...)
}

func auditFields(e AuditEvent) []zap.Field {
	fields := []zap.Field{
		zap.String("event", string(e.EventType)),
		zap.Bool("success", e.Success),
	}
	if e.SessionID != "" {
		fields = append(fields, zap.String("session", e.SessionID))
	}
	if e.StudentID != "" {
		fields = append(fields, zap.String("student", e.StudentID))
	}
	if e.Target != "" {
		fields = append(fields, zap.String("target", e.Target))
	}
	if e.Action != "" {
		fields = append(fields, zap.String("action", e.Action))
	}
	if e.DurationMs != 0 {
		fields = append(fields, zap.Int64("dur_ms", e.DurationMs))
	}
	if e.Error != "" {
		fields = append(fields, zap.String("error", e.Error))
	}
	if len(e.Fields) > 0 {
		fields = append(fields, zap.Any("fields", e.Fields))
	}
	return fields
}

// =============================================================================
// CONVENIENCE METHODS FOR COMMON EVENTS
// =============================================================================

// SessionStart logs the start of a learner session.
func (a *AuditLogger) SessionStart(group int) {
	a.Log(AuditEvent{
		EventType: AuditSessionStart,
		Success:   true,
		Fields:    map[string]interface{}{"group": group},
	})
}

// SessionEnd logs the end of a learner session.
func (a *AuditLogger) SessionEnd(completed int, reason string) {
	a.Log(AuditEvent{
		EventType: AuditSessionEnd,
		Action:    reason,
		Success:   true,
		Fields:    map[string]interface{}{"completed": completed},
	})
}

// Attempt logs one verification attempt and its outcome.
func (a *AuditLogger) Attempt(exercise, input, outcome string, pass bool, elapsed time.Duration) {
	a.Log(AuditEvent{
		EventType:  AuditAttempt,
		Target:     exercise,
		Action:     outcome,
		Success:    pass,
		DurationMs: elapsed.Milliseconds(),
		Fields:     map[string]interface{}{"input": input},
	})
}

// Skip logs a skipped exercise.
func (a *AuditLogger) Skip(exercise string) {
	a.Log(AuditEvent{EventType: AuditSkip, Target: exercise, Success: true})
}

// CodeEmitted logs a checkpoint or final code.
func (a *AuditLogger) CodeEmitted(kind string, count int, code string) {
	a.Log(AuditEvent{
		EventType: AuditCodeEmit,
		Action:    kind,
		Success:   true,
		Fields:    map[string]interface{}{"count": count, "code": code},
	})
}

// CommandRun logs a finished subprocess.
func (a *AuditLogger) CommandRun(line string, exitCode int, elapsed time.Duration, errMsg string) {
	a.Log(AuditEvent{
		EventType:  AuditCommandRun,
		Target:     line,
		Success:    errMsg == "" && exitCode == 0,
		DurationMs: elapsed.Milliseconds(),
		Error:      errMsg,
		Fields:     map[string]interface{}{"exit_code": exitCode},
	})
}

// CommandKilled logs a subprocess torn down before it finished.
func (a *AuditLogger) CommandKilled(line, reason string) {
	a.Log(AuditEvent{EventType: AuditCommandKilled, Target: line, Action: reason})
}

// AdminCommand logs an instructor command.
func (a *AuditLogger) AdminCommand(name string, success bool, errMsg string) {
	a.Log(AuditEvent{EventType: AuditAdminCommand, Action: name, Success: success, Error: errMsg})
}

// RosterReload logs a roster (re)load.
func (a *AuditLogger) RosterReload(path string, students int, errMsg string) {
	a.Log(AuditEvent{
		EventType: AuditRosterReload,
		Target:    path,
		Success:   errMsg == "",
		Error:     errMsg,
		Fields:    map[string]interface{}{"students": students},
	})
}
