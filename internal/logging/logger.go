// Package logging provides structured logging shared across every
// component, with trace/session propagation via context.Context.
package logging

import (
	"context"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

type ctxKey string

const (
	traceIDKey   ctxKey = "trace_id"
	sessionIDKey ctxKey = "session_id"
	agentIDKey   ctxKey = "agent_id"
)

// Logger wraps logrus.Logger with a fixed "component" field.
type Logger struct {
	*logrus.Logger
	component string
}

// New creates a Logger for the given component ("orchestrator",
// "rule_engine", ...). format is "json" or "text"; level parses via logrus.
func New(component, level, format string) *Logger {
	base := logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	base.SetLevel(lvl)

	if format == "json" {
		base.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		base.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339,
			FullTimestamp:   true,
		})
	}
	base.SetOutput(os.Stdout)

	return &Logger{Logger: base, component: component}
}

// WithContext returns an entry carrying the component plus any trace/session
// identifiers found in ctx.
func (l *Logger) WithContext(ctx context.Context) *logrus.Entry {
	entry := l.Logger.WithField("component", l.component)
	if traceID, ok := ctx.Value(traceIDKey).(string); ok && traceID != "" {
		entry = entry.WithField("trace_id", traceID)
	}
	if sessionID, ok := ctx.Value(sessionIDKey).(string); ok && sessionID != "" {
		entry = entry.WithField("session_id", sessionID)
	}
	if agentID, ok := ctx.Value(agentIDKey).(string); ok && agentID != "" {
		entry = entry.WithField("agent_id", agentID)
	}
	return entry
}

// WithFields returns an entry with the component field plus the given
// fields.
func (l *Logger) WithFields(fields map[string]interface{}) *logrus.Entry {
	if fields == nil {
		fields = map[string]interface{}{}
	}
	fields["component"] = l.component
	return l.Logger.WithFields(fields)
}

// WithError returns an entry with the component field plus the error.
func (l *Logger) WithError(err error) *logrus.Entry {
	return l.Logger.WithFields(logrus.Fields{"component": l.component, "error": err.Error()})
}

// WithTraceID adds a trace ID to ctx.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// WithSessionID adds a session ID to ctx.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// WithAgentID adds an agent ID to ctx.
func WithAgentID(ctx context.Context, agentID string) context.Context {
	return context.WithValue(ctx, agentIDKey, agentID)
}

// TraceIDFrom retrieves the trace ID from ctx, if any.
func TraceIDFrom(ctx context.Context) string {
	v, _ := ctx.Value(traceIDKey).(string)
	return v
}

// LogTaskExecution logs the outcome of a single agent task execution.
func (l *Logger) LogTaskExecution(ctx context.Context, taskID, agentType string, success bool, duration time.Duration, err error) {
	entry := l.WithContext(ctx).WithFields(logrus.Fields{
		"task_id":     taskID,
		"agent_type":  agentType,
		"success":     success,
		"duration_ms": duration.Milliseconds(),
	})
	if err != nil {
		entry.WithError(err).Warn("task execution failed")
		return
	}
	entry.Debug("task executed")
}

// LogRuleExecution logs a single rule's execution outcome.
func (l *Logger) LogRuleExecution(ctx context.Context, ruleID, outcome string, duration time.Duration) {
	l.WithContext(ctx).WithFields(logrus.Fields{
		"rule_id":     ruleID,
		"outcome":     outcome,
		"duration_ms": duration.Milliseconds(),
	}).Debug("rule executed")
}

// LogAudit logs an audit-journal append.
func (l *Logger) LogAudit(ctx context.Context, changeID, entityKind, operation string) {
	l.WithContext(ctx).WithFields(logrus.Fields{
		"change_id":   changeID,
		"entity_kind": entityKind,
		"operation":   operation,
		"audit":       true,
	}).Info("change recorded")
}

// Default is a process-wide logger for packages that cannot take an
// injected one conveniently (e.g. package-level helpers). Prefer passing a
// *Logger explicitly wherever possible.
var Default = New("platform", "info", "json")
