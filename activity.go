package slingshot

import (
	"context"
	"time"
)

// SessionEventType enumerates supported session activity categories.
type SessionEventType string

const (
	SessionEventLoginSuccess    SessionEventType = "session.login.success"
	SessionEventLoginFailure    SessionEventType = "session.login.failure"
	SessionEventRegisterSuccess SessionEventType = "session.register.success"
	SessionEventRegisterFailure SessionEventType = "session.register.failure"
	SessionEventEmailVerified   SessionEventType = "session.email.verified"
	SessionEventLogout          SessionEventType = "session.logout"
	SessionEventRestored        SessionEventType = "session.restored"
	SessionEventRestoreRejected SessionEventType = "session.restore.rejected"
	SessionEventOAuthLanding    SessionEventType = "session.oauth.landing"
)

// SessionEvent captures audit-friendly information about a transition.
type SessionEvent struct {
	EventType  SessionEventType
	MachineID  string
	UserID     string
	From       SessionState
	To         SessionState
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes session events for auditing/telemetry purposes.
// Sinks run best-effort: a failing sink is logged and never blocks a
// transition.
type ActivitySink interface {
	Record(ctx context.Context, event SessionEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event SessionEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event SessionEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, SessionEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}
