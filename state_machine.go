package slingshot

import (
	"context"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"
)

// TransitionContext is passed into hooks for additional processing.
type TransitionContext struct {
	MachineID string
	From      SessionState
	To        SessionState
	Session   Session
}

// TransitionHook is executed around a committed transition. Hook failures
// are logged and never block the transition: verbs cannot fail.
type TransitionHook func(ctx context.Context, tc TransitionContext) error

// MachineOption customizes session machine construction.
type MachineOption func(*SessionMachine)

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) MachineOption {
	return func(m *SessionMachine) {
		if clock != nil {
			m.now = clock
		}
	}
}

// WithLogger overrides the machine logger.
func WithLogger(logger Logger) MachineOption {
	return func(m *SessionMachine) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithActivitySink sets the ActivitySink used to publish session events.
func WithActivitySink(sink ActivitySink) MachineOption {
	return func(m *SessionMachine) {
		m.sink = normalizeActivitySink(sink)
	}
}

// WithBeforeTransitionHook adds a hook executed before a transition commits.
func WithBeforeTransitionHook(h TransitionHook) MachineOption {
	return func(m *SessionMachine) {
		if h != nil {
			m.beforeHooks = append(m.beforeHooks, h)
		}
	}
}

// WithAfterTransitionHook adds a hook executed after a transition commits.
func WithAfterTransitionHook(h TransitionHook) MachineOption {
	return func(m *SessionMachine) {
		if h != nil {
			m.afterHooks = append(m.afterHooks, h)
		}
	}
}

// SessionMachine is the single authoritative holder of authentication state.
// Exactly one instance exists per running client; collaborators read copies
// of the Session and never mutate it directly.
type SessionMachine struct {
	mu          sync.Mutex
	session     Session
	generation  uint64
	gateway     Gateway
	tokens      TokenStore
	snapshots   SnapshotStore
	transitions map[SessionState]map[SessionState]struct{}
	now         func() time.Time
	logger      Logger
	sink        ActivitySink
	beforeHooks []TransitionHook
	afterHooks  []TransitionHook
	id          uuid.UUID
}

var _ StateMachine = (*SessionMachine)(nil)

// NewSessionMachine returns the default implementation backed by the given
// gateway and stores.
func NewSessionMachine(gateway Gateway, tokens TokenStore, snapshots SnapshotStore, opts ...MachineOption) *SessionMachine {
	m := &SessionMachine{
		session:   DefaultSession(),
		gateway:   gateway,
		tokens:    tokens,
		snapshots: snapshots,
		transitions: map[SessionState]map[SessionState]struct{}{
			StateUnknown: {
				StateUnknown:         {},
				StateUnauthenticated: {},
				StateAuthenticated:   {},
			},
			StateUnauthenticated: {
				StateUnauthenticated: {},
				StateAuthenticated:   {},
				StateErrored:         {},
			},
			StateAuthenticated: {
				StateAuthenticated:   {},
				StateUnauthenticated: {},
				StateErrored:         {},
			},
			StateErrored: {
				StateUnauthenticated: {},
				StateAuthenticated:   {},
				StateErrored:         {},
			},
		},
		now:    time.Now,
		logger: defLogger{},
		sink:   noopActivitySink{},
		id:     uuid.New(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m
}

// ID identifies this machine instance in emitted session events.
func (m *SessionMachine) ID() string {
	return m.id.String()
}

// Current returns a copy of the session.
func (m *SessionMachine) Current() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// Restore rehydrates the session at startup: it adopts a well-formed
// persisted snapshot as the provisional state, then validates the stored
// credential by fetching the profile. A dead or absent credential degrades
// to Unauthenticated and clears the stale snapshot; a reload with a dead
// token looks identical to a fresh visit.
func (m *SessionMachine) Restore(ctx context.Context) Session {
	m.mu.Lock()

	if data, ok, err := m.snapshots.Load(ctx); err != nil {
		m.logger.Warn("snapshot load failed: %v", err)
	} else if ok {
		if snap, derr := DecodeSnapshot(data); derr != nil {
			m.logger.Warn("discarding malformed session snapshot: %v", derr)
			if rerr := m.snapshots.Remove(ctx); rerr != nil {
				m.logger.Warn("snapshot remove failed: %v", rerr)
			}
		} else {
			// Provisional: lets the shell skip the login flash while the
			// credential is re-validated below.
			m.session = snap
			m.session.Loading = true
		}
	}

	token, ok := m.tokens.Get()
	if !ok {
		m.forgetSessionLocked(ctx, SessionEventRestoreRejected, map[string]any{
			"reason": ErrNoCredential.Error(),
		})
		defer m.mu.Unlock()
		return m.session
	}

	if CredentialExpired(token, m.now()) {
		if err := m.tokens.Remove(); err != nil {
			m.logger.Warn("credential remove failed: %v", err)
		}
		m.forgetSessionLocked(ctx, SessionEventRestoreRejected, map[string]any{
			"reason": "credential expired",
		})
		defer m.mu.Unlock()
		return m.session
	}

	gen := m.generation
	m.mu.Unlock()

	user, err := m.gateway.CurrentUser(ctx, token)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.generation != gen {
		// Someone logged out (or in) while the fetch was in flight.
		return m.session
	}

	if err != nil {
		if rerr := m.tokens.Remove(); rerr != nil {
			m.logger.Warn("credential remove failed: %v", rerr)
		}
		m.forgetSessionLocked(ctx, SessionEventRestoreRejected, map[string]any{
			"reason": err.Error(),
		})
		return m.session
	}

	m.transitionLocked(ctx, Session{
		State:           StateAuthenticated,
		IsAuthenticated: true,
		User:            user,
	})
	m.recordEvent(ctx, SessionEventRestored, user.ID, nil)
	return m.session
}

// Login exchanges credentials for a bearer token, persists it, and fetches
// the profile. Failures surface through Session.Error, never as a returned
// error.
func (m *SessionMachine) Login(ctx context.Context, email, password string) Session {
	return m.authenticate(ctx, SessionEventLoginSuccess, SessionEventLoginFailure, "Login failed",
		func(ctx context.Context) (string, error) {
			return m.gateway.Login(ctx, email, password)
		})
}

// Register creates the account and, on success, behaves like Login.
func (m *SessionMachine) Register(ctx context.Context, input RegisterInput) Session {
	return m.authenticate(ctx, SessionEventRegisterSuccess, SessionEventRegisterFailure, "Registration failed",
		func(ctx context.Context) (string, error) {
			return m.gateway.Register(ctx, input)
		})
}

// VerifyEmail redeems a one-time code for a credential. Anything other than
// exactly six digits is rejected here, before the gateway is ever called.
func (m *SessionMachine) VerifyEmail(ctx context.Context, email, otp string) Session {
	if err := ValidateOTP(otp); err != nil {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.transitionLocked(ctx, Session{
			State: StateErrored,
			Error: NormalizeMessage(ErrInvalidVerificationCode, "Invalid verification code"),
		})
		return m.session
	}

	return m.authenticate(ctx, SessionEventEmailVerified, SessionEventLoginFailure, "Failed to verify email",
		func(ctx context.Context) (string, error) {
			return m.gateway.VerifyEmail(ctx, email, otp)
		})
}

// Logout clears the credential and the persisted snapshot and resets the
// session. It is synchronous and infallible from the caller's perspective.
func (m *SessionMachine) Logout(ctx context.Context) Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	userID := ""
	if m.session.User != nil {
		userID = m.session.User.ID
	}

	m.forgetSessionLocked(ctx, SessionEventLogout, map[string]any{
		"user_id": userID,
	})
	return m.session
}

// authenticate is the shared login/register/verify path: mark loading,
// redeem a credential, persist it, fetch the profile, commit the result.
func (m *SessionMachine) authenticate(
	ctx context.Context,
	successEvent, failureEvent SessionEventType,
	fallbackMsg string,
	redeem func(ctx context.Context) (string, error),
) Session {
	m.mu.Lock()
	next := m.session
	next.Loading = true
	next.Error = ""
	m.transitionLocked(ctx, next)
	gen := m.generation
	m.mu.Unlock()

	token, err := redeem(ctx)

	if err == nil {
		m.mu.Lock()
		stale := m.generation != gen
		m.mu.Unlock()
		if stale {
			// Logged out while the exchange was in flight: do not store
			// the credential of a session nobody wants anymore.
			return m.Current()
		}
		if serr := m.tokens.Set(token); serr != nil {
			err = serr
		}
	}

	var user *User
	if err == nil {
		user, err = m.gateway.CurrentUser(ctx, token)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.generation != gen {
		// The triggering view is gone; drop the late result.
		return m.session
	}

	if err != nil {
		msg := NormalizeMessage(err, fallbackMsg)
		m.transitionLocked(ctx, Session{
			State: StateErrored,
			Error: msg,
		})
		m.recordEvent(ctx, failureEvent, "", map[string]any{
			"error": msg,
		})
		return m.session
	}

	m.transitionLocked(ctx, Session{
		State:           StateAuthenticated,
		IsAuthenticated: true,
		User:            user,
	})
	m.recordEvent(ctx, successEvent, user.ID, nil)
	return m.session
}

// forgetSessionLocked resets to the unauthenticated default, removing both
// the persisted snapshot and, for logout, the stored credential. Callers
// hold the mutex.
func (m *SessionMachine) forgetSessionLocked(ctx context.Context, event SessionEventType, meta map[string]any) {
	if event == SessionEventLogout {
		if err := m.tokens.Remove(); err != nil {
			m.logger.Warn("credential remove failed: %v", err)
		}
	}

	from := m.session.State
	next := Session{State: StateUnauthenticated}

	tc := TransitionContext{MachineID: m.id.String(), From: from, To: next.State, Session: next}
	m.runHooks(ctx, m.beforeHooks, tc)

	m.session = next
	m.generation++

	if err := m.snapshots.Remove(ctx); err != nil {
		m.logger.Warn("snapshot remove failed: %v", err)
	}

	m.runHooks(ctx, m.afterHooks, tc)
	m.recordEvent(ctx, event, "", meta)
}

// transitionLocked applies the next session shape and commits a snapshot.
// Callers hold the mutex.
func (m *SessionMachine) transitionLocked(ctx context.Context, next Session) {
	from := m.session.State
	if !m.canTransition(from, next.State) {
		m.logger.Warn("unexpected session transition %s -> %s", from, next.State)
	}

	tc := TransitionContext{MachineID: m.id.String(), From: from, To: next.State, Session: next}
	m.runHooks(ctx, m.beforeHooks, tc)

	m.session = next
	m.generation++
	m.commitLocked(ctx)

	m.runHooks(ctx, m.afterHooks, tc)
}

// commitLocked overwrites the persisted snapshot with the current session.
// Persistence is an explicit step inside the transition so ordering stays
// deterministic. A failing store is logged, never fatal.
func (m *SessionMachine) commitLocked(ctx context.Context) {
	data, err := EncodeSnapshot(m.session)
	if err != nil {
		m.logger.Error("snapshot encode failed: %v", err)
		return
	}
	if err := m.snapshots.Save(ctx, data); err != nil {
		m.logger.Warn("snapshot save failed: %v", err)
	}
}

func (m *SessionMachine) canTransition(from, to SessionState) bool {
	if allowed, ok := m.transitions[from]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}

func (m *SessionMachine) runHooks(ctx context.Context, hooks []TransitionHook, tc TransitionContext) {
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, tc); err != nil {
			m.logger.Warn("session transition hook error: %v", err)
		}
	}
}

func (m *SessionMachine) recordEvent(ctx context.Context, event SessionEventType, userID string, meta map[string]any) {
	e := SessionEvent{
		EventType:  event,
		MachineID:  m.id.String(),
		UserID:     userID,
		From:       m.session.State,
		To:         m.session.State,
		Metadata:   meta,
		OccurredAt: m.now(),
	}
	if err := m.sink.Record(ctx, e); err != nil {
		m.logger.Warn("session activity sink error: %v", err)
	}
}

// ValidateOTP enforces the client-side verification code contract: exactly
// six numeric digits.
func ValidateOTP(otp string) error {
	return validation.Validate(otp,
		validation.Required,
		validation.Length(6, 6),
		is.Digit,
	)
}
