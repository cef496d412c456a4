package slingshot

import (
	"context"
	"fmt"

	"github.com/goliatone/go-router"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Gateway is the stateless façade over the remote authentication endpoints.
// Implementations return the opaque bearer credential on success; failures
// carry the taxonomy categories declared in errors.go.
type Gateway interface {
	Register(ctx context.Context, input RegisterInput) (string, error)
	Login(ctx context.Context, email, password string) (string, error)
	VerifyEmail(ctx context.Context, email, otp string) (string, error)
	CurrentUser(ctx context.Context, token string) (*User, error)
	OAuthRedirectURL(provider string) string
}

// RegisterInput is the payload forwarded to the remote register endpoint.
// Confirmation-password checks happen before a Gateway ever sees it.
type RegisterInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// TokenStore persists the bearer credential outside of process memory.
type TokenStore interface {
	Set(token string) error
	Get() (string, bool)
	Remove() error
}

// SnapshotStore persists the serialized session under a fixed key. Writes
// overwrite wholesale; Remove clears the key entirely.
type SnapshotStore interface {
	Load(ctx context.Context) ([]byte, bool, error)
	Save(ctx context.Context, snapshot []byte) error
	Remove(ctx context.Context) error
}

// StateMachine owns the Session and mediates every transition. Verbs never
// propagate remote failures to the caller; the resulting Session carries the
// normalized message in its Error field.
type StateMachine interface {
	Current() Session
	Restore(ctx context.Context) Session
	Login(ctx context.Context, email, password string) Session
	Register(ctx context.Context, input RegisterInput) Session
	VerifyEmail(ctx context.Context, email, otp string) Session
	Logout(ctx context.Context) Session
}

// LoginPayload is what the HTTP layer hands to the session manager.
type LoginPayload interface {
	GetEmail() string
	GetPassword() string
}

// HTTPSessionManager binds the state machine to HTTP requests: cookies for
// the credential, redirect capture for rejected routes.
type HTTPSessionManager interface {
	Login(c router.Context, payload LoginPayload) (Session, error)
	Logout(c router.Context) Session
	OAuthLanding(c router.Context) (Session, error)
	SetRedirect(c router.Context)
	GetRedirect(c router.Context, def ...string) string
	GetRedirectOrDefault(c router.Context) string
}

// Config holds session options
type Config interface {
	GetBaseURL() string
	GetTokenKey() string
	GetSnapshotKey() string
	GetCookieDurationHours() int
	GetRequestTimeoutSeconds() int
	GetRejectedRouteKey() string
	GetRejectedRouteDefault() string
	GetOnboardingRoute() string
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] SLINGSHOT "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] SLINGSHOT "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] SLINGSHOT "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] SLINGSHOT "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
