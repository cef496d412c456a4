// Package guard gates protected routes on the client session. It is split
// in two: Load resolves the session once per request and parks it in the
// router context; Protect is the pure guard that reads that session and
// either lets the route render or redirects to the login entry point. The
// guard itself performs no network calls and never mutates the session.
package guard

import (
	"errors"
	"net/http"
	"strings"

	"github.com/goliatone/go-router"

	slingshot "github.com/slingshot-hq/go-slingshot"
)

// ErrNoSession is returned when Protect runs without a loaded session.
var ErrNoSession = errors.New("no session loaded for request")

// DefaultContextKey is the router Locals key the session is stored under.
const DefaultContextKey = "session"

// SessionResolver produces the session for one request.
type SessionResolver func(ctx router.Context) slingshot.Session

// Config holds guard options.
type Config struct {
	// Filter skips the guard when it returns true.
	Filter func(router.Context) bool
	// ErrorHandler runs when the visitor is not authenticated. The default
	// captures the rejected route and redirects to LoginRoute.
	ErrorHandler router.ErrorHandler
	// ContextKey is the Locals key the session lives under.
	ContextKey string
	// LoginRoute is where unauthenticated visitors land.
	LoginRoute string
	// OnboardingRoute, when set, diverts authenticated users that have not
	// completed onboarding. Empty disables the gate.
	OnboardingRoute string
	// SetRedirect captures the rejected route for a post-login return.
	// Best-effort; nil is fine.
	SetRedirect func(router.Context)
}

// GetDefaultConfig fills in the zero-value fields.
func GetDefaultConfig(config ...Config) Config {
	cfg := Config{}
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}
	if cfg.LoginRoute == "" {
		cfg.LoginRoute = "/login"
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(ctx router.Context, _ error) error {
			if cfg.SetRedirect != nil {
				cfg.SetRedirect(ctx)
			}
			statusCode := http.StatusSeeOther
			if ctx.Method() == string(router.GET) {
				statusCode = http.StatusFound
			}
			return ctx.Redirect(cfg.LoginRoute, statusCode)
		}
	}

	return cfg
}

// Load resolves the session once and stores it in the router context so
// Protect and downstream handlers can read it without re-resolving.
func Load(resolver SessionResolver, config ...Config) router.MiddlewareFunc {
	cfg := GetDefaultConfig(config...)
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			session := resolver(ctx)
			ctx.Locals(cfg.ContextKey, session)
			if session.User != nil {
				ctx.SetContext(slingshot.WithUserContext(ctx.Context(), session.User))
			}
			return hf(ctx)
		}
	}
}

// Protect renders the protected route only when the loaded session is
// authenticated; otherwise it captures the rejected route and redirects.
// The guard only reads IsAuthenticated: a nil User during the restore
// window still passes.
func Protect(config ...Config) router.MiddlewareFunc {
	cfg := GetDefaultConfig(config...)
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return hf(ctx)
			}

			session, ok := FromContext(ctx, cfg.ContextKey)
			if !ok {
				return cfg.ErrorHandler(ctx, ErrNoSession)
			}

			if !session.Authenticated() {
				return cfg.ErrorHandler(ctx, slingshot.ErrNoCredential)
			}

			if cfg.OnboardingRoute != "" &&
				session.NeedsOnboarding() &&
				!strings.HasPrefix(ctx.Path(), cfg.OnboardingRoute) {
				return ctx.Redirect(cfg.OnboardingRoute, http.StatusSeeOther)
			}

			return hf(ctx)
		}
	}
}

// FromContext reads the loaded session back out of the router context.
func FromContext(ctx router.Context, key string) (slingshot.Session, bool) {
	if key == "" {
		key = DefaultContextKey
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return slingshot.Session{}, false
	}
	session, ok := raw.(slingshot.Session)
	return session, ok
}
