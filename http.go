package slingshot

import (
	"net/http"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// SnapshotStoreProvider resolves the snapshot store for one request. The
// default hands every request a fresh in-memory store: in the web shell the
// cookie is the durable credential and the snapshot only spans the request.
type SnapshotStoreProvider func(c router.Context) SnapshotStore

// RouteSessionManager binds the session machine to HTTP traffic: each
// request gets a machine wired to that request's credential cookie, so the
// browser remains the single owner of its session.
type RouteSessionManager struct {
	cfg              Config
	gateway          Gateway
	snapshots        SnapshotStoreProvider
	sink             ActivitySink
	cookieDuration   time.Duration
	Logger           Logger
	AuthErrorHandler func(c router.Context, err error) error
	ErrorHandler     func(c router.Context, err error) error
}

var _ HTTPSessionManager = (*RouteSessionManager)(nil)

func NewRouteSessionManager(gateway Gateway, cfg Config) (*RouteSessionManager, error) {
	if gateway == nil {
		return nil, ErrMissingGateway
	}

	cookieDuration := DefaultCookieDuration
	if cfg.GetCookieDurationHours() > 0 {
		cookieDuration = time.Duration(cfg.GetCookieDurationHours()) * time.Hour
	}

	a := &RouteSessionManager{
		cfg:            cfg,
		gateway:        gateway,
		sink:           noopActivitySink{},
		cookieDuration: cookieDuration,
		Logger:         defLogger{},
		snapshots: func(router.Context) SnapshotStore {
			return NewMemorySnapshotStore()
		},
	}

	a.ErrorHandler = a.defaultErrHandler
	a.AuthErrorHandler = a.defaultAuthErrHandler

	return a, nil
}

// WithSnapshotStoreProvider overrides how per-request snapshot stores are
// resolved, e.g. to share the bun-backed store across requests.
func (a *RouteSessionManager) WithSnapshotStoreProvider(provider SnapshotStoreProvider) *RouteSessionManager {
	if provider != nil {
		a.snapshots = provider
	}
	return a
}

// WithActivitySink forwards session events from per-request machines.
func (a *RouteSessionManager) WithActivitySink(sink ActivitySink) *RouteSessionManager {
	a.sink = normalizeActivitySink(sink)
	return a
}

func (a RouteSessionManager) GetCookieDuration() time.Duration {
	return a.cookieDuration
}

// MachineFor builds the session machine for one request, bound to the
// request's credential cookie.
func (a *RouteSessionManager) MachineFor(c router.Context) *SessionMachine {
	tokens := NewCookieTokenStore(c, a.cfg.GetTokenKey(), a.cookieDuration)
	return NewSessionMachine(
		a.gateway,
		tokens,
		a.snapshots(c),
		WithLogger(a.Logger),
		WithActivitySink(a.sink),
	)
}

// Login runs the login transition. When the resulting session is not
// authenticated the normalized message comes back as an auth error so the
// controller can re-render the form.
func (a *RouteSessionManager) Login(c router.Context, payload LoginPayload) (Session, error) {
	m := a.MachineFor(c)
	session := m.Login(c.Context(), payload.GetEmail(), payload.GetPassword())
	if !session.Authenticated() {
		a.Logger.Error("Login error: %s", session.Error)
		return session, errors.New(session.Error, errors.CategoryAuth).
			WithCode(errors.CodeUnauthorized)
	}
	return session, nil
}

// Logout clears the credential cookie and persisted snapshot. Infallible.
func (a *RouteSessionManager) Logout(c router.Context) Session {
	return a.MachineFor(c).Logout(c.Context())
}

// OAuthLanding handles the provider's return leg: it reads the token from
// the query string and runs the normal startup validation against it. The
// credential cookie is only written once validation passed; a cookie set in
// this response would not be readable until the next request anyway. No
// token means the visitor goes back to login.
func (a *RouteSessionManager) OAuthLanding(c router.Context) (Session, error) {
	token := c.Query("token", "")
	if token == "" {
		return Session{State: StateUnauthenticated}, errors.Wrap(
			ErrNoCredential, errors.CategoryAuth, "OAuth return carried no token",
		).WithCode(errors.CodeUnauthorized)
	}

	tokens := NewMemoryTokenStore()
	if err := tokens.Set(token); err != nil {
		return Session{State: StateUnauthenticated}, err
	}

	m := NewSessionMachine(
		a.gateway,
		tokens,
		a.snapshots(c),
		WithLogger(a.Logger),
		WithActivitySink(a.sink),
	)

	session := m.Restore(c.Context())
	if !session.Authenticated() {
		return session, errors.New("OAuth credential rejected", errors.CategoryAuth).
			WithCode(errors.CodeUnauthorized)
	}

	cookie := NewCookieTokenStore(c, a.cfg.GetTokenKey(), a.cookieDuration)
	if err := cookie.Set(token); err != nil {
		return session, err
	}

	userID := ""
	if session.User != nil {
		userID = session.User.ID
	}
	if err := a.sink.Record(c.Context(), SessionEvent{
		EventType:  SessionEventOAuthLanding,
		MachineID:  m.ID(),
		UserID:     userID,
		From:       session.State,
		To:         session.State,
		OccurredAt: time.Now(),
	}); err != nil {
		a.Logger.Warn("session activity sink error: %v", err)
	}

	return session, nil
}

func (a *RouteSessionManager) GetRedirect(ctx router.Context, def ...string) string {
	rejectedRoute := a.cfg.GetRejectedRouteKey()
	r := ctx.Cookies(rejectedRoute)
	if r == "" {
		return def[0]
	}
	a.cookieDel(ctx, rejectedRoute)
	return r
}

func (a *RouteSessionManager) GetRedirectOrDefault(ctx router.Context) string {
	rejectedRoute := a.cfg.GetRejectedRouteKey()
	refererHeader := string(ctx.Referer())

	r := ctx.Cookies(rejectedRoute, refererHeader)
	if r == "" {
		r = a.cfg.GetRejectedRouteDefault()
	}
	a.cookieDel(ctx, rejectedRoute)
	return r
}

func (a *RouteSessionManager) SetRedirect(ctx router.Context) {
	rejectedRoute := a.cfg.GetRejectedRouteKey()

	a.Logger.Info("Setting redirect cookie", "key", rejectedRoute, "path", ctx.OriginalURL())

	ctx.Cookie(&router.Cookie{
		Name:     rejectedRoute,
		Value:    ctx.OriginalURL(),
		Expires:  time.Now().Add(time.Minute * 5),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteSessionManager) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteSessionManager) defaultAuthErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryAuth, "An unexpected authentication error").
			WithCode(errors.CodeUnauthorized)
	}

	a.Logger.Info(
		"Authentication error, redirecting to login",
		"error", richErr.Message,
		"text_code", richErr.TextCode,
		"path", c.OriginalURL(),
	)

	a.SetRedirect(c)

	statusCode := http.StatusSeeOther
	if c.Method() == string(router.GET) {
		statusCode = http.StatusFound
	}
	return c.Redirect("/login", statusCode)
}

func (a *RouteSessionManager) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	a.Logger.Info(
		"Middleware error handler",
		"error", richErr.Message,
		"category", richErr.Category,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	switch richErr.Category {
	case errors.CategoryAuth, errors.CategoryAuthz:
		return a.AuthErrorHandler(c, richErr)
	default:
		return c.Status(richErr.Code).Render("errors/500", router.ViewContext{
			"error": richErr,
		})
	}
}
