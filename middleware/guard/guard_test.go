package guard_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/goliatone/go-router"
	slingshot "github.com/slingshot-hq/go-slingshot"
	"github.com/slingshot-hq/go-slingshot/middleware/guard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// routerContext is embedded under a name that does not collide with the
// Context() method below.
type routerContext = router.Context

// fakeContext implements the slice of router.Context the guard touches.
// Anything else panics, which is exactly what we want: the guard must not
// reach for more of the request than it declares.
type fakeContext struct {
	routerContext

	path    string
	method  string
	ctx     context.Context
	locals  map[string]any
	gotoURL string
	status  int
}

func newFakeContext(path, method string) *fakeContext {
	return &fakeContext{
		path:   path,
		method: method,
		ctx:    context.Background(),
		locals: map[string]any{},
	}
}

func (f *fakeContext) Path() string   { return f.path }
func (f *fakeContext) Method() string { return f.method }

func (f *fakeContext) Context() context.Context       { return f.ctx }
func (f *fakeContext) SetContext(ctx context.Context) { f.ctx = ctx }

func (f *fakeContext) Locals(key any, value ...any) any {
	k, _ := key.(string)
	if len(value) > 0 {
		f.locals[k] = value[0]
		return nil
	}
	return f.locals[k]
}

func (f *fakeContext) Redirect(path string, status ...int) error {
	f.gotoURL = path
	if len(status) > 0 {
		f.status = status[0]
	}
	return nil
}

func authenticatedSession(onboarded bool) slingshot.Session {
	return slingshot.Session{
		State:           slingshot.StateAuthenticated,
		IsAuthenticated: true,
		User: &slingshot.User{
			ID:                  "usr-1",
			Email:               "ada@example.com",
			OnboardingCompleted: onboarded,
		},
	}
}

func passthrough(called *bool) router.HandlerFunc {
	return func(router.Context) error {
		*called = true
		return nil
	}
}

func TestLoad_StoresSessionInContext(t *testing.T) {
	session := authenticatedSession(true)
	resolver := func(router.Context) slingshot.Session { return session }

	ctx := newFakeContext("/", "GET")
	called := false
	require.NoError(t, guard.Load(resolver)(passthrough(&called))(ctx))

	assert.True(t, called)
	stored, ok := guard.FromContext(ctx, "")
	require.True(t, ok)
	assert.Equal(t, session, stored)

	user, ok := slingshot.UserFromContext(ctx.Context())
	require.True(t, ok)
	assert.Equal(t, "usr-1", user.ID)
}

func TestProtect_WithoutLoadedSession(t *testing.T) {
	ctx := newFakeContext("/jobs", "GET")
	called := false

	require.NoError(t, guard.Protect()(passthrough(&called))(ctx))

	assert.False(t, called)
	assert.Equal(t, "/login", ctx.gotoURL)
	assert.Equal(t, http.StatusFound, ctx.status)
}

func TestProtect_UnauthenticatedRedirects(t *testing.T) {
	ctx := newFakeContext("/jobs", "POST")
	ctx.Locals(guard.DefaultContextKey, slingshot.Session{State: slingshot.StateUnauthenticated})

	captured := false
	called := false
	mw := guard.Protect(guard.Config{
		SetRedirect: func(router.Context) { captured = true },
	})

	require.NoError(t, mw(passthrough(&called))(ctx))

	assert.False(t, called)
	assert.True(t, captured, "the rejected route is captured before redirecting")
	assert.Equal(t, "/login", ctx.gotoURL)
	assert.Equal(t, http.StatusSeeOther, ctx.status, "non-GET requests use 303")
}

func TestProtect_AuthenticatedPasses(t *testing.T) {
	ctx := newFakeContext("/jobs", "GET")
	ctx.Locals(guard.DefaultContextKey, authenticatedSession(true))

	called := false
	require.NoError(t, guard.Protect()(passthrough(&called))(ctx))
	assert.True(t, called)
	assert.Empty(t, ctx.gotoURL)
}

func TestProtect_RestoreWindowPasses(t *testing.T) {
	// During startup validation the session can be authenticated while the
	// profile is still provisional. The guard reads only the flag.
	ctx := newFakeContext("/jobs", "GET")
	ctx.Locals(guard.DefaultContextKey, slingshot.Session{
		State:           slingshot.StateAuthenticated,
		IsAuthenticated: true,
	})

	called := false
	require.NoError(t, guard.Protect()(passthrough(&called))(ctx))
	assert.True(t, called)
}

func TestProtect_OnboardingGate(t *testing.T) {
	mw := guard.Protect(guard.Config{OnboardingRoute: "/onboarding"})

	ctx := newFakeContext("/jobs", "GET")
	ctx.Locals(guard.DefaultContextKey, authenticatedSession(false))

	called := false
	require.NoError(t, mw(passthrough(&called))(ctx))
	assert.False(t, called)
	assert.Equal(t, "/onboarding", ctx.gotoURL)

	// Onboarding routes themselves stay reachable.
	ctx = newFakeContext("/onboarding/documents", "GET")
	ctx.Locals(guard.DefaultContextKey, authenticatedSession(false))

	called = false
	require.NoError(t, mw(passthrough(&called))(ctx))
	assert.True(t, called)
}

func TestProtect_FilterBypasses(t *testing.T) {
	mw := guard.Protect(guard.Config{
		Filter: func(c router.Context) bool { return c.Path() == "/public" },
	})

	ctx := newFakeContext("/public", "GET")
	called := false
	require.NoError(t, mw(passthrough(&called))(ctx))
	assert.True(t, called)
}

func TestProtect_CustomErrorHandler(t *testing.T) {
	var gotErr error
	mw := guard.Protect(guard.Config{
		ErrorHandler: func(_ router.Context, err error) error {
			gotErr = err
			return nil
		},
	})

	ctx := newFakeContext("/jobs", "GET")
	called := false
	require.NoError(t, mw(passthrough(&called))(ctx))

	assert.False(t, called)
	assert.ErrorIs(t, gotErr, guard.ErrNoSession)
}
