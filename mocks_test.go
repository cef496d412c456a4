package slingshot_test

import (
	"context"
	"io"
	"mime/multipart"

	"github.com/goliatone/go-router"
	slingshot "github.com/slingshot-hq/go-slingshot"
	"github.com/stretchr/testify/mock"
)

// stubGateway implements slingshot.Gateway with function fields so each test
// wires only the calls it expects. It counts invocations for assertions on
// "no network call happened" properties.
type stubGateway struct {
	RegisterFunc    func(ctx context.Context, input slingshot.RegisterInput) (string, error)
	LoginFunc       func(ctx context.Context, email, password string) (string, error)
	VerifyEmailFunc func(ctx context.Context, email, otp string) (string, error)
	CurrentUserFunc func(ctx context.Context, token string) (*slingshot.User, error)

	RegisterCalls    int
	LoginCalls       int
	VerifyEmailCalls int
	CurrentUserCalls int
}

func (g *stubGateway) Register(ctx context.Context, input slingshot.RegisterInput) (string, error) {
	g.RegisterCalls++
	if g.RegisterFunc == nil {
		return "", slingshot.ErrNetworkUnavailable
	}
	return g.RegisterFunc(ctx, input)
}

func (g *stubGateway) Login(ctx context.Context, email, password string) (string, error) {
	g.LoginCalls++
	if g.LoginFunc == nil {
		return "", slingshot.ErrNetworkUnavailable
	}
	return g.LoginFunc(ctx, email, password)
}

func (g *stubGateway) VerifyEmail(ctx context.Context, email, otp string) (string, error) {
	g.VerifyEmailCalls++
	if g.VerifyEmailFunc == nil {
		return "", slingshot.ErrNetworkUnavailable
	}
	return g.VerifyEmailFunc(ctx, email, otp)
}

func (g *stubGateway) CurrentUser(ctx context.Context, token string) (*slingshot.User, error) {
	g.CurrentUserCalls++
	if g.CurrentUserFunc == nil {
		return nil, slingshot.ErrNetworkUnavailable
	}
	return g.CurrentUserFunc(ctx, token)
}

func (g *stubGateway) OAuthRedirectURL(provider string) string {
	return "https://api.test/auth/" + provider
}

// captureSink records every session event for assertions.
type captureSink struct {
	Events []slingshot.SessionEvent
}

func (s *captureSink) Record(_ context.Context, e slingshot.SessionEvent) error {
	s.Events = append(s.Events, e)
	return nil
}

// MockConfig implements slingshot.Config
type MockConfig struct {
	mock.Mock
}

func (m *MockConfig) GetBaseURL() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetTokenKey() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetSnapshotKey() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetCookieDurationHours() int {
	args := m.Called()
	return args.Int(0)
}

func (m *MockConfig) GetRequestTimeoutSeconds() int {
	args := m.Called()
	return args.Int(0)
}

func (m *MockConfig) GetRejectedRouteKey() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetRejectedRouteDefault() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConfig) GetOnboardingRoute() string {
	args := m.Called()
	return args.String(0)
}

// MockLoginPayload implements slingshot.LoginPayload
type MockLoginPayload struct {
	Email    string
	Password string
}

func (m MockLoginPayload) GetEmail() string {
	return m.Email
}

func (m MockLoginPayload) GetPassword() string {
	return m.Password
}

// MockContext mocks the router.Context
type MockContext struct {
	mock.Mock
	NextCalled bool
}

func (m *MockContext) Next() error {
	m.NextCalled = true
	return nil
}

func (m *MockContext) Context() context.Context {
	args := m.Called()
	c, ok := args.Get(0).(context.Context)
	if !ok {
		panic("arg needs to be context.Context")
	}
	return c
}

func (m *MockContext) SetContext(ctx context.Context) {
	m.Called(ctx)
}

func (m *MockContext) Path() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Method() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Body() []byte {
	args := m.Called()
	return args.Get(0).([]byte)
}

func (m *MockContext) Status(code int) router.Context {
	m.Called(code)
	return m
}

func (m *MockContext) SendString(s string) error {
	args := m.Called(s)
	return args.Error(0)
}

func (m *MockContext) Send(b []byte) error {
	args := m.Called(b)
	return args.Error(0)
}

func (m *MockContext) JSON(code int, val any) error {
	args := m.Called(code, val)
	return args.Error(0)
}

func (m *MockContext) NoContent(code int) error {
	args := m.Called(code)
	return args.Error(0)
}

func (m *MockContext) Render(name string, bind any, layout ...string) error {
	if len(layout) > 0 {
		args := m.Called(name, bind, layout[0])
		return args.Error(0)
	}
	args := m.Called(name, bind)
	return args.Error(0)
}

func (m *MockContext) Redirect(path string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(path, status)
		return args.Error(0)
	}
	args := m.Called(path)
	return args.Error(0)
}

func (m *MockContext) RedirectToRoute(name string, data router.ViewContext, status ...int) error {
	if len(status) > 0 {
		args := m.Called(name, data, status[0])
		return args.Error(0)
	}
	args := m.Called(name, data)
	return args.Error(0)
}

func (m *MockContext) RedirectBack(fallback string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(fallback, status)
		return args.Error(0)
	}
	args := m.Called(fallback)
	return args.Error(0)
}

func (m *MockContext) SetHeader(key, val string) router.Context {
	m.Called(key, val)
	return m
}

func (m *MockContext) Header(key string) string {
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Get(key string, defaultValue any) any {
	args := m.Called(key, defaultValue)
	return args.Get(0)
}

func (m *MockContext) GetBool(key string, defaultValue bool) bool {
	args := m.Called(key, defaultValue)
	return args.Bool(0)
}

func (m *MockContext) GetInt(key string, def int) int {
	args := m.Called(key, def)
	return args.Int(0)
}

func (m *MockContext) Set(key string, val any) {
	m.Called(key, val)
}

func (m *MockContext) Bind(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindJSON(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindXML(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindQuery(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) CookieParser(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) Cookie(cookie *router.Cookie) {
	m.Called(cookie)
}

func (m *MockContext) Cookies(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Param(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) ParamsInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Query(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) QueryValues(key string) []string {
	args := m.Called(key)
	vals, _ := args.Get(0).([]string)
	return vals
}

func (m *MockContext) QueryInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Queries() map[string]string {
	args := m.Called()
	return args.Get(0).(map[string]string)
}

func (m *MockContext) GetString(key string, defaultValue string) string {
	args := m.Called(key, defaultValue)
	return args.String(0)
}

func (m *MockContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		m.Called(key, value[0])
		return nil
	}
	args := m.Called(key)
	return args.Get(0)
}

func (m *MockContext) OriginalURL() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) OnNext(callback func() error) {
	m.Called(callback)
}

func (m *MockContext) Referer() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) FormFile(key string) (*multipart.FileHeader, error) {
	args := m.Called(key)
	fh, _ := args.Get(0).(*multipart.FileHeader)
	return fh, args.Error(1)
}

func (m *MockContext) FormValue(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) IP() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) LocalsMerge(key any, value map[string]any) map[string]any {
	args := m.Called(key, value)
	merged, _ := args.Get(0).(map[string]any)
	return merged
}

func (m *MockContext) SendStatus(code int) error {
	args := m.Called(code)
	return args.Error(0)
}

func (m *MockContext) SendStream(r io.Reader) error {
	args := m.Called(r)
	return args.Error(0)
}

func (m *MockContext) RouteName() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) RouteParams() map[string]string {
	args := m.Called()
	params, _ := args.Get(0).(map[string]string)
	return params
}
