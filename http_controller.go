package slingshot

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
)

// RegisterSessionRoutes wires the session controller into the app router.
func RegisterSessionRoutes[T any](app router.Router[T], opts ...SessionControllerOption) {

	controller := NewSessionController(opts...)

	app.
		Get(controller.Routes.Login,
			controller.LoginShow,
		).
		SetName("sign-in.get")

	app.
		Post(
			controller.Routes.Login,
			controller.LoginPost,
		).
		SetName("sign-in.post")

	app.Get(controller.Routes.Logout, controller.LogOut).SetName("sign-out.get")

	app.Get(controller.Routes.SignUp, controller.SignUpShow).
		SetName("sign-up.get")
	app.Post(controller.Routes.SignUp, controller.SignUpPost).
		SetName("sign-up.post")

	app.Get(controller.Routes.Verify, controller.VerifyShow).
		SetName("verify-email.get")
	app.Post(controller.Routes.Verify, controller.VerifyPost).
		SetName("verify-email.post")

	app.Get(controller.Routes.OAuthLanding, controller.OAuthLanding).
		SetName("oauth-landing.get")
}

type SessionControllerRoutes struct {
	Login        string
	Logout       string
	SignUp       string
	Verify       string
	OAuthLanding string
	Onboarding   string
	Dashboard    string
}

type SessionControllerViews struct {
	Login  string
	SignUp string
	Verify string
}

type SessionController struct {
	Debug        bool
	Logger       Logger
	Routes       *SessionControllerRoutes
	Views        *SessionControllerViews
	Sessions     HTTPSessionManager
	ErrorHandler router.ErrorHandler
}

type SessionControllerOption func(*SessionController) *SessionController

func NewSessionController(opts ...SessionControllerOption) *SessionController {
	c := &SessionController{
		Logger:       defLogger{},
		ErrorHandler: defaultErrHandler,
		Routes: &SessionControllerRoutes{
			Login:        "/login",
			Logout:       "/logout",
			SignUp:       "/signup",
			Verify:       "/verify",
			OAuthLanding: "/auth/redirect",
			Onboarding:   "/onboarding",
			Dashboard:    "/",
		},
		Views: &SessionControllerViews{
			Login:  "login",
			SignUp: "signup",
			Verify: "verify",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Sessions == nil {
		panic("Missing HTTPSessionManager in session controller...")
	}

	return c
}

// WithSessionManager sets the HTTP session manager.
func WithSessionManager(sessions HTTPSessionManager) SessionControllerOption {
	return func(c *SessionController) *SessionController {
		c.Sessions = sessions
		return c
	}
}

// WithControllerLogger sets the controller logger.
func WithControllerLogger(logger Logger) SessionControllerOption {
	return func(c *SessionController) *SessionController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func (a *SessionController) LoginShow(ctx router.Context) error {
	return ctx.Render(a.Views.Login, router.ViewContext{
		"errors": nil,
		"record": nil,
	})
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// GetEmail returns the account email
func (r LoginRequest) GetEmail() string {
	return r.Email
}

// GetPassword will return the password
func (r LoginRequest) GetPassword() string {
	return r.Password
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *SessionController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.Render(a.Views.Login, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	if a.Debug {
		a.Logger.Debug("login payload: %s", print.MaybePrettyJSON(payload))
	}

	session, err := a.Sessions.Login(ctx, payload)
	if err != nil {
		return ctx.Render(a.Views.Login, router.ViewContext{
			"errors": map[string]string{
				"authentication": session.Error,
			},
			"record": payload,
		})
	}

	return ctx.Redirect(a.postLoginRoute(ctx, session), router.StatusSeeOther)
}

func (a *SessionController) LogOut(ctx router.Context) error {
	a.Sessions.Logout(ctx)
	return ctx.Redirect(a.Routes.Dashboard, router.StatusTemporaryRedirect)
}

func (a *SessionController) SignUpShow(ctx router.Context) error {
	return ctx.Render(a.Views.SignUp, router.ViewContext{
		"errors": map[string]string{},
		"record": SignUpRequest{},
	})
}

// SignUpRequest is the registration form payload
type SignUpRequest struct {
	FirstName       string `form:"first_name" json:"first_name"`
	LastName        string `form:"last_name" json:"last_name"`
	Email           string `form:"email" json:"email"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload. A mismatched confirmation password
// fails here and never reaches the network.
func (r SignUpRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Length(1, 200)),
		validation.Field(&r.LastName, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *SessionController) SignUpPost(ctx router.Context) error {
	payload := new(SignUpRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("sign up parse payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.SignUp, router.ViewContext{
			"errors": map[string]string{"form": "Failed to parse form"},
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("sign up validate payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.SignUp, router.ViewContext{
			"record":     payload,
			"validation": FormatValidationErrorToMap(err),
		})
	}

	manager, ok := a.Sessions.(*RouteSessionManager)
	if !ok {
		return a.ErrorHandler(ctx, errors.New("session manager cannot register accounts"))
	}

	session := manager.MachineFor(ctx).Register(ctx.Context(), RegisterInput{
		Email:     payload.Email,
		Password:  payload.Password,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
	})

	if !session.Authenticated() {
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  session.Error,
			"system_message": "Registration failed",
		}).Render(a.Views.SignUp, router.ViewContext{
			"record": payload,
			"errors": map[string]string{"registration": session.Error},
		})
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Account created. Check your inbox for a verification code.",
	}).Redirect(fmt.Sprintf("%s?email=%s", a.Routes.Verify, payload.Email), fiber.StatusSeeOther)
}

func (a *SessionController) VerifyShow(ctx router.Context) error {
	return ctx.Render(a.Views.Verify, router.ViewContext{
		"errors": map[string]string{},
		"email":  ctx.Query("email", ""),
	})
}

// OTPVerifyRequest carries the one-time verification code.
type OTPVerifyRequest struct {
	Email string `form:"email" json:"email"`
	OTP   string `form:"otp" json:"otp"`
}

// Validate enforces the six-digit code contract client-side.
func (r OTPVerifyRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.OTP, validation.Required, validation.Length(6, 6), is.Digit),
	)
}

func (a *SessionController) VerifyPost(ctx router.Context) error {
	payload := new(OTPVerifyRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.Render(a.Views.Verify, router.ViewContext{
			"errors": FormatValidationErrorToMap(err),
			"email":  payload.Email,
		})
	}

	manager, ok := a.Sessions.(*RouteSessionManager)
	if !ok {
		return a.ErrorHandler(ctx, errors.New("session manager cannot verify email"))
	}

	session := manager.MachineFor(ctx).VerifyEmail(ctx.Context(), payload.Email, payload.OTP)
	if !session.Authenticated() {
		return ctx.Render(a.Views.Verify, router.ViewContext{
			"errors": map[string]string{"verification": session.Error},
			"email":  payload.Email,
		})
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Your email has been verified.",
	}).Redirect(a.postLoginRoute(ctx, session), fiber.StatusSeeOther)
}

// OAuthLanding is the redirect landing route: the provider returns here
// with a token in the query string.
func (a *SessionController) OAuthLanding(ctx router.Context) error {
	session, err := a.Sessions.OAuthLanding(ctx)
	if err != nil {
		a.Logger.Info("OAuth landing rejected", "error", err)
		return ctx.Redirect(a.Routes.Login, router.StatusSeeOther)
	}

	return ctx.Redirect(a.postLoginRoute(ctx, session), router.StatusSeeOther)
}

// postLoginRoute picks where a freshly authenticated visitor goes: the
// captured rejected route, unless onboarding is still pending.
func (a *SessionController) postLoginRoute(ctx router.Context, session Session) string {
	if session.NeedsOnboarding() {
		return a.Routes.Onboarding
	}
	return a.Sessions.GetRedirect(ctx, a.Routes.Dashboard)
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

// FormatValidationErrorToMap flattens ozzo validation errors into a
// field -> message map for templates.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			if ferr != nil {
				out[field] = ferr.Error()
			}
		}
		return out
	}

	out["form"] = err.Error()
	return out
}

func defaultErrHandler(c router.Context, err error) error {
	return c.Render("errors/500", router.ViewContext{
		"message": err.Error(),
	})
}
