// Package onboarding drives the one-time profile completion wizard: a
// linear sequence of externally validated steps, each committed to the
// remote system before the next becomes reachable. The flow consults the
// session core only through User.OnboardingCompleted.
package onboarding

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/nyaruka/phonenumbers"

	slingshot "github.com/slingshot-hq/go-slingshot"
)

// Step labels one stage of the wizard.
type Step string

const (
	StepPersonalInfo      Step = "personal-info"
	StepCareerPreferences Step = "career-preferences"
	StepJobSearch         Step = "job-search"
	StepDocuments         Step = "documents"
	StepComplete          Step = "complete"
)

var stepOrder = []Step{
	StepPersonalInfo,
	StepCareerPreferences,
	StepJobSearch,
	StepDocuments,
	StepComplete,
}

// ErrAlreadyCompleted is returned when starting a flow for a user whose
// onboarding is already done.
var ErrAlreadyCompleted = errors.New("onboarding already completed")

// ErrStepOutOfOrder is returned when a step is submitted before its
// predecessors.
var ErrStepOutOfOrder = errors.New("onboarding step submitted out of order")

// RemotePreference is the user's location preference.
type RemotePreference = string

const (
	RemoteOnly RemotePreference = "remote"
	Hybrid     RemotePreference = "hybrid"
	OnSite     RemotePreference = "onsite"
)

// PersonalInfo is the first step's payload.
type PersonalInfo struct {
	FullName string   `json:"fullName"`
	Bio      string   `json:"bio,omitempty"`
	Phone    string   `json:"phone,omitempty"`
	Skills   []string `json:"skills,omitempty"`
}

// Validate runs the step's client-side rules.
func (p PersonalInfo) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.FullName, validation.Required, validation.Length(1, 200)),
		validation.Field(&p.Bio, validation.Length(0, 2000)),
		validation.Field(&p.Phone, validation.By(validPhone)),
	)
}

// validPhone accepts an empty value or a valid international number.
func validPhone(value any) error {
	phone, _ := value.(string)
	if phone == "" {
		return nil
	}

	num, err := phonenumbers.Parse(phone, "")
	if err != nil {
		return errors.New("must be a phone number in international format")
	}
	if !phonenumbers.IsValidNumber(num) {
		return errors.New("must be a valid phone number")
	}
	return nil
}

// SalaryRange is the expected compensation band.
type SalaryRange struct {
	Min      int    `json:"min"`
	Max      int    `json:"max"`
	Currency string `json:"currency"`
}

// CareerPreferences is the second step's payload.
type CareerPreferences struct {
	DesiredRoles       []string         `json:"desiredRole,omitempty"`
	YearsOfExperience  int              `json:"yearsOfExperience,omitempty"`
	PreferredLocations []string         `json:"preferredLocations,omitempty"`
	RemotePreference   RemotePreference `json:"remotePreference,omitempty"`
	ExpectedSalary     *SalaryRange     `json:"expectedSalary,omitempty"`
	Industries         []string         `json:"industries,omitempty"`
	Skills             []string         `json:"skills,omitempty"`
}

// Validate runs the step's client-side rules.
func (p CareerPreferences) Validate() error {
	if err := validation.ValidateStruct(&p,
		validation.Field(&p.YearsOfExperience, validation.Min(0), validation.Max(60)),
		validation.Field(&p.RemotePreference, validation.In(RemoteOnly, Hybrid, OnSite)),
	); err != nil {
		return err
	}

	if p.ExpectedSalary != nil && p.ExpectedSalary.Min > p.ExpectedSalary.Max {
		return validation.Errors{
			"expectedSalary": fmt.Errorf("minimum cannot exceed maximum"),
		}
	}
	return nil
}

// JobSearchSettings is the third step's payload.
type JobSearchSettings struct {
	IsActivelySearching bool       `json:"isActivelySearching"`
	AvailabilityDate    *time.Time `json:"availabilityDate,omitempty"`
	NoticePeriodDays    int        `json:"noticePeriod,omitempty"`
	VisaStatus          string     `json:"visaStatus,omitempty"`
	WorkAuthorization   []string   `json:"workAuthorization,omitempty"`
}

// Validate runs the step's client-side rules.
func (p JobSearchSettings) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.NoticePeriodDays, validation.Min(0), validation.Max(365)),
	)
}

// Documents is the fourth step's payload: each document arrives either as
// an uploaded file or as pasted text, never both required.
type Documents struct {
	CV                *Upload `json:"-"`
	WritingSample     *Upload `json:"-"`
	CVText            string  `json:"cvText,omitempty"`
	WritingSampleText string  `json:"writingSampleText,omitempty"`
}

// Upload is one file destined for the documents endpoint.
type Upload struct {
	Filename string
	Content  []byte
}

// Validate requires a CV in one of its two forms.
func (d Documents) Validate() error {
	if d.CV == nil && d.CVText == "" {
		return validation.Errors{
			"cv": errors.New("provide a CV file or pasted text"),
		}
	}
	return nil
}

// Flow is the linear wizard state. It owns nothing durable: the remote
// system records each committed step, the flow only tracks position.
type Flow struct {
	mu       sync.Mutex
	client   *Client
	logger   slingshot.Logger
	position int
	done     bool
}

// FlowOption customizes flow construction.
type FlowOption func(*Flow)

// WithFlowLogger overrides the flow logger.
func WithFlowLogger(logger slingshot.Logger) FlowOption {
	return func(f *Flow) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewFlow starts the wizard for the given user. Users that already
// completed onboarding get ErrAlreadyCompleted.
func NewFlow(client *Client, user *slingshot.User, opts ...FlowOption) (*Flow, error) {
	if user != nil && user.OnboardingCompleted {
		return nil, ErrAlreadyCompleted
	}

	f := &Flow{
		client: client,
		logger: noopLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}

	return f, nil
}

// Current returns the step awaiting submission.
func (f *Flow) Current() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return stepOrder[f.position]
}

// Completed reports whether the final step has been committed.
func (f *Flow) Completed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.done
}

// SubmitPersonalInfo validates and commits the first step.
func (f *Flow) SubmitPersonalInfo(ctx context.Context, info PersonalInfo) error {
	return f.submit(ctx, StepPersonalInfo, info, func(ctx context.Context) error {
		return f.client.UpdatePersonalInfo(ctx, info)
	})
}

// SubmitCareerPreferences validates and commits the second step.
func (f *Flow) SubmitCareerPreferences(ctx context.Context, prefs CareerPreferences) error {
	return f.submit(ctx, StepCareerPreferences, prefs, func(ctx context.Context) error {
		return f.client.UpdateCareerPreferences(ctx, prefs)
	})
}

// SubmitJobSearchSettings validates and commits the third step.
func (f *Flow) SubmitJobSearchSettings(ctx context.Context, settings JobSearchSettings) error {
	return f.submit(ctx, StepJobSearch, settings, func(ctx context.Context) error {
		return f.client.UpdateJobSearchSettings(ctx, settings)
	})
}

// SubmitDocuments validates and commits the fourth step. Files go through
// the multipart endpoint, pasted text through the text endpoint.
func (f *Flow) SubmitDocuments(ctx context.Context, docs Documents) error {
	return f.submit(ctx, StepDocuments, docs, func(ctx context.Context) error {
		if docs.CV != nil || docs.WritingSample != nil {
			if err := f.client.UploadDocuments(ctx, docs.CV, docs.WritingSample); err != nil {
				return err
			}
		}
		if docs.CVText != "" || docs.WritingSampleText != "" {
			return f.client.SaveDocumentText(ctx, docs.CVText, docs.WritingSampleText)
		}
		return nil
	})
}

// Complete marks onboarding finished on the remote system. Only reachable
// after every prior step committed.
func (f *Flow) Complete(ctx context.Context) error {
	f.mu.Lock()
	if stepOrder[f.position] != StepComplete {
		f.mu.Unlock()
		return ErrStepOutOfOrder
	}
	f.mu.Unlock()

	if err := f.client.Complete(ctx); err != nil {
		return err
	}

	f.mu.Lock()
	f.done = true
	f.mu.Unlock()

	f.logger.Info("onboarding completed")
	return nil
}

type validatable interface {
	Validate() error
}

// submit enforces step order and validation before the network call, then
// advances the position.
func (f *Flow) submit(ctx context.Context, step Step, payload validatable, commit func(context.Context) error) error {
	f.mu.Lock()
	if stepOrder[f.position] != step {
		f.mu.Unlock()
		return ErrStepOutOfOrder
	}
	f.mu.Unlock()

	if err := payload.Validate(); err != nil {
		return err
	}

	if err := commit(ctx); err != nil {
		return err
	}

	f.mu.Lock()
	f.position++
	f.mu.Unlock()
	return nil
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
