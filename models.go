package slingshot

import (
	"time"
)

// UserRole is the user's role
type UserRole = string

const (
	// RoleUser is the default career-seeker role
	RoleUser UserRole = "user"
	// RoleCoach can review member profiles and documents
	RoleCoach UserRole = "coach"
	// RoleAdmin manages the product
	RoleAdmin UserRole = "admin"
)

// User is the profile record owned by the remote system and cached read-only
// inside the Session. The shape is closed: decoding rejects unknown fields so
// nothing flows through the client untyped.
type User struct {
	ID                    string     `json:"id"`
	Email                 string     `json:"email"`
	FirstName             string     `json:"firstName,omitempty"`
	LastName              string     `json:"lastName,omitempty"`
	Avatar                string     `json:"avatar,omitempty"`
	Role                  UserRole   `json:"role"`
	OnboardingCompleted   bool       `json:"onboardingCompleted"`
	OnboardingCompletedAt *time.Time `json:"onboardingCompletedAt,omitempty"`
	IsActive              bool       `json:"isActive"`
}

// FullName joins the optional name parts, falling back to the email local
// part when both are missing.
func (u *User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	}
	return usernameFromEmail(u.Email)
}

// NeedsOnboarding reports whether navigation should land on the onboarding
// flow instead of the dashboard.
func (u *User) NeedsOnboarding() bool {
	return u != nil && !u.OnboardingCompleted
}

func usernameFromEmail(email string) string {
	for i := 0; i < len(email); i++ {
		if email[i] == '@' {
			return email[:i]
		}
	}
	return email
}
