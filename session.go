package slingshot

import (
	"bytes"
	"encoding/json"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
)

// SessionState labels the phase the session machine is in.
type SessionState string

const (
	// StateUnknown is the initial phase, before the stored credential has
	// been checked. Loading is true while it lasts.
	StateUnknown SessionState = "unknown"
	// StateUnauthenticated means no valid credential is believed present.
	StateUnauthenticated SessionState = "unauthenticated"
	// StateAuthenticated means a credential was present and the profile
	// fetch succeeded.
	StateAuthenticated SessionState = "authenticated"
	// StateErrored is the per-attempt failure shape. Any verb is accepted
	// from it and first clears the message.
	StateErrored SessionState = "errored"
)

// Session is the client's in-memory belief about the current user. It is a
// value: the machine hands out copies, and nothing outside the machine can
// mutate the authoritative one.
type Session struct {
	State           SessionState `json:"state"`
	IsAuthenticated bool         `json:"isAuthenticated"`
	User            *User        `json:"user,omitempty"`
	Loading         bool         `json:"loading"`
	Error           string       `json:"error,omitempty"`
}

// DefaultSession is the pre-any-login shape: Unknown and loading until the
// stored credential has been validated.
func DefaultSession() Session {
	return Session{
		State:   StateUnknown,
		Loading: true,
	}
}

// Authenticated reports whether the session currently believes a valid
// credential is present.
func (s Session) Authenticated() bool {
	return s.IsAuthenticated
}

// NeedsOnboarding reports whether the authenticated user still has to finish
// the onboarding flow.
func (s Session) NeedsOnboarding() bool {
	return s.IsAuthenticated && s.User.NeedsOnboarding()
}

func (s Session) String() string {
	user := "<nil>"
	if s.User != nil {
		user = s.User.Email
	}
	return fmt.Sprintf(
		"state=%s authenticated=%t user=%s loading=%t error=%q",
		s.State,
		s.IsAuthenticated,
		user,
		s.Loading,
		s.Error,
	)
}

// EncodeSnapshot serializes the session for the SnapshotStore. Snapshots are
// overwritten wholesale on every transition.
func EncodeSnapshot(s Session) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode session snapshot")
	}
	return data, nil
}

// DecodeSnapshot parses a persisted snapshot. The record shape is closed:
// unknown fields, shape violations, or junk all yield ErrMalformedSnapshot,
// which the machine treats as an absent snapshot. Startup never crashes on a
// corrupt one.
func DecodeSnapshot(data []byte) (Session, error) {
	if len(data) == 0 {
		return DefaultSession(), ErrMalformedSnapshot
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var s Session
	if err := dec.Decode(&s); err != nil {
		return DefaultSession(), ErrMalformedSnapshot.WithMetadata(map[string]any{
			"reason": err.Error(),
		})
	}

	if !validSnapshotShape(s) {
		return DefaultSession(), ErrMalformedSnapshot.WithMetadata(map[string]any{
			"reason": "snapshot violates session invariants",
		})
	}

	return s, nil
}

// validSnapshotShape enforces the invariants a well-formed snapshot carries:
// a recognized state label, and user only present while authenticated.
func validSnapshotShape(s Session) bool {
	switch s.State {
	case StateUnknown, StateUnauthenticated, StateAuthenticated, StateErrored:
	default:
		return false
	}

	if s.User != nil && !s.IsAuthenticated {
		return false
	}

	if s.IsAuthenticated && s.State != StateAuthenticated {
		return false
	}

	return true
}
