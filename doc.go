// Package slingshot implements the client-side session core for the
// Slingshot career product: the authentication session state machine, the
// credential and snapshot stores it commits to, and HTTP helpers for the
// web shell that sits on top of it.
//
// Session lifecycle:
//   - Session is the client's belief about the current user. It is owned by
//     a single SessionMachine per process; every transition (login, register,
//     verify-email, logout, restore) funnels through the machine and commits
//     a full snapshot to the SnapshotStore so a restart can rehydrate without
//     re-prompting for credentials.
//   - Restore re-validates the stored credential against the remote system.
//     A dead token degrades to Unauthenticated and clears the stale snapshot;
//     it never surfaces an error to the user.
//
// Collaborators:
//   - Gateway is the stateless façade over the remote auth endpoints
//     (register, login, verify-email, current-user, OAuth redirect).
//   - TokenStore persists the bearer credential. The cookie-backed
//     implementation matches the product's browser cookie (Secure,
//     SameSite=Strict, one day).
//   - ActivitySink is a best-effort audit emitter describing login, logout,
//     restore, and OAuth landing events. Sink errors are logged, never fatal.
//
// The middleware/guard package gates protected routes on the session, and
// the onboarding package drives the one-time profile completion flow gated
// by User.OnboardingCompleted.
package slingshot
