package slingshot

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CredentialExpired peeks at a stored bearer token to decide whether the
// startup profile fetch is worth attempting. The token is not verified --
// the remote system remains the authority -- we only read the expiry claim
// when one is present. Opaque or claimless tokens are never treated as
// expired.
func CredentialExpired(token string, now time.Time) bool {
	parser := jwt.NewParser()

	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}

	return exp.Time.Before(now)
}
