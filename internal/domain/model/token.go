package model

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenPair holds the two session credentials issued by the backend.
// Access is short-lived and attached to protected requests; Refresh is
// longer-lived and exchanged for a new access token when it expires.
type TokenPair struct {
	Access  string
	Refresh string
}

// AccessClaims is the decoded view of an access token. It is derived on
// demand and never stored; the only claim this client acts on is the
// embedded expiry.
type AccessClaims struct {
	Subject   string
	ExpiresAt time.Time
}

// ParseAccessClaims decodes an access token without verifying its signature.
// The client holds no signing secret; the decode exists purely to read the
// embedded expiry so an obviously dead token can be treated as invalid
// without a network round-trip.
func ParseAccessClaims(token string) (AccessClaims, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return AccessClaims{}, fmt.Errorf("decode access token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return AccessClaims{}, fmt.Errorf("access token carries no exp claim")
	}
	return AccessClaims{
		Subject:   claims.Subject,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Expired reports whether the claims' expiry has passed at the given instant.
func (c AccessClaims) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
