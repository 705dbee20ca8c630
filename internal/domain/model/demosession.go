package model

import "time"

// DemoSession is the ephemeral state behind the offline OTP fallback: a
// locally issued verification code for one contact+method pair, created only
// when the backend is unreachable and discarded after a successful match.
type DemoSession struct {
	Contact   string
	Method    string
	Code      string
	SubjectID string
	CreatedAt time.Time
}

// Identity is the authenticated principal a verification flow resolves to.
// Demo marks identities minted by the offline fallback rather than the
// backend.
type Identity struct {
	ID      string
	Contact string
	Method  string
	Demo    bool
}
