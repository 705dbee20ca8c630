package driven

import "context"

// CredentialStore is the driven port for the locally persisted token pair.
// Write access is restricted by convention to the session lifecycle service
// and the refresh path; every other component only reads. That single-writer
// discipline is what keeps a refresh-in-progress from racing a concurrent
// logout.
type CredentialStore interface {
	// SetTokens stores or replaces both tokens of the session.
	SetTokens(ctx context.Context, access, refresh string) error

	// SetAccessToken replaces only the access token, leaving the refresh
	// token untouched. Used after a successful refresh exchange.
	SetAccessToken(ctx context.Context, access string) error

	// AccessToken returns the stored access token, or ("", nil) when none
	// is stored.
	AccessToken(ctx context.Context) (string, error)

	// RefreshToken returns the stored refresh token, or ("", nil) when none
	// is stored.
	RefreshToken(ctx context.Context) (string, error)

	// Clear removes both tokens unconditionally. Idempotent.
	Clear(ctx context.Context) error
}
