// Package application contains the services built on the dispatcher: session
// lifecycle, OTP onboarding with its offline fallback, and the typed
// directory surface.
package application

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/faith-connect-biz/faithconnect-go/internal/adapter/driven/api"
	"github.com/faith-connect-biz/faithconnect-go/internal/domain/model"
	"github.com/faith-connect-biz/faithconnect-go/internal/domain/port/driven"
)

// DefaultLogoutTimeout bounds the best-effort server-side token revocation.
// Local cleanup never waits on it longer than this.
const DefaultLogoutTimeout = 5 * time.Second

// SessionService owns login/logout/clear semantics for the credential pair.
// It is one of the two permitted writers of the CredentialStore (the other
// being the dispatcher's refresh path) and registers itself as the
// dispatcher's session-expired handler.
type SessionService struct {
	creds         driven.CredentialStore
	client        *api.Client
	logoutTimeout time.Duration
	now           func() time.Time

	mu          sync.RWMutex
	onSignedOut func(context.Context)
}

// NewSessionService creates the session lifecycle service and wires it to the
// client's session-expired hook. logoutTimeout <= 0 selects
// DefaultLogoutTimeout.
func NewSessionService(creds driven.CredentialStore, client *api.Client, logoutTimeout time.Duration) *SessionService {
	if logoutTimeout <= 0 {
		logoutTimeout = DefaultLogoutTimeout
	}
	s := &SessionService{
		creds:         creds,
		client:        client,
		logoutTimeout: logoutTimeout,
		now:           time.Now,
	}
	client.SetSessionExpiredHandler(s.ForceSignOut)
	return s
}

// OnSignedOut registers the navigation hook invoked after a forced sign-out,
// so the embedding UI can route to the public landing surface.
func (s *SessionService) OnSignedOut(fn func(context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSignedOut = fn
}

// Establish persists a freshly issued token pair. Called after successful
// login, OTP verification, or profile completion.
func (s *SessionService) Establish(ctx context.Context, pair model.TokenPair) error {
	return s.creds.SetTokens(ctx, pair.Access, pair.Refresh)
}

// Clear removes both stored tokens. Idempotent.
func (s *SessionService) Clear(ctx context.Context) error {
	return s.creds.Clear(ctx)
}

// ForceSignOut clears the credential pair and invokes the sign-out hook.
// Triggered by the dispatcher when a session is beyond recovery, and by
// explicit user logout paths.
func (s *SessionService) ForceSignOut(ctx context.Context) {
	if err := s.creds.Clear(ctx); err != nil {
		slog.Error("clear credentials on forced sign-out", "error", err)
	}

	s.mu.RLock()
	fn := s.onSignedOut
	s.mu.RUnlock()
	if fn != nil {
		fn(ctx)
	}
	slog.Info("session signed out")
}

type logoutRequest struct {
	Refresh string `json:"refresh"`
}

// Logout revokes the refresh token server-side on a best-effort basis, then
// clears local state regardless of the outcome. Local state, not server
// acknowledgement, is the source of truth for "am I logged in".
func (s *SessionService) Logout(ctx context.Context) error {
	refresh, err := s.creds.RefreshToken(ctx)
	if err != nil {
		slog.Warn("read refresh token for logout", "error", err)
	}

	if refresh != "" {
		revokeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.logoutTimeout)
		if err := s.client.Do(revokeCtx, http.MethodPost, "auth/logout/", logoutRequest{Refresh: refresh}, nil); err != nil {
			slog.Warn("server-side logout failed; clearing local session anyway", "error", err)
		}
		cancel()
	}

	return s.creds.Clear(ctx)
}

// IsAuthenticated reports whether a stored access token exists and its
// embedded expiry has not passed. It never touches the network. Fail closed:
// a missing, unparseable, or expired token clears the store so the next
// check starts clean.
func (s *SessionService) IsAuthenticated(ctx context.Context) bool {
	token, err := s.creds.AccessToken(ctx)
	if err != nil {
		slog.Warn("read access token", "error", err)
		return false
	}
	if token == "" {
		s.clearStale(ctx)
		return false
	}

	claims, err := model.ParseAccessClaims(token)
	if err != nil {
		slog.Warn("stored access token is unreadable", "error", err)
		s.clearStale(ctx)
		return false
	}
	if claims.Expired(s.now()) {
		s.clearStale(ctx)
		return false
	}
	return true
}

// Validate checks the session against the server with a lightweight
// authenticated call. An authorization failure that survives the
// dispatcher's refresh path clears local state and is reported as a
// session-expired error.
func (s *SessionService) Validate(ctx context.Context) error {
	err := s.client.Do(ctx, http.MethodGet, "auth/me/", nil, nil)
	if err == nil {
		return nil
	}

	if model.IsUnauthorized(err) {
		s.clearStale(ctx)
		return &model.APIError{
			Kind:    model.KindSessionExpired,
			Message: "session is no longer valid",
			Err:     err,
		}
	}
	return err
}

func (s *SessionService) clearStale(ctx context.Context) {
	if err := s.creds.Clear(ctx); err != nil {
		slog.Warn("clear stale credentials", "error", err)
	}
}
