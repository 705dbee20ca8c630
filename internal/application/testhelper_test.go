package application_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/faith-connect-biz/faithconnect-go/internal/adapter/driven/api"
	"github.com/faith-connect-biz/faithconnect-go/internal/domain/model"
)

// fakeCreds is an in-memory CredentialStore.
type fakeCreds struct {
	mu      sync.Mutex
	access  string
	refresh string
}

func (s *fakeCreds) SetTokens(_ context.Context, access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access, s.refresh = access, refresh
	return nil
}

func (s *fakeCreds) SetAccessToken(_ context.Context, access string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = access
	return nil
}

func (s *fakeCreds) AccessToken(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access, nil
}

func (s *fakeCreds) RefreshToken(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refresh, nil
}

func (s *fakeCreds) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access, s.refresh = "", ""
	return nil
}

func (s *fakeCreds) tokens() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access, s.refresh
}

// fakeDemos is an in-memory DemoSessionStore.
type fakeDemos struct {
	mu       sync.Mutex
	sessions map[string]model.DemoSession
}

func newFakeDemos() *fakeDemos {
	return &fakeDemos{sessions: make(map[string]model.DemoSession)}
}

func demoKey(contact, method string) string {
	return contact + "|" + method
}

func (s *fakeDemos) Put(_ context.Context, sess model.DemoSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[demoKey(sess.Contact, sess.Method)] = sess
	return nil
}

func (s *fakeDemos) Get(_ context.Context, contact, method string) (*model.DemoSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[demoKey(contact, method)]
	if !ok {
		return nil, nil
	}
	return &sess, nil
}

func (s *fakeDemos) Delete(_ context.Context, contact, method string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, demoKey(contact, method))
	return nil
}

func (s *fakeDemos) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// newServerClient builds an api.Client backed by an httptest server.
func newServerClient(t *testing.T, handler http.Handler, creds *fakeCreds, timeout time.Duration) *api.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return api.NewClientWithHTTPClient(server.Client(), server.URL, creds, timeout)
}

// newDeadClient builds an api.Client pointed at a server that no longer
// exists, so every call fails as network-unreachable.
func newDeadClient(t *testing.T, creds *fakeCreds) *api.Client {
	t.Helper()
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()
	return api.NewClientWithHTTPClient(&http.Client{}, url, creds, time.Second)
}

// signedToken builds an access token with the given subject and expiry. The
// session layer never verifies signatures, so the key is arbitrary.
func signedToken(t *testing.T, subject string, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}
