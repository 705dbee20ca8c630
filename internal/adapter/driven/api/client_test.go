package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faith-connect-biz/faithconnect-go/internal/adapter/driven/api"
	"github.com/faith-connect-biz/faithconnect-go/internal/domain/model"
)

// memStore is an in-memory CredentialStore for dispatcher tests.
type memStore struct {
	mu      sync.Mutex
	access  string
	refresh string
}

func (s *memStore) SetTokens(_ context.Context, access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access, s.refresh = access, refresh
	return nil
}

func (s *memStore) SetAccessToken(_ context.Context, access string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = access
	return nil
}

func (s *memStore) AccessToken(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access, nil
}

func (s *memStore) RefreshToken(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refresh, nil
}

func (s *memStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access, s.refresh = "", ""
	return nil
}

func (s *memStore) tokens() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access, s.refresh
}

func newTestClient(t *testing.T, handler http.Handler, store *memStore) *api.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return api.NewClientWithHTTPClient(server.Client(), server.URL, store, 5*time.Second)
}

func TestDo_PublicListOmitsCredential(t *testing.T) {
	var gotAuth string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	})

	store := &memStore{access: "token-abc", refresh: "refresh-abc"}
	client := newTestClient(t, handler, store)

	var out []struct{}
	err := client.Do(context.Background(), http.MethodGet, "businesses/", nil, &out)
	require.NoError(t, err)
	assert.Empty(t, gotAuth, "public list reads must not carry a credential even when one is stored")
}

func TestDo_ProtectedWriteAttachesCredential(t *testing.T) {
	var gotAuth string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{}`))
	})

	store := &memStore{access: "token-abc", refresh: "refresh-abc"}
	client := newTestClient(t, handler, store)

	err := client.Do(context.Background(), http.MethodPost, "businesses/42/reviews/", map[string]int{"rating": 5}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Bearer token-abc", gotAuth)
}

func TestDo_ProtectedWithoutTokenStillDispatched(t *testing.T) {
	var sawRequest bool
	var gotAuth string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawRequest = true
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"authentication required"}`))
	})

	store := &memStore{}
	client := newTestClient(t, handler, store)

	err := client.Do(context.Background(), http.MethodGet, "businesses/42/", nil, nil)
	require.Error(t, err)
	assert.True(t, sawRequest, "no client-side short-circuit: the server decides")
	assert.Empty(t, gotAuth)
	assert.True(t, model.IsUnauthorized(err))
}

func TestDo_RefreshAndRetryOnce(t *testing.T) {
	var protectedCalls, refreshCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh/", func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "refresh-abc", body["refresh"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access":"token-fresh"}`))
	})
	mux.HandleFunc("/businesses/42/", func(w http.ResponseWriter, r *http.Request) {
		protectedCalls.Add(1)
		if r.Header.Get("Authorization") != "Bearer token-fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"42","name":"Grace Bakery"}`))
	})

	store := &memStore{access: "token-stale", refresh: "refresh-abc"}
	client := newTestClient(t, mux, store)

	var out struct {
		Name string `json:"name"`
	}
	err := client.Do(context.Background(), http.MethodGet, "businesses/42/", nil, &out)
	require.NoError(t, err)

	assert.Equal(t, "Grace Bakery", out.Name, "caller observes the retried response")
	assert.Equal(t, int32(2), protectedCalls.Load(), "original call retried exactly once")
	assert.Equal(t, int32(1), refreshCalls.Load())

	access, _ := store.tokens()
	assert.Equal(t, "token-fresh", access, "refreshed token persisted")
}

func TestDo_RetriedRequestStillUnauthorizedIsFatal(t *testing.T) {
	var protectedCalls, refreshCalls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh/", func(w http.ResponseWriter, _ *http.Request) {
		refreshCalls.Add(1)
		_, _ = w.Write([]byte(`{"access":"token-fresh"}`))
	})
	mux.HandleFunc("/businesses/42/", func(w http.ResponseWriter, _ *http.Request) {
		protectedCalls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	store := &memStore{access: "token-stale", refresh: "refresh-abc"}
	client := newTestClient(t, mux, store)

	var expired atomic.Bool
	client.SetSessionExpiredHandler(func(ctx context.Context) {
		expired.Store(true)
		_ = store.Clear(ctx)
	})

	err := client.Do(context.Background(), http.MethodGet, "businesses/42/", nil, nil)
	require.Error(t, err)
	assert.True(t, model.IsUnauthorized(err))

	assert.Equal(t, int32(2), protectedCalls.Load())
	assert.Equal(t, int32(1), refreshCalls.Load(), "never refresh twice for the same logical call")
	assert.True(t, expired.Load())
}

func TestDo_RefreshFailureClearsSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"refresh token revoked"}`))
	})
	mux.HandleFunc("/businesses/42/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	store := &memStore{access: "token-stale", refresh: "refresh-dead"}
	client := newTestClient(t, mux, store)

	client.SetSessionExpiredHandler(func(ctx context.Context) {
		_ = store.Clear(ctx)
	})

	err := client.Do(context.Background(), http.MethodGet, "businesses/42/", nil, nil)
	require.Error(t, err)
	assert.True(t, model.IsUnauthorized(err), "caller sees the original authorization failure")

	access, refresh := store.tokens()
	assert.Empty(t, access)
	assert.Empty(t, refresh)
}

func TestDo_ConcurrentUnauthorizedCoalescesRefresh(t *testing.T) {
	const workers = 2

	var refreshCalls atomic.Int32
	staleArrived := make(chan struct{}, workers)
	releaseStale := make(chan struct{})

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh/", func(w http.ResponseWriter, _ *http.Request) {
		refreshCalls.Add(1)
		// Slow exchange keeps the in-flight window open so the second 401
		// handler joins it instead of starting its own.
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"access":"token-fresh"}`))
	})
	mux.HandleFunc("/businesses/42/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer token-fresh" {
			_, _ = w.Write([]byte(`{"id":"42"}`))
			return
		}
		// Hold both stale requests until both have arrived, so both 401s
		// land at nearly the same time.
		staleArrived <- struct{}{}
		<-releaseStale
		w.WriteHeader(http.StatusUnauthorized)
	})

	store := &memStore{access: "token-stale", refresh: "refresh-abc"}
	client := newTestClient(t, mux, store)

	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = client.Do(context.Background(), http.MethodGet, "businesses/42/", nil, nil)
		}(i)
	}

	for i := 0; i < workers; i++ {
		<-staleArrived
	}
	close(releaseStale)
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "request %d", i)
	}
	assert.Equal(t, int32(1), refreshCalls.Load(), "exactly one refresh for concurrent 401s")
}

func TestDo_ServerRejectedMessagePriority(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "field errors win",
			body: `{"errors":{"rating":["rating must be between 1 and 5"]},"message":"validation failed","detail":"bad request"}`,
			want: "rating must be between 1 and 5",
		},
		{
			name: "field error as plain string",
			body: `{"errors":{"contact":"contact is required"}}`,
			want: "contact is required",
		},
		{
			name: "message over detail",
			body: `{"message":"business already claimed","detail":"conflict"}`,
			want: "business already claimed",
		},
		{
			name: "detail alone",
			body: `{"detail":"not found"}`,
			want: "not found",
		},
		{
			name: "unstructured body falls back to status text",
			body: `<html>boom</html>`,
			want: "Bad Request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(tt.body))
			})
			client := newTestClient(t, handler, &memStore{})

			err := client.Do(context.Background(), http.MethodPost, "auth/initiate/", map[string]string{}, nil)
			require.Error(t, err)

			var apiErr *model.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, model.KindServerRejected, apiErr.Kind)
			assert.Equal(t, http.StatusBadRequest, apiErr.Status)
			assert.Equal(t, tt.want, apiErr.Message)
		})
	}
}

func TestDo_TimeoutClassification(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := api.NewClientWithHTTPClient(server.Client(), server.URL, &memStore{}, 50*time.Millisecond)

	err := client.Do(context.Background(), http.MethodGet, "businesses/", nil, nil)
	require.Error(t, err)
	assert.True(t, model.IsTimeout(err), "slow server surfaces as timeout, got: %v", err)
}

func TestDo_UnreachableClassification(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := api.NewClientWithHTTPClient(&http.Client{}, url, &memStore{}, time.Second)

	err := client.Do(context.Background(), http.MethodGet, "businesses/", nil, nil)
	require.Error(t, err)
	assert.True(t, model.IsNetworkUnreachable(err), "dead server surfaces as unreachable, got: %v", err)
}

func TestDo_UnwrapsDataEnvelope(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":"1","name":"Hope Cafe"}]}`))
	})
	client := newTestClient(t, handler, &memStore{})

	var out []struct {
		Name string `json:"name"`
	}
	err := client.Do(context.Background(), http.MethodGet, "businesses/", nil, &out)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Hope Cafe", out[0].Name)
}

func TestDo_BarePayloadWithoutEnvelope(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"1","name":"Hope Cafe"},{"id":"2","name":"Grace Bakery"}]`))
	})
	client := newTestClient(t, handler, &memStore{})

	var out []struct {
		Name string `json:"name"`
	}
	err := client.Do(context.Background(), http.MethodGet, "businesses/", nil, &out)
	require.NoError(t, err)
	assert.Len(t, out, 2)
}
