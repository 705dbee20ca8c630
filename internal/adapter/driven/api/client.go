// Package api implements the HTTP dispatcher for the FaithConnect REST API:
// endpoint classification, bearer attachment, bounded timeouts, typed error
// classification, and transparent single-retry token refresh on 401.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gregjones/httpcache"
	"golang.org/x/sync/singleflight"

	"github.com/faith-connect-biz/faithconnect-go/internal/domain/access"
	"github.com/faith-connect-biz/faithconnect-go/internal/domain/model"
	"github.com/faith-connect-biz/faithconnect-go/internal/domain/port/driven"
)

// DefaultTimeout is the per-request ceiling applied when the caller's context
// carries no earlier deadline.
const DefaultTimeout = 30 * time.Second

// retryMarkerKey marks a request context as already retried after a refresh.
// The marker is the one-shot flag that stops refresh→retry loops: a 401 on a
// marked context is fatal, never another refresh.
type retryMarkerKey struct{}

func withRetryMarker(ctx context.Context) context.Context {
	return context.WithValue(ctx, retryMarkerKey{}, true)
}

func hasRetryMarker(ctx context.Context) bool {
	marked, _ := ctx.Value(retryMarkerKey{}).(bool)
	return marked
}

// Client dispatches requests to the FaithConnect API. It consults the access
// classifier per request, attaches the stored bearer credential to protected
// calls, and recovers from an expired access token with at most one refresh
// and one retry per logical request.
type Client struct {
	http    *http.Client
	baseURL string
	creds   driven.CredentialStore
	timeout time.Duration

	// refreshGroup coalesces concurrent refresh attempts: every 401 handler
	// awaits the one in-flight exchange instead of racing its own.
	refreshGroup singleflight.Group

	mu        sync.RWMutex
	onExpired func(context.Context)
}

// NewClient creates a Client for the given base URL. The transport wraps an
// httpcache memory cache so public directory reads are served conditionally
// via ETags. timeout <= 0 selects DefaultTimeout.
func NewClient(baseURL string, creds driven.CredentialStore, timeout time.Duration) *Client {
	httpClient := &http.Client{
		Transport: httpcache.NewMemoryCacheTransport(),
	}
	return newClient(httpClient, baseURL, creds, timeout)
}

// NewClientWithHTTPClient creates a Client with a custom http.Client. This
// constructor is intended for testing, allowing injection of an httptest
// server's client.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string, creds driven.CredentialStore, timeout time.Duration) *Client {
	return newClient(httpClient, baseURL, creds, timeout)
}

func newClient(httpClient *http.Client, baseURL string, creds driven.CredentialStore, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		timeout: timeout,
	}
}

// SetSessionExpiredHandler registers the hook invoked when a session is
// beyond recovery (refresh impossible or the retried call still rejected).
// The session lifecycle service registers itself here at wiring time.
func (c *Client) SetSessionExpiredHandler(fn func(context.Context)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onExpired = fn
}

func (c *Client) notifySessionExpired(ctx context.Context) {
	c.mu.RLock()
	fn := c.onExpired
	c.mu.RUnlock()

	if fn == nil {
		slog.Warn("session expired with no sign-out handler registered")
		return
	}
	// The sign-out must complete even if the triggering request's context
	// is already done.
	fn(context.WithoutCancel(ctx))
}

// Do dispatches one API call and decodes the response payload into out
// (out == nil discards the body). body, when non-nil, is JSON-encoded.
// Failures are returned as *model.APIError; a 401 on a protected call is
// recovered transparently by refreshing the access token and retrying the
// call exactly once.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	data, err := c.dispatch(ctx, method, path, body)
	if err == nil {
		return decodePayload(data, out)
	}

	if !model.IsUnauthorized(err) {
		return err
	}
	if hasRetryMarker(ctx) {
		// Already retried once for this logical request.
		c.notifySessionExpired(ctx)
		return err
	}

	if refreshErr := c.refreshAccessToken(ctx); refreshErr != nil {
		slog.Warn("token refresh failed", "error", refreshErr)
		c.notifySessionExpired(ctx)
		// The caller sees the original authorization failure, not the
		// refresh plumbing.
		return err
	}

	retryCtx := withRetryMarker(ctx)
	data, retryErr := c.dispatch(retryCtx, method, path, body)
	if retryErr != nil {
		if model.IsUnauthorized(retryErr) {
			// A fresh token was still rejected; the session is dead.
			c.notifySessionExpired(retryCtx)
		}
		return retryErr
	}
	return decodePayload(data, out)
}

// dispatch performs a single HTTP round-trip and returns the raw response
// body on success. Transport and HTTP failures come back as *model.APIError.
func (c *Client) dispatch(ctx context.Context, method, path string, body any) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return nil, fmt.Errorf("build request url for %q: %w", path, err)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body for %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("build request for %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	classification := access.Classify(path, method)
	if classification == access.Protected {
		token, err := c.creds.AccessToken(ctx)
		if err != nil {
			slog.Warn("read access token", "error", err)
		}
		// An absent token is dispatched bare and rejected server-side,
		// keeping a single error path for unauthenticated calls.
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransportError(method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &model.APIError{
			Kind:    model.KindNetworkUnreachable,
			Message: fmt.Sprintf("reading response for %s %s", method, path),
			Err:     err,
		}
	}

	slog.Debug("api call",
		"method", method,
		"path", path,
		"classification", classification,
		"status", resp.StatusCode,
	)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, &model.APIError{
			Kind:    model.KindUnauthorized,
			Status:  resp.StatusCode,
			Message: rejectionMessage(data, resp.StatusCode),
		}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &model.APIError{
			Kind:    model.KindServerRejected,
			Status:  resp.StatusCode,
			Message: rejectionMessage(data, resp.StatusCode),
		}
	}

	return data, nil
}

// classifyTransportError separates "the server took too long" from "nothing
// answered at all". The distinction gates the offline fallback: only an
// unreachable backend may activate it.
func classifyTransportError(method, path string, err error) *model.APIError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &model.APIError{
			Kind:    model.KindTimeout,
			Message: fmt.Sprintf("%s %s exceeded its deadline", method, path),
			Err:     err,
		}
	}
	return &model.APIError{
		Kind:    model.KindNetworkUnreachable,
		Message: fmt.Sprintf("%s %s: no response from server", method, path),
		Err:     err,
	}
}

// rejectionMessage extracts the first human-readable explanation from a
// structured error body, in priority order: field-level errors, message,
// detail. Falls back to the standard status text.
func rejectionMessage(body []byte, status int) string {
	var fault struct {
		Errors  map[string]json.RawMessage `json:"errors"`
		Message string                     `json:"message"`
		Detail  string                     `json:"detail"`
	}
	if err := json.Unmarshal(body, &fault); err == nil {
		if msg := firstFieldError(fault.Errors); msg != "" {
			return msg
		}
		if fault.Message != "" {
			return fault.Message
		}
		if fault.Detail != "" {
			return fault.Detail
		}
	}
	return http.StatusText(status)
}

// firstFieldError picks a deterministic first entry from a field-error map,
// whether values are strings or arrays of strings.
func firstFieldError(fields map[string]json.RawMessage) string {
	if len(fields) == 0 {
		return ""
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		raw := fields[k]

		var single string
		if err := json.Unmarshal(raw, &single); err == nil && single != "" {
			return single
		}

		var many []string
		if err := json.Unmarshal(raw, &many); err == nil && len(many) > 0 && many[0] != "" {
			return many[0]
		}
	}
	return ""
}

// decodePayload unwraps an optional {"data": ...} envelope before decoding
// the payload into out.
func decodePayload(data []byte, out any) error {
	if out == nil || len(data) == 0 {
		return nil
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil && len(envelope.Data) > 0 {
		data = envelope.Data
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response payload: %w", err)
	}
	return nil
}
