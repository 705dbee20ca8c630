package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
)

// refreshPath is the token-exchange endpoint; classified public because the
// proof of identity travels in the body.
const refreshPath = "auth/refresh/"

// errNoRefreshToken means the store holds nothing to exchange; the session
// cannot be recovered.
var errNoRefreshToken = errors.New("no refresh token stored")

// refreshAccessToken exchanges the stored refresh token for a new access
// token and persists it. Concurrent callers are coalesced: singleflight runs
// one exchange and hands its result to everyone waiting, then forgets the
// key so a later, genuinely new expiry starts a fresh exchange.
func (c *Client) refreshAccessToken(ctx context.Context) error {
	_, err, shared := c.refreshGroup.Do("refresh", func() (any, error) {
		// Detach from the triggering request's context so one caller's
		// cancellation cannot abort an exchange others are waiting on.
		return nil, c.doRefresh(context.WithoutCancel(ctx))
	})
	if shared {
		slog.Debug("joined in-flight token refresh")
	}
	return err
}

func (c *Client) doRefresh(ctx context.Context) error {
	refresh, err := c.creds.RefreshToken(ctx)
	if err != nil {
		return fmt.Errorf("read refresh token: %w", err)
	}
	if refresh == "" {
		return errNoRefreshToken
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u, err := url.JoinPath(c.baseURL, refreshPath)
	if err != nil {
		return fmt.Errorf("build refresh url: %w", err)
	}

	payload, err := json.Marshal(map[string]string{"refresh": refresh})
	if err != nil {
		return fmt.Errorf("encode refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return classifyTransportError(http.MethodPost, refreshPath, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read refresh response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("refresh rejected with status %d: %s", resp.StatusCode, rejectionMessage(body, resp.StatusCode))
	}

	token, err := extractAccessToken(body)
	if err != nil {
		return err
	}

	if err := c.creds.SetAccessToken(ctx, token); err != nil {
		return fmt.Errorf("persist refreshed access token: %w", err)
	}

	slog.Debug("access token refreshed")
	return nil
}

// extractAccessToken tolerates every response shape the backend has shipped:
// the new token at top-level "access" or "access_token", or either of those
// nested under a "data" wrapper.
func extractAccessToken(body []byte) (string, error) {
	var payload struct {
		Access      string          `json:"access"`
		AccessToken string          `json:"access_token"`
		Data        json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("decode refresh response: %w", err)
	}

	if payload.Access != "" {
		return payload.Access, nil
	}
	if payload.AccessToken != "" {
		return payload.AccessToken, nil
	}

	if len(payload.Data) > 0 {
		var nested struct {
			Access      string `json:"access"`
			AccessToken string `json:"access_token"`
		}
		if err := json.Unmarshal(payload.Data, &nested); err == nil {
			if nested.Access != "" {
				return nested.Access, nil
			}
			if nested.AccessToken != "" {
				return nested.AccessToken, nil
			}
		}
	}

	return "", errors.New("refresh response carries no access token")
}
