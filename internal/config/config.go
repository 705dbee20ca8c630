// Package config loads application configuration from environment variables.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"time"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	APIBaseURL     string
	DBPath         string
	RequestTimeout time.Duration
	LogoutTimeout  time.Duration
	SecretKey      []byte // 32-byte AES key for credentials at rest; nil disables encryption.
}

// Load reads configuration from environment variables and returns a validated
// Config. FAITHCONNECT_API_BASE_URL is required. Optional variables with
// defaults: FAITHCONNECT_DB_PATH (faithconnect.db),
// FAITHCONNECT_REQUEST_TIMEOUT (30s), FAITHCONNECT_LOGOUT_TIMEOUT (5s).
// FAITHCONNECT_SECRET_KEY, when set, must be 64 hex characters (32 bytes);
// without it tokens are stored unencrypted.
func Load() (*Config, error) {
	baseURL := os.Getenv("FAITHCONNECT_API_BASE_URL")
	if baseURL == "" {
		return nil, fmt.Errorf("FAITHCONNECT_API_BASE_URL is required")
	}

	dbPath := "faithconnect.db"
	if v, ok := os.LookupEnv("FAITHCONNECT_DB_PATH"); ok {
		dbPath = v
	}

	requestTimeout := 30 * time.Second
	if v, ok := os.LookupEnv("FAITHCONNECT_REQUEST_TIMEOUT"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("FAITHCONNECT_REQUEST_TIMEOUT has invalid duration %q: %w", v, err)
		}
		requestTimeout = parsed
	}

	logoutTimeout := 5 * time.Second
	if v, ok := os.LookupEnv("FAITHCONNECT_LOGOUT_TIMEOUT"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("FAITHCONNECT_LOGOUT_TIMEOUT has invalid duration %q: %w", v, err)
		}
		logoutTimeout = parsed
	}

	var secretKey []byte
	if v, ok := os.LookupEnv("FAITHCONNECT_SECRET_KEY"); ok && v != "" {
		decoded, err := hex.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("FAITHCONNECT_SECRET_KEY is not valid hex: %w", err)
		}
		if len(decoded) != 32 {
			return nil, fmt.Errorf("FAITHCONNECT_SECRET_KEY must decode to 32 bytes, got %d", len(decoded))
		}
		secretKey = decoded
	}

	return &Config{
		APIBaseURL:     baseURL,
		DBPath:         dbPath,
		RequestTimeout: requestTimeout,
		LogoutTimeout:  logoutTimeout,
		SecretKey:      secretKey,
	}, nil
}
