// Command healthcheck probes the configured API's health endpoint and exits
// 0/1, for use as a container or CI probe.
package main

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"time"
)

func main() {
	os.Exit(check())
}

func check() int {
	base := os.Getenv("FAITHCONNECT_API_BASE_URL")
	if base == "" {
		base = "http://127.0.0.1:8000/api/v1"
	}

	target, err := url.JoinPath(base, "health/")
	if err != nil {
		return 1
	}

	client := &http.Client{Timeout: 2 * time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 1
	}

	resp, err := client.Do(req)
	if err != nil {
		return 1
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 1
	}

	return 0
}
