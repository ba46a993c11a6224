package config

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// FetchRemote retrieves a routing bootstrap document from a configuration
// service. Startup is the one place retry-with-backoff is wanted: the
// delivery path must never auto-retry, so retryable transport lives here
// only.
func FetchRemote(ctx context.Context, url string) (*RoutingConfig, error) {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.Logger = nil

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid routing bootstrap URL: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("routing bootstrap fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("routing bootstrap fetch returned status %d", resp.StatusCode)
	}

	var remote RoutingConfig
	if err := json.NewDecoder(resp.Body).Decode(&remote); err != nil {
		return nil, fmt.Errorf("failed to decode routing bootstrap: %w", err)
	}
	return &remote, nil
}
