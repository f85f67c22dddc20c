package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"wgdash/config"
	"wgdash/models"
)

// ErrUpstreamUnavailable covers every way the wg-proxy can fail us:
// network errors, timeouts, non-2xx answers and bodies that are not a
// status object.
var ErrUpstreamUnavailable = errors.New("wg-proxy unreachable")

const maxStatusBody = 8 << 20

type UpstreamClient struct {
	url        string
	httpClient *http.Client
}

func NewUpstreamClient(cfg *config.Config) *UpstreamClient {
	return NewUpstreamClientURL(cfg.UpstreamURL(), cfg.UpstreamTimeoutDuration())
}

// NewUpstreamClientURL builds a client for an explicit status URL.
func NewUpstreamClientURL(url string, timeout time.Duration) *UpstreamClient {
	return &UpstreamClient{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        4,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     30 * time.Second,
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
			},
		},
	}
}

func (c *UpstreamClient) URL() string {
	return c.url
}

// FetchStatus issues a single GET. It never retries; the next poll is the retry.
func (c *UpstreamClient) FetchStatus(ctx context.Context) (*models.StatusSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrUpstreamUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxStatusBody))
		return nil, fmt.Errorf("%w: http status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxStatusBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUpstreamUnavailable, err)
	}

	var snapshot models.StatusSnapshot
	if err := json.Unmarshal(body, &snapshot); err != nil {
		return nil, fmt.Errorf("%w: decode status: %v", ErrUpstreamUnavailable, err)
	}

	return &snapshot, nil
}
