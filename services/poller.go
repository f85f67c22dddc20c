package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"wgdash/models"
)

// Poller is the client side of poll mode: it fetches the dashboard JSON on a
// fixed interval, independent of the server's cache TTL.
type Poller struct {
	url        string
	interval   time.Duration
	httpClient *http.Client
}

func NewPoller(url string, interval time.Duration) *Poller {
	return &Poller{
		url:      url,
		interval: interval,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

func (p *Poller) Fetch(ctx context.Context) (models.AggregateView, error) {
	var view models.AggregateView

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return view, err
	}
	req.Header.Set("Accept", "application/json")

	res, err := p.httpClient.Do(req)
	if err != nil {
		return view, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		msg := strings.TrimSpace(string(body))
		if msg != "" {
			return view, fmt.Errorf("request failed: %s: %s", res.Status, msg)
		}
		return view, fmt.Errorf("request failed: %s", res.Status)
	}

	if err := json.NewDecoder(res.Body).Decode(&view); err != nil {
		return view, fmt.Errorf("decode dashboard: %w", err)
	}
	return view, nil
}

// Run fetches immediately and then once per interval after each attempt
// finishes, handing every result or error to fn. Errors never stop the loop;
// only ctx does.
func (p *Poller) Run(ctx context.Context, fn func(models.AggregateView, error)) {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		view, err := p.Fetch(ctx)
		if ctx.Err() != nil {
			return
		}
		fn(view, err)
		timer.Reset(p.interval)
	}
}
