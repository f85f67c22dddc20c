package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newStatusServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(s.Close)
	return s
}

func TestUpstreamClient_FetchStatus(t *testing.T) {
	t.Parallel()

	s := newStatusServer(t, http.StatusOK, `{"wg0":{"peers":[{"public_key":"ABCD1234EFGH5678IJKL","peer_name":"alice","endpoint":"1.2.3.4:51820","latest_handshake":1700000000,"rx":2048,"tx":1024}]}}`)

	c := NewUpstreamClientURL(s.URL, time.Second)
	snap, err := c.FetchStatus(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(snap.Interfaces) != 1 || snap.Interfaces[0].Name != "wg0" {
		t.Fatalf("interfaces=%+v", snap.Interfaces)
	}
	if p := snap.Interfaces[0].Peers[0]; p.Rx != 2048 || p.Tx != 1024 || p.PeerName != "alice" {
		t.Fatalf("peer=%+v", p)
	}
}

func TestUpstreamClient_FailuresAreUnavailable(t *testing.T) {
	t.Parallel()

	cases := map[string]*httptest.Server{
		"http 500":       newStatusServer(t, http.StatusInternalServerError, `{"wg0":{"peers":[]}}`),
		"malformed json": newStatusServer(t, http.StatusOK, `{"wg0":`),
		"not an object":  newStatusServer(t, http.StatusOK, `[]`),
		"error body":     newStatusServer(t, http.StatusOK, `{"error":"Unable to fetch WireGuard stats"}`),
	}
	for name, s := range cases {
		c := NewUpstreamClientURL(s.URL, time.Second)
		_, err := c.FetchStatus(context.Background())
		if !errors.Is(err, ErrUpstreamUnavailable) {
			t.Fatalf("%s: err=%v", name, err)
		}
	}
}

func TestUpstreamClient_Timeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer s.Close()
	defer close(release)

	c := NewUpstreamClientURL(s.URL, 50*time.Millisecond)
	start := time.Now()
	_, err := c.FetchStatus(context.Background())
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("err=%v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("timeout not enforced: %v", elapsed)
	}
}

func TestUpstreamClient_ConnectionRefused(t *testing.T) {
	t.Parallel()

	s := httptest.NewServer(http.NotFoundHandler())
	url := s.URL
	s.Close()

	c := NewUpstreamClientURL(url, time.Second)
	if _, err := c.FetchStatus(context.Background()); !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("err=%v", err)
	}
}
