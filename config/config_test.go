package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("CONFIG_FILE", "missing.json")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Upstream.Host != "wireguard" || cfg.Upstream.Port != 51822 {
		t.Fatalf("upstream=%s:%d", cfg.Upstream.Host, cfg.Upstream.Port)
	}
	if got := cfg.CacheTTLDuration(); got != 2*time.Second {
		t.Fatalf("ttl=%v", got)
	}
	if got := cfg.StreamIntervalDuration(); got != 5*time.Second {
		t.Fatalf("stream=%v", got)
	}
	if got := cfg.PollIntervalDuration(); got != 10*time.Second {
		t.Fatalf("poll=%v", got)
	}
	if got := cfg.UpstreamURL(); got != "http://wireguard:51822/" {
		t.Fatalf("url=%s", got)
	}
	if cfg.Redis.Enabled {
		t.Fatalf("redis should be off by default")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdirTemp(t)
	t.Setenv("CONFIG_FILE", "missing.json")
	t.Setenv("WG_CONTAINER", "wg-proxy")
	t.Setenv("WG_PORT", "9000")
	t.Setenv("WG_CACHE_TTL", "7")
	t.Setenv("ALLOWED_ORIGINS", "http://a, http://b")
	t.Setenv("REDIS_ENABLED", "1")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.UpstreamURL() != "http://wg-proxy:9000/" {
		t.Fatalf("url=%s", cfg.UpstreamURL())
	}
	if cfg.Cache.TTL != 7 {
		t.Fatalf("ttl=%d", cfg.Cache.TTL)
	}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[1] != "http://b" {
		t.Fatalf("origins=%v", cfg.Server.AllowedOrigins)
	}
	if !cfg.Redis.Enabled {
		t.Fatalf("redis not enabled")
	}
}

func TestLoad_YAMLFileThenFlags(t *testing.T) {
	chdirTemp(t)
	path := filepath.Join(t.TempDir(), "dash.yaml")
	body := "upstream:\n  host: proxy\n  port: 6000\nstream:\n  interval_seconds: 3\n  poll_interval_seconds: 10\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load([]string{"-port", "9999"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Upstream.Host != "proxy" || cfg.Upstream.Port != 6000 {
		t.Fatalf("upstream=%s:%d", cfg.Upstream.Host, cfg.Upstream.Port)
	}
	if cfg.Stream.Interval != 3 {
		t.Fatalf("interval=%d", cfg.Stream.Interval)
	}
	if cfg.Server.Port != 9999 {
		t.Fatalf("port=%d", cfg.Server.Port)
	}
	// untouched by the file
	if cfg.Upstream.Timeout != 2 {
		t.Fatalf("timeout=%d", cfg.Upstream.Timeout)
	}
}

func TestValidate_RejectsBadValues(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Upstream.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected port error")
	}

	cfg = Default()
	cfg.Stream.Interval = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected interval error")
	}

	if err := Default().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}
