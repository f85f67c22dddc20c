package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `json:"server" yaml:"server"`
	Upstream UpstreamConfig `json:"upstream" yaml:"upstream"`
	Cache    CacheConfig    `json:"cache" yaml:"cache"`
	Stream   StreamConfig   `json:"stream" yaml:"stream"`
	Redis    RedisConfig    `json:"redis" yaml:"redis"`
	GeoIP    GeoIPConfig    `json:"geoip" yaml:"geoip"`
	Peers    PeersConfig    `json:"peers" yaml:"peers"`
}

type ServerConfig struct {
	Port           int      `json:"port" yaml:"port"`
	Host           string   `json:"host" yaml:"host"`
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins"`
}

// UpstreamConfig points at the wg-proxy that serves the JSON dump.
type UpstreamConfig struct {
	Host    string `json:"host" yaml:"host"`
	Port    int    `json:"port" yaml:"port"`
	Timeout int    `json:"timeout_seconds" yaml:"timeout_seconds"`
}

type CacheConfig struct {
	TTL int `json:"ttl_seconds" yaml:"ttl_seconds"`
}

type StreamConfig struct {
	Interval     int `json:"interval_seconds" yaml:"interval_seconds"`
	PollInterval int `json:"poll_interval_seconds" yaml:"poll_interval_seconds"`
}

type RedisConfig struct {
	Address  string `json:"address" yaml:"address"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	UseTLS   bool   `json:"use_tls" yaml:"use_tls"`
}

type GeoIPConfig struct {
	DBPath string `json:"db_path" yaml:"db_path"`
}

// PeersConfig names a wg config whose [Peer] comments carry display names.
type PeersConfig struct {
	NamesFile string `json:"names_file" yaml:"names_file"`
}

// Default returns the configuration used when nothing else is supplied.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8123,
			Host:           "0.0.0.0",
			AllowedOrigins: []string{"*"},
		},
		Upstream: UpstreamConfig{
			Host:    "wireguard",
			Port:    51822,
			Timeout: 2,
		},
		Cache: CacheConfig{
			TTL: 2,
		},
		Stream: StreamConfig{
			Interval:     5,
			PollInterval: 10,
		},
		Redis: RedisConfig{
			Address: "localhost:6379",
			Enabled: false,
		},
	}
}

func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load builds the configuration from defaults, an optional config file,
// the environment and finally the given command-line arguments.
func Load(args []string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	configPath := os.Getenv("CONFIG_FILE")
	if configPath == "" {
		configPath = "config/config.json"
	}

	if _, err := os.Stat(configPath); err == nil {
		if err := loadFile(cfg, configPath); err != nil {
			fmt.Printf("Warning: Failed to decode config file: %v\n", err)
		}
	}

	loadEnv(cfg)

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	var serverPort int
	var serverHost string

	fs.IntVar(&serverPort, "port", 0, "Server port")
	fs.StringVar(&serverHost, "host", "", "Server host")

	_ = fs.Parse(args)

	if isFlagPassed(fs, "port") {
		cfg.Server.Port = serverPort
	}
	if isFlagPassed(fs, "host") {
		cfg.Server.Host = serverHost
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return json.Unmarshal(data, cfg)
	}
}

func isFlagPassed(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func envInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if p, err := strconv.Atoi(val); err == nil {
			*dst = p
		}
	}
}

func envBool(key string, dst *bool) {
	if val := os.Getenv(key); val != "" {
		*dst = val == "true" || val == "1"
	}
}

func loadEnv(cfg *Config) {
	// Server configuration
	envInt("SERVER_PORT", &cfg.Server.Port)
	if val := os.Getenv("SERVER_HOST"); val != "" {
		cfg.Server.Host = val
	}
	if val := os.Getenv("ALLOWED_ORIGINS"); val != "" {
		parts := strings.Split(val, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		cfg.Server.AllowedOrigins = parts
	}

	// Upstream wg-proxy
	if val := os.Getenv("WG_CONTAINER"); val != "" {
		cfg.Upstream.Host = val
	}
	envInt("WG_PORT", &cfg.Upstream.Port)
	envInt("WG_TIMEOUT", &cfg.Upstream.Timeout)

	envInt("WG_CACHE_TTL", &cfg.Cache.TTL)
	envInt("STREAM_INTERVAL", &cfg.Stream.Interval)
	envInt("POLL_INTERVAL", &cfg.Stream.PollInterval)

	// Redis configuration
	if val := os.Getenv("REDIS_ADDRESS"); val != "" {
		cfg.Redis.Address = val
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		cfg.Redis.Password = val
	}
	envInt("REDIS_DB", &cfg.Redis.DB)
	envBool("REDIS_ENABLED", &cfg.Redis.Enabled)
	envBool("REDIS_USE_TLS", &cfg.Redis.UseTLS)

	if val := os.Getenv("GEOIP_DB_PATH"); val != "" {
		cfg.GeoIP.DBPath = val
	}
	if val := os.Getenv("PEER_NAMES_FILE"); val != "" {
		cfg.Peers.NamesFile = val
	}
}

// Validate rejects values the services cannot run with.
func (c *Config) Validate() error {
	if c.Upstream.Host == "" {
		return fmt.Errorf("upstream host is required")
	}
	if c.Upstream.Port <= 0 || c.Upstream.Port > 65535 {
		return fmt.Errorf("invalid upstream port %d", c.Upstream.Port)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("upstream timeout must be positive")
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache ttl must not be negative")
	}
	if c.Stream.Interval <= 0 || c.Stream.PollInterval <= 0 {
		return fmt.Errorf("stream and poll intervals must be positive")
	}
	return nil
}

// UpstreamURL is the address the wg-proxy answers on.
func (c *Config) UpstreamURL() string {
	return fmt.Sprintf("http://%s:%d/", c.Upstream.Host, c.Upstream.Port)
}

func (c *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Helper methods for duration conversion
func (c *Config) UpstreamTimeoutDuration() time.Duration {
	return time.Duration(c.Upstream.Timeout) * time.Second
}

func (c *Config) CacheTTLDuration() time.Duration {
	return time.Duration(c.Cache.TTL) * time.Second
}

func (c *Config) StreamIntervalDuration() time.Duration {
	return time.Duration(c.Stream.Interval) * time.Second
}

func (c *Config) PollIntervalDuration() time.Duration {
	return time.Duration(c.Stream.PollInterval) * time.Second
}
