package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
)

// Cache backends.
const (
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

var (
	ErrUnknownBackend     = errors.New("unknown cache backend")
	ErrMissingRedisURL    = errors.New("redis cache backend requires REDIS_URL")
	ErrMissingDatabaseURL = errors.New("postgres cache backend requires DATABASE_URL")
)

// Config holds application configuration.
type Config struct {
	ServerPort  string
	LogLevel    string
	DatabaseURL string
	RedisURL    string
	Sources     Sources
	Refresh     Refresh
	Cache       Cache
	Filter      Filter
}

// Sources describes where playlists come from. URLs is the multi-source list;
// URL is the legacy single-source field, used only when URLs yields nothing.
type Sources struct {
	URL     string
	URLs    []SourceEntry
	M3UPath string
	Timeout time.Duration
}

// SourceEntry is one configured feed. A nil Enabled means enabled.
type SourceEntry struct {
	URL     string `yaml:"url"`
	Name    string `yaml:"name"`
	Enabled *bool  `yaml:"enabled"`
}

// Refresh controls the periodic refresh loop.
type Refresh struct {
	Enabled  bool
	Interval time.Duration
}

// Cache controls the last-good catalog snapshot.
type Cache struct {
	Enabled bool
	Backend string
	Path    string
	MaxAge  time.Duration
}

// Filter holds keyword rules applied to channel names.
type Filter struct {
	Enabled   bool
	Blacklist []string
	Whitelist []string
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		ServerPort: "8080",
		LogLevel:   "info",
		Sources: Sources{
			URL:     "",
			M3UPath: "/tv.m3u",
			Timeout: 10 * time.Second,
		},
		Refresh: Refresh{Enabled: true, Interval: 2 * time.Hour},
		Cache: Cache{
			Enabled: true,
			Backend: BackendFile,
			Path:    "data/channels.json",
			MaxAge:  time.Hour,
		},
	}
}

// Load builds config from environment variables, after applying .env.local
// and .env from the working directory (variables already set win).
func Load() (*Config, error) {
	loadEnvFiles()
	c := Default()
	setString(&c.ServerPort, "PORT")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.RedisURL, "REDIS_URL")

	setString(&c.Sources.URL, "CHANNELVAULT_SOURCE_URL")
	if s := os.Getenv("CHANNELVAULT_SOURCE_URLS"); s != "" {
		c.Sources.URLs = lo.Map(splitList(s), func(u string, _ int) SourceEntry {
			return SourceEntry{URL: u}
		})
	}
	setString(&c.Sources.M3UPath, "CHANNELVAULT_M3U_PATH")
	setDuration(&c.Sources.Timeout, "CHANNELVAULT_TIMEOUT")

	setBool(&c.Refresh.Enabled, "CHANNELVAULT_AUTO_REFRESH")
	setDuration(&c.Refresh.Interval, "CHANNELVAULT_REFRESH_INTERVAL")

	setBool(&c.Cache.Enabled, "CHANNELVAULT_CACHE")
	setString(&c.Cache.Backend, "CHANNELVAULT_CACHE_BACKEND")
	setString(&c.Cache.Path, "CHANNELVAULT_CACHE_PATH")
	setDuration(&c.Cache.MaxAge, "CHANNELVAULT_CACHE_MAX_AGE")

	if s := os.Getenv("CHANNELVAULT_BLACKLIST"); s != "" {
		c.Filter.Blacklist = splitList(s)
	}
	if s := os.Getenv("CHANNELVAULT_WHITELIST"); s != "" {
		c.Filter.Whitelist = splitList(s)
	}
	c.Filter.Enabled = len(c.Filter.Blacklist) > 0 || len(c.Filter.Whitelist) > 0
	setBool(&c.Filter.Enabled, "CHANNELVAULT_FILTER")

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if !c.Cache.Enabled {
		return nil
	}
	switch c.Cache.Backend {
	case BackendFile:
	case BackendRedis:
		if c.RedisURL == "" {
			return ErrMissingRedisURL
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return ErrMissingDatabaseURL
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Cache.Backend)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) {
	if s := os.Getenv(key); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			*dst = d
		}
	}
}

func setBool(dst *bool, key string) {
	if s := os.Getenv(key); s != "" {
		if b, err := strconv.ParseBool(s); err == nil {
			*dst = b
		}
	}
}

func splitList(s string) []string {
	return lo.Compact(lo.Map(strings.Split(s, ","), func(p string, _ int) string {
		return strings.TrimSpace(p)
	}))
}
