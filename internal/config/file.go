package config

import (
	"os"
	"time"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

type fileConfig struct {
	ServerPort  string `yaml:"server_port"`
	LogLevel    string `yaml:"log_level"`
	DatabaseURL string `yaml:"database_url"`
	RedisURL    string `yaml:"redis_url"`
	Sources     struct {
		URL     string        `yaml:"url"`
		URLs    []SourceEntry `yaml:"urls"`
		M3UPath *string       `yaml:"m3u_path"`
		Timeout string        `yaml:"timeout"`
	} `yaml:"sources"`
	Refresh struct {
		Enabled  *bool  `yaml:"enabled"`
		Interval string `yaml:"interval"`
	} `yaml:"refresh"`
	Cache struct {
		Enabled *bool  `yaml:"enabled"`
		Backend string `yaml:"backend"`
		Path    string `yaml:"path"`
		MaxAge  string `yaml:"max_age"`
	} `yaml:"cache"`
	Filter struct {
		Enabled   bool     `yaml:"enabled"`
		Blacklist []string `yaml:"blacklist_keywords"`
		Whitelist []string `yaml:"whitelist_keywords"`
	} `yaml:"filter"`
}

// UnmarshalYAML accepts either a bare URL string or a mapping, so older
// configs listing plain URLs keep working.
func (e *SourceEntry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*e = SourceEntry{URL: node.Value}
		return nil
	}
	type plain SourceEntry
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*e = SourceEntry(p)
	return nil
}

// LoadFromFile loads config from a YAML file. Unset fields keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, oops.With("config_file", path).Wrap(err)
	}
	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, oops.With("config_file", path).Wrapf(err, "parse yaml")
	}

	c := Default()
	setIf(&c.ServerPort, f.ServerPort)
	setIf(&c.LogLevel, f.LogLevel)
	c.DatabaseURL = f.DatabaseURL
	c.RedisURL = f.RedisURL

	c.Sources.URL = f.Sources.URL
	c.Sources.URLs = f.Sources.URLs
	if f.Sources.M3UPath != nil {
		c.Sources.M3UPath = *f.Sources.M3UPath
	}
	if err := parseDurationIf(&c.Sources.Timeout, f.Sources.Timeout); err != nil {
		return nil, oops.With("config_file", path, "field", "sources.timeout").Wrap(err)
	}

	if f.Refresh.Enabled != nil {
		c.Refresh.Enabled = *f.Refresh.Enabled
	}
	if err := parseDurationIf(&c.Refresh.Interval, f.Refresh.Interval); err != nil {
		return nil, oops.With("config_file", path, "field", "refresh.interval").Wrap(err)
	}

	if f.Cache.Enabled != nil {
		c.Cache.Enabled = *f.Cache.Enabled
	}
	setIf(&c.Cache.Backend, f.Cache.Backend)
	setIf(&c.Cache.Path, f.Cache.Path)
	if err := parseDurationIf(&c.Cache.MaxAge, f.Cache.MaxAge); err != nil {
		return nil, oops.With("config_file", path, "field", "cache.max_age").Wrap(err)
	}

	c.Filter = Filter{
		Enabled:   f.Filter.Enabled,
		Blacklist: f.Filter.Blacklist,
		Whitelist: f.Filter.Whitelist,
	}

	if err := c.Validate(); err != nil {
		return nil, oops.With("config_file", path).Wrap(err)
	}
	return c, nil
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func parseDurationIf(dst *time.Duration, s string) error {
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}
