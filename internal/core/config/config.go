// Package config loads service settings from the environment and an optional
// YAML file. Environment variables win over the file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr       string `yaml:"addr"`
	LogLevel   string `yaml:"log_level"`
	LogConsole bool   `yaml:"log_console"`
	LogSampleN int    `yaml:"log_sample_n"`

	Dataset          string        `yaml:"dataset"`
	DataSource       string        `yaml:"data_source"`
	BoundariesSource string        `yaml:"boundaries_source"`
	SourceTimeout    time.Duration `yaml:"source_timeout"`
	SourceCacheSize  int           `yaml:"source_cache_size"`

	BinCount int `yaml:"bin_count"`
	H3Res    int `yaml:"h3_res"`

	RedisAddr     string        `yaml:"redis_addr"`
	RedisPoolSize int           `yaml:"redis_pool_size"`
	RedisTimeout  time.Duration `yaml:"redis_timeout"`
	MirrorTTL     time.Duration `yaml:"mirror_ttl"`

	MetricsEnabled bool `yaml:"metrics_enabled"`
}

func Defaults() Config {
	return Config{
		Addr:             ":8090",
		LogLevel:         "info",
		Dataset:          "seeg",
		DataSource:       "co2estados(1972-2023).csv",
		BoundariesSource: "br_states.json",
		SourceTimeout:    30 * time.Second,
		SourceCacheSize:  16,
		BinCount:         5,
		H3Res:            4,
		RedisPoolSize:    4,
		RedisTimeout:     2 * time.Second,
		MetricsEnabled:   true,
	}
}

// Load reads CONFIG_FILE (when set) over the defaults and then applies env.
func Load() (Config, error) {
	cfg := Defaults()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if cfg, err = parseYAML(raw, cfg); err != nil {
			return Config{}, fmt.Errorf("config file %s: %w", path, err)
		}
	}
	return applyEnv(cfg).normalize(), nil
}

// FromEnv applies only environment variables over the defaults.
func FromEnv() Config {
	return applyEnv(Defaults()).normalize()
}

func parseYAML(raw []byte, base Config) (Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&base); err != nil {
		if errors.Is(err, io.EOF) {
			return base, nil
		}
		return Config{}, fmt.Errorf("parse yaml: %w", err)
	}
	return base, nil
}

func applyEnv(c Config) Config {
	c.Addr = getenv("ADDR", c.Addr)
	c.LogLevel = getenv("LOG_LEVEL", c.LogLevel)
	c.LogConsole = getbool("LOG_CONSOLE", c.LogConsole)
	c.LogSampleN = getint("LOG_SAMPLE_N", c.LogSampleN)
	c.Dataset = getenv("DATASET", c.Dataset)
	c.DataSource = getenv("DATA_SOURCE", c.DataSource)
	c.BoundariesSource = getenv("BOUNDARIES_SOURCE", c.BoundariesSource)
	c.SourceTimeout = getduration("SOURCE_TIMEOUT", c.SourceTimeout)
	c.SourceCacheSize = getint("SOURCE_CACHE_SIZE", c.SourceCacheSize)
	c.BinCount = getint("BIN_COUNT", c.BinCount)
	c.H3Res = getint("H3_RES", c.H3Res)
	c.RedisAddr = getenv("REDIS_ADDR", c.RedisAddr)
	c.RedisPoolSize = getint("REDIS_POOL_SIZE", c.RedisPoolSize)
	c.RedisTimeout = getduration("REDIS_TIMEOUT", c.RedisTimeout)
	c.MirrorTTL = getduration("MIRROR_TTL", c.MirrorTTL)
	c.MetricsEnabled = getbool("METRICS_ENABLED", c.MetricsEnabled)
	return c
}

func (c Config) normalize() Config {
	if c.BinCount < 2 {
		c.BinCount = 2
	}
	if c.H3Res < 0 {
		c.H3Res = 0
	}
	if c.H3Res > 15 {
		c.H3Res = 15
	}
	if c.SourceCacheSize <= 0 {
		c.SourceCacheSize = 16
	}
	if c.SourceTimeout <= 0 {
		c.SourceTimeout = 30 * time.Second
	}
	if c.RedisPoolSize <= 0 {
		c.RedisPoolSize = 4
	}
	if c.RedisTimeout <= 0 {
		c.RedisTimeout = 2 * time.Second
	}
	if c.MirrorTTL < 0 {
		c.MirrorTTL = 0
	}
	return c
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
