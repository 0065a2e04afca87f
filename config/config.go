package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Env     string        `yaml:"env"`
	HTTP    HTTPConfig    `yaml:"http"`
	Remote  RemoteConfig  `yaml:"remote"`
	Refresh RefreshConfig `yaml:"refresh"`
	Redis   RedisConfig   `yaml:"redis"`
}

// HTTPConfig configures the reference booking service.
type HTTPConfig struct {
	Address string `yaml:"address"`
}

// RemoteConfig configures the client side: where the booking service of
// record lives and how its transition endpoints are used.
type RemoteConfig struct {
	BaseURL            string `yaml:"base_url"`
	TimeoutSeconds     int    `yaml:"timeout_seconds"`
	DisablePutFallback bool   `yaml:"disable_put_fallback"`
}

func (r RemoteConfig) Timeout() time.Duration {
	if r.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// RefreshConfig governs the refresh synchronizer.
type RefreshConfig struct {
	ForegroundMinIntervalSeconds int  `yaml:"foreground_min_interval_seconds"`
	KeepStaleSnapshot            bool `yaml:"keep_stale_snapshot"`
}

func (r RefreshConfig) ForegroundMinInterval() time.Duration {
	if r.ForegroundMinIntervalSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(r.ForegroundMinIntervalSeconds) * time.Second
}

// RedisConfig backs the reference service's idempotency store. An empty
// Addr selects the in-memory store instead.
type RedisConfig struct {
	Addr                  string `yaml:"addr"`
	Password              string `yaml:"password"`
	DB                    int    `yaml:"db"`
	IdempotencyTTLMinutes int    `yaml:"idempotency_ttl_minutes"`
}

func (r RedisConfig) IdempotencyTTL() time.Duration {
	if r.IdempotencyTTLMinutes <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(r.IdempotencyTTLMinutes) * time.Minute
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}
