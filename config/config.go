// Package config carries the process-wide dispatch configuration: the
// override tier preference list and cache defaults. The configuration is
// set once at startup and read-only afterwards; changing it requires an
// explicit re-initialization, never silent mutation.
package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"sigs.k8s.io/yaml"

	"github.com/resourcekit/resourcekit/registry"
)

// Config is the dispatch-layer configuration.
type Config struct {
	// Tiers is the override tier preference list, highest priority first.
	Tiers []string `json:"tiers" env:"RESOURCEKIT_TIERS" envSeparator:","`
	// CacheTTLSeconds is the default cache TTL for wrapped resources.
	CacheTTLSeconds int `json:"cacheTTLSeconds" env:"RESOURCEKIT_CACHE_TTL_SECONDS"`
	// CachePrefix namespaces all cache keys.
	CachePrefix string `json:"cachePrefix" env:"RESOURCEKIT_CACHE_PREFIX"`
}

// CacheTTL returns the configured TTL as a duration.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Tiers:           []string{registry.TierDefault},
		CacheTTLSeconds: 60,
		CachePrefix:     "resource_cache",
	}
}

// Load reads configuration from an optional YAML file and applies
// environment overrides on top.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("could not read config file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("could not parse config file %q: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("could not parse environment config: %w", err)
	}
	if len(cfg.Tiers) == 0 {
		cfg.Tiers = []string{registry.TierDefault}
	}
	return cfg, nil
}

var (
	mu     sync.RWMutex
	active *Config
)

// Init installs the process-wide configuration. It fails if one is
// already installed; call Reset first when a test needs a fresh start.
func Init(cfg Config) error {
	mu.Lock()
	defer mu.Unlock()
	if active != nil {
		return fmt.Errorf("configuration already initialized; explicit Reset required before re-initialization")
	}
	c := cfg
	active = &c
	return nil
}

// Reset clears the process-wide configuration, for test isolation.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	active = nil
}

// Active returns the installed configuration, or Default when none was
// installed.
func Active() Config {
	mu.RLock()
	defer mu.RUnlock()
	if active == nil {
		return Default()
	}
	return *active
}

// Tiers returns a copy of the active tier preference list.
func Tiers() []string {
	cfg := Active()
	tiers := make([]string, len(cfg.Tiers))
	copy(tiers, cfg.Tiers)
	return tiers
}
