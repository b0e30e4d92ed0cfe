// Package config provides configuration loading and management for Semknow.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete Semknow configuration
type Config struct {
	NATS      NATSConfig      `yaml:"nats"`
	Cache     CacheConfig     `yaml:"cache"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Query     QueryConfig     `yaml:"query"`
	Normalize NormalizeConfig `yaml:"normalize"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Endpoints EndpointsConfig `yaml:"endpoints"`
}

// NATSConfig configures the NATS connection backing the cache store
type NATSConfig struct {
	// URL is the NATS server URL (empty = use embedded server)
	URL string `yaml:"url"`
	// Embedded indicates whether to run an embedded NATS server
	Embedded bool `yaml:"embedded"`
	// StoreDir is the embedded server's storage directory (empty = temp dir)
	StoreDir string `yaml:"store_dir"`
}

// CacheConfig configures entry lifetimes
type CacheConfig struct {
	// DefaultTTL applies to ingested documents (0 = no expiry)
	DefaultTTL time.Duration `yaml:"default_ttl"`
	// DiscoveryTTL applies to discovered endpoint descriptors
	DiscoveryTTL time.Duration `yaml:"discovery_ttl"`
}

// FetchConfig configures the document fetcher
type FetchConfig struct {
	// Timeout bounds a whole fetch
	Timeout time.Duration `yaml:"timeout"`
	// MaxContentSize caps fetched payloads in bytes
	MaxContentSize int64 `yaml:"max_content_size"`
	// UserAgent overrides the request User-Agent
	UserAgent string `yaml:"user_agent"`
	// AllowInsecure permits plain HTTP and private addresses (development only)
	AllowInsecure bool `yaml:"allow_insecure"`
}

// QueryConfig configures the SPARQL executor
type QueryConfig struct {
	// Timeout bounds query execution
	Timeout time.Duration `yaml:"timeout"`
	// MaxResponseBytes caps query response bodies
	MaxResponseBytes int64 `yaml:"max_response_bytes"`
}

// NormalizeConfig configures safe-to-load thresholds
type NormalizeConfig struct {
	// MaxTriples marks documents above this count unsafe to load in full
	MaxTriples int `yaml:"max_triples"`
	// MaxBytes marks documents above this size unsafe to load in full
	MaxBytes int `yaml:"max_bytes"`
}

// DiscoveryConfig configures live endpoint discovery
type DiscoveryConfig struct {
	// Enabled turns live discovery on
	Enabled bool `yaml:"enabled"`
	// URL is the catalog endpoint queried for unknown names (empty = default)
	URL string `yaml:"url"`
}

// EndpointsConfig configures user endpoint overrides
type EndpointsConfig struct {
	// OverridesFile is the YAML file of user-defined endpoints
	OverridesFile string `yaml:"overrides_file"`
	// Watch hot-reloads the overrides file on change
	Watch bool `yaml:"watch"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		NATS: NATSConfig{
			URL:      "",
			Embedded: true,
		},
		Cache: CacheConfig{
			DefaultTTL:   0, // No expiry
			DiscoveryTTL: 7 * 24 * time.Hour,
		},
		Fetch: FetchConfig{
			Timeout:        30 * time.Second,
			MaxContentSize: 8 * 1024 * 1024,
			UserAgent:      "semknow/0.1",
		},
		Query: QueryConfig{
			Timeout:          30 * time.Second,
			MaxResponseBytes: 16 * 1024 * 1024,
		},
		Normalize: NormalizeConfig{
			MaxTriples: 5000,
			MaxBytes:   512 * 1024,
		},
		Discovery: DiscoveryConfig{
			Enabled: true,
			URL:     "", // Default catalog
		},
		Endpoints: EndpointsConfig{
			OverridesFile: "",
			Watch:         false,
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be positive")
	}
	if c.Fetch.MaxContentSize <= 0 {
		return fmt.Errorf("fetch.max_content_size must be positive")
	}
	if c.Query.Timeout <= 0 {
		return fmt.Errorf("query.timeout must be positive")
	}
	if c.Normalize.MaxTriples <= 0 {
		return fmt.Errorf("normalize.max_triples must be positive")
	}
	if c.Normalize.MaxBytes <= 0 {
		return fmt.Errorf("normalize.max_bytes must be positive")
	}
	if c.Cache.DiscoveryTTL <= 0 {
		return fmt.Errorf("cache.discovery_ttl must be positive")
	}
	if c.Endpoints.Watch && c.Endpoints.OverridesFile == "" {
		return fmt.Errorf("endpoints.watch requires endpoints.overrides_file")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// An explicit URL means an external server. The embedded default only
	// survives when the file itself says embedded: true.
	var raw struct {
		NATS struct {
			Embedded *bool `yaml:"embedded"`
		} `yaml:"nats"`
	}
	if err := yaml.Unmarshal(data, &raw); err == nil {
		if config.NATS.URL != "" && raw.NATS.Embedded == nil {
			config.NATS.Embedded = false
		}
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
		c.NATS.Embedded = false
	}
	if other.NATS.StoreDir != "" {
		c.NATS.StoreDir = other.NATS.StoreDir
	}

	// Cache
	if other.Cache.DefaultTTL != 0 {
		c.Cache.DefaultTTL = other.Cache.DefaultTTL
	}
	if other.Cache.DiscoveryTTL != 0 {
		c.Cache.DiscoveryTTL = other.Cache.DiscoveryTTL
	}

	// Fetch
	if other.Fetch.Timeout != 0 {
		c.Fetch.Timeout = other.Fetch.Timeout
	}
	if other.Fetch.MaxContentSize != 0 {
		c.Fetch.MaxContentSize = other.Fetch.MaxContentSize
	}
	if other.Fetch.UserAgent != "" {
		c.Fetch.UserAgent = other.Fetch.UserAgent
	}
	if other.Fetch.AllowInsecure {
		c.Fetch.AllowInsecure = true
	}

	// Query
	if other.Query.Timeout != 0 {
		c.Query.Timeout = other.Query.Timeout
	}
	if other.Query.MaxResponseBytes != 0 {
		c.Query.MaxResponseBytes = other.Query.MaxResponseBytes
	}

	// Normalize
	if other.Normalize.MaxTriples != 0 {
		c.Normalize.MaxTriples = other.Normalize.MaxTriples
	}
	if other.Normalize.MaxBytes != 0 {
		c.Normalize.MaxBytes = other.Normalize.MaxBytes
	}

	// Discovery
	if other.Discovery.URL != "" {
		c.Discovery.URL = other.Discovery.URL
	}
	if !other.Discovery.Enabled {
		c.Discovery.Enabled = false
	}

	// Endpoints
	if other.Endpoints.OverridesFile != "" {
		c.Endpoints.OverridesFile = other.Endpoints.OverridesFile
	}
	if other.Endpoints.Watch {
		c.Endpoints.Watch = true
	}
}
