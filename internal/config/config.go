// Package config loads skillsmith's top-level configuration. Parsing detail
// is deliberately thin: the spec treats configuration file loading as an
// external collaborator whose internals are out of scope, so this package
// only carries the shape every other package needs to construct itself.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the top-level application configuration.
type Config struct {
	Database  DatabaseConfig            `yaml:"database"`
	Taxonomy  TaxonomyConfig            `yaml:"taxonomy"`
	JobStore  JobStoreConfig            `yaml:"job_store"`
	Providers map[string]ProviderConfig `yaml:"providers"`
}

// DatabaseConfig holds the durable-tier connection settings.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// TaxonomyConfig points at the on-disk taxonomy root.
type TaxonomyConfig struct {
	Root string `yaml:"root"`
}

// JobStoreConfig configures the two-tier job store's capacity, TTL, and
// sweeper period. Contract (spec §4.4/§9): sweeper period <= TTL / 2.
type JobStoreConfig struct {
	MaxInMemory   int           `yaml:"max_in_memory"`
	TTL           time.Duration `yaml:"ttl"`
	SweeperPeriod time.Duration `yaml:"sweeper_period"`
}

// ProviderConfig holds LM provider settings. APIKey may be stored encrypted
// at rest (see internal/crypto); llm.Registry.LoadAll decrypts it when the
// registry was built with an encryptor.
type ProviderConfig struct {
	Type   string `yaml:"type"`    // e.g. "openai", "gemini", "anthropic"
	URL    string `yaml:"url"`     // base URL, for OpenAI-compatible endpoints
	APIKey string `yaml:"api_key"` // API key, possibly encrypted
}

// defaults returns a Config populated with sensible default values.
func defaults() *Config {
	return &Config{
		Taxonomy: TaxonomyConfig{Root: "taxonomy"},
		JobStore: JobStoreConfig{
			MaxInMemory:   1000,
			TTL:           60 * time.Minute,
			SweeperPeriod: 5 * time.Minute,
		},
		Providers: map[string]ProviderConfig{},
	}
}

// Load reads a YAML configuration file at path, applying any ".env" overlay
// in the current directory first (development convenience, mirrors the
// teacher's direct godotenv dependency).
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if cfg.Providers == nil {
		cfg.Providers = map[string]ProviderConfig{}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault tries to load "config.yaml" from the current directory.
// If the file does not exist, it returns sensible defaults.
func LoadDefault() (*Config, error) {
	cfg, err := Load("config.yaml")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			d := defaults()
			if verr := d.validate(); verr != nil {
				return nil, verr
			}
			return d, nil
		}
		return nil, err
	}
	return cfg, nil
}

// validate enforces the job store's sweeper/TTL contract eagerly, the same
// way upal's config rejects malformed YAML at load time rather than at
// first use.
func (c *Config) validate() error {
	if c.JobStore.SweeperPeriod <= 0 || c.JobStore.TTL <= 0 {
		return fmt.Errorf("job_store: ttl and sweeper_period must be positive")
	}
	if c.JobStore.SweeperPeriod > c.JobStore.TTL/2 {
		return fmt.Errorf("job_store: sweeper_period (%s) must be <= ttl/2 (%s)",
			c.JobStore.SweeperPeriod, c.JobStore.TTL/2)
	}
	if c.JobStore.MaxInMemory <= 0 {
		return fmt.Errorf("job_store: max_in_memory must be positive")
	}
	return nil
}
