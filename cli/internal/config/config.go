// Package config persists avlctl settings and the API keys issued when
// subscriptions are registered.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	IngestURL string `yaml:"ingest_url"`
	RedisURL  string `yaml:"redis_url"`

	// APIKeys maps subscription identifiers to the keys issued at
	// registration, so send/seed commands do not need --api-key each time.
	APIKeys map[string]string `yaml:"api_keys"`

	path string
}

func Default() *Config {
	return &Config{
		IngestURL: "http://localhost:8080",
		RedisURL:  "redis://localhost:6379",
		APIKeys:   make(map[string]string),
	}
}

func Load(cfgFile string) (*Config, error) {
	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		cfgFile = filepath.Join(home, ".avlctl", "config.yaml")
	}

	cfg := Default()
	cfg.path = cfgFile

	data, err := os.ReadFile(cfgFile)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Save() error {
	if c.path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		c.path = filepath.Join(home, ".avlctl", "config.yaml")
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(c.path, data, 0600)
}

// SaveAPIKey records the key issued for a subscription and persists the file.
func (c *Config) SaveAPIKey(subscriptionID, apiKey string) error {
	if c.APIKeys == nil {
		c.APIKeys = make(map[string]string)
	}
	c.APIKeys[subscriptionID] = apiKey
	return c.Save()
}

// APIKey resolves the stored key for a subscription.
func (c *Config) APIKey(subscriptionID string) (string, error) {
	key, ok := c.APIKeys[subscriptionID]
	if !ok {
		return "", fmt.Errorf("no API key stored for subscription '%s'", subscriptionID)
	}
	return key, nil
}
