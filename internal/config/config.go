// Package config loads and saves relink's configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/open-cli-collective/relink/pkg/relink"
)

// Store kinds.
const (
	StoreDir        = "dir"
	StoreConfluence = "confluence"
)

const defaultWorkers = 4

// Config is the relink configuration file.
type Config struct {
	Store   string   `yaml:"store"`
	Dir     string   `yaml:"dir,omitempty"`
	Include []string `yaml:"include,omitempty"`
	Exclude []string `yaml:"exclude,omitempty"`
	Workers int      `yaml:"workers,omitempty"`

	URL      string `yaml:"url,omitempty"`
	Email    string `yaml:"email,omitempty"`
	APIToken string `yaml:"api_token,omitempty"`
	Space    string `yaml:"space,omitempty"`

	// Managed extends the built-in managed configuration.
	Managed *relink.Settings `yaml:"managed,omitempty"`
	// Definitions declares macro parameter lists, in order.
	Definitions map[string][]string `yaml:"definitions,omitempty"`

	OutputFormat string `yaml:"output_format,omitempty"`
}

// Validate checks the settings the selected store needs.
func (c *Config) Validate() error {
	switch c.StoreKind() {
	case StoreDir:
		if c.Dir == "" {
			return errors.New("dir is required")
		}
	case StoreConfluence:
		if c.URL == "" {
			return errors.New("url is required")
		}
		if c.Email == "" {
			return errors.New("email is required")
		}
		if c.APIToken == "" {
			return errors.New("api_token is required")
		}
		if c.Space == "" {
			return errors.New("space is required")
		}
		if !strings.HasPrefix(c.URL, "https://") {
			return errors.New("url must use https")
		}
	default:
		return fmt.Errorf("unknown store %q (want %s or %s)", c.Store, StoreDir, StoreConfluence)
	}
	if c.Workers < 0 {
		return errors.New("workers must not be negative")
	}
	if c.Managed != nil {
		if err := c.Managed.Validate(); err != nil {
			return fmt.Errorf("managed: %w", err)
		}
	}
	return nil
}

// StoreKind returns the configured store, defaulting to a directory.
func (c *Config) StoreKind() string {
	if c.Store == "" {
		return StoreDir
	}
	return c.Store
}

// WorkerCount returns how many documents are relinked at once.
func (c *Config) WorkerCount() int {
	if c.Workers <= 0 {
		return defaultWorkers
	}
	return c.Workers
}

// Settings returns the built-in managed configuration extended by the
// file's managed section.
func (c *Config) Settings() *relink.Settings {
	return relink.DefaultSettings().Merge(c.Managed)
}

// DefinitionProvider returns the configured macro definitions.
func (c *Config) DefinitionProvider() relink.Definitions {
	return relink.NewDefinitions(c.Definitions)
}

// NormalizeURL ensures the URL has the /wiki suffix for Confluence Cloud.
func (c *Config) NormalizeURL() {
	if c.URL == "" {
		return
	}
	c.URL = strings.TrimSuffix(c.URL, "/")
	if !strings.HasSuffix(c.URL, "/wiki") {
		c.URL += "/wiki"
	}
}

// EnvVars lists the environment variables LoadFromEnv reads.
var EnvVars = []string{
	"RELINK_DIR", "RELINK_URL", "RELINK_EMAIL", "RELINK_API_TOKEN", "RELINK_SPACE",
	"ATLASSIAN_URL", "ATLASSIAN_EMAIL", "ATLASSIAN_API_TOKEN",
}

// LoadFromEnv overrides settings from the environment. Precedence:
// RELINK_* → ATLASSIAN_* → existing config value.
func (c *Config) LoadFromEnv() {
	if dir := os.Getenv("RELINK_DIR"); dir != "" {
		c.Dir = dir
	}
	if url := getEnvWithFallback("RELINK_URL", "ATLASSIAN_URL"); url != "" {
		c.URL = url
	}
	if email := getEnvWithFallback("RELINK_EMAIL", "ATLASSIAN_EMAIL"); email != "" {
		c.Email = email
	}
	if token := getEnvWithFallback("RELINK_API_TOKEN", "ATLASSIAN_API_TOKEN"); token != "" {
		c.APIToken = token
	}
	if space := os.Getenv("RELINK_SPACE"); space != "" {
		c.Space = space
	}
}

func getEnvWithFallback(primary, fallback string) string {
	if v := os.Getenv(primary); v != "" {
		return v
	}
	return os.Getenv(fallback)
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/relink/config.yml, falling
// back to ~/.config.
func DefaultConfigPath() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "relink", "config.yml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".relink", "config.yml")
	}
	return filepath.Join(home, ".config", "relink", "config.yml")
}

// Save writes the configuration to path, readable only by the user.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Load reads the configuration from path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &cfg, nil
}

// LoadWithEnv loads path if it exists and applies environment overrides.
// A missing file yields an empty configuration; a malformed one is an
// error.
func LoadWithEnv(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		cfg = &Config{}
	}
	cfg.LoadFromEnv()
	return cfg, nil
}
