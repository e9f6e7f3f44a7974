package shared

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Repository RepositoryConfig `toml:"repository"`
	Trigger    TriggerConfig    `toml:"trigger"`
	Stats      StatsConfig      `toml:"stats"`
	Publish    PublishConfig    `toml:"publish"`
	Purge      PurgeConfig      `toml:"purge"`
	Database   DatabaseConfig   `toml:"database"`
	Server     ServerConfig     `toml:"server"`
	GitHub     GitHubConfig     `toml:"github"`
}

// RepositoryConfig describes the checked-out playlist repository.
type RepositoryConfig struct {
	Path     string `toml:"path"`
	Remote   string `toml:"remote"`
	Branch   string `toml:"branch"`
	Owner    string `toml:"owner"`
	Name     string `toml:"name"`
	CloneURL string `toml:"clone_url"`
	TokenEnv string `toml:"token_env"`
}

// TriggerConfig contains the push path filters.
type TriggerConfig struct {
	Paths       []string `toml:"paths"`
	IgnorePaths []string `toml:"ignore_paths"`
}

// StatsConfig controls the statistics updater invocation.
type StatsConfig struct {
	Command        []string `toml:"command"`
	OutputDir      string   `toml:"output_dir"`
	Extensions     []string `toml:"extensions"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// PublishConfig contains the commit message and bot identity.
type PublishConfig struct {
	Message     string `toml:"message"`
	AuthorName  string `toml:"author_name"`
	AuthorEmail string `toml:"author_email"`
}

// PurgeConfig contains CDN purge settings.
type PurgeConfig struct {
	Endpoint       string   `toml:"endpoint"`
	DelaySeconds   int      `toml:"delay_seconds"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
	RateLimit      float64  `toml:"rate_limit"`
	Paths          []string `toml:"paths"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains webhook server settings.
type ServerConfig struct {
	Host             string `toml:"host"`
	Port             int    `toml:"port"`
	WebhookSecretEnv string `toml:"webhook_secret_env"`
}

// GitHubConfig contains settings for remote workflow dispatch.
type GitHubConfig struct {
	APIURL   string `toml:"api_url"`
	Workflow string `toml:"workflow"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate reports the first structural problem in the configuration.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Repository.Path) == "":
		return fmt.Errorf("%w: repository.path is required", ErrInvalidConfig)
	case strings.TrimSpace(c.Repository.Branch) == "":
		return fmt.Errorf("%w: repository.branch is required", ErrInvalidConfig)
	case len(c.Trigger.Paths) == 0:
		return fmt.Errorf("%w: trigger.paths must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.Publish.Message) == "":
		return fmt.Errorf("%w: publish.message is required", ErrInvalidConfig)
	case c.Purge.DelaySeconds < 0:
		return fmt.Errorf("%w: purge.delay_seconds must not be negative", ErrInvalidConfig)
	case c.Stats.TimeoutSeconds < 0:
		return fmt.Errorf("%w: stats.timeout_seconds must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Token returns the repository token from the configured environment variable, looked up with getenv.
// A nil getenv reads the process environment.
func (c *Config) Token(getenv func(string) string) string {
	return lookupEnv(c.Repository.TokenEnv, getenv)
}

// WebhookSecret returns the webhook signing secret from the configured environment variable.
func (c *Config) WebhookSecret(getenv func(string) string) string {
	return lookupEnv(c.Server.WebhookSecretEnv, getenv)
}

func lookupEnv(name string, getenv func(string) string) string {
	if name == "" {
		return ""
	}
	if getenv == nil {
		getenv = os.Getenv
	}
	return getenv(name)
}

// PurgeDelay returns the pause before cache purge requests.
func (c *Config) PurgeDelay() time.Duration {
	return time.Duration(c.Purge.DelaySeconds) * time.Second
}

// StatsTimeout returns the updater timeout, zero meaning none.
func (c *Config) StatsTimeout() time.Duration {
	return time.Duration(c.Stats.TimeoutSeconds) * time.Second
}

// ExpandPath substitutes {owner}, {name} and {branch} placeholders.
func (c *Config) ExpandPath(p string) string {
	return strings.NewReplacer(
		"{owner}", c.Repository.Owner,
		"{name}", c.Repository.Name,
		"{repo}", c.Repository.Name,
		"{branch}", c.Repository.Branch,
	).Replace(p)
}

// DatabasePath returns the configured database path, defaulting to plstat/plstat.db under the user config directory.
func (c *Config) DatabasePath() (string, error) {
	if c.Database.Path != "" {
		return c.Database.Path, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("%w: database.path is empty and no user config directory: %v", ErrMissingConfig, err)
	}
	return filepath.Join(dir, "plstat", "plstat.db"), nil
}
