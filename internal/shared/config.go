package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Engine      EngineConfig      `toml:"engine"`
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
}

// EngineConfig contains settings for the application automation engine.
type EngineConfig struct {
	UploadDir             string `toml:"upload_dir"`
	ScreenshotDir         string `toml:"screenshot_dir"`
	CookieDir             string `toml:"cookie_dir"`
	Headless              bool   `toml:"headless"`
	NavigationTimeoutSecs int    `toml:"navigation_timeout_secs"`
	SubmitTimeoutSecs     int    `toml:"submit_timeout_secs"`
	CommitRetries         int    `toml:"commit_retries"`
	DefaultFreeUses       int    `toml:"default_free_uses"`
}

// NavigationTimeout returns the bounded wait for opening an apply URL.
func (e EngineConfig) NavigationTimeout() time.Duration {
	return time.Duration(e.NavigationTimeoutSecs) * time.Second
}

// SubmitTimeout returns the bounded wait for a form submit action.
func (e EngineConfig) SubmitTimeout() time.Duration {
	return time.Duration(e.SubmitTimeoutSecs) * time.Second
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	SerpAPI SerpAPIConfig `toml:"serpapi"`
}

// SerpAPIConfig contains SerpAPI job search credentials.
type SerpAPIConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
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
	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, err)
	}

	// Write the embedded example config to the file
	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadEnvOverrides applies dotenv-style overrides from the given file.
//
// SERP_API_KEY takes precedence over the TOML credentials so the key can stay
// out of checked-in config files.
func (c *Config) LoadEnvOverrides(path string) error {
	vals, err := godotenv.Read(path)
	if err != nil {
		return fmt.Errorf("failed to read env file: %w", err)
	}

	if v := vals["SERP_API_KEY"]; v != "" {
		c.Credentials.SerpAPI.APIKey = v
	}
	if v := vals["AUTOAPPLY_DB"]; v != "" {
		c.Database.Path = v
	}

	return nil
}
