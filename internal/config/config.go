// Package config handles intentbot configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/intentbot/config.yaml, /etc/intentbot/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "intentbot", "config.yaml"))
	}

	paths = append(paths, "/etc/intentbot/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all intentbot configuration.
type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Intent   IntentConfig   `yaml:"intent"`
	Algod    AlgodConfig    `yaml:"algod"`
	IPFS     IPFSConfig     `yaml:"ipfs"`
	Limits   LimitsConfig   `yaml:"limits"`
	DataDir  string         `yaml:"data_dir"`
	LogLevel string         `yaml:"log_level"`
}

// TelegramConfig defines the Bot API connection.
type TelegramConfig struct {
	Token string `yaml:"token"`
	// PollTimeoutSec is the getUpdates long-poll timeout (default 30).
	PollTimeoutSec int `yaml:"poll_timeout_sec"`
}

// IntentConfig defines the language-understanding service used for
// first-pass intent resolution. Any OpenAI-compatible chat completions
// endpoint works; the deterministic fallback parsers cover outages.
type IntentConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"` // default: https://api.perplexity.ai
	Model   string `yaml:"model"`    // default: sonar-pro
}

// AlgodConfig defines the Algorand node connection.
type AlgodConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

// IPFSConfig defines optional Pinata credentials for pinning asset
// metadata. When empty, asset creation proceeds without a metadata URL.
type IPFSConfig struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
}

// LimitsConfig defines the security policy thresholds.
type LimitsConfig struct {
	// MaxMessageLength caps sanitized input length in runes.
	MaxMessageLength int `yaml:"max_message_length"`
	// MaxPasswordAttempts is the strike limit for in-flow failures.
	MaxPasswordAttempts int `yaml:"max_password_attempts"`
	// SessionTimeoutHours expires idle sessions.
	SessionTimeoutHours int `yaml:"session_timeout_hours"`
	// MaxTransactionsPerHour caps value-moving operations per user.
	MaxTransactionsPerHour int `yaml:"max_transactions_per_hour"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		Telegram: TelegramConfig{
			PollTimeoutSec: 30,
		},
		Intent: IntentConfig{
			BaseURL: "https://api.perplexity.ai",
			Model:   "sonar-pro",
		},
		Limits: LimitsConfig{
			MaxMessageLength:       1000,
			MaxPasswordAttempts:    3,
			SessionTimeoutHours:    24,
			MaxTransactionsPerHour: 10,
		},
		DataDir: ".",
	}
}
