package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// ServerConfig holds the connection settings for the task server.
type ServerConfig struct {
	// BaseURL is the root URL of the REST API
	// (e.g., https://tasks.example.com).
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// WebSocketURL is the push endpoint. Empty means derive it from
	// BaseURL by swapping the scheme and appending /ws.
	WebSocketURL string `mapstructure:"websocket_url" yaml:"websocket_url"`

	// HeartbeatSec is the keep-alive ping interval for the push
	// connection, in seconds.
	HeartbeatSec int `mapstructure:"heartbeat_sec" yaml:"heartbeat_sec"`

	// ReconnectDelaySec is how long to wait before the single
	// scheduled reconnect attempt after a transport failure.
	ReconnectDelaySec int `mapstructure:"reconnect_delay_sec" yaml:"reconnect_delay_sec"`
}

// MailDigestConfig holds settings for the IMAP notification digest,
// a fallback channel that folds server notification emails into the
// notification list while the push connection is down.
type MailDigestConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Host is the IMAP server address as host:port.
	Host string `mapstructure:"host" yaml:"host"`

	// Username is the mailbox login. The password lives in the
	// system keyring, never in this file.
	Username string `mapstructure:"username" yaml:"username"`

	// Sender is the address notification emails arrive from.
	Sender string `mapstructure:"sender" yaml:"sender"`

	// PollIntervalSec is how often (in seconds) to check the mailbox.
	PollIntervalSec int `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// CredentialsConfig controls where secrets are kept.
type CredentialsConfig struct {
	// Service is the keyring namespace. Point different deployments
	// at different names to keep their credentials apart.
	Service string `mapstructure:"service" yaml:"service"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Server      ServerConfig      `mapstructure:"server" yaml:"server"`
	MailDigest  MailDigestConfig  `mapstructure:"mail_digest" yaml:"mail_digest"`
	Display     DisplayConfig     `mapstructure:"display" yaml:"display"`
	Credentials CredentialsConfig `mapstructure:"credentials" yaml:"credentials"`
}

// WebSocketURL returns the push endpoint, deriving it from BaseURL
// (http -> ws, https -> wss, path /ws) when not set explicitly.
func (c *AppConfig) WebSocketURL() string {
	if c.Server.WebSocketURL != "" {
		return c.Server.WebSocketURL
	}
	base := strings.TrimSuffix(c.Server.BaseURL, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://") + "/ws"
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://") + "/ws"
	default:
		return base + "/ws"
	}
}

// DefaultConfigPath returns the default path for the configuration
// file, located at ~/.config/taskdeck/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "taskdeck", "config.yaml")
}

// DefaultDBPath returns the default path for the local cache database.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "taskdeck.db")
	}
	return filepath.Join(home, ".config", "taskdeck", "taskdeck.db")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			BaseURL:           "http://localhost:8080",
			HeartbeatSec:      20,
			ReconnectDelaySec: 15,
		},
		MailDigest: MailDigestConfig{
			PollIntervalSec: 300,
		},
		Display: DisplayConfig{
			Theme: "default",
		},
		Credentials: CredentialsConfig{
			Service: "taskdeck",
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using
// Viper. If the file does not exist, it returns defaults.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.heartbeat_sec", 20)
	v.SetDefault("server.reconnect_delay_sec", 15)
	v.SetDefault("mail_digest.poll_interval_sec", 300)
	v.SetDefault("display.theme", "default")
	v.SetDefault("credentials.service", "taskdeck")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultAppConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Server.HeartbeatSec <= 0 {
		cfg.Server.HeartbeatSec = 20
	}
	if cfg.Server.ReconnectDelaySec <= 0 {
		cfg.Server.ReconnectDelaySec = 15
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("server", cfg.Server)
	v.Set("mail_digest", cfg.MailDigest)
	v.Set("display", cfg.Display)
	v.Set("credentials", cfg.Credentials)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
