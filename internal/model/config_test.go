package model

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.HeartbeatSec != 20 {
		t.Errorf("HeartbeatSec = %d, want 20", cfg.Server.HeartbeatSec)
	}
	if cfg.Server.ReconnectDelaySec != 15 {
		t.Errorf("ReconnectDelaySec = %d, want 15", cfg.Server.ReconnectDelaySec)
	}
	if cfg.Server.BaseURL == "" {
		t.Error("BaseURL default is empty")
	}
}

func TestConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := &AppConfig{
		Server: ServerConfig{
			BaseURL:           "https://tasks.example.com",
			WebSocketURL:      "wss://tasks.example.com/ws",
			HeartbeatSec:      30,
			ReconnectDelaySec: 45,
		},
		MailDigest: MailDigestConfig{
			Enabled:         true,
			Host:            "imap.example.com:993",
			Username:        "ada@example.com",
			Sender:          "noreply@tasks.example.com",
			PollIntervalSec: 600,
		},
		Display: DisplayConfig{Theme: "default"},
	}

	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.Server.BaseURL != cfg.Server.BaseURL {
		t.Errorf("BaseURL = %q", loaded.Server.BaseURL)
	}
	if loaded.Server.ReconnectDelaySec != 45 {
		t.Errorf("ReconnectDelaySec = %d, want 45", loaded.Server.ReconnectDelaySec)
	}
	if !loaded.MailDigest.Enabled || loaded.MailDigest.Host != cfg.MailDigest.Host {
		t.Errorf("mail digest not preserved: %+v", loaded.MailDigest)
	}
}

func TestLoadConfigNormalizesBadIntervals(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("server:\n  base_url: http://localhost:8080\n  heartbeat_sec: -5\n  reconnect_delay_sec: 0\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.HeartbeatSec != 20 || cfg.Server.ReconnectDelaySec != 15 {
		t.Errorf("intervals not normalized: %+v", cfg.Server)
	}
}

func TestWebSocketURLDerivation(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		wsURL   string
		want    string
	}{
		{"explicit wins", "http://a.example", "wss://push.example/stream", "wss://push.example/stream"},
		{"http to ws", "http://tasks.example:8080", "", "ws://tasks.example:8080/ws"},
		{"https to wss", "https://tasks.example/", "", "wss://tasks.example/ws"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultAppConfig()
			cfg.Server.BaseURL = tt.baseURL
			cfg.Server.WebSocketURL = tt.wsURL
			if got := cfg.WebSocketURL(); got != tt.want {
				t.Errorf("WebSocketURL() = %q, want %q", got, tt.want)
			}
		})
	}
}
