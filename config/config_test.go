package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig without a file should not fail, got: %v", err)
	}
	if cfg.Session.RoomRefreshInterval != 5*time.Second {
		t.Errorf("Expected default refresh interval 5s, got %v", cfg.Session.RoomRefreshInterval)
	}
	if cfg.Database.Driver != "memory" {
		t.Errorf("Expected default driver memory, got %s", cfg.Database.Driver)
	}
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
server:
  ws_url: ws://example.test/ws
session:
  player_name: Alice
  ack_timeout: 3s
`)
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TWILIGHT_LOG_LEVEL", "debug")

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.WSURL != "ws://example.test/ws" {
		t.Errorf("Expected ws_url from file, got %s", cfg.Server.WSURL)
	}
	if cfg.Session.PlayerName != "Alice" {
		t.Errorf("Expected player name Alice, got %s", cfg.Session.PlayerName)
	}
	if cfg.Session.AckTimeout != 3*time.Second {
		t.Errorf("Expected ack timeout 3s, got %v", cfg.Session.AckTimeout)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Expected log level from env, got %s", cfg.Log.Level)
	}
}
