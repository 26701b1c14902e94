package shared

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.API.BaseURL != "http://localhost:8000" {
			t.Errorf("expected base URL http://localhost:8000, got %s", config.API.BaseURL)
		}

		if config.API.SubmitTimeoutSecs != 600 {
			t.Errorf("expected submit timeout 600, got %d", config.API.SubmitTimeoutSecs)
		}

		if config.API.StallTimeoutSecs != 45 {
			t.Errorf("expected stall timeout 45, got %d", config.API.StallTimeoutSecs)
		}

		if config.Limits.MaxUploadMB != 50 {
			t.Errorf("expected max upload 50 MB, got %d", config.Limits.MaxUploadMB)
		}

		if config.Database.Path != "convx.db" {
			t.Errorf("expected database path convx.db, got %s", config.Database.Path)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[api]
base_url = "http://converter.internal:9000"
submit_timeout_secs = 120
stall_timeout_secs = 30
poll_rate = 1.0
max_reconnects = 5

[limits]
max_upload_mb = 25

[database]
path = "/custom/path.db"
max_open_conns = 20
max_idle_conns = 10
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.API.BaseURL != "http://converter.internal:9000" {
			t.Errorf("expected base URL http://converter.internal:9000, got %s", config.API.BaseURL)
		}

		if config.API.MaxReconnects != 5 {
			t.Errorf("expected max reconnects 5, got %d", config.API.MaxReconnects)
		}

		if config.Limits.MaxUploadMB != 25 {
			t.Errorf("expected max upload 25 MB, got %d", config.Limits.MaxUploadMB)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}
	})

	t.Run("LoadConfig Missing File", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
			t.Error("expected error loading nonexistent config")
		}
	})
}
