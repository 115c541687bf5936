package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./audiograb.db" {
			t.Errorf("expected database path ./audiograb.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 3001 {
			t.Errorf("expected server port 3001, got %d", config.Server.Port)
		}

		if config.Downloads.DefaultExt != ".m4a" {
			t.Errorf("expected default extension .m4a, got %s", config.Downloads.DefaultExt)
		}

		if config.Downloads.MaxConcurrent != 0 {
			t.Errorf("expected unbounded concurrency, got %d", config.Downloads.MaxConcurrent)
		}

		if config.Tools.YTDLP != "yt-dlp" || config.Tools.FFmpeg != "ffmpeg" {
			t.Errorf("unexpected tool defaults: %+v", config.Tools)
		}

		if err := config.Validate(); err != nil {
			t.Errorf("default config should validate: %v", err)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		testConfig := `[downloads]
dir = "/srv/music"
max_concurrent = 3
retention = "30m"

[tools]
ytdlp = "/opt/bin/yt-dlp"

[server]
host = "0.0.0.0"
port = 8080
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Downloads.Dir != "/srv/music" {
			t.Errorf("expected downloads dir /srv/music, got %s", config.Downloads.Dir)
		}
		if config.Downloads.MaxConcurrent != 3 {
			t.Errorf("expected max_concurrent 3, got %d", config.Downloads.MaxConcurrent)
		}
		if config.Tools.YTDLP != "/opt/bin/yt-dlp" {
			t.Errorf("expected ytdlp override, got %s", config.Tools.YTDLP)
		}
		if config.Tools.FFmpeg != "ffmpeg" {
			t.Errorf("unset keys should keep defaults, got ffmpeg=%s", config.Tools.FFmpeg)
		}
		if config.Server.Addr() != "0.0.0.0:8080" {
			t.Errorf("expected addr 0.0.0.0:8080, got %s", config.Server.Addr())
		}

		ttl, err := config.Downloads.RetentionPeriod()
		if err != nil {
			t.Fatalf("unexpected retention error: %v", err)
		}
		if ttl != 30*time.Minute {
			t.Errorf("expected 30m retention, got %v", ttl)
		}
	})

	t.Run("LoadConfig rejects invalid values", func(t *testing.T) {
		tests := []struct {
			name string
			body string
		}{
			{name: "negative concurrency", body: "[downloads]\nmax_concurrent = -1\n"},
			{name: "bad retention", body: "[downloads]\nretention = \"soon\"\n"},
			{name: "empty dir", body: "[downloads]\ndir = \"\"\n"},
			{name: "port out of range", body: "[server]\nport = 70000\n"},
			{name: "malformed toml", body: "[downloads\n"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				configPath := filepath.Join(t.TempDir(), "config.toml")
				if err := os.WriteFile(configPath, []byte(tt.body), 0644); err != nil {
					t.Fatalf("failed to write test config: %v", err)
				}

				_, err := LoadConfig(configPath)
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
			})
		}
	})

	t.Run("RetentionPeriod disabled", func(t *testing.T) {
		for _, raw := range []string{"", "0"} {
			ttl, err := DownloadsConfig{Retention: raw}.RetentionPeriod()
			if err != nil || ttl != 0 {
				t.Errorf("RetentionPeriod(%q) = %v, %v; want 0, nil", raw, ttl, err)
			}
		}
	})
}
