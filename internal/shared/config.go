package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Downloads DownloadsConfig `toml:"downloads"`
	Tools     ToolsConfig     `toml:"tools"`
	Database  DatabaseConfig  `toml:"database"`
	Server    ServerConfig    `toml:"server"`
	Logging   LoggingConfig   `toml:"logging"`
}

// DownloadsConfig controls where and how jobs produce audio files.
type DownloadsConfig struct {
	Dir           string `toml:"dir"`
	Format        string `toml:"format"`
	DefaultExt    string `toml:"default_ext"`
	MaxConcurrent int    `toml:"max_concurrent"`
	Retention     string `toml:"retention"`
	EmbedArtwork  bool   `toml:"embed_artwork"`
}

// ToolsConfig names the external executables. Bare names are resolved through PATH.
type ToolsConfig struct {
	YTDLP  string `toml:"ytdlp"`
	FFmpeg string `toml:"ffmpeg"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host      string  `toml:"host"`
	Port      int     `toml:"port"`
	RateLimit float64 `toml:"rate_limit"`
	Burst     int     `toml:"burst"`
}

// LoggingConfig contains logger settings.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// Addr returns the host:port pair the HTTP server listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RetentionPeriod parses the retention window. Empty or "0" disables eviction.
func (d DownloadsConfig) RetentionPeriod() (time.Duration, error) {
	raw := strings.TrimSpace(d.Retention)
	if raw == "" || raw == "0" {
		return 0, nil
	}
	ttl, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: downloads.retention %q: %v", ErrInvalidConfig, raw, err)
	}
	if ttl < 0 {
		return 0, fmt.Errorf("%w: downloads.retention must not be negative", ErrInvalidConfig)
	}
	return ttl, nil
}

// Validate reports the first setting that cannot be used as-is.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Downloads.Dir) == "" {
		return fmt.Errorf("%w: downloads.dir is required", ErrInvalidConfig)
	}
	if c.Downloads.MaxConcurrent < 0 {
		return fmt.Errorf("%w: downloads.max_concurrent must not be negative", ErrInvalidConfig)
	}
	if _, err := c.Downloads.RetentionPeriod(); err != nil {
		return err
	}
	if c.Tools.YTDLP == "" || c.Tools.FFmpeg == "" {
		return fmt.Errorf("%w: tools.ytdlp and tools.ffmpeg are required", ErrInvalidConfig)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep their default values.
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
