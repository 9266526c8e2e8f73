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
	Backend  BackendConfig  `toml:"backend"`
	Campaign CampaignConfig `toml:"campaign"`
	Export   ExportConfig   `toml:"export"`
	Database DatabaseConfig `toml:"database"`
}

// BackendConfig locates the outreach backend and its endpoints.
type BackendConfig struct {
	BaseURL         string `toml:"base_url"`
	ArtistID        string `toml:"artist_id"`
	FilterPath      string `toml:"filter_path"`
	PreviewPath     string `toml:"preview_path"`
	SendPath        string `toml:"send_path"`
	UploadPath      string `toml:"upload_path"` // contains %s for the artist id
	RequestTimeout  int    `toml:"request_timeout"`
	SendIdleTimeout int    `toml:"send_idle_timeout"`
}

// CampaignConfig holds operator defaults for email campaigns.
type CampaignConfig struct {
	DefaultLanguage string `toml:"default_language"`
	DefaultCap      int    `toml:"default_cap"`
}

// ExportConfig holds defaults for playlist exports.
type ExportConfig struct {
	OutputDir string `toml:"output_dir"`
	Labels    bool   `toml:"labels"`
}

// DatabaseConfig contains database connection settings.
//
// An empty Path disables the send log archive.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// Timeout returns the per-request timeout for JSON exchanges.
func (b BackendConfig) Timeout() time.Duration {
	return time.Duration(b.RequestTimeout) * time.Second
}

// IdleTimeout returns the send stream idle timeout, zero when disabled.
func (b BackendConfig) IdleTimeout() time.Duration {
	if b.SendIdleTimeout <= 0 {
		return 0
	}
	return time.Duration(b.SendIdleTimeout) * time.Second
}

// UploadURLPath expands UploadPath with the given artist id.
func (b BackendConfig) UploadURLPath(artistID string) string {
	if !strings.Contains(b.UploadPath, "%s") {
		return b.UploadPath
	}
	return fmt.Sprintf(b.UploadPath, artistID)
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
