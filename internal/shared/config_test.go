package shared

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		assert.Equal(t, "http://127.0.0.1:5000", config.Backend.BaseURL)
		assert.Equal(t, "/filter-playlists-ai", config.Backend.FilterPath)
		assert.Equal(t, "/generate-preview-email", config.Backend.PreviewPath)
		assert.Equal(t, "/send-emails", config.Backend.SendPath)
		assert.Equal(t, "English", config.Campaign.DefaultLanguage)
		assert.Equal(t, 300, config.Campaign.DefaultCap)
		assert.Equal(t, "./pitch.db", config.Database.Path)
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		require.NoError(t, CreateConfigFile(configPath))

		config, err := LoadConfig(configPath)
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), config)

		assert.Error(t, CreateConfigFile(configPath), "creating config file again should fail")
	})

	t.Run("LoadConfig", func(t *testing.T) {
		t.Run("overrides keep defaults for missing keys", func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.toml")
			contents := `[backend]
base_url = "http://backend.test"
artist_id = "artist-1"
send_idle_timeout = 45

[export]
labels = true
`
			require.NoError(t, os.WriteFile(configPath, []byte(contents), 0644))

			config, err := LoadConfig(configPath)
			require.NoError(t, err)

			assert.Equal(t, "http://backend.test", config.Backend.BaseURL)
			assert.Equal(t, "artist-1", config.Backend.ArtistID)
			assert.Equal(t, "/send-emails", config.Backend.SendPath)
			assert.Equal(t, 45*time.Second, config.Backend.IdleTimeout())
			assert.True(t, config.Export.Labels)
			assert.Equal(t, "English", config.Campaign.DefaultLanguage)
		})

		t.Run("missing file", func(t *testing.T) {
			_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
			assert.ErrorContains(t, err, "failed to read config file")
		})

		t.Run("malformed file", func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.toml")
			require.NoError(t, os.WriteFile(configPath, []byte("[backend\nbase_url = "), 0644))

			_, err := LoadConfig(configPath)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	})

	t.Run("BackendConfig", func(t *testing.T) {
		b := BackendConfig{UploadPath: "/playlists/%s/upload", RequestTimeout: 10}

		assert.Equal(t, "/playlists/abc/upload", b.UploadURLPath("abc"))
		assert.Equal(t, 10*time.Second, b.Timeout())
		assert.Zero(t, b.IdleTimeout())

		b.UploadPath = "/upload"
		assert.Equal(t, "/upload", b.UploadURLPath("abc"))
	})
}
