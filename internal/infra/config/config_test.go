package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const validYAML = `
server:
  addr: ":9090"
store:
  url: "https://store.example.com"
  api_key: "store-key"
auth:
  url: "https://auth.example.com"
  api_key: "auth-key"
`

func TestLoad_Valid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "https://store.example.com", cfg.Store.URL)
	assert.Equal(t, "store-key", cfg.Store.APIKey)
	assert.Equal(t, "auth-key", cfg.Auth.APIKey)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "https://www.googleapis.com/youtube/v3/", cfg.YouTube.BaseURL)
	assert.Equal(t, 5.0, cfg.YouTube.RatePerSec)
	assert.Equal(t, 3, cfg.Player.MaxInitRetries)
	assert.Equal(t, time.Second, cfg.Player.RetryDelay())
	assert.Equal(t, 15*time.Second, cfg.Player.ReadyTimeout())
}

func TestLoad_MissingRequired(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "missing store url",
			yaml: `
store:
  api_key: "store-key"
auth:
  url: "https://auth.example.com"
  api_key: "auth-key"
`,
		},
		{
			name: "missing auth key",
			yaml: `
store:
  url: "https://store.example.com"
  api_key: "store-key"
auth:
  url: "https://auth.example.com"
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("BANDBOX_STORE_KEY", "env-store-key")
	t.Setenv("BANDBOX_AUTH_KEY", "env-auth-key")

	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "env-store-key", cfg.Store.APIKey)
	assert.Equal(t, "env-auth-key", cfg.Auth.APIKey)
}

func TestLoad_FileMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
