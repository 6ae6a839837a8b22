package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_defaultsFS(t *testing.T) {
	data, err := defaultsFS.ReadFile("defaults/config")
	require.NoError(t, err)
	for _, key := range []string{"base_url", "login_email", "headless", "timeout_ms", "notify_channels", "color_check"} {
		assert.Contains(t, string(data), key)
	}
}

func TestLoad_WithCustomDir(t *testing.T) {
	configDir := filepath.Join(t.TempDir(), "custom-config")

	cfg, err := Load(configDir)
	require.NoError(t, err)

	assert.Equal(t, configDir, cfg.ConfigDir())
	assert.FileExists(t, filepath.Join(configDir, "config"))
	assert.Equal(t, "http://localhost:8081", cfg.BaseURL)
	assert.Equal(t, "test@example.com", cfg.LoginEmail)
	assert.Equal(t, "chromium", cfg.Browser)
	assert.True(t, cfg.Headless)
	assert.Equal(t, 10*time.Second, cfg.Timeout())
	assert.Equal(t, time.Duration(0), cfg.SlowMo())
	assert.Equal(t, 8081, cfg.StubPort)
}

func TestLoad_DoesNotOverwriteUserConfig(t *testing.T) {
	configDir := filepath.Join(t.TempDir(), "gqlcheck")
	require.NoError(t, os.MkdirAll(configDir, 0o700))

	userConfig := `
base_url = https://courses.example.com/
headless = false
slow_mo_ms = 250
`
	path := filepath.Join(configDir, "config")
	require.NoError(t, os.WriteFile(path, []byte(userConfig), 0o600))

	cfg, err := Load(configDir)
	require.NoError(t, err)

	assert.Equal(t, "https://courses.example.com", cfg.BaseURL, "trailing slash trimmed")
	assert.False(t, cfg.Headless)
	assert.Equal(t, 250*time.Millisecond, cfg.SlowMo())
	// not set by user, comes from embedded defaults
	assert.Equal(t, "test@example.com", cfg.LoginEmail)

	data, err := os.ReadFile(path) //nolint:gosec // test path
	require.NoError(t, err)
	assert.Equal(t, userConfig, string(data))
}

func TestDefaultConfigDir(t *testing.T) {
	dir := DefaultConfigDir()
	assert.NotEmpty(t, dir)
	assert.Contains(t, dir, "gqlcheck")
}

func TestLocalConfig_NoLocalDir(t *testing.T) {
	globalDir := filepath.Join(t.TempDir(), "global")

	cfg, err := loadWithLocal(globalDir, "")
	require.NoError(t, err)

	assert.Equal(t, globalDir, cfg.ConfigDir())
	assert.Empty(t, cfg.LocalDir())
}

func TestLocalConfig_LocalOverridesGlobal(t *testing.T) {
	tmpDir := t.TempDir()
	globalDir := filepath.Join(tmpDir, "global")
	localDir := filepath.Join(tmpDir, ".gqlcheck")
	require.NoError(t, os.MkdirAll(globalDir, 0o700))
	require.NoError(t, os.MkdirAll(localDir, 0o700))

	require.NoError(t, os.WriteFile(filepath.Join(globalDir, "config"), []byte(`
base_url = http://global:8080
login_email = global@example.com
headless = false
color_check = #111111
`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(localDir, "config"), []byte(`
base_url = http://local:9090
headless = true
color_check = #222222
`), 0o600))

	cfg, err := loadWithLocal(globalDir, localDir)
	require.NoError(t, err)

	assert.Equal(t, localDir, cfg.LocalDir())
	assert.Equal(t, "http://local:9090", cfg.BaseURL)
	assert.Equal(t, "global@example.com", cfg.LoginEmail)
	assert.True(t, cfg.Headless)
	assert.Equal(t, "34,34,34", cfg.Colors.Check)
}

func TestLoad_InvalidConfig(t *testing.T) {
	configDir := filepath.Join(t.TempDir(), "gqlcheck")
	require.NoError(t, os.MkdirAll(configDir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config"), []byte("timeout_ms = soon\n"), 0o600))

	_, err := Load(configDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid timeout_ms")
}

func TestLoad_InvalidColor(t *testing.T) {
	configDir := filepath.Join(t.TempDir(), "gqlcheck")
	require.NoError(t, os.MkdirAll(configDir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config"), []byte("color_fail = red\n"), 0o600))

	_, err := Load(configDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load colors")
}
