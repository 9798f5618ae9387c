package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_Success(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "app.yml")
	require.NoError(t, os.WriteFile(configPath, []byte("api_port: 1234\n"), 0644))

	t.Setenv("CONFIG_DIR", dir)
	t.Setenv("API_PORT", "5678") // should override file

	cfg, err := Init()
	require.NoError(t, err)
	assert.Equal(t, 5678, cfg.APIPort)
}

func TestInit_MissingFileFallsBackToDefaults(t *testing.T) {
	t.Setenv("CONFIG_DIR", t.TempDir())

	cfg, err := Init()
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.APIPort)
}

func TestInit_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "app.yml")
	require.NoError(t, os.WriteFile(configPath, []byte("api_port: notanumber\n"), 0644))
	t.Setenv("CONFIG_DIR", dir)

	_, err := Init()
	assert.Error(t, err)
}
