package config

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		name        string
		configData  string
		envVars     map[string]string
		expectError bool
		check       func(t *testing.T, cfg *Config)
	}{
		{
			name: "Valid config file",
			configData: `
api_port: 8080
jwt:
  secret_key: file-secret
  expires_minutes: 30
`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.APIPort)
				assert.Equal(t, "file-secret", cfg.JWT.SecretKey)
				assert.Equal(t, 30*time.Minute, cfg.TokenTTL())
				assert.Equal(t, "HS256", cfg.JWT.Algorithm)
			},
		},
		{
			name:        "Invalid config file",
			configData:  "api_port: invalid\n",
			expectError: true,
		},
		{
			name:       "Environment variables override",
			configData: "api_port: 8080\n",
			envVars: map[string]string{
				"API_PORT":            "9090",
				"JWT_EXPIRES_MINUTES": "5",
				"COOKIE_SAMESITE":     "Strict",
				"DATABASE_TYPE":       "bolt",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9090, cfg.APIPort)
				assert.Equal(t, 5*time.Minute, cfg.TokenTTL())
				assert.Equal(t, http.SameSiteStrictMode, cfg.CookieSameSite())
				assert.Equal(t, "bolt", cfg.Database.Type)
			},
		},
		{
			name:        "Unsupported algorithm",
			configData:  "jwt:\n  algorithm: RS256\n",
			expectError: true,
		},
		{
			name:        "Empty secret",
			configData:  "jwt:\n  secret_key: \"\"\n",
			expectError: true,
		},
		{
			name:        "Postgres without url",
			configData:  "database:\n  type: postgres\n",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(tempDir, "config.yml")
			require.NoError(t, os.WriteFile(configPath, []byte(tt.configData), 0644))

			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg, err := LoadConfig(configPath)
			if tt.expectError {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.APIPort)
	assert.Equal(t, 15*time.Minute, cfg.TokenTTL())
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL())
	assert.True(t, cfg.Cookie.Secure)
	assert.False(t, cfg.Cookie.HTTPOnly)
	assert.Equal(t, http.SameSiteLaxMode, cfg.CookieSameSite())
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, time.Hour, cfg.ConnMaxLifetime())
	assert.Equal(t, 12, cfg.Password.BcryptCost)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout())
}

func TestLoadConfigFileNotFound(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nonexistent.yml")
	_, err := LoadConfig(configPath)
	assert.Error(t, err)
}

func TestValidateRejectsUnknownSameSite(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	bad := *cfg
	bad.Cookie.SameSite = "sideways"
	assert.Error(t, bad.Validate())
}

func TestUsesDevSecret(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.True(t, cfg.UsesDevSecret())

	t.Setenv("JWT_SECRET_KEY", "a-real-secret")
	cfg, err = LoadConfig("")
	require.NoError(t, err)
	assert.False(t, cfg.UsesDevSecret())
}
