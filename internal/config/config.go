package config

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	APIPort  int    `mapstructure:"api_port"`
	SiteName string `mapstructure:"site_name"`

	JWT struct {
		SecretKey      string `mapstructure:"secret_key"`
		Algorithm      string `mapstructure:"algorithm"`
		ExpiresMinutes int    `mapstructure:"expires_minutes"`
	} `mapstructure:"jwt"`

	Cookie struct {
		Domain   string `mapstructure:"domain"`
		Secure   bool   `mapstructure:"secure"`
		SameSite string `mapstructure:"samesite"`
		HTTPOnly bool   `mapstructure:"httponly"`
	} `mapstructure:"cookie"`

	Session struct {
		TTLMinutes int `mapstructure:"ttl_minutes"`
	} `mapstructure:"session"`

	Database struct {
		Type            string `mapstructure:"type"`
		Path            string `mapstructure:"path"`
		URL             string `mapstructure:"url"`
		MaxOpenConns    int    `mapstructure:"max_open_conns"`
		MaxIdleConns    int    `mapstructure:"max_idle_conns"`
		ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
	} `mapstructure:"database"`

	Password struct {
		BcryptCost int `mapstructure:"bcrypt_cost"`
	} `mapstructure:"password"`

	Seed struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"seed"`

	CORS struct {
		AllowedOrigins []string `mapstructure:"allowed_origins"`
	} `mapstructure:"cors"`

	Server struct {
		RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
	} `mapstructure:"server"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`

	Audit struct {
		S3Endpoint        string `mapstructure:"s3_endpoint"`
		S3Region          string `mapstructure:"s3_region"`
		S3Bucket          string `mapstructure:"s3_bucket"`
		S3Prefix          string `mapstructure:"s3_prefix"`
		S3AccessKeyID     string `mapstructure:"s3_access_key_id"`
		S3SecretAccessKey string `mapstructure:"s3_secret_access_key"`
	} `mapstructure:"audit"`
}

const defaultJWTSecret = "dev-jwt-secret-change-me"

// setDefaults registers every key so that AutomaticEnv can override it even
// when no config file mentions it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("api_port", 8000)
	v.SetDefault("site_name", "SSO Provider")

	v.SetDefault("jwt.secret_key", defaultJWTSecret)
	v.SetDefault("jwt.algorithm", "HS256")
	v.SetDefault("jwt.expires_minutes", 15)

	v.SetDefault("cookie.domain", "")
	v.SetDefault("cookie.secure", true)
	v.SetDefault("cookie.samesite", "Lax")
	v.SetDefault("cookie.httponly", false)

	v.SetDefault("session.ttl_minutes", 24*60)

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.path", "data/sso_provider.db")
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")

	v.SetDefault("password.bcrypt_cost", 12)
	v.SetDefault("seed.enabled", true)
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:*", "http://127.0.0.1:*"})
	v.SetDefault("server.request_timeout_seconds", 15)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("audit.s3_endpoint", "")
	v.SetDefault("audit.s3_region", "us-east-1")
	v.SetDefault("audit.s3_bucket", "")
	v.SetDefault("audit.s3_prefix", "sso-audit")
	v.SetDefault("audit.s3_access_key_id", "")
	v.SetDefault("audit.s3_secret_access_key", "")
}

// LoadConfig loads the configuration from an optional YAML file and the
// environment. An empty path means environment and defaults only.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations the provider cannot safely start with.
func (c *Config) Validate() error {
	if c.APIPort <= 0 || c.APIPort > 65535 {
		return fmt.Errorf("config: api_port %d out of range", c.APIPort)
	}
	if c.JWT.SecretKey == "" {
		return errors.New("config: jwt.secret_key must be set")
	}
	switch c.JWT.Algorithm {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("config: unsupported jwt.algorithm %q", c.JWT.Algorithm)
	}
	if c.JWT.ExpiresMinutes <= 0 {
		return errors.New("config: jwt.expires_minutes must be positive")
	}
	if c.Session.TTLMinutes <= 0 {
		return errors.New("config: session.ttl_minutes must be positive")
	}
	if _, err := parseSameSite(c.Cookie.SameSite); err != nil {
		return err
	}
	switch c.Database.Type {
	case "sqlite", "bolt":
		if c.Database.Path == "" {
			return fmt.Errorf("config: database.path required for %s", c.Database.Type)
		}
	case "postgres":
		if c.Database.URL == "" {
			return errors.New("config: database.url required for postgres")
		}
	default:
		return fmt.Errorf("config: unsupported database.type %q", c.Database.Type)
	}
	return nil
}

// UsesDevSecret reports whether the built-in development signing secret is
// still in place.
func (c *Config) UsesDevSecret() bool {
	return c.JWT.SecretKey == defaultJWTSecret
}

// TokenTTL is the lifetime of every minted SSO token.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.JWT.ExpiresMinutes) * time.Minute
}

// SessionTTL is the lifetime of a server-side session binding.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Session.TTLMinutes) * time.Minute
}

// RequestTimeout bounds each HTTP request, store round-trips included.
func (c *Config) RequestTimeout() time.Duration {
	if c.Server.RequestTimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

// ConnMaxLifetime parses database.conn_max_lifetime, returning 0 when unset or invalid.
func (c *Config) ConnMaxLifetime() time.Duration {
	d, err := time.ParseDuration(c.Database.ConnMaxLifetime)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// CookieSameSite returns the configured SameSite mode for the token cookie.
func (c *Config) CookieSameSite() http.SameSite {
	mode, _ := parseSameSite(c.Cookie.SameSite)
	return mode
}

func parseSameSite(s string) (http.SameSite, error) {
	switch strings.ToLower(s) {
	case "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	case "":
		return http.SameSiteDefaultMode, nil
	}
	return http.SameSiteDefaultMode, fmt.Errorf("config: unsupported cookie.samesite %q", s)
}
