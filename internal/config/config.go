package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port                  string        `mapstructure:"PORT"`
	Env                   string        `mapstructure:"ENV"`
	LogLevel              string        `mapstructure:"LOG_LEVEL"`
	LogFormat             string        `mapstructure:"LOG_FORMAT"`
	DatabaseURL           string        `mapstructure:"DATABASE_URL"`
	DBMaxConns            int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns            int32         `mapstructure:"DB_MIN_CONNS"`
	MigrationsDir         string        `mapstructure:"MIGRATIONS_DIR"`
	CORSOrigins           []string      `mapstructure:"CORS_ORIGINS"`
	AuthSigningKey        string        `mapstructure:"AUTH_SIGNING_KEY"`
	SessionTTL            time.Duration `mapstructure:"SESSION_TTL"`
	RequestTimeout        time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	LoginRateLimitRPS     float64       `mapstructure:"LOGIN_RATE_LIMIT_RPS"`
	LoginRateLimitBurst   int           `mapstructure:"LOGIN_RATE_LIMIT_BURST"`
	OpenAdminRegistration bool          `mapstructure:"OPEN_ADMIN_REGISTRATION"`
	IdentityStore         string        `mapstructure:"IDENTITY_STORE"`
	IdentitySQLitePath    string        `mapstructure:"IDENTITY_SQLITE_PATH"`
}

// devSigningKey is only filled in when ENV=development is set explicitly.
const devSigningKey = "dentaldesk-development-signing-key-not-for-prod"

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("MIGRATIONS_DIR", "")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("SESSION_TTL", "12h")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("LOGIN_RATE_LIMIT_RPS", 5)
	v.SetDefault("LOGIN_RATE_LIMIT_BURST", 10)
	v.SetDefault("OPEN_ADMIN_REGISTRATION", false)
	v.SetDefault("IDENTITY_STORE", "postgres")
	v.SetDefault("IDENTITY_SQLITE_PATH", "data/identities.db")

	for _, key := range []string{
		"PORT", "ENV", "LOG_LEVEL", "LOG_FORMAT",
		"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "MIGRATIONS_DIR",
		"CORS_ORIGINS", "AUTH_SIGNING_KEY", "SESSION_TTL", "REQUEST_TIMEOUT",
		"LOGIN_RATE_LIMIT_RPS", "LOGIN_RATE_LIMIT_BURST", "OPEN_ADMIN_REGISTRATION",
		"IDENTITY_STORE", "IDENTITY_SQLITE_PATH",
	} {
		_ = v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) <= 1 {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.AuthSigningKey == "" && cfg.IsDev() {
		cfg.AuthSigningKey = devSigningKey
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// UsesDevSigningKey reports whether sessions are signed with the built-in
// development key.
func (c *Config) UsesDevSigningKey() bool {
	return c.AuthSigningKey == devSigningKey
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. ENV must be set.
// Outside development a signing key of at least 32 bytes is required and open
// admin registration is refused in production.
func (c *Config) Validate() error {
	switch c.Env {
	case "development", "staging", "production":
	case "":
		return fmt.Errorf("ENV is required (development, staging or production)")
	default:
		return fmt.Errorf("ENV must be development, staging or production, got %q", c.Env)
	}
	if !c.IsDev() {
		if c.AuthSigningKey == "" {
			return fmt.Errorf("AUTH_SIGNING_KEY is required when ENV=%q", c.Env)
		}
		if c.AuthSigningKey == devSigningKey {
			return fmt.Errorf("AUTH_SIGNING_KEY must not be the development key when ENV=%q", c.Env)
		}
	}
	if len(c.AuthSigningKey) < 32 {
		return fmt.Errorf("AUTH_SIGNING_KEY must be at least 32 bytes, got %d", len(c.AuthSigningKey))
	}
	if c.IsProduction() && c.OpenAdminRegistration {
		return fmt.Errorf("OPEN_ADMIN_REGISTRATION must be false in production")
	}

	switch c.IdentityStore {
	case "postgres":
	case "sqlite":
		if c.IdentitySQLitePath == "" {
			return fmt.Errorf("IDENTITY_SQLITE_PATH is required when IDENTITY_STORE is \"sqlite\"")
		}
	default:
		return fmt.Errorf("IDENTITY_STORE must be \"postgres\" or \"sqlite\", got %q", c.IdentityStore)
	}

	switch c.LogFormat {
	case "json", "console", "ecs":
	default:
		return fmt.Errorf("LOG_FORMAT must be \"json\", \"console\", or \"ecs\", got %q", c.LogFormat)
	}

	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) must not exceed DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	return nil
}
