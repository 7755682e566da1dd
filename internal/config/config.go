// Package config builds the application configuration from the environment using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// Port is the HTTP listen port for cmd/api.
	Port string `mapstructure:"PORT"`
	// Env is the deployment environment reported to Sentry.
	Env string `mapstructure:"APP_ENV"`
	// DatabaseURL is the Postgres DSN used through the pgx stdlib driver.
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	DBMaxOpenConns    int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns    int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetime time.Duration `mapstructure:"DB_CONN_MAX_LIFETIME"`
	DBConnMaxIdleTime time.Duration `mapstructure:"DB_CONN_MAX_IDLE_TIME"`

	// RunMigrations applies the embedded goose migrations during Build.
	RunMigrations bool `mapstructure:"RUN_MIGRATIONS_ON_STARTUP"`

	// AccessTokenSecret and RefreshTokenSecret sign the two token kinds; both are required.
	AccessTokenSecret  string        `mapstructure:"ACCESS_TOKEN_SECRET"`
	RefreshTokenSecret string        `mapstructure:"REFRESH_TOKEN_SECRET"`
	AccessTokenTTL     time.Duration `mapstructure:"ACCESS_TOKEN_TTL"`
	RefreshTokenTTL    time.Duration `mapstructure:"REFRESH_TOKEN_TTL"`
	// BcryptCost is the password hashing work factor (4-31).
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	LoginRateLimitMax    int           `mapstructure:"LOGIN_RATE_LIMIT_MAX"`
	LoginRateLimitWindow time.Duration `mapstructure:"LOGIN_RATE_LIMIT_WINDOW"`
	// RedisURL switches the login limiter to a shared Redis backend when set.
	RedisURL string `mapstructure:"REDIS_URL"`

	// CORSAllowedOrigins is a comma-separated origin list; "*" allows any origin.
	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`

	SentryDSN string `mapstructure:"SENTRY_DSN"`

	// CronSecret protects the maintenance endpoint; empty disables it.
	CronSecret              string `mapstructure:"CRON_SECRET"`
	RefreshCleanupBatchSize int    `mapstructure:"REFRESH_CLEANUP_BATCH_SIZE"`
}

// Load builds and validates Config from the environment.
// A missing database URL or token secret is an error.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "3000")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("DB_CONN_MAX_IDLE_TIME", "10m")
	v.SetDefault("RUN_MIGRATIONS_ON_STARTUP", false)
	v.SetDefault("ACCESS_TOKEN_SECRET", "")
	v.SetDefault("REFRESH_TOKEN_SECRET", "")
	v.SetDefault("ACCESS_TOKEN_TTL", "15m")
	v.SetDefault("REFRESH_TOKEN_TTL", "168h")
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("LOGIN_RATE_LIMIT_MAX", 10)
	v.SetDefault("LOGIN_RATE_LIMIT_WINDOW", "1m")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("SENTRY_DSN", "")
	v.SetDefault("CRON_SECRET", "")
	v.SetDefault("REFRESH_CLEANUP_BATCH_SIZE", 500)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)
	cfg.AccessTokenSecret = strings.TrimSpace(cfg.AccessTokenSecret)
	cfg.RefreshTokenSecret = strings.TrimSpace(cfg.RefreshTokenSecret)

	if cfg.DatabaseURL == "" {
		return nil, errors.New("config: DATABASE_URL must be set")
	}
	if cfg.AccessTokenSecret == "" {
		return nil, errors.New("config: ACCESS_TOKEN_SECRET must be set")
	}
	if cfg.RefreshTokenSecret == "" {
		return nil, errors.New("config: REFRESH_TOKEN_SECRET must be set")
	}
	if cfg.AccessTokenSecret == cfg.RefreshTokenSecret {
		return nil, errors.New("config: ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if cfg.AccessTokenTTL <= 0 {
		cfg.AccessTokenTTL = 15 * time.Minute
	}
	if cfg.RefreshTokenTTL <= 0 {
		cfg.RefreshTokenTTL = 7 * 24 * time.Hour
	}

	return &cfg, nil
}

// AllowedOrigins returns the CORS origins from the comma-separated config.
func (c *Config) AllowedOrigins() []string {
	if c == nil || strings.TrimSpace(c.CORSAllowedOrigins) == "" {
		return []string{"*"}
	}
	parts := strings.Split(c.CORSAllowedOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
