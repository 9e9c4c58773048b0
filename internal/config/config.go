// Package config loads server settings from defaults, an optional config
// file, a .env file and STASH_* environment variables, in increasing order
// of precedence. Command line flags are applied last as overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Keys.
const (
	KeyAddr          = "addr"
	KeyDBDriver      = "db.driver"
	KeyDBDSN         = "db.dsn"
	KeyLogLevel      = "log.level"
	KeyLogFile       = "log.file"
	KeyAdminUser     = "admin.user"
	KeyJWTSecret     = "jwt.secret"
	KeyRedisAddr     = "redis.addr"
	KeyRedisUser     = "redis.user"
	KeyRedisPassword = "redis.password"
	KeyCacheTTL      = "cache.ttl"
)

// Config holds the server settings.
type Config struct {
	Addr      string
	DBDriver  string
	DBDSN     string
	LogLevel  slog.Level
	LogFile   string
	AdminUser string
	// JWTSecret overrides the secret stored in the database when set.
	JWTSecret string

	// Caching is disabled when RedisAddr is empty.
	RedisAddr     string
	RedisUser     string
	RedisPassword string
	CacheTTL      time.Duration
}

// Load reads the configuration. file may be empty; overrides maps keys to
// values that win over every other source.
func Load(file string, overrides map[string]any) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetDefault(KeyAddr, ":8080")
	v.SetDefault(KeyDBDriver, "sqlite")
	v.SetDefault(KeyDBDSN, "stash.sqlite3")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyAdminUser, "Admin")
	v.SetDefault(KeyJWTSecret, "")
	v.SetDefault(KeyRedisAddr, "")
	v.SetDefault(KeyRedisUser, "")
	v.SetDefault(KeyRedisPassword, "")
	v.SetDefault(KeyCacheTTL, 5*time.Minute)

	v.SetEnvPrefix("STASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	for k, val := range overrides {
		v.Set(k, val)
	}

	cfg := &Config{
		Addr:          v.GetString(KeyAddr),
		DBDriver:      v.GetString(KeyDBDriver),
		DBDSN:         v.GetString(KeyDBDSN),
		LogFile:       v.GetString(KeyLogFile),
		AdminUser:     v.GetString(KeyAdminUser),
		JWTSecret:     v.GetString(KeyJWTSecret),
		RedisAddr:     v.GetString(KeyRedisAddr),
		RedisUser:     v.GetString(KeyRedisUser),
		RedisPassword: v.GetString(KeyRedisPassword),
		CacheTTL:      v.GetDuration(KeyCacheTTL),
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString(KeyLogLevel))); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", KeyLogLevel, err)
	}
	if cfg.CacheTTL <= 0 {
		return nil, fmt.Errorf("invalid %s: must be positive", KeyCacheTTL)
	}
	return cfg, nil
}

// loadDotEnv loads path into the environment if it exists. Variables that
// are already set are not overwritten.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	} else if err != nil {
		return fmt.Errorf("checking %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}
