package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Ledger   LedgerConfig
}

// AppConfig holds process-level configuration
type AppConfig struct {
	Env string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// URL returns the database connection URL
func (c DatabaseConfig) URL() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + strconv.Itoa(c.Port) + "/" + c.DBName + "?sslmode=" + c.SSLMode
}

// RedisConfig holds Redis configuration. Redis only backs the idempotency
// replay cache, so it can be switched off entirely.
type RedisConfig struct {
	Enabled   bool
	URL       string
	Password  string
	ReplayTTL time.Duration
}

// LedgerConfig holds rebuild and reconciliation settings
type LedgerConfig struct {
	RebuildPageSize    int
	RebuildConcurrency int
	ReconcileInterval  time.Duration
	RepairDrift        bool
	ActiveOnly         bool
	Currency           string
}

// env bindings: viper key -> environment variable
var envBindings = map[string]string{
	"app.env":                    "APP_ENV",
	"database.host":              "DB_HOST",
	"database.port":              "DB_PORT",
	"database.user":              "DB_USER",
	"database.password":          "DB_PASSWORD",
	"database.name":              "DB_NAME",
	"database.sslmode":           "DB_SSLMODE",
	"database.max_open_conns":    "DB_MAX_OPEN_CONNS",
	"database.max_idle_conns":    "DB_MAX_IDLE_CONNS",
	"redis.enabled":              "REDIS_ENABLED",
	"redis.url":                  "REDIS_URL",
	"redis.password":             "REDIS_PASSWORD",
	"redis.replay_ttl":           "REDIS_REPLAY_TTL",
	"ledger.rebuild_page_size":   "LEDGER_REBUILD_PAGE_SIZE",
	"ledger.rebuild_concurrency": "LEDGER_REBUILD_CONCURRENCY",
	"ledger.reconcile_interval":  "LEDGER_RECONCILE_INTERVAL",
	"ledger.repair_drift":        "LEDGER_REPAIR_DRIFT",
	"ledger.active_only":         "LEDGER_ACTIVE_ONLY",
	"ledger.currency":            "LEDGER_CURRENCY",
}

var defaults = map[string]interface{}{
	"app.env":                    "development",
	"database.host":              "localhost",
	"database.port":              5432,
	"database.user":              "postgres",
	"database.password":          "postgres",
	"database.name":              "wallet_ledger",
	"database.sslmode":           "disable",
	"database.max_open_conns":    20,
	"database.max_idle_conns":    5,
	"redis.enabled":              false,
	"redis.url":                  "redis://localhost:6379",
	"redis.password":             "",
	"redis.replay_ttl":           24 * time.Hour,
	"ledger.rebuild_page_size":   200,
	"ledger.rebuild_concurrency": 4,
	"ledger.reconcile_interval":  5 * time.Minute,
	"ledger.repair_drift":        false,
	"ledger.active_only":         true,
	"ledger.currency":            "",
}

func newViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}
	return v
}

// Load loads configuration from environment variables
func Load() *Config {
	return fromViper(newViper())
}

// LoadFromFile loads a YAML/JSON/TOML file; environment variables still take precedence
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		App: AppConfig{
			Env: v.GetString("app.env"),
		},
		Database: DatabaseConfig{
			Host:         v.GetString("database.host"),
			Port:         positiveInt(v, "database.port"),
			User:         v.GetString("database.user"),
			Password:     v.GetString("database.password"),
			DBName:       v.GetString("database.name"),
			SSLMode:      v.GetString("database.sslmode"),
			MaxOpenConns: positiveInt(v, "database.max_open_conns"),
			MaxIdleConns: positiveInt(v, "database.max_idle_conns"),
		},
		Redis: RedisConfig{
			Enabled:   v.GetBool("redis.enabled"),
			URL:       v.GetString("redis.url"),
			Password:  v.GetString("redis.password"),
			ReplayTTL: positiveDuration(v, "redis.replay_ttl"),
		},
		Ledger: LedgerConfig{
			RebuildPageSize:    positiveInt(v, "ledger.rebuild_page_size"),
			RebuildConcurrency: positiveInt(v, "ledger.rebuild_concurrency"),
			ReconcileInterval:  positiveDuration(v, "ledger.reconcile_interval"),
			RepairDrift:        v.GetBool("ledger.repair_drift"),
			ActiveOnly:         v.GetBool("ledger.active_only"),
			Currency:           strings.ToUpper(strings.TrimSpace(v.GetString("ledger.currency"))),
		},
	}
}

// positiveInt falls back to the default when the configured value is not a positive integer
func positiveInt(v *viper.Viper, key string) int {
	if n := v.GetInt(key); n > 0 {
		return n
	}
	return defaults[key].(int)
}

func positiveDuration(v *viper.Viper, key string) time.Duration {
	if d := v.GetDuration(key); d > 0 {
		return d
	}
	return defaults[key].(time.Duration)
}
