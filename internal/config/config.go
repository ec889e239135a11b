package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	DefaultInterval time.Duration
	DefaultWorkers  int
	Schedule        string
	MaxRetries      int
	RetryDelay      time.Duration

	FetchTimeout       time.Duration
	RecencyWindow      time.Duration
	ValidateNetwork    bool
	ValidationCacheTTL time.Duration

	StoreDriver string
	BoltPath    string

	PGHost     string
	PGPort     int
	PGUser     string
	PGPassword string
	PGDatabase string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ControlAddr string

	LogLevel string
	LogFile  string
}

// Store drivers.
const (
	StorePostgres = "postgres"
	StoreBolt     = "bolt"
	StoreMemory   = "memory"
)

var defaults = map[string]any{
	"cli_app_timer_interval": "3h",
	"cli_app_workers_count":  3,
	"refresh_schedule":       "",
	"refresh_max_retries":    3,
	"refresh_retry_delay":    "30s",
	"fetch_timeout":          "20s",
	"recency_window":         "168h",
	"validate_network":       true,
	"validation_cache_ttl":   "1h",
	"store_driver":           StorePostgres,
	"bolt_path":              "rsswatch.db",
	"postgres_host":          "localhost",
	"postgres_port":          5432,
	"postgres_user":          "postgres",
	"postgres_password":      "changeme",
	"postgres_dbname":        "rsswatch",
	"redis_addr":             "",
	"redis_password":         "",
	"redis_db":               0,
	"control_addr":           "127.0.0.1:8088",
	"log_level":              "info",
	"log_file":               "",
}

// Load reads configuration from defaults, the optional file at path and the
// environment, in increasing order of precedence.
func Load(path string) (Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := Config{
		DefaultInterval:    v.GetDuration("cli_app_timer_interval"),
		DefaultWorkers:     v.GetInt("cli_app_workers_count"),
		Schedule:           v.GetString("refresh_schedule"),
		MaxRetries:         v.GetInt("refresh_max_retries"),
		RetryDelay:         v.GetDuration("refresh_retry_delay"),
		FetchTimeout:       v.GetDuration("fetch_timeout"),
		RecencyWindow:      v.GetDuration("recency_window"),
		ValidateNetwork:    v.GetBool("validate_network"),
		ValidationCacheTTL: v.GetDuration("validation_cache_ttl"),
		StoreDriver:        strings.ToLower(v.GetString("store_driver")),
		BoltPath:           v.GetString("bolt_path"),
		PGHost:             v.GetString("postgres_host"),
		PGPort:             v.GetInt("postgres_port"),
		PGUser:             v.GetString("postgres_user"),
		PGPassword:         v.GetString("postgres_password"),
		PGDatabase:         v.GetString("postgres_dbname"),
		RedisAddr:          v.GetString("redis_addr"),
		RedisPassword:      v.GetString("redis_password"),
		RedisDB:            v.GetInt("redis_db"),
		ControlAddr:        v.GetString("control_addr"),
		LogLevel:           v.GetString("log_level"),
		LogFile:            v.GetString("log_file"),
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the daemon cannot run with.
func (c Config) Validate() error {
	if c.DefaultInterval <= 0 {
		return fmt.Errorf("CLI_APP_TIMER_INTERVAL must be positive, got %s", c.DefaultInterval)
	}
	if c.DefaultWorkers <= 0 {
		return fmt.Errorf("CLI_APP_WORKERS_COUNT must be > 0, got %d", c.DefaultWorkers)
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("REFRESH_MAX_RETRIES must be > 0, got %d", c.MaxRetries)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("REFRESH_RETRY_DELAY must not be negative, got %s", c.RetryDelay)
	}
	if c.RecencyWindow <= 0 {
		return fmt.Errorf("RECENCY_WINDOW must be positive, got %s", c.RecencyWindow)
	}
	switch c.StoreDriver {
	case StorePostgres, StoreBolt, StoreMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	return nil
}

// PostgresURL is the lib/pq connection string.
func (c Config) PostgresURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDatabase,
	)
}
