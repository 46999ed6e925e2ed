package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// ErrMissingDatabaseURL is returned when the postgres store is selected
// without a DSN.
var ErrMissingDatabaseURL = errors.New("DATABASE_URL is required (or set STORE=memory)")

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL    string `yaml:"database_url" env:"DATABASE_URL"`
	Store          string `yaml:"store" env:"STORE"`
	ServerPort     string `yaml:"server_port" env:"SERVER_PORT"`
	RedisURL       string `yaml:"redis_url" env:"REDIS_URL"`
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH"`

	OMDbAPIKey  string        `yaml:"omdb_api_key" env:"OMDB_API_KEY"`
	OMDbBaseURL string        `yaml:"omdb_base_url" env:"OMDB_BASE_URL"`
	TMDBAPIKey  string        `yaml:"tmdb_api_key" env:"TMDB_API_KEY"`
	TMDBBaseURL string        `yaml:"tmdb_base_url" env:"TMDB_BASE_URL"`
	UserAgent   string        `yaml:"user_agent" env:"FETCHER_USER_AGENT"`
	Timeout     time.Duration `yaml:"timeout" env:"FETCHER_TIMEOUT"`

	// RefreshSchedule is a six-field cron spec (with seconds). Empty disables
	// the scheduled ratings refresh.
	RefreshSchedule    string `yaml:"refresh_schedule" env:"REFRESH_SCHEDULE"`
	RefreshConcurrency int    `yaml:"refresh_concurrency" env:"REFRESH_CONCURRENCY"`

	LogFile       string `yaml:"log_file" env:"LOG_FILE"`
	LogMaxSizeMB  int    `yaml:"log_max_size_mb" env:"LOG_MAX_SIZE_MB"`
	LogMaxBackups int    `yaml:"log_max_backups" env:"LOG_MAX_BACKUPS"`
	LogMaxAgeDays int    `yaml:"log_max_age_days" env:"LOG_MAX_AGE_DAYS"`
}

const (
	defaultServerPort      = "4000"
	defaultUserAgent       = "WatchVault/1.0"
	defaultTimeout         = 30 * time.Second
	defaultRefreshSchedule = "0 0 4 * * *"
	defaultConcurrency     = 4
	defaultMigrationsPath  = "migrations"
	defaultLogMaxSizeMB    = 10
	defaultLogMaxBackups   = 3
	defaultLogMaxAgeDays   = 28
)

// Load builds config from environment variables.
// If DATABASE_URL is not set, Load tries to load .env.local and .env from the current directory.
// DATABASE_URL is required unless STORE=memory.
func Load() (*Config, error) {
	if os.Getenv("DATABASE_URL") == "" {
		loadEnvFiles()
	}
	c := &Config{
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		Store:           os.Getenv("STORE"),
		ServerPort:      os.Getenv("SERVER_PORT"),
		RedisURL:        os.Getenv("REDIS_URL"),
		MigrationsPath:  os.Getenv("MIGRATIONS_PATH"),
		OMDbAPIKey:      os.Getenv("OMDB_API_KEY"),
		OMDbBaseURL:     os.Getenv("OMDB_BASE_URL"),
		TMDBAPIKey:      os.Getenv("TMDB_API_KEY"),
		TMDBBaseURL:     os.Getenv("TMDB_BASE_URL"),
		UserAgent:       os.Getenv("FETCHER_USER_AGENT"),
		RefreshSchedule: os.Getenv("REFRESH_SCHEDULE"),
		LogFile:         os.Getenv("LOG_FILE"),
	}
	if _, ok := os.LookupEnv("REFRESH_SCHEDULE"); !ok {
		c.RefreshSchedule = defaultRefreshSchedule
	}
	if s := os.Getenv("FETCHER_TIMEOUT"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			c.Timeout = d
		}
	}
	for name, dst := range map[string]*int{
		"REFRESH_CONCURRENCY": &c.RefreshConcurrency,
		"LOG_MAX_SIZE_MB":     &c.LogMaxSizeMB,
		"LOG_MAX_BACKUPS":     &c.LogMaxBackups,
		"LOG_MAX_AGE_DAYS":    &c.LogMaxAgeDays,
	} {
		if s := os.Getenv(name); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			*dst = n
		}
	}
	c.applyDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Store == "" {
		c.Store = StorePostgres
	}
	if c.ServerPort == "" {
		c.ServerPort = defaultServerPort
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.RefreshConcurrency <= 0 {
		c.RefreshConcurrency = defaultConcurrency
	}
	if c.MigrationsPath == "" {
		c.MigrationsPath = defaultMigrationsPath
	}
	if c.LogMaxSizeMB <= 0 {
		c.LogMaxSizeMB = defaultLogMaxSizeMB
	}
	if c.LogMaxBackups <= 0 {
		c.LogMaxBackups = defaultLogMaxBackups
	}
	if c.LogMaxAgeDays <= 0 {
		c.LogMaxAgeDays = defaultLogMaxAgeDays
	}
}

func (c *Config) validate() error {
	switch c.Store {
	case StorePostgres:
		if c.DatabaseURL == "" {
			return ErrMissingDatabaseURL
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown store %q (use %s or %s)", c.Store, StorePostgres, StoreMemory)
	}
	return nil
}
