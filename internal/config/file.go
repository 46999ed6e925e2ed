package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type fileConfig struct {
	DatabaseURL        string  `yaml:"database_url"`
	Store              string  `yaml:"store"`
	ServerPort         string  `yaml:"server_port"`
	RedisURL           string  `yaml:"redis_url"`
	MigrationsPath     string  `yaml:"migrations_path"`
	OMDbAPIKey         string  `yaml:"omdb_api_key"`
	OMDbBaseURL        string  `yaml:"omdb_base_url"`
	TMDBAPIKey         string  `yaml:"tmdb_api_key"`
	TMDBBaseURL        string  `yaml:"tmdb_base_url"`
	UserAgent          string  `yaml:"user_agent"`
	Timeout            string  `yaml:"timeout"`
	RefreshSchedule    *string `yaml:"refresh_schedule"`
	RefreshConcurrency int     `yaml:"refresh_concurrency"`
	LogFile            string  `yaml:"log_file"`
	LogMaxSizeMB       int     `yaml:"log_max_size_mb"`
	LogMaxBackups      int     `yaml:"log_max_backups"`
	LogMaxAgeDays      int     `yaml:"log_max_age_days"`
}

// LoadFromFile loads config from a YAML file. database_url is required
// unless store is "memory".
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	c := &Config{
		DatabaseURL:        f.DatabaseURL,
		Store:              f.Store,
		ServerPort:         f.ServerPort,
		RedisURL:           f.RedisURL,
		MigrationsPath:     f.MigrationsPath,
		OMDbAPIKey:         f.OMDbAPIKey,
		OMDbBaseURL:        f.OMDbBaseURL,
		TMDBAPIKey:         f.TMDBAPIKey,
		TMDBBaseURL:        f.TMDBBaseURL,
		UserAgent:          f.UserAgent,
		RefreshSchedule:    defaultRefreshSchedule,
		RefreshConcurrency: f.RefreshConcurrency,
		LogFile:            f.LogFile,
		LogMaxSizeMB:       f.LogMaxSizeMB,
		LogMaxBackups:      f.LogMaxBackups,
		LogMaxAgeDays:      f.LogMaxAgeDays,
	}
	if f.RefreshSchedule != nil {
		c.RefreshSchedule = *f.RefreshSchedule
	}
	if f.Timeout != "" {
		d, err := time.ParseDuration(f.Timeout)
		if err != nil {
			return nil, fmt.Errorf("timeout: %w", err)
		}
		c.Timeout = d
	}
	c.applyDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}
