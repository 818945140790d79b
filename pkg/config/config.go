// Package config loads application configuration from a YAML file with
// environment-variable overrides. It provides typed structs for every
// subsystem (Server, Index, Cache, Logging, Metrics). CLI arguments take
// final precedence over anything loaded here.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Index   IndexConfig   `yaml:"index"`
	Cache   CacheConfig   `yaml:"cache"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	MaxResults      int           `yaml:"maxResults"`
}

// IndexConfig controls tokenization and ranking behavior.
type IndexConfig struct {
	// RankMethod selects the scoring function: "tfidf" or "bm25".
	RankMethod string `yaml:"rankMethod"`
	// Stemmer selects the normalization strategy: "none", "porter" or
	// "snowball".
	Stemmer string `yaml:"stemmer"`
	// SnapshotName is the file the serve command keeps inside the indexed
	// directory. Dot-prefixed so the indexer itself skips it.
	SnapshotName string `yaml:"snapshotName"`
}

// CacheConfig holds the optional Redis query cache parameters. When Redis is
// unreachable at startup the server runs without caching.
type CacheConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	TTL      time.Duration `yaml:"ttl"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus exposition endpoint on the main
// server mux.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// Default returns the built-in configuration, used by subcommands that take
// no config file.
func Default() *Config {
	cfg := defaultConfig()
	applyEnvOverrides(cfg)
	return cfg
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address:         "127.0.0.1:6969",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			RequestTimeout:  10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MaxResults:      20,
		},
		Index: IndexConfig{
			RankMethod:   "tfidf",
			Stemmer:      "none",
			SnapshotName: ".docsense.json",
		},
		Cache: CacheConfig{
			Enabled:  false,
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			PoolSize: 10,
			TTL:      60 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// applyEnvOverrides reads DOCSENSE_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DOCSENSE_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("DOCSENSE_SERVER_MAX_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Server.MaxResults = n
		}
	}
	if v := os.Getenv("DOCSENSE_RANK_METHOD"); v != "" {
		cfg.Index.RankMethod = strings.ToLower(v)
	}
	if v := os.Getenv("DOCSENSE_STEMMER"); v != "" {
		cfg.Index.Stemmer = strings.ToLower(v)
	}
	if v := os.Getenv("DOCSENSE_SNAPSHOT_NAME"); v != "" {
		cfg.Index.SnapshotName = v
	}
	if v := os.Getenv("DOCSENSE_CACHE_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Cache.Enabled = enabled
		}
	}
	if v := os.Getenv("DOCSENSE_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("DOCSENSE_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("DOCSENSE_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("DOCSENSE_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("DOCSENSE_METRICS_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Metrics.Enabled = enabled
		}
	}
}
