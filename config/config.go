// Package config loads the library configuration from layered sources:
// built-in defaults, an optional YAML file, then MEDIALIB_* environment
// variables.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix namespaces the environment variables this program reads.
const EnvPrefix = "MEDIALIB_"

// Config is the full runtime configuration.
type Config struct {
	Database   DatabaseConfig   `koanf:"database"`
	Scan       ScanConfig       `koanf:"scan"`
	FFmpeg     FFmpegConfig     `koanf:"ffmpeg"`
	Similarity SimilarityConfig `koanf:"similarity"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// DatabaseConfig locates the SQLite library database.
type DatabaseConfig struct {
	Path string `koanf:"path"`
}

// ScanConfig controls folder indexing.
type ScanConfig struct {
	Workers int `koanf:"workers"`
}

// FFmpegConfig controls frame extraction.
type FFmpegConfig struct {
	Path           string `koanf:"path"`
	TimeoutSeconds int    `koanf:"timeout_seconds"`
}

// SimilarityConfig holds the match-tier thresholds and query defaults.
type SimilarityConfig struct {
	ExactThreshold       int `koanf:"exact_threshold"`
	VerySimilarThreshold int `koanf:"very_similar_threshold"`
	SimilarThreshold     int `koanf:"similar_threshold"`
	MinSimilarity        int `koanf:"min_similarity"`
	MinGroupSize         int `koanf:"min_group_size"`
	MoreLikeThisLimit    int `koanf:"more_like_this_limit"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Pretty bool   `koanf:"pretty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "medialib.db",
		},
		Scan: ScanConfig{
			Workers: 8,
		},
		FFmpeg: FFmpegConfig{
			Path:           "ffmpeg",
			TimeoutSeconds: 10,
		},
		Similarity: SimilarityConfig{
			ExactThreshold:       98,
			VerySimilarThreshold: 90,
			SimilarThreshold:     80,
			MinSimilarity:        80,
			MinGroupSize:         2,
			MoreLikeThisLimit:    20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: false,
		},
	}
}

// Load builds the configuration. configPath may be empty; a non-empty path
// that cannot be read is an error, since the user asked for that file.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envMappings maps MEDIALIB_-stripped variable names to config paths.
// Unmapped variables are ignored so unrelated environment noise never
// reaches the configuration.
var envMappings = map[string]string{
	"database_path":                     "database.path",
	"scan_workers":                      "scan.workers",
	"ffmpeg_path":                       "ffmpeg.path",
	"ffmpeg_timeout":                    "ffmpeg.timeout_seconds",
	"similarity_exact_threshold":        "similarity.exact_threshold",
	"similarity_very_similar_threshold": "similarity.very_similar_threshold",
	"similarity_similar_threshold":      "similarity.similar_threshold",
	"similarity_min_similarity":         "similarity.min_similarity",
	"similarity_min_group_size":         "similarity.min_group_size",
	"similarity_more_like_this_limit":   "similarity.more_like_this_limit",
	"log_level":                         "logging.level",
	"log_pretty":                        "logging.pretty",
}

func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}

// Validate rejects configurations the rest of the program cannot run with.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.Scan.Workers < 0 {
		return fmt.Errorf("scan.workers must not be negative")
	}
	if c.FFmpeg.TimeoutSeconds <= 0 {
		return fmt.Errorf("ffmpeg.timeout_seconds must be positive")
	}
	for name, v := range map[string]int{
		"similarity.exact_threshold":        c.Similarity.ExactThreshold,
		"similarity.very_similar_threshold": c.Similarity.VerySimilarThreshold,
		"similarity.similar_threshold":      c.Similarity.SimilarThreshold,
		"similarity.min_similarity":         c.Similarity.MinSimilarity,
	} {
		if v < 0 || v > 100 {
			return fmt.Errorf("%s must be between 0 and 100, got %d", name, v)
		}
	}
	if c.Similarity.ExactThreshold < c.Similarity.VerySimilarThreshold ||
		c.Similarity.VerySimilarThreshold < c.Similarity.SimilarThreshold {
		return fmt.Errorf("similarity thresholds must be ordered: exact >= very_similar >= similar")
	}
	if c.Similarity.MinGroupSize < 2 {
		return fmt.Errorf("similarity.min_group_size must be at least 2")
	}
	if level := c.Logging.Level; level != "" {
		switch strings.ToLower(level) {
		case "trace", "debug", "info", "warn", "error", "fatal", "panic":
		default:
			return fmt.Errorf("unknown log level %q", level)
		}
	}
	return nil
}

// FindConfigFile returns the first existing default config file, or "".
func FindConfigFile() string {
	for _, path := range []string{"medialib.yaml", "medialib.yml"} {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
