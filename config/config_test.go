package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "medialib.db" {
		t.Errorf("database path = %q", cfg.Database.Path)
	}
	if cfg.Similarity.ExactThreshold != 98 || cfg.Similarity.VerySimilarThreshold != 90 || cfg.Similarity.SimilarThreshold != 80 {
		t.Errorf("unexpected default thresholds: %+v", cfg.Similarity)
	}
	if cfg.FFmpeg.Path != "ffmpeg" || cfg.FFmpeg.TimeoutSeconds != 10 {
		t.Errorf("unexpected ffmpeg defaults: %+v", cfg.FFmpeg)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "medialib.yaml")
	body := `
database:
  path: /data/library.db
scan:
  workers: 4
similarity:
  min_similarity: 85
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "/data/library.db" {
		t.Errorf("database path = %q", cfg.Database.Path)
	}
	if cfg.Scan.Workers != 4 {
		t.Errorf("workers = %d", cfg.Scan.Workers)
	}
	if cfg.Similarity.MinSimilarity != 85 {
		t.Errorf("min similarity = %d", cfg.Similarity.MinSimilarity)
	}
	// Untouched keys keep their defaults.
	if cfg.Similarity.ExactThreshold != 98 {
		t.Errorf("exact threshold lost its default: %d", cfg.Similarity.ExactThreshold)
	}
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MEDIALIB_DATABASE_PATH", "/env/library.db")
	t.Setenv("MEDIALIB_LOG_LEVEL", "debug")
	t.Setenv("MEDIALIB_SIMILARITY_MIN_GROUP_SIZE", "3")
	// Unmapped variables must be ignored, not turned into config keys.
	t.Setenv("MEDIALIB_SOMETHING_ELSE", "junk")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "/env/library.db" {
		t.Errorf("database path = %q", cfg.Database.Path)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q", cfg.Logging.Level)
	}
	if cfg.Similarity.MinGroupSize != 3 {
		t.Errorf("min group size = %d", cfg.Similarity.MinGroupSize)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"empty db path", func(c *Config) { c.Database.Path = "" }, false},
		{"negative workers", func(c *Config) { c.Scan.Workers = -1 }, false},
		{"zero timeout", func(c *Config) { c.FFmpeg.TimeoutSeconds = 0 }, false},
		{"threshold above 100", func(c *Config) { c.Similarity.ExactThreshold = 101 }, false},
		{"unordered thresholds", func(c *Config) { c.Similarity.SimilarThreshold = 95 }, false},
		{"group size too small", func(c *Config) { c.Similarity.MinGroupSize = 1 }, false},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, false},
		{"warn level", func(c *Config) { c.Logging.Level = "warn" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate: %v", err)
			}
			if !tt.ok && err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
