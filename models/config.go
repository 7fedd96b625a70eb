// Package models defines data structures for configuration, pages, audits and runs.
package models

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig holds runtime configuration. Values come from an optional YAML
// file, then environment variables, then CLI flags.
type AppConfig struct {
	DBPath      string        `yaml:"db_path"`
	ExportDir   string        `yaml:"export_dir"`
	BaseURL     string        `yaml:"base_url"`
	AdminToken  string        `yaml:"admin_token"`
	Listen      string        `yaml:"listen"`
	RubricPath  string        `yaml:"rubric_path"`
	CacheDir    string        `yaml:"cache_dir"`
	CacheTTL    time.Duration `yaml:"cache_ttl"`
	BulkWorkers int           `yaml:"bulk_workers"`
	LogLevel    string        `yaml:"log_level"`
	Rewrite     RewriteConfig `yaml:"rewrite"`
	S3          S3Config      `yaml:"s3"`
}

// RewriteConfig configures the optional language-model assist.
type RewriteConfig struct {
	Enabled     bool          `yaml:"enabled"`
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
	PerMinute   int           `yaml:"per_minute"`
}

// S3Config selects the S3 export sink when Bucket is set.
type S3Config struct {
	Bucket       string `yaml:"bucket"`
	Prefix       string `yaml:"prefix"`
	Region       string `yaml:"region"`
	Profile      string `yaml:"profile"`
	UsePathStyle bool   `yaml:"use_path_style"`
	CacheControl string `yaml:"cache_control"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() AppConfig {
	return AppConfig{
		DBPath:      "landing-ops.db",
		ExportDir:   "exports",
		BaseURL:     "https://example.com",
		Listen:      ":8080",
		CacheDir:    ".cache/lops",
		CacheTTL:    24 * time.Hour,
		BulkWorkers: 4,
		LogLevel:    "info",
		Rewrite: RewriteConfig{
			Model:       "gpt-4.1-mini",
			Temperature: 0.2,
			Timeout:     45 * time.Second,
			PerMinute:   30,
		},
	}
}

// LoadConfig reads path over the defaults. A missing file is not an error.
func LoadConfig(path string) (AppConfig, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}
	cfg.ApplyEnv(os.Getenv)
	return cfg, nil
}

// ApplyEnv overlays LOPS_* and OpenAI variables.
func (c *AppConfig) ApplyEnv(getenv func(string) string) {
	setStr := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	setStr(&c.DBPath, "LOPS_DB_PATH")
	setStr(&c.ExportDir, "LOPS_EXPORT_DIR")
	setStr(&c.BaseURL, "LOPS_BASE_URL")
	setStr(&c.AdminToken, "LOPS_ADMIN_TOKEN")
	setStr(&c.Listen, "LOPS_LISTEN")
	setStr(&c.RubricPath, "LOPS_RUBRIC")
	setStr(&c.LogLevel, "LOPS_LOG_LEVEL")
	setStr(&c.Rewrite.APIKey, "OPENAI_API_KEY")
	setStr(&c.Rewrite.BaseURL, "OPENAI_BASE_URL")
	setStr(&c.Rewrite.Model, "OPENAI_MODEL")
	setStr(&c.S3.Bucket, "LOPS_S3_BUCKET")
	setStr(&c.S3.Region, "AWS_REGION")

	if v := strings.TrimSpace(getenv("LOPS_REWRITE_ENABLED")); v != "" {
		c.Rewrite.Enabled = parseBool(v)
	}
	if v := strings.TrimSpace(getenv("LOPS_BULK_WORKERS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.BulkWorkers = n
		}
	}
}

// RewriteActive reports whether the assist can actually be called.
func (c *AppConfig) RewriteActive() bool {
	return c.Rewrite.Enabled && c.Rewrite.APIKey != ""
}

func parseBool(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
