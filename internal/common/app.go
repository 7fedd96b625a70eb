// Package common holds the wiring shared by the CLI actions: configuration,
// logging, output formatting and the assembled pipeline service.
package common

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dtnitsch/landing-ops/models"
	"github.com/dtnitsch/landing-ops/pkg/db"
	"github.com/dtnitsch/landing-ops/pkg/metrics"
	"github.com/dtnitsch/landing-ops/pkg/pipeline"
	"github.com/dtnitsch/landing-ops/pkg/rewrite"
	"github.com/dtnitsch/landing-ops/pkg/rubric"
	"github.com/dtnitsch/landing-ops/pkg/storage"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// App is everything an action needs. Close releases the store.
type App struct {
	Config  models.AppConfig
	Logger  *slog.Logger
	Store   *db.DB
	Rubric  *rubric.Holder
	Metrics *metrics.Metrics
	Sink    storage.Sink
	Service *pipeline.Service
}

// LoadConfig reads --config, then the environment, then flag overrides.
func LoadConfig(c *cli.Context) (models.AppConfig, error) {
	cfg, err := models.LoadConfig(c.String("config"))
	if err != nil {
		return cfg, err
	}
	for flag, dst := range map[string]*string{
		"db":         &cfg.DBPath,
		"export-dir": &cfg.ExportDir,
		"rubric":     &cfg.RubricPath,
		"base-url":   &cfg.BaseURL,
	} {
		if c.IsSet(flag) {
			*dst = c.String(flag)
		}
	}
	if c.Bool("no-rewrite") {
		cfg.Rewrite.Enabled = false
	}
	return cfg, nil
}

// NewLogger builds the JSON stderr logger. --quiet and --verbose override
// the configured level.
func NewLogger(c *cli.Context, cfg models.AppConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}
	if c.Bool("quiet") {
		level = slog.LevelError
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// Open assembles the service from configuration.
func Open(c *cli.Context) (*App, error) {
	cfg, err := LoadConfig(c)
	if err != nil {
		return nil, err
	}
	logger := NewLogger(c, cfg)

	holder, err := rubric.Open(cfg.RubricPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load rubric: %w", err)
	}
	sink, err := storage.New(c.Context, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open export sink: %w", err)
	}
	store, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	opts := pipeline.Options{
		Store:   store,
		Sink:    sink,
		Rubric:  holder,
		Metrics: metrics.New(),
		Logger:  logger,
		BaseURL: cfg.BaseURL,
		Workers: cfg.BulkWorkers,
	}
	if cfg.RewriteActive() {
		client, err := rewrite.NewClient(cfg.Rewrite, logger)
		if err != nil {
			logger.Warn("rewrite assist disabled", "error", err)
		} else {
			opts.Rewriter = client
			opts.Optimizer = client
		}
	}
	svc, err := pipeline.New(opts)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	logger.Debug("app opened",
		"db", cfg.DBPath,
		"sink", sink.Name(),
		"rubric_version", holder.Current().Version,
		"rewrite", opts.Rewriter != nil,
	)
	return &App{
		Config:  cfg,
		Logger:  logger,
		Store:   store,
		Rubric:  holder,
		Metrics: opts.Metrics,
		Sink:    sink,
		Service: svc,
	}, nil
}

func (a *App) Close() error {
	return a.Store.Close()
}

// Print writes v to stdout in the --format the user asked for.
func Print(c *cli.Context, v any) error {
	return Write(os.Stdout, c.String("format"), v)
}

// Write encodes v as yaml (default) or json.
func Write(w io.Writer, format string, v any) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(format) {
	case "json":
		data, err = json.MarshalIndent(v, "", "  ")
		data = append(data, '\n')
	case "", "yaml":
		// round trip through JSON so yaml keys follow the json tags
		var generic any
		raw, jerr := json.Marshal(v)
		if jerr != nil {
			return fmt.Errorf("failed to marshal output: %w", jerr)
		}
		if jerr := json.Unmarshal(raw, &generic); jerr != nil {
			return fmt.Errorf("failed to marshal output: %w", jerr)
		}
		data, err = yaml.Marshal(generic)
	default:
		return fmt.Errorf("unknown format: %s (use yaml or json)", format)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = w.Write(data)
	return err
}
