// Package storage holds the export sinks: the local filesystem and S3.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/dtnitsch/landing-ops/models"
)

// ErrNotFound is returned by Get when the location holds no artifact.
var ErrNotFound = errors.New("artifact not found")

// Sink stores rendered export artifacts. Put returns the location Get
// accepts later.
type Sink interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
	Get(ctx context.Context, location string) ([]byte, error)
	Name() string
}

// New picks the S3 sink when a bucket is configured, the local export
// directory otherwise.
func New(ctx context.Context, cfg models.AppConfig) (Sink, error) {
	if cfg.S3.Bucket != "" {
		return NewS3(ctx, cfg.S3)
	}
	return NewLocal(cfg.ExportDir), nil
}

// cleanKey rejects keys that would escape the sink root.
func cleanKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("empty artifact key")
	}
	cleaned := path.Clean("/" + filepath.ToSlash(key))[1:]
	if cleaned == "" || cleaned != strings.TrimPrefix(filepath.ToSlash(key), "/") || strings.HasPrefix(cleaned, "..") {
		return "", fmt.Errorf("invalid artifact key %q", key)
	}
	return cleaned, nil
}

// Local writes artifacts under a root directory.
type Local struct {
	root string
}

// FileStats holds metadata about a file without reading its contents.
type FileStats struct {
	SizeBytes int64
	ModTime   time.Time
}

func NewLocal(root string) *Local {
	if root == "" {
		root = "exports"
	}
	return &Local{root: root}
}

func (s *Local) Name() string { return "local" }

// Root returns the export directory.
func (s *Local) Root() string { return s.root }

func (s *Local) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	if err := s.SaveFile(dst, body); err != nil {
		return "", err
	}
	return dst, nil
}

func (s *Local) Get(ctx context.Context, location string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.HasFile(location) {
		return nil, fmt.Errorf("%s: %w", location, ErrNotFound)
	}
	return s.ReadFile(location)
}

// SaveFile writes content atomically through a temp file in the same directory.
func (s *Local) SaveFile(filePath string, content []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(filePath), ".export-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to chmod file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filePath); err != nil {
		return fmt.Errorf("failed to save file: %w", err)
	}
	return nil
}

func (s *Local) ReadFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

func (s *Local) HasFile(fn string) bool {
	info, err := os.Stat(fn)
	return err == nil && !info.IsDir()
}

// GetFileStats returns metadata about a file using os.Stat (no I/O overhead).
func (s *Local) GetFileStats(filePath string) (*FileStats, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	return &FileStats{
		SizeBytes: info.Size(),
		ModTime:   info.ModTime(),
	}, nil
}
