package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/Shayennn/ptm-noti/internal/config"
)

// Storage is the pluggable sink for decoded evidence images.
type Storage interface {
	// Upload stores the image bytes under the given filename.
	Upload(ctx context.Context, filename string, data []byte) error
	// Access returns how a consumer reaches the stored image: a local
	// file path or a time-limited signed URL.
	Access(ctx context.Context, filename string) (string, error)
	// Attachable reports whether Access returns local paths that a
	// notification transport can attach directly.
	Attachable() bool
}

// New selects a backend from configuration.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (Storage, error) {
	switch cfg.Storage.Backend {
	case "file":
		return NewLocal(cfg.Storage.Path, log)
	case "s3":
		return NewS3(ctx, cfg.Storage.S3, log)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// Local writes images under a directory and hands out plain paths.
type Local struct {
	dir string
	log zerolog.Logger
}

func NewLocal(dir string, log zerolog.Logger) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}
	return &Local{dir: dir, log: log}, nil
}

func (l *Local) Upload(_ context.Context, filename string, data []byte) error {
	path := filepath.Join(l.dir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}
	l.log.Info().Str("path", path).Msg("image saved locally")
	return nil
}

func (l *Local) Access(_ context.Context, filename string) (string, error) {
	return filepath.Join(l.dir, filename), nil
}

func (l *Local) Attachable() bool { return true }
