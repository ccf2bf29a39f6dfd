// Package storage keeps downloaded medical-test result files, either on local disk or in
// an S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"clinicdesk/internal/config"
	"clinicdesk/internal/ids"
	"clinicdesk/internal/models"
)

var ErrNotFound = errors.New("archived file not found")

// Archive stores result files under keys of the form "<testID>/<ksuid>-<name>".
type Archive interface {
	Put(ctx context.Context, key string, file models.ResultFile) error
	Get(ctx context.Context, key string) (models.ResultFile, error)
	List(ctx context.Context, testID string) ([]string, error)
}

// Key builds a collision-free archive key for a result of testID.
func Key(testID string, name string, at time.Time) (string, error) {
	id, err := ids.At(at)
	if err != nil {
		return "", fmt.Errorf("mint archive id: %w", err)
	}
	return path.Join(cleanSegment(testID), id+"-"+cleanSegment(name)), nil
}

func cleanSegment(s string) string {
	s = path.Base(strings.ReplaceAll(s, "\\", "/"))
	if s == "." || s == "/" || s == ".." || s == "" {
		return "file"
	}
	return s
}

func Open(ctx context.Context, cfg config.StorageConfig) (Archive, error) {
	switch cfg.Driver {
	case config.StorageDriverDisk:
		return NewDiskArchive(cfg.Dir)
	case config.StorageDriverMinio:
		store, err := NewObjectStore(cfg)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
