package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"clinicdesk/internal/models"
)

type DiskArchive struct {
	root string
}

func NewDiskArchive(root string) (*DiskArchive, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	return &DiskArchive{root: root}, nil
}

func (a *DiskArchive) Put(_ context.Context, key string, file models.ResultFile) error {
	target, err := a.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}

	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, file.Data, 0o640); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("commit %s: %w", key, err)
	}
	return nil
}

func (a *DiskArchive) Get(_ context.Context, key string) (models.ResultFile, error) {
	target, err := a.resolve(key)
	if err != nil {
		return models.ResultFile{}, err
	}
	data, err := os.ReadFile(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.ResultFile{}, ErrNotFound
		}
		return models.ResultFile{}, fmt.Errorf("read %s: %w", key, err)
	}

	name := filepath.Base(target)
	return models.ResultFile{
		Name:        name,
		ContentType: mime.TypeByExtension(filepath.Ext(name)),
		Data:        data,
	}, nil
}

func (a *DiskArchive) List(_ context.Context, testID string) ([]string, error) {
	dir := filepath.Join(a.root, cleanSegment(testID))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w", testID, err)
	}

	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), ".tmp") {
			continue
		}
		keys = append(keys, cleanSegment(testID)+"/"+e.Name())
	}
	sort.Strings(keys)
	return keys, nil
}

// resolve maps key into the archive root and refuses anything that escapes it.
func (a *DiskArchive) resolve(key string) (string, error) {
	target := filepath.Join(a.root, filepath.FromSlash(key))
	rel, err := filepath.Rel(a.root, target)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("invalid archive key %q", key)
	}
	return target, nil
}
