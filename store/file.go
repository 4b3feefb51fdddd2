package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
)

// clearConcurrency bounds how many namespaces a bulk clear removes at once.
const clearConcurrency = 8

// FileStore persists cache entries on disk.
//
// Layout:
//
//	{Dir}/
//	  {name}/
//	    {key[0:2]}/
//	      {key}
//
// The two-character prefix directory keeps any single directory from
// accumulating too many entries. Writes go to a temp file first and are
// renamed into place, so a crash never leaves a partially written entry at
// the canonical path.
type FileStore struct {
	dir string
}

// NewFileStore creates a file store rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: creating cache directory: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("store: resolving cache directory: %w", err)
	}
	return &FileStore{dir: abs}, nil
}

// Dir returns the root directory of the store.
func (s *FileStore) Dir() string {
	return s.dir
}

// GetCached retrieves the value stored under (name, key).
func (s *FileStore) GetCached(ctx context.Context, name, key string) ([]byte, bool, error) {
	path, err := s.entryPath(name, key)
	if err != nil {
		return nil, false, err
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("store: reading cache entry: %w", err)
	}
	return data, true, nil
}

// AddCached stores value under (name, key), replacing any prior value.
func (s *FileStore) AddCached(ctx context.Context, name, key string, value []byte) error {
	path, err := s.entryPath(name, key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("store: creating entry directory: %w", err)
	}
	if err := writeFileAtomic(path, value, 0o644); err != nil {
		return fmt.Errorf("store: writing cache entry: %w", err)
	}
	return nil
}

// RemoveCached removes (name, key). Removing an absent entry is not an error.
func (s *FileStore) RemoveCached(ctx context.Context, name, key string) error {
	path, err := s.entryPath(name, key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("store: removing cache entry: %w", err)
	}
	return nil
}

// Clear removes every entry in the named namespace, or all namespaces when
// name is empty.
func (s *FileStore) Clear(ctx context.Context, name string) error {
	if name != "" {
		if err := ValidateName(name); err != nil {
			return err
		}
		if err := os.RemoveAll(filepath.Join(s.dir, name)); err != nil {
			return fmt.Errorf("store: clearing namespace %s: %w", name, err)
		}
		return nil
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("store: listing namespaces: %w", err)
	}
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(clearConcurrency)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		ns := filepath.Join(s.dir, e.Name())
		g.Go(func() error {
			if err := os.RemoveAll(ns); err != nil {
				return fmt.Errorf("store: clearing namespace %s: %w", e.Name(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *FileStore) entryPath(name, key string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	// Keys become file names; anything that escapes the entry directory is
	// rejected rather than escaped.
	if strings.ContainsAny(key, "/\\") || key == "." || key == ".." {
		return "", ErrInvalidKey
	}
	prefix := key
	if len(prefix) > 2 {
		prefix = prefix[:2]
	}
	return filepath.Join(s.dir, name, prefix, key), nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Ensure FileStore implements Store
var _ Store = (*FileStore)(nil)
