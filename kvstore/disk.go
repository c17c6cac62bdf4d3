package kvstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
)

type (
	// DiskKVStore stores each key as one file under rootPath.
	DiskKVStore struct {
		rootPath string
	}
)

func NewDiskKVStore(rootPath string) (*DiskKVStore, error) {
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("error in os.MkdirAll: %w", err)
	}
	dks := &DiskKVStore{
		rootPath: rootPath,
	}

	return dks, nil
}

func (dks *DiskKVStore) keyPath(key string) string {
	return filepath.Join(dks.rootPath, url.PathEscape(key)+".val")
}

func (dks *DiskKVStore) Get(_ context.Context, key string) (string, error) {
	b, err := os.ReadFile(dks.keyPath(key))
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("error in os.ReadFile: %w", err)
	}
	return string(b), nil
}

// Set writes to a temp file first and renames it over the key, so readers never see a torn value.
func (dks *DiskKVStore) Set(_ context.Context, key, value string) error {
	f, err := os.CreateTemp(dks.rootPath, ".tmp-*")
	if err != nil {
		return fmt.Errorf("error in os.CreateTemp: %w", err)
	}
	tmpName := f.Name()
	if _, err = f.WriteString(value); err != nil {
		f.Close()
		os.Remove(tmpName)
		return fmt.Errorf("error in f.WriteString: %w", err)
	}
	if err = f.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("error in f.Close: %w", err)
	}
	if err = os.Rename(tmpName, dks.keyPath(key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("error in os.Rename: %w", err)
	}
	return nil
}

func (dks *DiskKVStore) Shutdown(_ context.Context) error {
	return nil
}
