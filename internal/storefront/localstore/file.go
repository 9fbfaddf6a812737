package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tair/storefront/internal/storefront"
)

// FileStore persists the guest blob as <dir>/storefront-state.json.
type FileStore struct {
	path string
}

// NewFileStore resolves dir (a leading ~ expands to the home directory).
func NewFileStore(dir string) (*FileStore, error) {
	resolved, err := expandPath(dir)
	if err != nil {
		return nil, err
	}
	return &FileStore{path: filepath.Join(resolved, storefront.StorageKey+".json")}, nil
}

// Path returns the blob's file path
func (f *FileStore) Path() string {
	return f.path
}

// Load reads the blob. A missing file is an empty state; a corrupt one is an
// error alongside an empty state.
func (f *FileStore) Load(_ context.Context) (storefront.State, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return storefront.State{}, nil
		}
		return storefront.State{}, fmt.Errorf("read state: %w", err)
	}
	state, err := decode(data)
	if err != nil {
		return storefront.State{}, fmt.Errorf("decode state: %w", err)
	}
	return state, nil
}

// Save writes the blob atomically via a temp file in the same directory.
func (f *FileStore) Save(_ context.Context, state storefront.State) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp, err := os.CreateTemp(dir, storefront.StorageKey+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close state: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
