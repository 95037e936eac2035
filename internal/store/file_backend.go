package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// DefaultCredentialsFile is the file name used by FileBackend inside its directory.
const DefaultCredentialsFile = "credentials.json"

// FileBackend persists keys as a flat JSON object in a single file.
//
// SECURITY: the directory is created with 0700 and the file written with
// 0600 permissions. Writes go to a temporary file that is renamed into place,
// so readers never see a half-written document.
type FileBackend struct {
	mu   sync.Mutex
	dir  string
	path string
}

// NewFileBackend creates a backend storing credentials in dir.
// The directory is created lazily by Ready.
func NewFileBackend(dir string) *FileBackend {
	return &FileBackend{
		dir:  dir,
		path: filepath.Join(dir, DefaultCredentialsFile),
	}
}

// Path returns the credentials file path.
func (b *FileBackend) Path() string {
	return b.path
}

// Ready implements Backend. It makes sure the storage directory exists.
func (b *FileBackend) Ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(b.dir, 0700); err != nil {
		return fmt.Errorf("failed to create credential directory: %w", err)
	}
	return nil
}

// Get implements Backend.
func (b *FileBackend) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	values, err := b.readLocked()
	if err != nil {
		return "", err
	}
	v, ok := values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Set implements Backend.
func (b *FileBackend) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	values, err := b.readLocked()
	if err != nil {
		return err
	}
	values[key] = value
	return b.writeLocked(values)
}

// Remove implements Backend.
func (b *FileBackend) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	values, err := b.readLocked()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	if len(values) == 0 {
		err := os.Remove(b.path)
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return b.writeLocked(values)
}

// readLocked loads the credentials document. A missing file is an empty document.
// REQUIRES: b.mu held.
func (b *FileBackend) readLocked() (map[string]string, error) {
	// #nosec G304 -- path is built from the configured storage directory
	data, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return make(map[string]string), nil
		}
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	values := make(map[string]string)
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}
	return values, nil
}

// writeLocked replaces the credentials document.
// REQUIRES: b.mu held.
func (b *FileBackend) writeLocked(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	tmp, err := os.CreateTemp(b.dir, ".credentials-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary credentials file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if err := tmp.Chmod(0600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to restrict credentials file permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close credentials file: %w", err)
	}
	if err := os.Rename(tmpName, b.path); err != nil {
		return fmt.Errorf("failed to replace credentials file: %w", err)
	}
	return nil
}
