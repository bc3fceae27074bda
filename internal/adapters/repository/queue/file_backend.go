package queue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/trebuchet-org/txq/internal/domain"
)

// FileBackend stores each record as a JSON file under a root directory
type FileBackend struct {
	rootDir string
	mu      sync.Mutex
}

// NewFileBackend creates a file backend rooted at dir
func NewFileBackend(dir string) *FileBackend {
	return &FileBackend{rootDir: dir}
}

// pathFor maps "txq/queue" to <root>/queue.json
func (b *FileBackend) pathFor(key string) string {
	name := key
	if idx := strings.LastIndex(key, "/"); idx != -1 {
		name = key[idx+1:]
	}
	return filepath.Join(b.rootDir, name+".json")
}

// Read returns the stored record
func (b *FileBackend) Read(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := os.ReadFile(b.pathFor(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, domain.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

// Write replaces the record atomically: temp file, fsync, backup, rename
func (b *FileBackend) Write(_ context.Context, key string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := os.MkdirAll(b.rootDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	path := b.pathFor(key)
	tmp, err := os.CreateTemp(b.rootDir, ".txq-tmp-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		if err := copyFile(path, path+".bak"); err != nil {
			return fmt.Errorf("create backup: %w", err)
		}
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}

// Delete removes the record and its backup
func (b *FileBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	path := b.pathFor(key)
	for _, p := range []string{path, path + ".bak"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", p, err)
		}
	}
	return nil
}

// Close is a no-op for files
func (b *FileBackend) Close() error {
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
