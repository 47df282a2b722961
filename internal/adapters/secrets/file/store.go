package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/bnema/exposure-detect/internal/domain"
	"github.com/bnema/exposure-detect/internal/ports"
)

const (
	vaultDirMode  = 0o700
	vaultFileMode = 0o600
)

// Store keeps one secret per file below root, named after its ref.
type Store struct {
	root string
	mu   sync.RWMutex
}

var _ ports.SecretStore = (*Store)(nil)

func NewStore(root string) *Store {
	return &Store{root: filepath.Clean(root)}
}

func (s *Store) Put(ctx context.Context, ref string, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.resolve(ref)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, vaultDirMode); err != nil {
		return fmt.Errorf("create secret directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("create temp secret %q: %w", ref, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(vaultFileMode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod secret %q: %w", ref, err)
	}
	if _, err := tmp.WriteString(value + "\n"); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write secret %q: %w", ref, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close secret %q: %w", ref, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("store secret %q: %w", ref, err)
	}

	return nil
}

// Get returns the stored value without its trailing newline. A missing ref
// yields an error wrapping domain.ErrSecretNotFound.
func (s *Store) Get(ctx context.Context, ref string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path, err := s.resolve(ref)
	if err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("file secret %q: %w", ref, domain.ErrSecretNotFound)
		}
		return "", fmt.Errorf("read file secret %q: %w", ref, err)
	}

	return strings.TrimRight(string(data), "\r\n"), nil
}

// Delete removes ref. Deleting a missing ref is not an error.
func (s *Store) Delete(ctx context.Context, ref string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.resolve(ref)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete file secret %q: %w", ref, err)
	}

	return nil
}

// List walks the directory holding prefix and returns the refs below it.
// In-flight temp files are skipped.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	dir := s.root
	if i := strings.LastIndex(prefix, "/"); i > 0 {
		resolved, err := s.resolve(prefix[:i])
		if err != nil {
			return nil, err
		}
		dir = resolved
	}

	var refs []string
	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			return nil
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		if ref := filepath.ToSlash(rel); strings.HasPrefix(ref, prefix) {
			refs = append(refs, ref)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list file secrets %q: %w", prefix, err)
	}

	slices.Sort(refs)
	return refs, nil
}

func (s *Store) resolve(ref string) (string, error) {
	trimmed := strings.TrimSpace(ref)
	if trimmed == "" {
		return "", errors.New("secret ref is empty")
	}

	cleaned := filepath.Clean(trimmed)
	if filepath.IsAbs(cleaned) || cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid secret ref %q", ref)
	}

	return filepath.Join(s.root, cleaned), nil
}
