package pass

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bnema/exposure-detect/internal/domain"
	"github.com/bnema/exposure-detect/internal/ports"
)

var ErrUnavailable = errors.New("pass command unavailable")

const (
	notInStore = "is not in the password store"
	entryExt   = ".gpg"
)

type commandRunner func(ctx context.Context, stdin string, args ...string) (stdout, stderr string, err error)

// Store keeps secrets in the user's pass(1) password store.
type Store struct {
	run commandRunner
	dir func() (string, error)
}

var _ ports.SecretStore = (*Store)(nil)

func NewStore() *Store {
	return &Store{run: runPass, dir: storeDir}
}

func (s *Store) Put(ctx context.Context, ref string, value string) error {
	_, err := s.invoke(ctx, "put", ref, value+"\n", "insert", "--multiline", "--force", ref)
	return err
}

// Get returns the first line of the entry. A missing entry yields an error
// wrapping domain.ErrSecretNotFound.
func (s *Store) Get(ctx context.Context, ref string) (string, error) {
	stdout, err := s.invoke(ctx, "get", ref, "", "show", ref)
	if err != nil {
		return "", err
	}

	value, _, _ := strings.Cut(stdout, "\n")
	return strings.TrimSuffix(value, "\r"), nil
}

func (s *Store) Delete(ctx context.Context, ref string) error {
	_, err := s.invoke(ctx, "delete", ref, "", "rm", "--force", ref)
	return err
}

// List reads entry names from the password store directory.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	root, err := s.dir()
	if err != nil {
		return nil, err
	}

	dir := root
	if i := strings.LastIndex(prefix, "/"); i > 0 {
		dir = filepath.Join(root, filepath.FromSlash(prefix[:i]))
	}

	var refs []string
	err = filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), entryExt) {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if ref := strings.TrimSuffix(filepath.ToSlash(rel), entryExt); strings.HasPrefix(ref, prefix) {
			refs = append(refs, ref)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("pass list %q: %w", prefix, err)
	}

	slices.Sort(refs)
	return refs, nil
}

func (s *Store) invoke(ctx context.Context, op, ref, stdin string, args ...string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	stdout, stderr, err := s.run(ctx, stdin, args...)
	if err == nil {
		return stdout, nil
	}

	switch {
	case errors.Is(err, ErrUnavailable):
		return "", err
	case strings.Contains(stderr, notInStore):
		return "", fmt.Errorf("pass %s %q: %w", op, ref, domain.ErrSecretNotFound)
	case stderr != "":
		return "", fmt.Errorf("pass %s %q: %w: %s", op, ref, err, stderr)
	default:
		return "", fmt.Errorf("pass %s %q: %w", op, ref, err)
	}
}

func runPass(ctx context.Context, stdin string, args ...string) (string, string, error) {
	path, err := exec.LookPath("pass")
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", "", ErrUnavailable
		}
		return "", "", fmt.Errorf("locate pass command: %w", err)
	}

	cmd := exec.CommandContext(ctx, path, args...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	return stdout.String(), strings.TrimSpace(stderr.String()), err
}

func storeDir() (string, error) {
	if dir := os.Getenv("PASSWORD_STORE_DIR"); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".password-store"), nil
}
