package chain

import (
	"context"
	"errors"
	"fmt"
	"slices"

	filestore "github.com/bnema/exposure-detect/internal/adapters/secrets/file"
	passstore "github.com/bnema/exposure-detect/internal/adapters/secrets/pass"
	"github.com/bnema/exposure-detect/internal/domain"
	"github.com/bnema/exposure-detect/internal/ports"
)

// Store layers a preferred secret backend over a local one. Writes and reads
// go to the preferred backend first; deletes and listings always reach both
// so a purged daily key leaves no copy behind.
type Store struct {
	preferred ports.SecretStore
	local     ports.SecretStore
}

var _ ports.SecretStore = (*Store)(nil)

var errNilBackend = errors.New("secret backend is nil")

func NewStore(preferred ports.SecretStore, local ports.SecretStore) (*Store, error) {
	if preferred == nil {
		return nil, fmt.Errorf("preferred: %w", errNilBackend)
	}
	if local == nil {
		return nil, fmt.Errorf("local: %w", errNilBackend)
	}

	return &Store{preferred: preferred, local: local}, nil
}

// NewDeviceVault prefers pass(1) and falls back to files under root.
func NewDeviceVault(root string) (*Store, error) {
	return NewStore(passstore.NewStore(), filestore.NewStore(root))
}

func (s *Store) Put(ctx context.Context, ref string, value string) error {
	err := s.preferred.Put(ctx, ref, value)
	if err == nil || isContextErr(err) {
		return err
	}

	if localErr := s.local.Put(ctx, ref, value); localErr != nil {
		return fmt.Errorf("put %q: %w", ref, errors.Join(err, localErr))
	}
	return nil
}

func (s *Store) Get(ctx context.Context, ref string) (string, error) {
	value, err := s.preferred.Get(ctx, ref)
	if err == nil || isContextErr(err) {
		return value, err
	}

	value, localErr := s.local.Get(ctx, ref)
	if localErr == nil {
		return value, nil
	}
	if errors.Is(err, domain.ErrSecretNotFound) && errors.Is(localErr, domain.ErrSecretNotFound) {
		return "", fmt.Errorf("get %q: %w", ref, domain.ErrSecretNotFound)
	}
	return "", fmt.Errorf("get %q: %w", ref, errors.Join(err, localErr))
}

func (s *Store) Delete(ctx context.Context, ref string) error {
	err := s.preferred.Delete(ctx, ref)
	if isContextErr(err) {
		return err
	}

	localErr := s.local.Delete(ctx, ref)
	if err = errors.Join(ignoreNotFound(err), ignoreNotFound(localErr)); err != nil {
		return fmt.Errorf("delete %q: %w", ref, err)
	}
	return nil
}

// List merges the refs of both backends.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	preferred, err := s.preferred.List(ctx, prefix)
	if isContextErr(err) {
		return nil, err
	}

	local, localErr := s.local.List(ctx, prefix)
	if err = errors.Join(err, localErr); err != nil {
		return nil, fmt.Errorf("list %q: %w", prefix, err)
	}

	refs := slices.Concat(preferred, local)
	slices.Sort(refs)
	return slices.Compact(refs), nil
}

func ignoreNotFound(err error) error {
	if errors.Is(err, domain.ErrSecretNotFound) {
		return nil
	}
	return err
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
