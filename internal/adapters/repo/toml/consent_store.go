package toml

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/viper"

	"github.com/bnema/exposure-detect/internal/domain"
	"github.com/bnema/exposure-detect/internal/ports"
)

const (
	ConsentPathKey = "consent.path"
	consentFile    = "consent.toml"
	consentLabel   = "consent"
)

// ConsentStore persists the user's exposure detection consent. A missing file
// reads as no consent.
type ConsentStore struct {
	path string
	mu   *sync.RWMutex
}

var _ ports.ConsentRepository = (*ConsentStore)(nil)

func NewConsentStore(cfg *viper.Viper) (*ConsentStore, error) {
	path, err := resolvePath(cfg, ConsentPathKey, consentFile)
	if err != nil {
		return nil, err
	}

	return &ConsentStore{path: path, mu: lockForPath(path)}, nil
}

func (s *ConsentStore) Consent(ctx context.Context) (domain.Consent, error) {
	if err := ctx.Err(); err != nil {
		return domain.Consent{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var file consentSchema
	if _, err := readFile(s.path, consentLabel, &file); err != nil {
		return domain.Consent{}, err
	}
	if err := validateVersion(consentLabel, file.Version); err != nil {
		return domain.Consent{}, err
	}

	updatedAt, err := parseTime(file.UpdatedAt)
	if err != nil {
		return domain.Consent{}, fmt.Errorf("parse consent timestamp: %w", err)
	}

	return domain.Consent{
		Granted:    file.Granted,
		Restricted: file.Restricted,
		UpdatedAt:  updatedAt,
	}, nil
}

func (s *ConsentStore) SaveConsent(ctx context.Context, consent domain.Consent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file := consentSchema{
		Granted:    consent.Granted,
		Restricted: consent.Restricted,
		UpdatedAt:  formatTime(consent.UpdatedAt),
	}
	file.applyDefaults()
	return writeFile(s.path, consentLabel, file)
}
