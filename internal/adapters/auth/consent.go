package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/bnema/exposure-detect/internal/domain"
	"github.com/bnema/exposure-detect/internal/ports"
)

// ConsentAuthorizer grants exposure detection from the user's stored consent.
type ConsentAuthorizer struct {
	repo ports.ConsentRepository
	now  func() time.Time
}

var _ ports.Authorizer = (*ConsentAuthorizer)(nil)

func NewConsentAuthorizer(repo ports.ConsentRepository, clock ports.Clock) *ConsentAuthorizer {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &ConsentAuthorizer{repo: repo, now: clock.Now}
}

func (a *ConsentAuthorizer) Authorize(ctx context.Context) error {
	consent, err := a.repo.Consent(ctx)
	if err != nil {
		return fmt.Errorf("load consent: %w", err)
	}

	switch {
	case consent.Restricted:
		return fmt.Errorf("%w: exposure detection is restricted on this device", domain.ErrRestrictedEnvironment)
	case !consent.Granted:
		return fmt.Errorf("%w: consent not granted", domain.ErrAuthorizationDenied)
	default:
		return nil
	}
}

// Grant and Revoke change the user's consent only; a device restriction
// stays in place until Unrestrict lifts it.
func (a *ConsentAuthorizer) Grant(ctx context.Context) error {
	return a.update(ctx, func(consent *domain.Consent) { consent.Granted = true })
}

func (a *ConsentAuthorizer) Revoke(ctx context.Context) error {
	return a.update(ctx, func(consent *domain.Consent) { consent.Granted = false })
}

// Restrict blocks detection regardless of consent, as a device policy would.
func (a *ConsentAuthorizer) Restrict(ctx context.Context) error {
	return a.update(ctx, func(consent *domain.Consent) { consent.Restricted = true })
}

func (a *ConsentAuthorizer) Unrestrict(ctx context.Context) error {
	return a.update(ctx, func(consent *domain.Consent) { consent.Restricted = false })
}

func (a *ConsentAuthorizer) Status(ctx context.Context) (domain.Consent, error) {
	consent, err := a.repo.Consent(ctx)
	if err != nil {
		return domain.Consent{}, fmt.Errorf("load consent: %w", err)
	}
	return consent, nil
}

func (a *ConsentAuthorizer) update(ctx context.Context, change func(*domain.Consent)) error {
	consent, err := a.repo.Consent(ctx)
	if err != nil {
		return fmt.Errorf("load consent: %w", err)
	}

	change(&consent)
	consent.UpdatedAt = a.now()
	if err := a.repo.SaveConsent(ctx, consent); err != nil {
		return fmt.Errorf("save consent: %w", err)
	}
	return nil
}
