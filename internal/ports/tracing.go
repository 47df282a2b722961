package ports

import (
	"context"

	"github.com/bnema/exposure-detect/internal/domain"
)

type TracingStateStore interface {
	State(ctx context.Context) (domain.TracingState, error)
	SetState(ctx context.Context, state domain.TracingState) error
}

// Authorizer returns nil when the user granted exposure detection, otherwise an
// error wrapping domain.ErrAuthorizationDenied or domain.ErrRestrictedEnvironment.
type Authorizer interface {
	Authorize(ctx context.Context) error
}

type DiagnosisKeySource interface {
	Keys(ctx context.Context) ([]domain.DailyTracingKey, error)
}

type ConsentRepository interface {
	Consent(ctx context.Context) (domain.Consent, error)
	SaveConsent(ctx context.Context, consent domain.Consent) error
}
