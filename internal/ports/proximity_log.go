package ports

import (
	"context"
	"time"

	"github.com/bnema/exposure-detect/internal/domain"
)

// ProximityLog is the read side of the radio stack's observation record.
// Implementations must not require callers to lock and must never be mutated by readers.
type ProximityLog interface {
	ObservationsSince(ctx context.Context, low time.Time) ([]domain.ProximityObservation, error)
}

type ObservationRecorder interface {
	Append(ctx context.Context, observations ...domain.ProximityObservation) error
}
