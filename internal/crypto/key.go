package crypto

import (
	"crypto/rand"
	"fmt"

	"github.com/bnema/exposure-detect/internal/domain"
)

// GenerateDailyKey returns a fresh random daily tracing key for day.
func GenerateDailyKey(day domain.DayNumber) (domain.DailyTracingKey, error) {
	key := domain.DailyTracingKey{Day: day}
	if _, err := rand.Read(key.Data[:]); err != nil {
		return domain.DailyTracingKey{}, fmt.Errorf("%w: generate daily key: %v", domain.ErrInternalDerivationFailure, err)
	}
	return key, nil
}
