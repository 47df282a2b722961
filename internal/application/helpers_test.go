package application

import (
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bnema/exposure-detect/internal/crypto"
	"github.com/bnema/exposure-detect/internal/domain"
)

var testDay = domain.DayOf(time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC))

func mockAnyContext() interface{} {
	return mock.Anything
}

func testKey(seed byte, day domain.DayNumber) domain.DailyTracingKey {
	key := domain.DailyTracingKey{Day: day}
	for i := range key.Data {
		key.Data[i] = seed ^ byte(i*7)
	}
	return key
}

// sighting builds an observation, seen at at, of the identifier key broadcasts in window w.
func sighting(t *testing.T, key domain.DailyTracingKey, w int, at time.Time, duration time.Duration) domain.ProximityObservation {
	t.Helper()

	id, err := crypto.Derive(key, w)
	require.NoError(t, err)

	return domain.ProximityObservation{
		Identifier:     id,
		Timestamp:      at,
		SignalDuration: duration,
	}
}

func testConfig() DetectionConfig {
	cfg := DefaultDetectionConfig()
	cfg.Workers = 2
	cfg.ContactBatchSize = 2
	return cfg
}
