package application

import (
	"fmt"
	"runtime"
	"time"

	"github.com/bnema/exposure-detect/internal/domain"
)

const (
	DefaultBatchFloor       = 2
	DefaultCapacity         = 100_000
	DefaultCoalesceGap      = domain.WindowLength
	DefaultContactBatchSize = 64
	DefaultIngestBatchSize  = 1_000
)

// DetectionConfig tunes a detection session.
//
// BatchFloor caps the advertised maxKeyCount; a batch must hold more keys
// than maxKeyCount. Capacity bounds the number of buffered keys. CoalesceGap
// is the largest pause between the end of one matched observation and the
// start of the next for both to count as the same incident.
type DetectionConfig struct {
	BatchFloor       int
	Capacity         int
	CoalesceGap      time.Duration
	Workers          int
	ContactBatchSize int
	IngestBatchSize  int
}

func DefaultDetectionConfig() DetectionConfig {
	return DetectionConfig{
		BatchFloor:       DefaultBatchFloor,
		Capacity:         DefaultCapacity,
		CoalesceGap:      DefaultCoalesceGap,
		Workers:          runtime.GOMAXPROCS(0),
		ContactBatchSize: DefaultContactBatchSize,
		IngestBatchSize:  DefaultIngestBatchSize,
	}
}

// withDefaults fills unset sizes. A zero BatchFloor is kept: it disables pacing
// beyond rejecting empty batches.
func (c DetectionConfig) withDefaults() DetectionConfig {
	defaults := DefaultDetectionConfig()
	if c.Capacity <= 0 {
		c.Capacity = defaults.Capacity
	}
	if c.CoalesceGap <= 0 {
		c.CoalesceGap = defaults.CoalesceGap
	}
	if c.Workers <= 0 {
		c.Workers = defaults.Workers
	}
	if c.ContactBatchSize <= 0 {
		c.ContactBatchSize = defaults.ContactBatchSize
	}
	if c.IngestBatchSize <= 0 {
		c.IngestBatchSize = defaults.IngestBatchSize
	}
	return c
}

func (c DetectionConfig) Validate() error {
	if c.BatchFloor < 0 {
		return fmt.Errorf("batch floor must not be negative, got %d", c.BatchFloor)
	}
	if c.Capacity < 0 {
		return fmt.Errorf("capacity must not be negative, got %d", c.Capacity)
	}
	if c.CoalesceGap < 0 {
		return fmt.Errorf("coalesce gap must not be negative, got %s", c.CoalesceGap)
	}
	return nil
}
