package toml

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/bnema/exposure-detect/internal/domain"
	"github.com/bnema/exposure-detect/internal/ports"
)

const (
	ObservationsPathKey = "observations.path"
	observationsFile    = "observations.toml"
	observationsLabel   = "observations"
)

// ObservationLog stores proximity observations in a TOML file. Readers share
// the file lock, so concurrent detection runs never block each other.
type ObservationLog struct {
	path string
	mu   *sync.RWMutex
}

var (
	_ ports.ProximityLog        = (*ObservationLog)(nil)
	_ ports.ObservationRecorder = (*ObservationLog)(nil)
)

func NewObservationLog(cfg *viper.Viper) (*ObservationLog, error) {
	path, err := resolvePath(cfg, ObservationsPathKey, observationsFile)
	if err != nil {
		return nil, err
	}

	return &ObservationLog{path: path, mu: lockForPath(path)}, nil
}

func (l *ObservationLog) Path() string {
	return l.path
}

// ObservationsSince returns the observations starting at or after low, ordered by timestamp.
func (l *ObservationLog) ObservationsSince(ctx context.Context, low time.Time) ([]domain.ProximityObservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	file, err := l.readSchema()
	if err != nil {
		return nil, err
	}

	observations := make([]domain.ProximityObservation, 0, len(file.Observations))
	for i, entry := range file.Observations {
		obs, err := fromObservationSchema(entry)
		if err != nil {
			return nil, fmt.Errorf("decode observation %d: %w", i, err)
		}
		if obs.Timestamp.Before(low) {
			continue
		}
		observations = append(observations, obs)
	}

	slices.SortStableFunc(observations, func(a, b domain.ProximityObservation) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return observations, nil
}

func (l *ObservationLog) Append(ctx context.Context, observations ...domain.ProximityObservation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(observations) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	file, err := l.readSchema()
	if err != nil {
		return err
	}
	for _, obs := range observations {
		file.Observations = append(file.Observations, toObservationSchema(obs))
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	return writeFile(l.path, observationsLabel, file)
}

// Prune drops observations that started before cutoff and returns how many were removed.
func (l *ObservationLog) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	file, err := l.readSchema()
	if err != nil {
		return 0, err
	}

	kept := file.Observations[:0]
	for i, entry := range file.Observations {
		obs, err := fromObservationSchema(entry)
		if err != nil {
			return 0, fmt.Errorf("decode observation %d: %w", i, err)
		}
		if obs.Timestamp.Before(cutoff) {
			continue
		}
		kept = append(kept, entry)
	}

	removed := len(file.Observations) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	file.Observations = kept
	if err := writeFile(l.path, observationsLabel, file); err != nil {
		return 0, err
	}
	return removed, nil
}

func (l *ObservationLog) readSchema() (observationsSchema, error) {
	var file observationsSchema
	if _, err := readFile(l.path, observationsLabel, &file); err != nil {
		return observationsSchema{}, err
	}
	if err := validateVersion(observationsLabel, file.Version); err != nil {
		return observationsSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func toObservationSchema(obs domain.ProximityObservation) observationSchema {
	return observationSchema{
		Identifier: obs.Identifier.String(),
		Timestamp:  formatTime(obs.Timestamp),
		Duration:   obs.SignalDuration.String(),
	}
}

func fromObservationSchema(entry observationSchema) (domain.ProximityObservation, error) {
	id, err := domain.ParseIdentifier(entry.Identifier)
	if err != nil {
		return domain.ProximityObservation{}, err
	}

	timestamp, err := parseTime(entry.Timestamp)
	if err != nil {
		return domain.ProximityObservation{}, fmt.Errorf("parse timestamp: %w", err)
	}
	if timestamp.IsZero() {
		return domain.ProximityObservation{}, fmt.Errorf("missing timestamp")
	}

	duration, err := time.ParseDuration(entry.Duration)
	if err != nil {
		return domain.ProximityObservation{}, fmt.Errorf("parse duration: %w", err)
	}
	if duration < 0 {
		return domain.ProximityObservation{}, fmt.Errorf("negative duration %s", duration)
	}

	return domain.ProximityObservation{
		Identifier:     id,
		Timestamp:      timestamp,
		SignalDuration: duration,
	}, nil
}
