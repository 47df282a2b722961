package application

import (
	"cmp"
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/bnema/exposure-detect/internal/crypto"
	"github.com/bnema/exposure-detect/internal/domain"
	"github.com/bnema/exposure-detect/internal/ports"
)

// KeyDeriver expands a daily tracing key into the identifiers of every window of its day.
type KeyDeriver interface {
	DeriveDay(key domain.DailyTracingKey) ([domain.WindowsPerDay]domain.RollingProximityIdentifier, error)
}

var _ KeyDeriver = crypto.Deriver{}

// windowTolerance is how many windows an observation may sit away from the
// window its identifier was derived for.
const windowTolerance = 1

// Incident is one coalesced period of contact with a single diagnosis key.
type Incident struct {
	Key          domain.DailyTracingKey
	Start        time.Time
	Duration     time.Duration
	Observations int
}

type Matcher struct {
	log       ports.ProximityLog
	deriver   KeyDeriver
	gap       time.Duration
	workers   int
	logger    *slog.Logger
	telemetry telemetry
}

func NewMatcher(log ports.ProximityLog, deriver KeyDeriver, cfg DetectionConfig, logger *slog.Logger) *Matcher {
	if deriver == nil {
		deriver = crypto.Deriver{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()

	return &Matcher{
		log:       log,
		deriver:   deriver,
		gap:       cfg.CoalesceGap,
		workers:   cfg.Workers,
		logger:    logger,
		telemetry: newTelemetry(),
	}
}

// Match returns the incidents of every key in keys, ordered by start time.
// Duplicate keys are matched once. The proximity log is only read.
func (m *Matcher) Match(ctx context.Context, keys []domain.DailyTracingKey) (_ []Incident, err error) {
	keys = uniqueKeys(keys)

	ctx, span := m.telemetry.tracer.Start(ctx, "expo.match", trace.WithAttributes(attribute.Int("expo.keys", len(keys))))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if len(keys) == 0 {
		return nil, nil
	}

	observations, err := m.log.ObservationsSince(ctx, lowWatermark(keys))
	if err != nil {
		return nil, fmt.Errorf("read proximity log: %w", err)
	}
	index := indexObservations(observations)

	p := pool.NewWithResults[[]Incident]().
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError().
		WithMaxGoroutines(m.workers)
	for _, key := range keys {
		p.Go(func(ctx context.Context) ([]Incident, error) {
			return m.matchKey(ctx, key, index)
		})
	}

	perKey, err := p.Wait()
	if err != nil {
		return nil, err
	}

	var incidents []Incident
	for _, found := range perKey {
		incidents = append(incidents, found...)
	}
	slices.SortStableFunc(incidents, func(a, b Incident) int {
		return a.Start.Compare(b.Start)
	})

	m.telemetry.keys.Add(ctx, int64(len(keys)))
	m.telemetry.derivations.Add(ctx, int64(len(keys)*domain.WindowsPerDay))
	m.telemetry.incidents.Add(ctx, int64(len(incidents)))
	span.SetAttributes(
		attribute.Int("expo.observations", len(observations)),
		attribute.Int("expo.incidents", len(incidents)),
	)
	m.logger.Debug("matched diagnosis keys", "keys", len(keys), "observations", len(observations), "incidents", len(incidents))

	return incidents, nil
}

func (m *Matcher) matchKey(ctx context.Context, key domain.DailyTracingKey, index map[domain.RollingProximityIdentifier][]domain.ProximityObservation) ([]Incident, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ids, err := m.deriver.DeriveDay(key)
	if err != nil {
		return nil, fmt.Errorf("derive identifiers for %s: %w", key.Day, err)
	}

	var matched []domain.ProximityObservation
	for w, id := range ids {
		for _, obs := range index[id] {
			if subtle.ConstantTimeCompare(obs.Identifier[:], id[:]) != 1 {
				continue
			}
			if !withinTolerance(key.Day.WindowIndex(obs.Timestamp), w) {
				continue
			}
			matched = append(matched, obs)
		}
	}

	return coalesce(key, matched, m.gap), nil
}

func withinTolerance(observed, derived int) bool {
	diff := observed - derived
	return diff >= -windowTolerance && diff <= windowTolerance
}

// coalesce merges observations into incidents. An observation starting no
// later than gap after the end of the current incident extends it and adds its
// duration.
func coalesce(key domain.DailyTracingKey, observations []domain.ProximityObservation, gap time.Duration) []Incident {
	if len(observations) == 0 {
		return nil
	}
	slices.SortFunc(observations, func(a, b domain.ProximityObservation) int {
		return cmp.Or(a.Timestamp.Compare(b.Timestamp), cmp.Compare(a.SignalDuration, b.SignalDuration))
	})

	var incidents []Incident
	var end time.Time
	for _, obs := range observations {
		if n := len(incidents); n > 0 && !obs.Timestamp.After(end.Add(gap)) {
			incidents[n-1].Duration += obs.SignalDuration
			incidents[n-1].Observations++
			if obs.End().After(end) {
				end = obs.End()
			}
			continue
		}

		incidents = append(incidents, Incident{
			Key:          key,
			Start:        obs.Timestamp,
			Duration:     obs.SignalDuration,
			Observations: 1,
		})
		end = obs.End()
	}
	return incidents
}

func indexObservations(observations []domain.ProximityObservation) map[domain.RollingProximityIdentifier][]domain.ProximityObservation {
	index := make(map[domain.RollingProximityIdentifier][]domain.ProximityObservation, len(observations))
	for _, obs := range observations {
		index[obs.Identifier] = append(index[obs.Identifier], obs)
	}
	return index
}

// lowWatermark is the start of the tolerance window preceding the earliest key day.
func lowWatermark(keys []domain.DailyTracingKey) time.Time {
	earliest := keys[0].Day
	for _, key := range keys[1:] {
		earliest = min(earliest, key.Day)
	}
	return earliest.WindowStart(-windowTolerance)
}

func uniqueKeys(keys []domain.DailyTracingKey) []domain.DailyTracingKey {
	seen := make(map[domain.DailyTracingKey]struct{}, len(keys))
	unique := make([]domain.DailyTracingKey, 0, len(keys))
	for _, key := range keys {
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, key)
	}
	return unique
}
