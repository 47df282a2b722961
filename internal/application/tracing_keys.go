package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bnema/exposure-detect/internal/crypto"
	"github.com/bnema/exposure-detect/internal/domain"
	"github.com/bnema/exposure-detect/internal/ports"
)

const (
	dailyKeyRefPrefix    = "expo/daily-keys/"
	DefaultRetentionDays = 14
)

// TracingKeyService owns the device's own daily tracing keys.
type TracingKeyService struct {
	store     ports.SecretStore
	clock     ports.Clock
	retention int
	logger    *slog.Logger
}

func NewTracingKeyService(store ports.SecretStore, clock ports.Clock, retentionDays int, logger *slog.Logger) *TracingKeyService {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &TracingKeyService{
		store:     store,
		clock:     clock,
		retention: retentionDays,
		logger:    logger,
	}
}

func DailyKeyRef(day domain.DayNumber) string {
	return dailyKeyRefPrefix + day.String()
}

// KeyForDay returns the stored key of day, generating and storing one on first use.
func (s *TracingKeyService) KeyForDay(ctx context.Context, day domain.DayNumber) (domain.DailyTracingKey, error) {
	key, err := s.loadKey(ctx, day)
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, domain.ErrSecretNotFound) {
		return domain.DailyTracingKey{}, err
	}

	key, err = crypto.GenerateDailyKey(day)
	if err != nil {
		return domain.DailyTracingKey{}, err
	}
	if err := s.store.Put(ctx, DailyKeyRef(day), key.Hex()); err != nil {
		return domain.DailyTracingKey{}, fmt.Errorf("store daily tracing key: %w", err)
	}
	s.logger.Debug("generated daily tracing key", "day", day)
	return key, nil
}

func (s *TracingKeyService) loadKey(ctx context.Context, day domain.DayNumber) (domain.DailyTracingKey, error) {
	raw, err := s.store.Get(ctx, DailyKeyRef(day))
	if err != nil {
		return domain.DailyTracingKey{}, fmt.Errorf("get daily tracing key: %w", err)
	}

	key, err := domain.ParseDailyTracingKeyHex(strings.TrimSpace(raw), day)
	if err != nil {
		return domain.DailyTracingKey{}, fmt.Errorf("decode daily tracing key for %s: %w", day, err)
	}
	return key, nil
}

// CurrentIdentifier returns the identifier this device broadcasts right now
// and the start of the window it belongs to.
func (s *TracingKeyService) CurrentIdentifier(ctx context.Context) (domain.RollingProximityIdentifier, time.Time, error) {
	now := s.clock.Now()
	day := domain.DayOf(now)

	key, err := s.KeyForDay(ctx, day)
	if err != nil {
		return domain.RollingProximityIdentifier{}, time.Time{}, err
	}
	defer key.Wipe()

	window := day.WindowIndex(now)
	id, err := crypto.Derive(key, window)
	if err != nil {
		return domain.RollingProximityIdentifier{}, time.Time{}, fmt.Errorf("derive current identifier: %w", err)
	}
	return id, day.WindowStart(window), nil
}

// SelfTracingInfo returns the stored keys of the completed days inside the
// retention period, oldest first. The current day's key is still in use and
// is never included.
func (s *TracingKeyService) SelfTracingInfo(ctx context.Context) (domain.SelfTracingInfo, error) {
	today := domain.DayOf(s.clock.Now())

	var info domain.SelfTracingInfo
	for day := today - domain.DayNumber(s.retention); day < today; day++ {
		key, err := s.loadKey(ctx, day)
		if err != nil {
			if errors.Is(err, domain.ErrSecretNotFound) {
				continue
			}
			return domain.SelfTracingInfo{}, err
		}
		info.Keys = append(info.Keys, key)
	}
	return info, nil
}

// Purge deletes every stored key whose day lies before the retention period
// and returns how many keys were removed.
func (s *TracingKeyService) Purge(ctx context.Context) (int, error) {
	oldest := domain.DayOf(s.clock.Now()) - domain.DayNumber(s.retention)

	refs, err := s.store.List(ctx, dailyKeyRefPrefix)
	if err != nil {
		return 0, fmt.Errorf("list daily tracing keys: %w", err)
	}

	removed := 0
	for _, ref := range refs {
		day, err := domain.ParseDay(strings.TrimPrefix(ref, dailyKeyRefPrefix))
		if err != nil {
			s.logger.Warn("skipping unrecognized daily key ref", "ref", ref)
			continue
		}
		if day >= oldest {
			continue
		}

		if err := s.store.Delete(ctx, ref); err != nil {
			if errors.Is(err, domain.ErrSecretNotFound) {
				continue
			}
			return removed, fmt.Errorf("delete daily tracing key: %w", err)
		}
		removed++
	}
	if removed > 0 {
		s.logger.Debug("purged expired daily tracing keys", "removed", removed, "before", oldest)
	}
	return removed, nil
}
