package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bnema/exposure-detect/internal/domain"
	"github.com/bnema/exposure-detect/internal/ports"
)

// DetectionReport is the outcome of a complete detection run.
type DetectionReport struct {
	Summary     domain.ExposureSummary
	Contacts    []domain.ContactInfo
	KeysChecked int
	Batches     int
	FinishedAt  time.Time
}

// DetectionService drives sessions end to end for callers that do not need
// the asynchronous API.
type DetectionService struct {
	log    ports.ProximityLog
	toggle ports.TracingStateStore
	auth   ports.Authorizer
	clock  ports.Clock
	cfg    DetectionConfig
	logger *slog.Logger
}

func NewDetectionService(log ports.ProximityLog, toggle ports.TracingStateStore, auth ports.Authorizer, clock ports.Clock, cfg DetectionConfig, logger *slog.Logger) *DetectionService {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &DetectionService{
		log:    log,
		toggle: toggle,
		auth:   auth,
		clock:  clock,
		cfg:    cfg,
		logger: logger,
	}
}

func (s *DetectionService) NewSession(opts ...SessionOption) *Session {
	base := []SessionOption{WithDetectionConfig(s.cfg), WithLogger(s.logger)}
	return NewSession(s.log, s.toggle, s.auth, append(base, opts...)...)
}

// Detect activates a session, feeds it every key from source in paced
// batches, finishes it and drains its contacts.
func (s *DetectionService) Detect(ctx context.Context, source ports.DiagnosisKeySource) (DetectionReport, error) {
	keys, err := source.Keys(ctx)
	if err != nil {
		return DetectionReport{}, fmt.Errorf("load diagnosis keys: %w", err)
	}
	defer func() {
		for i := range keys {
			keys[i].Wipe()
		}
	}()

	return s.DetectKeys(ctx, keys)
}

func (s *DetectionService) DetectKeys(ctx context.Context, keys []domain.DailyTracingKey) (DetectionReport, error) {
	session := s.NewSession()
	defer session.Invalidate()

	if _, err := session.Activate(nil).Wait(ctx); err != nil {
		return DetectionReport{}, fmt.Errorf("activate session: %w", err)
	}

	report := DetectionReport{KeysChecked: len(keys)}
	batchSize := s.cfg.withDefaults().IngestBatchSize
	maxKeyCount := session.MaxKeyCount()
	for start := 0; start < len(keys); {
		end := ingestEnd(start, len(keys), batchSize, maxKeyCount)

		next, err := session.AddKeys(keys[start:end], nil).Wait(ctx)
		if err != nil {
			return DetectionReport{}, fmt.Errorf("add keys %d-%d: %w", start, end, err)
		}
		report.Batches++
		maxKeyCount = next
		start = end
	}

	summary, err := session.Finish(nil).Wait(ctx)
	if err != nil {
		return DetectionReport{}, fmt.Errorf("finish session: %w", err)
	}
	report.Summary = summary

	stream, err := session.Contacts()
	if err != nil {
		return DetectionReport{}, fmt.Errorf("open contact stream: %w", err)
	}
	for {
		batch, err := stream.Next(ctx)
		if err != nil {
			if errors.Is(err, domain.ErrContactsExhausted) {
				break
			}
			return DetectionReport{}, fmt.Errorf("read contacts: %w", err)
		}
		if len(batch) == 0 {
			break
		}
		report.Contacts = append(report.Contacts, batch...)
	}

	report.FinishedAt = s.clock.Now()
	s.logger.Info("exposure detection finished", "keys", report.KeysChecked, "batches", report.Batches, "matched_keys", summary.MatchedKeyCount, "contacts", len(report.Contacts))
	return report, nil
}

// ingestEnd picks the end of the batch starting at start. Every batch exceeds
// maxKeyCount, and a tail too short to be accepted on its own is folded into
// the current batch.
func ingestEnd(start, total, batchSize, maxKeyCount int) int {
	size := max(batchSize, maxKeyCount+1)
	end := min(start+size, total)
	if total-end <= maxKeyCount {
		end = total
	}
	return end
}
