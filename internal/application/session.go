package application

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/bnema/exposure-detect/internal/crypto"
	"github.com/bnema/exposure-detect/internal/domain"
	"github.com/bnema/exposure-detect/internal/ports"
)

type SessionState int

const (
	SessionCreated SessionState = iota
	SessionActivated
	SessionCollecting
	SessionFinalizing
	SessionFinished
	SessionInvalidated
)

func (s SessionState) String() string {
	switch s {
	case SessionCreated:
		return "created"
	case SessionActivated:
		return "activated"
	case SessionCollecting:
		return "collecting"
	case SessionFinalizing:
		return "finalizing"
	case SessionFinished:
		return "finished"
	case SessionInvalidated:
		return "invalidated"
	default:
		return fmt.Sprintf("SessionState(%d)", int(s))
	}
}

type SessionOption func(*Session)

// WithExecutor sets where completion handlers run. Handlers run inline on the
// session's delivery goroutine by default.
func WithExecutor(executor Executor) SessionOption {
	return func(s *Session) {
		if executor != nil {
			s.executor = executor
		}
	}
}

func WithLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithDetectionConfig(cfg DetectionConfig) SessionOption {
	return func(s *Session) {
		s.cfg = cfg
	}
}

func WithKeyDeriver(deriver KeyDeriver) SessionOption {
	return func(s *Session) {
		if deriver != nil {
			s.deriver = deriver
		}
	}
}

var sessionSeq atomic.Uint64

// Session runs one exposure detection. Every call returns immediately; the
// work runs on a per-session worker in issue order and completions are
// delivered one at a time, in the same order, through the session Executor.
//
// Invalidate may be called at any time. Each operation settles exactly once:
// with its own outcome or with domain.ErrSessionInvalidated.
type Session struct {
	id        uint64
	toggle    ports.TracingStateStore
	auth      ports.Authorizer
	deriver   KeyDeriver
	cfg       DetectionConfig
	logger    *slog.Logger
	executor  Executor
	telemetry telemetry
	matcher   *Matcher

	worker *SerialExecutor
	outbox *SerialExecutor
	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	state       SessionState
	activateErr error
	buffer      *KeyIngestionBuffer
	detection   Detection
	stream      *ContactStream
	pending     map[uint64]func(error) bool
	nextOp      uint64
}

func NewSession(log ports.ProximityLog, toggle ports.TracingStateStore, auth ports.Authorizer, opts ...SessionOption) *Session {
	s := &Session{
		id:        sessionSeq.Add(1),
		toggle:    toggle,
		auth:      auth,
		deriver:   crypto.Deriver{},
		cfg:       DefaultDetectionConfig(),
		logger:    slog.Default(),
		executor:  InlineExecutor{},
		telemetry: newTelemetry(),
		worker:    NewSerialExecutor(),
		outbox:    NewSerialExecutor(),
		pending:   make(map[uint64]func(error) bool),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.cfg = s.cfg.withDefaults()
	s.logger = s.logger.With("session", s.id)
	s.buffer = NewKeyIngestionBuffer(s.cfg.BatchFloor, s.cfg.Capacity)
	s.matcher = NewMatcher(log, s.deriver, s.cfg, s.logger)
	s.ctx, s.cancel = context.WithCancel(context.Background())

	return s
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// MaxKeyCount is the batch size the next AddKeys call must exceed.
func (s *Session) MaxKeyCount() int {
	return s.buffer.MaxKeyCount()
}

// Activate checks that tracing is enabled and that the user authorized
// detection. A failed activation is final for this session: later Activate
// calls report the same error and every other operation fails with
// domain.ErrNotActivated.
func (s *Session) Activate(handler func(struct{}, error)) *Operation[struct{}] {
	return submit(s, handler, func(ctx context.Context, op *Operation[struct{}]) {
		s.mu.Lock()
		switch {
		case s.state == SessionInvalidated:
			s.mu.Unlock()
			return
		case s.activateErr != nil:
			op.fail(s.activateErr)
			s.mu.Unlock()
			return
		case s.state != SessionCreated:
			op.settle(struct{}{}, nil)
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		err := s.authorize(ctx)

		s.mu.Lock()
		defer s.mu.Unlock()

		if s.state == SessionInvalidated {
			return
		}
		if err != nil {
			s.activateErr = err
			s.logger.Info("session activation failed", "error", err)
			op.fail(err)
			return
		}
		s.transition(SessionActivated)
		op.settle(struct{}{}, nil)
	})
}

func (s *Session) authorize(ctx context.Context) error {
	state, err := s.toggle.State(ctx)
	if err != nil {
		return fmt.Errorf("read tracing state: %w", err)
	}
	if !state.Enabled() {
		return fmt.Errorf("%w: tracing is %s", domain.ErrRestrictedEnvironment, state)
	}

	if err := s.auth.Authorize(ctx); err != nil {
		return fmt.Errorf("authorize exposure detection: %w", err)
	}
	return nil
}

// AddKeys buffers a batch of diagnosis keys. The operation value is the
// maxKeyCount the next batch must exceed; it is set on failure too.
func (s *Session) AddKeys(keys []domain.DailyTracingKey, handler func(int, error)) *Operation[int] {
	batch := slices.Clone(keys)

	return submit(s, handler, func(_ context.Context, op *Operation[int]) {
		s.mu.Lock()
		defer s.mu.Unlock()

		switch s.state {
		case SessionInvalidated:
			return
		case SessionCreated:
			op.fail(domain.ErrNotActivated)
			return
		case SessionFinalizing, SessionFinished:
			op.settle(s.buffer.MaxKeyCount(), domain.ErrSessionClosed)
			return
		}

		next, err := s.buffer.AddKeys(batch)
		if err != nil {
			op.settle(next, fmt.Errorf("add diagnosis keys: %w", err))
			return
		}

		if s.state == SessionActivated {
			s.transition(SessionCollecting)
		}
		s.logger.Debug("buffered diagnosis keys", "batch", len(batch), "buffered", s.buffer.Len(), "max_key_count", next)
		op.settle(next, nil)
	})
}

// Finish closes intake and runs matching. The session reaches SessionFinished
// when the summary is ready; contacts become readable from then on.
func (s *Session) Finish(handler func(domain.ExposureSummary, error)) *Operation[domain.ExposureSummary] {
	return submit(s, handler, func(ctx context.Context, op *Operation[domain.ExposureSummary]) {
		s.mu.Lock()
		switch s.state {
		case SessionInvalidated:
			s.mu.Unlock()
			return
		case SessionCreated:
			op.fail(domain.ErrNotActivated)
			s.mu.Unlock()
			return
		case SessionFinalizing, SessionFinished:
			op.fail(domain.ErrSessionClosed)
			s.mu.Unlock()
			return
		}
		s.buffer.Close()
		keys := s.buffer.Keys()
		s.transition(SessionFinalizing)
		s.mu.Unlock()

		incidents, err := s.matcher.Match(ctx, keys)
		detection := Aggregate(incidents)
		WipeIncidents(incidents)
		for i := range keys {
			keys[i].Wipe()
		}
		s.buffer.Reset()

		s.mu.Lock()
		defer s.mu.Unlock()

		if s.state == SessionInvalidated {
			return
		}
		if err != nil {
			s.logger.Warn("exposure detection failed", "error", err)
			op.fail(fmt.Errorf("match diagnosis keys: %w", err))
			return
		}

		s.detection = detection
		s.stream = NewContactStream(detection.Contacts, s.cfg.ContactBatchSize)
		s.transition(SessionFinished)
		op.settle(detection.Summary, nil)
	})
}

// Summary returns the result of a finished session.
func (s *Session) Summary() (domain.ExposureSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.readableLocked(); err != nil {
		return domain.ExposureSummary{}, err
	}
	return s.detection.Summary, nil
}

// Contacts returns the session's contact stream. Every call returns the same
// stream, so contacts handed out once are never repeated.
func (s *Session) Contacts() (*ContactStream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.readableLocked(); err != nil {
		return nil, err
	}
	return s.stream, nil
}

func (s *Session) readableLocked() error {
	switch s.state {
	case SessionInvalidated:
		return domain.ErrSessionInvalidated
	case SessionFinished:
		return nil
	default:
		return domain.ErrDetectionPending
	}
}

// ContactInfo drains the contact stream in the background. batches receives
// every batch, ending with one empty batch. The operation value is the number
// of contacts delivered.
func (s *Session) ContactInfo(batches func([]domain.ContactInfo), done func(int, error)) *Operation[int] {
	return submit(s, done, func(ctx context.Context, op *Operation[int]) {
		stream, err := s.Contacts()
		if err != nil {
			s.settleLocked(func() { op.fail(err) })
			return
		}

		delivered := 0
		for {
			batch, err := stream.Next(ctx)

			s.mu.Lock()
			if s.state == SessionInvalidated {
				s.mu.Unlock()
				return
			}
			if err != nil {
				op.fail(err)
				s.mu.Unlock()
				return
			}
			if batches != nil {
				s.deliver(func() { batches(batch) })
			}
			delivered += len(batch)
			if len(batch) == 0 {
				op.settle(delivered, nil)
				s.mu.Unlock()
				return
			}
			s.mu.Unlock()
		}
	})
}

// Invalidate cancels in-flight work, fails every unsettled operation with
// domain.ErrSessionInvalidated and wipes buffered keys. It is idempotent.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == SessionInvalidated {
		return
	}
	s.transition(SessionInvalidated)
	s.cancel()

	for _, id := range slices.Sorted(maps.Keys(s.pending)) {
		s.pending[id](domain.ErrSessionInvalidated)
	}
	clear(s.pending)

	s.buffer.Close()
	s.buffer.Reset()
	if s.stream != nil {
		s.stream.invalidate(domain.ErrSessionInvalidated)
	}
	s.detection = Detection{}
}

// submit queues work on the session worker. Operations issued after
// invalidation settle immediately.
func submit[T any](s *Session, handler func(T, error), work func(context.Context, *Operation[T])) *Operation[T] {
	op := newOperation(s.deliver, handler)

	s.mu.Lock()
	if s.state == SessionInvalidated {
		op.fail(domain.ErrSessionInvalidated)
		s.mu.Unlock()
		return op
	}
	id := s.nextOp
	s.nextOp++
	s.pending[id] = op.fail
	s.mu.Unlock()

	s.worker.Execute(func() {
		defer s.forget(id)
		if op.settled.Load() {
			return
		}
		work(s.ctx, op)
	})
	return op
}

func (s *Session) forget(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.pending, id)
}

func (s *Session) settleLocked(settle func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == SessionInvalidated {
		return
	}
	settle()
}

func (s *Session) deliver(fn func()) {
	s.outbox.Execute(func() {
		s.executor.Execute(fn)
	})
}

func (s *Session) transition(next SessionState) {
	s.logger.Debug("session state changed", "from", s.state, "to", next)
	s.telemetry.sessions.Add(context.Background(), 1, metric.WithAttributes(attribute.String("expo.state", next.String())))
	s.state = next
}
