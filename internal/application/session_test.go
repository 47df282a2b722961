package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/exposure-detect/internal/domain"
	"github.com/bnema/exposure-detect/internal/ports/mocks"
)

type sessionFixture struct {
	log    *mocks.MockProximityLog
	toggle *mocks.MockTracingStateStore
	auth   *mocks.MockAuthorizer
}

func newSessionFixture(t *testing.T) *sessionFixture {
	return &sessionFixture{
		log:    mocks.NewMockProximityLog(t),
		toggle: mocks.NewMockTracingStateStore(t),
		auth:   mocks.NewMockAuthorizer(t),
	}
}

func (f *sessionFixture) session(opts ...SessionOption) *Session {
	return NewSession(f.log, f.toggle, f.auth, append([]SessionOption{WithDetectionConfig(testConfig())}, opts...)...)
}

func (f *sessionFixture) allowActivation() {
	f.toggle.EXPECT().State(mockAnyContext()).Return(domain.TracingStateOn, nil).Once()
	f.auth.EXPECT().Authorize(mockAnyContext()).Return(nil).Once()
}

func (f *sessionFixture) activated(t *testing.T, opts ...SessionOption) *Session {
	t.Helper()

	f.allowActivation()
	s := f.session(opts...)
	_, err := await(t, s.Activate(nil))
	require.NoError(t, err)
	return s
}

func await[T any](t *testing.T, op *Operation[T]) (T, error) {
	t.Helper()

	select {
	case <-op.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("operation did not settle")
	}
	return op.Wait(context.Background())
}

func TestSessionEndToEnd(t *testing.T) {
	f := newSessionFixture(t)
	k1, k2, k3 := testKey(1, testDay), testKey(2, testDay), testKey(3, testDay)
	f.log.EXPECT().ObservationsSince(mockAnyContext(), testDay.WindowStart(-1)).Return([]domain.ProximityObservation{
		sighting(t, k2, 30, testDay.WindowStart(30).Add(time.Minute), 6*time.Minute),
	}, nil)

	s := f.activated(t)
	assert.Equal(t, SessionActivated, s.State())
	require.Equal(t, 2, s.MaxKeyCount())

	next, err := await(t, s.AddKeys([]domain.DailyTracingKey{k1, k2, k3}, nil))
	require.NoError(t, err)
	assert.Equal(t, 2, next)
	assert.Equal(t, SessionCollecting, s.State())

	summary, err := await(t, s.Finish(nil))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.MatchedKeyCount)
	assert.Equal(t, SessionFinished, s.State())

	stream, err := s.Contacts()
	require.NoError(t, err)

	batch, err := stream.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.ContactInfo{{Duration: 10 * time.Minute, Timestamp: testDay.Start()}}, batch)

	batch, err = stream.Next(context.Background())
	require.NoError(t, err)
	assert.Empty(t, batch)

	_, err = stream.Next(context.Background())
	require.ErrorIs(t, err, domain.ErrContactsExhausted)

	again, err := s.Contacts()
	require.NoError(t, err)
	assert.Same(t, stream, again)

	stored, err := s.Summary()
	require.NoError(t, err)
	assert.Equal(t, summary, stored)
}

func TestSessionRejectsOperationsBeforeActivation(t *testing.T) {
	f := newSessionFixture(t)
	s := f.session()

	_, err := await(t, s.AddKeys(keyBatch(3), nil))
	require.ErrorIs(t, err, domain.ErrNotActivated)

	_, err = await(t, s.Finish(nil))
	require.ErrorIs(t, err, domain.ErrNotActivated)

	_, err = s.Contacts()
	require.ErrorIs(t, err, domain.ErrDetectionPending)

	_, err = s.Summary()
	require.ErrorIs(t, err, domain.ErrDetectionPending)
	assert.Equal(t, SessionCreated, s.State())
}

func TestSessionFailedActivationIsPermanent(t *testing.T) {
	f := newSessionFixture(t)
	f.toggle.EXPECT().State(mockAnyContext()).Return(domain.TracingStateOn, nil).Once()
	f.auth.EXPECT().Authorize(mockAnyContext()).Return(fmt.Errorf("user declined: %w", domain.ErrAuthorizationDenied)).Once()

	s := f.session()

	_, err := await(t, s.Activate(nil))
	require.ErrorIs(t, err, domain.ErrAuthorizationDenied)

	_, err = await(t, s.Activate(nil))
	require.ErrorIs(t, err, domain.ErrAuthorizationDenied)

	_, err = await(t, s.AddKeys(keyBatch(3), nil))
	require.ErrorIs(t, err, domain.ErrNotActivated)
	assert.Equal(t, SessionCreated, s.State())
}

func TestSessionActivationRequiresTracingOn(t *testing.T) {
	for _, state := range []domain.TracingState{domain.TracingStateOff, domain.TracingStateUnknown} {
		t.Run(string(state), func(t *testing.T) {
			f := newSessionFixture(t)
			f.toggle.EXPECT().State(mockAnyContext()).Return(state, nil).Once()

			_, err := await(t, f.session().Activate(nil))
			require.ErrorIs(t, err, domain.ErrRestrictedEnvironment)
		})
	}
}

func TestSessionActivationSurfacesToggleError(t *testing.T) {
	f := newSessionFixture(t)
	readErr := errors.New("toggle service down")
	f.toggle.EXPECT().State(mockAnyContext()).Return(domain.TracingStateUnknown, readErr).Once()

	_, err := await(t, f.session().Activate(nil))
	require.ErrorIs(t, err, readErr)
}

func TestSessionActivateTwiceSucceeds(t *testing.T) {
	f := newSessionFixture(t)
	s := f.activated(t)

	_, err := await(t, s.Activate(nil))
	require.NoError(t, err)
	assert.Equal(t, SessionActivated, s.State())
}

func TestSessionInsufficientBatchLeavesStateUnchanged(t *testing.T) {
	f := newSessionFixture(t)
	s := f.activated(t)

	next, err := await(t, s.AddKeys(keyBatch(2), nil))
	require.ErrorIs(t, err, domain.ErrInsufficientBatchSize)
	assert.Equal(t, 2, next)
	assert.Equal(t, SessionActivated, s.State())

	_, err = await(t, s.AddKeys(keyBatch(3), nil))
	require.NoError(t, err)
	assert.Equal(t, SessionCollecting, s.State())
}

func TestSessionClosedAfterFinish(t *testing.T) {
	f := newSessionFixture(t)
	s := f.activated(t)

	summary, err := await(t, s.Finish(nil))
	require.NoError(t, err)
	assert.Zero(t, summary.MatchedKeyCount)

	_, err = await(t, s.Finish(nil))
	require.ErrorIs(t, err, domain.ErrSessionClosed)

	_, err = await(t, s.AddKeys(keyBatch(3), nil))
	require.ErrorIs(t, err, domain.ErrSessionClosed)
	assert.Equal(t, SessionFinished, s.State())
}

func TestSessionMatcherFailureKeepsSessionFinalizing(t *testing.T) {
	f := newSessionFixture(t)
	readErr := errors.New("log unavailable")
	f.log.EXPECT().ObservationsSince(mockAnyContext(), testDay.WindowStart(-1)).Return(nil, readErr)

	s := f.activated(t)
	_, err := await(t, s.AddKeys(keyBatch(3), nil))
	require.NoError(t, err)

	_, err = await(t, s.Finish(nil))
	require.ErrorIs(t, err, readErr)
	assert.Equal(t, SessionFinalizing, s.State())

	_, err = await(t, s.Finish(nil))
	require.ErrorIs(t, err, domain.ErrSessionClosed)

	_, err = s.Contacts()
	require.ErrorIs(t, err, domain.ErrDetectionPending)
}

func TestSessionDeliversCompletionsInIssueOrder(t *testing.T) {
	f := newSessionFixture(t)
	f.allowActivation()
	f.log.EXPECT().ObservationsSince(mockAnyContext(), testDay.WindowStart(-1)).Return(nil, nil)
	s := f.session()

	var (
		mu    sync.Mutex
		order []string
		wg    sync.WaitGroup
	)
	record := func(name string) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, name)
		wg.Done()
	}

	wg.Add(5)
	s.Activate(func(struct{}, error) { record("activate") })
	s.AddKeys(keyBatch(1), func(int, error) { record("add-small") })
	s.AddKeys(keyBatch(3), func(int, error) { record("add") })
	s.Finish(func(domain.ExposureSummary, error) { record("finish") })
	s.AddKeys(keyBatch(3), func(_ int, err error) {
		assert.ErrorIs(t, err, domain.ErrSessionClosed)
		record("add-after-finish")
	})

	waitGroup(t, &wg)
	assert.Equal(t, []string{"activate", "add-small", "add", "finish", "add-after-finish"}, order)
}

func TestSessionHandlersRunOnExecutor(t *testing.T) {
	f := newSessionFixture(t)
	executor := &countingExecutor{}
	s := f.activated(t, WithExecutor(executor))

	done := make(chan struct{})
	s.Finish(func(domain.ExposureSummary, error) { close(done) })

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("finish handler not delivered")
	}
	assert.Equal(t, int64(1), executor.calls.Load())
}

func TestSessionContactInfoDeliversEveryBatch(t *testing.T) {
	f := newSessionFixture(t)
	batch := keyBatch(3)
	var observations []domain.ProximityObservation
	for i, key := range batch {
		w := 10 + i*20
		observations = append(observations, sighting(t, key, w, testDay.WindowStart(w), 4*time.Minute))
	}
	f.log.EXPECT().ObservationsSince(mockAnyContext(), testDay.WindowStart(-1)).Return(observations, nil)

	s := f.activated(t)
	s.AddKeys(batch, nil)
	s.Finish(nil)

	var (
		mu    sync.Mutex
		sizes []int
	)
	op := s.ContactInfo(func(contacts []domain.ContactInfo) {
		mu.Lock()
		defer mu.Unlock()
		sizes = append(sizes, len(contacts))
	}, nil)

	delivered, err := await(t, op)
	require.NoError(t, err)
	assert.Equal(t, 3, delivered)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(sizes) == 3
	}, 5*time.Second, time.Millisecond)
	assert.Equal(t, []int{2, 1, 0}, sizes)

	_, err = await(t, s.ContactInfo(nil, nil))
	require.ErrorIs(t, err, domain.ErrContactsExhausted)
}

func TestSessionInvalidateFailsInFlightFinish(t *testing.T) {
	f := newSessionFixture(t)
	entered := make(chan struct{})
	f.log.EXPECT().ObservationsSince(mockAnyContext(), testDay.WindowStart(-1)).RunAndReturn(
		func(ctx context.Context, _ time.Time) ([]domain.ProximityObservation, error) {
			close(entered)
			<-ctx.Done()
			return nil, ctx.Err()
		})

	s := f.activated(t)
	_, err := await(t, s.AddKeys(keyBatch(3), nil))
	require.NoError(t, err)

	var calls atomic.Int32
	op := s.Finish(func(domain.ExposureSummary, error) { calls.Add(1) })
	<-entered
	s.Invalidate()

	_, err = await(t, op)
	require.ErrorIs(t, err, domain.ErrSessionInvalidated)
	assert.Equal(t, SessionInvalidated, s.State())

	_, err = await(t, s.AddKeys(keyBatch(3), nil))
	require.ErrorIs(t, err, domain.ErrSessionInvalidated)
	_, err = s.Contacts()
	require.ErrorIs(t, err, domain.ErrSessionInvalidated)

	flushDeliveries(t, s)
	assert.Equal(t, int32(1), calls.Load())

	s.Invalidate()
	assert.Equal(t, SessionInvalidated, s.State())
}

func TestSessionInvalidateRacesFinishWithSingleOutcome(t *testing.T) {
	for i := range 50 {
		t.Run(fmt.Sprintf("run-%d", i), func(t *testing.T) {
			f := newSessionFixture(t)
			key := testKey(1, testDay)
			f.log.EXPECT().ObservationsSince(mockAnyContext(), testDay.WindowStart(-1)).Return([]domain.ProximityObservation{
				sighting(t, key, 5, testDay.WindowStart(5), time.Minute),
			}, nil).Maybe()

			s := f.activated(t)
			_, err := await(t, s.AddKeys([]domain.DailyTracingKey{key, testKey(2, testDay), testKey(3, testDay)}, nil))
			require.NoError(t, err)

			var calls atomic.Int32
			var outcome atomic.Value
			op := s.Finish(func(summary domain.ExposureSummary, err error) {
				calls.Add(1)
				outcome.Store(fmt.Sprint(summary.MatchedKeyCount, err))
			})
			go s.Invalidate()

			summary, err := await(t, op)
			if err != nil {
				require.ErrorIs(t, err, domain.ErrSessionInvalidated)
			} else {
				assert.Equal(t, 1, summary.MatchedKeyCount)
			}

			flushDeliveries(t, s)
			assert.Equal(t, int32(1), calls.Load())
			assert.Equal(t, fmt.Sprint(summary.MatchedKeyCount, err), outcome.Load())
		})
	}
}

func TestSessionInvalidateAfterFinishInvalidatesStream(t *testing.T) {
	f := newSessionFixture(t)
	s := f.activated(t)
	_, err := await(t, s.Finish(nil))
	require.NoError(t, err)

	stream, err := s.Contacts()
	require.NoError(t, err)

	s.Invalidate()

	_, err = stream.Next(context.Background())
	require.ErrorIs(t, err, domain.ErrSessionInvalidated)
	_, err = s.Summary()
	require.ErrorIs(t, err, domain.ErrSessionInvalidated)
}

func TestSessionInvalidateFailsQueuedOperations(t *testing.T) {
	f := newSessionFixture(t)
	f.toggle.EXPECT().State(mockAnyContext()).Return(domain.TracingStateOn, nil).Maybe()
	release := make(chan struct{})
	f.auth.EXPECT().Authorize(mockAnyContext()).RunAndReturn(func(ctx context.Context) error {
		<-release
		return nil
	}).Maybe()

	s := f.session()
	activate := s.Activate(nil)
	ops := []*Operation[int]{s.AddKeys(keyBatch(3), nil), s.AddKeys(keyBatch(4), nil)}
	finish := s.Finish(nil)

	s.Invalidate()
	close(release)

	for _, op := range ops {
		_, err := await(t, op)
		require.ErrorIs(t, err, domain.ErrSessionInvalidated)
	}
	_, err := await(t, activate)
	require.ErrorIs(t, err, domain.ErrSessionInvalidated)
	_, err = await(t, finish)
	require.ErrorIs(t, err, domain.ErrSessionInvalidated)
}

func TestSessionStateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "finalizing", SessionFinalizing.String())
	assert.Equal(t, "SessionState(42)", SessionState(42).String())
}

// flushDeliveries waits until every completion queued before it has been delivered.
func flushDeliveries(t *testing.T, s *Session) {
	t.Helper()

	done := make(chan struct{})
	s.deliver(func() { close(done) })
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("deliveries did not drain")
	}
}

func waitGroup(t *testing.T, wg *sync.WaitGroup) {
	t.Helper()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("handlers not delivered")
	}
}

type countingExecutor struct {
	calls atomic.Int64
}

func (e *countingExecutor) Execute(fn func()) {
	e.calls.Add(1)
	fn()
}
