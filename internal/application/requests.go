package application

import (
	"context"
	"sync"

	"github.com/bnema/exposure-detect/internal/domain"
	"github.com/bnema/exposure-detect/internal/ports"
)

// request runs one call to an external collaborator. Perform starts it once;
// Invalidate cancels it and settles it with domain.ErrRequestInvalidated
// unless it already completed.
type request[T any] struct {
	run     func(context.Context) (T, error)
	handler func(T, error)
	deliver func(func())

	mu     sync.Mutex
	op     *Operation[T]
	cancel context.CancelFunc
}

func newRequest[T any](executor Executor, handler func(T, error), run func(context.Context) (T, error)) *request[T] {
	if executor == nil {
		executor = InlineExecutor{}
	}
	outbox := NewSerialExecutor()

	return &request[T]{
		run:     run,
		handler: handler,
		deliver: func(fn func()) {
			outbox.Execute(func() { executor.Execute(fn) })
		},
	}
}

// Perform starts the request. Calling it again returns the same operation.
func (r *request[T]) Perform() *Operation[T] {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.op != nil {
		return r.op
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.op = newOperation(r.deliver, r.handler)
	r.cancel = cancel

	op := r.op
	go func() {
		defer cancel()
		value, err := r.run(ctx)
		op.settle(value, err)
	}()
	return op
}

func (r *request[T]) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.op == nil {
		r.op = newOperation(r.deliver, r.handler)
	}
	if r.cancel != nil {
		r.cancel()
	}
	r.op.fail(domain.ErrRequestInvalidated)
}

// StateGetRequest reads the device tracing toggle.
type StateGetRequest struct {
	*request[domain.TracingState]
}

func NewStateGetRequest(store ports.TracingStateStore, executor Executor, handler func(domain.TracingState, error)) *StateGetRequest {
	return &StateGetRequest{
		request: newRequest(executor, handler, store.State),
	}
}

// StateSetRequest writes the device tracing toggle.
type StateSetRequest struct {
	*request[domain.TracingState]
	State domain.TracingState
}

func NewStateSetRequest(store ports.TracingStateStore, state domain.TracingState, executor Executor, handler func(domain.TracingState, error)) *StateSetRequest {
	return &StateSetRequest{
		State: state,
		request: newRequest(executor, handler, func(ctx context.Context) (domain.TracingState, error) {
			if err := store.SetState(ctx, state); err != nil {
				return domain.TracingStateUnknown, err
			}
			return state, nil
		}),
	}
}

// SelfTracingInfoRequest collects this device's own daily tracing keys, for
// upload after a positive diagnosis.
type SelfTracingInfoRequest struct {
	*request[domain.SelfTracingInfo]
}

func NewSelfTracingInfoRequest(keys *TracingKeyService, executor Executor, handler func(domain.SelfTracingInfo, error)) *SelfTracingInfoRequest {
	return &SelfTracingInfoRequest{
		request: newRequest(executor, handler, keys.SelfTracingInfo),
	}
}
