package application

import (
	"context"
	"sync/atomic"
)

// Operation is the pending result of an asynchronous session call. It settles
// exactly once, either with the outcome of the work or with the error that
// cancelled it, and then invokes its handler once.
type Operation[T any] struct {
	done    chan struct{}
	settled atomic.Bool
	value   T
	err     error

	handler func(T, error)
	deliver func(func())
}

func newOperation[T any](deliver func(func()), handler func(T, error)) *Operation[T] {
	if deliver == nil {
		deliver = InlineExecutor{}.Execute
	}
	return &Operation[T]{
		done:    make(chan struct{}),
		handler: handler,
		deliver: deliver,
	}
}

// settle records the outcome and reports whether this call won the race.
func (o *Operation[T]) settle(value T, err error) bool {
	if !o.settled.CompareAndSwap(false, true) {
		return false
	}

	o.value = value
	o.err = err
	close(o.done)

	if handler := o.handler; handler != nil {
		o.handler = nil
		o.deliver(func() { handler(value, err) })
	}
	return true
}

func (o *Operation[T]) fail(err error) bool {
	var zero T
	return o.settle(zero, err)
}

// Done is closed once the operation has settled.
func (o *Operation[T]) Done() <-chan struct{} {
	return o.done
}

// Wait blocks until the operation settles or ctx ends. A ctx error does not
// cancel the operation itself.
func (o *Operation[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-o.done:
		return o.value, o.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
