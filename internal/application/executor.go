package application

import "sync"

// Executor runs completion handlers. Implementations decide on which goroutine
// a handler runs but must run handlers in the order they were submitted.
type Executor interface {
	Execute(fn func())
}

// InlineExecutor runs each handler on the submitting goroutine.
type InlineExecutor struct{}

func (InlineExecutor) Execute(fn func()) {
	fn()
}

// SerialExecutor runs submitted functions one at a time in submission order on
// a background goroutine. The goroutine exits when the queue drains and is
// started again by the next submission, so an idle executor holds no goroutine.
type SerialExecutor struct {
	mu      sync.Mutex
	queue   []func()
	running bool
}

func NewSerialExecutor() *SerialExecutor {
	return &SerialExecutor{}
}

func (e *SerialExecutor) Execute(fn func()) {
	e.mu.Lock()
	e.queue = append(e.queue, fn)
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.mu.Unlock()

	go e.drain()
}

func (e *SerialExecutor) drain() {
	for {
		e.mu.Lock()
		if len(e.queue) == 0 {
			e.running = false
			e.mu.Unlock()
			return
		}
		fn := e.queue[0]
		e.queue[0] = nil
		e.queue = e.queue[1:]
		e.mu.Unlock()

		fn()
	}
}
