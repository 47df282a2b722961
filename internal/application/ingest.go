package application

import (
	"fmt"
	"slices"
	"sync"

	"github.com/bnema/exposure-detect/internal/domain"
)

// KeyIngestionBuffer accumulates diagnosis keys for one session and enforces
// the batching contract: every batch must be larger than the maxKeyCount
// advertised before the call.
type KeyIngestionBuffer struct {
	mu          sync.Mutex
	floor       int
	capacity    int
	keys        []domain.DailyTracingKey
	maxKeyCount int
	closed      bool
}

func NewKeyIngestionBuffer(floor, capacity int) *KeyIngestionBuffer {
	b := &KeyIngestionBuffer{
		floor:    max(floor, 0),
		capacity: max(capacity, 0),
	}
	b.maxKeyCount = nextMaxKeyCount(b.floor, b.capacity)
	return b
}

// nextMaxKeyCount shrinks with the remaining capacity so that a batch filling
// the buffer exactly is still large enough to be accepted.
func nextMaxKeyCount(floor, remaining int) int {
	return max(min(floor, remaining-1), 0)
}

func (b *KeyIngestionBuffer) MaxKeyCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.maxKeyCount
}

// AddKeys appends batch and returns the maxKeyCount the next call must exceed.
// A rejected batch leaves the buffer untouched.
func (b *KeyIngestionBuffer) AddKeys(batch []domain.DailyTracingKey) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return b.maxKeyCount, domain.ErrSessionClosed
	}
	if len(batch) <= b.maxKeyCount {
		return b.maxKeyCount, fmt.Errorf("%w: got %d keys, need more than %d", domain.ErrInsufficientBatchSize, len(batch), b.maxKeyCount)
	}
	if len(b.keys)+len(batch) > b.capacity {
		return b.maxKeyCount, fmt.Errorf("%w: %d buffered, %d offered, capacity %d", domain.ErrKeyBufferFull, len(b.keys), len(batch), b.capacity)
	}

	b.keys = append(b.keys, batch...)
	b.maxKeyCount = nextMaxKeyCount(b.floor, b.capacity-len(b.keys))
	return b.maxKeyCount, nil
}

// Close ends intake. Later AddKeys calls fail with domain.ErrSessionClosed.
func (b *KeyIngestionBuffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
}

func (b *KeyIngestionBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.keys)
}

func (b *KeyIngestionBuffer) Keys() []domain.DailyTracingKey {
	b.mu.Lock()
	defer b.mu.Unlock()

	return slices.Clone(b.keys)
}

// Reset wipes and drops every buffered key.
func (b *KeyIngestionBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.keys {
		b.keys[i].Wipe()
	}
	b.keys = nil
}
