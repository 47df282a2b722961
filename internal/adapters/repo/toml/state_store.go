package toml

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/bnema/exposure-detect/internal/domain"
	"github.com/bnema/exposure-detect/internal/ports"
)

const (
	StatePathKey = "state.path"
	stateFile    = "state.toml"
	stateLabel   = "tracing state"
)

// StateStore persists the device tracing toggle.
type StateStore struct {
	path string
	mu   *sync.RWMutex
	now  func() time.Time
}

var _ ports.TracingStateStore = (*StateStore)(nil)

func NewStateStore(cfg *viper.Viper) (*StateStore, error) {
	path, err := resolvePath(cfg, StatePathKey, stateFile)
	if err != nil {
		return nil, err
	}

	return &StateStore{path: path, mu: lockForPath(path), now: time.Now}, nil
}

// State reports domain.TracingStateUnknown until a state has been set.
func (s *StateStore) State(ctx context.Context) (domain.TracingState, error) {
	if err := ctx.Err(); err != nil {
		return domain.TracingStateUnknown, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var file stateSchema
	if _, err := readFile(s.path, stateLabel, &file); err != nil {
		return domain.TracingStateUnknown, err
	}
	if err := validateVersion(stateLabel, file.Version); err != nil {
		return domain.TracingStateUnknown, err
	}
	file.applyDefaults()

	return domain.ParseTracingState(file.State)
}

func (s *StateStore) SetState(ctx context.Context, state domain.TracingState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if state != domain.TracingStateOn && state != domain.TracingStateOff {
		return fmt.Errorf("set tracing state: unsupported value %q", state)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file := stateSchema{State: string(state), UpdatedAt: formatTime(s.now())}
	file.applyDefaults()
	return writeFile(s.path, stateLabel, file)
}
