package toml

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bnema/exposure-detect/internal/domain"
	"github.com/bnema/exposure-detect/internal/ports"
)

const diagnosisKeysLabel = "diagnosis keys"

var ErrDiagnosisKeysNotFound = errors.New("diagnosis keys file not found")

// DiagnosisKeyFile reads and writes a batch of daily tracing keys as
//
//	version = 1
//	[[keys]]
//	key = "<32 hex digits>"
//	day = "2026-10-12"
type DiagnosisKeyFile struct {
	path string
	mu   *sync.RWMutex
}

var _ ports.DiagnosisKeySource = (*DiagnosisKeyFile)(nil)

func NewDiagnosisKeyFile(path string) (*DiagnosisKeyFile, error) {
	if path == "" {
		return nil, errors.New("diagnosis keys path is empty")
	}

	path, err := normalizePath(path)
	if err != nil {
		return nil, err
	}

	return &DiagnosisKeyFile{path: path, mu: lockForPath(path)}, nil
}

func (f *DiagnosisKeyFile) Keys(ctx context.Context) ([]domain.DailyTracingKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	var file diagnosisKeysSchema
	found, err := readFile(f.path, diagnosisKeysLabel, &file)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrDiagnosisKeysNotFound, f.path)
	}
	if err := validateVersion(diagnosisKeysLabel, file.Version); err != nil {
		return nil, err
	}

	keys := make([]domain.DailyTracingKey, 0, len(file.Keys))
	for i, entry := range file.Keys {
		day, err := domain.ParseDay(entry.Day)
		if err != nil {
			return nil, fmt.Errorf("decode diagnosis key %d: %w", i, err)
		}
		key, err := domain.ParseDailyTracingKeyHex(entry.Key, day)
		if err != nil {
			return nil, fmt.Errorf("decode diagnosis key %d: %w", i, err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (f *DiagnosisKeyFile) Save(ctx context.Context, keys []domain.DailyTracingKey) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	file := diagnosisKeysSchema{Keys: make([]diagnosisKeySchema, 0, len(keys))}
	for _, key := range keys {
		file.Keys = append(file.Keys, diagnosisKeySchema{Key: key.Hex(), Day: key.Day.String()})
	}
	file.applyDefaults()
	return writeFile(f.path, diagnosisKeysLabel, file)
}
