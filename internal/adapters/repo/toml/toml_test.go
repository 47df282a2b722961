package toml

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/exposure-detect/internal/domain"
)

func configFor(key, path string) *viper.Viper {
	config := viper.New()
	config.Set(key, path)
	return config
}

func identifier(t *testing.T, b byte) domain.RollingProximityIdentifier {
	t.Helper()

	id, err := domain.ParseIdentifier(strings.Repeat(string("0123456789abcdef"[b%16])+"0", domain.IdentifierSize))
	require.NoError(t, err)
	return id
}

func TestObservationLogRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "observations.toml")
	log, err := NewObservationLog(configFor(ObservationsPathKey, path))
	require.NoError(t, err)
	assert.Equal(t, path, log.Path())

	base := time.Date(2026, 10, 12, 5, 1, 0, 0, time.UTC)
	late := domain.ProximityObservation{Identifier: identifier(t, 1), Timestamp: base.Add(time.Hour), SignalDuration: 90 * time.Second}
	early := domain.ProximityObservation{Identifier: identifier(t, 2), Timestamp: base, SignalDuration: 6 * time.Minute}
	old := domain.ProximityObservation{Identifier: identifier(t, 3), Timestamp: base.Add(-48 * time.Hour), SignalDuration: time.Minute}

	require.NoError(t, log.Append(context.Background(), late, old))
	require.NoError(t, log.Append(context.Background(), early))

	got, err := log.ObservationsSince(context.Background(), base.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []domain.ProximityObservation{early, late}, got)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(fileMode), info.Mode().Perm())
}

func TestObservationLogMissingFileIsEmpty(t *testing.T) {
	t.Parallel()

	log, err := NewObservationLog(configFor(ObservationsPathKey, filepath.Join(t.TempDir(), "none.toml")))
	require.NoError(t, err)

	got, err := log.ObservationsSince(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestObservationLogRejectsCorruptEntries(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "observations.toml")
	require.NoError(t, os.WriteFile(path, []byte(`version = 1

[[observations]]
identifier = "abcd"
timestamp = "2026-10-12T05:00:00Z"
duration = "5m"
`), 0o600))

	log, err := NewObservationLog(configFor(ObservationsPathKey, path))
	require.NoError(t, err)

	_, err = log.ObservationsSince(context.Background(), time.Time{})
	require.ErrorIs(t, err, domain.ErrInvalidIdentifier)
}

func TestObservationLogRejectsNewerSchema(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "observations.toml")
	require.NoError(t, os.WriteFile(path, []byte("version = 9\n"), 0o600))

	log, err := NewObservationLog(configFor(ObservationsPathKey, path))
	require.NoError(t, err)

	_, err = log.ObservationsSince(context.Background(), time.Time{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported observations schema version 9")
}

func TestObservationLogPrune(t *testing.T) {
	t.Parallel()

	log, err := NewObservationLog(configFor(ObservationsPathKey, filepath.Join(t.TempDir(), "observations.toml")))
	require.NoError(t, err)

	cutoff := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	kept := domain.ProximityObservation{Identifier: identifier(t, 1), Timestamp: cutoff, SignalDuration: time.Minute}
	require.NoError(t, log.Append(context.Background(),
		domain.ProximityObservation{Identifier: identifier(t, 2), Timestamp: cutoff.Add(-time.Second), SignalDuration: time.Minute},
		kept,
	))

	removed, err := log.Prune(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	got, err := log.ObservationsSince(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, []domain.ProximityObservation{kept}, got)
}

func TestObservationLogConcurrentAppends(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "observations.toml")
	first, err := NewObservationLog(configFor(ObservationsPathKey, path))
	require.NoError(t, err)
	second, err := NewObservationLog(configFor(ObservationsPathKey, path))
	require.NoError(t, err)

	base := time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)
	var wg sync.WaitGroup
	for i := range 20 {
		log := first
		if i%2 == 1 {
			log = second
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			obs := domain.ProximityObservation{Identifier: identifier(t, byte(i)), Timestamp: base.Add(time.Duration(i) * time.Minute), SignalDuration: time.Minute}
			assert.NoError(t, log.Append(context.Background(), obs))
		}()
	}
	wg.Wait()

	got, err := first.ObservationsSince(context.Background(), base)
	require.NoError(t, err)
	assert.Len(t, got, 20)
}

func TestStateStoreDefaultsToUnknown(t *testing.T) {
	t.Parallel()

	store, err := NewStateStore(configFor(StatePathKey, filepath.Join(t.TempDir(), "state.toml")))
	require.NoError(t, err)

	state, err := store.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.TracingStateUnknown, state)
}

func TestStateStoreRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "state.toml")
	store, err := NewStateStore(configFor(StatePathKey, path))
	require.NoError(t, err)
	store.now = func() time.Time { return time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC) }

	require.NoError(t, store.SetState(context.Background(), domain.TracingStateOn))

	state, err := store.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.TracingStateOn, state)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "state = 'on'")
	assert.Contains(t, string(raw), "2026-10-18T08:00:00Z")

	require.Error(t, store.SetState(context.Background(), domain.TracingStateUnknown))
}

func TestConsentStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store, err := NewConsentStore(configFor(ConsentPathKey, filepath.Join(t.TempDir(), "consent.toml")))
	require.NoError(t, err)

	consent, err := store.Consent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.Consent{}, consent)

	want := domain.Consent{Granted: true, UpdatedAt: time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)}
	require.NoError(t, store.SaveConsent(context.Background(), want))

	consent, err = store.Consent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, consent)
}

func TestDiagnosisKeyFileRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "keys.toml")
	file, err := NewDiagnosisKeyFile(path)
	require.NoError(t, err)

	day, err := domain.ParseDay("2026-10-12")
	require.NoError(t, err)
	first, err := domain.ParseDailyTracingKeyHex(strings.Repeat("a1", domain.KeySize), day)
	require.NoError(t, err)
	second, err := domain.ParseDailyTracingKeyHex(strings.Repeat("b2", domain.KeySize), day+1)
	require.NoError(t, err)

	require.NoError(t, file.Save(context.Background(), []domain.DailyTracingKey{first, second}))

	keys, err := file.Keys(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.DailyTracingKey{first, second}, keys)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "day = '2026-10-13'")
}

func TestDiagnosisKeyFileErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	missing, err := NewDiagnosisKeyFile(filepath.Join(dir, "missing.toml"))
	require.NoError(t, err)
	_, err = missing.Keys(context.Background())
	require.ErrorIs(t, err, ErrDiagnosisKeysNotFound)

	shortPath := filepath.Join(dir, "short.toml")
	require.NoError(t, os.WriteFile(shortPath, []byte("[[keys]]\nkey = 'abcd'\nday = '2026-10-12'\n"), 0o600))
	short, err := NewDiagnosisKeyFile(shortPath)
	require.NoError(t, err)
	_, err = short.Keys(context.Background())
	require.ErrorIs(t, err, domain.ErrInvalidKeySize)

	_, err = NewDiagnosisKeyFile("")
	require.Error(t, err)
}

func TestStoresResolveUnderHomeKey(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	config := configFor(HomeKey, home)

	log, err := NewObservationLog(config)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "observations.toml"), log.Path())

	dir, err := HomeDir(config)
	require.NoError(t, err)
	assert.Equal(t, home, dir)

	config.Set(ObservationsPathKey, filepath.Join(home, "elsewhere.toml"))
	log, err = NewObservationLog(config)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "elsewhere.toml"), log.Path())
}
