package crypto

import (
	"math/bits"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/exposure-detect/internal/domain"
)

func fixedKey(seed byte, day domain.DayNumber) domain.DailyTracingKey {
	key := domain.DailyTracingKey{Day: day}
	for i := range key.Data {
		key.Data[i] = seed + byte(i)
	}
	return key
}

func TestDeriveIsDeterministic(t *testing.T) {
	key := fixedKey(1, 20_000)

	for _, w := range []int{0, 1, 30, domain.WindowsPerDay - 1} {
		first, err := Derive(key, w)
		require.NoError(t, err)
		second, err := Deriver{}.Derive(key, w)
		require.NoError(t, err)
		assert.Equal(t, first, second, "window %d", w)
	}
}

func TestDeriveDayMatchesDerive(t *testing.T) {
	key := fixedKey(9, 20_000)

	ids, err := DeriveDay(key)
	require.NoError(t, err)

	for w := range domain.WindowsPerDay {
		single, err := Derive(key, w)
		require.NoError(t, err)
		require.Equal(t, single, ids[w], "window %d", w)
	}
}

func TestDeriveRejectsOutOfRangeWindow(t *testing.T) {
	key := fixedKey(1, 1)

	for _, w := range []int{-1, domain.WindowsPerDay, 10_000} {
		_, err := Derive(key, w)
		assert.ErrorIs(t, err, domain.ErrWindowOutOfRange)
	}
}

func TestDeriveDoesNotDependOnDay(t *testing.T) {
	a, err := Derive(fixedKey(3, 1), 42)
	require.NoError(t, err)
	b, err := Derive(fixedKey(3, 2), 42)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestDerivedIdentifiersAreDistinct(t *testing.T) {
	seen := make(map[domain.RollingProximityIdentifier]struct{})

	const keys = 200
	for i := range keys {
		key, err := GenerateDailyKey(domain.DayNumber(i))
		require.NoError(t, err)

		ids, err := DeriveDay(key)
		require.NoError(t, err)
		for _, id := range ids {
			seen[id] = struct{}{}
		}
	}

	assert.Len(t, seen, keys*domain.WindowsPerDay)
}

func TestDeriveAvalancheOnSingleKeyBit(t *testing.T) {
	key := fixedKey(5, 1)
	flipped := key
	flipped.Data[0] ^= 0x01

	a, err := DeriveDay(key)
	require.NoError(t, err)
	b, err := DeriveDay(flipped)
	require.NoError(t, err)

	total := 0
	for w := range a {
		for i := range a[w] {
			total += bits.OnesCount8(a[w][i] ^ b[w][i])
		}
	}
	mean := float64(total) / float64(len(a))

	// 128-bit outputs should differ in about half their bits.
	assert.InDelta(t, 64, mean, 8)
}

func TestGenerateDailyKeyIsRandom(t *testing.T) {
	a, err := GenerateDailyKey(5)
	require.NoError(t, err)
	b, err := GenerateDailyKey(5)
	require.NoError(t, err)

	assert.Equal(t, domain.DayNumber(5), a.Day)
	assert.NotEqual(t, a.Data, b.Data)
}

func BenchmarkDeriveDay(b *testing.B) {
	key := fixedKey(7, 1)

	b.ReportAllocs()
	for b.Loop() {
		if _, err := DeriveDay(key); err != nil {
			b.Fatal(err)
		}
	}
}
