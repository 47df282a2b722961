package domain

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

const (
	KeySize        = 16
	IdentifierSize = 16

	WindowLength  = 10 * time.Minute
	WindowsPerDay = int(24 * time.Hour / WindowLength)

	secondsPerDay = int64(24 * time.Hour / time.Second)
)

// DayNumber counts UTC calendar days since the Unix epoch.
type DayNumber int64

func DayOf(t time.Time) DayNumber {
	secs := t.Unix()
	day := secs / secondsPerDay
	if secs%secondsPerDay < 0 {
		day--
	}
	return DayNumber(day)
}

func ParseDay(raw string) (DayNumber, error) {
	parsed, err := time.Parse(time.DateOnly, strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("parse day %q: %w", raw, err)
	}
	return DayOf(parsed), nil
}

func (d DayNumber) Start() time.Time {
	return time.Unix(int64(d)*secondsPerDay, 0).UTC()
}

func (d DayNumber) String() string {
	return d.Start().Format(time.DateOnly)
}

// WindowIndex returns the exposure window of t relative to the start of d.
// Times before the day yield negative indexes, times after it yield indexes >= WindowsPerDay.
func (d DayNumber) WindowIndex(t time.Time) int {
	offset := t.Sub(d.Start())
	idx := int(offset / WindowLength)
	if offset < 0 && offset%WindowLength != 0 {
		idx--
	}
	return idx
}

// WindowStart returns the start time of window w of day d.
func (d DayNumber) WindowStart(w int) time.Time {
	return d.Start().Add(time.Duration(w) * WindowLength)
}

// DailyTracingKey is the per-day secret of a device. It is handed out only once
// its owner has been diagnosed positive.
type DailyTracingKey struct {
	Data [KeySize]byte
	Day  DayNumber
}

func ParseDailyTracingKey(raw []byte, day DayNumber) (DailyTracingKey, error) {
	if len(raw) != KeySize {
		return DailyTracingKey{}, fmt.Errorf("%w: got %d bytes", ErrInvalidKeySize, len(raw))
	}

	key := DailyTracingKey{Day: day}
	copy(key.Data[:], raw)
	return key, nil
}

func ParseDailyTracingKeyHex(raw string, day DayNumber) (DailyTracingKey, error) {
	decoded, err := hex.DecodeString(strings.TrimSpace(raw))
	if err != nil {
		return DailyTracingKey{}, fmt.Errorf("%w: %v", ErrInvalidKeySize, err)
	}
	return ParseDailyTracingKey(decoded, day)
}

func (k DailyTracingKey) Hex() string {
	return hex.EncodeToString(k.Data[:])
}

// Wipe zeroes the key material in place.
func (k *DailyTracingKey) Wipe() {
	clear(k.Data[:])
}

// SelfTracingInfo carries the daily tracing keys this device has used.
type SelfTracingInfo struct {
	Keys []DailyTracingKey
}
