package domain

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// RollingProximityIdentifier is the public value broadcast during one exposure window.
type RollingProximityIdentifier [IdentifierSize]byte

func ParseIdentifier(raw string) (RollingProximityIdentifier, error) {
	var id RollingProximityIdentifier

	decoded, err := hex.DecodeString(strings.TrimSpace(raw))
	if err != nil {
		return id, fmt.Errorf("%w: %v", ErrInvalidIdentifier, err)
	}
	if len(decoded) != IdentifierSize {
		return id, fmt.Errorf("%w: got %d bytes", ErrInvalidIdentifier, len(decoded))
	}

	copy(id[:], decoded)
	return id, nil
}

func (id RollingProximityIdentifier) String() string {
	return hex.EncodeToString(id[:])
}

// ProximityObservation is one identifier sighting recorded by the radio stack.
type ProximityObservation struct {
	Identifier     RollingProximityIdentifier
	Timestamp      time.Time
	SignalDuration time.Duration
}

func (o ProximityObservation) End() time.Time {
	return o.Timestamp.Add(o.SignalDuration)
}
