package domain

import (
	"fmt"
	"strings"
	"time"
)

// TracingState is the device-wide contact tracing toggle.
type TracingState string

const (
	TracingStateUnknown TracingState = "unknown"
	TracingStateOn      TracingState = "on"
	TracingStateOff     TracingState = "off"
)

func ParseTracingState(raw string) (TracingState, error) {
	switch TracingState(strings.ToLower(strings.TrimSpace(raw))) {
	case TracingStateOn:
		return TracingStateOn, nil
	case TracingStateOff:
		return TracingStateOff, nil
	case TracingStateUnknown, "":
		return TracingStateUnknown, nil
	default:
		return "", fmt.Errorf("unsupported tracing state %q", raw)
	}
}

func (s TracingState) Enabled() bool {
	return s == TracingStateOn
}

// Consent is the user's standing answer to the exposure detection prompt.
type Consent struct {
	Granted    bool
	Restricted bool
	UpdatedAt  time.Time
}
