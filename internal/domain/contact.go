package domain

import "time"

// ContactQuantum is the resolution of reported contact durations.
const ContactQuantum = 5 * time.Minute

type ExposureSummary struct {
	MatchedKeyCount int
}

func (s ExposureSummary) Exposed() bool {
	return s.MatchedKeyCount > 0
}

// ContactInfo describes one incident with reduced precision: Duration is a
// multiple of ContactQuantum and Timestamp is the UTC start of the day.
type ContactInfo struct {
	Duration  time.Duration
	Timestamp time.Time
}

func NewContactInfo(duration time.Duration, at time.Time) ContactInfo {
	return ContactInfo{
		Duration:  QuantizeDuration(duration),
		Timestamp: CoarsenTimestamp(at),
	}
}

// QuantizeDuration rounds d up to the next multiple of ContactQuantum, never below one quantum.
func QuantizeDuration(d time.Duration) time.Duration {
	if d <= ContactQuantum {
		return ContactQuantum
	}

	quanta := d / ContactQuantum
	if d%ContactQuantum != 0 {
		quanta++
	}
	return quanta * ContactQuantum
}

func CoarsenTimestamp(t time.Time) time.Time {
	return DayOf(t).Start()
}
