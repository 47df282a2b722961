package application

import (
	"context"
	"slices"
	"sync"

	"github.com/bnema/exposure-detect/internal/domain"
)

// Detection is the outcome of a finished session.
type Detection struct {
	Summary  domain.ExposureSummary
	Contacts []domain.ContactInfo
}

// Aggregate reduces incidents to a summary and one quantized ContactInfo per
// incident, in incident order.
func Aggregate(incidents []Incident) Detection {
	matched := make(map[domain.DailyTracingKey]struct{})
	contacts := make([]domain.ContactInfo, 0, len(incidents))

	for _, incident := range incidents {
		matched[incident.Key] = struct{}{}
		contacts = append(contacts, domain.NewContactInfo(incident.Duration, incident.Start))
	}

	return Detection{
		Summary:  domain.ExposureSummary{MatchedKeyCount: len(matched)},
		Contacts: contacts,
	}
}

// WipeIncidents zeroes the matched key material held by incidents.
func WipeIncidents(incidents []Incident) {
	for i := range incidents {
		incidents[i].Key.Wipe()
	}
}

// ContactStream hands out contacts in batches. Once every contact has been
// returned it yields exactly one empty batch, then domain.ErrContactsExhausted.
// A stream cannot be rewound.
type ContactStream struct {
	mu        sync.Mutex
	contacts  []domain.ContactInfo
	batchSize int
	next      int
	exhausted bool
	err       error
}

func NewContactStream(contacts []domain.ContactInfo, batchSize int) *ContactStream {
	if batchSize <= 0 {
		batchSize = DefaultContactBatchSize
	}
	return &ContactStream{
		contacts:  slices.Clone(contacts),
		batchSize: batchSize,
	}
}

func (s *ContactStream) Next(ctx context.Context) ([]domain.ContactInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return nil, s.err
	}
	if s.exhausted {
		return nil, domain.ErrContactsExhausted
	}

	if s.next >= len(s.contacts) {
		s.exhausted = true
		s.contacts = nil
		return []domain.ContactInfo{}, nil
	}

	end := min(s.next+s.batchSize, len(s.contacts))
	batch := slices.Clone(s.contacts[s.next:end])
	s.next = end
	return batch, nil
}

func (s *ContactStream) Exhausted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.exhausted
}

// Remaining reports how many contacts have not been handed out yet.
func (s *ContactStream) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return max(len(s.contacts)-s.next, 0)
}

func (s *ContactStream) invalidate(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err == nil {
		s.err = err
	}
	s.contacts = nil
	s.next = 0
}
