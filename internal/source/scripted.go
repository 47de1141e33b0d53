package source

import (
	"context"
	"sync"

	"codeberg.org/mutker/roadwatch/internal/monitor"
)

// Scripted replays a fixed sample sequence, one sample per tick. Once the
// sequence is exhausted every tick is silent. Deterministic, so tests can
// drive exact detector behavior.
type Scripted struct {
	mu      sync.Mutex
	samples []monitor.Sample
	idx     int
}

// NewScripted builds a scripted source.
func NewScripted(samples ...monitor.Sample) *Scripted {
	return &Scripted{samples: samples}
}

// Next returns the next scripted sample, or nil when exhausted.
func (s *Scripted) Next(_ context.Context) (*monitor.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.idx >= len(s.samples) {
		return nil, nil
	}

	sample := s.samples[s.idx]
	s.idx++

	return &sample, nil
}

// Remaining reports how many samples are left to replay.
func (s *Scripted) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.samples) - s.idx
}
