package core

import (
	"math/rand/v2"
	"sync"
)

// OutcomeSource supplies the random draws behind simulated outcomes: failure
// chance, duration jitter and simulated dependency readiness. Values are in
// [0, 1).
type OutcomeSource interface {
	Float64() float64
}

// randomSource is the production OutcomeSource.
type randomSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomSource returns an OutcomeSource backed by a PCG generator seeded
// from the runtime's random source.
func NewRandomSource() OutcomeSource {
	return &randomSource{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// NewSeededSource returns a reproducible OutcomeSource.
func NewSeededSource(seed uint64) OutcomeSource {
	return &randomSource{rng: rand.New(rand.NewPCG(seed, seed))}
}

func (s *randomSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// SequenceSource is a deterministic OutcomeSource that replays a fixed list of
// values, cycling when exhausted. An empty sequence always yields 0.
type SequenceSource struct {
	mu     sync.Mutex
	values []float64
	next   int
}

// NewSequenceSource creates a SequenceSource replaying values.
func NewSequenceSource(values ...float64) *SequenceSource {
	return &SequenceSource{values: values}
}

// Float64 returns the next value of the sequence.
func (s *SequenceSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.values) == 0 {
		return 0
	}
	v := s.values[s.next%len(s.values)]
	s.next++
	return v
}

// Draws returns how many values have been consumed.
func (s *SequenceSource) Draws() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}
