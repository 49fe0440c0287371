package app

import (
	"math/rand/v2"
	"sync"
)

// Random is the injectable source behind every draw and shuffle.
// Implementations must be safe for concurrent use.
type Random interface {
	// IntN returns a uniform int in [0, n). n must be > 0.
	IntN(n int) int
}

type globalRandom struct{}

func (globalRandom) IntN(n int) int { return rand.IntN(n) }

// DefaultRandom draws from the runtime's goroutine-safe generator.
func DefaultRandom() Random { return globalRandom{} }

// SeededRandom is a deterministic source for tests and replays.
type SeededRandom struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewSeededRandom(seed uint64) *SeededRandom {
	return &SeededRandom{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *SeededRandom) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.IntN(n)
}

// randInt returns a uniform int in [lo, hi].
func randInt(r Random, lo, hi int) int {
	return lo + r.IntN(hi-lo+1)
}

// pick draws one element uniformly. items must be non-empty.
func pick[T any](r Random, items []T) T {
	return items[r.IntN(len(items))]
}

// shuffle is an in-place Fisher-Yates shuffle.
func shuffle[T any](r Random, items []T) {
	for i := len(items) - 1; i > 0; i-- {
		j := r.IntN(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}
