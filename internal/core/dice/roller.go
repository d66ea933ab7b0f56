package dice

import (
	"errors"
	"math/rand"
	"sync"
	"time"
)

// ErrMissingDice indicates a roll request had no dice specified.
var ErrMissingDice = errors.New("at least one die must be provided")

// ErrInvalidDiceSpec indicates a die specification has invalid fields.
var ErrInvalidDiceSpec = errors.New("dice must have positive sides and count")

// ErrMissingRoller indicates no random source was supplied.
var ErrMissingRoller = errors.New("dice roller is required")

// Roller yields a uniformly distributed value in [1, sides].
type Roller interface {
	Roll(sides int) int
}

// Source is a Roller backed by math/rand. It is safe for concurrent use.
type Source struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeededSource returns a Source seeded with seed.
func NewSeededSource(seed int64) *Source {
	return &Source{rng: rand.New(rand.NewSource(seed))}
}

// NewTimeSource returns a Source seeded from the current time.
func NewTimeSource() *Source {
	return NewSeededSource(time.Now().UnixNano())
}

// Roll returns a value in [1, sides]. Sides below 1 yield 1.
func (s *Source) Roll(sides int) int {
	if sides < 1 {
		return 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(sides) + 1
}

// Sequence replays fixed values in order and then repeats the last one.
// Values are clamped to the die being rolled.
type Sequence struct {
	mu     sync.Mutex
	values []int
	next   int
}

// NewSequence returns a Sequence replaying values.
func NewSequence(values ...int) *Sequence {
	return &Sequence{values: append([]int(nil), values...)}
}

// Roll returns the next queued value clamped to [1, sides].
func (s *Sequence) Roll(sides int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.values) == 0 {
		return 1
	}
	idx := s.next
	if idx >= len(s.values) {
		idx = len(s.values) - 1
	} else {
		s.next++
	}
	v := s.values[idx]
	if v < 1 {
		v = 1
	}
	if sides >= 1 && v > sides {
		v = sides
	}
	return v
}

// RollerFunc adapts a function to the Roller interface.
type RollerFunc func(sides int) int

// Roll calls f(sides).
func (f RollerFunc) Roll(sides int) int {
	return f(sides)
}
