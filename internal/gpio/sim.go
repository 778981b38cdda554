// internal/gpio/sim.go
package gpio

import (
	"sync"
	"time"
)

// Write records one output transition on the simulated line.
type Write struct {
	Level Level
	At    time.Time
}

// Simulated is an in-memory Line. The input side reads Low unless a level is
// injected with SetInput; with loopback enabled the input mirrors the output,
// which lets tests wire a transmitter directly into a receiver.
type Simulated struct {
	mu       sync.Mutex
	output   Level
	input    Level
	loopback bool
	writes   []Write
	closed   bool
}

// NewSimulated returns a simulated line idling low on both sides.
func NewSimulated() *Simulated {
	return &Simulated{}
}

// EnableLoopback mirrors every output write onto the input side.
func (s *Simulated) EnableLoopback() {
	s.mu.Lock()
	s.loopback = true
	s.input = s.output
	s.mu.Unlock()
}

// SetInput injects the level the next ReadInput calls will observe.
func (s *Simulated) SetInput(level Level) {
	s.mu.Lock()
	s.input = level
	s.mu.Unlock()
}

// SetOutput records the transition and, in loopback mode, reflects it to the
// input side.
func (s *Simulated) SetOutput(level Level) error {
	s.mu.Lock()
	s.output = level
	if s.loopback {
		s.input = level
	}
	s.writes = append(s.writes, Write{Level: level, At: time.Now()})
	s.mu.Unlock()
	return nil
}

// ReadInput returns the injected (or looped-back) level.
func (s *Simulated) ReadInput() (Level, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input, nil
}

// Output returns the current output level.
func (s *Simulated) Output() Level {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.output
}

// Writes returns a copy of every output transition recorded so far.
func (s *Simulated) Writes() []Write {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Write, len(s.writes))
	copy(out, s.writes)
	return out
}

// Close marks the line closed and drops it to low.
func (s *Simulated) Close() error {
	s.mu.Lock()
	s.closed = true
	s.output = Low
	if s.loopback {
		s.input = Low
	}
	s.mu.Unlock()
	return nil
}
