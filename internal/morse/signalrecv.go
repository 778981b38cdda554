// internal/morse/signalrecv.go
package morse

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/pihamlab/morselink/internal/gpio"
	"github.com/pihamlab/morselink/internal/recovery"
)

var (
	// ErrAlreadyMonitoring indicates the receiver is already running
	ErrAlreadyMonitoring = errors.New("signal receiver already monitoring")
	// ErrNotMonitoring indicates the receiver is not running
	ErrNotMonitoring = errors.New("signal receiver not monitoring")
)

// receivedLogCap bounds the diagnostics log of completed characters.
const receivedLogCap = 100

// CharCallback fires once per completed Morse character, from the boundary
// timer goroutine that observed the completing gap.
type CharCallback func(char string, at time.Time)

// ReceivedSignal is one completed character in the diagnostics log.
type ReceivedSignal struct {
	Char string    `json:"char"`
	At   time.Time `json:"at"`
}

// SignalReceiver owns the input side of the line. A monitor goroutine polls
// the line, debounces edges and measures pulse durations; classified signals
// accumulate into a pending character that a boundary timer completes once
// the line stays quiet for the inter-character gap.
//
// Boundary timers are never cancelled. Each one captures the accumulator
// generation when armed and re-validates it at fire time, so a timer made
// stale by a newer edge (or by Clear) is a no-op instead of a double emit.
type SignalReceiver struct {
	line    gpio.Line
	profile Profile
	clock   Clock
	log     zerolog.Logger

	mu          sync.Mutex
	pending     []Signal
	generation  uint64
	pulseActive bool
	received    []ReceivedSignal
	running     bool
	stopCh      chan struct{}
	doneCh      chan struct{}

	onChar atomic.Pointer[CharCallback]
}

// NewSignalReceiver creates a receiver over the given line.
func NewSignalReceiver(line gpio.Line, profile Profile, clock Clock, logger zerolog.Logger) (*SignalReceiver, error) {
	if line == nil {
		return nil, ErrLineRequired
	}
	if clock == nil {
		return nil, ErrClockRequired
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return &SignalReceiver{
		line:    line,
		profile: profile,
		clock:   clock,
		log:     logger,
	}, nil
}

// SetCharCallback sets the completed-character callback.
func (r *SignalReceiver) SetCharCallback(cb CharCallback) {
	if cb == nil {
		r.onChar.Store(nil)
	} else {
		r.onChar.Store(&cb)
	}
}

// Start launches the monitor goroutine.
func (r *SignalReceiver) Start() error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return ErrAlreadyMonitoring
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.doneCh = make(chan struct{})
	stopCh, doneCh := r.stopCh, r.doneCh
	r.mu.Unlock()

	go r.monitor(stopCh, doneCh)
	r.log.Debug().Msg("signal monitoring started")
	return nil
}

// Stop halts the monitor goroutine and joins it.
func (r *SignalReceiver) Stop() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return ErrNotMonitoring
	}
	r.running = false
	close(r.stopCh)
	doneCh := r.doneCh
	r.mu.Unlock()

	<-doneCh
	r.log.Debug().Msg("signal monitoring stopped")
	return nil
}

// monitor polls the input line, collapses bounce and measures the duration of
// each high pulse. Polling trades a little CPU for portability over a true
// edge interrupt; debounce and duration semantics are what matter.
func (r *SignalReceiver) monitor(stop chan struct{}, done chan<- struct{}) {
	defer recovery.HandlePanic()
	defer close(done)

	lastLevel := gpio.Low
	var lastEdge time.Time
	var signalStart time.Time

	for {
		level, err := r.line.ReadInput()
		if err != nil {
			r.log.Warn().Err(err).Msg("failed to read line")
		} else if level != lastLevel {
			now := r.clock.Now()
			// Edges inside the debounce window are bounce from the previous
			// transition: ignore them without updating lastLevel, so the
			// settled level reads as no edge at all.
			if lastEdge.IsZero() || now.Sub(lastEdge) >= r.profile.Debounce {
				lastEdge = now
				lastLevel = level
				if level == gpio.High {
					r.markRising()
					signalStart = now
				} else if !signalStart.IsZero() {
					r.handlePulse(now.Sub(signalStart), stop)
					signalStart = time.Time{}
				}
			}
		}

		if !r.clock.Sleep(r.profile.PollInterval, stop) {
			return
		}
	}
}

// markRising records a rising edge. A pulse now in progress belongs to the
// character being accumulated, so any armed boundary timer must go stale.
func (r *SignalReceiver) markRising() {
	r.mu.Lock()
	r.pulseActive = true
	r.generation++
	r.mu.Unlock()
}

// handlePulse classifies one measured pulse and arms a character-boundary
// timer for the new accumulator generation.
func (r *SignalReceiver) handlePulse(duration time.Duration, stop <-chan struct{}) {
	sig := r.profile.Classify(duration)

	r.mu.Lock()
	r.pulseActive = false
	r.pending = append(r.pending, sig)
	r.generation++
	gen := r.generation
	r.mu.Unlock()

	r.log.Debug().
		Stringer("signal", sig).
		Dur("duration", duration).
		Msg("pulse classified")

	go r.charTimer(gen, stop)
}

// charTimer waits the inter-character gap and completes the pending character
// if nothing new arrived in the meantime.
func (r *SignalReceiver) charTimer(gen uint64, stop <-chan struct{}) {
	if !r.clock.Sleep(r.profile.InterCharGap, stop) {
		return
	}

	r.mu.Lock()
	if r.generation != gen || len(r.pending) == 0 {
		r.mu.Unlock()
		return
	}
	char := signalString(r.pending)
	r.pending = nil
	r.generation++
	at := r.clock.Now()
	r.received = append(r.received, ReceivedSignal{Char: char, At: at})
	if len(r.received) > receivedLogCap {
		r.received = r.received[len(r.received)-receivedLogCap:]
	}
	r.mu.Unlock()

	r.log.Debug().Str("char", char).Msg("character complete")
	if cb := r.onChar.Load(); cb != nil {
		(*cb)(char, at)
	}
}

// Quiet reports whether the line is between characters: no pulse in progress
// and nothing pending. A word boundary is only meaningful while quiet.
func (r *SignalReceiver) Quiet() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.pulseActive && len(r.pending) == 0
}

// Pending returns a snapshot of the accumulating character.
func (r *SignalReceiver) Pending() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return signalString(r.pending)
}

// Received returns a snapshot of the completed-character diagnostics log.
func (r *SignalReceiver) Received() []ReceivedSignal {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ReceivedSignal, len(r.received))
	copy(out, r.received)
	return out
}

// Clear discards the pending character, invalidates any in-flight boundary
// timer and resets the diagnostics log. Characters already delivered through
// the callback are unaffected.
func (r *SignalReceiver) Clear() {
	r.mu.Lock()
	r.pending = nil
	r.generation++
	r.received = nil
	r.mu.Unlock()
}

func signalString(signals []Signal) string {
	var b strings.Builder
	b.Grow(len(signals))
	for _, s := range signals {
		b.WriteString(s.String())
	}
	return b.String()
}
