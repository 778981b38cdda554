// internal/morse/transmitter.go
package morse

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/pihamlab/morselink/internal/gpio"
	"github.com/pihamlab/morselink/internal/recovery"
)

var (
	// ErrLineRequired indicates a line driver is required
	ErrLineRequired = errors.New("line driver is required")
	// ErrClockRequired indicates a clock is required
	ErrClockRequired = errors.New("clock is required")
)

// TxState is the transmitter state machine position.
type TxState int

const (
	TxIdle TxState = iota
	TxTransmitting
	TxCancelling
)

func (s TxState) String() string {
	switch s {
	case TxTransmitting:
		return "transmitting"
	case TxCancelling:
		return "cancelling"
	default:
		return "idle"
	}
}

// CompletionCallback fires exactly once per accepted send, from the transmit
// worker, when the pulse sequence finishes or is cancelled.
type CompletionCallback func(text string, cancelled bool)

// PulseCallback observes output pulse edges (true on rising, false on
// falling). Used for sidetone/LED feedback. Must be fast and non-blocking.
type PulseCallback func(on bool)

// Transmitter owns the output side of the line and emits at most one Morse
// pulse sequence at a time. Send never blocks beyond the idle check; the
// sequence runs on its own worker goroutine and only Cancel joins it.
type Transmitter struct {
	line    gpio.Line
	profile Profile
	clock   Clock
	log     zerolog.Logger

	mu       sync.Mutex
	state    TxState
	cancelCh chan struct{}
	doneCh   chan struct{}

	onDone  atomic.Pointer[CompletionCallback]
	onPulse atomic.Pointer[PulseCallback]
}

// NewTransmitter creates a transmitter over the given line.
func NewTransmitter(line gpio.Line, profile Profile, clock Clock, logger zerolog.Logger) (*Transmitter, error) {
	if line == nil {
		return nil, ErrLineRequired
	}
	if clock == nil {
		return nil, ErrClockRequired
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return &Transmitter{
		line:    line,
		profile: profile,
		clock:   clock,
		log:     logger,
	}, nil
}

// SetCompletionCallback sets the callback fired when a send finishes.
func (t *Transmitter) SetCompletionCallback(cb CompletionCallback) {
	if cb == nil {
		t.onDone.Store(nil)
	} else {
		t.onDone.Store(&cb)
	}
}

// SetPulseCallback sets the observer for output pulse edges.
func (t *Transmitter) SetPulseCallback(cb PulseCallback) {
	if cb == nil {
		t.onPulse.Store(nil)
	} else {
		t.onPulse.Store(&cb)
	}
}

// State returns the current state machine position.
func (t *Transmitter) State() TxState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Send accepts text for transmission if the transmitter is idle. A busy
// transmitter rejects immediately with false; nothing is queued and the
// caller must retry. On acceptance the pulse sequence runs asynchronously.
func (t *Transmitter) Send(text string) bool {
	t.mu.Lock()
	if t.state != TxIdle {
		t.mu.Unlock()
		return false
	}
	t.state = TxTransmitting
	cancelCh := make(chan struct{})
	doneCh := make(chan struct{})
	t.cancelCh = cancelCh
	t.doneCh = doneCh
	t.mu.Unlock()

	code := TextToMorse(text)
	t.log.Debug().Str("text", text).Str("morse", code).Msg("transmission accepted")

	go t.worker(text, code, cancelCh, doneCh)
	return true
}

// Cancel requests cancellation of any in-flight send and blocks until the
// worker has observably stopped. Idempotent when nothing is in flight.
func (t *Transmitter) Cancel() {
	t.mu.Lock()
	switch t.state {
	case TxIdle:
		t.mu.Unlock()
		return
	case TxTransmitting:
		t.state = TxCancelling
		close(t.cancelCh)
	}
	doneCh := t.doneCh
	t.mu.Unlock()

	<-doneCh
}

func (t *Transmitter) worker(text, code string, cancel <-chan struct{}, done chan<- struct{}) {
	// A panic mid-pulse would otherwise leave the line held high.
	defer recovery.HandlePanicFunc(func() {
		_ = t.line.SetOutput(gpio.Low)
	})

	cancelled := t.transmit(code, cancel)

	// The line must idle low whatever path ended the sequence.
	if err := t.line.SetOutput(gpio.Low); err != nil {
		t.log.Warn().Err(err).Msg("failed to release line")
	}

	t.mu.Lock()
	t.state = TxIdle
	t.mu.Unlock()
	close(done)

	if cancelled {
		t.log.Info().Str("text", text).Msg("transmission cancelled")
	} else {
		t.log.Info().Str("text", text).Msg("transmission complete")
	}
	if cb := t.onDone.Load(); cb != nil {
		(*cb)(text, cancelled)
	}
}

// transmit walks the Morse string, reporting whether it was cancelled.
func (t *Transmitter) transmit(code string, cancel <-chan struct{}) bool {
	if code == "" {
		return false
	}

	chars := strings.Split(code, " ")
	for i, char := range chars {
		if requested(cancel) {
			return true
		}

		if char == WordSeparator {
			if !t.clock.Sleep(t.profile.InterWordGap, cancel) {
				return true
			}
			continue
		}

		for _, el := range char {
			if requested(cancel) {
				return true
			}
			sig := Dot
			if el == '-' {
				sig = Dash
			}
			if t.pulse(sig, cancel) {
				return true
			}
		}

		// Gap between characters; a following word separator supplies its
		// own, longer wait.
		if i < len(chars)-1 && chars[i+1] != WordSeparator {
			if !t.clock.Sleep(t.profile.InterCharGap, cancel) {
				return true
			}
		}
	}
	return false
}

// pulse raises the line for the signal's duration, drops it, then waits the
// intra-character gap. Reports whether cancellation interrupted it.
func (t *Transmitter) pulse(sig Signal, cancel <-chan struct{}) bool {
	t.gate(true)
	if err := t.line.SetOutput(gpio.High); err != nil {
		t.log.Warn().Err(err).Msg("failed to raise line")
	}

	elapsed := t.clock.Sleep(t.profile.DurationFor(sig), cancel)

	if err := t.line.SetOutput(gpio.Low); err != nil {
		t.log.Warn().Err(err).Msg("failed to drop line")
	}
	t.gate(false)

	if !elapsed {
		return true
	}
	return !t.clock.Sleep(t.profile.IntraCharGap, cancel)
}

func (t *Transmitter) gate(on bool) {
	if cb := t.onPulse.Load(); cb != nil {
		(*cb)(on)
	}
}

func requested(cancel <-chan struct{}) bool {
	select {
	case <-cancel:
		return true
	default:
		return false
	}
}
