// internal/morse/textrecv.go
package morse

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// ErrReceiverRequired indicates a signal receiver is required
var ErrReceiverRequired = errors.New("signal receiver is required")

// TextCallback fires once per decoded text character.
type TextCallback func(char string, at time.Time)

// WordCallback fires once per completed word, from the boundary timer
// goroutine that observed the completing silence.
type WordCallback func(word string, at time.Time)

// TextReceiver consumes completed Morse characters from a SignalReceiver,
// decodes them and batches them into words. A word completes when the line
// stays quiet for the inter-word gap after the last character; the same
// generation re-validation used for character boundaries keeps stale word
// timers from emitting.
type TextReceiver struct {
	sig     *SignalReceiver
	profile Profile
	clock   Clock
	log     zerolog.Logger

	mu         sync.Mutex
	committed  string
	pending    string
	generation uint64

	onText atomic.Pointer[TextCallback]
	onWord atomic.Pointer[WordCallback]
}

// NewTextReceiver creates a text receiver subscribed to sig's completed
// characters.
func NewTextReceiver(sig *SignalReceiver, profile Profile, clock Clock, logger zerolog.Logger) (*TextReceiver, error) {
	if sig == nil {
		return nil, ErrReceiverRequired
	}
	if clock == nil {
		return nil, ErrClockRequired
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	t := &TextReceiver{
		sig:     sig,
		profile: profile,
		clock:   clock,
		log:     logger,
	}
	sig.SetCharCallback(t.handleChar)
	return t, nil
}

// SetTextCallback sets the per-character callback.
func (t *TextReceiver) SetTextCallback(cb TextCallback) {
	if cb == nil {
		t.onText.Store(nil)
	} else {
		t.onText.Store(&cb)
	}
}

// SetWordCallback sets the completed-word callback.
func (t *TextReceiver) SetWordCallback(cb WordCallback) {
	if cb == nil {
		t.onWord.Store(nil)
	} else {
		t.onWord.Store(&cb)
	}
}

// handleChar decodes one completed Morse character, appends it to the pending
// word and re-arms the word-boundary timer.
func (t *TextReceiver) handleChar(morseChar string, at time.Time) {
	text := MorseToText(morseChar)

	t.mu.Lock()
	t.pending += text
	t.generation++
	gen := t.generation
	t.mu.Unlock()

	t.log.Debug().Str("morse", morseChar).Str("char", text).Msg("character decoded")
	if cb := t.onText.Load(); cb != nil {
		(*cb)(text, at)
	}

	go t.wordTimer(gen)
}

// wordTimer waits the inter-word gap and commits the pending word if no
// further character completed in the meantime.
func (t *TextReceiver) wordTimer(gen uint64) {
	t.clock.Sleep(t.profile.InterWordGap, nil)

	// A pulse in progress or a pending signal means another character of
	// this word is still arriving; its completion re-arms the timer.
	if !t.sig.Quiet() {
		return
	}

	t.mu.Lock()
	if t.generation != gen || t.pending == "" {
		t.mu.Unlock()
		return
	}
	word := t.pending
	t.committed += word
	t.pending = ""
	t.generation++
	t.mu.Unlock()

	at := t.clock.Now()
	t.log.Info().Str("word", word).Msg("word complete")
	if cb := t.onWord.Load(); cb != nil {
		(*cb)(word, at)
	}
}

// Text returns the committed buffer plus whatever word is still accumulating,
// so callers observe in-progress words without waiting for the boundary.
func (t *TextReceiver) Text() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.committed + t.pending
}

// Clear resets the committed buffer and the pending word, invalidates any
// in-flight word timer and cascades to the signal receiver.
func (t *TextReceiver) Clear() {
	t.mu.Lock()
	t.committed = ""
	t.pending = ""
	t.generation++
	t.mu.Unlock()

	t.sig.Clear()
}
