// internal/morse/manager.go
package morse

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/pihamlab/morselink/internal/gpio"
)

// Manager binds one Transmitter and one receive pipeline to the same line and
// exposes the message-granularity API the application layer talks to.
type Manager struct {
	tx   *Transmitter
	sig  *SignalReceiver
	text *TextReceiver
	log  zerolog.Logger

	mu     sync.Mutex
	active bool
}

// NewManager wires up a full endpoint over the given line.
func NewManager(line gpio.Line, profile Profile, clock Clock, logger zerolog.Logger) (*Manager, error) {
	tx, err := NewTransmitter(line, profile, clock, logger)
	if err != nil {
		return nil, err
	}
	sig, err := NewSignalReceiver(line, profile, clock, logger)
	if err != nil {
		return nil, err
	}
	text, err := NewTextReceiver(sig, profile, clock, logger)
	if err != nil {
		return nil, err
	}
	return &Manager{
		tx:   tx,
		sig:  sig,
		text: text,
		log:  logger,
	}, nil
}

// Start begins monitoring the input line. A no-op with a warning when the
// manager is already active.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active {
		m.log.Warn().Msg("communication already started")
		return
	}
	if err := m.sig.Start(); err != nil {
		m.log.Warn().Err(err).Msg("failed to start signal monitoring")
		return
	}
	m.active = true
	m.log.Info().Msg("communication started")
}

// Stop cancels any in-flight transmission and halts monitoring.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active {
		return
	}
	m.tx.Cancel()
	if err := m.sig.Stop(); err != nil {
		m.log.Warn().Err(err).Msg("failed to stop signal monitoring")
	}
	m.active = false
	m.log.Info().Msg("communication stopped")
}

// Active reports whether monitoring is running.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Transmitting reports whether a send is in flight.
func (m *Manager) Transmitting() bool {
	return m.tx.State() != TxIdle
}

// SendMessage transmits text over the line. Returns false when communication
// has not been started or a transmission is already in flight; both are
// expected conditions, not errors.
func (m *Manager) SendMessage(text string) bool {
	m.mu.Lock()
	active := m.active
	m.mu.Unlock()
	if !active {
		m.log.Warn().Msg("send rejected: communication not started")
		return false
	}
	return m.tx.Send(text)
}

// ReceivedText returns the non-blocking snapshot of decoded text, including
// any word still accumulating.
func (m *Manager) ReceivedText() string {
	return m.text.Text()
}

// ReceivedSignals returns the diagnostics log of completed Morse characters.
func (m *Manager) ReceivedSignals() []ReceivedSignal {
	return m.sig.Received()
}

// Clear resets the received text, cascading down to the signal receiver.
func (m *Manager) Clear() {
	m.text.Clear()
	m.log.Info().Msg("received text cleared")
}

// OnCharacter registers the decoded-character notification.
func (m *Manager) OnCharacter(cb TextCallback) {
	m.text.SetTextCallback(cb)
}

// OnWord registers the completed-word notification.
func (m *Manager) OnWord(cb WordCallback) {
	m.text.SetWordCallback(cb)
}

// OnTransmitDone registers the transmission-complete notification.
func (m *Manager) OnTransmitDone(cb CompletionCallback) {
	m.tx.SetCompletionCallback(cb)
}

// OnPulse registers the output pulse edge observer (sidetone, LED).
func (m *Manager) OnPulse(cb PulseCallback) {
	m.tx.SetPulseCallback(cb)
}
