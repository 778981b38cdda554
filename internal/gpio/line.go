// internal/gpio/line.go
// Package gpio abstracts the signal line used for Morse transmission and
// reception. The real implementation drives Raspberry Pi pins through go-rpio;
// the simulated implementation records writes and serves injected input levels
// so everything above it runs unchanged without hardware.
package gpio

import "errors"

// Level is the binary state of a line: Low or High.
type Level bool

const (
	Low  Level = false
	High Level = true
)

func (l Level) String() string {
	if l == High {
		return "high"
	}
	return "low"
}

// Pins holds the BCM pin numbers for the shared signal line.
type Pins struct {
	// Transmit is the output pin driven by the transmitter
	Transmit uint8
	// Receive is the input pin sampled by the signal receiver
	Receive uint8
}

var (
	// ErrHardwareUnavailable indicates the GPIO subsystem could not be opened
	ErrHardwareUnavailable = errors.New("gpio hardware unavailable")
	// ErrSamePin indicates transmit and receive are configured on the same pin
	ErrSamePin = errors.New("transmit and receive pins must differ")
)

// Line is the capability the Morse core consumes: one output direction owned
// by the transmitter and one input direction owned by the receiver.
type Line interface {
	// SetOutput drives the output side of the line to the given level.
	SetOutput(level Level) error
	// ReadInput samples the current level of the input side.
	ReadInput() (Level, error)
	// Close releases the line, leaving the output low.
	Close() error
}
