// internal/gpio/rpi.go
package gpio

import (
	"fmt"

	"github.com/stianeikeland/go-rpio/v4"
)

// RPiLine drives real Raspberry Pi GPIO pins through /dev/gpiomem.
type RPiLine struct {
	pins Pins
	out  rpio.Pin
	in   rpio.Pin
}

// OpenRPi opens the GPIO subsystem and configures the transmit pin as output
// (initially low) and the receive pin as input with a pull-down, matching a
// line that idles low. Returns ErrHardwareUnavailable when /dev/gpiomem
// cannot be opened so callers can fall back to the simulated line.
func OpenRPi(pins Pins) (*RPiLine, error) {
	if pins.Transmit == pins.Receive {
		return nil, ErrSamePin
	}
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHardwareUnavailable, err)
	}

	out := rpio.Pin(pins.Transmit)
	out.Output()
	out.Low()

	in := rpio.Pin(pins.Receive)
	in.Input()
	in.PullDown()

	return &RPiLine{pins: pins, out: out, in: in}, nil
}

// SetOutput drives the transmit pin.
func (l *RPiLine) SetOutput(level Level) error {
	if level == High {
		l.out.High()
	} else {
		l.out.Low()
	}
	return nil
}

// ReadInput samples the receive pin.
func (l *RPiLine) ReadInput() (Level, error) {
	return l.in.Read() == rpio.High, nil
}

// Close leaves the output low and releases the GPIO mapping.
func (l *RPiLine) Close() error {
	l.out.Low()
	return rpio.Close()
}
