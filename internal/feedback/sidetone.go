// internal/feedback/sidetone.go
// Package feedback provides audible feedback for line activity: a sine
// sidetone that sounds while the output line is high, standing in for the
// buzzer on the original hardware.
package feedback

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/gen2brain/malgo"
	"github.com/rs/zerolog"
)

// ErrAlreadyStarted indicates Start was called on a running sidetone
var ErrAlreadyStarted = errors.New("sidetone already started")

// Config holds sidetone configuration
type Config struct {
	// Enabled turns the sidetone on; when false every call is a no-op
	Enabled bool
	// Frequency is the tone frequency in Hz, e.g. 600
	Frequency float64
	// SampleRate is the playback sample rate in Hz, e.g. 48000
	SampleRate uint32
}

// DefaultConfig returns the standard 600 Hz sidetone.
func DefaultConfig() Config {
	return Config{
		Enabled:    true,
		Frequency:  600,
		SampleRate: 48000,
	}
}

// Sidetone plays a continuous tone gated by Gate. The playback device runs
// for the lifetime of the sidetone and writes silence while the gate is off,
// so gating costs nothing on the transmit path.
type Sidetone struct {
	config Config
	log    zerolog.Logger

	mu      sync.Mutex
	ctx     *malgo.AllocatedContext
	device  *malgo.Device
	running bool

	gate  atomic.Bool
	phase float64 // advanced only by the audio callback
}

// New creates a sidetone. Call Start before Gate has any audible effect.
func New(cfg Config, logger zerolog.Logger) *Sidetone {
	return &Sidetone{config: cfg, log: logger}
}

// Start initializes the audio backend and begins (silent) playback.
// A disabled sidetone starts successfully and does nothing.
func (s *Sidetone) Start() error {
	if !s.config.Enabled {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyStarted
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("init audio context: %w", err)
	}

	deviceConfig := malgo.DeviceConfig{
		DeviceType: malgo.Playback,
		SampleRate: s.config.SampleRate,
		Playback: malgo.SubConfig{
			Format:   malgo.FormatF32,
			Channels: 1,
		},
	}

	step := 2 * math.Pi * s.config.Frequency / float64(s.config.SampleRate)

	onSendFrames := func(outputSamples, inputSamples []byte, frameCount uint32) {
		if len(outputSamples) == 0 {
			return
		}
		samples := bytesAsFloat32(outputSamples)
		if !s.gate.Load() {
			for i := range samples {
				samples[i] = 0
			}
			s.phase = 0
			return
		}
		for i := range samples {
			samples[i] = float32(0.5 * math.Sin(s.phase))
			s.phase += step
			if s.phase > 2*math.Pi {
				s.phase -= 2 * math.Pi
			}
		}
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onSendFrames,
	})
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("init playback device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		_ = ctx.Uninit()
		ctx.Free()
		return fmt.Errorf("start playback device: %w", err)
	}

	s.ctx = ctx
	s.device = device
	s.running = true
	s.log.Debug().
		Float64("frequency", s.config.Frequency).
		Uint32("sample_rate", s.config.SampleRate).
		Msg("sidetone started")
	return nil
}

// Gate turns the tone on or off. Safe to call from the transmit worker.
func (s *Sidetone) Gate(on bool) {
	if !s.config.Enabled {
		return
	}
	s.gate.Store(on)
}

// Close stops playback and releases all audio resources.
func (s *Sidetone) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	if s.device != nil {
		_ = s.device.Stop()
		s.device.Uninit()
		s.device = nil
	}
	if s.ctx != nil {
		if err := s.ctx.Uninit(); err != nil {
			return fmt.Errorf("uninit audio context: %w", err)
		}
		s.ctx.Free()
		s.ctx = nil
	}
	s.running = false
	return nil
}

// IsRunning returns true if playback is active
func (s *Sidetone) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// bytesAsFloat32 reinterprets the device buffer as float32 samples in place.
func bytesAsFloat32(data []byte) []float32 {
	n := len(data) / 4
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&data[0])), n)
}
