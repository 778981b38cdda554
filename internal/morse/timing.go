// internal/morse/timing.go
package morse

import (
	"errors"
	"time"
)

// DefaultThresholdRatio is the default dot/dash decision boundary: a pulse
// shorter than dash*ratio is a dot. This is the single most consequential
// timing knob and is configurable, never inlined at classification sites.
const DefaultThresholdRatio = 0.7

var (
	// ErrNonPositiveDuration indicates a profile duration is zero or negative
	ErrNonPositiveDuration = errors.New("all profile durations must be positive")
	// ErrDashNotLonger indicates dash must exceed dot
	ErrDashNotLonger = errors.New("dash duration must exceed dot duration")
	// ErrGapOrdering indicates gaps must satisfy word > char > intra-char
	ErrGapOrdering = errors.New("gaps must satisfy inter_word > inter_char > intra_char")
	// ErrInvalidThresholdRatio indicates the ratio must be in (0, 1]
	ErrInvalidThresholdRatio = errors.New("threshold ratio must be between 0.0 and 1.0")
)

// Profile is the immutable set of durations one line endpoint runs with.
// Both ends of a conversation must agree on it.
type Profile struct {
	// Dot is the on-duration of a dot pulse
	Dot time.Duration
	// Dash is the on-duration of a dash pulse
	Dash time.Duration
	// IntraCharGap is the off-duration between elements of one character
	IntraCharGap time.Duration
	// InterCharGap is the off-duration between characters; also the silence
	// that completes a pending character on receive
	InterCharGap time.Duration
	// InterWordGap is the off-duration between words; also the silence that
	// completes a pending word on receive
	InterWordGap time.Duration
	// ThresholdRatio is the dot/dash decision boundary relative to Dash
	ThresholdRatio float64
	// Debounce collapses input edges closer together than this into one
	Debounce time.Duration
	// PollInterval is how often the monitor samples the input line
	PollInterval time.Duration
}

// DefaultProfile returns the timing both endpoints ship with: 200 ms dots at
// a 1:3 dot/dash ratio, slow enough to key by hand.
func DefaultProfile() Profile {
	return Profile{
		Dot:            200 * time.Millisecond,
		Dash:           600 * time.Millisecond,
		IntraCharGap:   200 * time.Millisecond,
		InterCharGap:   600 * time.Millisecond,
		InterWordGap:   1400 * time.Millisecond,
		ThresholdRatio: DefaultThresholdRatio,
		Debounce:       50 * time.Millisecond,
		PollInterval:   10 * time.Millisecond,
	}
}

// Validate checks the profile invariants.
func (p Profile) Validate() error {
	if p.Dot <= 0 || p.Dash <= 0 || p.IntraCharGap <= 0 ||
		p.InterCharGap <= 0 || p.InterWordGap <= 0 || p.PollInterval <= 0 {
		return ErrNonPositiveDuration
	}
	if p.Dash <= p.Dot {
		return ErrDashNotLonger
	}
	if p.InterWordGap <= p.InterCharGap || p.InterCharGap <= p.IntraCharGap {
		return ErrGapOrdering
	}
	if p.ThresholdRatio <= 0 || p.ThresholdRatio > 1 {
		return ErrInvalidThresholdRatio
	}
	if p.Debounce < 0 {
		return ErrNonPositiveDuration
	}
	return nil
}

// Classify maps a measured pulse duration to a dot or a dash.
func (p Profile) Classify(d time.Duration) Signal {
	if float64(d) < float64(p.Dash)*p.ThresholdRatio {
		return Dot
	}
	return Dash
}

// DurationFor returns the on-duration for a signal.
func (p Profile) DurationFor(s Signal) time.Duration {
	if s == Dash {
		return p.Dash
	}
	return p.Dot
}
