// internal/morse/clock.go
package morse

import "time"

// Clock is the time capability the codec workers run on. Separating it from
// the components keeps pulse timing and boundary waits testable.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
	// Sleep waits for d or until cancel closes, whichever comes first, and
	// reports whether the full duration elapsed. A nil cancel never fires.
	Sleep(d time.Duration, cancel <-chan struct{}) bool
}

type systemClock struct{}

// SystemClock returns the wall-clock implementation used outside tests.
func SystemClock() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) Sleep(d time.Duration, cancel <-chan struct{}) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-cancel:
		return false
	}
}
