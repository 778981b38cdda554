package morse

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pihamlab/morselink/internal/gpio"
)

func newTestManager(t *testing.T) (*Manager, *gpio.Simulated) {
	t.Helper()
	line := gpio.NewSimulated()
	mgr, err := NewManager(line, validProfile(), SystemClock(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return mgr, line
}

func TestManager_SendRejectedBeforeStart(t *testing.T) {
	mgr, _ := newTestManager(t)
	if mgr.SendMessage("SOS") {
		t.Error("SendMessage() = true before Start, want false")
	}
}

func TestManager_StartIsIdempotent(t *testing.T) {
	mgr, _ := newTestManager(t)
	defer mgr.Stop()

	mgr.Start()
	mgr.Start() // warns, does not double-start
	if !mgr.Active() {
		t.Error("Active() = false after Start")
	}
}

func TestManager_SendAfterStart(t *testing.T) {
	mgr, _ := newTestManager(t)
	defer mgr.Stop()
	mgr.Start()

	done := make(chan struct{})
	mgr.OnTransmitDone(func(string, bool) {
		close(done)
	})

	if !mgr.SendMessage("E") {
		t.Fatal("SendMessage() = false after Start, want true")
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("transmission did not complete")
	}
}

func TestManager_StopCancelsInFlightSend(t *testing.T) {
	mgr, line := newTestManager(t)
	mgr.Start()

	cancelled := make(chan bool, 1)
	mgr.OnTransmitDone(func(_ string, c bool) {
		cancelled <- c
	})

	if !mgr.SendMessage("PARIS PARIS PARIS") {
		t.Fatal("SendMessage() = false, want true")
	}
	time.Sleep(50 * time.Millisecond)
	mgr.Stop()

	select {
	case c := <-cancelled:
		if !c {
			t.Error("transmission completed normally, want cancelled")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not cancel the in-flight send")
	}
	if mgr.Active() {
		t.Error("Active() = true after Stop")
	}
	if line.Output() != gpio.Low {
		t.Error("line left high after Stop")
	}
}

func TestManager_ClearResetsReceivedText(t *testing.T) {
	mgr, _ := newTestManager(t)
	defer mgr.Stop()
	mgr.Start()

	mgr.Clear()
	if got := mgr.ReceivedText(); got != "" {
		t.Errorf("ReceivedText() = %q after Clear, want empty", got)
	}
}

// TestManager_Loopback runs a full end-to-end pass: text is transmitted as
// pulses on the simulated line, looped back to the input, re-measured,
// classified and decoded into the same text.
func TestManager_Loopback(t *testing.T) {
	line := gpio.NewSimulated()
	line.EnableLoopback()

	mgr, err := NewManager(line, validProfile(), SystemClock(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	defer mgr.Stop()

	words := make(chan string, 4)
	mgr.OnWord(func(word string, _ time.Time) {
		words <- word
	})

	mgr.Start()
	if !mgr.SendMessage("SOS") {
		t.Fatal("SendMessage() = false, want true")
	}

	select {
	case got := <-words:
		if got != "SOS" {
			t.Errorf("received word = %q, want %q", got, "SOS")
		}
	case <-time.After(10 * time.Second):
		t.Fatal("loopback message never decoded")
	}

	if got := mgr.ReceivedText(); got != "SOS" {
		t.Errorf("ReceivedText() = %q, want %q", got, "SOS")
	}
}
