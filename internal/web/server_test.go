package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pihamlab/morselink/internal/gpio"
	"github.com/pihamlab/morselink/internal/history"
	"github.com/pihamlab/morselink/internal/morse"
)

func testProfile() morse.Profile {
	return morse.Profile{
		Dot:            20 * time.Millisecond,
		Dash:           60 * time.Millisecond,
		IntraCharGap:   20 * time.Millisecond,
		InterCharGap:   60 * time.Millisecond,
		InterWordGap:   140 * time.Millisecond,
		ThresholdRatio: morse.DefaultThresholdRatio,
		Debounce:       5 * time.Millisecond,
		PollInterval:   2 * time.Millisecond,
	}
}

func newTestServer(t *testing.T, hist *history.Store) (*Server, *morse.Manager) {
	t.Helper()
	mgr, err := morse.NewManager(gpio.NewSimulated(), testProfile(), morse.SystemClock(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	t.Cleanup(mgr.Stop)
	return NewServer("127.0.0.1:0", mgr, hist, 100, zerolog.Nop()), mgr
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	return body
}

func TestServer_SendBeforeStart(t *testing.T) {
	s, _ := newTestServer(t, nil)

	w := do(t, s, http.MethodPost, "/api/send", `{"text":"SOS"}`)
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want %d", w.Code, http.StatusConflict)
	}
}

func TestServer_SendAfterStart(t *testing.T) {
	s, _ := newTestServer(t, nil)

	if w := do(t, s, http.MethodPost, "/api/start", ""); w.Code != http.StatusOK {
		t.Fatalf("start status = %d, want %d", w.Code, http.StatusOK)
	}

	w := do(t, s, http.MethodPost, "/api/send", `{"text":"SOS"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("send status = %d, want %d", w.Code, http.StatusOK)
	}
	body := decodeBody(t, w)
	if body["morse"] != "... --- ..." {
		t.Errorf("morse = %v, want %q", body["morse"], "... --- ...")
	}
}

func TestServer_SendWhileBusy(t *testing.T) {
	s, _ := newTestServer(t, nil)
	do(t, s, http.MethodPost, "/api/start", "")

	if w := do(t, s, http.MethodPost, "/api/send", `{"text":"PARIS PARIS"}`); w.Code != http.StatusOK {
		t.Fatalf("first send status = %d, want %d", w.Code, http.StatusOK)
	}
	if w := do(t, s, http.MethodPost, "/api/send", `{"text":"QRM"}`); w.Code != http.StatusConflict {
		t.Errorf("second send status = %d, want %d", w.Code, http.StatusConflict)
	}
}

func TestServer_SendRejectsBadPayload(t *testing.T) {
	s, _ := newTestServer(t, nil)
	do(t, s, http.MethodPost, "/api/start", "")

	tests := []struct {
		name string
		body string
	}{
		{"empty text", `{"text":""}`},
		{"whitespace text", `{"text":"   "}`},
		{"malformed json", `{"text":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := do(t, s, http.MethodPost, "/api/send", tt.body); w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestServer_ReceiveSnapshot(t *testing.T) {
	s, _ := newTestServer(t, nil)
	do(t, s, http.MethodPost, "/api/start", "")

	w := do(t, s, http.MethodGet, "/api/receive", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := decodeBody(t, w)
	if body["text"] != "" {
		t.Errorf("text = %v, want empty before any reception", body["text"])
	}
}

func TestServer_Status(t *testing.T) {
	s, _ := newTestServer(t, nil)

	w := do(t, s, http.MethodGet, "/api/status", "")
	body := decodeBody(t, w)
	if body["active"] != false {
		t.Errorf("active = %v before start, want false", body["active"])
	}

	do(t, s, http.MethodPost, "/api/start", "")
	w = do(t, s, http.MethodGet, "/api/status", "")
	body = decodeBody(t, w)
	if body["active"] != true {
		t.Errorf("active = %v after start, want true", body["active"])
	}
}

func TestServer_Clear(t *testing.T) {
	s, _ := newTestServer(t, nil)
	do(t, s, http.MethodPost, "/api/start", "")

	if w := do(t, s, http.MethodPost, "/api/clear", ""); w.Code != http.StatusOK {
		t.Errorf("clear status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestServer_HistoryDisabled(t *testing.T) {
	s, _ := newTestServer(t, nil)

	if w := do(t, s, http.MethodGet, "/api/history", ""); w.Code != http.StatusNotFound {
		t.Errorf("status = %d with nil store, want %d", w.Code, http.StatusNotFound)
	}
}

func TestServer_History(t *testing.T) {
	hist, err := history.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("history.Open() error = %v", err)
	}
	defer hist.Close()
	if err := hist.Append(history.Sent, "SOS", time.Now()); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	s, _ := newTestServer(t, hist)

	w := do(t, s, http.MethodGet, "/api/history", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := decodeBody(t, w)
	msgs, ok := body["messages"].([]any)
	if !ok || len(msgs) != 1 {
		t.Fatalf("messages = %v, want one entry", body["messages"])
	}

	if w := do(t, s, http.MethodGet, "/api/history?limit=0", ""); w.Code != http.StatusBadRequest {
		t.Errorf("limit=0 status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}
