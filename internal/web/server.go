// internal/web/server.go
// Package web exposes the communication manager over a small JSON API:
// start/stop/clear, message send, received-text snapshot, status and history.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"

	"github.com/pihamlab/morselink/internal/history"
	"github.com/pihamlab/morselink/internal/morse"
)

const shutdownTimeout = 5 * time.Second

// Server serves the JSON API over one Manager and an optional history store.
type Server struct {
	mgr          *morse.Manager
	hist         *history.Store
	historyLimit int
	srv          *http.Server
	log          zerolog.Logger
}

// NewServer builds the API server. hist may be nil, in which case /api/history
// reports history as disabled.
func NewServer(addr string, mgr *morse.Manager, hist *history.Store, historyLimit int, logger zerolog.Logger) *Server {
	s := &Server{
		mgr:          mgr,
		hist:         hist,
		historyLimit: historyLimit,
		log:          logger,
	}

	router := httprouter.New()
	router.POST("/api/start", s.logged(s.handleStart))
	router.POST("/api/stop", s.logged(s.handleStop))
	router.POST("/api/send", s.logged(s.handleSend))
	router.POST("/api/clear", s.logged(s.handleClear))
	router.GET("/api/receive", s.logged(s.handleReceive))
	router.GET("/api/status", s.logged(s.handleStatus))
	router.GET("/api/history", s.logged(s.handleHistory))

	s.srv = &http.Server{Addr: addr, Handler: router}
	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.ListenAndServe()
	}()
	s.log.Info().Str("addr", s.srv.Addr).Msg("web server listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// logged wraps a handler with request logging.
func (s *Server) logged(h httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		s.log.Debug().Str("method", r.Method).Str("path", r.URL.Path).Msg("request")
		h(w, r, ps)
	}
}

type sendRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleStart(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	s.mgr.Start()
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleStop(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	s.mgr.Stop()
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text must not be empty")
		return
	}

	if !s.mgr.SendMessage(req.Text) {
		// Busy and not-started are expected conditions, not server faults.
		writeError(w, http.StatusConflict, "transmitter busy or communication not started")
		return
	}

	if s.hist != nil {
		if err := s.hist.Append(history.Sent, req.Text, time.Now()); err != nil {
			s.log.Warn().Err(err).Msg("failed to record sent message")
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "morse": morse.TextToMorse(req.Text)})
}

func (s *Server) handleClear(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	s.mgr.Clear()
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleReceive(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]any{"text": s.mgr.ReceivedText()})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]any{
		"active":       s.mgr.Active(),
		"transmitting": s.mgr.Transmitting(),
		"signals":      s.mgr.ReceivedSignals(),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if s.hist == nil {
		writeError(w, http.StatusNotFound, "history disabled")
		return
	}

	limit := s.historyLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	msgs, err := s.hist.Recent(limit)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to read history")
		writeError(w, http.StatusInternalServerError, "failed to read history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}
