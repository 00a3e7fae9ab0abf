package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/bryanchriswhite/CaptureDeck/internal/config"
	"github.com/bryanchriswhite/CaptureDeck/internal/encoder"
	"github.com/bryanchriswhite/CaptureDeck/internal/events"
	"github.com/bryanchriswhite/CaptureDeck/internal/logger"
	"github.com/bryanchriswhite/CaptureDeck/internal/session"
	"github.com/bryanchriswhite/CaptureDeck/internal/window"
	"github.com/gorilla/mux"
)

// Version is reported by the health endpoint
const Version = "0.1.0"

// Server represents the HTTP API server
type Server struct {
	router    *mux.Router
	windows   window.Lister
	ctrl      *session.Controller
	encoder   session.Encoder
	configMgr *config.Manager
	hub       *events.Hub
	http      *http.Server
}

// NewServer creates a new API server
func NewServer(windows window.Lister, ctrl *session.Controller, enc session.Encoder, configMgr *config.Manager, hub *events.Hub) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		windows:   windows,
		ctrl:      ctrl,
		encoder:   enc,
		configMgr: configMgr,
		hub:       hub,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Windows
	api.HandleFunc("/windows", s.handleListWindows).Methods("GET")

	// Still capture
	api.HandleFunc("/capture/start", s.handleStartCapture).Methods("POST")
	api.HandleFunc("/capture/stop", s.handleStopCapture).Methods("POST")
	api.HandleFunc("/capture/path", s.handleCapturePath).Methods("GET")

	// Recording
	api.HandleFunc("/encoder/ensure", s.handleEnsureEncoder).Methods("POST")
	api.HandleFunc("/record/start", s.handleStartRecord).Methods("POST")
	api.HandleFunc("/record/stop", s.handleStopRecord).Methods("POST")

	// State
	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/config", s.handleGetConfig).Methods("GET")
	if s.hub != nil {
		api.Handle("/events", s.hub)
	}

	// Health check
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	s.router.PathPrefix("/").HandlerFunc(s.handleIndex)
}

// Handler returns the root handler with the origin and CORS checks applied
func (s *Server) Handler() http.Handler {
	return s.enableCORS(requireJSON(s.router))
}

// Start serves on port until Shutdown is called
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.WithComponent("api").Info().Msgf("Starting server on http://%s", addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// enableCORS rejects requests from non-local hosts or origins and echoes
// allowed origins back
func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !events.LocalRequest(r) {
			logger.WithComponent("api").Warn().
				Str("host", r.Host).
				Str("origin", r.Header.Get("Origin")).
				Str("path", r.URL.Path).
				Msg("Rejected non-local request")
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "origin not allowed"})
			return
		}

		w.Header().Add("Vary", "Origin")
		if origin := r.Header.Get("Origin"); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requireJSON refuses POST requests whose body is not declared as JSON
func requireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err != nil || mt != "application/json" {
				writeJSON(w, http.StatusUnsupportedMediaType, map[string]string{
					"error": "Content-Type must be application/json",
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps controller errors onto status codes
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrAlreadyCapturing), errors.Is(err, session.ErrAlreadyRecording):
		status = http.StatusConflict
	case errors.Is(err, session.ErrWindowNotFound):
		status = http.StatusNotFound
	case errors.Is(err, session.ErrEmptyTitle):
		status = http.StatusBadRequest
	case errors.Is(err, encoder.ErrNotInstalled):
		status = http.StatusServiceUnavailable
	}

	if status >= 500 {
		logger.WithComponent("api").Error().Err(err).Msg("Request failed")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeOK(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// HTTP Handlers

func (s *Server) handleListWindows(w http.ResponseWriter, r *http.Request) {
	windows, err := s.windows.ListWindows()
	if err != nil {
		writeError(w, err)
		return
	}
	if windows == nil {
		windows = []window.Descriptor{}
	}
	writeJSON(w, http.StatusOK, windows)
}

func (s *Server) handleStartCapture(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WindowID   string `json:"window_id"`
		IntervalMs *int64 `json:"interval_ms"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.WindowID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "window_id is required"})
		return
	}

	interval := s.configMgr.Get().Capture.Interval()
	if req.IntervalMs != nil {
		ms := *req.IntervalMs
		if ms < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "interval_ms must not be negative"})
			return
		}
		if ms > config.MaxIntervalMs {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": fmt.Sprintf("interval_ms must not exceed %d", config.MaxIntervalMs),
			})
			return
		}
		interval = config.IntervalFromMs(ms)
	}

	if err := s.ctrl.StartCapture(req.WindowID, interval); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w)
}

func (s *Server) handleStopCapture(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.StopCapture(); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w)
}

func (s *Server) handleCapturePath(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"path": s.ctrl.CapturesDir()})
}

func (s *Server) handleEnsureEncoder(w http.ResponseWriter, r *http.Request) {
	if s.encoder == nil {
		writeError(w, encoder.ErrNotInstalled)
		return
	}
	status, err := s.encoder.EnsureAvailable(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

func (s *Server) handleStartRecord(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WindowID string `json:"window_id"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.WindowID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "window_id is required"})
		return
	}

	if err := s.ctrl.StartRecord(req.WindowID); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w)
}

func (s *Server) handleStopRecord(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.StopRecord(); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Status())
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.configMgr.Get())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": Version,
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	html := `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>CaptureDeck</title>
    <style>
        body { font-family: sans-serif; max-width: 800px; margin: 50px auto; padding: 20px; }
        code { background: #f5f5f5; padding: 2px 6px; border-radius: 3px; }
    </style>
</head>
<body>
    <h1>CaptureDeck</h1>
    <p>Server is running.</p>
    <ul>
        <li><a href="/api/health">/api/health</a></li>
        <li><a href="/api/windows">/api/windows</a></li>
        <li><a href="/api/status">/api/status</a></li>
        <li><a href="/api/capture/path">/api/capture/path</a></li>
        <li><a href="/api/config">/api/config</a></li>
        <li><code>/api/events</code> (WebSocket)</li>
    </ul>
</body>
</html>`

	if r.URL.Path == "/" {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(html))
		return
	}

	if !strings.HasPrefix(r.URL.Path, "/api") {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown endpoint"})
}
