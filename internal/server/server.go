package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/memotime/internal/database"
	"github.com/dukerupert/memotime/internal/handler"
	"github.com/dukerupert/memotime/internal/middleware"
	"github.com/dukerupert/memotime/internal/store"
	ws "github.com/dukerupert/memotime/internal/websocket"
)

// Options tune the HTTP layer.
type Options struct {
	// RateLimit is requests per minute per client IP; 0 disables it.
	RateLimit int
}

type Server struct {
	db          *database.DB
	hub         *ws.Hub
	noteH       *handler.NoteHandler
	timerH      *handler.TimerHandler
	rateLimiter *middleware.RateLimiter
	opts        Options
	logger      *slog.Logger
}

func New(db *database.DB, opts Options, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	noteStore := store.NewNoteStore(db)
	timerStore := store.NewTimerStore(db)

	s := &Server{
		db:     db,
		hub:    hub,
		noteH:  handler.NewNoteHandler(noteStore, hub, logger.With("component", "note")),
		timerH: handler.NewTimerHandler(timerStore, hub, logger.With("component", "timer")),
		opts:   opts,
		logger: logger,
	}
	if opts.RateLimit > 0 {
		s.rateLimiter = middleware.NewRateLimiter()
	}
	return s
}

// RateLimiter returns the rate limiter for cleanup tasks, or nil when rate
// limiting is off.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Hub returns the change feed hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// Close disconnects change feed subscribers.
func (s *Server) Close() {
	s.hub.Close()
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)

	var h http.Handler = mux
	if s.rateLimiter != nil {
		h = middleware.PerIPPerMinute(s.rateLimiter, s.opts.RateLimit)(h)
	}
	h = middleware.RequestLogger(s.logger.With("component", "http"))(h)
	return middleware.RequestID(h)
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("memotime API v1"))
	})

	// Notes
	handleCollection(mux, "POST", "/notes/", s.noteH.Create)
	handleCollection(mux, "GET", "/notes/", s.noteH.List)
	handleCollection(mux, "GET", "/notes/search/", s.noteH.Search)
	handleCollection(mux, "GET", "/notes/count/", s.noteH.Count)
	handleCollection(mux, "GET", "/notes/recent/", s.noteH.Recent)
	handleCollection(mux, "DELETE", "/notes/bulk-delete/", s.noteH.BulkDelete)
	mux.HandleFunc("GET /notes/{id}", s.noteH.Get)
	mux.HandleFunc("PUT /notes/{id}", s.noteH.Update)
	mux.HandleFunc("DELETE /notes/{id}", s.noteH.Delete)

	// Timers
	handleCollection(mux, "POST", "/timers/", s.timerH.Create)
	handleCollection(mux, "GET", "/timers/", s.timerH.List)
	handleCollection(mux, "GET", "/timers/active/", s.timerH.Active)
	handleCollection(mux, "GET", "/timers/duration/", s.timerH.TotalDuration)
	handleCollection(mux, "GET", "/timers/average-duration/", s.timerH.AverageDuration)
	handleCollection(mux, "GET", "/timers/range/", s.timerH.Range)
	mux.HandleFunc("GET /timers/{id}", s.timerH.Get)
	mux.HandleFunc("PUT /timers/{id}", s.timerH.Update)
	mux.HandleFunc("DELETE /timers/{id}", s.timerH.Delete)

	// Change feed
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "websocket")))
}

// handleCollection registers path (which ends in a slash) exactly, plus the
// same path without the trailing slash.
func handleCollection(mux *http.ServeMux, method, path string, h http.HandlerFunc) {
	mux.HandleFunc(method+" "+path+"{$}", h)
	mux.HandleFunc(method+" "+strings.TrimSuffix(path, "/"), h)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Error("health check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"unavailable"}`))
		return
	}
	w.Write([]byte(`{"status":"ok"}`))
}
