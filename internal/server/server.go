// Package server exposes the local HTTP and WebSocket API the
// graphical shell consumes: browse, search, re-copy, update, delete,
// stats, export, plus a change-event stream.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"foreverclip/internal/service"
	"foreverclip/internal/storage"
)

type Server struct {
	history *service.HistoryService
	srv     *http.Server
	hub     *Hub
	config  Config
}

type Config struct {
	Addr string
}

func New(history *service.HistoryService, config Config) *Server {
	s := &Server{
		history: history,
		hub:     newHub(),
		config:  config,
	}
	// The hub is a change subscriber like any other: every persisted
	// clipboard change is pushed to connected shells.
	history.RegisterHandler(s.hub)
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	// Routes
	r.Get("/status", s.handleStatus)
	r.Get("/ws", s.serveWs)
	r.Route("/api", func(r chi.Router) {
		r.Get("/entries", s.handleListEntries)
		r.Delete("/entries", s.handleClearEntries)
		r.Get("/entries/{id}", s.handleGetEntry)
		r.Put("/entries/{id}", s.handleUpdateEntry)
		r.Delete("/entries/{id}", s.handleDeleteEntry)
		r.Post("/entries/{id}/copy", s.handleCopyEntry)
		r.Get("/stats", s.handleStats)
		r.Get("/export", s.handleExport)
	})

	return r
}

func (s *Server) Start() error {
	go s.hub.run()

	s.srv = &http.Server{
		Addr:    s.config.Addr,
		Handler: s.routes(),
	}

	// Surface an immediate bind failure to the caller instead of only
	// logging it from the goroutine.
	serverErr := make(chan error, 1)
	go func() {
		if err := s.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("http server error on %s: %w", s.config.Addr, err)
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-time.After(100 * time.Millisecond):
		slog.Info("http server started", "addr", s.config.Addr)
		return nil
	}
}

func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	return nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
		"addr":   s.config.Addr,
	})
}

// handleListEntries serves both browsing and searching: a non-empty
// q parameter switches to substring search.
func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	var err error
	var entries interface{}
	if query := r.URL.Query().Get("q"); query != "" {
		entries, err = s.history.SearchEntries(r.Context(), query, limit)
	} else {
		entries, err = s.history.Entries(r.Context(), limit)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}

	entry, err := s.history.Entry(r.Context(), id)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, storage.ErrNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}

	var body struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.history.UpdateEntry(r.Context(), id, body.Content); err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, storage.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, storage.ErrEmptyContent):
			status = http.StatusBadRequest
		case errors.Is(err, storage.ErrDuplicateContent):
			status = http.StatusConflict
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}

	if err := s.history.DeleteEntry(r.Context(), id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearEntries(w http.ResponseWriter, r *http.Request) {
	if err := s.history.ClearEntries(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCopyEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}

	if err := s.history.CopyEntry(r.Context(), id); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, storage.ErrNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.history.HistoryStats(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="clipboard_export.json"`)
	if err := s.history.Export(r.Context(), w); err != nil {
		slog.Error("export failed", "error", err)
	}
}

func entryID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		http.Error(w, "invalid entry id", http.StatusBadRequest)
		return 0, false
	}
	return uint(id), true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
