// Package server exposes the HTTP trigger and status surface: starting
// crawl runs, reporting the source catalog, and liveness. It owns no
// pipeline logic.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"newswire/internal/crawl"
	"newswire/internal/database"
	"newswire/internal/source"
)

// Server is the HTTP surface over the crawl runner and source catalog.
type Server struct {
	db     *database.DB
	reg    *source.Registry
	runner *crawl.Runner
	mux    *http.ServeMux
}

// New creates a new Server.
func New(db *database.DB, reg *source.Registry, runner *crawl.Runner) *Server {
	s := &Server{db: db, reg: reg, runner: runner, mux: http.NewServeMux()}
	s.routes()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("/crawl/start", s.handleCrawlStart)
	s.mux.HandleFunc("/sources", s.handleSources)
	s.mux.HandleFunc("/healthz", s.handleHealth)
}

type crawlRequest struct {
	Scope    string `json:"scope"`
	MaxPages int    `json:"max_pages"`
}

// handleCrawlStart runs a crawl synchronously and responds with its
// summary. Per-source failures are part of the summary payload; only the
// run-level fatal case (unavailable store) maps to a 500.
func (s *Server) handleCrawlStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	// An empty body means default scope; malformed JSON is rejected.
	var req crawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	summary, err := s.runner.Run(r.Context(), req.Scope, req.MaxPages)
	switch {
	case errors.Is(err, crawl.ErrRunInProgress):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		log.Printf("crawl run failed: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

type sourceEntry struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Endpoint string `json:"endpoint"`
	Category string `json:"category"`
}

// handleSources reports the static source/category catalog.
func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}

	entries := make([]sourceEntry, 0)
	for _, src := range s.reg.All() {
		entries = append(entries, sourceEntry{
			Name:     src.Name,
			Kind:     string(src.Kind),
			Endpoint: src.Endpoint,
			Category: src.Category,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sources":    entries,
		"categories": s.reg.Categories(),
	})
}

// handleHealth reports process liveness and the catalog size; it exposes
// no pipeline state beyond the runner's lifecycle phase.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := s.db.Ping(); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"status":     status,
		"crawler":    s.runner.State(),
		"sources":    len(s.reg.All()),
		"categories": len(s.reg.Categories()),
	})
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("writing response: %v", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// Serve starts the HTTP server on the given port.
func Serve(db *database.DB, reg *source.Registry, runner *crawl.Runner, port int) error {
	srv := New(db, reg, runner)
	addr := fmt.Sprintf(":%d", port)
	log.Printf("server listening on %s", addr)
	return http.ListenAndServe(addr, srv.Handler())
}
