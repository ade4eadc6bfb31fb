// Package httpapi exposes the thin operational surface over the engagement
// controller: status, manual cycle trigger, testing-mode toggle, and a
// development-only entry seeder. No business logic lives here.
package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"kindred/internal/engage"
	"kindred/internal/model"
	"kindred/internal/store"
)

type Server struct {
	controller *engage.Controller
	store      *store.Store
	addr       string
}

func NewServer(addr string, controller *engage.Controller, st *store.Store) *Server {
	return &Server{controller: controller, store: st, addr: addr}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("POST /cycle/trigger", s.handleTrigger)
	mux.HandleFunc("POST /testing-mode", s.handleTestingMode)
	mux.HandleFunc("POST /dev/entry", s.handleDevEntry)
	return mux
}

// Run starts the admin HTTP server and blocks until it exits or ctx is
// cancelled; run in a goroutine.
func (s *Server) Run(ctx context.Context) {
	srv := &http.Server{Addr: s.addr, Handler: s.Handler()}

	go func() {
		<-ctx.Done()
		log.Println("[INFO] Shutting down admin server...")
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx) //nolint:errcheck
	}()

	log.Printf("[INFO] Admin server listening on %s", s.addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		// Log the error but do NOT call log.Fatal — that would kill the whole process.
		log.Printf("[ERR] Admin server exited: %v", err)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.Status())
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	log.Println("[INFO] Manual cycle trigger requested")
	rec := s.controller.TriggerCycle(r.Context())
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleTestingMode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	s.controller.SetTestingMode(body.Enabled)
	writeJSON(w, http.StatusOK, map[string]bool{"testing_mode": body.Enabled})
}

// handleDevEntry seeds a journal entry (and optionally the user's profile) so
// the loop can be exercised without the journaling app. Only available while
// testing mode is on.
func (s *Server) handleDevEntry(w http.ResponseWriter, r *http.Request) {
	if !s.controller.TestingMode() {
		http.Error(w, "testing mode is off", http.StatusForbidden)
		return
	}
	var body struct {
		UserID  string `json:"user_id"`
		Content string `json:"content"`
		Mood    int    `json:"mood"`
		Energy  int    `json:"energy"`
		Stress  int    `json:"stress"`
		Tier    string `json:"tier"`
		Level   string `json:"level"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.UserID == "" || body.Content == "" {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	if body.Tier != "" || body.Level != "" {
		if err := s.store.SetProfile(r.Context(), body.UserID, model.ParseTier(body.Tier), model.ParseLevel(body.Level)); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	entry := &model.JournalEntry{
		UserID:  body.UserID,
		Content: body.Content,
		Mood:    body.Mood,
		Energy:  body.Energy,
		Stress:  body.Stress,
	}
	if err := s.store.CreateEntry(r.Context(), entry); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[WARN] response encode: %v", err)
	}
}
