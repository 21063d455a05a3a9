// Package httpserver exposes a read-only status view of stored proposals.
package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"WorkshopScheduler/internal/domain"
	"WorkshopScheduler/internal/formatter"
	"WorkshopScheduler/internal/ports"
)

// Server serves proposal lookups over HTTP.
type Server struct {
	store     ports.ProposalStore
	formatter *formatter.Formatter
	logger    *slog.Logger
	now       func() time.Time
}

// New wires the store and formatter used to answer requests.
func New(store ports.ProposalStore, f *formatter.Formatter, logger *slog.Logger) *Server {
	if f == nil {
		f = formatter.New("")
	}
	return &Server{store: store, formatter: f, logger: logger, now: time.Now}
}

// Router builds the chi route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))

	r.Get("/healthz", s.handleHealth)

	r.Route("/proposals/{date}", func(r chi.Router) {
		r.Get("/", s.handleProposal)
		r.Get("/message", s.handleMessage)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"ok":   true,
		"time": s.now().UTC(),
	})
}

func (s *Server) handleProposal(w http.ResponseWriter, r *http.Request) {
	p, ok := s.load(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	p, ok := s.load(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(s.formatter.RenderProposal(p)))
}

// load resolves the {date} parameter and writes the error response itself when it fails.
func (s *Server) load(w http.ResponseWriter, r *http.Request) (domain.ScheduleProposal, bool) {
	date, err := domain.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return domain.ScheduleProposal{}, false
	}

	p, err := s.store.Load(r.Context(), date)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, "no proposal for "+domain.DateKey(date))
		return domain.ScheduleProposal{}, false
	case err != nil:
		if s.logger != nil {
			s.logger.Error("load proposal failed", "date", domain.DateKey(date), "error", err)
		}
		respondError(w, http.StatusInternalServerError, "proposal store unavailable")
		return domain.ScheduleProposal{}, false
	}
	return p, true
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
