package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"cardboard/internal/model"
	"cardboard/internal/persist"
)

const maxBodyBytes = 4 << 20

type ServerConfig struct {
	Addr    string // listen address (default: "127.0.0.1:7788")
	Backend persist.Backend
	Logger  *slog.Logger
}

// Server exposes a persist.Backend over HTTP. It is the backing service that
// remote.Client and remote.Beacon talk to.
type Server struct {
	addr    string
	backend persist.Backend
	logger  *slog.Logger
	router  chi.Router
}

// CardsBody is the JSON shape of card lists on the wire.
type CardsBody struct {
	PageID string       `json:"pageId,omitempty"`
	Cards  []model.Card `json:"cards"`
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Backend == nil {
		return nil, errors.New("web: missing backend")
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = "127.0.0.1:7788"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		addr:    cfg.Addr,
		backend: cfg.Backend,
		logger:  logger.With("component", "web"),
	}
	s.router = s.buildRouter()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", s.addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api/pages/{pageID}", func(r chi.Router) {
		r.Get("/cards", s.handleCardsGet)
		r.Put("/cards", s.handleCardsPut)
		r.Delete("/cards/{cardID}", s.handleCardDelete)
		r.Post("/beacon", s.handleBeacon)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCardsGet(w http.ResponseWriter, r *http.Request) {
	pageID := chi.URLParam(r, "pageID")
	cards, err := s.backend.LoadCards(r.Context(), pageID)
	if err != nil {
		s.logger.Error("load cards failed", "page", pageID, "err", err)
		writeError(w, http.StatusInternalServerError, "load cards failed")
		return
	}
	if cards == nil {
		cards = []model.Card{}
	}
	writeJSON(w, http.StatusOK, CardsBody{PageID: pageID, Cards: cards})
}

func (s *Server) handleCardsPut(w http.ResponseWriter, r *http.Request) {
	pageID := chi.URLParam(r, "pageID")
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var body CardsBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("bad request: %v", err))
		return
	}
	if err := s.backend.UpsertCards(r.Context(), pageID, body.Cards); err != nil {
		s.logger.Error("upsert failed", "page", pageID, "cards", len(body.Cards), "err", err)
		writeError(w, http.StatusInternalServerError, "upsert failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"upserted": len(body.Cards)})
}

func (s *Server) handleCardDelete(w http.ResponseWriter, r *http.Request) {
	pageID := chi.URLParam(r, "pageID")
	cardID := chi.URLParam(r, "cardID")
	if err := s.backend.DeleteCard(r.Context(), pageID, cardID); err != nil {
		s.logger.Error("delete failed", "page", pageID, "card", cardID, "err", err)
		writeError(w, http.StatusInternalServerError, "delete failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleBeacon applies an unload flush. The sender never reads the response,
// so it always answers 202 and only logs failures.
func (s *Server) handleBeacon(w http.ResponseWriter, r *http.Request) {
	pageID := chi.URLParam(r, "pageID")
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var p persist.Payload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.logger.Warn("beacon dropped", "page", pageID, "err", err)
		w.WriteHeader(http.StatusAccepted)
		return
	}
	// The sender may hang up once the body is read; an accepted payload is
	// still applied in full.
	ctx := context.WithoutCancel(r.Context())
	if err := s.backend.UpsertCards(ctx, pageID, p.Cards); err != nil {
		s.logger.Warn("beacon upsert failed", "page", pageID, "err", err)
	}
	for _, id := range p.Deleted {
		if err := s.backend.DeleteCard(ctx, pageID, id); err != nil {
			s.logger.Warn("beacon delete failed", "page", pageID, "card", id, "err", err)
		}
	}
	w.WriteHeader(http.StatusAccepted)
}
