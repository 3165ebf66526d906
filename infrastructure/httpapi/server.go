// Package httpapi exposes the connectionless surface: history reads,
// search, uploads, health, and metrics. The live channel lives in the ws
// package and is only mounted here.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"chat-hub/attachments"
	"chat-hub/observability"
	"chat-hub/services"
	"chat-hub/wire"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const defaultSearchLimit = 20

type Server struct {
	log         *slog.Logger
	service     services.IChatService
	store       attachments.Store
	metrics     *observability.Metrics
	health      *observability.Health
	maxUploadSz int64
}

func NewServer(log *slog.Logger, service services.IChatService,
	store attachments.Store, metrics *observability.Metrics,
	health *observability.Health, maxUploadSize int64) *Server {
	return &Server{
		log:         log,
		service:     service,
		store:       store,
		metrics:     metrics,
		health:      health,
		maxUploadSz: maxUploadSize,
	}
}

// Routes mounts every endpoint. The WebSocket handler is passed in rather
// than constructed here so the transport packages stay independent.
func (s *Server) Routes(wsHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}))

	r.Handle("/ws", wsHandler)
	r.Get("/messages", s.handleListMessages)
	r.Get("/messages/search", s.handleSearch)
	r.Post("/upload", s.handleUpload)
	r.Get("/healthz", s.health.Handler())
	r.Handle("/metrics", s.metrics.Handler())
	return r
}

// handleListMessages serves the full history ascending by timestamp, for
// clients that want backfill without holding a connection.
func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := s.service.History()
	if err != nil {
		s.log.Error("history read failed", "error", err)
		http.Error(w, "message store unavailable", http.StatusServiceUnavailable)
		return
	}
	s.respond(w, wire.FromDomainSlice(messages))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	terms := r.URL.Query().Get("q")
	if terms == "" {
		http.Error(w, "missing query parameter q", http.StatusBadRequest)
		return
	}
	limit := defaultSearchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	messages, err := s.service.Search(r.Context(), terms, limit)
	if err != nil {
		s.log.Error("search failed", "terms", terms, "error", err)
		http.Error(w, "search unavailable", http.StatusServiceUnavailable)
		return
	}
	s.respond(w, wire.FromDomainSlice(messages))
}

// handleUpload accepts one multipart file, stores it, and answers the
// normalized locator. Upload failures stay on this boundary: the router
// never sees a submission whose attachment did not make it.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSz)
	file, header, err := r.FormFile("file")
	if err != nil {
		// An oversized body trips the reader limit inside FormFile,
		// before the store ever sees the file.
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "no file provided", http.StatusBadRequest)
		return
	}
	defer file.Close()

	attachment, err := s.store.Save(r.Context(),
		header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		if errors.Is(err, attachments.ErrTooLarge) {
			http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
			return
		}
		s.log.Error("upload failed", "file", header.Filename, "error", err)
		http.Error(w, "failed to store file", http.StatusInternalServerError)
		return
	}

	// Same keys as the submission frame (domain.Submission): clients echo
	// this response verbatim when they send the message referencing it.
	s.respond(w, map[string]string{
		"fileUrl":  attachment.URL,
		"fileName": attachment.DisplayName,
	})
}

func (s *Server) respond(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Debug("response write failed", "error", err)
	}
}
