// Package api exposes Mendel over HTTP: health, status, synchronous
// extraction and read access to persisted genograms.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/vitalia-health/mendel/internal/processor"
	"github.com/vitalia-health/mendel/internal/store"
)

// ExtractionRunner is the slice of the processor the API needs.
type ExtractionRunner interface {
	ProcessTranscript(ctx context.Context, patientID, sessionRef, transcript string, maxAttempts int) (*processor.Outcome, error)
}

// GenogramReader is the slice of the store the API needs.
type GenogramReader interface {
	GetGenogram(ctx context.Context, id uuid.UUID) (*store.Record, error)
	ListByPatient(ctx context.Context, patientID string) ([]*store.Record, error)
}

type Server struct {
	router *chi.Mux
	port   int
	runner ExtractionRunner
	reader GenogramReader
	model  string
	logger *slog.Logger
}

func NewServer(port int, runner ExtractionRunner, reader GenogramReader, model string, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router: router,
		port:   port,
		runner: runner,
		reader: reader,
		model:  model,
		logger: logger,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/mendel/status", s.status)
	router.Post("/api/v1/genograms/extract", s.extract)
	router.Get("/api/v1/genograms/{id}", s.getGenogram)
	router.Get("/api/v1/patients/{patientID}/genograms", s.listGenograms)

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "mendel",
		"status":  "ok",
		"model":   s.model,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
