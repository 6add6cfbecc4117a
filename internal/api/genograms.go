package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/vitalia-health/mendel/internal/extractor"
	"github.com/vitalia-health/mendel/internal/store"
)

// ExtractRequest is the payload of POST /api/v1/genograms/extract.
type ExtractRequest struct {
	PatientID   string `json:"patient_id"`
	SessionRef  string `json:"session_ref,omitempty"`
	Transcript  string `json:"transcript"`
	MaxAttempts int    `json:"max_attempts,omitempty"`
}

// ExtractResponse carries the validated genogram plus extraction provenance.
type ExtractResponse struct {
	GenogramID   string `json:"genogram_id"`
	Genogram     any    `json:"genogram"`
	AttemptsMade int    `json:"attempts_made"`
	Model        string `json:"model"`
}

// extract handles POST /api/v1/genograms/extract.
func (s *Server) extract(w http.ResponseWriter, r *http.Request) {
	var req ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	if req.Transcript == "" {
		writeError(w, http.StatusBadRequest, "transcript is required")
		return
	}
	if req.PatientID == "" {
		writeError(w, http.StatusBadRequest, "patient_id is required")
		return
	}

	outcome, err := s.runner.ProcessTranscript(r.Context(), req.PatientID, req.SessionRef, req.Transcript, req.MaxAttempts)
	if err != nil {
		var exhausted *extractor.ExhaustedError
		if errors.As(err, &exhausted) {
			body := map[string]any{
				"error":         exhausted.LastErr.Error(),
				"attempts_made": exhausted.Attempts,
			}
			if exhausted.DiagnosticPath != "" {
				body["diagnostic_file"] = exhausted.DiagnosticPath
			}
			writeJSON(w, http.StatusUnprocessableEntity, body)
			return
		}
		s.logger.Error("extraction request failed", "patient_id", req.PatientID, "error", err)
		writeError(w, http.StatusInternalServerError, "extraction failed")
		return
	}

	writeJSON(w, http.StatusOK, ExtractResponse{
		GenogramID:   outcome.RecordID.String(),
		Genogram:     outcome.Result.Graph,
		AttemptsMade: outcome.Result.AttemptsMade,
		Model:        outcome.Result.Model,
	})
}

// getGenogram handles GET /api/v1/genograms/{id}.
func (s *Server) getGenogram(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid genogram id")
		return
	}

	rec, err := s.reader.GetGenogram(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "genogram not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to load genogram", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load genogram")
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// listGenograms handles GET /api/v1/patients/{patientID}/genograms.
func (s *Server) listGenograms(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientID")

	records, err := s.reader.ListByPatient(r.Context(), patientID)
	if err != nil {
		s.logger.Error("failed to list genograms", "patient_id", patientID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list genograms")
		return
	}
	if records == nil {
		records = []*store.Record{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"patient_id": patientID,
		"genograms":  records,
		"count":      len(records),
	})
}
