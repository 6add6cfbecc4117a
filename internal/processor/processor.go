// Package processor orchestrates the extraction pipeline for its two entry
// points: transcript-stored events from the bus and synchronous HTTP
// requests.
package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/vitalia-health/mendel/internal/bus"
	"github.com/vitalia-health/mendel/internal/extractor"
	"github.com/vitalia-health/mendel/internal/genogram"
)

// GenogramStore is the slice of the store the processor needs.
type GenogramStore interface {
	SaveGenogram(ctx context.Context, patientID, sessionRef string, graph *genogram.Graph, model string, attempts int) (uuid.UUID, error)
}

// Publisher is the slice of the bus the processor needs.
type Publisher interface {
	Publish(subject string, data any) error
}

// TranscriptEvent is the payload of clinic.transcript.stored, emitted by the
// transcription service once a session's speaker-labeled text is assembled.
type TranscriptEvent struct {
	SessionID  string `json:"session_id"`
	SessionRef string `json:"session_ref"`
	PatientID  string `json:"patient_id"`
	Transcript string `json:"transcript"`
}

// Outcome is a finished extraction: the persisted row plus provenance.
type Outcome struct {
	RecordID uuid.UUID
	Result   *extractor.Result
}

type Processor struct {
	store       GenogramStore
	extractor   *extractor.Extractor
	bus         Publisher
	maxAttempts int
	logger      *slog.Logger
}

func New(s GenogramStore, ext *extractor.Extractor, b Publisher, maxAttempts int, logger *slog.Logger) *Processor {
	return &Processor{
		store:       s,
		extractor:   ext,
		bus:         b,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// HandleTranscriptStored is the NATS handler for clinic.transcript.stored.
func (p *Processor) HandleTranscriptStored(subject string, data []byte) {
	ctx := context.Background()

	var evt TranscriptEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		p.logger.Error("failed to parse transcript event", "error", err)
		return
	}

	if evt.Transcript == "" {
		p.logger.Error("transcript event has no transcript", "session_id", evt.SessionID)
		return
	}

	p.logger.Info("processing transcript",
		"session_id", evt.SessionID,
		"session_ref", evt.SessionRef,
		"patient_id", evt.PatientID,
	)

	if _, err := p.ProcessTranscript(ctx, evt.PatientID, evt.SessionRef, evt.Transcript, 0); err != nil {
		p.logger.Error("extraction failed", "session_ref", evt.SessionRef, "error", err)
	}
}

// ProcessTranscript runs one full extraction: reflection loop, persistence,
// event publication. maxAttempts <= 0 means the configured default. The
// returned error is the extractor's terminal error when the budget was
// exhausted; nothing is persisted in that case.
func (p *Processor) ProcessTranscript(ctx context.Context, patientID, sessionRef, transcript string, maxAttempts int) (*Outcome, error) {
	if maxAttempts <= 0 {
		maxAttempts = p.maxAttempts
	}

	start := time.Now()

	result, err := p.extractor.Extract(ctx, transcript, maxAttempts)
	if err != nil {
		p.publishFailure(patientID, sessionRef, err)
		return nil, fmt.Errorf("extract genogram: %w", err)
	}

	id, err := p.store.SaveGenogram(ctx, patientID, sessionRef, result.Graph, result.Model, result.AttemptsMade)
	if err != nil {
		return nil, fmt.Errorf("save genogram: %w", err)
	}

	if err := p.bus.Publish(bus.SubjectGenogramDone, map[string]any{
		"genogram_id":   id.String(),
		"patient_id":    patientID,
		"session_ref":   sessionRef,
		"people":        len(result.Graph.People),
		"relationships": len(result.Graph.Relationships),
		"attempts_made": result.AttemptsMade,
		"model":         result.Model,
	}); err != nil {
		p.logger.Warn("failed to publish genogram extracted", "error", err)
	}

	p.logger.Info("genogram persisted",
		"genogram_id", id,
		"patient_id", patientID,
		"attempts_made", result.AttemptsMade,
		"duration", time.Since(start),
	)

	return &Outcome{RecordID: id, Result: result}, nil
}

func (p *Processor) publishFailure(patientID, sessionRef string, err error) {
	payload := map[string]any{
		"patient_id":  patientID,
		"session_ref": sessionRef,
		"error":       err.Error(),
	}

	var exhausted *extractor.ExhaustedError
	if errors.As(err, &exhausted) {
		payload["attempts_made"] = exhausted.Attempts
		if exhausted.DiagnosticPath != "" {
			payload["diagnostic_file"] = exhausted.DiagnosticPath
		}
	}

	if perr := p.bus.Publish(bus.SubjectGenogramFailed, payload); perr != nil {
		p.logger.Warn("failed to publish genogram failure", "error", perr)
	}
}
