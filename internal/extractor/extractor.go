// Package extractor implements the LLM-mediated genogram extraction
// pipeline: prompt construction, response sanitization, strict schema
// validation, and a bounded reflection loop that feeds validation errors
// back to the model as correction prompts.
package extractor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vitalia-health/mendel/internal/diagnostics"
	"github.com/vitalia-health/mendel/internal/genogram"
	"github.com/vitalia-health/mendel/internal/llm"
)

// DefaultMaxAttempts is the validated retry budget: one initial attempt plus
// one correction.
const DefaultMaxAttempts = 2

// Result is the outcome of a successful extraction, with provenance.
type Result struct {
	Graph        *genogram.Graph
	AttemptsMade int
	Model        string
}

// ExhaustedError is the terminal failure raised once the attempt budget runs
// out without a valid graph. It keeps the last classified error and a
// pointer to the persisted raw response so a near-valid graph can be
// recovered offline.
type ExhaustedError struct {
	Attempts       int
	LastErr        error
	DiagnosticPath string
}

func (e *ExhaustedError) Error() string {
	msg := fmt.Sprintf("extraction failed after %d attempt(s): %v", e.Attempts, e.LastErr)
	if e.DiagnosticPath != "" {
		msg += fmt.Sprintf(" (last raw response saved to %s)", e.DiagnosticPath)
	}
	return msg
}

func (e *ExhaustedError) Unwrap() error { return e.LastErr }

type Extractor struct {
	llm    llm.Completer
	diag   *diagnostics.Recorder
	genCfg llm.GenerationConfig
	logger *slog.Logger
}

func New(completer llm.Completer, diag *diagnostics.Recorder, logger *slog.Logger) *Extractor {
	return &Extractor{
		llm:    completer,
		diag:   diag,
		genCfg: llm.DefaultGenerationConfig(),
		logger: logger,
	}
}

// Extract runs the reflection loop over the transcript: build the prompt,
// call the model, sanitize, validate. Every failure inside an attempt is
// recovered locally into a correction prompt carrying the captured error and
// the previous raw output, up to maxAttempts; a graph is only ever returned
// fully validated. Attempts are necessarily sequential because each
// correction depends on the previous failure.
func (e *Extractor) Extract(ctx context.Context, transcript string, maxAttempts int) (*Result, error) {
	if maxAttempts < 1 {
		return nil, fmt.Errorf("maxAttempts must be at least 1, got %d", maxAttempts)
	}

	var lastErr error
	var lastRaw string
	var lastDiagPath string

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		var prompt string
		if attempt == 1 {
			prompt = InitialPrompt(transcript)
		} else {
			prompt = CorrectionPrompt(lastErr.Error(), lastRaw, transcript)
		}

		e.logger.Info("calling model",
			"model", e.llm.Model(),
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"transcript_len", len(transcript),
		)

		raw, err := e.llm.Complete(ctx, prompt, e.genCfg)
		if err != nil {
			lastErr = fmt.Errorf("model call: %w", err)
			lastRaw = ""
			e.logger.Warn("attempt failed", "attempt", attempt, "error", err)
			continue
		}
		lastRaw = raw

		graph, warnings, err := Validate(Sanitize(raw))
		if err != nil {
			lastErr = err
			e.logger.Warn("attempt produced invalid graph", "attempt", attempt, "error", err)

			// Preserve the evidence even when the loop will retry.
			if path, derr := e.diag.Record(raw, attempt); derr != nil {
				e.logger.Error("failed to record invalid response", "error", derr)
			} else {
				lastDiagPath = path
				e.logger.Info("invalid response recorded", "path", path)
			}
			continue
		}

		for _, w := range warnings {
			e.logger.Warn("validation warning", "attempt", attempt, "warning", w)
		}

		e.logger.Info("extraction validated",
			"attempt", attempt,
			"people", len(graph.People),
			"relationships", len(graph.Relationships),
		)

		return &Result{Graph: graph, AttemptsMade: attempt, Model: e.llm.Model()}, nil
	}

	return nil, &ExhaustedError{
		Attempts:       maxAttempts,
		LastErr:        lastErr,
		DiagnosticPath: lastDiagPath,
	}
}
