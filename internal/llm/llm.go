// Package llm defines the backend-agnostic completion interface the
// extraction pipeline talks to, plus the error taxonomy callers branch on.
// Implementations live in the gemini and ollama subpackages.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// GenerationConfig carries the sampling parameters for one completion.
// Defaults lean deterministic with a ceiling sized for large graphs.
type GenerationConfig struct {
	Temperature     float64
	TopP            float64
	TopK            int
	MaxOutputTokens int
}

// DefaultGenerationConfig returns the tuning used for genogram extraction.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Temperature:     0.6,
		TopP:            0.95,
		TopK:            40,
		MaxOutputTokens: 30000,
	}
}

// Completer sends a prompt to an LLM backend and returns its raw textual
// completion. Implementations must not retry internally (retries belong to
// the reflection loop) and must classify failures using the error types
// below. A completion truncated by the output-token ceiling yields an empty
// string with a nil error.
type Completer interface {
	Complete(ctx context.Context, prompt string, cfg GenerationConfig) (string, error)
	Model() string
}

// ErrTimeout is returned (wrapped) when the backend does not answer within
// the configured bound.
var ErrTimeout = errors.New("llm: request timed out")

// TransportError wraps network-level failures: connection refused, DNS, etc.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("llm: transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RejectionError is a backend-side refusal: a non-success status or a
// content-policy block. BlockReason carries the provider's stated reason
// verbatim when one was given.
type RejectionError struct {
	StatusCode  int
	BlockReason string
	Detail      string
}

func (e *RejectionError) Error() string {
	msg := fmt.Sprintf("llm: backend rejected request (status %d)", e.StatusCode)
	if e.BlockReason != "" {
		msg += ": blocked: " + e.BlockReason
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// EnvelopeError means the backend reported success but the response body
// lacked the expected completion structure.
type EnvelopeError struct {
	Detail string
}

func (e *EnvelopeError) Error() string {
	return "llm: malformed response envelope: " + e.Detail
}
