// Package gemini implements the llm.Completer interface against the Google
// generative language REST API (generateContent).
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/vitalia-health/mendel/internal/llm"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

type Client struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewClient builds a Gemini client. The timeout bounds the whole completion
// call; graph generation is slow, so minutes-scale values are expected.
func NewClient(apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// SetBaseURL points the client at a different endpoint (proxies, tests).
func (c *Client) SetBaseURL(u string) {
	c.baseURL = u
}

func (c *Client) Model() string { return c.model }

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP"`
	TopK            int     `json:"topK"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type request struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type candidate struct {
	Content      *content `json:"content"`
	FinishReason string   `json:"finishReason"`
}

type promptFeedback struct {
	BlockReason string `json:"blockReason"`
}

type response struct {
	Candidates     []candidate     `json:"candidates"`
	PromptFeedback *promptFeedback `json:"promptFeedback"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends the prompt and returns the raw completion text. Failures
// are classified per the llm package taxonomy; a generation truncated by the
// token ceiling before producing any content returns "" with a nil error.
func (c *Client) Complete(ctx context.Context, prompt string, cfg llm.GenerationConfig) (string, error) {
	reqBody := request{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: prompt}}},
		},
		GenerationConfig: generationConfig{
			Temperature:     cfg.Temperature,
			TopP:            cfg.TopP,
			TopK:            cfg.TopK,
			MaxOutputTokens: cfg.MaxOutputTokens,
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", classifyTransport(err, c.client.Timeout)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &llm.TransportError{Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
			return "", &llm.RejectionError{
				StatusCode: resp.StatusCode,
				Detail:     fmt.Sprintf("%s: %s", errResp.Error.Status, errResp.Error.Message),
			}
		}
		return "", &llm.RejectionError{StatusCode: resp.StatusCode, Detail: string(respBody)}
	}

	var apiResp response
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", &llm.EnvelopeError{Detail: fmt.Sprintf("undecodable body: %v", err)}
	}

	// No candidates at all: the prompt itself was blocked or the backend
	// returned an empty success. Keep the provider's reason verbatim.
	if len(apiResp.Candidates) == 0 {
		reason := "no reason given"
		if apiResp.PromptFeedback != nil && apiResp.PromptFeedback.BlockReason != "" {
			reason = apiResp.PromptFeedback.BlockReason
		}
		return "", &llm.RejectionError{StatusCode: resp.StatusCode, BlockReason: reason, Detail: "response has no candidates"}
	}

	cand := apiResp.Candidates[0]

	switch cand.FinishReason {
	case "STOP", "MAX_TOKENS", "":
	default:
		// SAFETY, RECITATION, OTHER: generation was cut off by the backend.
		return "", &llm.RejectionError{
			StatusCode:  resp.StatusCode,
			BlockReason: cand.FinishReason,
			Detail:      "generation did not finish normally",
		}
	}

	if cand.Content == nil || len(cand.Content.Parts) == 0 {
		if cand.FinishReason == "MAX_TOKENS" {
			// Truncated before emitting anything: empty, not an error.
			return "", nil
		}
		return "", &llm.EnvelopeError{Detail: fmt.Sprintf("candidate has no content (finishReason %q)", cand.FinishReason)}
	}

	return cand.Content.Parts[0].Text, nil
}

func classifyTransport(err error, timeout time.Duration) error {
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() {
		return fmt.Errorf("%w (limit %s)", llm.ErrTimeout, timeout)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w (context deadline)", llm.ErrTimeout)
	}
	return &llm.TransportError{Err: err}
}
