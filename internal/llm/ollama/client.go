// Package ollama implements the llm.Completer interface against a local
// Ollama server (/api/generate), the offline backend option.
package ollama

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

type Client struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewClient builds a client for an Ollama server, e.g.
// http://localhost:11434. Local generation of a large graph on CPU is slow;
// size the timeout accordingly.
func NewClient(baseURL, model string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *Client) Model() string { return c.model }

type request struct {
	Model   string  `json:"model"`
	Prompt  string  `json:"prompt"`
	Stream  bool    `json:"stream"`
	Options options `json:"options"`
}

type options struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	TopK        int     `json:"top_k"`
	NumPredict  int     `json:"num_predict"`
}

type response struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error"`
}

// Complete sends the prompt and returns the raw completion text, with the
// same error classification as the remote backend.
func (c *Client) Complete(ctx context.Context, prompt string, cfg llm.GenerationConfig) (string, error) {
	reqBody := request{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
		Options: options{
			Temperature: cfg.Temperature,
			TopP:        cfg.TopP,
			TopK:        cfg.TopK,
			NumPredict:  cfg.MaxOutputTokens,
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) && uerr.Timeout() {
			return "", fmt.Errorf("%w (limit %s)", llm.ErrTimeout, c.client.Timeout)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w (context deadline)", llm.ErrTimeout)
		}
		return "", &llm.TransportError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &llm.TransportError{Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		var apiResp response
		if json.Unmarshal(respBody, &apiResp) == nil && apiResp.Error != "" {
			return "", &llm.RejectionError{StatusCode: resp.StatusCode, Detail: apiResp.Error}
		}
		return "", &llm.RejectionError{StatusCode: resp.StatusCode, Detail: string(respBody)}
	}

	var apiResp response
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", &llm.EnvelopeError{Detail: fmt.Sprintf("undecodable body: %v", err)}
	}
	if apiResp.Error != "" {
		return "", &llm.RejectionError{StatusCode: resp.StatusCode, Detail: apiResp.Error}
	}

	return apiResp.Response, nil
}
