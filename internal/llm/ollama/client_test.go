package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vitalia-health/mendel/internal/llm"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, "test-model", 5*time.Second)
}

func TestComplete_Success(t *testing.T) {
	var gotPath string
	var gotBody request
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{
			"response": `{"people": []}`,
			"done":     true,
		})
	})

	out, err := c.Complete(context.Background(), "hola", llm.DefaultGenerationConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != `{"people": []}` {
		t.Errorf("unexpected completion %q", out)
	}
	if gotPath != "/api/generate" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotBody.Stream {
		t.Error("expected streaming disabled")
	}
	if gotBody.Options.NumPredict != 30000 {
		t.Errorf("expected the token ceiling forwarded as num_predict, got %d", gotBody.Options.NumPredict)
	}
}

func TestComplete_ServerErrorIsRejection(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{"error": "model 'missing' not found"})
	})

	_, err := c.Complete(context.Background(), "hola", llm.DefaultGenerationConfig())
	var rej *llm.RejectionError
	if !errors.As(err, &rej) {
		t.Fatalf("expected a RejectionError, got %T: %v", err, err)
	}
	if !strings.Contains(rej.Detail, "not found") {
		t.Errorf("expected the server message, got %q", rej.Detail)
	}
}

func TestComplete_InBandErrorIsRejection(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"error": "out of memory"})
	})

	_, err := c.Complete(context.Background(), "hola", llm.DefaultGenerationConfig())
	var rej *llm.RejectionError
	if !errors.As(err, &rej) {
		t.Fatalf("expected a RejectionError, got %T: %v", err, err)
	}
}

func TestComplete_UndecodableBodyIsEnvelopeError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	})

	_, err := c.Complete(context.Background(), "hola", llm.DefaultGenerationConfig())
	var env *llm.EnvelopeError
	if !errors.As(err, &env) {
		t.Fatalf("expected an EnvelopeError, got %T: %v", err, err)
	}
}

func TestComplete_ConnectionRefusedIsTransportError(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "test-model", 2*time.Second)

	_, err := c.Complete(context.Background(), "hola", llm.DefaultGenerationConfig())
	var terr *llm.TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected a TransportError, got %T: %v", err, err)
	}
}

func TestComplete_TimeoutIsClassified(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})
	c.client.Timeout = 20 * time.Millisecond

	_, err := c.Complete(context.Background(), "hola", llm.DefaultGenerationConfig())
	if !errors.Is(err, llm.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}
