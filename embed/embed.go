// Package embed provides embedding functions for generating vector
// representations of event text, with support for Ollama, OpenAI and Google providers.
package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// EmbeddingFunc generates a vector embedding from text.
type EmbeddingFunc func(ctx context.Context, text string) ([]float32, error)

// defaultTimeout bounds a single provider request.
const defaultTimeout = 30 * time.Second

// Noop returns an EmbeddingFunc that always returns nil. Searches made with it get
// no embedding and stop before reaching the vector store.
func Noop() EmbeddingFunc {
	return func(_ context.Context, _ string) ([]float32, error) {
		return nil, nil
	}
}

// TextForEvent builds the text embedded for an event: "name. description".
// Ingestion and search must use the same representation.
func TextForEvent(name, description string) string {
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	switch {
	case name == "":
		return description
	case description == "":
		return name
	}
	return name + ". " + description
}

// postJSON sends in as a JSON body and decodes a 200 response into out.
func postJSON(ctx context.Context, client *http.Client, provider, url string, headers map[string]string, in, out any) error {
	reqBody, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s error (status %d): %s", provider, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// toFloat32 narrows provider output. Component order is preserved.
func toFloat32(values []float64) []float32 {
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}
	return out
}
