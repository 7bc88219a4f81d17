package embed

import (
	"context"
	"net/http"
)

// OllamaConfig configures the Ollama embedding provider.
type OllamaConfig struct {
	URL   string // Base URL (default: http://localhost:11434)
	Model string // Model name (default: all-minilm, 384 dimensions)
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Ollama returns an EmbeddingFunc that calls the Ollama API.
func Ollama(cfg OllamaConfig) EmbeddingFunc {
	if cfg.URL == "" {
		cfg.URL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "all-minilm"
	}

	client := &http.Client{Timeout: defaultTimeout}

	return func(ctx context.Context, text string) ([]float32, error) {
		var result ollamaResponse
		err := postJSON(ctx, client, "ollama", cfg.URL+"/api/embeddings", nil,
			ollamaRequest{Model: cfg.Model, Prompt: text}, &result)
		if err != nil {
			return nil, err
		}
		return toFloat32(result.Embedding), nil
	}
}
