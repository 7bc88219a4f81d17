package embed

import (
	"context"
	"fmt"
	"net/http"
)

// OpenAIConfig configures an OpenAI-compatible embedding provider.
type OpenAIConfig struct {
	URL    string // Base URL (default: https://api.openai.com/v1)
	APIKey string
	Model  string // Model name (default: text-embedding-3-small)
}

type openaiRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type openaiResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// OpenAI returns an EmbeddingFunc that calls an OpenAI-compatible API.
func OpenAI(cfg OpenAIConfig) EmbeddingFunc {
	if cfg.URL == "" {
		cfg.URL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}

	client := &http.Client{Timeout: defaultTimeout}
	headers := map[string]string{}
	if cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + cfg.APIKey
	}

	return func(ctx context.Context, text string) ([]float32, error) {
		var result openaiResponse
		err := postJSON(ctx, client, "openai", cfg.URL+"/embeddings", headers,
			openaiRequest{Model: cfg.Model, Input: text}, &result)
		if err != nil {
			return nil, err
		}
		if len(result.Data) == 0 {
			return nil, fmt.Errorf("no embeddings in response")
		}
		return toFloat32(result.Data[0].Embedding), nil
	}
}
