package embed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// GoogleConfig configures the Google Gemini embedding provider.
type GoogleConfig struct {
	URL    string // Base URL (default: https://generativelanguage.googleapis.com/v1beta)
	APIKey string
	Model  string // Model name (default: gemini-embedding-001)
}

type googlePart struct {
	Text string `json:"text"`
}

type googleRequest struct {
	Content struct {
		Parts []googlePart `json:"parts"`
	} `json:"content"`
}

type googleResponse struct {
	Embedding struct {
		Values []float64 `json:"values"`
	} `json:"embedding"`
}

// Google returns an EmbeddingFunc that calls the Gemini embedContent API.
func Google(cfg GoogleConfig) EmbeddingFunc {
	if cfg.URL == "" {
		cfg.URL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-embedding-001"
	}

	client := &http.Client{Timeout: defaultTimeout}
	endpoint := cfg.URL + "/models/" + cfg.Model + ":embedContent?key=" + url.QueryEscape(cfg.APIKey)

	return func(ctx context.Context, text string) ([]float32, error) {
		var req googleRequest
		req.Content.Parts = []googlePart{{Text: text}}

		var result googleResponse
		if err := postJSON(ctx, client, "google", endpoint, nil, req, &result); err != nil {
			return nil, err
		}
		if len(result.Embedding.Values) == 0 {
			return nil, fmt.Errorf("no embeddings in response")
		}
		return toFloat32(result.Embedding.Values), nil
	}
}
