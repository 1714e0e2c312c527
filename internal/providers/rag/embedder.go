package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type baseEmbedder struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

func newBaseEmbedder(baseURL, apiKey, model string) baseEmbedder {
	return baseEmbedder{
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
	}
}

func (b *baseEmbedder) post(ctx context.Context, path string, payload any, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.apiKey)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("http %d: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

// OllamaEmbedder calls the native /api/embed endpoint.
type OllamaEmbedder struct {
	baseEmbedder
}

func NewOllamaEmbedder(baseURL, apiKey, model string) *OllamaEmbedder {
	return &OllamaEmbedder{baseEmbedder: newBaseEmbedder(baseURL, apiKey, model)}
}

func (o *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var result struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	payload := map[string]any{
		"model": o.model,
		"input": text,
	}
	if err := o.post(ctx, "/api/embed", payload, &result); err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if len(result.Embeddings) == 0 || len(result.Embeddings[0]) == 0 {
		return nil, errors.New("ollama embed: empty embedding")
	}
	return result.Embeddings[0], nil
}

// OpenAIEmbedder calls an OpenAI-compatible /v1/embeddings endpoint.
type OpenAIEmbedder struct {
	baseEmbedder
}

func NewOpenAIEmbedder(baseURL, apiKey, model string) *OpenAIEmbedder {
	return &OpenAIEmbedder{baseEmbedder: newBaseEmbedder(baseURL, apiKey, model)}
}

func (o *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var result struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	payload := map[string]any{
		"model": o.model,
		"input": text,
	}
	if err := o.post(ctx, "/v1/embeddings", payload, &result); err != nil {
		return nil, fmt.Errorf("openai embed: %w", err)
	}
	if len(result.Data) == 0 || len(result.Data[0].Embedding) == 0 {
		return nil, errors.New("openai embed: empty embedding")
	}
	return result.Data[0].Embedding, nil
}
