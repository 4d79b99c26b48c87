// Package gemini embeds text with the Gemini embedding API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const (
	defaultModel = "gemini-embedding-001"
	defaultDim   = 768
)

// Encoder calls EmbedContent with a fixed output dimensionality.
type Encoder struct {
	client *genai.Client
	model  string
	dim    int
}

// New creates an Encoder for the Gemini API backend.
func New(ctx context.Context, apiKey, model string, dim int) (*Encoder, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	if dim <= 0 {
		dim = defaultDim
	}
	return &Encoder{client: client, model: model, dim: dim}, nil
}

// Dim returns the requested output dimensionality.
func (e *Encoder) Dim() int { return e.dim }

// ModelID returns "gemini/<model>@<dim>".
func (e *Encoder) ModelID() string { return fmt.Sprintf("gemini/%s@%d", e.model, e.dim) }

// Encode embeds texts as classification inputs.
func (e *Encoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	dim := int32(e.dim)
	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
		TaskType:             "CLASSIFICATION",
		OutputDimensionality: &dim,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if resp == nil || len(resp.Embeddings) != len(texts) {
		got := 0
		if resp != nil {
			got = len(resp.Embeddings)
		}
		return nil, fmt.Errorf("gemini embed: %d embeddings for %d texts", got, len(texts))
	}

	out := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		if emb == nil {
			return nil, fmt.Errorf("gemini embed: empty embedding %d", i)
		}
		out[i] = emb.Values
	}
	return out, nil
}
