// Package voyage embeds text with the Voyage AI embeddings API.
package voyage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/austinfhunter/voyageai"
)

const (
	defaultModel = "voyage-3.5-lite"
	defaultDim   = 1024
)

// Encoder wraps a Voyage client with a fixed model and output dimension.
type Encoder struct {
	client    *voyageai.VoyageClient
	model     string
	dim       int
	inputType string
}

// New creates an Encoder.
func New(apiKey, model string, dim int) (*Encoder, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("voyage api key is required")
	}
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	if dim <= 0 {
		dim = defaultDim
	}
	return &Encoder{
		client:    voyageai.NewClient(&voyageai.VoyageClientOpts{Key: apiKey}),
		model:     model,
		dim:       dim,
		inputType: "document",
	}, nil
}

// Dim returns the requested output dimension.
func (e *Encoder) Dim() int { return e.dim }

// ModelID returns "voyage/<model>@<dim>".
func (e *Encoder) ModelID() string { return fmt.Sprintf("voyage/%s@%d", e.model, e.dim) }

type embedResult struct {
	vecs [][]float32
	err  error
}

// Encode embeds texts. The client has no context support, so the call runs
// in its own goroutine and is abandoned when ctx is done.
func (e *Encoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	done := make(chan embedResult, 1)
	go func() {
		vecs, err := e.embed(texts)
		done <- embedResult{vecs: vecs, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		return r.vecs, r.err
	}
}

func (e *Encoder) embed(texts []string) ([][]float32, error) {
	dim := e.dim
	inputType := e.inputType
	resp, err := e.client.Embed(texts, e.model, &voyageai.EmbeddingRequestOpts{
		InputType:       &inputType,
		OutputDimension: &dim,
	})
	if err != nil {
		return nil, fmt.Errorf("could not get embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("voyage embed: %d embeddings for %d texts", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for i, obj := range resp.Data {
		out[i] = obj.Embedding
	}
	return out, nil
}
