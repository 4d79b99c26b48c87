// Package semantic produces dense sentence embeddings and reduces them to
// a fixed width with a PCA basis fit once at training time.
package semantic

import (
	"context"
)

// Encoder is a pretrained sentence encoder. Implementations must return one
// vector of width Dim() per input text, in input order.
type Encoder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
	Dim() int
	// ModelID identifies the model and its output width. Artifacts record it
	// so a swapped encoder is detected at load time.
	ModelID() string
}
