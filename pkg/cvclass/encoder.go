package cvclass

import (
	"context"
	"fmt"
	"strings"

	"github.com/cognicore/cvclass/pkg/cvclass/internalerr"
	"github.com/cognicore/cvclass/pkg/cvclass/semantic"
	"github.com/cognicore/cvclass/pkg/cvclass/semantic/gemini"
	"github.com/cognicore/cvclass/pkg/cvclass/semantic/hashenc"
	"github.com/cognicore/cvclass/pkg/cvclass/semantic/onnx"
	"github.com/cognicore/cvclass/pkg/cvclass/semantic/voyage"
)

// Encoder providers.
const (
	ProviderHash   = "hash"
	ProviderGemini = "gemini"
	ProviderVoyage = "voyage"
	ProviderONNX   = "onnx"
)

// EncoderConfig selects and configures a sentence encoder.
type EncoderConfig struct {
	Provider      string `mapstructure:"provider"`
	Model         string `mapstructure:"model"`
	Dim           int    `mapstructure:"dim"`
	APIKey        string `mapstructure:"api_key"`
	ORTLibrary    string `mapstructure:"ort_library"`
	ModelPath     string `mapstructure:"model_path"`
	TokenizerPath string `mapstructure:"tokenizer_path"`
	MaxSeqLen     int    `mapstructure:"max_seq_len"`
	Normalize     bool   `mapstructure:"normalize"` // onnx: L2-normalize pooled vectors
}

// NewEncoder builds the configured encoder. An empty provider means the
// offline hashing encoder.
func NewEncoder(ctx context.Context, cfg EncoderConfig) (semantic.Encoder, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderHash:
		return hashenc.New(cfg.Dim), nil
	case ProviderGemini:
		return gemini.New(ctx, cfg.APIKey, cfg.Model, cfg.Dim)
	case ProviderVoyage:
		return voyage.New(cfg.APIKey, cfg.Model, cfg.Dim)
	case ProviderONNX:
		return onnx.New(onnx.Config{
			LibraryPath:   cfg.ORTLibrary,
			ModelPath:     cfg.ModelPath,
			TokenizerPath: cfg.TokenizerPath,
			Dim:           cfg.Dim,
			MaxSeqLen:     cfg.MaxSeqLen,
			Normalize:     cfg.Normalize,
		})
	default:
		return nil, fmt.Errorf("encoder provider %q: %w", cfg.Provider, internalerr.ErrInvalidConfig)
	}
}
