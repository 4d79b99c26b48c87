package gbm

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/cognicore/cvclass/pkg/cvclass/internalerr"
)

// Params are the boosting hyperparameters. Field names follow the usual
// gradient boosting vocabulary so overrides can be written as
// {"n_estimators": 500, "colsample_bytree": 0.5}.
type Params struct {
	NEstimators     int     `mapstructure:"n_estimators" json:"n_estimators"`
	MaxDepth        int     `mapstructure:"max_depth" json:"max_depth"`
	LearningRate    float64 `mapstructure:"learning_rate" json:"learning_rate"`
	Subsample       float64 `mapstructure:"subsample" json:"subsample"`
	ColsampleByTree float64 `mapstructure:"colsample_bytree" json:"colsample_bytree"`
	MinChildWeight  float64 `mapstructure:"min_child_weight" json:"min_child_weight"`
	Lambda          float64 `mapstructure:"reg_lambda" json:"reg_lambda"`
	Gamma           float64 `mapstructure:"gamma" json:"gamma"`
	MaxBins         int     `mapstructure:"max_bins" json:"max_bins"`
	Seed            uint64  `mapstructure:"seed" json:"seed"`
	Workers         int     `mapstructure:"workers" json:"workers"`
}

// DefaultParams returns the tuned parameters of the final classifier.
func DefaultParams() Params {
	return Params{
		NEstimators:     350,
		MaxDepth:        5,
		LearningRate:    0.0178,
		Subsample:       0.75,
		ColsampleByTree: 0.55,
		MinChildWeight:  1,
		Lambda:          1,
		MaxBins:         64,
		Seed:            42,
	}
}

// PreliminaryParams returns library-default parameters, used for the
// importance-ranking model.
func PreliminaryParams() Params {
	return Params{
		NEstimators:     100,
		MaxDepth:        6,
		LearningRate:    0.3,
		Subsample:       1,
		ColsampleByTree: 1,
		MinChildWeight:  1,
		Lambda:          1,
		MaxBins:         64,
		Seed:            42,
	}
}

// Validate checks parameter ranges.
func (p Params) Validate() error {
	switch {
	case p.NEstimators <= 0:
		return fmt.Errorf("n_estimators %d: %w", p.NEstimators, internalerr.ErrInvalidConfig)
	case p.MaxDepth <= 0:
		return fmt.Errorf("max_depth %d: %w", p.MaxDepth, internalerr.ErrInvalidConfig)
	case p.LearningRate <= 0 || p.LearningRate > 1:
		return fmt.Errorf("learning_rate %g: %w", p.LearningRate, internalerr.ErrInvalidConfig)
	case p.Subsample <= 0 || p.Subsample > 1:
		return fmt.Errorf("subsample %g: %w", p.Subsample, internalerr.ErrInvalidConfig)
	case p.ColsampleByTree <= 0 || p.ColsampleByTree > 1:
		return fmt.Errorf("colsample_bytree %g: %w", p.ColsampleByTree, internalerr.ErrInvalidConfig)
	case p.MinChildWeight < 0 || p.Lambda < 0 || p.Gamma < 0:
		return fmt.Errorf("negative regularization: %w", internalerr.ErrInvalidConfig)
	case p.MaxBins < 2 || p.MaxBins > 256:
		return fmt.Errorf("max_bins %d: %w", p.MaxBins, internalerr.ErrInvalidConfig)
	}
	return nil
}

// FromMap overlays the keys of m onto base. Unknown keys are rejected.
func FromMap(base Params, m map[string]any) (Params, error) {
	p := base
	if len(m) == 0 {
		return p, p.Validate()
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &p,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return base, err
	}
	if err := dec.Decode(m); err != nil {
		return base, fmt.Errorf("decode params: %v: %w", err, internalerr.ErrInvalidConfig)
	}
	return p, p.Validate()
}
