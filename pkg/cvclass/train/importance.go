package train

import (
	"context"
	"fmt"

	"github.com/cognicore/cvclass/pkg/cvclass/gbm"
)

// RankImportances fits a throwaway booster on rows and returns its
// per-column gain importances. The booster is discarded; only the ranking
// signal survives. It shares no state with the final training run.
func RankImportances(ctx context.Context, rows [][]float64, labels, classes []int, p gbm.Params, opts ...gbm.Option) ([]float64, error) {
	model, err := gbm.Train(ctx, rows, labels, classes, p, opts...)
	if err != nil {
		return nil, fmt.Errorf("preliminary model: %w", err)
	}
	return model.Importances(), nil
}
