package artifact

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cognicore/cvclass/pkg/cvclass/eval"
	"github.com/cognicore/cvclass/pkg/cvclass/store"
)

// SaveReport stores the evaluation report of set id.
func SaveReport(ctx context.Context, st store.Store, id string, r *eval.Report) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := st.PutReport(ctx, id, body); err != nil {
		return fmt.Errorf("store report %s: %w", id, err)
	}
	return nil
}

// LoadReport reads the evaluation report of set id.
func LoadReport(ctx context.Context, st store.Store, id string) (*eval.Report, error) {
	body, err := st.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	var r eval.Report
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", id, err)
	}
	return &r, nil
}
