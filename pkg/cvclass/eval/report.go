package eval

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cognicore/cvclass/pkg/cvclass/category"
)

// Predictor returns one category code per row.
type Predictor interface {
	Predict(rows [][]float64) ([]int, error)
}

// ClassMetrics are the scores of one category.
type ClassMetrics struct {
	Code      int     `json:"code"`
	Label     string  `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Averages are aggregated precision, recall and F1.
type Averages struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Report is a per-category classification report.
type Report struct {
	Classes     []ClassMetrics `json:"classes"`
	Accuracy    float64        `json:"accuracy"`
	MacroAvg    Averages       `json:"macro_avg"`
	WeightedAvg Averages       `json:"weighted_avg"`
}

// Evaluate predicts rows and scores the result against labels.
func Evaluate(model Predictor, rows [][]float64, labels []int, set *category.Set) (*Report, error) {
	pred, err := model.Predict(rows)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	return Score(labels, pred, set)
}

// Score builds a report from true and predicted codes. Categories present
// in either list are reported. A ratio with a zero denominator scores 1.
func Score(truth, pred []int, set *category.Set) (*Report, error) {
	if len(truth) != len(pred) {
		return nil, fmt.Errorf("score: %d labels vs %d predictions", len(truth), len(pred))
	}

	codes := make(map[int]struct{})
	tp := make(map[int]int)
	fp := make(map[int]int)
	fn := make(map[int]int)
	support := make(map[int]int)
	correct := 0
	for i := range truth {
		t, p := truth[i], pred[i]
		codes[t] = struct{}{}
		codes[p] = struct{}{}
		support[t]++
		if t == p {
			tp[t]++
			correct++
		} else {
			fp[p]++
			fn[t]++
		}
	}

	sorted := make([]int, 0, len(codes))
	for c := range codes {
		sorted = append(sorted, c)
	}
	sort.Ints(sorted)

	r := &Report{}
	if len(truth) > 0 {
		r.Accuracy = float64(correct) / float64(len(truth))
	}
	for _, c := range sorted {
		label, err := set.Label(c)
		if err != nil {
			return nil, fmt.Errorf("score: %w", err)
		}
		precision := ratio(tp[c], tp[c]+fp[c])
		recall := ratio(tp[c], tp[c]+fn[c])
		f1 := 0.0
		if precision+recall > 0 {
			f1 = 2 * precision * recall / (precision + recall)
		}
		r.Classes = append(r.Classes, ClassMetrics{
			Code: c, Label: label,
			Precision: precision, Recall: recall, F1: f1,
			Support: support[c],
		})
	}

	total := len(truth)
	r.MacroAvg.Support = total
	r.WeightedAvg.Support = total
	for _, m := range r.Classes {
		r.MacroAvg.Precision += m.Precision
		r.MacroAvg.Recall += m.Recall
		r.MacroAvg.F1 += m.F1
		if total > 0 {
			w := float64(m.Support) / float64(total)
			r.WeightedAvg.Precision += w * m.Precision
			r.WeightedAvg.Recall += w * m.Recall
			r.WeightedAvg.F1 += w * m.F1
		}
	}
	if n := float64(len(r.Classes)); n > 0 {
		r.MacroAvg.Precision /= n
		r.MacroAvg.Recall /= n
		r.MacroAvg.F1 /= n
	}
	return r, nil
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 1
	}
	return float64(num) / float64(den)
}

// String renders the report as an aligned text table.
func (r *Report) String() string {
	width := len("weighted avg")
	for _, m := range r.Classes {
		width = max(width, len(m.Label))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%*s %9s %9s %9s %9s\n\n", width, "", "precision", "recall", "f1-score", "support")
	for _, m := range r.Classes {
		fmt.Fprintf(&b, "%*s %9.2f %9.2f %9.2f %9d\n", width, m.Label, m.Precision, m.Recall, m.F1, m.Support)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%*s %9s %9s %9.2f %9d\n", width, "accuracy", "", "", r.Accuracy, r.MacroAvg.Support)
	fmt.Fprintf(&b, "%*s %9.2f %9.2f %9.2f %9d\n", width, "macro avg", r.MacroAvg.Precision, r.MacroAvg.Recall, r.MacroAvg.F1, r.MacroAvg.Support)
	fmt.Fprintf(&b, "%*s %9.2f %9.2f %9.2f %9d\n", width, "weighted avg", r.WeightedAvg.Precision, r.WeightedAvg.Recall, r.WeightedAvg.F1, r.WeightedAvg.Support)
	return b.String()
}
