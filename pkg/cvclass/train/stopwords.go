package train

import (
	"math"
	"strings"

	"github.com/cognicore/cvclass/pkg/cvclass/lexical"
	"github.com/cognicore/cvclass/pkg/cvclass/stoplist"
)

// SuggestStopwords looks for unigrams in a normalized, labeled corpus that
// occur in most documents and are spread evenly over the categories. Such
// terms add width to the vocabulary without separating classes. Terms the
// manager already knows are skipped. limit <= 0 returns every candidate.
func SuggestStopwords(texts, labels []string, mgr *stoplist.Manager, th stoplist.Thresholds, limit int) []stoplist.Candidate {
	counter := lexical.NewCounter()
	cats := make(map[string]struct{})
	for i, text := range texts {
		label := ""
		if i < len(labels) {
			label = labels[i]
			cats[label] = struct{}{}
		}
		counter.AddLabeled(strings.Fields(text), label)
	}
	if counter.TotalDocs() == 0 {
		return nil
	}

	n := float64(counter.TotalDocs())
	stats := make([]stoplist.Stats, 0, counter.UniqueTerms())
	for _, term := range counter.Ranked(0) {
		if len(cats) > 1 && len(counter.ByCategory[term]) == 1 {
			continue // confined to one category, so discriminative
		}
		df := counter.GetTermCount(term)
		stats = append(stats, stoplist.Stats{
			Token:      term,
			DF:         df,
			DFPercent:  100 * float64(df) / n,
			IDF:        math.Log(n / float64(df)),
			CatEntropy: stoplist.NormalizedEntropy(counter.ByCategory[term], len(cats)),
		})
	}

	candidates := mgr.SuggestCandidates(stats, th)
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}
