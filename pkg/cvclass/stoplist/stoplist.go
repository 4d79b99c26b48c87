package stoplist

import (
	"math"
	"sort"
	"strings"
)

// Manager holds the active stopword list and can propose additions from
// corpus statistics.
type Manager struct {
	stops map[string]Reason
}

// Reason explains why a token is a stopword
type Reason struct {
	Base        bool    // part of the configured language list
	HighDF      bool    // high document frequency
	HighEntropy bool    // uniform distribution across categories
	IDF         float64 // inverse document frequency
	CatEntropy  float64 // normalized category entropy
}

// NewManager creates a new stoplist manager
func NewManager(initialStops []string) *Manager {
	stops := make(map[string]Reason, len(initialStops))
	for _, s := range initialStops {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		stops[s] = Reason{Base: true}
	}
	return &Manager{stops: stops}
}

// IsStop checks if a token is a stopword
func (m *Manager) IsStop(token string) bool {
	_, ok := m.stops[token]
	return ok
}

// Add adds a token to the stoplist with a reason
func (m *Manager) Add(token string, reason Reason) {
	m.stops[strings.ToLower(token)] = reason
}

// Len returns the number of stopwords.
func (m *Manager) Len() int { return len(m.stops) }

// Stats holds statistics for candidate evaluation
type Stats struct {
	Token      string
	DF         int64
	DFPercent  float64
	IDF        float64
	CatEntropy float64 // 0 when category counts are unavailable
}

// Candidate represents a candidate stopword
type Candidate struct {
	Token  string
	Reason Reason
	Score  float64 // confidence score
}

// Thresholds defines criteria for stopword identification
type Thresholds struct {
	DFPercent  float64 // e.g. 70: appears in 70% of documents
	CatEntropy float64 // e.g. 0.9: nearly uniform across categories
}

// DefaultThresholds returns the thresholds used in training reports.
func DefaultThresholds() Thresholds {
	return Thresholds{
		DFPercent:  70.0,
		CatEntropy: 0.9,
	}
}

// SuggestCandidates suggests tokens that carry little signal for category
// prediction: present in most documents and spread evenly over categories.
// Tokens without entropy data qualify on document frequency alone.
// The result is sorted by descending score, then token.
func (m *Manager) SuggestCandidates(stats []Stats, thresholds Thresholds) []Candidate {
	if thresholds.DFPercent == 0 {
		thresholds.DFPercent = DefaultThresholds().DFPercent
	}
	if thresholds.CatEntropy == 0 {
		thresholds.CatEntropy = DefaultThresholds().CatEntropy
	}

	var candidates []Candidate
	for _, s := range stats {
		if m.IsStop(s.Token) {
			continue // already a stopword
		}

		reason := Reason{
			HighDF:      s.DFPercent > thresholds.DFPercent,
			HighEntropy: s.CatEntropy == 0 || s.CatEntropy > thresholds.CatEntropy,
			IDF:         s.IDF,
			CatEntropy:  s.CatEntropy,
		}
		if !reason.HighDF || !reason.HighEntropy {
			continue
		}

		entropy := s.CatEntropy
		if entropy == 0 {
			entropy = thresholds.CatEntropy
		}
		candidates = append(candidates, Candidate{
			Token:  s.Token,
			Reason: reason,
			Score:  (s.DFPercent/100.0 + entropy) / 2.0,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score == candidates[j].Score {
			return candidates[i].Token < candidates[j].Token
		}
		return candidates[i].Score > candidates[j].Score
	})
	return candidates
}

// NormalizedEntropy returns the Shannon entropy of counts divided by the
// maximum entropy for the given number of categories, in [0,1].
func NormalizedEntropy(counts map[string]int64, numCategories int) float64 {
	if numCategories <= 1 {
		return 0
	}
	var total int64
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return 0
	}
	var h float64
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / float64(total)
		h -= p * math.Log(p)
	}
	return h / math.Log(float64(numCategories))
}
