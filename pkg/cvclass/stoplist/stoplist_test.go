package stoplist

import (
	"math"
	"testing"
)

func TestManagerBasics(t *testing.T) {
	m := NewManager([]string{"The", " and ", ""})
	if !m.IsStop("the") || !m.IsStop("and") {
		t.Error("initial stopwords should be lowercased and trimmed")
	}
	if m.Len() != 2 {
		t.Errorf("expected 2 stopwords, got %d", m.Len())
	}

	m.Add("Resume", Reason{HighDF: true})
	if !m.IsStop("resume") {
		t.Error("added stopword missing")
	}
	if m.Len() != 3 || m.IsStop("python") {
		t.Errorf("unexpected stoplist: %d words", m.Len())
	}
}

func TestSuggestCandidates(t *testing.T) {
	m := NewManager([]string{"the"})
	stats := []Stats{
		{Token: "the", DFPercent: 99, CatEntropy: 1},
		{Token: "work", DFPercent: 90, CatEntropy: 0.97},
		{Token: "python", DFPercent: 85, CatEntropy: 0.3},
		{Token: "team", DFPercent: 75},
		{Token: "rare", DFPercent: 5, CatEntropy: 0.99},
	}

	got := m.SuggestCandidates(stats, DefaultThresholds())
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %+v", got)
	}
	if got[0].Token != "work" || got[1].Token != "team" {
		t.Errorf("unexpected order: %+v", got)
	}
}

func TestNormalizedEntropy(t *testing.T) {
	uniform := map[string]int64{"a": 5, "b": 5, "c": 5, "d": 5}
	if h := NormalizedEntropy(uniform, 4); math.Abs(h-1) > 1e-9 {
		t.Errorf("uniform entropy should be 1, got %f", h)
	}
	single := map[string]int64{"a": 10}
	if h := NormalizedEntropy(single, 4); h != 0 {
		t.Errorf("single-category entropy should be 0, got %f", h)
	}
	if h := NormalizedEntropy(uniform, 1); h != 0 {
		t.Errorf("entropy with one category should be 0, got %f", h)
	}
}

func TestForLanguage(t *testing.T) {
	if len(ForLanguage("en")) != len(English) {
		t.Error("english list mismatch")
	}
	if ForLanguage("xx") != nil {
		t.Error("unknown language should return nil")
	}
}
