// Package traintest provides a small synthetic résumé corpus and fast
// training settings for tests that need a real artifact set.
package traintest

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/cognicore/cvclass/pkg/cvclass/gbm"
	"github.com/cognicore/cvclass/pkg/cvclass/lexical"
	"github.com/cognicore/cvclass/pkg/cvclass/train"
)

// Vocabulary lists the category-specific terms of the corpus.
var Vocabulary = map[string][]string{
	"Software Engineer": {"python", "developer", "rest", "api", "backend", "microservices", "golang", "building", "code", "deploy"},
	"Data Scientist":    {"python", "statistics", "machine", "learning", "model", "pandas", "regression", "analysis", "dataset", "research"},
	"Nurse":             {"patient", "care", "clinical", "hospital", "medication", "ward", "triage", "registered", "health", "shift"},
	"Accountant":        {"ledger", "audit", "tax", "payroll", "reconciliation", "financial", "statement", "budget", "invoice", "compliance"},
	"Sales":             {"client", "revenue", "quota", "negotiation", "pipeline", "crm", "territory", "account", "prospect", "closing"},
}

var shared = []string{"experienced", "team", "years", "professional", "managed", "responsible", "skills", "work"}

// Labels returns the corpus categories in sorted order.
func Labels() []string {
	return []string{"Accountant", "Data Scientist", "Nurse", "Sales", "Software Engineer"}
}

// Resumes returns perCategory synthetic résumés for each category. The
// corpus depends only on perCategory and seed.
func Resumes(perCategory int, seed uint64) *train.Corpus {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	c := &train.Corpus{}
	line := 1
	for i := 0; i < perCategory; i++ {
		for _, label := range Labels() {
			line++
			words := Vocabulary[label]
			var b strings.Builder
			fmt.Fprintf(&b, "%d years. ", 1+rng.IntN(20))
			for j := 0; j < 12; j++ {
				b.WriteString(words[rng.IntN(len(words))])
				b.WriteByte(' ')
				if rng.IntN(3) == 0 {
					b.WriteString(shared[rng.IntN(len(shared))])
					b.WriteString(", ")
				}
			}
			c.Examples = append(c.Examples, train.Example{
				ID:    fmt.Sprintf("cv-%d", line),
				Line:  line,
				Text:  b.String(),
				Label: label,
			})
		}
	}
	return c
}

// Config returns pipeline settings small enough for unit tests.
func Config() train.Config {
	cfg := train.DefaultConfig()
	cfg.Lexical = lexical.Config{MaxFeatures: 200, NGramMax: 2, MinTokenLen: 2}
	cfg.ReducedDim = 8
	cfg.Selected = 60
	cfg.Workers = 2

	cfg.PreliminaryParams = gbm.PreliminaryParams()
	cfg.PreliminaryParams.NEstimators = 10
	cfg.PreliminaryParams.MaxDepth = 3

	cfg.Params = gbm.DefaultParams()
	cfg.Params.NEstimators = 20
	cfg.Params.MaxDepth = 2
	cfg.Params.LearningRate = 0.1
	return cfg
}
