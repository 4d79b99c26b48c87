package lexical

import "sort"

// Counter maintains document frequencies for vocabulary ranking
type Counter struct {
	N          int64                       // total number of documents
	DF         map[string]int64            // document frequency per term
	ByCategory map[string]map[string]int64 // term -> label -> document frequency
}

// NewCounter creates a new document frequency counter
func NewCounter() *Counter {
	return &Counter{
		DF:         make(map[string]int64),
		ByCategory: make(map[string]map[string]int64),
	}
}

// AddDocument updates counts for one document. Repeated terms count once.
func (c *Counter) AddDocument(terms []string) {
	c.add(terms, "")
}

// AddLabeled is AddDocument that also records the document's category.
func (c *Counter) AddLabeled(terms []string, label string) {
	c.add(terms, label)
}

func (c *Counter) add(terms []string, label string) {
	c.N++
	seen := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		c.DF[t]++
		if label == "" {
			continue
		}
		byCat := c.ByCategory[t]
		if byCat == nil {
			byCat = make(map[string]int64)
			c.ByCategory[t] = byCat
		}
		byCat[label]++
	}
}

// GetTermCount returns the document frequency for a term
func (c *Counter) GetTermCount(t string) int64 {
	return c.DF[t]
}

// TotalDocs returns the total number of documents processed
func (c *Counter) TotalDocs() int64 {
	return c.N
}

// UniqueTerms returns the number of unique terms
func (c *Counter) UniqueTerms() int {
	return len(c.DF)
}

// Ranked returns up to limit terms ordered by document frequency
// descending, ties broken lexicographically. limit <= 0 returns all terms.
func (c *Counter) Ranked(limit int) []string {
	terms := make([]string, 0, len(c.DF))
	for t := range c.DF {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		di, dj := c.DF[terms[i]], c.DF[terms[j]]
		if di != dj {
			return di > dj
		}
		return terms[i] < terms[j]
	})
	if limit > 0 && len(terms) > limit {
		terms = terms[:limit]
	}
	return terms
}
