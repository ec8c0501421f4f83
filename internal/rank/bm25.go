package rank

import "strings"

// BM25Scorer scores a document against query terms using the classic
// Okapi BM25 formula, with caller-supplied average document length and
// IDF table per spec.md §4.7 (the Ranker owns this formula explicitly so
// it can be tested against invariant #7's monotonicity property; compare
// internal/patternindex, which answers "which episodes contain these
// keywords" rather than "what is this document's BM25 score").
type BM25Scorer struct {
	K1           float32
	B            float32
	AvgDocLength float32
}

// NewBM25Scorer returns a scorer with the standard k1=1.2, b=0.75.
func NewBM25Scorer(avgDocLength float32) *BM25Scorer {
	return &BM25Scorer{K1: 1.2, B: 0.75, AvgDocLength: avgDocLength}
}

// Score returns the BM25 score of doc against queryTerms, using idf for
// each term's inverse document frequency (0 if absent from idf).
func (s *BM25Scorer) Score(doc string, queryTerms []string, idf map[string]float32) float32 {
	docLength := float32(len(strings.Fields(doc)))
	var score float32
	lower := strings.ToLower(doc)
	for _, term := range queryTerms {
		tf := float32(strings.Count(lower, strings.ToLower(term)))
		if tf == 0 {
			continue
		}
		termIDF := idf[term]
		numerator := tf * (s.K1 + 1)
		denominator := tf + s.K1*(1-s.B+s.B*(docLength/s.AvgDocLength))
		score += termIDF * (numerator / denominator)
	}
	return score
}
