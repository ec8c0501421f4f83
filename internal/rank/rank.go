// Package rank implements the Advanced Ranker (C9): a two-stage pipeline
// that scores candidate documents with a weighted/BM25 base score, then
// optionally reranks the result for personalization and MMR diversity.
package rank

import (
	"math"
	"sort"
	"strings"
)

// Document is a candidate result fed into the Ranker.
type Document struct {
	ID            string
	Content       string
	SemanticScore float32
	Metadata      map[string]string
	Embedding     []float32
}

// Query carries the keyword terms a base score is computed against.
type Query struct {
	Keywords []string
}

// Strategy selects which components the base score combines.
type Strategy string

const (
	StrategySemantic     Strategy = "semantic"
	StrategyBM25         Strategy = "bm25"
	StrategyHybrid       Strategy = "hybrid"
	StrategyWeighted     Strategy = "weighted"
	StrategyMMR          Strategy = "mmr"
	StrategyPersonalized Strategy = "personalized"
)

// Weights configures the relative contribution of each score component
// for the Hybrid/Weighted/MMR/Personalized strategies. Defaults mirror
// the ported source's ScoringWeights::default().
type Weights struct {
	Semantic   float32
	Keyword    float32
	Recency    float32
	Popularity float32
}

// DefaultWeights returns the reference weighting (0.7/0.2/0.05/0.05).
func DefaultWeights() Weights {
	return Weights{Semantic: 0.7, Keyword: 0.2, Recency: 0.05, Popularity: 0.05}
}

// Result is one scored-and-ranked document.
type Result struct {
	ID              string
	FinalScore      float32
	SemanticScore   float32
	KeywordScore    float32
	RecencyScore    float32
	PopularityScore float32
}

// Ranker computes stage-1 base scores per spec.md §4.7.
type Ranker struct {
	strategy Strategy
	weights  Weights
	bm25     *BM25Scorer
	idf      map[string]float32
}

// NewRanker builds a Ranker for strategy with DefaultWeights.
func NewRanker(strategy Strategy) *Ranker {
	return &Ranker{strategy: strategy, weights: DefaultWeights()}
}

// WithWeights overrides the default component weights.
func (r *Ranker) WithWeights(w Weights) *Ranker {
	r.weights = w
	return r
}

// WithBM25 configures the keyword-only BM25 scoring used by StrategyBM25.
// idf maps each query term to its precomputed inverse document frequency;
// the caller owns IDF computation, per spec.md §4.7.
func (r *Ranker) WithBM25(avgDocLength float32, idf map[string]float32) *Ranker {
	r.bm25 = NewBM25Scorer(avgDocLength)
	r.idf = idf
	return r
}

// Rank scores every document and returns them sorted by FinalScore
// descending, ties broken by ID ascending for determinism (invariant #9).
func (r *Ranker) Rank(docs []Document, query Query) []Result {
	results := make([]Result, len(docs))
	for i, doc := range docs {
		results[i] = r.score(doc, query)
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].FinalScore != results[j].FinalScore {
			return results[i].FinalScore > results[j].FinalScore
		}
		return results[i].ID < results[j].ID
	})
	return results
}

func (r *Ranker) score(doc Document, query Query) Result {
	keyword := keywordScore(doc.Content, query.Keywords)
	recency := recencyScore(doc.Metadata)
	popularity := popularityScore(doc.Metadata)

	var final float32
	switch r.strategy {
	case StrategySemantic:
		final = doc.SemanticScore
	case StrategyBM25:
		if r.bm25 != nil {
			final = r.bm25.Score(doc.Content, query.Keywords, r.idf)
		}
	default: // Hybrid, Weighted, MMR, Personalized all combine the full weight vector
		final = doc.SemanticScore*r.weights.Semantic +
			keyword*r.weights.Keyword +
			recency*r.weights.Recency +
			popularity*r.weights.Popularity
	}

	return Result{
		ID:              doc.ID,
		FinalScore:      final,
		SemanticScore:   doc.SemanticScore,
		KeywordScore:    keyword,
		RecencyScore:    recency,
		PopularityScore: popularity,
	}
}

// keywordScore sums, over query keywords, (1+ln(count))/(1+ln(|content|))
// for keywords present in content, normalizes by the keyword count, and
// clamps to [0,1]. Case-insensitive, per spec.md §4.7.
func keywordScore(content string, keywords []string) float32 {
	if len(keywords) == 0 {
		return 0
	}
	lower := strings.ToLower(content)
	contentLen := float64(len([]rune(content)))
	if contentLen == 0 {
		return 0
	}
	var score float64
	for _, kw := range keywords {
		count := float64(strings.Count(lower, strings.ToLower(kw)))
		if count == 0 {
			continue
		}
		score += (1 + math.Log(count)) / (1 + math.Log(contentLen))
	}
	score /= float64(len(keywords))
	return float32(clamp(score, 0, 1))
}

// recencyScore implements spec.md §4.7's recency component: full score
// inside a 7-day window, exponential decay floored at 0.1 afterward, or
// 0.5 if the document carries no timestamp at all.
func recencyScore(metadata map[string]string) float32 {
	ts, ok := metadata["updated_at"]
	if !ok {
		ts, ok = metadata["created_at"]
	}
	if !ok {
		return 0.5
	}
	age, ok := parseAge(ts)
	if !ok {
		return 0.5
	}
	days := age.Hours() / 24
	if days < 7 {
		return 1.0
	}
	decayed := math.Exp(-(days - 7) / 30)
	return float32(math.Max(decayed, 0.1))
}

// popularityScore implements spec.md §4.7's popularity component.
func popularityScore(metadata map[string]string) float32 {
	var score float64
	if views, ok := parseFloat(metadata["views"]); ok {
		score += math.Log(1+views) / 10
	}
	if refs, ok := parseFloat(metadata["references"]); ok {
		score += math.Log(1+refs) / 5
	}
	return float32(clamp(score, 0, 1))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
