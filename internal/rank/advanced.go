package rank

// AdvancedRanker composes the base Ranker with the optional stage-2
// reranks of spec.md §4.7: personalization, then MMR, applied in that
// order when configured.
type AdvancedRanker struct {
	base         *Ranker
	personalizer *PersonalizedReranker
	mmr          *MMRReranker
}

// NewAdvancedRanker wraps a base Ranker with no reranking stages enabled.
func NewAdvancedRanker(base *Ranker) *AdvancedRanker {
	return &AdvancedRanker{base: base}
}

// WithPersonalization enables the personalization rerank stage.
func (a *AdvancedRanker) WithPersonalization(cfg PersonalizationConfig) *AdvancedRanker {
	a.personalizer = NewPersonalizedReranker(cfg)
	return a
}

// WithMMR enables the MMR diversity rerank stage with the given lambda.
func (a *AdvancedRanker) WithMMR(lambda float32) *AdvancedRanker {
	a.mmr = NewMMRReranker(lambda)
	return a
}

// Rank runs stage 1 (base scoring) then any enabled stage-2 reranks.
// queryEmbedding is only consulted by the MMR stage; it may be nil.
func (a *AdvancedRanker) Rank(docs []Document, query Query, queryEmbedding []float32) []Result {
	base := a.base.Rank(docs, query)

	byID := make(map[string]Document, len(docs))
	for _, d := range docs {
		byID[d.ID] = d
	}

	rerankDocs := make([]Document, len(base))
	for i, r := range base {
		d := byID[r.ID]
		d.SemanticScore = r.FinalScore
		rerankDocs[i] = d
	}

	if a.personalizer != nil {
		rerankDocs = a.personalizer.Rerank(rerankDocs)
	}
	if a.mmr != nil && queryEmbedding != nil {
		rerankDocs = a.mmr.Rerank(rerankDocs, queryEmbedding, len(rerankDocs))
	}

	out := make([]Result, len(rerankDocs))
	for i, d := range rerankDocs {
		orig := base[indexOfResult(base, d.ID)]
		out[i] = Result{
			ID:              d.ID,
			FinalScore:      d.SemanticScore,
			SemanticScore:   d.SemanticScore,
			KeywordScore:    orig.KeywordScore,
			RecencyScore:    orig.RecencyScore,
			PopularityScore: orig.PopularityScore,
		}
	}
	return out
}

func indexOfResult(results []Result, id string) int {
	for i, r := range results {
		if r.ID == id {
			return i
		}
	}
	return -1
}
