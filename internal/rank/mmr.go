package rank

// MMRReranker implements Maximal Marginal Relevance: it trades relevance
// against diversity by iteratively picking the candidate that maximizes
// λ·relevance(d,q) − (1−λ)·max_sim(d, selected).
type MMRReranker struct {
	lambda float32
}

// NewMMRReranker returns a reranker with lambda clamped to [0,1].
func NewMMRReranker(lambda float32) *MMRReranker {
	if lambda < 0 {
		lambda = 0
	}
	if lambda > 1 {
		lambda = 1
	}
	return &MMRReranker{lambda: lambda}
}

// Rerank selects up to k documents from docs via MMR. queryEmbedding may
// be nil, in which case relevance falls back to each document's
// SemanticScore per spec.md §4.7.
func (m *MMRReranker) Rerank(docs []Document, queryEmbedding []float32, k int) []Document {
	if len(docs) == 0 {
		return nil
	}

	remaining := append([]Document(nil), docs...)
	seedIdx := 0
	for i, d := range remaining {
		if d.SemanticScore > remaining[seedIdx].SemanticScore {
			seedIdx = i
		}
	}
	selected := []Document{remaining[seedIdx]}
	remaining = append(remaining[:seedIdx], remaining[seedIdx+1:]...)

	for len(selected) < k && len(remaining) > 0 {
		bestIdx := 0
		bestMMR := float32(-1 << 30)
		for i, d := range remaining {
			relevance := d.SemanticScore
			if queryEmbedding != nil && d.Embedding != nil {
				relevance = cosineSimilarity(d.Embedding, queryEmbedding)
			}
			maxSim := m.maxSimilarityToSelected(d, selected)
			mmr := m.lambda*relevance - (1-m.lambda)*maxSim
			if mmr > bestMMR {
				bestMMR = mmr
				bestIdx = i
			}
		}
		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return selected
}

func (m *MMRReranker) maxSimilarityToSelected(doc Document, selected []Document) float32 {
	if len(selected) == 0 {
		return 0
	}
	var best float32 = -1 << 30
	for _, s := range selected {
		var sim float32
		if doc.Embedding != nil && s.Embedding != nil {
			sim = cosineSimilarity(doc.Embedding, s.Embedding)
		} else {
			sim = jaccardSimilarity(doc.Content, s.Content)
		}
		if sim > best {
			best = sim
		}
	}
	return best
}
