package rank

import "sort"

// PersonalizationConfig holds per-agent preference weights and recent
// interaction history used to boost familiar documents.
type PersonalizationConfig struct {
	Preferences        map[string]float32
	InteractionHistory []string
	HistoryBoost       float32
}

// NewPersonalizationConfig returns a config with the reference history
// boost of 1.20 and empty preferences/history.
func NewPersonalizationConfig() PersonalizationConfig {
	return PersonalizationConfig{
		Preferences:  make(map[string]float32),
		HistoryBoost: 1.20,
	}
}

// PersonalizedReranker boosts a document's semantic score by its
// preference/history match, per spec.md §4.7 stage 2.1.
type PersonalizedReranker struct {
	config PersonalizationConfig
}

// NewPersonalizedReranker builds a reranker over cfg.
func NewPersonalizedReranker(cfg PersonalizationConfig) *PersonalizedReranker {
	return &PersonalizedReranker{config: cfg}
}

// Rerank mutates each document's SemanticScore to
// semantic · (1 + preference_boost + history_boost) and returns docs
// sorted by the updated score, descending.
func (p *PersonalizedReranker) Rerank(docs []Document) []Document {
	out := append([]Document(nil), docs...)
	for i := range out {
		out[i].SemanticScore = out[i].SemanticScore * (1 + p.boost(out[i]))
	}
	sortBySemanticDesc(out)
	return out
}

func (p *PersonalizedReranker) boost(doc Document) float32 {
	var boost float32
	for feature, weight := range p.config.Preferences {
		if _, ok := doc.Metadata[feature]; ok {
			boost += weight
		}
	}
	for _, id := range p.config.InteractionHistory {
		if id == doc.ID {
			boost += p.config.HistoryBoost
			break
		}
	}
	return boost
}

// RecordInteraction appends docID to the interaction history, evicting
// the oldest entry once the history exceeds 100 entries.
func (cfg *PersonalizationConfig) RecordInteraction(docID string) {
	cfg.InteractionHistory = append(cfg.InteractionHistory, docID)
	if len(cfg.InteractionHistory) > 100 {
		cfg.InteractionHistory = cfg.InteractionHistory[1:]
	}
}

func sortBySemanticDesc(docs []Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].SemanticScore > docs[j].SemanticScore
	})
}
