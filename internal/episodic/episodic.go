package episodic

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cogmem/cogmem/internal/embedding"
	"github.com/cogmem/cogmem/internal/ids"
	"github.com/cogmem/cogmem/internal/patternindex"
	"github.com/cogmem/cogmem/internal/store"
)

// jaccardThreshold is the similarity floor below which the keyword
// fallback in find_similar does not consider two task descriptions
// related, per spec.md §4.6.
const jaccardThreshold = 0.30

// vectorScoreThreshold is the similarity floor a vector-search hit must
// clear to be trusted, per spec.md §4.6.
const vectorScoreThreshold = 0.30

// Memory implements the Episodic Memory (C7) contract of spec.md §4.6: a
// dual vector+keyword store of completed agent tasks. The vector half is
// a store.HNSWIndex over task_description embeddings; the keyword half is
// a patternindex.Index, used only when the embedder is unavailable or
// vector search falls short of limit results.
type Memory struct {
	facade   store.Facade
	vector   *store.HNSWIndex
	embedder embedding.Embedder
	keyword  *patternindex.Index

	retentionDays int
	indexPath     string

	episodes map[ids.EpisodeID]Episode
}

// New constructs a Memory. embedder may be nil, in which case find_similar
// always falls back to the keyword/Jaccard path.
func New(facade store.Facade, vector *store.HNSWIndex, embedder embedding.Embedder, keyword *patternindex.Index, retentionDays int, indexPath string) *Memory {
	return &Memory{
		facade:        facade,
		vector:        vector,
		embedder:      embedder,
		keyword:       keyword,
		retentionDays: retentionDays,
		indexPath:     indexPath,
		episodes:      make(map[ids.EpisodeID]Episode),
	}
}

// Load populates Memory from storage: it tries the on-disk HNSW snapshot
// first for fast startup, rebuilding embeddings from scratch only if no
// snapshot exists or it fails to load, per spec.md §4.6's load() step.
func (m *Memory) Load(ctx context.Context) error {
	loadedFromDisk := false
	if m.indexPath != "" && m.vector != nil {
		if err := m.vector.Load(m.indexPath); err == nil {
			loadedFromDisk = true
		}
	}

	recs, err := m.facade.Query(ctx, store.TableEpisode, store.Predicate{}, 0)
	if err != nil {
		return fmt.Errorf("episodic: load episodes: %w", err)
	}

	for _, rec := range recs {
		ep, err := recordToEpisode(rec)
		if err != nil {
			continue
		}
		m.episodes[ep.ID] = ep
		if m.keyword != nil {
			_ = m.keyword.Add(ctx, ep.ID, ep.TaskDescription)
		}
		if !loadedFromDisk && m.vector != nil && m.embedder != nil {
			if emb, err := m.embedder.Embed(ctx, ep.TaskDescription); err == nil {
				_ = m.vector.Add(ctx, ep.ID.String(), emb)
			}
		}
	}
	return nil
}

// Record persists a new episode: it is written to storage, indexed by
// keyword, and embedded into the vector index, per spec.md §4.6's
// record() operation.
func (m *Memory) Record(ctx context.Context, e Episode) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if err := m.facade.Create(ctx, store.TableEpisode, e.ID.String(), episodeToRecord(e)); err != nil {
		return fmt.Errorf("episodic: record episode: %w", err)
	}

	if m.keyword != nil {
		_ = m.keyword.Add(ctx, e.ID, e.TaskDescription)
	}
	if m.vector != nil && m.embedder != nil {
		if emb, err := m.embedder.Embed(ctx, e.TaskDescription); err == nil {
			e.Embedding = emb
			_ = m.vector.Add(ctx, e.ID.String(), emb)
		}
	}

	m.episodes[e.ID] = e
	return nil
}

// FindSimilar implements spec.md §4.6's find_similar: vector search for
// 3*limit candidates filtered to successful episodes scoring above
// vectorScoreThreshold; if still short of limit, keyword-matched episodes
// are appended, then Jaccard-similar ones, until limit is reached or
// sources are exhausted.
func (m *Memory) FindSimilar(ctx context.Context, taskDescription string, limit int) ([]Episode, error) {
	if limit <= 0 {
		return nil, nil
	}

	var results []Episode
	if m.vector != nil && m.embedder != nil {
		if hits, err := m.findSimilarByVector(ctx, taskDescription, limit); err == nil {
			results = hits
		}
	}
	seen := make(map[ids.EpisodeID]bool, len(results))
	for _, ep := range results {
		seen[ep.ID] = true
	}
	for _, ep := range m.findSimilarByKeyword(ctx, taskDescription, limit+len(results)) {
		if len(results) >= limit {
			break
		}
		if !seen[ep.ID] {
			results = append(results, ep)
		}
	}
	return results, nil
}

func (m *Memory) findSimilarByVector(ctx context.Context, taskDescription string, limit int) ([]Episode, error) {
	queryEmb, err := m.embedder.Embed(ctx, taskDescription)
	if err != nil {
		return nil, err
	}
	hits, err := m.vector.Search(ctx, queryEmb, limit*3)
	if err != nil {
		return nil, err
	}

	var results []Episode
	for _, hit := range hits {
		epID, err := ids.ParseEpisodeID(hit.ID)
		if err != nil {
			continue
		}
		ep, ok := m.episodes[epID]
		if !ok || ep.Outcome != OutcomeSuccess || hit.Score <= vectorScoreThreshold {
			continue
		}
		results = append(results, ep)
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

func (m *Memory) findSimilarByKeyword(ctx context.Context, taskDescription string, limit int) []Episode {
	var results []Episode
	seen := make(map[ids.EpisodeID]bool)

	if m.keyword != nil {
		matches, err := m.keyword.Search(ctx, taskDescription, limit*3)
		if err == nil {
			for _, match := range matches {
				ep, ok := m.episodes[match.EpisodeID]
				if !ok || ep.Outcome != OutcomeSuccess {
					continue
				}
				results = append(results, ep)
				seen[ep.ID] = true
				if len(results) >= limit {
					return results
				}
			}
		}
	}

	if len(results) < limit {
		ordered := m.orderedEpisodeIDs()
		for _, id := range ordered {
			ep := m.episodes[id]
			if seen[ep.ID] || ep.Outcome != OutcomeSuccess {
				continue
			}
			if jaccardSimilarity(ep.TaskDescription, taskDescription) > jaccardThreshold {
				results = append(results, ep)
				seen[ep.ID] = true
				if len(results) >= limit {
					break
				}
			}
		}
	}
	return results
}

// orderedEpisodeIDs returns episode IDs sorted by CreatedAt so fallback
// scans are deterministic across calls.
func (m *Memory) orderedEpisodeIDs() []ids.EpisodeID {
	out := make([]ids.EpisodeID, 0, len(m.episodes))
	for id := range m.episodes {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		return m.episodes[out[i]].CreatedAt.Before(m.episodes[out[j]].CreatedAt)
	})
	return out
}

// IncrementAccess bumps an episode's access counter, used by consolidate
// to decide whether to retain an otherwise-expired episode.
func (m *Memory) IncrementAccess(ctx context.Context, id ids.EpisodeID) error {
	ep, ok := m.episodes[id]
	if !ok {
		return fmt.Errorf("episodic: increment access: episode %s not found", id)
	}
	ep.AccessCount++
	m.episodes[id] = ep
	return m.facade.Update(ctx, store.TableEpisode, id.String(), episodeToRecord(ep))
}

// Consolidate drops episodes older than retentionDays unless they have
// been accessed more than 10 times or succeeded with a pattern_value
// above 0.80, then rebuilds the keyword index from the survivors, per
// spec.md §4.6's consolidate() and invariant #8.
func (m *Memory) Consolidate(ctx context.Context) error {
	now := time.Now().UTC()
	retention := time.Duration(m.retentionDays) * 24 * time.Hour

	var toRemove []ids.EpisodeID
	for id, ep := range m.episodes {
		age := now.Sub(ep.CreatedAt)
		if age < retention {
			continue
		}
		if ep.AccessCount > 10 {
			continue
		}
		if ep.Outcome == OutcomeSuccess && ep.PatternValue > 0.80 {
			continue
		}
		toRemove = append(toRemove, id)
	}

	for _, id := range toRemove {
		if err := m.facade.Delete(ctx, store.TableEpisode, id.String()); err != nil {
			return fmt.Errorf("episodic: consolidate: delete episode %s: %w", id, err)
		}
		if m.vector != nil {
			_ = m.vector.Remove(ctx, id.String())
		}
		if m.keyword != nil {
			_ = m.keyword.Remove(ctx, id)
		}
		delete(m.episodes, id)
	}
	return nil
}

// SaveIndex persists the vector index to disk at the configured path.
func (m *Memory) SaveIndex() error {
	if m.vector == nil || m.indexPath == "" {
		return nil
	}
	return m.vector.Save(m.indexPath)
}

// Episodes returns all episodes currently held in memory.
func (m *Memory) Episodes() []Episode {
	out := make([]Episode, 0, len(m.episodes))
	for _, ep := range m.episodes {
		out = append(out, ep)
	}
	return out
}

// GetEpisode returns the episode with the given ID, if present.
func (m *Memory) GetEpisode(id ids.EpisodeID) (Episode, bool) {
	ep, ok := m.episodes[id]
	return ep, ok
}
