// Package patternindex is the keyword half of Episodic Memory (C7): a
// bleve-backed inverted index from episode text to episode ID, used by
// find_similar's keyword/Jaccard fallback path.
package patternindex

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/cogmem/cogmem/internal/ids"
)

// Match is one keyword search hit.
type Match struct {
	EpisodeID    ids.EpisodeID
	Score        float64
	MatchedTerms []string
}

// episodeDoc is the document shape indexed by bleve.
type episodeDoc struct {
	Content string `json:"content"`
}

// Index wraps a bleve index over episode task descriptions.
type Index struct {
	mu     sync.RWMutex
	index  bleve.Index
	closed bool
}

// New creates an in-memory pattern index; the in-memory index is
// sufficient for the per-process lifetime episodic.Memory runs it for.
func New() (*Index, error) {
	mapping, err := createIndexMapping()
	if err != nil {
		return nil, fmt.Errorf("patternindex: build mapping: %w", err)
	}
	idx, err := bleve.NewMemOnly(mapping)
	if err != nil {
		return nil, fmt.Errorf("patternindex: new index: %w", err)
	}
	return &Index{index: idx}, nil
}

// Add indexes an episode's text under its ID.
func (p *Index) Add(ctx context.Context, id ids.EpisodeID, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("patternindex: index is closed")
	}
	return p.index.Index(id.String(), episodeDoc{Content: text})
}

// Remove deletes an episode's entry from the index.
func (p *Index) Remove(ctx context.Context, id ids.EpisodeID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return fmt.Errorf("patternindex: index is closed")
	}
	return p.index.Delete(id.String())
}

// Search returns episodes whose indexed text matches query, sorted by
// bleve's match score (a tf-idf-like proxy for spec.md §4.6's "sorted by
// match count").
func (p *Index) Search(ctx context.Context, query string, limit int) ([]Match, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, fmt.Errorf("patternindex: index is closed")
	}
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	matchQuery := bleve.NewMatchQuery(query)
	matchQuery.SetField("content")

	req := bleve.NewSearchRequest(matchQuery)
	req.Size = limit
	req.IncludeLocations = true

	result, err := p.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("patternindex: search: %w", err)
	}

	matches := make([]Match, 0, len(result.Hits))
	for _, hit := range result.Hits {
		epID, err := ids.ParseEpisodeID(hit.ID)
		if err != nil {
			continue
		}
		matches = append(matches, Match{
			EpisodeID:    epID,
			Score:        hit.Score,
			MatchedTerms: extractMatchedTerms(hit),
		})
	}
	return matches, nil
}

// Close releases the underlying bleve index.
func (p *Index) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.index.Close()
}
