package store

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/coder/hnsw"

	"github.com/cogmem/cogmem/internal/errs"
)

// VectorResult is one ranked hit from a vector search, ordered by
// decreasing Score.
type VectorResult struct {
	ID    string
	Score float32
}

// HNSWIndex implements the Vector Index contract of spec.md §4.2 using
// github.com/coder/hnsw, the teacher's own CGO-free replacement for a
// native ANN library. ID mapping and lazy deletion reproduce
// internal/store/hnsw.go's design: coder/hnsw has a known issue deleting
// the last remaining node from a graph, so removed entries are orphaned
// (dropped from the id<->key maps but left in the graph) rather than
// deleted outright.
type HNSWIndex struct {
	mu    sync.RWMutex
	graph *hnsw.Graph[uint64]

	dimension int

	idToKey map[string]uint64
	keyToID map[uint64]string
	vectors map[uint64][]float32
	nextKey uint64

	closed bool
}

// NewHNSWIndex creates an HNSW-backed vector index over vectors of the
// given dimension, using cosine similarity per spec.md §4.2.
func NewHNSWIndex(dimension int) *HNSWIndex {
	return &HNSWIndex{
		graph:     newConfiguredGraph(),
		dimension: dimension,
		idToKey:   make(map[string]uint64),
		keyToID:   make(map[uint64]string),
		vectors:   make(map[uint64][]float32),
	}
}

func newConfiguredGraph() *hnsw.Graph[uint64] {
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = 16
	graph.EfSearch = 20
	graph.Ml = 0.25
	return graph
}

// Dimension returns the configured vector dimension.
func (idx *HNSWIndex) Dimension() int { return idx.dimension }

// Add inserts id/vec, or re-adds id under a fresh key (lazy replacing any
// prior entry) if id already exists.
func (idx *HNSWIndex) Add(_ context.Context, id string, vec []float32) error {
	if len(vec) != idx.dimension {
		return errs.DimensionMismatch(idx.dimension, len(vec))
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.closed {
		return fmt.Errorf("vector index is closed")
	}

	if oldKey, exists := idx.idToKey[id]; exists {
		delete(idx.keyToID, oldKey)
		delete(idx.idToKey, id)
		delete(idx.vectors, oldKey)
	}

	normalized := make([]float32, len(vec))
	copy(normalized, vec)
	normalizeInPlace(normalized)

	key := idx.nextKey
	idx.nextKey++

	idx.graph.Add(hnsw.MakeNode(key, normalized))
	idx.idToKey[id] = key
	idx.keyToID[key] = id
	idx.vectors[key] = normalized
	return nil
}

// Search returns the k nearest neighbors to query, ordered by decreasing
// cosine-similarity score.
func (idx *HNSWIndex) Search(_ context.Context, query []float32, k int) ([]VectorResult, error) {
	if len(query) != idx.dimension {
		return nil, errs.DimensionMismatch(idx.dimension, len(query))
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.closed {
		return nil, fmt.Errorf("vector index is closed")
	}
	if idx.graph.Len() == 0 {
		return nil, nil
	}

	normalized := make([]float32, len(query))
	copy(normalized, query)
	normalizeInPlace(normalized)

	// Over-fetch because some returned nodes may be orphaned (lazily
	// deleted) and must be filtered out before truncating to k.
	nodes := idx.graph.Search(normalized, k*3+8)

	results := make([]VectorResult, 0, k)
	for _, node := range nodes {
		id, ok := idx.keyToID[node.Key]
		if !ok {
			continue
		}
		distance := idx.graph.Distance(normalized, node.Value)
		results = append(results, VectorResult{ID: id, Score: 1.0 - distance})
		if len(results) == k {
			break
		}
	}
	return results, nil
}

// Len returns the number of live (non-orphaned) entries.
func (idx *HNSWIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.idToKey)
}

// Remove drops id from the index. Per spec.md §4.2 this is the optional
// operation; it is implemented here via the same lazy-orphan technique Add
// uses for replacement, since coder/hnsw cannot safely delete the final
// node in a graph.
func (idx *HNSWIndex) Remove(_ context.Context, id string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	key, exists := idx.idToKey[id]
	if !exists {
		return nil
	}
	delete(idx.keyToID, key)
	delete(idx.idToKey, id)
	delete(idx.vectors, key)
	return nil
}

// Close releases the index's graph. Further operations fail.
func (idx *HNSWIndex) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.closed = true
	idx.graph = nil
	return nil
}

func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}
