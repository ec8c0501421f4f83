package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// StaticEmbedder is a deterministic, model-free Embedder: it hashes
// whitespace-tokenized words into buckets of a fixed-dimension vector
// (a simple feature-hashing / "hashing trick" scheme), then L2-normalizes
// the result. It produces no semantic understanding, but it is stable,
// fast, and dependency-free, which makes it the right default for
// exercising the Ingestion Pipeline and Episodic Memory in tests and in
// deployments without a configured model backend.
type StaticEmbedder struct {
	dimension int
}

// NewStaticEmbedder creates a StaticEmbedder producing vectors of the
// given dimension.
func NewStaticEmbedder(dimension int) *StaticEmbedder {
	return &StaticEmbedder{dimension: dimension}
}

// Dimension returns the configured vector length.
func (e *StaticEmbedder) Dimension() int { return e.dimension }

// Embed hashes text's tokens into e.dimension buckets and returns the
// L2-normalized result. It never fails: an empty or whitespace-only text
// yields the zero vector.
func (e *StaticEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dimension)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		bucket := int(h.Sum32()) % e.dimension
		if bucket < 0 {
			bucket += e.dimension
		}
		// A second, independently-seeded hash decides the sign, spreading
		// co-occurring tokens across both positive and negative weight the
		// way a real hashing-trick embedding does, instead of every token
		// only ever adding mass.
		h2 := fnv.New32a()
		_, _ = h2.Write([]byte(tok + "#sign"))
		if h2.Sum32()%2 == 0 {
			vec[bucket]++
		} else {
			vec[bucket]--
		}
	}

	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares == 0 {
		return vec, nil
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range vec {
		vec[i] *= inv
	}
	return vec, nil
}

var _ Embedder = (*StaticEmbedder)(nil)
