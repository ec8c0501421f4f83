// Package embedding defines the Embedder contract (C3) the core treats as
// an opaque external collaborator, plus a concrete default implementation
// so the Ingestion Pipeline and Episodic Memory have something real to
// drive in tests without depending on a live model server.
package embedding

import (
	"context"
)

// Embedder produces unit-normalized, fixed-dimension vectors from text.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed returns a unit-normalized vector of Dimension() length for text.
	// A degraded or unavailable backend returns an *errs.Error with
	// errs.KindEmbedError; callers then fall back to keyword-only retrieval
	// for the affected record per spec.md §4.5/§7.
	Embed(ctx context.Context, text string) ([]float32, error)
	// Dimension returns the fixed vector length this Embedder produces.
	Dimension() int
}
