package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMatchesSpecConstants(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 1.2, cfg.BM25.K1)
	assert.Equal(t, 0.75, cfg.BM25.B)
	assert.Equal(t, 0.7, cfg.Ranking.MMRLambda)
	assert.Equal(t, 1.20, cfg.Ranking.HistoryBoost)
	assert.Equal(t, 100, cfg.Ranking.HistoryCap)
	assert.Equal(t, 30, cfg.Episodic.RetentionDays)
	assert.Equal(t, 0.80, cfg.Episodic.PatternValueFloor)
	assert.Equal(t, 0.30, cfg.Episodic.SimilarityThreshold)
	assert.Equal(t, 1024, cfg.VectorIndex.LinearScanThreshold)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverlaysYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cogmem.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bm25:\n  k1: 1.5\nranking:\n  mmr_lambda: 0.5\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1.5, cfg.BM25.K1)
	assert.Equal(t, 0.5, cfg.Ranking.MMRLambda)
	assert.Equal(t, 0.75, cfg.BM25.B, "fields absent from the overlay keep their defaults")
}
