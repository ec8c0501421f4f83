// Package cogmem wires the cognitive-memory core's components together
// into a single construction type. Root performs explicit constructor
// injection — no package-level mutable state — mirroring the teacher's
// cmd/amanmcp/cmd root-command wiring style without the cobra-specific
// parts, per spec.md §5's concurrency model.
package cogmem

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/cogmem/cogmem/internal/codeanalysis"
	"github.com/cogmem/cogmem/internal/config"
	"github.com/cogmem/cogmem/internal/embedding"
	"github.com/cogmem/cogmem/internal/episodic"
	"github.com/cogmem/cogmem/internal/gitignore"
	"github.com/cogmem/cogmem/internal/ingest"
	"github.com/cogmem/cogmem/internal/materialize"
	"github.com/cogmem/cogmem/internal/patternindex"
	"github.com/cogmem/cogmem/internal/rank"
	"github.com/cogmem/cogmem/internal/session"
	"github.com/cogmem/cogmem/internal/store"
	"github.com/cogmem/cogmem/internal/vfs"
)

// codeIndexFile and episodeIndexFile name the two HNSW snapshots Root
// keeps side by side under its data directory: code units and episodes
// embed into separate vector spaces and must not share one index.
const (
	codeIndexFile    = "code_units.hnsw"
	episodeIndexFile = "episodes.hnsw"
	sqliteFile       = "cogmem.db"
)

// Root holds every wired component of the cognitive-memory core. Build one
// with New and use its fields directly; Root itself has no behavior beyond
// construction and the Close/Load lifecycle methods below.
type Root struct {
	Config config.Config

	Facade       store.Facade
	CodeIndex    *store.HNSWIndex
	EpisodeIndex *store.HNSWIndex
	Embedder     embedding.Embedder

	VFS          *vfs.Store
	Materialize  *materialize.Engine
	Ingest       *ingest.Pipeline
	Episodic     *episodic.Memory
	PatternIndex *patternindex.Index
	Ranker       *rank.AdvancedRanker
	Sessions     *session.Controller

	dataDir string
}

// New builds a Root from cfg. dataDir is the directory the SQLite
// facade and HNSW snapshots live under; an empty dataDir keeps everything
// in memory, matching the teacher's offline/ephemeral test-double shape
// used throughout internal/store/*_test.go.
func New(ctx context.Context, cfg config.Config, dataDir string) (*Root, error) {
	facade, err := newFacade(dataDir)
	if err != nil {
		return nil, fmt.Errorf("cogmem: new facade: %w", err)
	}

	embedder := embedding.Embedder(embedding.NewStaticEmbedder(cfg.VectorIndex.Dimensions))
	embedder = embedding.NewCachedEmbedder(embedder, 4096)

	codeIndex := store.NewHNSWIndex(cfg.VectorIndex.Dimensions)
	episodeIndex := store.NewHNSWIndex(cfg.VectorIndex.Dimensions)

	keyword, err := patternindex.New()
	if err != nil {
		return nil, fmt.Errorf("cogmem: new pattern index: %w", err)
	}

	vfsStore := vfs.NewStore()

	analyzer := codeanalysis.NewTreeSitterAnalyzer()
	ignore := gitignore.New()
	pipeline := ingest.NewPipeline(analyzer, embedder, codeIndex, facade, ignore)

	episodeIndexPath := ""
	if dataDir != "" {
		episodeIndexPath = filepath.Join(dataDir, episodeIndexFile)
	}
	episodicMemory := episodic.New(facade, episodeIndex, embedder, keyword, cfg.Episodic.RetentionDays, episodeIndexPath)
	if err := episodicMemory.Load(ctx); err != nil {
		return nil, fmt.Errorf("cogmem: load episodic memory: %w", err)
	}

	baseRanker := rank.NewRanker(rank.StrategyWeighted).WithWeights(rank.Weights{
		Semantic:   float32(cfg.Ranking.SemanticWeight),
		Keyword:    float32(cfg.Ranking.KeywordWeight),
		Recency:    float32(cfg.Ranking.RecencyWeight),
		Popularity: float32(cfg.Ranking.PopularityWeight),
	})
	advancedRanker := rank.NewAdvancedRanker(baseRanker).WithMMR(float32(cfg.Ranking.MMRLambda))

	sessions := session.NewController(vfsStore)

	root := &Root{
		Config:       cfg,
		Facade:       facade,
		CodeIndex:    codeIndex,
		EpisodeIndex: episodeIndex,
		Embedder:     embedder,
		VFS:          vfsStore,
		Materialize:  materialize.NewEngine(vfsStore),
		Ingest:       pipeline,
		Episodic:     episodicMemory,
		PatternIndex: keyword,
		Ranker:       advancedRanker,
		Sessions:     sessions,
		dataDir:      dataDir,
	}

	if dataDir != "" {
		if err := codeIndex.Load(filepath.Join(dataDir, codeIndexFile)); err != nil {
			// No prior snapshot, or an incompatible one: code_units are
			// re-embedded from storage on next ingest, same degrade-by-unit
			// policy ingest.Pipeline already applies to embed failures.
		}
	}

	return root, nil
}

func newFacade(dataDir string) (store.Facade, error) {
	if dataDir == "" {
		return store.NewMemoryFacade(), nil
	}
	return store.NewSQLiteFacade(filepath.Join(dataDir, sqliteFile))
}

// Close persists the vector indexes and pattern/episode state to disk (a
// no-op for an in-memory Root) and releases any held file locks.
func (r *Root) Close() error {
	if r.dataDir == "" {
		return nil
	}
	if err := r.CodeIndex.Save(filepath.Join(r.dataDir, codeIndexFile)); err != nil {
		return fmt.Errorf("cogmem: save code index: %w", err)
	}
	if err := r.Episodic.SaveIndex(); err != nil {
		return fmt.Errorf("cogmem: save episode index: %w", err)
	}
	if err := r.Facade.Close(); err != nil {
		return fmt.Errorf("cogmem: close facade: %w", err)
	}
	return nil
}
