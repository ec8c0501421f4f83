package episodic

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cogmem/cogmem/internal/embedding"
	"github.com/cogmem/cogmem/internal/ids"
	"github.com/cogmem/cogmem/internal/patternindex"
	"github.com/cogmem/cogmem/internal/store"
)

func newTestMemory(t *testing.T) *Memory {
	t.Helper()
	embedder := embedding.NewStaticEmbedder(32)
	vector := store.NewHNSWIndex(embedder.Dimension())
	keyword, err := patternindex.New()
	require.NoError(t, err)
	return New(store.NewMemoryFacade(), vector, embedder, keyword, 30, "")
}

// newKeywordOnlyMemory omits the vector index and embedder, forcing
// FindSimilar onto the keyword/Jaccard fallback path deterministically.
func newKeywordOnlyMemory(t *testing.T) *Memory {
	t.Helper()
	keyword, err := patternindex.New()
	require.NoError(t, err)
	return New(store.NewMemoryFacade(), nil, nil, keyword, 30, "")
}

func newEpisode(task string, outcome Outcome) Episode {
	return Episode{
		ID:              ids.NewEpisodeID(),
		Type:            KindFeature,
		TaskDescription: task,
		AgentID:         ids.NewAgentID(),
		WorkspaceID:     ids.NewWorkspaceID(),
		FilesTouched:    []string{"main.go"},
		SolutionSummary: "applied the fix",
		Outcome:         outcome,
		CreatedAt:       time.Now().UTC(),
	}
}

// S4 (Episode retrieval): record E1="add authentication middleware",
// E2="fix authentication middleware bug" and E3="rename local variables
// for clarity" (all successes); querying "authentication middleware" with
// limit 2 must rank E1 and E2 above E3.
func TestFindSimilarRanksRelatedEpisodesAboveUnrelated(t *testing.T) {
	mem := newKeywordOnlyMemory(t)
	ctx := context.Background()

	e1 := newEpisode("add authentication middleware", OutcomeSuccess)
	e2 := newEpisode("fix authentication middleware bug", OutcomeSuccess)
	e3 := newEpisode("rename local variables for clarity", OutcomeSuccess)

	require.NoError(t, mem.Record(ctx, e1))
	require.NoError(t, mem.Record(ctx, e2))
	require.NoError(t, mem.Record(ctx, e3))

	results, err := mem.FindSimilar(ctx, "authentication middleware", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	found := map[ids.EpisodeID]bool{}
	for _, r := range results {
		found[r.ID] = true
	}
	assert.True(t, found[e1.ID], "expected e1 (shares both keywords) in results")
	assert.True(t, found[e2.ID], "expected e2 (shares both keywords) in results")
	assert.False(t, found[e3.ID], "e3 shares no keywords and must rank below e1/e2")
}

func TestFindSimilarExcludesFailedEpisodes(t *testing.T) {
	mem := newKeywordOnlyMemory(t)
	ctx := context.Background()

	failed := newEpisode("add auth middleware", OutcomeFailure)
	require.NoError(t, mem.Record(ctx, failed))

	results, err := mem.FindSimilar(ctx, "add auth middleware", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestIncrementAccessPersistsCounter(t *testing.T) {
	mem := newTestMemory(t)
	ctx := context.Background()

	ep := newEpisode("debug flaky test", OutcomeSuccess)
	require.NoError(t, mem.Record(ctx, ep))

	require.NoError(t, mem.IncrementAccess(ctx, ep.ID))
	require.NoError(t, mem.IncrementAccess(ctx, ep.ID))

	got, ok := mem.GetEpisode(ep.ID)
	require.True(t, ok)
	assert.Equal(t, 2, got.AccessCount)
}

// Invariant #8: no surviving episode has created_at < now-retention unless
// access_count>10 or (outcome=Success and pattern_value>0.80).
func TestConsolidateDropsOldLowValueEpisodes(t *testing.T) {
	mem := newTestMemory(t)
	ctx := context.Background()
	mem.retentionDays = 7

	stale := newEpisode("old forgotten task", OutcomeSuccess)
	stale.CreatedAt = time.Now().UTC().Add(-30 * 24 * time.Hour)
	require.NoError(t, mem.Record(ctx, stale))

	frequentlyAccessed := newEpisode("heavily reused task", OutcomeSuccess)
	frequentlyAccessed.CreatedAt = time.Now().UTC().Add(-30 * 24 * time.Hour)
	require.NoError(t, mem.Record(ctx, frequentlyAccessed))
	for i := 0; i < 11; i++ {
		require.NoError(t, mem.IncrementAccess(ctx, frequentlyAccessed.ID))
	}

	highValue := newEpisode("high value pattern", OutcomeSuccess)
	highValue.CreatedAt = time.Now().UTC().Add(-30 * 24 * time.Hour)
	highValue.PatternValue = 0.9
	require.NoError(t, mem.facade.Create(ctx, store.TableEpisode, highValue.ID.String(), episodeToRecord(highValue)))
	mem.episodes[highValue.ID] = highValue

	require.NoError(t, mem.Consolidate(ctx))

	_, staleSurvived := mem.GetEpisode(stale.ID)
	assert.False(t, staleSurvived, "stale, rarely-accessed, low-value episode must be dropped")

	_, frequentSurvived := mem.GetEpisode(frequentlyAccessed.ID)
	assert.True(t, frequentSurvived, "episode with access_count>10 must survive")

	_, highValueSurvived := mem.GetEpisode(highValue.ID)
	assert.True(t, highValueSurvived, "successful high pattern_value episode must survive")
}

func TestExtractPatternsConsolidatesSharedContextMarkers(t *testing.T) {
	e1 := newEpisode("refactor payment module", OutcomeSuccess)
	e1.FilesTouched = []string{"payment.go"}
	e2 := newEpisode("refactor payment module", OutcomeSuccess)
	e2.FilesTouched = []string{"payment_test.go"}

	patterns := ExtractPatterns([]Episode{e1, e2})
	require.NotEmpty(t, patterns)

	for _, p := range patterns {
		if p.Kind == PatternFileAccess {
			assert.Equal(t, uint32(2), p.Frequency)
			assert.ElementsMatch(t, []string{"payment.go", "payment_test.go"}, p.TypicalActions)
			assert.Equal(t, float32(1.0), p.SuccessRate)
		}
	}
}
