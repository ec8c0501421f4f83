package episodic

import (
	"fmt"
	"time"

	"github.com/cogmem/cogmem/internal/ids"
	"github.com/cogmem/cogmem/internal/store"
)

// episodeToRecord and recordToEpisode convert between an Episode and the
// Storage Facade's Record shape, tolerating both the in-memory facade
// (preserves Go types) and a JSON-round-tripping backend (ints become
// float64, []string becomes []interface{}), mirroring ingest.RecordToCodeUnit.
func episodeToRecord(e Episode) store.Record {
	rec := store.Record{
		"id":               e.ID.String(),
		"type":             string(e.Type),
		"task_description": e.TaskDescription,
		"agent_id":         e.AgentID.String(),
		"workspace_id":     e.WorkspaceID.String(),
		"entities_created":  e.Entities.Created,
		"entities_modified": e.Entities.Modified,
		"entities_deleted":  e.Entities.Deleted,
		"files_touched":    e.FilesTouched,
		"queries_made":     e.QueriesMade,
		"solution_summary": e.SolutionSummary,
		"outcome":          string(e.Outcome),
		"lessons_learned":  e.LessonsLearned,
		"duration_seconds": e.DurationSeconds,
		"created_at":       e.CreatedAt.Format(time.RFC3339Nano),
		"access_count":     e.AccessCount,
		"pattern_value":    float64(e.PatternValue),
	}
	if !e.SessionID.IsZero() {
		rec["session_id"] = e.SessionID.String()
	}
	if !e.CompletedAt.IsZero() {
		rec["completed_at"] = e.CompletedAt.Format(time.RFC3339Nano)
	}
	if len(e.Embedding) > 0 {
		rec["embedding"] = float32SliceToAny(e.Embedding)
	}
	return rec
}

func recordToEpisode(rec store.Record) (Episode, error) {
	id, err := ids.ParseEpisodeID(asString(rec["id"]))
	if err != nil {
		return Episode{}, fmt.Errorf("decode episode record: %w", err)
	}
	agentID, err := ids.ParseAgentID(asString(rec["agent_id"]))
	if err != nil {
		return Episode{}, fmt.Errorf("decode episode record: %w", err)
	}
	workspaceID, err := ids.ParseWorkspaceID(asString(rec["workspace_id"]))
	if err != nil {
		return Episode{}, fmt.Errorf("decode episode record: %w", err)
	}

	ep := Episode{
		ID:              id,
		Type:            Kind(asString(rec["type"])),
		TaskDescription: asString(rec["task_description"]),
		AgentID:         agentID,
		WorkspaceID:     workspaceID,
		Entities: EntityDelta{
			Created:  asStringSlice(rec["entities_created"]),
			Modified: asStringSlice(rec["entities_modified"]),
			Deleted:  asStringSlice(rec["entities_deleted"]),
		},
		FilesTouched:    asStringSlice(rec["files_touched"]),
		QueriesMade:     asStringSlice(rec["queries_made"]),
		SolutionSummary: asString(rec["solution_summary"]),
		Outcome:         Outcome(asString(rec["outcome"])),
		LessonsLearned:  asStringSlice(rec["lessons_learned"]),
		DurationSeconds: asFloat64(rec["duration_seconds"]),
		CreatedAt:       asTime(rec["created_at"]),
		AccessCount:     asInt(rec["access_count"]),
		PatternValue:    float32(asFloat64(rec["pattern_value"])),
		Embedding:       asFloat32Slice(rec["embedding"]),
	}
	if sid := asString(rec["session_id"]); sid != "" {
		parsed, err := ids.ParseSessionID(sid)
		if err == nil {
			ep.SessionID = parsed
		}
	}
	if ca := asString(rec["completed_at"]); ca != "" {
		ep.CompletedAt = asTime(rec["completed_at"])
	}
	return ep, nil
}

func float32SliceToAny(v []float32) []any {
	out := make([]any, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func asFloat64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	default:
		return 0
	}
}

func asFloat32Slice(v any) []float32 {
	switch s := v.(type) {
	case []float32:
		return s
	case []any:
		out := make([]float32, 0, len(s))
		for _, e := range s {
			out = append(out, float32(asFloat64(e)))
		}
		return out
	default:
		return nil
	}
}

func asStringSlice(v any) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, e := range s {
			if str, ok := e.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}

func asTime(v any) time.Time {
	s, ok := v.(string)
	if !ok || s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
