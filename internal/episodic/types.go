// Package episodic implements Episodic Memory (C7): a dual vector+keyword
// store of completed agent tasks, ported from original_source's
// cortex episodic memory with the vector half backed by store.HNSWIndex
// and the keyword half by patternindex.Index.
package episodic

import (
	"time"

	"github.com/cogmem/cogmem/internal/ids"
)

// Kind classifies the kind of task an Episode records.
type Kind string

const (
	KindFeature  Kind = "Feature"
	KindRefactor Kind = "Refactor"
	KindDebug    Kind = "Debug"
	KindOther    Kind = "Other"
)

// Outcome is the terminal result of a completed task.
type Outcome string

const (
	OutcomeSuccess Outcome = "Success"
	OutcomePartial Outcome = "Partial"
	OutcomeFailure Outcome = "Failure"
)

// EntityDelta groups the entity IDs an episode's task created, modified,
// or deleted, per spec.md §3's Episode entity.
type EntityDelta struct {
	Created  []string
	Modified []string
	Deleted  []string
}

// Episode is an immutable record of one completed agent task, per
// spec.md §3. Immutable once CompletedAt is set except for AccessCount
// and PatternValue, which consolidation and retrieval update in place.
type Episode struct {
	ID              ids.EpisodeID
	Type            Kind
	TaskDescription string
	AgentID         ids.AgentID
	SessionID       ids.SessionID // zero value means "no session"
	WorkspaceID     ids.WorkspaceID
	Entities        EntityDelta
	FilesTouched    []string
	QueriesMade     []string // supplements spec.md's Query Pattern extraction
	SolutionSummary string
	Outcome         Outcome
	LessonsLearned  []string
	DurationSeconds float64
	CreatedAt       time.Time
	CompletedAt     time.Time
	Embedding       []float32

	AccessCount  int
	PatternValue float32
}

// PatternKind names which of the three pattern shapes a Pattern was
// extracted as, per spec.md §4.6.
type PatternKind string

const (
	PatternFileAccess   PatternKind = "file_access"
	PatternQuery        PatternKind = "query"
	PatternSolutionPath PatternKind = "solution_path"
)

// Pattern is a derived summary over one or more episodes; never persisted
// as authoritative, per spec.md §3.
type Pattern struct {
	ID             ids.PatternID
	Kind           PatternKind
	Name           string
	Description    string
	TypicalActions []string
	Frequency      uint32
	SuccessRate    float32
	ContextMarkers []string
}
