// Package ids defines the typed identifiers used at every cogmem package
// boundary. The core never accepts a bare string where an identifier is
// meant; each entity gets its own UUID-backed type so a WorkspaceID and a
// SessionID cannot be swapped by mistake at a call site.
package ids

import (
	"fmt"

	"github.com/google/uuid"
)

// WorkspaceID identifies a Workspace.
type WorkspaceID uuid.UUID

// SessionID identifies a Session.
type SessionID uuid.UUID

// CodeUnitID identifies a CodeUnit.
type CodeUnitID uuid.UUID

// EpisodeID identifies an Episode.
type EpisodeID uuid.UUID

// PatternID identifies a derived Pattern.
type PatternID uuid.UUID

// AgentID identifies the agent that opened a session or produced an episode.
type AgentID uuid.UUID

// NewWorkspaceID generates a new random WorkspaceID.
func NewWorkspaceID() WorkspaceID { return WorkspaceID(uuid.New()) }

// NewSessionID generates a new random SessionID.
func NewSessionID() SessionID { return SessionID(uuid.New()) }

// NewCodeUnitID generates a new random CodeUnitID.
func NewCodeUnitID() CodeUnitID { return CodeUnitID(uuid.New()) }

// NewEpisodeID generates a new random EpisodeID.
func NewEpisodeID() EpisodeID { return EpisodeID(uuid.New()) }

// NewPatternID generates a new random PatternID.
func NewPatternID() PatternID { return PatternID(uuid.New()) }

// NewAgentID generates a new random AgentID.
func NewAgentID() AgentID { return AgentID(uuid.New()) }

func (id WorkspaceID) String() string { return uuid.UUID(id).String() }
func (id SessionID) String() string   { return uuid.UUID(id).String() }
func (id CodeUnitID) String() string  { return uuid.UUID(id).String() }
func (id EpisodeID) String() string   { return uuid.UUID(id).String() }
func (id PatternID) String() string   { return uuid.UUID(id).String() }
func (id AgentID) String() string     { return uuid.UUID(id).String() }

// IsZero reports whether id is the zero-value UUID (never assigned).
func (id WorkspaceID) IsZero() bool { return id == WorkspaceID{} }
func (id SessionID) IsZero() bool   { return id == SessionID{} }
func (id CodeUnitID) IsZero() bool  { return id == CodeUnitID{} }
func (id EpisodeID) IsZero() bool   { return id == EpisodeID{} }
func (id PatternID) IsZero() bool   { return id == PatternID{} }

// ParseWorkspaceID parses a canonical UUID string into a WorkspaceID.
func ParseWorkspaceID(s string) (WorkspaceID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return WorkspaceID{}, fmt.Errorf("parse workspace id: %w", err)
	}
	return WorkspaceID(u), nil
}

// ParseSessionID parses a canonical UUID string into a SessionID.
func ParseSessionID(s string) (SessionID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return SessionID{}, fmt.Errorf("parse session id: %w", err)
	}
	return SessionID(u), nil
}

// ParseCodeUnitID parses a canonical UUID string into a CodeUnitID.
func ParseCodeUnitID(s string) (CodeUnitID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return CodeUnitID{}, fmt.Errorf("parse code unit id: %w", err)
	}
	return CodeUnitID(u), nil
}

// ParseEpisodeID parses a canonical UUID string into an EpisodeID.
func ParseEpisodeID(s string) (EpisodeID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return EpisodeID{}, fmt.Errorf("parse episode id: %w", err)
	}
	return EpisodeID(u), nil
}

// ParseAgentID parses a canonical UUID string into an AgentID.
func ParseAgentID(s string) (AgentID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return AgentID{}, fmt.Errorf("parse agent id: %w", err)
	}
	return AgentID(u), nil
}

// ParsePatternID parses a canonical UUID string into a PatternID.
func ParsePatternID(s string) (PatternID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return PatternID{}, fmt.Errorf("parse pattern id: %w", err)
	}
	return PatternID(u), nil
}
