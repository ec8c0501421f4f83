package ingest

import (
	"fmt"

	"github.com/cogmem/cogmem/internal/codeanalysis"
	"github.com/cogmem/cogmem/internal/ids"
	"github.com/cogmem/cogmem/internal/store"
)

// codeUnitToRecord and RecordToCodeUnit convert between a CodeUnit and the
// Storage Facade's Record shape. The conversion must tolerate both backends:
// MemoryFacade preserves Go types exactly, while SQLiteFacade round-trips
// through JSON, turning ints into float64 and []string into []interface{}.
func codeUnitToRecord(u codeanalysis.CodeUnit) store.Record {
	return store.Record{
		"id":             u.ID.String(),
		"workspace_id":   u.WorkspaceID.String(),
		"file_path":      u.FilePath.String(),
		"name":           u.Name,
		"qualified_name": u.QualifiedName,
		"unit_type":      string(u.UnitType),
		"visibility":     string(u.Visibility),
		"start_line":     u.StartLine,
		"end_line":       u.EndLine,
		"signature":      u.Signature,
		"return_type":    u.ReturnType,
		"doc_comment":    u.DocComment,
		"parameters":     u.Parameters,
		"modifiers":      u.Modifiers,
		"cyclomatic":     u.Complexity.Cyclomatic,
	}
}

func RecordToCodeUnit(rec store.Record) (codeanalysis.CodeUnit, error) {
	id, err := ids.ParseCodeUnitID(asString(rec["id"]))
	if err != nil {
		return codeanalysis.CodeUnit{}, fmt.Errorf("decode code unit record: %w", err)
	}
	workspace, err := ids.ParseWorkspaceID(asString(rec["workspace_id"]))
	if err != nil {
		return codeanalysis.CodeUnit{}, fmt.Errorf("decode code unit record: %w", err)
	}
	path, err := ids.NewVirtualPath(asString(rec["file_path"]))
	if err != nil {
		return codeanalysis.CodeUnit{}, fmt.Errorf("decode code unit record: %w", err)
	}
	return codeanalysis.CodeUnit{
		ID:            id,
		WorkspaceID:   workspace,
		FilePath:      path,
		Name:          asString(rec["name"]),
		QualifiedName: asString(rec["qualified_name"]),
		UnitType:      codeanalysis.UnitType(asString(rec["unit_type"])),
		Visibility:    codeanalysis.Visibility(asString(rec["visibility"])),
		StartLine:     asInt(rec["start_line"]),
		EndLine:       asInt(rec["end_line"]),
		Signature:     asString(rec["signature"]),
		ReturnType:    asString(rec["return_type"]),
		DocComment:    asString(rec["doc_comment"]),
		Parameters:    asStringSlice(rec["parameters"]),
		Modifiers:     asStringSlice(rec["modifiers"]),
		Complexity:    codeanalysis.Complexity{Cyclomatic: uint32(asInt(rec["cyclomatic"]))},
	}, nil
}

func dependencyEdgeToRecord(e codeanalysis.DependencyEdge) store.Record {
	return store.Record{
		"source_id": e.SourceID.String(),
		"target_id": e.TargetID.String(),
		"type":      string(e.Type),
	}
}

func dependencyEdgeID(e codeanalysis.DependencyEdge) string {
	return e.SourceID.String() + "->" + e.TargetID.String() + "#" + string(e.Type)
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
	case uint32:
		return int(n)
	default:
		return 0
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
