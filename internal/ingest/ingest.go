// Package ingest implements the Ingestion Pipeline (C6): the four-step
// process that turns a changed file's bytes into CodeUnit records, vector
// embeddings, and depends_on edges, per spec.md §4.5.
package ingest

import (
	"context"
	"path/filepath"

	"github.com/cogmem/cogmem/internal/codeanalysis"
	"github.com/cogmem/cogmem/internal/embedding"
	"github.com/cogmem/cogmem/internal/errs"
	"github.com/cogmem/cogmem/internal/gitignore"
	"github.com/cogmem/cogmem/internal/ids"
	"github.com/cogmem/cogmem/internal/store"
)

// Report summarizes the outcome of one Ingest call.
type Report struct {
	// Skipped is true when the file was excluded by ignore patterns or has
	// no registered analyzer for its extension; no other fields apply.
	Skipped bool
	// UnitsUpserted is the number of CodeUnit records created or updated.
	UnitsUpserted int
	// UnitsDegraded is the number of units whose embedding failed; they are
	// still stored and retrievable by keyword search only.
	UnitsDegraded int
	EdgesDeleted  int
	EdgesCreated  int
}

// Pipeline drives the four ingestion steps against a CodeAnalyzer, an
// Embedder, a Vector Index, and the Storage Facade.
type Pipeline struct {
	analyzer codeanalysis.CodeAnalyzer
	embedder embedding.Embedder
	index    *store.HNSWIndex
	facade   store.Facade
	ignore   *gitignore.Matcher
}

// NewPipeline builds a Pipeline. ignore may be nil to disable path
// filtering.
func NewPipeline(analyzer codeanalysis.CodeAnalyzer, embedder embedding.Embedder, index *store.HNSWIndex, facade store.Facade, ignore *gitignore.Matcher) *Pipeline {
	return &Pipeline{analyzer: analyzer, embedder: embedder, index: index, facade: facade, ignore: ignore}
}

// IngestFile runs Ingest and discards the Report, matching the
// watch.IngestFunc signature so a Pipeline can be wired directly into a
// watch.Trigger.
func (p *Pipeline) IngestFile(ctx context.Context, workspace ids.WorkspaceID, path ids.VirtualPath, content []byte) error {
	_, err := p.Ingest(ctx, workspace, path, content)
	return err
}

// Ingest runs the pipeline for one file: analyze, upsert units by
// (workspace_id, qualified_name), embed each unit into the vector index,
// and transactionally replace the file's depends_on edges.
//
// A parse failure skips the file entirely and returns the ParseError so the
// caller can log it; ingestion of other files is unaffected. An embedding
// failure degrades only the affected unit to keyword-only retrieval — the
// unit record and its depends_on edges are still written.
func (p *Pipeline) Ingest(ctx context.Context, workspace ids.WorkspaceID, path ids.VirtualPath, content []byte) (Report, error) {
	if p.ignore != nil && p.ignore.Match(path.String(), false) {
		return Report{Skipped: true}, nil
	}

	language, ok := p.analyzer.LanguageForExtension(filepath.Ext(path.String()))
	if !ok {
		return Report{Skipped: true}, nil
	}

	result, err := p.analyzer.Analyze(ctx, workspace, path, content, language)
	if err != nil {
		return Report{Skipped: true}, err
	}

	remap := make(map[ids.CodeUnitID]ids.CodeUnitID, len(result.Units))
	var report Report
	for i, unit := range result.Units {
		resolved, err := p.upsertUnit(ctx, workspace, unit)
		if err != nil {
			return report, err
		}
		remap[unit.ID] = resolved.ID
		result.Units[i] = resolved
		report.UnitsUpserted++

		if err := p.embedUnit(ctx, resolved); err != nil {
			report.UnitsDegraded++
		}
	}

	edges := make([]codeanalysis.DependencyEdge, len(result.Dependencies))
	for i, e := range result.Dependencies {
		edges[i] = codeanalysis.DependencyEdge{
			SourceID: remapOrSelf(remap, e.SourceID),
			TargetID: remapOrSelf(remap, e.TargetID),
			Type:     e.Type,
		}
	}

	deleted, created, err := p.replaceEdges(ctx, result.Units, edges)
	if err != nil {
		return report, err
	}
	report.EdgesDeleted = deleted
	report.EdgesCreated = created
	return report, nil
}

func remapOrSelf(remap map[ids.CodeUnitID]ids.CodeUnitID, id ids.CodeUnitID) ids.CodeUnitID {
	if resolved, ok := remap[id]; ok {
		return resolved
	}
	return id
}

// upsertUnit finds any existing record for (workspace_id, qualified_name)
// and reuses its id, so the unit's identity — and therefore its vector
// index entry and depends_on edges — stays stable across re-ingestion of
// the same file.
func (p *Pipeline) upsertUnit(ctx context.Context, workspace ids.WorkspaceID, unit codeanalysis.CodeUnit) (codeanalysis.CodeUnit, error) {
	existing, err := p.facade.Query(ctx, store.TableCodeUnit, store.Predicate{
		Equals: map[string]any{
			"workspace_id":   workspace.String(),
			"qualified_name": unit.QualifiedName,
		},
	}, 1)
	if err != nil {
		return codeanalysis.CodeUnit{}, err
	}

	if len(existing) > 0 {
		previous, err := RecordToCodeUnit(existing[0])
		if err != nil {
			return codeanalysis.CodeUnit{}, err
		}
		unit.ID = previous.ID
		if err := p.facade.Update(ctx, store.TableCodeUnit, unit.ID.String(), codeUnitToRecord(unit)); err != nil {
			return codeanalysis.CodeUnit{}, err
		}
		return unit, nil
	}

	if err := p.facade.Create(ctx, store.TableCodeUnit, unit.ID.String(), codeUnitToRecord(unit)); err != nil {
		return codeanalysis.CodeUnit{}, err
	}
	return unit, nil
}

// embedUnit computes a vector over the unit's signature and doc comment and
// upserts it into the vector index under the unit's id. A failure here is
// not propagated to the caller: per the failure policy, the unit remains
// stored and searchable by keyword, just not by vector similarity.
func (p *Pipeline) embedUnit(ctx context.Context, unit codeanalysis.CodeUnit) error {
	text := unit.Signature
	if unit.DocComment != "" {
		text += "\n" + unit.DocComment
	}
	vec, err := p.embedder.Embed(ctx, text)
	if err != nil {
		return errs.EmbedError("ingest unit "+unit.QualifiedName, err)
	}
	if err := p.index.Add(ctx, unit.ID.String(), vec); err != nil {
		return errs.EmbedError("index unit "+unit.QualifiedName, err)
	}
	return nil
}

// replaceEdges deletes every depends_on edge sourced from one of units and
// inserts the edges passed in, as a single BulkApply transaction: the file's
// dependency edges never observably pass through a partially-updated state.
func (p *Pipeline) replaceEdges(ctx context.Context, units []codeanalysis.CodeUnit, edges []codeanalysis.DependencyEdge) (deleted, created int, err error) {
	var ops []store.Operation

	seen := make(map[string]bool)
	for _, unit := range units {
		existing, err := p.facade.Query(ctx, store.TableDependsOn, store.Predicate{
			Equals: map[string]any{"source_id": unit.ID.String()},
		}, 0)
		if err != nil {
			return 0, 0, err
		}
		for _, rec := range existing {
			id := asString(rec["source_id"]) + "->" + asString(rec["target_id"]) + "#" + asString(rec["type"])
			if seen[id] {
				continue
			}
			seen[id] = true
			ops = append(ops, store.Operation{Kind: store.OpDelete, Table: store.TableDependsOn, ID: id})
			deleted++
		}
	}

	for _, e := range edges {
		ops = append(ops, store.Operation{
			Kind:   store.OpCreate,
			Table:  store.TableDependsOn,
			ID:     dependencyEdgeID(e),
			Record: dependencyEdgeToRecord(e),
		})
		created++
	}

	if len(ops) == 0 {
		return 0, 0, nil
	}
	if err := p.facade.BulkApply(ctx, ops); err != nil {
		return 0, 0, err
	}
	return deleted, created, nil
}
