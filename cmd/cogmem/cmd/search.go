package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cogmem/cogmem/internal/ids"
	"github.com/cogmem/cogmem/internal/ingest"
	"github.com/cogmem/cogmem/internal/rank"
	"github.com/cogmem/cogmem/internal/store"
)

func newSearchCmd(dataDir *string) *cobra.Command {
	var path string
	var limit int

	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Rank indexed code units against a query",
		Long: `Embed the query, retrieve nearby CodeUnits from the vector
index, then run the Advanced Ranker's weighted/MMR pipeline over them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, path, *dataDir, args[0], limit)
		},
	}
	cmd.Flags().StringVar(&path, "path", ".", "project directory previously ingested")
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum results to print")
	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, path, dataDir, query string, limit int) error {
	root, err := openRoot(ctx, path, dataDir)
	if err != nil {
		return err
	}
	defer func() { _ = root.Close() }()

	workspace, err := workspaceIDForPath(path)
	if err != nil {
		return err
	}

	queryEmbedding, err := root.Embedder.Embed(ctx, query)
	if err != nil {
		return fmt.Errorf("search: embed query: %w", err)
	}

	hits, err := root.CodeIndex.Search(ctx, queryEmbedding, limit*3)
	if err != nil {
		return fmt.Errorf("search: vector search: %w", err)
	}

	docs := make([]rank.Document, 0, len(hits))
	for _, hit := range hits {
		unitID, err := ids.ParseCodeUnitID(hit.ID)
		if err != nil {
			continue
		}
		rec, err := root.Facade.Get(ctx, store.TableCodeUnit, unitID.String())
		if err != nil {
			continue
		}
		unit, err := ingest.RecordToCodeUnit(rec)
		if err != nil || unit.WorkspaceID != workspace {
			continue
		}
		content := unit.Signature
		if unit.DocComment != "" {
			content += "\n" + unit.DocComment
		}
		docs = append(docs, rank.Document{
			ID:            unit.ID.String(),
			Content:       content,
			SemanticScore: hit.Score,
			Metadata:      map[string]string{"qualified_name": unit.QualifiedName, "file_path": unit.FilePath.String()},
		})
	}

	results := root.Ranker.Rank(docs, rank.Query{Keywords: strings.Fields(query)}, queryEmbedding)
	if len(results) > limit {
		results = results[:limit]
	}

	byID := make(map[string]rank.Document, len(docs))
	for _, d := range docs {
		byID[d.ID] = d
	}
	for _, r := range results {
		d := byID[r.ID]
		fmt.Fprintf(cmd.OutOrStdout(), "%.4f  %s  (%s)\n", r.FinalScore, d.Metadata["qualified_name"], d.Metadata["file_path"])
	}
	return nil
}
