package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cogmem/cogmem/internal/ids"
)

// skipDirs names directories the walk never descends into, regardless of
// .gitignore content — mirroring the teacher's scanner's built-in
// defaults for version-control and dependency directories.
var skipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
}

func newIngestCmd(dataDir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [path]",
		Short: "Ingest a directory into the cognitive-memory core",
		Long: `Walk a directory, analyze each recognized source file into
CodeUnits, embed them, and index them for search — the Ingestion
Pipeline's four steps applied to every file under path.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			return runIngest(cmd.Context(), cmd, path, *dataDir)
		},
	}
	return cmd
}

func runIngest(ctx context.Context, cmd *cobra.Command, path, dataDir string) error {
	root, err := openRoot(ctx, path, dataDir)
	if err != nil {
		return err
	}
	defer func() { _ = root.Close() }()

	workspace, err := workspaceIDForPath(path)
	if err != nil {
		return err
	}

	var filesSeen, unitsUpserted, unitsDegraded int
	walkErr := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(path, p)
		if err != nil {
			return err
		}
		vpath, err := ids.NewVirtualPath(filepath.ToSlash(rel))
		if err != nil {
			return nil
		}

		content, err := os.ReadFile(p)
		if err != nil {
			return err
		}

		report, err := root.Ingest.Ingest(ctx, workspace, vpath, content)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "ingest %s: %v\n", rel, err)
			return nil
		}
		if report.Skipped {
			return nil
		}
		filesSeen++
		unitsUpserted += report.UnitsUpserted
		unitsDegraded += report.UnitsDegraded
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("ingest: walk %s: %w", path, walkErr)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "ingested %d files, %d code units (%d degraded to keyword-only)\n", filesSeen, unitsUpserted, unitsDegraded)
	return nil
}
