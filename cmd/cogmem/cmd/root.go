// Package cmd provides the CLI commands for cogmem.
package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	cogmem "github.com/cogmem/cogmem"
	"github.com/cogmem/cogmem/internal/config"
	"github.com/cogmem/cogmem/internal/ids"
	"github.com/cogmem/cogmem/pkg/version"
)

// workspaceNamespace seeds the deterministic workspace-id derivation below.
// Any fixed UUID works; this one has no meaning beyond being a constant.
var workspaceNamespace = uuid.MustParse("6c9b158a-7e3b-4f2c-9b0a-9a2e6a6f9b10")

// NewRootCmd creates the root command for the cogmem CLI.
func NewRootCmd() *cobra.Command {
	var dataDir string

	root := &cobra.Command{
		Use:   "cogmem",
		Short: "Cognitive memory core for AI coding agents",
		Long: `cogmem is a VFS, episodic memory, and ranking core for AI
coding assistants: it ingests a codebase, retrieves ranked code and past
episodes for a task, and lets agents work in scoped, mergeable sessions.`,
		Version: version.Short(),
	}
	root.SetVersionTemplate("cogmem version {{.Version}}\n")
	root.PersistentFlags().StringVar(&dataDir, "data-dir", ".cogmem", "directory for the SQLite database and vector index snapshots")

	root.AddCommand(newIngestCmd(&dataDir))
	root.AddCommand(newSearchCmd(&dataDir))
	root.AddCommand(newEpisodeCmd(&dataDir))
	root.AddCommand(newSessionCmd(&dataDir))
	root.AddCommand(newVersionCmd())

	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// openRoot builds a cogmem.Root over the project at projectPath, using
// dataDir (resolved relative to projectPath) for persistence.
func openRoot(ctx context.Context, projectPath, dataDir string) (*cogmem.Root, error) {
	abs, err := filepath.Abs(projectPath)
	if err != nil {
		return nil, fmt.Errorf("resolve project path: %w", err)
	}
	resolvedDataDir := dataDir
	if resolvedDataDir != "" && !filepath.IsAbs(resolvedDataDir) {
		resolvedDataDir = filepath.Join(abs, resolvedDataDir)
	}
	return cogmem.New(ctx, config.Default(), resolvedDataDir)
}

// workspaceIDForPath derives a stable WorkspaceID from an absolute project
// path, so repeated CLI invocations against the same project resolve to
// the same workspace without needing any separate mapping file — the
// teacher addresses sessions by name/ProjectPath instead; cogmem's
// WorkspaceID must be a UUID, so this derives one deterministically rather
// than generating a fresh, unrecoverable random id on every run.
func workspaceIDForPath(path string) (ids.WorkspaceID, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return ids.WorkspaceID{}, err
	}
	return ids.ParseWorkspaceID(uuid.NewSHA1(workspaceNamespace, []byte(abs)).String())
}
