package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cogmem/cogmem/internal/ids"
	"github.com/cogmem/cogmem/internal/session"
	"github.com/cogmem/cogmem/internal/vfs"
)

// Session overlays are in-memory and scoped to one Controller, so they
// cannot outlive a single CLI invocation. "session run" demonstrates the
// full open/write/merge/close unit of work in one command rather than
// splitting it across separate, necessarily stateful invocations.
func newSessionCmd(dataDir *string) *cobra.Command {
	var path string
	var writes []string
	var strategyFlag string

	cmd := &cobra.Command{
		Use:   "session run",
		Short: "Open a session, apply writes, merge, and close",
		Long: `Open a scoped session overlay, write one or more files into
it, merge the overlay back into the workspace base with the given
strategy, then close the session — the full unit of work spec.md §4.8
names as open_session/write_file/merge/close.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSessionRun(cmd.Context(), cmd, path, *dataDir, writes, strategyFlag)
		},
	}
	cmd.Flags().StringVar(&path, "path", ".", "project directory")
	cmd.Flags().StringArrayVar(&writes, "write", nil, "path=content to write into the session, repeatable")
	cmd.Flags().StringVar(&strategyFlag, "strategy", "auto", "merge strategy: auto, prefer_session, prefer_base, or manual")
	return cmd
}

func runSessionRun(ctx context.Context, cmd *cobra.Command, path, dataDir string, writes []string, strategyFlag string) error {
	root, err := openRoot(ctx, path, dataDir)
	if err != nil {
		return err
	}
	defer func() { _ = root.Close() }()

	workspace, err := workspaceIDForPath(path)
	if err != nil {
		return err
	}

	strategy, err := parseMergeStrategy(strategyFlag)
	if err != nil {
		return err
	}

	sessionID, err := root.Sessions.OpenSession(ctx, ids.NewAgentID(), workspace, vfs.Scope{})
	if err != nil {
		return fmt.Errorf("session run: open: %w", err)
	}

	for _, w := range writes {
		p, content, ok := strings.Cut(w, "=")
		if !ok {
			return fmt.Errorf("session run: --write %q: want path=content", w)
		}
		vpath, err := ids.NewVirtualPath(p)
		if err != nil {
			return fmt.Errorf("session run: %w", err)
		}
		if err := root.Sessions.WriteFile(ctx, sessionID, vpath, []byte(content)); err != nil {
			return fmt.Errorf("session run: write %s: %w", p, err)
		}
	}

	report, err := root.Sessions.Merge(ctx, sessionID, strategy)
	if err != nil {
		return fmt.Errorf("session run: merge: %w", err)
	}
	if err := root.Sessions.Close(ctx, sessionID, ids.AgentID{}); err != nil {
		return fmt.Errorf("session run: close: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "files_written=%d conflicts_resolved=%d conflicts_unresolved=%d\n",
		report.FilesWritten, report.ConflictsResolved, len(report.ConflictsUnresolved))
	for _, p := range report.ConflictsUnresolved {
		fmt.Fprintf(cmd.OutOrStdout(), "  unresolved: %s\n", p)
	}
	return nil
}

func parseMergeStrategy(s string) (session.MergeStrategy, error) {
	switch session.MergeStrategy(s) {
	case session.MergeAuto, session.MergePreferSession, session.MergePreferBase, session.MergeManual:
		return session.MergeStrategy(s), nil
	default:
		return "", fmt.Errorf("unknown merge strategy %q", s)
	}
}
