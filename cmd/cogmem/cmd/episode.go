package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cogmem/cogmem/internal/episodic"
	"github.com/cogmem/cogmem/internal/ids"
)

func newEpisodeCmd(dataDir *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "episode",
		Short: "Record and recall agent task episodes",
	}
	cmd.AddCommand(newEpisodeRecordCmd(dataDir))
	cmd.AddCommand(newEpisodeFindSimilarCmd(dataDir))
	return cmd
}

func newEpisodeRecordCmd(dataDir *string) *cobra.Command {
	var path, solution, outcome string

	cmd := &cobra.Command{
		Use:   "record TASK_DESCRIPTION",
		Short: "Record a completed task as an episode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEpisodeRecord(cmd.Context(), cmd, path, *dataDir, args[0], solution, outcome)
		},
	}
	cmd.Flags().StringVar(&path, "path", ".", "project directory")
	cmd.Flags().StringVar(&solution, "solution", "", "summary of how the task was solved")
	cmd.Flags().StringVar(&outcome, "outcome", "success", "success, partial, or failure")
	return cmd
}

func runEpisodeRecord(ctx context.Context, cmd *cobra.Command, path, dataDir, task, solution, outcomeFlag string) error {
	root, err := openRoot(ctx, path, dataDir)
	if err != nil {
		return err
	}
	defer func() { _ = root.Close() }()

	workspace, err := workspaceIDForPath(path)
	if err != nil {
		return err
	}

	outcome, err := parseOutcome(outcomeFlag)
	if err != nil {
		return err
	}

	ep := episodic.Episode{
		ID:              ids.NewEpisodeID(),
		Type:            episodic.KindOther,
		TaskDescription: task,
		AgentID:         ids.NewAgentID(),
		WorkspaceID:     workspace,
		SolutionSummary: solution,
		Outcome:         outcome,
	}
	if err := root.Episodic.Record(ctx, ep); err != nil {
		return fmt.Errorf("episode record: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "recorded episode %s\n", ep.ID)
	return nil
}

func newEpisodeFindSimilarCmd(dataDir *string) *cobra.Command {
	var path string
	var limit int

	cmd := &cobra.Command{
		Use:   "find-similar TASK_DESCRIPTION",
		Short: "Find episodes similar to a task description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEpisodeFindSimilar(cmd.Context(), cmd, path, *dataDir, args[0], limit)
		},
	}
	cmd.Flags().StringVar(&path, "path", ".", "project directory")
	cmd.Flags().IntVar(&limit, "limit", 5, "maximum episodes to print")
	return cmd
}

func runEpisodeFindSimilar(ctx context.Context, cmd *cobra.Command, path, dataDir, task string, limit int) error {
	root, err := openRoot(ctx, path, dataDir)
	if err != nil {
		return err
	}
	defer func() { _ = root.Close() }()

	results, err := root.Episodic.FindSimilar(ctx, task, limit)
	if err != nil {
		return fmt.Errorf("episode find-similar: %w", err)
	}
	for _, ep := range results {
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s\n", ep.ID, ep.Outcome, ep.TaskDescription)
	}
	return nil
}

func parseOutcome(s string) (episodic.Outcome, error) {
	switch s {
	case "success":
		return episodic.OutcomeSuccess, nil
	case "partial":
		return episodic.OutcomePartial, nil
	case "failure":
		return episodic.OutcomeFailure, nil
	default:
		return "", fmt.Errorf("unknown outcome %q: want success, partial, or failure", s)
	}
}
