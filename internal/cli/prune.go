package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/trebuchet-org/txq/internal/cli/render"
	"github.com/trebuchet-org/txq/internal/usecase"
)

// NewPruneCmd creates the prune command
func NewPruneCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove old finished transactions",
		Long: `Remove completed, failed and cancelled transactions that have not changed
within the retention window (store.retention, 24h by default). The same
cleanup runs automatically whenever the queue is loaded.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			result, err := app.PruneQueue.Run(cmd.Context(), usecase.PruneQueueParams{DryRun: dryRun})
			if err != nil {
				return fmt.Errorf("failed to prune queue: %w", err)
			}

			if app.Config.JSON {
				return render.WriteJSON(cmd.OutOrStdout(), map[string]any{
					"candidates": result.Candidates,
					"removed":    result.Removed,
					"retention":  result.Retention.String(),
					"dryRun":     dryRun,
				})
			}
			render.NewExecutionRenderer(cmd.OutOrStdout()).RenderPrune(result, dryRun)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Only show what would be pruned")

	return cmd
}
