package cli

import (
	"github.com/spf13/cobra"
	"github.com/trebuchet-org/txq/internal/cli/render"
)

// NewShowCmd creates the show command
func NewShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show a transaction in detail",
		Long: `Show every field of one transaction. The id may be shortened to any
unique prefix; without it you are asked to pick one.

Examples:
  txq show 3f2a9c1e
  txq show`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			tx, err := pickTransaction(cmd, app, args, "Select transaction", nil)
			if err != nil {
				return err
			}

			if app.Config.JSON {
				return render.WriteJSON(cmd.OutOrStdout(), tx)
			}
			return render.NewQueueRenderer(cmd.OutOrStdout(), app.Config.Network).RenderTransaction(tx)
		},
	}
}
