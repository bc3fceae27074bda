package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/trebuchet-org/txq/internal/cli/render"
)

// NewEstimateCmd creates the estimate command
func NewEstimateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "estimate [id]",
		Short: "Estimate gas for a transaction",
		Long: `Estimate the gas a queued transaction would use, with a safety buffer
added. Nothing is submitted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			tx, err := pickTransaction(cmd, app, args, "Select transaction to estimate", isRunnable)
			if err != nil {
				return err
			}

			signer, err := app.SignerAddress()
			if err != nil {
				return err
			}

			gas := app.Executor.EstimateGas(cmd.Context(), tx, signer)
			if gas == nil {
				return fmt.Errorf("gas estimation failed for %s", tx.Title)
			}

			if app.Config.JSON {
				return render.WriteJSON(cmd.OutOrStdout(), map[string]any{"id": tx.ID, "gas": gas.String()})
			}
			render.NewExecutionRenderer(cmd.OutOrStdout()).RenderEstimate(tx, gas)
			return nil
		},
	}
}
