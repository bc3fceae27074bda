package cli

import (
	"github.com/spf13/cobra"
	"github.com/trebuchet-org/txq/internal/cli/render"
	"github.com/trebuchet-org/txq/internal/domain/models"
)

// NewApprovalCmd creates the approval command
func NewApprovalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "approval [id]",
		Short: "Check whether a transaction needs a token approval",
		Long: `Compare the signer's current allowance with the approval a transaction
declares. Nothing is submitted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			tx, err := pickTransaction(cmd, app, args, "Select transaction", func(tx *models.QueueTransaction) bool {
				return tx.Approval != nil
			})
			if err != nil {
				return err
			}

			signer, err := app.SignerAddress()
			if err != nil {
				return err
			}

			req := app.Executor.CheckApprovalNeeded(cmd.Context(), tx, signer)
			if app.Config.JSON {
				return render.WriteJSON(cmd.OutOrStdout(), map[string]any{
					"id":       tx.ID,
					"needed":   req != nil,
					"approval": req,
				})
			}
			render.NewExecutionRenderer(cmd.OutOrStdout()).RenderApproval(tx, req)
			return nil
		},
	}
}
