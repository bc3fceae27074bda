package cli

import (
	"github.com/spf13/cobra"
	"github.com/trebuchet-org/txq/internal/cli/render"
	"github.com/trebuchet-org/txq/internal/domain/models"
	"github.com/trebuchet-org/txq/internal/usecase"
)

// NewListCmd creates the list command
func NewListCmd() *cobra.Command {
	var (
		status string
		txType string
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List queued transactions",
		Long: `List transactions in queue order.

Examples:
  txq list
  txq list --status failed
  txq list --type deposit --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			snap := app.Queue.Snapshot()
			txs := snap.Transactions
			if status != "" {
				s, err := models.ParseStatus(status)
				if err != nil {
					return err
				}
				txs = usecase.ByStatus(txs, s)
			}
			if txType != "" {
				txs = usecase.ByType(txs, models.TransactionType(txType))
			}

			if app.Config.JSON {
				return render.WriteJSON(cmd.OutOrStdout(), map[string]any{
					"transactions":        txs,
					"activeTransactionId": snap.ActiveTransactionID,
					"pending":             usecase.PendingCount(snap.Transactions),
					"counts":              usecase.StatusCounts(snap.Transactions),
				})
			}

			return render.NewQueueRenderer(cmd.OutOrStdout(), app.Config.Network).RenderList(txs, snap.ActiveTransactionID)
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Only show transactions with this status")
	cmd.Flags().StringVar(&txType, "type", "", "Only show transactions of this type")

	return cmd
}
