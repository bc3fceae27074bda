package cli

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/trebuchet-org/txq/internal/cli/render"
	"github.com/trebuchet-org/txq/internal/domain/models"
)

// NewExecCmd creates the exec command
func NewExecCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:     "exec [id...]",
		Aliases: []string{"execute", "run"},
		Short:   "Execute queued transactions",
		Long: `Execute transactions from the configured signer account.

A single id executes that transaction. Several ids run one after another in
the given order, with a short pause between submissions. --all runs every
pending or failed transaction in queue order. Without ids you pick the
transactions to run.

Every call is simulated before it is sent. Token approvals declared on a
transaction are granted first when the current allowance is too low.

Examples:
  txq exec 3f2a9c1e --network base
  txq exec 3f2a 9b1c 77de
  txq exec --all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			signer, err := app.SignerAddress()
			if err != nil {
				return err
			}

			ids, err := resolveIDs(app, args)
			if err != nil {
				return err
			}

			if len(ids) == 0 && !all {
				runnable := lo.Filter(app.Queue.Snapshot().Transactions, func(tx *models.QueueTransaction, _ int) bool {
					return isRunnable(tx)
				})
				if len(runnable) == 0 {
					if !app.Config.JSON {
						fmt.Fprintln(cmd.OutOrStdout(), "Nothing to execute")
					}
					return nil
				}
				selected, err := app.Selector.SelectTransactions(cmd.Context(), runnable, "Select transactions to execute")
				if err != nil {
					return err
				}
				ids = lo.Map(selected, func(tx *models.QueueTransaction, _ int) string { return tx.ID })
				if len(ids) == 0 {
					return nil
				}
			}

			renderer := render.NewExecutionRenderer(cmd.OutOrStdout())

			if len(ids) == 1 && !all {
				result, err := app.Queue.ExecuteOne(cmd.Context(), ids[0], signer)
				if err != nil {
					return err
				}
				tx, _ := app.Queue.Get(ids[0])
				if app.Config.JSON {
					return render.WriteJSON(cmd.OutOrStdout(), models.BatchItemResult{ID: ids[0], Result: result})
				}
				renderer.RenderResult(tx, result)
				if !result.Success {
					return fmt.Errorf("transaction failed")
				}
				return nil
			}

			var results []models.BatchItemResult
			if all {
				results, err = app.Queue.ExecuteAll(cmd.Context(), signer)
			} else {
				results, err = app.Queue.ExecuteBatch(cmd.Context(), ids, signer)
			}
			if err != nil {
				return err
			}

			if app.Config.JSON {
				return render.WriteJSON(cmd.OutOrStdout(), results)
			}

			titles := make(map[string]string, len(results))
			for _, tx := range app.Queue.Snapshot().Transactions {
				titles[tx.ID] = tx.Title
			}
			renderer.RenderBatch(results, titles)

			failed := lo.CountBy(results, func(item models.BatchItemResult) bool { return !item.Result.Success })
			if failed > 0 {
				return fmt.Errorf("%d of %d transactions failed", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "Execute every pending or failed transaction")

	return cmd
}
