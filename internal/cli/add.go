package cli

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/trebuchet-org/txq/internal/cli/render"
	"github.com/trebuchet-org/txq/internal/domain/models"
)

// NewAddCmd creates the add command
func NewAddCmd() *cobra.Command {
	var (
		file         string
		withApproval bool
	)

	cmd := &cobra.Command{
		Use:   "add --file <path>",
		Short: "Add transactions to the queue",
		Long: `Add one or more transactions to the end of the queue.

The file holds a single transaction or a list of transactions in YAML or
JSON. Integer fields accept numbers or decimal/0x strings; quote values
that do not fit in 64 bits.

  title: Deposit USDC
  chainId: 8453
  type: deposit
  contractAddress: "0x..."
  functionName: deposit
  abi: '[{"type":"function","name":"deposit",...}]'
  args: ["1000000", "0x..."]
  tokenAddress: "0x..."
  tokenAmount: "1000000"
  tokenDecimals: 6
  tokenSymbol: USDC

With --with-approval, deposit and mint transactions that declare token
metadata get an allowance check against the target contract.

Examples:
  txq add --file deposit.yaml
  txq add --file batch.json --with-approval
  cat tx.yaml | txq add --file -`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			drafts, err := readDrafts(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			if withApproval {
				drafts = lo.Map(drafts, func(d models.Draft, _ int) models.Draft {
					return models.WithTokenApproval(d)
				})
			}

			before := len(app.Queue.Snapshot().Transactions)
			firstID := app.Queue.Add(cmd.Context(), drafts...)
			added := app.Queue.Snapshot().Transactions[before:]

			if app.Config.JSON {
				return render.WriteJSON(cmd.OutOrStdout(), map[string]any{
					"id":           firstID,
					"transactions": added,
				})
			}

			for _, tx := range added {
				fmt.Fprintf(cmd.OutOrStdout(), "  + %s %s\n", render.ShortID(tx.ID), tx.Title)
			}
			printSuccess(cmd, app, "Queued %d transaction(s)", len(added))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML or JSON file with transactions, - for stdin")
	cmd.Flags().BoolVar(&withApproval, "with-approval", false, "Derive token approvals for deposits and mints")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
