package cli

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/trebuchet-org/txq/internal/domain/models"
)

// NewRemoveCmd creates the remove command
func NewRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id...>",
		Aliases: []string{"rm"},
		Short:   "Remove transactions from the queue",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			ids, err := resolveIDs(app, args)
			if err != nil {
				return err
			}

			app.Queue.RemoveMany(cmd.Context(), ids)
			printSuccess(cmd, app, "Removed %d transaction(s)", len(ids))
			return nil
		},
	}
}

// NewCancelCmd creates the cancel command
func NewCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel [id]",
		Short: "Cancel a transaction that has not started",
		Long: `Drop a pending or failed transaction from the queue. Transactions that
are executing or already submitted cannot be cancelled.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			tx, err := pickTransaction(cmd, app, args, "Select transaction to cancel", func(tx *models.QueueTransaction) bool {
				return !tx.Status.IsTerminal() && tx.Status != models.StatusExecuting
			})
			if err != nil {
				return err
			}

			if err := app.Queue.Cancel(cmd.Context(), tx.ID); err != nil {
				return err
			}
			printSuccess(cmd, app, "Cancelled %s", tx.Title)
			return nil
		},
	}
}

// NewRetryCmd creates the retry command
func NewRetryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retry [id]",
		Short: "Reset a failed transaction to pending",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			tx, err := pickTransaction(cmd, app, args, "Select transaction to retry", func(tx *models.QueueTransaction) bool {
				return tx.Status == models.StatusFailed
			})
			if err != nil {
				return err
			}
			if tx.Status != models.StatusFailed {
				return fmt.Errorf("transaction %s is %s, only failed transactions can be retried", tx.Title, tx.Status)
			}

			app.Queue.Retry(cmd.Context(), tx.ID)
			printSuccess(cmd, app, "%s is pending again", tx.Title)
			return nil
		},
	}
}

// NewClearCmd creates the clear command
func NewClearCmd() *cobra.Command {
	var (
		all bool
		yes bool
	)

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear completed transactions",
		Long: `Remove every completed transaction from the queue. --all empties the
queue entirely.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			if !all {
				before := len(app.Queue.Snapshot().Transactions)
				app.Queue.ClearCompleted(cmd.Context())
				printSuccess(cmd, app, "Cleared %d completed transaction(s)", before-len(app.Queue.Snapshot().Transactions))
				return nil
			}

			count := len(app.Queue.Snapshot().Transactions)
			if count == 0 {
				printSuccess(cmd, app, "Queue is already empty")
				return nil
			}
			if !yes {
				if app.Config.NonInteractive {
					return fmt.Errorf("refusing to clear %d transactions without --yes in non-interactive mode", count)
				}
				ok, err := app.Selector.Confirm(fmt.Sprintf("Remove all %d transactions", count), false)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Clear cancelled")
					return nil
				}
			}

			app.Queue.ClearAll(cmd.Context())
			printSuccess(cmd, app, "Cleared %d transaction(s)", count)
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Remove every transaction, not just completed ones")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation")

	return cmd
}

// NewReorderCmd creates the reorder command
func NewReorderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <id...>",
		Short: "Reorder the queue",
		Long: `Put the named transactions first, in the given order. Transactions not
named keep their relative order after them.

Examples:
  txq reorder 9b1c 3f2a`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			ids, err := resolveIDs(app, args)
			if err != nil {
				return err
			}
			app.Queue.Reorder(cmd.Context(), lo.Uniq(ids))
			printSuccess(cmd, app, "Queue reordered")
			return nil
		},
	}
}

// NewMoveCmd creates the move command
func NewMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "move <id> <up|down>",
		Short:     "Move a transaction one position up or down",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			tx, err := findTransaction(app, args[0])
			if err != nil {
				return err
			}

			switch args[1] {
			case "up":
				app.Queue.MoveUp(cmd.Context(), tx.ID)
			case "down":
				app.Queue.MoveDown(cmd.Context(), tx.ID)
			default:
				return fmt.Errorf("direction must be up or down, got %q", args[1])
			}
			printSuccess(cmd, app, "Moved %s %s", tx.Title, args[1])
			return nil
		},
	}
}
