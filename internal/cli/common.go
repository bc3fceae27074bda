package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/trebuchet-org/txq/internal/app"
	"github.com/trebuchet-org/txq/internal/cli/render"
	"github.com/trebuchet-org/txq/internal/domain"
	"github.com/trebuchet-org/txq/internal/domain/models"
)

// ErrAmbiguousID is returned when an id prefix matches several transactions
var ErrAmbiguousID = errors.New("ambiguous transaction id")

// findTransaction resolves a full id or a unique id prefix
func findTransaction(a *app.App, ref string) (*models.QueueTransaction, error) {
	txs := a.Queue.Snapshot().Transactions

	var matches []*models.QueueTransaction
	for _, tx := range txs {
		if tx.ID == ref {
			return tx, nil
		}
		if strings.HasPrefix(tx.ID, ref) {
			matches = append(matches, tx)
		}
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("transaction %s: %w", ref, domain.ErrNotFound)
	case 1:
		return matches[0], nil
	}
	return nil, fmt.Errorf("%w: %s matches %d transactions", ErrAmbiguousID, ref, len(matches))
}

// resolveIDs resolves every reference to a full id
func resolveIDs(a *app.App, refs []string) ([]string, error) {
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		tx, err := findTransaction(a, ref)
		if err != nil {
			return nil, err
		}
		ids = append(ids, tx.ID)
	}
	return ids, nil
}

// pickTransaction resolves args[0] when given, and otherwise prompts among
// the transactions accepted by filter
func pickTransaction(cmd *cobra.Command, a *app.App, args []string, prompt string, filter func(*models.QueueTransaction) bool) (*models.QueueTransaction, error) {
	if len(args) > 0 {
		return findTransaction(a, args[0])
	}

	var candidates []*models.QueueTransaction
	for _, tx := range a.Queue.Snapshot().Transactions {
		if filter == nil || filter(tx) {
			candidates = append(candidates, tx)
		}
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no matching transactions in the queue")
	}
	return a.Selector.SelectTransaction(cmd.Context(), candidates, prompt)
}

func isRunnable(tx *models.QueueTransaction) bool {
	return tx.Status != models.StatusExecuting && models.ValidateTransition(tx.Status, models.StatusExecuting) == nil
}

// printSuccess prints a success line unless JSON output was requested
func printSuccess(cmd *cobra.Command, a *app.App, format string, args ...any) {
	if a.Config.JSON {
		return
	}
	fmt.Fprintln(cmd.OutOrStdout(), render.FormatSuccess(fmt.Sprintf(format, args...)))
}
