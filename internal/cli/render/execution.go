package render

import (
	"fmt"
	"io"
	"math/big"

	"github.com/samber/lo"
	"github.com/trebuchet-org/txq/internal/domain/models"
	"github.com/trebuchet-org/txq/internal/usecase"
)

// ExecutionRenderer renders execution outcomes
type ExecutionRenderer struct {
	out io.Writer
}

// NewExecutionRenderer creates a new execution renderer
func NewExecutionRenderer(out io.Writer) *ExecutionRenderer {
	return &ExecutionRenderer{out: out}
}

// RenderResult renders the outcome of a single execution
func (r *ExecutionRenderer) RenderResult(tx *models.QueueTransaction, result models.ExecutionResult) {
	title := ""
	if tx != nil {
		title = tx.Title + " "
	}
	if !result.Success {
		fmt.Fprintln(r.out, FormatError(title+"failed: "+result.Error))
		return
	}
	fmt.Fprintln(r.out, FormatSuccess(title+"submitted"))
	if result.ApprovalTxHash != "" {
		fmt.Fprintf(r.out, "  Approval tx: %s\n", result.ApprovalTxHash)
	}
	fmt.Fprintf(r.out, "  Tx:          %s\n", result.TxHash)
}

// RenderBatch renders a summary of a sequential run. titles maps ids to
// display titles.
func (r *ExecutionRenderer) RenderBatch(items []models.BatchItemResult, titles map[string]string) {
	if len(items) == 0 {
		fmt.Fprintln(r.out, "Nothing to execute")
		return
	}

	succeeded := lo.CountBy(items, func(item models.BatchItemResult) bool { return item.Result.Success })

	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, labelStyle.Sprint("Execution summary"))
	for _, item := range items {
		title := titles[item.ID]
		if title == "" {
			title = ShortID(item.ID)
		}
		if item.Result.Success {
			fmt.Fprintf(r.out, "  %s %s %s\n", FormatStatus(models.StatusCompleted), title, hashStyle.Sprint(ShortHash(item.Result.TxHash)))
		} else {
			fmt.Fprintf(r.out, "  %s %s: %s\n", FormatStatus(models.StatusFailed), title, item.Result.Error)
		}
	}
	fmt.Fprintln(r.out)

	if succeeded == len(items) {
		fmt.Fprintln(r.out, FormatSuccess(fmt.Sprintf("%d/%d transactions submitted", succeeded, len(items))))
	} else {
		fmt.Fprintln(r.out, FormatWarning(fmt.Sprintf("%d/%d transactions submitted, %d failed", succeeded, len(items), len(items)-succeeded)))
	}
}

// RenderApproval renders the result of an allowance check
func (r *ExecutionRenderer) RenderApproval(tx *models.QueueTransaction, req *models.ApprovalRequest) {
	if req == nil {
		fmt.Fprintln(r.out, FormatSuccess(fmt.Sprintf("No approval needed for %s", tx.Title)))
		return
	}
	fmt.Fprintln(r.out, FormatWarning(fmt.Sprintf("Approval needed for %s", tx.Title)))
	fmt.Fprintf(r.out, "  Token:     %s\n", req.Token)
	fmt.Fprintf(r.out, "  Spender:   %s\n", req.Spender)
	fmt.Fprintf(r.out, "  Required:  %s\n", FormatAmount(req.RequiredAllowance, tx.TokenDecimals, tx.TokenSymbol))
	fmt.Fprintf(r.out, "  Current:   %s\n", FormatAmount(req.CurrentAllowance, tx.TokenDecimals, tx.TokenSymbol))
}

// RenderEstimate renders a buffered gas estimate
func (r *ExecutionRenderer) RenderEstimate(tx *models.QueueTransaction, gas *big.Int) {
	fmt.Fprintf(r.out, "%s: %s gas (includes %d%% buffer)\n", tx.Title, gas, usecase.GasBufferPercent-100)
}

// RenderPrune renders the result of a prune run
func (r *ExecutionRenderer) RenderPrune(result *usecase.PruneQueueResult, dryRun bool) {
	if len(result.Candidates) == 0 {
		fmt.Fprintln(r.out, FormatSuccess(fmt.Sprintf("Nothing older than %s to prune", result.Retention)))
		return
	}

	fmt.Fprintf(r.out, "Found %d transactions older than %s:\n\n", len(result.Candidates), result.Retention)
	for _, tx := range result.Candidates {
		fmt.Fprintf(r.out, "  - %s %s [%s]\n", ShortID(tx.ID), tx.Title, tx.Status)
	}
	fmt.Fprintln(r.out)

	if dryRun {
		fmt.Fprintln(r.out, "Dry run, nothing removed")
		return
	}
	fmt.Fprintln(r.out, FormatSuccess(fmt.Sprintf("Pruned %d transactions", result.Removed)))
}
