package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/trebuchet-org/txq/internal/domain/config"
	"github.com/trebuchet-org/txq/internal/domain/models"
	"github.com/trebuchet-org/txq/internal/usecase"
)

// QueueRenderer renders the queue and individual transactions
type QueueRenderer struct {
	out     io.Writer
	network *config.Network
}

// NewQueueRenderer creates a new queue renderer. network is used for
// explorer links and may be nil.
func NewQueueRenderer(out io.Writer, network *config.Network) *QueueRenderer {
	return &QueueRenderer{out: out, network: network}
}

var _ Renderer[usecase.Snapshot] = (*QueueRenderer)(nil)

// Render renders the whole queue
func (r *QueueRenderer) Render(snap usecase.Snapshot) error {
	return r.RenderList(snap.Transactions, snap.ActiveTransactionID)
}

// RenderList renders transactions as a table in queue order
func (r *QueueRenderer) RenderList(txs []*models.QueueTransaction, activeID string) error {
	if len(txs) == 0 {
		fmt.Fprintln(r.out, "Queue is empty")
		return nil
	}

	pending := usecase.PendingCount(txs)
	header := labelStyle.Sprintf("Transaction queue (%d)", len(txs))
	if pending > 0 {
		header += " " + badgeStyle.Sprintf(" %d pending ", pending)
	}
	fmt.Fprintln(r.out, header)
	fmt.Fprintln(r.out)

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.Style().Options.DrawBorder = false
	t.Style().Options.SeparateColumns = false
	t.Style().Options.SeparateRows = false
	t.Style().Box = table.BoxStyle{
		PaddingRight:     "   ",
		MiddleHorizontal: "─",
	}
	t.AppendHeader(table.Row{"#", "ID", "TITLE", "TYPE", "AMOUNT", "STATUS", "TX"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 3, WidthMax: 40},
	})

	for i, tx := range txs {
		marker := ""
		if tx.ID == activeID {
			marker = "▸ "
		}
		title := titleStyle.Sprint(tx.Title)
		if tx.Subtitle != "" {
			title += " " + subtitleStyle.Sprint(tx.Subtitle)
		}
		t.AppendRow(table.Row{
			marker + fmt.Sprintf("%d", i+1),
			idStyle.Sprint(ShortID(tx.ID)),
			title,
			FormatType(tx.Type),
			FormatTokenFlow(tx),
			FormatStatus(tx.Status),
			hashStyle.Sprint(ShortHash(tx.TxHash)),
		})
	}

	fmt.Fprintln(r.out, t.Render())

	failed := usecase.ByStatus(txs, models.StatusFailed)
	if len(failed) > 0 {
		fmt.Fprintln(r.out)
		for _, tx := range failed {
			fmt.Fprintf(r.out, "%s %s: %s\n", errorStyle.Sprint("✗"), ShortID(tx.ID), tx.Error)
		}
	}
	return nil
}

// RenderTransaction renders every field of one transaction
func (r *QueueRenderer) RenderTransaction(tx *models.QueueTransaction) error {
	fmt.Fprintf(r.out, "%s %s\n", titleStyle.Sprint(tx.Title), FormatStatus(tx.Status))
	if tx.Subtitle != "" {
		fmt.Fprintln(r.out, subtitleStyle.Sprint(tx.Subtitle))
	}
	fmt.Fprintln(r.out)

	row := func(label, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(r.out, "  %-14s %s\n", label+":", value)
	}

	row("ID", tx.ID)
	row("Type", FormatType(tx.Type))
	row("Chain", fmt.Sprintf("%d", tx.ChainID))
	row("Contract", tx.ContractAddress)
	row("Function", tx.FunctionName)
	row("Arguments", formatArgs(tx.Args))
	if tx.Value != nil && tx.Value.Sign() > 0 {
		row("Value", FormatAmount(tx.Value, 18, "ETH"))
	}
	if tx.GasLimit != nil {
		row("Gas limit", tx.GasLimit.String())
	}
	if flow := FormatTokenFlow(tx); flow != "-" {
		row("Tokens", flow)
	}
	if tx.Approval != nil {
		row("Approval", fmt.Sprintf("%s to %s on %s", tx.Approval.Amount, tx.Approval.Spender, tx.Approval.Token))
	}
	row("Approval tx", r.txLink(tx.ApprovalTxHash))
	row("Tx", r.txLink(tx.TxHash))
	if tx.Error != "" {
		row("Error", errorStyle.Sprint(tx.Error))
	}
	row("Created", timestampStyle.Sprint(tx.CreatedAt.Local().Format("2006-01-02 15:04:05")))
	row("Updated", timestampStyle.Sprint(tx.UpdatedAt.Local().Format("2006-01-02 15:04:05")))
	return nil
}

func (r *QueueRenderer) txLink(hash string) string {
	if hash == "" {
		return ""
	}
	if r.network != nil && r.network.ExplorerURL != "" {
		return fmt.Sprintf("%s (%s/tx/%s)", hash, strings.TrimRight(r.network.ExplorerURL, "/"), hash)
	}
	return hash
}

func formatArgs(args []any) string {
	if len(args) == 0 {
		return ""
	}
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = fmt.Sprintf("%v", arg)
	}
	return strings.Join(parts, ", ")
}
