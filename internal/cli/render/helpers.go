package render

import (
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/trebuchet-org/txq/internal/domain/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	idStyle        = color.New(color.FgBlue)
	titleStyle     = color.New(color.Bold)
	subtitleStyle  = color.New(color.Faint)
	hashStyle      = color.New(color.FgWhite)
	timestampStyle = color.New(color.Faint)
	labelStyle     = color.New(color.Bold, color.FgHiWhite)
	errorStyle     = color.New(color.FgRed)
	badgeStyle     = color.New(color.BgYellow, color.FgBlack, color.Bold)
)

var titleCaser = cases.Title(language.English)

// FormatWarning formats a warning message with the warning icon
func FormatWarning(message string) string {
	return color.New(color.FgYellow).Sprintf("⚠️  %s", message)
}

// FormatError formats an error message with the error icon
func FormatError(message string) string {
	// Extract just the error message part (after the last colon if it's an error chain)
	parts := strings.Split(message, ": ")
	msg := parts[len(parts)-1]

	// Capitalize first letter
	if len(msg) > 0 {
		msg = strings.ToUpper(msg[:1]) + msg[1:]
	}

	return color.New(color.FgRed).Sprintf("❌ %s", msg)
}

// FormatSuccess formats a success message with the success icon
func FormatSuccess(message string) string {
	return color.New(color.FgGreen).Sprintf("✅ %s", message)
}

// FormatStatus renders a status with its color
func FormatStatus(status models.Status) string {
	var c *color.Color
	switch status {
	case models.StatusPending, models.StatusQueued:
		c = color.New(color.FgYellow)
	case models.StatusExecuting:
		c = color.New(color.FgCyan, color.Bold)
	case models.StatusCompleted:
		c = color.New(color.FgGreen)
	case models.StatusFailed:
		c = color.New(color.FgRed, color.Bold)
	default:
		c = color.New(color.Faint)
	}
	return c.Sprint(titleCaser.String(string(status)))
}

// FormatType title-cases a transaction type
func FormatType(t models.TransactionType) string {
	if t == "" {
		return "-"
	}
	return titleCaser.String(string(t))
}

// FormatAmount renders a raw token amount scaled by decimals, e.g.
// 1500000 with 6 decimals and symbol USDC gives "1.5 USDC"
func FormatAmount(amount *big.Int, decimals uint8, symbol string) string {
	if amount == nil {
		return ""
	}
	s := decimal.NewFromBigInt(amount, -int32(decimals)).String()
	if symbol == "" {
		return s
	}
	return s + " " + symbol
}

// FormatTokenFlow shows what a transaction spends and receives
func FormatTokenFlow(tx *models.QueueTransaction) string {
	in := FormatAmount(tx.TokenAmount, tx.TokenDecimals, tx.TokenSymbol)
	out := FormatAmount(tx.TokenOutAmount, tx.TokenOutDecimals, tx.TokenOutSymbol)
	switch {
	case in != "" && out != "":
		return in + " → " + out
	case in != "":
		return in
	case out != "":
		return "→ " + out
	}
	return "-"
}

// ShortID returns the first 8 characters of an id
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// ShortHash abbreviates a transaction hash as 0x1234…abcd
func ShortHash(hash string) string {
	if len(hash) <= 14 {
		return hash
	}
	return hash[:6] + "…" + hash[len(hash)-4:]
}

// WriteJSON writes v as indented JSON
func WriteJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
