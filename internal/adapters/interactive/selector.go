package interactive

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
	"github.com/sahilm/fuzzy"
	"github.com/trebuchet-org/txq/internal/domain/config"
	"github.com/trebuchet-org/txq/internal/domain/models"
	"github.com/trebuchet-org/txq/internal/usecase"
)

// ErrNonInteractive is returned when a prompt is needed in non-interactive mode
var ErrNonInteractive = errors.New("interactive selection not available in non-interactive mode")

// SelectorAdapter handles interactive selection
type SelectorAdapter struct {
	config *config.RuntimeConfig
	// terminal overrides for the multi-select program, stdin/stdout when empty
	programOptions []tea.ProgramOption
}

// NewSelectorAdapter creates a new selector adapter
func NewSelectorAdapter(cfg *config.RuntimeConfig) *SelectorAdapter {
	return &SelectorAdapter{config: cfg}
}

// SelectTransaction selects one transaction from a list
func (s *SelectorAdapter) SelectTransaction(ctx context.Context, txs []*models.QueueTransaction, prompt string) (*models.QueueTransaction, error) {
	if len(txs) == 0 {
		return nil, fmt.Errorf("no transactions to select")
	}
	if len(txs) == 1 {
		return txs[0], nil
	}
	if s.config.NonInteractive {
		return nil, ErrNonInteractive
	}

	options := formatTransactionOptions(txs)

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "▸ {{ . | cyan }}",
		Inactive: "  {{ . | faint }}",
		Selected: "✓ {{ . | green }}",
		Help:     color.New(color.FgYellow).Sprint("Use arrow keys to navigate, Enter to select"),
	}

	promptSelect := promptui.Select{
		Label:             prompt,
		Items:             options,
		Templates:         templates,
		Size:              10,
		StartInSearchMode: true,
		Searcher:          createFuzzySearchFunc(options),
	}

	index, _, err := promptSelect.Run()
	if err != nil {
		return nil, fmt.Errorf("selection cancelled: %w", err)
	}

	return txs[index], nil
}

// SelectTransactions lets the user pick several transactions
func (s *SelectorAdapter) SelectTransactions(ctx context.Context, txs []*models.QueueTransaction, title string) ([]*models.QueueTransaction, error) {
	if s.config.NonInteractive {
		return nil, ErrNonInteractive
	}
	indices, err := SelectMany(formatTransactionOptions(txs), title, s.programOptions...)
	if err != nil {
		return nil, err
	}
	out := make([]*models.QueueTransaction, len(indices))
	for i, idx := range indices {
		out[i] = txs[idx]
	}
	return out, nil
}

// Confirm asks a yes/no question. Non-interactive sessions get the default.
func (s *SelectorAdapter) Confirm(prompt string, defaultValue bool) (bool, error) {
	if s.config.NonInteractive {
		return defaultValue, nil
	}

	def := "n"
	if defaultValue {
		def = "y"
	}
	p := promptui.Prompt{
		Label:     prompt,
		IsConfirm: true,
		Default:   def,
	}

	result, err := p.Run()
	if errors.Is(err, promptui.ErrAbort) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if result == "" {
		return defaultValue, nil
	}
	return strings.EqualFold(result, "y") || strings.EqualFold(result, "yes"), nil
}

// formatTransactionOptions creates display strings for transaction selection
func formatTransactionOptions(txs []*models.QueueTransaction) []string {
	options := make([]string, len(txs))
	for i, tx := range txs {
		title := color.New(color.FgWhite, color.Bold).Sprint(tx.Title)
		status := color.New(color.FgYellow).Sprintf("[%s]", tx.Status)
		id := color.New(color.FgBlue).Sprint(shortID(tx.ID))

		if tx.Subtitle != "" {
			options[i] = fmt.Sprintf("%s %s %s (%s)", id, title, status, tx.Subtitle)
		} else {
			options[i] = fmt.Sprintf("%s %s %s", id, title, status)
		}
	}
	return options
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// createFuzzySearchFunc creates a fuzzy search function for promptui
func createFuzzySearchFunc(items []string) func(input string, index int) bool {
	return func(input string, index int) bool {
		if input == "" {
			return true
		}

		input = strings.ToLower(input)
		item := strings.ToLower(items[index])

		if strings.Contains(item, input) {
			return true
		}

		pattern := fuzzy.Find(input, []string{item})
		return len(pattern) > 0
	}
}

// Ensure the adapter implements the interface
var _ usecase.InteractiveSelector = (*SelectorAdapter)(nil)
