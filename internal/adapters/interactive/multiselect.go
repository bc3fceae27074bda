package interactive

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
)

// multiSelectModel is the bubbletea model for multi-select
type multiSelectModel struct {
	items     []string
	cursor    int
	selected  map[int]bool
	title     string
	done      bool
	cancelled bool
}

func initialMultiSelectModel(items []string, title string) multiSelectModel {
	return multiSelectModel{
		items:    items,
		selected: make(map[int]bool),
		title:    title,
	}
}

// Init is the initial command for bubbletea
func (m multiSelectModel) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model
func (m multiSelectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.String() {
	case "ctrl+c", "q", "esc":
		m.cancelled = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case " ", "space":
		m.selected[m.cursor] = !m.selected[m.cursor]
	case "a":
		all := len(m.indices()) < len(m.items)
		for i := range m.items {
			m.selected[i] = all
		}
	case "enter":
		if len(m.indices()) > 0 {
			m.done = true
			return m, tea.Quit
		}
	}
	return m, nil
}

// indices returns the selected positions in list order
func (m multiSelectModel) indices() []int {
	var out []int
	for i := range m.items {
		if m.selected[i] {
			out = append(out, i)
		}
	}
	return out
}

// View renders the UI
func (m multiSelectModel) View() string {
	if m.done || m.cancelled {
		return ""
	}

	var b strings.Builder
	b.WriteString(color.New(color.FgCyan, color.Bold).Sprintf("%s\n\n", m.title))

	for i, item := range m.items {
		cursor := " "
		if m.cursor == i {
			cursor = color.New(color.FgCyan).Sprint("▸")
		}

		checkbox := color.New(color.FgWhite).Sprint("○")
		if m.selected[i] {
			checkbox = color.New(color.FgGreen).Sprint("✓")
		}

		b.WriteString(fmt.Sprintf("%s %s %s\n", cursor, checkbox, item))
	}

	b.WriteString("\n")
	b.WriteString(color.New(color.FgYellow).Sprint("↑/↓: move  Space: toggle  a: all  Enter: confirm  q: quit\n"))

	return b.String()
}

// SelectMany shows a multi-select list and returns the chosen indices in order
func SelectMany(items []string, title string, opts ...tea.ProgramOption) ([]int, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("nothing to select")
	}

	p := tea.NewProgram(initialMultiSelectModel(items, title), opts...)
	finalModel, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("multi-select failed: %w", err)
	}

	m := finalModel.(multiSelectModel)
	if m.cancelled || !m.done {
		return nil, fmt.Errorf("selection cancelled")
	}
	return m.indices(), nil
}
