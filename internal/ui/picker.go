package ui

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/synclify/internal/shared"
)

// pickerModel is a single list view returning the 1-based index of the chosen option.
type pickerModel struct {
	list    list.Model
	keys    keyMap
	help    help.Model
	choice  int
	aborted bool
}

func newPicker(title string, options []string) *pickerModel {
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = false

	l := list.New(optionItems(options), delegate, 80, min(len(options)+6, 20))
	l.Title = title
	l.SetShowHelp(false)
	return &pickerModel{list: l, keys: newKeyMap(), help: help.New()}
}

func (m *pickerModel) Init() tea.Cmd { return nil }

func (m *pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetWidth(msg.Width - 4)
		return m, nil

	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, m.keys.quit):
			m.aborted = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.skip):
			m.choice = 0
			return m, tea.Quit
		case key.Matches(msg, m.keys.pick):
			if item, ok := m.list.SelectedItem().(optionItem); ok {
				m.choice = item.index
			}
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *pickerModel) View() string {
	return fmt.Sprintf("%s\n%s", m.list.View(), m.help.ShortHelpView(m.keys.ShortHelp()))
}

// runPicker shows options in a full screen list. Skipping returns 0; ctrl+c or the end of ctx
// returns [shared.ErrInterrupted].
func runPicker(ctx context.Context, title string, options []string, in io.Reader, out io.Writer) (int, error) {
	model := newPicker(title, options)
	final, err := tea.NewProgram(model, tea.WithContext(ctx), tea.WithInput(in), tea.WithOutput(out)).Run()
	if ctx.Err() != nil {
		return 0, fmt.Errorf("%w: %v", shared.ErrInterrupted, ctx.Err())
	}
	if err != nil {
		return 0, fmt.Errorf("picker failed: %w", err)
	}

	m, ok := final.(*pickerModel)
	if !ok || m.aborted {
		return 0, shared.ErrInterrupted
	}
	return m.choice, nil
}
