// Package tui holds the interactive and styled terminal surfaces of the
// compiler: the profile picker shown when no profile flag is given, and the
// lipgloss-rendered validation and run reports.
package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// profileItem implements list.Item for the profile picker.
type profileItem string

func (i profileItem) Title() string       { return string(i) }
func (i profileItem) Description() string { return "" }
func (i profileItem) FilterValue() string { return string(i) }

type pickerModel struct {
	list     list.Model
	selected string
	quit     bool
}

func newPickerModel(profiles []string) pickerModel {
	items := make([]list.Item, len(profiles))
	for i, name := range profiles {
		items[i] = profileItem(name)
	}
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = false
	l := list.New(items, delegate, 0, 0)
	l.Title = "Select a profile"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	return pickerModel{list: l}
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height)
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.quit = true
			return m, tea.Quit
		case "enter":
			if item, ok := m.list.SelectedItem().(profileItem); ok {
				m.selected = string(item)
			}
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m pickerModel) View() string {
	return m.list.View()
}

// PickProfile runs the interactive profile picker and returns the selected
// profile name. It fails when the user aborts without choosing.
func PickProfile(profiles []string) (string, error) {
	if len(profiles) == 0 {
		return "", fmt.Errorf("tui: no profiles available")
	}
	program := tea.NewProgram(newPickerModel(profiles))
	final, err := program.Run()
	if err != nil {
		return "", fmt.Errorf("tui: profile picker: %w", err)
	}
	model, ok := final.(pickerModel)
	if !ok || model.quit || model.selected == "" {
		return "", fmt.Errorf("tui: no profile selected")
	}
	return model.selected, nil
}
