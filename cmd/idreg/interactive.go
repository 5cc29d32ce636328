package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/idreg/registry"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#98FB98"))

	refStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const historySize = 8

type interactiveModel struct {
	session *session
	input   textinput.Model
	history []historyLine
}

type historyLine struct {
	text  string
	isErr bool
}

func newInteractiveModel(opts []registry.Option) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "create hello"
	ti.Prompt = "> "
	ti.Width = 60
	ti.Focus()

	return &interactiveModel{
		session: newSession(opts...),
		input:   ti,
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.session.close()
			return m, tea.Quit

		case "enter":
			line := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if line == "" {
				return m, nil
			}
			if line == "quit" || line == "exit" {
				m.session.close()
				return m, tea.Quit
			}

			out, err := m.session.exec(line)
			if err != nil {
				m.push(historyLine{text: err.Error(), isErr: true})
			} else {
				m.push(historyLine{text: out})
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *interactiveModel) push(l historyLine) {
	m.history = append(m.history, l)
	if len(m.history) > historySize {
		m.history = m.history[len(m.history)-historySize:]
	}
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("ID Registry"))
	fmt.Fprintf(&b, " %s\n\n", m.session.reg.Name())

	snap := m.session.reg.Snapshot()
	sort.Slice(snap, func(i, j int) bool { return snap[i].Id < snap[j].Id })

	if len(snap) == 0 {
		b.WriteString(helpStyle.Render("(no live entries)"))
		b.WriteString("\n")
	} else {
		for _, e := range snap {
			b.WriteString("  ")
			b.WriteString(idStyle.Render(fmt.Sprintf("id=%-4d", e.Id)))
			b.WriteString(refStyle.Render(fmt.Sprintf(" refcount=%-3d", e.RefCount)))
			fmt.Fprintf(&b, " %v\n", e.Payload)
		}
	}
	b.WriteString("\n")

	for _, l := range m.history {
		if l.isErr {
			b.WriteString(errorStyle.Render(l.text))
		} else {
			b.WriteString(resultStyle.Render(l.text))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("create <payload> • clone <id> • drop <id> • get <id> • set <id> <payload> • stats • ctrl+c quit"))

	return b.String()
}

func runInteractive(opts []registry.Option) error {
	p := tea.NewProgram(newInteractiveModel(opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
