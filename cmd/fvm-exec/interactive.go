package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/fvm-ffi/trace"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type traceRow struct {
	frame *trace.CallFrame
	depth int
}

type traceModel struct {
	root     *trace.CallFrame
	rows     []traceRow
	detail   viewport.Model
	selected int
	height   int
	ready    bool
}

func newTraceModel(root *trace.CallFrame) *traceModel {
	m := &traceModel{root: root}
	trace.Walk(root, func(depth int, f *trace.CallFrame) bool {
		m.rows = append(m.rows, traceRow{frame: f, depth: depth})
		return true
	})
	return m
}

func (m *traceModel) Init() tea.Cmd {
	return nil
}

func (m *traceModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height
		detailHeight := msg.Height / 2
		if !m.ready {
			m.detail = viewport.New(msg.Width, detailHeight)
			m.ready = true
		} else {
			m.detail.Width = msg.Width
			m.detail.Height = detailHeight
		}
		m.detail.SetContent(m.describe())

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "up", "k":
			if m.selected > 0 {
				m.selected--
				m.refresh()
			}
			return m, nil

		case "down", "j":
			if m.selected < len(m.rows)-1 {
				m.selected++
				m.refresh()
			}
			return m, nil

		case "home", "g":
			m.selected = 0
			m.refresh()
			return m, nil

		case "end", "G":
			m.selected = len(m.rows) - 1
			m.refresh()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.detail, cmd = m.detail.Update(msg)
	return m, cmd
}

func (m *traceModel) refresh() {
	if m.ready {
		m.detail.SetContent(m.describe())
		m.detail.GotoTop()
	}
}

func (m *traceModel) describe() string {
	f := m.rows[m.selected].frame
	var b strings.Builder
	field := func(name, value string) {
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-10s", name)))
		b.WriteString(value)
		b.WriteString("\n")
	}
	field("from", f.Msg.From.String())
	field("to", f.Msg.To.String())
	field("method", fmt.Sprint(f.Msg.Method))
	field("value", f.Msg.Value.String())
	field("exit", f.Receipt.ExitCode.String())
	field("subcalls", fmt.Sprint(len(f.Subcalls)))
	if f.Error != "" {
		field("error", f.Error)
	}
	if len(f.Msg.Params) > 0 {
		field("params", fmt.Sprintf("%x", f.Msg.Params))
	}
	if len(f.Receipt.Return) > 0 {
		field("return", fmt.Sprintf("%x", f.Receipt.Return))
	}
	return b.String()
}

// visibleRows keeps the selection inside the tree pane.
func (m *traceModel) visibleRows() (int, int) {
	capacity := m.height - m.detail.Height - 4
	if capacity < 1 {
		capacity = 1
	}
	start := 0
	if m.selected >= capacity {
		start = m.selected - capacity + 1
	}
	end := start + capacity
	if end > len(m.rows) {
		end = len(m.rows)
	}
	return start, end
}

func (m *traceModel) View() string {
	if !m.ready {
		return "Loading trace..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Execution Trace"))
	b.WriteString(fmt.Sprintf(" %d calls, depth %d\n\n", len(m.rows), trace.Depth(m.root)))

	start, end := m.visibleRows()
	for i := start; i < end; i++ {
		row := m.rows[i]
		line := strings.Repeat("  ", row.depth-1) + frameLine(row.frame)
		if i == m.selected {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString(exitStyle(row.frame.Receipt.ExitCode).Render("  " + line))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.detail.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓ select • g/G first/last • pgup/pgdn scroll detail • q quit"))
	return b.String()
}

func runInteractive(root *trace.CallFrame) error {
	p := tea.NewProgram(newTraceModel(root), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
