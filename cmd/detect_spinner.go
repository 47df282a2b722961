package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type detectDoneMsg struct {
	err error
}

type detectSpinnerModel struct {
	spinner spinner.Model
	label   string
	run     tea.Cmd
	err     error
	done    bool
}

func newDetectSpinnerModel(label string, run tea.Cmd) detectSpinnerModel {
	return detectSpinnerModel{
		spinner: spinner.New(
			spinner.WithSpinner(spinner.MiniDot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("209"))),
		),
		label: label,
		run:   run,
	}
}

func (m detectSpinnerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.run)
}

func (m detectSpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case detectDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m detectSpinnerModel) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf("%s %s", m.spinner.View(), m.label)
}

// withSpinner runs work while drawing a spinner on output.
func withSpinner(ctx context.Context, output io.Writer, label string, work func(context.Context) error) error {
	run := func() tea.Msg {
		return detectDoneMsg{err: work(ctx)}
	}

	p := tea.NewProgram(
		newDetectSpinnerModel(label, run),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	final, err := p.Run()
	if err != nil {
		return err
	}

	result, ok := final.(detectSpinnerModel)
	if !ok {
		return fmt.Errorf("unexpected final spinner model type %T", final)
	}
	return result.err
}
