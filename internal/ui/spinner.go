package ui

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// finishedMsg tells the spinner model its operation returned
type finishedMsg struct{}

// spinnerModel is a Bubble Tea model that animates until an operation
// finishes, then clears its line and exits.
type spinnerModel struct {
	spinner  spinner.Model
	label    string
	finished <-chan struct{}
	done     bool
}

func newSpinnerModel(label string, finished <-chan struct{}) spinnerModel {
	s := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(SpinnerStyle))
	return spinnerModel{spinner: s, label: label, finished: finished}
}

// Init implements tea.Model
func (m spinnerModel) Init() tea.Cmd {
	finished := m.finished
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		<-finished
		return finishedMsg{}
	})
}

// Update implements tea.Model
func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case finishedMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model
func (m spinnerModel) View() string {
	if m.done {
		return ""
	}
	return "  " + m.spinner.View() + " " + SpinnerLabelStyle.Render(m.label)
}

// RunWithSpinner runs op while a spinner labelled label animates on out.
// When out is not a terminal op runs without any animation. The spinner
// stops when op returns or ctx is done; op's error is returned.
func RunWithSpinner(ctx context.Context, out io.Writer, label string, op func(context.Context) error) error {
	f, ok := out.(*os.File)
	if !ok || !IsTerminal(f) {
		return op(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	finished := make(chan struct{})
	var opErr error
	go func() {
		defer close(finished)
		opErr = op(ctx)
	}()

	p := tea.NewProgram(newSpinnerModel(label, finished),
		tea.WithOutput(out),
		tea.WithInput(nil),
		tea.WithContext(ctx),
	)
	_, runErr := p.Run()
	killed := ctx.Err() != nil

	cancel()
	<-finished
	if opErr != nil {
		return opErr
	}
	if runErr != nil && !killed {
		return runErr
	}
	return nil
}
