// Package status renders a guild's credential pool as a styled terminal
// report. The bubbletea program runs headless for exactly one frame so the
// output composes with plain stdout.
package status

import (
	"errors"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/logiqbot/keypool/internal/domain"
)

var ErrUnexpectedRenderModel = errors.New("unexpected final bubbletea model type")

type renderReadyMsg struct{}

type model struct {
	credentials []domain.Credential
	opts        RenderOptions
	styles      styles
	output      string
}

func newModel(credentials []domain.Credential, opts RenderOptions) model {
	return model{
		credentials: credentials,
		opts:        opts,
		styles:      newStyles(),
	}
}

func (m model) Init() tea.Cmd {
	return func() tea.Msg {
		return renderReadyMsg{}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg.(type) {
	case renderReadyMsg:
		m.output = renderView(m.credentials, m.opts, m.styles)
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m model) View() string {
	return m.output
}

func Render(credentials []domain.Credential, opts RenderOptions) (string, error) {
	p := tea.NewProgram(
		newModel(credentials, opts),
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
	)

	finalModel, err := p.Run()
	if err != nil {
		return "", err
	}

	rendered, ok := finalModel.(model)
	if !ok {
		return "", ErrUnexpectedRenderModel
	}

	return rendered.View(), nil
}
