package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type passwordModel struct {
	label    string
	input    textinput.Model
	done     bool
	canceled bool
}

func newPasswordModel(label string) passwordModel {
	ti := textinput.New()
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '•'
	ti.Prompt = ""
	ti.CharLimit = 128
	ti.Focus()
	return passwordModel{label: label, input: ti}
}

func (m passwordModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m passwordModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.done = true
			return m, tea.Quit
		case tea.KeyCtrlC, tea.KeyEsc:
			m.canceled = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m passwordModel) View() string {
	if m.done || m.canceled {
		return ""
	}
	return FormatPrompt(m.label) + m.input.View() + "\n"
}

// ReadPassword shows a masked prompt and returns what was typed. Esc or
// Ctrl+C return ErrInputCancelled.
func ReadPassword(ctx context.Context, in io.Reader, out io.Writer, label string) (string, error) {
	program := tea.NewProgram(
		newPasswordModel(label),
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
	)

	final, err := program.Run()
	if ctx.Err() != nil {
		return "", ErrInputCancelled
	}
	if err != nil {
		return "", err
	}

	m, ok := final.(passwordModel)
	if !ok || m.canceled {
		return "", ErrInputCancelled
	}
	return m.input.Value(), nil
}
