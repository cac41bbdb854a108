package prompt

import (
	"io"
	"os"

	"github.com/abcfe/abcfe-vault/internal/dashboard/styles"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type passwordModel struct {
	label     string
	input     textinput.Model
	done      bool
	cancelled bool
}

func newPasswordModel(label string) passwordModel {
	ti := textinput.New()
	ti.Placeholder = "password"
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '•'
	ti.CharLimit = 256
	ti.Focus()
	return passwordModel{label: label, input: ti}
}

func (m passwordModel) Init() tea.Cmd { return textinput.Blink }

func (m passwordModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.done = true
			return m, tea.Quit
		case tea.KeyEsc, tea.KeyCtrlC:
			m.done, m.cancelled = true, true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m passwordModel) View() string {
	if m.done {
		return ""
	}
	return styles.HeaderStyle.Render(m.label) + "\n" + m.input.View() + "\n" +
		styles.MutedStyle.Render("enter to confirm, esc to cancel") + "\n"
}

// ReadPassword reads a password from the terminal without echoing it
func ReadPassword(label string) (string, error) {
	return readPassword(label, os.Stdin, os.Stderr)
}

func readPassword(label string, in io.Reader, out io.Writer) (string, error) {
	p := tea.NewProgram(newPasswordModel(label), tea.WithInput(in), tea.WithOutput(out))
	final, err := p.Run()
	if err != nil {
		return "", err
	}
	m := final.(passwordModel)
	if m.cancelled {
		return "", ErrCancelled
	}
	return m.input.Value(), nil
}
