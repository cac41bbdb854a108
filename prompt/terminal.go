package prompt

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/abcfe/abcfe-vault/internal/dashboard/styles"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Terminal asks on the controlling terminal. Prompts are shown one at a time.
type Terminal struct {
	mu  sync.Mutex
	in  io.Reader
	out io.Writer
}

func NewTerminal() *Terminal {
	return &Terminal{in: os.Stdin, out: os.Stderr}
}

// NewTerminalWith uses the given streams instead of stdin/stderr
func NewTerminalWith(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: in, out: out}
}

func (t *Terminal) Accepted(ctx context.Context, title, message string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return false, err
	}

	p := tea.NewProgram(newConfirmModel(title, message),
		tea.WithInput(t.in),
		tea.WithOutput(t.out),
		tea.WithContext(ctx),
	)
	final, err := p.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return false, ctx.Err()
		}
		return false, err
	}

	m, ok := final.(confirmModel)
	if !ok || m.cancelled {
		return false, nil
	}
	return m.accepted, nil
}

// confirmModel is a yes/no dialog. No is preselected.
type confirmModel struct {
	title    string
	message  string
	yes      bool // current selection
	accepted bool
	done     bool
	// cancelled means the user dismissed the dialog without answering
	cancelled bool
}

func newConfirmModel(title, message string) confirmModel {
	return confirmModel{title: title, message: message}
}

func (m confirmModel) Init() tea.Cmd { return nil }

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "y", "Y":
		m.yes, m.accepted, m.done = true, true, true
		return m, tea.Quit
	case "n", "N":
		m.yes, m.accepted, m.done = false, false, true
		return m, tea.Quit
	case "left", "right", "tab", "h", "l":
		m.yes = !m.yes
	case "enter":
		m.accepted, m.done = m.yes, true
		return m, tea.Quit
	case "esc", "q", "ctrl+c":
		m.accepted, m.done, m.cancelled = false, true, true
		return m, tea.Quit
	}
	return m, nil
}

func (m confirmModel) View() string {
	if m.done {
		return ""
	}

	yes, no := styles.ButtonStyle.Render("Yes"), styles.SelectedStyle.Render("No")
	if m.yes {
		yes, no = styles.SelectedStyle.Render("Yes"), styles.ButtonStyle.Render("No")
	}

	var b strings.Builder
	b.WriteString(styles.WarningStyle.Render(m.title))
	b.WriteString("\n\n")
	b.WriteString(lipgloss.NewStyle().Width(60).Render(m.message))
	b.WriteString("\n\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, yes, "  ", no))
	b.WriteString("\n\n")
	b.WriteString(styles.HelpKeyStyle.Render("y/n") + styles.HelpDescStyle.Render(" answer  ") +
		styles.HelpKeyStyle.Render("←/→") + styles.HelpDescStyle.Render(" select  ") +
		styles.HelpKeyStyle.Render("esc") + styles.HelpDescStyle.Render(" cancel"))

	return styles.WarnBoxStyle.Render(b.String()) + "\n"
}
