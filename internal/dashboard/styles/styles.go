package styles

import "github.com/charmbracelet/lipgloss"

var (
	Primary   = lipgloss.Color("#04B575")
	Secondary = lipgloss.Color("#3C3C3C")
	Success   = lipgloss.Color("#04B575")
	Warning   = lipgloss.Color("#FFCC00")
	Error     = lipgloss.Color("#FF5F56")
	Muted     = lipgloss.Color("#626262")
	White     = lipgloss.Color("#FFFFFF")
	Cyan      = lipgloss.Color("#00CED1")

	// vault state colors
	StateColors = map[string]lipgloss.Color{
		"uninitialized": Muted,
		"locked":        Warning,
		"unlocked":      Success,
	}

	LogLevelColors = map[string]lipgloss.Color{
		"debug": Muted,
		"info":  Cyan,
		"warn":  Warning,
		"error": Error,
	}

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(White).
			Background(Primary).
			Padding(0, 1)

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary).
			MarginBottom(1)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Secondary).
			Padding(0, 1)

	// WarnBoxStyle frames consent prompts
	WarnBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Warning).
			Padding(1, 2)

	SelectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(White).
			Background(Primary).
			Padding(0, 2)

	ButtonStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Padding(0, 2)

	MutedStyle = lipgloss.NewStyle().
			Foreground(Muted)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(Success)

	WarningStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Warning)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Error)

	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(White).
				Background(Secondary).
				Padding(0, 1)

	TableRowStyle = lipgloss.NewStyle().
			Padding(0, 1)

	TableSelectedRowStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(White).
				Background(Primary).
				Padding(0, 1)

	HelpKeyStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary)

	HelpDescStyle = lipgloss.NewStyle().
			Foreground(Muted)

	HelpBarStyle = lipgloss.NewStyle().
			Foreground(Muted).
			MarginTop(1)
)

// StateStyle returns the style for a vault state name
func StateStyle(state string) lipgloss.Style {
	color, ok := StateColors[state]
	if !ok {
		color = Muted
	}
	return lipgloss.NewStyle().Bold(true).Foreground(color)
}

func LogLevelStyle(level string) lipgloss.Style {
	color, ok := LogLevelColors[level]
	if !ok {
		color = White
	}
	return lipgloss.NewStyle().Foreground(color)
}
