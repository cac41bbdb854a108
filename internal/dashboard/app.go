package dashboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/abcfe/abcfe-vault/internal/dashboard/api"
	"github.com/abcfe/abcfe-vault/internal/dashboard/components"
	"github.com/abcfe/abcfe-vault/internal/dashboard/styles"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gorilla/websocket"
)

const maxEvents = 8

type Config struct {
	Host       string
	Port       int
	LogPath    string
	RefreshSec int
}

// Model is the bubbletea model of the vault monitor.
// The keychain is fetched on unlock and on demand only, so the monitor
// never holds off auto-lock.
type Model struct {
	config    Config
	client    *api.Client
	online    bool
	status    *api.VaultStatus
	keychain  *api.Keychain
	lastErr   string
	events    []string
	conn      *websocket.Conn
	selected  int
	width     int
	height    int
	logViewer *components.LogViewer
	showHelp  bool
	quitting  bool
}

func Run(config Config) error {
	m := initialModel(config)
	p := tea.NewProgram(m, tea.WithAltScreen())
	final, err := p.Run()
	if fm, ok := final.(Model); ok && fm.conn != nil {
		fm.conn.Close()
	}
	return err
}

func initialModel(config Config) Model {
	if config.RefreshSec <= 0 {
		config.RefreshSec = 1
	}
	return Model{
		config:    config,
		client:    api.NewClient(config.Host, config.Port),
		logViewer: components.NewLogViewer(config.LogPath, 10),
	}
}

type tickMsg time.Time

type statusMsg struct {
	status *api.VaultStatus
	err    error
}

type keychainMsg struct {
	keychain *api.Keychain
	err      error
}

type wsConnectedMsg struct{ conn *websocket.Conn }

type wsEventMsg struct {
	conn  *websocket.Conn
	event *api.Event
}

type wsClosedMsg struct{ err error }

type actionMsg struct {
	name string
	err  error
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(m.config.RefreshSec),
		m.fetchStatus(),
		m.subscribe(),
	)
}

func tickCmd(seconds int) tea.Cmd {
	return tea.Tick(time.Duration(seconds)*time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) fetchStatus() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		status, err := client.GetStatus()
		return statusMsg{status: status, err: err}
	}
}

func (m Model) fetchKeychain() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		kc, err := client.GetKeychain()
		return keychainMsg{keychain: kc, err: err}
	}
}

func (m Model) lock() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		return actionMsg{name: "lock", err: client.Lock()}
	}
}

func (m Model) subscribe() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		conn, err := client.Subscribe(ctx)
		if err != nil {
			return wsClosedMsg{err: err}
		}
		return wsConnectedMsg{conn: conn}
	}
}

func listen(conn *websocket.Conn) tea.Cmd {
	return func() tea.Msg {
		ev, err := api.ReadEvent(conn)
		if err != nil {
			conn.Close()
			return wsClosedMsg{err: err}
		}
		return wsEventMsg{conn: conn, event: ev}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "?":
			m.showHelp = !m.showHelp

		case "r":
			cmds = append(cmds, m.fetchStatus())
			if m.status != nil && m.status.Unlocked {
				cmds = append(cmds, m.fetchKeychain())
			}

		case "l":
			cmds = append(cmds, m.lock())

		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.keychain != nil && m.selected < len(m.keychain.Keypairs)-1 {
				m.selected++
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		cmds = append(cmds, tickCmd(m.config.RefreshSec), m.fetchStatus())
		if m.conn == nil {
			cmds = append(cmds, m.subscribe())
		}
		if err := m.logViewer.Refresh(); err != nil {
			m.lastErr = err.Error()
		}

	case statusMsg:
		if msg.err != nil {
			m.online = false
			m.lastErr = msg.err.Error()
			break
		}
		wasUnlocked := m.status != nil && m.status.Unlocked
		m.online = true
		m.lastErr = ""
		m.status = msg.status
		switch {
		case msg.status.Unlocked && !wasUnlocked:
			cmds = append(cmds, m.fetchKeychain())
		case !msg.status.Unlocked:
			m.keychain = nil
			m.selected = 0
		}

	case keychainMsg:
		if msg.err != nil {
			m.lastErr = msg.err.Error()
			break
		}
		m.keychain = msg.keychain
		if m.selected >= len(m.keychain.Keypairs) {
			m.selected = 0
		}

	case actionMsg:
		if msg.err != nil {
			m.lastErr = msg.name + ": " + msg.err.Error()
		}
		cmds = append(cmds, m.fetchStatus())

	case wsConnectedMsg:
		m.conn = msg.conn
		cmds = append(cmds, listen(msg.conn))

	case wsEventMsg:
		m.pushEvent(msg.event)
		cmds = append(cmds, listen(msg.conn), m.fetchStatus())
		if msg.event.Data.Type == "updated" || msg.event.Data.Type == "unlocked" {
			cmds = append(cmds, m.fetchKeychain())
		}

	case wsClosedMsg:
		m.conn = nil
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) pushEvent(ev *api.Event) {
	at := time.Now()
	if ev.Data.At > 0 {
		at = time.Unix(ev.Data.At, 0)
	}
	kind := ev.Data.Type
	if kind == "" {
		kind = ev.Event
	}
	line := fmt.Sprintf("%s  %-16s %s", at.Format("15:04:05"), kind, ev.Data.State)

	m.events = append(m.events, line)
	if len(m.events) > maxEvents {
		m.events = m.events[len(m.events)-maxEvents:]
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	b.WriteString(m.renderKeypairs())
	b.WriteString("\n")

	if kp := m.selectedKeypair(); kp != nil {
		b.WriteString(m.renderKeypairDetails(*kp))
		b.WriteString("\n")
	}

	b.WriteString(m.renderEvents())
	b.WriteString("\n")

	b.WriteString(m.logViewer.Render(m.width))
	b.WriteString("\n")

	if m.showHelp {
		b.WriteString(m.renderFullHelp())
	} else {
		b.WriteString(m.renderHelpBar())
	}

	return b.String()
}

func (m Model) selectedKeypair() *api.KeypairInfo {
	if m.keychain == nil || m.selected >= len(m.keychain.Keypairs) {
		return nil
	}
	return &m.keychain.Keypairs[m.selected]
}

func (m Model) renderHeader() string {
	title := styles.TitleStyle.Render(" Vault Monitor ")

	var state string
	switch {
	case !m.online:
		state = styles.ErrorStyle.Render("OFFLINE")
	case m.status != nil:
		state = styles.StateStyle(m.status.State).Render(strings.ToUpper(m.status.State))
	}

	info := fmt.Sprintf("%s:%d", m.config.Host, m.config.Port)
	if m.status != nil {
		info = fmt.Sprintf("%s v%s | %s | ws %d", m.status.Name, m.status.Version, info, m.status.WSClients)
	}
	if m.conn == nil {
		info += " | events offline"
	}
	statusText := state + " " + styles.MutedStyle.Render(info)

	gap := m.width - lipgloss.Width(title) - lipgloss.Width(statusText) - 2
	if gap < 1 {
		gap = 1
	}
	header := title + strings.Repeat(" ", gap) + statusText

	if m.lastErr != "" {
		header += "\n" + styles.ErrorStyle.Render("  "+m.lastErr)
	}
	return header
}

func (m Model) renderKeypairs() string {
	var b strings.Builder

	header := fmt.Sprintf("%-4s %-20s %-18s %-8s", "#", "Name", "Chains", "Type")
	b.WriteString(styles.TableHeaderStyle.Render(header))
	b.WriteString("\n")

	if m.keychain == nil {
		msg := "  keychain hidden while locked"
		if m.status != nil && !m.status.Exists {
			msg = "  no vault yet"
		}
		b.WriteString(styles.MutedStyle.Render(msg))
		b.WriteString("\n")
		return b.String()
	}

	if len(m.keychain.Keypairs) == 0 {
		b.WriteString(styles.MutedStyle.Render("  no keypairs"))
		b.WriteString("\n")
	}
	for i, kp := range m.keychain.Keypairs {
		row := renderKeypairRow(i, kp)
		if i == m.selected {
			b.WriteString(styles.TableSelectedRowStyle.Render(row))
		} else {
			b.WriteString(styles.TableRowStyle.Render(row))
		}
		b.WriteString("\n")
	}

	b.WriteString(styles.MutedStyle.Render(fmt.Sprintf("  identities: %d  cards: %d",
		len(m.keychain.Identities), len(m.keychain.Cards))))
	b.WriteString("\n")
	return b.String()
}

func renderKeypairRow(index int, kp api.KeypairInfo) string {
	chains := make([]string, 0, len(kp.PublicKeys))
	for _, pk := range kp.PublicKeys {
		chains = append(chains, pk.Blockchain)
	}
	kind := "local"
	if kp.External {
		kind = "hardware"
	}
	name := kp.Name
	if len(name) > 20 {
		name = name[:17] + "..."
	}
	return fmt.Sprintf("%-4d %-20s %-18s %-8s", index+1, name, strings.Join(chains, ","), kind)
}

func (m Model) renderKeypairDetails(kp api.KeypairInfo) string {
	var b strings.Builder

	b.WriteString(styles.HeaderStyle.Render(fmt.Sprintf("Keypair %s", kp.ID)))
	b.WriteString("\n")
	for _, pk := range kp.PublicKeys {
		b.WriteString(fmt.Sprintf("  %-4s %s\n", pk.Blockchain, pk.Key))
	}
	if kp.CreatedAt > 0 {
		b.WriteString(styles.MutedStyle.Render("  created " + time.Unix(kp.CreatedAt, 0).Format(time.RFC3339)))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderEvents() string {
	var b strings.Builder

	b.WriteString(styles.HeaderStyle.Render("EVENTS"))
	b.WriteString("\n")
	if len(m.events) == 0 {
		b.WriteString(styles.MutedStyle.Render("  none"))
		b.WriteString("\n")
		return b.String()
	}
	for _, ev := range m.events {
		b.WriteString("  " + ev + "\n")
	}
	return b.String()
}

func (m Model) renderHelpBar() string {
	keys := []struct{ key, desc string }{
		{"↑↓", "select"},
		{"r", "refresh"},
		{"l", "lock"},
		{"?", "help"},
		{"q", "quit"},
	}

	var parts []string
	for _, k := range keys {
		parts = append(parts,
			styles.HelpKeyStyle.Render(k.key)+
				styles.HelpDescStyle.Render(" "+k.desc))
	}

	return styles.HelpBarStyle.Render(strings.Join(parts, "  │  "))
}

func (m Model) renderFullHelp() string {
	help := `
╭─────────────────────────────────────╮
│  ↑/↓, j/k    select keypair         │
│  r           refresh keychain       │
│  l           lock the vault         │
│  ?           toggle help            │
│  q, Ctrl+C   quit                   │
╰─────────────────────────────────────╯`
	return styles.MutedStyle.Render(help)
}
