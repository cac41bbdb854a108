package dashboard

import (
	"errors"
	"testing"

	"github.com/abcfe/abcfe-vault/internal/dashboard/api"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
)

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func testKeychain() *api.Keychain {
	return &api.Keychain{
		Keypairs: []api.KeypairInfo{
			{ID: "k1", Name: "main", PublicKeys: []api.PublicKey{{Blockchain: "eth", Key: "0xabc"}}},
			{ID: "k2", Name: "ledger", External: true, PublicKeys: []api.PublicKey{{Blockchain: "eos", Key: "EOS6..."}}},
		},
	}
}

func TestModelStatusTransitions(t *testing.T) {
	m := initialModel(Config{Host: "127.0.0.1", Port: 50005, LogPath: t.TempDir() + "/vault"})

	m, cmd := update(t, m, statusMsg{status: &api.VaultStatus{Name: "abcfe-vault", State: "unlocked", Exists: true, Unlocked: true}})
	require.True(t, m.online)
	require.NotNil(t, cmd, "unlock should trigger a keychain fetch")

	m, _ = update(t, m, keychainMsg{keychain: testKeychain()})
	require.Len(t, m.keychain.Keypairs, 2)

	view := m.View()
	require.Contains(t, view, "UNLOCKED")
	require.Contains(t, view, "main")
	require.Contains(t, view, "hardware")
	require.Contains(t, view, "0xabc")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	require.Equal(t, 1, m.selected)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	require.Equal(t, 1, m.selected)

	m, _ = update(t, m, statusMsg{status: &api.VaultStatus{State: "locked", Exists: true}})
	require.Nil(t, m.keychain)
	require.Equal(t, 0, m.selected)
	require.Contains(t, m.View(), "keychain hidden while locked")

	m, _ = update(t, m, statusMsg{err: errors.New("connection refused")})
	require.False(t, m.online)
	require.Contains(t, m.View(), "OFFLINE")
}

func TestModelEvents(t *testing.T) {
	m := initialModel(Config{Host: "127.0.0.1", Port: 50005, LogPath: t.TempDir() + "/vault"})

	for i := 0; i < maxEvents+3; i++ {
		ev := &api.Event{Event: "vault"}
		ev.Data.Type = "locked"
		ev.Data.State = "locked"
		m.pushEvent(ev)
	}
	require.Len(t, m.events, maxEvents)

	m, _ = update(t, m, wsClosedMsg{err: errors.New("eof")})
	require.Nil(t, m.conn)
	require.Contains(t, m.View(), "events offline")
}

func TestModelQuit(t *testing.T) {
	m := initialModel(Config{Host: "127.0.0.1", Port: 50005})
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.True(t, m.quitting)
	require.NotNil(t, cmd)
	require.Empty(t, m.View())
}
