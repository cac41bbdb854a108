package prompt

import (
	"bytes"
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatic(t *testing.T) {
	ctx := context.Background()

	ok, err := Static(true).Accepted(ctx, "t", "m")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Static(false).Accepted(ctx, "t", "m")
	require.NoError(t, err)
	assert.False(t, ok)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = Static(true).Accepted(cancelled, "t", "m")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFromMode(t *testing.T) {
	p, err := FromMode("accept")
	require.NoError(t, err)
	assert.Equal(t, Static(true), p)

	p, err = FromMode("DENY")
	require.NoError(t, err)
	assert.Equal(t, Static(false), p)

	p, err = FromMode("")
	require.NoError(t, err)
	assert.IsType(t, &Terminal{}, p)

	_, err = FromMode("maybe")
	assert.Error(t, err)
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestConfirmModel(t *testing.T) {
	cases := []struct {
		name      string
		keys      []string
		accepted  bool
		cancelled bool
	}{
		{"yes", []string{"y"}, true, false},
		{"no", []string{"n"}, false, false},
		{"enter defaults to no", []string{"enter"}, false, false},
		{"toggle then enter", []string{"right", "enter"}, true, false},
		{"escape", []string{"right", "esc"}, false, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var m tea.Model = newConfirmModel("Exporting a private key.", "msg")
			assert.Contains(t, m.View(), "Exporting a private key.")

			var cmd tea.Cmd
			for _, k := range tc.keys {
				m, cmd = m.Update(key(k))
			}
			require.NotNil(t, cmd)

			cm := m.(confirmModel)
			assert.True(t, cm.done)
			assert.Equal(t, tc.accepted, cm.accepted)
			assert.Equal(t, tc.cancelled, cm.cancelled)
			assert.Empty(t, cm.View())
		})
	}
}

func TestPasswordModel(t *testing.T) {
	var m tea.Model = newPasswordModel("Vault password")
	for _, r := range "s3cret" {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	assert.NotContains(t, m.View(), "s3cret")

	m, _ = m.Update(key("enter"))
	pm := m.(passwordModel)
	assert.True(t, pm.done)
	assert.False(t, pm.cancelled)
	assert.Equal(t, "s3cret", pm.input.Value())
}

func TestTerminalAccepted(t *testing.T) {
	var out bytes.Buffer
	term := NewTerminalWith(strings.NewReader("y"), &out)

	ok, err := term.Accepted(context.Background(), "Exporting a private key.", "Allow?")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReadPassword(t *testing.T) {
	var out bytes.Buffer
	pw, err := readPassword("Vault password", strings.NewReader("hunter2\r"), &out)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", pw)
	assert.NotContains(t, out.String(), "hunter2")
}
