package components

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	line := ParseLine(`{"level":"WARN","date":"2026-01-03T12:04:05.000Z","logger":"abcfe-vault","msg":"warn","Warn":"rate limit hit on /api/v1/unlock"}`)
	require.Equal(t, "WARN", line.Level)
	require.Equal(t, "12:04:05", line.Time)
	require.Equal(t, "rate limit hit on /api/v1/unlock", line.Message)

	raw := ParseLine("not json")
	require.Equal(t, "INFO", raw.Level)
	require.Equal(t, "not json", raw.Message)
}

func TestLogViewerRefresh(t *testing.T) {
	base := filepath.Join(t.TempDir(), "vault")
	lv := NewLogViewer(base, 3)

	require.NoError(t, lv.Refresh())
	require.Len(t, lv.GetLines(), 1)
	require.Contains(t, lv.GetLines()[0].Message, "no log file")

	var b strings.Builder
	for i := 0; i < 5; i++ {
		fmt.Fprintf(&b, `{"level":"INFO","date":"2026-01-03T12:00:0%d.000Z","msg":"info","Info":"line %d"}`+"\n", i, i)
	}
	require.NoError(t, os.WriteFile(lv.CurrentFile(), []byte(b.String()), 0600))

	require.NoError(t, lv.Refresh())
	lines := lv.GetLines()
	require.Len(t, lines, 3)
	require.Equal(t, "line 2", lines[0].Message)
	require.Equal(t, "line 4", lines[2].Message)

	out := lv.Render(80)
	require.Contains(t, out, "LOGS")
	require.Contains(t, out, "line 4")
}
