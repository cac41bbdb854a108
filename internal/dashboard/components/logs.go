package components

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/abcfe/abcfe-vault/internal/dashboard/styles"
)

// LogViewer tails the vault's rotated JSON log
type LogViewer struct {
	logPath     string // LogInfo.Path, without the date suffix
	lines       []LogLine
	maxLines    int
	lastModTime time.Time
}

type LogLine struct {
	Time    string
	Level   string
	Message string
}

func NewLogViewer(logPath string, maxLines int) *LogViewer {
	return &LogViewer{
		logPath:  logPath,
		maxLines: maxLines,
		lines:    make([]LogLine, 0),
	}
}

// CurrentFile is today's log file as written by the vault logger
func (lv *LogViewer) CurrentFile() string {
	return fmt.Sprintf("%s_%s.log", lv.logPath, time.Now().Format("2006-01-02"))
}

// Refresh rereads the file when it changed since the last call
func (lv *LogViewer) Refresh() error {
	path := lv.CurrentFile()

	info, err := os.Stat(path)
	if err != nil {
		lv.lines = []LogLine{{Level: "INFO", Message: "no log file: " + path}}
		lv.lastModTime = time.Time{}
		return nil
	}
	if info.ModTime().Equal(lv.lastModTime) {
		return nil
	}
	lv.lastModTime = info.ModTime()

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	var all []LogLine
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		all = append(all, ParseLine(scanner.Text()))
		if len(all) > lv.maxLines*4 {
			all = all[len(all)-lv.maxLines:]
		}
	}
	if len(all) > lv.maxLines {
		all = all[len(all)-lv.maxLines:]
	}

	lv.lines = all
	return scanner.Err()
}

// ParseLine reads one zap JSON entry, e.g.
// {"level":"INFO","date":"2026-01-03T12:00:00.000Z","msg":"info","Info":"vault locked"}
func ParseLine(line string) LogLine {
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		return LogLine{Level: "INFO", Message: truncate(line, 80)}
	}

	out := LogLine{Level: "INFO"}
	if lvl, ok := entry["level"].(string); ok {
		out.Level = strings.ToUpper(lvl)
	}
	if date, ok := entry["date"].(string); ok {
		if t, err := time.Parse("2006-01-02T15:04:05.000Z0700", date); err == nil {
			out.Time = t.Format("15:04:05")
		} else if t, err := time.Parse(time.RFC3339, date); err == nil {
			out.Time = t.Format("15:04:05")
		} else {
			out.Time = date
		}
	}
	for _, key := range []string{"Info", "Debug", "Warn", "Err", "Crit"} {
		if msg, ok := entry[key].(string); ok {
			out.Message = msg
			break
		}
	}
	if out.Message == "" {
		if msg, ok := entry["msg"].(string); ok {
			out.Message = msg
		}
	}
	return out
}

func (lv *LogViewer) GetLines() []LogLine {
	return lv.lines
}

func (lv *LogViewer) Render(width int) string {
	var b strings.Builder

	b.WriteString(styles.HeaderStyle.Render("LOGS"))
	b.WriteString("\n")

	if len(lv.lines) == 0 {
		b.WriteString(styles.MutedStyle.Render("  no log lines"))
		return b.String()
	}

	maxMsgLen := width - 20
	if maxMsgLen < 20 {
		maxMsgLen = 20
	}
	for _, line := range lv.lines {
		timeStr := line.Time
		if timeStr == "" {
			timeStr = "        "
		}
		b.WriteString(fmt.Sprintf("  %s %s %s\n",
			styles.MutedStyle.Render(timeStr),
			styles.LogLevelStyle(strings.ToLower(line.Level)).Render(fmt.Sprintf("%-5s", line.Level)),
			truncate(line.Message, maxMsgLen)))
	}

	return b.String()
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
