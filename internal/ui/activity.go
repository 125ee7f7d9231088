package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/tanker/internal/logtail"
)

// renderActivity shows the newest log entries first.
func (m Model) renderActivity(height int) string {
	styles := m.theme.Styles()

	var b strings.Builder
	b.WriteString(styles.AccentText.Bold(true).Render("Activity"))
	b.WriteString("\n")
	if m.logPath == "" {
		b.WriteString(styles.FaintText.Render("Logging is disabled (log_path is empty)."))
		return b.String()
	}
	if len(m.activity) == 0 {
		b.WriteString(styles.FaintText.Render("No activity yet."))
		return b.String()
	}

	visible := max(height-1, 1)
	start := 0
	if m.selectedRow >= visible {
		start = m.selectedRow - visible + 1
	}
	end := min(start+visible, len(m.activity))
	for i := start; i < end; i++ {
		e := m.activity[len(m.activity)-1-i]
		line := truncate(logtail.Format(e), max(m.width-2, 20))
		if i == m.selectedRow {
			line = styles.Selected.Render(line)
		} else {
			line = m.levelStyle(e.Level).Render(line)
		}
		b.WriteString(line)
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) levelStyle(level string) lipgloss.Style {
	styles := m.theme.Styles()
	switch level {
	case "ERROR", "DPANIC", "PANIC", "FATAL":
		return styles.DangerText
	case "WARN":
		return styles.WarningText
	case "DEBUG":
		return styles.FaintText
	default:
		return styles.Text
	}
}
