package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderMain renders the full UI.
func (m Model) renderMain() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	b.WriteString(m.renderContent(max(m.height-2, 1)))
	return b.String()
}

// renderContent renders the main content area based on current view.
func (m Model) renderContent(height int) string {
	if !m.snap.session.IsAuthenticated() {
		return m.renderSignedOut(height)
	}
	switch m.currentView {
	case ViewRequests:
		return m.renderRequests(height)
	case ViewAddresses:
		return m.renderAddresses(height)
	case ViewPool:
		return m.renderPool(height)
	case ViewActivity:
		return m.renderActivity(height)
	default:
		return ""
	}
}

// renderHeader renders the status bar: brand, signed-in user, sync state
// and the current banner.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	parts := []string{bg.Render("tanker", styles.Logo)}

	if user := m.snap.session.Session.User; m.snap.session.IsAuthenticated() {
		who := user.Name
		if who == "" {
			who = user.Email
		}
		parts = append(parts,
			bg.Render(truncate(who, 24), styles.Text)+bg.Spaces(1)+bg.Render(string(user.Role), styles.FaintText))
	}

	switch {
	case m.snap.offline():
		parts = append(parts, bg.Render("OFFLINE", styles.DangerText)+bg.Spaces(1)+
			bg.Render("retrying", styles.WarningText))
	case m.snap.loading():
		parts = append(parts, bg.Render(m.spinner.View()+" syncing", styles.InfoText))
	case !m.lastUpdated.IsZero():
		parts = append(parts, bg.Render("updated "+m.lastUpdated.Format("15:04:05"), styles.MutedText))
	}

	if m.banner.text != "" {
		style := styles.SuccessText
		if m.banner.isError {
			style = styles.DangerText
		}
		parts = append(parts, bg.Render(truncate(m.banner.text, 60), style))
	} else if msg := m.viewError(); msg != "" {
		parts = append(parts, bg.Render(truncate(msg, 60), styles.WarningText))
	}

	return styles.Header.Width(m.width).Render(bg.Join(parts, "  "))
}

// viewError is the last failure of the store behind the current view.
func (m Model) viewError() string {
	if !m.snap.session.IsAuthenticated() {
		return m.snap.session.Error
	}
	switch m.currentView {
	case ViewRequests:
		return m.snap.requests.Error
	case ViewAddresses:
		return m.snap.locations.Error
	case ViewPool:
		return m.snap.pool.Error
	}
	return ""
}

// renderCommandBar renders the command hints bar.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	type cmd struct{ key, desc string }
	var commands []cmd

	switch {
	case !m.snap.session.IsAuthenticated():
		commands = []cmd{{"enter", "Sign in"}, {"R", "Register"}}
	case m.currentView == ViewRequests:
		commands = []cmd{{"n", "New request"}, {"enter", "Details"}, {"c", "Confirm delivery"}, {"j/k", "Navigate"}}
	case m.currentView == ViewAddresses:
		commands = []cmd{{"n", "Add"}, {"enter", "Use"}, {"D", "Default"}, {"x", "Remove"}, {"j/k", "Navigate"}}
	case m.currentView == ViewPool:
		commands = []cmd{{"a", "Accept"}, {"d", "Decline"}, {"j/k", "Navigate"}}
	case m.currentView == ViewActivity:
		commands = []cmd{{"j/k", "Navigate"}, {"r", "Refresh"}}
	}
	if m.snap.session.IsAuthenticated() {
		commands = append(commands, cmd{"tab", m.viewLabel(m.nextView(1))}, cmd{"L", "Log out"})
	}
	commands = append(commands, cmd{"?", "More"})

	colon := bg.Sep(":")
	segments := make([]string, 0, len(commands)+1)
	for _, c := range commands {
		segments = append(segments,
			bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}
	segments = append(segments,
		bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).Render(strings.Join(segments, bg.Spaces(2)))
}

func (m Model) viewLabel(v View) string {
	switch v {
	case ViewRequests:
		return "Requests"
	case ViewAddresses:
		return "Addresses"
	case ViewPool:
		return "Pool"
	case ViewActivity:
		return "Activity"
	}
	return ""
}

type column struct {
	title string
	width int
}

type tableRow struct {
	cells  []string
	status string // rendered as a badge after the cells when set
}

// renderTable renders rows under a header, scrolled so the selected row is
// visible within height lines.
func (m Model) renderTable(title string, cols []column, rows []tableRow, height int, empty string) string {
	styles := m.theme.Styles()

	var b strings.Builder
	b.WriteString(styles.AccentText.Bold(true).Render(title))
	b.WriteString("\n")

	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = cell(c.title, c.width)
	}
	b.WriteString(styles.MutedText.Bold(true).Render(strings.Join(header, "  ")))
	b.WriteString("\n")

	if len(rows) == 0 {
		b.WriteString(styles.FaintText.Render(empty))
		return b.String()
	}

	visible := max(height-2, 1)
	start := 0
	if m.selectedRow >= visible {
		start = m.selectedRow - visible + 1
	}
	end := min(start+visible, len(rows))

	for i := start; i < end; i++ {
		row := rows[i]
		cells := make([]string, len(cols))
		for j, c := range cols {
			if j < len(row.cells) {
				cells[j] = cell(row.cells[j], c.width)
			} else {
				cells[j] = cell("", c.width)
			}
		}
		line := strings.Join(cells, "  ")
		if i == m.selectedRow {
			line = styles.Selected.Render(line)
		} else {
			line = styles.Text.Render(line)
		}
		if row.status != "" {
			line += " " + styles.StatusStyle(row.status).Render(row.status)
		}
		b.WriteString(line)
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// renderPanel frames detail text below a table.
func (m Model) renderPanel(lines []string) string {
	styles := m.theme.Styles()
	width := max(m.width-4, 20)
	return styles.Panel.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
