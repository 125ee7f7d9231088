package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Modal is the interface for modal dialogs.
// The Update method returns the updated modal, a command, and a bool indicating if the modal should close.
type Modal interface {
	Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool)
	View(theme Theme, width, height int) string
}

// formField is one labelled input of a form.
type formField struct {
	label string
	input textinput.Model
}

// form collects a few text values and hands them to submit on enter.
type form struct {
	title  string
	hint   string
	fields []formField
	focus  int
	submit func(values []string) tea.Cmd
}

var _ Modal = form{}

func newInput(placeholder string, limit int) textinput.Model {
	in := textinput.New()
	in.Placeholder = placeholder
	in.CharLimit = limit
	in.Width = 30
	return in
}

func newForm(title, hint string, fields []formField, submit func([]string) tea.Cmd) form {
	f := form{title: title, hint: hint, fields: fields, submit: submit}
	if len(f.fields) > 0 {
		f.fields[0].input.Focus()
	}
	return f
}

// Values returns the trimmed field values in order.
func (f form) Values() []string {
	out := make([]string, len(f.fields))
	for i, fld := range f.fields {
		out[i] = strings.TrimSpace(fld.input.Value())
	}
	return out
}

func (f form) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return f, nil, false
	}
	switch {
	case key.Matches(kmsg, keys.Escape):
		return f, nil, true
	case kmsg.String() == "enter":
		if f.submit == nil {
			return f, nil, true
		}
		return f, f.submit(f.Values()), true
	case key.Matches(kmsg, keys.Tab), kmsg.String() == "down":
		f.move(1)
		return f, nil, false
	case key.Matches(kmsg, keys.ShiftTab), kmsg.String() == "up":
		f.move(-1)
		return f, nil, false
	}

	var cmd tea.Cmd
	f.fields[f.focus].input, cmd = f.fields[f.focus].input.Update(kmsg)
	return f, cmd, false
}

func (f *form) move(delta int) {
	if len(f.fields) == 0 {
		return
	}
	f.fields[f.focus].input.Blur()
	f.focus = (f.focus + delta + len(f.fields)) % len(f.fields)
	f.fields[f.focus].input.Focus()
}

func (f form) View(theme Theme, width, height int) string {
	styles := theme.Styles()

	labelWidth := 0
	for _, fld := range f.fields {
		labelWidth = max(labelWidth, len(fld.label)+2)
	}

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render(f.title))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", 40)))
	b.WriteString("\n\n")
	if f.hint != "" {
		b.WriteString(styles.MutedText.Render(f.hint))
		b.WriteString("\n\n")
	}
	for i, fld := range f.fields {
		label := padRight(fld.label+":", labelWidth)
		if i == f.focus {
			b.WriteString(styles.AccentText.Render(label))
		} else {
			b.WriteString(styles.MutedText.Render(label))
		}
		b.WriteString(fld.input.View())
		b.WriteString("\n\n")
	}
	b.WriteString(styles.FaintText.Render("Enter: Submit  •  Tab: Next field  •  Esc: Cancel"))

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(theme.Accent)).
		Padding(1, 2).
		Width(56).
		Render(b.String())

	return lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		box,
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(theme.Background)),
	)
}
