package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/tanker/internal/api"
	"github.com/five82/tanker/internal/models"
	"github.com/five82/tanker/internal/session"
)

func (m Model) handleSignedOutKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.sess == nil {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Confirm):
		m.modal = m.loginForm()
	case key.Matches(msg, m.keys.Register):
		m.modal = m.registerForm()
	}
	return m, nil
}

func (m Model) loginForm() form {
	password := newInput("password", 128)
	password.EchoMode = textinput.EchoPassword
	fields := []formField{
		{label: "Email", input: newInput("you@example.com", 128)},
		{label: "Password", input: password},
	}
	sess := m.sess
	return newForm("Sign in", "", fields, func(values []string) tea.Cmd {
		return m.runOp(opLogin, "Signed in", func(ctx context.Context) error {
			return sess.Login(ctx, values[0], values[1])
		})
	})
}

func (m Model) registerForm() form {
	password := newInput("password", 128)
	password.EchoMode = textinput.EchoPassword
	role := newInput("customer or provider", 16)
	role.SetValue(string(models.RoleCustomer))
	fields := []formField{
		{label: "Name", input: newInput("Full name", 64)},
		{label: "Email", input: newInput("you@example.com", 128)},
		{label: "Phone", input: newInput("optional", 32)},
		{label: "Password", input: password},
		{label: "Role", input: role},
	}
	sess := m.sess
	return newForm("Create account", "Providers deliver water; customers order it.", fields, func(values []string) tea.Cmd {
		reg := api.Registration{
			Name:        values[0],
			Email:       values[1],
			PhoneNumber: values[2],
			Password:    values[3],
			Role:        string(parseRole(values[4])),
		}
		return m.runOp(opRegister, "Account created", func(ctx context.Context) error {
			return sess.Register(ctx, reg)
		})
	})
}

// profileForm edits the signed-in user's name and phone. Blank fields stay unchanged.
func (m Model) profileForm() form {
	user := m.snap.session.Session.User
	name := newInput("name", 64)
	name.SetValue(user.Name)
	phone := newInput("phone", 32)
	phone.SetValue(user.PhoneNumber)
	fields := []formField{
		{label: "Name", input: name},
		{label: "Phone", input: phone},
	}
	sess := m.sess
	return newForm("Profile", "", fields, func(values []string) tea.Cmd {
		uid, token, _ := sess.Credentials()
		update := session.ProfileUpdate{
			Name:        nonEmpty(values[0]),
			PhoneNumber: nonEmpty(values[1]),
		}
		return m.runOp(opProfile, "Profile saved", func(ctx context.Context) error {
			return sess.UpdateProfile(ctx, uid, token, update)
		})
	})
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func parseRole(s string) models.Role {
	if strings.EqualFold(strings.TrimSpace(s), string(models.RoleProvider)) {
		return models.RoleProvider
	}
	return models.RoleCustomer
}

func (m Model) renderSignedOut(height int) string {
	styles := m.theme.Styles()
	lines := []string{
		styles.Text.Bold(true).Render("Water deliveries, on tap."),
		"",
		styles.MutedText.Render("Press enter to sign in or R to create an account."),
	}
	if m.snap.session.Loading {
		lines = append(lines, "", styles.InfoText.Render(m.spinner.View()+" signing in"))
	} else if msg := m.snap.session.Error; msg != "" {
		lines = append(lines, "", styles.DangerText.Render(msg))
	}
	return lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center, lines...))
}
