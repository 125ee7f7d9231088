package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/tanker/internal/models"
)

func (m Model) handlePoolKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	_, token, _ := m.sess.Credentials()
	list := m.snap.nearby
	if m.selectedRow >= len(list) {
		return m, nil
	}
	id := list[m.selectedRow].Request.ID

	switch {
	case key.Matches(msg, m.keys.Accept):
		provider := models.ProviderFromUser(m.snap.session.Session.User)
		return m, m.runOp(opAccept, "Request accepted", func(ctx context.Context) error {
			return m.pool.AcceptRequest(ctx, token, id, provider)
		})

	case key.Matches(msg, m.keys.Decline):
		m.pool.RemoveRequest(id)
		m.setBanner("Request hidden until the next refresh", false)
		return m, m.fetchSnapshotCmd()
	}
	return m, nil
}

func (m Model) renderPool(height int) string {
	list := m.snap.nearby
	rows := make([]tableRow, 0, len(list))
	for _, c := range list {
		r := c.Request
		rows = append(rows, tableRow{
			cells: []string{
				formatDistance(c.DistanceKm, c.Located),
				formatDate(r.Date),
				fmt.Sprintf("%d L", r.Litres),
				r.Location.Address,
				formatPrice(r.Price),
			},
			status: string(r.Status),
		})
	}
	cols := []column{
		{"Distance", 9},
		{"Date", 10},
		{"Litres", 8},
		{"Address", max(m.width-57, 16)},
		{"Price", 8},
	}

	title := "Open requests"
	if sel := m.snap.locations.Selected; sel != nil && m.radiusKm > 0 && !sel.Coordinates().IsZero() {
		title = fmt.Sprintf("Open requests within %.0f km of %s", m.radiusKm, truncate(sel.Address, 30))
	}
	return m.renderTable(title, cols, rows, height, "Nothing waiting. New requests appear here automatically.")
}
