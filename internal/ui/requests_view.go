package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cast"

	"github.com/five82/tanker/internal/models"
)

const dateLayout = "2006-01-02"

var errBadDate = errors.New("date must look like 2026-01-31")

func (m Model) handleRequestsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	uid, token, _ := m.sess.Credentials()
	list := m.snap.requests.Customer

	switch {
	case key.Matches(msg, m.keys.New):
		sel := m.snap.locations.Selected
		if sel == nil {
			m.setBanner("Add or pick a delivery address first", true)
			return m, nil
		}
		m.modal = m.newRequestForm(*sel, uid, token)
		return m, nil

	case key.Matches(msg, m.keys.Confirm):
		if m.selectedRow >= len(list) {
			return m, nil
		}
		id := list[m.selectedRow].ID
		return m, m.runOp(opOpenRequest, "", func(ctx context.Context) error {
			return m.reqs.GetRequestByID(ctx, id, token)
		})

	case key.Matches(msg, m.keys.Deliver):
		if m.selectedRow >= len(list) {
			return m, nil
		}
		id := list[m.selectedRow].ID
		return m, m.runOp(opConfirmDelivery, "Delivery confirmed", func(ctx context.Context) error {
			return m.reqs.ConfirmDelivery(ctx, id, token)
		})
	}
	return m, nil
}

func (m Model) newRequestForm(dropOff models.Address, uid, token string) form {
	date := newInput(dateLayout, 10)
	date.SetValue(time.Now().AddDate(0, 0, 1).Format(dateLayout))
	fields := []formField{
		{label: "Litres", input: newInput("e.g. 500", 6)},
		{label: "Date", input: date},
	}
	hint := "Deliver to " + truncate(dropOff.Address, 40)
	reqs := m.reqs
	return newForm("New delivery request", hint, fields, func(values []string) tea.Cmd {
		return m.runOp(opCreateRequest, "Request created", func(ctx context.Context) error {
			litres := parseLitres(values[0])
			day, err := time.ParseInLocation(dateLayout, values[1], time.Local)
			if err != nil {
				return errBadDate
			}
			return reqs.CreateRequest(ctx, litres, models.LocationFromAddress(dropOff), day, uid, token)
		})
	})
}

// parseLitres reads a whole number of litres. Leading zeros are dropped
// first since cast parses "0500" as octal. Anything unparsable or negative
// yields 0, which the store rejects.
func parseLitres(s string) int {
	digits := strings.TrimLeft(strings.TrimSpace(s), "0")
	if digits == "" {
		return 0
	}
	litres, err := cast.ToIntE(digits)
	if err != nil || litres < 0 {
		return 0
	}
	return litres
}

func (m Model) renderRequests(height int) string {
	list := m.snap.requests.Customer
	rows := make([]tableRow, 0, len(list))
	for _, r := range list {
		rows = append(rows, tableRow{
			cells: []string{
				r.ID,
				formatDate(r.Date),
				fmt.Sprintf("%d L", r.Litres),
				r.Location.Address,
				formatPrice(r.Price),
			},
			status: string(r.Status),
		})
	}
	cols := []column{
		{"ID", 12},
		{"Date", 10},
		{"Litres", 8},
		{"Address", max(m.width-60, 16)},
		{"Price", 8},
	}

	detail := m.requestDetail()
	tableHeight := height
	if len(detail) > 0 {
		tableHeight = max(height-len(detail)-2, 3)
	}
	out := m.renderTable("My requests", cols, rows, tableHeight, "No requests yet. Press n to order water.")
	if len(detail) > 0 {
		out += "\n" + m.renderPanel(detail)
	}
	return out
}

// requestDetail describes the opened request when it is the selected row.
func (m Model) requestDetail() []string {
	cur := m.snap.requests.Current
	list := m.snap.requests.Customer
	if cur == nil || m.selectedRow >= len(list) || list[m.selectedRow].ID != cur.ID {
		return nil
	}
	styles := m.theme.Styles()
	lines := []string{
		styles.AccentText.Bold(true).Render("Request " + cur.ID),
		fmt.Sprintf("Status:    %s", cur.Status),
		fmt.Sprintf("Litres:    %d", cur.Litres),
		fmt.Sprintf("Deliver:   %s on %s", cur.Location.Address, formatDate(cur.Date)),
		fmt.Sprintf("Provider:  %s", formatProvider(cur.Provider)),
	}
	if cur.DeliveredAt != nil {
		lines = append(lines, "Delivered: "+cur.DeliveredAt.Local().Format("2006-01-02 15:04"))
	}
	return lines
}
