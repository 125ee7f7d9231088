package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/tanker/internal/geocode"
	"github.com/five82/tanker/internal/models"
)

func (m Model) handleAddressesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	uid, token, _ := m.sess.Credentials()
	list := m.snap.locations.Addresses
	var current *models.Address
	if m.selectedRow < len(list) {
		current = &list[m.selectedRow]
	}

	switch {
	case key.Matches(msg, m.keys.New):
		m.modal = m.addAddressForm(uid, token)
		return m, nil

	case key.Matches(msg, m.keys.Confirm):
		if current == nil {
			return m, nil
		}
		m.locations.SelectLocation(current)
		m.setBanner("Delivering to "+truncate(current.Address, 40), false)
		return m, m.fetchSnapshotCmd()

	case key.Matches(msg, m.keys.Default):
		if current == nil {
			return m, nil
		}
		id := current.ID
		return m, m.runOp(opDefaultAddress, "Default address updated", func(ctx context.Context) error {
			return m.locations.SetDefaultLocation(ctx, uid, id, token)
		})

	case key.Matches(msg, m.keys.Delete):
		if current == nil {
			return m, nil
		}
		id := current.ID
		return m, m.runOp(opRemoveAddress, "Address removed", func(ctx context.Context) error {
			return m.locations.RemoveLocationFromUser(ctx, uid, id, token)
		})
	}
	return m, nil
}

func (m Model) addAddressForm(uid, token string) form {
	label := newInput("Home, Work or Other", 8)
	label.SetValue(string(models.LabelHome))
	fields := []formField{
		{label: "Address", input: newInput("street, city", 200)},
		{label: "Label", input: label},
	}
	store, lookup := m.locations, m.geocoder
	return newForm("Add address", "The address is looked up on the map before saving.", fields, func(values []string) tea.Cmd {
		return m.runOp(opAddAddress, "Address saved", func(ctx context.Context) error {
			text, coords := resolveAddress(ctx, lookup, values[0])
			loc := store.NewLocation(text, coords, models.ParseLabel(values[1]))
			return store.AddLocationToUser(ctx, uid, loc, token)
		})
	})
}

// resolveAddress prefers the first place match, which carries a canonical
// address, and falls back to plain geocoding. Lookup failures leave zero
// coordinates rather than blocking the save.
func resolveAddress(ctx context.Context, lookup geocode.Lookup, text string) (string, models.Coordinates) {
	if lookup == nil {
		return text, models.Coordinates{}
	}
	if places, err := lookup.Search(ctx, text); err == nil && len(places) > 0 {
		best := places[0]
		if best.FormattedAddress != "" && !best.Coordinates.IsZero() {
			return best.FormattedAddress, best.Coordinates
		}
	}
	return text, lookup.Coordinates(ctx, text)
}

func (m Model) renderAddresses(height int) string {
	list := m.snap.locations.Addresses
	selected := m.snap.locations.Selected
	rows := make([]tableRow, 0, len(list))
	for _, a := range list {
		marks := ""
		if a.IsDefault {
			marks += "default "
		}
		if selected != nil && selected.ID == a.ID {
			marks += "in use"
		}
		coords := "not located"
		if !a.Coordinates().IsZero() {
			coords = fmt.Sprintf("%.4f, %.4f", a.Latitude, a.Longitude)
		}
		rows = append(rows, tableRow{cells: []string{string(a.Label), a.Address, coords, marks}})
	}
	cols := []column{
		{"Label", 6},
		{"Address", max(m.width-52, 20)},
		{"Coordinates", 20},
		{"", 16},
	}
	return m.renderTable("Addresses", cols, rows, height, "No saved addresses. Press n to add one.")
}
