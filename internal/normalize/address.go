package normalize

import (
	"encoding/json"

	"github.com/five82/tanker/internal/models"
)

// Addresses extracts the address book from any known envelope. Entries
// lacking a string id, a string address or numeric coordinates are dropped.
// ok is false when no rule matched.
func Addresses(payload json.RawMessage) ([]models.Address, bool) {
	raw, _, ok := Extract(payload, addressRules)
	if !ok {
		return nil, false
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, false
	}

	out := make([]models.Address, 0, len(entries))
	for _, entry := range entries {
		if addr, ok := address(entry); ok {
			out = append(out, addr)
		}
	}
	return out, true
}

func address(raw json.RawMessage) (models.Address, bool) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return models.Address{}, false
	}
	id, idOK := m["id"].(string)
	text, textOK := m["address"].(string)
	lat, latOK := m["latitude"].(float64)
	lng, lngOK := m["longitude"].(float64)
	if !idOK || !textOK || !latOK || !lngOK {
		return models.Address{}, false
	}
	label, _ := m["label"].(string)
	isDefault, _ := m["isDefault"].(bool)
	return models.Address{
		ID:        id,
		Address:   text,
		Latitude:  lat,
		Longitude: lng,
		Label:     models.ParseLabel(label),
		IsDefault: isDefault,
		CreatedAt: timestamp(m, "createdAt"),
	}, true
}

// SelectAddress picks the default-flagged entry, else the first, else nil.
// The returned pointer refers to a copy.
func SelectAddress(list []models.Address) *models.Address {
	for _, a := range list {
		if a.IsDefault {
			selected := a
			return &selected
		}
	}
	if len(list) == 0 {
		return nil
	}
	selected := list[0]
	return &selected
}
