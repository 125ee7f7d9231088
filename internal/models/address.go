package models

import (
	"strings"
	"time"
)

// Label tags a saved address.
type Label string

const (
	LabelHome  Label = "Home"
	LabelWork  Label = "Work"
	LabelOther Label = "Other"
)

// ParseLabel maps free text to a known label, ignoring case and defaulting to
// Other.
func ParseLabel(s string) Label {
	for _, l := range []Label{LabelHome, LabelWork} {
		if strings.EqualFold(strings.TrimSpace(s), string(l)) {
			return l
		}
	}
	return LabelOther
}

// Address is an entry in the user's address book.
type Address struct {
	ID        string    `json:"id"`
	Address   string    `json:"address"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Label     Label     `json:"label"`
	IsDefault bool      `json:"isDefault"`
	CreatedAt time.Time `json:"createdAt"`
}

// Coordinates returns the address position.
func (a Address) Coordinates() Coordinates {
	return Coordinates{Latitude: a.Latitude, Longitude: a.Longitude}
}

// Coordinates is a WGS84 position. The zero value means "unknown".
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// IsZero reports whether the lookup sentinel is set.
func (c Coordinates) IsZero() bool {
	return c.Latitude == 0 && c.Longitude == 0
}
