package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/five82/tanker/internal/models"
)

// truncate shortens a string to the given limit, adding ellipsis if needed.
func truncate(value string, limit int) string {
	value = strings.TrimSpace(value)
	if limit <= 0 {
		return value
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}

// padRight pads a string with spaces to the given width.
func padRight(s string, width int) string {
	r := []rune(s)
	if width <= 0 || len(r) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(r))
}

// cell truncates then pads to exactly width runes.
func cell(s string, width int) string {
	return padRight(truncate(s, width), width)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02")
}

func formatPrice(p *float64) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *p)
}

func formatDistance(km float64, known bool) string {
	if !known {
		return "?"
	}
	if km < 1 {
		return fmt.Sprintf("%.0f m", km*1000)
	}
	return fmt.Sprintf("%.1f km", km)
}

func formatProvider(p *models.Provider) string {
	if p == nil {
		return "-"
	}
	if p.PhoneNumber == "" {
		return p.Name
	}
	return p.Name + " (" + p.PhoneNumber + ")"
}
