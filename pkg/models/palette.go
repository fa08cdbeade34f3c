package models

import "strings"

// PaletteColor pairs a display colour with the calendar service's colour id.
type PaletteColor struct {
	ID  int
	Hex string
}

// Palette is the fixed set of employee colours, in the calendar's id order.
var Palette = []PaletteColor{
	{1, "#a4bdfc"},
	{2, "#7ae7bf"},
	{3, "#dbadff"},
	{4, "#ff887c"},
	{5, "#fbd75b"},
	{6, "#ffb878"},
	{7, "#46d6db"},
	{8, "#e1e1e1"},
	{9, "#5484ed"},
	{10, "#51b749"},
	{11, "#dc2127"},
}

// DefaultColor is assigned to employees created without a colour.
var DefaultColor = Palette[0].Hex

// ColorID maps a palette hex to the calendar colour id; unknown colours get 1.
func ColorID(hex string) int {
	hex = strings.ToLower(strings.TrimSpace(hex))
	for _, c := range Palette {
		if c.Hex == hex {
			return c.ID
		}
	}
	return 1
}

// ValidColor reports whether hex belongs to the palette.
func ValidColor(hex string) bool {
	hex = strings.ToLower(strings.TrimSpace(hex))
	for _, c := range Palette {
		if c.Hex == hex {
			return true
		}
	}
	return false
}
