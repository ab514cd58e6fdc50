package domain

import (
	"strconv"
	"strings"
)

// DefaultMenu is the menu seeded into an empty catalog. IDs follow list order starting at 1.
var DefaultMenu = []MenuItem{
	{ID: 1, Name: "Paneer Butter Masala", Cost: 250},
	{ID: 2, Name: "Chicken Biryani", Cost: 320},
	{ID: 3, Name: "Masala Dosa", Cost: 80},
	{ID: 4, Name: "Veg Pulao", Cost: 150},
	{ID: 5, Name: "Chole Bhature", Cost: 120},
	{ID: 6, Name: "Mutton Rogan Josh", Cost: 400},
	{ID: 7, Name: "Pav Bhaji", Cost: 110},
	{ID: 8, Name: "Tandoori Chicken", Cost: 350},
	{ID: 9, Name: "Dal Makhani", Cost: 200},
	{ID: 10, Name: "Hyderabadi Biryani", Cost: 340},
	{ID: 11, Name: "Gulab Jamun", Cost: 50},
	{ID: 12, Name: "Kadhai Paneer", Cost: 230},
	{ID: 13, Name: "Fish Curry", Cost: 280},
	{ID: 14, Name: "Rajma Chawal", Cost: 160},
	{ID: 15, Name: "Butter Naan", Cost: 40},
	{ID: 16, Name: "Malai Kofta", Cost: 210},
	{ID: 17, Name: "Shahi Paneer", Cost: 240},
	{ID: 18, Name: "Keema Paratha", Cost: 180},
	{ID: 19, Name: "Prawn Masala", Cost: 420},
	{ID: 20, Name: "Chicken Tikka Masala", Cost: 300},
}

// ParseItemRef reports whether ref is a numeric menu item id.
func ParseItemRef(ref string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(ref), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
