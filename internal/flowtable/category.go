package flowtable

import (
	"fmt"
	"strings"
)

// Category is the LCA category of a non-reference row.
type Category int

const (
	// CategoryUnknown is never returned without an error.
	CategoryUnknown Category = iota
	// CategoryElementary is a flow exchanged with the environment.
	CategoryElementary
	// CategoryProduct is a technosphere product flow.
	CategoryProduct
	// CategoryWaste is a technosphere waste flow.
	CategoryWaste
)

// String returns the canonical category label.
func (c Category) String() string {
	switch c {
	case CategoryElementary:
		return "elementary flows"
	case CategoryProduct:
		return "product flows"
	case CategoryWaste:
		return "waste flows"
	default:
		return fmt.Sprintf("Category(%d)", int(c))
	}
}

// ParseCategory maps a Category cell to a Category. Matching is
// case-insensitive; "technosphere flows" is an alias of product flows.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "elementary flows":
		return CategoryElementary, nil
	case "product flows", "technosphere flows":
		return CategoryProduct, nil
	case "waste flows":
		return CategoryWaste, nil
	default:
		return CategoryUnknown, fmt.Errorf(
			"%w: %q; must be one of: elementary flows, product flows, technosphere flows, waste flows",
			ErrInvalidCategory, s)
	}
}
