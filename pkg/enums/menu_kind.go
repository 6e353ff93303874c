package enums

import (
	"fmt"
	"strings"
)

// MenuKind distinguishes how a menu is served.
type MenuKind string

const (
	MenuKindImmediate   MenuKind = "immediate"
	MenuKindRetail      MenuKind = "retail"
	MenuKindReservation MenuKind = "reservation"
)

var validMenuKinds = []MenuKind{
	MenuKindImmediate,
	MenuKindRetail,
	MenuKindReservation,
}

func (k MenuKind) String() string {
	return string(k)
}

func (k MenuKind) IsValid() bool {
	for _, candidate := range validMenuKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// IsDated reports whether menus of this kind are scoped to a single date.
func (k MenuKind) IsDated() bool {
	return k == MenuKindReservation
}

func ParseMenuKind(value string) (MenuKind, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validMenuKinds {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid menu kind %q", value)
}
