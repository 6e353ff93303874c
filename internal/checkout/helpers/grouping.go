package helpers

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/canteen-backend/internal/cart"
	"github.com/angelmondragon/canteen-backend/pkg/enums"
)

// OrderGroup is the set of cart lines that becomes a single order.
type OrderGroup struct {
	MenuID uuid.UUID
	Lines  []cart.Line
}

// Total prices the group at current commodity prices.
func (g OrderGroup) Total() int64 {
	return ComputeTotal(g.Lines)
}

// GroupLinesForOrders splits lines into one group per menu, and per commodity
// for reservation menus. Groups follow the first-seen order of their menu
// and then of their commodity.
func GroupLinesForOrders(lines []cart.Line, kinds map[uuid.UUID]enums.MenuKind) []OrderGroup {
	type groupKey struct {
		menuID      uuid.UUID
		commodityID uuid.UUID
	}

	var menuOrder []uuid.UUID
	keysByMenu := map[uuid.UUID][]groupKey{}
	grouped := map[groupKey][]cart.Line{}

	for _, line := range lines {
		key := groupKey{menuID: line.MenuID}
		if kinds[line.MenuID] == enums.MenuKindReservation {
			key.commodityID = line.CommodityID
		}
		if _, seen := keysByMenu[line.MenuID]; !seen {
			menuOrder = append(menuOrder, line.MenuID)
		}
		if _, ok := grouped[key]; !ok {
			keysByMenu[line.MenuID] = append(keysByMenu[line.MenuID], key)
		}
		grouped[key] = append(grouped[key], line)
	}

	groups := make([]OrderGroup, 0, len(grouped))
	for _, menuID := range menuOrder {
		for _, key := range keysByMenu[menuID] {
			groups = append(groups, OrderGroup{MenuID: menuID, Lines: grouped[key]})
		}
	}
	return groups
}

// ComputeTotal sums price times quantity over the lines.
func ComputeTotal(lines []cart.Line) int64 {
	var total int64
	for _, line := range lines {
		total += line.Subtotal()
	}
	return total
}
