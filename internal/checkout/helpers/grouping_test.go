package helpers

import (
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/canteen-backend/internal/cart"
	"github.com/angelmondragon/canteen-backend/pkg/db/models"
	"github.com/angelmondragon/canteen-backend/pkg/enums"
)

func line(menuID, commodityID uuid.UUID, price, qty int64) cart.Line {
	return cart.Line{
		CartLine:  models.CartLine{MenuID: menuID, CommodityID: commodityID, Quantity: qty},
		Commodity: models.Commodity{ID: commodityID, Price: price},
	}
}

func TestGroupLinesForOrders(t *testing.T) {
	lunch := uuid.New()
	reserve := uuid.New()
	soup, bread, cake := uuid.New(), uuid.New(), uuid.New()

	lines := []cart.Line{
		line(reserve, soup, 10, 1),
		line(lunch, bread, 2, 3),
		line(reserve, cake, 5, 2),
		line(lunch, cake, 5, 1),
		line(reserve, soup, 10, 1),
	}
	kinds := map[uuid.UUID]enums.MenuKind{
		lunch:   enums.MenuKindImmediate,
		reserve: enums.MenuKindReservation,
	}

	groups := GroupLinesForOrders(lines, kinds)
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}
	if groups[0].MenuID != reserve || len(groups[0].Lines) != 2 || groups[0].Lines[0].CommodityID != soup {
		t.Fatalf("unexpected first group %+v", groups[0])
	}
	if groups[1].MenuID != reserve || groups[1].Lines[0].CommodityID != cake {
		t.Fatalf("unexpected second group %+v", groups[1])
	}
	if groups[2].MenuID != lunch || len(groups[2].Lines) != 2 {
		t.Fatalf("unexpected third group %+v", groups[2])
	}
	if got := groups[2].Total(); got != 11 {
		t.Fatalf("expected lunch total 11, got %d", got)
	}
	if got := ComputeTotal(lines); got != 41 {
		t.Fatalf("expected total 41, got %d", got)
	}
}

func TestGroupLinesForOrdersEmpty(t *testing.T) {
	if groups := GroupLinesForOrders(nil, nil); len(groups) != 0 {
		t.Fatalf("expected no groups, got %d", len(groups))
	}
}
