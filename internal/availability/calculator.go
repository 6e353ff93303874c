// Package availability computes how many units of each listed commodity an
// account may still put in its cart or buy from a menu.
package availability

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/canteen-backend/pkg/db/models"
	"github.com/angelmondragon/canteen-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/canteen-backend/pkg/errors"
)

// DefaultMaxQuantityPerOrder applies when the configured cap is not positive.
const DefaultMaxQuantityPerOrder int64 = 50

// Request selects the menu, the account and the commodities to evaluate. An
// empty CommodityIDs evaluates every listing on the menu. Cart lines in
// ExcludeCartLineIDs are ignored so a line can be checked against its own
// full intended quantity.
type Request struct {
	MenuID             uuid.UUID
	AccountID          uuid.UUID
	CommodityIDs       []uuid.UUID
	ExcludeCartLineIDs []uuid.UUID
}

// CommodityAvailability is the verdict for one listing. Limiting names the
// constraint that sets MaxQuantity.
type CommodityAvailability struct {
	Listing     models.CommodityOnMenu
	MaxQuantity int64
	Reasons     []enums.UnavailableReason
	Limiting    enums.UnavailableReason
}

// Result carries the menu verdict and one entry per listed commodity.
// Commodities that are not listed (archived, deleted or never added) are
// absent from the map.
type Result struct {
	Menu        models.Menu
	MaxQuantity int64
	Reasons     []enums.UnavailableReason
	Commodities map[uuid.UUID]CommodityAvailability
	order       []uuid.UUID
}

// Lookup returns the verdict for a commodity and whether it is listed.
func (r *Result) Lookup(commodityID uuid.UUID) (CommodityAvailability, bool) {
	c, ok := r.Commodities[commodityID]
	return c, ok
}

// Listed returns verdicts in listing order.
func (r *Result) Listed() []CommodityAvailability {
	out := make([]CommodityAvailability, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.Commodities[id])
	}
	return out
}

// Explain collects every reason that keeps quantity units of the commodity
// from being accepted. An empty slice means the quantity fits.
func (r *Result) Explain(commodityID uuid.UUID, quantity int64) []enums.UnavailableReason {
	reasons := append([]enums.UnavailableReason(nil), r.Reasons...)
	c, ok := r.Commodities[commodityID]
	if !ok {
		return append(reasons, enums.ReasonNotListed)
	}
	reasons = append(reasons, c.Reasons...)
	if len(reasons) == 0 && quantity > c.MaxQuantity {
		reasons = append(reasons, c.Limiting)
	}
	return reasons
}

// Calculator evaluates availability against a caller-supplied session.
type Calculator struct {
	maxPerOrder int64
	now         func() time.Time
}

// NewCalculator returns a calculator using maxPerOrder as the global per-order cap.
func NewCalculator(maxPerOrder int64) *Calculator {
	if maxPerOrder <= 0 {
		maxPerOrder = DefaultMaxQuantityPerOrder
	}
	return &Calculator{maxPerOrder: maxPerOrder, now: time.Now}
}

// MaxPerOrder exposes the global cap used for unbounded limits.
func (c *Calculator) MaxPerOrder() int64 {
	return c.maxPerOrder
}

// Calculate is read-only. session may be a base connection or an open
// transaction; writes that depend on the result must pass their transaction.
func (c *Calculator) Calculate(ctx context.Context, session *gorm.DB, req Request) (*Result, error) {
	if session == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "availability requires a session")
	}
	if req.MenuID == uuid.Nil || req.AccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "menu id and account id are required")
	}

	repo := newRepository(session)
	menu, err := repo.findMenu(ctx, req.MenuID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load menu")
	}
	if menu == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "menu not found")
	}

	listings, err := repo.listings(ctx, menu.ID, req.CommodityIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load listings")
	}
	ordered, err := repo.orderedQuantities(ctx, menu.ID, req.AccountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum ordered quantities")
	}
	carted, err := repo.cartQuantities(ctx, menu.ID, req.AccountID, req.ExcludeCartLineIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum cart quantities")
	}

	return c.evaluate(*menu, listings, index(ordered), index(carted)), nil
}

func (c *Calculator) evaluate(menu models.Menu, listings []models.CommodityOnMenu, ordered, carted map[uuid.UUID]quantityRow) *Result {
	limit := c.maxPerOrder
	result := &Result{
		Menu:        menu,
		Commodities: make(map[uuid.UUID]CommodityAvailability, len(listings)),
	}

	var accountMenuQty int64
	for _, row := range ordered {
		accountMenuQty += row.Own
	}
	for _, row := range carted {
		accountMenuQty += row.Own
	}

	now := c.now()
	menuMax := limit
	if !menu.IsPublished(now) {
		result.Reasons = append(result.Reasons, enums.ReasonNotYetPublished)
		menuMax = 0
	}
	if menu.IsClosed(now) {
		result.Reasons = append(result.Reasons, enums.ReasonClosed)
		menuMax = 0
	}
	menuTerm := menu.UserLimit().Remaining(accountMenuQty, limit)
	if menuTerm <= 0 {
		result.Reasons = append(result.Reasons, enums.ReasonPerUserMenuLimitExceeded)
	}
	menuMax = clamp(min(menuMax, menuTerm))
	result.MaxQuantity = menuMax

	for _, listing := range listings {
		o := ordered[listing.CommodityID]
		k := carted[listing.CommodityID]

		stockTerm := listing.StockLimit().Remaining(o.Total+k.Total, limit)
		userTerm := listing.UserLimit().Remaining(o.Own+k.Own, limit)
		capTerm := limit - k.Own

		var reasons []enums.UnavailableReason
		if stockTerm <= 0 {
			reasons = append(reasons, enums.ReasonStockExhausted)
		}
		if userTerm <= 0 {
			reasons = append(reasons, enums.ReasonPerUserLimitExceeded)
		}
		if capTerm <= 0 {
			reasons = append(reasons, enums.ReasonPerOrderCapExceeded)
		}

		// Unbounded terms equal the cap and never bind below capTerm.
		maxQty, limiting := capTerm, enums.ReasonPerOrderCapExceeded
		if listing.UserLimit().IsBounded() && userTerm <= maxQty {
			maxQty, limiting = userTerm, enums.ReasonPerUserLimitExceeded
		}
		if listing.StockLimit().IsBounded() && stockTerm <= maxQty {
			maxQty, limiting = stockTerm, enums.ReasonStockExhausted
		}
		maxQty = clamp(maxQty)
		if menuMax < limit && menuMax < maxQty {
			maxQty, limiting = menuMax, enums.ReasonPerUserMenuLimitExceeded
		}

		result.Commodities[listing.CommodityID] = CommodityAvailability{
			Listing:     listing,
			MaxQuantity: maxQty,
			Reasons:     reasons,
			Limiting:    limiting,
		}
		result.order = append(result.order, listing.CommodityID)
	}
	return result
}

func index(rows []quantityRow) map[uuid.UUID]quantityRow {
	out := make(map[uuid.UUID]quantityRow, len(rows))
	for _, row := range rows {
		out[row.CommodityID] = row
	}
	return out
}

func clamp(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
