package availability

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/canteen-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/canteen-backend/pkg/errors"
)

const (
	MessageMenuUnavailable      = "menu-unavailable"
	MessageCommodityUnavailable = "commodity-unavailable"
)

// Violation is the detail payload of an AVAILABILITY_ERROR.
type Violation struct {
	MenuID      uuid.UUID                 `json:"menu_id"`
	CommodityID uuid.UUID                 `json:"commodity_id"`
	Requested   int64                     `json:"requested"`
	MaxQuantity int64                     `json:"max_quantity"`
	Reasons     []enums.UnavailableReason `json:"reasons"`
}

// Check returns nil when quantity units of the commodity fit, and an
// availability error carrying the reasons otherwise.
func (r *Result) Check(commodityID uuid.UUID, quantity int64) error {
	reasons := r.Explain(commodityID, quantity)
	if len(reasons) == 0 {
		return nil
	}
	var maxQty int64
	if c, ok := r.Commodities[commodityID]; ok {
		maxQty = c.MaxQuantity
	}
	return Reject(Violation{
		MenuID:      r.Menu.ID,
		CommodityID: commodityID,
		Requested:   quantity,
		MaxQuantity: maxQty,
		Reasons:     reasons,
	})
}

// Reject builds the availability error for one or more violations. The
// message is menu-unavailable when any menu-level reason is present.
func Reject(violations ...Violation) *pkgerrors.Error {
	msg := MessageCommodityUnavailable
	for _, v := range violations {
		for _, reason := range v.Reasons {
			if reason.IsMenuLevel() {
				msg = MessageMenuUnavailable
			}
		}
	}
	return pkgerrors.New(pkgerrors.CodeAvailability, msg).WithDetails(violations)
}
