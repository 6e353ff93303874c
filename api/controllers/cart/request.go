package cart

import (
	"github.com/google/uuid"

	cartsvc "github.com/angelmondragon/canteen-backend/internal/cart"
	"github.com/angelmondragon/canteen-backend/pkg/types"
)

type addLineRequest struct {
	MenuID      uuid.UUID              `json:"menu_id" validate:"required"`
	CommodityID uuid.UUID              `json:"commodity_id" validate:"required"`
	Quantity    int64                  `json:"quantity" validate:"gt=0"`
	Options     types.OptionSelections `json:"options"`
}

// updateLineRequest names the line to replace either by its stored
// fingerprint or by the options it was added with.
type updateLineRequest struct {
	MenuID              uuid.UUID              `json:"menu_id" validate:"required"`
	CommodityID         uuid.UUID              `json:"commodity_id" validate:"required"`
	Quantity            int64                  `json:"quantity" validate:"gt=0"`
	Options             types.OptionSelections `json:"options"`
	PreviousFingerprint string                 `json:"previous_options_fingerprint"`
	PreviousOptions     types.OptionSelections `json:"previous_options"`
}

type deleteLineRequest struct {
	MenuID      uuid.UUID              `json:"menu_id" validate:"required"`
	CommodityID uuid.UUID              `json:"commodity_id" validate:"required"`
	Options     types.OptionSelections `json:"options"`
	Fingerprint string                 `json:"options_fingerprint"`
}

func (p addLineRequest) toInput() cartsvc.LineInput {
	return cartsvc.LineInput{
		MenuID:      p.MenuID,
		CommodityID: p.CommodityID,
		Quantity:    p.Quantity,
		Options:     p.Options,
	}
}

func (p updateLineRequest) toInput() cartsvc.UpdateLineInput {
	previous := p.PreviousFingerprint
	if previous == "" {
		previous = p.PreviousOptions.Fingerprint()
	}
	return cartsvc.UpdateLineInput{
		MenuID:              p.MenuID,
		CommodityID:         p.CommodityID,
		PreviousFingerprint: previous,
		Quantity:            p.Quantity,
		Options:             p.Options,
	}
}

func (p deleteLineRequest) toKey() cartsvc.LineKey {
	fingerprint := p.Fingerprint
	if fingerprint == "" {
		fingerprint = p.Options.Fingerprint()
	}
	return cartsvc.LineKey{MenuID: p.MenuID, CommodityID: p.CommodityID, Fingerprint: fingerprint}
}
