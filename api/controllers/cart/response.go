package cart

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/angelmondragon/canteen-backend/api/controllers/dto"
	cartsvc "github.com/angelmondragon/canteen-backend/internal/cart"
	"github.com/angelmondragon/canteen-backend/pkg/db/models"
	"github.com/angelmondragon/canteen-backend/pkg/enums"
)

type lineView struct {
	ID                 uuid.UUID                 `json:"id"`
	MenuID             uuid.UUID                 `json:"menu_id"`
	Commodity          dto.Commodity             `json:"commodity"`
	Quantity           int64                     `json:"quantity"`
	PreviousQuantity   *int64                    `json:"previous_quantity,omitempty"`
	MaxQuantity        int64                     `json:"max_quantity"`
	Options            json.RawMessage           `json:"options"`
	OptionsFingerprint string                    `json:"options_fingerprint"`
	Subtotal           int64                     `json:"subtotal"`
	UnavailableReasons []enums.UnavailableReason `json:"unavailable_reasons"`
}

type cartView struct {
	ValidLines   []lineView `json:"valid_lines"`
	InvalidLines []lineView `json:"invalid_lines"`
	WasModified  bool       `json:"was_modified"`
	Total        int64      `json:"total"`
}

type storedLine struct {
	ID                 uuid.UUID       `json:"id"`
	MenuID             uuid.UUID       `json:"menu_id"`
	CommodityID        uuid.UUID       `json:"commodity_id"`
	Quantity           int64           `json:"quantity"`
	Options            json.RawMessage `json:"options"`
	OptionsFingerprint string          `json:"options_fingerprint"`
}

func newCartView(result *cartsvc.ListResult) cartView {
	out := cartView{
		ValidLines:   make([]lineView, 0, len(result.ValidLines)),
		InvalidLines: make([]lineView, 0, len(result.InvalidLines)),
		WasModified:  result.WasModified,
	}
	for _, line := range result.ValidLines {
		out.ValidLines = append(out.ValidLines, newLineView(line))
		out.Total += line.Subtotal()
	}
	for _, line := range result.InvalidLines {
		out.InvalidLines = append(out.InvalidLines, newLineView(line))
	}
	return out
}

func newLineView(line cartsvc.Line) lineView {
	view := lineView{
		ID:                 line.ID,
		MenuID:             line.MenuID,
		Commodity:          dto.NewCommodity(line.Commodity),
		Quantity:           line.Quantity,
		MaxQuantity:        line.MaxQuantity,
		Options:            rawOptions(line.Options),
		OptionsFingerprint: line.OptionsFingerprint,
		Subtotal:           line.Subtotal(),
		UnavailableReasons: dto.Reasons(line.Reasons),
	}
	if line.Shrunk() {
		previous := line.PreviousQuantity
		view.PreviousQuantity = &previous
	}
	return view
}

func newStoredLine(line *models.CartLine) storedLine {
	return storedLine{
		ID:                 line.ID,
		MenuID:             line.MenuID,
		CommodityID:        line.CommodityID,
		Quantity:           line.Quantity,
		Options:            rawOptions(line.Options),
		OptionsFingerprint: line.OptionsFingerprint,
	}
}

func rawOptions(raw []byte) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("{}")
	}
	return json.RawMessage(raw)
}
