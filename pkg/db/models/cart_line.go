package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/angelmondragon/canteen-backend/pkg/types"
)

// CartLine is a pending selection, unique per
// (account, menu, commodity, options fingerprint).
type CartLine struct {
	ID                 uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	AccountID          uuid.UUID      `gorm:"column:account_id;type:uuid;not null;uniqueIndex:ux_cart_lines_key,priority:1"`
	MenuID             uuid.UUID      `gorm:"column:menu_id;type:uuid;not null;uniqueIndex:ux_cart_lines_key,priority:2"`
	CommodityID        uuid.UUID      `gorm:"column:commodity_id;type:uuid;not null;uniqueIndex:ux_cart_lines_key,priority:3"`
	OptionsFingerprint string         `gorm:"column:options_fingerprint;not null;uniqueIndex:ux_cart_lines_key,priority:4"`
	Options            datatypes.JSON `gorm:"column:options;type:jsonb"`
	Quantity           int64          `gorm:"column:quantity;not null"`
	Invalid            bool           `gorm:"column:invalid;not null;default:false"`
	CreatedAt          time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (CartLine) TableName() string { return "cart_lines" }

func (c *CartLine) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Selections decodes the stored option selections.
func (c CartLine) Selections() (types.OptionSelections, error) {
	return decodeSelections(c.Options)
}

// SetSelections stores the selections and their fingerprint together.
func (c *CartLine) SetSelections(selections types.OptionSelections) error {
	raw, err := json.Marshal(selections.Normalize())
	if err != nil {
		return err
	}
	c.Options = datatypes.JSON(raw)
	c.OptionsFingerprint = selections.Fingerprint()
	return nil
}

func decodeSelections(raw datatypes.JSON) (types.OptionSelections, error) {
	selections := types.OptionSelections{}
	if len(raw) == 0 {
		return selections, nil
	}
	if err := json.Unmarshal(raw, &selections); err != nil {
		return nil, err
	}
	return selections, nil
}
