package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/angelmondragon/canteen-backend/pkg/types"
)

// Commodity is a sellable dish or item, independent of any menu.
type Commodity struct {
	ID           uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	Name         string         `gorm:"column:name;not null"`
	Description  *string        `gorm:"column:description"`
	Price        int64          `gorm:"column:price;not null"`
	ImageURL     *string        `gorm:"column:image_url"`
	OptionGroups datatypes.JSON `gorm:"column:option_groups;type:jsonb"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt    gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (Commodity) TableName() string { return "commodities" }

func (c *Commodity) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Groups decodes the configurable option groups.
func (c Commodity) Groups() ([]types.OptionGroup, error) {
	if len(c.OptionGroups) == 0 {
		return nil, nil
	}
	var groups []types.OptionGroup
	if err := json.Unmarshal(c.OptionGroups, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// SetGroups encodes the option groups onto the row.
func (c *Commodity) SetGroups(groups []types.OptionGroup) error {
	raw, err := json.Marshal(groups)
	if err != nil {
		return err
	}
	c.OptionGroups = datatypes.JSON(raw)
	return nil
}
