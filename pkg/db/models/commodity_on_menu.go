package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/canteen-backend/pkg/types"
)

// CommodityOnMenu is a listing: a commodity's availability parameters on one
// menu. Listings referenced by orders are archived, never hard deleted.
type CommodityOnMenu struct {
	ID           uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	MenuID       uuid.UUID      `gorm:"column:menu_id;type:uuid;not null;uniqueIndex:ux_commodities_on_menus_pair,priority:1"`
	CommodityID  uuid.UUID      `gorm:"column:commodity_id;type:uuid;not null;uniqueIndex:ux_commodities_on_menus_pair,priority:2"`
	Stock        int64          `gorm:"column:stock;not null;default:0"`
	PerUserLimit int64          `gorm:"column:per_user_limit;not null;default:0"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt    gorm.DeletedAt `gorm:"column:deleted_at;index"`

	Commodity Commodity `gorm:"foreignKey:CommodityID"`
}

func (CommodityOnMenu) TableName() string { return "commodities_on_menus" }

func (c *CommodityOnMenu) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (c CommodityOnMenu) StockLimit() types.Limit {
	return types.LimitFromColumn(c.Stock)
}

func (c CommodityOnMenu) UserLimit() types.Limit {
	return types.LimitFromColumn(c.PerUserLimit)
}
