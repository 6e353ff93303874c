package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/canteen-backend/pkg/enums"
	"github.com/angelmondragon/canteen-backend/pkg/types"
)

// Menu is a catalog of commodity listings. Reservation menus are scoped to a
// single date and unique per (kind, date).
type Menu struct {
	ID           uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	Kind         enums.MenuKind `gorm:"column:kind;type:text;not null"`
	Name         string         `gorm:"column:name;not null"`
	Description  *string        `gorm:"column:description"`
	Date         *time.Time     `gorm:"column:date"`
	PublishedAt  *time.Time     `gorm:"column:published_at"`
	ClosedAt     *time.Time     `gorm:"column:closed_at"`
	PerUserLimit int64          `gorm:"column:per_user_limit;not null;default:0"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt    gorm.DeletedAt `gorm:"column:deleted_at;index"`

	Listings []CommodityOnMenu `gorm:"foreignKey:MenuID"`
}

func (Menu) TableName() string { return "menus" }

func (m *Menu) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

func (m Menu) UserLimit() types.Limit {
	return types.LimitFromColumn(m.PerUserLimit)
}

// IsPublished reports whether the menu has been published at or before now.
func (m Menu) IsPublished(now time.Time) bool {
	return m.PublishedAt != nil && !m.PublishedAt.After(now)
}

// IsClosed reports whether the menu closing time has passed.
func (m Menu) IsClosed(now time.Time) bool {
	return m.ClosedAt != nil && !m.ClosedAt.After(now)
}
