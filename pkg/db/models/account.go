package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/canteen-backend/pkg/enums"
)

// Account holds both balances of a user, a staff member or the house.
// Balances change only through ledger transactions.
type Account struct {
	ID                   uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	DisplayName          string            `gorm:"column:display_name;not null"`
	Email                *string           `gorm:"column:email;uniqueIndex"`
	Role                 enums.AccountRole `gorm:"column:role;type:text;not null"`
	TimeZone             *string           `gorm:"column:time_zone"`
	PointBalance         int64             `gorm:"column:point_balance;not null;default:0"`
	CreditBalance        int64             `gorm:"column:credit_balance;not null;default:0"`
	LastPointReplenishAt *time.Time        `gorm:"column:last_point_replenish_at"`
	CreatedAt            time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (Account) TableName() string { return "accounts" }

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// Balance returns the balance held in the given currency.
func (a Account) Balance(currency enums.Currency) int64 {
	if currency == enums.CurrencyPoint {
		return a.PointBalance
	}
	return a.CreditBalance
}
