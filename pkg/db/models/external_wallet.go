package models

import (
	"time"

	"github.com/google/uuid"
)

// ExternalWallet is the per-account address on the token ledger. The private
// key is stored sealed and only opened to sign transfers.
type ExternalWallet struct {
	AccountID uuid.UUID `gorm:"column:account_id;type:uuid;primaryKey"`
	Address   string    `gorm:"column:address;not null;uniqueIndex"`
	SealedKey []byte    `gorm:"column:sealed_key;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (ExternalWallet) TableName() string { return "external_wallets" }
