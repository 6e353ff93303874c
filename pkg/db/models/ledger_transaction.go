package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/canteen-backend/pkg/enums"
)

// LedgerTransaction is an append-only balance movement from Source to
// Target. Only the mirror columns are written after insert.
type LedgerTransaction struct {
	ID               uuid.UUID                   `gorm:"column:id;type:uuid;primaryKey"`
	Kind             enums.LedgerTransactionKind `gorm:"column:kind;type:text;not null"`
	SourceAccountID  *uuid.UUID                  `gorm:"column:source_account_id;type:uuid;index"`
	TargetAccountID  uuid.UUID                   `gorm:"column:target_account_id;type:uuid;not null;index"`
	PointDelta       int64                       `gorm:"column:point_delta;not null;default:0"`
	CreditDelta      int64                       `gorm:"column:credit_delta;not null;default:0"`
	OrderID          *uuid.UUID                  `gorm:"column:order_id;type:uuid;index"`
	DepositReference *string                     `gorm:"column:deposit_reference"`
	Note             *string                     `gorm:"column:note"`
	PointTxHash      *string                     `gorm:"column:point_tx_hash"`
	CreditTxHash     *string                     `gorm:"column:credit_tx_hash"`
	MirroredAt       *time.Time                  `gorm:"column:mirrored_at"`
	CreatedAt        time.Time                   `gorm:"column:created_at;autoCreateTime;index"`
}

func (LedgerTransaction) TableName() string { return "ledger_transactions" }

func (t *LedgerTransaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Delta returns the movement in the given currency.
func (t LedgerTransaction) Delta(currency enums.Currency) int64 {
	if currency == enums.CurrencyPoint {
		return t.PointDelta
	}
	return t.CreditDelta
}

// Total is the combined movement across both currencies.
func (t LedgerTransaction) Total() int64 {
	return t.PointDelta + t.CreditDelta
}

// IsMirrored reports whether the external ledger has replayed this row.
func (t LedgerTransaction) IsMirrored() bool {
	return t.MirroredAt != nil
}
