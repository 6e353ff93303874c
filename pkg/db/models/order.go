package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/angelmondragon/canteen-backend/pkg/enums"
	"github.com/angelmondragon/canteen-backend/pkg/types"
)

// Order is an immutable purchase record; only its lifecycle timestamps move.
type Order struct {
	ID                   uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	AccountID            uuid.UUID  `gorm:"column:account_id;type:uuid;not null;index"`
	MenuID               uuid.UUID  `gorm:"column:menu_id;type:uuid;not null;index"`
	PaymentTransactionID uuid.UUID  `gorm:"column:payment_transaction_id;type:uuid;not null;index"`
	PlacedAt             time.Time  `gorm:"column:placed_at;not null"`
	PreparingAt          *time.Time `gorm:"column:preparing_at"`
	ReadyAt              *time.Time `gorm:"column:ready_at"`
	CompletedAt          *time.Time `gorm:"column:completed_at"`
	CanceledAt           *time.Time `gorm:"column:canceled_at"`
	CreatedAt            time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time  `gorm:"column:updated_at;autoUpdateTime"`

	Lines []OrderLine `gorm:"foreignKey:OrderID"`
}

func (Order) TableName() string { return "orders" }

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// Status derives the lifecycle state from the timestamps.
func (o Order) Status() enums.OrderStatus {
	switch {
	case o.CanceledAt != nil:
		return enums.OrderStatusCanceled
	case o.CompletedAt != nil:
		return enums.OrderStatusCompleted
	case o.ReadyAt != nil:
		return enums.OrderStatusReady
	case o.PreparingAt != nil:
		return enums.OrderStatusPreparing
	default:
		return enums.OrderStatusPlaced
	}
}

// Total sums the line snapshots.
func (o Order) Total() int64 {
	var total int64
	for _, line := range o.Lines {
		total += line.Subtotal()
	}
	return total
}

// OrderLine snapshots a commodity at purchase time so later edits to the
// commodity never rewrite order history.
type OrderLine struct {
	ID          uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID      `gorm:"column:order_id;type:uuid;not null;index"`
	CommodityID uuid.UUID      `gorm:"column:commodity_id;type:uuid;not null;index"`
	Name        string         `gorm:"column:name;not null"`
	Description *string        `gorm:"column:description"`
	UnitPrice   int64          `gorm:"column:unit_price;not null"`
	Quantity    int64          `gorm:"column:quantity;not null"`
	Options     datatypes.JSON `gorm:"column:options;type:jsonb"`
	ImageURL    *string        `gorm:"column:image_url"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
}

func (OrderLine) TableName() string { return "order_lines" }

func (l *OrderLine) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

func (l OrderLine) Subtotal() int64 {
	return l.UnitPrice * l.Quantity
}

func (l OrderLine) Selections() (types.OptionSelections, error) {
	return decodeSelections(l.Options)
}

// MarshalSelections is a helper for building snapshots.
func MarshalSelections(selections types.OptionSelections) (datatypes.JSON, error) {
	raw, err := json.Marshal(selections.Normalize())
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}
