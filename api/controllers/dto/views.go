// Package dto holds the JSON shapes returned by the HTTP controllers.
package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/canteen-backend/pkg/db/models"
	"github.com/angelmondragon/canteen-backend/pkg/enums"
	"github.com/angelmondragon/canteen-backend/pkg/types"
)

type Commodity struct {
	ID           uuid.UUID           `json:"id"`
	Name         string              `json:"name"`
	Description  *string             `json:"description,omitempty"`
	Price        int64               `json:"price"`
	ImageURL     *string             `json:"image_url,omitempty"`
	OptionGroups []types.OptionGroup `json:"option_groups"`
}

func NewCommodity(c models.Commodity) Commodity {
	groups, _ := c.Groups()
	if groups == nil {
		groups = []types.OptionGroup{}
	}
	return Commodity{
		ID:           c.ID,
		Name:         c.Name,
		Description:  c.Description,
		Price:        c.Price,
		ImageURL:     c.ImageURL,
		OptionGroups: groups,
	}
}

type Account struct {
	ID                   uuid.UUID         `json:"id"`
	DisplayName          string            `json:"display_name"`
	Role                 enums.AccountRole `json:"role"`
	TimeZone             *string           `json:"time_zone,omitempty"`
	PointBalance         int64             `json:"point_balance"`
	CreditBalance        int64             `json:"credit_balance"`
	LastPointReplenishAt *time.Time        `json:"last_point_replenish_at,omitempty"`
}

func NewAccount(a models.Account) Account {
	return Account{
		ID:                   a.ID,
		DisplayName:          a.DisplayName,
		Role:                 a.Role,
		TimeZone:             a.TimeZone,
		PointBalance:         a.PointBalance,
		CreditBalance:        a.CreditBalance,
		LastPointReplenishAt: a.LastPointReplenishAt,
	}
}

type OrderLine struct {
	CommodityID uuid.UUID       `json:"commodity_id"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	UnitPrice   int64           `json:"unit_price"`
	Quantity    int64           `json:"quantity"`
	Subtotal    int64           `json:"subtotal"`
	Options     json.RawMessage `json:"options,omitempty"`
	ImageURL    *string         `json:"image_url,omitempty"`
}

type Order struct {
	ID                   uuid.UUID         `json:"id"`
	AccountID            uuid.UUID         `json:"account_id"`
	MenuID               uuid.UUID         `json:"menu_id"`
	PaymentTransactionID uuid.UUID         `json:"payment_transaction_id"`
	Status               enums.OrderStatus `json:"status"`
	Total                int64             `json:"total"`
	PlacedAt             time.Time         `json:"placed_at"`
	PreparingAt          *time.Time        `json:"preparing_at,omitempty"`
	ReadyAt              *time.Time        `json:"ready_at,omitempty"`
	CompletedAt          *time.Time        `json:"completed_at,omitempty"`
	CanceledAt           *time.Time        `json:"canceled_at,omitempty"`
	Lines                []OrderLine       `json:"lines"`
}

func NewOrder(o models.Order) Order {
	lines := make([]OrderLine, 0, len(o.Lines))
	for _, l := range o.Lines {
		line := OrderLine{
			CommodityID: l.CommodityID,
			Name:        l.Name,
			Description: l.Description,
			UnitPrice:   l.UnitPrice,
			Quantity:    l.Quantity,
			Subtotal:    l.Subtotal(),
			ImageURL:    l.ImageURL,
		}
		if len(l.Options) > 0 {
			line.Options = json.RawMessage(l.Options)
		}
		lines = append(lines, line)
	}
	return Order{
		ID:                   o.ID,
		AccountID:            o.AccountID,
		MenuID:               o.MenuID,
		PaymentTransactionID: o.PaymentTransactionID,
		Status:               o.Status(),
		Total:                o.Total(),
		PlacedAt:             o.PlacedAt,
		PreparingAt:          o.PreparingAt,
		ReadyAt:              o.ReadyAt,
		CompletedAt:          o.CompletedAt,
		CanceledAt:           o.CanceledAt,
		Lines:                lines,
	}
}

func NewOrders(orders []models.Order) []Order {
	out := make([]Order, 0, len(orders))
	for _, o := range orders {
		out = append(out, NewOrder(o))
	}
	return out
}

type LedgerTransaction struct {
	ID               uuid.UUID                   `json:"id"`
	Kind             enums.LedgerTransactionKind `json:"kind"`
	SourceAccountID  *uuid.UUID                  `json:"source_account_id,omitempty"`
	TargetAccountID  uuid.UUID                   `json:"target_account_id"`
	PointDelta       int64                       `json:"point_delta"`
	CreditDelta      int64                       `json:"credit_delta"`
	OrderID          *uuid.UUID                  `json:"order_id,omitempty"`
	DepositReference *string                     `json:"deposit_reference,omitempty"`
	Note             *string                     `json:"note,omitempty"`
	Mirrored         bool                        `json:"mirrored"`
	CreatedAt        time.Time                   `json:"created_at"`
}

func NewLedgerTransaction(t models.LedgerTransaction) LedgerTransaction {
	return LedgerTransaction{
		ID:               t.ID,
		Kind:             t.Kind,
		SourceAccountID:  t.SourceAccountID,
		TargetAccountID:  t.TargetAccountID,
		PointDelta:       t.PointDelta,
		CreditDelta:      t.CreditDelta,
		OrderID:          t.OrderID,
		DepositReference: t.DepositReference,
		Note:             t.Note,
		Mirrored:         t.IsMirrored(),
		CreatedAt:        t.CreatedAt,
	}
}

// Reasons never renders as null.
func Reasons(in []enums.UnavailableReason) []enums.UnavailableReason {
	if in == nil {
		return []enums.UnavailableReason{}
	}
	return in
}
