package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/canteen-backend/pkg/enums"
)

// LedgerTransactionCommitted is the post-commit hook for the external ledger
// mirror. Consumers re-read the transaction row; the deltas are informative.
type LedgerTransactionCommitted struct {
	TransactionID   uuid.UUID                   `json:"transaction_id"`
	Kind            enums.LedgerTransactionKind `json:"kind"`
	SourceAccountID *uuid.UUID                  `json:"source_account_id,omitempty"`
	TargetAccountID uuid.UUID                   `json:"target_account_id"`
	PointDelta      int64                       `json:"point_delta"`
	CreditDelta     int64                       `json:"credit_delta"`
}

// OrderPlaced is emitted once per order created by a checkout.
type OrderPlaced struct {
	OrderID              uuid.UUID `json:"order_id"`
	AccountID            uuid.UUID `json:"account_id"`
	MenuID               uuid.UUID `json:"menu_id"`
	PaymentTransactionID uuid.UUID `json:"payment_transaction_id"`
	Total                int64     `json:"total"`
	PlacedAt             time.Time `json:"placed_at"`
}

// OrderCanceled reports a cancellation and the refund it produced, if any.
type OrderCanceled struct {
	OrderID             uuid.UUID  `json:"order_id"`
	AccountID           uuid.UUID  `json:"account_id"`
	RefundTransactionID *uuid.UUID `json:"refund_transaction_id,omitempty"`
	PointRefund         int64      `json:"point_refund"`
	CreditRefund        int64      `json:"credit_refund"`
	CanceledAt          time.Time  `json:"canceled_at"`
}

// OrderStatusChanged reports a staff fulfilment transition.
type OrderStatusChanged struct {
	OrderID   uuid.UUID         `json:"order_id"`
	AccountID uuid.UUID         `json:"account_id"`
	Status    enums.OrderStatus `json:"status"`
	ChangedAt time.Time         `json:"changed_at"`
}
