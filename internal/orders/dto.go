package orders

import (
	"github.com/angelmondragon/canteen-backend/pkg/db/models"
)

// OrderList is one page of an account's orders, newest first.
type OrderList struct {
	Orders []models.Order
	Cursor string
}

// Refund describes the allocation issued by a cancellation.
type Refund struct {
	Point  int64
	Credit int64
}

// Total is the combined refunded amount.
func (r Refund) Total() int64 {
	return r.Point + r.Credit
}

// CancelResult is the canceled order and the refund it produced.
type CancelResult struct {
	Order  *models.Order
	Refund Refund
}
