package enums

import (
	"fmt"
	"strings"
)

// OrderStatus is derived from an order's lifecycle timestamps.
type OrderStatus string

const (
	OrderStatusPlaced    OrderStatus = "placed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCanceled  OrderStatus = "canceled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPlaced,
	OrderStatusPreparing,
	OrderStatusReady,
	OrderStatusCompleted,
	OrderStatusCanceled,
}

func (s OrderStatus) String() string {
	return string(s)
}

func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is allowed.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCanceled
}

// rank orders the forward fulfilment progression.
func (s OrderStatus) rank() int {
	switch s {
	case OrderStatusPlaced:
		return 0
	case OrderStatusPreparing:
		return 1
	case OrderStatusReady:
		return 2
	case OrderStatusCompleted:
		return 3
	default:
		return -1
	}
}

// CanAdvanceTo reports whether staff may move an order from s to next.
// Cancellation is handled separately because it triggers a refund.
func (s OrderStatus) CanAdvanceTo(next OrderStatus) bool {
	if s.IsTerminal() || next == OrderStatusCanceled {
		return false
	}
	return next.rank() > s.rank()
}

func ParseOrderStatus(value string) (OrderStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validOrderStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
