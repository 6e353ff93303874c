package enums

// UnavailableReason explains why a commodity or menu cannot be ordered in the
// requested quantity. Values are surfaced verbatim to API callers.
type UnavailableReason string

const (
	ReasonStockExhausted           UnavailableReason = "stock-exhausted"
	ReasonPerUserLimitExceeded     UnavailableReason = "per-user-limit-exceeded"
	ReasonPerOrderCapExceeded      UnavailableReason = "per-order-cap-exceeded"
	ReasonNotYetPublished          UnavailableReason = "not-yet-published"
	ReasonClosed                   UnavailableReason = "closed"
	ReasonPerUserMenuLimitExceeded UnavailableReason = "per-user-menu-limit-exceeded"
	ReasonNotListed                UnavailableReason = "not-listed"
)

var commodityReasons = []UnavailableReason{
	ReasonStockExhausted,
	ReasonPerUserLimitExceeded,
	ReasonPerOrderCapExceeded,
	ReasonNotListed,
}

var menuReasons = []UnavailableReason{
	ReasonNotYetPublished,
	ReasonClosed,
	ReasonPerUserMenuLimitExceeded,
}

// IsMenuLevel reports whether the reason applies to a whole menu.
func (r UnavailableReason) IsMenuLevel() bool {
	for _, candidate := range menuReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

func (r UnavailableReason) IsValid() bool {
	if r.IsMenuLevel() {
		return true
	}
	for _, candidate := range commodityReasons {
		if candidate == r {
			return true
		}
	}
	return false
}
