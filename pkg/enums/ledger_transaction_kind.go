package enums

import "fmt"

// LedgerTransactionKind classifies a balance movement.
type LedgerTransactionKind string

const (
	LedgerKindRecharge LedgerTransactionKind = "RECHARGE"
	LedgerKindPayment  LedgerTransactionKind = "PAYMENT"
	LedgerKindRefund   LedgerTransactionKind = "REFUND"
)

var validLedgerTransactionKinds = []LedgerTransactionKind{
	LedgerKindRecharge,
	LedgerKindPayment,
	LedgerKindRefund,
}

func (k LedgerTransactionKind) String() string {
	return string(k)
}

func (k LedgerTransactionKind) IsValid() bool {
	for _, candidate := range validLedgerTransactionKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// MirrorsAsTransfer reports whether the external ledger replays this kind as a
// wallet-to-wallet transfer rather than a mint or burn.
func (k LedgerTransactionKind) MirrorsAsTransfer() bool {
	return k == LedgerKindPayment
}

func ParseLedgerTransactionKind(value string) (LedgerTransactionKind, error) {
	for _, candidate := range validLedgerTransactionKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger transaction kind %q", value)
}
