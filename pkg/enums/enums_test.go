package enums

import "testing"

func TestOrderStatusCanAdvanceTo(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderStatusPlaced, OrderStatusPreparing, true},
		{OrderStatusPlaced, OrderStatusReady, true},
		{OrderStatusPreparing, OrderStatusPlaced, false},
		{OrderStatusReady, OrderStatusCompleted, true},
		{OrderStatusCompleted, OrderStatusReady, false},
		{OrderStatusCanceled, OrderStatusPreparing, false},
		{OrderStatusPlaced, OrderStatusCanceled, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanAdvanceTo(tc.to); got != tc.want {
			t.Fatalf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.want, got)
		}
	}
}

func TestParseMenuKind(t *testing.T) {
	kind, err := ParseMenuKind(" Reservation ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !kind.IsDated() {
		t.Fatalf("expected reservation menus to be dated")
	}
	if _, err := ParseMenuKind("buffet"); err == nil {
		t.Fatal("expected unknown kind to fail")
	}
}

func TestUnavailableReasonLevels(t *testing.T) {
	if !ReasonClosed.IsMenuLevel() {
		t.Fatal("closed is a menu-level reason")
	}
	if ReasonStockExhausted.IsMenuLevel() {
		t.Fatal("stock-exhausted is a commodity-level reason")
	}
	if UnavailableReason("sold-out").IsValid() {
		t.Fatal("unknown reasons are invalid")
	}
}

func TestLedgerKindMirroring(t *testing.T) {
	if !LedgerKindPayment.MirrorsAsTransfer() {
		t.Fatal("payments mirror as transfers")
	}
	if LedgerKindRefund.MirrorsAsTransfer() || LedgerKindRecharge.MirrorsAsTransfer() {
		t.Fatal("recharges and refunds mirror as mint/burn")
	}
	if _, err := ParseLedgerTransactionKind("payment"); err == nil {
		t.Fatal("kinds are case sensitive")
	}
}

func TestParseOutboxDLQErrorReason(t *testing.T) {
	reason, err := ParseOutboxDLQErrorReason(" MAX_ATTEMPTS ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reason != OutboxDLQReasonMaxAttempts {
		t.Fatalf("unexpected reason %q", reason)
	}
	if _, err := ParseOutboxDLQErrorReason("gave_up"); err == nil {
		t.Fatal("expected unknown reason to fail")
	}
}
