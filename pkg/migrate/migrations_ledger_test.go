package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/canteen-backend/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no %s migration file found", suffix)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestAccountsMigrationGuardsBalances(t *testing.T) {
	content := readMigration(t, "create_accounts")
	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS accounts",
		"CHECK (point_balance >= 0)",
		"CHECK (credit_balance >= 0)",
		"CHECK (role IN ('user', 'staff', 'house'))",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestLedgerMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "create_ledger_transactions")
	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS ledger_transactions",
		"FOREIGN KEY (target_account_id) REFERENCES accounts(id)",
		"CHECK (kind IN ('RECHARGE', 'PAYMENT', 'REFUND'))",
		"(kind = 'RECHARGE') = (source_account_id IS NULL)",
		"WHERE mirrored_at IS NULL",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestCatalogAndCartMigrationsContainUniqueKeys(t *testing.T) {
	catalog := readMigration(t, "create_catalog")
	for _, sub := range []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_menus_kind_date",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_commodities_on_menus_pair",
		"CHECK (stock >= 0)",
	} {
		if !strings.Contains(catalog, sub) {
			t.Errorf("catalog: missing expected statement %q", sub)
		}
	}

	cart := readMigration(t, "create_cart_lines")
	for _, sub := range []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_cart_lines_key",
		"(account_id, menu_id, commodity_id, options_fingerprint)",
		"CHECK (quantity > 0)",
	} {
		if !strings.Contains(cart, sub) {
			t.Errorf("cart: missing expected statement %q", sub)
		}
	}
}

func TestMigrationsDirValidates(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("validate migrations: %v", err)
	}
}
