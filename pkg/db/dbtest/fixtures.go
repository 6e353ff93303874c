package dbtest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/canteen-backend/pkg/db/models"
	"github.com/angelmondragon/canteen-backend/pkg/enums"
	"github.com/angelmondragon/canteen-backend/pkg/types"
)

// Account inserts an account with the given balances.
func Account(t testing.TB, db *gorm.DB, role enums.AccountRole, point, credit int64) models.Account {
	t.Helper()
	acct := models.Account{
		DisplayName:   "acct-" + uuid.NewString()[:8],
		Role:          role,
		PointBalance:  point,
		CreditBalance: credit,
	}
	if err := db.Create(&acct).Error; err != nil {
		t.Fatalf("create account: %v", err)
	}
	return acct
}

// OpenMenu inserts a published, open menu of the given kind.
func OpenMenu(t testing.TB, db *gorm.DB, kind enums.MenuKind, perUserLimit int64) models.Menu {
	t.Helper()
	published := time.Now().Add(-time.Hour)
	menu := models.Menu{
		Kind:         kind,
		Name:         string(kind) + " menu",
		PublishedAt:  &published,
		PerUserLimit: perUserLimit,
	}
	if kind.IsDated() {
		day := time.Now().UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
		menu.Date = &day
	}
	if err := db.Create(&menu).Error; err != nil {
		t.Fatalf("create menu: %v", err)
	}
	return menu
}

// Commodity inserts a commodity priced in minor units.
func Commodity(t testing.TB, db *gorm.DB, name string, price int64, groups ...types.OptionGroup) models.Commodity {
	t.Helper()
	c := models.Commodity{Name: name, Price: price}
	if len(groups) > 0 {
		if err := c.SetGroups(groups); err != nil {
			t.Fatalf("encode option groups: %v", err)
		}
	}
	if err := db.Create(&c).Error; err != nil {
		t.Fatalf("create commodity: %v", err)
	}
	return c
}

// Listing puts a commodity on a menu. Zero values mean unbounded.
func Listing(t testing.TB, db *gorm.DB, menuID, commodityID uuid.UUID, stock, perUserLimit int64) models.CommodityOnMenu {
	t.Helper()
	l := models.CommodityOnMenu{
		MenuID:       menuID,
		CommodityID:  commodityID,
		Stock:        stock,
		PerUserLimit: perUserLimit,
	}
	if err := db.Create(&l).Error; err != nil {
		t.Fatalf("create listing: %v", err)
	}
	return l
}

// CartLine inserts a cart line without any availability check.
func CartLine(t testing.TB, db *gorm.DB, accountID, menuID, commodityID uuid.UUID, qty int64, selections types.OptionSelections) models.CartLine {
	t.Helper()
	line := models.CartLine{
		AccountID:   accountID,
		MenuID:      menuID,
		CommodityID: commodityID,
		Quantity:    qty,
	}
	if err := line.SetSelections(selections); err != nil {
		t.Fatalf("encode selections: %v", err)
	}
	if err := db.Create(&line).Error; err != nil {
		t.Fatalf("create cart line: %v", err)
	}
	return line
}

// Reload re-reads an account row.
func Reload(t testing.TB, db *gorm.DB, id uuid.UUID) models.Account {
	t.Helper()
	var acct models.Account
	if err := db.First(&acct, "id = ?", id).Error; err != nil {
		t.Fatalf("reload account: %v", err)
	}
	return acct
}
