package accounts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/canteen-backend/internal/ledger"
	"github.com/angelmondragon/canteen-backend/pkg/db"
	"github.com/angelmondragon/canteen-backend/pkg/db/dbtest"
	"github.com/angelmondragon/canteen-backend/pkg/db/models"
	"github.com/angelmondragon/canteen-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/canteen-backend/pkg/errors"
	"github.com/angelmondragon/canteen-backend/pkg/outbox"
)

func newTestService(t *testing.T, now time.Time) (*service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	house := dbtest.Account(t, conn, enums.AccountRoleHouse, 0, 0)
	runner := db.Wrap(conn)
	ledgerSvc, err := ledger.NewService(ledger.ServiceParams{
		Repo:           ledger.NewRepository(conn),
		TxRunner:       runner,
		Outbox:         outbox.NewService(outbox.NewRepository(conn), nil),
		HouseAccountID: house.ID,
	})
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Repo:        NewRepository(conn),
		TxRunner:    runner,
		Ledger:      ledgerSvc,
		DailyAmount: 50,
	})
	require.NoError(t, err)
	impl := svc.(*service)
	impl.now = func() time.Time { return now }
	return impl, conn
}

func replenishedAt(t *testing.T, conn *gorm.DB, acct models.Account, at time.Time) {
	t.Helper()
	require.NoError(t, conn.Model(&models.Account{}).
		Where("id = ?", acct.ID).
		Update("last_point_replenish_at", at).Error)
}

func TestGetCreditsThreeWeekdaysOnce(t *testing.T) {
	now := day(2026, 10, 15, 9)
	svc, conn := newTestService(t, now)
	acct := dbtest.Account(t, conn, enums.AccountRoleUser, 20, 0)
	replenishedAt(t, conn, acct, day(2026, 10, 12, 12))

	view, err := svc.Get(context.Background(), acct.ID)
	require.NoError(t, err)
	require.Equal(t, int64(150), view.Credited)
	require.Equal(t, int64(170), view.Account.PointBalance)
	require.True(t, view.Account.LastPointReplenishAt.Equal(now))

	again, err := svc.Get(context.Background(), acct.ID)
	require.NoError(t, err)
	require.Zero(t, again.Credited)
	require.Equal(t, int64(170), dbtest.Reload(t, conn, acct.ID).PointBalance)

	var recharges []models.LedgerTransaction
	require.NoError(t, conn.Where("kind = ?", enums.LedgerKindRecharge).Find(&recharges).Error)
	require.Len(t, recharges, 1)
	require.Equal(t, int64(150), recharges[0].PointDelta)
	require.Nil(t, recharges[0].SourceAccountID)
}

func TestGetTopsUpToMonthAmountAcrossBoundary(t *testing.T) {
	svc, conn := newTestService(t, day(2026, 10, 2, 12))
	acct := dbtest.Account(t, conn, enums.AccountRoleUser, 300, 40)
	replenishedAt(t, conn, acct, day(2026, 9, 29, 12))

	view, err := svc.Get(context.Background(), acct.ID)
	require.NoError(t, err)
	require.Equal(t, int64(-200), view.Credited)

	reloaded := dbtest.Reload(t, conn, acct.ID)
	require.Equal(t, int64(100), reloaded.PointBalance)
	require.Equal(t, int64(40), reloaded.CreditBalance)
}

func TestGetAdvancesTimestampWithoutCredit(t *testing.T) {
	now := day(2026, 10, 11, 12) // Sunday
	svc, conn := newTestService(t, now)
	acct := dbtest.Account(t, conn, enums.AccountRoleUser, 0, 0)
	replenishedAt(t, conn, acct, day(2026, 10, 10, 8))

	view, err := svc.Get(context.Background(), acct.ID)
	require.NoError(t, err)
	require.Zero(t, view.Credited)

	reloaded := dbtest.Reload(t, conn, acct.ID)
	require.NotNil(t, reloaded.LastPointReplenishAt)
	require.True(t, reloaded.LastPointReplenishAt.Equal(now))
}

func TestGetFallsBackToCreationTime(t *testing.T) {
	svc, conn := newTestService(t, time.Now().Add(72*time.Hour))
	acct := dbtest.Account(t, conn, enums.AccountRoleUser, 0, 0)

	view, err := svc.Get(context.Background(), acct.ID)
	require.NoError(t, err)
	require.GreaterOrEqual(t, view.Credited, int64(0))
	require.NotNil(t, view.Account.LastPointReplenishAt)
}

func TestGetErrors(t *testing.T) {
	svc, _ := newTestService(t, time.Now())

	_, err := svc.Get(context.Background(), uuid.Nil)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = svc.Get(context.Background(), uuid.New())
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}
