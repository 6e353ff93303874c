package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/canteen-backend/pkg/db/models"
	"github.com/angelmondragon/canteen-backend/pkg/enums"
	"github.com/angelmondragon/canteen-backend/pkg/pagination"
)

// Repository manages persistence for balances and ledger transactions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	LockAccount(ctx context.Context, id uuid.UUID) (*models.Account, error)
	SetBalances(ctx context.Context, id uuid.UUID, point, credit int64) error
	CreateTransaction(ctx context.Context, txn *models.LedgerTransaction) error
	FindTransaction(ctx context.Context, id uuid.UUID) (*models.LedgerTransaction, error)
	ListForAccount(ctx context.Context, params listParams) ([]models.LedgerTransaction, *pagination.Cursor, error)
	ListRefundsForOrders(ctx context.Context, orderIDs []uuid.UUID) ([]models.LedgerTransaction, error)
}

type listParams struct {
	AccountID uuid.UUID
	Limit     int
	Cursor    *pagination.Cursor
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// LockAccount reads the account row FOR UPDATE. Returns nil when missing.
func (r *repository) LockAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var acct models.Account
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&acct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

func (r *repository) SetBalances(ctx context.Context, id uuid.UUID, point, credit int64) error {
	res := r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"point_balance":  point,
			"credit_balance": credit,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) CreateTransaction(ctx context.Context, txn *models.LedgerTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) FindTransaction(ctx context.Context, id uuid.UUID) (*models.LedgerTransaction, error) {
	var txn models.LedgerTransaction
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&txn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// ListForAccount pages through transactions the account sent or received,
// newest first. The returned cursor points at the last row of the page.
func (r *repository) ListForAccount(ctx context.Context, params listParams) ([]models.LedgerTransaction, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).
		Model(&models.LedgerTransaction{}).
		Where("target_account_id = ? OR source_account_id = ?", params.AccountID, params.AccountID)

	var rows []models.LedgerTransaction
	if err := pagination.Seek(query, params.Cursor, params.Limit).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(rows, params.Limit, func(t models.LedgerTransaction) pagination.Cursor {
		return pagination.Cursor{CreatedAt: t.CreatedAt, ID: t.ID}
	})
	return page, next, nil
}

func (r *repository) ListRefundsForOrders(ctx context.Context, orderIDs []uuid.UUID) ([]models.LedgerTransaction, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}
	var rows []models.LedgerTransaction
	err := r.db.WithContext(ctx).
		Where("kind = ? AND order_id IN ?", enums.LedgerKindRefund, orderIDs).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}
