package mirror

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/canteen-backend/pkg/db/models"
	"github.com/angelmondragon/canteen-backend/pkg/enums"
)

// Repository reads ledger rows and wallets and records mirror progress.
// It never writes balances.
type Repository interface {
	FindTransaction(ctx context.Context, id uuid.UUID) (*models.LedgerTransaction, error)
	AttachHash(ctx context.Context, id uuid.UUID, currency enums.Currency, hash string) (bool, error)
	MarkMirrored(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	FindAccount(ctx context.Context, id uuid.UUID) (*models.Account, error)
	AccountIDsAfter(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error)
	FindWallet(ctx context.Context, accountID uuid.UUID) (*models.ExternalWallet, error)
	InsertWallet(ctx context.Context, wallet *models.ExternalWallet) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
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

var hashColumns = map[enums.Currency]string{
	enums.CurrencyPoint:  "point_tx_hash",
	enums.CurrencyCredit: "credit_tx_hash",
}

// AttachHash stores the hash of one currency unless the row is already
// mirrored or that currency already carries a hash.
func (r *repository) AttachHash(ctx context.Context, id uuid.UUID, currency enums.Currency, hash string) (bool, error) {
	column, ok := hashColumns[currency]
	if !ok {
		return false, errors.New("unknown currency " + string(currency))
	}
	res := r.db.WithContext(ctx).
		Model(&models.LedgerTransaction{}).
		Where("id = ? AND mirrored_at IS NULL AND "+column+" IS NULL", id).
		Update(column, hash)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) MarkMirrored(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.LedgerTransaction{}).
		Where("id = ? AND mirrored_at IS NULL", id).
		Update("mirrored_at", at)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) FindAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var acct models.Account
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&acct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

// AccountIDsAfter pages through account ids in ascending order.
func (r *repository) AccountIDsAfter(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error) {
	query := r.db.WithContext(ctx).Model(&models.Account{}).Order("id ASC").Limit(limit)
	if after != uuid.Nil {
		query = query.Where("id > ?", after)
	}
	var ids []uuid.UUID
	if err := query.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repository) FindWallet(ctx context.Context, accountID uuid.UUID) (*models.ExternalWallet, error) {
	var wallet models.ExternalWallet
	err := r.db.WithContext(ctx).Where("account_id = ?", accountID).First(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

// InsertWallet reports false when another writer created the wallet first.
func (r *repository) InsertWallet(ctx context.Context, wallet *models.ExternalWallet) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "account_id"}}, DoNothing: true}).
		Create(wallet)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
