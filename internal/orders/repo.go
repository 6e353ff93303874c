package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/canteen-backend/pkg/db/models"
	"github.com/angelmondragon/canteen-backend/pkg/pagination"
)

var lifecycleColumns = map[string]struct{}{
	"preparing_at": {},
	"ready_at":     {},
	"completed_at": {},
	"canceled_at":  {},
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// LockOrder reads the order FOR UPDATE with its lines.
func (r *repository) LockOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Where("order_id = ?", id).Order("created_at ASC").Find(&order.Lines).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("id = ?", id).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// SetLifecycleTime stamps a lifecycle column while the order is still open.
// It reports false when the order was already canceled or completed.
func (r *repository) SetLifecycleTime(ctx context.Context, id uuid.UUID, column string, at time.Time) (bool, error) {
	if _, ok := lifecycleColumns[column]; !ok {
		return false, fmt.Errorf("unknown lifecycle column %q", column)
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND canceled_at IS NULL AND completed_at IS NULL", id).
		Update(column, at)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// SiblingOrderIDs lists every order paid by the same PAYMENT transaction.
func (r *repository) SiblingOrderIDs(ctx context.Context, paymentTransactionID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("payment_transaction_id = ?", paymentTransactionID).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *repository) ListForAccount(ctx context.Context, accountID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.Order, *pagination.Cursor, error) {
	query := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("account_id = ?", accountID)

	var rows []models.Order
	if err := pagination.Seek(query, cursor, limit).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	page, next := pagination.Trim(rows, limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return page, next, nil
}
