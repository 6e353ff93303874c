package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/canteen-backend/pkg/db/models"
)

// Repository exposes persistence operations for cart lines.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// ListForAccount returns every line of the account, oldest first.
func (r *Repository) ListForAccount(ctx context.Context, accountID uuid.UUID) ([]models.CartLine, error) {
	var lines []models.CartLine
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at ASC, id ASC").
		Find(&lines).Error
	return lines, err
}

// FindByKey returns nil when the account has no line under the key.
func (r *Repository) FindByKey(ctx context.Context, accountID uuid.UUID, key LineKey) (*models.CartLine, error) {
	var line models.CartLine
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND menu_id = ? AND commodity_id = ? AND options_fingerprint = ?",
			accountID, key.MenuID, key.CommodityID, key.Fingerprint).
		First(&line).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &line, nil
}

func (r *Repository) Create(ctx context.Context, line *models.CartLine) error {
	return r.db.WithContext(ctx).Create(line).Error
}

func (r *Repository) Save(ctx context.Context, line *models.CartLine) error {
	return r.db.WithContext(ctx).Save(line).Error
}

func (r *Repository) SetQuantity(ctx context.Context, id uuid.UUID, quantity int64) error {
	return r.db.WithContext(ctx).
		Model(&models.CartLine{}).
		Where("id = ?", id).
		Update("quantity", quantity).Error
}

func (r *Repository) MarkInvalid(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.CartLine{}).
		Where("id = ?", id).
		Update("invalid", true).Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.CartLine{}).Error
}

// DeleteForAccount empties the cart, valid and invalid lines alike.
func (r *Repository) DeleteForAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Where("account_id = ?", accountID).Delete(&models.CartLine{})
	return res.RowsAffected, res.Error
}

// FindCommodity returns nil for missing or deleted commodities.
func (r *Repository) FindCommodity(ctx context.Context, id uuid.UUID) (*models.Commodity, error) {
	var commodity models.Commodity
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&commodity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &commodity, nil
}

// CommoditiesByID includes deleted commodities so invalid lines still render.
func (r *Repository) CommoditiesByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Commodity, error) {
	out := make(map[uuid.UUID]models.Commodity, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Commodity
	if err := r.db.WithContext(ctx).Unscoped().Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}
