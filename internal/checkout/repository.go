package checkout

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/canteen-backend/pkg/db/models"
	"github.com/angelmondragon/canteen-backend/pkg/enums"
)

// Repository persists orders created by checkout.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	MenuKinds(ctx context.Context, menuIDs []uuid.UUID) (map[uuid.UUID]enums.MenuKind, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a checkout repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// CreateOrder inserts the order together with its line snapshots.
func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// MenuKinds includes soft-deleted menus; a missing entry means the menu row is gone.
func (r *repository) MenuKinds(ctx context.Context, menuIDs []uuid.UUID) (map[uuid.UUID]enums.MenuKind, error) {
	out := make(map[uuid.UUID]enums.MenuKind, len(menuIDs))
	if len(menuIDs) == 0 {
		return out, nil
	}
	var menus []models.Menu
	if err := r.db.WithContext(ctx).Unscoped().Select("id", "kind").Where("id IN ?", menuIDs).Find(&menus).Error; err != nil {
		return nil, err
	}
	for _, menu := range menus {
		out[menu.ID] = menu.Kind
	}
	return out, nil
}
