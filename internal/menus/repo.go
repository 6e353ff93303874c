package menus

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/canteen-backend/pkg/db/models"
	"github.com/angelmondragon/canteen-backend/pkg/enums"
)

// Repository resolves menus by kind and date.
type Repository interface {
	FindByKind(ctx context.Context, kind enums.MenuKind, date *time.Time) (*models.Menu, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// FindByKind returns the reservation menu of the given day, or the newest
// menu of an undated kind. Returns nil when none exists.
func (r *repository) FindByKind(ctx context.Context, kind enums.MenuKind, date *time.Time) (*models.Menu, error) {
	query := r.db.WithContext(ctx).Where("kind = ?", kind)
	if date != nil {
		start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
		query = query.Where("date >= ? AND date < ?", start, start.AddDate(0, 0, 1))
	}

	var menu models.Menu
	err := query.Order("created_at DESC").Order("id DESC").First(&menu).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &menu, nil
}
