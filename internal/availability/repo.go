package availability

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/canteen-backend/pkg/db/models"
)

// quantityRow aggregates committed or carted quantities for one commodity on
// a menu. Own is the share belonging to the requesting account.
type quantityRow struct {
	CommodityID uuid.UUID `gorm:"column:commodity_id"`
	Total       int64     `gorm:"column:total"`
	Own         int64     `gorm:"column:own"`
}

type repository struct {
	db *gorm.DB
}

func newRepository(session *gorm.DB) *repository {
	return &repository{db: session}
}

func (r *repository) findMenu(ctx context.Context, menuID uuid.UUID) (*models.Menu, error) {
	var menu models.Menu
	err := r.db.WithContext(ctx).Where("id = ?", menuID).First(&menu).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &menu, nil
}

// listings returns live listings of the menu whose commodity still exists.
// An empty id set selects every listing.
func (r *repository) listings(ctx context.Context, menuID uuid.UUID, commodityIDs []uuid.UUID) ([]models.CommodityOnMenu, error) {
	query := r.db.WithContext(ctx).
		Preload("Commodity").
		Where("menu_id = ?", menuID)
	if len(commodityIDs) > 0 {
		query = query.Where("commodity_id IN ?", commodityIDs)
	}
	var rows []models.CommodityOnMenu
	if err := query.Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	live := rows[:0]
	for _, row := range rows {
		if row.Commodity.ID == uuid.Nil {
			continue
		}
		live = append(live, row)
	}
	return live, nil
}

func (r *repository) orderedQuantities(ctx context.Context, menuID, accountID uuid.UUID) ([]quantityRow, error) {
	var rows []quantityRow
	err := r.db.WithContext(ctx).
		Table("order_lines AS ol").
		Select("ol.commodity_id AS commodity_id, "+
			"COALESCE(SUM(ol.quantity), 0) AS total, "+
			"COALESCE(SUM(CASE WHEN o.account_id = ? THEN ol.quantity ELSE 0 END), 0) AS own", accountID).
		Joins("JOIN orders o ON o.id = ol.order_id").
		Where("o.menu_id = ? AND o.canceled_at IS NULL", menuID).
		Group("ol.commodity_id").
		Scan(&rows).Error
	return rows, err
}

func (r *repository) cartQuantities(ctx context.Context, menuID, accountID uuid.UUID, exclude []uuid.UUID) ([]quantityRow, error) {
	query := r.db.WithContext(ctx).
		Table("cart_lines").
		Select("commodity_id, "+
			"COALESCE(SUM(quantity), 0) AS total, "+
			"COALESCE(SUM(CASE WHEN account_id = ? THEN quantity ELSE 0 END), 0) AS own", accountID).
		Where("menu_id = ? AND invalid = ?", menuID, false)
	if len(exclude) > 0 {
		query = query.Where("id NOT IN ?", exclude)
	}
	var rows []quantityRow
	err := query.Group("commodity_id").Scan(&rows).Error
	return rows, err
}
