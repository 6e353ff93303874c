package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/canteen-backend/pkg/db/models"
)

// CartRepository defines the persistence surface required by the cart service.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	ListForAccount(ctx context.Context, accountID uuid.UUID) ([]models.CartLine, error)
	FindByKey(ctx context.Context, accountID uuid.UUID, key LineKey) (*models.CartLine, error)
	Create(ctx context.Context, line *models.CartLine) error
	Save(ctx context.Context, line *models.CartLine) error
	SetQuantity(ctx context.Context, id uuid.UUID, quantity int64) error
	MarkInvalid(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteForAccount(ctx context.Context, accountID uuid.UUID) (int64, error)
	FindCommodity(ctx context.Context, id uuid.UUID) (*models.Commodity, error)
	CommoditiesByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Commodity, error)
}

// LineKey identifies a cart line of an account.
type LineKey struct {
	MenuID      uuid.UUID
	CommodityID uuid.UUID
	Fingerprint string
}
