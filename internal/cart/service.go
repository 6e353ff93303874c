package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/canteen-backend/internal/availability"
	"github.com/angelmondragon/canteen-backend/pkg/db"
	"github.com/angelmondragon/canteen-backend/pkg/db/models"
	"github.com/angelmondragon/canteen-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/canteen-backend/pkg/errors"
	"github.com/angelmondragon/canteen-backend/pkg/logger"
	"github.com/angelmondragon/canteen-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type availabilityCalculator interface {
	Calculate(ctx context.Context, session *gorm.DB, req availability.Request) (*availability.Result, error)
}

// Service exposes cart operations. Every mutation validates availability in
// the same transaction that writes the line.
type Service interface {
	List(ctx context.Context, accountID uuid.UUID) (*ListResult, error)
	Reconcile(ctx context.Context, tx *gorm.DB, accountID uuid.UUID) (*ListResult, error)
	AddOrUpdate(ctx context.Context, accountID uuid.UUID, input LineInput) (*models.CartLine, error)
	Update(ctx context.Context, accountID uuid.UUID, input UpdateLineInput) (*models.CartLine, error)
	Delete(ctx context.Context, accountID uuid.UUID, key LineKey) error
	Clear(ctx context.Context, tx *gorm.DB, accountID uuid.UUID) error
}

// LineInput adds Quantity units of a commodity with the given options.
type LineInput struct {
	MenuID      uuid.UUID
	CommodityID uuid.UUID
	Quantity    int64
	Options     types.OptionSelections
}

// UpdateLineInput replaces the line stored under PreviousFingerprint.
type UpdateLineInput struct {
	MenuID              uuid.UUID
	CommodityID         uuid.UUID
	PreviousFingerprint string
	Quantity            int64
	Options             types.OptionSelections
}

// Line is a cart line joined with its commodity. Reasons explain why the
// line was invalidated or shrunk; PreviousQuantity is set when it shrank.
type Line struct {
	models.CartLine
	Commodity        models.Commodity
	MaxQuantity      int64
	Reasons          []enums.UnavailableReason
	PreviousQuantity int64
}

// Shrunk reports whether reconciliation reduced the quantity.
func (l Line) Shrunk() bool {
	return l.PreviousQuantity > l.Quantity
}

// Subtotal prices the line at the commodity's current price.
func (l Line) Subtotal() int64 {
	return l.Commodity.Price * l.Quantity
}

// ListResult splits the cart after reconciliation.
type ListResult struct {
	ValidLines   []Line
	InvalidLines []Line
	WasModified  bool
}

type service struct {
	repo CartRepository
	tx   txRunner
	calc availabilityCalculator
	logg *logger.Logger
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo CartRepository, tx txRunner, calc availabilityCalculator, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if calc == nil {
		return nil, fmt.Errorf("availability calculator required")
	}
	return &service{repo: repo, tx: tx, calc: calc, logg: logg}, nil
}

func (s *service) List(ctx context.Context, accountID uuid.UUID) (*ListResult, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	var out *ListResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		result, err := s.Reconcile(ctx, tx, accountID)
		if err != nil {
			return err
		}
		out = result
		return nil
	})
	if err != nil {
		return nil, storeError(err, "list cart")
	}
	return out, nil
}

// Reconcile revalidates every live line. Lines that can no longer be bought
// are flagged invalid and lines above their maximum shrink to it; quantities
// never grow.
func (s *service) Reconcile(ctx context.Context, tx *gorm.DB, accountID uuid.UUID) (*ListResult, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "reconcile requires a transaction")
	}
	repo := s.repo.WithTx(tx)
	lines, err := repo.ListForAccount(ctx, accountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart lines")
	}
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.CommodityID)
	}
	commodities, err := repo.CommoditiesByID(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load commodities")
	}

	result := &ListResult{}
	for _, line := range lines {
		view := Line{CartLine: line, Commodity: commodities[line.CommodityID]}
		if line.Invalid {
			result.InvalidLines = append(result.InvalidLines, view)
			continue
		}

		verdict, err := s.evaluate(ctx, tx, accountID, line)
		if err != nil {
			return nil, err
		}
		reasons, maxQty := verdict.reasons, verdict.maxQuantity
		if len(reasons) > 0 {
			if err := repo.MarkInvalid(ctx, line.ID); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "invalidate cart line")
			}
			view.Invalid = true
			view.Reasons = reasons
			result.InvalidLines = append(result.InvalidLines, view)
			result.WasModified = true
			continue
		}
		if line.Quantity > maxQty {
			if err := repo.SetQuantity(ctx, line.ID, maxQty); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "shrink cart line")
			}
			view.PreviousQuantity = line.Quantity
			view.Quantity = maxQty
			view.Reasons = verdict.overflow
			result.WasModified = true
		}
		view.MaxQuantity = maxQty
		result.ValidLines = append(result.ValidLines, view)
	}

	if result.WasModified && s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"account_id":    accountID.String(),
			"invalid_lines": len(result.InvalidLines),
		})
		s.logg.Info(logCtx, "cart reconciled with changes")
	}
	return result, nil
}

type lineVerdict struct {
	reasons     []enums.UnavailableReason
	maxQuantity int64
	overflow    []enums.UnavailableReason
}

// evaluate computes availability for a line as if it were not in the cart.
func (s *service) evaluate(ctx context.Context, tx *gorm.DB, accountID uuid.UUID, line models.CartLine) (lineVerdict, error) {
	avail, err := s.calc.Calculate(ctx, tx, availability.Request{
		MenuID:             line.MenuID,
		AccountID:          accountID,
		CommodityIDs:       []uuid.UUID{line.CommodityID},
		ExcludeCartLineIDs: []uuid.UUID{line.ID},
	})
	if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		return lineVerdict{reasons: []enums.UnavailableReason{enums.ReasonNotListed}}, nil
	}
	if err != nil {
		return lineVerdict{}, err
	}
	if reasons := avail.Explain(line.CommodityID, 1); len(reasons) > 0 {
		return lineVerdict{reasons: reasons}, nil
	}
	c, _ := avail.Lookup(line.CommodityID)
	return lineVerdict{
		maxQuantity: c.MaxQuantity,
		overflow:    avail.Explain(line.CommodityID, line.Quantity),
	}, nil
}

func (s *service) AddOrUpdate(ctx context.Context, accountID uuid.UUID, input LineInput) (*models.CartLine, error) {
	if accountID == uuid.Nil || input.MenuID == uuid.Nil || input.CommodityID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account, menu and commodity ids are required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	var out *models.CartLine
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		selections, err := s.validateOptions(ctx, repo, input.CommodityID, input.Options)
		if err != nil {
			return err
		}
		key := LineKey{MenuID: input.MenuID, CommodityID: input.CommodityID, Fingerprint: selections.Fingerprint()}
		existing, err := repo.FindByKey(ctx, accountID, key)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart line")
		}

		desired := input.Quantity
		var exclude []uuid.UUID
		if existing != nil {
			exclude = append(exclude, existing.ID)
			if !existing.Invalid {
				desired += existing.Quantity
			}
		}
		if err := s.check(ctx, tx, accountID, input.MenuID, input.CommodityID, desired, exclude); err != nil {
			return err
		}

		line, err := s.write(ctx, repo, accountID, key, existing, desired, selections)
		if err != nil {
			return err
		}
		out = line
		return nil
	})
	if err != nil {
		return nil, storeError(err, "add cart line")
	}
	return out, nil
}

func (s *service) Update(ctx context.Context, accountID uuid.UUID, input UpdateLineInput) (*models.CartLine, error) {
	if accountID == uuid.Nil || input.MenuID == uuid.Nil || input.CommodityID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account, menu and commodity ids are required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	var out *models.CartLine
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		previous, err := repo.FindByKey(ctx, accountID, LineKey{
			MenuID:      input.MenuID,
			CommodityID: input.CommodityID,
			Fingerprint: input.PreviousFingerprint,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart line")
		}
		if previous == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
		}

		selections, err := s.validateOptions(ctx, repo, input.CommodityID, input.Options)
		if err != nil {
			return err
		}
		key := LineKey{MenuID: input.MenuID, CommodityID: input.CommodityID, Fingerprint: selections.Fingerprint()}

		target := previous
		desired := input.Quantity
		exclude := []uuid.UUID{previous.ID}
		if key.Fingerprint != previous.OptionsFingerprint {
			collision, err := repo.FindByKey(ctx, accountID, key)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart line")
			}
			target = collision
			if collision != nil {
				exclude = append(exclude, collision.ID)
				if !collision.Invalid {
					desired += collision.Quantity
				}
			}
		}
		if err := s.check(ctx, tx, accountID, input.MenuID, input.CommodityID, desired, exclude); err != nil {
			return err
		}

		if target != previous {
			if err := repo.Delete(ctx, previous.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove previous cart line")
			}
		}
		line, err := s.write(ctx, repo, accountID, key, target, desired, selections)
		if err != nil {
			return err
		}
		out = line
		return nil
	})
	if err != nil {
		return nil, storeError(err, "update cart line")
	}
	return out, nil
}

func (s *service) Delete(ctx context.Context, accountID uuid.UUID, key LineKey) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		line, err := repo.FindByKey(ctx, accountID, key)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart line")
		}
		if line == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
		}
		if err := repo.Delete(ctx, line.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart line")
		}
		return nil
	})
	return storeError(err, "delete cart line")
}

// Clear removes every line of the account inside the caller's transaction.
func (s *service) Clear(ctx context.Context, tx *gorm.DB, accountID uuid.UUID) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "clear requires a transaction")
	}
	if _, err := s.repo.WithTx(tx).DeleteForAccount(ctx, accountID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

func (s *service) validateOptions(ctx context.Context, repo CartRepository, commodityID uuid.UUID, options types.OptionSelections) (types.OptionSelections, error) {
	commodity, err := repo.FindCommodity(ctx, commodityID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load commodity")
	}
	if commodity == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "commodity not found")
	}
	groups, err := commodity.Groups()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode option groups")
	}
	selections, err := options.Validate(groups)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}
	return selections, nil
}

func (s *service) check(ctx context.Context, tx *gorm.DB, accountID, menuID, commodityID uuid.UUID, quantity int64, exclude []uuid.UUID) error {
	avail, err := s.calc.Calculate(ctx, tx, availability.Request{
		MenuID:             menuID,
		AccountID:          accountID,
		CommodityIDs:       []uuid.UUID{commodityID},
		ExcludeCartLineIDs: exclude,
	})
	if err != nil {
		return err
	}
	return avail.Check(commodityID, quantity)
}

// write updates existing in place or inserts a new line under key.
func (s *service) write(ctx context.Context, repo CartRepository, accountID uuid.UUID, key LineKey, existing *models.CartLine, quantity int64, selections types.OptionSelections) (*models.CartLine, error) {
	line := existing
	if line == nil {
		line = &models.CartLine{
			AccountID:   accountID,
			MenuID:      key.MenuID,
			CommodityID: key.CommodityID,
		}
	}
	if err := line.SetSelections(selections); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode selections")
	}
	line.Quantity = quantity
	line.Invalid = false

	if existing == nil {
		if err := repo.Create(ctx, line); err != nil {
			if db.IsUniqueViolation(err, "") {
				return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "cart line changed concurrently")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart line")
		}
		return line, nil
	}
	if err := repo.Save(ctx, line); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart line")
	}
	return line, nil
}

func storeError(err error, msg string) error {
	if err == nil {
		return nil
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
