// Package menus serves menus annotated with what the reading account can
// still buy from them.
package menus

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/canteen-backend/internal/availability"
	"github.com/angelmondragon/canteen-backend/pkg/db/models"
	"github.com/angelmondragon/canteen-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/canteen-backend/pkg/errors"
)

type calculator interface {
	Calculate(ctx context.Context, session *gorm.DB, req availability.Request) (*availability.Result, error)
}

// Query selects a menu by id, or by kind plus a date for reservation menus.
type Query struct {
	AccountID uuid.UUID
	MenuID    uuid.UUID
	Kind      enums.MenuKind
	Date      *time.Time
}

// CommodityView is a listed commodity with the reading account's maximum.
type CommodityView struct {
	Commodity    models.Commodity
	Stock        int64
	PerUserLimit int64
	MaxQuantity  int64
	Reasons      []enums.UnavailableReason
}

// View is a menu with menu-level and per-commodity availability.
type View struct {
	Menu        models.Menu
	MaxQuantity int64
	Reasons     []enums.UnavailableReason
	Commodities []CommodityView
}

type Service interface {
	GetWithAvailability(ctx context.Context, query Query) (*View, error)
}

type service struct {
	db   *gorm.DB
	repo Repository
	calc calculator
}

// NewService reads menus through db outside any transaction.
func NewService(db *gorm.DB, repo Repository, calc calculator) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("database required")
	}
	if repo == nil {
		return nil, fmt.Errorf("menus repository required")
	}
	if calc == nil {
		return nil, fmt.Errorf("availability calculator required")
	}
	return &service{db: db, repo: repo, calc: calc}, nil
}

func (s *service) GetWithAvailability(ctx context.Context, query Query) (*View, error) {
	if query.AccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}

	id := query.MenuID
	if id == uuid.Nil {
		resolved, err := s.resolve(ctx, query)
		if err != nil {
			return nil, err
		}
		id = resolved
	}

	result, err := s.calc.Calculate(ctx, s.db, availability.Request{MenuID: id, AccountID: query.AccountID})
	if err != nil {
		return nil, err
	}

	view := &View{
		Menu:        result.Menu,
		MaxQuantity: result.MaxQuantity,
		Reasons:     result.Reasons,
		Commodities: make([]CommodityView, 0, len(result.Commodities)),
	}
	for _, c := range result.Listed() {
		view.Commodities = append(view.Commodities, CommodityView{
			Commodity:    c.Listing.Commodity,
			Stock:        c.Listing.Stock,
			PerUserLimit: c.Listing.PerUserLimit,
			MaxQuantity:  c.MaxQuantity,
			Reasons:      c.Reasons,
		})
	}
	return view, nil
}

func (s *service) resolve(ctx context.Context, query Query) (uuid.UUID, error) {
	if query.Kind == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "menu id or kind is required")
	}
	if query.Kind.IsDated() && query.Date == nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "date is required for "+string(query.Kind)+" menus")
	}
	if !query.Kind.IsDated() && query.Date != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, string(query.Kind)+" menus are not dated")
	}

	menu, err := s.repo.FindByKind(ctx, query.Kind, query.Date)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find menu")
	}
	if menu == nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, "menu not found")
	}
	return menu.ID, nil
}
