package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/canteen-backend/api/controllers/dto"
	"github.com/angelmondragon/canteen-backend/api/middleware"
	"github.com/angelmondragon/canteen-backend/api/responses"
	"github.com/angelmondragon/canteen-backend/api/validators"
	"github.com/angelmondragon/canteen-backend/internal/menus"
	"github.com/angelmondragon/canteen-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/canteen-backend/pkg/errors"
	"github.com/angelmondragon/canteen-backend/pkg/logger"
	"github.com/angelmondragon/canteen-backend/pkg/types"
)

type menuCommodity struct {
	dto.Commodity
	Stock              types.Limit               `json:"stock"`
	PerUserLimit       types.Limit               `json:"per_user_limit"`
	MaxQuantity        int64                     `json:"max_quantity"`
	UnavailableReasons []enums.UnavailableReason `json:"unavailable_reasons"`
}

type menuResponse struct {
	ID                 uuid.UUID                 `json:"id"`
	Kind               enums.MenuKind            `json:"kind"`
	Name               string                    `json:"name"`
	Description        *string                   `json:"description,omitempty"`
	Date               *string                   `json:"date,omitempty"`
	PublishedAt        *time.Time                `json:"published_at,omitempty"`
	ClosedAt           *time.Time                `json:"closed_at,omitempty"`
	PerUserLimit       types.Limit               `json:"per_user_limit"`
	MaxQuantity        int64                     `json:"max_quantity"`
	UnavailableReasons []enums.UnavailableReason `json:"unavailable_reasons"`
	Commodities        []menuCommodity           `json:"commodities"`
}

// MenuByID returns one menu with availability for the caller.
func MenuByID(svc menus.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := middleware.RequireAccount(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		menuID, err := validators.ParseUUIDParam(r, "menuId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeMenu(w, r, svc, logg, menus.Query{AccountID: accountID, MenuID: menuID})
	}
}

// MenuByKind resolves a menu from ?kind= and, for reservation kinds, ?date=.
func MenuByKind(svc menus.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := middleware.RequireAccount(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		kind, err := enums.ParseMenuKind(strings.TrimSpace(r.URL.Query().Get("kind")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid menu kind"))
			return
		}
		date, err := validators.ParseQueryDate(r, "date")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeMenu(w, r, svc, logg, menus.Query{AccountID: accountID, Kind: kind, Date: date})
	}
}

func writeMenu(w http.ResponseWriter, r *http.Request, svc menus.Service, logg *logger.Logger, query menus.Query) {
	if svc == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "menu service unavailable"))
		return
	}
	view, err := svc.GetWithAvailability(r.Context(), query)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteSuccess(w, newMenuResponse(view))
}

func newMenuResponse(view *menus.View) menuResponse {
	out := menuResponse{
		ID:                 view.Menu.ID,
		Kind:               view.Menu.Kind,
		Name:               view.Menu.Name,
		Description:        view.Menu.Description,
		PublishedAt:        view.Menu.PublishedAt,
		ClosedAt:           view.Menu.ClosedAt,
		PerUserLimit:       view.Menu.UserLimit(),
		MaxQuantity:        view.MaxQuantity,
		UnavailableReasons: dto.Reasons(view.Reasons),
		Commodities:        make([]menuCommodity, 0, len(view.Commodities)),
	}
	if view.Menu.Date != nil {
		day := view.Menu.Date.UTC().Format("2006-01-02")
		out.Date = &day
	}
	for _, c := range view.Commodities {
		out.Commodities = append(out.Commodities, menuCommodity{
			Commodity:          dto.NewCommodity(c.Commodity),
			Stock:              types.LimitFromColumn(c.Stock),
			PerUserLimit:       types.LimitFromColumn(c.PerUserLimit),
			MaxQuantity:        c.MaxQuantity,
			UnavailableReasons: dto.Reasons(c.Reasons),
		})
	}
	return out
}
