package orders

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/canteen-backend/api/controllers/dto"
	"github.com/angelmondragon/canteen-backend/api/middleware"
	"github.com/angelmondragon/canteen-backend/api/responses"
	"github.com/angelmondragon/canteen-backend/api/validators"
	checkoutsvc "github.com/angelmondragon/canteen-backend/internal/checkout"
	internalorders "github.com/angelmondragon/canteen-backend/internal/orders"
	"github.com/angelmondragon/canteen-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/canteen-backend/pkg/errors"
	"github.com/angelmondragon/canteen-backend/pkg/logger"
	"github.com/angelmondragon/canteen-backend/pkg/pagination"
)

type orderPage struct {
	Orders []dto.Order `json:"orders"`
	Cursor string      `json:"cursor,omitempty"`
}

type cancelResponse struct {
	Order  dto.Order      `json:"order"`
	Refund refundResponse `json:"refund"`
}

type refundResponse struct {
	Point  int64 `json:"point"`
	Credit int64 `json:"credit"`
	Total  int64 `json:"total"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=preparing ready completed"`
}

// Checkout converts the caller's cart into one order per menu.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		accountID, err := middleware.RequireAccount(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		placed, err := svc.Checkout(r.Context(), accountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, dto.NewOrders(placed))
	}
}

// List pages the caller's orders, newest first.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		accountID, err := middleware.RequireAccount(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListForAccount(r.Context(), accountID, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orderPage{Orders: dto.NewOrders(list.Orders), Cursor: list.Cursor})
	}
}

// Detail returns one order. Non-staff callers only see their own.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		requester, orderID, err := requesterAndOrder(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID, requester)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto.NewOrder(*order))
	}
}

// Cancel cancels one of the caller's orders and refunds it.
func Cancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		accountID, err := middleware.RequireAccount(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCancel(w, r, svc, logg, orderID, &accountID)
	}
}

// StaffCancel cancels any order on behalf of its owner.
func StaffCancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCancel(w, r, svc, logg, orderID, nil)
	}
}

// StaffAdvance moves an order forward through the kitchen lifecycle.
func StaffAdvance(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload statusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		next, err := enums.ParseOrderStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		order, err := svc.Advance(r.Context(), orderID, next)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto.NewOrder(*order))
	}
}

func writeCancel(w http.ResponseWriter, r *http.Request, svc internalorders.Service, logg *logger.Logger, orderID uuid.UUID, requester *uuid.UUID) {
	result, err := svc.Cancel(r.Context(), orderID, requester)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	responses.WriteSuccess(w, cancelResponse{
		Order: dto.NewOrder(*result.Order),
		Refund: refundResponse{
			Point:  result.Refund.Point,
			Credit: result.Refund.Credit,
			Total:  result.Refund.Total(),
		},
	})
}

// requesterAndOrder scopes reads to the caller unless the caller is staff.
func requesterAndOrder(r *http.Request) (*uuid.UUID, uuid.UUID, error) {
	accountID, err := middleware.RequireAccount(r.Context())
	if err != nil {
		return nil, uuid.Nil, err
	}
	orderID, err := validators.ParseUUIDParam(r, "orderId")
	if err != nil {
		return nil, uuid.Nil, err
	}
	if middleware.IsStaff(r.Context()) {
		return nil, orderID, nil
	}
	return &accountID, orderID, nil
}
