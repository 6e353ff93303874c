package controllers

import (
	"net/http"

	"github.com/angelmondragon/canteen-backend/api/controllers/dto"
	"github.com/angelmondragon/canteen-backend/api/middleware"
	"github.com/angelmondragon/canteen-backend/api/responses"
	"github.com/angelmondragon/canteen-backend/internal/accounts"
	pkgerrors "github.com/angelmondragon/canteen-backend/pkg/errors"
	"github.com/angelmondragon/canteen-backend/pkg/logger"
)

type meResponse struct {
	dto.Account
	PointsCredited int64 `json:"points_credited"`
}

// Me returns the caller's account. Reading it settles any daily point
// accrual that is due.
func Me(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "account service unavailable"))
			return
		}
		accountID, err := middleware.RequireAccount(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Get(r.Context(), accountID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, meResponse{Account: dto.NewAccount(view.Account), PointsCredited: view.Credited})
	}
}
