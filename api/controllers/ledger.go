package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/canteen-backend/api/controllers/dto"
	"github.com/angelmondragon/canteen-backend/api/middleware"
	"github.com/angelmondragon/canteen-backend/api/responses"
	"github.com/angelmondragon/canteen-backend/api/validators"
	"github.com/angelmondragon/canteen-backend/internal/ledger"
	pkgerrors "github.com/angelmondragon/canteen-backend/pkg/errors"
	"github.com/angelmondragon/canteen-backend/pkg/logger"
	"github.com/angelmondragon/canteen-backend/pkg/pagination"
)

type ledgerPage struct {
	Items  []dto.LedgerTransaction `json:"items"`
	Cursor string                  `json:"cursor,omitempty"`
}

type rechargeRequest struct {
	AccountID        uuid.UUID `json:"account_id" validate:"required"`
	PointDelta       int64     `json:"point_delta"`
	CreditDelta      int64     `json:"credit_delta"`
	DepositReference string    `json:"deposit_reference" validate:"max=128"`
	Note             string    `json:"note" validate:"max=512"`
}

// LedgerTransactions pages the caller's transactions, newest first. Staff may
// read another account through ?account_id=.
func LedgerTransactions(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}
		accountID, err := middleware.RequireAccount(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		target, err := validators.ParseQueryUUID(r, "account_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if target != nil && *target != accountID {
			if !middleware.IsStaff(r.Context()) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "only staff may read other accounts"))
				return
			}
			accountID = *target
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListTransactions(r.Context(), accountID, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := ledgerPage{Items: make([]dto.LedgerTransaction, 0, len(page.Items)), Cursor: page.Cursor}
		for _, txn := range page.Items {
			out.Items = append(out.Items, dto.NewLedgerTransaction(txn))
		}
		responses.WriteSuccess(w, out)
	}
}

// StaffRecharge settles a deposit (or a correction) onto an account.
func StaffRecharge(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}
		var payload rechargeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		txn, err := svc.Deposit(r.Context(), ledger.RechargeInput{
			AccountID:        payload.AccountID,
			PointDelta:       payload.PointDelta,
			CreditDelta:      payload.CreditDelta,
			DepositReference: strings.TrimSpace(payload.DepositReference),
			Note:             strings.TrimSpace(payload.Note),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, dto.NewLedgerTransaction(*txn))
	}
}
