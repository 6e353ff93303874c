package accounts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/canteen-backend/internal/ledger"
	"github.com/angelmondragon/canteen-backend/pkg/calendar"
	"github.com/angelmondragon/canteen-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/canteen-backend/pkg/errors"
	"github.com/angelmondragon/canteen-backend/pkg/logger"
)

const accrualNote = "daily point accrual"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type recharger interface {
	Recharge(ctx context.Context, tx *gorm.DB, input ledger.RechargeInput) (*models.LedgerTransaction, error)
}

// View is the account as returned by the read path, after accrual.
type View struct {
	Account models.Account
	// Credited is the signed point change applied by this read.
	Credited int64
}

// Service is the account read path.
type Service interface {
	Get(ctx context.Context, accountID uuid.UUID) (*View, error)
}

type ServiceParams struct {
	Repo        Repository
	TxRunner    txRunner
	Ledger      recharger
	Calendar    *calendar.Calendar
	DailyAmount int64
	// Location is used for accounts without a zone of their own.
	Location *time.Location
	Logger   *logger.Logger
}

type service struct {
	repo     Repository
	tx       txRunner
	ledger   recharger
	calendar *calendar.Calendar
	daily    int64
	loc      *time.Location
	logg     *logger.Logger
	now      func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("accounts repository required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger required")
	}
	if params.DailyAmount < 0 {
		return nil, fmt.Errorf("daily point amount must not be negative")
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	return &service{
		repo:     params.Repo,
		tx:       params.TxRunner,
		ledger:   params.Ledger,
		calendar: params.Calendar,
		daily:    params.DailyAmount,
		loc:      loc,
		logg:     params.Logger,
		now:      time.Now,
	}, nil
}

// Get locks the account, credits the points accrued since the last
// replenishment and stamps the replenishment time, all in one transaction.
func (s *service) Get(ctx context.Context, accountID uuid.UUID) (*View, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}

	var view *View
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		acct, err := repo.LockAccount(ctx, accountID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock account")
		}
		if acct == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}

		now := s.now().UTC()
		loc := s.location(ctx, acct)
		last := acct.CreatedAt
		if acct.LastPointReplenishAt != nil {
			last = *acct.LastPointReplenishAt
		}
		view = &View{Account: *acct}
		if SameDay(last, now, loc) {
			return nil
		}

		accrual := Accrue(last, now, loc, s.daily, s.calendar)
		delta := accrual.Amount
		if accrual.Reset {
			delta = accrual.Amount - acct.PointBalance
		}
		if delta != 0 {
			if _, err := s.ledger.Recharge(ctx, tx, ledger.RechargeInput{
				AccountID:  acct.ID,
				PointDelta: delta,
				Note:       accrualNote,
			}); err != nil {
				return err
			}
			view.Account.PointBalance += delta
			view.Credited = delta
		}

		if err := repo.MarkReplenished(ctx, acct.ID, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record replenishment")
		}
		view.Account.LastPointReplenishAt = &now

		if s.logg != nil && delta != 0 {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"account_id": acct.ID.String(),
				"workdays":   accrual.Workdays,
				"delta":      delta,
				"reset":      accrual.Reset,
			})
			s.logg.Info(logCtx, "points accrued")
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read account")
	}
	return view, nil
}

func (s *service) location(ctx context.Context, acct *models.Account) *time.Location {
	if acct.TimeZone == nil || strings.TrimSpace(*acct.TimeZone) == "" {
		return s.loc
	}
	loc, err := time.LoadLocation(strings.TrimSpace(*acct.TimeZone))
	if err != nil {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "time_zone", *acct.TimeZone), "unknown account time zone, using default")
		}
		return s.loc
	}
	return loc
}
