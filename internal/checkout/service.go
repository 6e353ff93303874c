package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/canteen-backend/internal/availability"
	"github.com/angelmondragon/canteen-backend/internal/cart"
	"github.com/angelmondragon/canteen-backend/internal/checkout/helpers"
	"github.com/angelmondragon/canteen-backend/internal/ledger"
	"github.com/angelmondragon/canteen-backend/pkg/db/models"
	"github.com/angelmondragon/canteen-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/canteen-backend/pkg/errors"
	"github.com/angelmondragon/canteen-backend/pkg/logger"
	"github.com/angelmondragon/canteen-backend/pkg/outbox"
	"github.com/angelmondragon/canteen-backend/pkg/outbox/payloads"
)

// MessageCartEmpty is returned when no valid line is left to buy.
const MessageCartEmpty = "cart-empty"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartReconciler interface {
	Reconcile(ctx context.Context, tx *gorm.DB, accountID uuid.UUID) (*cart.ListResult, error)
	Clear(ctx context.Context, tx *gorm.DB, accountID uuid.UUID) error
}

type charger interface {
	Charge(ctx context.Context, tx *gorm.DB, input ledger.ChargeInput) (*models.LedgerTransaction, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type orderingMetrics interface {
	AddPlaced(n int)
	IncRejected(code string)
}

// Service executes checkout orchestration.
type Service interface {
	Checkout(ctx context.Context, accountID uuid.UUID) ([]models.Order, error)
}

type ServiceParams struct {
	Repo     Repository
	TxRunner txRunner
	Cart     cartReconciler
	Ledger   charger
	Outbox   outboxPublisher
	Metrics  orderingMetrics
	Logger   *logger.Logger
}

type service struct {
	repo    Repository
	tx      txRunner
	cart    cartReconciler
	ledger  charger
	outbox  outboxPublisher
	metrics orderingMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// NewService wires the checkout orchestration.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("checkout repository required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Cart == nil {
		return nil, fmt.Errorf("cart reconciler required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:    params.Repo,
		tx:      params.TxRunner,
		cart:    params.Cart,
		ledger:  params.Ledger,
		outbox:  params.Outbox,
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     time.Now,
	}, nil
}

// Checkout converts the account's valid cart lines into orders paid by one
// PAYMENT transaction. Nothing is written unless every step succeeds.
func (s *service) Checkout(ctx context.Context, accountID uuid.UUID) ([]models.Order, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}

	var result outcome
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		result, err = s.checkout(ctx, tx, accountID)
		return err
	})
	if err == nil {
		err = result.rejected
	}
	placed := result.orders
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "checkout")
		}
		if s.metrics != nil {
			s.metrics.IncRejected(string(pkgerrors.CodeOf(err)))
		}
		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"account_id": accountID.String(),
				"code":       string(pkgerrors.CodeOf(err)),
			})
			s.logg.Warn(logCtx, "checkout rejected")
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.AddPlaced(len(placed))
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"account_id":  accountID.String(),
			"order_count": len(placed),
		})
		s.logg.Info(logCtx, "checkout completed")
	}
	return placed, nil
}

// outcome carries either the placed orders or a rejection that is reported
// only after the reconciliation that produced it has been committed.
type outcome struct {
	orders   []models.Order
	rejected error
}

// checkout buys the valid lines left by the in-transaction reconciliation.
func (s *service) checkout(ctx context.Context, tx *gorm.DB, accountID uuid.UUID) (outcome, error) {
	reconciled, err := s.cart.Reconcile(ctx, tx, accountID)
	if err != nil {
		return outcome{}, err
	}
	if len(reconciled.ValidLines) == 0 {
		return outcome{rejected: rejectEmpty(reconciled)}, nil
	}
	orders, err := s.place(ctx, tx, accountID, reconciled.ValidLines)
	if err != nil {
		return outcome{}, err
	}
	return outcome{orders: orders}, nil
}

func (s *service) place(ctx context.Context, tx *gorm.DB, accountID uuid.UUID, lines []cart.Line) ([]models.Order, error) {
	total := helpers.ComputeTotal(lines)
	payment, err := s.ledger.Charge(ctx, tx, ledger.ChargeInput{AccountID: accountID, Amount: total})
	if err != nil {
		return nil, err
	}

	repo := s.repo.WithTx(tx)
	kinds, err := repo.MenuKinds(ctx, menuIDs(lines))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load menus")
	}

	placedAt := s.now().UTC()
	groups := helpers.GroupLinesForOrders(lines, kinds)
	orders := make([]models.Order, 0, len(groups))
	for _, group := range groups {
		if _, ok := kinds[group.MenuID]; !ok {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "menu vanished during checkout")
		}
		order := models.Order{
			AccountID:            accountID,
			MenuID:               group.MenuID,
			PaymentTransactionID: payment.ID,
			PlacedAt:             placedAt,
			Lines:                snapshot(group.Lines),
		}
		if err := repo.CreateOrder(ctx, &order); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{AccountID: accountID, Role: string(enums.AccountRoleUser)},
			Data: payloads.OrderPlaced{
				OrderID:              order.ID,
				AccountID:            accountID,
				MenuID:               order.MenuID,
				PaymentTransactionID: payment.ID,
				Total:                order.Total(),
				PlacedAt:             placedAt,
			},
			OccurredAt: placedAt,
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue order event")
		}
		orders = append(orders, order)
	}

	if err := s.cart.Clear(ctx, tx, accountID); err != nil {
		return nil, err
	}
	return orders, nil
}

// rejectEmpty explains why nothing could be bought. Lines invalidated by
// this reconciliation are reported as availability violations; a cart that
// was already empty or already invalid is cart-empty.
func rejectEmpty(result *cart.ListResult) error {
	var violations []availability.Violation
	for _, line := range result.InvalidLines {
		if len(line.Reasons) == 0 {
			continue
		}
		violations = append(violations, availability.Violation{
			MenuID:      line.MenuID,
			CommodityID: line.CommodityID,
			Requested:   line.Quantity,
			Reasons:     line.Reasons,
		})
	}
	if len(violations) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, MessageCartEmpty)
	}
	return availability.Reject(violations...)
}

func snapshot(lines []cart.Line) []models.OrderLine {
	out := make([]models.OrderLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, models.OrderLine{
			CommodityID: line.CommodityID,
			Name:        line.Commodity.Name,
			Description: line.Commodity.Description,
			UnitPrice:   line.Commodity.Price,
			Quantity:    line.Quantity,
			Options:     line.Options,
			ImageURL:    line.Commodity.ImageURL,
		})
	}
	return out
}

func menuIDs(lines []cart.Line) []uuid.UUID {
	seen := map[uuid.UUID]struct{}{}
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.MenuID]; ok {
			continue
		}
		seen[line.MenuID] = struct{}{}
		ids = append(ids, line.MenuID)
	}
	return ids
}
