package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/canteen-backend/internal/ledger"
	"github.com/angelmondragon/canteen-backend/pkg/db/models"
	"github.com/angelmondragon/canteen-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/canteen-backend/pkg/errors"
	"github.com/angelmondragon/canteen-backend/pkg/logger"
	"github.com/angelmondragon/canteen-backend/pkg/outbox"
	"github.com/angelmondragon/canteen-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/canteen-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type refundLedger interface {
	FindTransaction(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.LedgerTransaction, error)
	ListRefundsForOrders(ctx context.Context, tx *gorm.DB, orderIDs []uuid.UUID) ([]models.LedgerTransaction, error)
	Refund(ctx context.Context, tx *gorm.DB, input ledger.RefundInput) (*models.LedgerTransaction, error)
}

type cancelMetrics interface {
	IncCanceled()
}

// Service manages the order lifecycle after checkout.
type Service interface {
	Cancel(ctx context.Context, orderID uuid.UUID, requester *uuid.UUID) (*CancelResult, error)
	Advance(ctx context.Context, orderID uuid.UUID, next enums.OrderStatus) (*models.Order, error)
	Get(ctx context.Context, orderID uuid.UUID, requester *uuid.UUID) (*models.Order, error)
	ListForAccount(ctx context.Context, accountID uuid.UUID, params pagination.Params) (*OrderList, error)
}

type ServiceParams struct {
	Repo     Repository
	TxRunner txRunner
	Ledger   refundLedger
	Outbox   outboxPublisher
	Metrics  cancelMetrics
	Logger   *logger.Logger
}

type service struct {
	repo    Repository
	tx      txRunner
	ledger  refundLedger
	outbox  outboxPublisher
	metrics cancelMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds the order lifecycle service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
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
		ledger:  params.Ledger,
		outbox:  params.Outbox,
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     time.Now,
	}, nil
}

// Cancel marks the order canceled and refunds what is left of its payment,
// credit first. requester restricts the cancel to the order's owner; staff
// pass nil.
func (s *service) Cancel(ctx context.Context, orderID uuid.UUID, requester *uuid.UUID) (*CancelResult, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	var result *CancelResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.LockOrder(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
		}
		if order == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if requester != nil && order.AccountID != *requester {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another account")
		}
		if order.Status().IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is already "+order.Status().String()).
				WithDetails(map[string]string{"status": order.Status().String()})
		}

		now := s.now().UTC()
		updated, err := repo.SetLifecycleTime(ctx, order.ID, "canceled_at", now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}
		if !updated {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order changed concurrently")
		}
		order.CanceledAt = &now

		refund, refundTxn, err := s.refund(ctx, tx, repo, order)
		if err != nil {
			return err
		}

		var refundID *uuid.UUID
		if refundTxn != nil {
			refundID = &refundTxn.ID
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCanceled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actor(requester),
			Data: payloads.OrderCanceled{
				OrderID:             order.ID,
				AccountID:           order.AccountID,
				RefundTransactionID: refundID,
				PointRefund:         refund.Point,
				CreditRefund:        refund.Credit,
				CanceledAt:          now,
			},
			OccurredAt: now,
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue cancel event")
		}
		result = &CancelResult{Order: order, Refund: refund}
		return nil
	})
	if err != nil {
		return nil, storeError(err, "cancel order")
	}

	if s.metrics != nil {
		s.metrics.IncCanceled()
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id":      orderID.String(),
			"point_refund":  result.Refund.Point,
			"credit_refund": result.Refund.Credit,
		})
		s.logg.Info(logCtx, "order canceled")
	}
	return result, nil
}

// refund allocates min(remaining credit, order total) and then points up to
// the rest of the order total, where remaining is the payment minus every
// refund already issued against its sibling orders.
func (s *service) refund(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order) (Refund, *models.LedgerTransaction, error) {
	payment, err := s.ledger.FindTransaction(ctx, tx, order.PaymentTransactionID)
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
			return Refund{}, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "payment of order missing")
		}
		return Refund{}, nil, err
	}
	siblings, err := repo.SiblingOrderIDs(ctx, payment.ID)
	if err != nil {
		return Refund{}, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sibling orders")
	}
	prior, err := s.ledger.ListRefundsForOrders(ctx, tx, siblings)
	if err != nil {
		return Refund{}, nil, err
	}

	remainingPoint, remainingCredit := payment.PointDelta, payment.CreditDelta
	for _, r := range prior {
		if r.OrderID != nil && *r.OrderID == order.ID {
			return Refund{}, nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order already refunded")
		}
		remainingPoint -= r.PointDelta
		remainingCredit -= r.CreditDelta
	}

	total := order.Total()
	credit := clamp(min(remainingCredit, total))
	point := clamp(min(remainingPoint, total-credit))
	refund := Refund{Point: point, Credit: credit}
	if refund.Total() == 0 {
		return refund, nil, nil
	}

	txn, err := s.ledger.Refund(ctx, tx, ledger.RefundInput{
		AccountID: order.AccountID,
		OrderID:   order.ID,
		Point:     point,
		Credit:    credit,
	})
	if err != nil {
		return Refund{}, nil, err
	}
	return refund, txn, nil
}

var advanceColumns = map[enums.OrderStatus]string{
	enums.OrderStatusPreparing: "preparing_at",
	enums.OrderStatusReady:     "ready_at",
	enums.OrderStatusCompleted: "completed_at",
}

// Advance moves an order forward through fulfilment.
func (s *service) Advance(ctx context.Context, orderID uuid.UUID, next enums.OrderStatus) (*models.Order, error) {
	column, ok := advanceColumns[next]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be preparing, ready or completed")
	}

	var out *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.LockOrder(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
		}
		if order == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		current := order.Status()
		if !current.CanAdvanceTo(next) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot move order from %s to %s", current, next)).
				WithDetails(map[string]string{"status": current.String()})
		}

		now := s.now().UTC()
		updated, err := repo.SetLifecycleTime(ctx, order.ID, column, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "advance order")
		}
		if !updated {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order changed concurrently")
		}
		switch next {
		case enums.OrderStatusPreparing:
			order.PreparingAt = &now
		case enums.OrderStatusReady:
			order.ReadyAt = &now
		case enums.OrderStatusCompleted:
			order.CompletedAt = &now
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderStatusChanged{
				OrderID:   order.ID,
				AccountID: order.AccountID,
				Status:    next,
				ChangedAt: now,
			},
			OccurredAt: now,
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue status event")
		}
		out = order
		return nil
	})
	if err != nil {
		return nil, storeError(err, "advance order")
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID, requester *uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order == nil || (requester != nil && order.AccountID != *requester) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) ListForAccount(ctx context.Context, accountID uuid.UUID, params pagination.Params) (*OrderList, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	cursor, err := pagination.Decode(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.ListForAccount(ctx, accountID, params.Limit, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	list := &OrderList{Orders: rows}
	if next != nil {
		list.Cursor = next.String()
	}
	return list, nil
}

func actor(requester *uuid.UUID) *outbox.ActorRef {
	if requester == nil {
		return &outbox.ActorRef{Role: string(enums.AccountRoleStaff)}
	}
	return &outbox.ActorRef{AccountID: *requester, Role: string(enums.AccountRoleUser)}
}

func storeError(err error, msg string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}

func clamp(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
