package ledger

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/canteen-backend/pkg/db/models"
	"github.com/angelmondragon/canteen-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/canteen-backend/pkg/errors"
	"github.com/angelmondragon/canteen-backend/pkg/logger"
	"github.com/angelmondragon/canteen-backend/pkg/outbox"
	"github.com/angelmondragon/canteen-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/canteen-backend/pkg/pagination"
)

// Service moves balances between accounts. Mutations run inside the caller's
// transaction and queue a ledger_transaction_committed event alongside the row.
type Service interface {
	Charge(ctx context.Context, tx *gorm.DB, input ChargeInput) (*models.LedgerTransaction, error)
	Recharge(ctx context.Context, tx *gorm.DB, input RechargeInput) (*models.LedgerTransaction, error)
	Refund(ctx context.Context, tx *gorm.DB, input RefundInput) (*models.LedgerTransaction, error)
	Deposit(ctx context.Context, input RechargeInput) (*models.LedgerTransaction, error)
	ListTransactions(ctx context.Context, accountID uuid.UUID, params pagination.Params) (*ListResult, error)
	FindTransaction(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.LedgerTransaction, error)
	ListRefundsForOrders(ctx context.Context, tx *gorm.DB, orderIDs []uuid.UUID) ([]models.LedgerTransaction, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ChargeInput debits Amount from the account, point balance first.
type ChargeInput struct {
	AccountID uuid.UUID
	Amount    int64
}

// RechargeInput applies signed deltas to an account without a source.
type RechargeInput struct {
	AccountID        uuid.UUID
	PointDelta       int64
	CreditDelta      int64
	DepositReference string
	Note             string
}

// RefundInput returns Point and Credit from the house to the account.
type RefundInput struct {
	AccountID uuid.UUID
	OrderID   uuid.UUID
	Point     int64
	Credit    int64
}

// ListResult is one page of transactions.
type ListResult struct {
	Items  []models.LedgerTransaction
	Cursor string
}

// BalanceShortfall is attached to INSUFFICIENT_BALANCE errors.
type BalanceShortfall struct {
	Required  int64 `json:"required"`
	Available int64 `json:"available"`
}

type ServiceParams struct {
	Repo           Repository
	TxRunner       txRunner
	Outbox         outbox.Emitter
	HouseAccountID uuid.UUID
	Logger         *logger.Logger
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outbox.Emitter
	houseID uuid.UUID
	logg    *logger.Logger
}

// NewService builds a ledger service backed by the provided repository.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "ledger repository required")
	}
	if params.TxRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox emitter required")
	}
	if params.HouseAccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "house account id required")
	}
	return &service{
		repo:    params.Repo,
		tx:      params.TxRunner,
		outbox:  params.Outbox,
		houseID: params.HouseAccountID,
		logg:    params.Logger,
	}, nil
}

func (s *service) Charge(ctx context.Context, tx *gorm.DB, input ChargeInput) (*models.LedgerTransaction, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "charge requires a transaction")
	}
	if input.AccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	// Zero is allowed so that free orders still link to a PAYMENT.
	if input.Amount < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "charge amount must not be negative")
	}
	if input.AccountID == s.houseID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "house account cannot be charged")
	}

	repo := s.repo.WithTx(tx)
	payer, house, err := s.lockPair(ctx, repo, input.AccountID)
	if err != nil {
		return nil, err
	}

	point := min(input.Amount, payer.PointBalance)
	credit := input.Amount - point
	if credit > payer.CreditBalance {
		return nil, pkgerrors.New(pkgerrors.CodeBalance, "insufficient balance").
			WithDetails(BalanceShortfall{
				Required:  input.Amount,
				Available: payer.PointBalance + payer.CreditBalance,
			})
	}

	if err := repo.SetBalances(ctx, payer.ID, payer.PointBalance-point, payer.CreditBalance-credit); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "debit account")
	}
	if err := repo.SetBalances(ctx, house.ID, house.PointBalance+point, house.CreditBalance+credit); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit house account")
	}

	source := payer.ID
	txn := &models.LedgerTransaction{
		Kind:            enums.LedgerKindPayment,
		SourceAccountID: &source,
		TargetAccountID: house.ID,
		PointDelta:      point,
		CreditDelta:     credit,
	}
	return s.append(ctx, tx, repo, txn)
}

func (s *service) Recharge(ctx context.Context, tx *gorm.DB, input RechargeInput) (*models.LedgerTransaction, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "recharge requires a transaction")
	}
	if input.AccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	if input.PointDelta == 0 && input.CreditDelta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recharge must change at least one balance")
	}

	repo := s.repo.WithTx(tx)
	acct, err := s.lock(ctx, repo, input.AccountID)
	if err != nil {
		return nil, err
	}

	point := acct.PointBalance + input.PointDelta
	credit := acct.CreditBalance + input.CreditDelta
	if point < 0 || credit < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeBalance, "recharge would overdraw the account").
			WithDetails(map[string]int64{
				"point_balance":  acct.PointBalance,
				"credit_balance": acct.CreditBalance,
			})
	}
	if err := repo.SetBalances(ctx, acct.ID, point, credit); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply recharge")
	}

	txn := &models.LedgerTransaction{
		Kind:             enums.LedgerKindRecharge,
		TargetAccountID:  acct.ID,
		PointDelta:       input.PointDelta,
		CreditDelta:      input.CreditDelta,
		DepositReference: optionalString(input.DepositReference),
		Note:             optionalString(input.Note),
	}
	return s.append(ctx, tx, repo, txn)
}

func (s *service) Refund(ctx context.Context, tx *gorm.DB, input RefundInput) (*models.LedgerTransaction, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "refund requires a transaction")
	}
	if input.AccountID == uuid.Nil || input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id and order id are required")
	}
	if input.Point < 0 || input.Credit < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amounts must not be negative")
	}
	if input.Point == 0 && input.Credit == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund must return at least one unit")
	}

	repo := s.repo.WithTx(tx)
	acct, house, err := s.lockPair(ctx, repo, input.AccountID)
	if err != nil {
		return nil, err
	}
	if house.PointBalance < input.Point || house.CreditBalance < input.Credit {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "house account cannot cover refund")
	}

	if err := repo.SetBalances(ctx, house.ID, house.PointBalance-input.Point, house.CreditBalance-input.Credit); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "debit house account")
	}
	if err := repo.SetBalances(ctx, acct.ID, acct.PointBalance+input.Point, acct.CreditBalance+input.Credit); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit account")
	}

	source := house.ID
	orderID := input.OrderID
	txn := &models.LedgerTransaction{
		Kind:            enums.LedgerKindRefund,
		SourceAccountID: &source,
		TargetAccountID: acct.ID,
		PointDelta:      input.Point,
		CreditDelta:     input.Credit,
		OrderID:         &orderID,
	}
	return s.append(ctx, tx, repo, txn)
}

// Deposit settles an external top-up in its own transaction.
func (s *service) Deposit(ctx context.Context, input RechargeInput) (*models.LedgerTransaction, error) {
	var out *models.LedgerTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txn, err := s.Recharge(ctx, tx, input)
		if err != nil {
			return err
		}
		out = txn
		return nil
	})
	if err != nil {
		return nil, asServiceError(err, "settle deposit")
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"account_id":     input.AccountID.String(),
			"transaction_id": out.ID.String(),
			"point_delta":    input.PointDelta,
			"credit_delta":   input.CreditDelta,
		})
		s.logg.Info(logCtx, "deposit settled")
	}
	return out, nil
}

func (s *service) ListTransactions(ctx context.Context, accountID uuid.UUID, params pagination.Params) (*ListResult, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id is required")
	}
	cursor, err := pagination.Decode(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.repo.ListForAccount(ctx, listParams{
		AccountID: accountID,
		Limit:     params.Limit,
		Cursor:    cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger transactions")
	}
	result := &ListResult{Items: rows}
	if next != nil {
		result.Cursor = next.String()
	}
	return result, nil
}

// FindTransaction reads through tx when given, or the base connection.
func (s *service) FindTransaction(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.LedgerTransaction, error) {
	txn, err := s.repo.WithTx(tx).FindTransaction(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ledger transaction")
	}
	if txn == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ledger transaction not found")
	}
	return txn, nil
}

func (s *service) ListRefundsForOrders(ctx context.Context, tx *gorm.DB, orderIDs []uuid.UUID) ([]models.LedgerTransaction, error) {
	rows, err := s.repo.WithTx(tx).ListRefundsForOrders(ctx, orderIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load refunds")
	}
	return rows, nil
}

// lockPair locks the account and then the house row. Every mutation that
// touches both uses this order.
func (s *service) lockPair(ctx context.Context, repo Repository, accountID uuid.UUID) (*models.Account, *models.Account, error) {
	acct, err := s.lock(ctx, repo, accountID)
	if err != nil {
		return nil, nil, err
	}
	house, err := repo.LockAccount(ctx, s.houseID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock house account")
	}
	if house == nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeInternal, "house account missing")
	}
	return acct, house, nil
}

func (s *service) lock(ctx context.Context, repo Repository, accountID uuid.UUID) (*models.Account, error) {
	acct, err := repo.LockAccount(ctx, accountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock account")
	}
	if acct == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
	}
	return acct, nil
}

func (s *service) append(ctx context.Context, tx *gorm.DB, repo Repository, txn *models.LedgerTransaction) (*models.LedgerTransaction, error) {
	if err := repo.CreateTransaction(ctx, txn); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append ledger transaction")
	}
	event := outbox.DomainEvent{
		EventType:     enums.EventLedgerTransactionCommitted,
		AggregateType: enums.AggregateLedgerTransaction,
		AggregateID:   txn.ID,
		Data: payloads.LedgerTransactionCommitted{
			TransactionID:   txn.ID,
			Kind:            txn.Kind,
			SourceAccountID: txn.SourceAccountID,
			TargetAccountID: txn.TargetAccountID,
			PointDelta:      txn.PointDelta,
			CreditDelta:     txn.CreditDelta,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue ledger event")
	}
	return txn, nil
}

// asServiceError keeps typed errors and classifies the rest as store failures.
func asServiceError(err error, msg string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
