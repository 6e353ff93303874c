// Package mirror replays committed ledger transactions onto the external
// token ledger and reconciles the two when they drift apart. The relational
// balances are the source of truth; nothing here writes them.
package mirror

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/angelmondragon/canteen-backend/pkg/chain"
	"github.com/angelmondragon/canteen-backend/pkg/db/models"
	"github.com/angelmondragon/canteen-backend/pkg/enums"
	"github.com/angelmondragon/canteen-backend/pkg/logger"
	"github.com/angelmondragon/canteen-backend/pkg/metrics"
)

const (
	kindTransfer  = "transfer"
	kindMintBurn  = "mint_burn"
	kindReconcile = "reconcile"
)

var (
	ErrTransactionNotFound = errors.New("ledger transaction not found")
	ErrAccountNotFound     = errors.New("account not found")
	ErrWrongKind           = errors.New("transaction kind does not match mirror operation")
	// ErrStore marks failures of the relational store that happened before
	// anything reached the token ledger. Retrying them is safe.
	ErrStore = errors.New("mirror store")
	// ErrStoreAfterChain marks store failures after a chain operation landed.
	// Retrying would repeat the operation, so these are left to reconciliation.
	ErrStoreAfterChain = errors.New("mirror store after chain")
)

type mirrorMetrics interface {
	Observe(kind, outcome string)
	AddDrift(currency string, units int64)
}

// Drift is the relational balance minus the on-chain balance found by a
// reconciliation, per currency, before it was corrected.
type Drift struct {
	Point  int64
	Credit int64
}

type ServiceParams struct {
	Repo    Repository
	Wallets *Wallets
	Ledger  chain.TokenLedger
	Metrics mirrorMetrics
	Logger  *logger.Logger
}

type Service struct {
	repo    Repository
	wallets *Wallets
	ledger  chain.TokenLedger
	metrics mirrorMetrics
	logg    *logger.Logger
	now     func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("mirror repository required")
	}
	if params.Wallets == nil {
		return nil, errors.New("wallets required")
	}
	if params.Ledger == nil {
		return nil, errors.New("token ledger required")
	}
	return &Service{
		repo:    params.Repo,
		wallets: params.Wallets,
		ledger:  params.Ledger,
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     time.Now,
	}, nil
}

// Mirror replays a transaction by kind. Rows already mirrored are skipped.
func (s *Service) Mirror(ctx context.Context, txID uuid.UUID) error {
	txn, err := s.load(ctx, txID)
	if err != nil {
		return err
	}
	if txn.Kind.MirrorsAsTransfer() {
		return s.run(ctx, txn, kindTransfer, s.transferOp(txn))
	}
	return s.run(ctx, txn, kindMintBurn, s.mintBurnOp(txn))
}

// MirrorTransfer replays a payment as token transfers from the source
// wallet to the target wallet.
func (s *Service) MirrorTransfer(ctx context.Context, txID uuid.UUID) error {
	txn, err := s.load(ctx, txID)
	if err != nil {
		return err
	}
	if !txn.Kind.MirrorsAsTransfer() {
		return fmt.Errorf("%w: %s", ErrWrongKind, txn.Kind)
	}
	return s.run(ctx, txn, kindTransfer, s.transferOp(txn))
}

// MirrorMintBurn replays a recharge or refund: the target is minted positive
// deltas and burned negative ones, and a source gets the opposite.
func (s *Service) MirrorMintBurn(ctx context.Context, txID uuid.UUID) error {
	txn, err := s.load(ctx, txID)
	if err != nil {
		return err
	}
	if txn.Kind.MirrorsAsTransfer() {
		return fmt.Errorf("%w: %s", ErrWrongKind, txn.Kind)
	}
	return s.run(ctx, txn, kindMintBurn, s.mintBurnOp(txn))
}

// ReconcileAccount mints or burns on chain until both token balances match
// the account's relational balances.
func (s *Service) ReconcileAccount(ctx context.Context, accountID uuid.UUID) (Drift, error) {
	acct, err := s.repo.FindAccount(ctx, accountID)
	if err != nil {
		return Drift{}, fmt.Errorf("%w: load account: %w", ErrStore, err)
	}
	if acct == nil {
		return Drift{}, fmt.Errorf("%w: %s", ErrAccountNotFound, accountID)
	}
	wallet, err := s.wallets.Ensure(ctx, acct.ID)
	if err != nil {
		s.observe(kindReconcile, metrics.OutcomeFailed)
		return Drift{}, err
	}
	addr, err := s.wallets.Address(wallet)
	if err != nil {
		s.observe(kindReconcile, metrics.OutcomeFailed)
		return Drift{}, err
	}

	var drift Drift
	for _, currency := range enums.Currencies() {
		onChain, err := s.ledger.BalanceOf(ctx, currency, addr)
		if err != nil {
			s.observe(kindReconcile, metrics.OutcomeFailed)
			return drift, fmt.Errorf("%s balance: %w", currency, err)
		}
		diff := acct.Balance(currency) - onChain
		if currency == enums.CurrencyPoint {
			drift.Point = diff
		} else {
			drift.Credit = diff
		}
		if diff == 0 {
			continue
		}
		if _, err := s.adjust(ctx, currency, addr, diff); err != nil {
			s.observe(kindReconcile, metrics.OutcomeFailed)
			return drift, fmt.Errorf("correct %s drift: %w", currency, err)
		}
		if s.metrics != nil {
			s.metrics.AddDrift(string(currency), diff)
		}
		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"account_id": acct.ID.String(),
				"currency":   string(currency),
				"drift":      diff,
			})
			s.logg.Warn(logCtx, "token ledger drift corrected")
		}
	}
	s.observe(kindReconcile, metrics.OutcomeOK)
	return drift, nil
}

type currencyOp func(ctx context.Context, currency enums.Currency, amount int64) (string, error)

// run applies op to every currency the transaction moves that has no hash
// yet, attaching each hash as it lands, then marks the row mirrored.
func (s *Service) run(ctx context.Context, txn *models.LedgerTransaction, kind string, op currencyOp) error {
	if txn.IsMirrored() {
		s.observe(kind, metrics.OutcomeSkipped)
		return nil
	}

	storeErr := ErrStore
	for _, currency := range enums.Currencies() {
		amount := txn.Delta(currency)
		if amount == 0 || hashOf(txn, currency) != nil {
			continue
		}
		hash, err := op(ctx, currency, amount)
		if err != nil {
			s.observe(kind, metrics.OutcomeFailed)
			return fmt.Errorf("%s %s for %s: %w", kind, currency, txn.ID, err)
		}
		storeErr = ErrStoreAfterChain
		if _, err := s.repo.AttachHash(ctx, txn.ID, currency, hash); err != nil {
			s.observe(kind, metrics.OutcomeFailed)
			return fmt.Errorf("%w: attach %s hash %s: %w", storeErr, currency, hash, err)
		}
	}

	marked, err := s.repo.MarkMirrored(ctx, txn.ID, s.now().UTC())
	if err != nil {
		s.observe(kind, metrics.OutcomeFailed)
		return fmt.Errorf("%w: mark mirrored: %w", storeErr, err)
	}
	if !marked {
		s.observe(kind, metrics.OutcomeSkipped)
		return nil
	}
	s.observe(kind, metrics.OutcomeOK)
	return nil
}

func (s *Service) transferOp(txn *models.LedgerTransaction) currencyOp {
	return func(ctx context.Context, currency enums.Currency, amount int64) (string, error) {
		if txn.SourceAccountID == nil {
			return "", errors.New("transfer requires a source account")
		}
		if amount < 0 {
			return "", fmt.Errorf("transfer amount %d is negative", amount)
		}
		signer, err := s.signerFor(ctx, *txn.SourceAccountID)
		if err != nil {
			return "", err
		}
		to, err := s.addressFor(ctx, txn.TargetAccountID)
		if err != nil {
			return "", err
		}
		return s.ledger.Transfer(ctx, currency, signer, to, amount)
	}
}

func (s *Service) mintBurnOp(txn *models.LedgerTransaction) currencyOp {
	return func(ctx context.Context, currency enums.Currency, amount int64) (string, error) {
		target, err := s.addressFor(ctx, txn.TargetAccountID)
		if err != nil {
			return "", err
		}
		hash, err := s.adjust(ctx, currency, target, amount)
		if err != nil {
			return "", err
		}
		if txn.SourceAccountID != nil {
			source, err := s.addressFor(ctx, *txn.SourceAccountID)
			if err != nil {
				return "", err
			}
			if _, err := s.adjust(ctx, currency, source, -amount); err != nil {
				return "", fmt.Errorf("source side: %w", err)
			}
		}
		return hash, nil
	}
}

// adjust mints positive amounts and burns negative ones.
func (s *Service) adjust(ctx context.Context, currency enums.Currency, addr common.Address, amount int64) (string, error) {
	if amount >= 0 {
		return s.ledger.Mint(ctx, currency, addr, amount)
	}
	return s.ledger.Burn(ctx, currency, addr, -amount)
}

func (s *Service) addressFor(ctx context.Context, accountID uuid.UUID) (common.Address, error) {
	wallet, err := s.wallets.Ensure(ctx, accountID)
	if err != nil {
		return common.Address{}, err
	}
	return s.wallets.Address(wallet)
}

func (s *Service) signerFor(ctx context.Context, accountID uuid.UUID) (*ecdsa.PrivateKey, error) {
	wallet, err := s.wallets.Ensure(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.wallets.Signer(wallet)
}

func (s *Service) load(ctx context.Context, txID uuid.UUID) (*models.LedgerTransaction, error) {
	txn, err := s.repo.FindTransaction(ctx, txID)
	if err != nil {
		return nil, fmt.Errorf("%w: load transaction: %w", ErrStore, err)
	}
	if txn == nil {
		return nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, txID)
	}
	return txn, nil
}

// AccountIDsAfter pages through every account for reconciliation.
func (s *Service) AccountIDsAfter(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error) {
	ids, err := s.repo.AccountIDsAfter(ctx, after, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list accounts: %w", ErrStore, err)
	}
	return ids, nil
}

func (s *Service) observe(kind, outcome string) {
	if s.metrics != nil {
		s.metrics.Observe(kind, outcome)
	}
}

func hashOf(txn *models.LedgerTransaction, currency enums.Currency) *string {
	if currency == enums.CurrencyPoint {
		return txn.PointTxHash
	}
	return txn.CreditTxHash
}
