package mirror

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/angelmondragon/canteen-backend/pkg/chain"
	"github.com/angelmondragon/canteen-backend/pkg/db/models"
)

type keySealer interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

// Wallets creates account wallets on first use and opens their keys for
// signing.
type Wallets struct {
	repo     Repository
	sealer   keySealer
	generate func() (chain.Wallet, error)
}

func NewWallets(repo Repository, sealer keySealer) (*Wallets, error) {
	if repo == nil {
		return nil, errors.New("mirror repository required")
	}
	if sealer == nil {
		return nil, errors.New("key sealer required")
	}
	return &Wallets{repo: repo, sealer: sealer, generate: chain.NewWallet}, nil
}

// Ensure returns the account's wallet, creating it when missing. Concurrent
// callers converge on whichever row was inserted first.
func (w *Wallets) Ensure(ctx context.Context, accountID uuid.UUID) (*models.ExternalWallet, error) {
	existing, err := w.repo.FindWallet(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%w: load wallet: %w", ErrStore, err)
	}
	if existing != nil {
		return existing, nil
	}

	generated, err := w.generate()
	if err != nil {
		return nil, err
	}
	sealed, err := w.sealer.Seal(generated.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("seal wallet key: %w", err)
	}
	wallet := &models.ExternalWallet{
		AccountID: accountID,
		Address:   generated.Address.Hex(),
		SealedKey: sealed,
	}
	created, err := w.repo.InsertWallet(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("%w: store wallet: %w", ErrStore, err)
	}
	if created {
		return wallet, nil
	}

	winner, err := w.repo.FindWallet(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%w: reload wallet: %w", ErrStore, err)
	}
	if winner == nil {
		return nil, fmt.Errorf("wallet for %s vanished after conflict", accountID)
	}
	return winner, nil
}

// Address parses the stored wallet address.
func (w *Wallets) Address(wallet *models.ExternalWallet) (common.Address, error) {
	return chain.ParseAddress(wallet.Address)
}

// Signer opens the sealed key of a wallet.
func (w *Wallets) Signer(wallet *models.ExternalWallet) (*ecdsa.PrivateKey, error) {
	raw, err := w.sealer.Open(wallet.SealedKey)
	if err != nil {
		return nil, fmt.Errorf("open wallet key: %w", err)
	}
	return chain.ParseKey(raw)
}
