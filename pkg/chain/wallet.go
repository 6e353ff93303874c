package chain

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Wallet is a freshly generated secp256k1 keypair.
type Wallet struct {
	Address    common.Address
	PrivateKey []byte
}

// NewWallet generates a keypair. The caller seals PrivateKey before storing it.
func NewWallet() (Wallet, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return Wallet{}, fmt.Errorf("generate wallet key: %w", err)
	}
	return Wallet{
		Address:    crypto.PubkeyToAddress(key.PublicKey),
		PrivateKey: crypto.FromECDSA(key),
	}, nil
}

// ParseKey restores a private key from its raw bytes.
func ParseKey(raw []byte) (*ecdsa.PrivateKey, error) {
	key, err := crypto.ToECDSA(raw)
	if err != nil {
		return nil, fmt.Errorf("parse wallet key: %w", err)
	}
	return key, nil
}

// ParseAddress validates a hex address.
func ParseAddress(hex string) (common.Address, error) {
	if !common.IsHexAddress(hex) {
		return common.Address{}, fmt.Errorf("invalid address %q", hex)
	}
	return common.HexToAddress(hex), nil
}
