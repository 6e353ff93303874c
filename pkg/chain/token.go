// Package chain talks to the token contracts that mirror the relational
// balances. Amounts cross this boundary as int64 minor units.
package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/angelmondragon/canteen-backend/pkg/config"
	"github.com/angelmondragon/canteen-backend/pkg/enums"
	"github.com/angelmondragon/canteen-backend/pkg/logger"
)

// tokenABI is the operator-controlled ERC-20 subset both contracts expose.
const tokenABI = `[
{"type":"function","name":"mint","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]},
{"type":"function","name":"burn","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]},
{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

// ErrNotConfigured is returned when the chain RPC or contracts are not set.
var ErrNotConfigured = errors.New("token ledger is not configured")

// TokenLedger is the set of operations the mirror needs.
type TokenLedger interface {
	Mint(ctx context.Context, currency enums.Currency, to common.Address, amount int64) (string, error)
	Burn(ctx context.Context, currency enums.Currency, from common.Address, amount int64) (string, error)
	Transfer(ctx context.Context, currency enums.Currency, from *ecdsa.PrivateKey, to common.Address, amount int64) (string, error)
	BalanceOf(ctx context.Context, currency enums.Currency, owner common.Address) (int64, error)
}

// Client implements TokenLedger over JSON-RPC.
type Client struct {
	rpc       *ethclient.Client
	chainID   *big.Int
	operator  *ecdsa.PrivateKey
	contracts map[enums.Currency]*bind.BoundContract
	decimals  int32
	timeout   time.Duration
	logg      *logger.Logger
}

// Dial connects to the RPC endpoint and binds both token contracts.
func Dial(ctx context.Context, cfg config.ChainConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.RPCURL) == "" {
		return nil, ErrNotConfigured
	}
	operator, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(cfg.OperatorKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse operator key: %w", err)
	}
	parsed, err := abi.JSON(strings.NewReader(tokenABI))
	if err != nil {
		return nil, fmt.Errorf("parse token abi: %w", err)
	}

	rpc, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial chain rpc: %w", err)
	}

	contracts := make(map[enums.Currency]*bind.BoundContract, 2)
	for currency, hex := range map[enums.Currency]string{
		enums.CurrencyPoint:  cfg.PointTokenAddress,
		enums.CurrencyCredit: cfg.CreditTokenAddress,
	} {
		addr, err := ParseAddress(hex)
		if err != nil {
			rpc.Close()
			return nil, fmt.Errorf("%s token: %w", currency, err)
		}
		contracts[currency] = bind.NewBoundContract(addr, parsed, rpc, rpc, rpc)
	}

	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "chain_id", cfg.ChainID), "token ledger client initialized")
	}

	return &Client{
		rpc:       rpc,
		chainID:   big.NewInt(cfg.ChainID),
		operator:  operator,
		contracts: contracts,
		decimals:  cfg.Decimals,
		timeout:   timeout,
		logg:      logg,
	}, nil
}

func (c *Client) Mint(ctx context.Context, currency enums.Currency, to common.Address, amount int64) (string, error) {
	return c.transact(ctx, currency, c.operator, "mint", to, ToBaseUnits(amount, c.decimals))
}

func (c *Client) Burn(ctx context.Context, currency enums.Currency, from common.Address, amount int64) (string, error) {
	return c.transact(ctx, currency, c.operator, "burn", from, ToBaseUnits(amount, c.decimals))
}

func (c *Client) Transfer(ctx context.Context, currency enums.Currency, from *ecdsa.PrivateKey, to common.Address, amount int64) (string, error) {
	if from == nil {
		return "", errors.New("transfer signer is required")
	}
	return c.transact(ctx, currency, from, "transfer", to, ToBaseUnits(amount, c.decimals))
}

func (c *Client) BalanceOf(ctx context.Context, currency enums.Currency, owner common.Address) (int64, error) {
	contract, err := c.contract(currency)
	if err != nil {
		return 0, err
	}
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var out []interface{}
	if err := contract.Call(&bind.CallOpts{Context: callCtx}, &out, "balanceOf", owner); err != nil {
		return 0, fmt.Errorf("balanceOf %s: %w", owner.Hex(), err)
	}
	if len(out) != 1 {
		return 0, fmt.Errorf("balanceOf returned %d values", len(out))
	}
	raw, ok := out[0].(*big.Int)
	if !ok {
		return 0, fmt.Errorf("balanceOf returned %T", out[0])
	}
	return FromBaseUnits(raw, c.decimals)
}

// transact signs, sends and waits for the receipt. A reverted receipt is an
// error; the hash is returned only for successful transactions.
func (c *Client) transact(ctx context.Context, currency enums.Currency, signer *ecdsa.PrivateKey, method string, params ...interface{}) (string, error) {
	contract, err := c.contract(currency)
	if err != nil {
		return "", err
	}
	opts, err := bind.NewKeyedTransactorWithChainID(signer, c.chainID)
	if err != nil {
		return "", fmt.Errorf("build transactor: %w", err)
	}
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	opts.Context = callCtx

	tx, err := contract.Transact(opts, method, params...)
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", currency, method, err)
	}
	receipt, err := bind.WaitMined(callCtx, c.rpc, tx)
	if err != nil {
		return "", fmt.Errorf("wait for %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return "", fmt.Errorf("%s %s reverted in %s", currency, method, tx.Hash().Hex())
	}
	return tx.Hash().Hex(), nil
}

func (c *Client) contract(currency enums.Currency) (*bind.BoundContract, error) {
	if c == nil {
		return nil, ErrNotConfigured
	}
	contract, ok := c.contracts[currency]
	if !ok {
		return nil, fmt.Errorf("no token contract for currency %q", currency)
	}
	return contract, nil
}

// Ping checks the RPC endpoint answers.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.rpc == nil {
		return ErrNotConfigured
	}
	_, err := c.rpc.ChainID(ctx)
	return err
}

func (c *Client) Close() {
	if c != nil && c.rpc != nil {
		c.rpc.Close()
	}
}
