package chain

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/canteen-backend/pkg/config"
)

func TestUnitScaling(t *testing.T) {
	require.Equal(t, "12300", ToBaseUnits(123, 2).String())
	require.Equal(t, "-500", ToBaseUnits(-5, 2).String())
	require.Equal(t, "7", ToBaseUnits(7, 0).String())

	got, err := FromBaseUnits(big.NewInt(12300), 2)
	require.NoError(t, err)
	require.EqualValues(t, 123, got)

	_, err = FromBaseUnits(big.NewInt(12345), 2)
	require.Error(t, err)

	huge := new(big.Int).Lsh(big.NewInt(1), 80)
	_, err = FromBaseUnits(huge, 0)
	require.Error(t, err)
}

func TestWalletRoundTrip(t *testing.T) {
	w, err := NewWallet()
	require.NoError(t, err)
	require.Len(t, w.PrivateKey, 32)

	key, err := ParseKey(w.PrivateKey)
	require.NoError(t, err)
	require.Equal(t, w.Address, crypto.PubkeyToAddress(key.PublicKey))

	parsed, err := ParseAddress(w.Address.Hex())
	require.NoError(t, err)
	require.Equal(t, w.Address, parsed)

	_, err = ParseAddress("0xnot-an-address")
	require.Error(t, err)
}

func TestDialRequiresRPC(t *testing.T) {
	_, err := Dial(context.Background(), config.ChainConfig{}, nil)
	require.True(t, errors.Is(err, ErrNotConfigured))

	var c *Client
	require.ErrorIs(t, c.Ping(context.Background()), ErrNotConfigured)
}
