package chain

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// ToBaseUnits scales an integer balance in minor units to token base units.
func ToBaseUnits(amount int64, decimals int32) *big.Int {
	return decimal.New(amount, 0).Shift(decimals).BigInt()
}

// FromBaseUnits converts token base units back to minor units. Values that do
// not divide evenly or overflow int64 are rejected.
func FromBaseUnits(v *big.Int, decimals int32) (int64, error) {
	if v == nil {
		return 0, nil
	}
	d := decimal.NewFromBigInt(v, 0).Shift(-decimals)
	if !d.Equal(d.Truncate(0)) {
		return 0, fmt.Errorf("token amount %s has a fractional minor unit", d.String())
	}
	if !d.BigInt().IsInt64() {
		return 0, fmt.Errorf("token amount %s overflows int64", d.String())
	}
	return d.IntPart(), nil
}
