// Package decimals converts raw integer ledger amounts into display values.
package decimals

import (
	"math/big"

	"github.com/gaze-network/uint128"
	"github.com/shopspring/decimal"
)

// Amount is a raw ledger amount.
type Amount interface {
	uint128.Uint128 | *big.Int | uint64
}

// ToDecimal shifts the raw amount by decimals digits. A nil *big.Int is zero.
func ToDecimal[T Amount](amount T, decimals uint16) decimal.Decimal {
	value := new(big.Int)
	switch v := any(amount).(type) {
	case uint128.Uint128:
		value = v.Big()
	case *big.Int:
		if v != nil {
			value = v
		}
	case uint64:
		value.SetUint64(v)
	}
	return decimal.NewFromBigInt(value, -int32(decimals))
}
