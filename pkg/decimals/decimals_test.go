package decimals

import (
	"fmt"
	"math"
	"math/big"
	"testing"

	"github.com/gaze-network/uint128"
	"github.com/stretchr/testify/assert"
)

func TestToDecimal(t *testing.T) {
	testcases := []struct {
		decimals uint16
		value    uint64
		expected string
	}{
		{0, 0, "0"},
		{0, 1, "1"},
		{1, 1, "0.1"},
		{3, 1500, "1.5"},
		{18, 1, "0.000000000000000001"},
		{0, math.MaxUint64, "18446744073709551615"},
		{18, math.MaxUint64, "18.446744073709551615"},
	}
	for _, tc := range testcases {
		t.Run(fmt.Sprintf("%d_%d", tc.decimals, tc.value), func(t *testing.T) {
			assert.Equal(t, tc.expected, ToDecimal(tc.value, tc.decimals).String())
			assert.Equal(t, tc.expected, ToDecimal(uint128.From64(tc.value), tc.decimals).String())
			assert.Equal(t, tc.expected, ToDecimal(new(big.Int).SetUint64(tc.value), tc.decimals).String())
		})
	}

	t.Run("max_uint128", func(t *testing.T) {
		assert.Equal(t, "340282366920938463463374607431768211455", ToDecimal(uint128.Max, 0).String())
		assert.Equal(t, "340282366920938463463.374607431768211455", ToDecimal(uint128.Max, 18).String())
	})
	t.Run("nil_big_int", func(t *testing.T) {
		var value *big.Int
		assert.Equal(t, "0", ToDecimal(value, 6).String())
	})
}
