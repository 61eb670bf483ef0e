package entity

import "github.com/gaze-network/uint128"

// Balance is the balance of a token held by an address.
type Balance struct {
	Holder      string
	TokenId     uint64
	Available   uint128.Uint128
	Retired     uint128.Uint128
	Transferred uint128.Uint128
}
