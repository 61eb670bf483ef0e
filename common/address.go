package common

import (
	"strings"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// ZeroAddress is the all-zero ledger address.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// NormalizeAddress returns the lowercase 0x-prefixed hex form of a ledger address.
// Holders are compared case-insensitively, so every address is stored normalized.
func NormalizeAddress(address string) string {
	if ethcommon.IsHexAddress(address) {
		return strings.ToLower(ethcommon.HexToAddress(address).Hex())
	}
	return strings.ToLower(strings.TrimSpace(address))
}

// IsValidAddress reports whether the input is a 20-byte hex address.
func IsValidAddress(address string) bool {
	return ethcommon.IsHexAddress(address)
}
