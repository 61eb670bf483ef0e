package tokensync

import (
	"context"
	"fmt"
	"math/big"

	"github.com/carbon-ledger/token-sync/common"
	"github.com/carbon-ledger/token-sync/core/ledger"
	"github.com/carbon-ledger/token-sync/modules/tokensync/internal/entity"
	"github.com/carbon-ledger/token-sync/pkg/logger"
	"github.com/carbon-ledger/token-sync/pkg/logger/slogx"
	"github.com/gaze-network/uint128"
	"github.com/sugawarayuuta/sonnet"
)

// tokenFromDetails converts ledger token details into a token ready to be
// inserted. Totals start at zero: they are rebuilt from the transfer events.
func tokenFromDetails(ctx context.Context, details ledger.TokenDetails) entity.Token {
	ctx = logger.WithContext(ctx, slogx.Uint64("token_id", details.TokenId))
	metadata := parseJSONObject(ctx, "metadata", details.Metadata)
	manifest := parseJSONObject(ctx, "manifest", details.Manifest)

	return entity.Token{
		TokenId:      details.TokenId,
		TokenTypeId:  entity.TokenType(details.TokenTypeId),
		IssuedBy:     common.NormalizeAddress(details.IssuedBy),
		IssuedFrom:   issuedFromHex(details.IssuedFrom),
		IssuedTo:     common.NormalizeAddress(details.IssuedTo),
		FromDate:     details.FromDate,
		ThruDate:     details.ThruDate,
		DateCreated:  details.DateCreated,
		Metadata:     metadata,
		Manifest:     manifest,
		Description:  details.Description,
		Scope:        lookupString(metadata, "Scope", "scope"),
		Type:         lookupString(metadata, "Type", "type"),
		TotalIssued:  uint128.Zero,
		TotalRetired: uint128.Zero,
	}
}

// parseJSONObject decodes a JSON object. Empty or malformed input yields an empty object.
func parseJSONObject(ctx context.Context, field string, data string) map[string]any {
	result := make(map[string]any)
	if data == "" {
		return result
	}
	if err := sonnet.Unmarshal([]byte(data), &result); err != nil {
		logger.WarnContext(ctx, "Invalid JSON in token details, using an empty object",
			slogx.String("field", field),
			slogx.String("value", data),
			slogx.Error(err),
		)
		return make(map[string]any)
	}
	return result
}

// lookupString returns the first present key as a string.
func lookupString(object map[string]any, keys ...string) string {
	for _, key := range keys {
		value, ok := object[key]
		if !ok {
			continue
		}
		switch v := value.(type) {
		case nil:
			return ""
		case string:
			return v
		default:
			return fmt.Sprint(v)
		}
	}
	return ""
}

// issuedFromHex converts the decimal issuer id into 0x-hex. Zero means no issuer.
func issuedFromHex(issuedFrom string) string {
	if issuedFrom == "" || issuedFrom == "0" {
		return ""
	}
	value, ok := new(big.Int).SetString(issuedFrom, 10)
	if !ok || value.Sign() == 0 {
		return ""
	}
	return "0x" + value.Text(16)
}
