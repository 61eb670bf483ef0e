package tokensync

import (
	"context"
	"testing"

	"github.com/carbon-ledger/token-sync/core/ledger"
	"github.com/carbon-ledger/token-sync/modules/tokensync/internal/entity"
	"github.com/stretchr/testify/assert"
)

func TestTokenFromDetails(t *testing.T) {
	token := tokenFromDetails(context.Background(), ledger.TokenDetails{
		TokenId:     4,
		TokenTypeId: 2,
		IssuedBy:    "0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
		IssuedFrom:  "255",
		IssuedTo:    "0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC",
		FromDate:    1672531200,
		ThruDate:    1675209600,
		Metadata:    `{"Scope":2,"Type":"Offset","Region":"EU"}`,
		Manifest:    `not json`,
		Description: "offsets",
	})

	assert.Equal(t, uint64(4), token.TokenId)
	assert.Equal(t, entity.TokenTypeCarbonEmissionsOffset, token.TokenTypeId)
	assert.Equal(t, issuer, token.IssuedBy)
	assert.Equal(t, holderA, token.IssuedTo)
	assert.Equal(t, "0xff", token.IssuedFrom)
	assert.Equal(t, "2", token.Scope)
	assert.Equal(t, "Offset", token.Type)
	assert.Equal(t, "EU", token.Metadata["Region"])
	assert.Empty(t, token.Manifest)
	assert.NotNil(t, token.Manifest)
	assert.True(t, token.TotalIssued.IsZero())
	assert.True(t, token.TotalRetired.IsZero())
}

func TestIssuedFromHex(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{input: "", expected: ""},
		{input: "0", expected: ""},
		{input: "000", expected: ""},
		{input: "16", expected: "0x10"},
		{input: "1234567890123456789012345678901234567890", expected: "0x3a0c92075c0dbf3b8acbc5f96ce3f0ad2"},
		{input: "0x10", expected: ""},
	}
	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.expected, issuedFromHex(tc.input))
		})
	}
}

func TestLookupString(t *testing.T) {
	object := map[string]any{
		"scope": "3",
		"Type":  nil,
		"count": float64(7),
	}
	assert.Equal(t, "3", lookupString(object, "Scope", "scope"))
	assert.Equal(t, "", lookupString(object, "Type", "type"))
	assert.Equal(t, "7", lookupString(object, "count"))
	assert.Equal(t, "", lookupString(object, "missing"))
}
