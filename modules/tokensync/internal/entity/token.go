package entity

import "github.com/gaze-network/uint128"

type TokenType uint8

const (
	TokenTypeRenewableEnergyCertificate TokenType = 1
	TokenTypeCarbonEmissionsOffset      TokenType = 2
	TokenTypeAuditedEmissions           TokenType = 3
	TokenTypeCarbonTracker              TokenType = 4
)

var tokenTypeNames = map[TokenType]string{
	TokenTypeRenewableEnergyCertificate: "Renewable Energy Certificate",
	TokenTypeCarbonEmissionsOffset:      "Carbon Emissions Offset",
	TokenTypeAuditedEmissions:           "Audited Emissions",
	TokenTypeCarbonTracker:              "Carbon Tracker",
}

func (t TokenType) String() string {
	if name, ok := tokenTypeNames[t]; ok {
		return name
	}
	return "Unknown"
}

// Token is a ledger token. It is created once and afterwards only its totals change.
type Token struct {
	TokenId     uint64
	TokenTypeId TokenType
	IssuedBy    string
	// IssuedFrom is the 0x-hex encoded issuer id, empty when the token has no issuer id.
	IssuedFrom  string
	IssuedTo    string
	FromDate    uint64
	ThruDate    uint64
	DateCreated uint64
	Metadata    map[string]any
	Manifest    map[string]any
	Description string
	Scope       string
	Type        string

	TotalIssued  uint128.Uint128
	TotalRetired uint128.Uint128
}
