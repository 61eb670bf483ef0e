package entity

import (
	"testing"

	"github.com/carbon-ledger/token-sync/common"
	"github.com/stretchr/testify/assert"
)

func TestRolesDiff(t *testing.T) {
	testCases := []struct {
		name           string
		prev, next     []string
		added, removed []string
	}{
		{
			name:  "new wallet",
			next:  []string{"Consumer"},
			added: []string{"Consumer"},
		},
		{
			name:    "unregistered",
			prev:    []string{"Consumer", "Industry"},
			next:    []string{"Industry"},
			removed: []string{"Consumer"},
		},
		{
			name:    "swapped",
			prev:    []string{"REC Dealer"},
			next:    []string{"Offset Dealer"},
			added:   []string{"Offset Dealer"},
			removed: []string{"REC Dealer"},
		},
		{
			name: "unchanged",
			prev: []string{"Admin"},
			next: []string{"Admin"},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			added, removed := RolesDiff(tc.prev, tc.next)
			assert.ElementsMatch(t, tc.added, added)
			assert.ElementsMatch(t, tc.removed, removed)
		})
	}
}

func TestCheckpointMatches(t *testing.T) {
	checkpoint := Checkpoint{
		Network:  common.NetworkBSCTestnet,
		Contract: "0x5FbDB2315678afecb367f032d93F642f64180aa3",
	}
	assert.True(t, checkpoint.Matches(common.NetworkBSCTestnet, "0x5fbdb2315678afecb367f032d93f642f64180aa3"))
	assert.False(t, checkpoint.Matches(common.NetworkGoerli, "0x5fbdb2315678afecb367f032d93f642f64180aa3"))
	assert.False(t, checkpoint.Matches(common.NetworkBSCTestnet, "0x70997970c51812dc3a010c7d01b50e0d17dc79c8"))
}

func TestTokenTypeString(t *testing.T) {
	assert.Equal(t, "Renewable Energy Certificate", TokenTypeRenewableEnergyCertificate.String())
	assert.Equal(t, "Audited Emissions", TokenType(3).String())
	assert.Equal(t, "Unknown", TokenType(9).String())
}
