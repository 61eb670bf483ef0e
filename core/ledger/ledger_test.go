package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortEvents(t *testing.T) {
	events := []Event{
		{Name: EventTransferSingle, BlockNumber: 5, LogIndex: 2},
		{Name: EventTokenCreated, BlockNumber: 3, LogIndex: 7},
		{Name: EventTransferSingle, BlockNumber: 5, LogIndex: 0},
		{Name: EventRoleGranted, BlockNumber: 4, LogIndex: 1},
	}
	SortEvents(events)

	assert.Equal(t, EventTokenCreated, events[0].Name)
	assert.Equal(t, EventRoleGranted, events[1].Name)
	assert.Equal(t, uint(0), events[2].LogIndex)
	assert.Equal(t, uint(2), events[3].LogIndex)
}

func TestEventName(t *testing.T) {
	assert.True(t, EventRegisteredIndustry.IsRoleEvent())
	assert.True(t, EventRoleRevoked.IsRoleEvent())
	assert.False(t, EventTransferSingle.IsRoleEvent())
	assert.False(t, EventTokenCreated.IsRoleEvent())
	assert.Len(t, AllEventNames, 10)
}

func TestTransferKind(t *testing.T) {
	holder := "0x3c44cdddb6a900fa2b585dd299e03d12fa4293bc"

	assert.True(t, Transfer{From: BurnAddress, To: holder}.IsIssuance())
	assert.True(t, Transfer{From: holder, To: BurnAddress}.IsRetirement())

	transfer := Transfer{From: holder, To: "0x70997970c51812dc3a010c7d01b50e0d17dc79c8"}
	assert.False(t, transfer.IsIssuance())
	assert.False(t, transfer.IsRetirement())
}

func TestRolesNames(t *testing.T) {
	assert.Empty(t, Roles{}.Names())
	assert.Equal(t,
		[]string{"Admin", "Consumer", "REC Dealer", "Offset Dealer", "Emissions Auditor", "Industry", "Industry Dealer"},
		Roles{true, true, true, true, true, true, true}.Names(),
	)
	assert.Equal(t, []string{"REC Dealer", "Emissions Auditor"}, Roles{IsRecDealer: true, IsAeDealer: true}.Names())
}
