package entity

import (
	"time"

	"github.com/carbon-ledger/token-sync/common"
)

// Checkpoint is the last ledger block whose events are reflected in the local state.
// It is only valid for the network and contract it was written for.
type Checkpoint struct {
	Network     common.Network
	Contract    string
	BlockNumber uint64
	UpdatedAt   time.Time
}

func (c Checkpoint) Matches(network common.Network, contract string) bool {
	return c.Network == network && common.NormalizeAddress(c.Contract) == common.NormalizeAddress(contract)
}

// SyncStatus is a snapshot of the synchronization scheduler.
type SyncStatus struct {
	State          string
	EventsInFlight int
	PendingEvents  int
	Subscribed     bool
	NextRunAt      time.Time
}
