package tokensync

import "time"

const (
	Version   = "v0.1.0"
	DBVersion = 1
)

// Scheduler defaults. Tuned for a ledger producing a block every few seconds:
// a catch-up scan runs after about a minute without live events.
const (
	DefaultRunInterval   = 65 * time.Second
	DefaultRetryInterval = 5 * time.Second
	DefaultMinBlockDiff  = 20

	DefaultEventsBlockInterval = 2048
	DefaultFillConcurrency     = 8
	DefaultRoleSyncConcurrency = 8
)
