package ledger

import (
	"cmp"
	"context"
	"slices"

	"github.com/carbon-ledger/token-sync/common"
	"github.com/gaze-network/uint128"
)

// BurnAddress is the sentinel holder encoding issuance (transfer from burn)
// and retirement (transfer to burn).
const BurnAddress = common.ZeroAddress

type EventName string

const (
	EventTokenCreated         EventName = "TokenCreated"
	EventTransferSingle       EventName = "TransferSingle"
	EventRoleGranted          EventName = "RoleGranted"
	EventRoleRevoked          EventName = "RoleRevoked"
	EventRegisteredConsumer   EventName = "RegisteredConsumer"
	EventUnregisteredConsumer EventName = "UnregisteredConsumer"
	EventRegisteredDealer     EventName = "RegisteredDealer"
	EventUnregisteredDealer   EventName = "UnregisteredDealer"
	EventRegisteredIndustry   EventName = "RegisteredIndustry"
	EventUnregisteredIndustry EventName = "UnregisteredIndustry"
)

// RoleEventNames are the events whose only payload of interest is the account
// whose roles may have changed.
var RoleEventNames = []EventName{
	EventRoleGranted,
	EventRoleRevoked,
	EventRegisteredConsumer,
	EventUnregisteredConsumer,
	EventRegisteredDealer,
	EventUnregisteredDealer,
	EventRegisteredIndustry,
	EventUnregisteredIndustry,
}

// AllEventNames are all the contract events the sync engine consumes.
var AllEventNames = append([]EventName{EventTokenCreated, EventTransferSingle}, RoleEventNames...)

func (n EventName) IsRoleEvent() bool {
	return slices.Contains(RoleEventNames, n)
}

func (n EventName) String() string {
	return string(n)
}

// Event is a decoded contract event. Exactly one of Transfer, TokenCreated or
// Account is set, depending on Name.
type Event struct {
	Name        EventName
	BlockNumber uint64
	TxHash      string
	LogIndex    uint

	// Removed is set for live events that were reverted by a chain reorganization.
	Removed bool

	Transfer     *Transfer
	TokenCreated *TokenDetails
	Account      string
}

// Transfer is the payload of a TransferSingle event.
type Transfer struct {
	Operator string
	From     string
	To       string
	TokenId  uint64
	Amount   uint128.Uint128
}

func (t Transfer) IsIssuance() bool {
	return t.From == BurnAddress
}

func (t Transfer) IsRetirement() bool {
	return t.To == BurnAddress
}

// TokenDetails are the token attributes as stored by the ledger contract.
type TokenDetails struct {
	TokenId     uint64
	TokenTypeId uint8
	IssuedBy    string
	// IssuedFrom is the decimal representation of the numeric issuer id.
	IssuedFrom   string
	IssuedTo     string
	FromDate     uint64
	ThruDate     uint64
	DateCreated  uint64
	Metadata     string
	Manifest     string
	Description  string
	TotalIssued  uint128.Uint128
	TotalRetired uint128.Uint128
}

// Roles are the roles granted to an account by the ledger contract.
type Roles struct {
	IsAdmin          bool
	IsConsumer       bool
	IsRecDealer      bool
	IsCeoDealer      bool
	IsAeDealer       bool
	IsIndustry       bool
	IsIndustryDealer bool
}

// Names returns the display names of the granted roles.
func (r Roles) Names() []string {
	names := make([]string, 0, 7)
	if r.IsAdmin {
		names = append(names, "Admin")
	}
	if r.IsConsumer {
		names = append(names, "Consumer")
	}
	if r.IsRecDealer {
		names = append(names, "REC Dealer")
	}
	if r.IsCeoDealer {
		names = append(names, "Offset Dealer")
	}
	if r.IsAeDealer {
		names = append(names, "Emissions Auditor")
	}
	if r.IsIndustry {
		names = append(names, "Industry")
	}
	if r.IsIndustryDealer {
		names = append(names, "Industry Dealer")
	}
	return names
}

// Reader reads the ledger. It keeps no state and performs no retries: errors
// from the node are returned to the caller.
type Reader interface {
	Name() string

	// GetPastEvents returns the events with the given names emitted in [fromBlock, toBlock], in ledger order.
	GetPastEvents(ctx context.Context, names []EventName, fromBlock, toBlock uint64) ([]Event, error)

	// GetCurrentHeight returns the current block number of the ledger.
	GetCurrentHeight(ctx context.Context) (uint64, error)

	// GetNumOfUniqueTokens returns the number of tokens created on the ledger. Token ids are sequential from 1.
	GetNumOfUniqueTokens(ctx context.Context) (uint64, error)

	GetTokenDetails(ctx context.Context, tokenId uint64) (TokenDetails, error)

	GetRoles(ctx context.Context, address string) (Roles, error)
}

// SubscriptionHandlers are the callbacks of a live event subscription.
type SubscriptionHandlers struct {
	OnData      func(ctx context.Context, event Event)
	OnChanged   func(ctx context.Context, event Event)
	OnError     func(ctx context.Context, err error)
	OnConnected func(ctx context.Context)
}

// Subscription is a live event subscription. Unsubscribe must be called to release it.
type Subscription interface {
	Unsubscribe()
	Err() <-chan error
	Done() <-chan struct{}
}

// Subscriber delivers live events.
type Subscriber interface {
	Subscribe(ctx context.Context, name EventName, handlers SubscriptionHandlers) (Subscription, error)
}

// SortEvents sorts events in ledger order.
func SortEvents(events []Event) {
	slices.SortStableFunc(events, func(a, b Event) int {
		if c := cmp.Compare(a.BlockNumber, b.BlockNumber); c != 0 {
			return c
		}
		return cmp.Compare(a.LogIndex, b.LogIndex)
	})
}
