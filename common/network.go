package common

type Network string

const (
	NetworkHardhat          Network = "hardhat"
	NetworkBSCTestnet       Network = "bsctestnet"
	NetworkAvalancheTestnet Network = "avalanchetestnet"
	NetworkGoerli           Network = "goerli"
	NetworkMainnet          Network = "mainnet"
)

var supportedNetworks = map[Network]struct{}{
	NetworkHardhat:          {},
	NetworkBSCTestnet:       {},
	NetworkAvalancheTestnet: {},
	NetworkGoerli:           {},
	NetworkMainnet:          {},
}

// networks delivering contract events over a websocket subscription.
var subscriptionNetworks = map[Network]struct{}{
	NetworkBSCTestnet:       {},
	NetworkAvalancheTestnet: {},
}

func (n Network) IsSupported() bool {
	_, ok := supportedNetworks[n]
	return ok
}

// IsLocal reports whether the network is a local development chain that
// auto-mines a block per transaction.
func (n Network) IsLocal() bool {
	return n == NetworkHardhat
}

// SupportsSubscription reports whether live event subscriptions are available by default.
func (n Network) SupportsSubscription() bool {
	_, ok := subscriptionNetworks[n]
	return ok
}

// FirstBlock returns the first block of interest for the network. Local networks
// always start from genesis, other networks start from the contract deployment block.
func (n Network) FirstBlock(deploymentBlock uint64) uint64 {
	if n.IsLocal() {
		return 0
	}
	return deploymentBlock
}

func (n Network) String() string {
	return string(n)
}
