package evm

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// contractABI is the subset of the emissions token network contract consumed by the sync engine.
const contractABI = `[
	{"type":"event","name":"TransferSingle","anonymous":false,"inputs":[
		{"name":"operator","type":"address","indexed":true},
		{"name":"from","type":"address","indexed":true},
		{"name":"to","type":"address","indexed":true},
		{"name":"id","type":"uint256","indexed":false},
		{"name":"value","type":"uint256","indexed":false}]},
	{"type":"event","name":"TokenCreated","anonymous":false,"inputs":[
		{"name":"availableBalance","type":"uint256","indexed":false},
		{"name":"retiredBalance","type":"uint256","indexed":false},
		{"name":"tokenId","type":"uint256","indexed":true},
		{"name":"tokenTypeId","type":"uint8","indexed":false},
		{"name":"issuedBy","type":"address","indexed":true},
		{"name":"issuedFrom","type":"uint160","indexed":false},
		{"name":"issuedTo","type":"address","indexed":true},
		{"name":"fromDate","type":"uint256","indexed":false},
		{"name":"thruDate","type":"uint256","indexed":false},
		{"name":"dateCreated","type":"uint256","indexed":false},
		{"name":"metadata","type":"string","indexed":false},
		{"name":"manifest","type":"string","indexed":false},
		{"name":"description","type":"string","indexed":false}]},
	{"type":"event","name":"RoleGranted","anonymous":false,"inputs":[
		{"name":"role","type":"bytes32","indexed":true},
		{"name":"account","type":"address","indexed":true},
		{"name":"sender","type":"address","indexed":true}]},
	{"type":"event","name":"RoleRevoked","anonymous":false,"inputs":[
		{"name":"role","type":"bytes32","indexed":true},
		{"name":"account","type":"address","indexed":true},
		{"name":"sender","type":"address","indexed":true}]},
	{"type":"event","name":"RegisteredConsumer","anonymous":false,"inputs":[
		{"name":"account","type":"address","indexed":true}]},
	{"type":"event","name":"UnregisteredConsumer","anonymous":false,"inputs":[
		{"name":"account","type":"address","indexed":true}]},
	{"type":"event","name":"RegisteredDealer","anonymous":false,"inputs":[
		{"name":"account","type":"address","indexed":true}]},
	{"type":"event","name":"UnregisteredDealer","anonymous":false,"inputs":[
		{"name":"account","type":"address","indexed":true}]},
	{"type":"event","name":"RegisteredIndustry","anonymous":false,"inputs":[
		{"name":"account","type":"address","indexed":true}]},
	{"type":"event","name":"UnregisteredIndustry","anonymous":false,"inputs":[
		{"name":"account","type":"address","indexed":true}]},
	{"type":"function","name":"getNumOfUniqueTokens","stateMutability":"view","inputs":[],
		"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"getTokenDetails","stateMutability":"view","inputs":[
		{"name":"tokenId","type":"uint256"}],
		"outputs":[{"name":"","type":"tuple","components":[
			{"name":"tokenId","type":"uint256"},
			{"name":"tokenTypeId","type":"uint8"},
			{"name":"issuedBy","type":"address"},
			{"name":"issuedFrom","type":"uint160"},
			{"name":"issuedTo","type":"address"},
			{"name":"fromDate","type":"uint256"},
			{"name":"thruDate","type":"uint256"},
			{"name":"dateCreated","type":"uint256"},
			{"name":"metadata","type":"string"},
			{"name":"manifest","type":"string"},
			{"name":"description","type":"string"},
			{"name":"totalIssued","type":"uint256"},
			{"name":"totalRetired","type":"uint256"}]}]},
	{"type":"function","name":"getRoles","stateMutability":"view","inputs":[
		{"name":"account","type":"address"}],
		"outputs":[
			{"name":"isAdmin","type":"bool"},
			{"name":"isConsumer","type":"bool"},
			{"name":"isRecDealer","type":"bool"},
			{"name":"isCeoDealer","type":"bool"},
			{"name":"isAeDealer","type":"bool"},
			{"name":"isIndustry","type":"bool"},
			{"name":"isIndustryDealer","type":"bool"}]}
]`

const (
	methodGetNumOfUniqueTokens = "getNumOfUniqueTokens"
	methodGetTokenDetails      = "getTokenDetails"
	methodGetRoles             = "getRoles"
)

// ContractABI returns the parsed contract ABI.
func ContractABI() abi.ABI {
	return parsedABI
}

var parsedABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(contractABI))
	if err != nil {
		panic(err)
	}
	return parsed
}()
