package domain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Chain represents the blockchain network identifier using CAIP-2 format
type Chain string

const (
	ChainEthereumMainnet Chain = "eip155:1"
	ChainEthereumSepolia Chain = "eip155:11155111"
	ChainHardhat         Chain = "eip155:1337"
)

// ChainID returns the numeric EIP-155 chain id
func (c Chain) ChainID() (*big.Int, error) {
	namespace, reference, ok := strings.Cut(string(c), ":")
	if !ok || namespace != "eip155" {
		return nil, fmt.Errorf("%w: unsupported chain %q", ErrInvalidConfig, c)
	}
	id, ok := new(big.Int).SetString(reference, 10)
	if !ok || id.Sign() <= 0 {
		return nil, fmt.Errorf("%w: invalid chain reference %q", ErrInvalidConfig, c)
	}
	return id, nil
}

// Role is an access-control role granted on an artist instance
type Role string

// IsZeroAddress reports whether the address is the null address
func IsZeroAddress(address common.Address) bool {
	return address == (common.Address{})
}

// NormalizeAddress normalizes an address to its checksummed hex form
func NormalizeAddress(address string) string {
	if strings.HasPrefix(address, "0x") {
		return common.HexToAddress(address).String()
	}
	return address
}

// Artist is one deployed artist contract instance
type Artist struct {
	// Address is the instance address derived by the factory
	Address common.Address
	// Owner is the artist wallet that controls the instance
	Owner common.Address
	// Name and Symbol are the collection name and ticker
	Name   string
	Symbol string
	// BaseURI is the contract-level default metadata URI
	BaseURI string
	// Version is the implementation version currently executed against the instance
	Version uint8
	// EditionCount is the auto-increment counter used by next-available allocation
	EditionCount uint64
	// LegacyTokenCount is the global sequential token counter used before packed token ids
	LegacyTokenCount uint64
}

// Token is an owned token minted by a sale
type Token struct {
	ContractAddress common.Address
	TokenID         *big.Int
	EditionID       uint64
	SerialNumber    uint32
	Owner           common.Address
}

// Ticket is a consumed presale ticket of one edition
type Ticket struct {
	ContractAddress common.Address
	EditionID       uint64
	TicketNumber    *big.Int
	Buyer           common.Address
}

// Payment is the routing instruction recorded for one purchase
type Payment struct {
	ContractAddress common.Address
	EditionID       uint64
	TokenID         *big.Int
	Buyer           common.Address
	Recipient       common.Address
	Amount          *big.Int
}
