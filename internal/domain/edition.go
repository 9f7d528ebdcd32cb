package domain

import (
	"math/big"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/common"
)

// SaleState is the derived sale state of an edition at a given time
type SaleState string

const (
	SaleStateNotStarted  SaleState = "not_started"
	SaleStateOpen        SaleState = "open"
	SaleStatePresaleOnly SaleState = "presale_only"
	SaleStateSoldOut     SaleState = "sold_out"
	SaleStateEnded       SaleState = "ended"
)

// Edition is one independently priced batch of mintable tokens
type Edition struct {
	ContractAddress      common.Address
	ID                   uint64
	FundingRecipient     common.Address
	Price                *big.Int
	NumSold              uint32
	Quantity             uint32
	RoyaltyBPS           uint32
	StartTime            uint32
	EndTime              uint32
	PermissionedQuantity uint32
	SignerAddress        common.Address
	BaseURI              string
	// LayoutVersion is the storage layout version the edition was created under
	LayoutVersion uint8
}

// EditionConfig holds the caller-supplied parameters of a new edition
type EditionConfig struct {
	FundingRecipient     common.Address
	Price                *big.Int
	Quantity             uint32
	RoyaltyBPS           uint32
	StartTime            uint32
	EndTime              uint32
	PermissionedQuantity uint32
	SignerAddress        common.Address
	BaseURI              string
}

// IsOpenEdition reports whether the edition has no supply cap
func (e *Edition) IsOpenEdition() bool {
	return e.Quantity == 0
}

// HasEndTime reports whether the edition closes at EndTime
func (e *Edition) HasEndTime() bool {
	return e.EndTime != 0 && e.EndTime != UnboundedTime
}

// IsSoldOut reports whether a bounded edition has no tokens left
func (e *Edition) IsSoldOut() bool {
	return !e.IsOpenEdition() && e.NumSold >= e.Quantity
}

// PresaleActive reports whether the next purchase must carry a presale signature
func (e *Edition) PresaleActive() bool {
	return !IsZeroAddress(e.SignerAddress) && e.NumSold < e.PermissionedQuantity
}

// HasCustomBaseURI reports whether the edition base URI replaces the contract default
func (e *Edition) HasCustomBaseURI() bool {
	meaningful := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, e.BaseURI)
	return utf8.RuneCountInString(meaningful) > MinCustomBaseURILength
}

// State derives the sale state at now (epoch seconds)
func (e *Edition) State(now uint64) SaleState {
	switch {
	case now < uint64(e.StartTime):
		return SaleStateNotStarted
	case e.HasEndTime() && now > uint64(e.EndTime):
		return SaleStateEnded
	case e.IsSoldOut():
		return SaleStateSoldOut
	case e.PresaleActive():
		return SaleStatePresaleOnly
	default:
		return SaleStateOpen
	}
}
