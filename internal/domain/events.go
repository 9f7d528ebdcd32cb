package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/oklog/ulid/v2"
)

// EventType identifies an observable state change of an artist instance
type EventType string

const (
	EventTypeArtistCreated           EventType = "artist_created"
	EventTypeEditionCreated          EventType = "edition_created"
	EventTypeSignerAddressSet        EventType = "signer_address_set"
	EventTypePermissionedQuantitySet EventType = "permissioned_quantity_set"
	EventTypeBaseURISet              EventType = "base_uri_set"
	EventTypeTimeChanged             EventType = "time_changed"
	EventTypeTokenSold               EventType = "token_sold"
	EventTypePaymentRouted           EventType = "payment_routed"
	EventTypeRoleGranted             EventType = "role_granted"
	EventTypeRoleRevoked             EventType = "role_revoked"
	EventTypeOwnershipTransferred    EventType = "ownership_transferred"
	EventTypeUpgraded                EventType = "upgraded"
)

// TimeBoundary tags which edge of the sale window a TimeChanged event moved
type TimeBoundary uint8

const (
	TimeBoundaryStart TimeBoundary = 0
	TimeBoundaryEnd   TimeBoundary = 1
)

// String returns the string representation of the boundary
func (b TimeBoundary) String() string {
	if b == TimeBoundaryEnd {
		return "end"
	}
	return "start"
}

// SaleEvent is the normalized event published to indexers.
// EditionID is zero for instance-scoped events.
type SaleEvent struct {
	EventID         string         `json:"event_id"`
	EventType       EventType      `json:"event_type"`
	ContractAddress common.Address `json:"contract_address"`
	EditionID       uint64         `json:"edition_id,omitempty"`
	Data            EventData      `json:"data"`
	Timestamp       time.Time      `json:"timestamp"`
}

// EventData carries the type-specific payload; unused fields are omitted
type EventData struct {
	TokenID              string        `json:"token_id,omitempty"`
	SerialNumber         uint32        `json:"serial_number,omitempty"`
	Buyer                string        `json:"buyer,omitempty"`
	SignerAddress        string        `json:"signer_address,omitempty"`
	PermissionedQuantity *uint32       `json:"permissioned_quantity,omitempty"`
	BaseURI              *string       `json:"base_uri,omitempty"`
	NewTime              *uint32       `json:"new_time,omitempty"`
	TimeBoundary         *TimeBoundary `json:"time_type,omitempty"`
	Recipient            string        `json:"recipient,omitempty"`
	Amount               string        `json:"amount,omitempty"`
	Account              string        `json:"account,omitempty"`
	Role                 Role          `json:"role,omitempty"`
	Version              uint8         `json:"version,omitempty"`
	Name                 string        `json:"name,omitempty"`
	Price                string        `json:"price,omitempty"`
	Quantity             *uint32       `json:"quantity,omitempty"`
	RoyaltyBPS           *uint32       `json:"royalty_bps,omitempty"`
	StartTime            *uint32       `json:"start_time,omitempty"`
	EndTime              *uint32       `json:"end_time,omitempty"`
	PreviousOwner        string        `json:"previous_owner,omitempty"`
}

// NewSaleEvent builds an event stamped with a time-sortable ULID
func NewSaleEvent(eventType EventType, contract common.Address, editionID uint64, data EventData, timestamp time.Time) SaleEvent {
	return SaleEvent{
		EventID:         ulid.MustNewDefault(timestamp).String(),
		EventType:       eventType,
		ContractAddress: contract,
		EditionID:       editionID,
		Data:            data,
		Timestamp:       timestamp.UTC(),
	}
}
