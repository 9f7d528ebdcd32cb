package dto

import (
	"math/big"
	"strconv"
	"time"

	"github.com/feral-file/ff-editions/internal/domain"
	"github.com/feral-file/ff-editions/internal/sale"
)

// PurchaseResponse describes a minted token
type PurchaseResponse struct {
	TokenID      string `json:"token_id"`
	EditionID    string `json:"edition_id"`
	SerialNumber uint32 `json:"serial_number"`
	Buyer        string `json:"buyer"`
	Recipient    string `json:"recipient"`
	Amount       string `json:"amount"`
	Presale      bool   `json:"presale"`
}

// TokenResponse describes a minted token and its metadata location
type TokenResponse struct {
	TokenID  string `json:"token_id"`
	Owner    string `json:"owner"`
	TokenURI string `json:"token_uri"`
}

// OwnersResponse lists owners in the order of the requested token ids
type OwnersResponse struct {
	Owners []string `json:"owners"`
}

// RoyaltyResponse is the royalty owed on a sale
type RoyaltyResponse struct {
	Receiver string `json:"receiver"`
	Amount   string `json:"amount"`
}

// TicketStatusResponse lists whether each ticket was consumed
type TicketStatusResponse struct {
	Used []bool `json:"used"`
}

// SupplyResponse reports the mint counters of an artist instance
type SupplyResponse struct {
	TotalSupply  uint64 `json:"total_supply"`
	EditionCount uint64 `json:"edition_count"`
}

// EventResponse represents a recorded sale event
type EventResponse struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	EditionID string           `json:"edition_id,omitempty"`
	Data      domain.EventData `json:"data"`
	Timestamp time.Time        `json:"timestamp"`
}

// EventListResponse represents a page of events
type EventListResponse struct {
	Events []EventResponse `json:"events"`
	Offset uint64          `json:"offset"`
}

// MapReceiptToDTO maps a purchase receipt to its response
func MapReceiptToDTO(receipt *sale.Receipt) PurchaseResponse {
	resp := PurchaseResponse{
		TokenID:      bigString(receipt.TokenID),
		EditionID:    uint64String(receipt.EditionID),
		SerialNumber: receipt.SerialNumber,
		Buyer:        receipt.Buyer.Hex(),
		Presale:      receipt.Presale,
	}
	if receipt.Payment != nil {
		resp.Recipient = receipt.Payment.Recipient.Hex()
		resp.Amount = bigString(receipt.Payment.Amount)
	}
	return resp
}

// MapEventToDTO maps a sale event to its response
func MapEventToDTO(event domain.SaleEvent) EventResponse {
	resp := EventResponse{
		EventID:   event.EventID,
		EventType: string(event.EventType),
		Data:      event.Data,
		Timestamp: event.Timestamp,
	}
	if event.EditionID != 0 {
		resp.EditionID = uint64String(event.EditionID)
	}
	return resp
}

// uint64String renders ids as decimal strings; JSON numbers lose precision above 2^53
func uint64String(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
