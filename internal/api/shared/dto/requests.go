package dto

// CreateArtistRequest deploys an artist instance for the authenticated wallet
type CreateArtistRequest struct {
	Name    string `json:"name" binding:"required"`
	Symbol  string `json:"symbol" binding:"required"`
	BaseURI string `json:"base_uri"`
	// Signature is the platform admin's hex encoded authorization of the wallet
	Signature string `json:"signature" binding:"required"`
}

// CreateEditionRequest configures a new edition.
// Amounts are decimal wei strings and EditionID is only honored by instances that support explicit ids.
type CreateEditionRequest struct {
	EditionID            *string `json:"edition_id"`
	FundingRecipient     string  `json:"funding_recipient" binding:"required"`
	Price                string  `json:"price" binding:"required"`
	Quantity             uint32  `json:"quantity"`
	RoyaltyBPS           uint32  `json:"royalty_bps"`
	StartTime            uint32  `json:"start_time"`
	EndTime              uint32  `json:"end_time"`
	PermissionedQuantity uint32  `json:"permissioned_quantity"`
	SignerAddress        string  `json:"signer_address"`
	BaseURI              string  `json:"base_uri"`
}

// PurchaseRequest buys one token for the authenticated wallet
type PurchaseRequest struct {
	Payment      string `json:"payment" binding:"required"`
	Signature    string `json:"signature"`
	TicketNumber string `json:"ticket_number"`
}

// SetSignerRequest sets the presale signer of an edition
type SetSignerRequest struct {
	SignerAddress string `json:"signer_address" binding:"required"`
}

// SetPermissionedQuantityRequest sets how many sales require a presale ticket
type SetPermissionedQuantityRequest struct {
	PermissionedQuantity uint32 `json:"permissioned_quantity"`
}

// SetTimeRequest moves one edge of the sale window
type SetTimeRequest struct {
	Time uint32 `json:"time"`
}

// SetBaseURIRequest sets the edition base URI
type SetBaseURIRequest struct {
	BaseURI string `json:"base_uri"`
}

// CheckTicketsRequest asks whether tickets were consumed
type CheckTicketsRequest struct {
	TicketNumbers []string `json:"ticket_numbers" binding:"required"`
}

// AddressRequest carries a single account, new owner or admin
type AddressRequest struct {
	Address string `json:"address" binding:"required"`
}

// UpgradeRequest selects the implementation version of every instance
type UpgradeRequest struct {
	Version uint8 `json:"version" binding:"required"`
}
