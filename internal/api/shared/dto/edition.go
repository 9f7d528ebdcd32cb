package dto

import (
	"github.com/feral-file/ff-editions/internal/domain"
)

// EditionResponse represents an edition and its sale state
type EditionResponse struct {
	ContractAddress      string `json:"contract_address"`
	EditionID            string `json:"edition_id"`
	FundingRecipient     string `json:"funding_recipient"`
	Price                string `json:"price"`
	NumSold              uint32 `json:"num_sold"`
	Quantity             uint32 `json:"quantity"`
	RoyaltyBPS           uint32 `json:"royalty_bps"`
	StartTime            uint32 `json:"start_time"`
	EndTime              uint32 `json:"end_time"`
	PermissionedQuantity uint32 `json:"permissioned_quantity"`
	SignerAddress        string `json:"signer_address,omitempty"`
	BaseURI              string `json:"base_uri,omitempty"`
	State                string `json:"state,omitempty"`
}

// EditionListResponse represents the editions of an artist instance
type EditionListResponse struct {
	Editions []EditionResponse `json:"editions"`
	Total    uint64            `json:"total"`
}

// MapEditionToDTO maps a domain edition to its response; state may be empty
func MapEditionToDTO(edition *domain.Edition, state domain.SaleState) EditionResponse {
	resp := EditionResponse{
		ContractAddress:      edition.ContractAddress.Hex(),
		EditionID:            uint64String(edition.ID),
		FundingRecipient:     edition.FundingRecipient.Hex(),
		Price:                bigString(edition.Price),
		NumSold:              edition.NumSold,
		Quantity:             edition.Quantity,
		RoyaltyBPS:           edition.RoyaltyBPS,
		StartTime:            edition.StartTime,
		EndTime:              edition.EndTime,
		PermissionedQuantity: edition.PermissionedQuantity,
		BaseURI:              edition.BaseURI,
		State:                string(state),
	}
	if !domain.IsZeroAddress(edition.SignerAddress) {
		resp.SignerAddress = edition.SignerAddress.Hex()
	}
	return resp
}
