package store

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/feral-file/ff-editions/internal/domain"
	"github.com/feral-file/ff-editions/internal/store/schema"
)

func toSchemaArtist(artist *domain.Artist) schema.Artist {
	return schema.Artist{
		Address:          artist.Address.Hex(),
		Owner:            artist.Owner.Hex(),
		Name:             artist.Name,
		Symbol:           artist.Symbol,
		BaseURI:          artist.BaseURI,
		Version:          artist.Version,
		EditionCount:     artist.EditionCount,
		LegacyTokenCount: artist.LegacyTokenCount,
	}
}

func toDomainArtist(row *schema.Artist) *domain.Artist {
	return &domain.Artist{
		Address:          common.HexToAddress(row.Address),
		Owner:            common.HexToAddress(row.Owner),
		Name:             row.Name,
		Symbol:           row.Symbol,
		BaseURI:          row.BaseURI,
		Version:          row.Version,
		EditionCount:     row.EditionCount,
		LegacyTokenCount: row.LegacyTokenCount,
	}
}

func toSchemaEdition(edition *domain.Edition) schema.Edition {
	price := "0"
	if edition.Price != nil {
		price = edition.Price.String()
	}
	return schema.Edition{
		ContractAddress:      edition.ContractAddress.Hex(),
		EditionID:            edition.ID,
		FundingRecipient:     edition.FundingRecipient.Hex(),
		Price:                price,
		NumSold:              edition.NumSold,
		Quantity:             edition.Quantity,
		RoyaltyBPS:           edition.RoyaltyBPS,
		StartTime:            edition.StartTime,
		EndTime:              edition.EndTime,
		PermissionedQuantity: edition.PermissionedQuantity,
		SignerAddress:        edition.SignerAddress.Hex(),
		BaseURI:              edition.BaseURI,
		LayoutVersion:        edition.LayoutVersion,
	}
}

func toDomainEdition(row *schema.Edition) (*domain.Edition, error) {
	price, ok := new(big.Int).SetString(row.Price, 10)
	if !ok {
		return nil, fmt.Errorf("invalid price %q for edition %d", row.Price, row.EditionID)
	}
	return &domain.Edition{
		ContractAddress:      common.HexToAddress(row.ContractAddress),
		ID:                   row.EditionID,
		FundingRecipient:     common.HexToAddress(row.FundingRecipient),
		Price:                price,
		NumSold:              row.NumSold,
		Quantity:             row.Quantity,
		RoyaltyBPS:           row.RoyaltyBPS,
		StartTime:            row.StartTime,
		EndTime:              row.EndTime,
		PermissionedQuantity: row.PermissionedQuantity,
		SignerAddress:        common.HexToAddress(row.SignerAddress),
		BaseURI:              row.BaseURI,
		LayoutVersion:        row.LayoutVersion,
	}, nil
}

func toDomainToken(row *schema.Token) (*domain.Token, error) {
	tokenID, ok := new(big.Int).SetString(row.TokenID, 10)
	if !ok {
		return nil, fmt.Errorf("invalid token id %q", row.TokenID)
	}
	return &domain.Token{
		ContractAddress: common.HexToAddress(row.ContractAddress),
		TokenID:         tokenID,
		EditionID:       row.EditionID,
		SerialNumber:    row.SerialNumber,
		Owner:           common.HexToAddress(row.Owner),
	}, nil
}

func toDomainEvent(row *schema.SaleEvent) (domain.SaleEvent, error) {
	var event domain.SaleEvent
	if err := json.Unmarshal(row.Payload, &event); err != nil {
		return domain.SaleEvent{}, fmt.Errorf("failed to unmarshal event %s: %w", row.EventID, err)
	}
	return event, nil
}
