package dto

import (
	"github.com/feral-file/ff-editions/internal/domain"
)

// ArtistResponse represents an artist instance
type ArtistResponse struct {
	Address      string `json:"address"`
	Owner        string `json:"owner"`
	Name         string `json:"name"`
	Symbol       string `json:"symbol"`
	BaseURI      string `json:"base_uri"`
	Version      uint8  `json:"version"`
	EditionCount uint64 `json:"edition_count"`
}

// ArtistListResponse represents a list of artist instances
type ArtistListResponse struct {
	Artists []ArtistResponse `json:"artists"`
}

// FactoryResponse represents the factory state
type FactoryResponse struct {
	Address       string `json:"address"`
	Owner         string `json:"owner"`
	Admin         string `json:"admin"`
	BeaconVersion uint8  `json:"beacon_version"`
}

// UpgradeResponse reports a beacon upgrade
type UpgradeResponse struct {
	Version  uint8 `json:"version"`
	Upgraded int64 `json:"upgraded"`
}

// RoleMembersResponse lists the holders of a role
type RoleMembersResponse struct {
	Role    string   `json:"role"`
	Members []string `json:"members"`
}

// MapArtistToDTO maps a domain artist to its response
func MapArtistToDTO(artist *domain.Artist) ArtistResponse {
	return ArtistResponse{
		Address:      artist.Address.Hex(),
		Owner:        artist.Owner.Hex(),
		Name:         artist.Name,
		Symbol:       artist.Symbol,
		BaseURI:      artist.BaseURI,
		Version:      artist.Version,
		EditionCount: artist.EditionCount,
	}
}
