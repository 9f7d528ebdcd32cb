package domain

import "math"

const (
	// Blockchain constants
	ETHEREUM_ZERO_ADDRESS = "0x0000000000000000000000000000000000000000"

	// MaxRoyaltyBPS is 100% expressed in basis points
	MaxRoyaltyBPS = 10000

	// UnboundedTime is the end time sentinel for editions that never close
	UnboundedTime = math.MaxUint32

	// MinCustomBaseURILength is the number of meaningful characters an edition
	// base URI must exceed before it replaces the contract default
	MinCustomBaseURILength = 3

	// MetadataFileName is appended to custom edition base URIs
	MetadataFileName = "metadata.json"

	// RoleAdmin is the only role an artist instance grants
	RoleAdmin Role = "ADMIN"
)
