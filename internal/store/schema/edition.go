package schema

import "time"

// Edition represents the editions table - one configured batch of mintable tokens per row.
// Columns are only ever appended; every column added after the first release
// defaults to its zero value, which the sale logic reads as "feature disabled".
type Edition struct {
	// ContractAddress is the artist instance owning the edition
	ContractAddress string `gorm:"column:contract_address;primaryKey;type:text"`
	// EditionID is immutable and never reassigned
	EditionID uint64 `gorm:"column:edition_id;primaryKey;autoIncrement:false"`
	// FundingRecipient receives sale proceeds
	FundingRecipient string `gorm:"column:funding_recipient;not null;type:text"`
	// Price is the per-token price in wei (decimal string to support uint256)
	Price string `gorm:"column:price;not null;type:text"`
	// NumSold only ever increases
	NumSold uint32 `gorm:"column:num_sold;not null;default:0"`
	// Quantity is the supply cap; 0 means open edition
	Quantity uint32 `gorm:"column:quantity;not null;default:0"`
	// RoyaltyBPS is the secondary sale royalty in basis points
	RoyaltyBPS uint32 `gorm:"column:royalty_bps;not null;default:0"`
	// StartTime is the epoch second the sale opens
	StartTime uint32 `gorm:"column:start_time;not null;default:0"`
	// EndTime is the epoch second the sale closes; 0 or 2^32-1 means never
	EndTime uint32 `gorm:"column:end_time;not null;default:0"`
	// PermissionedQuantity is the leading number of sales that require a presale signature
	PermissionedQuantity uint32 `gorm:"column:permissioned_quantity;not null;default:0"`
	// SignerAddress co-signs presale tickets; the zero address disables gating
	SignerAddress string `gorm:"column:signer_address;not null;type:text;default:'0x0000000000000000000000000000000000000000'"`
	// BaseURI optionally overrides the contract default metadata URI
	BaseURI string `gorm:"column:base_uri;not null;type:text;default:''"`
	// LayoutVersion is the implementation version the edition was created under
	LayoutVersion uint8 `gorm:"column:layout_version;not null"`
	// CreatedAt is the timestamp when the edition was created
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	// UpdatedAt is the timestamp of the last change to the edition
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for the Edition model
func (Edition) TableName() string {
	return "editions"
}
