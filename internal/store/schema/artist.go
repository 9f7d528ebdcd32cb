package schema

import "time"

// Artist represents the artists table - one row per artist contract instance created by the factory
type Artist struct {
	// Address is the deterministic instance address (checksummed hex)
	Address string `gorm:"column:address;primaryKey;type:text"`
	// Owner is the artist wallet that controls the instance
	Owner string `gorm:"column:owner;not null;type:text;index"`
	// Name is the collection name
	Name string `gorm:"column:name;not null;type:text"`
	// Symbol is the collection ticker
	Symbol string `gorm:"column:symbol;not null;type:text"`
	// BaseURI is the contract-level default metadata URI
	BaseURI string `gorm:"column:base_uri;not null;type:text"`
	// Version is the implementation version executed against this instance
	Version uint8 `gorm:"column:version;not null"`
	// EditionCount is the next-available allocation counter
	EditionCount uint64 `gorm:"column:edition_count;not null;default:0"`
	// LegacyTokenCount is the sequential token counter used before packed token ids
	LegacyTokenCount uint64 `gorm:"column:legacy_token_count;not null;default:0"`
	// CreatedAt is the timestamp when the instance was created
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	// UpdatedAt is the timestamp of the last change to the instance record
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for the Artist model
func (Artist) TableName() string {
	return "artists"
}
