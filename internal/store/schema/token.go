package schema

import (
	"time"
)

// Token represents the tokens table - every token minted by a sale and its current owner
type Token struct {
	// ContractAddress is the artist instance that minted the token
	ContractAddress string `gorm:"column:contract_address;primaryKey;type:text;index:idx_tokens_contract_edition,priority:1"`
	// TokenID is the token id (decimal string to support uint256)
	TokenID string `gorm:"column:token_id;primaryKey;type:text"`
	// EditionID is the edition the token was sold from; for sequential legacy ids
	// this column is the token -> edition mapping
	EditionID uint64 `gorm:"column:edition_id;not null;index:idx_tokens_contract_edition,priority:2"`
	// SerialNumber is the 1-based position of the token within its edition
	SerialNumber uint32 `gorm:"column:serial_number;not null"`
	// Owner is the current owner address
	Owner string `gorm:"column:owner;not null;type:text;index"`
	// CreatedAt is the timestamp when the token was minted
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName specifies the table name for the Token model
func (Token) TableName() string {
	return "tokens"
}
