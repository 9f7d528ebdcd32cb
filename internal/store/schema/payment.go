package schema

import "time"

// Payment represents the payments table - the routing instruction of every purchase
type Payment struct {
	// ID is an auto-incrementing sequence number
	ID              uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	ContractAddress string `gorm:"column:contract_address;not null;type:text;index:idx_payments_contract_edition,priority:1"`
	EditionID       uint64 `gorm:"column:edition_id;not null;index:idx_payments_contract_edition,priority:2"`
	TokenID         string `gorm:"column:token_id;not null;type:text"`
	Buyer           string `gorm:"column:buyer;not null;type:text"`
	// Recipient is the edition funding recipient at the time of sale
	Recipient string `gorm:"column:recipient;not null;type:text"`
	// Amount is the full payment in wei (decimal string)
	Amount    string    `gorm:"column:amount;not null;type:text"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName specifies the table name for the Payment model
func (Payment) TableName() string {
	return "payments"
}
