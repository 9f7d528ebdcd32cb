package schema

import "time"

// Ticket represents the tickets table - consumed presale ticket numbers per edition
type Ticket struct {
	ContractAddress string `gorm:"column:contract_address;primaryKey;type:text"`
	EditionID       uint64 `gorm:"column:edition_id;primaryKey;autoIncrement:false"`
	// TicketNumber is the caller-chosen ticket (decimal string to support uint256)
	TicketNumber string `gorm:"column:ticket_number;primaryKey;type:text"`
	// Buyer is the address that consumed the ticket
	Buyer     string    `gorm:"column:buyer;not null;type:text"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName specifies the table name for the Ticket model
func (Ticket) TableName() string {
	return "tickets"
}
