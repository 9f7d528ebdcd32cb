package schema

import (
	"time"

	"gorm.io/datatypes"
)

// SaleEvent represents the sale_events table - the outbox of observable events.
// Rows are written in the same transaction as the state change they describe
// and published to the message broker afterwards.
type SaleEvent struct {
	// ID is an auto-incrementing sequence number that orders events
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// EventID is a unique identifier for this event (ULID for time-sortable uniqueness)
	EventID string `gorm:"column:event_id;not null;uniqueIndex;type:varchar(26)"`
	// EventType is the type of event (e.g., "token_sold")
	EventType string `gorm:"column:event_type;not null;type:varchar(50)"`
	// ContractAddress is the artist instance that emitted the event
	ContractAddress string `gorm:"column:contract_address;not null;type:text;index"`
	// EditionID is 0 for instance-scoped events
	EditionID uint64 `gorm:"column:edition_id;not null;default:0"`
	// Payload is the complete event as JSON
	Payload datatypes.JSON `gorm:"column:payload;not null;type:jsonb"`
	// Timestamp is when the state change happened
	Timestamp time.Time `gorm:"column:timestamp;not null"`
	// PublishedAt is set once the event reached the broker
	PublishedAt *time.Time `gorm:"column:published_at;index"`
	// Attempts is the number of publish attempts made
	Attempts int `gorm:"column:attempts;not null;default:0"`
	// LastError contains the error of the last failed publish attempt
	LastError string    `gorm:"column:last_error;not null;type:text;default:''"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName specifies the table name for the SaleEvent model
func (SaleEvent) TableName() string {
	return "sale_events"
}
