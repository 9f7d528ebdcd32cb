package store

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/feral-file/ff-editions/internal/domain"
)

// Store defines the interface for database operations
type Store interface {
	EventStore
	KeyValueStore

	// WithTx runs fn inside one database transaction; any error rolls back every write made through tx
	WithTx(ctx context.Context, fn func(tx Store) error) error

	// CreateArtist inserts a new artist instance
	CreateArtist(ctx context.Context, artist *domain.Artist) error
	// GetArtist retrieves an artist instance by address, nil if absent
	GetArtist(ctx context.Context, address common.Address) (*domain.Artist, error)
	// ListArtists retrieves every artist instance ordered by creation
	ListArtists(ctx context.Context) ([]*domain.Artist, error)
	// UpdateArtist persists the mutable fields of an artist instance
	UpdateArtist(ctx context.Context, artist *domain.Artist) error
	// SetArtistVersions moves every artist instance to the given implementation version
	SetArtistVersions(ctx context.Context, version uint8) (int64, error)

	// CreateEdition inserts a new edition
	CreateEdition(ctx context.Context, edition *domain.Edition) error
	// GetEdition retrieves an edition, nil if absent
	GetEdition(ctx context.Context, contract common.Address, editionID uint64) (*domain.Edition, error)
	// ListEditions retrieves every edition of an artist instance ordered by id
	ListEditions(ctx context.Context, contract common.Address) ([]*domain.Edition, error)
	// UpdateEdition persists the mutable fields of an edition
	UpdateEdition(ctx context.Context, edition *domain.Edition) error

	// IsTicketConsumed reports whether the ticket was consumed for the edition
	IsTicketConsumed(ctx context.Context, contract common.Address, editionID uint64, ticketNumber *big.Int) (bool, error)
	// InsertTicket records a consumed ticket
	InsertTicket(ctx context.Context, ticket *domain.Ticket) error

	// CreateToken records a minted token and its owner
	CreateToken(ctx context.Context, token *domain.Token) error
	// GetToken retrieves a token, nil if absent
	GetToken(ctx context.Context, contract common.Address, tokenID *big.Int) (*domain.Token, error)
	// GetTokens retrieves tokens keyed by their decimal token id; unknown ids are absent from the map
	GetTokens(ctx context.Context, contract common.Address, tokenIDs []*big.Int) (map[string]*domain.Token, error)
	// CountTokens returns the number of tokens minted by an artist instance
	CountTokens(ctx context.Context, contract common.Address) (uint64, error)

	// CreatePayment records a payment routing instruction
	CreatePayment(ctx context.Context, payment *domain.Payment) error
	// ListPayments retrieves the payments of one edition ordered by sale
	ListPayments(ctx context.Context, contract common.Address, editionID uint64) ([]*domain.Payment, error)

	// HasRole reports whether account holds role on the artist instance
	HasRole(ctx context.Context, contract common.Address, role domain.Role, account common.Address) (bool, error)
	// GrantRole grants role to account and reports whether it was newly granted
	GrantRole(ctx context.Context, contract common.Address, role domain.Role, account common.Address) (bool, error)
	// RevokeRole revokes role from account and reports whether it was held
	RevokeRole(ctx context.Context, contract common.Address, role domain.Role, account common.Address) (bool, error)
	// ListRoleMembers lists the accounts holding role on the artist instance
	ListRoleMembers(ctx context.Context, contract common.Address, role domain.Role) ([]common.Address, error)
}

// EventStore is the outbox of observable events
type EventStore interface {
	// AppendEvents records events in order
	AppendEvents(ctx context.Context, events []domain.SaleEvent) error
	// ListEvents retrieves recorded events matching the filter ordered by sequence
	ListEvents(ctx context.Context, filter EventFilter) ([]domain.SaleEvent, error)
	// GetPendingEvents retrieves up to limit unpublished events ordered by sequence
	GetPendingEvents(ctx context.Context, limit int) ([]PendingEvent, error)
	// MarkEventPublished marks an event as delivered to the broker
	MarkEventPublished(ctx context.Context, id uint64, publishedAt time.Time) error
	// MarkEventFailed records a failed publish attempt
	MarkEventFailed(ctx context.Context, id uint64, errMsg string) error
}

// KeyValueStore stores instance-independent state
type KeyValueStore interface {
	// SetKeyValue sets a key-value pair
	SetKeyValue(ctx context.Context, key string, value string) error
	// GetKeyValue retrieves a value by key, empty if absent
	GetKeyValue(ctx context.Context, key string) (string, error)
	// DeleteKeyValue removes a key
	DeleteKeyValue(ctx context.Context, key string) error
	// GetAllKeyValuesByPrefix retrieves all key-value pairs with a specific prefix
	GetAllKeyValuesByPrefix(ctx context.Context, prefix string) (map[string]string, error)
}

// EventFilter narrows ListEvents
type EventFilter struct {
	ContractAddress *common.Address
	EditionID       *uint64
	EventTypes      []domain.EventType
	Limit           int
	Offset          uint64
}

// PendingEvent is an outbox row waiting to be published
type PendingEvent struct {
	ID       uint64
	Attempts int
	Event    domain.SaleEvent
}
