package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/feral-file/ff-editions/internal/domain"
	"github.com/feral-file/ff-editions/internal/store/schema"
)

type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a store over a PostgreSQL or SQLite gorm connection
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// ConfigureConnectionPool configures the connection pool settings for a GORM database connection.
// It accesses the underlying *sql.DB and sets the pool configuration.
// If any of the pool settings are 0 or empty, reasonable defaults are used:
//   - MaxOpenConns: 20 (if 0)
//   - MaxIdleConns: 5 (if 0)
//   - ConnMaxLifetime: 5 minutes (if 0)
//   - ConnMaxIdleTime: 10 minutes (if 0)
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime =
		NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// NormalizeConnectionPoolSettings applies defaults and clamps pool settings into safe values.
//
// Defaults (when zero):
//   - MaxOpenConns: 20
//   - MaxIdleConns: 5
//   - ConnMaxLifetime: 5 minutes
//   - ConnMaxIdleTime: 10 minutes
func NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (int, int, time.Duration, time.Duration) {
	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}

	// Ensure MaxIdleConns doesn't exceed MaxOpenConns
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	return maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime
}

// WithTx runs fn inside one database transaction
func (s *gormStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

// =============================================================================
// Artists
// =============================================================================

// CreateArtist inserts a new artist instance
func (s *gormStore) CreateArtist(ctx context.Context, artist *domain.Artist) error {
	existing, err := s.GetArtist(ctx, artist.Address)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateArtist, artist.Address.Hex())
	}

	row := toSchemaArtist(artist)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to create artist: %w", err)
	}
	return nil
}

// GetArtist retrieves an artist instance by address
func (s *gormStore) GetArtist(ctx context.Context, address common.Address) (*domain.Artist, error) {
	var row schema.Artist
	err := s.db.WithContext(ctx).Where("address = ?", address.Hex()).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get artist: %w", err)
	}
	return toDomainArtist(&row), nil
}

// ListArtists retrieves every artist instance ordered by creation
func (s *gormStore) ListArtists(ctx context.Context) ([]*domain.Artist, error) {
	var rows []schema.Artist
	if err := s.db.WithContext(ctx).Order("created_at ASC, address ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list artists: %w", err)
	}

	artists := make([]*domain.Artist, 0, len(rows))
	for i := range rows {
		artists = append(artists, toDomainArtist(&rows[i]))
	}
	return artists, nil
}

// UpdateArtist persists the mutable fields of an artist instance
func (s *gormStore) UpdateArtist(ctx context.Context, artist *domain.Artist) error {
	result := s.db.WithContext(ctx).
		Model(&schema.Artist{}).
		Where("address = ?", artist.Address.Hex()).
		Updates(map[string]interface{}{
			"owner":              artist.Owner.Hex(),
			"base_uri":           artist.BaseURI,
			"version":            artist.Version,
			"edition_count":      artist.EditionCount,
			"legacy_token_count": artist.LegacyTokenCount,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update artist: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: artist %s", domain.ErrNotFound, artist.Address.Hex())
	}
	return nil
}

// SetArtistVersions moves every artist instance to the given implementation version
func (s *gormStore) SetArtistVersions(ctx context.Context, version uint8) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&schema.Artist{}).
		Where("version <> ?", version).
		Update("version", version)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to set artist versions: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// =============================================================================
// Editions
// =============================================================================

// CreateEdition inserts a new edition
func (s *gormStore) CreateEdition(ctx context.Context, edition *domain.Edition) error {
	existing, err := s.GetEdition(ctx, edition.ContractAddress, edition.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: edition %d", domain.ErrDuplicateEdition, edition.ID)
	}

	row := toSchemaEdition(edition)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to create edition: %w", err)
	}
	return nil
}

// GetEdition retrieves an edition
func (s *gormStore) GetEdition(ctx context.Context, contract common.Address, editionID uint64) (*domain.Edition, error) {
	var row schema.Edition
	err := s.db.WithContext(ctx).
		Where("contract_address = ? AND edition_id = ?", contract.Hex(), editionID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get edition: %w", err)
	}
	return toDomainEdition(&row)
}

// ListEditions retrieves every edition of an artist instance ordered by id
func (s *gormStore) ListEditions(ctx context.Context, contract common.Address) ([]*domain.Edition, error) {
	var rows []schema.Edition
	err := s.db.WithContext(ctx).
		Where("contract_address = ?", contract.Hex()).
		Order("edition_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list editions: %w", err)
	}

	editions := make([]*domain.Edition, 0, len(rows))
	for i := range rows {
		edition, err := toDomainEdition(&rows[i])
		if err != nil {
			return nil, err
		}
		editions = append(editions, edition)
	}
	return editions, nil
}

// UpdateEdition persists the mutable fields of an edition
func (s *gormStore) UpdateEdition(ctx context.Context, edition *domain.Edition) error {
	row := toSchemaEdition(edition)
	result := s.db.WithContext(ctx).
		Model(&schema.Edition{}).
		Where("contract_address = ? AND edition_id = ?", row.ContractAddress, row.EditionID).
		Updates(map[string]interface{}{
			"funding_recipient":     row.FundingRecipient,
			"price":                 row.Price,
			"num_sold":              row.NumSold,
			"quantity":              row.Quantity,
			"royalty_bps":           row.RoyaltyBPS,
			"start_time":            row.StartTime,
			"end_time":              row.EndTime,
			"permissioned_quantity": row.PermissionedQuantity,
			"signer_address":        row.SignerAddress,
			"base_uri":              row.BaseURI,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update edition: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: edition %d", domain.ErrNotFound, edition.ID)
	}
	return nil
}

// =============================================================================
// Tickets
// =============================================================================

// IsTicketConsumed reports whether the ticket was consumed for the edition
func (s *gormStore) IsTicketConsumed(ctx context.Context, contract common.Address, editionID uint64, ticketNumber *big.Int) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&schema.Ticket{}).
		Where("contract_address = ? AND edition_id = ? AND ticket_number = ?", contract.Hex(), editionID, ticketNumber.String()).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check ticket: %w", err)
	}
	return count > 0, nil
}

// InsertTicket records a consumed ticket
func (s *gormStore) InsertTicket(ctx context.Context, ticket *domain.Ticket) error {
	row := schema.Ticket{
		ContractAddress: ticket.ContractAddress.Hex(),
		EditionID:       ticket.EditionID,
		TicketNumber:    ticket.TicketNumber.String(),
		Buyer:           ticket.Buyer.Hex(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert ticket: %w", err)
	}
	return nil
}

// =============================================================================
// Tokens
// =============================================================================

// CreateToken records a minted token and its owner
func (s *gormStore) CreateToken(ctx context.Context, token *domain.Token) error {
	row := schema.Token{
		ContractAddress: token.ContractAddress.Hex(),
		TokenID:         token.TokenID.String(),
		EditionID:       token.EditionID,
		SerialNumber:    token.SerialNumber,
		Owner:           token.Owner.Hex(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to create token: %w", err)
	}
	return nil
}

// GetToken retrieves a token
func (s *gormStore) GetToken(ctx context.Context, contract common.Address, tokenID *big.Int) (*domain.Token, error) {
	var row schema.Token
	err := s.db.WithContext(ctx).
		Where("contract_address = ? AND token_id = ?", contract.Hex(), tokenID.String()).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get token: %w", err)
	}
	return toDomainToken(&row)
}

// GetTokens retrieves tokens keyed by their decimal token id
func (s *gormStore) GetTokens(ctx context.Context, contract common.Address, tokenIDs []*big.Int) (map[string]*domain.Token, error) {
	if len(tokenIDs) == 0 {
		return map[string]*domain.Token{}, nil
	}

	ids := make([]string, 0, len(tokenIDs))
	for _, tokenID := range tokenIDs {
		ids = append(ids, tokenID.String())
	}

	var rows []schema.Token
	err := s.db.WithContext(ctx).
		Where("contract_address = ? AND token_id IN ?", contract.Hex(), ids).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get tokens: %w", err)
	}

	tokens := make(map[string]*domain.Token, len(rows))
	for i := range rows {
		token, err := toDomainToken(&rows[i])
		if err != nil {
			return nil, err
		}
		tokens[rows[i].TokenID] = token
	}
	return tokens, nil
}

// CountTokens returns the number of tokens minted by an artist instance
func (s *gormStore) CountTokens(ctx context.Context, contract common.Address) (uint64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&schema.Token{}).
		Where("contract_address = ?", contract.Hex()).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count tokens: %w", err)
	}
	return uint64(count), nil
}

// =============================================================================
// Payments
// =============================================================================

// CreatePayment records a payment routing instruction
func (s *gormStore) CreatePayment(ctx context.Context, payment *domain.Payment) error {
	row := schema.Payment{
		ContractAddress: payment.ContractAddress.Hex(),
		EditionID:       payment.EditionID,
		TokenID:         payment.TokenID.String(),
		Buyer:           payment.Buyer.Hex(),
		Recipient:       payment.Recipient.Hex(),
		Amount:          payment.Amount.String(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// ListPayments retrieves the payments of one edition ordered by sale
func (s *gormStore) ListPayments(ctx context.Context, contract common.Address, editionID uint64) ([]*domain.Payment, error) {
	var rows []schema.Payment
	err := s.db.WithContext(ctx).
		Where("contract_address = ? AND edition_id = ?", contract.Hex(), editionID).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	payments := make([]*domain.Payment, 0, len(rows))
	for _, row := range rows {
		tokenID, ok := new(big.Int).SetString(row.TokenID, 10)
		if !ok {
			return nil, fmt.Errorf("invalid token id %q in payment %d", row.TokenID, row.ID)
		}
		amount, ok := new(big.Int).SetString(row.Amount, 10)
		if !ok {
			return nil, fmt.Errorf("invalid amount %q in payment %d", row.Amount, row.ID)
		}
		payments = append(payments, &domain.Payment{
			ContractAddress: common.HexToAddress(row.ContractAddress),
			EditionID:       row.EditionID,
			TokenID:         tokenID,
			Buyer:           common.HexToAddress(row.Buyer),
			Recipient:       common.HexToAddress(row.Recipient),
			Amount:          amount,
		})
	}
	return payments, nil
}

// =============================================================================
// Roles
// =============================================================================

// HasRole reports whether account holds role on the artist instance
func (s *gormStore) HasRole(ctx context.Context, contract common.Address, role domain.Role, account common.Address) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&schema.RoleMember{}).
		Where("contract_address = ? AND role = ? AND account = ?", contract.Hex(), string(role), account.Hex()).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check role: %w", err)
	}
	return count > 0, nil
}

// GrantRole grants role to account and reports whether it was newly granted
func (s *gormStore) GrantRole(ctx context.Context, contract common.Address, role domain.Role, account common.Address) (bool, error) {
	row := schema.RoleMember{
		ContractAddress: contract.Hex(),
		Role:            string(role),
		Account:         account.Hex(),
	}
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row)
	if result.Error != nil {
		return false, fmt.Errorf("failed to grant role: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// RevokeRole revokes role from account and reports whether it was held
func (s *gormStore) RevokeRole(ctx context.Context, contract common.Address, role domain.Role, account common.Address) (bool, error) {
	result := s.db.WithContext(ctx).
		Where("contract_address = ? AND role = ? AND account = ?", contract.Hex(), string(role), account.Hex()).
		Delete(&schema.RoleMember{})
	if result.Error != nil {
		return false, fmt.Errorf("failed to revoke role: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ListRoleMembers lists the accounts holding role on the artist instance
func (s *gormStore) ListRoleMembers(ctx context.Context, contract common.Address, role domain.Role) ([]common.Address, error) {
	var rows []schema.RoleMember
	err := s.db.WithContext(ctx).
		Where("contract_address = ? AND role = ?", contract.Hex(), string(role)).
		Order("created_at ASC, account ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list role members: %w", err)
	}

	accounts := make([]common.Address, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, common.HexToAddress(row.Account))
	}
	return accounts, nil
}

// =============================================================================
// Events
// =============================================================================

// AppendEvents records events in order
func (s *gormStore) AppendEvents(ctx context.Context, events []domain.SaleEvent) error {
	if len(events) == 0 {
		return nil
	}

	rows := make([]schema.SaleEvent, 0, len(events))
	for _, event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}
		rows = append(rows, schema.SaleEvent{
			EventID:         event.EventID,
			EventType:       string(event.EventType),
			ContractAddress: event.ContractAddress.Hex(),
			EditionID:       event.EditionID,
			Payload:         datatypes.JSON(payload),
			Timestamp:       event.Timestamp,
		})
	}

	if err := s.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to append events: %w", err)
	}
	return nil
}

// ListEvents retrieves recorded events matching the filter ordered by sequence
func (s *gormStore) ListEvents(ctx context.Context, filter EventFilter) ([]domain.SaleEvent, error) {
	query := s.db.WithContext(ctx).Model(&schema.SaleEvent{})
	if filter.ContractAddress != nil {
		query = query.Where("contract_address = ?", filter.ContractAddress.Hex())
	}
	if filter.EditionID != nil {
		query = query.Where("edition_id = ?", *filter.EditionID)
	}
	if len(filter.EventTypes) > 0 {
		types := make([]string, 0, len(filter.EventTypes))
		for _, eventType := range filter.EventTypes {
			types = append(types, string(eventType))
		}
		query = query.Where("event_type IN ?", types)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(int(filter.Offset)) //nolint:gosec,G115
	}

	var rows []schema.SaleEvent
	if err := query.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	events := make([]domain.SaleEvent, 0, len(rows))
	for i := range rows {
		event, err := toDomainEvent(&rows[i])
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

// GetPendingEvents retrieves up to limit unpublished events ordered by sequence
func (s *gormStore) GetPendingEvents(ctx context.Context, limit int) ([]PendingEvent, error) {
	var rows []schema.SaleEvent
	err := s.db.WithContext(ctx).
		Where("published_at IS NULL").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get pending events: %w", err)
	}

	pending := make([]PendingEvent, 0, len(rows))
	for i := range rows {
		event, err := toDomainEvent(&rows[i])
		if err != nil {
			return nil, err
		}
		pending = append(pending, PendingEvent{
			ID:       rows[i].ID,
			Attempts: rows[i].Attempts,
			Event:    event,
		})
	}
	return pending, nil
}

// MarkEventPublished marks an event as delivered to the broker
func (s *gormStore) MarkEventPublished(ctx context.Context, id uint64, publishedAt time.Time) error {
	err := s.db.WithContext(ctx).
		Model(&schema.SaleEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"published_at": publishedAt,
			"attempts":     gorm.Expr("attempts + 1"),
			"last_error":   "",
		}).Error
	if err != nil {
		return fmt.Errorf("failed to mark event published: %w", err)
	}
	return nil
}

// MarkEventFailed records a failed publish attempt
func (s *gormStore) MarkEventFailed(ctx context.Context, id uint64, errMsg string) error {
	err := s.db.WithContext(ctx).
		Model(&schema.SaleEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": errMsg,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to mark event failed: %w", err)
	}
	return nil
}

// =============================================================================
// Key-value state
// =============================================================================

// SetKeyValue sets a key-value pair in the key-value store
func (s *gormStore) SetKeyValue(ctx context.Context, key string, value string) error {
	kv := schema.KeyValueStore{
		Key:   key,
		Value: value,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&kv).Error
	if err != nil {
		return fmt.Errorf("failed to set key-value: %w", err)
	}

	return nil
}

// GetKeyValue retrieves a value by key from the key-value store
func (s *gormStore) GetKeyValue(ctx context.Context, key string) (string, error) {
	var kv schema.KeyValueStore
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&kv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get key-value: %w", err)
	}

	return kv.Value, nil
}

// DeleteKeyValue removes a key from the key-value store
func (s *gormStore) DeleteKeyValue(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Where("key = ?", key).Delete(&schema.KeyValueStore{}).Error; err != nil {
		return fmt.Errorf("failed to delete key-value: %w", err)
	}
	return nil
}

// GetAllKeyValuesByPrefix retrieves all key-value pairs with a specific prefix
func (s *gormStore) GetAllKeyValuesByPrefix(ctx context.Context, prefix string) (map[string]string, error) {
	var kvs []schema.KeyValueStore
	err := s.db.WithContext(ctx).Where("key LIKE ?", prefix+"%").Find(&kvs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get key-values by prefix: %w", err)
	}

	result := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		result[kv.Key] = kv.Value
	}

	return result, nil
}
