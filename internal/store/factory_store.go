package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

const (
	factoryOwnerKey       = "factory:owner"
	factoryAdminKeyPrefix = "factory:admin:"
	beaconVersionKey      = "factory:beacon_version"
)

// FactoryStore defines the interface for storing and retrieving factory state
type FactoryStore interface {
	// GetFactoryOwner retrieves the factory owner, the zero address if unset
	GetFactoryOwner(ctx context.Context) (common.Address, error)
	// SetFactoryOwner stores the factory owner
	SetFactoryOwner(ctx context.Context, owner common.Address) error
	// IsFactoryAdmin reports whether account is a factory admin
	IsFactoryAdmin(ctx context.Context, account common.Address) (bool, error)
	// SetFactoryAdmin adds or removes a factory admin
	SetFactoryAdmin(ctx context.Context, account common.Address, enabled bool) error
	// ListFactoryAdmins lists the factory admins
	ListFactoryAdmins(ctx context.Context) ([]common.Address, error)
	// GetBeaconVersion retrieves the implementation version served by the beacon, 0 if unset
	GetBeaconVersion(ctx context.Context) (uint8, error)
	// SetBeaconVersion stores the implementation version served by the beacon
	SetBeaconVersion(ctx context.Context, version uint8) error
}

type factoryStore struct {
	kv KeyValueStore
}

// NewFactoryStore creates a factory store on top of a key-value store.
// Passing a transaction-scoped store makes every write part of that transaction.
func NewFactoryStore(kv KeyValueStore) FactoryStore {
	return &factoryStore{kv: kv}
}

// GetFactoryOwner retrieves the factory owner
func (s *factoryStore) GetFactoryOwner(ctx context.Context) (common.Address, error) {
	value, err := s.kv.GetKeyValue(ctx, factoryOwnerKey)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to get factory owner: %w", err)
	}
	if value == "" {
		return common.Address{}, nil
	}
	return common.HexToAddress(value), nil
}

// SetFactoryOwner stores the factory owner
func (s *factoryStore) SetFactoryOwner(ctx context.Context, owner common.Address) error {
	if err := s.kv.SetKeyValue(ctx, factoryOwnerKey, owner.Hex()); err != nil {
		return fmt.Errorf("failed to set factory owner: %w", err)
	}
	return nil
}

// IsFactoryAdmin reports whether account is a factory admin
func (s *factoryStore) IsFactoryAdmin(ctx context.Context, account common.Address) (bool, error) {
	value, err := s.kv.GetKeyValue(ctx, factoryAdminKeyPrefix+account.Hex())
	if err != nil {
		return false, fmt.Errorf("failed to get factory admin: %w", err)
	}
	return value == "true", nil
}

// SetFactoryAdmin adds or removes a factory admin
func (s *factoryStore) SetFactoryAdmin(ctx context.Context, account common.Address, enabled bool) error {
	key := factoryAdminKeyPrefix + account.Hex()

	var err error
	if enabled {
		err = s.kv.SetKeyValue(ctx, key, "true")
	} else {
		err = s.kv.DeleteKeyValue(ctx, key)
	}
	if err != nil {
		return fmt.Errorf("failed to set factory admin: %w", err)
	}
	return nil
}

// ListFactoryAdmins lists the factory admins
func (s *factoryStore) ListFactoryAdmins(ctx context.Context) ([]common.Address, error) {
	values, err := s.kv.GetAllKeyValuesByPrefix(ctx, factoryAdminKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list factory admins: %w", err)
	}

	admins := make([]common.Address, 0, len(values))
	for key, value := range values {
		if value != "true" {
			continue
		}
		admins = append(admins, common.HexToAddress(strings.TrimPrefix(key, factoryAdminKeyPrefix)))
	}
	return admins, nil
}

// GetBeaconVersion retrieves the implementation version served by the beacon
func (s *factoryStore) GetBeaconVersion(ctx context.Context) (uint8, error) {
	value, err := s.kv.GetKeyValue(ctx, beaconVersionKey)
	if err != nil {
		return 0, fmt.Errorf("failed to get beacon version: %w", err)
	}
	if value == "" {
		return 0, nil // Return 0 if the beacon was never initialized
	}

	version, err := strconv.ParseUint(value, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("failed to parse beacon version: %w", err)
	}
	return uint8(version), nil
}

// SetBeaconVersion stores the implementation version served by the beacon
func (s *factoryStore) SetBeaconVersion(ctx context.Context, version uint8) error {
	if err := s.kv.SetKeyValue(ctx, beaconVersionKey, strconv.FormatUint(uint64(version), 10)); err != nil {
		return fmt.Errorf("failed to set beacon version: %w", err)
	}
	return nil
}
