package artist

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/feral-file/ff-editions/internal/domain"
	"github.com/feral-file/ff-editions/internal/layout"
	"github.com/feral-file/ff-editions/internal/logger"
	"github.com/feral-file/ff-editions/internal/store"
)

func requireOwner(artist *domain.Artist, caller common.Address) error {
	if caller != artist.Owner {
		return fmt.Errorf("%w: %s is not the owner", domain.ErrUnauthorized, caller.Hex())
	}
	return nil
}

func requireAdminRoles(artist *domain.Artist) error {
	if !layout.Version(artist.Version).Features().AdminRoles {
		return fmt.Errorf("%w: roles are not supported by version %d", domain.ErrInvalidConfig, artist.Version)
	}
	return nil
}

// GrantRole grants role to account. Only the owner may grant.
func (s *Service) GrantRole(ctx context.Context, contract, caller common.Address, role domain.Role, account common.Address) error {
	return s.mutate(ctx, contract, func(tx store.Store, artist *domain.Artist, now time.Time) error {
		if err := requireOwner(artist, caller); err != nil {
			return err
		}
		if err := requireAdminRoles(artist); err != nil {
			return err
		}
		if role != domain.RoleAdmin {
			return fmt.Errorf("%w: unknown role %q", domain.ErrInvalidConfig, role)
		}
		if domain.IsZeroAddress(account) {
			return fmt.Errorf("%w: account is required", domain.ErrInvalidConfig)
		}

		granted, err := tx.GrantRole(ctx, contract, role, account)
		if err != nil {
			return fmt.Errorf("failed to grant role: %w", err)
		}
		if !granted {
			return nil
		}
		return appendEvent(ctx, tx, domain.NewSaleEvent(domain.EventTypeRoleGranted, contract, 0, domain.EventData{
			Account: account.Hex(),
			Role:    role,
		}, now))
	})
}

// RevokeRole revokes role from account. Only the owner may revoke.
func (s *Service) RevokeRole(ctx context.Context, contract, caller common.Address, role domain.Role, account common.Address) error {
	return s.mutate(ctx, contract, func(tx store.Store, artist *domain.Artist, now time.Time) error {
		if err := requireOwner(artist, caller); err != nil {
			return err
		}
		if err := requireAdminRoles(artist); err != nil {
			return err
		}

		revoked, err := tx.RevokeRole(ctx, contract, role, account)
		if err != nil {
			return fmt.Errorf("failed to revoke role: %w", err)
		}
		if !revoked {
			return nil
		}
		return appendEvent(ctx, tx, domain.NewSaleEvent(domain.EventTypeRoleRevoked, contract, 0, domain.EventData{
			Account: account.Hex(),
			Role:    role,
		}, now))
	})
}

// HasRole reports whether account holds role on the instance
func (s *Service) HasRole(ctx context.Context, contract common.Address, role domain.Role, account common.Address) (bool, error) {
	if _, err := s.Get(ctx, contract); err != nil {
		return false, err
	}
	ok, err := s.store.HasRole(ctx, contract, role, account)
	if err != nil {
		return false, fmt.Errorf("failed to check role: %w", err)
	}
	return ok, nil
}

// ListRoleMembers lists the accounts holding role on the instance
func (s *Service) ListRoleMembers(ctx context.Context, contract common.Address, role domain.Role) ([]common.Address, error) {
	if _, err := s.Get(ctx, contract); err != nil {
		return nil, err
	}
	members, err := s.store.ListRoleMembers(ctx, contract, role)
	if err != nil {
		return nil, fmt.Errorf("failed to list role members: %w", err)
	}
	return members, nil
}

// TransferOwnership hands the instance to a new owner
func (s *Service) TransferOwnership(ctx context.Context, contract, caller, newOwner common.Address) (*domain.Artist, error) {
	var result *domain.Artist
	err := s.mutate(ctx, contract, func(tx store.Store, artist *domain.Artist, now time.Time) error {
		if err := requireOwner(artist, caller); err != nil {
			return err
		}
		var err error
		result, err = setOwner(ctx, tx, artist, newOwner, now)
		return err
	})
	return result, err
}

// SetOwnerOverride lets the owner or the platform recovery address reassign the instance
func (s *Service) SetOwnerOverride(ctx context.Context, contract, caller, newOwner common.Address) (*domain.Artist, error) {
	var result *domain.Artist
	err := s.mutate(ctx, contract, func(tx store.Store, artist *domain.Artist, now time.Time) error {
		recovery := s.config.RecoveryAddress
		if caller != artist.Owner && (domain.IsZeroAddress(recovery) || caller != recovery) {
			return fmt.Errorf("%w: %s may not override the owner", domain.ErrUnauthorized, caller.Hex())
		}
		if !layout.Version(artist.Version).Features().OwnerOverride {
			return fmt.Errorf("%w: owner override is not supported by version %d", domain.ErrInvalidConfig, artist.Version)
		}
		var err error
		result, err = setOwner(ctx, tx, artist, newOwner, now)
		return err
	})
	return result, err
}

func setOwner(ctx context.Context, tx store.Store, artist *domain.Artist, newOwner common.Address, now time.Time) (*domain.Artist, error) {
	if domain.IsZeroAddress(newOwner) {
		return nil, fmt.Errorf("%w: new owner is the zero address", domain.ErrInvalidConfig)
	}

	previous := artist.Owner
	artist.Owner = newOwner
	if err := tx.UpdateArtist(ctx, artist); err != nil {
		return nil, fmt.Errorf("failed to update owner: %w", err)
	}

	err := appendEvent(ctx, tx, domain.NewSaleEvent(domain.EventTypeOwnershipTransferred, artist.Address, 0, domain.EventData{
		Account:       newOwner.Hex(),
		PreviousOwner: previous.Hex(),
	}, now))
	if err != nil {
		return nil, err
	}

	logger.InfoCtx(ctx, "Ownership transferred",
		zap.String("contract", artist.Address.Hex()),
		zap.String("previousOwner", previous.Hex()),
		zap.String("newOwner", newOwner.Hex()))

	return artist, nil
}

func appendEvent(ctx context.Context, tx store.Store, event domain.SaleEvent) error {
	if err := tx.AppendEvents(ctx, []domain.SaleEvent{event}); err != nil {
		return fmt.Errorf("failed to record %s event: %w", event.EventType, err)
	}
	return nil
}
