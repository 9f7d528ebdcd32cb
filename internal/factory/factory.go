package factory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/feral-file/ff-editions/internal/adapter"
	"github.com/feral-file/ff-editions/internal/artist"
	"github.com/feral-file/ff-editions/internal/domain"
	"github.com/feral-file/ff-editions/internal/layout"
	"github.com/feral-file/ff-editions/internal/logger"
	"github.com/feral-file/ff-editions/internal/signature"
	"github.com/feral-file/ff-editions/internal/store"
)

// DeploymentVerifier verifies the platform's authorization of a new artist instance
type DeploymentVerifier interface {
	VerifyDeployment(deployment signature.Deployment, sig []byte, signer common.Address) bool
}

// Factory creates artist instances and owns the beacon that selects their implementation version
type Factory struct {
	address  common.Address
	store    store.Store
	artists  *artist.Service
	verifier DeploymentVerifier
	clock    adapter.Clock

	mu sync.Mutex
}

// New creates a factory living at address
func New(address common.Address, st store.Store, artists *artist.Service, verifier DeploymentVerifier, clock adapter.Clock) *Factory {
	return &Factory{
		address:  address,
		store:    st,
		artists:  artists,
		verifier: verifier,
		clock:    clock,
	}
}

// Address returns the factory address instances are derived from
func (f *Factory) Address() common.Address {
	return f.address
}

// ArtistAddress derives the instance address of (wallet, name, symbol) deployed by factory
func ArtistAddress(factory, wallet common.Address, name, symbol string) common.Address {
	hash := crypto.Keccak256(
		factory.Bytes(),
		wallet.Bytes(),
		crypto.Keccak256([]byte(name)),
		crypto.Keccak256([]byte(symbol)),
	)
	return common.BytesToAddress(hash[12:])
}

// Initialize stores the owner, admin and beacon version the first time the factory starts.
// Values already stored are kept.
func (f *Factory) Initialize(ctx context.Context, owner, admin common.Address, version layout.Version) error {
	if domain.IsZeroAddress(owner) {
		return fmt.Errorf("%w: factory owner is required", domain.ErrInvalidConfig)
	}
	if !version.Valid() {
		return fmt.Errorf("%w: unknown implementation version %d", domain.ErrInvalidConfig, version)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	return f.store.WithTx(ctx, func(tx store.Store) error {
		fs := store.NewFactoryStore(tx)

		current, err := fs.GetFactoryOwner(ctx)
		if err != nil {
			return err
		}
		if domain.IsZeroAddress(current) {
			if err := fs.SetFactoryOwner(ctx, owner); err != nil {
				return err
			}
		}

		admins, err := fs.ListFactoryAdmins(ctx)
		if err != nil {
			return err
		}
		if len(admins) == 0 && !domain.IsZeroAddress(admin) {
			if err := fs.SetFactoryAdmin(ctx, admin, true); err != nil {
				return err
			}
		}

		beacon, err := fs.GetBeaconVersion(ctx)
		if err != nil {
			return err
		}
		if beacon == 0 {
			beacon = uint8(version)
			if err := fs.SetBeaconVersion(ctx, beacon); err != nil {
				return err
			}
		}

		logger.InfoCtx(ctx, "Factory initialized",
			zap.String("factory", f.address.Hex()),
			zap.Uint8("beaconVersion", beacon))
		return nil
	})
}

// Owner returns the factory owner
func (f *Factory) Owner(ctx context.Context) (common.Address, error) {
	return store.NewFactoryStore(f.store).GetFactoryOwner(ctx)
}

// Admin returns the account whose signature authorizes deployments, the zero address if unset
func (f *Factory) Admin(ctx context.Context) (common.Address, error) {
	return currentAdmin(ctx, store.NewFactoryStore(f.store))
}

// BeaconVersion returns the implementation version new and existing instances run
func (f *Factory) BeaconVersion(ctx context.Context) (layout.Version, error) {
	version, err := store.NewFactoryStore(f.store).GetBeaconVersion(ctx)
	if err != nil {
		return 0, err
	}
	return layout.Version(version), nil
}

func currentAdmin(ctx context.Context, fs store.FactoryStore) (common.Address, error) {
	admins, err := fs.ListFactoryAdmins(ctx)
	if err != nil {
		return common.Address{}, err
	}
	if len(admins) == 0 {
		return common.Address{}, nil
	}
	return admins[0], nil
}

// CreateArtist deploys an artist instance owned by caller.
// sig is the admin's authorization of caller as artist wallet.
func (f *Factory) CreateArtist(ctx context.Context, caller common.Address, sig []byte, name, symbol, baseURI string) (*domain.Artist, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(symbol) == "" {
		return nil, fmt.Errorf("%w: name and symbol are required", domain.ErrInvalidConfig)
	}
	if domain.IsZeroAddress(caller) {
		return nil, fmt.Errorf("%w: artist wallet is required", domain.ErrInvalidConfig)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.clock.Now()
	var created *domain.Artist
	err := f.store.WithTx(ctx, func(tx store.Store) error {
		fs := store.NewFactoryStore(tx)

		admin, err := currentAdmin(ctx, fs)
		if err != nil {
			return err
		}
		if !f.verifier.VerifyDeployment(signature.Deployment{ArtistWallet: caller}, sig, admin) {
			return fmt.Errorf("%w: invalid authorization signature", domain.ErrInvalidSignature)
		}

		version, err := fs.GetBeaconVersion(ctx)
		if err != nil {
			return err
		}
		if !layout.Version(version).Valid() {
			return fmt.Errorf("%w: factory is not initialized", domain.ErrInvalidConfig)
		}

		created = &domain.Artist{
			Address: ArtistAddress(f.address, caller, name, symbol),
			Owner:   caller,
			Name:    name,
			Symbol:  symbol,
			BaseURI: baseURI,
			Version: version,
		}
		if err := tx.CreateArtist(ctx, created); err != nil {
			return err
		}

		event := domain.NewSaleEvent(domain.EventTypeArtistCreated, created.Address, 0, domain.EventData{
			Account: caller.Hex(),
			Name:    name,
			BaseURI: &baseURI,
			Version: version,
		}, now)
		return tx.AppendEvents(ctx, []domain.SaleEvent{event})
	})
	if err != nil {
		return nil, err
	}

	logger.InfoCtx(ctx, "Artist created",
		zap.String("contract", created.Address.Hex()),
		zap.String("owner", caller.Hex()),
		zap.String("name", name),
		zap.Uint8("version", created.Version))

	return created, nil
}

func (f *Factory) requireOwner(ctx context.Context, fs store.FactoryStore, caller common.Address) error {
	owner, err := fs.GetFactoryOwner(ctx)
	if err != nil {
		return err
	}
	if domain.IsZeroAddress(owner) || caller != owner {
		return fmt.Errorf("%w: %s is not the factory owner", domain.ErrUnauthorized, caller.Hex())
	}
	return nil
}

// SetAdmin replaces the deployment admin. The owner and the current admin may call it.
func (f *Factory) SetAdmin(ctx context.Context, caller, newAdmin common.Address) error {
	if domain.IsZeroAddress(newAdmin) {
		return fmt.Errorf("%w: admin is required", domain.ErrInvalidConfig)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	return f.store.WithTx(ctx, func(tx store.Store) error {
		fs := store.NewFactoryStore(tx)

		owner, err := fs.GetFactoryOwner(ctx)
		if err != nil {
			return err
		}
		admin, err := currentAdmin(ctx, fs)
		if err != nil {
			return err
		}
		isOwner := !domain.IsZeroAddress(owner) && caller == owner
		isAdmin := !domain.IsZeroAddress(admin) && caller == admin
		if !isOwner && !isAdmin {
			return fmt.Errorf("%w: invalid authorization", domain.ErrUnauthorized)
		}

		if !domain.IsZeroAddress(admin) {
			if err := fs.SetFactoryAdmin(ctx, admin, false); err != nil {
				return err
			}
		}
		if err := fs.SetFactoryAdmin(ctx, newAdmin, true); err != nil {
			return err
		}

		logger.InfoCtx(ctx, "Factory admin set",
			zap.String("previous", admin.Hex()),
			zap.String("admin", newAdmin.Hex()))
		return nil
	})
}

// TransferOwnership hands the factory to a new owner
func (f *Factory) TransferOwnership(ctx context.Context, caller, newOwner common.Address) error {
	if domain.IsZeroAddress(newOwner) {
		return fmt.Errorf("%w: new owner is the zero address", domain.ErrInvalidConfig)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	return f.store.WithTx(ctx, func(tx store.Store) error {
		fs := store.NewFactoryStore(tx)
		if err := f.requireOwner(ctx, fs, caller); err != nil {
			return err
		}
		return fs.SetFactoryOwner(ctx, newOwner)
	})
}

// UpgradeBeacon switches every artist instance to version and returns how many were moved
func (f *Factory) UpgradeBeacon(ctx context.Context, caller common.Address, version layout.Version) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	fs := store.NewFactoryStore(f.store)
	if err := f.requireOwner(ctx, fs, caller); err != nil {
		return 0, err
	}

	current, err := fs.GetBeaconVersion(ctx)
	if err != nil {
		return 0, err
	}
	if err := layout.CheckUpgrade(layout.Version(current), version); err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}

	count, err := f.artists.UpgradeAll(ctx, version, func(tx store.Store) error {
		return store.NewFactoryStore(tx).SetBeaconVersion(ctx, uint8(version))
	})
	if err != nil {
		return 0, err
	}

	logger.InfoCtx(ctx, "Beacon upgraded",
		zap.Uint8("from", current),
		zap.Uint8("to", uint8(version)),
		zap.Int64("instances", count))

	return count, nil
}
