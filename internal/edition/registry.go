package edition

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/feral-file/ff-editions/internal/domain"
	"github.com/feral-file/ff-editions/internal/identity"
	"github.com/feral-file/ff-editions/internal/layout"
	"github.com/feral-file/ff-editions/internal/logger"
	"github.com/feral-file/ff-editions/internal/store"
)

// MaxEditionID is the largest edition id the registry accepts
const MaxEditionID = math.MaxInt64

// Allocation selects how CreateEdition assigns the edition id
type Allocation struct {
	explicit bool
	id       uint64
}

// AllocateNext assigns the next unused id from the instance counter
func AllocateNext() Allocation {
	return Allocation{}
}

// AllocateExplicit assigns a caller-chosen id
func AllocateExplicit(editionID uint64) Allocation {
	return Allocation{explicit: true, id: editionID}
}

// IsExplicit reports whether the caller chose the id
func (a Allocation) IsExplicit() bool {
	return a.explicit
}

// ID returns the caller-chosen id, zero for next-available allocation
func (a Allocation) ID() uint64 {
	return a.id
}

// Registry manages the editions of one artist instance.
// It is bound to a transaction-scoped store and the time of the operation;
// build a new one for every operation.
type Registry struct {
	store    store.Store
	artist   *domain.Artist
	features layout.Features
	now      time.Time
}

// NewRegistry creates a registry for artist backed by st
func NewRegistry(st store.Store, artist *domain.Artist, now time.Time) *Registry {
	return &Registry{
		store:    st,
		artist:   artist,
		features: layout.Version(artist.Version).Features(),
		now:      now,
	}
}

// Artist returns the artist instance the registry is bound to
func (r *Registry) Artist() *domain.Artist {
	return r.artist
}

// Features returns the behaviors enabled for the instance version
func (r *Registry) Features() layout.Features {
	return r.features
}

// EditionCount returns the instance edition counter
func (r *Registry) EditionCount() uint64 {
	return r.artist.EditionCount
}

// Authorize fails with ErrUnauthorized unless caller is the owner or, when
// admin roles are enabled, holds the admin role
func (r *Registry) Authorize(ctx context.Context, caller common.Address) error {
	if caller == r.artist.Owner {
		return nil
	}
	if r.features.AdminRoles {
		ok, err := r.store.HasRole(ctx, r.artist.Address, domain.RoleAdmin, caller)
		if err != nil {
			return fmt.Errorf("failed to check role: %w", err)
		}
		if ok {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", domain.ErrUnauthorized, caller.Hex())
}

// CreateEdition validates cfg and creates a new edition
func (r *Registry) CreateEdition(ctx context.Context, caller common.Address, cfg domain.EditionConfig, alloc Allocation) (*domain.Edition, error) {
	if err := r.Authorize(ctx, caller); err != nil {
		return nil, err
	}
	if err := r.validateConfig(cfg); err != nil {
		return nil, err
	}

	editionID, err := r.allocate(ctx, alloc)
	if err != nil {
		return nil, err
	}

	price := new(big.Int)
	if cfg.Price != nil {
		price.Set(cfg.Price)
	}
	edition := &domain.Edition{
		ContractAddress:      r.artist.Address,
		ID:                   editionID,
		FundingRecipient:     cfg.FundingRecipient,
		Price:                price,
		Quantity:             cfg.Quantity,
		RoyaltyBPS:           cfg.RoyaltyBPS,
		StartTime:            cfg.StartTime,
		EndTime:              cfg.EndTime,
		PermissionedQuantity: cfg.PermissionedQuantity,
		SignerAddress:        cfg.SignerAddress,
		BaseURI:              cfg.BaseURI,
		LayoutVersion:        r.artist.Version,
	}
	if err := r.store.CreateEdition(ctx, edition); err != nil {
		return nil, fmt.Errorf("failed to create edition: %w", err)
	}

	r.artist.EditionCount++
	if err := r.store.UpdateArtist(ctx, r.artist); err != nil {
		return nil, fmt.Errorf("failed to update edition count: %w", err)
	}

	quantity, royalty := cfg.Quantity, cfg.RoyaltyBPS
	start, end := cfg.StartTime, cfg.EndTime
	err = r.emit(ctx, domain.EventTypeEditionCreated, editionID, domain.EventData{
		Recipient:  cfg.FundingRecipient.Hex(),
		Price:      price.String(),
		Quantity:   &quantity,
		RoyaltyBPS: &royalty,
		StartTime:  &start,
		EndTime:    &end,
	})
	if err != nil {
		return nil, err
	}

	logger.InfoCtx(ctx, "Edition created",
		zap.String("contract", r.artist.Address.Hex()),
		zap.Uint64("editionID", editionID),
		zap.Uint32("quantity", cfg.Quantity),
		zap.Bool("explicitID", alloc.IsExplicit()))

	return edition, nil
}

func (r *Registry) validateConfig(cfg domain.EditionConfig) error {
	if cfg.Price != nil && cfg.Price.Sign() < 0 {
		return fmt.Errorf("%w: price must not be negative", domain.ErrInvalidConfig)
	}
	if domain.IsZeroAddress(cfg.FundingRecipient) {
		return fmt.Errorf("%w: funding recipient is required", domain.ErrInvalidConfig)
	}
	if cfg.RoyaltyBPS > domain.MaxRoyaltyBPS {
		return fmt.Errorf("%w: royalty %d bps exceeds %d", domain.ErrInvalidConfig, cfg.RoyaltyBPS, domain.MaxRoyaltyBPS)
	}
	if cfg.Quantity == 0 && !r.features.OpenEditions {
		return fmt.Errorf("%w: quantity must be greater than 0", domain.ErrInvalidConfig)
	}
	if err := validateWindow(cfg.StartTime, cfg.EndTime); err != nil {
		return err
	}
	if !r.features.Presale && (cfg.PermissionedQuantity != 0 || !domain.IsZeroAddress(cfg.SignerAddress)) {
		return fmt.Errorf("%w: presale is not supported by version %d", domain.ErrInvalidConfig, r.artist.Version)
	}
	if cfg.PermissionedQuantity > 0 && domain.IsZeroAddress(cfg.SignerAddress) {
		return fmt.Errorf("%w: Edition must have a signer", domain.ErrInvalidConfig)
	}
	if !r.features.EditionBaseURI && cfg.BaseURI != "" {
		return fmt.Errorf("%w: edition base URI is not supported by version %d", domain.ErrInvalidConfig, r.artist.Version)
	}
	return nil
}

// validateWindow requires start <= end unless end is one of the unbounded sentinels
func validateWindow(start, end uint32) error {
	if end == 0 || end == domain.UnboundedTime {
		return nil
	}
	if start > end {
		return fmt.Errorf("%w: start time %d is after end time %d", domain.ErrInvalidConfig, start, end)
	}
	return nil
}

func (r *Registry) allocate(ctx context.Context, alloc Allocation) (uint64, error) {
	if alloc.IsExplicit() {
		if !r.features.ExplicitEditionIDs {
			return 0, fmt.Errorf("%w: explicit edition ids are not supported by version %d", domain.ErrInvalidConfig, r.artist.Version)
		}
		if alloc.ID() == 0 || alloc.ID() > MaxEditionID {
			return 0, fmt.Errorf("%w: edition id %d out of range", domain.ErrInvalidConfig, alloc.ID())
		}
		existing, err := r.store.GetEdition(ctx, r.artist.Address, alloc.ID())
		if err != nil {
			return 0, fmt.Errorf("failed to get edition: %w", err)
		}
		if existing != nil {
			return 0, fmt.Errorf("%w: edition %d", domain.ErrDuplicateEdition, alloc.ID())
		}
		return alloc.ID(), nil
	}

	// skip ids taken by explicit allocation
	for candidate := r.artist.EditionCount + 1; candidate <= MaxEditionID; candidate++ {
		existing, err := r.store.GetEdition(ctx, r.artist.Address, candidate)
		if err != nil {
			return 0, fmt.Errorf("failed to get edition: %w", err)
		}
		if existing == nil {
			return candidate, nil
		}
	}
	return 0, fmt.Errorf("%w: edition ids exhausted", domain.ErrInvalidConfig)
}

// Get returns an edition or ErrNotFound
func (r *Registry) Get(ctx context.Context, editionID uint64) (*domain.Edition, error) {
	edition, err := r.store.GetEdition(ctx, r.artist.Address, editionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get edition: %w", err)
	}
	if edition == nil {
		return nil, fmt.Errorf("%w: Nonexistent edition %d", domain.ErrNotFound, editionID)
	}
	return edition, nil
}

// List returns every edition of the instance ordered by id
func (r *Registry) List(ctx context.Context) ([]*domain.Edition, error) {
	editions, err := r.store.ListEditions(ctx, r.artist.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to list editions: %w", err)
	}
	return editions, nil
}

// SetSignerAddress replaces the presale signer of an edition
func (r *Registry) SetSignerAddress(ctx context.Context, caller common.Address, editionID uint64, signer common.Address) (*domain.Edition, error) {
	return r.update(ctx, caller, editionID, func(edition *domain.Edition) (domain.EventType, domain.EventData, error) {
		if !r.features.Presale {
			return "", domain.EventData{}, fmt.Errorf("%w: presale is not supported by version %d", domain.ErrInvalidConfig, r.artist.Version)
		}
		if domain.IsZeroAddress(signer) {
			return "", domain.EventData{}, fmt.Errorf("%w: Signer address cannot be 0", domain.ErrInvalidConfig)
		}
		edition.SignerAddress = signer
		return domain.EventTypeSignerAddressSet, domain.EventData{SignerAddress: signer.Hex()}, nil
	})
}

// SetPermissionedQuantity sets how many of the first sales require a presale signature
func (r *Registry) SetPermissionedQuantity(ctx context.Context, caller common.Address, editionID uint64, quantity uint32) (*domain.Edition, error) {
	return r.update(ctx, caller, editionID, func(edition *domain.Edition) (domain.EventType, domain.EventData, error) {
		if !r.features.Presale {
			return "", domain.EventData{}, fmt.Errorf("%w: presale is not supported by version %d", domain.ErrInvalidConfig, r.artist.Version)
		}
		if domain.IsZeroAddress(edition.SignerAddress) {
			return "", domain.EventData{}, fmt.Errorf("%w: Edition must have a signer", domain.ErrInvalidConfig)
		}
		edition.PermissionedQuantity = quantity
		return domain.EventTypePermissionedQuantitySet, domain.EventData{PermissionedQuantity: &quantity}, nil
	})
}

// SetStartTime moves the start of the sale window
func (r *Registry) SetStartTime(ctx context.Context, caller common.Address, editionID uint64, startTime uint32) (*domain.Edition, error) {
	return r.update(ctx, caller, editionID, func(edition *domain.Edition) (domain.EventType, domain.EventData, error) {
		if err := validateWindow(startTime, edition.EndTime); err != nil {
			return "", domain.EventData{}, err
		}
		edition.StartTime = startTime
		boundary := domain.TimeBoundaryStart
		return domain.EventTypeTimeChanged, domain.EventData{NewTime: &startTime, TimeBoundary: &boundary}, nil
	})
}

// SetEndTime moves the end of the sale window; 0 or the max value leaves it unbounded
func (r *Registry) SetEndTime(ctx context.Context, caller common.Address, editionID uint64, endTime uint32) (*domain.Edition, error) {
	return r.update(ctx, caller, editionID, func(edition *domain.Edition) (domain.EventType, domain.EventData, error) {
		if err := validateWindow(edition.StartTime, endTime); err != nil {
			return "", domain.EventData{}, err
		}
		edition.EndTime = endTime
		boundary := domain.TimeBoundaryEnd
		return domain.EventTypeTimeChanged, domain.EventData{NewTime: &endTime, TimeBoundary: &boundary}, nil
	})
}

// SetBaseURI sets the per-edition metadata base URI
func (r *Registry) SetBaseURI(ctx context.Context, caller common.Address, editionID uint64, baseURI string) (*domain.Edition, error) {
	return r.update(ctx, caller, editionID, func(edition *domain.Edition) (domain.EventType, domain.EventData, error) {
		if !r.features.EditionBaseURI {
			return "", domain.EventData{}, fmt.Errorf("%w: edition base URI is not supported by version %d", domain.ErrInvalidConfig, r.artist.Version)
		}
		edition.BaseURI = baseURI
		return domain.EventTypeBaseURISet, domain.EventData{BaseURI: &baseURI}, nil
	})
}

type mutation func(edition *domain.Edition) (domain.EventType, domain.EventData, error)

func (r *Registry) update(ctx context.Context, caller common.Address, editionID uint64, mutate mutation) (*domain.Edition, error) {
	if err := r.Authorize(ctx, caller); err != nil {
		return nil, err
	}

	edition, err := r.Get(ctx, editionID)
	if err != nil {
		return nil, err
	}

	eventType, data, err := mutate(edition)
	if err != nil {
		return nil, err
	}

	if err := r.store.UpdateEdition(ctx, edition); err != nil {
		return nil, fmt.Errorf("failed to update edition: %w", err)
	}
	if err := r.emit(ctx, eventType, editionID, data); err != nil {
		return nil, err
	}

	logger.InfoCtx(ctx, "Edition updated",
		zap.String("contract", r.artist.Address.Hex()),
		zap.Uint64("editionID", editionID),
		zap.String("event", string(eventType)))

	return edition, nil
}

// EditionOf resolves the edition a token id belongs to.
// Packed ids carry it in their upper bits; sequential ids are looked up in the token table.
func (r *Registry) EditionOf(ctx context.Context, tokenID *big.Int) (uint64, error) {
	if identity.IsPacked(tokenID) {
		editionID, _, err := identity.Split(tokenID)
		if err != nil {
			return 0, err
		}
		if !editionID.IsUint64() || editionID.Uint64() > MaxEditionID {
			return 0, fmt.Errorf("%w: token %s", domain.ErrNotFound, tokenID)
		}
		return editionID.Uint64(), nil
	}

	if tokenID == nil || tokenID.Sign() < 0 {
		return 0, fmt.Errorf("%w: token id out of range", domain.ErrInvalidIdentity)
	}
	token, err := r.store.GetToken(ctx, r.artist.Address, tokenID)
	if err != nil {
		return 0, fmt.Errorf("failed to get token: %w", err)
	}
	if token == nil {
		return 0, fmt.Errorf("%w: token %s", domain.ErrNotFound, tokenID)
	}
	return token.EditionID, nil
}

// ResolveURI returns the metadata URI of a token of the edition
func (r *Registry) ResolveURI(ctx context.Context, editionID uint64, tokenID *big.Int) (string, error) {
	edition, err := r.Get(ctx, editionID)
	if err != nil {
		return "", err
	}

	if r.features.EditionBaseURI && edition.HasCustomBaseURI() {
		return fmt.Sprintf("%s%s/%s", edition.BaseURI, tokenID.String(), domain.MetadataFileName), nil
	}
	return fmt.Sprintf("%s%s/%s", r.artist.BaseURI, strings.ToLower(r.artist.Address.Hex()), tokenID.String()), nil
}

func (r *Registry) emit(ctx context.Context, eventType domain.EventType, editionID uint64, data domain.EventData) error {
	event := domain.NewSaleEvent(eventType, r.artist.Address, editionID, data, r.now)
	if err := r.store.AppendEvents(ctx, []domain.SaleEvent{event}); err != nil {
		return fmt.Errorf("failed to record %s event: %w", eventType, err)
	}
	return nil
}
