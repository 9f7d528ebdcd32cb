package artist

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/feral-file/ff-editions/internal/adapter"
	"github.com/feral-file/ff-editions/internal/domain"
	"github.com/feral-file/ff-editions/internal/edition"
	"github.com/feral-file/ff-editions/internal/logger"
	"github.com/feral-file/ff-editions/internal/metrics"
	"github.com/feral-file/ff-editions/internal/sale"
	"github.com/feral-file/ff-editions/internal/signature"
	"github.com/feral-file/ff-editions/internal/store"
)

// Config holds the platform-wide settings of artist instances
type Config struct {
	// RecoveryAddress may override the owner of any instance once owner override is enabled
	RecoveryAddress common.Address
}

// Service is the entry point for every operation on artist instances.
// Mutations of one instance are serialized and each runs in a single transaction,
// so a failed operation leaves no trace.
type Service struct {
	store    store.Store
	verifier signature.PresaleVerifier
	clock    adapter.Clock
	metrics  *metrics.Metrics
	config   Config

	// upgrade is held exclusively while the implementation version moves
	upgrade sync.RWMutex
	mu      sync.Mutex
	locks   map[common.Address]*sync.Mutex
}

// NewService creates a new artist service
func NewService(st store.Store, verifier signature.PresaleVerifier, clock adapter.Clock, m *metrics.Metrics, cfg Config) *Service {
	return &Service{
		store:    st,
		verifier: verifier,
		clock:    clock,
		metrics:  m,
		config:   cfg,
		locks:    make(map[common.Address]*sync.Mutex),
	}
}

func (s *Service) lock(contract common.Address) func() {
	s.upgrade.RLock()
	s.mu.Lock()
	l, ok := s.locks[contract]
	if !ok {
		l = &sync.Mutex{}
		s.locks[contract] = l
	}
	s.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		s.upgrade.RUnlock()
	}
}

type operation func(tx store.Store, artist *domain.Artist, now time.Time) error

// mutate runs fn under the instance lock inside one transaction
func (s *Service) mutate(ctx context.Context, contract common.Address, fn operation) error {
	unlock := s.lock(contract)
	defer unlock()

	now := s.clock.Now()
	return s.store.WithTx(ctx, func(tx store.Store) error {
		artist, err := getArtist(ctx, tx, contract)
		if err != nil {
			return err
		}
		return fn(tx, artist, now)
	})
}

// view runs fn against committed state without locking
func (s *Service) view(ctx context.Context, contract common.Address, fn operation) error {
	artist, err := getArtist(ctx, s.store, contract)
	if err != nil {
		return err
	}
	return fn(s.store, artist, s.clock.Now())
}

func getArtist(ctx context.Context, st store.Store, contract common.Address) (*domain.Artist, error) {
	artist, err := st.GetArtist(ctx, contract)
	if err != nil {
		return nil, fmt.Errorf("failed to get artist: %w", err)
	}
	if artist == nil {
		return nil, fmt.Errorf("%w: artist %s", domain.ErrNotFound, contract.Hex())
	}
	return artist, nil
}

// Get returns an artist instance
func (s *Service) Get(ctx context.Context, contract common.Address) (*domain.Artist, error) {
	return getArtist(ctx, s.store, contract)
}

// List returns every artist instance
func (s *Service) List(ctx context.Context) ([]*domain.Artist, error) {
	artists, err := s.store.ListArtists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list artists: %w", err)
	}
	return artists, nil
}

// CreateEdition creates an edition on the instance
func (s *Service) CreateEdition(ctx context.Context, contract, caller common.Address, cfg domain.EditionConfig, alloc edition.Allocation) (*domain.Edition, error) {
	var created *domain.Edition
	err := s.mutate(ctx, contract, func(tx store.Store, artist *domain.Artist, now time.Time) error {
		var err error
		created, err = edition.NewRegistry(tx, artist, now).CreateEdition(ctx, caller, cfg, alloc)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.metrics.EditionCreated()
	return created, nil
}

// GetEdition returns one edition
func (s *Service) GetEdition(ctx context.Context, contract common.Address, editionID uint64) (*domain.Edition, error) {
	var result *domain.Edition
	err := s.view(ctx, contract, func(st store.Store, artist *domain.Artist, now time.Time) error {
		var err error
		result, err = edition.NewRegistry(st, artist, now).Get(ctx, editionID)
		return err
	})
	return result, err
}

// ListEditions returns every edition of the instance
func (s *Service) ListEditions(ctx context.Context, contract common.Address) ([]*domain.Edition, error) {
	var result []*domain.Edition
	err := s.view(ctx, contract, func(st store.Store, artist *domain.Artist, now time.Time) error {
		var err error
		result, err = edition.NewRegistry(st, artist, now).List(ctx)
		return err
	})
	return result, err
}

// EditionCount returns the edition counter of the instance
func (s *Service) EditionCount(ctx context.Context, contract common.Address) (uint64, error) {
	artist, err := s.Get(ctx, contract)
	if err != nil {
		return 0, err
	}
	return artist.EditionCount, nil
}

type editionSetter func(r *edition.Registry) (*domain.Edition, error)

func (s *Service) setEdition(ctx context.Context, contract common.Address, set editionSetter) (*domain.Edition, error) {
	var updated *domain.Edition
	err := s.mutate(ctx, contract, func(tx store.Store, artist *domain.Artist, now time.Time) error {
		var err error
		updated, err = set(edition.NewRegistry(tx, artist, now))
		return err
	})
	return updated, err
}

// SetSignerAddress replaces the presale signer of an edition
func (s *Service) SetSignerAddress(ctx context.Context, contract, caller common.Address, editionID uint64, signer common.Address) (*domain.Edition, error) {
	return s.setEdition(ctx, contract, func(r *edition.Registry) (*domain.Edition, error) {
		return r.SetSignerAddress(ctx, caller, editionID, signer)
	})
}

// SetPermissionedQuantity sets the presale allocation of an edition
func (s *Service) SetPermissionedQuantity(ctx context.Context, contract, caller common.Address, editionID uint64, quantity uint32) (*domain.Edition, error) {
	return s.setEdition(ctx, contract, func(r *edition.Registry) (*domain.Edition, error) {
		return r.SetPermissionedQuantity(ctx, caller, editionID, quantity)
	})
}

// SetStartTime moves the start of the sale window of an edition
func (s *Service) SetStartTime(ctx context.Context, contract, caller common.Address, editionID uint64, startTime uint32) (*domain.Edition, error) {
	return s.setEdition(ctx, contract, func(r *edition.Registry) (*domain.Edition, error) {
		return r.SetStartTime(ctx, caller, editionID, startTime)
	})
}

// SetEndTime moves the end of the sale window of an edition
func (s *Service) SetEndTime(ctx context.Context, contract, caller common.Address, editionID uint64, endTime uint32) (*domain.Edition, error) {
	return s.setEdition(ctx, contract, func(r *edition.Registry) (*domain.Edition, error) {
		return r.SetEndTime(ctx, caller, editionID, endTime)
	})
}

// SetBaseURI sets the metadata base URI of an edition
func (s *Service) SetBaseURI(ctx context.Context, contract, caller common.Address, editionID uint64, baseURI string) (*domain.Edition, error) {
	return s.setEdition(ctx, contract, func(r *edition.Registry) (*domain.Edition, error) {
		return r.SetBaseURI(ctx, caller, editionID, baseURI)
	})
}

// Buy sells the next token of an edition
func (s *Service) Buy(ctx context.Context, contract common.Address, purchase sale.Purchase) (*sale.Receipt, error) {
	var receipt *sale.Receipt
	err := s.mutate(ctx, contract, func(tx store.Store, artist *domain.Artist, now time.Time) error {
		var err error
		receipt, err = sale.NewEngine(tx, artist, s.verifier, now).Buy(ctx, purchase)
		return err
	})
	s.metrics.ObservePurchase(err)
	if err != nil {
		logger.WarnCtx(ctx, "Purchase rejected",
			zap.String("contract", contract.Hex()),
			zap.Uint64("editionID", purchase.EditionID),
			zap.String("buyer", purchase.Buyer.Hex()),
			zap.Error(err))
		return nil, err
	}
	return receipt, nil
}

func (s *Service) query(ctx context.Context, contract common.Address, fn func(e *sale.Engine) error) error {
	return s.view(ctx, contract, func(st store.Store, artist *domain.Artist, now time.Time) error {
		return fn(sale.NewEngine(st, artist, s.verifier, now))
	})
}

// State derives the current sale state of an edition
func (s *Service) State(ctx context.Context, contract common.Address, editionID uint64) (domain.SaleState, error) {
	var state domain.SaleState
	err := s.query(ctx, contract, func(e *sale.Engine) error {
		var err error
		state, err = e.State(ctx, editionID)
		return err
	})
	return state, err
}

// TokenURI returns the metadata URI of a minted token
func (s *Service) TokenURI(ctx context.Context, contract common.Address, tokenID *big.Int) (string, error) {
	var uri string
	err := s.query(ctx, contract, func(e *sale.Engine) error {
		var err error
		uri, err = e.TokenURI(ctx, tokenID)
		return err
	})
	return uri, err
}

// OwnerOf returns the owner of a minted token
func (s *Service) OwnerOf(ctx context.Context, contract common.Address, tokenID *big.Int) (common.Address, error) {
	var owner common.Address
	err := s.query(ctx, contract, func(e *sale.Engine) error {
		var err error
		owner, err = e.OwnerOf(ctx, tokenID)
		return err
	})
	return owner, err
}

// OwnersOfTokenIDs returns the owners of several tokens in order
func (s *Service) OwnersOfTokenIDs(ctx context.Context, contract common.Address, tokenIDs []*big.Int) ([]common.Address, error) {
	var owners []common.Address
	err := s.query(ctx, contract, func(e *sale.Engine) error {
		var err error
		owners, err = e.OwnersOfTokenIDs(ctx, tokenIDs)
		return err
	})
	return owners, err
}

// RoyaltyInfo returns the royalty recipient and amount of a secondary sale
func (s *Service) RoyaltyInfo(ctx context.Context, contract common.Address, tokenID, salePrice *big.Int) (common.Address, *big.Int, error) {
	var (
		recipient common.Address
		amount    *big.Int
	)
	err := s.query(ctx, contract, func(e *sale.Engine) error {
		var err error
		recipient, amount, err = e.RoyaltyInfo(ctx, tokenID, salePrice)
		return err
	})
	return recipient, amount, err
}

// CheckTicketNumbers reports which presale tickets of an edition were consumed
func (s *Service) CheckTicketNumbers(ctx context.Context, contract common.Address, editionID uint64, ticketNumbers []*big.Int) ([]bool, error) {
	var consumed []bool
	err := s.query(ctx, contract, func(e *sale.Engine) error {
		var err error
		consumed, err = e.CheckTicketNumbers(ctx, editionID, ticketNumbers)
		return err
	})
	return consumed, err
}

// TotalSupply returns the number of tokens minted by the instance
func (s *Service) TotalSupply(ctx context.Context, contract common.Address) (uint64, error) {
	var total uint64
	err := s.query(ctx, contract, func(e *sale.Engine) error {
		var err error
		total, err = e.TotalSupply(ctx)
		return err
	})
	return total, err
}

// ListEvents returns the recorded events of the instance
func (s *Service) ListEvents(ctx context.Context, contract common.Address, filter store.EventFilter) ([]domain.SaleEvent, error) {
	if _, err := s.Get(ctx, contract); err != nil {
		return nil, err
	}
	filter.ContractAddress = &contract
	events, err := s.store.ListEvents(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}
