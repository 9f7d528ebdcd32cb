package sale

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/feral-file/ff-editions/internal/domain"
	"github.com/feral-file/ff-editions/internal/edition"
	"github.com/feral-file/ff-editions/internal/identity"
	"github.com/feral-file/ff-editions/internal/logger"
	"github.com/feral-file/ff-editions/internal/signature"
	"github.com/feral-file/ff-editions/internal/store"
	"github.com/feral-file/ff-editions/internal/ticket"
)

// Purchase is one buy request
type Purchase struct {
	EditionID uint64
	Buyer     common.Address
	// Payment is the amount sent with the purchase, in wei
	Payment *big.Int
	// Signature and TicketNumber are only read while the edition is in presale
	Signature    []byte
	TicketNumber *big.Int
}

// Receipt describes the token a successful purchase minted
type Receipt struct {
	TokenID      *big.Int
	EditionID    uint64
	SerialNumber uint32
	Buyer        common.Address
	Payment      *domain.Payment
	// Presale reports whether the purchase consumed a ticket
	Presale bool
}

// Engine executes purchases and answers token queries of one artist instance.
// Like the registry it is bound to a transaction-scoped store and the time of the operation.
type Engine struct {
	store    store.Store
	registry *edition.Registry
	ledger   *ticket.Ledger
	verifier signature.PresaleVerifier
	now      time.Time
}

// NewEngine creates an engine for artist backed by st
func NewEngine(st store.Store, artist *domain.Artist, verifier signature.PresaleVerifier, now time.Time) *Engine {
	return &Engine{
		store:    st,
		registry: edition.NewRegistry(st, artist, now),
		ledger:   ticket.NewLedger(st),
		verifier: verifier,
		now:      now,
	}
}

// Registry returns the edition registry the engine sells from
func (e *Engine) Registry() *edition.Registry {
	return e.registry
}

func (e *Engine) nowSeconds() uint64 {
	if e.now.Unix() < 0 {
		return 0
	}
	return uint64(e.now.Unix())
}

// State derives the sale state of an edition at the engine time
func (e *Engine) State(ctx context.Context, editionID uint64) (domain.SaleState, error) {
	ed, err := e.registry.Get(ctx, editionID)
	if err != nil {
		return "", err
	}
	return ed.State(e.nowSeconds()), nil
}

// Buy sells the next token of an edition.
// Every check runs before the first write so a failed purchase changes nothing.
func (e *Engine) Buy(ctx context.Context, p Purchase) (*Receipt, error) {
	artist := e.registry.Artist()
	features := e.registry.Features()

	ed, err := e.registry.Get(ctx, p.EditionID)
	if err != nil {
		return nil, err
	}

	now := e.nowSeconds()
	if now < uint64(ed.StartTime) {
		return nil, fmt.Errorf("%w: edition %d starts at %d", domain.ErrNotStarted, ed.ID, ed.StartTime)
	}
	if ed.HasEndTime() && now > uint64(ed.EndTime) {
		return nil, fmt.Errorf("%w: edition %d ended at %d", domain.ErrEnded, ed.ID, ed.EndTime)
	}
	// an open edition is capped by its serial width
	if ed.IsSoldOut() || ed.NumSold == math.MaxUint32 {
		return nil, fmt.Errorf("%w: edition %d", domain.ErrSoldOut, ed.ID)
	}

	presale := features.Presale && ed.PresaleActive()
	ticketNumber := p.TicketNumber
	if ticketNumber == nil {
		ticketNumber = new(big.Int)
	}
	if presale {
		if e.verifier == nil || signature.IsEmpty(p.Signature) {
			return nil, fmt.Errorf("%w: presale requires a signature", domain.ErrInvalidSignature)
		}
		claim := signature.PresaleTicket{
			ContractAddress: artist.Address,
			Buyer:           p.Buyer,
			EditionID:       ed.ID,
			TicketNumber:    ticketNumber,
		}
		if !e.verifier.VerifyPresale(claim, p.Signature, ed.SignerAddress) {
			return nil, fmt.Errorf("%w: edition %d", domain.ErrInvalidSignature, ed.ID)
		}
		consumed, err := e.ledger.IsConsumed(ctx, artist.Address, ed.ID, ticketNumber)
		if err != nil {
			return nil, err
		}
		if consumed {
			return nil, fmt.Errorf("%w: edition %d ticket %s", domain.ErrTicketAlreadyUsed, ed.ID, ticketNumber)
		}
	}

	payment := new(big.Int)
	if p.Payment != nil {
		payment.Set(p.Payment)
	}
	if payment.Cmp(ed.Price) < 0 {
		return nil, fmt.Errorf("%w: sent %s, price %s", domain.ErrInsufficientPayment, payment, ed.Price)
	}

	if presale {
		if err := e.ledger.Consume(ctx, artist.Address, ed.ID, ticketNumber, p.Buyer); err != nil {
			return nil, err
		}
	}

	ed.NumSold++
	serial := ed.NumSold
	if err := e.store.UpdateEdition(ctx, ed); err != nil {
		return nil, fmt.Errorf("failed to update edition: %w", err)
	}

	tokenID, err := e.nextTokenID(ctx, ed.ID, serial)
	if err != nil {
		return nil, err
	}

	token := &domain.Token{
		ContractAddress: artist.Address,
		TokenID:         tokenID,
		EditionID:       ed.ID,
		SerialNumber:    serial,
		Owner:           p.Buyer,
	}
	if err := e.store.CreateToken(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to mint token: %w", err)
	}

	// the full amount goes to the funding recipient, overpayment included
	routed := &domain.Payment{
		ContractAddress: artist.Address,
		EditionID:       ed.ID,
		TokenID:         tokenID,
		Buyer:           p.Buyer,
		Recipient:       ed.FundingRecipient,
		Amount:          payment,
	}
	if err := e.store.CreatePayment(ctx, routed); err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	events := []domain.SaleEvent{
		domain.NewSaleEvent(domain.EventTypeTokenSold, artist.Address, ed.ID, domain.EventData{
			TokenID:      tokenID.String(),
			SerialNumber: serial,
			Buyer:        p.Buyer.Hex(),
			Amount:       payment.String(),
		}, e.now),
		domain.NewSaleEvent(domain.EventTypePaymentRouted, artist.Address, ed.ID, domain.EventData{
			TokenID:   tokenID.String(),
			Recipient: ed.FundingRecipient.Hex(),
			Amount:    payment.String(),
		}, e.now),
	}
	if err := e.store.AppendEvents(ctx, events); err != nil {
		return nil, fmt.Errorf("failed to record sale events: %w", err)
	}

	logger.InfoCtx(ctx, "Token sold",
		zap.String("contract", artist.Address.Hex()),
		zap.Uint64("editionID", ed.ID),
		zap.String("tokenID", tokenID.String()),
		zap.Uint32("serial", serial),
		zap.String("buyer", p.Buyer.Hex()),
		zap.Bool("presale", presale))

	return &Receipt{
		TokenID:      tokenID,
		EditionID:    ed.ID,
		SerialNumber: serial,
		Buyer:        p.Buyer,
		Payment:      routed,
		Presale:      presale,
	}, nil
}

// nextTokenID packs the edition and serial, or takes the next sequential id before packed ids existed
func (e *Engine) nextTokenID(ctx context.Context, editionID uint64, serial uint32) (*big.Int, error) {
	if e.registry.Features().PackedTokenIDs {
		return identity.Encode(editionID, serial), nil
	}

	artist := e.registry.Artist()
	artist.LegacyTokenCount++
	if err := e.store.UpdateArtist(ctx, artist); err != nil {
		return nil, fmt.Errorf("failed to update token counter: %w", err)
	}
	return new(big.Int).SetUint64(artist.LegacyTokenCount), nil
}

// RoyaltyInfo returns the royalty recipient and amount owed on a secondary sale.
// Unknown tokens and editions yield the zero address and zero amount.
func (e *Engine) RoyaltyInfo(ctx context.Context, tokenID *big.Int, salePrice *big.Int) (common.Address, *big.Int, error) {
	if salePrice == nil || salePrice.Sign() < 0 {
		return common.Address{}, nil, fmt.Errorf("%w: sale price must not be negative", domain.ErrInvalidConfig)
	}

	editionID, err := e.registry.EditionOf(ctx, tokenID)
	if err != nil {
		if isNotFound(err) {
			return common.Address{}, new(big.Int), nil
		}
		return common.Address{}, nil, err
	}

	ed, err := e.registry.Get(ctx, editionID)
	if err != nil {
		if isNotFound(err) {
			return common.Address{}, new(big.Int), nil
		}
		return common.Address{}, nil, err
	}

	amount := new(big.Int).Mul(salePrice, big.NewInt(int64(ed.RoyaltyBPS)))
	amount.Quo(amount, big.NewInt(domain.MaxRoyaltyBPS))
	return ed.FundingRecipient, amount, nil
}

// TokenURI returns the metadata URI of a minted token
func (e *Engine) TokenURI(ctx context.Context, tokenID *big.Int) (string, error) {
	token, err := e.token(ctx, tokenID)
	if err != nil {
		return "", err
	}
	return e.registry.ResolveURI(ctx, token.EditionID, token.TokenID)
}

// OwnerOf returns the owner of a minted token
func (e *Engine) OwnerOf(ctx context.Context, tokenID *big.Int) (common.Address, error) {
	token, err := e.token(ctx, tokenID)
	if err != nil {
		return common.Address{}, err
	}
	return token.Owner, nil
}

// OwnersOfTokenIDs returns the owner of each token in order; any unknown token fails the whole call
func (e *Engine) OwnersOfTokenIDs(ctx context.Context, tokenIDs []*big.Int) ([]common.Address, error) {
	for _, tokenID := range tokenIDs {
		if tokenID == nil || tokenID.Sign() < 0 {
			return nil, fmt.Errorf("%w: token id out of range", domain.ErrInvalidIdentity)
		}
	}

	artist := e.registry.Artist()
	tokens, err := e.store.GetTokens(ctx, artist.Address, tokenIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get tokens: %w", err)
	}

	owners := make([]common.Address, len(tokenIDs))
	for i, tokenID := range tokenIDs {
		token, ok := tokens[tokenID.String()]
		if !ok {
			return nil, fmt.Errorf("%w: token %s", domain.ErrNotFound, tokenID)
		}
		owners[i] = token.Owner
	}
	return owners, nil
}

// CheckTicketNumbers reports, in order, whether each ticket was consumed for the edition
func (e *Engine) CheckTicketNumbers(ctx context.Context, editionID uint64, ticketNumbers []*big.Int) ([]bool, error) {
	return e.ledger.Check(ctx, e.registry.Artist().Address, editionID, ticketNumbers)
}

// TotalSupply returns the number of tokens minted by the instance
func (e *Engine) TotalSupply(ctx context.Context) (uint64, error) {
	total, err := e.store.CountTokens(ctx, e.registry.Artist().Address)
	if err != nil {
		return 0, fmt.Errorf("failed to count tokens: %w", err)
	}
	return total, nil
}

func (e *Engine) token(ctx context.Context, tokenID *big.Int) (*domain.Token, error) {
	if tokenID == nil || tokenID.Sign() < 0 {
		return nil, fmt.Errorf("%w: token id out of range", domain.ErrInvalidIdentity)
	}
	token, err := e.store.GetToken(ctx, e.registry.Artist().Address, tokenID)
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}
	if token == nil {
		return nil, fmt.Errorf("%w: token %s", domain.ErrNotFound, tokenID)
	}
	return token, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
