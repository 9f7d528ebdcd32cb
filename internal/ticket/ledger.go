package ticket

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/feral-file/ff-editions/internal/domain"
	"github.com/feral-file/ff-editions/internal/logger"
)

// Store persists consumed tickets keyed by (contract, edition, ticket number)
//
//go:generate mockgen -source=ledger.go -destination=../mocks/ticket.go -package=mocks -mock_names=Store=MockTicketStore
type Store interface {
	// IsTicketConsumed reports whether the ticket was consumed for the edition
	IsTicketConsumed(ctx context.Context, contract common.Address, editionID uint64, ticketNumber *big.Int) (bool, error)
	// InsertTicket records a consumed ticket
	InsertTicket(ctx context.Context, ticket *domain.Ticket) error
}

// Ledger is the per-edition set of consumed presale tickets.
// Ticket numbers are arbitrary caller-chosen integers so membership is a sparse lookup.
type Ledger struct {
	store Store
}

// NewLedger creates a ledger over the given store
func NewLedger(store Store) *Ledger {
	return &Ledger{store: store}
}

// IsConsumed reports whether ticketNumber was already used for the edition
func (l *Ledger) IsConsumed(ctx context.Context, contract common.Address, editionID uint64, ticketNumber *big.Int) (bool, error) {
	if err := validateTicketNumber(ticketNumber); err != nil {
		return false, err
	}

	consumed, err := l.store.IsTicketConsumed(ctx, contract, editionID, ticketNumber)
	if err != nil {
		return false, fmt.Errorf("failed to check ticket: %w", err)
	}
	return consumed, nil
}

// Consume marks ticketNumber as used for the edition.
// It fails with ErrTicketAlreadyUsed when the ticket was consumed before, whoever consumed it.
func (l *Ledger) Consume(ctx context.Context, contract common.Address, editionID uint64, ticketNumber *big.Int, buyer common.Address) error {
	consumed, err := l.IsConsumed(ctx, contract, editionID, ticketNumber)
	if err != nil {
		return err
	}
	if consumed {
		return fmt.Errorf("%w: edition %d ticket %s", domain.ErrTicketAlreadyUsed, editionID, ticketNumber)
	}

	err = l.store.InsertTicket(ctx, &domain.Ticket{
		ContractAddress: contract,
		EditionID:       editionID,
		TicketNumber:    new(big.Int).Set(ticketNumber),
		Buyer:           buyer,
	})
	if err != nil {
		return fmt.Errorf("failed to consume ticket: %w", err)
	}

	logger.DebugCtx(ctx, "Ticket consumed",
		zap.String("contract", contract.Hex()),
		zap.Uint64("editionID", editionID),
		zap.String("ticketNumber", ticketNumber.String()))

	return nil
}

// Check reports, in order, whether each ticket number was consumed for the edition
func (l *Ledger) Check(ctx context.Context, contract common.Address, editionID uint64, ticketNumbers []*big.Int) ([]bool, error) {
	results := make([]bool, len(ticketNumbers))
	for i, ticketNumber := range ticketNumbers {
		consumed, err := l.IsConsumed(ctx, contract, editionID, ticketNumber)
		if err != nil {
			return nil, err
		}
		results[i] = consumed
	}
	return results, nil
}

func validateTicketNumber(ticketNumber *big.Int) error {
	if ticketNumber == nil || ticketNumber.Sign() < 0 || ticketNumber.BitLen() > 256 {
		return fmt.Errorf("%w: ticket number must be an unsigned 256-bit integer", domain.ErrInvalidConfig)
	}
	return nil
}
