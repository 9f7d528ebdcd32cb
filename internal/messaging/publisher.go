package messaging

import (
	"context"

	"github.com/feral-file/ff-editions/internal/domain"
)

// Publisher defines the interface for publishing events to message queue
//
//go:generate mockgen -source=publisher.go -destination=../mocks/publisher.go -package=mocks -mock_names=Publisher=MockPublisher
type Publisher interface {
	// PublishEvent publishes a sale event to the message broker.
	// Publishing the same event twice must not deliver it twice.
	PublishEvent(ctx context.Context, event *domain.SaleEvent) error
	// Close closes the connection
	Close()
}
