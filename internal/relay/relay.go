package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/feral-file/ff-editions/internal/adapter"
	"github.com/feral-file/ff-editions/internal/domain"
	"github.com/feral-file/ff-editions/internal/logger"
	"github.com/feral-file/ff-editions/internal/messaging"
	"github.com/feral-file/ff-editions/internal/metrics"
	"github.com/feral-file/ff-editions/internal/store"
)

// Config holds the configuration for the event relay
type Config struct {
	BatchSize      int
	WorkerPoolSize int
	PollInterval   time.Duration

	// Retry budget for a single event before it is left for the next poll
	RetryInitialInterval time.Duration
	RetryMaxInterval     time.Duration
	RetryMaxElapsedTime  time.Duration
}

// Result summarizes one relay cycle
type Result struct {
	Fetched   int
	Published int
	Failed    int
}

// Relay drains the event outbox into the message broker
type Relay interface {
	// Start runs relay cycles until the context is canceled or Stop is called
	Start(ctx context.Context) error
	// Stop asks a running relay to exit and waits for it
	Stop(ctx context.Context) error
	// RelayPending publishes one batch of pending events
	RelayPending(ctx context.Context) (Result, error)
}

type relay struct {
	config    Config
	store     store.EventStore
	publisher messaging.Publisher
	clock     adapter.Clock
	metrics   *metrics.Metrics
	running   atomic.Bool
	stopChan  chan struct{}
	stoppedCh chan struct{}
}

// NewRelay creates a new event relay
func NewRelay(cfg Config, st store.EventStore, pub messaging.Publisher, clock adapter.Clock, m *metrics.Metrics) Relay {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = 1
	}
	if cfg.RetryInitialInterval <= 0 {
		cfg.RetryInitialInterval = 500 * time.Millisecond
	}
	if cfg.RetryMaxInterval <= 0 {
		cfg.RetryMaxInterval = 10 * time.Second
	}
	if cfg.RetryMaxElapsedTime <= 0 {
		cfg.RetryMaxElapsedTime = time.Minute
	}
	return &relay{
		config:    cfg,
		store:     st,
		publisher: pub,
		clock:     clock,
		metrics:   m,
		stopChan:  make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Start runs relay cycles. A full batch that published cleanly is followed immediately
// by the next one, otherwise the relay waits PollInterval.
func (r *relay) Start(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		return fmt.Errorf("relay already running")
	}
	defer close(r.stoppedCh)

	logger.InfoCtx(ctx, "Starting event relay",
		zap.Int("batch_size", r.config.BatchSize),
		zap.Int("worker_pool_size", r.config.WorkerPoolSize),
		zap.Duration("poll_interval", r.config.PollInterval))

	for {
		result, err := r.RelayPending(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.ErrorCtx(ctx, err)
		}

		if err == nil && result.Failed == 0 && result.Fetched == r.config.BatchSize {
			select {
			case <-ctx.Done():
				return nil
			case <-r.stopChan:
				return nil
			default:
				continue
			}
		}

		select {
		case <-ctx.Done():
			logger.InfoCtx(ctx, "Event relay stopping due to context cancellation")
			return nil
		case <-r.stopChan:
			logger.InfoCtx(ctx, "Event relay stop requested")
			return nil
		case <-r.clock.After(r.config.PollInterval):
		}
	}
}

// Stop gracefully stops the relay with timeout support
func (r *relay) Stop(ctx context.Context) error {
	if !r.running.CompareAndSwap(true, false) {
		return nil
	}

	close(r.stopChan)

	select {
	case <-r.stoppedCh:
		logger.InfoCtx(ctx, "Event relay stopped gracefully")
		return nil
	case <-ctx.Done():
		logger.WarnCtx(ctx, "Event relay stop interrupted by context timeout")
		return ctx.Err()
	}
}

// RelayPending publishes one batch of pending events.
// Events of one contract are published in sequence order; the first failure holds
// back the rest of that contract until the next cycle. Contracts run in parallel.
func (r *relay) RelayPending(ctx context.Context) (Result, error) {
	pending, err := r.store.GetPendingEvents(ctx, r.config.BatchSize)
	if err != nil {
		return Result{}, fmt.Errorf("failed to get pending events: %w", err)
	}
	r.metrics.RelayPolled(len(pending))
	if len(pending) == 0 {
		return Result{}, nil
	}

	var order []string
	byContract := make(map[string][]store.PendingEvent)
	for _, pe := range pending {
		key := strings.ToLower(pe.Event.ContractAddress.Hex())
		if _, ok := byContract[key]; !ok {
			order = append(order, key)
		}
		byContract[key] = append(byContract[key], pe)
	}

	var published, failed atomic.Int32
	pool := pond.NewPool(
		r.config.WorkerPoolSize,
		pond.WithQueueSize(len(order)),
		pond.WithContext(ctx),
	)
	for _, key := range order {
		sequence := byContract[key]
		pool.Submit(func() {
			ok, bad := r.publishSequence(ctx, sequence)
			published.Add(int32(ok))
			failed.Add(int32(bad))
		})
	}
	pool.StopAndWait()

	result := Result{
		Fetched:   len(pending),
		Published: int(published.Load()),
		Failed:    int(failed.Load()),
	}
	logger.DebugCtx(ctx, "Relay cycle finished",
		zap.Int("fetched", result.Fetched),
		zap.Int("published", result.Published),
		zap.Int("failed", result.Failed))

	return result, ctx.Err()
}

func (r *relay) publishSequence(ctx context.Context, sequence []store.PendingEvent) (int, int) {
	published := 0
	for _, pe := range sequence {
		if err := r.publishWithRetry(ctx, &pe.Event); err != nil {
			r.metrics.PublishFailed()
			logger.ErrorCtx(ctx, fmt.Errorf("failed to publish event %s: %w", pe.Event.EventID, err),
				zap.Uint64("id", pe.ID),
				zap.Int("attempts", pe.Attempts+1),
				zap.String("contract", pe.Event.ContractAddress.Hex()))
			if markErr := r.store.MarkEventFailed(context.WithoutCancel(ctx), pe.ID, err.Error()); markErr != nil {
				logger.ErrorCtx(ctx, markErr, zap.Uint64("id", pe.ID))
			}
			return published, 1
		}

		if err := r.store.MarkEventPublished(ctx, pe.ID, r.clock.Now()); err != nil {
			// Published but not marked: the broker drops the redelivery by message id
			logger.ErrorCtx(ctx, err, zap.Uint64("id", pe.ID))
			return published, 1
		}
		r.metrics.EventPublished()
		published++
	}
	return published, 0
}

func (r *relay) publishWithRetry(ctx context.Context, event *domain.SaleEvent) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.config.RetryInitialInterval
	b.MaxInterval = r.config.RetryMaxInterval
	b.MaxElapsedTime = r.config.RetryMaxElapsedTime

	operation := func() error {
		err := r.publisher.PublishEvent(ctx, event)
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}

	return backoff.Retry(operation, backoff.WithContext(b, ctx))
}
