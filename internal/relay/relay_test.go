package relay_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang/mock/gomock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-editions/internal/domain"
	"github.com/feral-file/ff-editions/internal/logger"
	"github.com/feral-file/ff-editions/internal/metrics"
	"github.com/feral-file/ff-editions/internal/mocks"
	"github.com/feral-file/ff-editions/internal/relay"
	"github.com/feral-file/ff-editions/internal/store"
)

func TestMain(m *testing.M) {
	err := logger.Initialize(logger.Config{
		Debug: false,
	})
	if err != nil {
		panic(err)
	}

	code := m.Run()
	os.Exit(code)
}

var (
	contractA = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	contractB = common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512")
	now       = time.Unix(1700000000, 0)
)

type testRelay struct {
	relay     relay.Relay
	store     store.Store
	publisher *mocks.MockPublisher
	clock     *mocks.MockClock
}

func setupRelay(t *testing.T, batchSize int) *testRelay {
	db, err := store.Open(store.DriverSQLite, ":memory:", false)
	require.NoError(t, err)
	require.NoError(t, store.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	st := store.NewGormStore(db)

	ctrl := gomock.NewController(t)
	pub := mocks.NewMockPublisher(ctrl)
	clock := mocks.NewMockClock(ctrl)
	clock.EXPECT().Now().Return(now).AnyTimes()

	r := relay.NewRelay(relay.Config{
		BatchSize:            batchSize,
		WorkerPoolSize:       4,
		PollInterval:         time.Second,
		RetryInitialInterval: time.Millisecond,
		RetryMaxInterval:     2 * time.Millisecond,
		RetryMaxElapsedTime:  20 * time.Millisecond,
	}, st, pub, clock, metrics.New(prometheus.NewRegistry()))

	return &testRelay{relay: r, store: st, publisher: pub, clock: clock}
}

func (tr *testRelay) append(t *testing.T, contract common.Address, editionID uint64, types ...domain.EventType) []domain.SaleEvent {
	events := make([]domain.SaleEvent, 0, len(types))
	for _, eventType := range types {
		events = append(events, domain.NewSaleEvent(eventType, contract, editionID, domain.EventData{}, now))
	}
	require.NoError(t, tr.store.AppendEvents(context.Background(), events))
	return events
}

// recorder captures the order events reach the broker
type recorder struct {
	mu  sync.Mutex
	ids []string
}

func (r *recorder) record(event *domain.SaleEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, event.EventID)
}

func (r *recorder) of(events []domain.SaleEvent) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	wanted := make(map[string]bool, len(events))
	for _, e := range events {
		wanted[e.EventID] = true
	}
	var ids []string
	for _, id := range r.ids {
		if wanted[id] {
			ids = append(ids, id)
		}
	}
	return ids
}

func idsOf(events []domain.SaleEvent) []string {
	ids := make([]string, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.EventID)
	}
	return ids
}

func TestRelayPending_PublishesInOrder(t *testing.T) {
	ctx := context.Background()
	tr := setupRelay(t, 10)

	a := tr.append(t, contractA, 1, domain.EventTypeEditionCreated, domain.EventTypeTokenSold, domain.EventTypePaymentRouted)
	b := tr.append(t, contractB, 1, domain.EventTypeEditionCreated, domain.EventTypeTokenSold)

	rec := &recorder{}
	tr.publisher.EXPECT().PublishEvent(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, event *domain.SaleEvent) error {
			rec.record(event)
			return nil
		}).Times(5)

	result, err := tr.relay.RelayPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, relay.Result{Fetched: 5, Published: 5}, result)
	assert.Equal(t, idsOf(a), rec.of(a))
	assert.Equal(t, idsOf(b), rec.of(b))

	pending, err := tr.store.GetPendingEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	result, err = tr.relay.RelayPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, relay.Result{}, result)
}

func TestRelayPending_FailureHoldsBackContract(t *testing.T) {
	ctx := context.Background()
	tr := setupRelay(t, 10)

	a := tr.append(t, contractA, 1, domain.EventTypeEditionCreated, domain.EventTypeTokenSold, domain.EventTypePaymentRouted)
	b := tr.append(t, contractB, 2, domain.EventTypeEditionCreated)

	brokerDown := errors.New("nats: no responders available for request")
	rec := &recorder{}
	tr.publisher.EXPECT().PublishEvent(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, event *domain.SaleEvent) error {
			if event.EventID == a[1].EventID {
				return brokerDown
			}
			rec.record(event)
			return nil
		}).AnyTimes()

	result, err := tr.relay.RelayPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, result.Fetched)
	assert.Equal(t, 2, result.Published)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, []string{a[0].EventID}, rec.of(a))
	assert.Equal(t, idsOf(b), rec.of(b))

	pending, err := tr.store.GetPendingEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, a[1].EventID, pending[0].Event.EventID)
	assert.Equal(t, 1, pending[0].Attempts)
	assert.Equal(t, a[2].EventID, pending[1].Event.EventID)
	assert.Equal(t, 0, pending[1].Attempts)
}

func TestRelayPending_RetriesTransientErrors(t *testing.T) {
	ctx := context.Background()
	tr := setupRelay(t, 10)

	tr.append(t, contractA, 1, domain.EventTypeTokenSold)

	gomock.InOrder(
		tr.publisher.EXPECT().PublishEvent(gomock.Any(), gomock.Any()).Return(errors.New("timeout")),
		tr.publisher.EXPECT().PublishEvent(gomock.Any(), gomock.Any()).Return(nil),
	)

	result, err := tr.relay.RelayPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, relay.Result{Fetched: 1, Published: 1}, result)
}

func TestRelayPending_RespectsBatchSize(t *testing.T) {
	ctx := context.Background()
	tr := setupRelay(t, 2)

	tr.append(t, contractA, 1, domain.EventTypeEditionCreated, domain.EventTypeTokenSold, domain.EventTypePaymentRouted)
	tr.publisher.EXPECT().PublishEvent(gomock.Any(), gomock.Any()).Return(nil).Times(3)

	result, err := tr.relay.RelayPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Published)

	result, err = tr.relay.RelayPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Published)
}

func TestRelay_StartStop(t *testing.T) {
	tr := setupRelay(t, 10)
	tr.append(t, contractA, 1, domain.EventTypeTokenSold)

	published := make(chan struct{})
	tr.publisher.EXPECT().PublishEvent(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, *domain.SaleEvent) error {
			close(published)
			return nil
		})
	tr.clock.EXPECT().After(time.Second).Return(make(chan time.Time)).AnyTimes()

	done := make(chan error, 1)
	go func() {
		done <- tr.relay.Start(context.Background())
	}()

	select {
	case <-published:
	case <-time.After(5 * time.Second):
		t.Fatal("relay did not publish")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, tr.relay.Stop(ctx))
	require.NoError(t, <-done)
}
