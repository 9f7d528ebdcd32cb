package jetstream_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang/mock/gomock"
	natsjs "github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-editions/internal/adapter"
	"github.com/feral-file/ff-editions/internal/domain"
	"github.com/feral-file/ff-editions/internal/logger"
	"github.com/feral-file/ff-editions/internal/mocks"
	"github.com/feral-file/ff-editions/internal/providers/jetstream"
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

var testConfig = jetstream.Config{
	URL:             "nats://localhost:4222",
	StreamName:      "EDITIONS",
	MaxReconnects:   3,
	ReconnectWait:   time.Second,
	ConnectionName:  "ff-editions-test",
	DuplicateWindow: 2 * time.Minute,
}

func sampleEvent() domain.SaleEvent {
	return domain.NewSaleEvent(
		domain.EventTypeTokenSold,
		common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"),
		1,
		domain.EventData{TokenID: "340282366920938463463374607431768211457", SerialNumber: 1},
		time.Unix(1700000000, 0),
	)
}

func TestBuildSubject(t *testing.T) {
	event := sampleEvent()
	assert.Equal(t, "editions.0x5fbdb2315678afecb367f032d93f642f64180aa3.token_sold", jetstream.BuildSubject(&event))
}

func TestNewPublisher_EnsuresStream(t *testing.T) {
	ctrl := gomock.NewController(t)
	natsJS := mocks.NewMockNatsJetStream(ctrl)
	nc := mocks.NewMockNatsConn(ctrl)
	js := mocks.NewMockJetStream(ctrl)

	natsJS.EXPECT().Connect(testConfig.URL, gomock.Any()).Return(nc, js, nil)
	js.EXPECT().CreateOrUpdateStream(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, cfg natsjs.StreamConfig) error {
			assert.Equal(t, "EDITIONS", cfg.Name)
			assert.Equal(t, []string{"editions.>"}, cfg.Subjects)
			assert.Equal(t, 2*time.Minute, cfg.Duplicates)
			return nil
		})
	nc.EXPECT().Close()

	pub, err := jetstream.NewPublisher(context.Background(), testConfig, natsJS, adapter.NewJSON())
	require.NoError(t, err)
	pub.Close()
}

func TestNewPublisher_StreamFailureClosesConnection(t *testing.T) {
	ctrl := gomock.NewController(t)
	natsJS := mocks.NewMockNatsJetStream(ctrl)
	nc := mocks.NewMockNatsConn(ctrl)
	js := mocks.NewMockJetStream(ctrl)

	natsJS.EXPECT().Connect(testConfig.URL, gomock.Any()).Return(nc, js, nil)
	js.EXPECT().CreateOrUpdateStream(gomock.Any(), gomock.Any()).Return(errors.New("insufficient resources"))
	nc.EXPECT().Close()

	_, err := jetstream.NewPublisher(context.Background(), testConfig, natsJS, adapter.NewJSON())
	assert.Error(t, err)
}

func TestNewPublisher_ConnectFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	natsJS := mocks.NewMockNatsJetStream(ctrl)
	natsJS.EXPECT().Connect(testConfig.URL, gomock.Any()).Return(nil, nil, errors.New("connection refused"))

	_, err := jetstream.NewPublisher(context.Background(), testConfig, natsJS, adapter.NewJSON())
	assert.ErrorContains(t, err, "connection refused")
}

func TestPublishEvent(t *testing.T) {
	ctrl := gomock.NewController(t)
	natsJS := mocks.NewMockNatsJetStream(ctrl)
	nc := mocks.NewMockNatsConn(ctrl)
	js := mocks.NewMockJetStream(ctrl)

	natsJS.EXPECT().Connect(testConfig.URL, gomock.Any()).Return(nc, js, nil)
	js.EXPECT().CreateOrUpdateStream(gomock.Any(), gomock.Any()).Return(nil)

	pub, err := jetstream.NewPublisher(context.Background(), testConfig, natsJS, adapter.NewJSON())
	require.NoError(t, err)

	event := sampleEvent()
	js.EXPECT().Publish(gomock.Any(), jetstream.BuildSubject(&event), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, data []byte, opts ...natsjs.PublishOpt) (*natsjs.PubAck, error) {
			require.Len(t, opts, 1)

			var decoded domain.SaleEvent
			require.NoError(t, json.Unmarshal(data, &decoded))
			assert.Equal(t, event.EventID, decoded.EventID)
			assert.Equal(t, event.ContractAddress, decoded.ContractAddress)
			assert.Equal(t, "340282366920938463463374607431768211457", decoded.Data.TokenID)
			return &natsjs.PubAck{Stream: "EDITIONS", Sequence: 1}, nil
		})
	require.NoError(t, pub.PublishEvent(context.Background(), &event))

	js.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("timeout"))
	assert.ErrorContains(t, pub.PublishEvent(context.Background(), &event), "failed to publish event")
}
