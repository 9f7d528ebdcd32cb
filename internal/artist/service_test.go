package artist_test

import (
	"context"
	"errors"
	"math/big"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang/mock/gomock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-editions/internal/artist"
	"github.com/feral-file/ff-editions/internal/domain"
	"github.com/feral-file/ff-editions/internal/edition"
	"github.com/feral-file/ff-editions/internal/identity"
	"github.com/feral-file/ff-editions/internal/layout"
	"github.com/feral-file/ff-editions/internal/logger"
	"github.com/feral-file/ff-editions/internal/metrics"
	"github.com/feral-file/ff-editions/internal/mocks"
	"github.com/feral-file/ff-editions/internal/sale"
	"github.com/feral-file/ff-editions/internal/signature"
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
	contractAddress = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	secondContract  = common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512")
	owner           = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	admin           = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	buyer           = common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
	recovery        = common.HexToAddress("0x90F79bf6EB2c4f870365E785982E1f101E93b906")
	fundingAddress  = common.HexToAddress("0x15d34AAf54267DB7D7c367839AAf71A00a2C6A65")
	signerAddress   = common.HexToAddress("0x9965507D1a55bcC2695C58ba16FB37d819B0A4dc")

	price = big.NewInt(1e17)
	now   = time.Unix(1700000000, 0)
)

type testService struct {
	service  *artist.Service
	store    store.Store
	registry *prometheus.Registry
}

func setupService(t *testing.T, versions map[common.Address]layout.Version) *testService {
	db, err := store.Open(store.DriverSQLite, ":memory:", false)
	require.NoError(t, err)
	require.NoError(t, store.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	st := store.NewGormStore(db)

	for address, version := range versions {
		require.NoError(t, st.CreateArtist(context.Background(), &domain.Artist{
			Address: address,
			Owner:   owner,
			Name:    "Artist",
			Symbol:  "ART",
			BaseURI: "https://metadata.example.com/",
			Version: uint8(version),
		}))
	}

	ctrl := gomock.NewController(t)
	clock := mocks.NewMockClock(ctrl)
	clock.EXPECT().Now().Return(now).AnyTimes()

	reg := prometheus.NewRegistry()
	svc := artist.NewService(st, signature.NewVerifier(big.NewInt(1337)), clock, metrics.New(reg), artist.Config{
		RecoveryAddress: recovery,
	})
	return &testService{service: svc, store: st, registry: reg}
}

func editionConfig(quantity uint32) domain.EditionConfig {
	return domain.EditionConfig{
		FundingRecipient: fundingAddress,
		Price:            price,
		Quantity:         quantity,
		RoyaltyBPS:       500,
		EndTime:          domain.UnboundedTime,
	}
}

func TestService_UnknownArtist(t *testing.T) {
	ctx := context.Background()
	ts := setupService(t, nil)

	_, err := ts.service.CreateEdition(ctx, contractAddress, owner, editionConfig(1), edition.AllocateNext())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = ts.service.Buy(ctx, contractAddress, sale.Purchase{EditionID: 1, Buyer: buyer, Payment: price})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = ts.service.TotalSupply(ctx, contractAddress)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_BuyFlow(t *testing.T) {
	ctx := context.Background()
	ts := setupService(t, map[common.Address]layout.Version{contractAddress: layout.V5})
	svc := ts.service

	ed, err := svc.CreateEdition(ctx, contractAddress, owner, editionConfig(2), edition.AllocateNext())
	require.NoError(t, err)

	receipt, err := svc.Buy(ctx, contractAddress, sale.Purchase{EditionID: ed.ID, Buyer: buyer, Payment: price})
	require.NoError(t, err)
	assert.Equal(t, 0, identity.Encode(ed.ID, 1).Cmp(receipt.TokenID))

	_, err = svc.Buy(ctx, contractAddress, sale.Purchase{EditionID: ed.ID, Buyer: buyer, Payment: price})
	require.NoError(t, err)

	_, err = svc.Buy(ctx, contractAddress, sale.Purchase{EditionID: ed.ID, Buyer: buyer, Payment: price})
	assert.ErrorIs(t, err, domain.ErrSoldOut)

	state, err := svc.State(ctx, contractAddress, ed.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SaleStateSoldOut, state)

	owners, err := svc.OwnersOfTokenIDs(ctx, contractAddress, []*big.Int{receipt.TokenID})
	require.NoError(t, err)
	assert.Equal(t, []common.Address{buyer}, owners)

	recipient, amount, err := svc.RoyaltyInfo(ctx, contractAddress, receipt.TokenID, big.NewInt(10_000))
	require.NoError(t, err)
	assert.Equal(t, fundingAddress, recipient)
	assert.Equal(t, int64(500), amount.Int64())

	assert.Equal(t, float64(2), counterValue(t, ts.registry, "ff_editions_tokens_minted_total"))

	events, err := svc.ListEvents(ctx, contractAddress, store.EventFilter{
		EventTypes: []domain.EventType{domain.EventTypeTokenSold},
	})
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

// counterValue reads a registered counter without labels
func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() == name {
			return family.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func TestService_ConcurrentBuysNeverOversell(t *testing.T) {
	ctx := context.Background()
	ts := setupService(t, map[common.Address]layout.Version{contractAddress: layout.V5})
	svc := ts.service

	ed, err := svc.CreateEdition(ctx, contractAddress, owner, editionConfig(10), edition.AllocateNext())
	require.NoError(t, err)

	const buyers = 25
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		serials = make(map[uint32]bool)
		soldOut int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			receipt, err := svc.Buy(ctx, contractAddress, sale.Purchase{EditionID: ed.ID, Buyer: buyer, Payment: price})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				assert.ErrorIs(t, err, domain.ErrSoldOut)
				soldOut++
				return
			}
			assert.False(t, serials[receipt.SerialNumber], "serial %d sold twice", receipt.SerialNumber)
			serials[receipt.SerialNumber] = true
		}()
	}
	wg.Wait()

	assert.Len(t, serials, 10)
	assert.Equal(t, buyers-10, soldOut)

	total, err := svc.TotalSupply(ctx, contractAddress)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), total)
}

func TestService_EditionSetters(t *testing.T) {
	ctx := context.Background()
	ts := setupService(t, map[common.Address]layout.Version{contractAddress: layout.V5})
	svc := ts.service

	ed, err := svc.CreateEdition(ctx, contractAddress, owner, editionConfig(5), edition.AllocateExplicit(77))
	require.NoError(t, err)
	assert.Equal(t, uint64(77), ed.ID)

	_, err = svc.SetSignerAddress(ctx, contractAddress, owner, ed.ID, signerAddress)
	require.NoError(t, err)
	_, err = svc.SetPermissionedQuantity(ctx, contractAddress, owner, ed.ID, 2)
	require.NoError(t, err)
	_, err = svc.SetStartTime(ctx, contractAddress, owner, ed.ID, 10)
	require.NoError(t, err)
	_, err = svc.SetEndTime(ctx, contractAddress, owner, ed.ID, 0)
	require.NoError(t, err)
	_, err = svc.SetBaseURI(ctx, contractAddress, owner, ed.ID, "ar://bundle/")
	require.NoError(t, err)

	stored, err := svc.GetEdition(ctx, contractAddress, ed.ID)
	require.NoError(t, err)
	assert.Equal(t, signerAddress, stored.SignerAddress)
	assert.Equal(t, uint32(2), stored.PermissionedQuantity)
	assert.Equal(t, uint32(10), stored.StartTime)
	assert.Equal(t, uint32(0), stored.EndTime)
	assert.Equal(t, "ar://bundle/", stored.BaseURI)

	state, err := svc.State(ctx, contractAddress, ed.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SaleStatePresaleOnly, state)

	count, err := svc.EditionCount(ctx, contractAddress)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	// a rejected update records nothing
	before, err := svc.ListEvents(ctx, contractAddress, store.EventFilter{})
	require.NoError(t, err)
	_, err = svc.SetSignerAddress(ctx, contractAddress, buyer, ed.ID, signerAddress)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	after, err := svc.ListEvents(ctx, contractAddress, store.EventFilter{})
	require.NoError(t, err)
	assert.Len(t, after, len(before))

	editions, err := svc.ListEditions(ctx, contractAddress)
	require.NoError(t, err)
	assert.Len(t, editions, 1)
}

func TestService_Roles(t *testing.T) {
	ctx := context.Background()
	ts := setupService(t, map[common.Address]layout.Version{
		contractAddress: layout.V5,
		secondContract:  layout.V4,
	})
	svc := ts.service

	err := svc.GrantRole(ctx, contractAddress, admin, domain.RoleAdmin, admin)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	err = svc.GrantRole(ctx, secondContract, owner, domain.RoleAdmin, admin)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	require.NoError(t, svc.GrantRole(ctx, contractAddress, owner, domain.RoleAdmin, admin))
	// granting twice is a no-op
	require.NoError(t, svc.GrantRole(ctx, contractAddress, owner, domain.RoleAdmin, admin))

	ok, err := svc.HasRole(ctx, contractAddress, domain.RoleAdmin, admin)
	require.NoError(t, err)
	assert.True(t, ok)

	members, err := svc.ListRoleMembers(ctx, contractAddress, domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{admin}, members)

	_, err = svc.CreateEdition(ctx, contractAddress, admin, editionConfig(1), edition.AllocateNext())
	require.NoError(t, err)

	// admins cannot manage roles
	err = svc.GrantRole(ctx, contractAddress, admin, domain.RoleAdmin, buyer)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	require.NoError(t, svc.RevokeRole(ctx, contractAddress, owner, domain.RoleAdmin, admin))
	_, err = svc.CreateEdition(ctx, contractAddress, admin, editionConfig(1), edition.AllocateNext())
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	granted, err := svc.ListEvents(ctx, contractAddress, store.EventFilter{
		EventTypes: []domain.EventType{domain.EventTypeRoleGranted, domain.EventTypeRoleRevoked},
	})
	require.NoError(t, err)
	require.Len(t, granted, 2)
	assert.Equal(t, domain.EventTypeRoleGranted, granted[0].EventType)
	assert.Equal(t, domain.EventTypeRoleRevoked, granted[1].EventType)
}

func TestService_Ownership(t *testing.T) {
	ctx := context.Background()
	ts := setupService(t, map[common.Address]layout.Version{
		contractAddress: layout.V5,
		secondContract:  layout.V4,
	})
	svc := ts.service

	_, err := svc.SetOwnerOverride(ctx, contractAddress, buyer, admin)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = svc.SetOwnerOverride(ctx, secondContract, recovery, admin)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	updated, err := svc.SetOwnerOverride(ctx, contractAddress, recovery, admin)
	require.NoError(t, err)
	assert.Equal(t, admin, updated.Owner)

	_, err = svc.TransferOwnership(ctx, contractAddress, owner, buyer)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = svc.TransferOwnership(ctx, contractAddress, admin, common.Address{})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	updated, err = svc.TransferOwnership(ctx, contractAddress, admin, owner)
	require.NoError(t, err)
	assert.Equal(t, owner, updated.Owner)

	// ownership transfer exists at every version
	_, err = svc.TransferOwnership(ctx, secondContract, owner, admin)
	require.NoError(t, err)

	events, err := svc.ListEvents(ctx, contractAddress, store.EventFilter{
		EventTypes: []domain.EventType{domain.EventTypeOwnershipTransferred},
	})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, owner.Hex(), events[0].Data.PreviousOwner)
	assert.Equal(t, admin.Hex(), events[0].Data.Account)
}

func TestService_UpgradeAll_PreservesEditions(t *testing.T) {
	ctx := context.Background()
	ts := setupService(t, map[common.Address]layout.Version{contractAddress: layout.V1})
	svc := ts.service

	first, err := svc.CreateEdition(ctx, contractAddress, owner, editionConfig(5), edition.AllocateNext())
	require.NoError(t, err)
	cfg := editionConfig(3)
	cfg.RoyaltyBPS = 1234
	cfg.StartTime = 100
	second, err := svc.CreateEdition(ctx, contractAddress, owner, cfg, edition.AllocateNext())
	require.NoError(t, err)

	legacy, err := svc.Buy(ctx, contractAddress, sale.Purchase{EditionID: second.ID, Buyer: buyer, Payment: price})
	require.NoError(t, err)
	assert.Equal(t, "1", legacy.TokenID.String())

	before, err := svc.ListEditions(ctx, contractAddress)
	require.NoError(t, err)

	var withinCalled bool
	count, err := svc.UpgradeAll(ctx, layout.V5, func(tx store.Store) error {
		withinCalled = true
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.True(t, withinCalled)

	upgraded, err := svc.Get(ctx, contractAddress)
	require.NoError(t, err)
	assert.Equal(t, uint8(layout.V5), upgraded.Version)

	after, err := svc.ListEditions(ctx, contractAddress)
	require.NoError(t, err)
	require.Len(t, after, len(before))
	for i := range before {
		oldBytes, err := layout.EncodeEdition(layout.V1, before[i])
		require.NoError(t, err)
		newBytes, err := layout.EncodeEdition(layout.V1, after[i])
		require.NoError(t, err)
		assert.Equal(t, string(oldBytes), string(newBytes))

		assert.Equal(t, common.Address{}, after[i].SignerAddress)
		assert.Equal(t, uint32(0), after[i].PermissionedQuantity)
		assert.Equal(t, "", after[i].BaseURI)
	}

	// the legacy token keeps its edition and royalty
	_, amount, err := svc.RoyaltyInfo(ctx, contractAddress, legacy.TokenID, big.NewInt(10_000))
	require.NoError(t, err)
	assert.Equal(t, int64(1234), amount.Int64())

	// new sales mint packed ids
	receipt, err := svc.Buy(ctx, contractAddress, sale.Purchase{EditionID: first.ID, Buyer: buyer, Payment: price})
	require.NoError(t, err)
	assert.Equal(t, 0, identity.Encode(first.ID, 1).Cmp(receipt.TokenID))

	// features of the new version are available
	_, err = svc.CreateEdition(ctx, contractAddress, owner, editionConfig(0), edition.AllocateExplicit(500))
	require.NoError(t, err)

	events, err := svc.ListEvents(ctx, contractAddress, store.EventFilter{
		EventTypes: []domain.EventType{domain.EventTypeUpgraded},
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, uint8(layout.V5), events[0].Data.Version)
}

func TestService_UpgradeAll_Rollback(t *testing.T) {
	ctx := context.Background()
	ts := setupService(t, map[common.Address]layout.Version{contractAddress: layout.V3})
	svc := ts.service

	_, err := svc.UpgradeAll(ctx, layout.V2, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	failure := errors.New("beacon write failed")
	_, err = svc.UpgradeAll(ctx, layout.V4, func(tx store.Store) error {
		return failure
	})
	assert.ErrorIs(t, err, failure)

	stored, err := svc.Get(ctx, contractAddress)
	require.NoError(t, err)
	assert.Equal(t, uint8(layout.V3), stored.Version)
}
