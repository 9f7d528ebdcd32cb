package store

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-editions/internal/domain"
)

var (
	testContract = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	testOwner    = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	testBuyer    = common.HexToAddress("0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC")
	testSigner   = common.HexToAddress("0x90F79bf6EB2c4f870365E785982E1f101E93b906")
)

// =============================================================================
// Test Data Builders
// =============================================================================

// buildTestArtist creates a test artist instance
func buildTestArtist(address common.Address) *domain.Artist {
	return &domain.Artist{
		Address: address,
		Owner:   testOwner,
		Name:    "Feral File Exhibition",
		Symbol:  "FFE",
		BaseURI: "https://ipfs.bitmark.com/ipfs/",
		Version: 5,
	}
}

// buildTestEdition creates a test edition
func buildTestEdition(editionID uint64) *domain.Edition {
	return &domain.Edition{
		ContractAddress:  testContract,
		ID:               editionID,
		FundingRecipient: testOwner,
		Price:            new(big.Int).Mul(big.NewInt(1), big.NewInt(1e17)),
		Quantity:         10,
		RoyaltyBPS:       1000,
		StartTime:        1700000000,
		EndTime:          domain.UnboundedTime,
		LayoutVersion:    5,
	}
}

// RunStoreTests runs the store test suite against an implementation
func RunStoreTests(t *testing.T, initDB func(t *testing.T) Store, cleanupDB func(t *testing.T)) {
	tests := []struct {
		name string
		fn   func(*testing.T, Store)
	}{
		{"Artists", testArtists},
		{"Editions", testEditions},
		{"Tickets", testTickets},
		{"Tokens", testTokens},
		{"Payments", testPayments},
		{"Roles", testRoles},
		{"Events", testEvents},
		{"KeyValueStore", testKeyValueStore},
		{"FactoryStore", testFactoryStore},
		{"WithTx", testWithTx},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := initDB(t)
			defer cleanupDB(t)
			tt.fn(t, store)
		})
	}
}

func testArtists(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("create and get artist", func(t *testing.T) {
		artist := buildTestArtist(testContract)
		require.NoError(t, store.CreateArtist(ctx, artist))

		got, err := store.GetArtist(ctx, testContract)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, artist, got)
	})

	t.Run("duplicate artist should fail", func(t *testing.T) {
		err := store.CreateArtist(ctx, buildTestArtist(testContract))
		assert.ErrorIs(t, err, domain.ErrDuplicateArtist)
	})

	t.Run("unknown artist returns nil", func(t *testing.T) {
		got, err := store.GetArtist(ctx, common.HexToAddress("0x1"))
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("update artist counters and owner", func(t *testing.T) {
		artist := buildTestArtist(testContract)
		artist.Owner = testBuyer
		artist.EditionCount = 4
		artist.LegacyTokenCount = 12
		require.NoError(t, store.UpdateArtist(ctx, artist))

		got, err := store.GetArtist(ctx, testContract)
		require.NoError(t, err)
		assert.Equal(t, testBuyer, got.Owner)
		assert.Equal(t, uint64(4), got.EditionCount)
		assert.Equal(t, uint64(12), got.LegacyTokenCount)
	})

	t.Run("update unknown artist should fail", func(t *testing.T) {
		err := store.UpdateArtist(ctx, buildTestArtist(common.HexToAddress("0x2")))
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("set versions of every artist", func(t *testing.T) {
		second := buildTestArtist(common.HexToAddress("0x3"))
		second.Version = 3
		require.NoError(t, store.CreateArtist(ctx, second))

		updated, err := store.SetArtistVersions(ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, int64(1), updated)

		artists, err := store.ListArtists(ctx)
		require.NoError(t, err)
		require.Len(t, artists, 2)
		for _, artist := range artists {
			assert.Equal(t, uint8(5), artist.Version)
		}
	})
}

func testEditions(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("create and get edition", func(t *testing.T) {
		edition := buildTestEdition(1)
		edition.SignerAddress = testSigner
		edition.PermissionedQuantity = 2
		edition.BaseURI = "ipfs://QmEdition/"
		require.NoError(t, store.CreateEdition(ctx, edition))

		got, err := store.GetEdition(ctx, testContract, 1)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, edition, got)
	})

	t.Run("duplicate edition id should fail", func(t *testing.T) {
		err := store.CreateEdition(ctx, buildTestEdition(1))
		assert.ErrorIs(t, err, domain.ErrDuplicateEdition)
	})

	t.Run("same edition id on another contract", func(t *testing.T) {
		edition := buildTestEdition(1)
		edition.ContractAddress = common.HexToAddress("0x4")
		require.NoError(t, store.CreateEdition(ctx, edition))
	})

	t.Run("uint256 price survives round trip", func(t *testing.T) {
		edition := buildTestEdition(7)
		edition.Price, _ = new(big.Int).SetString("115792089237316195423570985008687907853269984665640564039457584007913129639935", 10)
		require.NoError(t, store.CreateEdition(ctx, edition))

		got, err := store.GetEdition(ctx, testContract, 7)
		require.NoError(t, err)
		assert.Equal(t, 0, edition.Price.Cmp(got.Price))
	})

	t.Run("unknown edition returns nil", func(t *testing.T) {
		got, err := store.GetEdition(ctx, testContract, 99)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("update edition", func(t *testing.T) {
		edition := buildTestEdition(1)
		edition.NumSold = 3
		edition.StartTime = 1800000000
		edition.SignerAddress = common.Address{}
		require.NoError(t, store.UpdateEdition(ctx, edition))

		got, err := store.GetEdition(ctx, testContract, 1)
		require.NoError(t, err)
		assert.Equal(t, uint32(3), got.NumSold)
		assert.Equal(t, uint32(1800000000), got.StartTime)
		assert.True(t, domain.IsZeroAddress(got.SignerAddress))
		assert.Empty(t, got.BaseURI)
	})

	t.Run("list editions ordered by id", func(t *testing.T) {
		editions, err := store.ListEditions(ctx, testContract)
		require.NoError(t, err)
		require.Len(t, editions, 2)
		assert.Equal(t, uint64(1), editions[0].ID)
		assert.Equal(t, uint64(7), editions[1].ID)
	})
}

func testTickets(t *testing.T, store Store) {
	ctx := context.Background()
	ticketNumber, _ := new(big.Int).SetString("340282366920938463463374607431768211457", 10)

	consumed, err := store.IsTicketConsumed(ctx, testContract, 1, ticketNumber)
	require.NoError(t, err)
	assert.False(t, consumed)

	require.NoError(t, store.InsertTicket(ctx, &domain.Ticket{
		ContractAddress: testContract,
		EditionID:       1,
		TicketNumber:    ticketNumber,
		Buyer:           testBuyer,
	}))

	consumed, err = store.IsTicketConsumed(ctx, testContract, 1, ticketNumber)
	require.NoError(t, err)
	assert.True(t, consumed)

	// tickets are scoped to one edition
	consumed, err = store.IsTicketConsumed(ctx, testContract, 2, ticketNumber)
	require.NoError(t, err)
	assert.False(t, consumed)
}

func testTokens(t *testing.T, store Store) {
	ctx := context.Background()
	packed := new(big.Int).Add(new(big.Int).Lsh(big.NewInt(3), 128), big.NewInt(1))

	for _, token := range []*domain.Token{
		{ContractAddress: testContract, TokenID: packed, EditionID: 3, SerialNumber: 1, Owner: testBuyer},
		{ContractAddress: testContract, TokenID: big.NewInt(17), EditionID: 1, SerialNumber: 17, Owner: testOwner},
	} {
		require.NoError(t, store.CreateToken(ctx, token))
	}

	got, err := store.GetToken(ctx, testContract, packed)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, uint64(3), got.EditionID)
	assert.Equal(t, testBuyer, got.Owner)

	missing, err := store.GetToken(ctx, testContract, big.NewInt(18))
	require.NoError(t, err)
	assert.Nil(t, missing)

	tokens, err := store.GetTokens(ctx, testContract, []*big.Int{packed, big.NewInt(17), big.NewInt(18)})
	require.NoError(t, err)
	assert.Len(t, tokens, 2)
	assert.Equal(t, testOwner, tokens["17"].Owner)

	count, err := store.CountTokens(ctx, testContract)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
}

func testPayments(t *testing.T, store Store) {
	ctx := context.Background()

	for i := int64(1); i <= 2; i++ {
		require.NoError(t, store.CreatePayment(ctx, &domain.Payment{
			ContractAddress: testContract,
			EditionID:       1,
			TokenID:         big.NewInt(i),
			Buyer:           testBuyer,
			Recipient:       testOwner,
			Amount:          big.NewInt(i * 1000),
		}))
	}

	payments, err := store.ListPayments(ctx, testContract, 1)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, 0, big.NewInt(1000).Cmp(payments[0].Amount))
	assert.Equal(t, 0, big.NewInt(2).Cmp(payments[1].TokenID))
	assert.Equal(t, testOwner, payments[1].Recipient)
}

func testRoles(t *testing.T, store Store) {
	ctx := context.Background()

	granted, err := store.GrantRole(ctx, testContract, domain.RoleAdmin, testSigner)
	require.NoError(t, err)
	assert.True(t, granted)

	granted, err = store.GrantRole(ctx, testContract, domain.RoleAdmin, testSigner)
	require.NoError(t, err)
	assert.False(t, granted, "granting twice is a no-op")

	has, err := store.HasRole(ctx, testContract, domain.RoleAdmin, testSigner)
	require.NoError(t, err)
	assert.True(t, has)

	members, err := store.ListRoleMembers(ctx, testContract, domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{testSigner}, members)

	revoked, err := store.RevokeRole(ctx, testContract, domain.RoleAdmin, testSigner)
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = store.RevokeRole(ctx, testContract, domain.RoleAdmin, testSigner)
	require.NoError(t, err)
	assert.False(t, revoked)

	has, err = store.HasRole(ctx, testContract, domain.RoleAdmin, testSigner)
	require.NoError(t, err)
	assert.False(t, has)
}

func testEvents(t *testing.T, store Store) {
	ctx := context.Background()
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	quantity := uint32(5)

	events := []domain.SaleEvent{
		domain.NewSaleEvent(domain.EventTypeEditionCreated, testContract, 1, domain.EventData{}, now),
		domain.NewSaleEvent(domain.EventTypePermissionedQuantitySet, testContract, 1, domain.EventData{PermissionedQuantity: &quantity}, now),
		domain.NewSaleEvent(domain.EventTypeTokenSold, testContract, 2, domain.EventData{TokenID: "680564733841876926926749214863536422913", Buyer: testBuyer.Hex()}, now),
	}
	require.NoError(t, store.AppendEvents(ctx, events))
	require.NoError(t, store.AppendEvents(ctx, nil))

	t.Run("list by edition", func(t *testing.T) {
		editionID := uint64(1)
		got, err := store.ListEvents(ctx, EventFilter{ContractAddress: &testContract, EditionID: &editionID})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, events[0].EventID, got[0].EventID)
		assert.Equal(t, events[1].EventType, got[1].EventType)
		require.NotNil(t, got[1].Data.PermissionedQuantity)
		assert.Equal(t, quantity, *got[1].Data.PermissionedQuantity)
		assert.True(t, now.Equal(got[1].Timestamp))
	})

	t.Run("list by type with paging", func(t *testing.T) {
		got, err := store.ListEvents(ctx, EventFilter{
			EventTypes: []domain.EventType{domain.EventTypeEditionCreated, domain.EventTypeTokenSold},
			Limit:      1,
			Offset:     1,
		})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, domain.EventTypeTokenSold, got[0].EventType)
	})

	t.Run("pending events drain in order", func(t *testing.T) {
		pending, err := store.GetPendingEvents(ctx, 10)
		require.NoError(t, err)
		require.Len(t, pending, 3)
		assert.Equal(t, events[0].EventID, pending[0].Event.EventID)

		require.NoError(t, store.MarkEventFailed(ctx, pending[0].ID, "nats: timeout"))
		require.NoError(t, store.MarkEventPublished(ctx, pending[1].ID, now))

		pending, err = store.GetPendingEvents(ctx, 10)
		require.NoError(t, err)
		require.Len(t, pending, 2)
		assert.Equal(t, 1, pending[0].Attempts)
		assert.Equal(t, events[2].EventID, pending[1].Event.EventID)
	})
}

func testKeyValueStore(t *testing.T, store Store) {
	ctx := context.Background()

	require.NoError(t, store.SetKeyValue(ctx, "test:a", "1"))
	require.NoError(t, store.SetKeyValue(ctx, "test:b", "2"))
	require.NoError(t, store.SetKeyValue(ctx, "test:a", "3"))
	require.NoError(t, store.SetKeyValue(ctx, "other", "x"))

	value, err := store.GetKeyValue(ctx, "test:a")
	require.NoError(t, err)
	assert.Equal(t, "3", value)

	values, err := store.GetAllKeyValuesByPrefix(ctx, "test:")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"test:a": "3", "test:b": "2"}, values)

	require.NoError(t, store.DeleteKeyValue(ctx, "test:a"))
	value, err = store.GetKeyValue(ctx, "test:a")
	require.NoError(t, err)
	assert.Empty(t, value)
}

func testFactoryStore(t *testing.T, store Store) {
	ctx := context.Background()
	factory := NewFactoryStore(store)

	owner, err := factory.GetFactoryOwner(ctx)
	require.NoError(t, err)
	assert.True(t, domain.IsZeroAddress(owner))

	require.NoError(t, factory.SetFactoryOwner(ctx, testOwner))
	owner, err = factory.GetFactoryOwner(ctx)
	require.NoError(t, err)
	assert.Equal(t, testOwner, owner)

	version, err := factory.GetBeaconVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), version)

	require.NoError(t, factory.SetBeaconVersion(ctx, 4))
	version, err = factory.GetBeaconVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint8(4), version)

	require.NoError(t, factory.SetFactoryAdmin(ctx, testSigner, true))
	isAdmin, err := factory.IsFactoryAdmin(ctx, testSigner)
	require.NoError(t, err)
	assert.True(t, isAdmin)

	admins, err := factory.ListFactoryAdmins(ctx)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{testSigner}, admins)

	require.NoError(t, factory.SetFactoryAdmin(ctx, testSigner, false))
	isAdmin, err = factory.IsFactoryAdmin(ctx, testSigner)
	require.NoError(t, err)
	assert.False(t, isAdmin)
}

func testWithTx(t *testing.T, store Store) {
	ctx := context.Background()
	require.NoError(t, store.CreateArtist(ctx, buildTestArtist(testContract)))

	t.Run("error rolls back every write", func(t *testing.T) {
		errAbort := errors.New("abort")
		err := store.WithTx(ctx, func(tx Store) error {
			if err := tx.CreateEdition(ctx, buildTestEdition(1)); err != nil {
				return err
			}
			if err := tx.CreateToken(ctx, &domain.Token{
				ContractAddress: testContract,
				TokenID:         big.NewInt(1),
				EditionID:       1,
				SerialNumber:    1,
				Owner:           testBuyer,
			}); err != nil {
				return err
			}
			return errAbort
		})
		assert.ErrorIs(t, err, errAbort)

		edition, err := store.GetEdition(ctx, testContract, 1)
		require.NoError(t, err)
		assert.Nil(t, edition)

		count, err := store.CountTokens(ctx, testContract)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("success commits", func(t *testing.T) {
		err := store.WithTx(ctx, func(tx Store) error {
			return tx.CreateEdition(ctx, buildTestEdition(1))
		})
		require.NoError(t, err)

		edition, err := store.GetEdition(ctx, testContract, 1)
		require.NoError(t, err)
		assert.NotNil(t, edition)
	})
}
