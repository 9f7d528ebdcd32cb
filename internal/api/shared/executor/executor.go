package executor

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/feral-file/ff-editions/internal/api/shared/dto"
	apierrors "github.com/feral-file/ff-editions/internal/api/shared/errors"
	"github.com/feral-file/ff-editions/internal/artist"
	"github.com/feral-file/ff-editions/internal/domain"
	"github.com/feral-file/ff-editions/internal/edition"
	"github.com/feral-file/ff-editions/internal/factory"
	"github.com/feral-file/ff-editions/internal/layout"
	"github.com/feral-file/ff-editions/internal/sale"
	"github.com/feral-file/ff-editions/internal/store"
)

const (
	DefaultEventsLimit = 20
	MaxEventsLimit     = 100
)

// EditionField names a mutable edition parameter
type EditionField string

const (
	EditionFieldSigner               EditionField = "signer_address"
	EditionFieldPermissionedQuantity EditionField = "permissioned_quantity"
	EditionFieldStartTime            EditionField = "start_time"
	EditionFieldEndTime              EditionField = "end_time"
	EditionFieldBaseURI              EditionField = "base_uri"
)

// EditionUpdate carries the new value of one edition parameter.
// Only the field matching Field is read.
type EditionUpdate struct {
	Field                EditionField
	Signer               common.Address
	PermissionedQuantity uint32
	Time                 uint32
	BaseURI              string
}

// Executor is the interface for the API executor
//
//go:generate mockgen -source=executor.go -destination=../../../mocks/mock_api_executor.go -package=mocks -mock_names=Executor=MockAPIExecutor
type Executor interface {
	// GetFactory returns the factory owner, admin and beacon version
	GetFactory(ctx context.Context) (*dto.FactoryResponse, error)
	// CreateArtist deploys an instance owned by caller
	CreateArtist(ctx context.Context, caller common.Address, req dto.CreateArtistRequest) (*dto.ArtistResponse, error)
	SetFactoryAdmin(ctx context.Context, caller, admin common.Address) (*dto.FactoryResponse, error)
	TransferFactoryOwnership(ctx context.Context, caller, owner common.Address) (*dto.FactoryResponse, error)
	// UpgradeBeacon moves every instance to the given implementation version
	UpgradeBeacon(ctx context.Context, caller common.Address, version uint8) (*dto.UpgradeResponse, error)

	ListArtists(ctx context.Context) (*dto.ArtistListResponse, error)
	GetArtist(ctx context.Context, contract common.Address) (*dto.ArtistResponse, error)
	TransferOwnership(ctx context.Context, contract, caller, owner common.Address) (*dto.ArtistResponse, error)
	SetOwnerOverride(ctx context.Context, contract, caller, owner common.Address) (*dto.ArtistResponse, error)
	GrantRole(ctx context.Context, contract, caller common.Address, role domain.Role, account common.Address) (*dto.RoleMembersResponse, error)
	RevokeRole(ctx context.Context, contract, caller common.Address, role domain.Role, account common.Address) (*dto.RoleMembersResponse, error)
	ListRoleMembers(ctx context.Context, contract common.Address, role domain.Role) (*dto.RoleMembersResponse, error)

	ListEditions(ctx context.Context, contract common.Address) (*dto.EditionListResponse, error)
	GetEdition(ctx context.Context, contract common.Address, editionID uint64) (*dto.EditionResponse, error)
	CreateEdition(ctx context.Context, contract, caller common.Address, req dto.CreateEditionRequest) (*dto.EditionResponse, error)
	UpdateEdition(ctx context.Context, contract, caller common.Address, editionID uint64, update EditionUpdate) (*dto.EditionResponse, error)

	// Purchase buys one token of the edition for caller
	Purchase(ctx context.Context, contract, caller common.Address, editionID uint64, req dto.PurchaseRequest) (*dto.PurchaseResponse, error)
	CheckTickets(ctx context.Context, contract common.Address, editionID uint64, req dto.CheckTicketsRequest) (*dto.TicketStatusResponse, error)

	GetToken(ctx context.Context, contract common.Address, tokenID *big.Int) (*dto.TokenResponse, error)
	GetOwners(ctx context.Context, contract common.Address, tokenIDs []*big.Int) (*dto.OwnersResponse, error)
	GetRoyalty(ctx context.Context, contract common.Address, tokenID, salePrice *big.Int) (*dto.RoyaltyResponse, error)
	GetSupply(ctx context.Context, contract common.Address) (*dto.SupplyResponse, error)
	ListEvents(ctx context.Context, contract common.Address, editionID *uint64, eventTypes []domain.EventType, limit *int, offset *uint64) (*dto.EventListResponse, error)
}

type executor struct {
	artists *artist.Service
	factory *factory.Factory
}

func NewExecutor(artists *artist.Service, f *factory.Factory) Executor {
	return &executor{artists: artists, factory: f}
}

func (e *executor) GetFactory(ctx context.Context) (*dto.FactoryResponse, error) {
	owner, err := e.factory.Owner(ctx)
	if err != nil {
		return nil, apierrors.FromDomain(err, "Failed to get factory owner")
	}
	admin, err := e.factory.Admin(ctx)
	if err != nil {
		return nil, apierrors.FromDomain(err, "Failed to get factory admin")
	}
	version, err := e.factory.BeaconVersion(ctx)
	if err != nil {
		return nil, apierrors.FromDomain(err, "Failed to get beacon version")
	}

	return &dto.FactoryResponse{
		Address:       e.factory.Address().Hex(),
		Owner:         owner.Hex(),
		Admin:         admin.Hex(),
		BeaconVersion: uint8(version),
	}, nil
}

func (e *executor) CreateArtist(ctx context.Context, caller common.Address, req dto.CreateArtistRequest) (*dto.ArtistResponse, error) {
	sig, err := dto.ParseSignature("signature", req.Signature)
	if err != nil {
		return nil, apierrors.NewValidationError(err.Error())
	}

	a, err := e.factory.CreateArtist(ctx, caller, sig, req.Name, req.Symbol, req.BaseURI)
	if err != nil {
		return nil, apierrors.FromDomain(err, "Failed to create artist")
	}

	resp := dto.MapArtistToDTO(a)
	return &resp, nil
}

func (e *executor) SetFactoryAdmin(ctx context.Context, caller, admin common.Address) (*dto.FactoryResponse, error) {
	if err := e.factory.SetAdmin(ctx, caller, admin); err != nil {
		return nil, apierrors.FromDomain(err, "Failed to set factory admin")
	}
	return e.GetFactory(ctx)
}

func (e *executor) TransferFactoryOwnership(ctx context.Context, caller, owner common.Address) (*dto.FactoryResponse, error) {
	if err := e.factory.TransferOwnership(ctx, caller, owner); err != nil {
		return nil, apierrors.FromDomain(err, "Failed to transfer factory ownership")
	}
	return e.GetFactory(ctx)
}

func (e *executor) UpgradeBeacon(ctx context.Context, caller common.Address, version uint8) (*dto.UpgradeResponse, error) {
	upgraded, err := e.factory.UpgradeBeacon(ctx, caller, layout.Version(version))
	if err != nil {
		return nil, apierrors.FromDomain(err, "Failed to upgrade beacon")
	}
	return &dto.UpgradeResponse{Version: version, Upgraded: upgraded}, nil
}

func (e *executor) ListArtists(ctx context.Context) (*dto.ArtistListResponse, error) {
	artists, err := e.artists.List(ctx)
	if err != nil {
		return nil, apierrors.FromDomain(err, "Failed to list artists")
	}

	resp := &dto.ArtistListResponse{Artists: make([]dto.ArtistResponse, len(artists))}
	for i, a := range artists {
		resp.Artists[i] = dto.MapArtistToDTO(a)
	}
	return resp, nil
}

func (e *executor) GetArtist(ctx context.Context, contract common.Address) (*dto.ArtistResponse, error) {
	a, err := e.artists.Get(ctx, contract)
	if err != nil {
		return nil, apierrors.FromDomain(err, "Failed to get artist")
	}
	resp := dto.MapArtistToDTO(a)
	return &resp, nil
}

func (e *executor) TransferOwnership(ctx context.Context, contract, caller, owner common.Address) (*dto.ArtistResponse, error) {
	a, err := e.artists.TransferOwnership(ctx, contract, caller, owner)
	if err != nil {
		return nil, apierrors.FromDomain(err, "Failed to transfer ownership")
	}
	resp := dto.MapArtistToDTO(a)
	return &resp, nil
}

func (e *executor) SetOwnerOverride(ctx context.Context, contract, caller, owner common.Address) (*dto.ArtistResponse, error) {
	a, err := e.artists.SetOwnerOverride(ctx, contract, caller, owner)
	if err != nil {
		return nil, apierrors.FromDomain(err, "Failed to override owner")
	}
	resp := dto.MapArtistToDTO(a)
	return &resp, nil
}

func (e *executor) GrantRole(ctx context.Context, contract, caller common.Address, role domain.Role, account common.Address) (*dto.RoleMembersResponse, error) {
	if err := e.artists.GrantRole(ctx, contract, caller, role, account); err != nil {
		return nil, apierrors.FromDomain(err, "Failed to grant role")
	}
	return e.ListRoleMembers(ctx, contract, role)
}

func (e *executor) RevokeRole(ctx context.Context, contract, caller common.Address, role domain.Role, account common.Address) (*dto.RoleMembersResponse, error) {
	if err := e.artists.RevokeRole(ctx, contract, caller, role, account); err != nil {
		return nil, apierrors.FromDomain(err, "Failed to revoke role")
	}
	return e.ListRoleMembers(ctx, contract, role)
}

func (e *executor) ListRoleMembers(ctx context.Context, contract common.Address, role domain.Role) (*dto.RoleMembersResponse, error) {
	members, err := e.artists.ListRoleMembers(ctx, contract, role)
	if err != nil {
		return nil, apierrors.FromDomain(err, "Failed to list role members")
	}

	resp := &dto.RoleMembersResponse{Role: string(role), Members: make([]string, len(members))}
	for i, m := range members {
		resp.Members[i] = m.Hex()
	}
	return resp, nil
}

func (e *executor) ListEditions(ctx context.Context, contract common.Address) (*dto.EditionListResponse, error) {
	editions, err := e.artists.ListEditions(ctx, contract)
	if err != nil {
		return nil, apierrors.FromDomain(err, "Failed to list editions")
	}
	count, err := e.artists.EditionCount(ctx, contract)
	if err != nil {
		return nil, apierrors.FromDomain(err, "Failed to count editions")
	}

	resp := &dto.EditionListResponse{Editions: make([]dto.EditionResponse, len(editions)), Total: count}
	for i, ed := range editions {
		resp.Editions[i] = dto.MapEditionToDTO(ed, "")
	}
	return resp, nil
}

func (e *executor) GetEdition(ctx context.Context, contract common.Address, editionID uint64) (*dto.EditionResponse, error) {
	ed, err := e.artists.GetEdition(ctx, contract, editionID)
	if err != nil {
		return nil, apierrors.FromDomain(err, "Failed to get edition")
	}
	state, err := e.artists.State(ctx, contract, editionID)
	if err != nil {
		return nil, apierrors.FromDomain(err, "Failed to get sale state")
	}

	resp := dto.MapEditionToDTO(ed, state)
	return &resp, nil
}

func (e *executor) CreateEdition(ctx context.Context, contract, caller common.Address, req dto.CreateEditionRequest) (*dto.EditionResponse, error) {
	cfg, alloc, err := editionConfigFromRequest(req)
	if err != nil {
		return nil, err
	}

	ed, err := e.artists.CreateEdition(ctx, contract, caller, cfg, alloc)
	if err != nil {
		return nil, apierrors.FromDomain(err, "Failed to create edition")
	}

	resp := dto.MapEditionToDTO(ed, "")
	return &resp, nil
}

func editionConfigFromRequest(req dto.CreateEditionRequest) (domain.EditionConfig, edition.Allocation, error) {
	var details []string

	recipient, err := dto.ParseAddress("funding_recipient", req.FundingRecipient)
	if err != nil {
		details = append(details, err.Error())
	}
	price, err := dto.ParseUint256("price", req.Price)
	if err != nil {
		details = append(details, err.Error())
	}
	signer, err := dto.ParseOptionalAddress("signer_address", req.SignerAddress)
	if err != nil {
		details = append(details, err.Error())
	}

	alloc := edition.AllocateNext()
	if req.EditionID != nil {
		id, err := dto.ParseUint64("edition_id", *req.EditionID)
		if err != nil {
			details = append(details, err.Error())
		}
		alloc = edition.AllocateExplicit(id)
	}

	if len(details) > 0 {
		return domain.EditionConfig{}, alloc, apierrors.NewValidationError(details...)
	}

	return domain.EditionConfig{
		FundingRecipient:     recipient,
		Price:                price,
		Quantity:             req.Quantity,
		RoyaltyBPS:           req.RoyaltyBPS,
		StartTime:            req.StartTime,
		EndTime:              req.EndTime,
		PermissionedQuantity: req.PermissionedQuantity,
		SignerAddress:        signer,
		BaseURI:              req.BaseURI,
	}, alloc, nil
}

func (e *executor) UpdateEdition(ctx context.Context, contract, caller common.Address, editionID uint64, update EditionUpdate) (*dto.EditionResponse, error) {
	var (
		ed  *domain.Edition
		err error
	)
	switch update.Field {
	case EditionFieldSigner:
		ed, err = e.artists.SetSignerAddress(ctx, contract, caller, editionID, update.Signer)
	case EditionFieldPermissionedQuantity:
		ed, err = e.artists.SetPermissionedQuantity(ctx, contract, caller, editionID, update.PermissionedQuantity)
	case EditionFieldStartTime:
		ed, err = e.artists.SetStartTime(ctx, contract, caller, editionID, update.Time)
	case EditionFieldEndTime:
		ed, err = e.artists.SetEndTime(ctx, contract, caller, editionID, update.Time)
	case EditionFieldBaseURI:
		ed, err = e.artists.SetBaseURI(ctx, contract, caller, editionID, update.BaseURI)
	default:
		return nil, apierrors.NewBadRequestError("Unknown edition field", string(update.Field))
	}
	if err != nil {
		return nil, apierrors.FromDomain(err, "Failed to update edition")
	}

	resp := dto.MapEditionToDTO(ed, "")
	return &resp, nil
}

func (e *executor) Purchase(ctx context.Context, contract, caller common.Address, editionID uint64, req dto.PurchaseRequest) (*dto.PurchaseResponse, error) {
	var details []string
	payment, err := dto.ParseUint256("payment", req.Payment)
	if err != nil {
		details = append(details, err.Error())
	}
	sig, err := dto.ParseSignature("signature", req.Signature)
	if err != nil {
		details = append(details, err.Error())
	}
	var ticket *big.Int
	if req.TicketNumber != "" {
		ticket, err = dto.ParseUint256("ticket_number", req.TicketNumber)
		if err != nil {
			details = append(details, err.Error())
		}
	}
	if len(details) > 0 {
		return nil, apierrors.NewValidationError(details...)
	}

	receipt, err := e.artists.Buy(ctx, contract, sale.Purchase{
		EditionID:    editionID,
		Buyer:        caller,
		Payment:      payment,
		Signature:    sig,
		TicketNumber: ticket,
	})
	if err != nil {
		return nil, apierrors.FromDomain(err, "Failed to purchase edition")
	}

	resp := dto.MapReceiptToDTO(receipt)
	return &resp, nil
}

func (e *executor) CheckTickets(ctx context.Context, contract common.Address, editionID uint64, req dto.CheckTicketsRequest) (*dto.TicketStatusResponse, error) {
	tickets := make([]*big.Int, len(req.TicketNumbers))
	for i, raw := range req.TicketNumbers {
		n, err := dto.ParseUint256("ticket_numbers", raw)
		if err != nil {
			return nil, apierrors.NewValidationError(err.Error())
		}
		tickets[i] = n
	}

	used, err := e.artists.CheckTicketNumbers(ctx, contract, editionID, tickets)
	if err != nil {
		return nil, apierrors.FromDomain(err, "Failed to check tickets")
	}
	return &dto.TicketStatusResponse{Used: used}, nil
}

func (e *executor) GetToken(ctx context.Context, contract common.Address, tokenID *big.Int) (*dto.TokenResponse, error) {
	owner, err := e.artists.OwnerOf(ctx, contract, tokenID)
	if err != nil {
		return nil, apierrors.FromDomain(err, "Failed to get token owner")
	}
	uri, err := e.artists.TokenURI(ctx, contract, tokenID)
	if err != nil {
		return nil, apierrors.FromDomain(err, "Failed to get token URI")
	}

	return &dto.TokenResponse{
		TokenID:  tokenID.String(),
		Owner:    owner.Hex(),
		TokenURI: uri,
	}, nil
}

func (e *executor) GetOwners(ctx context.Context, contract common.Address, tokenIDs []*big.Int) (*dto.OwnersResponse, error) {
	owners, err := e.artists.OwnersOfTokenIDs(ctx, contract, tokenIDs)
	if err != nil {
		return nil, apierrors.FromDomain(err, "Failed to get token owners")
	}

	resp := &dto.OwnersResponse{Owners: make([]string, len(owners))}
	for i, o := range owners {
		resp.Owners[i] = o.Hex()
	}
	return resp, nil
}

func (e *executor) GetRoyalty(ctx context.Context, contract common.Address, tokenID, salePrice *big.Int) (*dto.RoyaltyResponse, error) {
	receiver, amount, err := e.artists.RoyaltyInfo(ctx, contract, tokenID, salePrice)
	if err != nil {
		return nil, apierrors.FromDomain(err, "Failed to get royalty info")
	}
	return &dto.RoyaltyResponse{Receiver: receiver.Hex(), Amount: amount.String()}, nil
}

func (e *executor) GetSupply(ctx context.Context, contract common.Address) (*dto.SupplyResponse, error) {
	total, err := e.artists.TotalSupply(ctx, contract)
	if err != nil {
		return nil, apierrors.FromDomain(err, "Failed to get total supply")
	}
	count, err := e.artists.EditionCount(ctx, contract)
	if err != nil {
		return nil, apierrors.FromDomain(err, "Failed to count editions")
	}
	return &dto.SupplyResponse{TotalSupply: total, EditionCount: count}, nil
}

func (e *executor) ListEvents(ctx context.Context, contract common.Address, editionID *uint64, eventTypes []domain.EventType, limit *int, offset *uint64) (*dto.EventListResponse, error) {
	filter := store.EventFilter{
		ContractAddress: &contract,
		EditionID:       editionID,
		EventTypes:      eventTypes,
		Limit:           DefaultEventsLimit,
	}
	if limit != nil {
		filter.Limit = min(*limit, MaxEventsLimit)
	}
	if offset != nil {
		filter.Offset = *offset
	}

	events, err := e.artists.ListEvents(ctx, contract, filter)
	if err != nil {
		return nil, apierrors.FromDomain(err, "Failed to list events")
	}

	resp := &dto.EventListResponse{
		Events: make([]dto.EventResponse, len(events)),
		Offset: filter.Offset + uint64(len(events)),
	}
	for i, ev := range events {
		resp.Events[i] = dto.MapEventToDTO(ev)
	}
	return resp, nil
}
