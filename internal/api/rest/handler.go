package rest

import (
	"context"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/feral-file/ff-editions/internal/api/middleware"
	"github.com/feral-file/ff-editions/internal/api/shared/dto"
	"github.com/feral-file/ff-editions/internal/api/shared/executor"
	"github.com/feral-file/ff-editions/internal/domain"
)

// Handler defines the interface for REST API handlers
//
//go:generate mockgen -source=handler.go -destination=../../mocks/api_handler.go -package=mocks -mock_names=Handler=MockAPIHandler
type Handler interface {
	// GetFactory returns the factory owner, admin and beacon version
	// GET /api/v1/factory
	GetFactory(c *gin.Context)

	// SetFactoryAdmin replaces the platform admin (factory owner only)
	// PUT /api/v1/factory/admin
	SetFactoryAdmin(c *gin.Context)

	// TransferFactoryOwnership hands the factory to a new owner
	// PUT /api/v1/factory/owner
	TransferFactoryOwnership(c *gin.Context)

	// UpgradeBeacon moves every artist instance to a new implementation version
	// POST /api/v1/factory/upgrade
	UpgradeBeacon(c *gin.Context)

	// CreateArtist deploys an artist instance owned by the caller
	// POST /api/v1/artists
	CreateArtist(c *gin.Context)

	// ListArtists lists every artist instance
	// GET /api/v1/artists
	ListArtists(c *gin.Context)

	// GetArtist retrieves one artist instance
	// GET /api/v1/artists/:contract
	GetArtist(c *gin.Context)

	// TransferOwnership hands an instance to a new owner
	// PUT /api/v1/artists/:contract/owner
	TransferOwnership(c *gin.Context)

	// SetOwnerOverride lets the recovery address replace the owner
	// PUT /api/v1/artists/:contract/owner-override
	SetOwnerOverride(c *gin.Context)

	// ListRoleMembers lists the holders of a role
	// GET /api/v1/artists/:contract/roles/:role
	ListRoleMembers(c *gin.Context)

	// GrantRole grants a role to an account
	// PUT /api/v1/artists/:contract/roles/:role/:account
	GrantRole(c *gin.Context)

	// RevokeRole revokes a role from an account
	// DELETE /api/v1/artists/:contract/roles/:role/:account
	RevokeRole(c *gin.Context)

	// ListEditions lists the editions of an instance
	// GET /api/v1/artists/:contract/editions
	ListEditions(c *gin.Context)

	// CreateEdition configures a new edition
	// POST /api/v1/artists/:contract/editions
	CreateEdition(c *gin.Context)

	// GetEdition retrieves an edition and its current sale state
	// GET /api/v1/artists/:contract/editions/:edition_id
	GetEdition(c *gin.Context)

	// SetSignerAddress, SetPermissionedQuantity, SetStartTime, SetEndTime and SetBaseURI
	// update one edition parameter
	// PUT /api/v1/artists/:contract/editions/:edition_id/{signer,permissioned-quantity,start-time,end-time,base-uri}
	SetSignerAddress(c *gin.Context)
	SetPermissionedQuantity(c *gin.Context)
	SetStartTime(c *gin.Context)
	SetEndTime(c *gin.Context)
	SetBaseURI(c *gin.Context)

	// Purchase buys one token of an edition
	// POST /api/v1/artists/:contract/editions/:edition_id/purchases
	Purchase(c *gin.Context)

	// CheckTickets reports which presale tickets were consumed
	// POST /api/v1/artists/:contract/editions/:edition_id/tickets/check
	CheckTickets(c *gin.Context)

	// GetOwners returns the owners of the given token ids
	// GET /api/v1/artists/:contract/tokens?ids=<id1>,<id2>
	GetOwners(c *gin.Context)

	// GetToken retrieves the owner and metadata URI of a token
	// GET /api/v1/artists/:contract/tokens/:token_id
	GetToken(c *gin.Context)

	// GetRoyalty returns the royalty owed on a sale of the token
	// GET /api/v1/artists/:contract/tokens/:token_id/royalty?sale_price=<wei>
	GetRoyalty(c *gin.Context)

	// GetSupply returns the mint counters of an instance
	// GET /api/v1/artists/:contract/supply
	GetSupply(c *gin.Context)

	// ListEvents lists the recorded events of an instance
	// GET /api/v1/artists/:contract/events?edition_id=<id>&event_type=<type>&limit=<limit>&offset=<offset>
	ListEvents(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	executor executor.Executor
}

// NewHandler creates a new REST API handler using the shared executor
func NewHandler(exec executor.Executor) Handler {
	return &handler{
		executor: exec,
	}
}

// caller resolves the authenticated wallet, responding on failure
func (h *handler) caller(c *gin.Context) (common.Address, bool) {
	addr, err := middleware.CallerAddress(c)
	if err != nil {
		respondUnauthorized(c, "Caller address is required", err.Error())
		return common.Address{}, false
	}
	return addr, true
}

func (h *handler) contract(c *gin.Context) (common.Address, bool) {
	addr, err := parseContractParam(c)
	if err != nil {
		respondBadRequest(c, "Invalid contract address", err.Error())
		return common.Address{}, false
	}
	return addr, true
}

func (h *handler) editionPath(c *gin.Context) (common.Address, uint64, bool) {
	contract, ok := h.contract(c)
	if !ok {
		return common.Address{}, 0, false
	}
	editionID, err := parseEditionIDParam(c)
	if err != nil {
		respondBadRequest(c, "Invalid edition ID", err.Error())
		return common.Address{}, 0, false
	}
	return contract, editionID, true
}

// bindJSON decodes the request body, responding on failure
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return false
	}
	return true
}

// bindAddress decodes an AddressRequest body
func bindAddress(c *gin.Context) (common.Address, bool) {
	var req dto.AddressRequest
	if !bindJSON(c, &req) {
		return common.Address{}, false
	}
	addr, err := dto.ParseAddress("address", req.Address)
	if err != nil {
		respondValidationError(c, err.Error())
		return common.Address{}, false
	}
	return addr, true
}

func (h *handler) GetFactory(c *gin.Context) {
	resp, err := h.executor.GetFactory(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to get factory")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) SetFactoryAdmin(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	admin, ok := bindAddress(c)
	if !ok {
		return
	}

	resp, err := h.executor.SetFactoryAdmin(c.Request.Context(), caller, admin)
	if err != nil {
		respondError(c, err, "Failed to set factory admin")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) TransferFactoryOwnership(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	owner, ok := bindAddress(c)
	if !ok {
		return
	}

	resp, err := h.executor.TransferFactoryOwnership(c.Request.Context(), caller, owner)
	if err != nil {
		respondError(c, err, "Failed to transfer factory ownership")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) UpgradeBeacon(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var req dto.UpgradeRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.executor.UpgradeBeacon(c.Request.Context(), caller, req.Version)
	if err != nil {
		respondError(c, err, "Failed to upgrade beacon")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) CreateArtist(c *gin.Context) {
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var req dto.CreateArtistRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.executor.CreateArtist(c.Request.Context(), caller, req)
	if err != nil {
		respondError(c, err, "Failed to create artist")
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *handler) ListArtists(c *gin.Context) {
	resp, err := h.executor.ListArtists(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to list artists")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) GetArtist(c *gin.Context) {
	contract, ok := h.contract(c)
	if !ok {
		return
	}

	resp, err := h.executor.GetArtist(c.Request.Context(), contract)
	if err != nil {
		respondError(c, err, "Failed to get artist")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) TransferOwnership(c *gin.Context) {
	h.changeOwner(c, h.executor.TransferOwnership, "Failed to transfer ownership")
}

func (h *handler) SetOwnerOverride(c *gin.Context) {
	h.changeOwner(c, h.executor.SetOwnerOverride, "Failed to override owner")
}

type ownerChange func(ctx context.Context, contract, caller, owner common.Address) (*dto.ArtistResponse, error)

func (h *handler) changeOwner(c *gin.Context, change ownerChange, message string) {
	contract, ok := h.contract(c)
	if !ok {
		return
	}
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	owner, ok := bindAddress(c)
	if !ok {
		return
	}

	resp, err := change(c.Request.Context(), contract, caller, owner)
	if err != nil {
		respondError(c, err, message)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) rolePath(c *gin.Context) (common.Address, domain.Role, bool) {
	contract, ok := h.contract(c)
	if !ok {
		return common.Address{}, "", false
	}
	return contract, domain.Role(c.Param("role")), true
}

func (h *handler) ListRoleMembers(c *gin.Context) {
	contract, role, ok := h.rolePath(c)
	if !ok {
		return
	}

	resp, err := h.executor.ListRoleMembers(c.Request.Context(), contract, role)
	if err != nil {
		respondError(c, err, "Failed to list role members")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) GrantRole(c *gin.Context) {
	h.changeRole(c, h.executor.GrantRole, "Failed to grant role")
}

func (h *handler) RevokeRole(c *gin.Context) {
	h.changeRole(c, h.executor.RevokeRole, "Failed to revoke role")
}

type roleChange func(ctx context.Context, contract, caller common.Address, role domain.Role, account common.Address) (*dto.RoleMembersResponse, error)

func (h *handler) changeRole(c *gin.Context, change roleChange, message string) {
	contract, role, ok := h.rolePath(c)
	if !ok {
		return
	}
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	account, err := dto.ParseAddress("account", c.Param("account"))
	if err != nil {
		respondBadRequest(c, "Invalid account", err.Error())
		return
	}

	resp, err := change(c.Request.Context(), contract, caller, role, account)
	if err != nil {
		respondError(c, err, message)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) ListEditions(c *gin.Context) {
	contract, ok := h.contract(c)
	if !ok {
		return
	}

	resp, err := h.executor.ListEditions(c.Request.Context(), contract)
	if err != nil {
		respondError(c, err, "Failed to list editions")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) CreateEdition(c *gin.Context) {
	contract, ok := h.contract(c)
	if !ok {
		return
	}
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var req dto.CreateEditionRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.executor.CreateEdition(c.Request.Context(), contract, caller, req)
	if err != nil {
		respondError(c, err, "Failed to create edition")
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *handler) GetEdition(c *gin.Context) {
	contract, editionID, ok := h.editionPath(c)
	if !ok {
		return
	}

	resp, err := h.executor.GetEdition(c.Request.Context(), contract, editionID)
	if err != nil {
		respondError(c, err, "Failed to get edition")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// updateEdition applies an edition update built from the request body
func (h *handler) updateEdition(c *gin.Context, build func() (executor.EditionUpdate, bool)) {
	contract, editionID, ok := h.editionPath(c)
	if !ok {
		return
	}
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	update, ok := build()
	if !ok {
		return
	}

	resp, err := h.executor.UpdateEdition(c.Request.Context(), contract, caller, editionID, update)
	if err != nil {
		respondError(c, err, "Failed to update edition")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) SetSignerAddress(c *gin.Context) {
	h.updateEdition(c, func() (executor.EditionUpdate, bool) {
		var req dto.SetSignerRequest
		if !bindJSON(c, &req) {
			return executor.EditionUpdate{}, false
		}
		signer, err := dto.ParseAddress("signer_address", req.SignerAddress)
		if err != nil {
			respondValidationError(c, err.Error())
			return executor.EditionUpdate{}, false
		}
		return executor.EditionUpdate{Field: executor.EditionFieldSigner, Signer: signer}, true
	})
}

func (h *handler) SetPermissionedQuantity(c *gin.Context) {
	h.updateEdition(c, func() (executor.EditionUpdate, bool) {
		var req dto.SetPermissionedQuantityRequest
		if !bindJSON(c, &req) {
			return executor.EditionUpdate{}, false
		}
		return executor.EditionUpdate{
			Field:                executor.EditionFieldPermissionedQuantity,
			PermissionedQuantity: req.PermissionedQuantity,
		}, true
	})
}

func (h *handler) SetStartTime(c *gin.Context) {
	h.updateEdition(c, func() (executor.EditionUpdate, bool) {
		var req dto.SetTimeRequest
		if !bindJSON(c, &req) {
			return executor.EditionUpdate{}, false
		}
		return executor.EditionUpdate{Field: executor.EditionFieldStartTime, Time: req.Time}, true
	})
}

func (h *handler) SetEndTime(c *gin.Context) {
	h.updateEdition(c, func() (executor.EditionUpdate, bool) {
		var req dto.SetTimeRequest
		if !bindJSON(c, &req) {
			return executor.EditionUpdate{}, false
		}
		return executor.EditionUpdate{Field: executor.EditionFieldEndTime, Time: req.Time}, true
	})
}

func (h *handler) SetBaseURI(c *gin.Context) {
	h.updateEdition(c, func() (executor.EditionUpdate, bool) {
		var req dto.SetBaseURIRequest
		if !bindJSON(c, &req) {
			return executor.EditionUpdate{}, false
		}
		return executor.EditionUpdate{Field: executor.EditionFieldBaseURI, BaseURI: req.BaseURI}, true
	})
}

func (h *handler) Purchase(c *gin.Context) {
	contract, editionID, ok := h.editionPath(c)
	if !ok {
		return
	}
	caller, ok := h.caller(c)
	if !ok {
		return
	}
	var req dto.PurchaseRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.executor.Purchase(c.Request.Context(), contract, caller, editionID, req)
	if err != nil {
		respondError(c, err, "Failed to purchase edition")
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *handler) CheckTickets(c *gin.Context) {
	contract, editionID, ok := h.editionPath(c)
	if !ok {
		return
	}
	var req dto.CheckTicketsRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.executor.CheckTickets(c.Request.Context(), contract, editionID, req)
	if err != nil {
		respondError(c, err, "Failed to check tickets")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) GetOwners(c *gin.Context) {
	contract, ok := h.contract(c)
	if !ok {
		return
	}
	tokenIDs, err := ParseOwnersQuery(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	resp, err := h.executor.GetOwners(c.Request.Context(), contract, tokenIDs)
	if err != nil {
		respondError(c, err, "Failed to get token owners")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) GetToken(c *gin.Context) {
	contract, ok := h.contract(c)
	if !ok {
		return
	}
	tokenID, err := parseTokenIDParam(c)
	if err != nil {
		respondBadRequest(c, "Invalid token ID", err.Error())
		return
	}

	resp, err := h.executor.GetToken(c.Request.Context(), contract, tokenID)
	if err != nil {
		respondError(c, err, "Failed to get token")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) GetRoyalty(c *gin.Context) {
	contract, ok := h.contract(c)
	if !ok {
		return
	}
	tokenID, err := parseTokenIDParam(c)
	if err != nil {
		respondBadRequest(c, "Invalid token ID", err.Error())
		return
	}
	salePrice, err := ParseRoyaltyQuery(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	resp, err := h.executor.GetRoyalty(c.Request.Context(), contract, tokenID, salePrice)
	if err != nil {
		respondError(c, err, "Failed to get royalty info")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) GetSupply(c *gin.Context) {
	contract, ok := h.contract(c)
	if !ok {
		return
	}

	resp, err := h.executor.GetSupply(c.Request.Context(), contract)
	if err != nil {
		respondError(c, err, "Failed to get supply")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) ListEvents(c *gin.Context) {
	contract, ok := h.contract(c)
	if !ok {
		return
	}
	queryParams, err := ParseListEventsQuery(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}
	editionID, err := queryParams.EditionFilter()
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	resp, err := h.executor.ListEvents(
		c.Request.Context(),
		contract,
		editionID,
		queryParams.Types(),
		&queryParams.Limit,
		&queryParams.Offset,
	)
	if err != nil {
		respondError(c, err, "Failed to list events")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "ff-editions-api",
	})
}
