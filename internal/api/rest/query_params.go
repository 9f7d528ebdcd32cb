package rest

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/feral-file/ff-editions/internal/api/shared/dto"
	"github.com/feral-file/ff-editions/internal/domain"
)

const MAX_PAGE_SIZE = 100

// MAX_OWNER_QUERY_IDS bounds GET /tokens?ids=
const MAX_OWNER_QUERY_IDS = 500

// ListEventsQueryParams holds query parameters for GET /artists/:contract/events
type ListEventsQueryParams struct {
	EditionID  string   `form:"edition_id"`
	EventTypes []string `form:"event_type"`

	// Pagination
	Limit  int    `form:"limit,default=20"`
	Offset uint64 `form:"offset,default=0"`
}

// ParseListEventsQuery parses query parameters for GET /artists/:contract/events
func ParseListEventsQuery(c *gin.Context) (*ListEventsQueryParams, error) {
	var params ListEventsQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		return nil, err
	}

	// Cap limit
	if params.Limit > MAX_PAGE_SIZE {
		params.Limit = MAX_PAGE_SIZE
	}
	if params.Limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}

	params.EventTypes = splitList(params.EventTypes)
	return &params, nil
}

// EditionFilter returns the parsed edition filter, nil when absent
func (p *ListEventsQueryParams) EditionFilter() (*uint64, error) {
	if p.EditionID == "" {
		return nil, nil
	}
	id, err := dto.ParseUint64("edition_id", p.EditionID)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// Types returns the requested event types
func (p *ListEventsQueryParams) Types() []domain.EventType {
	types := make([]domain.EventType, len(p.EventTypes))
	for i, t := range p.EventTypes {
		types[i] = domain.EventType(t)
	}
	return types
}

// OwnersQueryParams holds query parameters for GET /artists/:contract/tokens
type OwnersQueryParams struct {
	IDs []string `form:"ids" binding:"required"`
}

// ParseOwnersQuery parses the token ids of GET /artists/:contract/tokens.
// Ids may repeat the parameter or be comma separated.
func ParseOwnersQuery(c *gin.Context) ([]*big.Int, error) {
	var params OwnersQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		return nil, err
	}

	raw := splitList(params.IDs)
	if len(raw) == 0 {
		return nil, fmt.Errorf("ids must not be empty")
	}
	if len(raw) > MAX_OWNER_QUERY_IDS {
		return nil, fmt.Errorf("at most %d ids may be queried at once", MAX_OWNER_QUERY_IDS)
	}

	ids := make([]*big.Int, len(raw))
	for i, s := range raw {
		id, err := dto.ParseUint256("ids", s)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

// RoyaltyQueryParams holds query parameters for GET /artists/:contract/tokens/:token_id/royalty
type RoyaltyQueryParams struct {
	SalePrice string `form:"sale_price" binding:"required"`
}

// ParseRoyaltyQuery parses the sale price of a royalty query
func ParseRoyaltyQuery(c *gin.Context) (*big.Int, error) {
	var params RoyaltyQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		return nil, err
	}
	return dto.ParseUint256("sale_price", params.SalePrice)
}

func parseContractParam(c *gin.Context) (common.Address, error) {
	return dto.ParseAddress("contract", c.Param("contract"))
}

func parseEditionIDParam(c *gin.Context) (uint64, error) {
	return dto.ParseUint64("edition_id", c.Param("edition_id"))
}

func parseTokenIDParam(c *gin.Context) (*big.Int, error) {
	return dto.ParseUint256("token_id", c.Param("token_id"))
}

// splitList flattens repeated and comma separated values
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
