package dto

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ParseAddress parses a hex encoded account address
func ParseAddress(field, value string) (common.Address, error) {
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("%s must be a hex address", field)
	}
	return common.HexToAddress(value), nil
}

// ParseOptionalAddress parses an address that may be empty
func ParseOptionalAddress(field, value string) (common.Address, error) {
	if value == "" {
		return common.Address{}, nil
	}
	return ParseAddress(field, value)
}

// ParseUint256 parses a non-negative decimal integer such as a token id or wei amount
func ParseUint256(field, value string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(value), 10)
	if !ok || v.Sign() < 0 || v.BitLen() > 256 {
		return nil, fmt.Errorf("%s must be a decimal integer between 0 and 2^256-1", field)
	}
	return v, nil
}

// ParseUint64 parses a decimal uint64 such as an edition id
func ParseUint64(field, value string) (uint64, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a decimal integer between 0 and 2^64-1", field)
	}
	return v, nil
}

// ParseSignature decodes a 0x prefixed signature; empty yields nil
func ParseSignature(field, value string) ([]byte, error) {
	if value == "" {
		return nil, nil
	}
	sig, err := hexutil.Decode(value)
	if err != nil {
		return nil, fmt.Errorf("%s must be 0x prefixed hex: %v", field, err)
	}
	return sig, nil
}
