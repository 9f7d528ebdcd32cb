package identity

import (
	"fmt"
	"math/big"

	"github.com/feral-file/ff-editions/internal/domain"
)

// EditionShift is the bit offset of the edition id inside a packed token id
const EditionShift = 128

var (
	// componentLimit is 2^128, the exclusive upper bound of each component
	componentLimit = new(big.Int).Lsh(big.NewInt(1), EditionShift)
	// serialMask is 2^128-1
	serialMask = new(big.Int).Sub(componentLimit, big.NewInt(1))
	// tokenIDLimit is 2^256, the exclusive upper bound of a token id
	tokenIDLimit = new(big.Int).Lsh(big.NewInt(1), 2*EditionShift)
)

// TokenID packs an edition id and a 1-based serial number into one token id:
// editionID * 2^128 + serialNumber
func TokenID(editionID, serialNumber *big.Int) (*big.Int, error) {
	if err := checkComponent("edition id", editionID); err != nil {
		return nil, err
	}
	if err := checkComponent("serial number", serialNumber); err != nil {
		return nil, err
	}

	tokenID := new(big.Int).Lsh(editionID, EditionShift)
	return tokenID.Or(tokenID, serialNumber), nil
}

// Split recovers the edition id and serial number from a packed token id
func Split(tokenID *big.Int) (editionID *big.Int, serialNumber *big.Int, err error) {
	if tokenID == nil || tokenID.Sign() < 0 || tokenID.Cmp(tokenIDLimit) >= 0 {
		return nil, nil, fmt.Errorf("%w: token id out of range", domain.ErrInvalidIdentity)
	}

	editionID = new(big.Int).Rsh(tokenID, EditionShift)
	serialNumber = new(big.Int).And(tokenID, serialMask)
	return editionID, serialNumber, nil
}

// Encode is TokenID for the native edition and serial widths
func Encode(editionID uint64, serialNumber uint32) *big.Int {
	// both components are far below 2^128
	tokenID, _ := TokenID(new(big.Int).SetUint64(editionID), big.NewInt(int64(serialNumber)))
	return tokenID
}

// IsPacked reports whether a token id carries an edition in its upper bits.
// Tokens minted before packed ids were introduced are plain sequential numbers.
func IsPacked(tokenID *big.Int) bool {
	return tokenID != nil && tokenID.Cmp(componentLimit) >= 0
}

// Parse parses a decimal or 0x-prefixed hex token id
func Parse(s string) (*big.Int, error) {
	tokenID, ok := new(big.Int).SetString(s, 0)
	if !ok || tokenID.Sign() < 0 || tokenID.Cmp(tokenIDLimit) >= 0 {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidIdentity, s)
	}
	return tokenID, nil
}

func checkComponent(name string, v *big.Int) error {
	if v == nil || v.Sign() < 0 || v.Cmp(componentLimit) >= 0 {
		return fmt.Errorf("%w: %s must fit in %d bits", domain.ErrInvalidIdentity, name, EditionShift)
	}
	return nil
}
