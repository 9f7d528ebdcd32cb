package signature

import (
	"bytes"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/feral-file/ff-editions/internal/domain"
)

// Length is the size of an [R || S || V] signature
const Length = crypto.SignatureLength

const (
	domainType         = "EIP712Domain"
	presaleTypeName    = "EditionInfo"
	deploymentTypeName = "Deployment"
)

var (
	domainFields = []apitypes.Type{
		{Name: "chainId", Type: "uint256"},
	}
	presaleFields = []apitypes.Type{
		{Name: "contractAddress", Type: "address"},
		{Name: "buyerAddress", Type: "address"},
		{Name: "editionId", Type: "uint256"},
		{Name: "ticketNumber", Type: "uint256"},
	}
	deploymentFields = []apitypes.Type{
		{Name: "artistWallet", Type: "address"},
	}
)

// PresaleTicket is the claim a presale signer authorizes for one buyer
type PresaleTicket struct {
	ContractAddress common.Address
	Buyer           common.Address
	EditionID       uint64
	TicketNumber    *big.Int
}

// Deployment is the claim the platform signer authorizes for a new artist instance
type Deployment struct {
	ArtistWallet common.Address
}

// PresaleVerifier verifies presale tickets
//
//go:generate mockgen -source=verifier.go -destination=../mocks/signature.go -package=mocks -mock_names=PresaleVerifier=MockPresaleVerifier
type PresaleVerifier interface {
	// VerifyPresale reports whether sig is signer's authorization of ticket
	VerifyPresale(ticket PresaleTicket, sig []byte, signer common.Address) bool
}

// Verifier hashes typed messages bound to one chain and checks their signatures
type Verifier struct {
	chainID *big.Int
}

// NewVerifier creates a verifier for the given EIP-155 chain id
func NewVerifier(chainID *big.Int) *Verifier {
	return &Verifier{chainID: new(big.Int).Set(chainID)}
}

// ChainID returns the chain id every digest is bound to
func (v *Verifier) ChainID() *big.Int {
	return new(big.Int).Set(v.chainID)
}

// PresaleDigest returns the EIP-712 digest of a presale ticket
func (v *Verifier) PresaleDigest(ticket PresaleTicket) (common.Hash, error) {
	ticketNumber := ticket.TicketNumber
	if ticketNumber == nil {
		ticketNumber = new(big.Int)
	}
	return v.digest(presaleTypeName, presaleFields, apitypes.TypedDataMessage{
		"contractAddress": ticket.ContractAddress.Hex(),
		"buyerAddress":    ticket.Buyer.Hex(),
		"editionId":       new(big.Int).SetUint64(ticket.EditionID).String(),
		"ticketNumber":    ticketNumber.String(),
	})
}

// DeploymentDigest returns the EIP-712 digest of an artist deployment authorization
func (v *Verifier) DeploymentDigest(deployment Deployment) (common.Hash, error) {
	return v.digest(deploymentTypeName, deploymentFields, apitypes.TypedDataMessage{
		"artistWallet": deployment.ArtistWallet.Hex(),
	})
}

// VerifyPresale reports whether sig is signer's authorization of ticket
func (v *Verifier) VerifyPresale(ticket PresaleTicket, sig []byte, signer common.Address) bool {
	digest, err := v.PresaleDigest(ticket)
	if err != nil {
		return false
	}
	return Verify(digest, sig, signer)
}

// VerifyDeployment reports whether sig is signer's authorization of deployment
func (v *Verifier) VerifyDeployment(deployment Deployment, sig []byte, signer common.Address) bool {
	digest, err := v.DeploymentDigest(deployment)
	if err != nil {
		return false
	}
	return Verify(digest, sig, signer)
}

func (v *Verifier) digest(primaryType string, fields []apitypes.Type, message apitypes.TypedDataMessage) (common.Hash, error) {
	typedData := apitypes.TypedData{
		Types: apitypes.Types{
			domainType:  domainFields,
			primaryType: fields,
		},
		PrimaryType: primaryType,
		Domain: apitypes.TypedDataDomain{
			ChainId: (*math.HexOrDecimal256)(new(big.Int).Set(v.chainID)),
		},
		Message: message,
	}

	hash, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to hash %s: %w", primaryType, err)
	}
	return common.BytesToHash(hash), nil
}

// IsEmpty reports whether sig is the "no signature supplied" sentinel
func IsEmpty(sig []byte) bool {
	return len(sig) == 0 || bytes.Equal(sig, make([]byte, len(sig)))
}

// Verify recovers the signer of digest and compares it with expected.
// It never panics and fails closed on empty signatures and a null expected signer.
func Verify(digest common.Hash, sig []byte, expected common.Address) bool {
	if domain.IsZeroAddress(expected) || IsEmpty(sig) || len(sig) != Length {
		return false
	}

	normalized := make([]byte, Length)
	copy(normalized, sig)
	if normalized[crypto.RecoveryIDOffset] >= 27 {
		normalized[crypto.RecoveryIDOffset] -= 27
	}

	r := new(big.Int).SetBytes(normalized[:32])
	s := new(big.Int).SetBytes(normalized[32:64])
	if !crypto.ValidateSignatureValues(normalized[crypto.RecoveryIDOffset], r, s, true) {
		return false
	}

	pub, err := crypto.SigToPub(digest.Bytes(), normalized)
	if err != nil {
		return false
	}
	return crypto.PubkeyToAddress(*pub) == expected
}

// Sign signs digest and returns an [R || S || V] signature with V in {27, 28}
func Sign(digest common.Hash, key *ecdsa.PrivateKey) ([]byte, error) {
	sig, err := crypto.Sign(digest.Bytes(), key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign digest: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}
