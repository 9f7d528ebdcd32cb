package main

import (
	"bytes"
	"encoding/hex"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-editions/internal/signature"
)

var (
	contract = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	buyer    = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
)

func run(t *testing.T, args ...string) (map[string]string, error) {
	var out bytes.Buffer
	cmd := rootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()

	lines := map[string]string{}
	for _, line := range strings.Split(out.String(), "\n") {
		if k, v, ok := strings.Cut(line, ":"); ok {
			lines[k] = strings.TrimSpace(v)
		}
	}
	return lines, err
}

func TestPresaleCommand(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	t.Setenv("TEST_SIGNER_KEY", hex.EncodeToString(crypto.FromECDSA(key)))

	out, err := run(t, "presale", "--chain", "eip155:1337", "--key-env", "TEST_SIGNER_KEY",
		"--contract", contract.Hex(), "--buyer", buyer.Hex(), "--edition", "3", "--ticket", "42")
	require.NoError(t, err)

	signer := crypto.PubkeyToAddress(key.PublicKey)
	assert.Equal(t, signer.Hex(), out["signer"])

	sig, err := hexutil.Decode(out["signature"])
	require.NoError(t, err)

	verifier := signature.NewVerifier(big.NewInt(1337))
	ticket := signature.PresaleTicket{ContractAddress: contract, Buyer: buyer, EditionID: 3, TicketNumber: big.NewInt(42)}
	assert.True(t, verifier.VerifyPresale(ticket, sig, signer))

	// bound to the chain
	assert.False(t, signature.NewVerifier(big.NewInt(1)).VerifyPresale(ticket, sig, signer))
}

func TestDeploymentCommand(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	t.Setenv("TEST_SIGNER_KEY", "0x"+hex.EncodeToString(crypto.FromECDSA(key)))

	out, err := run(t, "deployment", "--chain", "eip155:1337", "--key-env", "TEST_SIGNER_KEY", "--wallet", buyer.Hex())
	require.NoError(t, err)

	sig, err := hexutil.Decode(out["signature"])
	require.NoError(t, err)
	verifier := signature.NewVerifier(big.NewInt(1337))
	assert.True(t, verifier.VerifyDeployment(signature.Deployment{ArtistWallet: buyer}, sig, crypto.PubkeyToAddress(key.PublicKey)))
}

func TestCommandErrors(t *testing.T) {
	t.Setenv("TEST_SIGNER_KEY", "")

	_, err := run(t, "deployment", "--key-env", "TEST_SIGNER_KEY", "--wallet", buyer.Hex())
	assert.ErrorContains(t, err, "TEST_SIGNER_KEY is not set")

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	t.Setenv("TEST_SIGNER_KEY", hex.EncodeToString(crypto.FromECDSA(key)))

	_, err = run(t, "presale", "--key-env", "TEST_SIGNER_KEY",
		"--contract", "0x1234", "--buyer", buyer.Hex(), "--edition", "1", "--ticket", "1")
	assert.ErrorContains(t, err, "contract must be a hex address")

	_, err = run(t, "deployment", "--chain", "solana:mainnet", "--key-env", "TEST_SIGNER_KEY", "--wallet", buyer.Hex())
	assert.Error(t, err)
}
