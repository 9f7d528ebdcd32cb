package main

import (
	"crypto/ecdsa"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	"github.com/feral-file/ff-editions/internal/api/shared/dto"
	"github.com/feral-file/ff-editions/internal/domain"
	"github.com/feral-file/ff-editions/internal/signature"
)

func presaleCommand() *cobra.Command {
	var contract, buyer, editionID, ticket string

	cmd := &cobra.Command{
		Use:   "presale",
		Short: "Sign a presale ticket for one buyer",
		RunE: func(cmd *cobra.Command, args []string) error {
			verifier, key, err := setup()
			if err != nil {
				return err
			}

			claim := signature.PresaleTicket{}
			if claim.ContractAddress, err = dto.ParseAddress("contract", contract); err != nil {
				return err
			}
			if claim.Buyer, err = dto.ParseAddress("buyer", buyer); err != nil {
				return err
			}
			if claim.EditionID, err = dto.ParseUint64("edition", editionID); err != nil {
				return err
			}
			if claim.TicketNumber, err = dto.ParseUint256("ticket", ticket); err != nil {
				return err
			}

			digest, err := verifier.PresaleDigest(claim)
			if err != nil {
				return err
			}
			return printSignature(cmd, digest, key)
		},
	}
	cmd.Flags().StringVar(&contract, "contract", "", "artist instance address")
	cmd.Flags().StringVar(&buyer, "buyer", "", "wallet allowed to redeem the ticket")
	cmd.Flags().StringVar(&editionID, "edition", "", "edition id")
	cmd.Flags().StringVar(&ticket, "ticket", "", "ticket number")
	for _, name := range []string{"contract", "buyer", "edition", "ticket"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func deploymentCommand() *cobra.Command {
	var wallet string

	cmd := &cobra.Command{
		Use:   "deployment",
		Short: "Authorize an artist wallet to deploy an instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			verifier, key, err := setup()
			if err != nil {
				return err
			}

			artistWallet, err := dto.ParseAddress("wallet", wallet)
			if err != nil {
				return err
			}

			digest, err := verifier.DeploymentDigest(signature.Deployment{ArtistWallet: artistWallet})
			if err != nil {
				return err
			}
			return printSignature(cmd, digest, key)
		},
	}
	cmd.Flags().StringVar(&wallet, "wallet", "", "artist wallet address")
	_ = cmd.MarkFlagRequired("wallet")
	return cmd
}

func setup() (*signature.Verifier, *ecdsa.PrivateKey, error) {
	chainID, err := domain.Chain(globalFlags.chain).ChainID()
	if err != nil {
		return nil, nil, err
	}

	raw := strings.TrimPrefix(strings.TrimSpace(os.Getenv(globalFlags.keyEnv)), "0x")
	if raw == "" {
		return nil, nil, fmt.Errorf("%s is not set", globalFlags.keyEnv)
	}
	key, err := crypto.HexToECDSA(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid signing key: %w", err)
	}

	return signature.NewVerifier(chainID), key, nil
}

func printSignature(cmd *cobra.Command, digest common.Hash, key *ecdsa.PrivateKey) error {
	sig, err := signature.Sign(digest, key)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "signer:    %s\n", crypto.PubkeyToAddress(key.PublicKey).Hex())
	fmt.Fprintf(out, "digest:    %s\n", digest.Hex())
	fmt.Fprintf(out, "signature: %s\n", hexutil.Encode(sig))
	return nil
}
