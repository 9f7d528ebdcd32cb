package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const programName = "editions-signer"

var globalFlags = struct {
	chain  string
	keyEnv string
}{}

func rootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          programName,
		Short:        "Sign presale tickets and artist deployment authorizations",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&globalFlags.chain, "chain", "eip155:1", "CAIP-2 chain the signature is bound to")
	rootCmd.PersistentFlags().StringVar(&globalFlags.keyEnv, "key-env", "SIGNER_PRIVATE_KEY", "environment variable holding the hex encoded signing key")

	rootCmd.AddCommand(
		presaleCommand(),
		deploymentCommand(),
	)
	return rootCmd
}

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
