package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:           "bankmore",
		Short:         "BankMore account, transfer and fee services",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "optional config file (yaml, toml or json)")

	rootCmd.AddCommand(accountAPICmd())
	rootCmd.AddCommand(transferAPICmd())
	rootCmd.AddCommand(feeAPICmd())
	rootCmd.AddCommand(feeConsumerCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func accountAPICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "account-api",
		Short: "Serve accounts, movements and balances",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run("account-api", runAccountAPI)
		},
	}
}

func transferAPICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transfer-api",
		Short: "Serve transfers between accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run("transfer-api", runTransferAPI)
		},
	}
}

func feeAPICmd() *cobra.Command {
	var noConsumer bool
	cmd := &cobra.Command{
		Use:   "fee-api",
		Short: "Serve fee queries and charge fees for completed transfers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run("fee-api", func(a *app) error { return runFeeAPI(a, !noConsumer) })
		},
	}
	cmd.Flags().BoolVar(&noConsumer, "no-consumer", false, "serve HTTP only, leave charging to fee-consumer")
	return cmd
}

func feeConsumerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fee-consumer",
		Short: "Charge fees for completed transfers without serving HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run("fee-consumer", runFeeConsumer)
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run("migrate", func(a *app) error {
				return nil // run always migrates for this command
			})
		},
	}
}
