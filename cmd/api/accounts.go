package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/spec-kit/maintenance-portal/internal/app"
	"github.com/spec-kit/maintenance-portal/internal/service"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Provision outlet and admin accounts",
}

var accountsImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Upsert accounts from a YAML file",
	RunE:  runAccountsImport,
}

var accountsFile string

func init() {
	accountsImportCmd.Flags().StringVarP(&accountsFile, "file", "f", "", "YAML account file")
	_ = accountsImportCmd.MarkFlagRequired("file")
	accountsCmd.AddCommand(accountsImportCmd)
}

func runAccountsImport(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.Postgres.DSN == "" {
		return errors.New("accounts import: POSTGRES_DSN is required")
	}

	f, err := os.Open(accountsFile)
	if err != nil {
		return fmt.Errorf("open %s: %w", accountsFile, err)
	}
	defer f.Close()

	accounts, err := service.ParseAccountFile(f)
	if err != nil {
		return err
	}

	stores, err := app.OpenStores(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer stores.Close()

	n, err := service.ImportAccounts(cmd.Context(), stores.Accounts, accounts, cfg.Auth.BcryptCost)
	if err != nil {
		return fmt.Errorf("imported %d of %d accounts: %w", n, len(accounts), err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d accounts\n", n)
	return nil
}
