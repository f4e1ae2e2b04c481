package main

import (
	"fmt"
	"math/big"

	"github.com/spf13/cobra"

	"github.com/foxzi/fundchain/internal/app"
	"github.com/foxzi/fundchain/internal/session"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Keystore account commands",
}

var accountListCmd = &cobra.Command{
	Use:   "list",
	Short: "List keystore accounts",
	RunE:  runAccountList,
}

var accountNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a new encrypted account",
	RunE:  runAccountNew,
}

func init() {
	accountCmd.AddCommand(accountListCmd, accountNewCmd)
	rootCmd.AddCommand(accountCmd)
}

// openKeystore opens the keystore without dialing the node. The chain id
// only binds signatures, which these commands never produce
func openKeystore() (*session.Manager, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	chainID := big.NewInt(1)
	if cfg.Ledger.ChainID > 0 {
		chainID = big.NewInt(cfg.Ledger.ChainID)
	}

	return app.OpenKeystore(cfg, chainID, cliLogger())
}

func runAccountList(cmd *cobra.Command, args []string) error {
	m, err := openKeystore()
	if err != nil {
		return err
	}

	accounts := m.Accounts()
	if len(accounts) == 0 {
		fmt.Println("No accounts (create one with 'fundchain account new')")
		return nil
	}

	for i, a := range accounts {
		fmt.Printf("#%d  %s\n", i, a.Hex())
	}
	return nil
}

func runAccountNew(cmd *cobra.Command, args []string) error {
	m, err := openKeystore()
	if err != nil {
		return err
	}

	pass, err := readPassphrase("New passphrase: ")
	if err != nil {
		return err
	}

	if passwordFile == "" {
		confirm, err := readPassphrase("Repeat passphrase: ")
		if err != nil {
			return err
		}
		if confirm != pass {
			return fmt.Errorf("passphrases do not match")
		}
	}

	addr, err := m.NewAccount(pass)
	if err != nil {
		return err
	}

	fmt.Printf("Account created: %s\n", addr.Hex())
	return nil
}
