package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/foxzi/fundchain/internal/app"
	"github.com/foxzi/fundchain/internal/config"
)

var (
	cfgFile   string
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "fundchain",
	Short: "FundChain - crowdfunding ledger client",
	Long: `FundChain is a client for the FundChain crowdfunding contract.

It lists campaigns, decides which actions an account may take on each one,
and submits create, fund, withdraw, refund and complete transactions.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long:  `Start the FundChain HTTP API with the websocket event feed and metrics.`,
	RunE:  runServe,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration commands",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	RunE:  runConfigValidate,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("fundchain version %s\n", version)
		if commit != "unknown" {
			fmt.Printf("  commit: %s\n", commit)
		}
		if buildTime != "unknown" {
			fmt.Printf("  built:  %s\n", buildTime)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")

	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(serveCmd, configCmd, versionCmd)
}

func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return nil, fmt.Errorf("config file is required (use -c flag)")
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// cliLogger keeps command output clean; only warnings reach stderr
func cliLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()

	application, err := app.New(ctx, cfg, version)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	return application.Run(ctx)
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	if cfgFile == "" {
		return fmt.Errorf("config file is required (use -c flag)")
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("configuration is invalid: %w", err)
	}

	chainID := "from node"
	if cfg.Ledger.ChainID > 0 {
		chainID = fmt.Sprintf("%d", cfg.Ledger.ChainID)
	}

	fmt.Printf("Configuration is valid\n")
	fmt.Printf("  Node:     %s\n", cfg.Ledger.RPCURL)
	fmt.Printf("  Contract: %s\n", cfg.ContractAddress().Hex())
	fmt.Printf("  Chain ID: %s\n", chainID)
	fmt.Printf("  Keystore: %s\n", cfg.Keystore.Dir)
	fmt.Printf("  API:      %s\n", cfg.API.ListenAddr)
	fmt.Printf("  Journal:  %s\n", cfg.Storage.Path)
	if cfg.Metrics.Enabled {
		fmt.Printf("  Metrics:  %s%s\n", cfg.Metrics.ListenAddr, cfg.Metrics.Path)
	}

	return nil
}
