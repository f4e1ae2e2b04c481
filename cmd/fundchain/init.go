package main

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

var (
	initRPCURL   string
	initContract string
	initChainID  int64
	initOutput   string
	initAPIKey   string
	initDataDir  string
	initDevChain bool
	initMetrics  bool
	initForce    bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize FundChain configuration",
	Long: `Interactive wizard to create a FundChain configuration file.

Examples:
  # Interactive mode - prompts for missing values
  fundchain init

  # Local development chain
  fundchain init --rpc-url http://127.0.0.1:8545 \
    --contract 0x5FbDB2315678afecb367f032d93F642f64180aa3 --chain-id 31337 --dev -o dev.yaml`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initRPCURL, "rpc-url", "", "Ledger node RPC URL (http, ws or ipc)")
	initCmd.Flags().StringVar(&initContract, "contract", "", "FundChain contract address")
	initCmd.Flags().Int64Var(&initChainID, "chain-id", 0, "Chain id (0 = ask the node)")
	initCmd.Flags().StringVarP(&initOutput, "output", "o", "config.yaml", "Output configuration file path")
	initCmd.Flags().StringVar(&initAPIKey, "api-key", "", "API key (auto-generated if not provided)")
	initCmd.Flags().StringVar(&initDataDir, "data-dir", "/var/lib/fundchain", "Data directory for keystore and journal")
	initCmd.Flags().BoolVar(&initDevChain, "dev", false, "Use light key encryption for development chains")
	initCmd.Flags().BoolVar(&initMetrics, "metrics", false, "Enable the Prometheus metrics endpoint")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing config file")

	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("FundChain Configuration Wizard")
	fmt.Println("==============================")
	fmt.Println()

	if initRPCURL == "" {
		initRPCURL = prompt(reader, "Ledger node RPC URL", "http://127.0.0.1:8545")
	}

	if initContract == "" {
		initContract = prompt(reader, "Contract address", "")
	}
	if !common.IsHexAddress(initContract) {
		return fmt.Errorf("contract address is required (got %q)", initContract)
	}

	if !cmd.Flags().Changed("chain-id") {
		answer := prompt(reader, "Chain id (0 = ask the node)", "0")
		id, err := strconv.ParseInt(answer, 10, 64)
		if err != nil || id < 0 {
			return fmt.Errorf("invalid chain id: %s", answer)
		}
		initChainID = id
	}

	initDataDir = prompt(reader, "Data directory", initDataDir)

	if initAPIKey == "" {
		initAPIKey = generateRandomString(32)
		fmt.Printf("  Generated API key: %s\n", initAPIKey)
	}

	if !initForce {
		if _, err := os.Stat(initOutput); err == nil {
			return fmt.Errorf("config file %s already exists (use --force to overwrite)", initOutput)
		}
	}

	fmt.Println()
	fmt.Println("Creating configuration...")

	if err := os.MkdirAll(filepath.Join(initDataDir, "keystore"), 0700); err != nil {
		fmt.Printf("  Warning: Could not create keystore directory: %v\n", err)
	}

	if err := os.WriteFile(initOutput, []byte(generateConfig()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("  Configuration saved to: %s\n", initOutput)
	fmt.Println()

	printNextSteps()
	return nil
}

func prompt(reader *bufio.Reader, question, defaultValue string) string {
	if defaultValue != "" {
		fmt.Printf("%s [%s]: ", question, defaultValue)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultValue
	}
	return input
}

func generateRandomString(length int) string {
	bytes := make([]byte, length/2)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

func generateConfig() string {
	return fmt.Sprintf(`# FundChain configuration
# Generated by: fundchain init

ledger:
  rpc_url: "%s"
  contract_address: "%s"
  chain_id: %d           # 0 = ask the node
  read_timeout: 15s
  gas_limit: 0           # 0 = estimate

keystore:
  dir: "%s/keystore"
  light_scrypt: %t

api:
  listen_addr: ":8080"
  api_key: "%s"
  max_header_bytes: 1048576  # 1 MB
  read_timeout: 30s
  write_timeout: 0s          # writes wait for settlement
  idle_timeout: 60s

storage:
  path: "%s/journal.db"
  retention:
    max_age: 720h            # 30 days
    cleanup_interval: 1h

logging:
  level: "info"
  format: "json"

metrics:
  enabled: %t
  listen_addr: ":9090"
  path: "/metrics"
  allowed_ips:
    - "127.0.0.1"
`,
		initRPCURL,
		common.HexToAddress(initContract).Hex(),
		initChainID,
		initDataDir,
		initDevChain,
		initAPIKey,
		initDataDir,
		initMetrics,
	)
}

func printNextSteps() {
	fmt.Println("Next Steps")
	fmt.Println("==========")
	fmt.Println()
	fmt.Println("1. Create a signing account:")
	fmt.Printf("   fundchain account new -c %s\n", initOutput)
	fmt.Println()
	fmt.Println("2. Check the configuration:")
	fmt.Printf("   fundchain config validate -c %s\n", initOutput)
	fmt.Println()
	fmt.Println("3. Start the server:")
	fmt.Printf("   fundchain serve -c %s\n", initOutput)
	fmt.Println()
	fmt.Println("4. List campaigns:")
	fmt.Println("   curl http://localhost:8080/api/v1/campaigns \\")
	fmt.Printf("     -H \"Authorization: Bearer %s\"\n", initAPIKey)
	fmt.Println()
}
