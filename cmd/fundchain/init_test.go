package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/foxzi/fundchain/internal/config"
)

func TestGenerateRandomString(t *testing.T) {
	for _, length := range []int{8, 16, 32, 64} {
		result := generateRandomString(length)
		if len(result) != length {
			t.Errorf("generateRandomString(%d) returned string of length %d", length, len(result))
		}
	}

	if generateRandomString(32) == generateRandomString(32) {
		t.Error("generateRandomString should generate unique strings")
	}
}

func TestGenerateConfig(t *testing.T) {
	initRPCURL = "http://127.0.0.1:8545"
	initContract = "0x5fbdb2315678afecb367f032d93f642f64180aa3"
	initChainID = 31337
	initDataDir = "/var/lib/fundchain"
	initAPIKey = "testapikey"
	initDevChain = true
	initMetrics = false

	cfg := generateConfig()

	checks := []string{
		`rpc_url: "http://127.0.0.1:8545"`,
		`contract_address: "0x5FbDB2315678afecb367f032d93F642f64180aa3"`,
		`chain_id: 31337`,
		`dir: "/var/lib/fundchain/keystore"`,
		`light_scrypt: true`,
		`api_key: "testapikey"`,
		`path: "/var/lib/fundchain/journal.db"`,
	}

	for _, check := range checks {
		if !strings.Contains(cfg, check) {
			t.Errorf("Generated config missing: %s", check)
		}
	}
}

func TestGeneratedConfigLoads(t *testing.T) {
	initRPCURL = "ws://node:8546"
	initContract = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
	initChainID = 0
	initDataDir = t.TempDir()
	initAPIKey = "key"
	initDevChain = false
	initMetrics = true

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(generateConfig()), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}

	if cfg.Ledger.RPCURL != initRPCURL || cfg.API.APIKey != "key" {
		t.Errorf("config = %+v", cfg)
	}
	if !cfg.Metrics.Enabled || len(cfg.Metrics.AllowedIPs) != 1 {
		t.Errorf("Metrics = %+v", cfg.Metrics)
	}
	if cfg.API.WriteTimeout != 0 {
		t.Errorf("API.WriteTimeout = %v, want 0", cfg.API.WriteTimeout)
	}
	if cfg.Keystore.LightScrypt {
		t.Error("Keystore.LightScrypt should be false")
	}
}
