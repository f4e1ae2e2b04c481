package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return cfgPath
}

func TestLoad(t *testing.T) {
	content := `
ledger:
  rpc_url: "http://127.0.0.1:8545"
  contract_address: "0x5FbDB2315678afecb367f032d93F642f64180aa3"
  chain_id: 1337
  read_timeout: 5s
  gas_limit: 300000

keystore:
  dir: "/tmp/keys"
  light_scrypt: true

api:
  listen_addr: ":9080"
  api_key: "test-api-key"
  allowed_origins:
    - "http://localhost:3000"

storage:
  path: "/tmp/journal.db"
  retention:
    max_age: 720h

logging:
  level: "debug"
  format: "text"

metrics:
  enabled: true
  allowed_ips: ["127.0.0.1"]
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Ledger.RPCURL != "http://127.0.0.1:8545" {
		t.Errorf("Ledger.RPCURL = %v", cfg.Ledger.RPCURL)
	}
	if cfg.Ledger.ChainID != 1337 {
		t.Errorf("Ledger.ChainID = %v, want 1337", cfg.Ledger.ChainID)
	}
	if cfg.Ledger.ReadTimeout != 5*time.Second {
		t.Errorf("Ledger.ReadTimeout = %v, want 5s", cfg.Ledger.ReadTimeout)
	}
	if cfg.Ledger.GasLimit != 300000 {
		t.Errorf("Ledger.GasLimit = %v, want 300000", cfg.Ledger.GasLimit)
	}
	if got := cfg.ContractAddress().Hex(); got != "0x5FbDB2315678afecb367f032d93F642f64180aa3" {
		t.Errorf("ContractAddress() = %v", got)
	}
	if !cfg.Keystore.LightScrypt || cfg.Keystore.Dir != "/tmp/keys" {
		t.Errorf("Keystore = %+v", cfg.Keystore)
	}
	if cfg.API.APIKey != "test-api-key" || cfg.API.ListenAddr != ":9080" {
		t.Errorf("API = %+v", cfg.API)
	}
	if len(cfg.API.AllowedOrigins) != 1 {
		t.Errorf("API.AllowedOrigins = %v", cfg.API.AllowedOrigins)
	}
	if cfg.Storage.Retention.MaxAge != 720*time.Hour {
		t.Errorf("Retention.MaxAge = %v, want 720h", cfg.Storage.Retention.MaxAge)
	}
	if cfg.Storage.Retention.CleanupInterval != time.Hour {
		t.Errorf("Retention.CleanupInterval = %v, want 1h default", cfg.Storage.Retention.CleanupInterval)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "text" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.ListenAddr != ":9090" || cfg.Metrics.Path != "/metrics" {
		t.Errorf("Metrics = %+v", cfg.Metrics)
	}
}

func TestLoadDefaults(t *testing.T) {
	content := `
ledger:
  rpc_url: "ws://node:8546"
  contract_address: "0x5FbDB2315678afecb367f032d93F642f64180aa3"
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Ledger.ReadTimeout != 15*time.Second {
		t.Errorf("Ledger.ReadTimeout = %v, want 15s", cfg.Ledger.ReadTimeout)
	}
	if cfg.Ledger.ChainID != 0 {
		t.Errorf("Ledger.ChainID = %v, want 0", cfg.Ledger.ChainID)
	}
	if cfg.Keystore.Dir != "/var/lib/fundchain/keystore" {
		t.Errorf("Keystore.Dir = %v", cfg.Keystore.Dir)
	}
	if cfg.API.ListenAddr != ":8080" {
		t.Errorf("API.ListenAddr = %v, want :8080", cfg.API.ListenAddr)
	}
	if cfg.API.WriteTimeout != 0 {
		t.Errorf("API.WriteTimeout = %v, want 0", cfg.API.WriteTimeout)
	}
	if cfg.Storage.Path != "/var/lib/fundchain/journal.db" {
		t.Errorf("Storage.Path = %v", cfg.Storage.Path)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := &Config{
			Ledger: LedgerConfig{
				RPCURL:          "http://127.0.0.1:8545",
				ContractAddress: "0x5FbDB2315678afecb367f032d93F642f64180aa3",
			},
		}
		c.setDefaults()
		return c
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing rpc url", func(c *Config) { c.Ledger.RPCURL = "" }, "ledger.rpc_url"},
		{"missing contract", func(c *Config) { c.Ledger.ContractAddress = "" }, "ledger.contract_address"},
		{"malformed contract", func(c *Config) { c.Ledger.ContractAddress = "0x1234" }, "invalid ledger.contract_address"},
		{"zero contract", func(c *Config) {
			c.Ledger.ContractAddress = "0x0000000000000000000000000000000000000000"
		}, "zero address"},
		{"negative chain id", func(c *Config) { c.Ledger.ChainID = -1 }, "chain_id"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"negative retention", func(c *Config) { c.Storage.Retention.MaxAge = -time.Hour }, "max_age"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)

			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() expected error for missing file")
	}

	if _, err := Load(writeConfig(t, "ledger: [unclosed")); err == nil {
		t.Error("Load() expected error for invalid yaml")
	}

	if _, err := Load(writeConfig(t, "logging:\n  level: info\n")); err == nil {
		t.Error("Load() expected validation error")
	}
}
