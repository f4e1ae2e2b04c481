package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// Config is the main configuration structure
type Config struct {
	Ledger   LedgerConfig   `yaml:"ledger"`
	Keystore KeystoreConfig `yaml:"keystore"`
	API      APIConfig      `yaml:"api"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"` // Prometheus metrics configuration
}

// LedgerConfig contains the node connection and contract binding
type LedgerConfig struct {
	RPCURL          string        `yaml:"rpc_url"`
	ContractAddress string        `yaml:"contract_address"`
	ChainID         int64         `yaml:"chain_id"`     // 0 = ask the node
	ReadTimeout     time.Duration `yaml:"read_timeout"` // Per view call (default: 15s)
	GasLimit        uint64        `yaml:"gas_limit"`    // 0 = estimate
}

// KeystoreConfig contains signing key settings
type KeystoreConfig struct {
	Dir         string `yaml:"dir"`
	LightScrypt bool   `yaml:"light_scrypt"` // Faster, weaker key encryption for dev chains
}

// APIConfig contains HTTP API settings
type APIConfig struct {
	ListenAddr     string        `yaml:"listen_addr"`
	APIKey         string        `yaml:"api_key"`
	MaxHeaderBytes int           `yaml:"max_header_bytes"` // Max HTTP header size (default: 1MB)
	ReadTimeout    time.Duration `yaml:"read_timeout"`     // HTTP read timeout (default: 30s)
	WriteTimeout   time.Duration `yaml:"write_timeout"`    // 0 = none; writes wait for settlement
	IdleTimeout    time.Duration `yaml:"idle_timeout"`     // HTTP idle timeout (default: 60s)
	AllowedOrigins []string      `yaml:"allowed_origins"`  // Websocket origins (empty = allow all)
}

// StorageConfig contains journal storage settings
type StorageConfig struct {
	Path      string           `yaml:"path"`
	Retention *RetentionConfig `yaml:"retention"`
}

// RetentionConfig contains journal retention settings
type RetentionConfig struct {
	MaxAge          time.Duration `yaml:"max_age"`          // Delete finished entries older than this (0 = keep forever)
	CleanupInterval time.Duration `yaml:"cleanup_interval"` // How often to run cleanup
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// MetricsConfig contains Prometheus metrics settings
type MetricsConfig struct {
	Enabled    bool     `yaml:"enabled"`
	ListenAddr string   `yaml:"listen_addr"` // Default: :9090
	Path       string   `yaml:"path"`        // Default: /metrics
	AllowedIPs []string `yaml:"allowed_ips"` // IP addresses/CIDRs allowed to access metrics
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults sets default values for configuration
func (c *Config) setDefaults() {
	if c.Ledger.ReadTimeout == 0 {
		c.Ledger.ReadTimeout = 15 * time.Second
	}

	if c.Keystore.Dir == "" {
		c.Keystore.Dir = "/var/lib/fundchain/keystore"
	}

	if c.API.ListenAddr == "" {
		c.API.ListenAddr = ":8080"
	}
	if c.API.MaxHeaderBytes == 0 {
		c.API.MaxHeaderBytes = 1 << 20 // 1 MB
	}
	if c.API.ReadTimeout == 0 {
		c.API.ReadTimeout = 30 * time.Second
	}
	if c.API.IdleTimeout == 0 {
		c.API.IdleTimeout = 60 * time.Second
	}

	if c.Storage.Path == "" {
		c.Storage.Path = "/var/lib/fundchain/journal.db"
	}
	if c.Storage.Retention == nil {
		c.Storage.Retention = &RetentionConfig{}
	}
	if c.Storage.Retention.CleanupInterval == 0 {
		c.Storage.Retention.CleanupInterval = time.Hour
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	if c.Metrics.ListenAddr == "" {
		c.Metrics.ListenAddr = ":9090"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Ledger.RPCURL == "" {
		return fmt.Errorf("ledger.rpc_url is required")
	}

	if c.Ledger.ContractAddress == "" {
		return fmt.Errorf("ledger.contract_address is required")
	}
	if !common.IsHexAddress(c.Ledger.ContractAddress) {
		return fmt.Errorf("invalid ledger.contract_address: %s", c.Ledger.ContractAddress)
	}
	if c.ContractAddress() == (common.Address{}) {
		return fmt.Errorf("ledger.contract_address must not be the zero address")
	}

	if c.Ledger.ChainID < 0 {
		return fmt.Errorf("ledger.chain_id must not be negative")
	}
	if c.Ledger.ReadTimeout < 0 {
		return fmt.Errorf("ledger.read_timeout must not be negative")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging.level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid logging.format: %s (must be json or text)", c.Logging.Format)
	}

	if c.Storage.Retention.MaxAge < 0 {
		return fmt.Errorf("storage.retention.max_age must not be negative")
	}

	return nil
}

// ContractAddress returns the parsed contract address
func (c *Config) ContractAddress() common.Address {
	return common.HexToAddress(c.Ledger.ContractAddress)
}
