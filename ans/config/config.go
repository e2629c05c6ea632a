// Package config loads the application configuration: the reusable core
// settings plus the database, chain, and workflow sections.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	coreconfig "github.com/ambns/ansbot/core/config"
	coredatabase "github.com/ambns/ansbot/core/database"
)

// ChainConfig holds ledger gateway settings. The custodial private key is
// an injected credential: it is read from the environment only and never
// from the YAML file.
type ChainConfig struct {
	RPCURL           string `yaml:"rpc_url" envconfig:"CHAIN_RPC_URL"`
	CustodialAddress string `yaml:"custodial_address" envconfig:"BOT_WALLET_ADDRESS"`
	PrivateKey       string `yaml:"-" envconfig:"BOT_PRIVATE_KEY"`
	GasLimit         uint64 `yaml:"gas_limit" envconfig:"CHAIN_GAS_LIMIT"`
	GasPriceGwei     int64  `yaml:"gas_price_gwei" envconfig:"CHAIN_GAS_PRICE_GWEI"`
}

// WorkflowConfig bounds the payment polling sub-protocol.
type WorkflowConfig struct {
	PollIntervalSeconds   int   `yaml:"poll_interval_seconds" envconfig:"WF_POLL_INTERVAL_SECONDS"`
	PaymentTimeoutSeconds int   `yaml:"payment_timeout_seconds" envconfig:"WF_PAYMENT_TIMEOUT_SECONDS"`
	RegistrationFeeAMB    int64 `yaml:"registration_fee_amb" envconfig:"WF_REGISTRATION_FEE_AMB"`
}

// Config aggregates everything the bot needs to run.
type Config struct {
	Core     coreconfig.Config   `yaml:",inline"`
	Database coredatabase.Config `yaml:"database"`
	Chain    ChainConfig         `yaml:"chain"`
	Workflow WorkflowConfig      `yaml:"workflow"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	return &c.Core
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates required fields and applies defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := coreconfig.Normalize(&cfg.Core); err != nil {
		return err
	}

	if strings.TrimSpace(cfg.Chain.RPCURL) == "" {
		return fmt.Errorf("chain.rpc_url is required")
	}
	if strings.TrimSpace(cfg.Chain.CustodialAddress) == "" {
		return fmt.Errorf("custodial wallet address is required (BOT_WALLET_ADDRESS)")
	}
	if strings.TrimSpace(cfg.Chain.PrivateKey) == "" {
		return fmt.Errorf("custodial signing key is required (BOT_PRIVATE_KEY)")
	}
	if cfg.Chain.GasLimit == 0 {
		cfg.Chain.GasLimit = 21000
	}
	if cfg.Chain.GasPriceGwei <= 0 {
		cfg.Chain.GasPriceGwei = 1
	}

	if cfg.Workflow.PollIntervalSeconds <= 0 {
		cfg.Workflow.PollIntervalSeconds = 5
	}
	if cfg.Workflow.PaymentTimeoutSeconds <= 0 {
		cfg.Workflow.PaymentTimeoutSeconds = 300
	}
	if cfg.Workflow.RegistrationFeeAMB <= 0 {
		cfg.Workflow.RegistrationFeeAMB = 2
	}
	return nil
}
