package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration for the treasury backend. Values
// come from an optional YAML file, then env vars override field by field.
type Config struct {
	Listen string `yaml:"listen"`

	// Signing credential: either a raw hex private key or a mnemonic plus
	// derivation path. Exactly one wallet is authorized per process.
	PrivateKey     string `yaml:"private_key"`
	Mnemonic       string `yaml:"mnemonic"`
	DerivationPath string `yaml:"derivation_path"`

	RPCEndpoints []string `yaml:"rpc_endpoints"`

	EtherscanURL    string `yaml:"etherscan_url"`
	EtherscanAPIKey string `yaml:"etherscan_api_key"`

	PriceInterval   time.Duration `yaml:"price_interval"`
	BalanceInterval time.Duration `yaml:"balance_interval"`
	ProbeTimeout    time.Duration `yaml:"probe_timeout"`
	PriceTimeout    time.Duration `yaml:"price_timeout"`
	ConfirmTimeout  time.Duration `yaml:"confirm_timeout"`

	// MinBalanceETH gates earning start and withdrawals; GasReserveETH is
	// held back from percentage-mode transfers.
	MinBalanceETH string `yaml:"min_balance_eth"`
	GasReserveETH string `yaml:"gas_reserve_eth"`

	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
}

// DefaultRPCEndpoints is the fallback list of public mainnet RPC nodes,
// probed in order.
var DefaultRPCEndpoints = []string{
	"https://ethereum.publicnode.com",
	"https://eth.drpc.org",
	"https://rpc.ankr.com/eth",
	"https://eth.llamarpc.com",
	"https://cloudflare-eth.com",
}

// Load reads the YAML file at path (missing file is fine), applies defaults,
// then lets env vars override.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	if cfg.PrivateKey == "" && cfg.Mnemonic == "" {
		return nil, fmt.Errorf("no signing credential: set TREASURY_PRIVATE_KEY or TREASURY_MNEMONIC")
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = ":3000"
	}
	if len(c.RPCEndpoints) == 0 {
		c.RPCEndpoints = append([]string(nil), DefaultRPCEndpoints...)
	}
	if c.EtherscanURL == "" {
		c.EtherscanURL = "https://api.etherscan.io/api"
	}
	if c.PriceInterval <= 0 {
		c.PriceInterval = 30 * time.Second
	}
	if c.BalanceInterval <= 0 {
		c.BalanceInterval = 30 * time.Second
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = 2 * time.Second
	}
	if c.PriceTimeout <= 0 {
		c.PriceTimeout = 5 * time.Second
	}
	if c.ConfirmTimeout <= 0 {
		c.ConfirmTimeout = 5 * time.Minute
	}
	if c.MinBalanceETH == "" {
		c.MinBalanceETH = "0.01"
	}
	if c.GasReserveETH == "" {
		c.GasReserveETH = "0.003"
	}
	if c.DerivationPath == "" {
		c.DerivationPath = "m/44'/60'/0'/0/0"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *Config) applyEnv() {
	setStr(&c.Listen, "TREASURY_LISTEN")
	if c.Listen == ":3000" {
		if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
			c.Listen = ":" + port
		}
	}
	setStr(&c.PrivateKey, "TREASURY_PRIVATE_KEY")
	setStr(&c.Mnemonic, "TREASURY_MNEMONIC")
	setStr(&c.DerivationPath, "TREASURY_DERIVATION_PATH")
	setStr(&c.EtherscanURL, "ETHERSCAN_URL")
	setStr(&c.EtherscanAPIKey, "ETHERSCAN_API_KEY")
	setStr(&c.MinBalanceETH, "TREASURY_MIN_BALANCE_ETH")
	setStr(&c.GasReserveETH, "TREASURY_GAS_RESERVE_ETH")
	setStr(&c.LogLevel, "TREASURY_LOG_LEVEL")
	setStr(&c.LogFile, "TREASURY_LOG_FILE")

	if v := strings.TrimSpace(os.Getenv("TREASURY_RPC_ENDPOINTS")); v != "" {
		var eps []string
		for _, e := range strings.Split(v, ",") {
			if e = strings.TrimSpace(e); e != "" {
				eps = append(eps, e)
			}
		}
		if len(eps) > 0 {
			c.RPCEndpoints = eps
		}
	}

	setDur(&c.PriceInterval, "TREASURY_PRICE_INTERVAL")
	setDur(&c.BalanceInterval, "TREASURY_BALANCE_INTERVAL")
	setDur(&c.ProbeTimeout, "TREASURY_PROBE_TIMEOUT")
	setDur(&c.ConfirmTimeout, "TREASURY_CONFIRM_TIMEOUT")
}

func setStr(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setDur(dst *time.Duration, key string) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		*dst = d
		return
	}
	// bare numbers are seconds
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		*dst = time.Duration(n) * time.Second
	}
}
