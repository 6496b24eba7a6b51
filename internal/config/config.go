package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/pulkyeet/triangle-scanner/internal/arbitrage"
	"github.com/pulkyeet/triangle-scanner/internal/eth"
)

type Config struct {
	RPCURL      string `yaml:"rpc_url"`
	SubgraphURL string `yaml:"subgraph_url"`
	Etherscan   struct {
		APIKey   string        `yaml:"api_key"`
		BaseURL  string        `yaml:"base_url"`
		Interval time.Duration `yaml:"interval"`
		CacheDB  string        `yaml:"cache_db"`
		OutDir   string        `yaml:"out_dir"`
	} `yaml:"etherscan"`
	Scan struct {
		Pairs           int           `yaml:"pairs"`
		FeeRate         float64       `yaml:"fee_rate"`
		Deny            []string      `yaml:"deny"`
		Allow           []string      `yaml:"allow"`
		NodeKey         string        `yaml:"node_key"`
		Conflict        string        `yaml:"conflict"`
		Workers         int           `yaml:"workers"`
		TriangleTimeout time.Duration `yaml:"triangle_timeout"`
	} `yaml:"scan"`
	RPC struct {
		MaxTries    uint          `yaml:"max_tries"`
		CallTimeout time.Duration `yaml:"call_timeout"`
		CacheSize   int           `yaml:"cache_size"`
	} `yaml:"rpc"`
	Logging Logging `yaml:"logging"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

func Default() Config {
	var c Config
	c.SubgraphURL = "https://api.thegraph.com/subgraphs/name/uniswap/uniswap-v2"
	c.Etherscan.BaseURL = "https://api.etherscan.io/api"
	c.Etherscan.Interval = 200 * time.Millisecond // free tier is 5 req/s
	c.Etherscan.CacheDB = "data/abi_cache.db"
	c.Etherscan.OutDir = "abis"
	c.Scan.Pairs = 50
	c.Scan.FeeRate = 0.003
	c.Scan.Deny = append([]string(nil), arbitrage.DefaultDeny...)
	c.Scan.NodeKey = "symbol"
	c.Scan.Conflict = "last"
	c.Scan.Workers = 8
	c.Scan.TriangleTimeout = 30 * time.Second
	c.RPC.MaxTries = 3
	c.RPC.CallTimeout = 10 * time.Second
	c.RPC.CacheSize = 1024
	c.Logging.Level = "info"
	return c
}

// Load builds the config from defaults, then .env, then the YAML file at path
// (or TRISCAN_CONFIG), then environment overrides. A missing .env is fine; a
// named YAML file that can't be read is not.
func Load(path string) (Config, error) {
	c := Default()

	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("TRISCAN_CONFIG")
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := c.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) applyEnv() error {
	// ETH_RPC_URL wins over the legacy ALCHEMY_URL
	if v := os.Getenv("ALCHEMY_URL"); v != "" {
		c.RPCURL = v
	}
	if v := os.Getenv("ETH_RPC_URL"); v != "" {
		c.RPCURL = v
	}
	if v := os.Getenv("ETHERSCAN_API_KEY"); v != "" {
		c.Etherscan.APIKey = v
	}
	if v := os.Getenv("SUBGRAPH_URL"); v != "" {
		c.SubgraphURL = v
	}
	if v := os.Getenv("TRISCAN_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("TRISCAN_LOG_PRETTY"); v == "1" || v == "true" {
		c.Logging.Pretty = true
	}
	if v := os.Getenv("TRISCAN_PAIRS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TRISCAN_PAIRS: %w", err)
		}
		c.Scan.Pairs = n
	}
	if v := os.Getenv("TRISCAN_FEE_RATE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("TRISCAN_FEE_RATE: %w", err)
		}
		c.Scan.FeeRate = f
	}
	if v, ok := os.LookupEnv("TRISCAN_DENY"); ok {
		c.Scan.Deny = SplitCSV(v)
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Scan.Pairs < 1 {
		errs = append(errs, fmt.Errorf("scan.pairs must be >= 1, got %d", c.Scan.Pairs))
	}
	if math.IsNaN(c.Scan.FeeRate) || c.Scan.FeeRate < 0 || c.Scan.FeeRate >= 1 {
		errs = append(errs, fmt.Errorf("scan.fee_rate must be in [0, 1), got %v", c.Scan.FeeRate))
	}
	if c.Scan.Workers < 1 {
		errs = append(errs, fmt.Errorf("scan.workers must be >= 1, got %d", c.Scan.Workers))
	}
	if _, err := arbitrage.ParseNodeKey(c.Scan.NodeKey); err != nil {
		errs = append(errs, err)
	}
	if _, err := arbitrage.ParseConflictPolicy(c.Scan.Conflict); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// ScanConfig converts the scan section for the scanner
func (c Config) ScanConfig() (arbitrage.ScanConfig, error) {
	key, err := arbitrage.ParseNodeKey(c.Scan.NodeKey)
	if err != nil {
		return arbitrage.ScanConfig{}, err
	}
	policy, err := arbitrage.ParseConflictPolicy(c.Scan.Conflict)
	if err != nil {
		return arbitrage.ScanConfig{}, err
	}
	return arbitrage.ScanConfig{
		Pairs:   c.Scan.Pairs,
		FeeRate: c.Scan.FeeRate,
		Filter: arbitrage.TriangleFilter{
			Deny:  c.Scan.Deny,
			Allow: c.Scan.Allow,
		},
		Workers:         c.Scan.Workers,
		TriangleTimeout: c.Scan.TriangleTimeout,
		GraphOptions: []arbitrage.GraphOption{
			arbitrage.WithNodeKey(key),
			arbitrage.WithConflictPolicy(policy),
		},
	}, nil
}

func (c Config) Retry() eth.RetryConfig {
	r := eth.DefaultRetry()
	if c.RPC.MaxTries > 0 {
		r.MaxTries = c.RPC.MaxTries
	}
	if c.RPC.CallTimeout > 0 {
		r.CallTimeout = c.RPC.CallTimeout
	}
	return r
}

func SplitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
