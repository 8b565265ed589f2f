package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// EnvPrefix 为环境变量覆盖的统一前缀。
const EnvPrefix = "LEDGER_"

type Config struct {
	NodeID   string `yaml:"node_id" env:"NODE_ID"`
	DataDir  string `yaml:"data_dir" env:"DATA_DIR"`
	HTTPPort int    `yaml:"http_port" env:"HTTP_PORT"`
	// HTTPAdvertise 其它节点访问本节点 HTTP 接口的地址，写入集群成员表。
	HTTPAdvertise string `yaml:"http_advertise" env:"HTTP_ADVERTISE"`

	RaftDir       string   `yaml:"raft_dir" env:"RAFT_DIR"`
	RaftBind      string   `yaml:"raft_bind" env:"RAFT_BIND"`
	RaftBootstrap bool     `yaml:"raft_bootstrap" env:"RAFT_BOOTSTRAP"`
	RaftPeers     []string `yaml:"raft_peers" env:"RAFT_PEERS" envSeparator:","`

	Deployer         string `yaml:"deployer" env:"DEPLOYER"`
	InitialSupply    string `yaml:"initial_supply" env:"INITIAL_SUPPLY"`
	MembershipPolicy string `yaml:"membership_policy" env:"MEMBERSHIP_POLICY"`
	MaxBatchSize     int    `yaml:"max_batch_size" env:"MAX_BATCH_SIZE"`

	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`
}

// Load 读取 YAML 配置，再用 LEDGER_ 前缀的环境变量覆盖。path 为空时只读环境变量。
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.HTTPPort == 0 {
		c.HTTPPort = 8080
	}
	if c.HTTPAdvertise == "" {
		c.HTTPAdvertise = fmt.Sprintf("127.0.0.1:%d", c.HTTPPort)
	}
	if c.RaftDir == "" {
		c.RaftDir = filepath.Join(c.DataDir, "raft")
	}
	if c.RaftBind == "" {
		c.RaftBind = "127.0.0.1:7000"
	}
	if c.InitialSupply == "" {
		c.InitialSupply = "0"
	}
	if c.MembershipPolicy == "" {
		c.MembershipPolicy = "idempotent"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate 检查必填项与地址格式。
func (c *Config) Validate() error {
	if c.NodeID == "" {
		return errors.New("node_id is required")
	}
	if c.Deployer == "" {
		return errors.New("deployer is required")
	}
	if !common.IsHexAddress(c.Deployer) {
		return fmt.Errorf("deployer %q is not a hex address", c.Deployer)
	}
	if common.HexToAddress(c.Deployer) == (common.Address{}) {
		return errors.New("deployer must not be the zero address")
	}
	if c.HTTPPort < 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("http_port %d out of range", c.HTTPPort)
	}
	if c.MaxBatchSize < 0 {
		return fmt.Errorf("max_batch_size %d must not be negative", c.MaxBatchSize)
	}
	switch strings.ToLower(c.MembershipPolicy) {
	case "idempotent", "strict":
	default:
		return fmt.Errorf("unknown membership_policy %q", c.MembershipPolicy)
	}
	return nil
}

// DeployerAddress 返回部署者地址。
func (c *Config) DeployerAddress() common.Address {
	return common.HexToAddress(c.Deployer)
}
