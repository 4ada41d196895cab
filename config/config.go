// config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Config 主配置结构
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Vault    VaultConfig
	Auth     AuthConfig
}

// ServerConfig HTTP/3服务器配置
type ServerConfig struct {
	// TLS配置
	TLSMinVersion string // "1.3"
	TLSMaxVersion string // "1.3"

	// QUIC配置
	QUICKeepAlivePeriod time.Duration // 10 * time.Second
	QUICMaxIdleTimeout  time.Duration // 5 * time.Minute
	QUICAllow0RTT       bool          // true

	// HTTP配置
	HTTPTimeout        time.Duration // 30 * time.Second
	MaxRequestBodySize int64         // 1 << 20 (1MB)

	// 证书配置
	CertValidityDays int // 365
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// BadgerDB配置
	ValueLogFileSize int64         // 64 << 20 (64MB)
	MaxBatchSize     int           // 100
	FlushInterval    time.Duration // 200 * time.Millisecond

	// 写队列配置
	WriteQueueSize      int   // 100000
	WriteBatchSoftLimit int64 // 8 * 1024 * 1024 (8MB)
	MaxCountPerTxn      int   // 500
	PerEntryOverhead    int   // 32
}

// VaultConfig 金库业务配置
type VaultConfig struct {
	// 托管资产的元信息，仅用于展示层换算
	TokenSymbol   string // "FB"
	TokenDecimals int32  // 7

	// 托管账户地址；为空时使用节点自身地址
	CustodyAddress string

	// 为 true 时只接受节点自身身份发起 initialize
	RestrictInit bool

	// 创世余额分配（金额为十进制字符串，支持小数位，按 TokenDecimals 换算）
	Genesis []GenesisAlloc
}

// GenesisAlloc 单条创世分配
type GenesisAlloc struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

// AuthConfig 认证配置
type AuthConfig struct {
	AuthEnabled bool // true：校验交易签名
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			TLSMinVersion:       "1.3",
			TLSMaxVersion:       "1.3",
			QUICKeepAlivePeriod: 10 * time.Second,
			QUICMaxIdleTimeout:  5 * time.Minute,
			QUICAllow0RTT:       true,
			HTTPTimeout:         30 * time.Second,
			MaxRequestBodySize:  1 << 20,
			CertValidityDays:    365,
		},
		Database: DatabaseConfig{
			ValueLogFileSize:    64 << 20,
			MaxBatchSize:        100,
			FlushInterval:       200 * time.Millisecond,
			WriteQueueSize:      100000,
			WriteBatchSoftLimit: 8 * 1024 * 1024,
			MaxCountPerTxn:      500,
			PerEntryOverhead:    32,
		},
		Vault: VaultConfig{
			TokenSymbol:   "FB",
			TokenDecimals: 7,
			RestrictInit:  false,
		},
		Auth: AuthConfig{
			AuthEnabled: true,
		},
	}
}

// LoadFromFile 从 JSON 文件加载配置，缺失字段使用默认值
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 验证配置合法性
func (c *Config) Validate() error {
	if c.Database.MaxBatchSize <= 0 {
		return fmt.Errorf("MaxBatchSize must be positive")
	}
	if c.Database.FlushInterval <= 0 {
		return fmt.Errorf("FlushInterval must be positive")
	}
	if c.Database.WriteQueueSize <= 0 {
		return fmt.Errorf("WriteQueueSize must be positive")
	}
	if c.Vault.TokenDecimals < 0 || c.Vault.TokenDecimals > 18 {
		return fmt.Errorf("TokenDecimals must be in [0, 18]")
	}
	for i, alloc := range c.Vault.Genesis {
		if alloc.Address == "" {
			return fmt.Errorf("genesis alloc %d: empty address", i)
		}
		if alloc.Amount == "" {
			return fmt.Errorf("genesis alloc %d: empty amount", i)
		}
	}
	return nil
}
