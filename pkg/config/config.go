package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FeedConfig 推送通道配置
type FeedConfig struct {
	URL                  string        // 推送通道地址（wss://...）
	HandshakeTimeout     time.Duration // 连接握手超时
	ReconnectDelay       time.Duration // 重连间隔
	MaxReconnectAttempts int           // 最大自动重连次数，超过则进入 Failed 终态
}

// ChainConfig 链上交互配置（Avalanche C-Chain / Arena 合约）
type ChainConfig struct {
	RPCURL             string
	ChainID            int64
	ProxyContract      string // buyAndCreateLpIfPossible 所在的代理合约
	CalculatorContract string // calculatePurchaseAmountAndPrice 所在的报价合约
	SellContract       string // sell 所在的合约（当前与 Proxy 相同）
	GateToken          string // 登录门槛代币（RUGFI）
	MinGateBalance     string // 登录所需的最小门槛代币余额（整代币数）
	BuyGasLimit        uint64
	SellGasLimit       uint64
	SlippagePercent    int64 // 买入负滑点百分比
}

// ArenaConfig Arena REST 接口配置
type ArenaConfig struct {
	APIBase       string // token-id 查询与最近代币列表
	RoutescanBase string // 钱包 ERC-20 持仓列表
}

// StoreConfig 状态存储配置
type StoreConfig struct {
	MaxTokens    int  // 可见集合容量上限（0 表示不限制）
	LoadSnapshot bool // 启动时从列表接口加载一次初始快照
}

// APIConfig 本地只读状态接口配置
type APIConfig struct {
	Enabled bool
	Listen  string
}

// DataConfig 本地数据路径
type DataConfig struct {
	SecretsPath   string // badger 凭据库目录
	HistoryDBPath string // sqlite 交易历史库
}

// Config 应用配置
type Config struct {
	Feed     FeedConfig
	Chain    ChainConfig
	Arena    ArenaConfig
	Store    StoreConfig
	API      APIConfig
	Data     DataConfig
	LogLevel string
	LogFile  string
}

// configFile 配置文件结构（YAML 解析）
type configFile struct {
	Feed struct {
		URL                  string `yaml:"url"`
		HandshakeTimeoutSec  int    `yaml:"handshake_timeout_sec"`
		ReconnectDelaySec    int    `yaml:"reconnect_delay_sec"`
		MaxReconnectAttempts int    `yaml:"max_reconnect_attempts"`
	} `yaml:"feed"`
	Chain struct {
		RPCURL             string `yaml:"rpc_url"`
		ChainID            int64  `yaml:"chain_id"`
		ProxyContract      string `yaml:"proxy_contract"`
		CalculatorContract string `yaml:"calculator_contract"`
		SellContract       string `yaml:"sell_contract"`
		GateToken          string `yaml:"gate_token"`
		MinGateBalance     string `yaml:"min_gate_balance"`
		BuyGasLimit        uint64 `yaml:"buy_gas_limit"`
		SellGasLimit       uint64 `yaml:"sell_gas_limit"`
		SlippagePercent    int64  `yaml:"slippage_percent"`
	} `yaml:"chain"`
	Arena struct {
		APIBase       string `yaml:"api_base"`
		RoutescanBase string `yaml:"routescan_base"`
	} `yaml:"arena"`
	Store struct {
		MaxTokens    *int `yaml:"max_tokens"`
		LoadSnapshot bool `yaml:"load_snapshot"`
	} `yaml:"store"`
	API struct {
		Enabled bool   `yaml:"enabled"`
		Listen  string `yaml:"listen"`
	} `yaml:"api"`
	Data struct {
		SecretsPath   string `yaml:"secrets_path"`
		HistoryDBPath string `yaml:"history_db_path"`
	} `yaml:"data"`
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
}

// Default 返回 Arena 主网默认配置
func Default() *Config {
	return &Config{
		Feed: FeedConfig{
			URL:                  "wss://web-production-c0567.up.railway.app/socket",
			HandshakeTimeout:     10 * time.Second,
			ReconnectDelay:       5 * time.Second,
			MaxReconnectAttempts: 3,
		},
		Chain: ChainConfig{
			RPCURL:             "https://api.avax.network/ext/bc/C/rpc",
			ChainID:            43114,
			ProxyContract:      "0x8315f1eb449Dd4B779495C3A0b05e5d194446c6e",
			CalculatorContract: "0xBE3F25BF9Bc1bDae9238f3c9153Da93Fd4E7B927",
			SellContract:       "0x8315f1eb449Dd4B779495C3A0b05e5d194446c6e",
			GateToken:          "0xe4C1FC4D3A0f67fE9AC583C92Dd3C460df0C15Fe",
			MinGateBalance:     "15000000", // 15M RUGFI
			BuyGasLimit:        300000,
			SellGasLimit:       500000,
			SlippagePercent:    1,
		},
		Arena: ArenaConfig{
			APIBase:       "https://api.arena.trade",
			RoutescanBase: "https://cdn.routescan.io",
		},
		Store: StoreConfig{
			MaxTokens:    100,
			LoadSnapshot: false,
		},
		API: APIConfig{
			Enabled: false,
			Listen:  "127.0.0.1:7311",
		},
		Data: DataConfig{
			SecretsPath:   "data/secrets",
			HistoryDBPath: "data/history.db",
		},
		LogLevel: "info",
		LogFile:  "logs/rugfi.log",
	}
}

// LoadFromFile 从 YAML 文件加载配置（文件可选），再应用环境变量覆盖
// 优先级：环境变量 > 配置文件 > 默认值
func LoadFromFile(filePath string) (*Config, error) {
	cfg := Default()

	if strings.TrimSpace(filePath) != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("读取配置文件失败 %s: %w", filePath, err)
		}
		var cf configFile
		if err := yaml.Unmarshal(data, &cf); err != nil {
			return nil, fmt.Errorf("解析配置文件失败 %s: %w", filePath, err)
		}
		applyFile(cfg, &cf)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, cf *configFile) {
	if cf.Feed.URL != "" {
		cfg.Feed.URL = cf.Feed.URL
	}
	if cf.Feed.HandshakeTimeoutSec > 0 {
		cfg.Feed.HandshakeTimeout = time.Duration(cf.Feed.HandshakeTimeoutSec) * time.Second
	}
	if cf.Feed.ReconnectDelaySec > 0 {
		cfg.Feed.ReconnectDelay = time.Duration(cf.Feed.ReconnectDelaySec) * time.Second
	}
	if cf.Feed.MaxReconnectAttempts > 0 {
		cfg.Feed.MaxReconnectAttempts = cf.Feed.MaxReconnectAttempts
	}

	if cf.Chain.RPCURL != "" {
		cfg.Chain.RPCURL = cf.Chain.RPCURL
	}
	if cf.Chain.ChainID != 0 {
		cfg.Chain.ChainID = cf.Chain.ChainID
	}
	if cf.Chain.ProxyContract != "" {
		cfg.Chain.ProxyContract = cf.Chain.ProxyContract
	}
	if cf.Chain.CalculatorContract != "" {
		cfg.Chain.CalculatorContract = cf.Chain.CalculatorContract
	}
	if cf.Chain.SellContract != "" {
		cfg.Chain.SellContract = cf.Chain.SellContract
	}
	if cf.Chain.GateToken != "" {
		cfg.Chain.GateToken = cf.Chain.GateToken
	}
	if cf.Chain.MinGateBalance != "" {
		cfg.Chain.MinGateBalance = cf.Chain.MinGateBalance
	}
	if cf.Chain.BuyGasLimit > 0 {
		cfg.Chain.BuyGasLimit = cf.Chain.BuyGasLimit
	}
	if cf.Chain.SellGasLimit > 0 {
		cfg.Chain.SellGasLimit = cf.Chain.SellGasLimit
	}
	if cf.Chain.SlippagePercent > 0 {
		cfg.Chain.SlippagePercent = cf.Chain.SlippagePercent
	}

	if cf.Arena.APIBase != "" {
		cfg.Arena.APIBase = cf.Arena.APIBase
	}
	if cf.Arena.RoutescanBase != "" {
		cfg.Arena.RoutescanBase = cf.Arena.RoutescanBase
	}

	if cf.Store.MaxTokens != nil {
		cfg.Store.MaxTokens = *cf.Store.MaxTokens
	}
	cfg.Store.LoadSnapshot = cf.Store.LoadSnapshot

	cfg.API.Enabled = cf.API.Enabled
	if cf.API.Listen != "" {
		cfg.API.Listen = cf.API.Listen
	}

	if cf.Data.SecretsPath != "" {
		cfg.Data.SecretsPath = cf.Data.SecretsPath
	}
	if cf.Data.HistoryDBPath != "" {
		cfg.Data.HistoryDBPath = cf.Data.HistoryDBPath
	}
	if cf.LogLevel != "" {
		cfg.LogLevel = cf.LogLevel
	}
	if cf.LogFile != "" {
		cfg.LogFile = cf.LogFile
	}
}

func applyEnv(cfg *Config) {
	cfg.Feed.URL = getEnv("RUGFI_FEED_URL", cfg.Feed.URL)
	cfg.Chain.RPCURL = getEnv("RUGFI_RPC_URL", cfg.Chain.RPCURL)
	cfg.Arena.APIBase = getEnv("RUGFI_ARENA_API", cfg.Arena.APIBase)
	cfg.Arena.RoutescanBase = getEnv("RUGFI_ROUTESCAN_API", cfg.Arena.RoutescanBase)
	cfg.Chain.MinGateBalance = getEnv("RUGFI_MIN_GATE_BALANCE", cfg.Chain.MinGateBalance)
	cfg.Data.SecretsPath = getEnv("RUGFI_SECRETS_PATH", cfg.Data.SecretsPath)
	cfg.Data.HistoryDBPath = getEnv("RUGFI_HISTORY_DB", cfg.Data.HistoryDBPath)
	cfg.LogLevel = getEnv("RUGFI_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFile = getEnv("RUGFI_LOG_FILE", cfg.LogFile)
	cfg.API.Listen = getEnv("RUGFI_API_LISTEN", cfg.API.Listen)
	cfg.API.Enabled = parseBoolEnv("RUGFI_API_ENABLED", cfg.API.Enabled)
	cfg.Store.MaxTokens = parseIntEnv("RUGFI_MAX_TOKENS", cfg.Store.MaxTokens)
	cfg.Store.LoadSnapshot = parseBoolEnv("RUGFI_LOAD_SNAPSHOT", cfg.Store.LoadSnapshot)
}

// Validate 校验必填项；缺失的启动配置是致命错误
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Feed.URL) == "" {
		return fmt.Errorf("配置缺失: feed.url 不能为空")
	}
	if strings.TrimSpace(c.Chain.RPCURL) == "" {
		return fmt.Errorf("配置缺失: chain.rpc_url 不能为空")
	}
	if strings.TrimSpace(c.Chain.ProxyContract) == "" || strings.TrimSpace(c.Chain.CalculatorContract) == "" {
		return fmt.Errorf("配置缺失: 合约地址不能为空")
	}
	if c.Feed.MaxReconnectAttempts < 0 {
		return fmt.Errorf("配置无效: max_reconnect_attempts 不能为负数")
	}
	if c.Store.MaxTokens < 0 {
		return fmt.Errorf("配置无效: max_tokens 不能为负数")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultValue
}

func parseIntEnv(key string, defaultValue int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) bool {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}
