package domain

import (
	"strings"
	"time"
)

// RiskLevel 创建者风险等级
type RiskLevel int

const (
	// RiskPending 尚未收到创建者分析
	RiskPending RiskLevel = iota
	// RiskSafe 创建者历史干净
	RiskSafe
	// RiskRisky 创建者有 rug 历史
	RiskRisky
)

// String 返回风险等级的展示文本
func (r RiskLevel) String() string {
	switch r {
	case RiskSafe:
		return "Safe"
	case RiskRisky:
		return "Risky"
	default:
		return "Pending"
	}
}

// RiskStatus 代币的风险状态（封闭标签联合，在事件解析边界固定）
// RuggedCount 仅在 Level == RiskRisky 时有意义
type RiskStatus struct {
	Level       RiskLevel `json:"level"`
	RuggedCount int       `json:"rugged_count,omitempty"`
}

// Token 通过推送通道发现的新代币
// ContractAddress 是身份键（规范化为小写），创建后不再变化；
// Risk / BondingPercent / Sniped 是可变的派生字段
type Token struct {
	ContractAddress  string    `json:"token_contract_address"`
	CreatorAddress   string    `json:"creator_address"`
	CreatorTwitter   string    `json:"creator_twitter_handle,omitempty"`
	CreatorFollowers int64     `json:"creator_twitter_followers,omitempty"`
	CreateTime       time.Time `json:"create_time"`
	Name             string    `json:"token_name"`
	Symbol           string    `json:"token_symbol"`
	PhotoURL         string    `json:"photo_url,omitempty"`

	Risk           RiskStatus `json:"risk"`
	BondingPercent *float64   `json:"bonding_percent,omitempty"`
	Sniped         *bool      `json:"sniped,omitempty"`
}

// CanonicalAddress 规范化合约地址（小写、去空白），作为存储键使用
func CanonicalAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// CreatorAnalysis 创建者历史分析（按创建者地址 last-write-wins）
// RuggedTokens 为 nil 表示分析尚未完成（Pending）；空切片表示干净
type CreatorAnalysis struct {
	CreatorAddress string          `json:"creator_address"`
	RuggedTokens   []string        `json:"rugged_tokens"`
	CreatedTokens  map[string]bool `json:"created_tokens,omitempty"`
	LastUpdated    time.Time       `json:"last_updated"`
}

// BondingUpdate 联合曲线进度更新（按代币地址 last-write-wins）
type BondingUpdate struct {
	ContractAddress string  `json:"token_contract_address"`
	BondingPercent  float64 `json:"bonding_percent"`
	Sniped          bool    `json:"sniped"`
}

// TradeDirection 交易方向
type TradeDirection string

const (
	TradeBuy  TradeDirection = "buy"
	TradeSell TradeDirection = "sell"
)

// TradeRequest 交易请求（瞬态，不持久化）
// Buy: Amount 为 AVAX 数量；Sell: Amount 为持仓百分比（0-100，允许小数）
type TradeRequest struct {
	ContractAddress string
	Direction       TradeDirection
	Amount          float64
}

// TradeRecord 已确认交易的记录（写入本地历史库）
type TradeRecord struct {
	ID              string
	ContractAddress string
	TokenSymbol     string
	Direction       TradeDirection
	AmountIn        string // buy: AVAX 数量；sell: 卖出的代币数量
	TxHash          string
	BlockNumber     uint64
	ExecutedAt      time.Time
}
