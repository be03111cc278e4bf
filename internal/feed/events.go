package feed

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/1Eliaaaan/rugfi-ft/internal/domain"
)

// EventKind 推送通道事件类型
type EventKind string

const (
	EventNewToken        EventKind = "newToken"
	EventCreatorAnalysis EventKind = "creatorAnalysis"
	EventBondingUpdate   EventKind = "bonding_update"
)

// Event 原样转发给订阅者的推送事件
// Data 保持原始 JSON，由消费方在解析边界转成封闭类型
type Event struct {
	Kind EventKind
	Data json.RawMessage
}

// envelope 推送通道的事件信封 {"event": "...", "data": {...}}
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// parseEnvelope 解析事件信封；未知事件类型返回 ok=false
func parseEnvelope(raw []byte) (Event, bool, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Event{}, false, fmt.Errorf("解析事件信封失败: %w", err)
	}
	kind := EventKind(strings.TrimSpace(env.Event))
	switch kind {
	case EventNewToken, EventCreatorAnalysis, EventBondingUpdate:
		return Event{Kind: kind, Data: env.Data}, true, nil
	default:
		return Event{}, false, nil
	}
}

// newTokenPayload newToken 事件的线上格式
type newTokenPayload struct {
	ContractAddress  string `json:"token_contract_address"`
	CreatorAddress   string `json:"creator_address"`
	CreatorTwitter   string `json:"creator_twitter_handle"`
	CreatorFollowers int64  `json:"creator_twitter_followers"`
	CreateTime       int64  `json:"create_time"`
	Name             string `json:"token_name"`
	Symbol           string `json:"token_symbol"`
	PhotoURL         string `json:"photo_url"`
}

// DecodeNewToken 将 newToken 事件解析为领域对象
func DecodeNewToken(data json.RawMessage) (domain.Token, error) {
	var p newTokenPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.Token{}, fmt.Errorf("解析 newToken 事件失败: %w", err)
	}
	if strings.TrimSpace(p.ContractAddress) == "" {
		return domain.Token{}, fmt.Errorf("newToken 事件缺少 token_contract_address")
	}
	return domain.Token{
		ContractAddress:  domain.CanonicalAddress(p.ContractAddress),
		CreatorAddress:   domain.CanonicalAddress(p.CreatorAddress),
		CreatorTwitter:   p.CreatorTwitter,
		CreatorFollowers: p.CreatorFollowers,
		CreateTime:       time.Unix(p.CreateTime, 0),
		Name:             p.Name,
		Symbol:           p.Symbol,
		PhotoURL:         p.PhotoURL,
		Risk:             domain.RiskStatus{Level: domain.RiskPending},
	}, nil
}

// creatorAnalysisPayload creatorAnalysis 事件的线上格式
type creatorAnalysisPayload struct {
	CreatorAddress string          `json:"creator_address"`
	RuggedTokens   []string        `json:"rugged_tokens"`
	CreatedTokens  map[string]bool `json:"created_tokens"`
	LastUpdated    int64           `json:"last_updated"`
}

// DecodeCreatorAnalysis 将 creatorAnalysis 事件解析为领域对象
func DecodeCreatorAnalysis(data json.RawMessage) (domain.CreatorAnalysis, error) {
	var p creatorAnalysisPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.CreatorAnalysis{}, fmt.Errorf("解析 creatorAnalysis 事件失败: %w", err)
	}
	if strings.TrimSpace(p.CreatorAddress) == "" {
		return domain.CreatorAnalysis{}, fmt.Errorf("creatorAnalysis 事件缺少 creator_address")
	}
	return domain.CreatorAnalysis{
		CreatorAddress: domain.CanonicalAddress(p.CreatorAddress),
		RuggedTokens:   p.RuggedTokens,
		CreatedTokens:  p.CreatedTokens,
		LastUpdated:    time.Unix(p.LastUpdated, 0),
	}, nil
}

// bondingUpdatePayload bonding_update 事件的线上格式
type bondingUpdatePayload struct {
	ContractAddress string  `json:"token_contract_address"`
	BondingPercent  float64 `json:"bonding_percent"`
	Sniped          bool    `json:"sniped"`
}

// DecodeBondingUpdate 将 bonding_update 事件解析为领域对象
func DecodeBondingUpdate(data json.RawMessage) (domain.BondingUpdate, error) {
	var p bondingUpdatePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.BondingUpdate{}, fmt.Errorf("解析 bonding_update 事件失败: %w", err)
	}
	if strings.TrimSpace(p.ContractAddress) == "" {
		return domain.BondingUpdate{}, fmt.Errorf("bonding_update 事件缺少 token_contract_address")
	}
	return domain.BondingUpdate{
		ContractAddress: domain.CanonicalAddress(p.ContractAddress),
		BondingPercent:  p.BondingPercent,
		Sniped:          p.Sniped,
	}, nil
}
