package tokenstate

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1Eliaaaan/rugfi-ft/internal/domain"
	"github.com/1Eliaaaan/rugfi-ft/internal/feed"
)

func newToken(contract, creator string) domain.Token {
	return domain.Token{
		ContractAddress: contract,
		CreatorAddress:  creator,
		Name:            "Test Token",
		Symbol:          "TT",
		CreateTime:      time.Unix(1700000000, 0),
	}
}

func TestApplyTokenCreatedDedup(t *testing.T) {
	s := NewStore()

	first := newToken("0xABC", "0xCreator")
	first.Name = "第一条"
	require.True(t, s.ApplyTokenCreated(first))

	dup := newToken("0xabc", "0xCreator")
	dup.Name = "重复事件"
	require.False(t, s.ApplyTokenCreated(dup), "相同合约地址应去重")

	assert.Equal(t, 1, s.Len())
	got, ok := s.Get("0xAbC")
	require.True(t, ok)
	assert.Equal(t, "第一条", got.Name, "去重应保留首次记录")
	assert.Equal(t, "0xabc", got.ContractAddress, "地址应规范化为小写")
}

func TestAnalysisBeforeToken(t *testing.T) {
	s := NewStore()

	// 分析先到，代币后到，风险状态应立即生效
	s.ApplyCreatorAnalysis(domain.CreatorAnalysis{
		CreatorAddress: "0xCreator",
		RuggedTokens:   []string{"0xdead", "0xbeef"},
	})

	require.True(t, s.ApplyTokenCreated(newToken("0xabc", "0xCREATOR")))

	got, ok := s.Get("0xabc")
	require.True(t, ok)
	assert.Equal(t, domain.RiskRisky, got.Risk.Level)
	assert.Equal(t, 2, got.Risk.RuggedCount)
}

func TestTokenBeforeAnalysis(t *testing.T) {
	s := NewStore()

	require.True(t, s.ApplyTokenCreated(newToken("0xabc", "0xcreator")))
	got, _ := s.Get("0xabc")
	assert.Equal(t, domain.RiskPending, got.Risk.Level, "分析到达前应为 Pending")

	s.ApplyCreatorAnalysis(domain.CreatorAnalysis{
		CreatorAddress: "0xcreator",
		RuggedTokens:   []string{},
	})

	got, _ = s.Get("0xabc")
	assert.Equal(t, domain.RiskSafe, got.Risk.Level, "空 rugged 列表应判定为 Safe")
}

func TestRiskNeverRegressesToPending(t *testing.T) {
	s := NewStore()

	require.True(t, s.ApplyTokenCreated(newToken("0xabc", "0xcreator")))
	s.ApplyCreatorAnalysis(domain.CreatorAnalysis{
		CreatorAddress: "0xcreator",
		RuggedTokens:   []string{"0xdead"},
	})

	// rugged 列表未知的分析不应把已判定状态拉回 Pending
	s.ApplyCreatorAnalysis(domain.CreatorAnalysis{
		CreatorAddress: "0xcreator",
		RuggedTokens:   nil,
	})

	got, _ := s.Get("0xabc")
	assert.Equal(t, domain.RiskRisky, got.Risk.Level)
	assert.Equal(t, 1, got.Risk.RuggedCount)
}

func TestAnalysisCoversAllTokensOfCreator(t *testing.T) {
	s := NewStore()

	require.True(t, s.ApplyTokenCreated(newToken("0xaaa", "0xcreator")))
	require.True(t, s.ApplyTokenCreated(newToken("0xbbb", "0xcreator")))
	require.True(t, s.ApplyTokenCreated(newToken("0xccc", "0xother")))

	s.ApplyCreatorAnalysis(domain.CreatorAnalysis{
		CreatorAddress: "0xcreator",
		RuggedTokens:   []string{"0xdead"},
	})

	a, _ := s.Get("0xaaa")
	b, _ := s.Get("0xbbb")
	c, _ := s.Get("0xccc")
	assert.Equal(t, domain.RiskRisky, a.Risk.Level)
	assert.Equal(t, domain.RiskRisky, b.Risk.Level)
	assert.Equal(t, domain.RiskPending, c.Risk.Level, "其他创建者的代币不应受影响")
}

func TestBondingUpdateOverwrites(t *testing.T) {
	s := NewStore()
	require.True(t, s.ApplyTokenCreated(newToken("0xabc", "0xcreator")))

	require.True(t, s.ApplyBondingUpdate(domain.BondingUpdate{
		ContractAddress: "0xABC",
		BondingPercent:  12.5,
		Sniped:          false,
	}))
	require.True(t, s.ApplyBondingUpdate(domain.BondingUpdate{
		ContractAddress: "0xabc",
		BondingPercent:  73.2,
		Sniped:          true,
	}))

	got, _ := s.Get("0xabc")
	require.NotNil(t, got.BondingPercent)
	require.NotNil(t, got.Sniped)
	assert.Equal(t, 73.2, *got.BondingPercent, "bonding 进度应以最新事件为准")
	assert.True(t, *got.Sniped)
}

func TestBondingUpdateUnknownTokenDropped(t *testing.T) {
	s := NewStore()

	assert.False(t, s.ApplyBondingUpdate(domain.BondingUpdate{
		ContractAddress: "0xunknown",
		BondingPercent:  50,
	}), "未知代币的 bonding 事件应丢弃")
	assert.Equal(t, 0, s.Len())
}

func TestPrependOrderAndEviction(t *testing.T) {
	s := NewStore(WithMaxTokens(2))

	require.True(t, s.ApplyTokenCreated(newToken("0x001", "0xc")))
	require.True(t, s.ApplyTokenCreated(newToken("0x002", "0xc")))
	require.True(t, s.ApplyTokenCreated(newToken("0x003", "0xc")))

	snap := s.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "0x003", snap[0].ContractAddress, "新代币应排在最前")
	assert.Equal(t, "0x002", snap[1].ContractAddress)

	_, ok := s.Get("0x001")
	assert.False(t, ok, "超出上限应淘汰最旧的代币")
}

func TestSnapshotIsCopy(t *testing.T) {
	s := NewStore()
	require.True(t, s.ApplyTokenCreated(newToken("0xabc", "0xcreator")))
	require.True(t, s.ApplyBondingUpdate(domain.BondingUpdate{ContractAddress: "0xabc", BondingPercent: 10}))

	snap := s.Snapshot()
	require.Len(t, snap, 1)

	// 拿到快照后再更新状态，已返回的快照不应变化
	require.True(t, s.ApplyBondingUpdate(domain.BondingUpdate{ContractAddress: "0xabc", BondingPercent: 99}))
	assert.Equal(t, 10.0, *snap[0].BondingPercent)
}

func TestReset(t *testing.T) {
	s := NewStore()
	require.True(t, s.ApplyTokenCreated(newToken("0xabc", "0xcreator")))
	s.ApplyCreatorAnalysis(domain.CreatorAnalysis{CreatorAddress: "0xcreator", RuggedTokens: []string{}})

	s.Reset()
	assert.Equal(t, 0, s.Len())

	// 重置后旧的分析缓存也应清空
	require.True(t, s.ApplyTokenCreated(newToken("0xabc", "0xcreator")))
	got, _ := s.Get("0xabc")
	assert.Equal(t, domain.RiskPending, got.Risk.Level)
}

func TestLoadInitialAppendsAfterLive(t *testing.T) {
	s := NewStore()
	require.True(t, s.ApplyTokenCreated(newToken("0xlive", "0xc")))

	n := s.LoadInitial([]domain.Token{
		newToken("0xsnap1", "0xc"),
		newToken("0xlive", "0xc"), // 已存在，跳过
		newToken("0xsnap2", "0xc"),
	})
	assert.Equal(t, 2, n)

	snap := s.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "0xlive", snap[0].ContractAddress, "实时代币应保持在快照之前")
	assert.Equal(t, "0xsnap1", snap[1].ContractAddress)
	assert.Equal(t, "0xsnap2", snap[2].ContractAddress)
}

// TestOrderIndependence 同一批事件以不同顺序到达，最终状态必须一致
func TestOrderIndependence(t *testing.T) {
	type op func(*Store)

	token := func(s *Store) { s.ApplyTokenCreated(newToken("0xabc", "0xcreator")) }
	analysis := func(s *Store) {
		s.ApplyCreatorAnalysis(domain.CreatorAnalysis{
			CreatorAddress: "0xcreator",
			RuggedTokens:   []string{"0xdead", "0xbeef", "0xcafe"},
		})
	}
	bonding := func(s *Store) {
		s.ApplyBondingUpdate(domain.BondingUpdate{ContractAddress: "0xabc", BondingPercent: 42.5, Sniped: true})
	}

	perms := [][]op{
		{token, analysis, bonding},
		{token, bonding, analysis},
		{analysis, token, bonding},
		{analysis, bonding, token},
		{bonding, token, analysis},
		{bonding, analysis, token},
	}

	for i, perm := range perms {
		s := NewStore()
		for _, apply := range perm {
			apply(s)
		}

		got, ok := s.Get("0xabc")
		require.True(t, ok, "排列 %d: 代币应存在", i)
		assert.Equal(t, domain.RiskRisky, got.Risk.Level, "排列 %d", i)
		assert.Equal(t, 3, got.Risk.RuggedCount, "排列 %d", i)

		// bonding 先于代币到达时被丢弃，这是预期行为，进度字段允许缺失
		if got.BondingPercent != nil {
			assert.Equal(t, 42.5, *got.BondingPercent, "排列 %d", i)
			assert.True(t, *got.Sniped, "排列 %d", i)
		}
	}
}

func TestApplyMalformedEventSkipped(t *testing.T) {
	s := NewStore()

	// 缺少合约地址的事件应被跳过且不 panic
	s.apply(feed.Event{Kind: feed.EventNewToken, Data: json.RawMessage(`{"name":"no address"}`)})
	s.apply(feed.Event{Kind: feed.EventNewToken, Data: json.RawMessage(`not json`)})
	s.apply(feed.Event{Kind: "unknown_kind", Data: json.RawMessage(`{}`)})
	assert.Equal(t, 0, s.Len())

	// 之后的正常事件仍应被处理
	payload, err := json.Marshal(map[string]any{
		"token_contract_address": "0xABC",
		"creator_address":        "0xcreator",
		"name":                   "ok",
	})
	require.NoError(t, err)
	s.apply(feed.Event{Kind: feed.EventNewToken, Data: payload})
	assert.Equal(t, 1, s.Len())
}

func TestOnChangeFires(t *testing.T) {
	fired := 0
	s := NewStore(WithOnChange(func() { fired++ }))

	require.True(t, s.ApplyTokenCreated(newToken("0xA", "0xc1")))
	assert.Equal(t, 1, fired, "新代币入列应触发变更回调")

	// 重复事件不触发
	s.ApplyTokenCreated(newToken("0xA", "0xc1"))
	assert.Equal(t, 1, fired)

	s.ApplyBondingUpdate(domain.BondingUpdate{ContractAddress: "0xA", BondingPercent: 12})
	assert.Equal(t, 2, fired)

	// 不改变任何代币风险的分析不触发
	s.ApplyCreatorAnalysis(domain.CreatorAnalysis{CreatorAddress: "0xother", RuggedTokens: []string{}})
	assert.Equal(t, 2, fired)

	s.ApplyCreatorAnalysis(domain.CreatorAnalysis{CreatorAddress: "0xc1", RuggedTokens: []string{}})
	assert.Equal(t, 3, fired)

	s.Reset()
	assert.Equal(t, 4, fired, "清空列表也应通知界面刷新")
	assert.Equal(t, 0, s.Len())
}
