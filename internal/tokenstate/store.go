// Package tokenstate 维护代币列表的权威内存状态
// 三条推送事件流（新代币、创建者分析、bonding 进度）可能以任意顺序到达，
// 本包负责把它们合并为一致的最终状态：相同事件集合无论到达顺序如何，
// 合并结果必须一致
package tokenstate

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/1Eliaaaan/rugfi-ft/internal/domain"
	"github.com/1Eliaaaan/rugfi-ft/internal/feed"
)

var log = logrus.WithField("module", "tokenstate")

// Store 代币状态存储
// 所有变更方法都是幂等的，读取通过 Snapshot 返回完整拷贝
type Store struct {
	mu sync.RWMutex

	// tokens 按规范化（小写）合约地址索引
	tokens map[string]*domain.Token
	// order 展示顺序，新代币在前
	order []string
	// analyses 按规范化创建者地址缓存的分析结果
	// 分析事件可能先于对应代币到达，缓存保证后到的代币也能立即拿到风险状态
	analyses map[string]*domain.CreatorAnalysis

	// maxTokens 列表上限，0 表示不限制，超出时淘汰最旧的代币
	maxTokens int

	// onChange 状态变更回调，非阻塞通知 UI 刷新
	onChange func()
}

// Option Store 可选配置
type Option func(*Store)

// WithMaxTokens 设置列表上限
func WithMaxTokens(n int) Option {
	return func(s *Store) { s.maxTokens = n }
}

// WithOnChange 设置变更回调
func WithOnChange(fn func()) Option {
	return func(s *Store) { s.onChange = fn }
}

// NewStore 创建代币状态存储
func NewStore(opts ...Option) *Store {
	s := &Store{
		tokens:   make(map[string]*domain.Token),
		analyses: make(map[string]*domain.CreatorAnalysis),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ApplyTokenCreated 合并新代币事件
// 相同合约地址重复到达时保留首次记录，返回是否真正插入
func (s *Store) ApplyTokenCreated(t domain.Token) bool {
	addr := domain.CanonicalAddress(t.ContractAddress)
	if addr == "" {
		return false
	}
	t.ContractAddress = addr
	t.CreatorAddress = domain.CanonicalAddress(t.CreatorAddress)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tokens[addr]; ok {
		log.Debugf("重复的代币创建事件，忽略: %s", addr)
		return false
	}

	// 若创建者分析已先行到达，立即套用，不等下一条分析事件
	if a, ok := s.analyses[t.CreatorAddress]; ok {
		t.Risk = Classify(a)
	} else {
		t.Risk = domain.RiskStatus{Level: domain.RiskPending}
	}

	s.tokens[addr] = &t
	s.order = append([]string{addr}, s.order...)
	s.evictLocked()
	s.notifyLocked()
	return true
}

// ApplyCreatorAnalysis 合并创建者分析事件
// 同一创建者以最新分析为准，并重算该创建者名下所有已知代币的风险状态
func (s *Store) ApplyCreatorAnalysis(a domain.CreatorAnalysis) {
	creator := domain.CanonicalAddress(a.CreatorAddress)
	if creator == "" {
		return
	}
	a.CreatorAddress = creator

	s.mu.Lock()
	defer s.mu.Unlock()

	s.analyses[creator] = &a

	risk := Classify(&a)
	changed := false
	for _, t := range s.tokens {
		if t.CreatorAddress != creator {
			continue
		}
		// 风险状态单调：一旦判定为 Safe/Risky 不会退回 Pending
		if risk.Level == domain.RiskPending && t.Risk.Level != domain.RiskPending {
			continue
		}
		if t.Risk != risk {
			t.Risk = risk
			changed = true
		}
	}
	if changed {
		s.notifyLocked()
	}
}

// ApplyBondingUpdate 合并 bonding 进度事件
// 进度字段整体覆盖，未知代币的事件直接丢弃，返回是否应用成功
func (s *Store) ApplyBondingUpdate(u domain.BondingUpdate) bool {
	addr := domain.CanonicalAddress(u.ContractAddress)

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[addr]
	if !ok {
		log.Debugf("未知代币的 bonding 事件，丢弃: %s", addr)
		return false
	}

	pct := u.BondingPercent
	sniped := u.Sniped
	t.BondingPercent = &pct
	t.Sniped = &sniped
	s.notifyLocked()
	return true
}

// LoadInitial 载入启动快照
// 快照按给定顺序追加到列表末尾，已存在的代币跳过
func (s *Store) LoadInitial(tokens []domain.Token) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	loaded := 0
	for i := range tokens {
		t := tokens[i]
		addr := domain.CanonicalAddress(t.ContractAddress)
		if addr == "" {
			continue
		}
		if _, ok := s.tokens[addr]; ok {
			continue
		}
		t.ContractAddress = addr
		t.CreatorAddress = domain.CanonicalAddress(t.CreatorAddress)
		if a, ok := s.analyses[t.CreatorAddress]; ok {
			t.Risk = Classify(a)
		} else if t.Risk == (domain.RiskStatus{}) {
			t.Risk = domain.RiskStatus{Level: domain.RiskPending}
		}
		s.tokens[addr] = &t
		s.order = append(s.order, addr)
		loaded++
	}
	s.evictLocked()
	if loaded > 0 {
		s.notifyLocked()
	}
	return loaded
}

// Snapshot 返回当前列表的完整拷贝，按展示顺序排列
// 调用方拿到的是独立副本，后续变更不会影响已返回的切片
func (s *Store) Snapshot() []domain.Token {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Token, 0, len(s.order))
	for _, addr := range s.order {
		t := s.tokens[addr]
		cp := *t
		if t.BondingPercent != nil {
			v := *t.BondingPercent
			cp.BondingPercent = &v
		}
		if t.Sniped != nil {
			v := *t.Sniped
			cp.Sniped = &v
		}
		out = append(out, cp)
	}
	return out
}

// Get 按合约地址查找代币，返回副本
func (s *Store) Get(addr string) (domain.Token, bool) {
	addr = domain.CanonicalAddress(addr)

	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tokens[addr]
	if !ok {
		return domain.Token{}, false
	}
	cp := *t
	if t.BondingPercent != nil {
		v := *t.BondingPercent
		cp.BondingPercent = &v
	}
	if t.Sniped != nil {
		v := *t.Sniped
		cp.Sniped = &v
	}
	return cp, true
}

// Len 当前代币数量
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Reset 清空全部状态，重连后重新收流时使用
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens = make(map[string]*domain.Token)
	s.analyses = make(map[string]*domain.CreatorAnalysis)
	s.order = nil
	s.notifyLocked()
}

// Run 消费事件通道直到 ctx 结束或通道关闭
// 单条事件解析失败只记录日志并跳过，不中断消费
func (s *Store) Run(ctx context.Context, events <-chan feed.Event) {
	log.Info("代币状态合并循环启动")
	for {
		select {
		case <-ctx.Done():
			log.Info("代币状态合并循环退出")
			return
		case ev, ok := <-events:
			if !ok {
				log.Info("事件通道已关闭，合并循环退出")
				return
			}
			s.apply(ev)
		}
	}
}

func (s *Store) apply(ev feed.Event) {
	switch ev.Kind {
	case feed.EventNewToken:
		t, err := feed.DecodeNewToken(ev.Data)
		if err != nil {
			log.Warnf("newToken 事件解析失败，跳过: %v", err)
			return
		}
		s.ApplyTokenCreated(t)
	case feed.EventCreatorAnalysis:
		a, err := feed.DecodeCreatorAnalysis(ev.Data)
		if err != nil {
			log.Warnf("creatorAnalysis 事件解析失败，跳过: %v", err)
			return
		}
		s.ApplyCreatorAnalysis(a)
	case feed.EventBondingUpdate:
		u, err := feed.DecodeBondingUpdate(ev.Data)
		if err != nil {
			log.Warnf("bonding_update 事件解析失败，跳过: %v", err)
			return
		}
		s.ApplyBondingUpdate(u)
	default:
		log.Debugf("未识别的事件类型: %s", ev.Kind)
	}
}

// evictLocked 超出上限时从列表末尾淘汰最旧的代币，须持有写锁
func (s *Store) evictLocked() {
	if s.maxTokens <= 0 {
		return
	}
	for len(s.order) > s.maxTokens {
		last := s.order[len(s.order)-1]
		s.order = s.order[:len(s.order)-1]
		delete(s.tokens, last)
	}
}

// notifyLocked 触发变更回调，须持有锁
func (s *Store) notifyLocked() {
	if s.onChange != nil {
		s.onChange()
	}
}
