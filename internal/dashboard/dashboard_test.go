package dashboard

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1Eliaaaan/rugfi-ft/internal/arena"
	"github.com/1Eliaaaan/rugfi-ft/internal/trading"
)

func pressKey(t *testing.T, m model, msg tea.KeyMsg) model {
	t.Helper()
	nm, _ := m.Update(msg)
	return nm.(model)
}

func pressRune(t *testing.T, m model, r rune) model {
	t.Helper()
	return pressKey(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
}

func TestShorten(t *testing.T) {
	assert.Equal(t, "abc", shorten("abc", 5))
	assert.Equal(t, "abcde", shorten("abcde", 5))
	assert.Equal(t, "abc..", shorten("abcdef", 5))
}

func TestFormatAge(t *testing.T) {
	assert.Equal(t, "-", formatAge(time.Time{}))
	assert.Equal(t, "30s", formatAge(time.Now().Add(-30*time.Second)))
	assert.Equal(t, "5m", formatAge(time.Now().Add(-5*time.Minute)))
	assert.Equal(t, "2h05m", formatAge(time.Now().Add(-125*time.Minute)))
}

func TestFormatBonding(t *testing.T) {
	assert.Equal(t, "-", formatBonding(nil))
	v := 42.55
	assert.Equal(t, "42.5%", formatBonding(&v))
}

func TestFilterHoldings(t *testing.T) {
	items := []arena.Holding{
		{TokenSymbol: "ALPHA", TokenName: "Alpha Token"},
		{TokenSymbol: "BETA", TokenName: "Beta Token"},
		{TokenSymbol: "RUGFI", TokenName: "RugFi"},
	}

	// 空查询原样返回
	assert.Len(t, filterHoldings(items, ""), 3)

	// 符号匹配，大小写不敏感
	got := filterHoldings(items, "alp")
	require.Len(t, got, 1)
	assert.Equal(t, "ALPHA", got[0].TokenSymbol)

	// 名称也参与匹配
	got = filterHoldings(items, "token")
	assert.Len(t, got, 2)

	assert.Empty(t, filterHoldings(items, "zzz"))
}

func TestParsePresetInput(t *testing.T) {
	d, err := parsePresetInput(" 2.5 ")
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.RequireFromString("2.5")))

	_, err = parsePresetInput("0")
	require.Error(t, err)
	_, err = parsePresetInput("-1")
	require.Error(t, err)
	_, err = parsePresetInput("abc")
	require.Error(t, err)
}

func TestLogoutKeyDisconnectsWallet(t *testing.T) {
	called := false
	m := model{deps: Deps{
		Executor:      &trading.Executor{},
		WalletAddress: "0xabc",
		Logout:        func() error { called = true; return nil },
	}}

	m = pressRune(t, m, 'D')

	assert.True(t, called, "断开钱包应调用 Logout 回调")
	assert.Nil(t, m.deps.Executor, "断开后应切回只看模式")
	assert.Empty(t, m.deps.WalletAddress)
	assert.Empty(t, m.tokens)
}

func TestLogoutWithoutSupportIsNoop(t *testing.T) {
	m := model{deps: Deps{WalletAddress: "0xabc"}}
	m = pressRune(t, m, 'D')
	assert.Equal(t, "0xabc", m.deps.WalletAddress)
}

func TestPresetAddAndRemove(t *testing.T) {
	var saved []decimal.Decimal
	m := model{deps: Deps{
		Executor:    &trading.Executor{},
		BuyPresets:  []decimal.Decimal{decimal.NewFromInt(1), decimal.NewFromInt(2)},
		SavePresets: func(ps []decimal.Decimal) error { saved = ps; return nil },
	}}

	// "+" 进入输入模式，输入 5 后回车新增档位
	m = pressRune(t, m, '+')
	assert.Equal(t, inputPreset, m.inputMode)
	m = pressRune(t, m, '5')
	m = pressKey(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	require.Len(t, m.deps.BuyPresets, 3)
	assert.True(t, m.deps.BuyPresets[2].Equal(decimal.NewFromInt(5)))
	require.Len(t, saved, 3, "新增档位应立即持久化")

	// 档位已满时拒绝继续新增
	m = pressRune(t, m, '+')
	assert.Equal(t, inputNone, m.inputMode)

	// "-" 删除末位档位并持久化
	m = pressRune(t, m, '-')
	require.Len(t, m.deps.BuyPresets, 2)
	require.Len(t, saved, 2)

	// 至少保留一个档位
	m = pressRune(t, m, '-')
	m = pressRune(t, m, '-')
	assert.Len(t, m.deps.BuyPresets, 1)
}

func TestPresetInvalidInputRejected(t *testing.T) {
	m := model{deps: Deps{
		Executor:   &trading.Executor{},
		BuyPresets: []decimal.Decimal{decimal.NewFromInt(1)},
	}}

	m = pressRune(t, m, '+')
	m = pressRune(t, m, 'x')
	m = pressKey(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Len(t, m.deps.BuyPresets, 1, "非法输入不应改变档位")
	assert.Equal(t, inputNone, m.inputMode)
}

func TestHoldingsFilterInput(t *testing.T) {
	m := model{showHoldings: true}

	m = pressRune(t, m, '/')
	assert.Equal(t, inputFilter, m.inputMode)

	m = pressRune(t, m, 'a')
	m = pressRune(t, m, 'b')
	m = pressKey(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	m = pressRune(t, m, 'l')
	m = pressKey(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, "al", m.holdingsFilter)
	assert.Equal(t, inputNone, m.inputMode)

	// esc 清空过滤
	m = pressRune(t, m, '/')
	m = pressKey(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Empty(t, m.holdingsFilter)
}

func TestFormatQuantity(t *testing.T) {
	h := arena.Holding{TokenQuantity: "2500000000000000000", TokenDecimals: 18}
	assert.Equal(t, "2", formatQuantity(h))

	h = arena.Holding{TokenQuantity: "500", TokenDecimals: 18}
	assert.Equal(t, "<1", formatQuantity(h))

	h = arena.Holding{TokenQuantity: "42", TokenDecimals: 0}
	assert.Equal(t, "42", formatQuantity(h))
}
