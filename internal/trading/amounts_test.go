package trading

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokens(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

func TestMinTokensOut(t *testing.T) {
	// 报价 1000 个代币，1% 滑点后最少 990 个
	got := MinTokensOut(tokens(1000), 1)
	assert.Equal(t, tokens(990).String(), got.String())

	// 滑点计算结果带小数时向下取整到整代币
	// 报价 1001 个，1% 滑点 => 990.99 => 990
	got = MinTokensOut(tokens(1001), 1)
	assert.Equal(t, tokens(990).String(), got.String())

	assert.Equal(t, "0", MinTokensOut(nil, 1).String())
	assert.Equal(t, "0", MinTokensOut(big.NewInt(0), 1).String())
}

func TestSellTokenCount(t *testing.T) {
	pct := decimal.NewFromInt

	// 余额 10.7，卖 50% => 整数部分 10 的一半 = 5
	balance := decimal.RequireFromString("10.7")
	assert.True(t, SellTokenCount(balance, pct(50)).Equal(decimal.NewFromInt(5)))

	// 余额 1，卖 5% => 0.05 向下取整 = 0，调用方应放弃
	assert.True(t, SellTokenCount(decimal.NewFromInt(1), pct(5)).IsZero())

	// 余额不足一个代币时直接为零
	assert.True(t, SellTokenCount(decimal.RequireFromString("0.9"), pct(100)).IsZero())

	// 卖出 100% 时只卖整数部分
	assert.True(t, SellTokenCount(decimal.RequireFromString("10.7"), pct(100)).Equal(decimal.NewFromInt(10)))

	// 比例允许小数：8 个代币卖 12.5% = 1 个
	assert.True(t, SellTokenCount(decimal.NewFromInt(8), decimal.RequireFromString("12.5")).Equal(decimal.NewFromInt(1)))

	// 小数比例结果不足一个代币时向下取整到零
	assert.True(t, SellTokenCount(decimal.NewFromInt(4), decimal.RequireFromString("12.5")).IsZero())
}

func TestTokensToRawRoundTrip(t *testing.T) {
	raw := TokensToRaw(decimal.NewFromInt(5), 18)
	assert.Equal(t, tokens(5).String(), raw.String())

	back := NormalizeRaw(raw, 18)
	assert.True(t, back.Equal(decimal.NewFromInt(5)))
}

func TestAvaxToWei(t *testing.T) {
	wei := AvaxToWei(decimal.RequireFromString("1.5"))
	require.Equal(t, "1500000000000000000", wei.String())
}

func TestNormalizeRaw(t *testing.T) {
	raw, ok := new(big.Int).SetString("10700000000000000000", 10)
	require.True(t, ok)
	assert.Equal(t, "10.7", NormalizeRaw(raw, 18).String())
	assert.True(t, NormalizeRaw(nil, 18).IsZero())
}
