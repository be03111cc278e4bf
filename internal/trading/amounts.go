package trading

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// tokenDecimals Arena 代币固定 18 位小数
const tokenDecimals = 18

// AvaxToWei 把 AVAX 数量转换为 wei
func AvaxToWei(amount decimal.Decimal) *big.Int {
	return amount.Shift(18).Truncate(0).BigInt()
}

// MinTokensOut 按负滑点计算可接受的最少代币数量
// quoted 为询价合约返回的原始数量（18 位小数）
// 先扣掉 slippagePercent 的滑点，再向下取整到整数个代币
func MinTokensOut(quoted *big.Int, slippagePercent int64) *big.Int {
	if quoted == nil || quoted.Sign() <= 0 {
		return big.NewInt(0)
	}
	d := decimal.NewFromBigInt(quoted, -tokenDecimals)
	d = d.Mul(decimal.NewFromInt(100 - slippagePercent)).Div(decimal.NewFromInt(100))
	return d.Floor().Shift(tokenDecimals).BigInt()
}

// SellTokenCount 计算按百分比卖出的代币数量（整数个代币）
// balance 是已归一化的代币余额，percent 允许小数（如 12.5）
// 只对整数部分取百分比并向下取整，余额不足一个代币或结果为零时返回零
func SellTokenCount(balance decimal.Decimal, percent decimal.Decimal) decimal.Decimal {
	whole := balance.Floor()
	if whole.Sign() <= 0 {
		return decimal.Zero
	}
	return whole.Mul(percent).Div(decimal.NewFromInt(100)).Floor()
}

// TokensToRaw 把整数个代币转换为链上原始数量
func TokensToRaw(tokens decimal.Decimal, decimals int32) *big.Int {
	return tokens.Shift(decimals).Truncate(0).BigInt()
}

// NormalizeRaw 把链上原始数量按精度归一化
func NormalizeRaw(raw *big.Int, decimals int32) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -decimals)
}
