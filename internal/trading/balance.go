package trading

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// BalanceService 链上余额查询
type BalanceService struct {
	backend Backend
	erc20   abi.ABI
}

// NewBalanceService 创建余额查询服务
func NewBalanceService(backend Backend) (*BalanceService, error) {
	erc20, err := abi.JSON(strings.NewReader(ERC20ABI))
	if err != nil {
		return nil, fmt.Errorf("解析ERC20 ABI失败: %w", err)
	}
	return &BalanceService{backend: backend, erc20: erc20}, nil
}

// TokenBalanceRaw 查询代币原始余额和精度
func (s *BalanceService) TokenBalanceRaw(ctx context.Context, token, owner common.Address) (*big.Int, int32, error) {
	data, err := s.erc20.Pack("balanceOf", owner)
	if err != nil {
		return nil, 0, fmt.Errorf("打包balanceOf参数失败: %w", err)
	}
	result, err := s.backend.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("调用balanceOf失败: %w", err)
	}
	var balance *big.Int
	if err := s.erc20.UnpackIntoInterface(&balance, "balanceOf", result); err != nil {
		return nil, 0, fmt.Errorf("解析balanceOf结果失败: %w", err)
	}

	data, err = s.erc20.Pack("decimals")
	if err != nil {
		return nil, 0, fmt.Errorf("打包decimals参数失败: %w", err)
	}
	result, err = s.backend.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("调用decimals失败: %w", err)
	}
	var decimals uint8
	if err := s.erc20.UnpackIntoInterface(&decimals, "decimals", result); err != nil {
		return nil, 0, fmt.Errorf("解析decimals结果失败: %w", err)
	}

	return balance, int32(decimals), nil
}

// TokenBalance 查询归一化后的代币余额
func (s *BalanceService) TokenBalance(ctx context.Context, token, owner common.Address) (decimal.Decimal, error) {
	raw, decimals, err := s.TokenBalanceRaw(ctx, token, owner)
	if err != nil {
		return decimal.Zero, err
	}
	return NormalizeRaw(raw, decimals), nil
}

// AVAXBalance 查询原生 AVAX 余额
func (s *BalanceService) AVAXBalance(ctx context.Context, owner common.Address) (decimal.Decimal, error) {
	wei, err := s.backend.BalanceAt(ctx, owner, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("查询AVAX余额失败: %w", err)
	}
	return NormalizeRaw(wei, 18), nil
}

// CheckGate 检查门槛代币持仓是否达标
// 返回是否达标和当前归一化余额
func (s *BalanceService) CheckGate(ctx context.Context, gateToken, owner common.Address, minBalance decimal.Decimal) (bool, decimal.Decimal, error) {
	balance, err := s.TokenBalance(ctx, gateToken, owner)
	if err != nil {
		return false, decimal.Zero, fmt.Errorf("查询门槛代币余额失败: %w", err)
	}
	return balance.GreaterThanOrEqual(minBalance), balance, nil
}
