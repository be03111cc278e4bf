package trading

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// TokenIDResolver 合约地址到链上 token id 的解析
type TokenIDResolver interface {
	TokenID(ctx context.Context, contract string) (*big.Int, error)
}

// Quote 一次询价的结果
type Quote struct {
	// TokenID 链上 token id
	TokenID *big.Int
	// TokenAmount 可兑换的代币原始数量（18 位小数）
	TokenAmount *big.Int
	// Price 单价
	Price *big.Int
}

// PriceOracle 买入询价
// 先通过 Arena API 把合约地址换成 token id，再调用询价合约
type PriceOracle struct {
	backend    Backend
	calculator common.Address
	calcABI    abi.ABI
	resolver   TokenIDResolver
}

// NewPriceOracle 创建询价服务
func NewPriceOracle(backend Backend, calculator common.Address, resolver TokenIDResolver) (*PriceOracle, error) {
	calcABI, err := abi.JSON(strings.NewReader(CalculatorABI))
	if err != nil {
		return nil, fmt.Errorf("解析询价合约 ABI失败: %w", err)
	}
	return &PriceOracle{
		backend:    backend,
		calculator: calculator,
		calcABI:    calcABI,
		resolver:   resolver,
	}, nil
}

// QuoteBuy 询价：给定 AVAX（wei）可以买到多少代币
func (o *PriceOracle) QuoteBuy(ctx context.Context, contract string, avaxWei *big.Int) (*Quote, error) {
	if avaxWei == nil || avaxWei.Sign() <= 0 {
		return nil, fmt.Errorf("AVAX数量必须大于0")
	}

	tokenID, err := o.resolver.TokenID(ctx, contract)
	if err != nil {
		return nil, fmt.Errorf("解析token id失败: %w", err)
	}

	data, err := o.calcABI.Pack("calculatePurchaseAmountAndPrice", avaxWei, tokenID)
	if err != nil {
		return nil, fmt.Errorf("打包询价参数失败: %w", err)
	}

	result, err := o.backend.CallContract(ctx, ethereum.CallMsg{
		To:   &o.calculator,
		Data: data,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("调用询价合约失败: %w", err)
	}

	out, err := o.calcABI.Unpack("calculatePurchaseAmountAndPrice", result)
	if err != nil {
		return nil, fmt.Errorf("解析询价结果失败: %w", err)
	}
	if len(out) != 2 {
		return nil, fmt.Errorf("询价结果字段数量异常: %d", len(out))
	}
	tokenAmount, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("询价结果类型异常")
	}
	price, ok := out[1].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("询价结果类型异常")
	}

	return &Quote{TokenID: tokenID, TokenAmount: tokenAmount, Price: price}, nil
}
