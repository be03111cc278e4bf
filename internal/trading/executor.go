// Package trading 实现针对 Arena bonding curve 合约的买入和卖出
// 买入走 payable 的代理合约，卖出走独立的卖出合约，
// 两者都是单笔交易、单次确认，失败不自动重试
package trading

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/1Eliaaaan/rugfi-ft/internal/domain"
	"github.com/1Eliaaaan/rugfi-ft/internal/notify"
	"github.com/1Eliaaaan/rugfi-ft/internal/wallet"
)

var log = logrus.WithField("module", "trading")

// ErrNothingToSell 余额不足一个代币，按百分比算出的卖出数量为零
var ErrNothingToSell = errors.New("可卖出数量为零")

// Recorder 成交记录持久化
type Recorder interface {
	Record(ctx context.Context, rec domain.TradeRecord) error
}

// Config 交易执行配置
type Config struct {
	ChainID         int64
	ProxyContract   common.Address
	SellContract    common.Address
	BuyGasLimit     uint64
	SellGasLimit    uint64
	SlippagePercent int64
	// ConfirmTimeout 等待上链确认的最长时间
	ConfirmTimeout time.Duration
	// ConfirmPoll 回执轮询间隔
	ConfirmPoll time.Duration
}

// DefaultConfig 返回 Avalanche C-Chain 的默认交易配置
func DefaultConfig(proxy, sell common.Address) Config {
	return Config{
		ChainID:         43114,
		ProxyContract:   proxy,
		SellContract:    sell,
		BuyGasLimit:     300000,
		SellGasLimit:    500000,
		SlippagePercent: 1,
		ConfirmTimeout:  2 * time.Minute,
		ConfirmPoll:     2 * time.Second,
	}
}

// Result 一次交易的结果
type Result struct {
	TxHash      common.Hash
	BlockNumber uint64
	// TokensOut 买入时可接受的最少代币数量（原始精度）
	TokensOut *big.Int
	// TokensSold 卖出的整数代币数量
	TokensSold decimal.Decimal
}

// Executor 交易执行器
type Executor struct {
	backend  Backend
	wallet   *wallet.Wallet
	oracle   *PriceOracle
	balances *BalanceService
	resolver TokenIDResolver
	recorder Recorder
	notifier notify.Notifier
	cfg      Config

	proxyABI abi.ABI
	sellABI  abi.ABI
}

// NewExecutor 创建交易执行器
// recorder 为 nil 时不落库，notifier 为 nil 时不发通知
func NewExecutor(
	backend Backend,
	w *wallet.Wallet,
	oracle *PriceOracle,
	balances *BalanceService,
	resolver TokenIDResolver,
	recorder Recorder,
	notifier notify.Notifier,
	cfg Config,
) (*Executor, error) {
	proxyABI, err := abi.JSON(strings.NewReader(ProxyABI))
	if err != nil {
		return nil, fmt.Errorf("解析买入合约 ABI失败: %w", err)
	}
	sellABI, err := abi.JSON(strings.NewReader(SellABI))
	if err != nil {
		return nil, fmt.Errorf("解析卖出合约 ABI失败: %w", err)
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Executor{
		backend:  backend,
		wallet:   w,
		oracle:   oracle,
		balances: balances,
		resolver: resolver,
		recorder: recorder,
		notifier: notifier,
		cfg:      cfg,
		proxyABI: proxyABI,
		sellABI:  sellABI,
	}, nil
}

// Balances 余额查询服务，界面刷新持仓时使用
func (e *Executor) Balances() *BalanceService {
	return e.balances
}

// Buy 用指定数量的 AVAX 买入代币
// 先询价，按配置的滑点算出最少可接受数量，再发送 payable 买入交易
func (e *Executor) Buy(ctx context.Context, token domain.Token, avax decimal.Decimal) (*Result, error) {
	if avax.Sign() <= 0 {
		return nil, fmt.Errorf("AVAX数量必须大于0")
	}
	avaxWei := AvaxToWei(avax)

	quote, err := e.oracle.QuoteBuy(ctx, token.ContractAddress, avaxWei)
	if err != nil {
		e.notifier.Notify(notify.LevelError, fmt.Sprintf("Quote failed for %s: %s", token.Symbol, friendlyError(err)))
		return nil, fmt.Errorf("询价失败: %w", err)
	}

	minOut := MinTokensOut(quote.TokenAmount, e.cfg.SlippagePercent)
	if minOut.Sign() <= 0 {
		e.notifier.Notify(notify.LevelError, fmt.Sprintf("Quote too small for %s, buy aborted", token.Symbol))
		return nil, fmt.Errorf("滑点后可接受数量为零，放弃买入")
	}

	data, err := e.proxyABI.Pack("buyAndCreateLpIfPossible", minOut, quote.TokenID)
	if err != nil {
		return nil, fmt.Errorf("打包买入参数失败: %w", err)
	}

	txHash, err := e.sendTx(ctx, e.cfg.ProxyContract, avaxWei, e.cfg.BuyGasLimit, data)
	if err != nil {
		e.notifier.Notify(notify.LevelError, fmt.Sprintf("Buy failed for %s: %s", token.Symbol, friendlyError(err)))
		return nil, err
	}
	e.notifier.Notify(notify.LevelInfo, fmt.Sprintf("Buy submitted for %s: %s AVAX", token.Symbol, avax.String()))
	log.Infof("买入交易已提交: token=%s tx=%s", token.ContractAddress, txHash.Hex())

	receipt, err := e.waitMined(ctx, txHash)
	if err != nil {
		e.notifier.Notify(notify.LevelError, fmt.Sprintf("Buy failed for %s: %s", token.Symbol, friendlyError(err)))
		return nil, err
	}

	e.notifier.Notify(notify.LevelSuccess, fmt.Sprintf("Buy confirmed for %s in block %d", token.Symbol, receipt.BlockNumber.Uint64()))
	e.record(ctx, token, domain.TradeBuy, avax.String()+" AVAX", txHash, receipt.BlockNumber.Uint64())

	return &Result{
		TxHash:      txHash,
		BlockNumber: receipt.BlockNumber.Uint64(),
		TokensOut:   minOut,
	}, nil
}

// Execute 按交易请求执行买入或卖出
// Buy 的 Amount 是 AVAX 数量，Sell 的 Amount 是持仓百分比（允许小数）
func (e *Executor) Execute(ctx context.Context, token domain.Token, req domain.TradeRequest) (*Result, error) {
	if req.ContractAddress != "" && domain.CanonicalAddress(req.ContractAddress) != token.ContractAddress {
		return nil, fmt.Errorf("交易请求与代币不匹配: %s != %s", req.ContractAddress, token.ContractAddress)
	}
	switch req.Direction {
	case domain.TradeBuy:
		return e.Buy(ctx, token, decimal.NewFromFloat(req.Amount))
	case domain.TradeSell:
		return e.Sell(ctx, token, decimal.NewFromFloat(req.Amount))
	default:
		return nil, fmt.Errorf("未知的交易方向: %q", req.Direction)
	}
}

// Sell 按百分比卖出持仓
// 只卖余额整数部分的 percent%，向下取整到整数个代币，结果为零则放弃
func (e *Executor) Sell(ctx context.Context, token domain.Token, percent decimal.Decimal) (*Result, error) {
	if percent.Sign() <= 0 || percent.GreaterThan(decimal.NewFromInt(100)) {
		return nil, fmt.Errorf("卖出比例必须在 (0, 100] 之间: %s", percent.String())
	}

	tokenAddr := common.HexToAddress(token.ContractAddress)
	raw, decimals, err := e.balances.TokenBalanceRaw(ctx, tokenAddr, e.wallet.Address())
	if err != nil {
		e.notifier.Notify(notify.LevelError, fmt.Sprintf("Balance check failed for %s: %s", token.Symbol, friendlyError(err)))
		return nil, fmt.Errorf("查询持仓失败: %w", err)
	}

	count := SellTokenCount(NormalizeRaw(raw, decimals), percent)
	if count.IsZero() {
		e.notifier.Notify(notify.LevelError, fmt.Sprintf("Nothing to sell for %s", token.Symbol))
		return nil, ErrNothingToSell
	}
	amount := TokensToRaw(count, decimals)

	tokenID, err := e.resolver.TokenID(ctx, token.ContractAddress)
	if err != nil {
		e.notifier.Notify(notify.LevelError, fmt.Sprintf("Sell failed for %s: %s", token.Symbol, friendlyError(err)))
		return nil, fmt.Errorf("解析token id失败: %w", err)
	}

	data, err := e.sellABI.Pack("sell", amount, tokenID)
	if err != nil {
		return nil, fmt.Errorf("打包卖出参数失败: %w", err)
	}

	txHash, err := e.sendTx(ctx, e.cfg.SellContract, big.NewInt(0), e.cfg.SellGasLimit, data)
	if err != nil {
		e.notifier.Notify(notify.LevelError, fmt.Sprintf("Sell failed for %s: %s", token.Symbol, friendlyError(err)))
		return nil, err
	}
	e.notifier.Notify(notify.LevelInfo, fmt.Sprintf("Sell submitted for %s: %s tokens (%s%%)", token.Symbol, count.String(), percent.String()))
	log.Infof("卖出交易已提交: token=%s tx=%s", token.ContractAddress, txHash.Hex())

	receipt, err := e.waitMined(ctx, txHash)
	if err != nil {
		e.notifier.Notify(notify.LevelError, fmt.Sprintf("Sell failed for %s: %s", token.Symbol, friendlyError(err)))
		return nil, err
	}

	e.notifier.Notify(notify.LevelSuccess, fmt.Sprintf("Sell confirmed for %s in block %d", token.Symbol, receipt.BlockNumber.Uint64()))
	e.record(ctx, token, domain.TradeSell, fmt.Sprintf("%s tokens", count.String()), txHash, receipt.BlockNumber.Uint64())

	return &Result{
		TxHash:      txHash,
		BlockNumber: receipt.BlockNumber.Uint64(),
		TokensSold:  count,
	}, nil
}

// sendTx 组装、签名并发送一笔交易
func (e *Executor) sendTx(ctx context.Context, to common.Address, value *big.Int, gasLimit uint64, data []byte) (common.Hash, error) {
	from := e.wallet.Address()

	nonce, err := e.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("获取nonce失败: %w", err)
	}

	gasPrice, err := e.backend.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("获取gas价格失败: %w", err)
	}

	tx := ethtypes.NewTransaction(nonce, to, value, gasLimit, gasPrice, data)

	signedTx, err := ethtypes.SignTx(tx, ethtypes.NewEIP155Signer(big.NewInt(e.cfg.ChainID)), e.wallet.PrivateKey())
	if err != nil {
		return common.Hash{}, fmt.Errorf("签名交易失败: %w", err)
	}

	if err := e.backend.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, fmt.Errorf("发送交易失败: %w", err)
	}
	return signedTx.Hash(), nil
}

// waitMined 轮询回执直到交易上链，回执状态非成功时返回错误
func (e *Executor) waitMined(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error) {
	timeout := e.cfg.ConfirmTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	poll := e.cfg.ConfirmPoll
	if poll <= 0 {
		poll = 2 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		receipt, err := e.backend.TransactionReceipt(ctx, txHash)
		if err == nil {
			if receipt.Status != ethtypes.ReceiptStatusSuccessful {
				return nil, fmt.Errorf("交易执行失败（revert）: %s", txHash.Hex())
			}
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("获取交易回执失败: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("等待交易确认超时: %s", txHash.Hex())
		case <-ticker.C:
		}
	}
}

// record 把成交写入历史，失败只记日志，不影响交易结果
func (e *Executor) record(ctx context.Context, token domain.Token, dir domain.TradeDirection, amountIn string, txHash common.Hash, block uint64) {
	if e.recorder == nil {
		return
	}
	rec := domain.TradeRecord{
		ID:              uuid.NewString(),
		ContractAddress: token.ContractAddress,
		TokenSymbol:     token.Symbol,
		Direction:       dir,
		AmountIn:        amountIn,
		TxHash:          txHash.Hex(),
		BlockNumber:     block,
		ExecutedAt:      time.Now().UTC(),
	}
	if err := e.recorder.Record(ctx, rec); err != nil {
		log.Warnf("成交记录写入失败: %v", err)
	}
}

// friendlyError 把链上错误翻译成界面可读的提示
func friendlyError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "insufficient funds"):
		return "insufficient AVAX balance"
	case strings.Contains(msg, "execution reverted") || strings.Contains(msg, "revert"):
		return "transaction reverted on-chain"
	case strings.Contains(msg, "nonce too low"):
		return "nonce conflict, try again"
	case strings.Contains(msg, "超时"):
		return "confirmation timed out"
	default:
		return msg
	}
}
