package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/1Eliaaaan/rugfi-ft/internal/arena"
	"github.com/1Eliaaaan/rugfi-ft/internal/dashboard"
	"github.com/1Eliaaaan/rugfi-ft/internal/feed"
	"github.com/1Eliaaaan/rugfi-ft/internal/history"
	"github.com/1Eliaaaan/rugfi-ft/internal/httpapi"
	"github.com/1Eliaaaan/rugfi-ft/internal/notify"
	"github.com/1Eliaaaan/rugfi-ft/internal/tokenstate"
	"github.com/1Eliaaaan/rugfi-ft/internal/trading"
	"github.com/1Eliaaaan/rugfi-ft/internal/wallet"
	"github.com/1Eliaaaan/rugfi-ft/pkg/config"
	"github.com/1Eliaaaan/rugfi-ft/pkg/logger"
	"github.com/1Eliaaaan/rugfi-ft/pkg/secretstore"
	"github.com/1Eliaaaan/rugfi-ft/pkg/shutdown"
)

func main() {
	// .env 不存在时静默忽略
	_ = godotenv.Load()

	var (
		configPath = flag.String("config", "", "配置文件路径（YAML，可选）")
		watchOnly  = flag.Bool("watch-only", false, "只看行情，不加载钱包")
	)
	flag.Parse()

	cfg, err := config.LoadFromFile(*configPath)
	if err != nil {
		fatal(fmt.Errorf("加载配置失败: %w", err))
	}

	// TUI 占用终端，日志只写文件
	if err := logger.Init(logger.Config{
		Level:      cfg.LogLevel,
		OutputFile: cfg.LogFile,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     7,
		ConsoleOff: true,
	}); err != nil {
		fatal(fmt.Errorf("初始化日志失败: %w", err))
	}
	logger.Info("rugfi 启动")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sm := shutdown.NewManager()
	bus := notify.NewBus(0)
	sm.OnShutdown(func(context.Context) { bus.Close() })

	// Arena 数据客户端与状态存储
	arenaClient := arena.NewClient(arena.Config{
		APIBase:       cfg.Arena.APIBase,
		RoutescanBase: cfg.Arena.RoutescanBase,
	})

	// 状态一有变更就给界面发信号，收不下时丢弃（下一次信号或定时刷新兜底）
	changes := make(chan struct{}, 1)
	store := tokenstate.NewStore(
		tokenstate.WithMaxTokens(cfg.Store.MaxTokens),
		tokenstate.WithOnChange(func() {
			select {
			case changes <- struct{}{}:
			default:
			}
		}),
	)

	hist, err := history.Open(cfg.Data.HistoryDBPath)
	if err != nil {
		fatal(fmt.Errorf("打开交易历史库失败: %w", err))
	}
	sm.OnShutdown(func(context.Context) { _ = hist.Close() })

	// 钱包登录与交易子系统（可选）
	var ts tradeSetup
	if !*watchOnly {
		ts, err = setupTrading(ctx, cfg, arenaClient, store, hist, bus, sm)
		if err != nil {
			fatal(err)
		}
	}

	// 推送通道
	feedClient := feed.NewClient(feed.Config{
		URL:                  cfg.Feed.URL,
		HandshakeTimeout:     cfg.Feed.HandshakeTimeout,
		ReconnectDelay:       cfg.Feed.ReconnectDelay,
		MaxReconnectAttempts: cfg.Feed.MaxReconnectAttempts,
	}, bus)
	if err := feedClient.Connect(ctx); err != nil {
		// 初始连接失败不致命，界面会显示断开状态
		logger.Warnf("推送通道初始连接失败: %v", err)
		bus.Notify(notify.LevelError, "Feed connection failed")
	}
	sm.OnShutdown(func(context.Context) { feedClient.Disconnect() })

	go store.Run(ctx, feedClient.Events())

	// 启动快照
	if cfg.Store.LoadSnapshot {
		go func() {
			loadCtx, loadCancel := context.WithTimeout(ctx, 30*time.Second)
			defer loadCancel()
			tokens, err := arenaClient.ListRecentTokens(loadCtx, cfg.Store.MaxTokens)
			if err != nil {
				logger.Warnf("加载启动快照失败: %v", err)
				return
			}
			store.LoadInitial(tokens)
		}()
	}

	// 本地只读状态接口
	if cfg.API.Enabled {
		api := httpapi.New(httpapi.Config{
			Listen:        cfg.API.Listen,
			WalletAddress: ts.walletAddr,
		}, store, feedClient, hist)
		api.Start()
		sm.OnShutdown(func(ctx context.Context) { _ = api.Stop(ctx) })
	}

	// 终端看板，阻塞直到退出
	err = dashboard.Run(ctx, dashboard.Deps{
		Store:         store,
		Feed:          feedClient,
		Executor:      ts.exec,
		Arena:         arenaClient,
		WalletAddress: ts.walletAddr,
		Notes:         bus,
		BuyPresets:    ts.presets,
		Logout:        ts.logout,
		SavePresets:   ts.savePresets,
		Changes:       changes,
	})
	if err != nil && ctx.Err() == nil {
		logger.Errorf("看板退出: %v", err)
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	sm.Shutdown(shutdownCtx)
	logger.Info("rugfi 退出")
}

// tradeSetup 登录成功后的交易子系统句柄
type tradeSetup struct {
	exec       *trading.Executor
	walletAddr string
	presets    []decimal.Decimal
	// logout 删除已存的私钥并清空代币列表
	logout func() error
	// savePresets 把快捷买入档位持久化到凭据库
	savePresets func([]decimal.Decimal) error
}

// setupTrading 打开凭据库、校验门槛持仓并组装交易执行器
func setupTrading(
	ctx context.Context,
	cfg *config.Config,
	arenaClient *arena.Client,
	store *tokenstate.Store,
	hist *history.Store,
	bus *notify.Bus,
	sm *shutdown.Manager,
) (tradeSetup, error) {
	var ts tradeSetup

	encKey, err := secretstore.ParseKey(os.Getenv("RUGFI_SECRETS_KEY"))
	if err != nil {
		return ts, fmt.Errorf("解析凭据库密钥失败: %w", err)
	}
	secrets, err := secretstore.Open(secretstore.OpenOptions{
		Path:          cfg.Data.SecretsPath,
		EncryptionKey: encKey,
	})
	if err != nil {
		return ts, fmt.Errorf("打开凭据库失败: %w", err)
	}
	sm.OnShutdown(func(context.Context) { _ = secrets.Close() })

	keyHex, found, err := secrets.GetString(secretstore.KeyWalletPrivateKey)
	if err != nil {
		return ts, fmt.Errorf("读取钱包私钥失败: %w", err)
	}
	if !found {
		return ts, fmt.Errorf("未找到钱包私钥，请先运行 wallet-init（或使用 -watch-only）")
	}

	w, err := wallet.FromPrivateKeyHex(keyHex)
	if err != nil {
		return ts, fmt.Errorf("钱包私钥无效: %w", err)
	}

	client, err := ethclient.Dial(cfg.Chain.RPCURL)
	if err != nil {
		return ts, fmt.Errorf("连接RPC节点失败: %w", err)
	}
	sm.OnShutdown(func(context.Context) { client.Close() })

	balances, err := trading.NewBalanceService(client)
	if err != nil {
		return ts, err
	}

	// 登录门槛：必须持有足额 RUGFI
	minGate, err := decimal.NewFromString(cfg.Chain.MinGateBalance)
	if err != nil {
		return ts, fmt.Errorf("门槛余额配置无效: %w", err)
	}
	gateCtx, gateCancel := context.WithTimeout(ctx, 30*time.Second)
	defer gateCancel()
	ok, balance, err := balances.CheckGate(gateCtx,
		common.HexToAddress(cfg.Chain.GateToken), w.Address(), minGate)
	if err != nil {
		return ts, fmt.Errorf("校验门槛持仓失败: %w", err)
	}
	if !ok {
		return ts, fmt.Errorf("门槛持仓不足: 需要 %s RUGFI，当前 %s", minGate.String(), balance.String())
	}
	logger.Infof("钱包登录成功: %s (RUGFI %s)", w.Address().Hex(), balance.String())

	oracle, err := trading.NewPriceOracle(client,
		common.HexToAddress(cfg.Chain.CalculatorContract), arenaClient)
	if err != nil {
		return ts, err
	}

	tradeCfg := trading.Config{
		ChainID:         cfg.Chain.ChainID,
		ProxyContract:   common.HexToAddress(cfg.Chain.ProxyContract),
		SellContract:    common.HexToAddress(cfg.Chain.SellContract),
		BuyGasLimit:     cfg.Chain.BuyGasLimit,
		SellGasLimit:    cfg.Chain.SellGasLimit,
		SlippagePercent: cfg.Chain.SlippagePercent,
		ConfirmTimeout:  2 * time.Minute,
		ConfirmPoll:     2 * time.Second,
	}
	exec, err := trading.NewExecutor(client, w, oracle, balances, arenaClient, hist, bus, tradeCfg)
	if err != nil {
		return ts, err
	}

	ts.exec = exec
	ts.walletAddr = w.Address().Hex()
	ts.presets = loadStoredPresets(secrets)
	// 断开钱包：删掉凭据库里的私钥，并清空代币列表
	ts.logout = func() error {
		if err := secrets.Delete(secretstore.KeyWalletPrivateKey); err != nil {
			return fmt.Errorf("删除钱包私钥失败: %w", err)
		}
		store.Reset()
		logger.Info("钱包已断开，私钥已从凭据库删除")
		return nil
	}
	ts.savePresets = func(ps []decimal.Decimal) error {
		out := make([]string, 0, len(ps))
		for _, p := range ps {
			out = append(out, p.String())
		}
		return secrets.SetJSON(secretstore.KeyQuickBuyPresets, out)
	}
	return ts, nil
}

// loadStoredPresets 读取凭据库里的快捷买入档位，缺失时返回 nil（使用默认档位）
func loadStoredPresets(secrets *secretstore.Store) []decimal.Decimal {
	var raw []string
	found, err := secrets.GetJSON(secretstore.KeyQuickBuyPresets, &raw)
	if err != nil || !found {
		return nil
	}
	out := make([]decimal.Decimal, 0, len(raw))
	for _, s := range raw {
		d, err := decimal.NewFromString(s)
		if err != nil {
			continue
		}
		out = append(out, d)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err.Error())
	os.Exit(1)
}
