// Package dashboard 实现终端看板
// 左侧是实时代币列表，右侧是可选的持仓侧栏，底部滚动显示通知，
// 数字键按预设快捷买入，字母键按比例快捷卖出
package dashboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/1Eliaaaan/rugfi-ft/internal/arena"
	"github.com/1Eliaaaan/rugfi-ft/internal/domain"
	"github.com/1Eliaaaan/rugfi-ft/internal/notify"
	"github.com/1Eliaaaan/rugfi-ft/internal/tokenstate"
	"github.com/1Eliaaaan/rugfi-ft/internal/trading"
)

var log = logrus.WithField("module", "dashboard")

// FeedSource 推送连接的状态来源
type FeedSource interface {
	States() <-chan domain.ConnectionEvent
	State() domain.ConnectionState
	Attempts() int
}

// Deps 看板依赖
// Executor 为 nil 时禁用交易按键，只做行情展示
type Deps struct {
	Store         *tokenstate.Store
	Feed          FeedSource
	Executor      *trading.Executor
	Arena         *arena.Client
	WalletAddress string
	Notes         *notify.Bus
	// BuyPresets 快捷买入档位（AVAX），为空时使用默认档位
	BuyPresets []decimal.Decimal
	// TradeTimeout 单笔交易的总超时
	TradeTimeout time.Duration
	// Logout 断开钱包：删除已存的私钥并清空代币列表，nil 表示不支持
	Logout func() error
	// SavePresets 持久化快捷买入档位，nil 表示只改内存
	SavePresets func([]decimal.Decimal) error
	// Changes 状态存储变更信号，收到后立即刷新列表
	Changes <-chan struct{}
}

// Run 启动终端看板，阻塞直到用户退出
func Run(ctx context.Context, deps Deps) error {
	if len(deps.BuyPresets) == 0 {
		deps.BuyPresets = defaultBuyPresets()
	}
	if deps.TradeTimeout <= 0 {
		deps.TradeTimeout = 3 * time.Minute
	}

	m := model{
		deps:      deps,
		connState: domain.ConnDisconnected,
	}
	if deps.Feed != nil {
		m.connState = deps.Feed.State()
	}

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd()}
	if m.deps.Feed != nil {
		cmds = append(cmds, waitConnCmd(m.deps.Feed.States()))
	}
	if m.deps.Notes != nil {
		cmds = append(cmds, waitNoteCmd(m.deps.Notes.C()))
	}
	if m.deps.Changes != nil {
		cmds = append(cmds, waitChangeCmd(m.deps.Changes))
	}
	return tea.Batch(cmds...)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		m.tokens = m.deps.Store.Snapshot()
		if m.cursor >= len(m.tokens) {
			m.cursor = len(m.tokens) - 1
		}
		if m.cursor < 0 {
			m.cursor = 0
		}
		return m, tickCmd()

	case connMsg:
		m.connState = msg.State
		m.connAttempts = msg.Attempt
		return m, waitConnCmd(m.deps.Feed.States())

	case noteMsg:
		m.notes = append([]notify.Notification{notify.Notification(msg)}, m.notes...)
		if len(m.notes) > maxNotes {
			m.notes = m.notes[:maxNotes]
		}
		return m, waitNoteCmd(m.deps.Notes.C())

	case tradeDoneMsg:
		m.trading = false
		if msg.err != nil {
			log.Warnf("交易失败: %s %s: %v", msg.direction, msg.symbol, msg.err)
			return m, nil
		}
		// 买入确认后刷新持仓
		if msg.direction == domain.TradeBuy && m.showHoldings {
			return m, m.holdingsCmd()
		}
		return m, nil

	case changeMsg:
		m.tokens = m.deps.Store.Snapshot()
		if m.cursor >= len(m.tokens) {
			m.cursor = len(m.tokens) - 1
		}
		if m.cursor < 0 {
			m.cursor = 0
		}
		return m, waitChangeCmd(m.deps.Changes)

	case holdingsMsg:
		m.holdings = msg.items
		m.holdingsErr = msg.err
		if msg.avax != nil {
			m.avax = msg.avax
		}
		return m, nil
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.inputMode != inputNone {
		return m.handleInputKey(msg)
	}

	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.tokens)-1 {
			m.cursor++
		}

	case "1", "2", "3":
		idx := int(msg.String()[0] - '1')
		if idx < len(m.deps.BuyPresets) {
			return m.startBuy(m.deps.BuyPresets[idx])
		}

	case "z", "x", "c":
		percents := map[string]float64{"z": quickSellPercents[0], "x": quickSellPercents[1], "c": quickSellPercents[2]}
		return m.startSell(percents[msg.String()])

	case "h":
		m.showHoldings = !m.showHoldings
		if m.showHoldings {
			return m, m.holdingsCmd()
		}

	case "r":
		if m.showHoldings {
			return m, m.holdingsCmd()
		}

	case "/":
		if m.showHoldings {
			m.inputMode = inputFilter
			m.input = m.holdingsFilter
		}

	case "+":
		if m.deps.Executor != nil {
			if len(m.deps.BuyPresets) >= maxBuyPresets {
				m.notify(notify.LevelError, "Preset slots full, remove one first")
				return m, nil
			}
			m.inputMode = inputPreset
			m.input = ""
		}

	case "-":
		return m.removeLastPreset()

	case "D":
		return m.logout()
	}
	return m, nil
}

// handleInputKey 单行输入框按键处理
func (m model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		if m.inputMode == inputFilter {
			m.holdingsFilter = ""
		}
		m.inputMode = inputNone
		m.input = ""
	case tea.KeyEnter:
		return m.commitInput()
	case tea.KeyBackspace:
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}
	case tea.KeyRunes:
		m.input += string(msg.Runes)
	}
	return m, nil
}

func (m model) commitInput() (tea.Model, tea.Cmd) {
	mode, raw := m.inputMode, strings.TrimSpace(m.input)
	m.inputMode = inputNone
	m.input = ""

	switch mode {
	case inputFilter:
		m.holdingsFilter = raw
	case inputPreset:
		amount, err := parsePresetInput(raw)
		if err != nil {
			m.notify(notify.LevelError, fmt.Sprintf("Invalid preset amount: %s", raw))
			return m, nil
		}
		m.deps.BuyPresets = append(m.deps.BuyPresets, amount)
		m.persistPresets()
		m.notify(notify.LevelSuccess, fmt.Sprintf("Preset added: %s AVAX", amount.String()))
	}
	return m, nil
}

func (m model) removeLastPreset() (tea.Model, tea.Cmd) {
	if m.deps.Executor == nil || len(m.deps.BuyPresets) <= 1 {
		return m, nil
	}
	removed := m.deps.BuyPresets[len(m.deps.BuyPresets)-1]
	m.deps.BuyPresets = m.deps.BuyPresets[:len(m.deps.BuyPresets)-1]
	m.persistPresets()
	m.notify(notify.LevelInfo, fmt.Sprintf("Preset removed: %s AVAX", removed.String()))
	return m, nil
}

func (m model) persistPresets() {
	if m.deps.SavePresets == nil {
		return
	}
	if err := m.deps.SavePresets(m.deps.BuyPresets); err != nil {
		log.Warnf("保存快捷买入档位失败: %v", err)
	}
}

// logout 断开钱包：删除已存的私钥、清空代币列表并切回只看模式
func (m model) logout() (tea.Model, tea.Cmd) {
	if m.deps.Logout == nil || m.trading {
		return m, nil
	}
	if err := m.deps.Logout(); err != nil {
		log.Errorf("断开钱包失败: %v", err)
		m.notify(notify.LevelError, "Disconnect failed")
		return m, nil
	}
	m.deps.Executor = nil
	m.deps.WalletAddress = ""
	m.tokens = nil
	m.cursor = 0
	m.holdings = nil
	m.avax = nil
	m.showHoldings = false
	m.notify(notify.LevelInfo, "Wallet disconnected")
	return m, nil
}

func (m model) notify(level notify.Level, message string) {
	if m.deps.Notes != nil {
		m.deps.Notes.Notify(level, message)
	}
}

func (m model) startBuy(amount decimal.Decimal) (tea.Model, tea.Cmd) {
	if m.deps.Executor == nil || m.trading || m.cursor >= len(m.tokens) {
		return m, nil
	}
	token := m.tokens[m.cursor]
	m.trading = true
	return m, buyCmd(m.deps.Executor, token, amount, m.deps.TradeTimeout)
}

func (m model) startSell(percent float64) (tea.Model, tea.Cmd) {
	if m.deps.Executor == nil || m.trading || m.cursor >= len(m.tokens) {
		return m, nil
	}
	token := m.tokens[m.cursor]
	m.trading = true
	return m, sellCmd(m.deps.Executor, token, percent, m.deps.TradeTimeout)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitConnCmd(ch <-chan domain.ConnectionEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return connMsg(ev)
	}
}

func waitNoteCmd(ch <-chan notify.Notification) tea.Cmd {
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return noteMsg(n)
	}
}

func buyCmd(exec *trading.Executor, token domain.Token, amount decimal.Decimal, timeout time.Duration) tea.Cmd {
	req := domain.TradeRequest{
		ContractAddress: token.ContractAddress,
		Direction:       domain.TradeBuy,
		Amount:          amount.InexactFloat64(),
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		res, err := exec.Execute(ctx, token, req)
		return tradeDoneMsg{direction: domain.TradeBuy, symbol: token.Symbol, result: res, err: err}
	}
}

func sellCmd(exec *trading.Executor, token domain.Token, percent float64, timeout time.Duration) tea.Cmd {
	req := domain.TradeRequest{
		ContractAddress: token.ContractAddress,
		Direction:       domain.TradeSell,
		Amount:          percent,
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		res, err := exec.Execute(ctx, token, req)
		return tradeDoneMsg{direction: domain.TradeSell, symbol: token.Symbol, result: res, err: err}
	}
}

func (m model) holdingsCmd() tea.Cmd {
	client := m.deps.Arena
	wallet := m.deps.WalletAddress
	exec := m.deps.Executor
	return func() tea.Msg {
		if client == nil || wallet == "" {
			return holdingsMsg{}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		items, err := client.Holdings(ctx, wallet)

		// 顺带刷新原生 AVAX 余额
		var avax *decimal.Decimal
		if exec != nil {
			if bal, balErr := exec.Balances().AVAXBalance(ctx, common.HexToAddress(wallet)); balErr == nil {
				avax = &bal
			} else {
				log.Warnf("查询AVAX余额失败: %v", balErr)
			}
		}
		return holdingsMsg{items: items, avax: avax, err: err}
	}
}

func waitChangeCmd(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return changeMsg{}
	}
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(m.viewHeader())
	b.WriteString("\n")

	table := m.viewTable()
	if m.showHoldings {
		table = lipgloss.JoinHorizontal(lipgloss.Top, table, " ", m.viewHoldings())
	}
	b.WriteString(table)
	b.WriteString("\n")

	b.WriteString(m.viewNotes())
	if m.inputMode != inputNone {
		b.WriteString(m.viewInput())
		b.WriteString("\n")
	}
	b.WriteString(m.viewHelp())
	return b.String()
}

func (m model) viewInput() string {
	label := "filter"
	if m.inputMode == inputPreset {
		label = "new preset (AVAX)"
	}
	return titleStyle.Render(fmt.Sprintf("%s: %s_", label, m.input))
}

func (m model) viewHeader() string {
	conn := m.connState.String()
	switch m.connState {
	case domain.ConnConnected:
		conn = safeStyle.Render(conn)
	case domain.ConnFailed:
		conn = riskyStyle.Render(conn)
	default:
		if m.connAttempts > 0 {
			conn = fmt.Sprintf("%s (attempt %d)", conn, m.connAttempts)
		}
		conn = pendingStyle.Render(conn)
	}

	wallet := m.deps.WalletAddress
	if wallet == "" {
		wallet = "not logged in"
	}
	title := fmt.Sprintf("RugFi Terminal | %s | feed: %s | %s",
		shorten(wallet, 12), conn, time.Now().Format("15:04:05"))
	return headerStyle.Render(title)
}

func (m model) viewTable() string {
	var b strings.Builder
	header := fmt.Sprintf("%-14s %-9s %-12s %-6s %-8s %-8s %-6s",
		"TOKEN", "SYMBOL", "CREATOR", "AGE", "RISK", "BONDING", "SNIPED")
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n")

	rows := m.visibleRows()
	if len(m.tokens) == 0 {
		b.WriteString(pendingStyle.Render("waiting for tokens..."))
		b.WriteString("\n")
	}
	for i := 0; i < rows && i < len(m.tokens); i++ {
		t := m.tokens[i]
		row := fmt.Sprintf("%-14s %-9s %-12s %-6s %-8s %-8s %-6s",
			shorten(t.Name, 14),
			shorten(t.Symbol, 9),
			shorten(t.CreatorAddress, 12),
			formatAge(t.CreateTime),
			formatRisk(t.Risk),
			formatBonding(t.BondingPercent),
			formatSniped(t.Sniped),
		)
		if i == m.cursor {
			row = selectedStyle.Render(row)
		}
		b.WriteString(row)
		b.WriteString("\n")
	}
	return borderStyle.Render(b.String())
}

func (m model) viewHoldings() string {
	var b strings.Builder
	title := "HOLDINGS"
	if m.avax != nil {
		title += fmt.Sprintf(" | AVAX %s", m.avax.StringFixed(2))
	}
	if m.holdingsFilter != "" {
		title += fmt.Sprintf(" /%s", m.holdingsFilter)
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")

	items := filterHoldings(m.holdings, m.holdingsFilter)
	switch {
	case m.holdingsErr != nil:
		b.WriteString(riskyStyle.Render("load failed"))
		b.WriteString("\n")
	case len(items) == 0:
		b.WriteString(pendingStyle.Render("empty"))
		b.WriteString("\n")
	default:
		for i, h := range items {
			if i >= 15 {
				b.WriteString(pendingStyle.Render(fmt.Sprintf("... and %d more", len(items)-i)))
				b.WriteString("\n")
				break
			}
			b.WriteString(fmt.Sprintf("%-8s %s\n", shorten(h.TokenSymbol, 8), formatQuantity(h)))
		}
	}
	return borderStyle.Render(b.String())
}

// filterHoldings 按符号或名称做大小写不敏感的子串过滤
func filterHoldings(items []arena.Holding, query string) []arena.Holding {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return items
	}
	out := make([]arena.Holding, 0, len(items))
	for _, h := range items {
		if strings.Contains(strings.ToLower(h.TokenSymbol), query) ||
			strings.Contains(strings.ToLower(h.TokenName), query) {
			out = append(out, h)
		}
	}
	return out
}

// parsePresetInput 解析用户输入的买入档位，必须是正数
func parsePresetInput(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, err
	}
	if d.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("档位必须为正数: %s", d.String())
	}
	return d, nil
}

func (m model) viewNotes() string {
	if len(m.notes) == 0 {
		return ""
	}
	var b strings.Builder
	for _, n := range m.notes {
		line := fmt.Sprintf("%s %s", n.At.Format("15:04:05"), n.Message)
		switch n.Level {
		case notify.LevelSuccess:
			line = noteSuccessStyle.Render(line)
		case notify.LevelError:
			line = noteErrorStyle.Render(line)
		default:
			line = noteInfoStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func (m model) viewHelp() string {
	presets := make([]string, 0, len(m.deps.BuyPresets))
	for i, p := range m.deps.BuyPresets {
		if i >= 3 {
			break
		}
		presets = append(presets, fmt.Sprintf("%d=buy %s", i+1, p.String()))
	}
	help := fmt.Sprintf("↑/↓ select | %s AVAX | +/- presets | z/x/c sell 25/50/100%% | h holdings | / filter | D disconnect | q quit",
		strings.Join(presets, " "))
	if m.trading {
		help = "trade in progress... | " + help
	}
	return helpStyle.Render(help)
}

// visibleRows 表格可显示的行数，按窗口高度自适应
func (m model) visibleRows() int {
	rows := m.height - 10
	if rows < 5 {
		rows = 20
	}
	return rows
}

func shorten(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 2 {
		return s[:max]
	}
	return s[:max-2] + ".."
}

func formatAge(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

func formatRisk(r domain.RiskStatus) string {
	switch r.Level {
	case domain.RiskSafe:
		return safeStyle.Render("SAFE")
	case domain.RiskRisky:
		return riskyStyle.Render(fmt.Sprintf("RUG:%d", r.RuggedCount))
	default:
		return pendingStyle.Render("...")
	}
}

func formatBonding(pct *float64) string {
	if pct == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", *pct)
}

func formatSniped(sniped *bool) string {
	if sniped == nil {
		return "-"
	}
	if *sniped {
		return riskyStyle.Render("YES")
	}
	return "no"
}

func formatQuantity(h arena.Holding) string {
	q := h.TokenQuantity
	if h.TokenDecimals > 0 && len(q) > h.TokenDecimals {
		// 只展示整数部分
		return q[:len(q)-h.TokenDecimals]
	}
	if h.TokenDecimals > 0 && len(q) <= h.TokenDecimals {
		return "<1"
	}
	return q
}
