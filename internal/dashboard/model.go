package dashboard

import (
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/1Eliaaaan/rugfi-ft/internal/arena"
	"github.com/1Eliaaaan/rugfi-ft/internal/domain"
	"github.com/1Eliaaaan/rugfi-ft/internal/notify"
	"github.com/1Eliaaaan/rugfi-ft/internal/trading"
)

var (
	// 样式定义
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15"))

	safeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("2")) // 绿色

	riskyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("1")) // 红色

	pendingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")) // 灰色

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("6"))

	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238"))

	noteInfoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	noteSuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	noteErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// 输入模式：持仓过滤和新增档位共用一个单行输入框
const (
	inputNone = iota
	inputFilter
	inputPreset
)

// model 终端界面状态
type model struct {
	deps Deps

	// 代币列表快照和光标位置
	tokens []domain.Token
	cursor int

	// 推送连接状态
	connState    domain.ConnectionState
	connAttempts int

	// 最近的通知，新的在前
	notes []notify.Notification

	// 持仓侧栏
	showHoldings   bool
	holdings       []arena.Holding
	holdingsFilter string
	holdingsErr    error
	avax           *decimal.Decimal

	// 单行输入框状态
	inputMode int
	input     string

	// 交易进行中时屏蔽新的买卖按键
	trading bool

	width  int
	height int
	err    error
}

// tickMsg 定时器消息，驱动快照刷新和时间显示
type tickMsg time.Time

// connMsg 推送连接状态变更
type connMsg domain.ConnectionEvent

// noteMsg 新通知
type noteMsg notify.Notification

// tradeDoneMsg 一次买卖执行完毕
type tradeDoneMsg struct {
	direction domain.TradeDirection
	symbol    string
	result    *trading.Result
	err       error
}

// holdingsMsg 持仓查询结果，avax 为 nil 表示本次没有查询原生余额
type holdingsMsg struct {
	items []arena.Holding
	avax  *decimal.Decimal
	err   error
}

// changeMsg 状态存储变更信号
type changeMsg struct{}

// maxNotes 界面上保留的通知条数
const maxNotes = 3

// maxBuyPresets 快捷买入档位上限（对应数字键 1-3）
const maxBuyPresets = 3

// quickSellPercents 快捷卖出比例
var quickSellPercents = []float64{25, 50, 100}

// defaultBuyPresets 默认的快捷买入档位（AVAX）
func defaultBuyPresets() []decimal.Decimal {
	return []decimal.Decimal{
		decimal.NewFromInt(1),
		decimal.NewFromInt(2),
		decimal.NewFromInt(5),
	}
}
