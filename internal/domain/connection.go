package domain

// ConnectionState 推送通道连接状态
type ConnectionState int

const (
	// ConnDisconnected 未连接（初始状态，或正常断开）
	ConnDisconnected ConnectionState = iota
	// ConnConnecting 正在连接
	ConnConnecting
	// ConnConnected 已连接
	ConnConnected
	// ConnFailed 重连次数耗尽，终态
	ConnFailed
)

func (s ConnectionState) String() string {
	switch s {
	case ConnConnecting:
		return "Connecting"
	case ConnConnected:
		return "Connected"
	case ConnFailed:
		return "Failed"
	default:
		return "Disconnected"
	}
}

// ConnectionEvent 连接状态变更事件，附带当前重试计数
type ConnectionEvent struct {
	State   ConnectionState
	Attempt int // 当前重连尝试次数（成功连接后归零）
	LastErr error
}
