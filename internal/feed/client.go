// Package feed 管理到推送通道的唯一 WebSocket 连接
// 负责有限次数的自动重连，并把三类事件原样转发给订阅者
package feed

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/1Eliaaaan/rugfi-ft/internal/domain"
	"github.com/1Eliaaaan/rugfi-ft/internal/notify"
)

var log = logrus.WithField("module", "feed")

const (
	defaultMessageBufferSize = 256
	defaultStateBufferSize   = 16
	pingInterval             = 30 * time.Second
)

// Config 推送通道客户端配置
type Config struct {
	URL                  string
	HandshakeTimeout     time.Duration
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int // 超过则进入 Failed 终态
	MessageBufferSize    int
}

// DefaultConfig 返回默认配置
func DefaultConfig(url string) Config {
	return Config{
		URL:                  url,
		HandshakeTimeout:     10 * time.Second,
		ReconnectDelay:       5 * time.Second,
		MaxReconnectAttempts: 3,
		MessageBufferSize:    defaultMessageBufferSize,
	}
}

// Client 推送通道客户端（单一物理连接）
type Client struct {
	cfg      Config
	notifier notify.Notifier

	conn   *websocket.Conn
	connMu sync.Mutex

	state    domain.ConnectionState
	attempts int
	stateMu  sync.RWMutex

	events  chan Event
	stateCh chan domain.ConnectionEvent

	running   bool
	runningMu sync.Mutex
	cancel    context.CancelFunc
	doneCh    chan struct{}
}

// NewClient 创建推送通道客户端
func NewClient(cfg Config, notifier notify.Notifier) *Client {
	if cfg.MessageBufferSize <= 0 {
		cfg.MessageBufferSize = defaultMessageBufferSize
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Client{
		cfg:      cfg,
		notifier: notifier,
		state:    domain.ConnDisconnected,
		events:   make(chan Event, cfg.MessageBufferSize),
		stateCh:  make(chan domain.ConnectionEvent, defaultStateBufferSize),
	}
}

// Events 返回事件 channel
func (c *Client) Events() <-chan Event {
	return c.events
}

// States 返回连接状态变更 channel
func (c *Client) States() <-chan domain.ConnectionEvent {
	return c.stateCh
}

// State 返回当前连接状态
func (c *Client) State() domain.ConnectionState {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// Attempts 返回当前重连尝试计数
func (c *Client) Attempts() int {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.attempts
}

// Connect 建立连接并开始监听；已连接时为 no-op
func (c *Client) Connect(ctx context.Context) error {
	c.runningMu.Lock()
	if c.running {
		c.runningMu.Unlock()
		return nil
	}
	c.running = true
	c.runningMu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.doneCh = make(chan struct{})

	c.setState(domain.ConnConnecting, nil)
	if err := c.dial(runCtx); err != nil {
		c.runningMu.Lock()
		c.running = false
		c.runningMu.Unlock()
		cancel()
		c.setState(domain.ConnDisconnected, err)
		return fmt.Errorf("初始连接失败: %w", err)
	}

	go c.readLoop(runCtx)
	go c.pingLoop(runCtx)

	log.Infof("已连接到推送通道 %s", c.cfg.URL)
	return nil
}

// Disconnect 幂等地断开连接并重置重连计数
func (c *Client) Disconnect() {
	c.runningMu.Lock()
	if !c.running {
		c.runningMu.Unlock()
		return
	}
	c.running = false
	c.runningMu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	c.connMu.Lock()
	if c.conn != nil {
		_ = c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	if c.doneCh != nil {
		select {
		case <-c.doneCh:
		case <-time.After(5 * time.Second):
			log.Warnf("关闭超时")
		}
	}

	c.stateMu.Lock()
	c.attempts = 0
	c.stateMu.Unlock()
	c.setState(domain.ConnDisconnected, nil)
	log.Info("推送通道已断开")
}

// dial 建立 WebSocket 连接；成功后重置重连计数
func (c *Client) dial(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: c.cfg.HandshakeTimeout,
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.HandshakeTimeout)
	defer cancel()

	conn, _, err := dialer.DialContext(dialCtx, c.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("连接失败: %w", err)
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	c.stateMu.Lock()
	c.attempts = 0
	c.stateMu.Unlock()

	c.setState(domain.ConnConnected, nil)
	c.notifier.Notify(notify.LevelSuccess, "Feed connected")
	return nil
}

// readLoop 读取循环；连接断开时按上限重连
func (c *Client) readLoop(ctx context.Context) {
	defer close(c.doneCh)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			if !c.reconnect(ctx) {
				return
			}
			continue
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			c.connMu.Lock()
			if c.conn != nil {
				_ = c.conn.Close()
				c.conn = nil
			}
			c.connMu.Unlock()

			c.runningMu.Lock()
			running := c.running
			c.runningMu.Unlock()
			if !running || ctx.Err() != nil {
				return
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Info("连接正常关闭")
				c.setState(domain.ConnDisconnected, nil)
				return
			}

			log.Warnf("读取错误: %v", err)
			if !c.reconnect(ctx) {
				return
			}
			continue
		}

		c.handleMessage(message)
	}
}

// reconnect 尝试重连一次；返回 false 表示已达上限（Failed 终态）或被取消
func (c *Client) reconnect(ctx context.Context) bool {
	c.stateMu.Lock()
	c.attempts++
	attempts := c.attempts
	c.stateMu.Unlock()

	if attempts > c.cfg.MaxReconnectAttempts {
		c.setState(domain.ConnFailed, fmt.Errorf("达到最大重连次数 (%d)", c.cfg.MaxReconnectAttempts))
		c.notifier.Notify(notify.LevelError, "Maximum reconnection attempts reached")
		c.runningMu.Lock()
		c.running = false
		c.runningMu.Unlock()
		return false
	}

	c.setState(domain.ConnDisconnected, nil)
	c.notifier.Notify(notify.LevelError,
		fmt.Sprintf("Feed disconnected. Attempt %d of %d", attempts, c.cfg.MaxReconnectAttempts))

	select {
	case <-ctx.Done():
		return false
	case <-time.After(c.cfg.ReconnectDelay):
	}

	c.setState(domain.ConnConnecting, nil)
	if err := c.dial(ctx); err != nil {
		log.Warnf("重连失败 (尝试 %d/%d): %v", attempts, c.cfg.MaxReconnectAttempts, err)
		return true // 下一轮 readLoop 继续计数重试
	}
	return true
}

// pingLoop 心跳循环，定期发送 PING 文本消息
func (c *Client) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.connMu.Lock()
			conn := c.conn
			c.connMu.Unlock()
			if conn == nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte("PING")); err != nil {
				log.Warnf("PING 发送失败: %v", err)
			}
		}
	}
}

// handleMessage 解析并转发单条消息
// 坏消息只记日志丢弃，绝不影响已有状态（fails open）
func (c *Client) handleMessage(raw []byte) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return
	}
	if trimmed[0] != '{' && trimmed[0] != '[' {
		// 文本消息（如 "PONG"）直接忽略
		return
	}

	evt, ok, err := parseEnvelope(trimmed)
	if err != nil {
		log.Warnf("丢弃无法解析的消息: %v", err)
		return
	}
	if !ok {
		log.Debugf("忽略未知事件类型")
		return
	}

	select {
	case c.events <- evt:
	default:
		log.Warnf("事件队列已满，丢弃 %s 事件", evt.Kind)
	}
}

// setState 更新状态并发布变更事件（非阻塞）
func (c *Client) setState(s domain.ConnectionState, lastErr error) {
	c.stateMu.Lock()
	c.state = s
	attempt := c.attempts
	c.stateMu.Unlock()

	select {
	case c.stateCh <- domain.ConnectionEvent{State: s, Attempt: attempt, LastErr: lastErr}:
	default:
	}
}
