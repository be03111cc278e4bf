package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("module", "notify")

// Level 通知级别
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification 面向用户的单条通知（toast 等价物）
type Notification struct {
	ID      string
	Level   Level
	Message string
	At      time.Time
}

// Notifier 通知接收方
type Notifier interface {
	Notify(level Level, message string)
}

// Bus 基于 channel 的通知总线
// 发送非阻塞：channel 满时丢弃最旧语义由消费方决定，这里直接丢弃并记日志
type Bus struct {
	ch     chan Notification
	mu     sync.Mutex
	closed bool
}

// NewBus 创建通知总线
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 64
	}
	return &Bus{ch: make(chan Notification, buffer)}
}

// Notify 发送一条通知（非阻塞）
func (b *Bus) Notify(level Level, message string) {
	n := Notification{
		ID:      uuid.NewString(),
		Level:   level,
		Message: message,
		At:      time.Now(),
	}

	switch level {
	case LevelError:
		log.Errorf("%s", message)
	default:
		log.Infof("%s", message)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	select {
	case b.ch <- n:
	default:
		log.Warnf("通知队列已满，丢弃: %s", message)
	}
}

// C 返回通知 channel（供 TUI 消费）
func (b *Bus) C() <-chan Notification {
	return b.ch
}

// Close 关闭总线；之后的 Notify 只记日志不入队
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.ch)
	}
}

// Nop 丢弃所有通知的空实现（测试用）
type Nop struct{}

func (Nop) Notify(Level, string) {}
