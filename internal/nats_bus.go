package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSBusConfig NATS 設定
type NATSBusConfig struct {
	URL     string
	Subject string // 預設 "battleship.deliveries"
	Name    string // 連線名稱，出現在 NATS 監控頁
}

// NATSBus 以 NATS core pub/sub 實作的 Bus
//
// 所有行程訂閱同一個 subject。NATS 對同一個發送者在同一個 subject 上
// 保證投遞順序，所以一個房間（由持有房間鎖的行程發出）的事件順序不變。
type NATSBus struct {
	conn    *nats.Conn
	subject string
	sub     *nats.Subscription
	logger  *slog.Logger
}

// NewNATSBus 連線到 NATS
func NewNATSBus(config NATSBusConfig, logger *slog.Logger) (*NATSBus, error) {
	if config.Subject == "" {
		config.Subject = "battleship.deliveries"
	}
	if config.Name == "" {
		config.Name = "battleship"
	}

	conn, err := nats.Connect(
		config.URL,
		nats.Name(config.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.PingInterval(20*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	return &NATSBus{
		conn:    conn,
		subject: config.Subject,
		logger:  logger,
	}, nil
}

// Publish 發佈一次投遞
func (b *NATSBus) Publish(_ context.Context, d Delivery) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode delivery: %w", err)
	}
	if err := b.conn.Publish(b.subject, data); err != nil {
		return fmt.Errorf("publish delivery: %w", err)
	}
	return nil
}

// Subscribe 訂閱投遞
//
// nats.go 對每個訂閱用單一 goroutine 依序呼叫 handler。
func (b *NATSBus) Subscribe(handler func(Delivery)) error {
	sub, err := b.conn.Subscribe(b.subject, func(msg *nats.Msg) {
		var d Delivery
		if err := json.Unmarshal(msg.Data, &d); err != nil {
			b.logger.Warn("malformed delivery", "error", err)
			return
		}
		handler(d)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", b.subject, err)
	}
	b.sub = sub
	return nil
}

// Close 排空並關閉連線
func (b *NATSBus) Close() error {
	if b.sub != nil {
		_ = b.sub.Unsubscribe()
	}
	return b.conn.Drain()
}
