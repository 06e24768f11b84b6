package internal

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// 系統設計問題：
//   如何讓兩位玩家在同一局中看到一致的畫面？
//
// 核心挑戰：
//   1. 實時通信：射擊結果必須立即推送給雙方
//   2. 死連接偵測：瀏覽器崩潰或斷網時要能釋放座位
//   3. 慢客戶端：不能因為一條連線寫不動而卡住整個房間
//
// 設計方案：
//   ✅ WebSocket 全雙工
//   ✅ 每條連線一個 readPump（依序處理訊息）+ 一個 writePump
//   ✅ Ping/Pong 心跳（54s / 60s）
//   ✅ 緩衝 channel：Send 不阻塞，滿了就關閉連線

// HubConfig WebSocket 設定
type HubConfig struct {
	PingInterval   time.Duration // 預設 54s
	PongWait       time.Duration // 預設 60s
	WriteWait      time.Duration // 預設 10s
	MaxMessageSize int64         // 預設 64KB
	SendBuffer     int           // 預設 256
}

// DefaultHubConfig 預設 WebSocket 設定
func DefaultHubConfig() HubConfig {
	return HubConfig{
		PingInterval:   54 * time.Second,
		PongWait:       60 * time.Second,
		WriteWait:      10 * time.Second,
		MaxMessageSize: 64 * 1024,
		SendBuffer:     256,
	}
}

// WebSocketHub WebSocket 連接中心
//
// 只負責傳輸：升級連線、讀寫訊息、心跳。
// 每條連線讀到的訊息原封不動交給 Manager。
type WebSocketHub struct {
	manager     *Manager
	config      HubConfig
	logger      *slog.Logger
	upgrader    websocket.Upgrader
	connections map[*Connection]struct{}
	mu          sync.Mutex
	wg          sync.WaitGroup
}

// Connection WebSocket 連接
type Connection struct {
	SessionID string
	Conn      *websocket.Conn
	send      chan []byte
	hub       *WebSocketHub
	mu        sync.Mutex
	closed    bool
}

// NewWebSocketHub 創建 WebSocket Hub
func NewWebSocketHub(manager *Manager, config HubConfig, logger *slog.Logger) *WebSocketHub {
	def := DefaultHubConfig()
	if config.PingInterval <= 0 {
		config.PingInterval = def.PingInterval
	}
	if config.PongWait <= config.PingInterval {
		config.PongWait = config.PingInterval * 10 / 9
	}
	if config.WriteWait <= 0 {
		config.WriteWait = def.WriteWait
	}
	if config.MaxMessageSize <= 0 {
		config.MaxMessageSize = def.MaxMessageSize
	}
	if config.SendBuffer <= 0 {
		config.SendBuffer = def.SendBuffer
	}

	return &WebSocketHub{
		manager: manager,
		config:  config,
		logger:  logger,
		upgrader: websocket.Upgrader{
			// 與靜態頁面同源部署，不檢查 Origin
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		connections: make(map[*Connection]struct{}),
	}
}

// ServeWS 升級連線並開始收發
func (hub *WebSocketHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	c := &Connection{
		Conn: conn,
		send: make(chan []byte, hub.config.SendBuffer),
		hub:  hub,
	}

	hub.mu.Lock()
	hub.connections[c] = struct{}{}
	hub.mu.Unlock()

	// Connect 會先寫入 welcome 與大廳列表，writePump 啟動後送出
	sess := hub.manager.Connect(context.Background(), c)
	c.mu.Lock()
	c.SessionID = sess.ID
	c.mu.Unlock()

	hub.wg.Add(2)
	go c.writePump()
	go c.readPump()

	hub.logger.Debug("websocket connection established",
		"session_id", sess.ID,
		"remote_addr", r.RemoteAddr)
}

// unregister 移除連線並關閉發送通道
func (hub *WebSocketHub) unregister(c *Connection) {
	hub.mu.Lock()
	delete(hub.connections, c)
	hub.mu.Unlock()

	c.closeSend()
}

// Count 目前的連線數
func (hub *WebSocketHub) Count() int {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	return len(hub.connections)
}

// Stop 關閉所有連線並等待讀寫 goroutine 結束
//
// 每條連線的 readPump 結束時都會走 Manager.Disconnect（離座流程）。
func (hub *WebSocketHub) Stop() {
	hub.mu.Lock()
	conns := make([]*Connection, 0, len(hub.connections))
	for c := range hub.connections {
		conns = append(conns, c)
	}
	hub.mu.Unlock()

	for _, c := range conns {
		_ = c.Conn.Close()
	}
	hub.wg.Wait()

	hub.logger.Info("websocket hub stopped")
}

// Send 非阻塞寫入發送緩衝
//
// 已關閉回傳 false；緩衝滿視為慢客戶端，關閉底層連線讓 readPump 走離座流程。
func (c *Connection) Send(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- msg:
		return true
	default:
		c.hub.logger.Warn("send buffer full, closing connection",
			"session_id", c.SessionID)
		_ = c.Conn.Close()
		return false
	}
}

// closeSend 只關閉一次發送通道
func (c *Connection) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// readPump 讀取客戶端訊息
//
// 同一條連線的訊息依序處理，處理完一則才讀下一則。
// 超過 PongWait 沒有任何資料（包括 Pong）就視為死連接。
func (c *Connection) readPump() {
	hub := c.hub
	defer func() {
		hub.manager.Disconnect(context.Background(), c.SessionID)
		hub.unregister(c)
		_ = c.Conn.Close()
		hub.wg.Done()
	}()

	c.Conn.SetReadLimit(hub.config.MaxMessageSize)
	if err := c.Conn.SetReadDeadline(time.Now().Add(hub.config.PongWait)); err != nil {
		hub.logger.Error("failed to set read deadline", "error", err)
	}
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(hub.config.PongWait))
	})

	for {
		messageType, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				hub.logger.Warn("websocket read error",
					"session_id", c.SessionID,
					"error", err)
			}
			return
		}

		if messageType == websocket.TextMessage {
			hub.manager.HandleMessage(context.Background(), c.SessionID, message)
		}
	}
}

// writePump 把發送緩衝寫到客戶端，並定期送 Ping
func (c *Connection) writePump() {
	hub := c.hub
	ticker := time.NewTicker(hub.config.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
		hub.wg.Done()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(hub.config.WriteWait)); err != nil {
				return
			}
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				hub.logger.Debug("websocket write failed",
					"session_id", c.SessionID,
					"error", err)
				return
			}

		case <-ticker.C:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(hub.config.WriteWait)); err != nil {
				return
			}
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
