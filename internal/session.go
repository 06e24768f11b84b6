package internal

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Conn 連線的發送端
//
// Send 不得阻塞；連線已關閉或緩衝已滿時回傳 false。
type Conn interface {
	Send(msg []byte) bool
}

// Session 一條連線對應的玩家身分
type Session struct {
	ID          string
	RoomID      int // 0 表示不在任何房間
	Seat        int // 不在房間時為 -1
	ConnectedAt time.Time
	conn        Conn
}

// InRoom 是否已入座
func (s Session) InRoom() bool {
	return s.RoomID != 0
}

// Directory 本行程持有的連線
//
// 只記錄「誰連在這台機器上、坐在哪裡」；
// 房間的權威狀態在 Store，這裡的 RoomID 是快取，由 Manager 在每次提交後同步。
type Directory struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewDirectory 建立空目錄
func NewDirectory() *Directory {
	return &Directory{sessions: make(map[string]*Session)}
}

// Add 登記新連線並配發 session ID
func (d *Directory) Add(conn Conn) Session {
	s := &Session{
		ID:          uuid.NewString(),
		Seat:        -1,
		ConnectedAt: time.Now(),
		conn:        conn,
	}

	d.mu.Lock()
	d.sessions[s.ID] = s
	d.mu.Unlock()
	return *s
}

// Remove 移除連線
func (d *Directory) Remove(sessionID string) (Session, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.sessions[sessionID]
	if !ok {
		return Session{}, false
	}
	delete(d.sessions, sessionID)
	return *s, true
}

// Get 讀取 session 副本
func (d *Directory) Get(sessionID string) (Session, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	s, ok := d.sessions[sessionID]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// SetRoom 更新座位；不在本機的 session 直接忽略
func (d *Directory) SetRoom(sessionID string, roomID, seat int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if s, ok := d.sessions[sessionID]; ok {
		s.RoomID = roomID
		s.Seat = seat
	}
}

// Send 送給單一 session，不在本機或已斷線回傳 false
func (d *Directory) Send(sessionID string, msg []byte) bool {
	d.mu.RLock()
	s, ok := d.sessions[sessionID]
	d.mu.RUnlock()

	if !ok {
		return false
	}
	return s.conn.Send(msg)
}

// SendAll 送給本機所有連線，回傳成功數
func (d *Directory) SendAll(msg []byte) int {
	d.mu.RLock()
	conns := make([]Conn, 0, len(d.sessions))
	for _, s := range d.sessions {
		conns = append(conns, s.conn)
	}
	d.mu.RUnlock()

	sent := 0
	for _, c := range conns {
		if c.Send(msg) {
			sent++
		}
	}
	return sent
}

// Has 是否在本機
func (d *Directory) Has(sessionID string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.sessions[sessionID]
	return ok
}

// Count 本機連線數
func (d *Directory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.sessions)
}
