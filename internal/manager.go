package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/koopa0/system-design/14-battleship/internal/battle"
)

// ManagerConfig 遊戲設定
type ManagerConfig struct {
	Rooms         int           // 房間數量（1..Rooms）
	ChatMaxLength int           // 聊天訊息長度上限（rune）
	OpTimeout     time.Duration // 單一操作（含儲存）的逾時
}

// DefaultManagerConfig 預設遊戲設定
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Rooms:         5,
		ChatMaxLength: 500,
		OpTimeout:     5 * time.Second,
	}
}

// Manager 房間與對局的狀態機
//
// 每個改變房間的操作都在該房間的鎖內完成「Store.Update → 投遞事件」，
// 同一房間的事件依提交順序送出。不同房間之間沒有共用的鎖。
//
// 鎖順序：Manager 房間鎖 → Store 內部鎖。Store 的鎖永遠不會在持有時
// 反過來取 Manager 的鎖。
type Manager struct {
	store  Store
	dir    *Directory
	router *Router
	config ManagerConfig
	locks  []sync.Mutex
	intn   func(n int) int
	now    func() time.Time
	logger *slog.Logger
}

// Option Manager 選項
type Option func(*Manager)

// WithRandom 替換先手抽籤的亂數來源
func WithRandom(intn func(n int) int) Option {
	return func(m *Manager) {
		m.intn = intn
	}
}

// WithClock 替換時間來源
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager 創建管理器
func NewManager(store Store, dir *Directory, router *Router, config ManagerConfig, logger *slog.Logger, opts ...Option) *Manager {
	if config.Rooms <= 0 {
		config.Rooms = DefaultManagerConfig().Rooms
	}
	if config.ChatMaxLength <= 0 {
		config.ChatMaxLength = DefaultManagerConfig().ChatMaxLength
	}
	if config.OpTimeout <= 0 {
		config.OpTimeout = DefaultManagerConfig().OpTimeout
	}

	m := &Manager{
		store:  store,
		dir:    dir,
		router: router,
		config: config,
		locks:  make([]sync.Mutex, config.Rooms),
		intn:   rand.IntN,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// errNoop 放棄這次更新，不寫回、不投遞
var errNoop = errors.New("no change")

// outbound 待投遞的事件
type outbound struct {
	scope  Scope
	target string
	event  Event
}

func toRoom(ev Event) outbound {
	return outbound{scope: ScopeRoom, event: ev}
}

func toOne(sessionID string, ev Event) outbound {
	return outbound{scope: ScopeOne, target: sessionID, event: ev}
}

// lobbyUpdate 大廳列表在投遞時才讀取
var lobbyUpdate = outbound{scope: ScopeAll}

// withRoom 在房間鎖內讀改寫並投遞事件
//
// fn 可能被 Store 重跑，每次都回傳完整的事件列表。
func (m *Manager) withRoom(ctx context.Context, roomID int, fn func(st *RoomState) ([]outbound, error)) (*RoomState, error) {
	if !validRoom(roomID, m.config.Rooms) {
		return nil, ErrRoomNotFound
	}

	lock := &m.locks[roomID-1]
	lock.Lock()
	defer lock.Unlock()

	var out []outbound
	st, err := m.store.Update(ctx, roomID, func(s *RoomState) error {
		o, err := fn(s)
		out = o
		return err
	})
	if errors.Is(err, errNoop) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	for i, id := range st.Seats {
		m.dir.SetRoom(id, st.ID, i)
	}
	m.dispatch(ctx, roomID, out)
	return st, nil
}

func (m *Manager) dispatch(ctx context.Context, roomID int, out []outbound) {
	lobby := false
	for _, o := range out {
		switch o.scope {
		case ScopeOne:
			m.router.ToOne(ctx, o.target, o.event)
		case ScopeRoom:
			m.router.ToRoom(ctx, roomID, o.event)
		case ScopeAll:
			lobby = true
		}
	}
	if lobby {
		m.broadcastLobby(ctx)
	}
}

// broadcastLobby 向所有連線推送最新大廳列表
func (m *Manager) broadcastLobby(ctx context.Context) {
	rooms, err := m.ListRooms(ctx)
	if err != nil {
		m.logger.Error("failed to list rooms", "error", err)
		return
	}
	m.router.ToAll(ctx, roomsListEvent(rooms))
}

// Connect 登記新連線，送出 welcome 與大廳列表
func (m *Manager) Connect(ctx context.Context, conn Conn) Session {
	sess := m.dir.Add(conn)
	m.logger.Info("player connected", "session_id", sess.ID)

	m.router.ToOne(ctx, sess.ID, welcomeEvent(sess.ID))
	if err := m.SendRooms(ctx, sess.ID); err != nil {
		m.logger.Error("failed to send rooms list", "session_id", sess.ID, "error", err)
	}
	return sess
}

// Disconnect 走離開流程後移除連線
func (m *Manager) Disconnect(ctx context.Context, sessionID string) {
	if err := m.LeaveRoom(ctx, sessionID); err != nil {
		m.logger.Error("failed to leave room on disconnect",
			"session_id", sessionID,
			"error", err)
	}
	if _, ok := m.dir.Remove(sessionID); ok {
		m.logger.Info("player disconnected", "session_id", sessionID)
	}
}

// HandleMessage 處理一個客戶端訊息
//
// 格式錯誤的訊息記錄後丟棄；遊戲錯誤只回給發送者。
func (m *Manager) HandleMessage(ctx context.Context, sessionID string, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("panic while handling message",
				"session_id", sessionID,
				"panic", r)
		}
	}()

	msg, err := DecodeInbound(data)
	if err != nil {
		m.logger.Warn("malformed message dropped",
			"session_id", sessionID,
			"code", AsGameError(err).Code,
			"error", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, m.config.OpTimeout)
	defer cancel()

	m.logger.Debug("message received", "session_id", sessionID, "type", msg.Type)

	var opErr error
	switch msg.Type {
	case MsgJoinRoom:
		opErr = m.JoinRoom(ctx, sessionID, int(msg.RoomID))
	case MsgLeaveRoom:
		opErr = m.LeaveRoom(ctx, sessionID)
	case MsgPlaceShips:
		opErr = m.PlaceShips(ctx, sessionID, msg.Ships)
	case MsgShoot:
		opErr = m.Shoot(ctx, sessionID, *msg.X, *msg.Y)
	case MsgChatMessage:
		opErr = m.Chat(ctx, sessionID, msg.Text)
	case MsgGetRooms:
		opErr = m.SendRooms(ctx, sessionID)
	default:
		m.logger.Warn("unknown message type dropped",
			"session_id", sessionID,
			"type", msg.Type)
		return
	}

	if opErr != nil {
		m.reportError(ctx, sessionID, msg.Type, opErr)
	}
}

// reportError 把錯誤送回發送者
func (m *Manager) reportError(ctx context.Context, sessionID, msgType string, err error) {
	ge := AsGameError(err)
	if ge.Code == CodeUnavailable {
		m.logger.Error("operation failed",
			"session_id", sessionID,
			"type", msgType,
			"error", err)
	} else {
		m.logger.Debug("operation rejected",
			"session_id", sessionID,
			"type", msgType,
			"code", ge.Code)
	}
	m.router.ToOne(ctx, sessionID, errorEvent(ge))
}

// JoinRoom 入座
//
// 已坐在其他房間時，先在目標房間提交入座，成功後才離開原房間；
// 目標房間已滿或已開局時玩家留在原座位。
// 重複加入自己所在的房間不做任何事（以 Store 為準，不看目錄快取）。
func (m *Manager) JoinRoom(ctx context.Context, sessionID string, roomID int) error {
	sess, ok := m.dir.Get(sessionID)
	if !ok {
		// 連線已移除
		return nil
	}

	st, err := m.withRoom(ctx, roomID, func(st *RoomState) ([]outbound, error) {
		if st.IsSeated(sessionID) {
			return nil, errNoop
		}
		_, placing, err := st.addSeat(sessionID)
		if err != nil {
			return nil, err
		}

		out := []outbound{toRoom(playerJoinedEvent(sessionID, len(st.Seats)))}
		if placing {
			out = append(out, toRoom(gameStartingEvent()))
		}
		return append(out, lobbyUpdate), nil
	})
	if err != nil {
		return err
	}
	if st == nil {
		return nil
	}

	m.logger.Info("player joined room",
		"room_id", roomID,
		"session_id", sessionID,
		"players", len(st.Seats),
		"phase", st.Phase)

	if sess.InRoom() && sess.RoomID != roomID {
		if err := m.leave(ctx, sessionID, sess.RoomID); err != nil {
			m.logger.Error("failed to leave previous room",
				"room_id", sess.RoomID,
				"session_id", sessionID,
				"error", err)
		}
	}
	return nil
}

// LeaveRoom 離座；不在房間內時不做任何事
//
// 對局中（佈陣或交戰）離開會重置房間，剩下的玩家留在座位上等待。
func (m *Manager) LeaveRoom(ctx context.Context, sessionID string) error {
	sess, ok := m.dir.Get(sessionID)
	if !ok || !sess.InRoom() {
		return nil
	}

	if err := m.leave(ctx, sessionID, sess.RoomID); err != nil {
		return err
	}
	m.dir.SetRoom(sessionID, 0, -1)
	return nil
}

// leave 從指定房間移除座位，不更新離開者的目錄快取
func (m *Manager) leave(ctx context.Context, sessionID string, roomID int) error {
	var wasStarted bool
	st, err := m.withRoom(ctx, roomID, func(st *RoomState) ([]outbound, error) {
		wasStarted = st.GameStarted()
		if !st.removeSeat(sessionID) {
			return nil, errNoop
		}

		var out []outbound
		if len(st.Seats) > 0 {
			out = append(out, toRoom(playerLeftEvent(sessionID, len(st.Seats))))
		}
		return append(out, lobbyUpdate), nil
	})
	if err != nil {
		return err
	}

	if st != nil {
		m.logger.Info("player left room",
			"room_id", roomID,
			"session_id", sessionID,
			"players", len(st.Seats),
			"reset", wasStarted)
	}
	return nil
}

// PlaceShips 提交艦隊
//
// 驗證失敗時棋盤不變。雙方都提交後隨機決定先手並開戰。
func (m *Manager) PlaceShips(ctx context.Context, sessionID string, ships []battle.Ship) error {
	sess, ok := m.dir.Get(sessionID)
	if !ok || !sess.InRoom() {
		return ErrNotInRoom
	}

	var starter string
	st, err := m.withRoom(ctx, sess.RoomID, func(st *RoomState) ([]outbound, error) {
		starter = ""
		if !st.IsSeated(sessionID) {
			return nil, ErrNotInRoom
		}
		if st.Phase != PhasePlacing {
			return nil, ErrGameNotStarted
		}

		board, err := battle.ValidateFleet(ships)
		if err != nil {
			return nil, fleetError(err)
		}

		out := []outbound{toOne(sessionID, shipsPlacedEvent())}
		ready := st.commitFleet(sessionID, board)
		out = append(out, toRoom(shipsPlacedUpdateEvent(sessionID, st.ShipsPlaced)))

		if ready {
			starter = st.Seats[m.intn(len(st.Seats))]
			st.startCombat(starter)
			out = append(out, toRoom(gameStartEvent(starter)), lobbyUpdate)
		}
		return out, nil
	})
	if err != nil {
		return err
	}

	m.logger.Info("fleet placed",
		"room_id", st.ID,
		"session_id", sessionID,
		"ships_placed", st.ShipsPlaced)
	if starter != "" {
		m.logger.Info("game started", "room_id", st.ID, "first_player", starter)
	}
	return nil
}

// Shoot 開火
func (m *Manager) Shoot(ctx context.Context, sessionID string, x, y int) error {
	sess, ok := m.dir.Get(sessionID)
	if !ok || !sess.InRoom() {
		return ErrNotInRoom
	}

	var result shot
	_, err := m.withRoom(ctx, sess.RoomID, func(st *RoomState) ([]outbound, error) {
		result = shot{}
		res, err := resolveShot(st, sessionID, x, y)
		if err != nil {
			return nil, err
		}
		if res.ignored {
			return nil, errNoop
		}
		result = res

		out := []outbound{toRoom(shotResultEvent(sessionID, res.outcome))}
		switch {
		case res.outcome.GameOver:
			out = append(out, toRoom(gameOverEvent(sessionID)), lobbyUpdate)
		case !res.outcome.Hit:
			out = append(out, toRoom(turnChangeEvent(res.opponent)))
		}
		return out, nil
	})
	if err != nil {
		return err
	}

	if result.outcome.GameOver {
		m.logger.Info("game over",
			"room_id", sess.RoomID,
			"winner", sessionID)
	}
	return nil
}

// Chat 房間內聊天；空白訊息直接丟棄
func (m *Manager) Chat(ctx context.Context, sessionID, text string) error {
	sess, ok := m.dir.Get(sessionID)
	if !ok || !sess.InRoom() {
		return ErrNotInRoom
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if utf8.RuneCountInString(text) > m.config.ChatMaxLength {
		text = string([]rune(text)[:m.config.ChatMaxLength])
	}

	lock := &m.locks[sess.RoomID-1]
	lock.Lock()
	defer lock.Unlock()

	st, err := m.store.Get(ctx, sess.RoomID)
	if err != nil {
		return err
	}
	if !st.IsSeated(sessionID) {
		return ErrNotInRoom
	}

	m.router.ToRoom(ctx, sess.RoomID, chatMessageEvent(sessionID, text, m.now()))
	return nil
}

// SendRooms 送大廳列表給單一連線
func (m *Manager) SendRooms(ctx context.Context, sessionID string) error {
	rooms, err := m.ListRooms(ctx)
	if err != nil {
		return err
	}
	m.router.ToOne(ctx, sessionID, roomsListEvent(rooms))
	return nil
}

// ListRooms 大廳列表（依房號排序）
func (m *Manager) ListRooms(ctx context.Context) ([]RoomSummary, error) {
	states, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}

	rooms := make([]RoomSummary, 0, len(states))
	for _, st := range states {
		rooms = append(rooms, st.Summary())
	}
	return rooms, nil
}

// Stats 統計資訊
type Stats struct {
	Sessions int           `json:"sessions"`
	Rooms    int           `json:"rooms"`
	Players  int           `json:"players"`
	ByPhase  map[Phase]int `json:"rooms_by_phase"`
}

// Stats 本機連線數與所有房間的階段分佈
func (m *Manager) Stats(ctx context.Context) (Stats, error) {
	states, err := m.store.List(ctx)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{
		Sessions: m.dir.Count(),
		Rooms:    len(states),
		ByPhase:  make(map[Phase]int),
	}
	for _, st := range states {
		stats.Players += len(st.Seats)
		stats.ByPhase[st.Phase]++
	}
	return stats, nil
}

// Room 讀取單一房間快照
func (m *Manager) Room(ctx context.Context, roomID int) (*RoomState, error) {
	return m.store.Get(ctx, roomID)
}

// fleetError 艦隊驗證錯誤轉成遊戲錯誤
func fleetError(err error) error {
	var fe *battle.FleetError
	if !errors.As(err, &fe) {
		return fmt.Errorf("validate fleet: %w", err)
	}

	switch fe.Reason {
	case battle.ReasonInvalidSize:
		return ErrInvalidShipSize.withMessage(fe.Error())
	case battle.ReasonInvalidPlacement:
		return ErrInvalidPlacement.withMessage(fe.Error())
	default:
		return ErrInvalidShipCount.withMessage(fe.Error())
	}
}
