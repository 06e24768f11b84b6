package internal

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/koopa0/system-design/14-battleship/internal/battle"
)

// 客戶端 → 伺服器
const (
	MsgJoinRoom    = "join_room"
	MsgLeaveRoom   = "leave_room"
	MsgPlaceShips  = "place_ships"
	MsgShoot       = "shoot"
	MsgChatMessage = "chat_message"
	MsgGetRooms    = "get_rooms"
)

// 伺服器 → 客戶端
const (
	EventWelcome           = "welcome"
	EventRoomsList         = "rooms_list"
	EventError             = "error"
	EventPlayerJoined      = "player_joined"
	EventPlayerLeft        = "player_left"
	EventGameStarting      = "game_starting"
	EventShipsPlaced       = "ships_placed"
	EventShipsPlacedUpdate = "ships_placed_update"
	EventGameStart         = "game_start"
	EventShotResult        = "shot_result"
	EventTurnChange        = "turn_change"
	EventGameOver          = "game_over"
	EventChatMessage       = "chat_message"
)

// roomRef 房間編號，接受 1 或 "1"
//
// 無法解析的值視為 0，之後會得到 ErrRoomNotFound。
type roomRef int

func (r *roomRef) UnmarshalJSON(data []byte) error {
	*r = 0

	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*r = roomRef(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		*r = roomRef(n)
	}
	return nil
}

// Inbound 客戶端訊息
//
// 所有型別共用一個信封，依 Type 決定讀哪些欄位。
type Inbound struct {
	Type   string        `json:"type"`
	RoomID roomRef       `json:"roomId"`
	Ships  []battle.Ship `json:"ships"`
	X      *int          `json:"x"`
	Y      *int          `json:"y"`
	Text   string        `json:"text"`
}

// DecodeInbound 解析客戶端訊息
//
// 錯誤一律包著 ErrInvalidMessage；缺座標的 shoot 也算格式錯誤。
func DecodeInbound(data []byte) (*Inbound, error) {
	var msg Inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrInvalidMessage)
	}
	if msg.Type == MsgShoot && (msg.X == nil || msg.Y == nil) {
		return nil, fmt.Errorf("%w: shoot without coordinates", ErrInvalidMessage)
	}
	return &msg, nil
}

// Event 伺服器事件
//
// 序列化成扁平物件：{"type": Type, ...Fields}
type Event struct {
	Type   string
	Fields map[string]any
}

// MarshalJSON 攤平成單層物件
func (e Event) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(e.Fields)+1)
	for k, v := range e.Fields {
		m[k] = v
	}
	m["type"] = e.Type
	return json.Marshal(m)
}

// Encode 序列化事件
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// RoomSummary 大廳列表的一列
type RoomSummary struct {
	ID           int  `json:"id"`
	PlayersCount int  `json:"playersCount"`
	GameStarted  bool `json:"gameStarted"`
}

func welcomeEvent(sessionID string) Event {
	return Event{Type: EventWelcome, Fields: map[string]any{"playerId": sessionID}}
}

func roomsListEvent(rooms []RoomSummary) Event {
	if rooms == nil {
		rooms = []RoomSummary{}
	}
	return Event{Type: EventRoomsList, Fields: map[string]any{"rooms": rooms}}
}

func errorEvent(err *GameError) Event {
	return Event{Type: EventError, Fields: map[string]any{
		"code":    err.Code,
		"message": err.Message,
	}}
}

func playerJoinedEvent(playerID string, count int) Event {
	return Event{Type: EventPlayerJoined, Fields: map[string]any{
		"playerId":     playerID,
		"playersCount": count,
	}}
}

func playerLeftEvent(playerID string, count int) Event {
	return Event{Type: EventPlayerLeft, Fields: map[string]any{
		"playerId":     playerID,
		"playersCount": count,
	}}
}

func gameStartingEvent() Event {
	return Event{Type: EventGameStarting}
}

func shipsPlacedEvent() Event {
	return Event{Type: EventShipsPlaced}
}

func shipsPlacedUpdateEvent(playerID string, placed int) Event {
	return Event{Type: EventShipsPlacedUpdate, Fields: map[string]any{
		"playerId":    playerID,
		"shipsPlaced": placed,
	}}
}

func gameStartEvent(current string) Event {
	return Event{Type: EventGameStart, Fields: map[string]any{"currentPlayer": current}}
}

func shotResultEvent(shooter string, out battle.ShotOutcome) Event {
	return Event{Type: EventShotResult, Fields: map[string]any{
		"x":        out.X,
		"y":        out.Y,
		"hit":      out.Hit,
		"shipSunk": out.Sunk,
		"gameOver": out.GameOver,
		"playerId": shooter,
	}}
}

func turnChangeEvent(current string) Event {
	return Event{Type: EventTurnChange, Fields: map[string]any{"currentPlayer": current}}
}

func gameOverEvent(winner string) Event {
	return Event{Type: EventGameOver, Fields: map[string]any{"winner": winner}}
}

func chatMessageEvent(playerID, text string, at time.Time) Event {
	return Event{Type: EventChatMessage, Fields: map[string]any{
		"playerId":  playerID,
		"text":      text,
		"timestamp": at.UnixMilli(),
	}}
}
