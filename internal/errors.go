package internal

import (
	"errors"
	"fmt"
)

// 錯誤碼
const (
	CodeRoomNotFound       = "ROOM_NOT_FOUND"
	CodeRoomFull           = "ROOM_FULL"
	CodeGameAlreadyStarted = "GAME_ALREADY_STARTED"
	CodeNotInRoom          = "NOT_IN_ROOM"
	CodeGameNotStarted     = "GAME_NOT_STARTED"
	CodeInvalidShipSize    = "INVALID_SHIP_SIZE"
	CodeInvalidPlacement   = "INVALID_PLACEMENT"
	CodeInvalidShipCount   = "INVALID_SHIP_COUNT"
	CodeInvalidCoordinates = "INVALID_COORDINATES"
	CodeInvalidMessage     = "INVALID_MESSAGE" // 只用於日誌，格式錯誤的訊息不回報
	CodeUnavailable        = "SERVICE_UNAVAILABLE"
)

// GameError 回報給玩家的錯誤
//
// 全部是非致命錯誤：只送給觸發的連線，不改變房間狀態。
type GameError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error 實現 error 介面
func (e *GameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 實現 errors.Unwrap
func (e *GameError) Unwrap() error {
	return e.Err
}

// Is 以錯誤碼比較
func (e *GameError) Is(target error) bool {
	t, ok := target.(*GameError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// newGameError 建立遊戲錯誤
func newGameError(code, message string) *GameError {
	return &GameError{Code: code, Message: message}
}

// withMessage 複製錯誤並換掉訊息（錯誤碼不變，errors.Is 仍成立）
func (e *GameError) withMessage(message string) *GameError {
	return &GameError{Code: e.Code, Message: message, Err: e.Err}
}

// wrapUnavailable 包裝基礎設施錯誤
func wrapUnavailable(err error) *GameError {
	return &GameError{Code: CodeUnavailable, Message: "service temporarily unavailable", Err: err}
}

// 預定義錯誤
var (
	ErrRoomNotFound       = newGameError(CodeRoomNotFound, "room not found")
	ErrRoomFull           = newGameError(CodeRoomFull, "room is full")
	ErrGameAlreadyStarted = newGameError(CodeGameAlreadyStarted, "game already started")
	ErrNotInRoom          = newGameError(CodeNotInRoom, "you are not in a room")
	ErrGameNotStarted     = newGameError(CodeGameNotStarted, "game has not started")
	ErrInvalidShipSize    = newGameError(CodeInvalidShipSize, "invalid ship size")
	ErrInvalidPlacement   = newGameError(CodeInvalidPlacement, "invalid ship placement")
	ErrInvalidShipCount   = newGameError(CodeInvalidShipCount, "invalid number of ships")
	ErrInvalidCoordinates = newGameError(CodeInvalidCoordinates, "invalid coordinates")
	ErrInvalidMessage     = newGameError(CodeInvalidMessage, "malformed message")
	ErrUnavailable        = newGameError(CodeUnavailable, "service temporarily unavailable")
)

// AsGameError 取出 *GameError；其他錯誤一律視為 Unavailable
func AsGameError(err error) *GameError {
	var ge *GameError
	if errors.As(err, &ge) {
		return ge
	}
	return wrapUnavailable(err)
}

// IsCode 檢查錯誤碼
func IsCode(err error, code string) bool {
	var ge *GameError
	if errors.As(err, &ge) {
		return ge.Code == code
	}
	return false
}
