package internal

import (
	"context"
	"errors"
)

// 系統設計問題：
//   房間狀態放在行程記憶體還是共享的 Redis？
//
// 核心挑戰：
//   1. 單機：多個連線同時修改同一房間
//   2. 多機：不同行程修改同一房間，讀後寫會互相覆蓋
//
// 設計方案：
//   ✅ Store 只有一個寫入原語 Update(ctx, id, fn)
//   ✅ 記憶體版：每個房間一把鎖
//   ✅ Redis 版：WATCH/MULTI 樂觀鎖 + 有限重試（compare-and-set）
//
// 呼叫端只寫一份狀態機，兩種儲存共用。

// UpdateFunc 對房間狀態做一次讀改寫
//
// 回傳錯誤時不寫回任何變更。Redis 版在衝突時會重跑 fn，
// 因此 fn 除了修改傳入的狀態外不應有副作用，或每次重跑都先重置自己的輸出。
type UpdateFunc func(state *RoomState) error

// Store 房間狀態儲存
type Store interface {
	// Update 原子地讀改寫一個房間，回傳提交後的狀態
	Update(ctx context.Context, roomID int, fn UpdateFunc) (*RoomState, error)
	// Get 讀取一個房間的快照
	Get(ctx context.Context, roomID int) (*RoomState, error)
	// List 依房號順序回傳所有房間的快照
	List(ctx context.Context) ([]*RoomState, error)
	// Members 房間內的 session ID（入座順序）
	Members(ctx context.Context, roomID int) ([]string, error)
	// Close 釋放資源
	Close() error
}

// ErrConflict 重試次數用盡仍然衝突
var ErrConflict = errors.New("room update conflict: retries exhausted")

// validRoom 房號是否在 1..n
func validRoom(roomID, n int) bool {
	return roomID >= 1 && roomID <= n
}
