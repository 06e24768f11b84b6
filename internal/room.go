package internal

import (
	"slices"

	"github.com/koopa0/system-design/14-battleship/internal/battle"
)

// 系統設計問題：
//   兩人對戰房間如何在「多個連線同時操作」下保持一致？
//
// 核心挑戰：
//   1. 座位分配：同一房間最多兩人，先到先得
//   2. 階段轉換：佈陣、交戰、結束都有嚴格的先後順序
//   3. 重置：任何一方離開或分出勝負，房間必須回到乾淨狀態
//
// 設計方案：
//   ✅ RoomState 是純資料，可以整份序列化到 Redis
//   ✅ 所有轉換都是 RoomState 上的方法，由 Store.Update 保證原子性
//   ✅ 房間永不刪除，只重置

// Phase 房間階段
//
// 有限狀態機：
//
//	empty → waiting → placing → in_progress → finished → waiting
//	          ↑__________|___________|   （有人離開）
//
// 轉換規則：
//   - empty → waiting：第一位玩家入座
//   - waiting → placing：第二位玩家入座
//   - placing → in_progress：雙方都提交合法艦隊
//   - in_progress → finished → waiting：一方艦隊全滅
//   - placing / in_progress → waiting：任一方離開
type Phase string

const (
	PhaseEmpty      Phase = "empty"
	PhaseWaiting    Phase = "waiting"
	PhasePlacing    Phase = "placing"
	PhaseInProgress Phase = "in_progress"
	PhaseFinished   Phase = "finished"
)

// MaxSeats 每個房間的座位數
const MaxSeats = 2

// RoomState 房間的完整狀態
//
// Seats 依入座順序排列；Boards 以 session ID 為 key，
// 每個入座的玩家都有一張棋盤（佈陣前為空）。
type RoomState struct {
	ID          int                      `json:"id"`
	Seats       []string                 `json:"seats"`
	Phase       Phase                    `json:"phase"`
	ShipsPlaced int                      `json:"shipsPlaced"`
	Turn        string                   `json:"turn,omitempty"`
	Boards      map[string]*battle.Board `json:"boards"`
}

// NewRoomState 建立空房間
func NewRoomState(id int) *RoomState {
	return &RoomState{
		ID:     id,
		Seats:  []string{},
		Phase:  PhaseEmpty,
		Boards: make(map[string]*battle.Board),
	}
}

// Clone 深拷貝，Update 失敗時原狀態不受影響
func (r *RoomState) Clone() *RoomState {
	c := &RoomState{
		ID:          r.ID,
		Seats:       slices.Clone(r.Seats),
		Phase:       r.Phase,
		ShipsPlaced: r.ShipsPlaced,
		Turn:        r.Turn,
		Boards:      make(map[string]*battle.Board, len(r.Boards)),
	}
	if c.Seats == nil {
		c.Seats = []string{}
	}
	for id, b := range r.Boards {
		nb := *b
		nb.Ships = slices.Clone(b.Ships)
		c.Boards[id] = &nb
	}
	return c
}

// SeatOf 回傳座位索引，不在房間內為 -1
func (r *RoomState) SeatOf(sessionID string) int {
	return slices.Index(r.Seats, sessionID)
}

// IsSeated 是否在房間內
func (r *RoomState) IsSeated(sessionID string) bool {
	return r.SeatOf(sessionID) >= 0
}

// Opponent 對手的 session ID，沒有對手回傳空字串
func (r *RoomState) Opponent(sessionID string) string {
	for _, id := range r.Seats {
		if id != sessionID {
			return id
		}
	}
	return ""
}

// GameStarted 大廳顯示用：佈陣或交戰中
func (r *RoomState) GameStarted() bool {
	return r.Phase == PhasePlacing || r.Phase == PhaseInProgress
}

// HasFleet 該玩家是否已提交艦隊
func (r *RoomState) HasFleet(sessionID string) bool {
	b, ok := r.Boards[sessionID]
	return ok && len(b.Ships) > 0
}

// Summary 大廳列表的一列
func (r *RoomState) Summary() RoomSummary {
	return RoomSummary{
		ID:           r.ID,
		PlayersCount: len(r.Seats),
		GameStarted:  r.GameStarted(),
	}
}

// addSeat 入座
//
// 檢查順序：已滿 → 已開局。回傳座位索引與是否因此進入佈陣階段。
func (r *RoomState) addSeat(sessionID string) (seat int, placing bool, err error) {
	if seat := r.SeatOf(sessionID); seat >= 0 {
		return seat, false, nil
	}
	if len(r.Seats) >= MaxSeats {
		return -1, false, ErrRoomFull
	}
	if r.GameStarted() {
		return -1, false, ErrGameAlreadyStarted
	}

	r.Seats = append(r.Seats, sessionID)
	r.Boards[sessionID] = battle.NewBoard()

	switch {
	case len(r.Seats) == MaxSeats:
		r.Phase = PhasePlacing
		r.ShipsPlaced = 0
		placing = true
	case r.Phase == PhaseEmpty:
		r.Phase = PhaseWaiting
	}
	return len(r.Seats) - 1, placing, nil
}

// removeSeat 離座
//
// 開局中（佈陣或交戰）離開會重置整個房間；
// 回傳 false 表示此人本來就不在房間內。
func (r *RoomState) removeSeat(sessionID string) bool {
	i := r.SeatOf(sessionID)
	if i < 0 {
		return false
	}

	started := r.GameStarted()
	r.Seats = slices.Delete(r.Seats, i, i+1)
	delete(r.Boards, sessionID)

	if started {
		r.reset()
		return true
	}
	r.settle()
	return true
}

// commitFleet 寫入已驗證的艦隊
//
// 重複提交只覆蓋自己的棋盤，不重複計數。
// 回傳 true 表示雙方都已提交。
func (r *RoomState) commitFleet(sessionID string, board *battle.Board) bool {
	r.Boards[sessionID] = board

	placed := 0
	for _, id := range r.Seats {
		if r.HasFleet(id) {
			placed++
		}
	}
	r.ShipsPlaced = placed
	return placed == MaxSeats
}

// startCombat 進入交戰，starter 先手
func (r *RoomState) startCombat(starter string) {
	r.Phase = PhaseInProgress
	r.Turn = starter
}

// finish 分出勝負，接著立即重置
func (r *RoomState) finish() {
	r.Phase = PhaseFinished
	r.reset()
}

// reset 清空棋盤與計數，玩家留在座位上
func (r *RoomState) reset() {
	for _, id := range r.Seats {
		r.Boards[id] = battle.NewBoard()
	}
	r.ShipsPlaced = 0
	r.Turn = ""
	r.Phase = PhaseWaiting
	r.settle()
}

// settle 依座位數修正等待中的階段
func (r *RoomState) settle() {
	if len(r.Seats) == 0 {
		r.Phase = PhaseEmpty
		return
	}
	if r.Phase == PhaseEmpty {
		r.Phase = PhaseWaiting
	}
}
