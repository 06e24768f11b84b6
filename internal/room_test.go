package internal_test

import (
	"testing"

	"github.com/koopa0/system-design/14-battleship/internal"
	"github.com/koopa0/system-design/14-battleship/internal/battle"
	"github.com/koopa0/system-design/14-battleship/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRoomState_New 測試新房間
func TestRoomState_New(t *testing.T) {
	st := internal.NewRoomState(3)

	assert.Equal(t, 3, st.ID)
	assert.Equal(t, internal.PhaseEmpty, st.Phase)
	assert.Empty(t, st.Seats)
	assert.NotNil(t, st.Seats)
	assert.Empty(t, st.Boards)
	assert.False(t, st.GameStarted())
	assert.Equal(t, internal.RoomSummary{ID: 3}, st.Summary())
}

// TestRoomState_Seats 測試座位查詢
func TestRoomState_Seats(t *testing.T) {
	st := internal.NewRoomState(1)
	st.Seats = []string{"alice", "bob"}

	assert.Equal(t, 0, st.SeatOf("alice"))
	assert.Equal(t, 1, st.SeatOf("bob"))
	assert.Equal(t, -1, st.SeatOf("carol"))

	assert.True(t, st.IsSeated("bob"))
	assert.False(t, st.IsSeated("carol"))

	assert.Equal(t, "bob", st.Opponent("alice"))
	assert.Equal(t, "alice", st.Opponent("bob"))

	st.Seats = []string{"alice"}
	assert.Empty(t, st.Opponent("alice"))
}

// TestRoomState_GameStarted 測試大廳顯示的開局狀態
func TestRoomState_GameStarted(t *testing.T) {
	tests := []struct {
		phase   internal.Phase
		started bool
	}{
		{internal.PhaseEmpty, false},
		{internal.PhaseWaiting, false},
		{internal.PhasePlacing, true},
		{internal.PhaseInProgress, true},
		{internal.PhaseFinished, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.phase), func(t *testing.T) {
			st := internal.NewRoomState(1)
			st.Phase = tt.phase
			assert.Equal(t, tt.started, st.GameStarted())
			assert.Equal(t, tt.started, st.Summary().GameStarted)
		})
	}
}

// TestRoomState_Clone 測試深拷貝
func TestRoomState_Clone(t *testing.T) {
	board, err := battle.ValidateFleet(testutils.StandardFleet())
	require.NoError(t, err)

	st := internal.NewRoomState(1)
	st.Seats = []string{"alice", "bob"}
	st.Phase = internal.PhaseInProgress
	st.ShipsPlaced = 2
	st.Turn = "alice"
	st.Boards["alice"] = board
	st.Boards["bob"] = battle.NewBoard()

	clone := st.Clone()
	assert.Equal(t, st, clone)

	// 修改副本不影響原本
	clone.Seats[0] = "mallory"
	clone.Boards["alice"].Cells[0][0] = battle.CellHit
	clone.Boards["alice"].Ships[0].Size = 9
	delete(clone.Boards, "bob")

	assert.Equal(t, "alice", st.Seats[0])
	assert.Equal(t, battle.CellShip, st.Boards["alice"].At(0, 0))
	assert.Equal(t, 4, st.Boards["alice"].Ships[0].Size)
	assert.Contains(t, st.Boards, "bob")
}

// TestRoomState_HasFleet 測試艦隊提交狀態
func TestRoomState_HasFleet(t *testing.T) {
	board, err := battle.ValidateFleet(testutils.StandardFleet())
	require.NoError(t, err)

	st := internal.NewRoomState(1)
	st.Seats = []string{"alice", "bob"}
	st.Boards["alice"] = board
	st.Boards["bob"] = battle.NewBoard()

	assert.True(t, st.HasFleet("alice"))
	assert.False(t, st.HasFleet("bob"))
	assert.False(t, st.HasFleet("carol"))
}

// TestRoomState_Summary 測試大廳列表欄位
func TestRoomState_Summary(t *testing.T) {
	st := internal.NewRoomState(4)
	st.Seats = []string{"alice", "bob"}
	st.Phase = internal.PhasePlacing

	assert.Equal(t, internal.RoomSummary{
		ID:           4,
		PlayersCount: 2,
		GameStarted:  true,
	}, st.Summary())
}
