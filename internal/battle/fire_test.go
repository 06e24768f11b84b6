package battle_test

import (
	"testing"

	"github.com/koopa0/system-design/14-battleship/internal/battle"
	"github.com/koopa0/system-design/14-battleship/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fleetBoard(t *testing.T) *battle.Board {
	t.Helper()
	board, err := battle.ValidateFleet(testutils.StandardFleet())
	require.NoError(t, err)
	return board
}

// TestBoard_Fire 測試單次射擊
func TestBoard_Fire(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(board *battle.Board)
		x, y     int
		validate func(t *testing.T, board *battle.Board, out battle.ShotOutcome, err error)
	}{
		{
			name: "miss on empty water",
			x:    5, y: 5,
			validate: func(t *testing.T, board *battle.Board, out battle.ShotOutcome, err error) {
				require.NoError(t, err)
				assert.True(t, out.Resolved)
				assert.False(t, out.Hit)
				assert.Equal(t, battle.CellMiss, board.At(5, 5))
			},
		},
		{
			name: "hit without sinking",
			x:    0, y: 0,
			validate: func(t *testing.T, board *battle.Board, out battle.ShotOutcome, err error) {
				require.NoError(t, err)
				assert.True(t, out.Hit)
				assert.False(t, out.Sunk)
				assert.False(t, out.GameOver)
				assert.Equal(t, battle.CellHit, board.At(0, 0))
			},
		},
		{
			name: "sink single cell ship",
			x:    3, y: 4,
			validate: func(t *testing.T, board *battle.Board, out battle.ShotOutcome, err error) {
				require.NoError(t, err)
				assert.True(t, out.Hit)
				assert.True(t, out.Sunk)
				assert.False(t, out.GameOver)
			},
		},
		{
			name: "sink last cell of multi cell ship",
			setup: func(board *battle.Board) {
				_, _ = board.Fire(4, 2)
			},
			x: 5, y: 2,
			validate: func(t *testing.T, board *battle.Board, out battle.ShotOutcome, err error) {
				require.NoError(t, err)
				assert.True(t, out.Sunk)
			},
		},
		{
			name: "repeat shot on hit cell",
			setup: func(board *battle.Board) {
				_, _ = board.Fire(0, 0)
			},
			x: 0, y: 0,
			validate: func(t *testing.T, board *battle.Board, out battle.ShotOutcome, err error) {
				require.NoError(t, err)
				assert.False(t, out.Resolved)
				assert.False(t, out.Hit)
				assert.Equal(t, battle.CellHit, board.At(0, 0))
			},
		},
		{
			name: "repeat shot on miss cell",
			setup: func(board *battle.Board) {
				_, _ = board.Fire(9, 9)
			},
			x: 9, y: 9,
			validate: func(t *testing.T, board *battle.Board, out battle.ShotOutcome, err error) {
				require.NoError(t, err)
				assert.False(t, out.Resolved)
				assert.Equal(t, 1, board.Count(battle.CellMiss))
			},
		},
		{
			name: "out of bounds",
			x:    10, y: 0,
			validate: func(t *testing.T, board *battle.Board, out battle.ShotOutcome, err error) {
				assert.ErrorIs(t, err, battle.ErrOutOfBounds)
				assert.False(t, out.Resolved)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			board := fleetBoard(t)
			if tt.setup != nil {
				tt.setup(board)
			}
			out, err := board.Fire(tt.x, tt.y)
			tt.validate(t, board, out, err)
		})
	}
}

// TestBoard_FireUntilGameOver 測試擊沉全部艦隊
func TestBoard_FireUntilGameOver(t *testing.T) {
	board := fleetBoard(t)
	targets := testutils.FleetTargets()

	for i, p := range targets {
		out, err := board.Fire(p.X, p.Y)
		require.NoError(t, err)
		require.True(t, out.Hit)

		if i < len(targets)-1 {
			assert.False(t, out.GameOver, "game over too early at %v", p)
		} else {
			assert.True(t, out.Sunk)
			assert.True(t, out.GameOver)
		}
	}

	assert.True(t, board.AllSunk())
	assert.Equal(t, battle.FleetCells, board.Count(battle.CellHit))
}

// TestBoard_AllSunkEmptyBoard 測試空棋盤不算全滅
func TestBoard_AllSunkEmptyBoard(t *testing.T) {
	assert.False(t, battle.NewBoard().AllSunk())
}
