package internal

import (
	"github.com/koopa0/system-design/14-battleship/internal/battle"
)

// shot 一次射擊的判定結果
type shot struct {
	ignored  bool // 不是自己的回合、沒有對局，或重複射擊
	outcome  battle.ShotOutcome
	opponent string
}

// resolveShot 判定射擊並修改房間狀態
//
// 檢查順序：
//  1. 射手不在房間 → ErrNotInRoom
//  2. 沒有進行中的對局，或不是射手的回合 → 靜默忽略
//  3. 座標越界 → ErrInvalidCoordinates
//  4. 目標已經是 Hit / Miss → 靜默忽略
//
// 命中保留回合；落空換手；擊沉最後一艘船則結束並重置。
func resolveShot(st *RoomState, shooter string, x, y int) (shot, error) {
	if !st.IsSeated(shooter) {
		return shot{}, ErrNotInRoom
	}
	if st.Phase != PhaseInProgress || st.Turn != shooter {
		return shot{ignored: true}, nil
	}
	if !battle.InBounds(x, y) {
		return shot{}, ErrInvalidCoordinates
	}

	opponent := st.Opponent(shooter)
	board, ok := st.Boards[opponent]
	if opponent == "" || !ok {
		return shot{ignored: true}, nil
	}

	out, err := board.Fire(x, y)
	if err != nil {
		return shot{}, ErrInvalidCoordinates
	}
	if !out.Resolved {
		return shot{ignored: true}, nil
	}

	switch {
	case out.GameOver:
		st.finish()
	case !out.Hit:
		st.Turn = opponent
	}
	return shot{outcome: out, opponent: opponent}, nil
}
