package battle

import "errors"

// ErrOutOfBounds 射擊座標不在棋盤內
var ErrOutOfBounds = errors.New("coordinates out of bounds")

// ShotOutcome 一次射擊的結果
//
// Resolved 為 false 表示目標格已經是 Hit 或 Miss，
// 棋盤沒有任何變化，呼叫端應當作沒發生過。
type ShotOutcome struct {
	X        int
	Y        int
	Resolved bool
	Hit      bool
	Sunk     bool
	GameOver bool
}

// Fire 對棋盤 (x,y) 開火
//
// Ship → Hit：找出被命中的船，若整艘船都 Hit 則 Sunk；
// 再檢查棋盤上所有船，全滅則 GameOver。
// Empty → Miss。
func (b *Board) Fire(x, y int) (ShotOutcome, error) {
	out := ShotOutcome{X: x, Y: y}
	if !InBounds(x, y) {
		return out, ErrOutOfBounds
	}

	switch b.Cells[y][x] {
	case CellHit, CellMiss:
		return out, nil
	case CellEmpty:
		b.Cells[y][x] = CellMiss
		out.Resolved = true
		return out, nil
	}

	b.Cells[y][x] = CellHit
	out.Resolved = true
	out.Hit = true

	for _, s := range b.Ships {
		if s.Contains(x, y) {
			out.Sunk = b.isSunk(s)
			break
		}
	}

	if out.Sunk {
		out.GameOver = b.AllSunk()
	}
	return out, nil
}

// isSunk 船的每一格是否都已命中
func (b *Board) isSunk(s Ship) bool {
	for _, p := range s.Cells() {
		if b.Cells[p.Y][p.X] != CellHit {
			return false
		}
	}
	return true
}

// AllSunk 艦隊是否全滅；沒有船的棋盤不算全滅
func (b *Board) AllSunk() bool {
	if len(b.Ships) == 0 {
		return false
	}
	for _, s := range b.Ships {
		if !b.isSunk(s) {
			return false
		}
	}
	return true
}
