// Package battle 實作海戰棋的棋盤、艦隊規則與射擊判定。
//
// 本套件不持有任何鎖，也不知道房間或連線的存在；
// 所有函式都是對單一 Board 的純計算，由上層負責序列化。
package battle

// BoardSize 棋盤邊長（10×10）
const BoardSize = 10

// Cell 格子狀態
//
// 狀態轉換：
//
//	Empty → Ship  僅在佈陣時
//	Ship  → Hit   僅在戰鬥時
//	Empty → Miss  僅在戰鬥時
//
// 除了整局重置（全部回到 Empty）以外不會回退。
type Cell uint8

const (
	CellEmpty Cell = iota // 空海域
	CellShip              // 艦體
	CellHit               // 已命中
	CellMiss              // 未命中
)

// String 回傳格子狀態名稱
func (c Cell) String() string {
	switch c {
	case CellEmpty:
		return "empty"
	case CellShip:
		return "ship"
	case CellHit:
		return "hit"
	case CellMiss:
		return "miss"
	default:
		return "unknown"
	}
}

// Point 棋盤座標，X 為欄、Y 為列
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// InBounds 座標是否落在 [0,BoardSize)×[0,BoardSize)
func InBounds(x, y int) bool {
	return x >= 0 && x < BoardSize && y >= 0 && y < BoardSize
}

// Ship 一艘船：錨點 (X,Y)、長度與方向
//
// 水平船從錨點往 +X 延伸，垂直船往 +Y 延伸。
type Ship struct {
	Size       int  `json:"size"`
	X          int  `json:"x"`
	Y          int  `json:"y"`
	Horizontal bool `json:"isHorizontal"`
}

// Cells 船佔據的格子（依錨點起算的順序）
func (s Ship) Cells() []Point {
	cells := make([]Point, 0, s.Size)
	for i := 0; i < s.Size; i++ {
		if s.Horizontal {
			cells = append(cells, Point{X: s.X + i, Y: s.Y})
		} else {
			cells = append(cells, Point{X: s.X, Y: s.Y + i})
		}
	}
	return cells
}

// Contains 船是否佔據 (x,y)
func (s Ship) Contains(x, y int) bool {
	if s.Horizontal {
		return y == s.Y && x >= s.X && x < s.X+s.Size
	}
	return x == s.X && y >= s.Y && y < s.Y+s.Size
}

// fits 船身是否完全在棋盤內
func (s Ship) fits() bool {
	if s.Size <= 0 || !InBounds(s.X, s.Y) {
		return false
	}
	if s.Horizontal {
		return s.X+s.Size <= BoardSize
	}
	return s.Y+s.Size <= BoardSize
}

// Board 一位玩家的棋盤
//
// Cells 以 [y][x] 索引。Ships 是已提交的艦隊，
// 用於擊沉判定；佈陣前為空。
type Board struct {
	Cells [BoardSize][BoardSize]Cell `json:"cells"`
	Ships []Ship                     `json:"ships,omitempty"`
}

// NewBoard 建立全空的棋盤
func NewBoard() *Board {
	return &Board{}
}

// At 讀取格子狀態，越界視為 Empty
func (b *Board) At(x, y int) Cell {
	if !InBounds(x, y) {
		return CellEmpty
	}
	return b.Cells[y][x]
}

// IsPlacementValid 檢查船是否可以放在這張棋盤上
//
// 規則：
//   - 船身不可超出棋盤
//   - 以船身為中心往外擴一格的矩形（裁切到棋盤內）不得有任何 Ship 格
//
// 一次掃描同時處理重疊與「船與船之間至少隔一格（含斜角）」。
// 擴張矩形碰到棋盤邊緣只是少掃幾格，貼邊不算違規。
func (b *Board) IsPlacementValid(s Ship) bool {
	if !s.fits() {
		return false
	}

	minX, minY := s.X-1, s.Y-1
	maxX, maxY := s.X+1, s.Y+1
	if s.Horizontal {
		maxX = s.X + s.Size
	} else {
		maxY = s.Y + s.Size
	}

	for y := max(minY, 0); y <= min(maxY, BoardSize-1); y++ {
		for x := max(minX, 0); x <= min(maxX, BoardSize-1); x++ {
			if b.Cells[y][x] == CellShip {
				return false
			}
		}
	}
	return true
}

// place 把船寫進棋盤（呼叫前必須先通過 IsPlacementValid）
func (b *Board) place(s Ship) {
	for _, p := range s.Cells() {
		b.Cells[p.Y][p.X] = CellShip
	}
	b.Ships = append(b.Ships, s)
}

// Count 統計某種狀態的格子數
func (b *Board) Count(c Cell) int {
	n := 0
	for y := range b.Cells {
		for x := range b.Cells[y] {
			if b.Cells[y][x] == c {
				n++
			}
		}
	}
	return n
}

// IsClear 棋盤是否全空（重置後的狀態）
func (b *Board) IsClear() bool {
	return b.Count(CellEmpty) == BoardSize*BoardSize && len(b.Ships) == 0
}

// Reset 清空棋盤與艦隊
func (b *Board) Reset() {
	*b = Board{}
}
