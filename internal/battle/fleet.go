package battle

import "fmt"

// ShipClass 一種船型與其數量
type ShipClass struct {
	Size  int `json:"size"`
	Count int `json:"count"`
}

// Composition 標準艦隊編制：1 艘四格、2 艘三格、3 艘兩格、4 艘一格
var Composition = []ShipClass{
	{Size: 4, Count: 1},
	{Size: 3, Count: 2},
	{Size: 2, Count: 3},
	{Size: 1, Count: 4},
}

// FleetSize 艦隊船數（10）
var FleetSize = func() int {
	n := 0
	for _, c := range Composition {
		n += c.Count
	}
	return n
}()

// FleetCells 艦隊總格數（20）
var FleetCells = func() int {
	n := 0
	for _, c := range Composition {
		n += c.Size * c.Count
	}
	return n
}()

// FleetReason 艦隊驗證失敗的原因
type FleetReason int

const (
	// ReasonInvalidSize 船長不在編制內
	ReasonInvalidSize FleetReason = iota + 1
	// ReasonInvalidPlacement 越界、重疊或相鄰
	ReasonInvalidPlacement
	// ReasonInvalidCount 某種船型數量不符
	ReasonInvalidCount
)

// FleetError 艦隊驗證錯誤
//
// Size 是觸發錯誤的船長；Index 是觸發錯誤的船在輸入中的位置，
// 數量錯誤時為 -1。
type FleetError struct {
	Reason FleetReason
	Size   int
	Index  int
}

func (e *FleetError) Error() string {
	switch e.Reason {
	case ReasonInvalidSize:
		return fmt.Sprintf("invalid ship size: %d", e.Size)
	case ReasonInvalidPlacement:
		return fmt.Sprintf("invalid placement for ship #%d (size %d)", e.Index+1, e.Size)
	case ReasonInvalidCount:
		return fmt.Sprintf("wrong number of %d-deck ships", e.Size)
	default:
		return "invalid fleet"
	}
}

// allowedSize 船長是否在編制內
func allowedSize(size int) bool {
	for _, c := range Composition {
		if c.Size == size {
			return true
		}
	}
	return false
}

// ValidateFleet 驗證整支艦隊並回傳佈好的棋盤
//
// 驗證順序：
//  1. 每艘船的長度必須在編制內
//  2. 依輸入順序逐艘放到暫存棋盤，每艘都要通過 IsPlacementValid
//     （後面的船會因為貼著前面的船而被拒絕）
//  3. 全部放完後，各船型數量必須與 Composition 完全一致
//
// 成功時回傳全新的棋盤；失敗時回傳 *FleetError，呼叫端的棋盤不受影響。
func ValidateFleet(ships []Ship) (*Board, error) {
	scratch := NewBoard()

	for i, s := range ships {
		if !allowedSize(s.Size) {
			return nil, &FleetError{Reason: ReasonInvalidSize, Size: s.Size, Index: i}
		}
		if !scratch.IsPlacementValid(s) {
			return nil, &FleetError{Reason: ReasonInvalidPlacement, Size: s.Size, Index: i}
		}
		scratch.place(s)
	}

	counts := make(map[int]int, len(Composition))
	for _, s := range ships {
		counts[s.Size]++
	}
	for _, c := range Composition {
		if counts[c.Size] != c.Count {
			return nil, &FleetError{Reason: ReasonInvalidCount, Size: c.Size, Index: -1}
		}
	}

	return scratch, nil
}
