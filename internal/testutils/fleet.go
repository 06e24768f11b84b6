package testutils

import "github.com/koopa0/system-design/14-battleship/internal/battle"

// StandardFleet 回傳一支合法的標準艦隊
//
// 佈局（. 為空海域，數字為船長）：
//
//	y=0  4 4 4 4 . 3 3 3 . .
//	y=2  3 3 3 . 2 2 . 2 2 .
//	y=4  2 2 . 1 . 1 . 1 . 1
//
// 其餘列全空，例如 (5,5) 一定是 Miss。
func StandardFleet() []battle.Ship {
	return []battle.Ship{
		{Size: 4, X: 0, Y: 0, Horizontal: true},
		{Size: 3, X: 5, Y: 0, Horizontal: true},
		{Size: 3, X: 0, Y: 2, Horizontal: true},
		{Size: 2, X: 4, Y: 2, Horizontal: true},
		{Size: 2, X: 7, Y: 2, Horizontal: true},
		{Size: 2, X: 0, Y: 4, Horizontal: true},
		{Size: 1, X: 3, Y: 4},
		{Size: 1, X: 5, Y: 4},
		{Size: 1, X: 7, Y: 4},
		{Size: 1, X: 9, Y: 4},
	}
}

// FleetTargets 回傳 StandardFleet 全部 20 個艦體座標
func FleetTargets() []battle.Point {
	var points []battle.Point
	for _, s := range StandardFleet() {
		points = append(points, s.Cells()...)
	}
	return points
}
