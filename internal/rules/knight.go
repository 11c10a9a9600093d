package rules

import "kungfuchess/internal/board"

// knightPath computes a knight's path: an L-shaped jump whose path is
// the start, the geometric (half-integer) midpoint, and the end. Knights
// jump, so only the destination square participates in blocking.
func knightPath(ctx *Context, piece *board.Piece, fromR, fromC, toR, toC int) (Result, error) {
	dr, dc := toR-fromR, toC-fromC
	ar, ac := abs(dr), abs(dc)
	if !((ar == 2 && ac == 1) || (ar == 1 && ac == 2)) {
		return Result{}, ErrIllegalGeometry
	}
	if ctx.isFriendlyBlocked(toR, toC, piece.Player) {
		return Result{}, ErrDestOccupied
	}
	mid := board.Point{
		Row: (float64(fromR) + float64(toR)) / 2,
		Col: (float64(fromC) + float64(toC)) / 2,
	}
	return Result{Path: []board.Point{pt(fromR, fromC), mid, pt(toR, toC)}}, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
