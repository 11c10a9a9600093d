package rules

import "kungfuchess/internal/board"

// kingPath computes a king's path: one square in any of the 8
// directions.
func kingPath(ctx *Context, piece *board.Piece, fromR, fromC, toR, toC int) (Result, error) {
	dr, dc := toR-fromR, toC-fromC
	if abs(dr) > 1 || abs(dc) > 1 {
		return Result{}, ErrIllegalGeometry
	}
	if ctx.isFriendlyBlocked(toR, toC, piece.Player) {
		return Result{}, ErrDestOccupied
	}
	return Result{Path: []board.Point{pt(fromR, fromC), pt(toR, toC)}}, nil
}
