package rules

import "kungfuchess/internal/board"

// pawnPath computes a pawn's path: one square forward to an empty
// square, two squares forward from the home rank (both intermediate and
// destination empty), or one square diagonally forward onto an enemy piece
// that is not currently moving.
func pawnPath(ctx *Context, piece *board.Piece, fromR, fromC, toR, toC int) (Result, error) {
	o := ctx.Board.Orientations[piece.Player]
	dr, dc := toR-fromR, toC-fromC

	// One square straight ahead.
	if dr == o.ForwardR && dc == o.ForwardC {
		if ctx.Board.PieceAt(toR, toC) != nil || ctx.isFriendlyBlocked(toR, toC, piece.Player) {
			return Result{}, ErrPathBlocked
		}
		return Result{Path: []board.Point{pt(fromR, fromC), pt(toR, toC)}}, nil
	}

	// Two squares from the home rank.
	if o.OnHomeRank(fromR, fromC) && dr == 2*o.ForwardR && dc == 2*o.ForwardC {
		midR, midC := fromR+o.ForwardR, fromC+o.ForwardC
		if ctx.Board.PieceAt(midR, midC) != nil || ctx.isFriendlyBlocked(midR, midC, piece.Player) {
			return Result{}, ErrPathBlocked
		}
		if ctx.Board.PieceAt(toR, toC) != nil || ctx.isFriendlyBlocked(toR, toC, piece.Player) {
			return Result{}, ErrPathBlocked
		}
		return Result{Path: []board.Point{pt(fromR, fromC), pt(midR, midC), pt(toR, toC)}}, nil
	}

	// Diagonal capture: forward one plus one lateral step.
	latDR, latDC := lateralUnit(o)
	for _, sign := range []int{-1, 1} {
		if dr == o.ForwardR+sign*latDR && dc == o.ForwardC+sign*latDC {
			target := ctx.Board.PieceAt(toR, toC)
			if target == nil || target.Player == piece.Player {
				return Result{}, ErrIllegalGeometry
			}
			if ctx.isMoving(target.ID) {
				return Result{}, ErrIllegalGeometry
			}
			return Result{Path: []board.Point{pt(fromR, fromC), pt(toR, toC)}}, nil
		}
	}

	return Result{}, ErrIllegalGeometry
}

// lateralUnit returns the unit vector perpendicular to the orientation's
// forward axis: column-stepping for a row-forward orientation, row-stepping
// for a column-forward orientation.
func lateralUnit(o board.Orientation) (dr, dc int) {
	if o.AxisIsRow {
		return 0, 1
	}
	return 1, 0
}
