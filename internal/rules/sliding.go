package rules

import "kungfuchess/internal/board"

// slidingPath computes bishop/rook/queen paths: any non-zero
// pure diagonal (allowDiag) or pure rank/file (allowStraight) displacement,
// with every intermediate square enumerated. Enemy-occupied intermediate
// squares are not blocking; only at-rest friendly occupants and the
// destination of an active friendly move block the path.
func slidingPath(ctx *Context, piece *board.Piece, fromR, fromC, toR, toC int, allowDiag, allowStraight bool) (Result, error) {
	dr, dc := toR-fromR, toC-fromC
	stepR, stepC, steps, ok := slideDirection(dr, dc, allowDiag, allowStraight)
	if !ok {
		return Result{}, ErrIllegalGeometry
	}

	path := make([]board.Point, 0, steps+1)
	path = append(path, pt(fromR, fromC))
	r, c := fromR, fromC
	for i := 0; i < steps; i++ {
		r += stepR
		c += stepC
		if !ctx.Board.SquareValid(r, c) {
			return Result{}, ErrIllegalGeometry
		}
		if ctx.isFriendlyBlocked(r, c, piece.Player) {
			return Result{}, ErrPathBlocked
		}
		path = append(path, pt(r, c))
	}
	return Result{Path: path}, nil
}

// slideDirection validates (dr, dc) is a pure diagonal or pure rank/file
// displacement allowed by the piece and returns the unit step plus square
// count, or ok=false if the vector doesn't fit either shape.
func slideDirection(dr, dc int, allowDiag, allowStraight bool) (stepR, stepC, steps int, ok bool) {
	switch {
	case dr == 0 && dc == 0:
		return 0, 0, 0, false
	case allowDiag && abs(dr) == abs(dc):
		return sign(dr), sign(dc), abs(dr), true
	case allowStraight && dr == 0:
		return 0, sign(dc), abs(dc), true
	case allowStraight && dc == 0:
		return sign(dr), 0, abs(dr), true
	default:
		return 0, 0, 0, false
	}
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
