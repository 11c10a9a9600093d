package rules

import "kungfuchess/internal/board"

// tryCastle handles castling. It is attempted whenever a king
// is asked to move exactly two squares along its orientation's lateral
// axis (horizontal for a row-forward orientation, vertical for a
// column-forward one). Returns ErrNotCastling when the requested
// displacement doesn't match that shape at all, so the caller falls back to
// ordinary king geometry.
func tryCastle(ctx *Context, king *board.Piece, fromR, fromC, toR, toC int) (Result, error) {
	o := ctx.Board.Orientations[king.Player]

	var along, lateralFrom, lateralTo int
	if o.AxisIsRow {
		if toR != fromR {
			return Result{}, ErrNotCastling
		}
		along, lateralFrom, lateralTo = fromR, fromC, toC
	} else {
		if toC != fromC {
			return Result{}, ErrNotCastling
		}
		along, lateralFrom, lateralTo = fromC, fromR, toR
	}
	delta := lateralTo - lateralFrom
	if abs(delta) != 2 {
		return Result{}, ErrNotCastling
	}
	if king.Moved {
		return Result{}, ErrCastleKingMoved
	}

	dir := sign(delta)
	rookLateral := ctx.Board.LatMax
	if dir < 0 {
		rookLateral = ctx.Board.LatMin
	}

	rookR, rookC := o.AxisPoint(along, rookLateral)
	rook := ctx.Board.PieceAt(rookR, rookC)
	if rook == nil || rook.Type != board.Rook || rook.Player != king.Player {
		return Result{}, ErrCastleNoRook
	}
	if rook.Moved {
		return Result{}, ErrCastleRookMoved
	}
	if ctx.isMoving(rook.ID) || ctx.OnCooldown[rook.ID] {
		return Result{}, ErrCastleRookBusy
	}

	// Every square strictly between king and rook must be empty and not
	// the destination of any active move.
	passSquareLateral := lateralFrom + dir // square the king passes over; the rook lands here
	for lat := lateralFrom + dir; lat != rookLateral; lat += dir {
		r, c := o.AxisPoint(along, lat)
		if ctx.Board.PieceAt(r, c) != nil {
			return Result{}, ErrCastlePathBlocked
		}
		if ctx.isFriendlyBlocked(r, c, king.Player) || ctx.isDestOfAny(r, c) {
			return Result{}, ErrCastlePathBlocked
		}
	}

	kingToR, kingToC := o.AxisPoint(along, lateralTo)
	passR, passC := o.AxisPoint(along, passSquareLateral)

	kingPath := []board.Point{pt(fromR, fromC), pt(kingToR, kingToC)}
	rookPath := []board.Point{pt(rookR, rookC), pt(passR, passC)}

	return Result{
		Path: kingPath,
		Extra: &ExtraMove{
			PieceID: rook.ID,
			Path:    rookPath,
		},
	}, nil
}

// isDestOfAny reports whether (r,c) is the destination of any active move,
// friendly or not; castling's "all squares between king and rook" clause
// forbids any active move from landing there, not only friendly ones.
func (ctx *Context) isDestOfAny(r, c int) bool {
	for _, am := range ctx.Active {
		if am.DestR == r && am.DestC == c {
			return true
		}
	}
	return false
}
