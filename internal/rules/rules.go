// Package rules implements move geometry: given a piece, a board, a
// destination, and the current set of active moves, it produces either a
// path or a refusal. It has no side effects and holds no state of its own.
package rules

import (
	"errors"

	"kungfuchess/internal/board"
)

// Domain-refusal errors, surfaced to the originating client as
// move_rejected{reason}, never broadcast.
var (
	ErrIllegalGeometry  = errors.New("illegal geometry")
	ErrPathBlocked      = errors.New("path blocked")
	ErrDestOccupied     = errors.New("destination occupied by friendly piece")
	ErrNotCastling      = errors.New("not a castling move")
	ErrCastleKingMoved  = errors.New("king has already moved")
	ErrCastleNoRook     = errors.New("no eligible rook for castling")
	ErrCastleRookMoved  = errors.New("rook has already moved")
	ErrCastleRookBusy   = errors.New("rook is moving or on cooldown")
	ErrCastlePathBlocked = errors.New("squares between king and rook are not clear")
)

// ActiveMoveRef is the minimal view of an in-flight move that geometry needs:
// which square it is headed to, and who owns it. The engine builds this
// slice from its own Move list; this package never sees engine types, so
// there is no import cycle.
type ActiveMoveRef struct {
	PieceID board.ID
	Player  int
	DestR   int
	DestC   int
}

// Context bundles the read-only state geometry needs beyond the board
// itself: the active-move set (for blocking and "is this piece moving"
// checks) and the set of pieces currently on cooldown (castling only).
type Context struct {
	Board      *board.Board
	Active     []ActiveMoveRef
	OnCooldown map[board.ID]bool
}

// ExtraMove describes the rook's half of a castling move, computed
// alongside the king's primary move.
type ExtraMove struct {
	PieceID board.ID
	Path    []board.Point
}

// Result is the outcome of a successful geometry computation.
type Result struct {
	Path  []board.Point
	Extra *ExtraMove // non-nil only for castling
}

func pt(r, c int) board.Point { return board.Point{Row: float64(r), Col: float64(c)} }

// isFriendlyBlocked reports whether square (r,c) is occupied by an at-rest
// friendly piece, or is the destination of an active friendly move, the
// two conditions the blocking rule treats identically.
func (ctx *Context) isFriendlyBlocked(r, c, player int) bool {
	if p := ctx.Board.PieceAt(r, c); p != nil && p.Player == player {
		return true
	}
	for _, am := range ctx.Active {
		if am.Player == player && am.DestR == r && am.DestC == c {
			return true
		}
	}
	return false
}

// isMoving reports whether the piece with the given id has an active move.
func (ctx *Context) isMoving(id board.ID) bool {
	for _, am := range ctx.Active {
		if am.PieceID == id {
			return true
		}
	}
	return false
}

// ComputePath computes the path for piece moving to (toR, toC), including
// castling detection for kings. It never mutates state.
func ComputePath(ctx *Context, piece *board.Piece, toR, toC int) (Result, error) {
	if !ctx.Board.SquareValid(toR, toC) {
		return Result{}, ErrIllegalGeometry
	}
	fromR, fromC := piece.GridRow(), piece.GridCol()
	if fromR == toR && fromC == toC {
		return Result{}, ErrIllegalGeometry
	}

	if piece.Type == board.King {
		if res, err := tryCastle(ctx, piece, fromR, fromC, toR, toC); err == nil {
			return res, nil
		} else if !errors.Is(err, ErrNotCastling) {
			return Result{}, err
		}
	}

	switch piece.Type {
	case board.Pawn:
		return pawnPath(ctx, piece, fromR, fromC, toR, toC)
	case board.Knight:
		return knightPath(ctx, piece, fromR, fromC, toR, toC)
	case board.Bishop:
		return slidingPath(ctx, piece, fromR, fromC, toR, toC, true, false)
	case board.Rook:
		return slidingPath(ctx, piece, fromR, fromC, toR, toC, false, true)
	case board.Queen:
		return slidingPath(ctx, piece, fromR, fromC, toR, toC, true, true)
	case board.King:
		return kingPath(ctx, piece, fromR, fromC, toR, toC)
	default:
		return Result{}, ErrIllegalGeometry
	}
}
