package rules

import (
	"testing"

	"kungfuchess/internal/board"
)

func emptyCtx(b *board.Board) *Context {
	return &Context{Board: b, OnCooldown: map[board.ID]bool{}}
}

func TestPawnSingleAndDoubleStep(t *testing.T) {
	b := board.NewBoard(board.Standard, 2)
	pawn := b.PieceAt(6, 4) // white pawn e2
	ctx := emptyCtx(b)

	res, err := ComputePath(ctx, pawn, 5, 4)
	if err != nil || len(res.Path) != 2 {
		t.Fatalf("single step failed: %v %v", res, err)
	}

	res, err = ComputePath(ctx, pawn, 4, 4)
	if err != nil || len(res.Path) != 3 {
		t.Fatalf("double step failed: %v %v", res, err)
	}
}

func TestPawnCannotCaptureStraightAhead(t *testing.T) {
	b := board.NewBoard(board.Standard, 2)
	// Place a black pawn directly in front of a white pawn.
	for _, p := range b.Pieces {
		if p.Type == board.Pawn && p.Player == 2 && p.GridCol() == 4 {
			p.Pos = board.Point{Row: 5, Col: 4}
		}
	}
	pawn := b.PieceAt(6, 4)
	ctx := emptyCtx(b)
	if _, err := ComputePath(ctx, pawn, 5, 4); err == nil {
		t.Fatal("expected straight-ahead capture to be refused")
	}
}

func TestKnightPathHasMidpoint(t *testing.T) {
	b := board.NewBoard(board.Standard, 2)
	knight := b.PieceAt(7, 1)
	ctx := emptyCtx(b)
	res, err := ComputePath(ctx, knight, 5, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Path) != 3 {
		t.Fatalf("expected 3-point path, got %d", len(res.Path))
	}
	mid := res.Path[1]
	if mid.Row != 6 || mid.Col != 1.5 {
		t.Errorf("unexpected midpoint %+v", mid)
	}
}

func TestRookBlockedByFriendlyPath(t *testing.T) {
	b := board.NewBoard(board.Standard, 2)
	rook := b.PieceAt(7, 0)
	ctx := emptyCtx(b)
	if _, err := ComputePath(ctx, rook, 5, 0); err == nil {
		t.Fatal("expected rook to be blocked by its own pawn")
	}
}

func TestCastlingKingside(t *testing.T) {
	b := board.NewBoard(board.Standard, 2)
	// Clear the squares between white king and kingside rook.
	for _, sq := range [][2]int{{7, 5}, {7, 6}} {
		if p := b.PieceAt(sq[0], sq[1]); p != nil {
			p.Captured = true
		}
	}
	king := b.King(1)
	ctx := emptyCtx(b)
	res, err := ComputePath(ctx, king, 7, 6)
	if err != nil {
		t.Fatalf("castling should be legal: %v", err)
	}
	if res.Extra == nil {
		t.Fatal("expected rook extra move for castling")
	}
	if res.Path[1].Col != 6 {
		t.Errorf("king should land on column 6, got %v", res.Path[1])
	}
	if res.Extra.Path[1].Col != 5 {
		t.Errorf("rook should land on column 5, got %v", res.Extra.Path[1])
	}
}

func TestCastlingRefusedIfKingMoved(t *testing.T) {
	b := board.NewBoard(board.Standard, 2)
	for _, sq := range [][2]int{{7, 5}, {7, 6}} {
		if p := b.PieceAt(sq[0], sq[1]); p != nil {
			p.Captured = true
		}
	}
	king := b.King(1)
	king.Moved = true
	ctx := emptyCtx(b)
	if _, err := ComputePath(ctx, king, 7, 6); err != ErrCastleKingMoved {
		t.Fatalf("expected ErrCastleKingMoved, got %v", err)
	}
}
