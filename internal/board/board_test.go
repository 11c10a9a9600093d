package board

import "testing"

func TestStandardBoardLayout(t *testing.T) {
	b := NewBoard(Standard, 2)

	if len(b.Pieces) != 32 {
		t.Fatalf("expected 32 pieces, got %d", len(b.Pieces))
	}

	for _, p := range []int{1, 2} {
		if k := b.King(p); k == nil {
			t.Errorf("player %d has no king", p)
		}
	}

	wk := b.King(1)
	if wk.GridRow() != 7 || wk.GridCol() != 4 {
		t.Errorf("white king at (%d,%d), want (7,4)", wk.GridRow(), wk.GridCol())
	}
	bk := b.King(2)
	if bk.GridRow() != 0 || bk.GridCol() != 4 {
		t.Errorf("black king at (%d,%d), want (0,4)", bk.GridRow(), bk.GridCol())
	}
}

func TestSquareValidStandard(t *testing.T) {
	b := NewBoard(Standard, 2)
	if !b.SquareValid(0, 0) || !b.SquareValid(7, 7) {
		t.Error("corners of the 8x8 board should be valid")
	}
	if b.SquareValid(-1, 0) || b.SquareValid(8, 0) || b.SquareValid(0, 8) {
		t.Error("out-of-bounds squares should be invalid")
	}
}

func TestFourPlayerCorners(t *testing.T) {
	b := NewBoard(FourPlayer, 4)
	corners := [][2]int{{0, 0}, {0, 10}, {0, 11}, {1, 0}, {10, 0}, {11, 11}, {10, 11}}
	for _, c := range corners {
		if b.SquareValid(c[0], c[1]) {
			t.Errorf("square (%d,%d) should be an invalid corner", c[0], c[1])
		}
	}
	if !b.SquareValid(5, 5) {
		t.Error("center squares should be valid")
	}
	for _, p := range []int{1, 2, 3, 4} {
		if b.King(p) == nil {
			t.Errorf("player %d has no king", p)
		}
	}
}

func TestPieceAtFindsOccupant(t *testing.T) {
	b := NewBoard(Standard, 2)
	p := b.PieceAt(7, 4)
	if p == nil || p.Type != King || p.Player != 1 {
		t.Fatalf("expected player 1 king at (7,4), got %+v", p)
	}
	if b.PieceAt(3, 3) != nil {
		t.Error("expected empty square at (3,3)")
	}
}
