package collision

import (
	"testing"

	"kungfuchess/internal/board"
)

func TestInterpolateMidSegment(t *testing.T) {
	path := []board.Point{{Row: 4, Col: 0}, {Row: 4, Col: 1}, {Row: 4, Col: 2}}
	pos, absent := Interpolate(false, path, 0, 15, 10)
	if absent {
		t.Fatal("non-knight move should never be absent")
	}
	if pos.Col != 1.5 {
		t.Errorf("expected col 1.5 halfway through second segment, got %v", pos.Col)
	}
}

func TestInterpolateKnightAirborneWindow(t *testing.T) {
	path := []board.Point{{Row: 0, Col: 0}, {Row: -0.5, Col: 1.5}, {Row: -1, Col: 3}}
	ticksPerSquare := 10
	total := 2 * ticksPerSquare

	_, absent := Interpolate(true, path, 0, int(float64(total)*0.5), ticksPerSquare)
	if !absent {
		t.Error("knight at 50% progress should still be airborne")
	}
	_, absent = Interpolate(true, path, 0, int(float64(total)*0.9), ticksPerSquare)
	if absent {
		t.Error("knight at 90% progress should be visible")
	}
}

func TestResolveSimpleCapture(t *testing.T) {
	winner := board.ID{Type: board.Queen, Player: 1, OriginR: 4, OriginC: 0}
	loser := board.ID{Type: board.Pawn, Player: 2, OriginR: 1, OriginC: 3}

	states := []PieceState{
		{ID: winner, Player: 1, Moving: true, StartTick: 1},
		{ID: loser, Player: 2, Moving: false},
	}
	positions := map[board.ID]board.Point{
		winner: {Row: 4, Col: 3},
		loser:  {Row: 4, Col: 3},
	}
	events := Resolve(states, positions, map[board.ID]bool{})
	if len(events) != 1 {
		t.Fatalf("expected 1 capture event, got %d", len(events))
	}
	if events[0].WinnerID != winner || events[0].Mutual {
		t.Errorf("unexpected event %+v", events[0])
	}
}

func TestResolveMutualDestruction(t *testing.T) {
	a := board.ID{Type: board.Rook, Player: 1, OriginR: 4, OriginC: 0}
	b := board.ID{Type: board.Rook, Player: 2, OriginR: 4, OriginC: 7}

	states := []PieceState{
		{ID: a, Player: 1, Moving: true, StartTick: 1},
		{ID: b, Player: 2, Moving: true, StartTick: 1},
	}
	positions := map[board.ID]board.Point{
		a: {Row: 4, Col: 3},
		b: {Row: 4, Col: 3},
	}
	events := Resolve(states, positions, map[board.ID]bool{})
	if len(events) != 1 || !events[0].Mutual {
		t.Fatalf("expected mutual destruction, got %+v", events)
	}
	if len(events[0].LoserIDs) != 2 {
		t.Errorf("expected both pieces captured, got %v", events[0].LoserIDs)
	}
}

func TestPawnStraightCannotCapture(t *testing.T) {
	a := board.ID{Type: board.Pawn, Player: 1, OriginR: 6, OriginC: 4}
	b := board.ID{Type: board.Pawn, Player: 2, OriginR: 1, OriginC: 4}
	states := []PieceState{
		{ID: a, Player: 1, Moving: true, StartTick: 5, PawnStraight: true},
		{ID: b, Player: 2, Moving: true, StartTick: 10, PawnStraight: true},
	}
	positions := map[board.ID]board.Point{
		a: {Row: 4, Col: 4},
		b: {Row: 4, Col: 4},
	}
	events := Resolve(states, positions, map[board.ID]bool{})
	if len(events) != 1 || events[0].WinnerID != a {
		t.Fatalf("expected earlier pawn (a) to survive, got %+v", events)
	}
}

func TestStraightPawnLosesToStationaryPiece(t *testing.T) {
	pawn := board.ID{Type: board.Pawn, Player: 1, OriginR: 6, OriginC: 4}
	blocker := board.ID{Type: board.Knight, Player: 2, OriginR: 0, OriginC: 1}

	states := []PieceState{
		{ID: pawn, Player: 1, Moving: true, StartTick: 1, PawnStraight: true},
		{ID: blocker, Player: 2, Moving: false},
	}
	positions := map[board.ID]board.Point{
		pawn:    {Row: 4, Col: 4},
		blocker: {Row: 4, Col: 4},
	}
	events := Resolve(states, positions, map[board.ID]bool{})
	if len(events) != 1 {
		t.Fatalf("expected 1 capture event, got %d", len(events))
	}
	// A pawn moving straight ahead cannot capture; the stationary piece it
	// runs into captures it instead.
	if events[0].WinnerID != blocker || events[0].Mutual {
		t.Fatalf("expected the stationary piece to win, got %+v", events[0])
	}
	if len(events[0].LoserIDs) != 1 || events[0].LoserIDs[0] != pawn {
		t.Errorf("expected the pawn captured, got %v", events[0].LoserIDs)
	}
}
