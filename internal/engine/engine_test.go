package engine

import (
	"testing"

	"kungfuchess/internal/board"
	"kungfuchess/internal/speed"
)

func freshState(t *testing.T, tickRateHz int) *GameState {
	t.Helper()
	state := New("g1", board.Standard, speed.Standard, tickRateHz, map[int]string{1: "alice", 2: "bob"}, nil)
	state.Board.Pieces = map[board.ID]*board.Piece{}
	state.Status = Playing
	place(state, board.King, 1, 3, 7)
	place(state, board.King, 2, 5, 7)
	return state
}

func place(state *GameState, pt board.PieceType, player, r, c int) board.ID {
	id := board.ID{Type: pt, Player: player, OriginR: r, OriginC: c}
	state.Board.Pieces[id] = &board.Piece{ID: id, Type: pt, Player: player, Pos: board.Point{Row: float64(r), Col: float64(c)}}
	return id
}

func TestSetReadyStartsGameOnceBothReady(t *testing.T) {
	state := New("g1", board.Standard, speed.Standard, 20, map[int]string{1: "a", 2: "b"}, nil)
	if ev := SetReady(state, 1); ev != nil {
		t.Fatalf("expected no event with only one player ready, got %+v", ev)
	}
	if state.Status != Waiting {
		t.Fatal("game should still be waiting")
	}
	ev := SetReady(state, 2)
	if len(ev) != 1 || ev[0].Type != EventGameStarted {
		t.Fatalf("expected game_started, got %+v", ev)
	}
	if state.Status != Playing {
		t.Fatal("game should be playing")
	}
}

func TestSetReadyAutoReadiesAISlots(t *testing.T) {
	state := New("g1", board.Standard, speed.Standard, 20, map[int]string{1: "a", 2: "bot:dummy"}, map[int]bool{2: true})
	ev := SetReady(state, 1)
	if len(ev) != 1 || ev[0].Type != EventGameStarted {
		t.Fatalf("expected AI slot to auto-ready and start the game, got %+v", ev)
	}
}

func TestSimpleCaptureOnArrival(t *testing.T) {
	state := freshState(t, 1) // TicksPerSquare == 1 for a fast test
	mover := place(state, board.Queen, 1, 4, 0)
	victim := place(state, board.Pawn, 2, 4, 3)

	move, err := ValidateMove(state, 1, mover, 4, 3)
	if err != nil {
		t.Fatalf("unexpected refusal: %v", err)
	}
	ApplyMove(state, 1, move)

	// The move starts on the tick after acceptance and takes 3·T ticks to
	// reach the pawn, so the capture lands on tick 4.
	var captured bool
	for i := 0; i < 4; i++ {
		for _, ev := range Tick(state) {
			if ev.Type == EventCapture && ev.PieceID == victim.String() {
				captured = true
				if ev.CapturingPieceID != mover.String() {
					t.Errorf("expected %s credited with the capture, got %q", mover, ev.CapturingPieceID)
				}
			}
		}
	}
	if !captured {
		t.Fatal("expected victim to be captured on arrival")
	}
	if !state.Board.Pieces[victim].Captured {
		t.Error("victim piece not marked captured")
	}
	if state.Board.Pieces[mover].Captured {
		t.Error("mover should survive a one-sided capture")
	}
}

func TestMutualDestructionWhenPathsCross(t *testing.T) {
	state := freshState(t, 1)
	a := place(state, board.Queen, 1, 4, 0)
	b := place(state, board.Queen, 2, 4, 4)

	moveA, err := ValidateMove(state, 1, a, 4, 2)
	if err != nil {
		t.Fatalf("unexpected refusal for a: %v", err)
	}
	moveB, err := ValidateMove(state, 2, b, 4, 2)
	if err != nil {
		t.Fatalf("unexpected refusal for b: %v", err)
	}
	ApplyMove(state, 1, moveA)
	ApplyMove(state, 2, moveB)

	var mutual bool
	for i := 0; i < 3; i++ {
		for _, ev := range Tick(state) {
			if ev.Type == EventCapture && ev.CapturingPieceID == "" {
				mutual = true
			}
		}
	}
	if !mutual {
		t.Fatal("expected a mutual-destruction capture event")
	}
	if !state.Board.Pieces[a].Captured || !state.Board.Pieces[b].Captured {
		t.Error("both queens should be captured in a head-on collision")
	}
}

func TestCastlingGroupCancelledWhenPeerIsRemoved(t *testing.T) {
	state := freshState(t, 1)
	state.Board.Pieces = map[board.ID]*board.Piece{}
	king := place(state, board.King, 1, 7, 4)
	rook := place(state, board.Rook, 1, 7, 7)
	place(state, board.King, 2, 0, 0)

	move, err := ValidateMove(state, 1, king, 7, 6)
	if err != nil {
		t.Fatalf("unexpected refusal: %v", err)
	}
	if move.Extra == nil {
		t.Fatal("expected a paired rook move for castling")
	}
	ApplyMove(state, 1, move)
	if len(state.ActiveMoves) != 2 {
		t.Fatalf("expected two peer active moves, got %d", len(state.ActiveMoves))
	}
	groupID := state.ActiveMoves[0].GroupID

	// Simulate the rook being captured mid-flight: removing its group must
	// also cancel the king's half of the castle in the same stroke.
	state.removeMoveGroup(groupID)
	if len(state.ActiveMoves) != 0 {
		t.Fatalf("expected castling group fully cancelled, got %d active moves", len(state.ActiveMoves))
	}
	_ = rook
}

func TestPawnPromotesOnReachingFarRank(t *testing.T) {
	state := freshState(t, 1)
	pawn := place(state, board.Pawn, 1, 1, 0) // player 1 advances toward row 0

	move, err := ValidateMove(state, 1, pawn, 0, 0)
	if err != nil {
		t.Fatalf("unexpected refusal: %v", err)
	}
	ApplyMove(state, 1, move)

	var promoted bool
	for i := 0; i < 2; i++ {
		for _, ev := range Tick(state) {
			if ev.Type == EventPromotion {
				promoted = true
			}
		}
	}
	if !promoted {
		t.Fatal("expected a promotion event")
	}
	if state.Board.Pieces[pawn].Type != board.Queen {
		t.Error("pawn should have become a queen")
	}
}

func TestDrawByMutualInactivity(t *testing.T) {
	state := freshState(t, 1)
	state.Speed.MinDrawTicks = 3
	state.Speed.DrawNoMoveTicks = 2
	state.Speed.DrawNoCaptureTicks = 2

	var events []Event
	for i := 0; i < 3; i++ {
		events = append(events, Tick(state)...)
	}
	if state.Status != Finished {
		t.Fatalf("expected game to finish by inactivity draw, got %v", state.Status)
	}
	if state.WinReason != Draw || state.Winner == nil || *state.Winner != 0 {
		t.Fatalf("expected a draw, got winner=%v reason=%v", state.Winner, state.WinReason)
	}
	found := false
	for _, ev := range events {
		if ev.Type == EventGameOver && ev.WinReason == Draw {
			found = true
		}
	}
	if !found {
		t.Error("expected a game_over event carrying the draw reason")
	}
}

func TestResignEndsGameForOpponent(t *testing.T) {
	state := freshState(t, 1)
	ev := Resign(state, 1)
	if state.Status != Finished {
		t.Fatal("expected game to finish on resignation")
	}
	if state.Winner == nil || *state.Winner != 2 {
		t.Fatalf("expected player 2 to win, got %v", state.Winner)
	}
	if len(ev) != 1 || ev[0].Type != EventGameOver {
		t.Fatalf("expected a single game_over event, got %+v", ev)
	}
}

func TestValidateMoveRejectsWrongOwner(t *testing.T) {
	state := freshState(t, 1)
	mover := place(state, board.Queen, 1, 4, 0)
	if _, err := ValidateMove(state, 2, mover, 4, 3); err != ErrNotYourPiece {
		t.Fatalf("expected ErrNotYourPiece, got %v", err)
	}
}

func TestValidateMoveRejectsSecondMoveWhileInFlight(t *testing.T) {
	state := freshState(t, 1)
	mover := place(state, board.Queen, 1, 4, 0)
	move, err := ValidateMove(state, 1, mover, 4, 1)
	if err != nil {
		t.Fatalf("unexpected refusal: %v", err)
	}
	ApplyMove(state, 1, move)
	if _, err := ValidateMove(state, 1, mover, 4, 2); err != ErrAlreadyMoving {
		t.Fatalf("expected ErrAlreadyMoving, got %v", err)
	}
}

func TestCastlingInterruptedByKingCapture(t *testing.T) {
	state := freshState(t, 1)
	state.Board.Pieces = map[board.ID]*board.Piece{}
	king := place(state, board.King, 1, 7, 4)
	rook := place(state, board.Rook, 1, 7, 7)
	place(state, board.King, 2, 0, 0)
	attacker := place(state, board.Bishop, 2, 6, 5)

	castle, err := ValidateMove(state, 1, king, 7, 6)
	if err != nil {
		t.Fatalf("castle refused: %v", err)
	}
	ApplyMove(state, 1, castle)

	// The bishop heads for the king's landing square on the same tick; with
	// equal start ticks the two meet there and destroy each other.
	strike, err := ValidateMove(state, 2, attacker, 7, 6)
	if err != nil {
		t.Fatalf("bishop move refused: %v", err)
	}
	ApplyMove(state, 2, strike)

	var kingCaptured bool
	for i := 0; i < 2; i++ {
		for _, ev := range Tick(state) {
			if ev.Type == EventCapture && ev.PieceID == king.String() {
				kingCaptured = true
			}
		}
	}
	if !kingCaptured {
		t.Fatal("expected the castling king to be captured in flight")
	}
	if len(state.ActiveMoves) != 0 {
		t.Fatalf("the rook's castling move must vanish with its king, got %d active moves", len(state.ActiveMoves))
	}
	if state.Board.Pieces[rook].Captured {
		t.Error("the rook itself survives; only its motion is cancelled")
	}
	if r := state.Board.Pieces[rook]; r.GridRow() != 7 || r.GridCol() != 7 {
		t.Errorf("rook should be back where it started, got (%d,%d)", r.GridRow(), r.GridCol())
	}
	if state.Status != Finished || state.Winner == nil || *state.Winner != 2 {
		t.Fatalf("expected player 2 to win by king capture, got status=%v winner=%v", state.Status, state.Winner)
	}
	if state.WinReason != KingCaptured {
		t.Errorf("expected king_captured, got %v", state.WinReason)
	}
}
