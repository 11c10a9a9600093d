package engine

import (
	"time"

	"kungfuchess/internal/board"
	"kungfuchess/internal/collision"
	"kungfuchess/internal/rules"
)

// SetReady marks slot as ready. AI-controlled slots are always folded in as
// ready as a side effect, so a lobby with bots never waits on them. Once
// every slot in Players is ready, the game transitions Waiting -> Playing
// and CurrentTick starts counting from zero.
func SetReady(state *GameState, slot int) []Event {
	if state.Status != Waiting {
		return nil
	}
	state.ReadyPlayers[slot] = true
	for ai := range state.AISlots {
		state.ReadyPlayers[ai] = true
	}
	for p := range state.Players {
		if !state.ReadyPlayers[p] {
			return nil
		}
	}
	state.Status = Playing
	state.StartedAt = now()
	state.CurrentTick = 0
	return []Event{{Type: EventGameStarted, Tick: 0}}
}

// Resign immediately ends the game with slot's opponent(s) credited with
// the win. In a 4-player game every
// surviving slot other than the resigning one is left to keep playing only
// if more than one remains; resigning down to a single survivor ends the
// game the same as a king capture would.
func Resign(state *GameState, slot int) []Event {
	if state.Status != Playing {
		return nil
	}
	if king := state.Board.King(slot); king != nil {
		king.Captured = true
	}
	events := finishIfTerminal(state, true)
	if state.Status == Finished && state.WinReason == KingCaptured {
		state.WinReason = Resignation
		for i := range events {
			if events[i].Type == EventGameOver {
				events[i].WinReason = Resignation
			}
		}
	}
	return events
}

// ValidateMove checks a move attempt against whose-piece/cooldown/in-flight
// rules and, if those pass, asks package rules for the geometry. It does not
// mutate state; call ApplyMove with the result to commit it.
func ValidateMove(state *GameState, player int, pieceID board.ID, toR, toC int) (*Move, error) {
	if state.Status != Playing {
		return nil, ErrGameNotPlaying
	}
	piece, ok := state.Board.Pieces[pieceID]
	if !ok {
		return nil, ErrPieceNotFound
	}
	if piece.Player != player {
		return nil, ErrNotYourPiece
	}
	if piece.Captured {
		return nil, ErrPieceCaptured
	}
	if state.moveFor(pieceID) != nil {
		return nil, ErrAlreadyMoving
	}
	if c := state.cooldownFor(pieceID); c != nil {
		return nil, ErrOnCooldown
	}

	ctx := buildContext(state)
	res, err := rules.ComputePath(ctx, piece, toR, toC)
	if err != nil {
		return nil, err
	}

	startTick := state.CurrentTick + 1
	move := &Move{
		PieceID:   piece.ID,
		Path:      res.Path,
		StartTick: startTick,
		GroupID:   piece.ID.String(),
	}
	if res.Extra != nil {
		move.Extra = &Move{
			PieceID:   res.Extra.PieceID,
			Path:      res.Extra.Path,
			StartTick: startTick,
			GroupID:   move.GroupID,
		}
	}
	return move, nil
}

// ApplyMove commits a move returned by ValidateMove: it is flattened into
// one or two peer entries in state.ActiveMoves (linked by GroupID rather
// than by the Extra pointer, so Tick never needs to chase it) and recorded
// into the replay log.
func ApplyMove(state *GameState, player int, move *Move) []Event {
	var events []Event

	primary := &Move{PieceID: move.PieceID, Path: move.Path, StartTick: move.StartTick, GroupID: move.GroupID}
	state.ActiveMoves = append(state.ActiveMoves, primary)
	end := move.Path[len(move.Path)-1]
	state.ReplayMoves = append(state.ReplayMoves, ReplayMove{Tick: state.CurrentTick, PieceID: move.PieceID, ToR: int(end.Row), ToC: int(end.Col), Player: player})
	events = append(events, Event{Type: EventMoveStarted, Tick: state.CurrentTick, PieceID: move.PieceID.String(), ToR: int(end.Row), ToC: int(end.Col)})

	if move.Extra != nil {
		extra := &Move{PieceID: move.Extra.PieceID, Path: move.Extra.Path, StartTick: move.Extra.StartTick, GroupID: move.GroupID}
		state.ActiveMoves = append(state.ActiveMoves, extra)
		eend := move.Extra.Path[len(move.Extra.Path)-1]
		state.ReplayMoves = append(state.ReplayMoves, ReplayMove{Tick: state.CurrentTick, PieceID: move.Extra.PieceID, ToR: int(eend.Row), ToC: int(eend.Col), Player: player})
		events = append(events, Event{Type: EventMoveStarted, Tick: state.CurrentTick, PieceID: move.Extra.PieceID.String(), ToR: int(eend.Row), ToC: int(eend.Col)})
	}

	state.LastMoveTick = state.CurrentTick
	return events
}

// Tick advances the game by one tick: it resolves collisions, completes and
// promotes finished moves, expires cooldowns, then checks for a terminal
// condition. It is a no-op once the game has finished.
func Tick(state *GameState) []Event {
	if state.Status != Playing {
		return nil
	}
	state.CurrentTick++
	var events []Event

	events = append(events, resolveCollisions(state)...)
	events = append(events, completeMoves(state)...)
	events = append(events, expireCooldowns(state)...)
	events = append(events, finishIfTerminal(state, false)...)

	return events
}

func resolveCollisions(state *GameState) []Event {
	var events []Event
	var pieceStates []collision.PieceState
	positions := make(map[board.ID]board.Point)
	absent := make(map[board.ID]bool)

	for _, p := range state.Board.Pieces {
		if p.Captured {
			continue
		}
		ps := collision.PieceState{ID: p.ID, Player: p.Player}
		if mv := state.moveFor(p.ID); mv != nil {
			ps.Moving = true
			ps.StartTick = mv.StartTick
			ps.PawnStraight = p.Type == board.Pawn && isForwardStraight(state.Board.Orientations[p.Player], mv.Path)
			pos, isAbsent := collision.Interpolate(p.Type == board.Knight, mv.Path, mv.StartTick, state.CurrentTick, state.Speed.TicksPerSquare)
			positions[p.ID] = pos
			if isAbsent {
				absent[p.ID] = true
			}
		} else {
			positions[p.ID] = p.Pos
		}
		pieceStates = append(pieceStates, ps)
	}

	for _, ce := range collision.Resolve(pieceStates, positions, absent) {
		capturing := ""
		if !ce.Mutual {
			capturing = ce.WinnerID.String()
		}
		for _, loserID := range ce.LoserIDs {
			loser := state.Board.Pieces[loserID]
			if loser == nil || loser.Captured {
				continue
			}
			loser.Captured = true
			state.LastCaptureTick = state.CurrentTick
			if mv := state.moveFor(loserID); mv != nil {
				state.removeMoveGroup(mv.GroupID)
			}
			state.removeCooldown(loserID)
			events = append(events, Event{Type: EventCapture, Tick: state.CurrentTick, PieceID: loserID.String(), CapturingPieceID: capturing})
		}
	}
	return events
}

func completeMoves(state *GameState) []Event {
	var events []Event
	due := append([]*Move{}, state.ActiveMoves...)
	for _, mv := range due {
		piece := state.Board.Pieces[mv.PieceID]
		if piece == nil || piece.Captured {
			continue
		}
		elapsed := state.CurrentTick - mv.StartTick
		needed := totalTicks(piece.Type == board.Knight, mv.Path, state.Speed.TicksPerSquare)
		if elapsed < needed {
			continue
		}

		piece.Pos = mv.Path[len(mv.Path)-1]
		piece.Moved = true
		state.removeMoveGroup(mv.GroupID)

		events = append(events, Event{Type: EventMoveCompleted, Tick: state.CurrentTick, PieceID: piece.ID.String(), ToR: piece.GridRow(), ToC: piece.GridCol()})

		if piece.Type == board.Pawn {
			o := state.Board.Orientations[piece.Player]
			if o.OnPromotionRank(piece.GridRow(), piece.GridCol()) {
				piece.Type = board.Queen
				events = append(events, Event{Type: EventPromotion, Tick: state.CurrentTick, PieceID: piece.ID.String(), PromotedTo: "queen"})
			}
		}

		state.Cooldowns = append(state.Cooldowns, &Cooldown{PieceID: piece.ID, StartTick: state.CurrentTick, Duration: state.Speed.CooldownTicks})
		events = append(events, Event{Type: EventCooldownStarted, Tick: state.CurrentTick, PieceID: piece.ID.String()})
	}
	return events
}

func expireCooldowns(state *GameState) []Event {
	var events []Event
	kept := state.Cooldowns[:0]
	for _, c := range state.Cooldowns {
		if c.Active(state.CurrentTick) {
			kept = append(kept, c)
			continue
		}
		events = append(events, Event{Type: EventCooldownEnded, Tick: state.CurrentTick, PieceID: c.PieceID.String()})
	}
	state.Cooldowns = kept
	return events
}

// finishIfTerminal checks king-survival and inactivity-draw conditions and,
// if met, transitions the game to Finished. forced is set by Resign,
// which has already removed the resigning player's king and wants the
// ordinary king-count logic to decide the outcome from there; the
// inactivity-draw check is skipped when forced is set.
func finishIfTerminal(state *GameState, forced bool) []Event {
	alive := aliveKings(state)

	var winner *int
	var reason WinReason

	switch {
	case len(alive) == 1:
		w := alive[0]
		winner = &w
		reason = KingCaptured
	case len(alive) == 0:
		z := 0
		winner = &z
		reason = Draw
	case !forced && state.CurrentTick >= state.Speed.MinDrawTicks &&
		state.CurrentTick-state.LastMoveTick >= state.Speed.DrawNoMoveTicks &&
		state.CurrentTick-state.LastCaptureTick >= state.Speed.DrawNoCaptureTicks:
		z := 0
		winner = &z
		reason = Draw
	default:
		if !forced {
			return nil
		}
		// Resign with more than one king still alive in a >2-player game:
		// the game continues among the survivors.
		return nil
	}

	state.Status = Finished
	state.FinishedAt = now()
	state.Winner = winner
	state.WinReason = reason
	state.ActiveMoves = nil

	return []Event{{Type: EventGameOver, Tick: state.CurrentTick, Winner: winner, WinReason: reason}}
}

func aliveKings(state *GameState) []int {
	var alive []int
	for p := range state.Players {
		if state.Board.King(p) != nil {
			alive = append(alive, p)
		}
	}
	for i := 1; i < len(alive); i++ {
		for j := i; j > 0 && alive[j-1] > alive[j]; j-- {
			alive[j-1], alive[j] = alive[j], alive[j-1]
		}
	}
	return alive
}

// LegalDestinations brute-forces every square piece could currently move to
// by trial over the whole board. It exists for AI move selection, not as
// a client move-hint API. It applies ValidateMove's piece checks (captured,
// already moving, on cooldown) and the same rules.ComputePath geometry, so
// in a Playing game it offers only destinations ValidateMove accepts from
// the piece's owner; it checks neither game status nor ownership itself.
func LegalDestinations(state *GameState, pieceID board.ID) [][2]int {
	piece, ok := state.Board.Pieces[pieceID]
	if !ok || piece.Captured || state.moveFor(pieceID) != nil {
		return nil
	}
	if c := state.cooldownFor(pieceID); c != nil {
		return nil
	}
	ctx := buildContext(state)
	var out [][2]int
	for r := 0; r < state.Board.Rows; r++ {
		for c := 0; c < state.Board.Cols; c++ {
			if !state.Board.SquareValid(r, c) {
				continue
			}
			if _, err := rules.ComputePath(ctx, piece, r, c); err == nil {
				out = append(out, [2]int{r, c})
			}
		}
	}
	return out
}

func buildContext(state *GameState) *rules.Context {
	ctx := &rules.Context{Board: state.Board, OnCooldown: map[board.ID]bool{}}
	for _, mv := range state.ActiveMoves {
		end := mv.Path[len(mv.Path)-1]
		ctx.Active = append(ctx.Active, rules.ActiveMoveRef{
			PieceID: mv.PieceID,
			Player:  state.Board.Pieces[mv.PieceID].Player,
			DestR:   int(end.Row),
			DestC:   int(end.Col),
		})
	}
	for _, c := range state.Cooldowns {
		if c.Active(state.CurrentTick) {
			ctx.OnCooldown[c.PieceID] = true
		}
	}
	return ctx
}

// isForwardStraight reports whether a path's first segment moves purely
// along orientation's forward vector: true for a pawn's single or double
// forward step, false for its diagonal capture.
func isForwardStraight(o board.Orientation, path []board.Point) bool {
	if len(path) < 2 {
		return false
	}
	dr := path[1].Row - path[0].Row
	dc := path[1].Col - path[0].Col
	return dr == float64(o.ForwardR) && dc == float64(o.ForwardC)
}

// totalTicks mirrors package collision's own duration computation: knights
// occupy their whole two-square flight time regardless of path length,
// every other piece takes ticksPerSquare per segment crossed.
func totalTicks(isKnight bool, path []board.Point, ticksPerSquare int) int {
	if isKnight {
		return 2 * ticksPerSquare
	}
	return (len(path) - 1) * ticksPerSquare
}

func now() time.Time { return time.Now() }
