package session

import (
	"strings"

	"kungfuchess/internal/board"
	"kungfuchess/internal/collision"
	"kungfuchess/internal/engine"
	"kungfuchess/internal/protocol"
)

// Snapshot composes the per-tick state broadcast from a state and
// the events its tick produced. Captured pieces are omitted, except on the
// tick they were captured (identified by this tick's capture events) so
// clients can animate the removal.
func Snapshot(state *engine.GameState, events []engine.Event) protocol.StateMessage {
	capturedThisTick := map[string]bool{}
	for _, ev := range events {
		if ev.Type == engine.EventCapture {
			capturedThisTick[ev.PieceID] = true
		}
	}

	onCooldown := map[board.ID]bool{}
	for _, c := range state.Cooldowns {
		if c.Active(state.CurrentTick) {
			onCooldown[c.PieceID] = true
		}
	}
	moving := map[board.ID]*engine.Move{}
	for _, m := range state.ActiveMoves {
		moving[m.PieceID] = m
	}

	msg := protocol.StateMessage{
		Type:        "state",
		Tick:        state.CurrentTick,
		Pieces:      []protocol.PieceSnapshot{},
		ActiveMoves: []protocol.ActiveMoveSnapshot{},
		Cooldowns:   []protocol.CooldownSnapshot{},
		Events:      EventMessages(events),
	}

	for _, p := range state.Board.Pieces {
		if p.Captured && !capturedThisTick[p.ID.String()] {
			continue
		}
		ps := protocol.PieceSnapshot{
			ID:         p.ID.String(),
			PieceType:  strings.ToLower(p.Type.String()),
			Player:     p.Player,
			Row:        p.Pos.Row,
			Col:        p.Pos.Col,
			Captured:   p.Captured,
			OnCooldown: onCooldown[p.ID],
			Moved:      p.Moved,
		}
		if mv, ok := moving[p.ID]; ok {
			ps.Moving = true
			pos, _ := collision.Interpolate(p.Type == board.Knight, mv.Path, mv.StartTick, state.CurrentTick, state.Speed.TicksPerSquare)
			ps.Row = pos.Row
			ps.Col = pos.Col
		}
		msg.Pieces = append(msg.Pieces, ps)
	}

	for _, m := range state.ActiveMoves {
		path := make([]protocol.PathPoint, 0, len(m.Path))
		for _, pt := range m.Path {
			path = append(path, protocol.PathPoint{Row: pt.Row, Col: pt.Col})
		}
		piece := state.Board.Pieces[m.PieceID]
		total := totalMoveTicks(piece, m, state.Speed.TicksPerSquare)
		progress := 0.0
		if total > 0 {
			progress = float64(state.CurrentTick-m.StartTick) / float64(total)
		}
		if progress < 0 {
			progress = 0
		}
		if progress > 1 {
			progress = 1
		}
		msg.ActiveMoves = append(msg.ActiveMoves, protocol.ActiveMoveSnapshot{
			PieceID:   m.PieceID.String(),
			Path:      path,
			StartTick: m.StartTick,
			Progress:  progress,
		})
	}

	for _, c := range state.Cooldowns {
		if !c.Active(state.CurrentTick) {
			continue
		}
		msg.Cooldowns = append(msg.Cooldowns, protocol.CooldownSnapshot{
			PieceID:        c.PieceID.String(),
			RemainingTicks: c.StartTick + c.Duration - state.CurrentTick,
		})
	}

	return msg
}

func totalMoveTicks(piece *board.Piece, m *engine.Move, ticksPerSquare int) int {
	if piece != nil && piece.Type == board.Knight {
		return 2 * ticksPerSquare
	}
	return m.NumSegments() * ticksPerSquare
}

// EventMessages converts engine events to their wire form.
func EventMessages(events []engine.Event) []protocol.EventMessage {
	out := make([]protocol.EventMessage, 0, len(events))
	for _, ev := range events {
		em := protocol.EventMessage{
			Type:             string(ev.Type),
			Tick:             ev.Tick,
			PieceID:          ev.PieceID,
			CapturingPieceID: ev.CapturingPieceID,
			PromotedTo:       ev.PromotedTo,
			Winner:           ev.Winner,
			WinReason:        string(ev.WinReason),
		}
		if ev.Type == engine.EventMoveStarted || ev.Type == engine.EventMoveCompleted {
			toR, toC := ev.ToR, ev.ToC
			em.ToRow, em.ToCol = &toR, &toC
		}
		out = append(out, em)
	}
	return out
}
