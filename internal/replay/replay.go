// Package replay handles assembling a Replay from a finished
// GameState, and deterministic tick-by-tick playback from one.
package replay

import (
	"strings"
	"time"

	"kungfuchess/internal/board"
	"kungfuchess/internal/engine"
	"kungfuchess/internal/kflog"
	"kungfuchess/internal/speed"
)

var log = kflog.Tagged("[Replay]")

// CurrentVersion is the format this module writes. Version 1 is legacy,
// read-only, and converted to this shape on load (see FromLegacy).
const CurrentVersion = 2

// Replay is the immutable record of one finished (or in-progress, for a
// live spectator view) game, sufficient to reconstruct any tick.
type Replay struct {
	Version    int
	GameID     string
	Speed      speed.Constants
	BoardType  board.Type
	Players    map[int]string
	Moves      []engine.ReplayMove
	TotalTicks int
	Winner     *int
	WinReason  engine.WinReason
	TickRateHz int
	CreatedAt  time.Time
}

// FromState assembles a Replay from a GameState, normally called once the
// state has reached Finished.
func FromState(state *engine.GameState, createdAt time.Time) *Replay {
	return &Replay{
		Version:    CurrentVersion,
		GameID:     state.GameID,
		Speed:      state.Speed,
		BoardType:  state.Board.Type,
		Players:    state.Players,
		Moves:      append([]engine.ReplayMove{}, state.ReplayMoves...),
		TotalTicks: state.CurrentTick,
		Winner:     state.Winner,
		WinReason:  state.WinReason,
		TickRateHz: state.Speed.TickRateHz,
		CreatedAt:  createdAt,
	}
}

// LegacyV1Move is one entry of the version-1 move log format: a bare piece
// id token, destination square, tick, and player; no board type or winner
// carried anywhere in the file.
type LegacyV1Move struct {
	PieceID string
	Row     int
	Col     int
	Tick    int
	Player  int
}

// FromLegacy converts a version-1 replay (standard board only, no stored
// winner; the winner is re-derived by replaying the moves) into the
// current in-memory shape. gameID and createdAt are not present in the
// legacy file and must be supplied by the caller (typically taken from the
// storage key and file mtime respectively).
func FromLegacy(gameID string, moves []LegacyV1Move, players map[int]string, presetName string, tickRateHz int, createdAt time.Time) (*Replay, error) {
	preset := speed.Standard
	if speed.Valid(presetName) {
		preset = speed.Preset(presetName)
	}
	constants := speed.Derive(preset, tickRateHz)

	converted := make([]engine.ReplayMove, 0, len(moves))
	var maxTick int
	for _, m := range moves {
		id, err := board.ParseID(m.PieceID)
		if err != nil {
			log.Printf("skipping legacy move with unparseable id: %v", err)
			continue
		}
		converted = append(converted, engine.ReplayMove{Tick: m.Tick, PieceID: id, ToR: m.Row, ToC: m.Col, Player: m.Player})
		if m.Tick > maxTick {
			maxTick = m.Tick
		}
	}

	r := &Replay{
		Version:    CurrentVersion,
		GameID:     gameID,
		Speed:      constants,
		BoardType:  board.Standard,
		Players:    players,
		Moves:      converted,
		TotalTicks: maxTick,
		Winner:     nil,
		WinReason:  "",
		TickRateHz: tickRateHz,
		CreatedAt:  createdAt,
	}
	winner, reason, totalTicks := deriveOutcome(r)
	r.Winner = winner
	r.WinReason = reason
	r.TotalTicks = totalTicks
	return r, nil
}

// deriveOutcome replays a converted legacy record from tick 0 to its end to
// recover the winner and win reason the v1 format never stored.
func deriveOutcome(r *Replay) (*int, engine.WinReason, int) {
	final := initialState(r)
	// A draw may only surface tick·s after the last recorded move, once the
	// inactivity thresholds elapse; bound the scan generously rather than
	// stopping exactly at the last move's tick.
	limit := r.TotalTicks + r.Speed.MinDrawTicks + r.Speed.DrawNoMoveTicks + r.Speed.DrawNoCaptureTicks + 10
	for t := 0; t <= limit; t++ {
		applyMovesAtTick(final, r.Moves, t)
		engine.Tick(final)
		if final.Status == engine.Finished {
			return final.Winner, final.WinReason, final.CurrentTick
		}
	}
	return nil, "", final.CurrentTick
}

// initialState builds a fresh GameState matching r's configuration, forced
// directly to Playing at tick 0.
func initialState(r *Replay) *engine.GameState {
	aiSlots := map[int]bool{}
	for slot, identity := range r.Players {
		if strings.HasPrefix(identity, "bot:") {
			aiSlots[slot] = true
		}
	}
	state := engine.New(r.GameID, r.BoardType, r.Speed.Preset, r.TickRateHz, r.Players, aiSlots)
	state.Speed = r.Speed
	state.Status = engine.Playing
	state.CurrentTick = 0
	state.StartedAt = r.CreatedAt
	return state
}

// applyMovesAtTick re-validates and applies every recorded move whose Tick
// equals tick, skipping (and logging) any that no longer validates.
// Castling's rook entry is expected to fail this way, since the king's
// entry already applied it via its paired extra move.
func applyMovesAtTick(state *engine.GameState, moves []engine.ReplayMove, tick int) {
	for _, m := range moves {
		if m.Tick != tick {
			continue
		}
		move, err := engine.ValidateMove(state, m.Player, m.PieceID, m.ToR, m.ToC)
		if err != nil {
			log.Printf("tick %d: replayed move for %s no longer validates: %v", tick, m.PieceID, err)
			continue
		}
		engine.ApplyMove(state, m.Player, move)
	}
}

// Engine is the stateful playback driver: get_state_at_tick with O(1)
// amortized sequential advancement and an O(target) rebuild fallback on
// seeks.
type Engine struct {
	replay      *Replay
	cachedTick  int
	cachedState *engine.GameState
}

// NewEngine constructs a playback engine over r. The cache is empty until
// the first GetInitialState/GetStateAtTick call.
func NewEngine(r *Replay) *Engine {
	return &Engine{replay: r}
}

// GetInitialState returns a fresh GameState at tick 0, forced to Playing,
// and seeds the engine's cache with it.
func (e *Engine) GetInitialState() *engine.GameState {
	state := initialState(e.replay)
	e.cachedTick = 0
	e.cachedState = state
	return state
}

// Replay returns the record this engine plays back.
func (e *Engine) Replay() *Replay { return e.replay }

// CurrentTick returns the cached playback cursor.
func (e *Engine) CurrentTick() int { return e.cachedTick }

// Advance moves the cache forward one tick and returns the new state along
// with the events that tick produced: the sequential-playback fast path,
// used by the playback loop to drive capture and promotion animations.
func (e *Engine) Advance() (*engine.GameState, []engine.Event) {
	if e.cachedState == nil {
		e.GetInitialState()
	}
	applyMovesAtTick(e.cachedState, e.replay.Moves, e.cachedTick)
	events := engine.Tick(e.cachedState)
	e.cachedTick++
	return e.cachedState, events
}

// GetStateAtTick returns the state at target, reusing the cache when
// target is the cached tick or its immediate successor, and rebuilding
// from scratch otherwise.
func (e *Engine) GetStateAtTick(target int) *engine.GameState {
	if e.cachedState == nil {
		e.GetInitialState()
	}
	switch {
	case target == e.cachedTick:
		return e.cachedState
	case target == e.cachedTick+1:
		applyMovesAtTick(e.cachedState, e.replay.Moves, e.cachedTick)
		engine.Tick(e.cachedState)
		e.cachedTick = target
		return e.cachedState
	default:
		state := initialState(e.replay)
		for t := 0; t < target; t++ {
			applyMovesAtTick(state, e.replay.Moves, t)
			engine.Tick(state)
		}
		e.cachedState = state
		e.cachedTick = target
		return state
	}
}
