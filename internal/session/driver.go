package session

import (
	"math/rand"

	"kungfuchess/internal/board"
	"kungfuchess/internal/engine"
)

// Driver is the AI contract: asked once per tick whether it wants to
// move, and for a concrete move when it does. Both methods read state but
// never mutate it; the session validates and applies whatever a driver
// returns, silently dropping refusals.
type Driver interface {
	ShouldMove(state *engine.GameState, player, tick int) bool
	GetMove(state *engine.GameState, player int) (pieceID board.ID, toR, toC int, ok bool)
}

// moveProbability is the per-tick chance the dummy driver starts a move,
// 1/40 per tick at standard speed.
const moveProbability = 0.025

// DummyDriver moves with a fixed probability each tick, choosing uniformly
// from the legal move set. The rand source is injected so tests can seed it.
type DummyDriver struct {
	rng *rand.Rand
}

// NewDummyDriver constructs a dummy driver seeded with seed.
func NewDummyDriver(seed int64) *DummyDriver {
	return &DummyDriver{rng: rand.New(rand.NewSource(seed))}
}

// ShouldMove rolls the per-tick probability.
func (d *DummyDriver) ShouldMove(state *engine.GameState, player, tick int) bool {
	return d.rng.Float64() < moveProbability
}

// GetMove picks a uniformly random (piece, destination) pair from the
// player's current legal move set.
func (d *DummyDriver) GetMove(state *engine.GameState, player int) (board.ID, int, int, bool) {
	type option struct {
		id     board.ID
		r, c   int
	}
	var options []option
	for id, p := range state.Board.Pieces {
		if p.Captured || p.Player != player {
			continue
		}
		for _, dest := range engine.LegalDestinations(state, id) {
			options = append(options, option{id: id, r: dest[0], c: dest[1]})
		}
	}
	if len(options) == 0 {
		return board.ID{}, 0, 0, false
	}
	pick := options[d.rng.Intn(len(options))]
	return pick.id, pick.r, pick.c, true
}

// DriverFor returns the driver for an AI identity string ("bot:dummy").
// It never returns nil: unknown bot names get the dummy driver rather than
// a dead seat.
func DriverFor(identity string, seed int64) Driver {
	return NewDummyDriver(seed)
}
