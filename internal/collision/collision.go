// Package collision computes, for a given tick, every
// piece's interpolated position and arbitrate pairwise captures. Pure
// functions only; the simulation engine owns all state and calls Resolve
// each tick, and the session's snapshot builder calls Interpolate to report
// in-flight positions.
package collision

import (
	"math"
	"sort"

	"kungfuchess/internal/board"
)

// KnightAirborneFraction is the portion of a knight's total motion duration
// (2T) during which it is absent from collision: neither visible to, nor
// able to capture, other pieces.
const KnightAirborneFraction = 0.85

// PieceState is the minimal view of one piece's motion the resolver needs
// for a single tick. The engine builds one per uncaptured piece.
type PieceState struct {
	ID     board.ID
	Player int

	// Moving is true while the piece has an active move this tick.
	Moving bool

	// PawnStraight is true when Moving and the active move is a pawn
	// advancing purely along its forward axis (no lateral component);
	// such a move can never capture.
	PawnStraight bool

	StartTick int
}

// Interpolate computes a piece's real-valued position for tick now, given
// its path (path[0] is the start square) and ticks-per-square T. Knights
// use whole-duration linear interpolation and an 85%-progress visibility
// gate instead of the general per-segment formula.
func Interpolate(isKnight bool, path []board.Point, startTick, now, ticksPerSquare int) (pos board.Point, absent bool) {
	if len(path) == 0 {
		return board.Point{}, false
	}
	e := now - startTick
	if e < 0 {
		e = 0
	}

	if isKnight {
		total := 2 * ticksPerSquare
		progress := 0.0
		if total > 0 {
			progress = float64(e) / float64(total)
		}
		if progress > 1 {
			progress = 1
		}
		start, end := path[0], path[len(path)-1]
		pos = lerp(start, end, progress)
		absent = progress < KnightAirborneFraction
		return pos, absent
	}

	segments := len(path) - 1
	total := segments * ticksPerSquare
	if e >= total {
		return path[len(path)-1], false
	}
	k := e / ticksPerSquare
	f := float64(e%ticksPerSquare) / float64(ticksPerSquare)
	return lerp(path[k], path[k+1], f), false
}

func lerp(a, b board.Point, f float64) board.Point {
	return board.Point{
		Row: a.Row + f*(b.Row-a.Row),
		Col: a.Col + f*(b.Col-a.Col),
	}
}

// candidate is a pair of pieces whose computed positions are within capture
// range this tick.
type candidate struct {
	a, b PieceState
}

// CollidingPairs returns every unordered pair of uncaptured pieces of
// different players whose positions (at this tick, already computed by the
// caller via Interpolate) lie within 0.4 squares of each other, excluding
// any pair where either piece is absent (airborne). Positions is keyed by
// piece id and must contain an entry for every non-absent piece in states.
func CollidingPairs(states []PieceState, positions map[board.ID]board.Point, absent map[board.ID]bool) []candidate {
	var cands []candidate
	for i := 0; i < len(states); i++ {
		for j := i + 1; j < len(states); j++ {
			a, b := states[i], states[j]
			if a.Player == b.Player {
				continue
			}
			if absent[a.ID] || absent[b.ID] {
				continue
			}
			pa, okA := positions[a.ID]
			pb, okB := positions[b.ID]
			if !okA || !okB {
				continue
			}
			if dist(pa, pb) < 0.4 {
				if b.ID.String() < a.ID.String() {
					a, b = b, a
				}
				cands = append(cands, candidate{a, b})
			}
		}
	}
	// Deterministic, replay-stable pairing order for three-way pile-ups:
	// sort candidates lexicographically by (A.ID, B.ID) string form.
	sort.Slice(cands, func(i, j int) bool {
		si := cands[i].a.ID.String() + "\x00" + cands[i].b.ID.String()
		sj := cands[j].a.ID.String() + "\x00" + cands[j].b.ID.String()
		return si < sj
	})
	return cands
}

func dist(a, b board.Point) float64 {
	dr := a.Row - b.Row
	dc := a.Col - b.Col
	return math.Sqrt(dr*dr + dc*dc)
}

// Event is one arbitrated capture outcome. Mutual destruction sets Mutual
// and leaves WinnerID as the zero value (never credited).
type Event struct {
	LoserIDs []board.ID
	WinnerID board.ID
	Mutual   bool
}

// Resolve runs the full pipeline for one tick: find colliding pairs in a
// deterministic order and arbitrate each, short-circuiting any pair where a
// piece already lost earlier in the same tick (handles three-way pile-ups).
func Resolve(states []PieceState, positions map[board.ID]board.Point, absent map[board.ID]bool) []Event {
	pairs := CollidingPairs(states, positions, absent)
	captured := map[board.ID]bool{}
	var events []Event
	for _, c := range pairs {
		if captured[c.a.ID] || captured[c.b.ID] {
			continue
		}
		winner, losers, mutual := arbitrate(c.a, c.b)
		for _, l := range losers {
			captured[l] = true
		}
		events = append(events, Event{LoserIDs: losers, WinnerID: winner, Mutual: mutual})
	}
	return events
}

// captureCapable reports whether a piece can capture in its current state.
// Only a pawn advancing straight ahead cannot; stationary pieces can
// capture when an opponent runs into them.
func captureCapable(p PieceState) bool {
	return !(p.Moving && p.PawnStraight)
}

// arbitrate applies the capture-arbitration cascade to one colliding
// pair.
func arbitrate(p, q PieceState) (winner board.ID, losers []board.ID, mutual bool) {
	// Rule 1: both moving pawns advancing straight ahead cannot capture
	// each other; earlier start survives, equal starts destroy both.
	if p.Moving && p.PawnStraight && q.Moving && q.PawnStraight {
		return earlierWins(p, q)
	}

	pCap, qCap := captureCapable(p), captureCapable(q)

	// Rule 2: exactly one contestant is capture-capable.
	if pCap != qCap {
		if pCap {
			return p.ID, []board.ID{q.ID}, false
		}
		return q.ID, []board.ID{p.ID}, false
	}

	// Rule 3: a moving piece beats a stationary one.
	if p.Moving != q.Moving {
		if p.Moving {
			return p.ID, []board.ID{q.ID}, false
		}
		return q.ID, []board.ID{p.ID}, false
	}

	// Rule 4: both moving and capture-capable: earlier start_tick wins;
	// equal starts destroy both.
	if p.Moving && q.Moving {
		return earlierWins(p, q)
	}

	// Both stationary: two different-player pieces cannot rest on the
	// same square under normal play; treat as mutual destruction.
	return board.ID{}, []board.ID{p.ID, q.ID}, true
}

func earlierWins(p, q PieceState) (winner board.ID, losers []board.ID, mutual bool) {
	switch {
	case p.StartTick < q.StartTick:
		return p.ID, []board.ID{q.ID}, false
	case q.StartTick < p.StartTick:
		return q.ID, []board.ID{p.ID}, false
	default:
		return board.ID{}, []board.ID{p.ID, q.ID}, true
	}
}
