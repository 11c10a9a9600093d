// Package board implements the piece and board representation for Kung Fu
// Chess: geometry, square validity, piece identity, and initial placement.
package board

import "fmt"

// PieceType represents the type of a chess piece.
type PieceType uint8

const (
	Pawn PieceType = iota
	Knight
	Bishop
	Rook
	Queen
	King
	NoPieceType PieceType = 6
)

// String returns the piece type name.
func (pt PieceType) String() string {
	switch pt {
	case Pawn:
		return "Pawn"
	case Knight:
		return "Knight"
	case Bishop:
		return "Bishop"
	case Rook:
		return "Rook"
	case Queen:
		return "Queen"
	case King:
		return "King"
	default:
		return "None"
	}
}

// Char returns the single-letter FEN-style tag for the piece type, uppercase.
func (pt PieceType) Char() byte {
	chars := []byte{'P', 'N', 'B', 'R', 'Q', 'K', ' '}
	if pt > NoPieceType {
		return ' '
	}
	return chars[pt]
}

// ID is a piece's stable identity. A piece's id is its starting square,
// which makes ids replay-safe: the same id always names the same piece
// across a recorded game and any replay of it.
type ID struct {
	Type     PieceType
	Player   int
	OriginR  int
	OriginC  int
}

// String renders the id as a compact, deterministic token suitable for use
// as a map key's string form or a wire identifier.
func (id ID) String() string {
	return fmt.Sprintf("%c-%d-%d-%d", id.Type.Char(), id.Player, id.OriginR, id.OriginC)
}

// ParseID parses the token produced by ID.String() back into an ID. Used by
// the legacy (v1) replay decoder, whose move log stores ids as this same
// compact token.
func ParseID(s string) (ID, error) {
	var typeChar byte
	var player, originR, originC int
	n, err := fmt.Sscanf(s, "%c-%d-%d-%d", &typeChar, &player, &originR, &originC)
	if err != nil || n != 4 {
		return ID{}, fmt.Errorf("board: malformed piece id %q", s)
	}
	pt, ok := pieceTypeFromChar(typeChar)
	if !ok {
		return ID{}, fmt.Errorf("board: unknown piece type char %q in id %q", typeChar, s)
	}
	return ID{Type: pt, Player: player, OriginR: originR, OriginC: originC}, nil
}

func pieceTypeFromChar(c byte) (PieceType, bool) {
	for pt := Pawn; pt <= King; pt++ {
		if pt.Char() == c {
			return pt, true
		}
	}
	return 0, false
}

// Point is a real-valued board coordinate. At rest both components are
// integers; while a piece is in flight the collision resolver reports
// fractional values produced by interpolation.
type Point struct {
	Row float64
	Col float64
}

// Piece is a single chess piece. Created at board construction and mutated
// only by the simulation engine; Captured is terminal for the piece once set.
type Piece struct {
	ID       ID
	Type     PieceType
	Player   int
	Pos      Point
	Captured bool
	Moved    bool
}

// GridRow and GridCol return the piece's at-rest grid coordinates, rounding
// to the nearest square. Only meaningful when the piece has no active move;
// callers interpolate through the collision package while it does.
func (p *Piece) GridRow() int { return int(p.Pos.Row + 0.5) }
func (p *Piece) GridCol() int { return int(p.Pos.Col + 0.5) }
