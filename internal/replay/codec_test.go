package replay

import (
	"testing"
	"time"

	"kungfuchess/internal/board"
)

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	r := FromState(recordedGame(t), time.Unix(1700000000, 0).UTC())

	data, err := Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	decoded, err := Unmarshal(r.GameID, data, time.Time{})
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if decoded.GameID != r.GameID || decoded.TotalTicks != r.TotalTicks || decoded.TickRateHz != r.TickRateHz {
		t.Errorf("header mismatch: got %+v, want %+v", decoded, r)
	}
	if decoded.BoardType != r.BoardType || decoded.Speed != r.Speed {
		t.Errorf("config mismatch: got %+v/%+v, want %+v/%+v", decoded.BoardType, decoded.Speed, r.BoardType, r.Speed)
	}
	if (decoded.Winner == nil) != (r.Winner == nil) {
		t.Fatalf("winner mismatch: got %v, want %v", decoded.Winner, r.Winner)
	}
	if decoded.Winner != nil && *decoded.Winner != *r.Winner {
		t.Errorf("winner mismatch: got %d, want %d", *decoded.Winner, *r.Winner)
	}
	if len(decoded.Moves) != len(r.Moves) {
		t.Fatalf("expected %d moves, got %d", len(r.Moves), len(decoded.Moves))
	}
	for i := range r.Moves {
		if decoded.Moves[i] != r.Moves[i] {
			t.Errorf("move %d mismatch: got %+v, want %+v", i, decoded.Moves[i], r.Moves[i])
		}
	}
	if !decoded.CreatedAt.Equal(r.CreatedAt) {
		t.Errorf("created_at mismatch: got %v, want %v", decoded.CreatedAt, r.CreatedAt)
	}
}

func TestUnmarshalLegacyV1(t *testing.T) {
	queenID := board.ID{Type: board.Queen, Player: 1, OriginR: 4, OriginC: 0}.String()
	raw := []byte(`{
		"version": 1,
		"speed": "standard",
		"tick_rate_hz": 1,
		"players": {"1": "alice", "2": "bob"},
		"moves": [{"pieceId": "` + queenID + `", "row": 4, "col": 3, "tick": 0, "player": 1}]
	}`)

	r, err := Unmarshal("legacy-game", raw, time.Unix(0, 0))
	if err != nil {
		t.Fatalf("unmarshal legacy: %v", err)
	}
	if r.Version != CurrentVersion {
		t.Errorf("legacy records should convert to version %d, got %d", CurrentVersion, r.Version)
	}
	if r.BoardType != board.Standard {
		t.Error("legacy records are standard board only")
	}
	if len(r.Moves) != 1 || r.Moves[0].ToR != 4 || r.Moves[0].ToC != 3 {
		t.Fatalf("unexpected converted moves: %+v", r.Moves)
	}
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	if _, err := Unmarshal("g", []byte("not json"), time.Time{}); err == nil {
		t.Fatal("expected error for malformed record")
	}
}
