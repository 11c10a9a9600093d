package replay

import (
	"encoding/json"
	"fmt"
	"time"

	"kungfuchess/internal/board"
	"kungfuchess/internal/engine"
	"kungfuchess/internal/speed"
)

// wireMove is the version-2 on-disk form of one replay move.
type wireMove struct {
	Tick    int    `json:"tick"`
	PieceID string `json:"piece_id"`
	ToRow   int    `json:"to_row"`
	ToCol   int    `json:"to_col"`
	Player  int    `json:"player"`
}

// wireReplay is the version-2 on-disk form of a replay.
type wireReplay struct {
	Version    int            `json:"version"`
	GameID     string         `json:"game_id"`
	Speed      string         `json:"speed"`
	BoardType  string         `json:"board_type"`
	Players    map[int]string `json:"players"`
	Moves      []wireMove     `json:"moves"`
	TotalTicks int            `json:"total_ticks"`
	Winner     *int           `json:"winner"`
	WinReason  string         `json:"win_reason"`
	TickRateHz int            `json:"tick_rate_hz"`
	CreatedAt  time.Time      `json:"created_at"`
}

// legacyWireMove is the version-1 move shape: pieceId/row/col field names,
// piece ids stored as the compact id token.
type legacyWireMove struct {
	PieceID string `json:"pieceId"`
	Row     int    `json:"row"`
	Col     int    `json:"col"`
	Tick    int    `json:"tick"`
	Player  int    `json:"player"`
}

// legacyWireReplay is the version-1 file shape: standard board only, no
// winner or board type recorded.
type legacyWireReplay struct {
	Version    int              `json:"version"`
	Speed      string           `json:"speed"`
	Players    map[int]string   `json:"players"`
	Moves      []legacyWireMove `json:"moves"`
	TickRateHz int              `json:"tick_rate_hz"`
}

// Marshal encodes r in the current (version 2) format.
func Marshal(r *Replay) ([]byte, error) {
	w := wireReplay{
		Version:    CurrentVersion,
		GameID:     r.GameID,
		Speed:      string(r.Speed.Preset),
		BoardType:  r.BoardType.String(),
		Players:    r.Players,
		Moves:      make([]wireMove, 0, len(r.Moves)),
		TotalTicks: r.TotalTicks,
		Winner:     r.Winner,
		WinReason:  string(r.WinReason),
		TickRateHz: r.TickRateHz,
		CreatedAt:  r.CreatedAt,
	}
	for _, m := range r.Moves {
		w.Moves = append(w.Moves, wireMove{
			Tick:    m.Tick,
			PieceID: m.PieceID.String(),
			ToRow:   m.ToR,
			ToCol:   m.ToC,
			Player:  m.Player,
		})
	}
	return json.Marshal(w)
}

// Unmarshal decodes either replay format. Version 1 files are converted to
// the current in-memory shape on load; their winner is re-derived by
// replaying the recorded moves (the v1 format never stored one).
func Unmarshal(gameID string, data []byte, createdAt time.Time) (*Replay, error) {
	var probe struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("replay: malformed record for %s: %w", gameID, err)
	}

	if probe.Version <= 1 {
		var legacy legacyWireReplay
		if err := json.Unmarshal(data, &legacy); err != nil {
			return nil, fmt.Errorf("replay: malformed legacy record for %s: %w", gameID, err)
		}
		moves := make([]LegacyV1Move, 0, len(legacy.Moves))
		for _, m := range legacy.Moves {
			moves = append(moves, LegacyV1Move{PieceID: m.PieceID, Row: m.Row, Col: m.Col, Tick: m.Tick, Player: m.Player})
		}
		return FromLegacy(gameID, moves, legacy.Players, legacy.Speed, legacy.TickRateHz, createdAt)
	}

	var w wireReplay
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("replay: malformed record for %s: %w", gameID, err)
	}
	bt := board.Standard
	if w.BoardType == board.FourPlayer.String() {
		bt = board.FourPlayer
	}
	r := &Replay{
		Version:    CurrentVersion,
		GameID:     w.GameID,
		Speed:      speed.Derive(speed.Preset(w.Speed), w.TickRateHz),
		BoardType:  bt,
		Players:    w.Players,
		Moves:      make([]engine.ReplayMove, 0, len(w.Moves)),
		TotalTicks: w.TotalTicks,
		Winner:     w.Winner,
		WinReason:  engine.WinReason(w.WinReason),
		TickRateHz: w.TickRateHz,
		CreatedAt:  w.CreatedAt,
	}
	if r.GameID == "" {
		r.GameID = gameID
	}
	for _, m := range w.Moves {
		id, err := board.ParseID(m.PieceID)
		if err != nil {
			log.Printf("skipping move with unparseable id in %s: %v", gameID, err)
			continue
		}
		r.Moves = append(r.Moves, engine.ReplayMove{Tick: m.Tick, PieceID: id, ToR: m.ToRow, ToC: m.ToCol, Player: m.Player})
	}
	return r, nil
}
