// Package protocol defines the JSON wire messages exchanged with game,
// lobby, and replay clients. Every message carries a "type" discriminator;
// inbound frames are decoded in two passes (sniff the type via Envelope,
// then unmarshal the concrete payload), the same read-the-token-first
// idiom a line protocol uses.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Envelope is the first-pass decode target for any inbound frame.
type Envelope struct {
	Type string `json:"type"`
}

// SniffType returns the "type" field of a raw JSON frame.
func SniffType(raw []byte) (string, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", fmt.Errorf("protocol: malformed frame: %w", err)
	}
	if env.Type == "" {
		return "", fmt.Errorf("protocol: frame missing type")
	}
	return env.Type, nil
}

// --- Client -> server, game scope ---

// MoveRequest asks the session to start a move for one of the sender's
// pieces.
type MoveRequest struct {
	Type    string `json:"type"` // "move"
	PieceID string `json:"piece_id"`
	ToRow   int    `json:"to_row"`
	ToCol   int    `json:"to_col"`
}

// ReadyRequest marks the sender's slot ready ("ready"), with no payload
// beyond the type tag. Ping is the same shape with type "ping"; both decode
// through Envelope alone.

// --- Server -> client, game scope ---

// PieceSnapshot is one piece's row in a state broadcast. Row/Col are
// interpolation-ready: integers at rest, fractional while the piece is in
// flight.
type PieceSnapshot struct {
	ID         string  `json:"id"`
	PieceType  string  `json:"piece_type"`
	Player     int     `json:"player"`
	Row        float64 `json:"row"`
	Col        float64 `json:"col"`
	Captured   bool    `json:"captured"`
	Moving     bool    `json:"moving"`
	OnCooldown bool    `json:"on_cooldown"`
	Moved      bool    `json:"moved"`
}

// PathPoint is one point of an active move's path on the wire.
type PathPoint struct {
	Row float64 `json:"row"`
	Col float64 `json:"col"`
}

// ActiveMoveSnapshot is one in-flight move's row in a state broadcast.
type ActiveMoveSnapshot struct {
	PieceID   string      `json:"piece_id"`
	Path      []PathPoint `json:"path"`
	StartTick int         `json:"start_tick"`
	Progress  float64     `json:"progress"`
}

// CooldownSnapshot is one live cooldown's row in a state broadcast.
type CooldownSnapshot struct {
	PieceID        string `json:"piece_id"`
	RemainingTicks int    `json:"remaining_ticks"`
}

// EventMessage is one engine event as broadcast to clients.
type EventMessage struct {
	Type             string `json:"type"`
	Tick             int    `json:"tick"`
	PieceID          string `json:"piece_id,omitempty"`
	CapturingPieceID string `json:"capturing_piece_id,omitempty"`
	ToRow            *int   `json:"to_row,omitempty"`
	ToCol            *int   `json:"to_col,omitempty"`
	PromotedTo       string `json:"promoted_to,omitempty"`
	Winner           *int   `json:"winner,omitempty"`
	WinReason        string `json:"win_reason,omitempty"`
}

// StateMessage is the per-tick snapshot broadcast to every game connection.
type StateMessage struct {
	Type          string               `json:"type"` // "state"
	Tick          int                  `json:"tick"`
	Pieces        []PieceSnapshot      `json:"pieces"`
	ActiveMoves   []ActiveMoveSnapshot `json:"active_moves"`
	Cooldowns     []CooldownSnapshot   `json:"cooldowns"`
	Events        []EventMessage       `json:"events"`
	TimeSinceTick *int64               `json:"time_since_tick,omitempty"` // ms since tick boundary
}

// GameStartedMessage announces the Waiting -> Playing transition.
type GameStartedMessage struct {
	Type string `json:"type"` // "game_started"
	Tick int    `json:"tick"`
}

// GameOverMessage announces the terminal outcome.
type GameOverMessage struct {
	Type   string `json:"type"` // "game_over"
	Winner *int   `json:"winner"`
	Reason string `json:"reason"`
}

// MoveRejectedMessage is the domain-refusal reply to the originating client
// only; it is never broadcast.
type MoveRejectedMessage struct {
	Type    string `json:"type"` // "move_rejected"
	PieceID string `json:"piece_id"`
	Reason  string `json:"reason"`
}

// PongMessage answers a ping.
type PongMessage struct {
	Type string `json:"type"` // "pong"
}

// ErrorMessage reports transient input or state-guard failures. Code is a
// stable machine-readable tag; Message is for humans.
type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// --- Client -> server, lobby scope ---

// LobbyReadyRequest toggles the sender's ready flag.
type LobbyReadyRequest struct {
	Type  string `json:"type"` // "ready"
	Ready bool   `json:"ready"`
}

// UpdateSettingsRequest replaces the lobby settings (host only).
type UpdateSettingsRequest struct {
	Type     string        `json:"type"` // "update_settings"
	Settings LobbySettings `json:"settings"`
}

// KickRequest removes a human player from a slot (host only).
type KickRequest struct {
	Type string `json:"type"` // "kick"
	Slot int    `json:"slot"`
}

// AddAIRequest fills the lowest free slot with a bot (host only).
type AddAIRequest struct {
	Type   string `json:"type"` // "add_ai"
	AIType string `json:"aiType"`
}

// RemoveAIRequest removes a bot from a slot (host only).
type RemoveAIRequest struct {
	Type string `json:"type"` // "remove_ai"
	Slot int    `json:"slot"`
}

// StartGameRequest, LeaveRequest, ReturnToLobbyRequest, and lobby pings are
// bare type tags decoded through Envelope alone ("start_game", "leave",
// "return_to_lobby", "ping").

// --- Server -> client, lobby scope ---

// LobbySettings is the wire form of a lobby's settings.
type LobbySettings struct {
	Speed       string `json:"speed"`
	BoardType   string `json:"board_type"`
	PlayerCount int    `json:"player_count"`
	IsPublic    bool   `json:"is_public"`
	IsRanked    bool   `json:"is_ranked"`
}

// LobbyPlayerInfo is the wire form of one lobby occupant.
type LobbyPlayerInfo struct {
	Slot        int    `json:"slot"`
	Username    string `json:"username"`
	IsReady     bool   `json:"is_ready"`
	IsAI        bool   `json:"is_ai"`
	AIType      string `json:"ai_type,omitempty"`
	IsConnected bool   `json:"is_connected"`
	IsHost      bool   `json:"is_host"`
}

// LobbyInfo is the wire form of a lobby's full state.
type LobbyInfo struct {
	Code        string            `json:"code"`
	HostSlot    int               `json:"host_slot"`
	Settings    LobbySettings     `json:"settings"`
	Players     []LobbyPlayerInfo `json:"players"`
	Status      string            `json:"status"`
	GamesPlayed int               `json:"games_played"`
}

// LobbyStateMessage carries the full lobby state, sent on attach and after
// any operation that changed it.
type LobbyStateMessage struct {
	Type  string    `json:"type"` // "lobby_state"
	Lobby LobbyInfo `json:"lobby"`
}

// PlayerJoinedMessage announces a new occupant.
type PlayerJoinedMessage struct {
	Type   string          `json:"type"` // "player_joined"
	Slot   int             `json:"slot"`
	Player LobbyPlayerInfo `json:"player"`
}

// PlayerLeftMessage announces a departure; Reason is "left", "kicked",
// "disconnected", or "ai_removed".
type PlayerLeftMessage struct {
	Type   string `json:"type"` // "player_left"
	Slot   int    `json:"slot"`
	Reason string `json:"reason"`
}

// PlayerReadyMessage announces a ready-flag change.
type PlayerReadyMessage struct {
	Type  string `json:"type"` // "player_ready"
	Slot  int    `json:"slot"`
	Ready bool   `json:"ready"`
}

// SettingsUpdatedMessage announces new settings.
type SettingsUpdatedMessage struct {
	Type     string        `json:"type"` // "settings_updated"
	Settings LobbySettings `json:"settings"`
}

// PlayerDisconnectedMessage starts a participant's grace window.
type PlayerDisconnectedMessage struct {
	Type string `json:"type"` // "player_disconnected"
	Slot int    `json:"slot"`
}

// PlayerReconnectedMessage clears a participant's grace window.
type PlayerReconnectedMessage struct {
	Type   string          `json:"type"` // "player_reconnected"
	Slot   int             `json:"slot"`
	Player LobbyPlayerInfo `json:"player"`
}

// HostChangedMessage announces a host transfer.
type HostChangedMessage struct {
	Type        string `json:"type"` // "host_changed"
	NewHostSlot int    `json:"newHostSlot"`
}

// GameStartingMessage hands each participant their per-slot key for the
// forthcoming game. Sent individually, never broadcast: the key is a secret.
type GameStartingMessage struct {
	Type      string `json:"type"` // "game_starting"
	GameID    string `json:"gameId"`
	LobbyCode string `json:"lobbyCode"`
	PlayerKey string `json:"playerKey"`
}

// GameEndedMessage tells the lobby its live game has concluded.
type GameEndedMessage struct {
	Type   string `json:"type"` // "game_ended"
	Winner *int   `json:"winner"`
	Reason string `json:"reason"`
}

// --- Replay scope ---

// SeekRequest jumps playback to a tick; "play" and "pause" are bare type
// tags.
type SeekRequest struct {
	Type string `json:"type"` // "seek"
	Tick int    `json:"tick"`
}

// ReplayInfoMessage is sent once on attach to a replay session.
type ReplayInfoMessage struct {
	Type       string         `json:"type"` // "replay_info"
	GameID     string         `json:"game_id"`
	Speed      string         `json:"speed"`
	BoardType  string         `json:"board_type"`
	Players    map[int]string `json:"players"`
	TotalTicks int            `json:"total_ticks"`
	Winner     *int           `json:"winner"`
	WinReason  string         `json:"win_reason"`
	TickRateHz int            `json:"tick_rate_hz"`
}

// PlaybackStatusMessage reports the playback cursor.
type PlaybackStatusMessage struct {
	Type        string `json:"type"` // "playback_status"
	IsPlaying   bool   `json:"is_playing"`
	CurrentTick int    `json:"current_tick"`
	TotalTicks  int    `json:"total_ticks"`
}
