package lobby

import (
	"encoding/json"

	"kungfuchess/internal/board"
	"kungfuchess/internal/kflog"
	"kungfuchess/internal/protocol"
	"kungfuchess/internal/speed"
	"kungfuchess/internal/transport"
)

var log = kflog.Tagged("[Lobby]")

// StoreSink mirrors lobby state into persistence. Writes are best-effort;
// the in-memory registry stays authoritative. internal/store's lobby view
// satisfies this.
type StoreSink interface {
	Save(l *Lobby) error
	Delete(code string) error
}

// GameStarter launches a live game for a lobby that just started one. The
// coordinator never touches game sessions directly; main wires this to the
// session manager.
type GameStarter func(gameID string, players map[int]string, keys map[int]string, settings Settings)

// Coordinator connects the lobby state machine to its transports: it
// decodes client frames, runs registry operations, and fans the resulting
// events out as protocol messages.
type Coordinator struct {
	reg        *Registry
	transports *transport.Registry
	sink       StoreSink
	startGame  GameStarter
}

// NewCoordinator wires a coordinator. sink and startGame may be nil in
// tests.
func NewCoordinator(reg *Registry, transports *transport.Registry, sink StoreSink, startGame GameStarter) *Coordinator {
	return &Coordinator{reg: reg, transports: transports, sink: sink, startGame: startGame}
}

// Registry exposes the underlying lobby registry for creation/join flows
// that arrive over HTTP rather than the socket.
func (c *Coordinator) Registry() *Registry { return c.reg }

// Attach registers a connection for the lobby. A valid key re-associates
// its slot (clearing any running grace clock); an empty key attaches an
// observer. The new connection receives the full lobby state.
func (c *Coordinator) Attach(code, key string, conn transport.Conn) error {
	l, sweepEvents, err := c.reg.Get(code)
	if err != nil {
		return err
	}
	c.broadcastEvents(code, l, sweepEvents)

	slot := transport.SpectatorSlot
	if key != "" {
		if events, err := c.reg.Reconnect(code, key); err == nil {
			if s, ok := l.findSlotByKey(key); ok {
				slot = s
			}
			c.broadcastEvents(code, l, events)
		}
	}

	c.transports.Attach(code, conn, slot)
	if err := conn.WriteJSON(protocol.LobbyStateMessage{Type: "lobby_state", Lobby: infoFor(l)}); err != nil {
		c.transports.Detach(code, conn)
		return err
	}
	c.persist(l)
	return nil
}

// Detach drops a connection and, for a keyed participant, starts their
// reconnection grace clock.
func (c *Coordinator) Detach(code, key string, conn transport.Conn) {
	c.transports.Detach(code, conn)
	if key == "" {
		return
	}
	events, err := c.reg.Disconnect(code, key)
	if err != nil {
		return
	}
	if l, _, err := c.reg.Get(code); err == nil {
		c.broadcastEvents(code, l, events)
		c.persist(l)
	}
}

// HandleFrame processes one inbound lobby frame from the holder of key.
func (c *Coordinator) HandleFrame(code, key string, conn transport.Conn, raw []byte) {
	msgType, err := protocol.SniffType(raw)
	if err != nil {
		conn.WriteJSON(protocol.ErrorMessage{Type: "error", Code: "bad_frame", Message: err.Error()})
		return
	}

	if msgType == "ping" {
		conn.WriteJSON(protocol.PongMessage{Type: "pong"})
		return
	}
	if key == "" {
		conn.WriteJSON(protocol.ErrorMessage{Type: "error", Code: "spectator", Message: "observers cannot operate the lobby"})
		return
	}

	var events []Event
	var opErr error

	switch msgType {
	case "ready":
		var req protocol.LobbyReadyRequest
		if json.Unmarshal(raw, &req) != nil {
			opErr = errBadFrame(conn, "malformed ready")
			break
		}
		events, opErr = c.reg.SetReady(code, key, req.Ready)
	case "update_settings":
		var req protocol.UpdateSettingsRequest
		if json.Unmarshal(raw, &req) != nil {
			opErr = errBadFrame(conn, "malformed update_settings")
			break
		}
		events, opErr = c.reg.UpdateSettings(code, key, settingsFromWire(req.Settings))
	case "kick":
		var req protocol.KickRequest
		if json.Unmarshal(raw, &req) != nil {
			opErr = errBadFrame(conn, "malformed kick")
			break
		}
		events, opErr = c.reg.Kick(code, key, req.Slot)
	case "add_ai":
		var req protocol.AddAIRequest
		if json.Unmarshal(raw, &req) != nil {
			opErr = errBadFrame(conn, "malformed add_ai")
			break
		}
		_, events, opErr = c.reg.AddAI(code, key, req.AIType)
	case "remove_ai":
		var req protocol.RemoveAIRequest
		if json.Unmarshal(raw, &req) != nil {
			opErr = errBadFrame(conn, "malformed remove_ai")
			break
		}
		events, opErr = c.reg.RemoveAI(code, key, req.Slot)
	case "start_game":
		c.handleStartGame(code, key, conn)
		return
	case "leave":
		events, opErr = c.reg.Leave(code, key)
	case "return_to_lobby":
		opErr = c.reg.ReturnToLobby(code)
	default:
		conn.WriteJSON(protocol.ErrorMessage{Type: "error", Code: "unknown_type", Message: "unknown message type: " + msgType})
		return
	}

	if opErr != nil {
		conn.WriteJSON(protocol.ErrorMessage{Type: "error", Code: errorCode(opErr), Message: opErr.Error()})
		// The lazy sweep may still have removed someone before the
		// operation failed.
	}
	l, _, err := c.reg.Get(code)
	if err != nil {
		// Lobby reaped (last human left); close out its connections.
		c.transports.CloseScope(code)
		if c.sink != nil {
			c.sink.Delete(code)
		}
		return
	}
	c.broadcastEvents(code, l, events)
	c.persist(l)
}

// handleStartGame runs the start_game transition: the registry flips the
// lobby to InGame and mints per-slot game keys, the GameStarter spins up
// the session, and each participant privately receives their key.
func (c *Coordinator) handleStartGame(code, key string, conn transport.Conn) {
	l, _, err := c.reg.Get(code)
	if err != nil {
		conn.WriteJSON(protocol.ErrorMessage{Type: "error", Code: "lobby_not_found", Message: err.Error()})
		return
	}

	gameID, gameKeys, err := c.reg.StartGame(code, key)
	if err != nil {
		conn.WriteJSON(protocol.ErrorMessage{Type: "error", Code: errorCode(err), Message: err.Error()})
		return
	}

	players := make(map[int]string, len(l.Players))
	for slot, p := range l.Players {
		players[slot] = p.Identity
	}
	if c.startGame != nil {
		c.startGame(gameID, players, gameKeys, l.Settings)
	}

	for slot, p := range l.Players {
		if p.IsAI {
			continue
		}
		c.transports.Send(code, slot, protocol.GameStartingMessage{
			Type:      "game_starting",
			GameID:    gameID,
			LobbyCode: code,
			PlayerKey: gameKeys[slot],
		})
	}
	c.persist(l)
}

// GameEnded is the terminal-outcome signal from the session runtime: the
// lobby behind gameID leaves InGame and its members hear about the result.
func (c *Coordinator) GameEnded(gameID string, winner *int, reason string) {
	code, ok := c.reg.LobbyForGame(gameID)
	if !ok {
		return
	}
	events, err := c.reg.EndGame(gameID, winner, reason)
	if err != nil {
		log.Printf("end_game for %s: %v", gameID, err)
		return
	}
	if l, _, err := c.reg.Get(code); err == nil {
		c.broadcastEvents(code, l, events)
		c.persist(l)
	}
}

func (c *Coordinator) persist(l *Lobby) {
	if c.sink == nil {
		return
	}
	if err := c.sink.Save(l); err != nil {
		log.Printf("persisting lobby %s: %v", l.Code, err)
	}
}

// broadcastEvents fans lobby events out as their wire messages, then the
// refreshed lobby state.
func (c *Coordinator) broadcastEvents(code string, l *Lobby, events []Event) {
	if len(events) == 0 {
		return
	}
	for _, ev := range events {
		switch ev.Type {
		case EventPlayerJoined:
			if p, ok := l.Players[ev.Slot]; ok {
				c.transports.Broadcast(code, protocol.PlayerJoinedMessage{Type: "player_joined", Slot: ev.Slot, Player: playerInfo(l, p)})
			}
		case EventPlayerLeft:
			c.transports.Broadcast(code, protocol.PlayerLeftMessage{Type: "player_left", Slot: ev.Slot, Reason: ev.Reason})
		case EventPlayerReady:
			ready := false
			if p, ok := l.Players[ev.Slot]; ok {
				ready = p.IsReady
			}
			c.transports.Broadcast(code, protocol.PlayerReadyMessage{Type: "player_ready", Slot: ev.Slot, Ready: ready})
		case EventSettingsUpdated:
			c.transports.Broadcast(code, protocol.SettingsUpdatedMessage{Type: "settings_updated", Settings: settingsToWire(l.Settings)})
		case EventPlayerDisconnected:
			c.transports.Broadcast(code, protocol.PlayerDisconnectedMessage{Type: "player_disconnected", Slot: ev.Slot})
		case EventPlayerReconnected:
			if p, ok := l.Players[ev.Slot]; ok {
				c.transports.Broadcast(code, protocol.PlayerReconnectedMessage{Type: "player_reconnected", Slot: ev.Slot, Player: playerInfo(l, p)})
			}
		case EventHostChanged:
			c.transports.Broadcast(code, protocol.HostChangedMessage{Type: "host_changed", NewHostSlot: ev.Slot})
		case EventGameEnded:
			c.transports.Broadcast(code, protocol.GameEndedMessage{Type: "game_ended", Winner: ev.Winner, Reason: ev.Reason})
		}
	}
	c.transports.Broadcast(code, protocol.LobbyStateMessage{Type: "lobby_state", Lobby: infoFor(l)})
}

func errBadFrame(conn transport.Conn, msg string) error {
	conn.WriteJSON(protocol.ErrorMessage{Type: "error", Code: "bad_frame", Message: msg})
	return nil
}

// errorCode maps lobby refusal errors to stable wire codes.
func errorCode(err error) string {
	switch err {
	case ErrLobbyNotFound:
		return "lobby_not_found"
	case ErrLobbyFull:
		return "lobby_full"
	case ErrLobbyNotWaiting:
		return "lobby_not_waiting"
	case ErrNotHost:
		return "not_host"
	case ErrInvalidKey:
		return "invalid_key"
	case ErrSlotNotAI:
		return "slot_not_ai"
	case ErrTargetNotHuman:
		return "target_not_human"
	case ErrSlotIsHost:
		return "cannot_kick_host"
	case ErrSlotOccupied:
		return "slot_occupied"
	case ErrNotAllReady:
		return "not_all_ready"
	case ErrRankedNoAI:
		return "ranked_no_ai"
	case ErrShrinkBelowOccupancy:
		return "player_count_too_small"
	default:
		return "internal"
	}
}

// --- wire conversions ---

func settingsToWire(s Settings) protocol.LobbySettings {
	return protocol.LobbySettings{
		Speed:       string(s.Speed),
		BoardType:   s.BoardType.String(),
		PlayerCount: s.PlayerCount,
		IsPublic:    s.IsPublic,
		IsRanked:    s.IsRanked,
	}
}

func settingsFromWire(w protocol.LobbySettings) Settings {
	preset := speed.Standard
	if speed.Valid(w.Speed) {
		preset = speed.Preset(w.Speed)
	}
	bt := board.Standard
	if w.BoardType == board.FourPlayer.String() {
		bt = board.FourPlayer
	}
	count := w.PlayerCount
	if count != 2 && count != 4 {
		count = 2
	}
	return Settings{
		Speed:       preset,
		BoardType:   bt,
		PlayerCount: count,
		IsPublic:    w.IsPublic,
		IsRanked:    w.IsRanked,
	}
}

func playerInfo(l *Lobby, p *Player) protocol.LobbyPlayerInfo {
	return protocol.LobbyPlayerInfo{
		Slot:        p.Slot,
		Username:    p.Username,
		IsReady:     p.IsReady,
		IsAI:        p.IsAI,
		AIType:      p.AIType,
		IsConnected: p.IsConnected,
		IsHost:      p.Slot == l.HostSlot,
	}
}

func infoFor(l *Lobby) protocol.LobbyInfo {
	info := protocol.LobbyInfo{
		Code:        l.Code,
		HostSlot:    l.HostSlot,
		Settings:    settingsToWire(l.Settings),
		Status:      statusName(l.Status),
		GamesPlayed: l.GamesPlayed,
	}
	for slot := 1; slot <= l.Settings.PlayerCount; slot++ {
		if p, ok := l.Players[slot]; ok {
			info.Players = append(info.Players, playerInfo(l, p))
		}
	}
	return info
}

func statusName(s Status) string {
	switch s {
	case InGame:
		return "in_game"
	case Finished:
		return "finished"
	default:
		return "waiting"
	}
}
