// Package session implements the per-game runtime: it owns a
// GameState, drives it at the tick rate, ingests client intents, broadcasts
// snapshots, and persists the replay on termination. One Session per live
// game; its tick loop is the actor that serializes all state mutation.
package session

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"kungfuchess/internal/board"
	"kungfuchess/internal/engine"
	"kungfuchess/internal/kflog"
	"kungfuchess/internal/ports"
	"kungfuchess/internal/protocol"
	"kungfuchess/internal/replay"
	"kungfuchess/internal/rules"
	"kungfuchess/internal/speed"
	"kungfuchess/internal/transport"
)

var log = kflog.Tagged("[Session]")

// LobbyNotifier is called once when a game reaches a terminal state, so the
// lobby that spawned it can transition out of InGame.
type LobbyNotifier func(gameID string, winner *int, reason string)

// intentKind tags a queued client intent.
type intentKind uint8

const (
	intentMove intentKind = iota
	intentReady
	intentResign
)

// intent is one queued client request, applied between ticks under the
// session's lock.
type intent struct {
	kind    intentKind
	slot    int
	pieceID board.ID
	rawID   string
	toR     int
	toC     int
	conn    transport.Conn
}

// outMsg is a reply destined for a single connection, sent after the state
// lock is released.
type outMsg struct {
	conn transport.Conn
	msg  any
}

// Session drives one live game.
type Session struct {
	GameID string

	mu      sync.Mutex
	state   *engine.GameState
	keys    map[int]string // slot -> player key
	drivers map[int]Driver
	intents []intent

	registry *transport.Registry
	replays  ports.ReplayStore
	notify   LobbyNotifier

	loopMu      sync.Mutex
	loopRunning bool

	persisted bool
}

// Config is everything needed to construct a session.
type Config struct {
	GameID     string
	BoardType  board.Type
	Speed      speed.Preset
	TickRateHz int
	Players    map[int]string // slot -> identity; "bot:<name>" marks AI
	Keys       map[int]string // slot -> player key (AI slots need none)
	AISeed     int64
}

// New constructs a session at Waiting. The tick loop starts on first
// attach.
func New(cfg Config, registry *transport.Registry, replays ports.ReplayStore, notify LobbyNotifier) *Session {
	aiSlots := map[int]bool{}
	drivers := map[int]Driver{}
	for slot, identity := range cfg.Players {
		if strings.HasPrefix(identity, "bot:") {
			aiSlots[slot] = true
			drivers[slot] = DriverFor(identity, cfg.AISeed+int64(slot))
		}
	}
	return &Session{
		GameID:   cfg.GameID,
		state:    engine.New(cfg.GameID, cfg.BoardType, cfg.Speed, cfg.TickRateHz, cfg.Players, aiSlots),
		keys:     cfg.Keys,
		drivers:  drivers,
		registry: registry,
		replays:  replays,
		notify:   notify,
	}
}

// SlotForKey resolves a player key to its slot; ok is false for unknown
// keys (spectators).
func (s *Session) SlotForKey(key string) (int, bool) {
	if key == "" {
		return 0, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for slot, k := range s.keys {
		if k == key {
			return slot, true
		}
	}
	return 0, false
}

// Attach registers a connection (player or spectator), sends it the current
// snapshot, and relights the tick loop if it was dormant.
func (s *Session) Attach(conn transport.Conn, slot int) {
	s.registry.Attach(s.GameID, conn, slot)

	s.mu.Lock()
	snapshot := Snapshot(s.state, nil)
	s.mu.Unlock()

	if err := conn.WriteJSON(snapshot); err != nil {
		s.registry.Detach(s.GameID, conn)
		return
	}
	s.maybeStartLoop()
}

// Detach forgets a connection. The loop notices the empty registry on its
// next wake and drops to idle.
func (s *Session) Detach(conn transport.Conn) {
	s.registry.Detach(s.GameID, conn)
}

// HandleFrame processes one inbound frame from a connection authorized as
// slot (transport.SpectatorSlot for observers). Pings are answered
// immediately; everything else is queued for the next tick.
func (s *Session) HandleFrame(conn transport.Conn, slot int, raw []byte) {
	msgType, err := protocol.SniffType(raw)
	if err != nil {
		conn.WriteJSON(protocol.ErrorMessage{Type: "error", Code: "bad_frame", Message: err.Error()})
		return
	}

	if msgType == "ping" {
		conn.WriteJSON(protocol.PongMessage{Type: "pong"})
		return
	}

	if slot == transport.SpectatorSlot {
		conn.WriteJSON(protocol.ErrorMessage{Type: "error", Code: "spectator", Message: "spectators cannot send intents"})
		return
	}

	switch msgType {
	case "move":
		var req protocol.MoveRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			conn.WriteJSON(protocol.ErrorMessage{Type: "error", Code: "bad_frame", Message: "malformed move"})
			return
		}
		id, err := board.ParseID(req.PieceID)
		if err != nil {
			conn.WriteJSON(protocol.MoveRejectedMessage{Type: "move_rejected", PieceID: req.PieceID, Reason: "unknown piece"})
			return
		}
		s.enqueue(intent{kind: intentMove, slot: slot, pieceID: id, rawID: req.PieceID, toR: req.ToRow, toC: req.ToCol, conn: conn})
	case "ready":
		s.enqueue(intent{kind: intentReady, slot: slot})
	case "resign":
		s.enqueue(intent{kind: intentResign, slot: slot})
	default:
		conn.WriteJSON(protocol.ErrorMessage{Type: "error", Code: "unknown_type", Message: "unknown message type: " + msgType})
	}
}

// enqueue parks an intent for the next tick. Intents only arrive from
// attached connections, and attaching is what relights a dormant loop, so
// no start is needed here.
func (s *Session) enqueue(it intent) {
	s.mu.Lock()
	s.intents = append(s.intents, it)
	s.mu.Unlock()
}

// maybeStartLoop starts the tick loop unless one is already running. The
// loopMu guard keeps the invariant of at most one loop per game.
func (s *Session) maybeStartLoop() {
	s.loopMu.Lock()
	if s.loopRunning {
		s.loopMu.Unlock()
		return
	}
	s.loopRunning = true
	s.loopMu.Unlock()
	go s.run()
}

func (s *Session) stopLoop() {
	s.loopMu.Lock()
	s.loopRunning = false
	s.loopMu.Unlock()
}

// run is the tick loop. It exits when the game finishes or when no
// transport remains connected; a later attach relights it.
func (s *Session) run() {
	period := time.Second / time.Duration(s.tickRateHz())
	for {
		time.Sleep(period)

		if !s.registry.HasConnections(s.GameID) {
			s.stopLoop()
			return
		}

		snapshot, replies, finished, winner, reason := s.step()

		for _, r := range replies {
			if err := r.conn.WriteJSON(r.msg); err != nil {
				s.registry.Detach(s.GameID, r.conn)
			}
		}
		s.announce(snapshot)
		s.registry.Broadcast(s.GameID, snapshot)

		if finished {
			s.registry.Broadcast(s.GameID, protocol.GameOverMessage{Type: "game_over", Winner: winner, Reason: reason})
			s.persistReplay()
			if s.notify != nil {
				s.notify(s.GameID, winner, reason)
			}
			s.stopLoop()
			return
		}
	}
}

// announce sends the dedicated game_started frame when this tick's events
// include the Waiting -> Playing transition.
func (s *Session) announce(snapshot protocol.StateMessage) {
	for _, ev := range snapshot.Events {
		if ev.Type == string(engine.EventGameStarted) {
			s.registry.Broadcast(s.GameID, protocol.GameStartedMessage{Type: "game_started", Tick: 0})
		}
	}
}

func (s *Session) tickRateHz() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Speed.TickRateHz
}

// step performs one full tick under the session lock: AI intents, queued
// client intents, the engine tick, and the snapshot. Per-connection replies
// and the broadcast happen in the caller, outside the lock.
func (s *Session) step() (snapshot protocol.StateMessage, replies []outMsg, finished bool, winner *int, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var events []engine.Event

	if s.state.Status == engine.Playing {
		for slot, driver := range s.drivers {
			if !driver.ShouldMove(s.state, slot, s.state.CurrentTick) {
				continue
			}
			id, toR, toC, ok := driver.GetMove(s.state, slot)
			if !ok {
				continue
			}
			move, err := engine.ValidateMove(s.state, slot, id, toR, toC)
			if err != nil {
				continue // drivers get no rejection feedback
			}
			events = append(events, engine.ApplyMove(s.state, slot, move)...)
		}
	}

	pending := s.intents
	s.intents = nil
	for _, it := range pending {
		evs, reply := s.applyIntent(it)
		events = append(events, evs...)
		if reply != nil {
			replies = append(replies, outMsg{conn: it.conn, msg: reply})
		}
	}

	events = append(events, engine.Tick(s.state)...)

	snapshot = Snapshot(s.state, events)
	if s.state.Status == engine.Finished {
		finished = true
		winner = s.state.Winner
		reason = string(s.state.WinReason)
	}
	return snapshot, replies, finished, winner, reason
}

// applyIntent applies one queued intent, returning engine events and an
// optional reply for the originating connection only (domain refusals are
// never broadcast).
func (s *Session) applyIntent(it intent) ([]engine.Event, any) {
	switch it.kind {
	case intentReady:
		return engine.SetReady(s.state, it.slot), nil
	case intentResign:
		return engine.Resign(s.state, it.slot), nil
	case intentMove:
		move, err := engine.ValidateMove(s.state, it.slot, it.pieceID, it.toR, it.toC)
		if err != nil {
			return nil, protocol.MoveRejectedMessage{Type: "move_rejected", PieceID: it.rawID, Reason: rejectionReason(err)}
		}
		return engine.ApplyMove(s.state, it.slot, move), nil
	}
	return nil, nil
}

// rejectionReason maps a refusal error to its stable wire reason.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, engine.ErrGameNotPlaying):
		return "game_not_playing"
	case errors.Is(err, engine.ErrPieceNotFound):
		return "piece_not_found"
	case errors.Is(err, engine.ErrNotYourPiece):
		return "not_your_piece"
	case errors.Is(err, engine.ErrPieceCaptured):
		return "piece_captured"
	case errors.Is(err, engine.ErrAlreadyMoving):
		return "already_moving"
	case errors.Is(err, engine.ErrOnCooldown):
		return "on_cooldown"
	case errors.Is(err, rules.ErrPathBlocked), errors.Is(err, rules.ErrCastlePathBlocked):
		return "path_blocked"
	case errors.Is(err, rules.ErrDestOccupied):
		return "destination_occupied"
	default:
		return "illegal_move"
	}
}

// persistReplay hands the finished game's replay to the persistence port.
// Best-effort and idempotent: the store ignores a second save for the same
// game, and a failure here never disturbs in-memory state.
func (s *Session) persistReplay() {
	s.mu.Lock()
	if s.persisted || s.replays == nil {
		s.mu.Unlock()
		return
	}
	rec := replay.FromState(s.state, time.Now())
	s.persisted = true
	s.mu.Unlock()

	if err := s.replays.Save(s.GameID, rec); err != nil {
		log.Printf("failed to persist replay for game %s: %v", s.GameID, err)
	}
}

// State exposes the session's state for tests and for the manager's
// bookkeeping; callers must treat it as read-only between ticks.
func (s *Session) State() *engine.GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Step runs exactly one tick synchronously. Tests use it to drive a
// session without the wall-clock loop.
func (s *Session) Step() protocol.StateMessage {
	snapshot, replies, finished, winner, reason := s.step()
	for _, r := range replies {
		r.conn.WriteJSON(r.msg)
	}
	s.announce(snapshot)
	s.registry.Broadcast(s.GameID, snapshot)
	if finished {
		s.registry.Broadcast(s.GameID, protocol.GameOverMessage{Type: "game_over", Winner: winner, Reason: reason})
		s.persistReplay()
		if s.notify != nil {
			s.notify(s.GameID, winner, reason)
		}
	}
	return snapshot
}
