package session

import (
	"encoding/json"
	"sync"
	"time"

	"kungfuchess/internal/protocol"
	"kungfuchess/internal/replay"
	"kungfuchess/internal/transport"
)

// ReplaySession drives playback of one stored replay for any number of
// viewers. It follows the same actor shape as a live session (a loop that
// wakes once per tick period) but its state transitions come from the
// playback engine rather than from client moves.
type ReplaySession struct {
	GameID string

	mu      sync.Mutex
	eng     *replay.Engine
	playing bool

	registry *transport.Registry

	loopMu      sync.Mutex
	loopRunning bool
}

// NewReplaySession constructs a paused playback session over r.
func NewReplaySession(r *replay.Replay, registry *transport.Registry) *ReplaySession {
	return &ReplaySession{
		GameID:   r.GameID,
		eng:      replay.NewEngine(r),
		registry: registry,
	}
}

// scope keeps replay viewers in their own fan-out set, distinct from any
// live game sharing the id.
func (rs *ReplaySession) scope() string { return "replay:" + rs.GameID }

// Attach registers a viewer and sends it the replay header plus the state
// at the current cursor.
func (rs *ReplaySession) Attach(conn transport.Conn) {
	rs.registry.Attach(rs.scope(), conn, transport.SpectatorSlot)

	rs.mu.Lock()
	r := rs.eng.Replay()
	info := protocol.ReplayInfoMessage{
		Type:       "replay_info",
		GameID:     r.GameID,
		Speed:      string(r.Speed.Preset),
		BoardType:  r.BoardType.String(),
		Players:    r.Players,
		TotalTicks: r.TotalTicks,
		Winner:     r.Winner,
		WinReason:  string(r.WinReason),
		TickRateHz: r.TickRateHz,
	}
	state := rs.eng.GetStateAtTick(rs.eng.CurrentTick())
	snapshot := Snapshot(state, nil)
	status := rs.statusLocked()
	rs.mu.Unlock()

	if conn.WriteJSON(info) != nil || conn.WriteJSON(snapshot) != nil || conn.WriteJSON(status) != nil {
		rs.registry.Detach(rs.scope(), conn)
		return
	}
	rs.maybeStartLoop()
}

// Detach forgets a viewer.
func (rs *ReplaySession) Detach(conn transport.Conn) {
	rs.registry.Detach(rs.scope(), conn)
}

// HandleFrame processes a playback control frame: play, pause, seek, ping.
func (rs *ReplaySession) HandleFrame(conn transport.Conn, raw []byte) {
	msgType, err := protocol.SniffType(raw)
	if err != nil {
		conn.WriteJSON(protocol.ErrorMessage{Type: "error", Code: "bad_frame", Message: err.Error()})
		return
	}

	switch msgType {
	case "ping":
		conn.WriteJSON(protocol.PongMessage{Type: "pong"})
	case "play":
		rs.mu.Lock()
		rs.playing = true
		status := rs.statusLocked()
		rs.mu.Unlock()
		rs.registry.Broadcast(rs.scope(), status)
		rs.maybeStartLoop()
	case "pause":
		rs.mu.Lock()
		rs.playing = false
		status := rs.statusLocked()
		rs.mu.Unlock()
		rs.registry.Broadcast(rs.scope(), status)
	case "seek":
		var req protocol.SeekRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			conn.WriteJSON(protocol.ErrorMessage{Type: "error", Code: "bad_frame", Message: "malformed seek"})
			return
		}
		rs.seek(req.Tick)
	default:
		conn.WriteJSON(protocol.ErrorMessage{Type: "error", Code: "unknown_type", Message: "unknown message type: " + msgType})
	}
}

func (rs *ReplaySession) seek(tick int) {
	rs.mu.Lock()
	if tick < 0 {
		tick = 0
	}
	if max := rs.eng.Replay().TotalTicks; tick > max {
		tick = max
	}
	state := rs.eng.GetStateAtTick(tick)
	snapshot := Snapshot(state, nil)
	status := rs.statusLocked()
	rs.mu.Unlock()

	rs.registry.Broadcast(rs.scope(), snapshot)
	rs.registry.Broadcast(rs.scope(), status)
}

func (rs *ReplaySession) statusLocked() protocol.PlaybackStatusMessage {
	return protocol.PlaybackStatusMessage{
		Type:        "playback_status",
		IsPlaying:   rs.playing,
		CurrentTick: rs.eng.CurrentTick(),
		TotalTicks:  rs.eng.Replay().TotalTicks,
	}
}

func (rs *ReplaySession) maybeStartLoop() {
	rs.loopMu.Lock()
	if rs.loopRunning {
		rs.loopMu.Unlock()
		return
	}
	rs.loopRunning = true
	rs.loopMu.Unlock()
	go rs.run()
}

func (rs *ReplaySession) stopLoop() {
	rs.loopMu.Lock()
	rs.loopRunning = false
	rs.loopMu.Unlock()
}

// run advances playback one tick per period while playing. It exits when no
// viewer remains; play or a newly attached viewer relights it.
func (rs *ReplaySession) run() {
	period := time.Second / time.Duration(rs.eng.Replay().TickRateHz)
	for {
		time.Sleep(period)
		tickStart := time.Now()

		if !rs.registry.HasConnections(rs.scope()) {
			rs.stopLoop()
			return
		}

		rs.mu.Lock()
		if !rs.playing {
			rs.mu.Unlock()
			continue
		}
		r := rs.eng.Replay()
		if rs.eng.CurrentTick() >= r.TotalTicks {
			rs.playing = false
			status := rs.statusLocked()
			rs.mu.Unlock()
			rs.registry.Broadcast(rs.scope(), status)
			rs.registry.Broadcast(rs.scope(), protocol.GameOverMessage{Type: "game_over", Winner: r.Winner, Reason: string(r.WinReason)})
			continue
		}
		state, events := rs.eng.Advance()
		snapshot := Snapshot(state, events)
		sinceTick := time.Since(tickStart).Milliseconds()
		snapshot.TimeSinceTick = &sinceTick
		rs.mu.Unlock()

		rs.registry.Broadcast(rs.scope(), snapshot)
	}
}
