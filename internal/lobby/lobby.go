// Package lobby implements the pre-game state machine: player
// slots, ready tracking, host authority, settings, and reconnection grace.
package lobby

import (
	"errors"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"kungfuchess/internal/board"
	"kungfuchess/internal/speed"
)

// GraceWindow is how long a disconnected Waiting-status participant may be
// absent before the lazy sweep removes them.
const GraceWindow = 30 * time.Second

// codeAlphabet excludes O/0, I/1, L to keep codes unambiguous when read
// aloud or handwritten.
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// Status is a lobby's lifecycle stage.
type Status uint8

const (
	Waiting Status = iota
	InGame
	Finished
)

var (
	ErrLobbyNotFound   = errors.New("lobby not found")
	ErrLobbyFull       = errors.New("lobby is full")
	ErrLobbyNotWaiting = errors.New("lobby is not waiting")
	ErrNotHost         = errors.New("operation requires the host")
	ErrInvalidKey      = errors.New("invalid or expired player key")
	ErrSlotNotAI       = errors.New("target slot is not AI")
	ErrTargetNotHuman  = errors.New("target slot is not an occupied human player")
	ErrSlotIsHost      = errors.New("cannot kick the host")
	ErrSlotOccupied    = errors.New("slot is already occupied")
	ErrNotAllReady     = errors.New("not all human players are ready")
	ErrRankedNoAI      = errors.New("ranked lobbies cannot include AI players")
	ErrShrinkBelowOccupancy = errors.New("player_count cannot be set below current occupancy")
)

// Settings are the configuration options recognized at lobby creation and
// update time.
type Settings struct {
	Speed       speed.Preset
	BoardType   board.Type
	PlayerCount int
	IsPublic    bool
	IsRanked    bool
}

// Player is one occupant of a lobby slot.
type Player struct {
	Slot           int
	Identity       string // user id, guest id, or "bot:<name>"
	Username       string
	IsReady        bool
	IsAI           bool
	AIType         string
	IsConnected    bool
	DisconnectedAt time.Time
}

// Lobby is a single pre-game room. Mutation happens only through the
// operations in this file, each of which is expected to be called under the
// owning Registry's lock.
type Lobby struct {
	Code     string
	ID       string
	HostSlot int
	Settings Settings
	Players  map[int]*Player

	Status         Status
	CurrentGameID  string
	GamesPlayed    int
	CreatedAt      time.Time
	GameFinishedAt time.Time

	keys map[int]string // slot -> lobby membership key
}

// EventType names a fact a lobby operation produced, for the caller to
// translate into the corresponding broadcast messages.
type EventType string

const (
	EventPlayerJoined       EventType = "player_joined"
	EventPlayerLeft         EventType = "player_left"
	EventPlayerReady        EventType = "player_ready"
	EventSettingsUpdated    EventType = "settings_updated"
	EventPlayerDisconnected EventType = "player_disconnected"
	EventPlayerReconnected  EventType = "player_reconnected"
	EventHostChanged        EventType = "host_changed"
	EventGameStarting       EventType = "game_starting"
	EventGameEnded          EventType = "game_ended"
)

// Event is one occurrence produced by a lobby operation.
type Event struct {
	Type   EventType
	Slot   int
	Reason string
	Winner *int
}

func now() time.Time { return time.Now() }

// Returned *Lobby/*Player values are shared, not copies; callers are
// expected to treat them as read-mostly outside the registry's lock.

func (l *Lobby) findSlotByKey(key string) (int, bool) {
	for slot, k := range l.keys {
		if k == key {
			return slot, true
		}
	}
	return 0, false
}

func (l *Lobby) occupiedSlots() int { return len(l.Players) }

func (l *Lobby) freeSlot(preferred int) (int, bool) {
	if preferred > 0 && preferred <= l.Settings.PlayerCount {
		if _, taken := l.Players[preferred]; !taken {
			return preferred, true
		}
	}
	for slot := 1; slot <= l.Settings.PlayerCount; slot++ {
		if _, taken := l.Players[slot]; !taken {
			return slot, true
		}
	}
	return 0, false
}

func (l *Lobby) lowestFreeSlot() (int, bool) { return l.freeSlot(0) }

func (l *Lobby) humansReady() bool {
	for _, p := range l.Players {
		if !p.IsAI && !p.IsReady {
			return false
		}
	}
	return true
}

// sweep performs the lazy reconnection-grace cleanup: any disconnected
// human whose grace window has elapsed is removed. Only meaningful while
// Status == Waiting; while InGame, disconnect is not a lobby departure.
func (l *Lobby) sweep(at time.Time) []Event {
	if l.Status != Waiting {
		return nil
	}
	var events []Event
	for slot, p := range l.Players {
		if p.IsConnected || p.DisconnectedAt.IsZero() {
			continue
		}
		if at.Sub(p.DisconnectedAt) < GraceWindow {
			continue
		}
		events = append(events, l.removeSlot(slot, "disconnected")...)
	}
	return events
}

// removeSlot deletes a player and, if they were host, transfers host to the
// lowest-slot remaining human.
func (l *Lobby) removeSlot(slot int, reason string) []Event {
	if _, ok := l.Players[slot]; !ok {
		return nil
	}
	delete(l.Players, slot)
	delete(l.keys, slot)
	events := []Event{{Type: EventPlayerLeft, Slot: slot, Reason: reason}}

	if slot == l.HostSlot {
		if newHost, ok := l.lowestHumanSlot(); ok {
			l.HostSlot = newHost
			events = append(events, Event{Type: EventHostChanged, Slot: newHost})
		}
	}
	return events
}

func (l *Lobby) lowestHumanSlot() (int, bool) {
	best := 0
	for slot, p := range l.Players {
		if p.IsAI {
			continue
		}
		if best == 0 || slot < best {
			best = slot
		}
	}
	return best, best != 0
}

func (l *Lobby) hasHumans() bool {
	for _, p := range l.Players {
		if !p.IsAI {
			return true
		}
	}
	return false
}

// Join claims a free slot for identity, minting a fresh membership key.
func (l *Lobby) join(identity, username string, preferredSlot int, isAI bool, aiType string) (int, string, error) {
	if l.Status != Waiting {
		return 0, "", ErrLobbyNotWaiting
	}
	slot, ok := l.freeSlot(preferredSlot)
	if !ok {
		return 0, "", ErrLobbyFull
	}
	key := uuid.NewString()
	l.Players[slot] = &Player{Slot: slot, Identity: identity, Username: username, IsConnected: true, IsAI: isAI, AIType: aiType, IsReady: isAI}
	l.keys[slot] = key
	return slot, key, nil
}

// Leave removes the holder of key. Deleting the lobby itself (when no
// humans remain and it is not InGame) is signaled via the bool return so
// the registry can drop it from its index.
func (l *Lobby) leave(key string) ([]Event, bool, error) {
	slot, ok := l.findSlotByKey(key)
	if !ok {
		return nil, false, ErrInvalidKey
	}
	events := l.removeSlot(slot, "left")
	empty := !l.hasHumans() && l.Status != InGame
	return events, empty, nil
}

// SetReady updates a participant's ready flag.
func (l *Lobby) setReady(key string, ready bool) ([]Event, error) {
	if l.Status != Waiting {
		return nil, ErrLobbyNotWaiting
	}
	slot, ok := l.findSlotByKey(key)
	if !ok {
		return nil, ErrInvalidKey
	}
	l.Players[slot].IsReady = ready
	return []Event{{Type: EventPlayerReady, Slot: slot}}, nil
}

func (l *Lobby) isHostKey(key string) bool {
	slot, ok := l.findSlotByKey(key)
	return ok && slot == l.HostSlot
}

// UpdateSettings replaces the lobby's settings, subject to the host-only,
// Waiting-only, no-shrink-below-occupancy, and ranked-implies-no-AI
// preconditions. Unreadies every human on any real change.
func (l *Lobby) updateSettings(hostKey string, settings Settings) ([]Event, error) {
	if !l.isHostKey(hostKey) {
		return nil, ErrNotHost
	}
	if l.Status != Waiting {
		return nil, ErrLobbyNotWaiting
	}
	if settings.PlayerCount < l.occupiedSlots() {
		return nil, ErrShrinkBelowOccupancy
	}
	if settings.IsRanked {
		for _, p := range l.Players {
			if p.IsAI {
				return nil, ErrRankedNoAI
			}
		}
	}
	changed := settings != l.Settings
	l.Settings = settings
	if changed {
		for _, p := range l.Players {
			if !p.IsAI {
				p.IsReady = false
			}
		}
	}
	return []Event{{Type: EventSettingsUpdated}}, nil
}

// Kick removes a human participant other than the host.
func (l *Lobby) kick(hostKey string, slot int) ([]Event, error) {
	if !l.isHostKey(hostKey) {
		return nil, ErrNotHost
	}
	if l.Status != Waiting {
		return nil, ErrLobbyNotWaiting
	}
	if slot == l.HostSlot {
		return nil, ErrSlotIsHost
	}
	p, ok := l.Players[slot]
	if !ok || p.IsAI {
		return nil, ErrTargetNotHuman
	}
	return l.removeSlot(slot, "kicked"), nil
}

// AddAI fills the lowest free slot with an always-ready bot.
func (l *Lobby) addAI(hostKey, aiType string) (int, []Event, error) {
	if !l.isHostKey(hostKey) {
		return 0, nil, ErrNotHost
	}
	if l.Status != Waiting {
		return 0, nil, ErrLobbyNotWaiting
	}
	if l.Settings.IsRanked {
		return 0, nil, ErrRankedNoAI
	}
	slot, ok := l.lowestFreeSlot()
	if !ok {
		return 0, nil, ErrLobbyFull
	}
	l.Players[slot] = &Player{Slot: slot, Identity: "bot:" + aiType, Username: aiType, IsAI: true, AIType: aiType, IsReady: true, IsConnected: true}
	return slot, []Event{{Type: EventPlayerJoined, Slot: slot}}, nil
}

// RemoveAI removes a bot from slot.
func (l *Lobby) removeAI(hostKey string, slot int) ([]Event, error) {
	if !l.isHostKey(hostKey) {
		return nil, ErrNotHost
	}
	if l.Status != Waiting {
		return nil, ErrLobbyNotWaiting
	}
	p, ok := l.Players[slot]
	if !ok || !p.IsAI {
		return nil, ErrSlotNotAI
	}
	return l.removeSlot(slot, "ai_removed"), nil
}

// startGame transitions the lobby to InGame and mints a fresh per-slot key
// set for the game about to begin, distinct from the lobby's own
// membership keys. Asking to start is as ready as it gets: the host is
// auto-readied here, under the same serialization as the readiness and
// occupancy checks it feeds.
func (l *Lobby) startGame(hostKey string) (gameID string, gameKeys map[int]string, err error) {
	if !l.isHostKey(hostKey) {
		return "", nil, ErrNotHost
	}
	if l.Status != Waiting {
		return "", nil, ErrLobbyNotWaiting
	}
	if host, ok := l.Players[l.HostSlot]; ok && !host.IsAI {
		host.IsReady = true
	}
	if l.occupiedSlots() != l.Settings.PlayerCount {
		return "", nil, ErrLobbyFull
	}
	if !l.humansReady() {
		return "", nil, ErrNotAllReady
	}

	l.Status = InGame
	l.GamesPlayed++
	l.CurrentGameID = uuid.NewString()

	gameKeys = make(map[int]string, len(l.Players))
	for slot := range l.Players {
		gameKeys[slot] = uuid.NewString()
	}
	return l.CurrentGameID, gameKeys, nil
}

// endGame marks the lobby Finished once its live game has concluded.
func (l *Lobby) endGame(winner *int, reason string) []Event {
	l.Status = Finished
	l.CurrentGameID = ""
	l.GameFinishedAt = now()
	for _, p := range l.Players {
		if !p.IsAI {
			p.IsReady = false
		}
	}
	return []Event{{Type: EventGameEnded, Winner: winner, Reason: reason}}
}

// returnToLobby resets a non-InGame lobby back to Waiting for a rematch.
func (l *Lobby) returnToLobby() error {
	if l.Status == InGame {
		return ErrLobbyNotWaiting
	}
	l.Status = Waiting
	return nil
}

// disconnect marks a connected participant disconnected, starting their
// grace-window clock. This has no lobby effect while InGame.
func (l *Lobby) disconnect(key string) ([]Event, error) {
	slot, ok := l.findSlotByKey(key)
	if !ok {
		return nil, ErrInvalidKey
	}
	if l.Status != Waiting {
		return nil, nil
	}
	p := l.Players[slot]
	p.IsConnected = false
	p.DisconnectedAt = now()
	return []Event{{Type: EventPlayerDisconnected, Slot: slot}}, nil
}

// reconnect re-associates key with its slot within the grace window.
func (l *Lobby) reconnect(key string) ([]Event, error) {
	slot, ok := l.findSlotByKey(key)
	if !ok {
		return nil, ErrInvalidKey
	}
	p := l.Players[slot]
	p.IsConnected = true
	p.DisconnectedAt = time.Time{}
	return []Event{{Type: EventPlayerReconnected, Slot: slot}}, nil
}

func randomCode(r *rand.Rand) string {
	b := make([]byte, 6)
	for i := range b {
		b[i] = codeAlphabet[r.Intn(len(codeAlphabet))]
	}
	return string(b)
}

func defaultUsername(identity string) string {
	if strings.HasPrefix(identity, "bot:") {
		return strings.TrimPrefix(identity, "bot:")
	}
	return identity
}
