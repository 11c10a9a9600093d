package lobby

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry is the process-wide, lock-guarded index of live lobbies: one
// instance constructed at startup and threaded as an explicit dependency,
// not an ambient singleton.
type Registry struct {
	mu           sync.Mutex
	byCode       map[string]*Lobby
	identityLock map[string]string // identity -> code
	gameToLobby  map[string]string // game_id -> code
	rng          *rand.Rand
}

// NewRegistry constructs an empty registry. seed controls lobby code
// generation only (not gameplay randomness).
func NewRegistry(seed int64) *Registry {
	return &Registry{
		byCode:       map[string]*Lobby{},
		identityLock: map[string]string{},
		gameToLobby:  map[string]string{},
		rng:          rand.New(rand.NewSource(seed)),
	}
}

// evictIdentity removes identity from whatever lobby it currently
// occupies; join/create elsewhere implicitly leaves the previous lobby.
// Must be called with reg.mu held.
func (reg *Registry) evictIdentity(identity string) {
	code, ok := reg.identityLock[identity]
	if !ok {
		return
	}
	l, ok := reg.byCode[code]
	if !ok {
		delete(reg.identityLock, identity)
		return
	}
	for slot, p := range l.Players {
		if p.Identity == identity {
			l.removeSlot(slot, "left")
			break
		}
	}
	delete(reg.identityLock, identity)
	if !l.hasHumans() && l.Status != InGame {
		delete(reg.byCode, code)
	}
}

func (reg *Registry) freshCode() string {
	for {
		code := randomCode(reg.rng)
		if _, taken := reg.byCode[code]; !taken {
			return code
		}
	}
}

// Create starts a new lobby with hostIdentity in slot 1.
func (reg *Registry) Create(hostIdentity, hostUsername string, settings Settings) (*Lobby, string, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	reg.evictIdentity(hostIdentity)

	if hostUsername == "" {
		hostUsername = defaultUsername(hostIdentity)
	}
	code := reg.freshCode()
	key := uuid.NewString()
	l := &Lobby{
		Code:     code,
		ID:       uuid.NewString(),
		HostSlot: 1,
		Settings: settings,
		Players: map[int]*Player{
			1: {Slot: 1, Identity: hostIdentity, Username: hostUsername, IsConnected: true},
		},
		Status:    Waiting,
		CreatedAt: time.Now(),
		keys:      map[int]string{1: key},
	}
	reg.byCode[code] = l
	reg.identityLock[hostIdentity] = code
	return l, key, nil
}

// Get returns the lobby for code, running the lazy grace sweep first.
func (reg *Registry) Get(code string) (*Lobby, []Event, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	l, ok := reg.byCode[code]
	if !ok {
		return nil, nil, ErrLobbyNotFound
	}
	events := l.sweep(time.Now())
	reg.reapIfEmpty(l)
	if _, alive := reg.byCode[code]; !alive {
		return nil, events, ErrLobbyNotFound
	}
	return l, events, nil
}

func (reg *Registry) reapIfEmpty(l *Lobby) {
	if !l.hasHumans() && l.Status != InGame {
		delete(reg.byCode, l.Code)
		for identity, code := range reg.identityLock {
			if code == l.Code {
				delete(reg.identityLock, identity)
			}
		}
	}
}

// Join claims a slot in code for identity.
func (reg *Registry) Join(code, identity, username string, preferredSlot int) (*Lobby, string, int, []Event, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	l, ok := reg.byCode[code]
	if !ok {
		return nil, "", 0, nil, ErrLobbyNotFound
	}
	sweepEvents := l.sweep(time.Now())

	reg.evictIdentity(identity)
	if username == "" {
		username = defaultUsername(identity)
	}
	slot, key, err := l.join(identity, username, preferredSlot, false, "")
	if err != nil {
		return nil, "", 0, sweepEvents, err
	}
	reg.identityLock[identity] = code
	events := append(sweepEvents, Event{Type: EventPlayerJoined, Slot: slot})
	return l, key, slot, events, nil
}

// Leave removes the holder of key from code.
func (reg *Registry) Leave(code, key string) ([]Event, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	l, ok := reg.byCode[code]
	if !ok {
		return nil, ErrLobbyNotFound
	}
	var identity string
	if slot, ok := l.findSlotByKey(key); ok {
		identity = l.Players[slot].Identity
	}
	events, empty, err := l.leave(key)
	if err != nil {
		return nil, err
	}
	if identity != "" {
		delete(reg.identityLock, identity)
	}
	if empty {
		delete(reg.byCode, code)
	}
	return events, nil
}

// SetReady, UpdateSettings, Kick, Disconnect, Reconnect, AddAI, and RemoveAI
// forward to the target lobby after a lazy sweep; each returns the sweep's
// events prepended to its own. StartGame runs the sweep but returns no
// events; EndGame and ReturnToLobby do not sweep.

func (reg *Registry) withLobby(code string, fn func(*Lobby) ([]Event, error)) ([]Event, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	l, ok := reg.byCode[code]
	if !ok {
		return nil, ErrLobbyNotFound
	}
	sweepEvents := l.sweep(time.Now())
	events, err := fn(l)
	if err != nil {
		reg.reapIfEmpty(l)
		return sweepEvents, err
	}
	reg.reapIfEmpty(l)
	return append(sweepEvents, events...), nil
}

func (reg *Registry) SetReady(code, key string, ready bool) ([]Event, error) {
	return reg.withLobby(code, func(l *Lobby) ([]Event, error) { return l.setReady(key, ready) })
}

func (reg *Registry) UpdateSettings(code, hostKey string, settings Settings) ([]Event, error) {
	return reg.withLobby(code, func(l *Lobby) ([]Event, error) { return l.updateSettings(hostKey, settings) })
}

func (reg *Registry) Kick(code, hostKey string, slot int) ([]Event, error) {
	return reg.withLobby(code, func(l *Lobby) ([]Event, error) { return l.kick(hostKey, slot) })
}

func (reg *Registry) Disconnect(code, key string) ([]Event, error) {
	return reg.withLobby(code, func(l *Lobby) ([]Event, error) { return l.disconnect(key) })
}

func (reg *Registry) Reconnect(code, key string) ([]Event, error) {
	return reg.withLobby(code, func(l *Lobby) ([]Event, error) { return l.reconnect(key) })
}

func (reg *Registry) EndGame(gameID string, winner *int, reason string) ([]Event, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	code, ok := reg.gameToLobby[gameID]
	if !ok {
		return nil, ErrLobbyNotFound
	}
	l, ok := reg.byCode[code]
	if !ok {
		return nil, ErrLobbyNotFound
	}
	events := l.endGame(winner, reason)
	delete(reg.gameToLobby, gameID)
	return events, nil
}

func (reg *Registry) ReturnToLobby(code string) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	l, ok := reg.byCode[code]
	if !ok {
		return ErrLobbyNotFound
	}
	return l.returnToLobby()
}

// AddAI fills the lowest free slot in code with a bot.
func (reg *Registry) AddAI(code, hostKey, aiType string) (int, []Event, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	l, ok := reg.byCode[code]
	if !ok {
		return 0, nil, ErrLobbyNotFound
	}
	sweepEvents := l.sweep(time.Now())
	slot, events, err := l.addAI(hostKey, aiType)
	if err != nil {
		return 0, sweepEvents, err
	}
	return slot, append(sweepEvents, events...), nil
}

func (reg *Registry) RemoveAI(code, hostKey string, slot int) ([]Event, error) {
	return reg.withLobby(code, func(l *Lobby) ([]Event, error) { return l.removeAI(hostKey, slot) })
}

// StartGame transitions code to InGame and records the game_id -> code
// linkage the session runtime uses to signal this lobby on termination.
func (reg *Registry) StartGame(code, hostKey string) (gameID string, gameKeys map[int]string, err error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	l, ok := reg.byCode[code]
	if !ok {
		return "", nil, ErrLobbyNotFound
	}
	l.sweep(time.Now())
	gameID, gameKeys, err = l.startGame(hostKey)
	if err != nil {
		return "", nil, err
	}
	reg.gameToLobby[gameID] = code
	return gameID, gameKeys, nil
}

// LobbyForGame returns the lobby code linked to gameID, if any.
func (reg *Registry) LobbyForGame(gameID string) (string, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	code, ok := reg.gameToLobby[gameID]
	return code, ok
}

// ListPublicWaiting returns every public, Waiting lobby.
func (reg *Registry) ListPublicWaiting() []*Lobby {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	var out []*Lobby
	for _, l := range reg.byCode {
		if l.Status == Waiting && l.Settings.IsPublic {
			out = append(out, l)
		}
	}
	return out
}
