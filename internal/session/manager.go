package session

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"kungfuchess/internal/board"
	"kungfuchess/internal/ports"
	"kungfuchess/internal/speed"
	"kungfuchess/internal/transport"
)

// ErrGameNotFound is returned for an unknown game id.
var ErrGameNotFound = errors.New("game not found")

// Manager is the process-wide game registry: game id -> live session,
// constructed once at startup and handed to
// request handlers as an explicit dependency.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	registry *transport.Registry
	replays  ports.ReplayStore
	notify   LobbyNotifier
}

// NewManager constructs an empty manager. notify may be nil for standalone
// games with no lobby behind them.
func NewManager(registry *transport.Registry, replays ports.ReplayStore, notify LobbyNotifier) *Manager {
	return &Manager{
		sessions: map[string]*Session{},
		registry: registry,
		replays:  replays,
		notify:   notify,
	}
}

// Create builds and registers a session for cfg. A zero cfg.GameID gets a
// fresh id; the returned session is at Waiting until every slot readies.
func (m *Manager) Create(cfg Config) *Session {
	if cfg.GameID == "" {
		cfg.GameID = uuid.NewString()
	}
	s := New(cfg, m.registry, m.replays, m.notify)

	m.mu.Lock()
	m.sessions[cfg.GameID] = s
	m.mu.Unlock()
	return s
}

// CreateStandalone builds a 2-player game outside any lobby: one human in
// slot 1 and, when opponent is a "bot:<name>" spec, a bot in slot 2. It
// returns the session plus the human's freshly minted player key.
func (m *Manager) CreateStandalone(identity, opponent string, boardType board.Type, preset speed.Preset, tickRateHz int) (*Session, string) {
	key := uuid.NewString()
	cfg := Config{
		BoardType:  boardType,
		Speed:      preset,
		TickRateHz: tickRateHz,
		Players:    map[int]string{1: identity, 2: opponent},
		Keys:       map[int]string{1: key},
		AISeed:     int64(uuid.New().ID()),
	}
	return m.Create(cfg), key
}

// Get returns the session for gameID.
func (m *Manager) Get(gameID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[gameID]
	if !ok {
		return nil, ErrGameNotFound
	}
	return s, nil
}

// Remove forgets a session and closes any remaining connections to it.
func (m *Manager) Remove(gameID string) {
	m.mu.Lock()
	delete(m.sessions, gameID)
	m.mu.Unlock()
	m.registry.CloseScope(gameID)
}
