package store

import (
	"encoding/json"
	"time"

	"github.com/dgraph-io/badger/v4"

	"kungfuchess/internal/kflog"
	"kungfuchess/internal/lobby"
	"kungfuchess/internal/ports"
	"kungfuchess/internal/replay"
)

var log = kflog.Tagged("[Store]")

var (
	_ ports.ReplayStore = (*Replays)(nil)
	_ ports.LobbyStore  = (*Lobbies)(nil)
	_ lobby.StoreSink   = (*Lobbies)(nil)
)

// Key prefixes
const (
	prefixReplay = "replay:"
	prefixLobby  = "lobby:"
)

// Store wraps BadgerDB. The Replays and Lobbies views implement
// ports.ReplayStore and ports.LobbyStore over the same database.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the database in dir. An empty dir uses the
// default database directory.
func Open(dir string) (*Store, error) {
	if dir == "" {
		var err error
		dir, err = DatabaseDir()
		if err != nil {
			return nil, err
		}
	}

	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Disable logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Replays returns the replay-store view.
func (s *Store) Replays() *Replays { return &Replays{db: s.db} }

// Lobbies returns the lobby-store view.
func (s *Store) Lobbies() *Lobbies { return &Lobbies{db: s.db} }

// Replays implements ports.ReplayStore.
type Replays struct {
	db *badger.DB
}

// Save persists a replay, idempotent on gameID: if a record already exists
// for the game the write is a no-op and the stored record stands.
func (r *Replays) Save(gameID string, rec *replay.Replay) error {
	data, err := replay.Marshal(rec)
	if err != nil {
		return err
	}

	key := []byte(prefixReplay + gameID)
	return r.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return nil // Already saved; first write wins.
		}
		if err != badger.ErrKeyNotFound {
			return err
		}
		return txn.Set(key, data)
	})
}

// Get loads a replay, or returns (nil, nil) when none is stored for gameID.
func (r *Replays) Get(gameID string) (*replay.Replay, error) {
	var out *replay.Replay

	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefixReplay + gameID))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			decoded, err := replay.Unmarshal(gameID, val, time.Time{})
			if err != nil {
				return err
			}
			out = decoded
			return nil
		})
	})

	return out, err
}

// Lobbies implements ports.LobbyStore.
type Lobbies struct {
	db *badger.DB
}

// lobbyRecord is the persisted mirror of a lobby. Membership keys are
// deliberately not stored; the in-memory registry is authoritative for
// them.
type lobbyRecord struct {
	Code        string                `json:"code"`
	ID          string                `json:"id"`
	HostSlot    int                   `json:"host_slot"`
	Settings    lobby.Settings        `json:"settings"`
	Players     map[int]*lobby.Player `json:"players"`
	Status      lobby.Status          `json:"status"`
	GamesPlayed int                   `json:"games_played"`
	CreatedAt   time.Time             `json:"created_at"`
}

// Save upserts a lobby record by code.
func (s *Lobbies) Save(l *lobby.Lobby) error {
	rec := lobbyRecord{
		Code:        l.Code,
		ID:          l.ID,
		HostSlot:    l.HostSlot,
		Settings:    l.Settings,
		Players:     l.Players,
		Status:      l.Status,
		GamesPlayed: l.GamesPlayed,
		CreatedAt:   l.CreatedAt,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(prefixLobby+l.Code), data)
	})
}

// Delete removes a lobby record.
func (s *Lobbies) Delete(code string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(prefixLobby + code))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		return err
	})
}

// Get loads a lobby record, or (nil, nil) when none is stored.
func (s *Lobbies) Get(code string) (*lobby.Lobby, error) {
	var l *lobby.Lobby

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefixLobby + code))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			decoded, err := decodeLobby(val)
			if err != nil {
				return err
			}
			l = decoded
			return nil
		})
	})

	return l, err
}

// ListPublicWaiting returns every stored lobby that is public and still
// waiting for players.
func (s *Lobbies) ListPublicWaiting() ([]*lobby.Lobby, error) {
	var out []*lobby.Lobby

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(prefixLobby)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				l, err := decodeLobby(val)
				if err != nil {
					log.Printf("skipping undecodable lobby record: %v", err)
					return nil
				}
				if l.Status == lobby.Waiting && l.Settings.IsPublic {
					out = append(out, l)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	return out, err
}

func decodeLobby(val []byte) (*lobby.Lobby, error) {
	var rec lobbyRecord
	if err := json.Unmarshal(val, &rec); err != nil {
		return nil, err
	}
	return &lobby.Lobby{
		Code:        rec.Code,
		ID:          rec.ID,
		HostSlot:    rec.HostSlot,
		Settings:    rec.Settings,
		Players:     rec.Players,
		Status:      rec.Status,
		GamesPlayed: rec.GamesPlayed,
		CreatedAt:   rec.CreatedAt,
	}, nil
}
