// Command kfserver runs the Kung Fu Chess server core: it wires the
// persistence store, the lobby and game registries, and the websocket
// attach points, then serves until interrupted. Anything beyond identity
// lookup and socket upgrade (real auth, rate limiting, static assets)
// is expected to sit in front of this process.
package main

import (
	"encoding/json"
	"flag"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"kungfuchess/internal/board"
	"kungfuchess/internal/kflog"
	"kungfuchess/internal/lobby"
	"kungfuchess/internal/ports"
	"kungfuchess/internal/session"
	"kungfuchess/internal/speed"
	"kungfuchess/internal/store"
	"kungfuchess/internal/transport"
)

var log = kflog.Tagged("[Server]")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Origin checks belong to the deployment's proxy layer.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type server struct {
	manager    *session.Manager
	coord      *lobby.Coordinator
	store      *store.Store
	tickRateHz int
}

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	dataDir := flag.String("data", "", "database directory (default: platform data dir)")
	tickRate := flag.Int("tick-rate", speed.DefaultTickRateHz, "simulation ticks per second")
	flag.Parse()

	st, err := store.Open(*dataDir)
	if err != nil {
		log.Fatalf("opening store: %v", err)
	}
	defer st.Close()

	gameTransports := transport.NewRegistry()
	lobbyTransports := transport.NewRegistry()
	lobbyReg := lobby.NewRegistry(time.Now().UnixNano())

	var coord *lobby.Coordinator
	manager := session.NewManager(gameTransports, st.Replays(), func(gameID string, winner *int, reason string) {
		coord.GameEnded(gameID, winner, reason)
	})
	coord = lobby.NewCoordinator(lobbyReg, lobbyTransports, st.Lobbies(), func(gameID string, players, keys map[int]string, settings lobby.Settings) {
		manager.Create(session.Config{
			GameID:     gameID,
			BoardType:  settings.BoardType,
			Speed:      settings.Speed,
			TickRateHz: *tickRate,
			Players:    players,
			Keys:       keys,
			AISeed:     time.Now().UnixNano(),
		})
	})

	srv := &server{manager: manager, coord: coord, store: st, tickRateHz: *tickRate}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/lobby/create", srv.createLobby)
	mux.HandleFunc("/api/lobby/join", srv.joinLobby)
	mux.HandleFunc("/api/lobby/list", srv.listLobbies)
	mux.HandleFunc("/api/game/create", srv.createGame)
	mux.HandleFunc("/ws/game/", srv.gameSocket)
	mux.HandleFunc("/ws/lobby/", srv.lobbySocket)
	mux.HandleFunc("/ws/replay/", srv.replaySocket)

	log.Printf("listening on %s (tick rate %d Hz)", *addr, *tickRate)
	if err := http.ListenAndServe(*addr, mux); err != nil {
		log.Fatalf("serve: %v", err)
	}
}

// queryIdentity implements ports.Identity for deployments where an
// authenticating proxy injects the user id as a query parameter. Bare
// visitors are minted a guest id.
type queryIdentity struct{}

var resolver ports.Identity = queryIdentity{}

func (queryIdentity) CurrentUser(r *http.Request) (string, string, bool) {
	id := r.URL.Query().Get("user")
	username := r.URL.Query().Get("username")
	if id == "" {
		id = "guest:" + uuid.NewString()
	}
	if username == "" {
		username = id
	}
	return id, username, true
}

func identity(r *http.Request) (id, username string) {
	id, username, _ = resolver.CurrentUser(r)
	return id, username
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *server) createLobby(w http.ResponseWriter, r *http.Request) {
	id, username := identity(r)

	var req struct {
		Speed       string `json:"speed"`
		BoardType   string `json:"board_type"`
		PlayerCount int    `json:"player_count"`
		IsPublic    bool   `json:"is_public"`
		IsRanked    bool   `json:"is_ranked"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	settings := lobby.Settings{
		Speed:       speed.Standard,
		BoardType:   board.Standard,
		PlayerCount: 2,
		IsPublic:    req.IsPublic,
		IsRanked:    req.IsRanked,
	}
	if speed.Valid(req.Speed) {
		settings.Speed = speed.Preset(req.Speed)
	}
	if req.BoardType == board.FourPlayer.String() {
		settings.BoardType = board.FourPlayer
	}
	if req.PlayerCount == 4 {
		settings.PlayerCount = 4
	}

	l, key, err := s.coord.Registry().Create(id, username, settings)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"code": l.Code, "key": key})
}

func (s *server) joinLobby(w http.ResponseWriter, r *http.Request) {
	id, username := identity(r)
	code := strings.ToUpper(r.URL.Query().Get("code"))

	_, key, slot, _, err := s.coord.Registry().Join(code, id, username, 0)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"code": code, "key": key, "slot": slot})
}

func (s *server) listLobbies(w http.ResponseWriter, r *http.Request) {
	var codes []string
	for _, l := range s.coord.Registry().ListPublicWaiting() {
		codes = append(codes, l.Code)
	}
	writeJSON(w, http.StatusOK, map[string]any{"lobbies": codes})
}

// createGame starts a standalone game against a bot, outside any lobby.
func (s *server) createGame(w http.ResponseWriter, r *http.Request) {
	id, _ := identity(r)
	opponent := r.URL.Query().Get("opponent")
	if !strings.HasPrefix(opponent, "bot:") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "opponent must be a bot spec"})
		return
	}
	preset := speed.Standard
	if v := r.URL.Query().Get("speed"); speed.Valid(v) {
		preset = speed.Preset(v)
	}

	sess, key := s.manager.CreateStandalone(id, opponent, board.Standard, preset, s.tickRateHz)
	writeJSON(w, http.StatusOK, map[string]string{"game_id": sess.GameID, "key": key})
}

// gameSocket attaches a websocket to a live game and pumps its frames into
// the session until the peer goes away.
func (s *server) gameSocket(w http.ResponseWriter, r *http.Request) {
	gameID := strings.TrimPrefix(r.URL.Path, "/ws/game/")
	sess, err := s.manager.Get(gameID)
	if err != nil {
		http.Error(w, "game not found", http.StatusNotFound)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	conn := transport.NewWSConn(ws)

	key := r.URL.Query().Get("key")
	slot, _ := sess.SlotForKey(key)
	sess.Attach(conn, slot)

	for {
		raw, err := conn.ReadMessage()
		if err != nil {
			sess.Detach(conn)
			conn.Close()
			return
		}
		sess.HandleFrame(conn, slot, raw)
	}
}

// lobbySocket attaches a websocket to a lobby.
func (s *server) lobbySocket(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(strings.TrimPrefix(r.URL.Path, "/ws/lobby/"))
	key := r.URL.Query().Get("key")

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	conn := transport.NewWSConn(ws)

	if err := s.coord.Attach(code, key, conn); err != nil {
		conn.WriteJSON(map[string]string{"type": "error", "code": "lobby_not_found", "message": err.Error()})
		conn.Close()
		return
	}

	for {
		raw, err := conn.ReadMessage()
		if err != nil {
			s.coord.Detach(code, key, conn)
			conn.Close()
			return
		}
		s.coord.HandleFrame(code, key, conn, raw)
	}
}

// replaySocket attaches a websocket to a stored replay's playback session.
func (s *server) replaySocket(w http.ResponseWriter, r *http.Request) {
	gameID := strings.TrimPrefix(r.URL.Path, "/ws/replay/")
	rec, err := s.store.Replays().Get(gameID)
	if err != nil || rec == nil {
		http.Error(w, "replay not found", http.StatusNotFound)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	conn := transport.NewWSConn(ws)

	rs := session.NewReplaySession(rec, transport.NewRegistry())
	rs.Attach(conn)

	for {
		raw, err := conn.ReadMessage()
		if err != nil {
			rs.Detach(conn)
			conn.Close()
			return
		}
		rs.HandleFrame(conn, raw)
	}
}
