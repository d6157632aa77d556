package ws

import (
	"encoding/json"
	"sync"
	"time"

	"partyhub/internal/config"
	"partyhub/internal/domain"
	"partyhub/internal/game"
	"partyhub/internal/http/middleware"
	"partyhub/internal/lobby"
	"partyhub/internal/logger"
)

// Hub is the session router: it binds inbound actions to the right
// lobby and live engine, and fans resulting state out to the lobby's
// members. One hub per process.
type Hub struct {
	cfg     *config.Config
	lobbies *lobby.Manager
	factory *game.Factory

	mu      sync.RWMutex
	clients map[string]*Client     // player id -> connection
	engines map[string]game.Engine // lobby code -> live engine
	grace   map[string]*time.Timer // player id -> disconnect grace timer
}

func NewHub(cfg *config.Config, lobbies *lobby.Manager, factory *game.Factory) *Hub {
	return &Hub{
		cfg:     cfg,
		lobbies: lobbies,
		factory: factory,
		clients: make(map[string]*Client),
		engines: make(map[string]game.Engine),
		grace:   make(map[string]*time.Timer),
	}
}

// HandleMessage dispatches one inbound frame. Errors go back to the
// sender only; nothing here can take down the hub.
func (h *Hub) HandleMessage(c *Client, raw []byte) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.send(MsgError, ErrorPayload{Message: "malformed message"})
		return
	}

	switch msg.Type {
	case MsgLobbyCreate:
		h.handleCreate(c, msg.Payload)
	case MsgLobbyJoin:
		h.handleJoin(c, msg.Payload)
	case MsgLobbyLeave:
		h.handleLeave(c)
	case MsgUpdatePlayer:
		h.handleUpdatePlayer(c, msg.Payload)
	case MsgToggleReady:
		h.handleToggleReady(c)
	case MsgGameStart:
		h.handleGameStart(c)
	case MsgGameAction:
		h.handleGameAction(c, msg.Payload)
	case MsgPing:
		c.send(MsgPong, map[string]any{"timestamp": time.Now().UnixMilli()})
	default:
		c.send(MsgError, ErrorPayload{Message: "unknown message type: " + msg.Type})
	}
}

func (h *Hub) handleCreate(c *Client, payload json.RawMessage) {
	var p CreatePayload
	if err := json.Unmarshal(payload, &p); err != nil || p.HostName == "" {
		c.send(MsgError, ErrorPayload{Message: "hostName and gameType are required"})
		return
	}
	gameType := domain.GameType(p.GameType)
	if !gameType.Valid() {
		c.send(MsgError, ErrorPayload{Message: "unknown game type: " + p.GameType})
		return
	}
	maxPlayers := p.MaxPlayers
	if maxPlayers < domain.MinPlayers {
		maxPlayers = h.cfg.DefaultMaxLobby
	}
	if maxPlayers > h.cfg.AbsoluteMaxLobby {
		maxPlayers = h.cfg.AbsoluteMaxLobby
	}

	l, host, err := h.lobbies.Create(p.HostName, gameType, maxPlayers)
	if err != nil {
		c.send(MsgError, ErrorPayload{Message: err.Error()})
		return
	}
	h.register(c, host.ID)
	middleware.LobbiesActive.Set(float64(h.lobbies.Count()))

	c.send(MsgLobbyCreated, map[string]any{"lobby": l, "playerId": host.ID})
}

func (h *Hub) handleJoin(c *Client, payload json.RawMessage) {
	var p JoinPayload
	if err := json.Unmarshal(payload, &p); err != nil || p.PlayerName == "" {
		c.send(MsgError, ErrorPayload{Message: "lobbyId and playerName are required"})
		return
	}

	l, player, err := h.lobbies.Join(p.LobbyID, p.PlayerName)
	if err != nil {
		c.send(MsgError, ErrorPayload{Message: err.Error()})
		return
	}
	h.register(c, player.ID)

	c.send(MsgLobbyJoined, map[string]any{"lobby": l, "playerId": player.ID})
	h.broadcastExcept(l.Code, player.ID, MsgPlayerJoined, map[string]any{"player": player})
	h.broadcastExcept(l.Code, player.ID, MsgLobbyUpdated, map[string]any{"lobby": l})
}

func (h *Hub) handleLeave(c *Client) {
	if c.PlayerID == "" {
		c.send(MsgError, ErrorPayload{Message: domain.ErrPlayerNotFound.Error()})
		return
	}
	if err := h.performLeave(c.PlayerID); err != nil {
		c.send(MsgError, ErrorPayload{Message: err.Error()})
		return
	}
	c.PlayerID = ""
	c.send(MsgLobbyLeft, map[string]any{"success": true})
}

func (h *Hub) handleUpdatePlayer(c *Client, payload json.RawMessage) {
	var p UpdatePlayerPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.send(MsgError, ErrorPayload{Message: "malformed payload"})
		return
	}
	l, player, err := h.lobbies.UpdatePlayer(c.PlayerID, domain.PlayerUpdate{Name: p.Name})
	if err != nil {
		c.send(MsgError, ErrorPayload{Message: err.Error()})
		return
	}
	h.broadcast(l.Code, MsgPlayerUpdated, map[string]any{"player": player})
	h.broadcast(l.Code, MsgLobbyUpdated, map[string]any{"lobby": l})
}

func (h *Hub) handleToggleReady(c *Client) {
	l, player, err := h.lobbies.ToggleReady(c.PlayerID)
	if err != nil {
		c.send(MsgError, ErrorPayload{Message: err.Error()})
		return
	}
	h.broadcast(l.Code, MsgPlayerUpdated, map[string]any{"player": player})
	h.broadcast(l.Code, MsgLobbyUpdated, map[string]any{"lobby": l})
}

func (h *Hub) handleGameStart(c *Client) {
	l, err := h.lobbies.Start(c.PlayerID)
	if err != nil {
		c.send(MsgError, ErrorPayload{Message: err.Error()})
		return
	}
	h.broadcast(l.Code, MsgLobbyUpdated, map[string]any{"lobby": l})
	go h.runStartCountdown(l.Code)
}

// runStartCountdown ticks the pre-game countdown once per second and
// then brings the engine live. Every tick re-checks that the lobby
// still exists and is still starting.
func (h *Hub) runStartCountdown(code string) {
	for i := h.cfg.StartCountdown; i > 0; i-- {
		l, ok := h.lobbies.ByCode(code)
		if !ok || l.Status != domain.StatusStarting {
			return
		}
		h.broadcast(code, MsgGameStarting, map[string]any{"seconds": i})
		time.Sleep(time.Second)
	}

	l, ok := h.lobbies.ByCode(code)
	if !ok || l.Status != domain.StatusStarting {
		return
	}

	eng, err := h.factory.Create(l.GameType, h.lobbies.Roster(code), nil, h.engineSink(code))
	if err != nil {
		logger.Error("engine create failed", "code", code, "err", err)
		h.lobbies.SetStatus(code, domain.StatusWaiting)
		h.broadcast(code, MsgError, ErrorPayload{Message: "could not start the game"})
		return
	}

	h.mu.Lock()
	h.engines[code] = eng
	h.mu.Unlock()

	l = h.lobbies.SetStatus(code, domain.StatusPlaying)
	middleware.GamesStarted.WithLabelValues(string(eng.Type())).Inc()

	h.broadcast(code, MsgGameStarted, map[string]any{"lobby": l})
	h.broadcastGameState(code, eng)
}

func (h *Hub) handleGameAction(c *Client, payload json.RawMessage) {
	var p ActionPayload
	if err := json.Unmarshal(payload, &p); err != nil || p.Type == "" {
		c.send(MsgActionResult, ActionResultPayload{Error: "malformed action"})
		return
	}

	l, ok := h.lobbies.ByPlayer(c.PlayerID)
	if !ok {
		c.send(MsgActionResult, ActionResultPayload{Error: domain.ErrLobbyNotFound.Error()})
		return
	}

	h.mu.RLock()
	eng := h.engines[l.Code]
	h.mu.RUnlock()
	if eng == nil {
		c.send(MsgActionResult, ActionResultPayload{Error: domain.ErrNoActiveGame.Error()})
		return
	}

	if err := eng.HandleAction(c.PlayerID, p.Type, p.Data); err != nil {
		middleware.ActionsRejected.Inc()
		c.send(MsgActionResult, ActionResultPayload{Error: err.Error()})
		return
	}
	c.send(MsgActionResult, ActionResultPayload{Success: true})
	h.broadcastGameState(l.Code, eng)
}

// engineSink adapts engine events into room broadcasts.
func (h *Hub) engineSink(code string) game.Sink {
	return func(ev game.Event) {
		h.mu.RLock()
		eng := h.engines[code]
		h.mu.RUnlock()

		switch ev.Kind {
		case game.EventState:
			if eng != nil {
				h.broadcastGameState(code, eng)
			}
		case game.EventRoundEnded:
			h.broadcast(code, MsgRoundEnded, ev.Payload)
			if eng != nil {
				h.broadcastGameState(code, eng)
			}
		case game.EventGameEnded:
			h.broadcast(code, MsgGameEnded, ev.Payload)
			if l := h.lobbies.SetStatus(code, domain.StatusFinished); l != nil {
				h.broadcast(code, MsgLobbyUpdated, map[string]any{"lobby": l})
			}
			h.dropEngine(code)
			middleware.GamesCompleted.Inc()
		}
	}
}

// Reattach resumes an existing identity on a fresh connection.
func (h *Hub) Reattach(c *Client, playerID string) {
	l := h.lobbies.SetConnection(playerID, true)
	if l == nil {
		c.send(MsgError, ErrorPayload{Message: domain.ErrPlayerNotFound.Error()})
		return
	}
	h.register(c, playerID)

	c.send(MsgLobbyUpdated, map[string]any{"lobby": l})
	h.broadcastExcept(l.Code, playerID, MsgPlayerUpdated, map[string]any{"player": l.Player(playerID)})

	h.mu.RLock()
	eng := h.engines[l.Code]
	h.mu.RUnlock()
	if eng != nil {
		c.send(MsgStateUpdate, map[string]any{"state": eng.StateFor(playerID)})
	}
	logger.Info("player reattached", "player", playerID, "code", l.Code)
}

// OnDisconnect marks the player offline and arms the grace timer that
// will remove them if they do not come back.
func (h *Hub) OnDisconnect(c *Client) {
	middleware.ClientsConnected.Dec()

	playerID := c.PlayerID
	if playerID == "" {
		return
	}

	h.mu.Lock()
	if h.clients[playerID] == c {
		delete(h.clients, playerID)
	}
	h.mu.Unlock()

	l := h.lobbies.SetConnection(playerID, false)
	if l == nil {
		return
	}
	h.broadcast(l.Code, MsgPlayerUpdated, map[string]any{"player": l.Player(playerID)})
	h.broadcast(l.Code, MsgLobbyUpdated, map[string]any{"lobby": l})

	timer := time.AfterFunc(h.cfg.DisconnectGrace, func() { h.graceExpired(playerID) })
	h.mu.Lock()
	if old := h.grace[playerID]; old != nil {
		old.Stop()
	}
	h.grace[playerID] = timer
	h.mu.Unlock()
}

// graceExpired fires after the disconnect grace window. State is
// re-checked now, not trusted from scheduling time: the player may have
// reconnected, or the lobby may already be gone (a no-op).
func (h *Hub) graceExpired(playerID string) {
	h.mu.Lock()
	delete(h.grace, playerID)
	h.mu.Unlock()

	connected, tracked := h.lobbies.PlayerConnected(playerID)
	if !tracked || connected {
		return
	}
	logger.Info("disconnect grace expired, removing player", "player", playerID)
	_ = h.performLeave(playerID)
}

// performLeave removes a player and handles host transfer, disband and
// engine teardown fan-out.
func (h *Hub) performLeave(playerID string) error {
	before, _ := h.lobbies.ByPlayer(playerID)

	l, wasHost, err := h.lobbies.Leave(playerID)
	if err != nil {
		return err
	}

	h.mu.Lock()
	delete(h.clients, playerID)
	if t := h.grace[playerID]; t != nil {
		t.Stop()
		delete(h.grace, playerID)
	}
	h.mu.Unlock()
	middleware.LobbiesActive.Set(float64(h.lobbies.Count()))

	if l == nil {
		// Last player out: the lobby is gone, take the engine with it.
		if before != nil {
			h.dropEngine(before.Code)
		}
		return nil
	}

	h.broadcast(l.Code, MsgPlayerLeft, map[string]any{
		"playerId": playerID,
		"wasHost":  wasHost,
		"lobby":    l,
	})

	// A live game must not keep waiting on the departed player.
	h.mu.RLock()
	eng := h.engines[l.Code]
	h.mu.RUnlock()
	if eng != nil {
		eng.HandleDeparture(playerID)
		// The departure may have ended the game and dropped the engine.
		h.mu.RLock()
		eng = h.engines[l.Code]
		h.mu.RUnlock()
		if eng != nil {
			h.broadcastGameState(l.Code, eng)
		}
	}
	return nil
}

// StartSweeper runs idle lobby reclamation on a fixed cadence until the
// process exits.
func (h *Hub) StartSweeper(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			h.Sweep()
		}
	}()
}

// Sweep reclaims idle lobbies, tearing down their engines and telling
// any straggler connections the lobby is gone.
func (h *Hub) Sweep() int {
	removed := h.lobbies.ReclaimIdle()
	for _, l := range removed {
		h.dropEngine(l.Code)
		for _, p := range l.Players {
			h.mu.Lock()
			c := h.clients[p.ID]
			delete(h.clients, p.ID)
			if t := h.grace[p.ID]; t != nil {
				t.Stop()
				delete(h.grace, p.ID)
			}
			h.mu.Unlock()
			if c != nil {
				c.send(MsgLobbyDisbanded, map[string]any{"lobbyId": l.Code})
			}
		}
	}
	middleware.LobbiesActive.Set(float64(h.lobbies.Count()))
	return len(removed)
}

func (h *Hub) register(c *Client, playerID string) {
	c.PlayerID = playerID
	h.mu.Lock()
	h.clients[playerID] = c
	if t := h.grace[playerID]; t != nil {
		t.Stop()
		delete(h.grace, playerID)
	}
	h.mu.Unlock()
}

func (h *Hub) dropEngine(code string) {
	h.mu.Lock()
	eng := h.engines[code]
	delete(h.engines, code)
	h.mu.Unlock()
	if eng != nil {
		eng.Stop()
	}
}

// broadcast sends one message to every member of a lobby.
func (h *Hub) broadcast(code, msgType string, payload any) {
	h.broadcastExcept(code, "", msgType, payload)
}

func (h *Hub) broadcastExcept(code, exceptID, msgType string, payload any) {
	for _, p := range h.lobbies.Roster(code) {
		if p.ID == exceptID {
			continue
		}
		h.mu.RLock()
		c := h.clients[p.ID]
		h.mu.RUnlock()
		if c != nil {
			c.send(msgType, payload)
		}
	}
}

// broadcastGameState renders and sends the game state per viewer, so
// each member only sees what their role allows.
func (h *Hub) broadcastGameState(code string, eng game.Engine) {
	for _, p := range h.lobbies.Roster(code) {
		h.mu.RLock()
		c := h.clients[p.ID]
		h.mu.RUnlock()
		if c != nil {
			c.send(MsgStateUpdate, map[string]any{"state": eng.StateFor(p.ID)})
		}
	}
}
