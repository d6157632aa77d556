package ws

import (
	"encoding/json"
	"math/rand"
	"strconv"
	"sync"
	"testing"
	"time"

	"partyhub/internal/config"
	"partyhub/internal/domain"
	"partyhub/internal/game"
	"partyhub/internal/lobby"
)

func testConfig() *config.Config {
	return &config.Config{
		MaxLobbyAge:      30 * time.Minute,
		DisconnectGrace:  25 * time.Millisecond,
		RoundSeconds:     90,
		GuessCutoffSec:   30,
		RevealSeconds:    5,
		StartCountdown:   0, // no pre-game delay in tests
		DefaultMaxLobby:  8,
		AbsoluteMaxLobby: 12,
	}
}

func newTestHub(cfg *config.Config) *Hub {
	lobbies := lobby.NewManager(cfg.MaxLobbyAge, rand.New(rand.NewSource(1)))
	factory := game.NewFactory(game.Timing{
		RoundSeconds:   cfg.RoundSeconds,
		GuessCutoffSec: cfg.GuessCutoffSec,
		RevealSeconds:  cfg.RevealSeconds,
	})
	return NewHub(cfg, lobbies, factory)
}

// newTestClient builds a client with no underlying connection; messages
// land in the Send buffer where tests can read them back.
func newTestClient(h *Hub) *Client {
	return &Client{Send: make(chan []byte, 256), hub: h}
}

func frame(t *testing.T, msgType string, payload any) []byte {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	data, err := json.Marshal(Message{Type: msgType, Payload: raw})
	if err != nil {
		t.Fatalf("marshal frame: %v", err)
	}
	return data
}

// recv drains the client's buffer until a message of the wanted type
// shows up, failing the test if it does not arrive in time.
func recv(t *testing.T, c *Client, msgType string) map[string]any {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case raw := <-c.Send:
			var msg Message
			if err := json.Unmarshal(raw, &msg); err != nil {
				t.Fatalf("bad frame: %v", err)
			}
			if msg.Type != msgType {
				continue
			}
			var payload map[string]any
			if err := json.Unmarshal(msg.Payload, &payload); err != nil {
				t.Fatalf("bad payload for %s: %v", msgType, err)
			}
			return payload
		case <-deadline:
			t.Fatalf("no %s message received", msgType)
		}
	}
}

func drain(c *Client) {
	for {
		select {
		case <-c.Send:
		default:
			return
		}
	}
}

func createLobby(t *testing.T, h *Hub, c *Client, name, gameType string) string {
	t.Helper()
	h.HandleMessage(c, frame(t, MsgLobbyCreate, CreatePayload{HostName: name, GameType: gameType}))
	payload := recv(t, c, MsgLobbyCreated)
	l := payload["lobby"].(map[string]any)
	return l["code"].(string)
}

func joinLobby(t *testing.T, h *Hub, c *Client, code, name string) {
	t.Helper()
	h.HandleMessage(c, frame(t, MsgLobbyJoin, JoinPayload{LobbyID: code, PlayerName: name}))
	recv(t, c, MsgLobbyJoined)
}

func TestCreateAndJoinFlow(t *testing.T) {
	h := newTestHub(testConfig())
	host := newTestClient(h)
	guest := newTestClient(h)

	code := createLobby(t, h, host, "alice", "wouldrather")
	if host.PlayerID == "" {
		t.Fatal("host client did not get an identity")
	}

	joinLobby(t, h, guest, code, "bob")

	// The host hears about the new player.
	payload := recv(t, host, MsgPlayerJoined)
	player := payload["player"].(map[string]any)
	if player["name"] != "bob" {
		t.Fatalf("playerJoined name = %v; want bob", player["name"])
	}
	recv(t, host, MsgLobbyUpdated)
}

func TestCreateRejectsUnknownGameType(t *testing.T) {
	h := newTestHub(testConfig())
	c := newTestClient(h)

	h.HandleMessage(c, frame(t, MsgLobbyCreate, CreatePayload{HostName: "alice", GameType: "chess"}))
	recv(t, c, MsgError)
	if c.PlayerID != "" {
		t.Fatal("failed create should not assign an identity")
	}
}

func TestActionWithoutActiveGame(t *testing.T) {
	h := newTestHub(testConfig())
	c := newTestClient(h)
	createLobby(t, h, c, "alice", "drawing")

	h.HandleMessage(c, frame(t, MsgGameAction, ActionPayload{Type: "submitGuess"}))
	payload := recv(t, c, MsgActionResult)
	if payload["error"] != domain.ErrNoActiveGame.Error() {
		t.Fatalf("error = %v; want %q", payload["error"], domain.ErrNoActiveGame.Error())
	}
}

func TestGameStartBringsEngineLive(t *testing.T) {
	h := newTestHub(testConfig())
	host := newTestClient(h)
	g1 := newTestClient(h)
	g2 := newTestClient(h)

	code := createLobby(t, h, host, "alice", "wouldrather")
	joinLobby(t, h, g1, code, "bob")
	joinLobby(t, h, g2, code, "cleo")

	h.HandleMessage(g1, frame(t, MsgToggleReady, nil))
	h.HandleMessage(g2, frame(t, MsgToggleReady, nil))

	h.HandleMessage(host, frame(t, MsgGameStart, nil))
	recv(t, host, MsgGameStarted)
	recv(t, host, MsgStateUpdate)

	h.mu.RLock()
	eng := h.engines[code]
	h.mu.RUnlock()
	if eng == nil {
		t.Fatal("no engine registered after game start")
	}
	if l, _ := h.lobbies.ByCode(code); l.Status != domain.StatusPlaying {
		t.Fatalf("lobby status = %s; want playing", l.Status)
	}

	// Actions now route to the engine, and state fans out per player.
	drain(g1)
	h.HandleMessage(g1, frame(t, MsgGameAction, ActionPayload{
		Type: "submitScenario",
		Data: map[string]any{"optionA": "sea", "optionB": "mountains"},
	}))
	payload := recv(t, g1, MsgActionResult)
	if payload["success"] != true {
		t.Fatalf("action result = %v; want success", payload)
	}
	recv(t, g2, MsgStateUpdate)
}

func TestStartRejectedWhenNotReady(t *testing.T) {
	h := newTestHub(testConfig())
	host := newTestClient(h)
	g1 := newTestClient(h)
	g2 := newTestClient(h)

	code := createLobby(t, h, host, "alice", "twotruths")
	joinLobby(t, h, g1, code, "bob")
	joinLobby(t, h, g2, code, "cleo")

	h.HandleMessage(host, frame(t, MsgGameStart, nil))
	recv(t, host, MsgError)
	if l, _ := h.lobbies.ByCode(code); l.Status != domain.StatusWaiting {
		t.Fatalf("lobby status = %s; want waiting", l.Status)
	}
}

func TestLeaveMidGameInformsEngine(t *testing.T) {
	h := newTestHub(testConfig())
	host := newTestClient(h)
	g1 := newTestClient(h)
	g2 := newTestClient(h)

	code := createLobby(t, h, host, "alice", "wouldrather")
	joinLobby(t, h, g1, code, "bob")
	joinLobby(t, h, g2, code, "cleo")
	h.HandleMessage(g1, frame(t, MsgToggleReady, nil))
	h.HandleMessage(g2, frame(t, MsgToggleReady, nil))
	h.HandleMessage(host, frame(t, MsgGameStart, nil))
	recv(t, host, MsgGameStarted)

	// Dropping to 2 players mid-game must end it, not stall it.
	drain(host)
	h.HandleMessage(g2, frame(t, MsgLobbyLeave, nil))
	recv(t, g2, MsgLobbyLeft)
	recv(t, host, MsgGameEnded)

	if l, _ := h.lobbies.ByCode(code); l.Status != domain.StatusFinished {
		t.Fatalf("lobby status = %s; want finished", l.Status)
	}
	h.mu.RLock()
	eng := h.engines[code]
	h.mu.RUnlock()
	if eng != nil {
		t.Fatal("engine still registered after the game ended")
	}
}

func TestSendDoesNotReadIdentity(t *testing.T) {
	c := newTestClient(newTestHub(testConfig()))

	// The connection's own goroutine may rewrite PlayerID while another
	// goroutine broadcasts through send.
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
				c.PlayerID = strconv.Itoa(i)
			}
		}
	}()

	for i := 0; i < 500; i++ {
		c.send(MsgPong, map[string]any{"timestamp": i})
		drain(c)
	}
	close(stop)
	wg.Wait()
}

func TestDisconnectGraceRemovesPlayer(t *testing.T) {
	h := newTestHub(testConfig())
	host := newTestClient(h)
	guest := newTestClient(h)

	code := createLobby(t, h, host, "alice", "drawing")
	joinLobby(t, h, guest, code, "bob")

	h.OnDisconnect(guest)
	recv(t, host, MsgPlayerUpdated) // bob marked offline

	deadline := time.After(2 * time.Second)
	for {
		if _, tracked := h.lobbies.PlayerConnected(guest.PlayerID); !tracked {
			break
		}
		select {
		case <-deadline:
			t.Fatal("player not removed after grace expired")
		case <-time.After(5 * time.Millisecond):
		}
	}

	l, _ := h.lobbies.ByCode(code)
	if len(l.Players) != 1 {
		t.Fatalf("lobby has %d players; want 1", len(l.Players))
	}
}

func TestReattachCancelsGrace(t *testing.T) {
	h := newTestHub(testConfig())
	host := newTestClient(h)
	guest := newTestClient(h)

	code := createLobby(t, h, host, "alice", "drawing")
	joinLobby(t, h, guest, code, "bob")
	playerID := guest.PlayerID

	h.OnDisconnect(guest)

	fresh := newTestClient(h)
	h.Reattach(fresh, playerID)
	recv(t, fresh, MsgLobbyUpdated)

	time.Sleep(3 * testConfig().DisconnectGrace)
	connected, tracked := h.lobbies.PlayerConnected(playerID)
	if !tracked || !connected {
		t.Fatalf("player tracked=%v connected=%v after reattach; want both", tracked, connected)
	}
}

func TestReattachUnknownPlayer(t *testing.T) {
	h := newTestHub(testConfig())
	c := newTestClient(h)
	h.Reattach(c, "nobody")
	recv(t, c, MsgError)
}

func TestSweepDisbandsIdleLobby(t *testing.T) {
	cfg := testConfig()
	cfg.MaxLobbyAge = time.Millisecond
	h := newTestHub(cfg)
	host := newTestClient(h)

	createLobby(t, h, host, "alice", "drawing")
	time.Sleep(5 * time.Millisecond)

	if n := h.Sweep(); n != 1 {
		t.Fatalf("Sweep removed %d lobbies; want 1", n)
	}
	recv(t, host, MsgLobbyDisbanded)

	if n := h.Sweep(); n != 0 {
		t.Fatalf("second Sweep removed %d lobbies; want 0", n)
	}
}

func TestMalformedFrame(t *testing.T) {
	h := newTestHub(testConfig())
	c := newTestClient(h)
	h.HandleMessage(c, []byte("not json"))
	recv(t, c, MsgError)
}
