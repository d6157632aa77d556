// Command ws_smoke drives a three-player lobby against a running server
// end to end: create, join twice, ready up, start, and read the first
// state update. Useful as a quick protocol sanity check after deploys.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func main() {
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}
	// 127.0.0.1 to prefer IPv4 over [::1]
	url := fmt.Sprintf("ws://127.0.0.1:%s/ws", port)

	host := dial(url)
	defer host.Close()

	send(host, "lobby:create", map[string]any{
		"hostName": "smoke-host",
		"gameType": "wouldrather",
	})
	created := waitFor(host, "lobby:created")

	var createdPayload struct {
		PlayerID string `json:"playerId"`
		Lobby    struct {
			Code string `json:"code"`
		} `json:"lobby"`
	}
	must(json.Unmarshal(created.Payload, &createdPayload))
	code := createdPayload.Lobby.Code
	log.Printf("lobby created: code=%s host=%s", code, createdPayload.PlayerID)

	guests := make([]*websocket.Conn, 0, 2)
	for i := 1; i <= 2; i++ {
		g := dial(url)
		defer g.Close()
		send(g, "lobby:join", map[string]any{
			"lobbyId":    code,
			"playerName": fmt.Sprintf("smoke-%d", i),
		})
		waitFor(g, "lobby:joined")
		send(g, "lobby:toggleReady", nil)
		guests = append(guests, g)
	}
	log.Printf("2 guests joined and ready")

	send(host, "game:start", nil)
	waitFor(host, "game:started")
	waitFor(host, "game:stateUpdate")
	log.Printf("game started and state received, smoke ok")
}

func dial(url string) *websocket.Conn {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		log.Fatalf("dial %s: %v", url, err)
	}
	return conn
}

func send(conn *websocket.Conn, msgType string, payload any) {
	raw, err := json.Marshal(payload)
	must(err)
	must(conn.WriteJSON(message{Type: msgType, Payload: raw}))
}

// waitFor reads frames until one matches msgType, with a deadline so a
// broken server fails the run instead of hanging it.
func waitFor(conn *websocket.Conn, msgType string) message {
	deadline := time.Now().Add(10 * time.Second)
	must(conn.SetReadDeadline(deadline))
	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			log.Fatalf("waiting for %s: %v", msgType, err)
		}
		if msg.Type == "error" {
			log.Fatalf("server error while waiting for %s: %s", msgType, string(msg.Payload))
		}
		if msg.Type == msgType {
			return msg
		}
	}
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
