package ws

import (
	"encoding/json"
	"time"

	"partyhub/internal/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 25 * time.Second

	readLimit = 16 * 1024
)

// Client is one websocket connection. PlayerID is empty until the
// connection creates or joins a lobby (or reattaches with an existing
// identity).
type Client struct {
	PlayerID string
	Conn     *websocket.Conn
	Send     chan []byte

	hub *Hub
}

func NewClient(conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		Conn: conn,
		Send: make(chan []byte, 256),
		hub:  hub,
	}
}

// Run starts the write pump and blocks on the read pump until the
// connection drops. reattachID optionally resumes an existing identity.
func (c *Client) Run(reattachID string) {
	go c.writePump()

	if reattachID != "" {
		c.hub.Reattach(c, reattachID)
	}

	c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.OnDisconnect(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(readLimit)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("ws read error", "player", c.PlayerID, "err", err)
			}
			return
		}
		c.hub.HandleMessage(c, raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// send queues one message, dropping it if the client's buffer is full
// rather than blocking the caller.
func (c *Client) send(msgType string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		logger.Error("marshal payload", "type", msgType, "err", err)
		return
	}
	data, err := json.Marshal(Message{Type: msgType, Payload: raw})
	if err != nil {
		return
	}
	// PlayerID belongs to the connection's own goroutine; send runs on
	// whichever goroutine is broadcasting, so it must not read it.
	select {
	case c.Send <- data:
	default:
		logger.Warn("dropping message for slow client", "type", msgType)
	}
}
