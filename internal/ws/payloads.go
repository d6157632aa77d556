package ws

import "encoding/json"

// Message is the envelope for everything on the wire, both directions.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// client → server

type CreatePayload struct {
	HostName   string `json:"hostName"`
	GameType   string `json:"gameType"`
	MaxPlayers int    `json:"maxPlayers"`
}

type JoinPayload struct {
	LobbyID    string `json:"lobbyId"` // the short code
	PlayerName string `json:"playerName"`
}

type UpdatePlayerPayload struct {
	Name *string `json:"name,omitempty"`
}

type ActionPayload struct {
	Type      string         `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp int64          `json:"timestamp,omitempty"`
}

// server → client

type ErrorPayload struct {
	Message string `json:"message"`
}

type ActionResultPayload struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
