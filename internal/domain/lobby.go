package domain

import "time"

type GameType string

const (
	GameDrawing     GameType = "drawing"
	GameTwoTruths   GameType = "twotruths"
	GameWouldRather GameType = "wouldrather"
)

func (t GameType) Valid() bool {
	switch t {
	case GameDrawing, GameTwoTruths, GameWouldRather:
		return true
	}
	return false
}

type LobbyStatus string

const (
	StatusWaiting  LobbyStatus = "waiting"
	StatusStarting LobbyStatus = "starting"
	StatusPlaying  LobbyStatus = "playing"
	StatusFinished LobbyStatus = "finished"
)

// Lobby groups players waiting for or running one game. Players keeps
// insertion order; the first entry after any removal inherits the host
// flag.
type Lobby struct {
	ID         string      `json:"id"`
	Code       string      `json:"code"`
	GameType   GameType    `json:"gameType"`
	Status     LobbyStatus `json:"status"`
	Players    []*Player   `json:"players"`
	MaxPlayers int         `json:"maxPlayers"`
	CreatedAt  time.Time   `json:"createdAt"`
	StartedAt  *time.Time  `json:"startedAt,omitempty"`
}

// MinPlayers is the fewest players a game can start with.
const MinPlayers = 3

func (l *Lobby) Player(playerID string) *Player {
	for _, p := range l.Players {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

func (l *Lobby) Host() *Player {
	for _, p := range l.Players {
		if p.IsHost {
			return p
		}
	}
	return nil
}

func (l *Lobby) ConnectedCount() int {
	n := 0
	for _, p := range l.Players {
		if p.Connected {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of the lobby and its players. The manager
// returns clones from every operation so callers can read and marshal
// them without holding the manager lock.
func (l *Lobby) Clone() *Lobby {
	c := *l
	c.Players = make([]*Player, len(l.Players))
	for i, p := range l.Players {
		c.Players[i] = p.Clone()
	}
	if l.StartedAt != nil {
		t := *l.StartedAt
		c.StartedAt = &t
	}
	return &c
}

// PlayerIDs returns identities in seating order.
func (l *Lobby) PlayerIDs() []string {
	ids := make([]string, 0, len(l.Players))
	for _, p := range l.Players {
		ids = append(ids, p.ID)
	}
	return ids
}
