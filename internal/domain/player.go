package domain

import "time"

// Player is one seat in a lobby. The ID is the opaque identity handed to
// the client on create/join; everything else is mutable only through the
// lobby manager.
type Player struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	IsHost    bool      `json:"isHost"`
	Ready     bool      `json:"ready"`
	Connected bool      `json:"connected"`
	JoinedAt  time.Time `json:"joinedAt"`
}

// Clone returns an independent copy, safe to hand to code running
// outside the manager lock.
func (p *Player) Clone() *Player {
	c := *p
	return &c
}

// PlayerUpdate carries the fields a client may change about itself.
// Identity, host flag and join time are never settable from outside.
type PlayerUpdate struct {
	Name *string `json:"name,omitempty"`
}
