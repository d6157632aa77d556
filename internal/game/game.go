package game

import (
	"partyhub/internal/domain"
)

// Stages shared by the submit-then-vote games.
const (
	stageSubmitting = "submitting"
	stageVoting     = "voting"
	stageResults    = "results"
)

// EventKind classifies what an engine wants the router to tell the room.
type EventKind string

const (
	EventState      EventKind = "state"
	EventRoundEnded EventKind = "round_ended"
	EventGameEnded  EventKind = "game_ended"
)

// Event is emitted by an engine for transitions it drives itself
// (countdown ticks, phase flips, reveal continuations). Action-driven
// changes are reported through the HandleAction return instead.
type Event struct {
	Kind    EventKind
	Payload map[string]any
}

// Sink receives engine events. Engines call it without holding their
// own lock, strictly after the mutation the event describes.
type Sink func(Event)

// Standing is one row of a final or running score table.
type Standing struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
}

// Engine is the authoritative state machine for one active game. One
// engine is live per lobby; the router routes actions by player id and
// renders state per viewer so hidden information stays hidden.
type Engine interface {
	Type() domain.GameType

	// HandleAction validates and applies one player action. On error no
	// state changed and nothing should be broadcast.
	HandleAction(playerID, action string, data map[string]any) error

	// StateFor renders the current state as seen by viewerID.
	StateFor(viewerID string) map[string]any

	// HandleDeparture removes a player who has left the lobby mid-game.
	// Phase advancement no longer waits on them; the game ends early if
	// fewer than the minimum players remain. Unknown ids are a no-op.
	HandleDeparture(playerID string)

	Finished() bool
	Scores() map[string]int

	// Winner returns the top scorer once the game has finished, ties
	// resolved to the earliest player in roster order. Nil until then.
	Winner() *Standing

	// Stop cancels any outstanding timers. Safe to call more than once;
	// after Stop no further events are emitted.
	Stop()
}

// roster is the immutable player list an engine is constructed with.
type roster []*domain.Player

func (r roster) ids() []string {
	out := make([]string, len(r))
	for i, p := range r {
		out[i] = p.ID
	}
	return out
}

func (r roster) name(id string) string {
	for _, p := range r {
		if p.ID == id {
			return p.Name
		}
	}
	return ""
}

func (r roster) contains(id string) bool {
	for _, p := range r {
		if p.ID == id {
			return true
		}
	}
	return false
}

func (r roster) index(id string) int {
	for i, p := range r {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (r roster) without(id string) roster {
	out := make(roster, 0, len(r))
	for _, p := range r {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}

// winnerOf picks the highest cumulative score, first in roster order on
// ties.
func winnerOf(players roster, scores map[string]int) *Standing {
	var best *Standing
	for _, p := range players {
		s := scores[p.ID]
		if best == nil || s > best.Score {
			best = &Standing{PlayerID: p.ID, Name: p.Name, Score: s}
		}
	}
	return best
}

// standings returns the score table in roster order.
func standings(players roster, scores map[string]int) []Standing {
	out := make([]Standing, 0, len(players))
	for _, p := range players {
		out = append(out, Standing{PlayerID: p.ID, Name: p.Name, Score: scores[p.ID]})
	}
	return out
}
