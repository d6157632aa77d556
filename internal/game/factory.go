package game

import (
	"fmt"
	"math/rand"
	"time"

	"partyhub/internal/domain"
)

// Timing bundles the pacing knobs the drawing game needs. Zero values
// fall back to the defaults below.
type Timing struct {
	RoundSeconds   int
	GuessCutoffSec int
	RevealSeconds  int
}

func (t Timing) withDefaults() Timing {
	if t.RoundSeconds <= 0 {
		t.RoundSeconds = 90
	}
	if t.GuessCutoffSec <= 0 {
		t.GuessCutoffSec = 30
	}
	if t.RevealSeconds <= 0 {
		t.RevealSeconds = 5
	}
	return t
}

type Factory struct {
	timing Timing
}

func NewFactory(timing Timing) *Factory {
	return &Factory{timing: timing.withDefaults()}
}

// Create builds the engine for gameType over the given roster. rng may
// be nil, in which case a time-seeded source is used; notify may be nil
// for engines driven purely by tests.
func (f *Factory) Create(gameType domain.GameType, players []*domain.Player, rng *rand.Rand, notify Sink) (Engine, error) {
	if len(players) < domain.MinPlayers {
		return nil, fmt.Errorf("need at least %d players, have %d", domain.MinPlayers, len(players))
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if notify == nil {
		notify = func(Event) {}
	}

	switch gameType {
	case domain.GameDrawing:
		return NewDrawingGame(players, rng, notify, f.timing), nil
	case domain.GameTwoTruths:
		return NewTwoTruthsGame(players, rng, notify), nil
	case domain.GameWouldRather:
		return NewWouldRatherGame(players, notify), nil
	default:
		return nil, fmt.Errorf("unknown game type: %s", gameType)
	}
}
