package game

import (
	"math/rand"
	"testing"
	"time"
)

// newQuickDrawing builds a drawing game with a clock fast enough for
// wall-time tests: 2-second rounds, guessing opens at 1 second left,
// 1-second reveal.
func newQuickDrawing(n int) (*DrawingGame, *eventRecorder) {
	rec := &eventRecorder{}
	g := NewDrawingGame(makePlayers(n), rand.New(rand.NewSource(5)), rec.sink(),
		Timing{RoundSeconds: 2, GuessCutoffSec: 1, RevealSeconds: 1})
	return g, rec
}

func roundState(g *DrawingGame) (number int, phase drawPhase) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.round == nil {
		return g.roundNum, ""
	}
	return g.round.Number, g.round.Phase
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		if cond() {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %s", what)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestCountdownDrivesRoundLifecycle(t *testing.T) {
	g, rec := newQuickDrawing(3)
	defer g.Stop()

	if err := g.HandleAction("p0", "startDrawing", nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	if n, phase := roundState(g); n != 1 || phase != phaseDrawing {
		t.Fatalf("round=%d phase=%s; want round 1 drawing", n, phase)
	}

	// The clock flips drawing to guessing at the cutoff...
	waitUntil(t, "guessing phase", func() bool {
		_, phase := roundState(g)
		return phase == phaseGuessing
	})

	// ...ends the round at zero with no guesses...
	waitUntil(t, "round end", func() bool { return rec.count(EventRoundEnded) >= 1 })

	// ...and the reveal pause advances into round 2 on its own.
	waitUntil(t, "round 2", func() bool {
		n, phase := roundState(g)
		return n == 2 && phase == phaseDrawing
	})
}

func TestStopHaltsClock(t *testing.T) {
	g, rec := newQuickDrawing(3)
	if err := g.HandleAction("p0", "startDrawing", nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitUntil(t, "first tick", func() bool { return rec.count(EventState) >= 1 })

	g.Stop()
	// Let any tick already past the disposed check drain out.
	time.Sleep(50 * time.Millisecond)
	before := rec.count(EventState) + rec.count(EventRoundEnded) + rec.count(EventGameEnded)
	time.Sleep(1500 * time.Millisecond)
	after := rec.count(EventState) + rec.count(EventRoundEnded) + rec.count(EventGameEnded)
	if after != before {
		t.Fatalf("events kept arriving after Stop: %d -> %d", before, after)
	}
}

func TestDrawerDepartureEndsRound(t *testing.T) {
	rec := &eventRecorder{}
	g := NewDrawingGame(makePlayers(4), rand.New(rand.NewSource(9)), rec.sink(), Timing{})
	defer g.Stop()

	if err := g.HandleAction("p0", "startDrawing", nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	g.mu.Lock()
	drawer := g.round.DrawerID
	g.mu.Unlock()

	g.HandleDeparture(drawer)

	if rec.count(EventRoundEnded) != 1 {
		t.Fatalf("RoundEnded events = %d; want 1", rec.count(EventRoundEnded))
	}
	if _, phase := roundState(g); phase != phaseReveal {
		t.Fatalf("phase = %s after drawer left; want reveal", phase)
	}
	g.mu.Lock()
	for _, id := range g.order {
		if id == drawer {
			g.mu.Unlock()
			t.Fatal("departed drawer still in the rotation")
		}
	}
	g.mu.Unlock()
}

func TestDepartureBelowMinimumEndsDrawing(t *testing.T) {
	rec := &eventRecorder{}
	g := NewDrawingGame(makePlayers(3), rand.New(rand.NewSource(9)), rec.sink(), Timing{})

	if err := g.HandleAction("p0", "startDrawing", nil); err != nil {
		t.Fatalf("start: %v", err)
	}
	g.HandleDeparture("p1")

	if !g.Finished() {
		t.Fatal("game should end with fewer than 3 players")
	}
	if rec.count(EventGameEnded) != 1 {
		t.Fatalf("GameEnded events = %d; want 1", rec.count(EventGameEnded))
	}
	if w := g.Winner(); w == nil {
		t.Fatal("finished game should report a winner")
	}
}
