package game

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"partyhub/internal/domain"
	"partyhub/internal/logger"

	"github.com/google/uuid"
)

type drawPhase string

const (
	phaseDrawing  drawPhase = "drawing"
	phaseGuessing drawPhase = "guessing"
	phaseReveal   drawPhase = "reveal"
)

const maxDrawRounds = 8

// Stroke is one canvas mutation by the drawer. Points stay opaque to the
// server; clients agree on their shape.
type Stroke struct {
	ID       string  `json:"id"`
	PlayerID string  `json:"playerId"`
	Points   any     `json:"points"`
	Color    string  `json:"color,omitempty"`
	Width    float64 `json:"width,omitempty"`
}

// Guess is one guess attempt. Incorrect repeats are recorded as they
// arrive; at most one correct guess per player counts.
type Guess struct {
	PlayerID string    `json:"playerId"`
	Name     string    `json:"name"`
	Text     string    `json:"text"`
	Correct  bool      `json:"correct"`
	At       time.Time `json:"at"`
}

type drawRound struct {
	Number    int
	DrawerID  string
	Prompt    PromptCard
	Canvas    []Stroke
	Guesses   []Guess
	Remaining int
	Phase     drawPhase

	// stop ends this round's countdown goroutine; closed exactly once,
	// under the game lock, via stopCountdown.
	stop    chan struct{}
	stopped bool
}

// DrawingGame runs the draw-and-guess game: a shuffled drawer rotation,
// min(players*2, 8) rounds, a 90-second countdown per round that flips
// to the guessing phase at the cutoff and ends the round at zero.
type DrawingGame struct {
	mu      sync.Mutex
	players roster
	order   []string // shuffled once at construction
	total   int

	roundNum int
	round    *drawRound
	scores   map[string]int
	picker   *promptPicker

	state       string // "setup" | "playing" | "finished"
	revealTimer *time.Timer
	disposed    bool

	notify Sink
	timing Timing
}

func NewDrawingGame(players []*domain.Player, rng *rand.Rand, notify Sink, timing Timing) *DrawingGame {
	order := make([]string, len(players))
	for i, p := range players {
		order[i] = p.ID
	}
	rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	total := len(players) * 2
	if total > maxDrawRounds {
		total = maxDrawRounds
	}

	return &DrawingGame{
		players: roster(players),
		order:   order,
		total:   total,
		scores:  make(map[string]int),
		picker:  newPromptPicker(rng),
		state:   "setup",
		notify:  notify,
		timing:  timing.withDefaults(),
	}
}

func (g *DrawingGame) Type() domain.GameType { return domain.GameDrawing }

func (g *DrawingGame) HandleAction(playerID, action string, data map[string]any) error {
	g.mu.Lock()
	var events []Event
	err := func() error {
		if g.disposed {
			return fmt.Errorf("game is shut down")
		}
		switch action {
		case "startDrawing":
			return g.handleStart(&events)
		case "addStroke":
			return g.handleStroke(playerID, data)
		case "clearCanvas":
			return g.handleClear(playerID)
		case "undoStroke":
			return g.handleUndo(playerID)
		case "submitGuess":
			return g.handleGuess(playerID, data, &events)
		default:
			return fmt.Errorf("unknown action: %s", action)
		}
	}()
	g.mu.Unlock()

	for _, ev := range events {
		g.notify(ev)
	}
	return err
}

func (g *DrawingGame) handleStart(events *[]Event) error {
	switch {
	case g.state == "setup":
		g.startRound()
		return nil
	case g.state == "playing" && g.round != nil && g.round.Phase == phaseReveal:
		// Skip the rest of the reveal pause.
		if g.revealTimer != nil {
			g.revealTimer.Stop()
			g.revealTimer = nil
		}
		*events = append(*events, g.advance()...)
		return nil
	default:
		return fmt.Errorf("cannot start a round now")
	}
}

func (g *DrawingGame) handleStroke(playerID string, data map[string]any) error {
	r, err := g.activeRound()
	if err != nil {
		return err
	}
	if r.DrawerID != playerID {
		return fmt.Errorf("only the drawer can draw")
	}
	if r.Phase != phaseDrawing && r.Phase != phaseGuessing {
		return fmt.Errorf("round is not accepting strokes")
	}
	r.Canvas = append(r.Canvas, Stroke{
		ID:       uuid.NewString(),
		PlayerID: playerID,
		Points:   data["points"],
		Color:    getString(data, "color"),
		Width:    getFloat(data, "width"),
	})
	return nil
}

func (g *DrawingGame) handleClear(playerID string) error {
	r, err := g.activeRound()
	if err != nil {
		return err
	}
	if r.DrawerID != playerID {
		return fmt.Errorf("only the drawer can clear the canvas")
	}
	r.Canvas = nil
	return nil
}

func (g *DrawingGame) handleUndo(playerID string) error {
	r, err := g.activeRound()
	if err != nil {
		return err
	}
	if r.DrawerID != playerID {
		return fmt.Errorf("only the drawer can undo")
	}
	if len(r.Canvas) > 0 {
		r.Canvas = r.Canvas[:len(r.Canvas)-1]
	}
	return nil
}

func (g *DrawingGame) handleGuess(playerID string, data map[string]any, events *[]Event) error {
	r, err := g.activeRound()
	if err != nil {
		return err
	}
	if r.DrawerID == playerID {
		return fmt.Errorf("the drawer cannot guess")
	}
	if r.Phase != phaseGuessing {
		return fmt.Errorf("guessing has not started yet")
	}
	text := strings.TrimSpace(getString(data, "text"))
	if text == "" {
		return fmt.Errorf("empty guess")
	}
	for _, prev := range r.Guesses {
		if prev.PlayerID == playerID && prev.Correct {
			return fmt.Errorf("you already guessed the word")
		}
	}

	correct := strings.EqualFold(text, r.Prompt.Word)
	if correct {
		prior := 0
		for _, prev := range r.Guesses {
			if prev.Correct {
				prior++
			}
		}
		points := 10 - 2*prior
		if points < 2 {
			points = 2
		}
		switch {
		case r.Remaining >= 60:
			points += 3
		case r.Remaining >= 30:
			points++
		}
		g.scores[playerID] += points
	}

	r.Guesses = append(r.Guesses, Guess{
		PlayerID: playerID,
		Name:     g.players.name(playerID),
		Text:     text,
		Correct:  correct,
		At:       time.Now(),
	})

	if correct && g.allGuessed(r) {
		*events = append(*events, g.endRound(r)...)
	}
	return nil
}

// allGuessed reports whether every non-drawer still in the game has a
// counted correct guess this round.
func (g *DrawingGame) allGuessed(r *drawRound) bool {
	correct := make(map[string]bool)
	for _, gs := range r.Guesses {
		if gs.Correct && g.players.contains(gs.PlayerID) {
			correct[gs.PlayerID] = true
		}
	}
	delete(correct, r.DrawerID)
	return len(correct) == len(g.players)-1
}

// HandleDeparture drops a player who left the lobby. A round that loses
// its drawer ends immediately; the game ends early if fewer than the
// minimum players remain.
func (g *DrawingGame) HandleDeparture(playerID string) {
	g.mu.Lock()
	var events []Event
	func() {
		if g.disposed || g.state == "finished" || !g.players.contains(playerID) {
			return
		}
		g.players = g.players.without(playerID)
		for i, id := range g.order {
			if id == playerID {
				g.order = append(g.order[:i], g.order[i+1:]...)
				break
			}
		}

		if len(g.players) < domain.MinPlayers {
			g.state = "finished"
			if g.round != nil {
				g.stopCountdown(g.round)
				g.round = nil
			}
			if g.revealTimer != nil {
				g.revealTimer.Stop()
				g.revealTimer = nil
			}
			events = append(events, Event{
				Kind: EventGameEnded,
				Payload: map[string]any{
					"standings": standings(g.players, g.scores),
					"winner":    winnerOf(g.players, g.scores),
				},
			})
			return
		}

		r := g.round
		if r == nil || r.Phase == phaseReveal {
			return
		}
		switch {
		case r.DrawerID == playerID:
			events = append(events, g.endRound(r)...)
		case g.allGuessed(r):
			// The departed player was the last guesser outstanding.
			events = append(events, g.endRound(r)...)
		}
	}()
	g.mu.Unlock()

	for _, ev := range events {
		g.notify(ev)
	}
}

// startRound opens the next round and launches its countdown. Caller
// holds the lock.
func (g *DrawingGame) startRound() {
	g.roundNum++
	g.state = "playing"

	r := &drawRound{
		Number:    g.roundNum,
		DrawerID:  g.order[(g.roundNum-1)%len(g.order)],
		Prompt:    g.picker.pick(),
		Remaining: g.timing.RoundSeconds,
		Phase:     phaseDrawing,
		stop:      make(chan struct{}),
	}
	g.round = r
	logger.Debug("drawing round started", "round", r.Number, "drawer", r.DrawerID)

	go g.runCountdown(r)
}

// runCountdown drives the per-round clock at one-second resolution.
func (g *DrawingGame) runCountdown(r *drawRound) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			g.mu.Lock()
			events := g.tick(r)
			g.mu.Unlock()
			for _, ev := range events {
				g.notify(ev)
			}
		}
	}
}

// tick advances the round clock by one second. Caller holds the lock.
func (g *DrawingGame) tick(r *drawRound) []Event {
	// The round may have been superseded between the tick firing and the
	// lock being acquired.
	if g.disposed || g.round != r || r.Phase == phaseReveal {
		return nil
	}
	r.Remaining--
	if r.Remaining <= 0 {
		return g.endRound(r)
	}
	if r.Remaining == g.timing.GuessCutoffSec && r.Phase == phaseDrawing {
		r.Phase = phaseGuessing
	}
	return []Event{{Kind: EventState}}
}

// endRound moves the round into reveal, pays the drawer, and schedules
// the continuation. Caller holds the lock.
func (g *DrawingGame) endRound(r *drawRound) []Event {
	r.Phase = phaseReveal
	g.stopCountdown(r)

	correct := 0
	for _, gs := range r.Guesses {
		if gs.Correct {
			correct++
		}
	}
	g.scores[r.DrawerID] += 2 * correct

	g.revealTimer = time.AfterFunc(time.Duration(g.timing.RevealSeconds)*time.Second, func() {
		g.mu.Lock()
		var events []Event
		// Re-check: the game may have been stopped, or someone advanced
		// manually during the pause.
		if !g.disposed && g.round == r && r.Phase == phaseReveal {
			events = g.advance()
		}
		g.mu.Unlock()
		for _, ev := range events {
			g.notify(ev)
		}
	})

	return []Event{{
		Kind: EventRoundEnded,
		Payload: map[string]any{
			"round":          r.Number,
			"word":           r.Prompt.Word,
			"correctGuesses": correct,
			"standings":      standings(g.players, g.scores),
		},
	}}
}

// advance starts the next round or finishes the game. Caller holds the
// lock.
func (g *DrawingGame) advance() []Event {
	if g.roundNum >= g.total {
		g.state = "finished"
		g.round = nil
		return []Event{{
			Kind: EventGameEnded,
			Payload: map[string]any{
				"standings": standings(g.players, g.scores),
				"winner":    winnerOf(g.players, g.scores),
			},
		}}
	}
	g.startRound()
	return []Event{{Kind: EventState}}
}

func (g *DrawingGame) stopCountdown(r *drawRound) {
	if !r.stopped {
		r.stopped = true
		close(r.stop)
	}
}

func (g *DrawingGame) activeRound() (*drawRound, error) {
	if g.state != "playing" || g.round == nil {
		return nil, fmt.Errorf("no round in progress")
	}
	return g.round, nil
}

func (g *DrawingGame) StateFor(viewerID string) map[string]any {
	g.mu.Lock()
	defer g.mu.Unlock()

	state := map[string]any{
		"type":        string(domain.GameDrawing),
		"state":       g.state,
		"round":       g.roundNum,
		"totalRounds": g.total,
		"standings":   standings(g.players, g.scores),
	}
	r := g.round
	if r == nil {
		return state
	}

	state["roundPhase"] = string(r.Phase)
	state["drawer"] = map[string]any{"id": r.DrawerID, "name": g.players.name(r.DrawerID)}
	state["timeRemaining"] = r.Remaining
	state["canvas"] = r.Canvas
	state["guesses"] = r.Guesses

	// The word is visible to the drawer while the round runs and to
	// everyone once it is over.
	if viewerID == r.DrawerID || r.Phase == phaseReveal {
		state["prompt"] = r.Prompt
	} else {
		state["prompt"] = map[string]any{
			"category":   r.Prompt.Category,
			"difficulty": r.Prompt.Difficulty,
		}
	}
	return state
}

func (g *DrawingGame) Finished() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state == "finished"
}

func (g *DrawingGame) Scores() map[string]int {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[string]int, len(g.scores))
	for id, s := range g.scores {
		out[id] = s
	}
	return out
}

func (g *DrawingGame) Winner() *Standing {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != "finished" {
		return nil
	}
	return winnerOf(g.players, g.scores)
}

func (g *DrawingGame) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.disposed = true
	if g.round != nil {
		g.stopCountdown(g.round)
	}
	if g.revealTimer != nil {
		g.revealTimer.Stop()
		g.revealTimer = nil
	}
}

func getString(data map[string]any, key string) string {
	if data == nil {
		return ""
	}
	s, _ := data[key].(string)
	return s
}

func getFloat(data map[string]any, key string) float64 {
	if data == nil {
		return 0
	}
	f, _ := data[key].(float64)
	return f
}
