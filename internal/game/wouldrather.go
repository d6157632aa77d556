package game

import (
	"fmt"
	"strings"
	"sync"

	"partyhub/internal/domain"

	"github.com/google/uuid"
)

const wrMaxRounds = 3

// Scenario is a submitted either/or prompt.
type Scenario struct {
	ID          string `json:"id"`
	SubmitterID string `json:"submitterId"`
	OptionA     string `json:"optionA"`
	OptionB     string `json:"optionB"`
	Round       int    `json:"round"`
}

// WouldRatherGame runs three rounds of scenario submission and voting.
// Each round every player submits one scenario; scenarios are then voted
// on one at a time by everyone except their submitter.
type WouldRatherGame struct {
	mu      sync.Mutex
	players roster
	phase   string // submitting | voting | results
	round   int

	scenarios   []Scenario                   // all rounds, in submission order
	votes       map[string]map[string]string // scenario id -> voter id -> "A"/"B"
	scenarioIdx int                          // index into current round's scenarios
	scores      map[string]int

	notify Sink
}

func NewWouldRatherGame(players []*domain.Player, notify Sink) *WouldRatherGame {
	return &WouldRatherGame{
		players: roster(players),
		phase:   stageSubmitting,
		round:   1,
		votes:   make(map[string]map[string]string),
		scores:  make(map[string]int),
		notify:  notify,
	}
}

func (g *WouldRatherGame) Type() domain.GameType { return domain.GameWouldRather }

func (g *WouldRatherGame) HandleAction(playerID, action string, data map[string]any) error {
	g.mu.Lock()
	var events []Event
	err := func() error {
		switch action {
		case "submitScenario":
			return g.handleSubmit(playerID, data)
		case "submitVote":
			return g.handleVote(playerID, data, &events)
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

func (g *WouldRatherGame) handleSubmit(playerID string, data map[string]any) error {
	if g.phase != stageSubmitting {
		return fmt.Errorf("submissions are closed")
	}
	if !g.players.contains(playerID) {
		return fmt.Errorf("not part of this game")
	}
	for _, sc := range g.currentScenarios() {
		if sc.SubmitterID == playerID {
			return fmt.Errorf("you already submitted this round")
		}
	}

	optionA := strings.TrimSpace(getString(data, "optionA"))
	optionB := strings.TrimSpace(getString(data, "optionB"))
	if optionA == "" || optionB == "" {
		return fmt.Errorf("both options are required")
	}

	g.scenarios = append(g.scenarios, Scenario{
		ID:          uuid.NewString(),
		SubmitterID: playerID,
		OptionA:     optionA,
		OptionB:     optionB,
		Round:       g.round,
	})

	if len(g.currentScenarios()) == len(g.players) {
		g.phase = stageVoting
		g.scenarioIdx = 0
	}
	return nil
}

func (g *WouldRatherGame) handleVote(playerID string, data map[string]any, events *[]Event) error {
	if g.phase != stageVoting {
		return fmt.Errorf("voting is not open")
	}
	current := g.currentScenarios()
	sc := current[g.scenarioIdx]

	scenarioID := getString(data, "scenarioId")
	if scenarioID != sc.ID {
		return fmt.Errorf("unknown scenario")
	}
	if sc.SubmitterID == playerID {
		return fmt.Errorf("you cannot vote on your own scenario")
	}
	if !g.players.contains(playerID) {
		return fmt.Errorf("not part of this game")
	}
	choice := getString(data, "choice")
	if choice != "A" && choice != "B" {
		return fmt.Errorf("choice must be A or B")
	}
	if g.votes[sc.ID] == nil {
		g.votes[sc.ID] = make(map[string]string)
	}
	if _, dup := g.votes[sc.ID][playerID]; dup {
		return fmt.Errorf("you already voted on this scenario")
	}
	g.votes[sc.ID][playerID] = choice
	g.maybeAdvance(events)
	return nil
}

// eligibleVotes counts votes on a scenario cast by players still in the
// game. Caller holds the lock.
func (g *WouldRatherGame) eligibleVotes(scenarioID string) int {
	n := 0
	for voterID := range g.votes[scenarioID] {
		if g.players.contains(voterID) {
			n++
		}
	}
	return n
}

// maybeAdvance settles every fully-voted scenario in turn: the
// submitter earns a point per vote received, each voter a point for
// weighing in. Departed players are not waited on. Caller holds the
// lock.
func (g *WouldRatherGame) maybeAdvance(events *[]Event) {
	for g.phase == stageVoting {
		current := g.currentScenarios()
		if g.scenarioIdx >= len(current) {
			g.finishRound(events)
			return
		}
		sc := current[g.scenarioIdx]
		if g.eligibleVotes(sc.ID) < len(g.players)-1 {
			return
		}
		g.scores[sc.SubmitterID] += len(g.votes[sc.ID])
		for voterID := range g.votes[sc.ID] {
			g.scores[voterID]++
		}
		g.scenarioIdx++
	}
}

// HandleDeparture drops a player who left the lobby. Their unresolved
// scenario for the current round is withdrawn; the game ends early if
// fewer than the minimum players remain.
func (g *WouldRatherGame) HandleDeparture(playerID string) {
	g.mu.Lock()
	var events []Event
	g.depart(playerID, &events)
	g.mu.Unlock()

	for _, ev := range events {
		g.notify(ev)
	}
}

// depart does the departure bookkeeping. Caller holds the lock.
func (g *WouldRatherGame) depart(playerID string, events *[]Event) {
	if g.phase == stageResults || !g.players.contains(playerID) {
		return
	}
	g.players = g.players.without(playerID)

	if len(g.players) < domain.MinPlayers {
		g.phase = stageResults
		*events = append(*events, Event{
			Kind: EventGameEnded,
			Payload: map[string]any{
				"standings": standings(g.players, g.scores),
				"winner":    winnerOf(g.players, g.scores),
			},
		})
		return
	}

	// Withdraw the departed player's scenario for this round unless it
	// has already been settled.
	for i, sc := range g.currentScenarios() {
		if sc.SubmitterID != playerID {
			continue
		}
		if g.phase == stageVoting && i < g.scenarioIdx {
			break
		}
		delete(g.votes, sc.ID)
		g.removeScenario(sc.ID)
		break
	}

	if g.phase == stageSubmitting && len(g.currentScenarios()) == len(g.players) {
		g.phase = stageVoting
		g.scenarioIdx = 0
	}
	if g.phase == stageVoting {
		g.maybeAdvance(events)
	}
}

func (g *WouldRatherGame) removeScenario(id string) {
	for i, sc := range g.scenarios {
		if sc.ID == id {
			g.scenarios = append(g.scenarios[:i], g.scenarios[i+1:]...)
			return
		}
	}
}

// finishRound closes the current round and opens the next, or ends the
// game after the last one. Caller holds the lock.
func (g *WouldRatherGame) finishRound(events *[]Event) {
	*events = append(*events, Event{
		Kind: EventRoundEnded,
		Payload: map[string]any{
			"round":     g.round,
			"standings": standings(g.players, g.scores),
		},
	})

	if g.round >= wrMaxRounds {
		g.phase = stageResults
		*events = append(*events, Event{
			Kind: EventGameEnded,
			Payload: map[string]any{
				"standings": standings(g.players, g.scores),
				"winner":    winnerOf(g.players, g.scores),
			},
		})
		return
	}

	g.round++
	g.phase = stageSubmitting
	g.scenarioIdx = 0
}

// currentScenarios returns this round's scenarios in submission order.
func (g *WouldRatherGame) currentScenarios() []Scenario {
	var out []Scenario
	for _, sc := range g.scenarios {
		if sc.Round == g.round {
			out = append(out, sc)
		}
	}
	return out
}

func (g *WouldRatherGame) StateFor(viewerID string) map[string]any {
	g.mu.Lock()
	defer g.mu.Unlock()

	current := g.currentScenarios()
	submitted := make([]string, 0, len(current))
	for _, sc := range current {
		submitted = append(submitted, sc.SubmitterID)
	}

	state := map[string]any{
		"type":      string(domain.GameWouldRather),
		"phase":     g.phase,
		"round":     g.round,
		"maxRounds": wrMaxRounds,
		"submitted": submitted,
		"standings": standings(g.players, g.scores),
	}

	switch g.phase {
	case stageVoting:
		sc := current[g.scenarioIdx]
		state["scenarioIndex"] = g.scenarioIdx
		state["scenario"] = sc
		state["votesCast"] = len(g.votes[sc.ID])
	case stageResults:
		state["scenarios"] = g.scenarios
		state["votes"] = g.votes
		state["winner"] = winnerOf(g.players, g.scores)
	}
	return state
}

func (g *WouldRatherGame) Finished() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.phase == stageResults
}

func (g *WouldRatherGame) Scores() map[string]int {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[string]int, len(g.scores))
	for id, s := range g.scores {
		out[id] = s
	}
	return out
}

func (g *WouldRatherGame) Winner() *Standing {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.phase != stageResults {
		return nil
	}
	return winnerOf(g.players, g.scores)
}

// Stop is a no-op: this game owns no timers.
func (g *WouldRatherGame) Stop() {}
