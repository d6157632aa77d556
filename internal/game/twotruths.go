package game

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"partyhub/internal/domain"

	"github.com/google/uuid"
)

// Statement is one of the three claims a player submits.
type Statement struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type ttSubmission struct {
	PlayerID   string
	Statements [3]Statement
	LieID      string // assigned uniformly at submission time
}

// ttVote records one voter's pick of which statement is the lie.
type ttVote struct {
	VoterID     string
	StatementID string
}

// TwoTruthsGame runs the statement deduction game: everyone submits
// three statements with one secretly marked as the lie, then the group
// votes on each player's set in roster order.
type TwoTruthsGame struct {
	mu      sync.Mutex
	players roster
	phase   string

	submissions map[string]*ttSubmission
	targetIdx   int
	votes       map[string][]ttVote // target id -> votes received
	scores      map[string]int

	rng    *rand.Rand
	notify Sink
}

func NewTwoTruthsGame(players []*domain.Player, rng *rand.Rand, notify Sink) *TwoTruthsGame {
	return &TwoTruthsGame{
		players:     roster(players),
		phase:       stageSubmitting,
		submissions: make(map[string]*ttSubmission),
		votes:       make(map[string][]ttVote),
		scores:      make(map[string]int),
		rng:         rng,
		notify:      notify,
	}
}

func (g *TwoTruthsGame) Type() domain.GameType { return domain.GameTwoTruths }

func (g *TwoTruthsGame) HandleAction(playerID, action string, data map[string]any) error {
	g.mu.Lock()
	var events []Event
	err := func() error {
		switch action {
		case "submitStatements":
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

func (g *TwoTruthsGame) handleSubmit(playerID string, data map[string]any) error {
	if g.phase != stageSubmitting {
		return fmt.Errorf("submissions are closed")
	}
	if !g.players.contains(playerID) {
		return fmt.Errorf("not part of this game")
	}
	if _, dup := g.submissions[playerID]; dup {
		return fmt.Errorf("you already submitted")
	}

	texts := getStrings(data, "statements")
	if len(texts) != 3 {
		return fmt.Errorf("exactly 3 statements required")
	}

	sub := &ttSubmission{PlayerID: playerID}
	for i, t := range texts {
		t = strings.TrimSpace(t)
		if t == "" {
			return fmt.Errorf("statements cannot be blank")
		}
		sub.Statements[i] = Statement{ID: uuid.NewString(), Text: t}
	}
	sub.LieID = sub.Statements[g.rng.Intn(3)].ID
	g.submissions[playerID] = sub

	if len(g.submissions) == len(g.players) {
		g.phase = stageVoting
		g.targetIdx = 0
	}
	return nil
}

func (g *TwoTruthsGame) handleVote(playerID string, data map[string]any, events *[]Event) error {
	if g.phase != stageVoting {
		return fmt.Errorf("voting is not open")
	}
	target := g.players[g.targetIdx]
	if playerID == target.ID {
		return fmt.Errorf("you cannot vote on your own statements")
	}
	if !g.players.contains(playerID) {
		return fmt.Errorf("not part of this game")
	}
	for _, v := range g.votes[target.ID] {
		if v.VoterID == playerID {
			return fmt.Errorf("you already voted on this player")
		}
	}

	statementID := getString(data, "statementId")
	sub := g.submissions[target.ID]
	known := false
	for _, s := range sub.Statements {
		if s.ID == statementID {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("unknown statement")
	}

	g.votes[target.ID] = append(g.votes[target.ID], ttVote{VoterID: playerID, StatementID: statementID})
	g.maybeAdvance(events)
	return nil
}

// eligibleVotes counts the votes on a target cast by players still in
// the game. Caller holds the lock.
func (g *TwoTruthsGame) eligibleVotes(targetID string) int {
	n := 0
	for _, v := range g.votes[targetID] {
		if g.players.contains(v.VoterID) {
			n++
		}
	}
	return n
}

// maybeAdvance moves the target pointer past every fully-voted target
// and finishes the game once the last one clears. Everyone but the
// target votes; departed players are not waited on. Caller holds the
// lock.
func (g *TwoTruthsGame) maybeAdvance(events *[]Event) {
	for g.phase == stageVoting {
		if g.targetIdx >= len(g.players) {
			g.finish(events)
			return
		}
		target := g.players[g.targetIdx]
		if g.eligibleVotes(target.ID) < len(g.players)-1 {
			return
		}
		g.targetIdx++
	}
}

// HandleDeparture drops a player who left the lobby. Targets they
// already answered stay scored; a target not yet resolved is skipped,
// and the game ends if fewer than the minimum players remain.
func (g *TwoTruthsGame) HandleDeparture(playerID string) {
	g.mu.Lock()
	var events []Event
	g.depart(playerID, &events)
	g.mu.Unlock()

	for _, ev := range events {
		g.notify(ev)
	}
}

// depart does the departure bookkeeping. Caller holds the lock.
func (g *TwoTruthsGame) depart(playerID string, events *[]Event) {
	idx := g.players.index(playerID)
	if g.phase == stageResults || idx < 0 {
		return
	}
	g.players = g.players.without(playerID)

	if len(g.players) < domain.MinPlayers {
		g.finish(events)
		return
	}

	switch g.phase {
	case stageSubmitting:
		delete(g.submissions, playerID)
		if len(g.submissions) == len(g.players) {
			g.phase = stageVoting
			g.targetIdx = 0
		}
	case stageVoting:
		if idx < g.targetIdx {
			// Already resolved as a target; their results stand.
			g.targetIdx--
		} else {
			// Their set will never be voted on.
			delete(g.submissions, playerID)
			delete(g.votes, playerID)
		}
	}
	g.maybeAdvance(events)
}

// finish tallies scores once and ends the game. Caller holds the lock.
func (g *TwoTruthsGame) finish(events *[]Event) {
	g.phase = stageResults
	for targetID, votes := range g.votes {
		sub := g.submissions[targetID]
		for _, v := range votes {
			if v.StatementID == sub.LieID {
				// Caught the lie.
				g.scores[v.VoterID] += 10
			} else {
				// A true statement fooled the voter.
				g.scores[targetID] += 5
			}
		}
	}
	*events = append(*events, Event{
		Kind: EventGameEnded,
		Payload: map[string]any{
			"standings": standings(g.players, g.scores),
			"winner":    winnerOf(g.players, g.scores),
		},
	})
}

func (g *TwoTruthsGame) StateFor(viewerID string) map[string]any {
	g.mu.Lock()
	defer g.mu.Unlock()

	submitted := make([]string, 0, len(g.submissions))
	for id := range g.submissions {
		submitted = append(submitted, id)
	}

	state := map[string]any{
		"type":      string(domain.GameTwoTruths),
		"phase":     g.phase,
		"submitted": submitted,
		"standings": standings(g.players, g.scores),
	}

	switch g.phase {
	case stageVoting:
		target := g.players[g.targetIdx]
		state["currentTarget"] = map[string]any{"id": target.ID, "name": target.Name}
		state["statements"] = g.statementViews(target.ID, false)
		state["votesCast"] = len(g.votes[target.ID])
	case stageResults:
		all := make(map[string]any, len(g.submissions))
		for id := range g.submissions {
			all[id] = g.statementViews(id, true)
		}
		state["submissions"] = all
		state["winner"] = winnerOf(g.players, g.scores)
	}
	return state
}

// statementViews renders a player's statements; the lie flag is only
// attached once the game has reached results.
func (g *TwoTruthsGame) statementViews(targetID string, revealLie bool) []map[string]any {
	sub := g.submissions[targetID]
	if sub == nil {
		return nil
	}
	out := make([]map[string]any, 0, 3)
	for _, s := range sub.Statements {
		view := map[string]any{"id": s.ID, "text": s.Text}
		if revealLie {
			view["isLie"] = s.ID == sub.LieID
		}
		out = append(out, view)
	}
	return out
}

func (g *TwoTruthsGame) Finished() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.phase == stageResults
}

func (g *TwoTruthsGame) Scores() map[string]int {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[string]int, len(g.scores))
	for id, s := range g.scores {
		out[id] = s
	}
	return out
}

func (g *TwoTruthsGame) Winner() *Standing {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.phase != stageResults {
		return nil
	}
	return winnerOf(g.players, g.scores)
}

// Stop is a no-op: this game owns no timers.
func (g *TwoTruthsGame) Stop() {}

func getStrings(data map[string]any, key string) []string {
	if data == nil {
		return nil
	}
	raw, ok := data[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		s, ok := v.(string)
		if !ok {
			return nil
		}
		out = append(out, s)
	}
	return out
}
