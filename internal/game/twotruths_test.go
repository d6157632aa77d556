package game

import (
	"math/rand"
	"testing"
)

func newTestTwoTruths(n int) (*TwoTruthsGame, *eventRecorder) {
	rec := &eventRecorder{}
	g := NewTwoTruthsGame(makePlayers(n), rand.New(rand.NewSource(11)), rec.sink())
	return g, rec
}

func submitStatements(t *testing.T, g *TwoTruthsGame, playerID string, statements ...string) {
	t.Helper()
	texts := make([]any, len(statements))
	for i, s := range statements {
		texts[i] = s
	}
	if err := g.HandleAction(playerID, "submitStatements", map[string]any{"statements": texts}); err != nil {
		t.Fatalf("submit for %s: %v", playerID, err)
	}
}

func lieID(g *TwoTruthsGame, playerID string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.submissions[playerID].LieID
}

func truthID(g *TwoTruthsGame, playerID string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	sub := g.submissions[playerID]
	for _, s := range sub.Statements {
		if s.ID != sub.LieID {
			return s.ID
		}
	}
	return ""
}

func TestSubmitStatementsValidation(t *testing.T) {
	g, _ := newTestTwoTruths(3)

	if err := g.HandleAction("p0", "submitStatements", map[string]any{
		"statements": []any{"one", "two"},
	}); err == nil {
		t.Fatal("2 statements should be rejected")
	}
	if err := g.HandleAction("p0", "submitStatements", map[string]any{
		"statements": []any{"one", "  ", "three"},
	}); err == nil {
		t.Fatal("blank statement should be rejected")
	}
	if err := g.HandleAction("ghost", "submitStatements", map[string]any{
		"statements": []any{"a", "b", "c"},
	}); err == nil {
		t.Fatal("outsider submission should be rejected")
	}

	submitStatements(t, g, "p0", "a", "b", "c")
	if err := g.HandleAction("p0", "submitStatements", map[string]any{
		"statements": []any{"x", "y", "z"},
	}); err == nil {
		t.Fatal("duplicate submission should be rejected")
	}
}

func TestExactlyOneLie(t *testing.T) {
	g, _ := newTestTwoTruths(3)
	submitStatements(t, g, "p0", "a", "b", "c")

	g.mu.Lock()
	sub := g.submissions["p0"]
	lies := 0
	for _, s := range sub.Statements {
		if s.ID == sub.LieID {
			lies++
		}
	}
	g.mu.Unlock()
	if lies != 1 {
		t.Fatalf("lie flags = %d; want exactly 1", lies)
	}
}

func TestVotingFlow(t *testing.T) {
	g, _ := newTestTwoTruths(3)

	// No voting before everyone has submitted.
	if err := g.HandleAction("p1", "submitVote", map[string]any{"statementId": "x"}); err == nil {
		t.Fatal("vote during submitting should fail")
	}

	submitStatements(t, g, "p0", "a1", "a2", "a3")
	submitStatements(t, g, "p1", "b1", "b2", "b3")
	submitStatements(t, g, "p2", "c1", "c2", "c3")

	g.mu.Lock()
	phase, idx := g.phase, g.targetIdx
	g.mu.Unlock()
	if phase != stageVoting || idx != 0 {
		t.Fatalf("phase=%s idx=%d; want voting over players[0]", phase, idx)
	}

	target := g.players[0].ID
	lie := lieID(g, target)

	if err := g.HandleAction(target, "submitVote", map[string]any{"statementId": lie}); err == nil {
		t.Fatal("self-vote should be rejected")
	}
	if err := g.HandleAction("p1", "submitVote", map[string]any{"statementId": "bogus"}); err == nil {
		t.Fatal("unknown statement id should be rejected")
	}
	if err := g.HandleAction("p1", "submitVote", map[string]any{"statementId": lie}); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if err := g.HandleAction("p1", "submitVote", map[string]any{"statementId": lie}); err == nil {
		t.Fatal("duplicate (voter,target) vote should be rejected")
	}

	// Target moves on once everyone else has voted.
	if err := g.HandleAction("p2", "submitVote", map[string]any{"statementId": lie}); err != nil {
		t.Fatalf("vote: %v", err)
	}
	g.mu.Lock()
	idx = g.targetIdx
	g.mu.Unlock()
	if idx != 1 {
		t.Fatalf("targetIdx = %d; want 1", idx)
	}
}

func TestScoringAndResults(t *testing.T) {
	g, rec := newTestTwoTruths(3)
	submitStatements(t, g, "p0", "a1", "a2", "a3")
	submitStatements(t, g, "p1", "b1", "b2", "b3")
	submitStatements(t, g, "p2", "c1", "c2", "c3")

	// p0's voters both catch the lie; p1 and p2 fool everyone.
	vote := func(voter, target, statement string) {
		t.Helper()
		if err := g.HandleAction(voter, "submitVote", map[string]any{"statementId": statement}); err != nil {
			t.Fatalf("%s voting on %s: %v", voter, target, err)
		}
	}
	vote("p1", "p0", lieID(g, "p0"))
	vote("p2", "p0", lieID(g, "p0"))
	vote("p0", "p1", truthID(g, "p1"))
	vote("p2", "p1", truthID(g, "p1"))
	vote("p0", "p2", truthID(g, "p2"))
	vote("p1", "p2", truthID(g, "p2"))

	if !g.Finished() {
		t.Fatal("game should be finished after the last target")
	}
	scores := g.Scores()
	// Catching a lie pays the voter 10; each fooling true statement pays
	// its submitter 5 per vote.
	if scores["p1"] != 10+10 || scores["p2"] != 10+10 {
		t.Fatalf("voter scores = %v; want 20 for p1 and p2", scores)
	}
	if scores["p0"] != 0 {
		t.Fatalf("p0 score = %d; want 0 (lie was caught both times)", scores["p0"])
	}
	if w := g.Winner(); w == nil || w.PlayerID != "p1" {
		t.Fatalf("winner = %+v; want p1 (tie broken by roster order)", w)
	}
	if rec.count(EventGameEnded) != 1 {
		t.Fatalf("GameEnded events = %d; want 1", rec.count(EventGameEnded))
	}
}

func TestDepartureDuringSubmitting(t *testing.T) {
	g, _ := newTestTwoTruths(4)
	submitStatements(t, g, "p0", "a1", "a2", "a3")
	submitStatements(t, g, "p1", "b1", "b2", "b3")
	submitStatements(t, g, "p2", "c1", "c2", "c3")

	// p3 never submits; their departure must not leave the phase stuck.
	g.HandleDeparture("p3")

	g.mu.Lock()
	phase, n := g.phase, len(g.players)
	g.mu.Unlock()
	if phase != stageVoting || n != 3 {
		t.Fatalf("phase=%s players=%d; want voting with 3 players", phase, n)
	}
}

func TestDepartureDuringVoting(t *testing.T) {
	g, rec := newTestTwoTruths(4)
	for _, id := range []string{"p0", "p1", "p2", "p3"} {
		submitStatements(t, g, id, id+"-1", id+"-2", id+"-3")
	}

	// Two of the three voters answer p0; the third leaves instead.
	lie := lieID(g, "p0")
	for _, voter := range []string{"p1", "p2"} {
		if err := g.HandleAction(voter, "submitVote", map[string]any{"statementId": lie}); err != nil {
			t.Fatalf("vote: %v", err)
		}
	}
	g.HandleDeparture("p3")

	g.mu.Lock()
	idx := g.targetIdx
	g.mu.Unlock()
	if idx != 1 {
		t.Fatalf("targetIdx = %d after departure; want 1", idx)
	}

	// The remaining pairs finish the game without p3.
	for _, target := range []string{"p1", "p2"} {
		lie := lieID(g, target)
		for _, voter := range []string{"p0", "p1", "p2"} {
			if voter == target {
				continue
			}
			if err := g.HandleAction(voter, "submitVote", map[string]any{"statementId": lie}); err != nil {
				t.Fatalf("%s voting on %s: %v", voter, target, err)
			}
		}
	}
	if !g.Finished() {
		t.Fatal("game should finish without the departed player")
	}
	if rec.count(EventGameEnded) != 1 {
		t.Fatalf("GameEnded events = %d; want 1", rec.count(EventGameEnded))
	}
}

func TestDepartureBelowMinimumEndsGame(t *testing.T) {
	g, rec := newTestTwoTruths(3)
	submitStatements(t, g, "p0", "a1", "a2", "a3")

	g.HandleDeparture("p2")
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

func TestLieHiddenUntilResults(t *testing.T) {
	g, _ := newTestTwoTruths(3)
	submitStatements(t, g, "p0", "a1", "a2", "a3")
	submitStatements(t, g, "p1", "b1", "b2", "b3")
	submitStatements(t, g, "p2", "c1", "c2", "c3")

	state := g.StateFor("p1")
	statements, ok := state["statements"].([]map[string]any)
	if !ok || len(statements) != 3 {
		t.Fatalf("voting state missing statements: %v", state)
	}
	for _, s := range statements {
		if _, leaked := s["isLie"]; leaked {
			t.Fatal("lie flag leaked before results")
		}
	}

	// Play through to results.
	for _, target := range g.players {
		lie := lieID(g, target.ID)
		for _, voter := range g.players {
			if voter.ID == target.ID {
				continue
			}
			g.HandleAction(voter.ID, "submitVote", map[string]any{"statementId": lie})
		}
	}

	state = g.StateFor("p1")
	subs, ok := state["submissions"].(map[string]any)
	if !ok {
		t.Fatalf("results state missing submissions: %v", state)
	}
	views := subs["p0"].([]map[string]any)
	flagged := 0
	for _, s := range views {
		if isLie, ok := s["isLie"].(bool); ok && isLie {
			flagged++
		}
	}
	if flagged != 1 {
		t.Fatalf("results flag %d lies for p0; want 1", flagged)
	}
}
